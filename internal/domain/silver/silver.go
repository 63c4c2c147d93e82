package silver

import (
	"context"
	"strings"
	"time"

	"pawn-ledger/internal/domain/loan"
	"pawn-ledger/internal/pkg/apperrors"
	"pawn-ledger/internal/pkg/calculator"
	"pawn-ledger/internal/pkg/money"

	"github.com/google/uuid"
)

type Sale struct {
	ID             int64
	ReceiptNumber  string
	CustomerID     *int64
	Description    string
	WeightMg       money.Milligrams
	PurityPermille int
	RatePerGram    money.Paise
	MakingCharges  money.Paise
	TotalAmount    money.Paise
	Mode           loan.PaymentMode
	SoldAt         time.Time
	CreatedAt      time.Time
}

// SaleParams with a zero RatePerGram sell at the current silver price.
type SaleParams struct {
	CustomerID     *int64
	Description    string
	WeightMg       money.Milligrams
	PurityPermille int
	RatePerGram    money.Paise
	MakingCharges  money.Paise
	Mode           loan.PaymentMode
	SoldAt         time.Time
}

// ListFilter zero values mean "any".
type ListFilter struct {
	From       time.Time
	To         time.Time
	CustomerID int64
}

type Repository interface {
	Create(ctx context.Context, sale *Sale) error
	GetByID(ctx context.Context, saleID int64) (*Sale, error)
	List(ctx context.Context, filter ListFilter) ([]*Sale, error)
}

func NewReceiptNumber() string {
	return "SS-" + strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:10])
}

// NewSale validates p against an already resolved rate and prices the sale.
func NewSale(p SaleParams, rate money.Paise, now time.Time) (*Sale, error) {
	if p.WeightMg <= 0 {
		return nil, apperrors.NewValidationError("weight", "weight must be greater than zero")
	}
	if rate <= 0 {
		return nil, apperrors.NewValidationError("ratePerGram", "rate must be greater than zero")
	}
	if p.MakingCharges < 0 {
		return nil, apperrors.NewValidationError("makingCharges", "making charges cannot be negative")
	}
	if p.PurityPermille < 0 || p.PurityPermille > 1000 {
		return nil, apperrors.NewValidationError("purity", "purity must be between 0 and 1000 parts per thousand")
	}
	mode := p.Mode
	if mode == "" {
		mode = loan.ModeCash
	}
	soldAt := p.SoldAt
	if soldAt.IsZero() {
		soldAt = now
	}

	return &Sale{
		ReceiptNumber:  NewReceiptNumber(),
		CustomerID:     p.CustomerID,
		Description:    strings.TrimSpace(p.Description),
		WeightMg:       p.WeightMg,
		PurityPermille: p.PurityPermille,
		RatePerGram:    rate,
		MakingCharges:  p.MakingCharges,
		TotalAmount:    calculator.SaleAmount(p.WeightMg, rate, p.MakingCharges),
		Mode:           mode,
		SoldAt:         soldAt.UTC(),
	}, nil
}
