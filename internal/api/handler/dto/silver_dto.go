package dto

import (
	"time"

	"pawn-ledger/internal/domain/loan"
	"pawn-ledger/internal/domain/silver"
	"pawn-ledger/internal/pkg/apperrors"
)

// SilverSaleRequest with no ratePerGram sells at the current silver price.
type SilverSaleRequest struct {
	CustomerID    *int64 `json:"customerId,omitempty"`
	Description   string `json:"description"`
	Weight        string `json:"weight"`
	Purity        int    `json:"purity"`
	RatePerGram   string `json:"ratePerGram,omitempty"`
	MakingCharges string `json:"makingCharges,omitempty"`
	Mode          string `json:"mode,omitempty"`
	SoldAt        string `json:"soldAt,omitempty"`
}

func (r *SilverSaleRequest) ToParams() (silver.SaleParams, error) {
	if r.CustomerID != nil && *r.CustomerID <= 0 {
		return silver.SaleParams{}, apperrors.NewValidationError("customerId", "customerId must be a positive number")
	}
	weight, err := parseWeight("weight", r.Weight)
	if err != nil {
		return silver.SaleParams{}, err
	}
	rate, err := parseOptionalAmount("ratePerGram", r.RatePerGram)
	if err != nil {
		return silver.SaleParams{}, err
	}
	making, err := parseOptionalAmount("makingCharges", r.MakingCharges)
	if err != nil {
		return silver.SaleParams{}, err
	}
	mode, err := loan.ParsePaymentMode(r.Mode)
	if err != nil {
		return silver.SaleParams{}, err
	}
	soldAt, err := ParseDate("soldAt", r.SoldAt)
	if err != nil {
		return silver.SaleParams{}, err
	}
	return silver.SaleParams{
		CustomerID:     r.CustomerID,
		Description:    r.Description,
		WeightMg:       weight,
		PurityPermille: r.Purity,
		RatePerGram:    rate,
		MakingCharges:  making,
		Mode:           mode,
		SoldAt:         soldAt,
	}, nil
}

type SilverSaleResponse struct {
	ID            int64     `json:"id"`
	ReceiptNumber string    `json:"receiptNumber"`
	CustomerID    *int64    `json:"customerId,omitempty"`
	Description   string    `json:"description,omitempty"`
	Weight        string    `json:"weight"`
	Purity        int       `json:"purity"`
	RatePerGram   string    `json:"ratePerGram"`
	MakingCharges string    `json:"makingCharges"`
	TotalAmount   string    `json:"totalAmount"`
	Mode          string    `json:"mode"`
	SoldAt        time.Time `json:"soldAt"`
	CreatedAt     time.Time `json:"createdAt"`
}

func NewSilverSaleResponse(s *silver.Sale) SilverSaleResponse {
	return SilverSaleResponse{
		ID:            s.ID,
		ReceiptNumber: s.ReceiptNumber,
		CustomerID:    s.CustomerID,
		Description:   s.Description,
		Weight:        s.WeightMg.String(),
		Purity:        s.PurityPermille,
		RatePerGram:   s.RatePerGram.String(),
		MakingCharges: s.MakingCharges.String(),
		TotalAmount:   s.TotalAmount.String(),
		Mode:          string(s.Mode),
		SoldAt:        s.SoldAt,
		CreatedAt:     s.CreatedAt,
	}
}

func NewSilverSaleListResponse(sales []*silver.Sale) []SilverSaleResponse {
	resp := make([]SilverSaleResponse, 0, len(sales))
	for _, s := range sales {
		resp = append(resp, NewSilverSaleResponse(s))
	}
	return resp
}
