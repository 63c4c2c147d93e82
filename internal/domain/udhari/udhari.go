// Package udhari keeps the shop's interest-free running credit with customers.
package udhari

import (
	"context"
	"fmt"
	"strings"
	"time"

	"pawn-ledger/internal/pkg/apperrors"
	"pawn-ledger/internal/pkg/money"

	"github.com/jackc/pgx/v5"
)

type Kind string

const (
	KindGiven    Kind = "GIVEN"
	KindReceived Kind = "RECEIVED"
)

const (
	DefaultTransactionLimit = 50
	MaxTransactionLimit     = 500
)

func ParseKind(s string) (Kind, error) {
	switch k := Kind(strings.ToUpper(strings.TrimSpace(s))); k {
	case KindGiven, KindReceived:
		return k, nil
	}
	return "", apperrors.NewValidationError("kind", fmt.Sprintf("unknown udhari kind %q, expected GIVEN or RECEIVED", s))
}

// Account holds what the customer currently owes the shop.
type Account struct {
	CustomerID         int64       `json:"customerId"`
	OutstandingBalance money.Paise `json:"outstandingBalance"`
	UpdatedAt          time.Time   `json:"updatedAt"`
}

type Transaction struct {
	ID           int64
	CustomerID   int64
	Kind         Kind
	Amount       money.Paise
	BalanceAfter money.Paise
	Note         string
	TxnDate      time.Time
	CreatedAt    time.Time
}

type TxnParams struct {
	CustomerID int64
	Kind       Kind
	Amount     money.Paise
	Note       string
	TxnDate    time.Time
}

type Summary struct {
	Accounts         int         `json:"accounts"`
	TotalOutstanding money.Paise `json:"totalOutstanding"`
}

// Apply moves the account balance by one transaction. RECEIVED may not
// exceed what is owed.
func (a *Account) Apply(kind Kind, amount money.Paise) error {
	if amount <= 0 {
		return fmt.Errorf("%w: amount must be greater than zero", apperrors.ErrInvalidPaymentAmount)
	}
	switch kind {
	case KindGiven:
		a.OutstandingBalance += amount
	case KindReceived:
		if amount > a.OutstandingBalance {
			return fmt.Errorf("%w: received %s exceeds outstanding udhari %s",
				apperrors.ErrInvalidPaymentAmount, amount, a.OutstandingBalance)
		}
		a.OutstandingBalance -= amount
	default:
		return apperrors.NewValidationError("kind", fmt.Sprintf("unknown udhari kind %q", kind))
	}
	return nil
}

type Repository interface {
	// GetOrCreateAccountForUpdate locks the customer's account row, creating it with a zero balance if needed.
	GetOrCreateAccountForUpdate(ctx context.Context, tx pgx.Tx, customerID int64) (*Account, error)

	UpdateAccountInTx(ctx context.Context, tx pgx.Tx, account *Account) error

	InsertTransactionInTx(ctx context.Context, tx pgx.Tx, txn *Transaction) error

	GetAccount(ctx context.Context, customerID int64) (*Account, error)

	ListTransactions(ctx context.Context, customerID int64, limit int) ([]Transaction, error)

	ListOutstanding(ctx context.Context) ([]Account, error)

	Summary(ctx context.Context) (*Summary, error)

	BeginTx(ctx context.Context) (pgx.Tx, error)

	CommitTx(ctx context.Context, tx pgx.Tx) error

	RollbackTx(ctx context.Context, tx pgx.Tx) error
}
