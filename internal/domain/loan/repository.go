package loan

import (
	"context"

	"github.com/jackc/pgx/v5"
)

type Repository interface {
	// CreateLoan stores the loan and its pledged items in one transaction.
	CreateLoan(ctx context.Context, loan *Loan) error

	GetLoanByID(ctx context.Context, loanID int64) (*Loan, error)

	ListLoans(ctx context.Context, filter ListFilter) ([]*Loan, error)

	GetLoanForUpdate(ctx context.Context, tx pgx.Tx, loanID int64) (*Loan, error)

	UpdateLoanInTx(ctx context.Context, tx pgx.Tx, loan *Loan) error

	InsertPaymentInTx(ctx context.Context, tx pgx.Tx, payment *InterestPayment) error

	ListPayments(ctx context.Context, loanID int64) ([]InterestPayment, error)

	GetAllActiveLoanIDs(ctx context.Context) ([]int64, error)

	// MarkOverdue flips an ACTIVE loan to OVERDUE; false when it was not ACTIVE.
	MarkOverdue(ctx context.Context, loanID int64) (bool, error)

	BeginTx(ctx context.Context) (pgx.Tx, error)

	CommitTx(ctx context.Context, tx pgx.Tx) error

	RollbackTx(ctx context.Context, tx pgx.Tx) error
}
