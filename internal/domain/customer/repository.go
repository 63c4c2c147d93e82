package customer

import (
	"context"
	"fmt"

	"pawn-ledger/internal/pkg/apperrors"
)

var (
	ErrNotFound = fmt.Errorf("customer %w", apperrors.ErrNotFound)

	ErrCannotDeactivateActiveLoan = fmt.Errorf("%w: customer has an open loan or udhari balance", apperrors.ErrConflict)

	ErrInactive = fmt.Errorf("%w: customer is not active", apperrors.ErrValidation)
)

type CustomerRepository interface {
	Save(ctx context.Context, customer *Customer) error

	FindByID(ctx context.Context, customerID int64) (*Customer, error)

	FindAll(ctx context.Context, filter ListFilter) ([]*Customer, error)

	SetDelinquencyStatus(ctx context.Context, customerID int64, isDelinquent bool) error

	SetActiveStatus(ctx context.Context, customerID int64, isActive bool) error

	// HasOpenObligations reports an ACTIVE/OVERDUE loan or a positive udhari balance.
	HasOpenObligations(ctx context.Context, customerID int64) (bool, error)

	// ClearResolvedDelinquencies un-flags delinquent customers left without an
	// OVERDUE loan and returns their ids.
	ClearResolvedDelinquencies(ctx context.Context) ([]int64, error)
}
