package batch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	customermocks "pawn-ledger/internal/domain/customer/mocks"
	loanmocks "pawn-ledger/internal/domain/loan/mocks"
	"pawn-ledger/internal/infrastructure/monitoring"
	"pawn-ledger/internal/pkg/apperrors"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockLoanLister struct {
	mock.Mock
}

func (m *mockLoanLister) GetAllActiveLoanIDs(ctx context.Context) ([]int64, error) {
	args := m.Called(ctx)
	if ids, ok := args.Get(0).([]int64); ok {
		return ids, args.Error(1)
	}
	return nil, args.Error(1)
}

var testLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

var runAt = time.Date(2024, 9, 10, 2, 0, 0, 0, time.UTC)

func newTestJob(concurrency int) (*OverdueLoanJob, *mockLoanLister, *loanmocks.MockLoanService, *customermocks.MockCustomerService) {
	lister := new(mockLoanLister)
	loans := new(loanmocks.MockLoanService)
	customers := new(customermocks.MockCustomerService)
	job := NewOverdueLoanJob(lister, loans, customers, concurrency, testLogger)
	job.now = func() time.Time { return runAt }
	return job, lister, loans, customers
}

func TestNewOverdueLoanJob_PanicsOnNilDependencies(t *testing.T) {
	assert.Panics(t, func() {
		NewOverdueLoanJob(nil, new(loanmocks.MockLoanService), new(customermocks.MockCustomerService), 1, testLogger)
	})
}

func TestOverdueLoanJob_Run(t *testing.T) {
	ctx := context.Background()

	t.Run("marks qualifying loans and clears resolved customers", func(t *testing.T) {
		job, lister, loans, customers := newTestJob(2)
		before := testutil.ToFloat64(monitoring.Business.LoansMarkedOverdueTotal)

		lister.On("GetAllActiveLoanIDs", ctx).Return([]int64{1, 2, 3}, nil).Once()
		loans.On("MarkOverdueLoan", ctx, int64(1), runAt).Return(true, nil).Once()
		loans.On("MarkOverdueLoan", ctx, int64(2), runAt).Return(false, nil).Once()
		loans.On("MarkOverdueLoan", ctx, int64(3), runAt).Return(true, nil).Once()
		customers.On("ClearResolvedDelinquencies", ctx).Return(1, nil).Once()

		require.NoError(t, job.Run(ctx))
		assert.Equal(t, before+2, testutil.ToFloat64(monitoring.Business.LoansMarkedOverdueTotal))
		lister.AssertExpectations(t)
		loans.AssertExpectations(t)
		customers.AssertExpectations(t)
	})

	t.Run("no active loans still clears delinquencies", func(t *testing.T) {
		job, lister, loans, customers := newTestJob(0)

		lister.On("GetAllActiveLoanIDs", ctx).Return([]int64{}, nil).Once()
		customers.On("ClearResolvedDelinquencies", ctx).Return(0, nil).Once()

		require.NoError(t, job.Run(ctx))
		assert.Equal(t, defaultConcurrency, job.concurrency)
		loans.AssertNotCalled(t, "MarkOverdueLoan", mock.Anything, mock.Anything, mock.Anything)
		customers.AssertExpectations(t)
	})

	t.Run("listing failure aborts", func(t *testing.T) {
		job, lister, _, customers := newTestJob(1)

		lister.On("GetAllActiveLoanIDs", ctx).Return(nil, errors.New("db down")).Once()

		err := job.Run(ctx)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to get active loans")
		customers.AssertNotCalled(t, "ClearResolvedDelinquencies", mock.Anything)
	})

	t.Run("per-loan failures are counted", func(t *testing.T) {
		job, lister, loans, customers := newTestJob(3)

		lister.On("GetAllActiveLoanIDs", ctx).Return([]int64{1, 2, 3}, nil).Once()
		loans.On("MarkOverdueLoan", ctx, int64(1), runAt).Return(false, fmt.Errorf("%w: gone", apperrors.ErrNotFound)).Once()
		loans.On("MarkOverdueLoan", ctx, int64(2), runAt).Return(false, errors.New("timeout")).Once()
		loans.On("MarkOverdueLoan", ctx, int64(3), runAt).Return(true, errors.New("flag failed")).Once()
		customers.On("ClearResolvedDelinquencies", ctx).Return(0, errors.New("db down")).Once()

		err := job.Run(ctx)
		require.Error(t, err)
		assert.Equal(t, "job completed with 3 errors", err.Error())
		loans.AssertExpectations(t)
	})
}
