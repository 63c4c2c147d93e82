package batch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"pawn-ledger/internal/domain/customer"
	"pawn-ledger/internal/domain/loan"
	"pawn-ledger/internal/infrastructure/monitoring"
	"pawn-ledger/internal/pkg/apperrors"
)

const defaultConcurrency = 10

// ActiveLoanLister is the part of loan.Repository the sweep reads from.
type ActiveLoanLister interface {
	GetAllActiveLoanIDs(ctx context.Context) ([]int64, error)
}

type OverdueLoanJob struct {
	loanRepo        ActiveLoanLister
	loanService     loan.LoanService
	customerService customer.CustomerService
	concurrency     int
	logger          *slog.Logger
	now             func() time.Time
}

func NewOverdueLoanJob(
	loanRepo ActiveLoanLister,
	loanSvc loan.LoanService,
	customerSvc customer.CustomerService,
	concurrency int,
	logger *slog.Logger,
) *OverdueLoanJob {
	if loanRepo == nil || loanSvc == nil || customerSvc == nil || logger == nil {
		panic("OverdueLoanJob dependencies cannot be nil")
	}
	if concurrency <= 0 {
		concurrency = defaultConcurrency
	}
	return &OverdueLoanJob{
		loanRepo:        loanRepo,
		loanService:     loanSvc,
		customerService: customerSvc,
		concurrency:     concurrency,
		logger:          logger.With("job", "OverdueLoans"),
		now:             time.Now,
	}
}

func (j *OverdueLoanJob) Run(ctx context.Context) error {
	startTime := time.Now()
	asOf := j.now().UTC()
	j.logger.InfoContext(ctx, "Starting overdue loan sweep.", slog.Time("asOf", asOf))

	activeLoanIDs, err := j.loanRepo.GetAllActiveLoanIDs(ctx)
	if err != nil {
		j.logger.ErrorContext(ctx, "Failed to get active loan IDs, aborting job.", slog.Any("error", err))
		return fmt.Errorf("cannot run job, failed to get active loans: %w", err)
	}
	j.logger.InfoContext(ctx, "Fetched active loan IDs.", slog.Int("count", len(activeLoanIDs)))

	var (
		wg                               sync.WaitGroup
		processed, markedOverdue, failed atomic.Int32
		sem                              = make(chan struct{}, j.concurrency)
	)

	for _, loanID := range activeLoanIDs {
		if ctx.Err() != nil {
			break
		}
		wg.Add(1)
		sem <- struct{}{}
		go func(currentLoanID int64) {
			defer wg.Done()
			defer func() { <-sem }()

			logCtx := j.logger.With(slog.Int64("loanID", currentLoanID))
			changed, markErr := j.loanService.MarkOverdueLoan(ctx, currentLoanID, asOf)
			if markErr != nil {
				if errors.Is(markErr, apperrors.ErrNotFound) && !changed {
					logCtx.WarnContext(ctx, "Loan disappeared before overdue check", slog.Any("error", markErr))
					return
				}
				logCtx.ErrorContext(ctx, "Failed to process loan for overdue", slog.Any("error", markErr))
				failed.Add(1)
			}
			if changed {
				markedOverdue.Add(1)
			}
			processed.Add(1)
		}(loanID)
	}
	wg.Wait()

	monitoring.RecordLoansMarkedOverdue(int(markedOverdue.Load()))

	cleared, clearErr := j.customerService.ClearResolvedDelinquencies(ctx)
	if clearErr != nil {
		j.logger.ErrorContext(ctx, "Failed to clear resolved delinquencies", slog.Any("error", clearErr))
		failed.Add(1)
	}

	summaryLog := j.logger.With(
		slog.Duration("duration", time.Since(startTime)),
		slog.Int("total_active_loans", len(activeLoanIDs)),
		slog.Int("loans_processed", int(processed.Load())),
		slog.Int("loans_marked_overdue", int(markedOverdue.Load())),
		slog.Int("customers_cleared", cleared),
		slog.Int("errors_encountered", int(failed.Load())),
	)

	if n := failed.Load(); n > 0 {
		summaryLog.WarnContext(ctx, "Overdue loan sweep finished with errors.")
		return fmt.Errorf("job completed with %d errors", n)
	}
	if err := ctx.Err(); err != nil {
		summaryLog.WarnContext(ctx, "Overdue loan sweep interrupted.")
		return fmt.Errorf("job interrupted: %w", err)
	}
	summaryLog.InfoContext(ctx, "Overdue loan sweep finished successfully.")
	return nil
}
