package loan

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"pawn-ledger/internal/domain/customer"
	"pawn-ledger/internal/domain/pricing"
	"pawn-ledger/internal/event"
	"pawn-ledger/internal/infrastructure/monitoring"
	"pawn-ledger/internal/pkg/apperrors"
)

type LoanService interface {
	CreateLoan(ctx context.Context, params CreateLoanParams) (*Loan, error)

	GetLoan(ctx context.Context, loanID int64) (*Loan, error)

	ListLoans(ctx context.Context, filter ListFilter) ([]*Loan, error)

	GetStatement(ctx context.Context, loanID int64, asOf time.Time) (*Statement, error)

	RecordPayment(ctx context.Context, params PaymentParams) (*InterestPayment, error)

	CloseLoan(ctx context.Context, params CloseParams) (*InterestPayment, error)

	ListPayments(ctx context.Context, loanID int64) ([]InterestPayment, error)

	// MarkOverdueLoan moves loanID to OVERDUE when it qualifies as of asOf.
	MarkOverdueLoan(ctx context.Context, loanID int64, asOf time.Time) (bool, error)
}

type loanServiceImpl struct {
	repo            Repository
	customerService customer.CustomerService
	pricing         pricing.Service
	pub             event.EventPublisher
	terms           Terms
	logger          *slog.Logger
	now             func() time.Time
}

var _ LoanService = (*loanServiceImpl)(nil)

func NewLoanService(r Repository, cs customer.CustomerService, ps pricing.Service, pub event.EventPublisher, terms Terms, logger *slog.Logger) LoanService {
	if pub == nil {
		pub = event.NewNopPublisher(logger)
	}
	return &loanServiceImpl{
		repo:            r,
		customerService: cs,
		pricing:         ps,
		pub:             pub,
		terms:           terms,
		logger:          logger.With("component", "loanService"),
		now:             time.Now,
	}
}

func newLoanPayload(l *Loan) event.LoanPayload {
	return event.LoanPayload{
		LoanID:             l.ID,
		LoanNumber:         l.LoanNumber,
		CustomerID:         l.CustomerID,
		Metal:              string(l.Metal),
		PrincipalAmount:    int64(l.PrincipalAmount),
		OutstandingBalance: int64(l.OutstandingBalance),
		InterestRateBps:    l.InterestRateBps,
		DueDate:            l.DueDate,
		Status:             string(l.Status),
	}
}

func (s *loanServiceImpl) CreateLoan(ctx context.Context, params CreateLoanParams) (*Loan, error) {
	logCtx := s.logger.With(slog.Int64("customerID", params.CustomerID), slog.String("metal", string(params.Metal)))
	logCtx.InfoContext(ctx, "Creating new loan")

	cust, err := s.customerService.GetCustomer(ctx, params.CustomerID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			logCtx.WarnContext(ctx, "Customer not found")
			return nil, fmt.Errorf("%w: customer %d not found", apperrors.ErrValidation, params.CustomerID)
		}
		logCtx.ErrorContext(ctx, "Failed to get customer details from customer service", slog.Any("error", err))
		return nil, fmt.Errorf("failed to verify customer status: %w", err)
	}
	if !cust.Active {
		logCtx.WarnContext(ctx, "Attempted to create loan for inactive customer")
		return nil, fmt.Errorf("%w: customer %d is not active", apperrors.ErrValidation, params.CustomerID)
	}
	if !params.Metal.Valid() {
		return nil, apperrors.NewValidationError("metal", "metal must be GOLD or SILVER")
	}

	price, err := s.pricing.CurrentPrice(ctx, params.Metal)
	if err != nil {
		logCtx.ErrorContext(ctx, "Failed to get current metal price", slog.Any("error", err))
		return nil, fmt.Errorf("failed to price collateral: %w", err)
	}

	newLoan, err := NewLoan(params, s.terms, price.PricePerGram, s.now())
	if err != nil {
		logCtx.WarnContext(ctx, "Loan validation failed", slog.Any("error", err))
		return nil, err
	}

	if err := s.repo.CreateLoan(ctx, newLoan); err != nil {
		logCtx.ErrorContext(ctx, "Failed to save loan and pledged items", slog.Any("error", err))
		return nil, fmt.Errorf("failed to save loan: %w", err)
	}
	monitoring.RecordLoanCreated(string(newLoan.Metal))

	if pubErr := s.pub.PublishLoanCreated(ctx, newLoanPayload(newLoan)); pubErr != nil {
		logCtx.ErrorContext(ctx, "Loan created, but FAILED to publish creation event", slog.Any("error", pubErr))
	}
	logCtx.InfoContext(ctx, "Loan created successfully", slog.Int64("loanID", newLoan.ID), slog.String("loanNumber", newLoan.LoanNumber))
	return newLoan, nil
}

func (s *loanServiceImpl) GetLoan(ctx context.Context, loanID int64) (*Loan, error) {
	l, err := s.repo.GetLoanByID(ctx, loanID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, fmt.Errorf("%w: loan with ID %d not found", apperrors.ErrNotFound, loanID)
		}
		s.logger.ErrorContext(ctx, "Failed to get loan", slog.Int64("loanID", loanID), slog.Any("error", err))
		return nil, fmt.Errorf("failed to get loan %d: %w", loanID, err)
	}
	return l, nil
}

func (s *loanServiceImpl) ListLoans(ctx context.Context, filter ListFilter) ([]*Loan, error) {
	loans, err := s.repo.ListLoans(ctx, filter)
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to list loans", slog.Any("error", err))
		return nil, fmt.Errorf("failed to list loans: %w", err)
	}
	return loans, nil
}

func (s *loanServiceImpl) GetStatement(ctx context.Context, loanID int64, asOf time.Time) (*Statement, error) {
	l, err := s.GetLoan(ctx, loanID)
	if err != nil {
		return nil, err
	}
	if asOf.IsZero() {
		asOf = s.now()
	}
	st := l.Statement(asOf)
	return &st, nil
}

func (s *loanServiceImpl) RecordPayment(ctx context.Context, params PaymentParams) (*InterestPayment, error) {
	return s.pay(ctx, params, false)
}

func (s *loanServiceImpl) CloseLoan(ctx context.Context, params CloseParams) (*InterestPayment, error) {
	return s.pay(ctx, PaymentParams(params), true)
}

func (s *loanServiceImpl) pay(ctx context.Context, params PaymentParams, mustClose bool) (payment *InterestPayment, err error) {
	logCtx := s.logger.With(slog.Int64("loanID", params.LoanID), slog.String("amount", params.Amount.String()))
	logCtx.InfoContext(ctx, "Recording loan payment", slog.Bool("closing", mustClose))

	if params.Amount <= 0 {
		monitoring.RecordPayment("failure_amount")
		return nil, fmt.Errorf("%w: amount must be greater than zero", apperrors.ErrInvalidPaymentAmount)
	}
	if params.Mode == "" {
		params.Mode = ModeCash
	}
	if params.PaidOn.IsZero() {
		params.PaidOn = s.now()
	}

	tx, err := s.repo.BeginTx(ctx)
	if err != nil {
		logCtx.ErrorContext(ctx, "Failed to begin transaction", slog.Any("error", err))
		return nil, fmt.Errorf("%w: could not begin transaction: %v", apperrors.ErrInternalServer, err)
	}

	defer func() {
		status := "success"
		switch {
		case err == nil:
		case errors.Is(err, apperrors.ErrInvalidPaymentAmount):
			status = "failure_amount"
		case errors.Is(err, apperrors.ErrLoanClosed):
			status = "failure_closed"
		case errors.Is(err, apperrors.ErrNotFound):
			status = "failure_not_found"
		default:
			status = "failure_internal"
		}
		monitoring.RecordPayment(status)

		if p := recover(); p != nil {
			logCtx.ErrorContext(ctx, "Panic occurred during payment processing", slog.Any("panic", p))
			_ = s.repo.RollbackTx(ctx, tx)
			panic(p)
		} else if err != nil {
			logCtx.WarnContext(ctx, "Rolling back payment transaction", slog.Any("error", err))
			_ = s.repo.RollbackTx(ctx, tx)
		}
	}()

	l, err := s.repo.GetLoanForUpdate(ctx, tx, params.LoanID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, fmt.Errorf("%w: cannot make payment, loan ID %d not found", apperrors.ErrNotFound, params.LoanID)
		}
		return nil, fmt.Errorf("%w: could not lock loan: %v", apperrors.ErrInternalServer, err)
	}

	if mustClose && l.Status != StatusClosed {
		st := l.Statement(params.PaidOn)
		if params.Amount != st.TotalPayable {
			return nil, fmt.Errorf("%w: closing amount %s must equal total payable %s",
				apperrors.ErrInvalidPaymentAmount, params.Amount, st.TotalPayable)
		}
	}

	payment, err = l.ApplyPayment(params.Amount, params.PaidOn)
	if err != nil {
		return nil, err
	}
	payment.ReceiptNumber = NewReceiptNumber()
	payment.Mode = params.Mode
	payment.Note = strings.TrimSpace(params.Note)

	if err = s.repo.InsertPaymentInTx(ctx, tx, payment); err != nil {
		return nil, fmt.Errorf("%w: could not store payment: %v", apperrors.ErrInternalServer, err)
	}
	if err = s.repo.UpdateLoanInTx(ctx, tx, l); err != nil {
		return nil, fmt.Errorf("%w: could not update loan: %v", apperrors.ErrInternalServer, err)
	}
	if err = s.repo.CommitTx(ctx, tx); err != nil {
		return nil, fmt.Errorf("%w: could not commit payment: %v", apperrors.ErrInternalServer, err)
	}

	closed := l.Status == StatusClosed
	if pubErr := s.pub.PublishLoanPayment(ctx, event.LoanPaymentPayload{
		LoanID:           l.ID,
		LoanNumber:       l.LoanNumber,
		CustomerID:       l.CustomerID,
		ReceiptNumber:    payment.ReceiptNumber,
		Amount:           int64(payment.Amount),
		InterestPortion:  int64(payment.InterestPortion),
		PrincipalPortion: int64(payment.PrincipalPortion),
		BalanceAfter:     int64(payment.BalanceAfter),
		PaidOn:           payment.PaidOn,
		PaidThrough:      payment.PaidThrough,
		LoanClosed:       closed,
	}); pubErr != nil {
		logCtx.ErrorContext(ctx, "Payment recorded, but FAILED to publish payment event", slog.Any("error", pubErr))
	}
	if closed {
		if pubErr := s.pub.PublishLoanClosed(ctx, newLoanPayload(l)); pubErr != nil {
			logCtx.ErrorContext(ctx, "Loan closed, but FAILED to publish closed event", slog.Any("error", pubErr))
		}
	}

	logCtx.InfoContext(ctx, "Payment recorded",
		slog.String("receipt", payment.ReceiptNumber),
		slog.String("interest", payment.InterestPortion.String()),
		slog.String("principal", payment.PrincipalPortion.String()),
		slog.String("status", string(l.Status)))
	return payment, nil
}

func (s *loanServiceImpl) ListPayments(ctx context.Context, loanID int64) ([]InterestPayment, error) {
	if _, err := s.GetLoan(ctx, loanID); err != nil {
		return nil, err
	}
	payments, err := s.repo.ListPayments(ctx, loanID)
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to list payments", slog.Int64("loanID", loanID), slog.Any("error", err))
		return nil, fmt.Errorf("failed to list payments for loan %d: %w", loanID, err)
	}
	return payments, nil
}

func (s *loanServiceImpl) MarkOverdueLoan(ctx context.Context, loanID int64, asOf time.Time) (bool, error) {
	logCtx := s.logger.With(slog.Int64("loanID", loanID))

	l, err := s.GetLoan(ctx, loanID)
	if err != nil {
		return false, err
	}

	if l.Status != StatusActive || !l.IsOverdue(asOf, s.terms.OverdueGraceMonths) {
		return false, nil
	}

	changed, err := s.repo.MarkOverdue(ctx, loanID)
	if err != nil {
		logCtx.ErrorContext(ctx, "Failed to mark loan overdue", slog.Any("error", err))
		return false, fmt.Errorf("failed to mark loan %d overdue: %w", loanID, err)
	}
	if !changed {
		return false, nil
	}
	l.Status = StatusOverdue

	if err := s.customerService.UpdateDelinquency(ctx, l.CustomerID, true); err != nil {
		logCtx.ErrorContext(ctx, "Loan marked overdue, but failed to flag customer", slog.Any("error", err))
		return true, fmt.Errorf("failed to flag customer %d delinquent: %w", l.CustomerID, err)
	}

	if pubErr := s.pub.PublishLoanOverdue(ctx, event.LoanOverduePayload{
		LoanID:              l.ID,
		LoanNumber:          l.LoanNumber,
		CustomerID:          l.CustomerID,
		DueDate:             l.DueDate,
		InterestPaidThrough: l.InterestPaidThrough,
		OutstandingBalance:  int64(l.OutstandingBalance),
	}); pubErr != nil {
		logCtx.ErrorContext(ctx, "Loan marked overdue, but FAILED to publish overdue event", slog.Any("error", pubErr))
	}

	logCtx.InfoContext(ctx, "Loan marked overdue")
	return true, nil
}
