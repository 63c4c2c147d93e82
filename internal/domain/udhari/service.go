package udhari

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"pawn-ledger/internal/domain/customer"
	"pawn-ledger/internal/event"
	"pawn-ledger/internal/infrastructure/monitoring"
	"pawn-ledger/internal/pkg/apperrors"
	"pawn-ledger/internal/pkg/calculator"
)

type Service interface {
	RecordTransaction(ctx context.Context, params TxnParams) (*Transaction, error)
	GetAccount(ctx context.Context, customerID int64) (*Account, error)
	ListTransactions(ctx context.Context, customerID int64, limit int) ([]Transaction, error)
	ListOutstanding(ctx context.Context) ([]Account, error)
	Summary(ctx context.Context) (*Summary, error)
}

type service struct {
	repo      Repository
	customers customer.CustomerService
	pub       event.EventPublisher
	logger    *slog.Logger
	now       func() time.Time
}

var _ Service = (*service)(nil)

func NewService(repo Repository, customers customer.CustomerService, pub event.EventPublisher, logger *slog.Logger) Service {
	if pub == nil {
		pub = event.NewNopPublisher(logger)
	}
	return &service{
		repo:      repo,
		customers: customers,
		pub:       pub,
		logger:    logger.With("component", "udhariService"),
		now:       time.Now,
	}
}

func (s *service) RecordTransaction(ctx context.Context, params TxnParams) (txn *Transaction, err error) {
	logCtx := s.logger.With(
		slog.Int64("customerID", params.CustomerID),
		slog.String("kind", string(params.Kind)),
		slog.String("amount", params.Amount.String()))

	if params.Amount <= 0 {
		return nil, fmt.Errorf("%w: amount must be greater than zero", apperrors.ErrInvalidPaymentAmount)
	}
	if params.Kind != KindGiven && params.Kind != KindReceived {
		return nil, apperrors.NewValidationError("kind", "kind must be GIVEN or RECEIVED")
	}

	cust, err := s.customers.GetCustomer(ctx, params.CustomerID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, fmt.Errorf("%w: customer %d not found", apperrors.ErrValidation, params.CustomerID)
		}
		return nil, fmt.Errorf("failed to verify customer: %w", err)
	}
	if params.Kind == KindGiven && !cust.Active {
		logCtx.WarnContext(ctx, "Attempted to give udhari to inactive customer")
		return nil, fmt.Errorf("%w: customer %d is not active", apperrors.ErrValidation, params.CustomerID)
	}

	txnDate := params.TxnDate
	if txnDate.IsZero() {
		txnDate = s.now()
	}

	tx, err := s.repo.BeginTx(ctx)
	if err != nil {
		logCtx.ErrorContext(ctx, "Failed to begin transaction", slog.Any("error", err))
		return nil, fmt.Errorf("%w: could not begin transaction: %v", apperrors.ErrInternalServer, err)
	}
	defer func() {
		if p := recover(); p != nil {
			_ = s.repo.RollbackTx(ctx, tx)
			panic(p)
		} else if err != nil {
			logCtx.WarnContext(ctx, "Rolling back udhari transaction", slog.Any("error", err))
			_ = s.repo.RollbackTx(ctx, tx)
		}
	}()

	account, err := s.repo.GetOrCreateAccountForUpdate(ctx, tx, params.CustomerID)
	if err != nil {
		return nil, fmt.Errorf("%w: could not lock udhari account: %v", apperrors.ErrInternalServer, err)
	}
	if err = account.Apply(params.Kind, params.Amount); err != nil {
		return nil, err
	}

	txn = &Transaction{
		CustomerID:   params.CustomerID,
		Kind:         params.Kind,
		Amount:       params.Amount,
		BalanceAfter: account.OutstandingBalance,
		Note:         strings.TrimSpace(params.Note),
		TxnDate:      calculator.DateOf(txnDate),
	}
	if err = s.repo.InsertTransactionInTx(ctx, tx, txn); err != nil {
		return nil, fmt.Errorf("%w: could not store udhari transaction: %v", apperrors.ErrInternalServer, err)
	}
	if err = s.repo.UpdateAccountInTx(ctx, tx, account); err != nil {
		return nil, fmt.Errorf("%w: could not update udhari account: %v", apperrors.ErrInternalServer, err)
	}
	if err = s.repo.CommitTx(ctx, tx); err != nil {
		return nil, fmt.Errorf("%w: could not commit udhari transaction: %v", apperrors.ErrInternalServer, err)
	}
	monitoring.RecordUdhariEntry(string(params.Kind))

	if pubErr := s.pub.PublishUdhariRecorded(ctx, event.UdhariPayload{
		TransactionID: txn.ID,
		CustomerID:    txn.CustomerID,
		Kind:          string(txn.Kind),
		Amount:        int64(txn.Amount),
		BalanceAfter:  int64(txn.BalanceAfter),
		TxnDate:       txn.TxnDate,
	}); pubErr != nil {
		logCtx.ErrorContext(ctx, "Udhari recorded, but FAILED to publish event", slog.Any("error", pubErr))
	}

	logCtx.InfoContext(ctx, "Udhari transaction recorded", slog.String("balanceAfter", txn.BalanceAfter.String()))
	return txn, nil
}

func (s *service) GetAccount(ctx context.Context, customerID int64) (*Account, error) {
	if _, err := s.customers.GetCustomer(ctx, customerID); err != nil {
		return nil, err
	}
	account, err := s.repo.GetAccount(ctx, customerID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return &Account{CustomerID: customerID}, nil
		}
		s.logger.ErrorContext(ctx, "Failed to get udhari account", slog.Int64("customerID", customerID), slog.Any("error", err))
		return nil, fmt.Errorf("failed to get udhari account for customer %d: %w", customerID, err)
	}
	return account, nil
}

func (s *service) ListTransactions(ctx context.Context, customerID int64, limit int) ([]Transaction, error) {
	switch {
	case limit <= 0:
		limit = DefaultTransactionLimit
	case limit > MaxTransactionLimit:
		limit = MaxTransactionLimit
	}
	txns, err := s.repo.ListTransactions(ctx, customerID, limit)
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to list udhari transactions", slog.Int64("customerID", customerID), slog.Any("error", err))
		return nil, fmt.Errorf("failed to list udhari transactions: %w", err)
	}
	return txns, nil
}

func (s *service) ListOutstanding(ctx context.Context) ([]Account, error) {
	accounts, err := s.repo.ListOutstanding(ctx)
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to list outstanding udhari", slog.Any("error", err))
		return nil, fmt.Errorf("failed to list outstanding udhari: %w", err)
	}
	return accounts, nil
}

func (s *service) Summary(ctx context.Context) (*Summary, error) {
	sum, err := s.repo.Summary(ctx)
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to summarise udhari", slog.Any("error", err))
		return nil, fmt.Errorf("failed to summarise udhari: %w", err)
	}
	return sum, nil
}
