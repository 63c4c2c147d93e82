package customer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"pawn-ledger/internal/event"
	"pawn-ledger/internal/pkg/apperrors"
)

const customerNotFound = "Customer not found by repository"

type CustomerService interface {
	CreateNewCustomer(ctx context.Context, params NewCustomerParams) (*Customer, error)
	GetCustomer(ctx context.Context, customerID int64) (*Customer, error)
	ListCustomers(ctx context.Context, filter ListFilter) ([]*Customer, error)
	UpdateCustomerDetails(ctx context.Context, customerID int64, params UpdateCustomerParams) (*Customer, error)
	UpdateDelinquency(ctx context.Context, customerID int64, isDelinquent bool) error
	DeactivateCustomer(ctx context.Context, customerID int64) error
	ReactivateCustomer(ctx context.Context, customerID int64) error
	ClearResolvedDelinquencies(ctx context.Context) (int, error)
}

var _ CustomerService = (*customerService)(nil)

type customerService struct {
	repo   CustomerRepository
	pub    event.EventPublisher
	logger *slog.Logger
}

func NewCustomerService(repo CustomerRepository, publisher event.EventPublisher, logger *slog.Logger) CustomerService {
	if repo == nil {
		panic("customer repository cannot be nil")
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
		logger.Warn("Warning: No logger provided to NewCustomerService, using default stderr handler")
	}
	if publisher == nil {
		publisher = event.NewNopPublisher(logger)
	}

	return &customerService{
		repo:   repo,
		pub:    publisher,
		logger: logger.With(slog.String("component", "customerService")),
	}
}

func NewCustomerEventPayload(cust *Customer) event.CustomerPayload {
	if cust == nil {
		return event.CustomerPayload{}
	}
	return event.CustomerPayload{
		CustomerID:   cust.ID,
		Name:         cust.Name,
		Phone:        cust.Phone,
		IsDelinquent: cust.IsDelinquent,
		Active:       cust.Active,
		UpdatedAt:    cust.UpdatedAt,
	}
}

func (s *customerService) publishUpdated(ctx context.Context, customerID int64) {
	logCtx := s.logger.With(slog.Int64("customerID", customerID))
	cust, err := s.repo.FindByID(ctx, customerID)
	if err != nil {
		logCtx.ErrorContext(ctx, "Customer changed, but FAILED to re-fetch it for event publishing", slog.Any("error", err))
		return
	}
	if err := s.pub.PublishCustomerUpdated(ctx, NewCustomerEventPayload(cust)); err != nil {
		logCtx.ErrorContext(ctx, "Failed to publish customer update event", slog.Any("error", err))
	}
}

func (s *customerService) CreateNewCustomer(ctx context.Context, params NewCustomerParams) (*Customer, error) {
	s.logger.InfoContext(ctx, "Attempting to create new customer")

	cust, err := NewCustomer(params)
	if err != nil {
		s.logger.WarnContext(ctx, "Validation failed for new customer", slog.Any("error", err))
		return nil, err
	}

	if err := s.repo.Save(ctx, cust); err != nil {
		if errors.Is(err, apperrors.ErrAlreadyExists) {
			s.logger.WarnContext(ctx, "Customer with this phone already exists", slog.String("phone", cust.Phone))
			return nil, fmt.Errorf("%w: phone %s is already registered", apperrors.ErrAlreadyExists, cust.Phone)
		}
		s.logger.ErrorContext(ctx, "Repository failed to save new customer", slog.Any("error", err))
		return nil, fmt.Errorf("failed to save new customer: %w", err)
	}

	logCtx := s.logger.With(slog.Int64("customerID", cust.ID))
	if pubErr := s.pub.PublishCustomerCreated(ctx, NewCustomerEventPayload(cust)); pubErr != nil {
		logCtx.ErrorContext(ctx, "Customer created, but FAILED to publish creation event", slog.Any("error", pubErr))
	}
	logCtx.InfoContext(ctx, "Successfully created new customer")
	return cust, nil
}

func (s *customerService) GetCustomer(ctx context.Context, customerID int64) (*Customer, error) {
	cust, err := s.repo.FindByID(ctx, customerID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			s.logger.WarnContext(ctx, customerNotFound, slog.Int64("customerID", customerID))
			return nil, ErrNotFound
		}
		s.logger.ErrorContext(ctx, "Repository error finding customer", slog.Any("error", err))
		return nil, fmt.Errorf("failed to get customer %d: %w", customerID, err)
	}
	return cust, nil
}

func (s *customerService) ListCustomers(ctx context.Context, filter ListFilter) ([]*Customer, error) {
	s.logger.InfoContext(ctx, "Listing customers", slog.String("query", filter.Query), slog.Bool("activeOnly", filter.ActiveOnly))

	customers, err := s.repo.FindAll(ctx, filter)
	if err != nil {
		s.logger.ErrorContext(ctx, "Repository error listing customers", slog.Any("error", err))
		return nil, fmt.Errorf("failed to list customers: %w", err)
	}
	return customers, nil
}

func (s *customerService) UpdateCustomerDetails(ctx context.Context, customerID int64, params UpdateCustomerParams) (*Customer, error) {
	logCtx := s.logger.With(slog.Int64("customerID", customerID))
	logCtx.InfoContext(ctx, "Attempting to update customer details")

	cust, err := s.GetCustomer(ctx, customerID)
	if err != nil {
		return nil, err
	}

	changed, err := cust.Apply(params)
	if err != nil {
		logCtx.WarnContext(ctx, "Validation failed for customer update", slog.Any("error", err))
		return nil, err
	}
	if !changed {
		logCtx.InfoContext(ctx, "No customer change needed, skipping save")
		return cust, nil
	}

	if err := s.repo.Save(ctx, cust); err != nil {
		switch {
		case errors.Is(err, apperrors.ErrAlreadyExists):
			logCtx.WarnContext(ctx, "Phone already registered to another customer")
			return nil, fmt.Errorf("%w: phone %s is already registered", apperrors.ErrAlreadyExists, cust.Phone)
		case errors.Is(err, apperrors.ErrNotFound):
			logCtx.ErrorContext(ctx, "Customer disappeared before save completed")
			return nil, ErrNotFound
		}
		logCtx.ErrorContext(ctx, "Repository failed to save customer update", slog.Any("error", err))
		return nil, fmt.Errorf("failed to update customer %d: %w", customerID, err)
	}

	if pubErr := s.pub.PublishCustomerUpdated(ctx, NewCustomerEventPayload(cust)); pubErr != nil {
		logCtx.ErrorContext(ctx, "Failed to publish customer update event", slog.Any("error", pubErr))
	}
	logCtx.InfoContext(ctx, "Successfully updated customer details")
	return cust, nil
}

func (s *customerService) UpdateDelinquency(ctx context.Context, customerID int64, isDelinquent bool) error {
	logCtx := s.logger.With(slog.Int64("customerID", customerID), slog.Bool("isDelinquent", isDelinquent))

	if err := s.repo.SetDelinquencyStatus(ctx, customerID, isDelinquent); err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			logCtx.WarnContext(ctx, customerNotFound)
			return ErrNotFound
		}
		logCtx.ErrorContext(ctx, "Repository error updating delinquency status", slog.Any("error", err))
		return fmt.Errorf("failed to update delinquency for customer %d: %w", customerID, err)
	}

	s.publishUpdated(ctx, customerID)
	logCtx.InfoContext(ctx, "Successfully updated customer delinquency status")
	return nil
}

func (s *customerService) DeactivateCustomer(ctx context.Context, customerID int64) error {
	logCtx := s.logger.With(slog.Int64("customerID", customerID))
	logCtx.InfoContext(ctx, "Attempting to deactivate customer")

	if _, err := s.GetCustomer(ctx, customerID); err != nil {
		return err
	}

	open, err := s.repo.HasOpenObligations(ctx, customerID)
	if err != nil {
		logCtx.ErrorContext(ctx, "Repository error checking open obligations", slog.Any("error", err))
		return fmt.Errorf("failed to check obligations for customer %d: %w", customerID, err)
	}
	if open {
		logCtx.WarnContext(ctx, "Business rule failed: customer still has an open loan or udhari balance")
		return ErrCannotDeactivateActiveLoan
	}

	return s.setActive(ctx, customerID, false)
}

func (s *customerService) ReactivateCustomer(ctx context.Context, customerID int64) error {
	s.logger.InfoContext(ctx, "Attempting to reactivate customer", slog.Int64("customerID", customerID))
	return s.setActive(ctx, customerID, true)
}

func (s *customerService) setActive(ctx context.Context, customerID int64, active bool) error {
	logCtx := s.logger.With(slog.Int64("customerID", customerID), slog.Bool("isActive", active))

	if err := s.repo.SetActiveStatus(ctx, customerID, active); err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			logCtx.WarnContext(ctx, customerNotFound)
			return ErrNotFound
		}
		logCtx.ErrorContext(ctx, "Repository error updating active status", slog.Any("error", err))
		return fmt.Errorf("failed to set active=%t for customer %d: %w", active, customerID, err)
	}

	s.publishUpdated(ctx, customerID)
	logCtx.InfoContext(ctx, "Successfully updated customer active status")
	return nil
}

func (s *customerService) ClearResolvedDelinquencies(ctx context.Context) (int, error) {
	ids, err := s.repo.ClearResolvedDelinquencies(ctx)
	if err != nil {
		s.logger.ErrorContext(ctx, "Repository error clearing resolved delinquencies", slog.Any("error", err))
		return 0, fmt.Errorf("failed to clear resolved delinquencies: %w", err)
	}
	for _, id := range ids {
		s.publishUpdated(ctx, id)
	}
	if len(ids) > 0 {
		s.logger.InfoContext(ctx, "Cleared delinquency flag for customers without overdue loans", slog.Int("count", len(ids)))
	}
	return len(ids), nil
}
