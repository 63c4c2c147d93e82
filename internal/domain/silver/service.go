package silver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"pawn-ledger/internal/domain/customer"
	"pawn-ledger/internal/domain/pricing"
	"pawn-ledger/internal/event"
	"pawn-ledger/internal/infrastructure/monitoring"
	"pawn-ledger/internal/pkg/apperrors"
)

type Service interface {
	RecordSale(ctx context.Context, params SaleParams) (*Sale, error)
	GetSale(ctx context.Context, saleID int64) (*Sale, error)
	ListSales(ctx context.Context, filter ListFilter) ([]*Sale, error)
}

type service struct {
	repo      Repository
	customers customer.CustomerService
	pricing   pricing.Service
	pub       event.EventPublisher
	logger    *slog.Logger
	now       func() time.Time
}

var _ Service = (*service)(nil)

func NewService(repo Repository, customers customer.CustomerService, ps pricing.Service, pub event.EventPublisher, logger *slog.Logger) Service {
	if pub == nil {
		pub = event.NewNopPublisher(logger)
	}
	return &service{
		repo:      repo,
		customers: customers,
		pricing:   ps,
		pub:       pub,
		logger:    logger.With("component", "silverService"),
		now:       time.Now,
	}
}

func (s *service) RecordSale(ctx context.Context, params SaleParams) (*Sale, error) {
	logCtx := s.logger.With(slog.String("weight", params.WeightMg.String()))

	if params.CustomerID != nil {
		if _, err := s.customers.GetCustomer(ctx, *params.CustomerID); err != nil {
			if errors.Is(err, apperrors.ErrNotFound) {
				return nil, fmt.Errorf("%w: customer %d not found", apperrors.ErrValidation, *params.CustomerID)
			}
			return nil, fmt.Errorf("failed to verify customer: %w", err)
		}
	}

	rate := params.RatePerGram
	if rate <= 0 {
		price, err := s.pricing.CurrentPrice(ctx, pricing.MetalSilver)
		if err != nil {
			logCtx.ErrorContext(ctx, "Failed to get current silver price", slog.Any("error", err))
			return nil, fmt.Errorf("failed to price silver sale: %w", err)
		}
		rate = price.PricePerGram
	}

	sale, err := NewSale(params, rate, s.now())
	if err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, sale); err != nil {
		logCtx.ErrorContext(ctx, "Failed to store silver sale", slog.Any("error", err))
		return nil, fmt.Errorf("failed to save silver sale: %w", err)
	}
	monitoring.RecordSilverSale()

	if pubErr := s.pub.PublishSilverSold(ctx, event.SilverSalePayload{
		SaleID:        sale.ID,
		ReceiptNumber: sale.ReceiptNumber,
		CustomerID:    sale.CustomerID,
		WeightMg:      int64(sale.WeightMg),
		TotalAmount:   int64(sale.TotalAmount),
		SoldAt:        sale.SoldAt,
	}); pubErr != nil {
		logCtx.ErrorContext(ctx, "Sale recorded, but FAILED to publish sale event", slog.Any("error", pubErr))
	}

	logCtx.InfoContext(ctx, "Silver sale recorded",
		slog.Int64("saleID", sale.ID),
		slog.String("receipt", sale.ReceiptNumber),
		slog.String("total", sale.TotalAmount.String()))
	return sale, nil
}

func (s *service) GetSale(ctx context.Context, saleID int64) (*Sale, error) {
	sale, err := s.repo.GetByID(ctx, saleID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, fmt.Errorf("%w: silver sale %d not found", apperrors.ErrNotFound, saleID)
		}
		s.logger.ErrorContext(ctx, "Failed to get silver sale", slog.Int64("saleID", saleID), slog.Any("error", err))
		return nil, fmt.Errorf("failed to get silver sale %d: %w", saleID, err)
	}
	return sale, nil
}

func (s *service) ListSales(ctx context.Context, filter ListFilter) ([]*Sale, error) {
	if !filter.From.IsZero() && !filter.To.IsZero() && filter.From.After(filter.To) {
		return nil, apperrors.NewValidationError("from", "from must not be after to")
	}
	sales, err := s.repo.List(ctx, filter)
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to list silver sales", slog.Any("error", err))
		return nil, fmt.Errorf("failed to list silver sales: %w", err)
	}
	return sales, nil
}
