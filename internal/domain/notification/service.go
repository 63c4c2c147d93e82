package notification

import (
	"context"
	"fmt"
	"log/slog"

	"pawn-ledger/internal/infrastructure/monitoring"
)

type Service interface {
	Record(ctx context.Context, n *Notification) error
	ListForCustomer(ctx context.Context, customerID int64, limit int) ([]Notification, error)
}

type service struct {
	repo   Repository
	logger *slog.Logger
}

var _ Service = (*service)(nil)

func NewService(repo Repository, logger *slog.Logger) Service {
	return &service{repo: repo, logger: logger.With("component", "notificationService")}
}

func (s *service) Record(ctx context.Context, n *Notification) error {
	stored, err := s.repo.Save(ctx, n)
	if err != nil {
		return fmt.Errorf("failed to store notification: %w", err)
	}
	if !stored {
		s.logger.InfoContext(ctx, "Notification already stored for event", slog.String("eventID", n.EventID))
		return nil
	}
	monitoring.RecordNotificationStored(n.EventType)
	s.logger.InfoContext(ctx, "Notification stored",
		slog.Int64("notificationID", n.ID),
		slog.Int64("customerID", n.CustomerID),
		slog.String("eventType", n.EventType))
	return nil
}

func (s *service) ListForCustomer(ctx context.Context, customerID int64, limit int) ([]Notification, error) {
	switch {
	case limit <= 0:
		limit = DefaultListLimit
	case limit > MaxListLimit:
		limit = MaxListLimit
	}
	list, err := s.repo.ListByCustomer(ctx, customerID, limit)
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to list notifications", slog.Int64("customerID", customerID), slog.Any("error", err))
		return nil, fmt.Errorf("failed to list notifications: %w", err)
	}
	return list, nil
}
