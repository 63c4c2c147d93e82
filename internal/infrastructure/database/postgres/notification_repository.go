package postgres

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"pawn-ledger/internal/domain/notification"
	"pawn-ledger/internal/infrastructure/monitoring"
	"pawn-ledger/internal/pkg/apperrors"

	"github.com/jackc/pgx/v5"
)

type NotificationRepository struct {
	db     DBPool
	logger *slog.Logger
}

var _ notification.Repository = (*NotificationRepository)(nil)

func NewNotificationRepository(db DBPool, logger *slog.Logger) *NotificationRepository {
	return &NotificationRepository{db: db, logger: logger.With("component", "NotificationRepository")}
}

// Save reports false when a notification for the same event and customer
// was already stored.
func (r *NotificationRepository) Save(ctx context.Context, n *notification.Notification) (stored bool, err error) {
	defer monitoring.ObserveDBQuery("SaveNotification", time.Now(), &err)

	sql := `
        INSERT INTO notifications (customer_id, event_id, event_type, channel, message, status, created_at)
        VALUES ($1, $2, $3, $4, $5, $6, NOW())
        ON CONFLICT (event_id, customer_id) DO NOTHING
        RETURNING id, created_at`

	err = r.db.QueryRow(ctx, sql, n.CustomerID, n.EventID, n.EventType, n.Channel, n.Message, n.Status).
		Scan(&n.ID, &n.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			r.logger.InfoContext(ctx, "Notification already stored for event", slog.String("eventID", n.EventID))
			return false, nil
		}
		r.logger.ErrorContext(ctx, "Failed to store notification", slog.String("eventID", n.EventID), slog.Any("error", err))
		return false, translateDBError(err, r.logger)
	}
	return true, nil
}

func (r *NotificationRepository) ListByCustomer(ctx context.Context, customerID int64, limit int) ([]notification.Notification, error) {
	query := `
        SELECT id, customer_id, event_id, event_type, channel, message, status, created_at
        FROM notifications
        WHERE customer_id = $1
        ORDER BY created_at DESC, id DESC
        LIMIT $2`

	rows, err := r.db.Query(ctx, query, customerID, limit)
	if err != nil {
		r.logger.ErrorContext(ctx, "Failed to query notifications", slog.Int64("customerID", customerID), slog.Any("error", err))
		return nil, apperrors.WrapDatabaseError(err, "failed to list customer notifications")
	}
	defer rows.Close()

	list := make([]notification.Notification, 0)
	for rows.Next() {
		var n notification.Notification
		if err := rows.Scan(&n.ID, &n.CustomerID, &n.EventID, &n.EventType, &n.Channel, &n.Message, &n.Status, &n.CreatedAt); err != nil {
			return nil, apperrors.WrapDatabaseError(err, "failed to list customer notifications")
		}
		list = append(list, n)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.WrapDatabaseError(err, "failed to list customer notifications")
	}
	return list, nil
}
