package postgres

import (
	"testing"
	"time"

	"pawn-ledger/internal/domain/notification"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNotificationRepository_Save(t *testing.T) {
	ctx, mockPool := newMockPool(t)
	repo := NewNotificationRepository(mockPool, logger)
	now := time.Now()

	n := &notification.Notification{
		CustomerID: 3, EventID: "evt-1", EventType: "loan.created", Channel: notification.ChannelSMS,
		Message: "Kanak Jewellers: loan GL-1 opened", Status: notification.StatusPending,
	}

	mockPool.ExpectQuery("INSERT INTO notifications (.+) ON CONFLICT \\(event_id, customer_id\\) DO NOTHING").
		WithArgs(int64(3), "evt-1", "loan.created", notification.ChannelSMS, n.Message, notification.StatusPending).
		WillReturnRows(pgxmock.NewRows([]string{"id", "created_at"}).AddRow(int64(10), now))
	stored, err := repo.Save(ctx, n)
	require.NoError(t, err)
	assert.True(t, stored)
	assert.Equal(t, int64(10), n.ID)

	mockPool.ExpectQuery("INSERT INTO notifications").
		WithArgs(anyArgs(6)...).
		WillReturnError(pgx.ErrNoRows)
	stored, err = repo.Save(ctx, n)
	require.NoError(t, err)
	assert.False(t, stored)
	assert.NoError(t, mockPool.ExpectationsWereMet(), pgxmockExpectationsNotMetMsg)
}

func TestNotificationRepository_ListByCustomer(t *testing.T) {
	ctx, mockPool := newMockPool(t)
	repo := NewNotificationRepository(mockPool, logger)
	now := time.Now()

	mockPool.ExpectQuery("FROM notifications WHERE customer_id = \\$1 ORDER BY created_at DESC, id DESC LIMIT \\$2").
		WithArgs(int64(3), 50).
		WillReturnRows(pgxmock.NewRows([]string{"id", "customer_id", "event_id", "event_type", "channel", "message", "status", "created_at"}).
			AddRow(int64(10), int64(3), "evt-1", "loan.created", notification.ChannelSMS, "hello", notification.StatusPending, now))

	list, err := repo.ListByCustomer(ctx, 3, 50)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "evt-1", list[0].EventID)
	assert.NoError(t, mockPool.ExpectationsWereMet(), pgxmockExpectationsNotMetMsg)
}
