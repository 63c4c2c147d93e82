package mocks

import (
	"context"

	"pawn-ledger/internal/domain/notification"

	"github.com/stretchr/testify/mock"
)

type MockNotificationService struct {
	mock.Mock
}

var _ notification.Service = (*MockNotificationService)(nil)

func (m *MockNotificationService) Record(ctx context.Context, n *notification.Notification) error {
	return m.Called(ctx, n).Error(0)
}

func (m *MockNotificationService) ListForCustomer(ctx context.Context, customerID int64, limit int) ([]notification.Notification, error) {
	args := m.Called(ctx, customerID, limit)
	if n, ok := args.Get(0).([]notification.Notification); ok {
		return n, args.Error(1)
	}
	return nil, args.Error(1)
}
