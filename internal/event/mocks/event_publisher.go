// Package mocks holds testify mocks shared by the domain service tests.
package mocks

import (
	"context"

	"pawn-ledger/internal/event"

	"github.com/stretchr/testify/mock"
)

type MockEventPublisher struct {
	mock.Mock
}

var _ event.EventPublisher = (*MockEventPublisher)(nil)

func (m *MockEventPublisher) PublishCustomerCreated(ctx context.Context, payload event.CustomerPayload) error {
	return m.Called(ctx, payload).Error(0)
}

func (m *MockEventPublisher) PublishCustomerUpdated(ctx context.Context, payload event.CustomerPayload) error {
	return m.Called(ctx, payload).Error(0)
}

func (m *MockEventPublisher) PublishLoanCreated(ctx context.Context, payload event.LoanPayload) error {
	return m.Called(ctx, payload).Error(0)
}

func (m *MockEventPublisher) PublishLoanPayment(ctx context.Context, payload event.LoanPaymentPayload) error {
	return m.Called(ctx, payload).Error(0)
}

func (m *MockEventPublisher) PublishLoanClosed(ctx context.Context, payload event.LoanPayload) error {
	return m.Called(ctx, payload).Error(0)
}

func (m *MockEventPublisher) PublishLoanOverdue(ctx context.Context, payload event.LoanOverduePayload) error {
	return m.Called(ctx, payload).Error(0)
}

func (m *MockEventPublisher) PublishSilverSold(ctx context.Context, payload event.SilverSalePayload) error {
	return m.Called(ctx, payload).Error(0)
}

func (m *MockEventPublisher) PublishUdhariRecorded(ctx context.Context, payload event.UdhariPayload) error {
	return m.Called(ctx, payload).Error(0)
}

func (m *MockEventPublisher) PublishPriceUpdated(ctx context.Context, payload event.PricePayload) error {
	return m.Called(ctx, payload).Error(0)
}
