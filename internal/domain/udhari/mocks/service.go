package mocks

import (
	"context"

	"pawn-ledger/internal/domain/udhari"

	"github.com/stretchr/testify/mock"
)

type MockUdhariService struct {
	mock.Mock
}

var _ udhari.Service = (*MockUdhariService)(nil)

func (m *MockUdhariService) RecordTransaction(ctx context.Context, params udhari.TxnParams) (*udhari.Transaction, error) {
	args := m.Called(ctx, params)
	if t, ok := args.Get(0).(*udhari.Transaction); ok {
		return t, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockUdhariService) GetAccount(ctx context.Context, customerID int64) (*udhari.Account, error) {
	args := m.Called(ctx, customerID)
	if a, ok := args.Get(0).(*udhari.Account); ok {
		return a, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockUdhariService) ListTransactions(ctx context.Context, customerID int64, limit int) ([]udhari.Transaction, error) {
	args := m.Called(ctx, customerID, limit)
	if t, ok := args.Get(0).([]udhari.Transaction); ok {
		return t, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockUdhariService) ListOutstanding(ctx context.Context) ([]udhari.Account, error) {
	args := m.Called(ctx)
	if a, ok := args.Get(0).([]udhari.Account); ok {
		return a, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockUdhariService) Summary(ctx context.Context) (*udhari.Summary, error) {
	args := m.Called(ctx)
	if s, ok := args.Get(0).(*udhari.Summary); ok {
		return s, args.Error(1)
	}
	return nil, args.Error(1)
}
