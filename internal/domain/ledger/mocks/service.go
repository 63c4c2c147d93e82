package mocks

import (
	"context"

	"pawn-ledger/internal/domain/ledger"

	"github.com/stretchr/testify/mock"
)

type MockLedgerService struct {
	mock.Mock
}

var _ ledger.Service = (*MockLedgerService)(nil)

func (m *MockLedgerService) ListEntries(ctx context.Context, filter ledger.Filter) ([]ledger.Entry, error) {
	args := m.Called(ctx, filter)
	if e, ok := args.Get(0).([]ledger.Entry); ok {
		return e, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockLedgerService) Summarize(ctx context.Context, filter ledger.Filter) (*ledger.Summary, error) {
	args := m.Called(ctx, filter)
	if s, ok := args.Get(0).(*ledger.Summary); ok {
		return s, args.Error(1)
	}
	return nil, args.Error(1)
}
