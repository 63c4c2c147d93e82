package mocks

import (
	"context"

	"pawn-ledger/internal/domain/silver"

	"github.com/stretchr/testify/mock"
)

type MockSilverService struct {
	mock.Mock
}

var _ silver.Service = (*MockSilverService)(nil)

func (m *MockSilverService) RecordSale(ctx context.Context, params silver.SaleParams) (*silver.Sale, error) {
	args := m.Called(ctx, params)
	if s, ok := args.Get(0).(*silver.Sale); ok {
		return s, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockSilverService) GetSale(ctx context.Context, saleID int64) (*silver.Sale, error) {
	args := m.Called(ctx, saleID)
	if s, ok := args.Get(0).(*silver.Sale); ok {
		return s, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockSilverService) ListSales(ctx context.Context, filter silver.ListFilter) ([]*silver.Sale, error) {
	args := m.Called(ctx, filter)
	if s, ok := args.Get(0).([]*silver.Sale); ok {
		return s, args.Error(1)
	}
	return nil, args.Error(1)
}
