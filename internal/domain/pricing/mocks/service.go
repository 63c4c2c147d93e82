package mocks

import (
	"context"

	"pawn-ledger/internal/domain/pricing"
	"pawn-ledger/internal/pkg/money"

	"github.com/stretchr/testify/mock"
)

type MockPricingService struct {
	mock.Mock
}

var _ pricing.Service = (*MockPricingService)(nil)

func (m *MockPricingService) CurrentPrice(ctx context.Context, metal pricing.Metal) (*pricing.MetalPrice, error) {
	args := m.Called(ctx, metal)
	if p, ok := args.Get(0).(*pricing.MetalPrice); ok {
		return p, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockPricingService) CurrentPrices(ctx context.Context) ([]*pricing.MetalPrice, error) {
	args := m.Called(ctx)
	if p, ok := args.Get(0).([]*pricing.MetalPrice); ok {
		return p, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockPricingService) SetPrice(ctx context.Context, metal pricing.Metal, pricePerGram money.Paise, setBy string) (*pricing.MetalPrice, error) {
	args := m.Called(ctx, metal, pricePerGram, setBy)
	if p, ok := args.Get(0).(*pricing.MetalPrice); ok {
		return p, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockPricingService) History(ctx context.Context, metal pricing.Metal, limit int) ([]pricing.MetalPrice, error) {
	args := m.Called(ctx, metal, limit)
	if p, ok := args.Get(0).([]pricing.MetalPrice); ok {
		return p, args.Error(1)
	}
	return nil, args.Error(1)
}
