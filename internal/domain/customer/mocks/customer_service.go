package mocks

import (
	"context"

	"pawn-ledger/internal/domain/customer"

	"github.com/stretchr/testify/mock"
)

type MockCustomerService struct {
	mock.Mock
}

var _ customer.CustomerService = (*MockCustomerService)(nil)

func (m *MockCustomerService) CreateNewCustomer(ctx context.Context, params customer.NewCustomerParams) (*customer.Customer, error) {
	args := m.Called(ctx, params)
	if c, ok := args.Get(0).(*customer.Customer); ok {
		return c, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockCustomerService) GetCustomer(ctx context.Context, customerID int64) (*customer.Customer, error) {
	args := m.Called(ctx, customerID)
	if c, ok := args.Get(0).(*customer.Customer); ok {
		return c, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockCustomerService) ListCustomers(ctx context.Context, filter customer.ListFilter) ([]*customer.Customer, error) {
	args := m.Called(ctx, filter)
	if c, ok := args.Get(0).([]*customer.Customer); ok {
		return c, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockCustomerService) UpdateCustomerDetails(ctx context.Context, customerID int64, params customer.UpdateCustomerParams) (*customer.Customer, error) {
	args := m.Called(ctx, customerID, params)
	if c, ok := args.Get(0).(*customer.Customer); ok {
		return c, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockCustomerService) UpdateDelinquency(ctx context.Context, customerID int64, isDelinquent bool) error {
	return m.Called(ctx, customerID, isDelinquent).Error(0)
}

func (m *MockCustomerService) DeactivateCustomer(ctx context.Context, customerID int64) error {
	return m.Called(ctx, customerID).Error(0)
}

func (m *MockCustomerService) ReactivateCustomer(ctx context.Context, customerID int64) error {
	return m.Called(ctx, customerID).Error(0)
}

func (m *MockCustomerService) ClearResolvedDelinquencies(ctx context.Context) (int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Error(1)
}
