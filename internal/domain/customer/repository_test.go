package customer

import (
	"context"

	"github.com/stretchr/testify/mock"
)

type MockCustomerRepository struct {
	mock.Mock
}

func (_m *MockCustomerRepository) Save(ctx context.Context, customer *Customer) error {
	ret := _m.Called(ctx, customer)

	var r0 error
	if rf, ok := ret.Get(0).(func(context.Context, *Customer) error); ok {
		r0 = rf(ctx, customer)
	} else {
		r0 = ret.Error(0)
	}

	return r0
}

func (_m *MockCustomerRepository) FindByID(ctx context.Context, customerID int64) (*Customer, error) {
	ret := _m.Called(ctx, customerID)

	var r0 *Customer
	if ret.Get(0) != nil {
		r0 = ret.Get(0).(*Customer)
	}

	return r0, ret.Error(1)
}

func (_m *MockCustomerRepository) FindAll(ctx context.Context, filter ListFilter) ([]*Customer, error) {
	ret := _m.Called(ctx, filter)

	var r0 []*Customer
	if ret.Get(0) != nil {
		r0 = ret.Get(0).([]*Customer)
	}

	return r0, ret.Error(1)
}

func (_m *MockCustomerRepository) SetDelinquencyStatus(ctx context.Context, customerID int64, isDelinquent bool) error {
	return _m.Called(ctx, customerID, isDelinquent).Error(0)
}

func (_m *MockCustomerRepository) SetActiveStatus(ctx context.Context, customerID int64, isActive bool) error {
	return _m.Called(ctx, customerID, isActive).Error(0)
}

func (_m *MockCustomerRepository) HasOpenObligations(ctx context.Context, customerID int64) (bool, error) {
	ret := _m.Called(ctx, customerID)
	return ret.Bool(0), ret.Error(1)
}

func (_m *MockCustomerRepository) ClearResolvedDelinquencies(ctx context.Context) ([]int64, error) {
	ret := _m.Called(ctx)

	var r0 []int64
	if ret.Get(0) != nil {
		r0 = ret.Get(0).([]int64)
	}

	return r0, ret.Error(1)
}

var _ CustomerRepository = (*MockCustomerRepository)(nil)
