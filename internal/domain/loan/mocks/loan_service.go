package mocks

import (
	"context"
	"time"

	"pawn-ledger/internal/domain/loan"

	"github.com/stretchr/testify/mock"
)

type MockLoanService struct {
	mock.Mock
}

var _ loan.LoanService = (*MockLoanService)(nil)

func (m *MockLoanService) CreateLoan(ctx context.Context, params loan.CreateLoanParams) (*loan.Loan, error) {
	args := m.Called(ctx, params)
	if l, ok := args.Get(0).(*loan.Loan); ok {
		return l, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockLoanService) GetLoan(ctx context.Context, loanID int64) (*loan.Loan, error) {
	args := m.Called(ctx, loanID)
	if l, ok := args.Get(0).(*loan.Loan); ok {
		return l, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockLoanService) ListLoans(ctx context.Context, filter loan.ListFilter) ([]*loan.Loan, error) {
	args := m.Called(ctx, filter)
	if l, ok := args.Get(0).([]*loan.Loan); ok {
		return l, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockLoanService) GetStatement(ctx context.Context, loanID int64, asOf time.Time) (*loan.Statement, error) {
	args := m.Called(ctx, loanID, asOf)
	if st, ok := args.Get(0).(*loan.Statement); ok {
		return st, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockLoanService) RecordPayment(ctx context.Context, params loan.PaymentParams) (*loan.InterestPayment, error) {
	args := m.Called(ctx, params)
	if p, ok := args.Get(0).(*loan.InterestPayment); ok {
		return p, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockLoanService) CloseLoan(ctx context.Context, params loan.CloseParams) (*loan.InterestPayment, error) {
	args := m.Called(ctx, params)
	if p, ok := args.Get(0).(*loan.InterestPayment); ok {
		return p, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockLoanService) ListPayments(ctx context.Context, loanID int64) ([]loan.InterestPayment, error) {
	args := m.Called(ctx, loanID)
	if p, ok := args.Get(0).([]loan.InterestPayment); ok {
		return p, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockLoanService) MarkOverdueLoan(ctx context.Context, loanID int64, asOf time.Time) (bool, error) {
	args := m.Called(ctx, loanID, asOf)
	return args.Bool(0), args.Error(1)
}
