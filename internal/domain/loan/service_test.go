package loan

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"pawn-ledger/internal/domain/customer"
	custmocks "pawn-ledger/internal/domain/customer/mocks"
	"pawn-ledger/internal/domain/pricing"
	pricemocks "pawn-ledger/internal/domain/pricing/mocks"
	"pawn-ledger/internal/event"
	"pawn-ledger/internal/event/mocks"
	"pawn-ledger/internal/pkg/apperrors"
	"pawn-ledger/internal/pkg/money"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockRepository struct {
	mock.Mock
}

func (m *mockRepository) CreateLoan(ctx context.Context, l *Loan) error {
	return m.Called(ctx, l).Error(0)
}

func (m *mockRepository) GetLoanByID(ctx context.Context, loanID int64) (*Loan, error) {
	args := m.Called(ctx, loanID)
	if l, ok := args.Get(0).(*Loan); ok {
		return l, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockRepository) ListLoans(ctx context.Context, filter ListFilter) ([]*Loan, error) {
	args := m.Called(ctx, filter)
	if l, ok := args.Get(0).([]*Loan); ok {
		return l, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockRepository) GetLoanForUpdate(ctx context.Context, tx pgx.Tx, loanID int64) (*Loan, error) {
	args := m.Called(ctx, tx, loanID)
	if l, ok := args.Get(0).(*Loan); ok {
		return l, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockRepository) UpdateLoanInTx(ctx context.Context, tx pgx.Tx, l *Loan) error {
	return m.Called(ctx, tx, l).Error(0)
}

func (m *mockRepository) InsertPaymentInTx(ctx context.Context, tx pgx.Tx, p *InterestPayment) error {
	return m.Called(ctx, tx, p).Error(0)
}

func (m *mockRepository) ListPayments(ctx context.Context, loanID int64) ([]InterestPayment, error) {
	args := m.Called(ctx, loanID)
	if p, ok := args.Get(0).([]InterestPayment); ok {
		return p, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockRepository) GetAllActiveLoanIDs(ctx context.Context) ([]int64, error) {
	args := m.Called(ctx)
	if ids, ok := args.Get(0).([]int64); ok {
		return ids, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockRepository) MarkOverdue(ctx context.Context, loanID int64) (bool, error) {
	args := m.Called(ctx, loanID)
	return args.Bool(0), args.Error(1)
}

func (m *mockRepository) BeginTx(ctx context.Context) (pgx.Tx, error) {
	args := m.Called(ctx)
	if tx, ok := args.Get(0).(pgx.Tx); ok {
		return tx, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockRepository) CommitTx(ctx context.Context, tx pgx.Tx) error {
	return m.Called(ctx, tx).Error(0)
}

func (m *mockRepository) RollbackTx(ctx context.Context, tx pgx.Tx) error {
	return m.Called(ctx, tx).Error(0)
}

type serviceFixture struct {
	repo      *mockRepository
	customers *custmocks.MockCustomerService
	prices    *pricemocks.MockPricingService
	pub       *mocks.MockEventPublisher
	svc       *loanServiceImpl
}

func newFixture(now time.Time) *serviceFixture {
	f := &serviceFixture{
		repo:      new(mockRepository),
		customers: new(custmocks.MockCustomerService),
		prices:    new(pricemocks.MockPricingService),
		pub:       new(mocks.MockEventPublisher),
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	f.svc = NewLoanService(f.repo, f.customers, f.prices, f.pub, testTerms, logger).(*loanServiceImpl)
	f.svc.now = func() time.Time { return now }
	return f
}

func (f *serviceFixture) assertExpectations(t *testing.T) {
	f.repo.AssertExpectations(t)
	f.customers.AssertExpectations(t)
	f.prices.AssertExpectations(t)
	f.pub.AssertExpectations(t)
}

func TestLoanService_CreateLoan(t *testing.T) {
	ctx := context.Background()
	now := day(2024, 3, 10)
	goldPrice := &pricing.MetalPrice{Metal: pricing.MetalGold, PricePerGram: 600_000, Source: pricing.SourceDB}
	params := CreateLoanParams{
		CustomerID:      7,
		Metal:           pricing.MetalGold,
		Items:           []PledgedItem{chain},
		PrincipalAmount: 4_000_000,
	}

	t.Run("success", func(t *testing.T) {
		f := newFixture(now)
		f.customers.On("GetCustomer", ctx, int64(7)).Return(&customer.Customer{ID: 7, Active: true}, nil).Once()
		f.prices.On("CurrentPrice", ctx, pricing.MetalGold).Return(goldPrice, nil).Once()
		f.repo.On("CreateLoan", ctx, mock.AnythingOfType("*loan.Loan")).
			Run(func(args mock.Arguments) { args.Get(1).(*Loan).ID = 42 }).
			Return(nil).Once()
		f.pub.On("PublishLoanCreated", ctx, mock.MatchedBy(func(p event.LoanPayload) bool {
			return p.LoanID == 42 && p.CustomerID == 7 && p.PrincipalAmount == 4_000_000 && p.Status == "ACTIVE"
		})).Return(nil).Once()

		l, err := f.svc.CreateLoan(ctx, params)
		require.NoError(t, err)
		assert.Equal(t, int64(42), l.ID)
		assert.Equal(t, money.Paise(600_000), l.PricePerGram)
		assert.Equal(t, now, l.StartDate)
		f.assertExpectations(t)
	})

	t.Run("publish failure does not fail creation", func(t *testing.T) {
		f := newFixture(now)
		f.customers.On("GetCustomer", ctx, int64(7)).Return(&customer.Customer{ID: 7, Active: true}, nil).Once()
		f.prices.On("CurrentPrice", ctx, pricing.MetalGold).Return(goldPrice, nil).Once()
		f.repo.On("CreateLoan", ctx, mock.Anything).Return(nil).Once()
		f.pub.On("PublishLoanCreated", ctx, mock.Anything).Return(errors.New("broker down")).Once()

		_, err := f.svc.CreateLoan(ctx, params)
		assert.NoError(t, err)
		f.assertExpectations(t)
	})

	t.Run("unknown customer is a validation error", func(t *testing.T) {
		f := newFixture(now)
		f.customers.On("GetCustomer", ctx, int64(7)).Return(nil, customer.ErrNotFound).Once()

		_, err := f.svc.CreateLoan(ctx, params)
		assert.ErrorIs(t, err, apperrors.ErrValidation)
		f.repo.AssertNotCalled(t, "CreateLoan", mock.Anything, mock.Anything)
		f.assertExpectations(t)
	})

	t.Run("inactive customer", func(t *testing.T) {
		f := newFixture(now)
		f.customers.On("GetCustomer", ctx, int64(7)).Return(&customer.Customer{ID: 7, Active: false}, nil).Once()

		_, err := f.svc.CreateLoan(ctx, params)
		assert.ErrorIs(t, err, apperrors.ErrValidation)
		f.assertExpectations(t)
	})

	t.Run("loan-to-value above limit is not stored", func(t *testing.T) {
		f := newFixture(now)
		f.customers.On("GetCustomer", ctx, int64(7)).Return(&customer.Customer{ID: 7, Active: true}, nil).Once()
		f.prices.On("CurrentPrice", ctx, pricing.MetalGold).Return(goldPrice, nil).Once()

		over := params
		over.PrincipalAmount = 5_000_000
		_, err := f.svc.CreateLoan(ctx, over)
		assert.ErrorIs(t, err, apperrors.ErrValidation)
		f.repo.AssertNotCalled(t, "CreateLoan", mock.Anything, mock.Anything)
		f.assertExpectations(t)
	})

	t.Run("repository failure", func(t *testing.T) {
		f := newFixture(now)
		f.customers.On("GetCustomer", ctx, int64(7)).Return(&customer.Customer{ID: 7, Active: true}, nil).Once()
		f.prices.On("CurrentPrice", ctx, pricing.MetalGold).Return(goldPrice, nil).Once()
		f.repo.On("CreateLoan", ctx, mock.Anything).Return(apperrors.ErrDatabase).Once()

		_, err := f.svc.CreateLoan(ctx, params)
		assert.ErrorIs(t, err, apperrors.ErrDatabase)
		f.assertExpectations(t)
	})
}

func TestLoanService_RecordPayment(t *testing.T) {
	ctx := context.Background()
	paidOn := day(2024, 1, 31)

	t.Run("interest then principal", func(t *testing.T) {
		f := newFixture(paidOn)
		f.repo.On("BeginTx", ctx).Return(nil, nil).Once()
		f.repo.On("GetLoanForUpdate", ctx, nil, int64(1)).Return(activeLoan(), nil).Once()
		f.repo.On("InsertPaymentInTx", ctx, nil, mock.AnythingOfType("*loan.InterestPayment")).Return(nil).Once()
		f.repo.On("UpdateLoanInTx", ctx, nil, mock.MatchedBy(func(l *Loan) bool {
			return l.OutstandingBalance == 2_000_000 && l.InterestPaidThrough.Equal(paidOn)
		})).Return(nil).Once()
		f.repo.On("CommitTx", ctx, nil).Return(nil).Once()
		f.pub.On("PublishLoanPayment", ctx, mock.MatchedBy(func(p event.LoanPaymentPayload) bool {
			return p.InterestPortion == 60_000 && p.PrincipalPortion == 1_000_000 && !p.LoanClosed
		})).Return(nil).Once()

		p, err := f.svc.RecordPayment(ctx, PaymentParams{LoanID: 1, Amount: 1_060_000, Mode: ModeUPI, Note: " part payment "})
		require.NoError(t, err)
		assert.Equal(t, ModeUPI, p.Mode)
		assert.Equal(t, "part payment", p.Note)
		assert.Equal(t, paidOn, p.PaidOn)
		assert.Contains(t, p.ReceiptNumber, "RCPT-")
		f.repo.AssertNotCalled(t, "RollbackTx", mock.Anything, mock.Anything)
		f.assertExpectations(t)
	})

	t.Run("mode defaults to cash", func(t *testing.T) {
		f := newFixture(paidOn)
		f.repo.On("BeginTx", ctx).Return(nil, nil).Once()
		f.repo.On("GetLoanForUpdate", ctx, nil, int64(1)).Return(activeLoan(), nil).Once()
		f.repo.On("InsertPaymentInTx", ctx, nil, mock.Anything).Return(nil).Once()
		f.repo.On("UpdateLoanInTx", ctx, nil, mock.Anything).Return(nil).Once()
		f.repo.On("CommitTx", ctx, nil).Return(nil).Once()
		f.pub.On("PublishLoanPayment", ctx, mock.Anything).Return(nil).Once()

		p, err := f.svc.RecordPayment(ctx, PaymentParams{LoanID: 1, Amount: 10_000})
		require.NoError(t, err)
		assert.Equal(t, ModeCash, p.Mode)
		f.assertExpectations(t)
	})

	t.Run("full settlement publishes closed", func(t *testing.T) {
		f := newFixture(paidOn)
		f.repo.On("BeginTx", ctx).Return(nil, nil).Once()
		f.repo.On("GetLoanForUpdate", ctx, nil, int64(1)).Return(activeLoan(), nil).Once()
		f.repo.On("InsertPaymentInTx", ctx, nil, mock.Anything).Return(nil).Once()
		f.repo.On("UpdateLoanInTx", ctx, nil, mock.MatchedBy(func(l *Loan) bool { return l.Status == StatusClosed })).Return(nil).Once()
		f.repo.On("CommitTx", ctx, nil).Return(nil).Once()
		f.pub.On("PublishLoanPayment", ctx, mock.MatchedBy(func(p event.LoanPaymentPayload) bool { return p.LoanClosed })).Return(nil).Once()
		f.pub.On("PublishLoanClosed", ctx, mock.MatchedBy(func(p event.LoanPayload) bool { return p.Status == "CLOSED" })).Return(nil).Once()

		_, err := f.svc.RecordPayment(ctx, PaymentParams{LoanID: 1, Amount: 3_060_000})
		require.NoError(t, err)
		f.assertExpectations(t)
	})

	t.Run("overpayment rolls back", func(t *testing.T) {
		f := newFixture(paidOn)
		f.repo.On("BeginTx", ctx).Return(nil, nil).Once()
		f.repo.On("GetLoanForUpdate", ctx, nil, int64(1)).Return(activeLoan(), nil).Once()
		f.repo.On("RollbackTx", ctx, nil).Return(nil).Once()

		_, err := f.svc.RecordPayment(ctx, PaymentParams{LoanID: 1, Amount: 9_000_000})
		assert.ErrorIs(t, err, apperrors.ErrInvalidPaymentAmount)
		f.repo.AssertNotCalled(t, "InsertPaymentInTx", mock.Anything, mock.Anything, mock.Anything)
		f.assertExpectations(t)
	})

	t.Run("closed loan rolls back", func(t *testing.T) {
		f := newFixture(paidOn)
		closed := activeLoan()
		closed.Status = StatusClosed
		f.repo.On("BeginTx", ctx).Return(nil, nil).Once()
		f.repo.On("GetLoanForUpdate", ctx, nil, int64(1)).Return(closed, nil).Once()
		f.repo.On("RollbackTx", ctx, nil).Return(nil).Once()

		_, err := f.svc.RecordPayment(ctx, PaymentParams{LoanID: 1, Amount: 100})
		assert.ErrorIs(t, err, apperrors.ErrLoanClosed)
		f.assertExpectations(t)
	})

	t.Run("loan not found", func(t *testing.T) {
		f := newFixture(paidOn)
		f.repo.On("BeginTx", ctx).Return(nil, nil).Once()
		f.repo.On("GetLoanForUpdate", ctx, nil, int64(9)).Return(nil, apperrors.ErrNotFound).Once()
		f.repo.On("RollbackTx", ctx, nil).Return(nil).Once()

		_, err := f.svc.RecordPayment(ctx, PaymentParams{LoanID: 9, Amount: 100})
		assert.ErrorIs(t, err, apperrors.ErrNotFound)
		f.assertExpectations(t)
	})

	t.Run("non-positive amount never opens a transaction", func(t *testing.T) {
		f := newFixture(paidOn)
		_, err := f.svc.RecordPayment(ctx, PaymentParams{LoanID: 1, Amount: 0})
		assert.ErrorIs(t, err, apperrors.ErrInvalidPaymentAmount)
		f.repo.AssertNotCalled(t, "BeginTx", mock.Anything)
	})

	t.Run("commit failure is internal", func(t *testing.T) {
		f := newFixture(paidOn)
		f.repo.On("BeginTx", ctx).Return(nil, nil).Once()
		f.repo.On("GetLoanForUpdate", ctx, nil, int64(1)).Return(activeLoan(), nil).Once()
		f.repo.On("InsertPaymentInTx", ctx, nil, mock.Anything).Return(nil).Once()
		f.repo.On("UpdateLoanInTx", ctx, nil, mock.Anything).Return(nil).Once()
		f.repo.On("CommitTx", ctx, nil).Return(errors.New("conn reset")).Once()
		f.repo.On("RollbackTx", ctx, nil).Return(nil).Once()

		_, err := f.svc.RecordPayment(ctx, PaymentParams{LoanID: 1, Amount: 10_000})
		assert.ErrorIs(t, err, apperrors.ErrInternalServer)
		f.pub.AssertNotCalled(t, "PublishLoanPayment", mock.Anything, mock.Anything)
		f.assertExpectations(t)
	})
}

func TestLoanService_CloseLoan(t *testing.T) {
	ctx := context.Background()
	paidOn := day(2024, 1, 31)

	t.Run("amount must match total payable", func(t *testing.T) {
		f := newFixture(paidOn)
		f.repo.On("BeginTx", ctx).Return(nil, nil).Once()
		f.repo.On("GetLoanForUpdate", ctx, nil, int64(1)).Return(activeLoan(), nil).Once()
		f.repo.On("RollbackTx", ctx, nil).Return(nil).Once()

		_, err := f.svc.CloseLoan(ctx, CloseParams{LoanID: 1, Amount: 3_000_000})
		assert.ErrorIs(t, err, apperrors.ErrInvalidPaymentAmount)
		assert.ErrorContains(t, err, "30600.00")
		f.assertExpectations(t)
	})

	t.Run("exact settlement closes", func(t *testing.T) {
		f := newFixture(paidOn)
		f.repo.On("BeginTx", ctx).Return(nil, nil).Once()
		f.repo.On("GetLoanForUpdate", ctx, nil, int64(1)).Return(activeLoan(), nil).Once()
		f.repo.On("InsertPaymentInTx", ctx, nil, mock.Anything).Return(nil).Once()
		f.repo.On("UpdateLoanInTx", ctx, nil, mock.Anything).Return(nil).Once()
		f.repo.On("CommitTx", ctx, nil).Return(nil).Once()
		f.pub.On("PublishLoanPayment", ctx, mock.Anything).Return(nil).Once()
		f.pub.On("PublishLoanClosed", ctx, mock.Anything).Return(nil).Once()

		p, err := f.svc.CloseLoan(ctx, CloseParams{LoanID: 1, Amount: 3_060_000, Mode: ModeBank})
		require.NoError(t, err)
		assert.Equal(t, money.Paise(0), p.BalanceAfter)
		assert.Equal(t, ModeBank, p.Mode)
		f.assertExpectations(t)
	})
}

func TestLoanService_GetStatement(t *testing.T) {
	ctx := context.Background()
	f := newFixture(day(2024, 1, 31))
	f.repo.On("GetLoanByID", ctx, int64(1)).Return(activeLoan(), nil).Once()

	st, err := f.svc.GetStatement(ctx, 1, time.Time{})
	require.NoError(t, err)
	assert.Equal(t, money.Paise(60_000), st.AccruedInterest)
	assert.Equal(t, money.Paise(3_060_000), st.TotalPayable)

	f.repo.On("GetLoanByID", ctx, int64(2)).Return(nil, apperrors.ErrNotFound).Once()
	_, err = f.svc.GetStatement(ctx, 2, time.Time{})
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
	f.assertExpectations(t)
}

func TestLoanService_ListPayments(t *testing.T) {
	ctx := context.Background()
	f := newFixture(day(2024, 1, 31))
	payments := []InterestPayment{{ID: 1, LoanID: 1, Amount: 60_000}}
	f.repo.On("GetLoanByID", ctx, int64(1)).Return(activeLoan(), nil).Once()
	f.repo.On("ListPayments", ctx, int64(1)).Return(payments, nil).Once()

	got, err := f.svc.ListPayments(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, payments, got)
	f.assertExpectations(t)
}

func TestLoanService_MarkOverdueLoan(t *testing.T) {
	ctx := context.Background()
	asOf := day(2024, 6, 1)

	t.Run("marks stale loan and flags customer", func(t *testing.T) {
		f := newFixture(asOf)
		l := activeLoan()
		l.CustomerID = 7
		f.repo.On("GetLoanByID", ctx, int64(1)).Return(l, nil).Once()
		f.repo.On("MarkOverdue", ctx, int64(1)).Return(true, nil).Once()
		f.customers.On("UpdateDelinquency", ctx, int64(7), true).Return(nil).Once()
		f.pub.On("PublishLoanOverdue", ctx, mock.MatchedBy(func(p event.LoanOverduePayload) bool {
			return p.LoanID == 1 && p.CustomerID == 7
		})).Return(nil).Once()

		marked, err := f.svc.MarkOverdueLoan(ctx, 1, asOf)
		require.NoError(t, err)
		assert.True(t, marked)
		f.assertExpectations(t)
	})

	t.Run("loan within grace is left alone", func(t *testing.T) {
		f := newFixture(asOf)
		l := activeLoan()
		l.InterestPaidThrough = day(2024, 5, 1)
		f.repo.On("GetLoanByID", ctx, int64(1)).Return(l, nil).Once()

		marked, err := f.svc.MarkOverdueLoan(ctx, 1, asOf)
		require.NoError(t, err)
		assert.False(t, marked)
		f.repo.AssertNotCalled(t, "MarkOverdue", mock.Anything, mock.Anything)
		f.assertExpectations(t)
	})

	t.Run("already overdue is skipped", func(t *testing.T) {
		f := newFixture(asOf)
		l := activeLoan()
		l.Status = StatusOverdue
		f.repo.On("GetLoanByID", ctx, int64(1)).Return(l, nil).Once()

		marked, err := f.svc.MarkOverdueLoan(ctx, 1, asOf)
		require.NoError(t, err)
		assert.False(t, marked)
		f.assertExpectations(t)
	})

	t.Run("lost race with a payment", func(t *testing.T) {
		f := newFixture(asOf)
		f.repo.On("GetLoanByID", ctx, int64(1)).Return(activeLoan(), nil).Once()
		f.repo.On("MarkOverdue", ctx, int64(1)).Return(false, nil).Once()

		marked, err := f.svc.MarkOverdueLoan(ctx, 1, asOf)
		require.NoError(t, err)
		assert.False(t, marked)
		f.customers.AssertNotCalled(t, "UpdateDelinquency", mock.Anything, mock.Anything, mock.Anything)
		f.assertExpectations(t)
	})

	t.Run("customer flag failure is reported", func(t *testing.T) {
		f := newFixture(asOf)
		f.repo.On("GetLoanByID", ctx, int64(1)).Return(activeLoan(), nil).Once()
		f.repo.On("MarkOverdue", ctx, int64(1)).Return(true, nil).Once()
		f.customers.On("UpdateDelinquency", ctx, int64(0), true).Return(apperrors.ErrDatabase).Once()

		marked, err := f.svc.MarkOverdueLoan(ctx, 1, asOf)
		assert.True(t, marked)
		assert.ErrorIs(t, err, apperrors.ErrDatabase)
		f.assertExpectations(t)
	})
}
