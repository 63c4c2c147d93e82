package silver

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"pawn-ledger/internal/domain/customer"
	custmocks "pawn-ledger/internal/domain/customer/mocks"
	"pawn-ledger/internal/domain/loan"
	"pawn-ledger/internal/domain/pricing"
	pricemocks "pawn-ledger/internal/domain/pricing/mocks"
	"pawn-ledger/internal/event"
	"pawn-ledger/internal/event/mocks"
	"pawn-ledger/internal/pkg/apperrors"
	"pawn-ledger/internal/pkg/money"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockRepository struct {
	mock.Mock
}

func (m *mockRepository) Create(ctx context.Context, sale *Sale) error {
	return m.Called(ctx, sale).Error(0)
}

func (m *mockRepository) GetByID(ctx context.Context, saleID int64) (*Sale, error) {
	args := m.Called(ctx, saleID)
	if s, ok := args.Get(0).(*Sale); ok {
		return s, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockRepository) List(ctx context.Context, filter ListFilter) ([]*Sale, error) {
	args := m.Called(ctx, filter)
	if s, ok := args.Get(0).([]*Sale); ok {
		return s, args.Error(1)
	}
	return nil, args.Error(1)
}

var soldAt = time.Date(2024, 5, 4, 10, 30, 0, 0, time.UTC)

func newTestService() (*service, *mockRepository, *custmocks.MockCustomerService, *pricemocks.MockPricingService, *mocks.MockEventPublisher) {
	repo := new(mockRepository)
	customers := new(custmocks.MockCustomerService)
	prices := new(pricemocks.MockPricingService)
	pub := new(mocks.MockEventPublisher)
	svc := NewService(repo, customers, prices, pub, slog.New(slog.NewTextHandler(io.Discard, nil))).(*service)
	svc.now = func() time.Time { return soldAt }
	return svc, repo, customers, prices, pub
}

func TestNewSale(t *testing.T) {
	sale, err := NewSale(SaleParams{
		Description:    " anklet pair ",
		WeightMg:       250_000,
		PurityPermille: 925,
		MakingCharges:  50_000,
	}, 8_000, soldAt)
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(sale.ReceiptNumber, "SS-"))
	assert.Equal(t, "anklet pair", sale.Description)
	assert.Equal(t, money.Paise(2_050_000), sale.TotalAmount)
	assert.Equal(t, loan.ModeCash, sale.Mode)
	assert.Equal(t, soldAt, sale.SoldAt)

	_, err = NewSale(SaleParams{WeightMg: 0}, 8_000, soldAt)
	assert.ErrorIs(t, err, apperrors.ErrValidation)

	_, err = NewSale(SaleParams{WeightMg: 1_000, MakingCharges: -1}, 8_000, soldAt)
	assert.ErrorIs(t, err, apperrors.ErrValidation)

	_, err = NewSale(SaleParams{WeightMg: 1_000}, 0, soldAt)
	assert.ErrorIs(t, err, apperrors.ErrValidation)
}

func TestService_RecordSale(t *testing.T) {
	ctx := context.Background()

	t.Run("uses the current silver price when no rate is given", func(t *testing.T) {
		svc, repo, _, prices, pub := newTestService()
		prices.On("CurrentPrice", ctx, pricing.MetalSilver).
			Return(&pricing.MetalPrice{Metal: pricing.MetalSilver, PricePerGram: 8_000}, nil).Once()
		repo.On("Create", ctx, mock.AnythingOfType("*silver.Sale")).
			Run(func(args mock.Arguments) { args.Get(1).(*Sale).ID = 5 }).
			Return(nil).Once()
		pub.On("PublishSilverSold", ctx, mock.MatchedBy(func(p event.SilverSalePayload) bool {
			return p.SaleID == 5 && p.TotalAmount == 800_000 && p.CustomerID == nil
		})).Return(nil).Once()

		sale, err := svc.RecordSale(ctx, SaleParams{WeightMg: 100_000})
		require.NoError(t, err)
		assert.Equal(t, money.Paise(8_000), sale.RatePerGram)
		repo.AssertExpectations(t)
		prices.AssertExpectations(t)
		pub.AssertExpectations(t)
	})

	t.Run("explicit rate skips the price lookup", func(t *testing.T) {
		svc, repo, customers, prices, pub := newTestService()
		custID := int64(3)
		customers.On("GetCustomer", ctx, custID).Return(&customer.Customer{ID: custID, Active: true}, nil).Once()
		repo.On("Create", ctx, mock.Anything).Return(nil).Once()
		pub.On("PublishSilverSold", ctx, mock.Anything).Return(errors.New("broker down")).Once()

		sale, err := svc.RecordSale(ctx, SaleParams{CustomerID: &custID, WeightMg: 100_000, RatePerGram: 9_000})
		require.NoError(t, err)
		assert.Equal(t, money.Paise(900_000), sale.TotalAmount)
		prices.AssertNotCalled(t, "CurrentPrice", mock.Anything, mock.Anything)
		customers.AssertExpectations(t)
	})

	t.Run("unknown customer", func(t *testing.T) {
		svc, repo, customers, _, _ := newTestService()
		custID := int64(99)
		customers.On("GetCustomer", ctx, custID).Return(nil, customer.ErrNotFound).Once()

		_, err := svc.RecordSale(ctx, SaleParams{CustomerID: &custID, WeightMg: 100_000, RatePerGram: 9_000})
		assert.ErrorIs(t, err, apperrors.ErrValidation)
		repo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})

	t.Run("repository failure", func(t *testing.T) {
		svc, repo, _, _, pub := newTestService()
		repo.On("Create", ctx, mock.Anything).Return(apperrors.ErrDatabase).Once()

		_, err := svc.RecordSale(ctx, SaleParams{WeightMg: 100_000, RatePerGram: 9_000})
		assert.ErrorIs(t, err, apperrors.ErrDatabase)
		pub.AssertNotCalled(t, "PublishSilverSold", mock.Anything, mock.Anything)
	})
}

func TestService_GetSale(t *testing.T) {
	ctx := context.Background()
	svc, repo, _, _, _ := newTestService()
	repo.On("GetByID", ctx, int64(1)).Return(&Sale{ID: 1}, nil).Once()
	repo.On("GetByID", ctx, int64(2)).Return(nil, apperrors.ErrNotFound).Once()

	sale, err := svc.GetSale(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(1), sale.ID)

	_, err = svc.GetSale(ctx, 2)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestService_ListSales(t *testing.T) {
	ctx := context.Background()
	svc, repo, _, _, _ := newTestService()

	_, err := svc.ListSales(ctx, ListFilter{From: soldAt, To: soldAt.AddDate(0, 0, -1)})
	assert.ErrorIs(t, err, apperrors.ErrValidation)

	filter := ListFilter{From: soldAt.AddDate(0, -1, 0), To: soldAt}
	repo.On("List", ctx, filter).Return([]*Sale{{ID: 1}, {ID: 2}}, nil).Once()
	sales, err := svc.ListSales(ctx, filter)
	require.NoError(t, err)
	assert.Len(t, sales, 2)
}
