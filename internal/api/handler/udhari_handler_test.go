package handler

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"pawn-ledger/internal/api/handler/dto"
	"pawn-ledger/internal/domain/customer"
	"pawn-ledger/internal/domain/udhari"
	udharimocks "pawn-ledger/internal/domain/udhari/mocks"
	"pawn-ledger/internal/pkg/apperrors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestUdhariHandler_RecordTransaction(t *testing.T) {
	t.Run("given", func(t *testing.T) {
		svc := new(udharimocks.MockUdhariService)
		h := NewUdhariHandler(svc, testLogger())
		svc.On("RecordTransaction", mock.Anything, udhari.TxnParams{CustomerID: 5, Kind: udhari.KindGiven, Amount: 200000, Note: "festival"}).
			Return(&udhari.Transaction{ID: 1, CustomerID: 5, Kind: udhari.KindGiven, Amount: 200000, BalanceAfter: 200000}, nil).Once()

		rec := httptest.NewRecorder()
		h.RecordTransaction(rec, newRequest(http.MethodPost, "/udhari/transactions", `{"customerId":5,"kind":"GIVEN","amount":"2000","note":"festival"}`))

		require.Equal(t, http.StatusCreated, rec.Code)
		var resp dto.UdhariTransactionResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, "2000.00", resp.BalanceAfter)
		svc.AssertExpectations(t)
	})

	t.Run("received above balance", func(t *testing.T) {
		svc := new(udharimocks.MockUdhariService)
		h := NewUdhariHandler(svc, testLogger())
		svc.On("RecordTransaction", mock.Anything, mock.Anything).
			Return(nil, fmt.Errorf("%w: received 500.00 exceeds outstanding udhari 0.00", apperrors.ErrInvalidPaymentAmount)).Once()

		rec := httptest.NewRecorder()
		h.RecordTransaction(rec, newRequest(http.MethodPost, "/udhari/transactions", `{"customerId":5,"kind":"RECEIVED","amount":"500"}`))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("unknown kind", func(t *testing.T) {
		svc := new(udharimocks.MockUdhariService)
		h := NewUdhariHandler(svc, testLogger())

		rec := httptest.NewRecorder()
		h.RecordTransaction(rec, newRequest(http.MethodPost, "/udhari/transactions", `{"customerId":5,"kind":"LENT","amount":"500"}`))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "kind", decodeErrorResponse(t, rec).Field)
	})
}

func TestUdhariHandler_GetCustomerAccount(t *testing.T) {
	svc := new(udharimocks.MockUdhariService)
	h := NewUdhariHandler(svc, testLogger())
	svc.On("GetAccount", mock.Anything, int64(5)).Return(&udhari.Account{CustomerID: 5, OutstandingBalance: 150000}, nil).Once()
	svc.On("ListTransactions", mock.Anything, int64(5), 10).Return([]udhari.Transaction{
		{ID: 2, Kind: udhari.KindReceived, Amount: 50000, BalanceAfter: 150000},
		{ID: 1, Kind: udhari.KindGiven, Amount: 200000, BalanceAfter: 200000},
	}, nil).Once()
	svc.On("GetAccount", mock.Anything, int64(6)).Return(nil, customer.ErrNotFound).Once()

	rec := httptest.NewRecorder()
	h.GetCustomerAccount(rec, newRequest(http.MethodGet, "/customers/5/udhari?limit=10", "", "customerID", "5"))

	require.Equal(t, http.StatusOK, rec.Code)
	var resp dto.UdhariStatementResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "1500.00", resp.Account.OutstandingBalance)
	assert.Len(t, resp.Transactions, 2)

	rec = httptest.NewRecorder()
	h.GetCustomerAccount(rec, newRequest(http.MethodGet, "/customers/6/udhari", "", "customerID", "6"))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	svc.AssertExpectations(t)
}

func TestUdhariHandler_OutstandingAndSummary(t *testing.T) {
	svc := new(udharimocks.MockUdhariService)
	h := NewUdhariHandler(svc, testLogger())
	svc.On("ListOutstanding", mock.Anything).Return([]udhari.Account{{CustomerID: 5, OutstandingBalance: 150000}}, nil).Once()
	svc.On("Summary", mock.Anything).Return(&udhari.Summary{Accounts: 1, TotalOutstanding: 150000}, nil).Once()

	rec := httptest.NewRecorder()
	h.ListOutstanding(rec, newRequest(http.MethodGet, "/udhari/outstanding", ""))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	h.Summary(rec, newRequest(http.MethodGet, "/udhari/summary", ""))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"accounts":1,"totalOutstanding":"1500.00"}`, rec.Body.String())
	svc.AssertExpectations(t)
}
