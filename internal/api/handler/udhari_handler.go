package handler

import (
	"fmt"
	"log/slog"
	"net/http"

	"pawn-ledger/internal/api/handler/dto"
	"pawn-ledger/internal/domain/udhari"
	"pawn-ledger/internal/pkg/apperrors"
)

type UdhariHandler struct {
	service udhari.Service
	logger  *slog.Logger
}

func NewUdhariHandler(s udhari.Service, l *slog.Logger) *UdhariHandler {
	if s == nil {
		panic("udhari service cannot be nil")
	}
	return &UdhariHandler{service: s, logger: l.With("component", "UdhariHandler")}
}

// RecordTransaction handles POST /udhari/transactions
// @Summary Record udhari given or received
// @Description GIVEN raises what the customer owes, RECEIVED lowers it and may not exceed the balance.
// @Tags Udhari
// @Accept json
// @Produce json
// @Param request body dto.UdhariTransactionRequest true "Transaction"
// @Success 201 {object} dto.UdhariTransactionResponse
// @Failure 400 {object} dto.ErrorResponse
// @Failure 404 {object} dto.ErrorResponse "Customer not found"
// @Router /udhari/transactions [post]
// @Security BearerAuth
func (h *UdhariHandler) RecordTransaction(w http.ResponseWriter, r *http.Request) {
	var req dto.UdhariTransactionRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, fmt.Errorf("%w: %v", apperrors.ErrInvalidArgument, err))
		return
	}
	params, err := req.ToParams()
	if err != nil {
		respondError(w, err)
		return
	}

	txn, err := h.service.RecordTransaction(r.Context(), params)
	if err != nil {
		h.logger.WarnContext(r.Context(), "Udhari transaction rejected", slog.Int64("customerID", params.CustomerID), slog.Any("error", err))
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, dto.NewUdhariTransactionResponse(txn))
}

// GetCustomerAccount handles GET /customers/{customerID}/udhari
// @Summary Udhari account and recent transactions
// @Tags Customers
// @Produce json
// @Param customerID path int true "Customer ID"
// @Param limit query int false "Number of transactions, newest first"
// @Success 200 {object} dto.UdhariStatementResponse
// @Failure 404 {object} dto.ErrorResponse
// @Router /customers/{customerID}/udhari [get]
// @Security BearerAuth
func (h *UdhariHandler) GetCustomerAccount(w http.ResponseWriter, r *http.Request) {
	customerID, err := idFromURL(r, "customerID")
	if err != nil {
		respondError(w, err)
		return
	}
	limit, err := queryLimit(r)
	if err != nil {
		respondError(w, err)
		return
	}

	account, err := h.service.GetAccount(r.Context(), customerID)
	if err != nil {
		respondError(w, err)
		return
	}
	txns, err := h.service.ListTransactions(r.Context(), customerID, limit)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, dto.NewUdhariStatementResponse(account, txns))
}

// ListOutstanding handles GET /udhari/outstanding
// @Summary Customers owing udhari
// @Tags Udhari
// @Produce json
// @Success 200 {array} dto.UdhariAccountResponse
// @Router /udhari/outstanding [get]
// @Security BearerAuth
func (h *UdhariHandler) ListOutstanding(w http.ResponseWriter, r *http.Request) {
	accounts, err := h.service.ListOutstanding(r.Context())
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, dto.NewUdhariAccountListResponse(accounts))
}

// Summary handles GET /udhari/summary
// @Summary Total udhari outstanding
// @Tags Udhari
// @Produce json
// @Success 200 {object} dto.UdhariSummaryResponse
// @Router /udhari/summary [get]
// @Security BearerAuth
func (h *UdhariHandler) Summary(w http.ResponseWriter, r *http.Request) {
	sum, err := h.service.Summary(r.Context())
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, dto.NewUdhariSummaryResponse(sum))
}
