package handler

import (
	"fmt"
	"log/slog"
	"net/http"

	"pawn-ledger/internal/api/handler/dto"
	"pawn-ledger/internal/domain/silver"
	"pawn-ledger/internal/pkg/apperrors"
)

type SilverHandler struct {
	service silver.Service
	logger  *slog.Logger
}

func NewSilverHandler(s silver.Service, l *slog.Logger) *SilverHandler {
	if s == nil {
		panic("silver service cannot be nil")
	}
	return &SilverHandler{service: s, logger: l.With("component", "SilverHandler")}
}

// RecordSale handles POST /silver-sales
// @Summary Record a silver sale
// @Description Without ratePerGram the current silver price is used. Total is weight times rate plus making charges.
// @Tags Silver
// @Accept json
// @Produce json
// @Param request body dto.SilverSaleRequest true "Sale"
// @Success 201 {object} dto.SilverSaleResponse
// @Failure 400 {object} dto.ErrorResponse
// @Failure 404 {object} dto.ErrorResponse "Customer not found"
// @Router /silver-sales [post]
// @Security BearerAuth
func (h *SilverHandler) RecordSale(w http.ResponseWriter, r *http.Request) {
	var req dto.SilverSaleRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, fmt.Errorf("%w: %v", apperrors.ErrInvalidArgument, err))
		return
	}
	params, err := req.ToParams()
	if err != nil {
		respondError(w, err)
		return
	}

	sale, err := h.service.RecordSale(r.Context(), params)
	if err != nil {
		h.logger.WarnContext(r.Context(), "Failed to record silver sale", slog.Any("error", err))
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, dto.NewSilverSaleResponse(sale))
}

// GetSale handles GET /silver-sales/{saleID}
// @Summary Get a silver sale
// @Tags Silver
// @Produce json
// @Param saleID path int true "Sale ID"
// @Success 200 {object} dto.SilverSaleResponse
// @Failure 404 {object} dto.ErrorResponse
// @Router /silver-sales/{saleID} [get]
// @Security BearerAuth
func (h *SilverHandler) GetSale(w http.ResponseWriter, r *http.Request) {
	saleID, err := idFromURL(r, "saleID")
	if err != nil {
		respondError(w, err)
		return
	}
	sale, err := h.service.GetSale(r.Context(), saleID)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, dto.NewSilverSaleResponse(sale))
}

// ListSales handles GET /silver-sales
// @Summary List silver sales
// @Tags Silver
// @Produce json
// @Param from query string false "YYYY-MM-DD"
// @Param to query string false "YYYY-MM-DD, inclusive"
// @Param customerId query int false "Filter by customer"
// @Success 200 {array} dto.SilverSaleResponse
// @Failure 400 {object} dto.ErrorResponse
// @Router /silver-sales [get]
// @Security BearerAuth
func (h *SilverHandler) ListSales(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	from, err := dto.ParseDate("from", q.Get("from"))
	if err != nil {
		respondError(w, err)
		return
	}
	to, err := dto.ParseDate("to", q.Get("to"))
	if err != nil {
		respondError(w, err)
		return
	}
	customerID, err := queryInt64(r, "customerId")
	if err != nil {
		respondError(w, err)
		return
	}

	sales, err := h.service.ListSales(r.Context(), silver.ListFilter{From: from, To: to, CustomerID: customerID})
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, dto.NewSilverSaleListResponse(sales))
}
