package handler

import (
	"fmt"
	"log/slog"
	"net/http"

	"pawn-ledger/internal/api/handler/dto"
	"pawn-ledger/internal/api/middleware"
	"pawn-ledger/internal/domain/pricing"
	"pawn-ledger/internal/pkg/apperrors"

	"github.com/go-chi/chi/v5"
)

type PriceHandler struct {
	service pricing.Service
	logger  *slog.Logger
}

func NewPriceHandler(s pricing.Service, l *slog.Logger) *PriceHandler {
	if s == nil {
		panic("pricing service cannot be nil")
	}
	return &PriceHandler{service: s, logger: l.With("component", "PriceHandler")}
}

func metalFromURL(r *http.Request) (pricing.Metal, error) {
	return pricing.ParseMetal(chi.URLParam(r, "metal"))
}

// CurrentPrices handles GET /prices
// @Summary Current gold and silver prices
// @Description Rupees per gram of fine metal. Source tells whether the rate came from cache, database or configured defaults.
// @Tags Prices
// @Produce json
// @Success 200 {array} dto.PriceResponse
// @Failure 500 {object} dto.ErrorResponse
// @Router /prices [get]
// @Security BearerAuth
func (h *PriceHandler) CurrentPrices(w http.ResponseWriter, r *http.Request) {
	prices, err := h.service.CurrentPrices(r.Context())
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, dto.NewPriceListResponse(prices))
}

// GetPrice handles GET /prices/{metal}
// @Summary Current price of one metal
// @Tags Prices
// @Produce json
// @Param metal path string true "GOLD or SILVER"
// @Success 200 {object} dto.PriceResponse
// @Failure 400 {object} dto.ErrorResponse
// @Failure 404 {object} dto.ErrorResponse "No price set and no default configured"
// @Router /prices/{metal} [get]
// @Security BearerAuth
func (h *PriceHandler) GetPrice(w http.ResponseWriter, r *http.Request) {
	metal, err := metalFromURL(r)
	if err != nil {
		respondError(w, err)
		return
	}
	price, err := h.service.CurrentPrice(r.Context(), metal)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, dto.NewPriceResponse(price))
}

// SetPrice handles PUT /prices/{metal}
// @Summary Set today's price
// @Description Admin only. Stores a new rate and refreshes the cache.
// @Tags Prices
// @Accept json
// @Produce json
// @Param metal path string true "GOLD or SILVER"
// @Param request body dto.SetPriceRequest true "Rupees per gram"
// @Success 200 {object} dto.PriceResponse
// @Failure 400 {object} dto.ErrorResponse
// @Failure 403 {object} dto.ErrorResponse
// @Router /prices/{metal} [put]
// @Security BearerAuth
func (h *PriceHandler) SetPrice(w http.ResponseWriter, r *http.Request) {
	metal, err := metalFromURL(r)
	if err != nil {
		respondError(w, err)
		return
	}
	var req dto.SetPriceRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, fmt.Errorf("%w: %v", apperrors.ErrInvalidArgument, err))
		return
	}
	paise, err := req.ToPaise()
	if err != nil {
		respondError(w, err)
		return
	}

	setBy := "system"
	if p, ok := middleware.PrincipalFrom(r.Context()); ok {
		setBy = p.Username
	}

	price, err := h.service.SetPrice(r.Context(), metal, paise, setBy)
	if err != nil {
		h.logger.WarnContext(r.Context(), "Failed to set price", slog.String("metal", string(metal)), slog.Any("error", err))
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, dto.NewPriceResponse(price))
}

// PriceHistory handles GET /prices/{metal}/history
// @Summary Price history
// @Tags Prices
// @Produce json
// @Param metal path string true "GOLD or SILVER"
// @Param limit query int false "Number of entries, newest first"
// @Success 200 {array} dto.PriceResponse
// @Failure 400 {object} dto.ErrorResponse
// @Router /prices/{metal}/history [get]
// @Security BearerAuth
func (h *PriceHandler) PriceHistory(w http.ResponseWriter, r *http.Request) {
	metal, err := metalFromURL(r)
	if err != nil {
		respondError(w, err)
		return
	}
	limit, err := queryLimit(r)
	if err != nil {
		respondError(w, err)
		return
	}
	history, err := h.service.History(r.Context(), metal, limit)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, dto.NewPriceHistoryResponse(history))
}
