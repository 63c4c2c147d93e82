package handler

import (
	"log/slog"
	"net/http"
	"strings"

	"pawn-ledger/internal/api/handler/dto"
	"pawn-ledger/internal/domain/ledger"
)

type LedgerHandler struct {
	service ledger.Service
	logger  *slog.Logger
}

func NewLedgerHandler(s ledger.Service, l *slog.Logger) *LedgerHandler {
	if s == nil {
		panic("ledger service cannot be nil")
	}
	return &LedgerHandler{service: s, logger: l.With("component", "LedgerHandler")}
}

// ledgerFilter reads from, to, customerId, kind and limit. kind may repeat or be comma separated.
func ledgerFilter(r *http.Request) (ledger.Filter, error) {
	q := r.URL.Query()
	var f ledger.Filter
	var err error

	if f.From, err = dto.ParseDate("from", q.Get("from")); err != nil {
		return f, err
	}
	if f.To, err = dto.ParseDate("to", q.Get("to")); err != nil {
		return f, err
	}
	if f.CustomerID, err = queryInt64(r, "customerId"); err != nil {
		return f, err
	}
	if f.Limit, err = queryLimit(r); err != nil {
		return f, err
	}
	for _, raw := range q["kind"] {
		for _, s := range strings.Split(raw, ",") {
			if strings.TrimSpace(s) == "" {
				continue
			}
			kind, err := ledger.ParseKind(s)
			if err != nil {
				return f, err
			}
			f.Kinds = append(f.Kinds, kind)
		}
	}
	return f, nil
}

// ListTransactions handles GET /transactions
// @Summary Daybook entries
// @Description Every money movement in the date range, newest first. Defaults to the last 30 days.
// @Tags Transactions
// @Produce json
// @Param from query string false "YYYY-MM-DD"
// @Param to query string false "YYYY-MM-DD, inclusive"
// @Param customerId query int false "Filter by customer"
// @Param kind query string false "LOAN_DISBURSED, LOAN_PAYMENT, SILVER_SALE, UDHARI_GIVEN or UDHARI_RECEIVED"
// @Param limit query int false "Maximum entries"
// @Success 200 {array} dto.LedgerEntryResponse
// @Failure 400 {object} dto.ErrorResponse
// @Router /transactions [get]
// @Security BearerAuth
func (h *LedgerHandler) ListTransactions(w http.ResponseWriter, r *http.Request) {
	filter, err := ledgerFilter(r)
	if err != nil {
		respondError(w, err)
		return
	}
	entries, err := h.service.ListEntries(r.Context(), filter)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, dto.NewLedgerEntryListResponse(entries))
}

// Summary handles GET /transactions/summary
// @Summary Daybook totals
// @Description Count and total per kind with money in, money out and net for the range.
// @Tags Transactions
// @Produce json
// @Param from query string false "YYYY-MM-DD"
// @Param to query string false "YYYY-MM-DD, inclusive"
// @Param customerId query int false "Filter by customer"
// @Param kind query string false "Restrict to kinds"
// @Success 200 {object} dto.LedgerSummaryResponse
// @Failure 400 {object} dto.ErrorResponse
// @Router /transactions/summary [get]
// @Security BearerAuth
func (h *LedgerHandler) Summary(w http.ResponseWriter, r *http.Request) {
	filter, err := ledgerFilter(r)
	if err != nil {
		respondError(w, err)
		return
	}
	sum, err := h.service.Summarize(r.Context(), filter)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, dto.NewLedgerSummaryResponse(sum))
}
