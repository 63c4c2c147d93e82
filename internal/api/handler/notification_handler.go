package handler

import (
	"log/slog"
	"net/http"

	"pawn-ledger/internal/api/handler/dto"
	"pawn-ledger/internal/domain/notification"
)

type NotificationHandler struct {
	service notification.Service
	logger  *slog.Logger
}

func NewNotificationHandler(s notification.Service, l *slog.Logger) *NotificationHandler {
	if s == nil {
		panic("notification service cannot be nil")
	}
	return &NotificationHandler{service: s, logger: l.With("component", "NotificationHandler")}
}

// ListForCustomer handles GET /customers/{customerID}/notifications
// @Summary Reminders sent to a customer
// @Tags Customers
// @Produce json
// @Param customerID path int true "Customer ID"
// @Param limit query int false "Number of notifications, newest first"
// @Success 200 {array} dto.NotificationResponse
// @Failure 400 {object} dto.ErrorResponse
// @Router /customers/{customerID}/notifications [get]
// @Security BearerAuth
func (h *NotificationHandler) ListForCustomer(w http.ResponseWriter, r *http.Request) {
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
	list, err := h.service.ListForCustomer(r.Context(), customerID, limit)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, dto.NewNotificationListResponse(list))
}
