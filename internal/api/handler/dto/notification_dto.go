package dto

import (
	"time"

	"pawn-ledger/internal/domain/notification"
)

type NotificationResponse struct {
	ID         int64     `json:"id"`
	CustomerID int64     `json:"customerId"`
	EventID    string    `json:"eventId"`
	EventType  string    `json:"eventType"`
	Channel    string    `json:"channel"`
	Message    string    `json:"message"`
	Status     string    `json:"status"`
	CreatedAt  time.Time `json:"createdAt"`
}

func NewNotificationListResponse(ns []notification.Notification) []NotificationResponse {
	resp := make([]NotificationResponse, 0, len(ns))
	for _, n := range ns {
		resp = append(resp, NotificationResponse{
			ID:         n.ID,
			CustomerID: n.CustomerID,
			EventID:    n.EventID,
			EventType:  n.EventType,
			Channel:    string(n.Channel),
			Message:    n.Message,
			Status:     string(n.Status),
			CreatedAt:  n.CreatedAt,
		})
	}
	return resp
}
