// Package notify consumes ledger events and stores customer reminders.
package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"pawn-ledger/internal/domain/notification"
	"pawn-ledger/internal/event"
	"pawn-ledger/internal/infrastructure/monitoring"

	amqp "github.com/rabbitmq/amqp091-go"
)

const (
	outcomeStored      = "stored"
	outcomeMalformed   = "malformed"
	outcomeUnsupported = "unsupported"
	outcomeFailed      = "failed"
)

type EventHandler struct {
	builder *notification.Builder
	service notification.Service
	logger  *slog.Logger
}

func NewEventHandler(builder *notification.Builder, service notification.Service, logger *slog.Logger) *EventHandler {
	return &EventHandler{
		builder: builder,
		service: service,
		logger:  logger.With("component", "NotifyEventHandler"),
	}
}

// HandleDelivery turns d into a stored notification. Settling d is left to
// event.Settle, which maps the returned error to ack, drop or requeue.
func (h *EventHandler) HandleDelivery(ctx context.Context, d amqp.Delivery) error {
	logCtx := h.logger.With(slog.Uint64("deliveryTag", d.DeliveryTag), slog.String("routingKey", d.RoutingKey))

	var env event.RawEnvelope
	if err := json.Unmarshal(d.Body, &env); err != nil {
		logCtx.ErrorContext(ctx, "Failed to unmarshal event envelope", slog.Any("error", err), slog.String("body", string(d.Body)))
		monitoring.RecordNotifierMessage(outcomeMalformed)
		return fmt.Errorf("%w: %w", event.ErrMalformed, err)
	}
	if env.Type == "" {
		env.Type = d.RoutingKey
	}
	if env.EventID == "" {
		env.EventID = d.MessageId
	}
	logCtx = logCtx.With(slog.String("eventID", env.EventID), slog.String("eventType", env.Type))

	n, err := h.builder.Build(env)
	switch {
	case errors.Is(err, notification.ErrUnsupportedEvent):
		logCtx.WarnContext(ctx, "Received event with no notification. Discarding.")
		monitoring.RecordNotifierMessage(outcomeUnsupported)
		return fmt.Errorf("%w: %w", event.ErrUnsupported, err)
	case err != nil:
		logCtx.ErrorContext(ctx, "Failed to build notification", slog.Any("error", err))
		monitoring.RecordNotifierMessage(outcomeMalformed)
		return fmt.Errorf("%w: %w", event.ErrMalformed, err)
	}

	logCtx = logCtx.With(slog.Int64("customerID", n.CustomerID))
	if err := h.service.Record(ctx, n); err != nil {
		logCtx.ErrorContext(ctx, "Failed to store notification", slog.Any("error", err), slog.Bool("redelivered", d.Redelivered))
		monitoring.RecordNotifierMessage(outcomeFailed)
		return fmt.Errorf("storing notification for event %s: %w", env.EventID, err)
	}

	monitoring.RecordNotifierMessage(outcomeStored)
	logCtx.InfoContext(ctx, "Successfully processed message")
	return nil
}
