package event

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"pawn-ledger/internal/infrastructure/monitoring"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
)

type amqpChannel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

type RabbitMQEventPublisher struct {
	openChannel  func() (amqpChannel, error)
	exchangeName string
	logger       *slog.Logger
	now          func() time.Time
}

var _ EventPublisher = (*RabbitMQEventPublisher)(nil)

func NewRabbitMQEventPublisher(conn *amqp.Connection, exchangeName string, logger *slog.Logger) (*RabbitMQEventPublisher, error) {
	if conn == nil {
		return nil, errors.New("RabbitMQ connection cannot be nil")
	}
	if exchangeName == "" {
		return nil, errors.New("RabbitMQ exchange name cannot be empty")
	}
	if logger == nil {
		panic("logger cannot be nil")
	}

	tempCh, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("failed to open temporary channel for exchange declaration: %w", err)
	}
	defer tempCh.Close()

	if err := tempCh.ExchangeDeclare(exchangeName, amqp.ExchangeTopic, true, false, false, false, nil); err != nil {
		return nil, fmt.Errorf("failed to declare exchange '%s': %w", exchangeName, err)
	}
	logger.Info("Ensured RabbitMQ exchange exists", "exchange", exchangeName, "type", amqp.ExchangeTopic)

	open := func() (amqpChannel, error) {
		return conn.Channel()
	}
	return newPublisher(open, exchangeName, logger), nil
}

func newPublisher(open func() (amqpChannel, error), exchangeName string, logger *slog.Logger) *RabbitMQEventPublisher {
	return &RabbitMQEventPublisher{
		openChannel:  open,
		exchangeName: exchangeName,
		logger:       logger.With("component", "RabbitMQEventPublisher", "exchange", exchangeName),
		now:          time.Now,
	}
}

func (p *RabbitMQEventPublisher) publish(ctx context.Context, routingKey string, payload any) (err error) {
	logCtx := p.logger.With(slog.String("routingKey", routingKey))
	defer func() {
		status := "published"
		if err != nil {
			status = "failed"
		}
		monitoring.RecordEventPublished(routingKey, status)
	}()

	envelope := Envelope{
		EventID:   uuid.NewString(),
		Type:      routingKey,
		Timestamp: p.now().UTC(),
		Payload:   payload,
	}
	body, err := json.Marshal(envelope)
	if err != nil {
		logCtx.ErrorContext(ctx, "Failed to marshal event payload to JSON", slog.Any("error", err))
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	channel, err := p.openChannel()
	if err != nil {
		logCtx.ErrorContext(ctx, "Failed to open RabbitMQ channel", slog.Any("error", err))
		return fmt.Errorf("failed to open channel: %w", err)
	}
	defer channel.Close()

	logCtx.DebugContext(ctx, "Publishing message", "eventId", envelope.EventID, "bodySize", len(body))

	err = channel.PublishWithContext(ctx, p.exchangeName, routingKey, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    envelope.Timestamp,
		MessageId:    envelope.EventID,
		Type:         routingKey,
		Body:         body,
		AppId:        publisherAppID,
	})
	if err != nil {
		logCtx.ErrorContext(ctx, "Failed to publish message to RabbitMQ", slog.Any("error", err))
		return fmt.Errorf("failed to publish message: %w", err)
	}

	logCtx.InfoContext(ctx, "Successfully published message", "eventId", envelope.EventID)
	return nil
}

func (p *RabbitMQEventPublisher) PublishCustomerCreated(ctx context.Context, payload CustomerPayload) error {
	return p.publish(ctx, RoutingKeyCustomerCreated, payload)
}

func (p *RabbitMQEventPublisher) PublishCustomerUpdated(ctx context.Context, payload CustomerPayload) error {
	return p.publish(ctx, RoutingKeyCustomerUpdated, payload)
}

func (p *RabbitMQEventPublisher) PublishLoanCreated(ctx context.Context, payload LoanPayload) error {
	return p.publish(ctx, RoutingKeyLoanCreated, payload)
}

func (p *RabbitMQEventPublisher) PublishLoanPayment(ctx context.Context, payload LoanPaymentPayload) error {
	return p.publish(ctx, RoutingKeyLoanPayment, payload)
}

func (p *RabbitMQEventPublisher) PublishLoanClosed(ctx context.Context, payload LoanPayload) error {
	return p.publish(ctx, RoutingKeyLoanClosed, payload)
}

func (p *RabbitMQEventPublisher) PublishLoanOverdue(ctx context.Context, payload LoanOverduePayload) error {
	return p.publish(ctx, RoutingKeyLoanOverdue, payload)
}

func (p *RabbitMQEventPublisher) PublishSilverSold(ctx context.Context, payload SilverSalePayload) error {
	return p.publish(ctx, RoutingKeySilverSold, payload)
}

func (p *RabbitMQEventPublisher) PublishUdhariRecorded(ctx context.Context, payload UdhariPayload) error {
	return p.publish(ctx, RoutingKeyUdhariRecorded, payload)
}

func (p *RabbitMQEventPublisher) PublishPriceUpdated(ctx context.Context, payload PricePayload) error {
	return p.publish(ctx, RoutingKeyPriceUpdated, payload)
}
