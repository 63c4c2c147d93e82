package event

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Handler errors wrapping these are dropped instead of retried.
var (
	ErrMalformed   = errors.New("malformed event")
	ErrUnsupported = errors.New("unsupported event")
)

// MessageHandler processes one delivery. The consumer settles the delivery
// from the returned error; handlers never Ack or Nack themselves.
type MessageHandler func(ctx context.Context, d amqp.Delivery) error

type ConsumerConfig struct {
	Exchange    string
	Queue       string
	ConsumerTag string
	RoutingKeys []string
	Prefetch    int
}

type consumerChannel interface {
	ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args amqp.Table) error
	QueueDeclare(name string, durable, autoDelete, exclusive, noWait bool, args amqp.Table) (amqp.Queue, error)
	QueueBind(name, key, exchange string, noWait bool, args amqp.Table) error
	Qos(prefetchCount, prefetchSize int, global bool) error
	Consume(queue, consumer string, autoAck, exclusive, noLocal, noWait bool, args amqp.Table) (<-chan amqp.Delivery, error)
	Cancel(consumer string, noWait bool) error
	Close() error
}

// Consumer reads ledger events from a durable queue bound to the topic exchange.
type Consumer struct {
	channel     consumerChannel
	queueName   string
	consumerTag string
	handler     MessageHandler
	logger      *slog.Logger
	wg          sync.WaitGroup
	cancelFunc  context.CancelFunc
}

func NewConsumer(conn *amqp.Connection, cfg ConsumerConfig, handler MessageHandler, logger *slog.Logger) (*Consumer, error) {
	if len(cfg.RoutingKeys) == 0 {
		return nil, fmt.Errorf("consumer for queue '%s' needs at least one routing key", cfg.Queue)
	}
	ch, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("failed to open RabbitMQ channel: %w", err)
	}
	return newConsumer(ch, cfg, handler, logger)
}

func newConsumer(ch consumerChannel, cfg ConsumerConfig, handler MessageHandler, logger *slog.Logger) (*Consumer, error) {
	if len(cfg.RoutingKeys) == 0 {
		_ = ch.Close()
		return nil, fmt.Errorf("consumer for queue '%s' needs at least one routing key", cfg.Queue)
	}
	prefetch := cfg.Prefetch
	if prefetch <= 0 {
		prefetch = 1
	}

	if err := ch.ExchangeDeclare(cfg.Exchange, amqp.ExchangeTopic, true, false, false, false, nil); err != nil {
		_ = ch.Close()
		return nil, fmt.Errorf("failed to declare exchange '%s': %w", cfg.Exchange, err)
	}

	q, err := ch.QueueDeclare(cfg.Queue, true, false, false, false, nil)
	if err != nil {
		_ = ch.Close()
		return nil, fmt.Errorf("failed to declare queue '%s': %w", cfg.Queue, err)
	}

	for _, key := range cfg.RoutingKeys {
		if err = ch.QueueBind(q.Name, key, cfg.Exchange, false, nil); err != nil {
			_ = ch.Close()
			return nil, fmt.Errorf("failed to bind queue '%s' with key '%s': %w", q.Name, key, err)
		}
	}
	logger.Info("Queue bound to exchange", "queue", q.Name, "exchange", cfg.Exchange, "keys", cfg.RoutingKeys)

	if err = ch.Qos(prefetch, 0, false); err != nil {
		_ = ch.Close()
		return nil, fmt.Errorf("failed to set QoS: %w", err)
	}

	return &Consumer{
		channel:     ch,
		queueName:   q.Name,
		consumerTag: cfg.ConsumerTag,
		handler:     handler,
		logger:      logger.With("component", "consumer", "queue", q.Name),
	}, nil
}

func (c *Consumer) Start(ctx context.Context) error {
	deliveries, err := c.channel.Consume(c.queueName, c.consumerTag, false, false, false, false, nil)
	if err != nil {
		_ = c.channel.Close()
		return fmt.Errorf("failed to register a consumer: %w", err)
	}

	loopCtx, cancel := context.WithCancel(ctx)
	c.cancelFunc = cancel

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		c.logger.Info("Consuming deliveries.")
		for {
			select {
			case <-loopCtx.Done():
				return
			case d, ok := <-deliveries:
				if !ok {
					c.logger.Warn("RabbitMQ delivery channel closed unexpectedly.")
					return
				}
				c.dispatch(loopCtx, d)
			}
		}
	}()

	return nil
}

// dispatch runs the handler and settles d. A panicking handler counts as a
// transient failure.
func (c *Consumer) dispatch(ctx context.Context, d amqp.Delivery) {
	var err error
	func() {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("handler panic: %v", r)
			}
		}()
		err = c.handler(ctx, d)
	}()

	if err != nil {
		c.logger.WarnContext(ctx, "Delivery not processed",
			slog.String("routingKey", d.RoutingKey),
			slog.Bool("redelivered", d.Redelivered),
			slog.Any("error", err))
	}
	if settleErr := Settle(d, err); settleErr != nil {
		c.logger.ErrorContext(ctx, "Failed to settle delivery", slog.Uint64("deliveryTag", d.DeliveryTag), slog.Any("error", settleErr))
	}
}

// Settle acks a processed delivery, drops malformed or unsupported ones and
// requeues any other failure once.
func Settle(d amqp.Delivery, handlerErr error) error {
	switch {
	case handlerErr == nil:
		return d.Ack(false)
	case errors.Is(handlerErr, ErrUnsupported):
		return d.Reject(false)
	case errors.Is(handlerErr, ErrMalformed):
		return d.Nack(false, false)
	default:
		return d.Nack(false, !d.Redelivered)
	}
}

func (c *Consumer) Stop() {
	if c.cancelFunc == nil {
		c.logger.Warn("Consumer stop called before Start")
		return
	}

	if err := c.channel.Cancel(c.consumerTag, false); err != nil {
		c.logger.Warn("Failed to cancel consumer tag", "tag", c.consumerTag, "error", err)
	}
	c.cancelFunc()
	c.wg.Wait()

	if err := c.channel.Close(); err != nil {
		c.logger.Error("Failed to close consumer channel", "error", err)
		return
	}
	c.logger.Info("Consumer stopped.")
}
