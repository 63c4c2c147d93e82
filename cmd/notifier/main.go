package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"pawn-ledger/internal/config"
	"pawn-ledger/internal/domain/notification"
	"pawn-ledger/internal/event"
	"pawn-ledger/internal/infrastructure/database/postgres"
	"pawn-ledger/internal/infrastructure/logging"
	"pawn-ledger/internal/notify"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	amqp "github.com/rabbitmq/amqp091-go"
)

func main() {
	cfg, logger := initializeConfigAndLogger()
	ctx, cancel := setupSignalHandling()
	defer cancel()

	dbpool := setupDatabase(ctx, cfg, logger)
	defer closeDatabase(dbpool, logger)

	rabbitConn := setupRabbitMQ(cfg, logger)
	defer closeRabbitMQ(rabbitConn, logger)

	notificationService := notification.NewService(postgres.NewNotificationRepository(dbpool, logger), logger)
	eventHandler := notify.NewEventHandler(notification.NewBuilder(cfg.Notifier.ShopName), notificationService, logger)

	server := newMetricsServer(cfg, logger)
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Failed to start HTTP server", slog.Any("error", err))
			cancel()
		}
	}()

	consumer := setupConsumer(rabbitConn, cfg, eventHandler, logger)
	startConsumer(ctx, consumer, logger)

	waitForShutdownSignal(ctx, consumer, logger)

	logger.Info("Shutting down HTTP server...")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error shutting down HTTP server", slog.Any("error", err))
	}
	logger.Info("HTTP server shut down gracefully.")
}

func initializeConfigAndLogger() (*config.Config, *slog.Logger) {
	cfg, err := config.LoadConfig(".")
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	logger := logging.NewLogger(cfg.Logger).With("service", "notifier")
	slog.SetDefault(logger)
	logger.Info("Configuration loaded successfully")
	return cfg, logger
}

func setupSignalHandling() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}

func setupDatabase(ctx context.Context, cfg *config.Config, logger *slog.Logger) *pgxpool.Pool {
	dbpool, err := postgres.NewConnectionPool(ctx, cfg.Database, logger)
	if err != nil {
		logger.Error("Failed to connect to database", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("Database connection established")
	return dbpool
}

func closeDatabase(dbpool *pgxpool.Pool, logger *slog.Logger) {
	logger.Info("Closing database connection pool...")
	dbpool.Close()
}

func newMetricsServer(cfg *config.Config, logger *slog.Logger) *http.Server {
	path := cfg.Metrics.Path
	if path == "" {
		path = "/metrics"
	}
	logger.Info("Setting up Prometheus metrics endpoint", "path", path, "port", cfg.Notifier.Port)

	mux := http.NewServeMux()
	mux.Handle(path, promhttp.Handler())
	mux.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	return &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Notifier.Port),
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
}

func setupRabbitMQ(cfg *config.Config, logger *slog.Logger) *amqp.Connection {
	rabbitConn, err := connectRabbitMQ(cfg.RabbitMQ, logger)
	if err != nil {
		logger.Error("Failed to connect to RabbitMQ", slog.Any("error", err))
		os.Exit(1)
	}
	return rabbitConn
}

func closeRabbitMQ(rabbitConn *amqp.Connection, logger *slog.Logger) {
	logger.Info("Closing RabbitMQ connection...")
	if err := rabbitConn.Close(); err != nil && !errors.Is(err, amqp.ErrClosed) {
		logger.Error("Error closing RabbitMQ connection", slog.Any("error", err))
	}
}

func setupConsumer(rabbitConn *amqp.Connection, cfg *config.Config, eventHandler *notify.EventHandler, logger *slog.Logger) *event.Consumer {
	consumer, err := event.NewConsumer(rabbitConn, consumerConfig(cfg), eventHandler.HandleDelivery, logger)
	if err != nil {
		logger.Error("Failed to create RabbitMQ consumer", slog.Any("error", err))
		os.Exit(1)
	}
	return consumer
}

func consumerConfig(cfg *config.Config) event.ConsumerConfig {
	return event.ConsumerConfig{
		Exchange:    cfg.RabbitMQ.ExchangeName,
		Queue:       cfg.Notifier.QueueName,
		ConsumerTag: cfg.Notifier.ConsumerTag,
		RoutingKeys: notification.SupportedEvents,
		Prefetch:    cfg.Notifier.Prefetch,
	}
}

func startConsumer(ctx context.Context, consumer *event.Consumer, logger *slog.Logger) {
	if err := consumer.Start(ctx); err != nil {
		logger.Error("Failed to start RabbitMQ consumer", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("Consumer started successfully. Waiting for events or shutdown signal...")
}

func waitForShutdownSignal(ctx context.Context, consumer *event.Consumer, logger *slog.Logger) {
	<-ctx.Done()
	logger.Info("Shutdown signal received. Initiating graceful shutdown...")
	consumer.Stop()
	logger.Info("Notifier shut down gracefully.")
}

func connectRabbitMQ(cfg config.RabbitMQConfig, logger *slog.Logger) (*amqp.Connection, error) {
	uri, err := cfg.URI()
	if err != nil {
		return nil, err
	}
	if uri == "" {
		return nil, errors.New("rabbitmq.host is required for the notifier")
	}

	logger.Info("Connecting to RabbitMQ", "host", cfg.Host, "port", cfg.Port)
	conn, err := amqp.Dial(uri)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}
	logger.Info("RabbitMQ connection established.")

	go func() {
		errChan := conn.NotifyClose(make(chan *amqp.Error, 1))
		if closeErr := <-errChan; closeErr != nil {
			logger.Error("RabbitMQ connection closed unexpectedly", slog.Any("error", closeErr))
		}
	}()

	return conn, nil
}
