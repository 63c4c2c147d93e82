package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"pawn-ledger/internal/api"
	mw "pawn-ledger/internal/api/middleware"
	"pawn-ledger/internal/batch"
	"pawn-ledger/internal/config"
	"pawn-ledger/internal/domain/customer"
	"pawn-ledger/internal/domain/ledger"
	"pawn-ledger/internal/domain/loan"
	"pawn-ledger/internal/domain/notification"
	"pawn-ledger/internal/domain/pricing"
	"pawn-ledger/internal/domain/silver"
	"pawn-ledger/internal/domain/udhari"
	"pawn-ledger/internal/domain/user"
	"pawn-ledger/internal/event"
	"pawn-ledger/internal/infrastructure/cache"
	"pawn-ledger/internal/infrastructure/database/postgres"
	"pawn-ledger/internal/infrastructure/logging"

	"github.com/jackc/pgx/v5/pgxpool"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"
	"github.com/robfig/cron/v3"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

// @title Pawn Ledger API
// @version 1.0
// @description Customer, loan, silver sale and udhari bookkeeping for a jewelry and pawn shop.

// @license.name MIT
// @license.url https://opensource.org/licenses/MIT

// @BasePath /

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	cfg, logger := initializeApp()

	dbPool := initializeDatabase(cfg, logger)
	defer closeDatabase(dbPool, logger)

	redisClient := initializeRedis(cfg, logger)
	if redisClient != nil {
		defer func() { _ = redisClient.Close() }()
	}

	publisher, amqpConn := initializePublisher(cfg, logger)
	if amqpConn != nil {
		defer func() { _ = amqpConn.Close() }()
	}

	services, loanRepo, err := initializeServices(cfg, dbPool, redisClient, publisher, logger)
	if err != nil {
		logger.Error("Failed to initialize services", "error", err)
		os.Exit(1)
	}

	bootstrapAdmin(cfg, services.Users, logger)

	overdueJob := batch.NewOverdueLoanJob(loanRepo, services.Loans, services.Customers, cfg.Batch.OverdueConcurrency, logger)
	cronScheduler := startBatchJobs(cfg, logger, overdueJob)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var limiter *mw.RateLimiterMiddleware
	if cfg.Server.RateLimit.Enabled {
		var cmdable redis.Cmdable
		if redisClient != nil {
			cmdable = redisClient
		}
		limiter = mw.NewRateLimiterMiddleware(cmdable, cfg.Server.RateLimit, logger)
		go limiter.RunCleanup(ctx, 10*time.Minute)
	}

	router := api.SetupRouter(services, limiter, cfg, logger)

	srv, serverErrors, shutdownChan := startServer(cfg, router, logger)
	handleShutdown(srv, cronScheduler, shutdownChan, serverErrors, logger)
}

func initializeApp() (*config.Config, *slog.Logger) {
	cfg, err := config.LoadConfig(".")
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	logger := logging.NewLogger(cfg.Logger)
	slog.SetDefault(logger)
	logger.Info("Application starting...", "config_source", viper.ConfigFileUsed())

	return cfg, logger
}

func initializeDatabase(cfg *config.Config, logger *slog.Logger) *pgxpool.Pool {
	logger.Info("Initializing database connection pool...")
	ctx := context.Background()
	dbPool, err := postgres.NewConnectionPool(ctx, cfg.Database, logger)
	if err != nil {
		logger.Error("Failed to initialize database connection pool", "error", err)
		os.Exit(1)
	}

	if cfg.Database.MigrateOnStart {
		if err := postgres.ApplyMigrations(ctx, dbPool, logger); err != nil {
			logger.Error("Failed to apply database migrations", "error", err)
			dbPool.Close()
			os.Exit(1)
		}
	}
	return dbPool
}

func closeDatabase(dbPool *pgxpool.Pool, logger *slog.Logger) {
	logger.Info("Closing database connection pool...")
	dbPool.Close()
}

// initializeRedis returns nil when no address is configured or the server is unreachable.
func initializeRedis(cfg *config.Config, logger *slog.Logger) *redis.Client {
	if cfg.Redis.Addr == "" {
		logger.Info("Redis not configured; price cache and shared rate limiting disabled.")
		return nil
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		logger.Warn("Redis unreachable; continuing without it", "addr", cfg.Redis.Addr, "error", err)
		_ = client.Close()
		return nil
	}
	logger.Info("Connected to Redis", "addr", cfg.Redis.Addr)
	return client
}

// initializePublisher falls back to a NopPublisher when RabbitMQ is absent or unreachable.
func initializePublisher(cfg *config.Config, logger *slog.Logger) (event.EventPublisher, *amqp.Connection) {
	uri, err := cfg.RabbitMQ.URI()
	if err != nil {
		logger.Warn("Invalid RabbitMQ configuration; events will be dropped", "error", err)
		return event.NewNopPublisher(logger), nil
	}
	if uri == "" {
		logger.Info("RabbitMQ not configured; events will be dropped.")
		return event.NewNopPublisher(logger), nil
	}

	conn, err := amqp.Dial(uri)
	if err != nil {
		logger.Warn("Failed to connect to RabbitMQ; events will be dropped", "host", cfg.RabbitMQ.Host, "error", err)
		return event.NewNopPublisher(logger), nil
	}

	publisher, err := event.NewRabbitMQEventPublisher(conn, cfg.RabbitMQ.ExchangeName, logger)
	if err != nil {
		logger.Warn("Failed to set up RabbitMQ publisher; events will be dropped", "error", err)
		_ = conn.Close()
		return event.NewNopPublisher(logger), nil
	}
	logger.Info("RabbitMQ publisher ready", "exchange", cfg.RabbitMQ.ExchangeName)
	return publisher, conn
}

func loanTerms(cfg config.LoanConfig) (loan.Terms, error) {
	goldLTV, err := decimal.NewFromString(cfg.MaxLtvGold)
	if err != nil {
		return loan.Terms{}, fmt.Errorf("invalid loan.maxLtvGold %q: %w", cfg.MaxLtvGold, err)
	}
	silverLTV, err := decimal.NewFromString(cfg.MaxLtvSilver)
	if err != nil {
		return loan.Terms{}, fmt.Errorf("invalid loan.maxLtvSilver %q: %w", cfg.MaxLtvSilver, err)
	}
	return loan.Terms{
		DefaultInterestRateBps: cfg.DefaultInterestRateBps,
		DefaultTermMonths:      cfg.DefaultTermMonths,
		MaxLTV: map[pricing.Metal]decimal.Decimal{
			pricing.MetalGold:   goldLTV,
			pricing.MetalSilver: silverLTV,
		},
		OverdueGraceMonths: cfg.OverdueGraceMonths,
	}, nil
}

func priceDefaults(cfg config.PricingConfig) (pricing.Defaults, error) {
	gold, err := cfg.DefaultGold()
	if err != nil {
		return nil, fmt.Errorf("invalid pricing.defaultGoldPerGram: %w", err)
	}
	silverPrice, err := cfg.DefaultSilver()
	if err != nil {
		return nil, fmt.Errorf("invalid pricing.defaultSilverPerGram: %w", err)
	}
	return pricing.Defaults{pricing.MetalGold: gold, pricing.MetalSilver: silverPrice}, nil
}

func initializeServices(
	cfg *config.Config,
	dbPool *pgxpool.Pool,
	redisClient *redis.Client,
	publisher event.EventPublisher,
	logger *slog.Logger,
) (api.Services, *postgres.LoanRepository, error) {
	logger.Info("Initializing application components...")

	terms, err := loanTerms(cfg.Loan)
	if err != nil {
		return api.Services{}, nil, err
	}
	defaults, err := priceDefaults(cfg.Pricing)
	if err != nil {
		return api.Services{}, nil, err
	}

	var priceCache pricing.Cache
	if redisClient != nil {
		priceCache = cache.NewRedisPriceCache(redisClient, logger)
	}

	loanRepo := postgres.NewLoanRepository(dbPool, logger)

	customerService := customer.NewCustomerService(postgres.NewCustomerRepository(dbPool, logger), publisher, logger)
	pricingService := pricing.NewService(postgres.NewPriceRepository(dbPool, logger), priceCache, publisher, defaults, cfg.Pricing.CacheTTL, logger)

	services := api.Services{
		Customers:     customerService,
		Pricing:       pricingService,
		Loans:         loan.NewLoanService(loanRepo, customerService, pricingService, publisher, terms, logger),
		Silver:        silver.NewService(postgres.NewSilverSaleRepository(dbPool, logger), customerService, pricingService, publisher, logger),
		Udhari:        udhari.NewService(postgres.NewUdhariRepository(dbPool, logger), customerService, publisher, logger),
		Ledger:        ledger.NewService(postgres.NewLedgerRepository(dbPool, logger), logger),
		Users:         user.NewService(postgres.NewUserRepository(dbPool, logger), logger),
		Notifications: notification.NewService(postgres.NewNotificationRepository(dbPool, logger), logger),
	}
	return services, loanRepo, nil
}

func bootstrapAdmin(cfg *config.Config, users user.Service, logger *slog.Logger) {
	if cfg.Bootstrap.AdminPassword == "" {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := users.EnsureBootstrapAdmin(ctx, cfg.Bootstrap.AdminUsername, cfg.Bootstrap.AdminPassword); err != nil {
		logger.Error("Failed to bootstrap admin user", "username", cfg.Bootstrap.AdminUsername, "error", err)
	}
}

func startServer(cfg *config.Config, router http.Handler, logger *slog.Logger) (*http.Server, <-chan error, <-chan os.Signal) {
	logger.Info("Setting up HTTP server...", "port", cfg.Server.Port)
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
		ErrorLog:     slog.NewLogLogger(logger.Handler(), slog.LevelError),
	}

	shutdownChan := make(chan os.Signal, 1)
	signal.Notify(shutdownChan, syscall.SIGINT, syscall.SIGTERM)

	serverErrors := make(chan error, 1)
	go func() {
		logger.Info(fmt.Sprintf("Server listening on port %d", cfg.Server.Port))
		err := srv.ListenAndServe()
		if !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Server error", "error", err)
			serverErrors <- err
		} else {
			logger.Info("Server closed gracefully.")
			serverErrors <- nil
		}
	}()
	return srv, serverErrors, shutdownChan
}

func handleShutdown(srv *http.Server, cronScheduler *cron.Cron, shutdownChan <-chan os.Signal, serverErrors <-chan error, logger *slog.Logger) {
	logger.Info("Shutdown handler started. Waiting for signal or server error...")

	var triggerReason string
	select {
	case sig := <-shutdownChan:
		triggerReason = "signal: " + sig.String()
		logger.Info("Shutdown signal received.", "signal", sig.String())
	case err := <-serverErrors:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Server exited unexpectedly before signal", "error", err)
			os.Exit(1)
		}
		triggerReason = "server exited"
		logger.Info("Server goroutine finished before signal.", "error", err)
	}

	logger.Info("Starting graceful shutdown...", "trigger", triggerReason)

	logger.Info("Stopping cron scheduler...")
	cronCtx := cronScheduler.Stop()
	select {
	case <-cronCtx.Done():
		logger.Info("Cron scheduler stopped gracefully.")
	case <-time.After(15 * time.Second):
		logger.Warn("Cron scheduler shutdown timed out.")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()

	logger.Info("Shutting down HTTP server...")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP server graceful shutdown failed", "error", err)
		if err := srv.Close(); err != nil {
			logger.Error("HTTP server forced close failed", "error", err)
		}
	} else {
		logger.Info("HTTP server gracefully stopped.")
	}

	logger.Info("Waiting for server goroutine to confirm exit...")
	select {
	case err := <-serverErrors:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Warn("Server goroutine exited with unexpected error after shutdown", "error", err)
		} else {
			logger.Info("Server goroutine confirmed exit.")
		}
	case <-time.After(5 * time.Second):
		logger.Warn("Timed out waiting for server goroutine confirmation.")
	}

	logger.Info("Application shutdown process complete.")
}

func startBatchJobs(cfg *config.Config, logger *slog.Logger, overdueJob *batch.OverdueLoanJob) *cron.Cron {
	logger.Info("Initializing batch job scheduler...")
	c := cron.New()

	scheduleSpec := cfg.Batch.OverdueSchedule
	if scheduleSpec == "" {
		scheduleSpec = "0 2 * * *"
		logger.Warn("Overdue sweep schedule not configured, using default", "schedule", scheduleSpec)
	}
	jobTimeout := cfg.Batch.OverdueTimeout
	if jobTimeout <= 0 {
		jobTimeout = time.Hour
	}

	jobID, err := c.AddJob(scheduleSpec, cron.FuncJob(func() {
		jobLogger := logger.With("job_name", "OverdueLoans")
		jobLogger.Info("Cron triggered: Running overdue loan sweep.")

		ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
		defer cancel()

		if runErr := overdueJob.Run(ctx); runErr != nil {
			jobLogger.Error("Overdue loan sweep finished with error", slog.Any("error", runErr))
		} else {
			jobLogger.Info("Overdue loan sweep finished successfully.")
		}
	}))
	if err != nil {
		logger.Error("Failed to schedule overdue loan sweep", "schedule", scheduleSpec, slog.Any("error", err))
	} else {
		logger.Info("Scheduled overdue loan sweep", "schedule", scheduleSpec, "job_id", jobID)
	}

	c.Start()
	logger.Info("Cron scheduler started.")
	return c
}
