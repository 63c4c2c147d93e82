package api

import (
	"log/slog"
	"net/http"
	"time"

	"pawn-ledger/internal/api/handler"
	mw "pawn-ledger/internal/api/middleware"
	"pawn-ledger/internal/config"
	"pawn-ledger/internal/domain/customer"
	"pawn-ledger/internal/domain/ledger"
	"pawn-ledger/internal/domain/loan"
	"pawn-ledger/internal/domain/notification"
	"pawn-ledger/internal/domain/pricing"
	"pawn-ledger/internal/domain/silver"
	"pawn-ledger/internal/domain/udhari"
	"pawn-ledger/internal/domain/user"

	_ "pawn-ledger/docs"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/traceid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger/v2"
)

const defaultRequestTimeout = 60 * time.Second

// Services are the domain services the API exposes.
type Services struct {
	Customers     customer.CustomerService
	Loans         loan.LoanService
	Pricing       pricing.Service
	Silver        silver.Service
	Udhari        udhari.Service
	Ledger        ledger.Service
	Users         user.Service
	Notifications notification.Service
}

func SetupRouter(svc Services, limiter *mw.RateLimiterMiddleware, cfg *config.Config, logger *slog.Logger) *chi.Mux {
	router := chi.NewRouter()

	setupMiddleware(router, limiter, cfg, logger)
	setupMetricsEndpoint(router, cfg, logger)
	router.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	setupSwaggerEndpoint(router, logger)

	auth := cfg.Server.Auth
	authHandler := handler.NewAuthHandler(svc.Users, auth, logger)
	router.Post("/auth/login", authHandler.Login)

	router.Group(func(r chi.Router) {
		r.Use(mw.AuthMiddleware(auth, logger))

		setupUserRoutes(r, svc, auth, logger)
		setupCustomerRoutes(r, svc, logger)
		setupPriceRoutes(r, svc, auth, logger)
		setupLoanRoutes(r, svc, logger)
		setupSilverRoutes(r, svc, logger)
		setupUdhariRoutes(r, svc, logger)
		setupLedgerRoutes(r, svc, logger)
	})

	return router
}

func setupMiddleware(router *chi.Mux, limiter *mw.RateLimiterMiddleware, cfg *config.Config, logger *slog.Logger) {
	timeout := cfg.Server.RequestTimeout
	if timeout <= 0 {
		timeout = defaultRequestTimeout
	}

	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(traceid.Middleware)
	router.Use(mw.StructuredLogger(logger))
	router.Use(middleware.Recoverer)
	router.Use(middleware.Compress(5))
	router.Use(middleware.Timeout(timeout))
	if limiter != nil {
		router.Use(limiter.Middleware)
	}
	router.Use(mw.MetricsMiddleware())
}

func setupMetricsEndpoint(router *chi.Mux, cfg *config.Config, logger *slog.Logger) {
	metricsPath := cfg.Metrics.Path
	if metricsPath == "" {
		metricsPath = "/metrics"
	}
	logger.Info("Setting up Prometheus metrics endpoint", "path", metricsPath)
	router.Handle(metricsPath, promhttp.Handler())
}

func setupSwaggerEndpoint(router *chi.Mux, logger *slog.Logger) {
	logger.Info("Setting up Swagger UI endpoint", "path", "/swagger/")
	router.Get("/swagger/*", httpSwagger.WrapHandler)
	router.Get("/swagger", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/swagger/index.html", http.StatusMovedPermanently)
	})
}

func setupUserRoutes(r chi.Router, svc Services, auth config.AuthConfig, logger *slog.Logger) {
	h := handler.NewUserHandler(svc.Users, logger)
	r.With(mw.RequireRole(auth, user.RoleAdmin)).Post("/users", h.CreateUser)
}

func setupCustomerRoutes(r chi.Router, svc Services, logger *slog.Logger) {
	h := handler.NewCustomerHandler(svc.Customers, logger)
	loans := handler.NewLoanHandler(svc.Loans, logger)
	udhariHandler := handler.NewUdhariHandler(svc.Udhari, logger)
	notifications := handler.NewNotificationHandler(svc.Notifications, logger)

	r.Route("/customers", func(r chi.Router) {
		r.Post("/", h.CreateCustomer)
		r.Get("/", h.ListCustomers)
		r.Route("/{customerID}", func(r chi.Router) {
			r.Get("/", h.GetCustomer)
			r.Put("/", h.UpdateCustomer)
			r.Delete("/", h.DeactivateCustomer)
			r.Put("/reactivate", h.ReactivateCustomer)
			r.Get("/loans", loans.ListCustomerLoans)
			r.Get("/udhari", udhariHandler.GetCustomerAccount)
			r.Get("/notifications", notifications.ListForCustomer)
		})
	})
}

func setupPriceRoutes(r chi.Router, svc Services, auth config.AuthConfig, logger *slog.Logger) {
	h := handler.NewPriceHandler(svc.Pricing, logger)

	r.Route("/prices", func(r chi.Router) {
		r.Get("/", h.CurrentPrices)
		r.Get("/{metal}", h.GetPrice)
		r.With(mw.RequireRole(auth, user.RoleAdmin)).Put("/{metal}", h.SetPrice)
		r.Get("/{metal}/history", h.PriceHistory)
	})
}

func setupLoanRoutes(r chi.Router, svc Services, logger *slog.Logger) {
	h := handler.NewLoanHandler(svc.Loans, logger)

	r.Route("/loans", func(r chi.Router) {
		r.Post("/", h.CreateLoan)
		r.Get("/", h.ListLoans)
		r.Route("/{loanID}", func(r chi.Router) {
			r.Get("/", h.GetLoan)
			r.Get("/statement", h.GetStatement)
			r.Post("/payments", h.RecordPayment)
			r.Get("/payments", h.ListPayments)
			r.Post("/close", h.CloseLoan)
		})
	})
}

func setupSilverRoutes(r chi.Router, svc Services, logger *slog.Logger) {
	h := handler.NewSilverHandler(svc.Silver, logger)

	r.Route("/silver-sales", func(r chi.Router) {
		r.Post("/", h.RecordSale)
		r.Get("/", h.ListSales)
		r.Get("/{saleID}", h.GetSale)
	})
}

func setupUdhariRoutes(r chi.Router, svc Services, logger *slog.Logger) {
	h := handler.NewUdhariHandler(svc.Udhari, logger)

	r.Route("/udhari", func(r chi.Router) {
		r.Post("/transactions", h.RecordTransaction)
		r.Get("/outstanding", h.ListOutstanding)
		r.Get("/summary", h.Summary)
	})
}

func setupLedgerRoutes(r chi.Router, svc Services, logger *slog.Logger) {
	h := handler.NewLedgerHandler(svc.Ledger, logger)

	r.Route("/transactions", func(r chi.Router) {
		r.Get("/", h.ListTransactions)
		r.Get("/summary", h.Summary)
	})
}
