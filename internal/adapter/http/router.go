package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/noblecapital/payments/internal/adapter/http/handler"
	"github.com/noblecapital/payments/internal/adapter/http/middleware"
	"github.com/noblecapital/payments/internal/infrastructure/auth"
	"github.com/noblecapital/payments/internal/usecase"
)

// RouterConfig holds dependencies for the router.
type RouterConfig struct {
	PaymentHandler    *handler.PaymentHandler
	WithdrawalHandler *handler.WithdrawalHandler
	UserHandler       *handler.UserHandler
	HealthHandler     *handler.HealthHandler
	JWTManager        *auth.JWTManager
	AdminEmail        string
	IdempotencyStore  usecase.IdempotencyStore
	IdempotencyTTL    time.Duration
	RateLimitRPS      float64
	RateLimitBurst    int
	Logger            zerolog.Logger
}

// NewRouter creates a new HTTP router.
func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.NewLoggingMiddleware(cfg.Logger).Wrap)
	r.Use(middleware.Recovery)
	r.Use(middleware.Metrics)

	// Health and metrics endpoints
	r.Get("/health", cfg.HealthHandler.Liveness)
	r.Get("/ready", cfg.HealthHandler.Readiness)
	r.Handle("/metrics", promhttp.Handler())

	// Provider callback: unauthenticated and never rate limited, so a burst
	// of legitimate callbacks cannot be dropped.
	r.Post("/api/v1/payments/callback", cfg.PaymentHandler.Callback)

	// API v1
	r.Route("/api/v1", func(r chi.Router) {
		if cfg.RateLimitRPS > 0 {
			r.Use(middleware.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst).Limit)
		}

		r.Use(middleware.AuthMiddleware(cfg.JWTManager))

		// Idempotency middleware for mutating requests
		if cfg.IdempotencyStore != nil {
			idempotencyMiddleware := middleware.NewIdempotencyMiddleware(cfg.IdempotencyStore, cfg.IdempotencyTTL)
			r.Use(idempotencyMiddleware.Wrap)
		}

		// Deposits
		r.Post("/deposits", cfg.PaymentHandler.Deposit)
		r.Get("/transactions/{externalID}", cfg.PaymentHandler.Status)

		// Withdrawals
		r.Post("/withdrawals", cfg.WithdrawalHandler.Request)

		// User
		r.Route("/user", func(r chi.Router) {
			r.Get("/profile", cfg.UserHandler.Profile)
			r.Get("/transactions", cfg.UserHandler.Transactions)
		})

		// Admin
		r.Route("/admin", func(r chi.Router) {
			r.Use(middleware.RequireAdmin(cfg.AdminEmail))

			r.Get("/withdrawals", cfg.WithdrawalHandler.List)
			r.Put("/withdrawals/{id}", cfg.WithdrawalHandler.Process)
		})
	})

	return r
}
