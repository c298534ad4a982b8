package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	httpAdapter "github.com/noblecapital/payments/internal/adapter/http"
	"github.com/noblecapital/payments/internal/adapter/http/handler"
	"github.com/noblecapital/payments/internal/adapter/provider/daraja"
	postgresRepo "github.com/noblecapital/payments/internal/adapter/repository/postgres"
	redisRepo "github.com/noblecapital/payments/internal/adapter/repository/redis"
	"github.com/noblecapital/payments/internal/infrastructure/auth"
	"github.com/noblecapital/payments/internal/infrastructure/config"
	"github.com/noblecapital/payments/internal/infrastructure/logger"
	"github.com/noblecapital/payments/internal/infrastructure/metrics"
	"github.com/noblecapital/payments/internal/infrastructure/notifier"
	"github.com/noblecapital/payments/internal/infrastructure/postgres"
	"github.com/noblecapital/payments/internal/infrastructure/redis"
	"github.com/noblecapital/payments/internal/usecase"
)

const tokenDuration = 24 * time.Hour

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Setup logger
	log := logger.New(logger.Config{Level: cfg.LogLevel, Format: cfg.LogFormat})

	ctx := context.Background()

	// Connect to PostgreSQL
	pool, err := postgres.NewPool(ctx, cfg.DatabaseURL, cfg.DatabaseMaxConns, cfg.DatabaseMinConns)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to postgres")
	}
	defer pool.Close()
	log.Info().Msg("connected to postgres")

	// Run migrations
	if err := postgres.RunMigrations(cfg.DatabaseURL, cfg.MigrationsPath); err != nil {
		log.Fatal().Err(err).Msg("failed to run migrations")
	}

	// Connect to Redis
	redisClient, err := redis.NewClient(ctx, cfg.RedisURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to redis")
	}
	defer redisClient.Close()
	log.Info().Msg("connected to redis")

	// Initialize metrics
	m := metrics.New()

	// Initialize repositories
	txManager := postgresRepo.NewTxManager(pool)
	userRepo := postgresRepo.NewUserRepository(pool)
	txnRepo := postgresRepo.NewTransactionRepository(pool)
	idempotencyStore := redisRepo.NewIdempotencyStore(redisClient)
	idGen := postgresRepo.NewULIDGenerator()

	// Initialize payment gateway
	gateway := daraja.NewClient(daraja.Config{
		BaseURL:        cfg.MpesaBaseURL,
		ConsumerKey:    cfg.MpesaConsumerKey,
		ConsumerSecret: cfg.MpesaConsumerSecret,
		ShortCode:      cfg.MpesaShortCode,
		Passkey:        cfg.MpesaPasskey,
		CallbackURL:    cfg.MpesaCallbackURL,
		Timeout:        cfg.MpesaTimeout,
	}, log)

	// Initialize notifier
	var notify usecase.Notifier
	if cfg.SMTPHost != "" {
		notify = notifier.NewEmailNotifier(notifier.Config{
			Host:     cfg.SMTPHost,
			Port:     cfg.SMTPPort,
			User:     cfg.SMTPUser,
			Password: cfg.SMTPPassword,
			From:     cfg.SMTPFrom,
			Timeout:  cfg.SMTPTimeout,
		}, log)
	} else {
		notify = notifier.NewNoopNotifier(log)
	}

	// Initialize use cases
	depositUC := usecase.NewDepositUseCase(txManager, txnRepo, gateway, idGen, log, m)
	callbackUC := usecase.NewCallbackUseCase(txManager, txnRepo, userRepo, log, m)
	withdrawalUC := usecase.NewWithdrawalUseCase(txManager, txnRepo, userRepo, notify, idGen, cfg.AdminEmail, log, m)
	userUC := usecase.NewUserUseCase(userRepo, txnRepo)

	// Initialize handlers
	paymentHandler := handler.NewPaymentHandler(depositUC, callbackUC, log)
	withdrawalHandler := handler.NewWithdrawalHandler(withdrawalUC)
	userHandler := handler.NewUserHandler(userUC)
	healthHandler := handler.NewHealthHandler(pool, redisClient)

	// Create router
	router := httpAdapter.NewRouter(httpAdapter.RouterConfig{
		PaymentHandler:    paymentHandler,
		WithdrawalHandler: withdrawalHandler,
		UserHandler:       userHandler,
		HealthHandler:     healthHandler,
		JWTManager:        auth.NewJWTManager(cfg.JWTSecret, tokenDuration),
		AdminEmail:        cfg.AdminEmail,
		IdempotencyStore:  idempotencyStore,
		IdempotencyTTL:    cfg.IdempotencyTTL,
		RateLimitRPS:      cfg.RateLimitRPS,
		RateLimitBurst:    cfg.RateLimitBurst,
		Logger:            log,
	})

	// Create server
	server := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.HTTPPort),
		Handler:      router,
		ReadTimeout:  cfg.HTTPReadTimeout,
		WriteTimeout: cfg.HTTPWriteTimeout,
	}

	// Start server in goroutine
	go func() {
		log.Info().Str("port", cfg.HTTPPort).Msg("starting server")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server...")

	// Graceful shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTPShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Fatal().Err(err).Msg("server forced to shutdown")
	}

	log.Info().Msg("server stopped")
}
