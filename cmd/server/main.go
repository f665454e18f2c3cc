package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	httpAdapter "github.com/iho/waterledger/internal/adapter/http"
	"github.com/iho/waterledger/internal/adapter/http/handler"
	postgresRepo "github.com/iho/waterledger/internal/adapter/repository/postgres"
	redisRepo "github.com/iho/waterledger/internal/adapter/repository/redis"
	"github.com/iho/waterledger/internal/infrastructure/config"
	"github.com/iho/waterledger/internal/infrastructure/eventpublisher"
	"github.com/iho/waterledger/internal/infrastructure/logger"
	"github.com/iho/waterledger/internal/infrastructure/logging"
	"github.com/iho/waterledger/internal/infrastructure/metrics"
	"github.com/iho/waterledger/internal/infrastructure/postgres"
	"github.com/iho/waterledger/internal/infrastructure/redis"
	"github.com/iho/waterledger/internal/usecase"
	"log/slog"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	log.Logger = logger.New(logger.Config{Level: cfg.LogLevel, Format: cfg.LogFormat})
	zerolog.DefaultContextLogger = &log.Logger

	// The retrier and migrator log through slog.
	slog.SetDefault(logging.New(logging.ParseLevel(cfg.LogLevel), cfg.LogFormat).Logger)

	ctx := context.Background()

	pool, err := postgres.NewPoolWithConfig(ctx, postgres.PoolConfig{
		DatabaseURL: cfg.DatabaseURL,
		MaxConns:    cfg.DatabaseMaxConns,
		MinConns:    cfg.DatabaseMinConns,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to postgres")
	}
	defer pool.Close()
	log.Info().Msg("connected to postgres")

	if err := postgres.RunMigrations(cfg.DatabaseURL, cfg.MigrationsPath); err != nil {
		log.Fatal().Err(err).Msg("failed to run migrations")
	}

	redisClient, err := redis.NewClient(ctx, cfg.RedisURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to redis")
	}
	defer redisClient.Close()
	log.Info().Msg("connected to redis")

	// Repositories
	txManager := postgresRepo.NewTxManager(pool)
	billRepo := postgresRepo.NewBillRepository(pool)
	creditRepo := postgresRepo.NewCreditRepository(pool)
	transactionRepo := postgresRepo.NewTransactionRepository(pool)
	aggregateRepo := postgresRepo.NewAggregateRepository(pool)
	auditRepo := postgresRepo.NewAuditRepository(pool)

	var outboxRepo usecase.OutboxRepository = postgresRepo.NewOutboxRepository(pool)
	if !cfg.OutboxEnabled {
		outboxRepo = postgresRepo.NewNullOutboxRepository()
	}
	idGen := postgresRepo.NewULIDGenerator()
	retrier := postgresRepo.NewRetrier()
	viewCache := redisRepo.NewCache(redisClient)
	idempotencyStore := redisRepo.NewIdempotencyStore(redisClient)

	m := metrics.New()
	penaltyCfg := cfg.PenaltyConfig()

	// Use cases
	aggregationUC := usecase.NewAggregationUseCase(billRepo, aggregateRepo, viewCache, penaltyCfg, m)
	paymentUC := usecase.NewPaymentUseCase(
		txManager, billRepo, creditRepo, transactionRepo,
		aggregationUC, outboxRepo, auditRepo, idGen, penaltyCfg, m,
	).WithRetrier(retrier)
	reversalUC := usecase.NewReversalUseCase(
		txManager, billRepo, creditRepo, transactionRepo,
		aggregationUC, outboxRepo, auditRepo, idGen, m,
	).WithRetrier(retrier)
	billingUC := usecase.NewBillingUseCase(billRepo, creditRepo, transactionRepo, penaltyCfg)

	// Handlers
	paymentHandler := handler.NewPaymentHandler(paymentUC, reversalUC, billingUC)
	billingHandler := handler.NewBillingHandler(billingUC)
	aggregationHandler := handler.NewAggregationHandler(aggregationUC)
	healthHandler := handler.NewHealthHandler(pool, redisClient)

	router := httpAdapter.NewRouter(httpAdapter.RouterConfig{
		PaymentHandler:     paymentHandler,
		BillingHandler:     billingHandler,
		AggregationHandler: aggregationHandler,
		HealthHandler:      healthHandler,
		IdempotencyStore:   idempotencyStore,
		Logger:             log.Logger,
	})

	// Outbox drain loop
	publisherCtx, stopPublisher := context.WithCancel(ctx)
	defer stopPublisher()
	if cfg.OutboxEnabled {
		publisher := eventpublisher.NewEventPublisher(eventpublisher.Config{
			OutboxRepo: outboxRepo,
			Publisher:  eventpublisher.NewLogPublisher(slog.Default()),
			BatchSize:  cfg.OutboxBatchSize,
			Interval:   cfg.OutboxInterval,
			Retention:  cfg.OutboxRetention,
		})
		go func() {
			if err := publisher.Start(publisherCtx); err != nil && publisherCtx.Err() == nil {
				log.Error().Err(err).Msg("event publisher stopped")
			}
		}()
	}

	server := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.HTTPPort),
		Handler:      router,
		ReadTimeout:  cfg.HTTPReadTimeout,
		WriteTimeout: cfg.HTTPWriteTimeout,
		IdleTimeout:  cfg.HTTPIdleTimeout,
	}

	go func() {
		log.Info().Str("port", cfg.HTTPPort).Msg("starting server")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server...")
	stopPublisher()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTPShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Fatal().Err(err).Msg("server forced to shutdown")
	}

	log.Info().Msg("server stopped")
}
