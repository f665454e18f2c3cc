package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/iho/waterledger/internal/adapter/http/handler"
	"github.com/iho/waterledger/internal/adapter/http/middleware"
	"github.com/iho/waterledger/internal/usecase"
)

// RouterConfig holds dependencies for the router.
type RouterConfig struct {
	PaymentHandler     *handler.PaymentHandler
	BillingHandler     *handler.BillingHandler
	AggregationHandler *handler.AggregationHandler
	HealthHandler      *handler.HealthHandler
	IdempotencyStore   usecase.IdempotencyStore
	Logger             zerolog.Logger
}

// NewRouter creates a new HTTP router.
func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.NewLoggingMiddleware(cfg.Logger).Wrap)
	r.Use(middleware.Recovery)
	r.Use(middleware.Metrics)

	r.Get("/health", cfg.HealthHandler.Liveness)
	r.Get("/ready", cfg.HealthHandler.Readiness)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1/clients/{clientID}", func(r chi.Router) {
		// Replay protection for payments and reversals.
		if cfg.IdempotencyStore != nil {
			idempotencyMiddleware := middleware.NewIdempotencyMiddleware(cfg.IdempotencyStore)
			r.Use(idempotencyMiddleware.Wrap)
		}

		r.Route("/payments", func(r chi.Router) {
			r.Post("/", cfg.PaymentHandler.Record)
			r.Get("/{transactionID}", cfg.PaymentHandler.Get)
			r.Delete("/{transactionID}", cfg.PaymentHandler.Reverse)
		})

		r.Route("/units/{unitID}", func(r chi.Router) {
			r.Get("/outstanding", cfg.BillingHandler.Outstanding)
			r.Get("/payments", cfg.PaymentHandler.ListByUnit)
			r.Get("/credit/{fiscalYear}", cfg.BillingHandler.CreditBalance)
		})

		r.Route("/aggregation/{fiscalYear}", func(r chi.Router) {
			r.Get("/", cfg.AggregationHandler.GetView)
			r.Post("/rebuild", cfg.AggregationHandler.Rebuild)
		})
	})

	return r
}
