package http

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/iho/waterledger/internal/adapter/http/handler"
	apimiddleware "github.com/iho/waterledger/internal/adapter/http/middleware"
)

func TestNewRouter_HealthEndpointAvailable(t *testing.T) {
	router := NewRouter(newRouterConfig())

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected /health to return 200, got %d", rec.Code)
	}
}

func TestNewRouter_MetricsEndpointAvailable(t *testing.T) {
	router := NewRouter(newRouterConfig())

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected /metrics to return 200, got %d", rec.Code)
	}
}

func TestNewRouter_IdempotencyMiddlewareInvokesStore(t *testing.T) {
	// The cached response short-circuits the handler, so stub handlers
	// are never reached.
	store := &stubIdempotencyStore{cached: []byte(`{"replayed":true}`)}
	router := NewRouter(newRouterConfig(func(cfg *RouterConfig) {
		cfg.IdempotencyStore = store
	}))

	body := `{"unit_id":"unit-1","fiscal_year":"2025","payment_cents":1000}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/clients/client-1/payments", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(apimiddleware.IdempotencyKeyHeader, "key-123")
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	if !store.checkCalled {
		t.Fatalf("expected idempotency store to be used")
	}

	if rec.Header().Get("X-Idempotency-Replay") != "true" {
		t.Fatalf("expected replayed response, got status %d body %s", rec.Code, rec.Body.String())
	}
}

func TestNewRouter_RegistersKeyRoutes(t *testing.T) {
	router := NewRouter(newRouterConfig())

	chiRoutes, ok := router.(chi.Router)
	if !ok {
		t.Fatal("router does not implement chi.Routes")
	}

	seen := map[string]bool{}
	if err := chi.Walk(chiRoutes, func(method string, route string, _ http.Handler, _ ...func(http.Handler) http.Handler) error {
		seen[method+" "+route] = true
		return nil
	}); err != nil {
		t.Fatalf("walk failed: %v", err)
	}

	expected := []string{
		"GET /health",
		"GET /ready",
		"GET /metrics",
		"POST /api/v1/clients/{clientID}/payments/",
		"GET /api/v1/clients/{clientID}/payments/{transactionID}",
		"DELETE /api/v1/clients/{clientID}/payments/{transactionID}",
		"GET /api/v1/clients/{clientID}/units/{unitID}/outstanding",
		"GET /api/v1/clients/{clientID}/units/{unitID}/payments",
		"GET /api/v1/clients/{clientID}/units/{unitID}/credit/{fiscalYear}",
		"GET /api/v1/clients/{clientID}/aggregation/{fiscalYear}/",
		"POST /api/v1/clients/{clientID}/aggregation/{fiscalYear}/rebuild",
	}

	for _, route := range expected {
		if !seen[route] {
			t.Fatalf("expected route %s to be registered", route)
		}
	}
}

func newRouterConfig(opts ...func(*RouterConfig)) RouterConfig {
	cfg := RouterConfig{
		PaymentHandler:     handler.NewPaymentHandler(nil, nil, nil),
		BillingHandler:     handler.NewBillingHandler(nil),
		AggregationHandler: handler.NewAggregationHandler(nil),
		HealthHandler:      &handler.HealthHandler{},
		Logger:             zerolog.Nop(),
	}

	for _, opt := range opts {
		opt(&cfg)
	}

	return cfg
}

type stubIdempotencyStore struct {
	checkCalled bool
	cached      []byte
}

func (s *stubIdempotencyStore) CheckAndSet(ctx context.Context, key string, response []byte, ttl time.Duration) (bool, []byte, error) {
	s.checkCalled = true
	return s.cached != nil, s.cached, nil
}

func (s *stubIdempotencyStore) Update(ctx context.Context, key string, response []byte, ttl time.Duration) error {
	return nil
}
