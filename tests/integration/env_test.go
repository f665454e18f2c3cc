package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/rs/zerolog"

	adaptershttp "github.com/iho/waterledger/internal/adapter/http"
	"github.com/iho/waterledger/internal/adapter/http/dto"
	"github.com/iho/waterledger/internal/adapter/http/handler"
	"github.com/iho/waterledger/internal/adapter/repository/postgres"
	redisrepo "github.com/iho/waterledger/internal/adapter/repository/redis"
	"github.com/iho/waterledger/internal/domain"
	infraredis "github.com/iho/waterledger/internal/infrastructure/redis"
	"github.com/iho/waterledger/internal/usecase"
	"github.com/iho/waterledger/tests/testutil"
)

// testEnv wires the full stack against real Postgres and Redis.
type testEnv struct {
	DB     *testutil.TestDB
	Router http.Handler

	BillRepo        *postgres.BillRepository
	CreditRepo      *postgres.CreditRepository
	TransactionRepo *postgres.TransactionRepository
	OutboxRepo      *postgres.OutboxRepository

	PaymentUC     *usecase.PaymentUseCase
	ReversalUC    *usecase.ReversalUseCase
	BillingUC     *usecase.BillingUseCase
	AggregationUC *usecase.AggregationUseCase
}

func newTestEnv(t *testing.T, ctx context.Context) *testEnv {
	t.Helper()

	if testing.Short() {
		t.Skip("skipping integration test")
	}

	testDB := testutil.NewTestDB(t)
	t.Cleanup(testDB.Cleanup)
	testDB.TruncateAll(ctx)

	pool := testDB.Pool
	txManager := postgres.NewTxManager(pool)
	billRepo := postgres.NewBillRepository(pool)
	creditRepo := postgres.NewCreditRepository(pool)
	transactionRepo := postgres.NewTransactionRepository(pool)
	aggregateRepo := postgres.NewAggregateRepository(pool)
	outboxRepo := postgres.NewOutboxRepository(pool)
	auditRepo := postgres.NewAuditRepository(pool)
	idGen := postgres.NewULIDGenerator()
	retrier := postgres.NewRetrier()

	redisURL := os.Getenv("REDIS_URL")
	if redisURL == "" {
		redisURL = "redis://localhost:6379"
	}

	redisClient, err := infraredis.NewClient(ctx, redisURL)
	if err != nil {
		t.Fatalf("failed to connect to redis: %v", err)
	}
	t.Cleanup(func() { redisClient.Close() })

	viewCache := redisrepo.NewCache(redisClient)
	idempotencyStore := redisrepo.NewIdempotencyStore(redisClient)

	penaltyCfg := domain.DefaultPenaltyConfig()

	aggregationUC := usecase.NewAggregationUseCase(billRepo, aggregateRepo, viewCache, penaltyCfg, nil)
	paymentUC := usecase.NewPaymentUseCase(
		txManager, billRepo, creditRepo, transactionRepo,
		aggregationUC, outboxRepo, auditRepo, idGen, penaltyCfg, nil,
	).WithRetrier(retrier)
	reversalUC := usecase.NewReversalUseCase(
		txManager, billRepo, creditRepo, transactionRepo,
		aggregationUC, outboxRepo, auditRepo, idGen, nil,
	).WithRetrier(retrier)
	billingUC := usecase.NewBillingUseCase(billRepo, creditRepo, transactionRepo, penaltyCfg)

	router := adaptershttp.NewRouter(adaptershttp.RouterConfig{
		PaymentHandler:     handler.NewPaymentHandler(paymentUC, reversalUC, billingUC),
		BillingHandler:     handler.NewBillingHandler(billingUC),
		AggregationHandler: handler.NewAggregationHandler(aggregationUC),
		HealthHandler:      handler.NewHealthHandler(pool, redisClient),
		IdempotencyStore:   idempotencyStore,
		Logger:             zerolog.Nop(),
	})

	return &testEnv{
		DB:              testDB,
		Router:          router,
		BillRepo:        billRepo,
		CreditRepo:      creditRepo,
		TransactionRepo: transactionRepo,
		OutboxRepo:      outboxRepo,
		PaymentUC:       paymentUC,
		ReversalUC:      reversalUC,
		BillingUC:       billingUC,
		AggregationUC:   aggregationUC,
	}
}

func (env *testEnv) postJSON(t *testing.T, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	data, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("failed to marshal request: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	env.Router.ServeHTTP(rec, req)

	return rec
}

func (env *testEnv) recordPayment(t *testing.T, clientID string, req dto.RecordPaymentRequest) *dto.PaymentResponse {
	t.Helper()

	rec := env.postJSON(t, "/api/v1/clients/"+clientID+"/payments", req)
	if rec.Code != http.StatusCreated {
		t.Fatalf("payment failed with status %d: %s", rec.Code, rec.Body.String())
	}

	var resp dto.PaymentResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode payment response: %v", err)
	}

	return &resp
}
