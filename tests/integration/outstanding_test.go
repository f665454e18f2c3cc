package integration

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/iho/waterledger/internal/adapter/http/dto"
)

func TestOutstanding_ListsUnpaidOldestFirstWithPenalty(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, ctx)

	now := time.Now().UTC()
	// Both bills are long overdue; penalties accrue per started month.
	env.DB.SeedBill(ctx, "hoa-1", "unit-1", "2025", "2025-01", 30000, now.AddDate(0, -3, 0))
	env.DB.SeedBill(ctx, "hoa-1", "unit-1", "2025", "2025-02", 21000, now.AddDate(0, -2, 0))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/clients/hoa-1/units/unit-1/outstanding", nil)
	rec := httptest.NewRecorder()
	env.Router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp dto.OutstandingResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}

	if len(resp.Items) != 2 {
		t.Fatalf("expected 2 items, got %d", len(resp.Items))
	}
	if resp.Items[0].PeriodID != "2025-01" || resp.Items[1].PeriodID != "2025-02" {
		t.Fatalf("expected oldest first, got %+v", resp.Items)
	}
	for _, item := range resp.Items {
		if item.UnpaidPenaltyCents <= 0 {
			t.Fatalf("expected overdue penalty on %s, got %d", item.PeriodID, item.UnpaidPenaltyCents)
		}
	}
	if resp.TotalDueCents <= 51000 {
		t.Fatalf("expected total above base charges, got %d", resp.TotalDueCents)
	}
}

func TestOutstanding_ExcludesPaidBills(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, ctx)

	now := time.Now().UTC()
	env.DB.SeedBill(ctx, "hoa-1", "unit-2", "2025", "2025-04", 22050, now.AddDate(0, 0, 30))
	env.DB.SeedBill(ctx, "hoa-1", "unit-2", "2025", "2025-05", 21000, now.AddDate(0, 0, 60))

	env.recordPayment(t, "hoa-1", dto.RecordPaymentRequest{
		UnitID:       "unit-2",
		FiscalYear:   "2025",
		PaymentCents: 22050,
	})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/clients/hoa-1/units/unit-2/outstanding", nil)
	rec := httptest.NewRecorder()
	env.Router.ServeHTTP(rec, req)

	var resp dto.OutstandingResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}

	if len(resp.Items) != 1 || resp.Items[0].PeriodID != "2025-05" {
		t.Fatalf("expected only May outstanding, got %+v", resp.Items)
	}
}

func TestCreditBalanceEndpoint(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, ctx)

	now := time.Now().UTC()
	env.DB.SeedBill(ctx, "hoa-1", "unit-3", "2025", "2025-04", 22050, now.AddDate(0, 0, 30))

	env.recordPayment(t, "hoa-1", dto.RecordPaymentRequest{
		UnitID:       "unit-3",
		FiscalYear:   "2025",
		PaymentCents: 30000,
	})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/clients/hoa-1/units/unit-3/credit/2025", nil)
	rec := httptest.NewRecorder()
	env.Router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var resp map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp["credit_balance_cents"].(float64) != 7950 {
		t.Fatalf("unexpected balance: %v", resp["credit_balance_cents"])
	}
}
