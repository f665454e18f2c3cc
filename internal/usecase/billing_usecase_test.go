package usecase_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/iho/waterledger/internal/domain"
	"github.com/iho/waterledger/internal/usecase"
	"github.com/iho/waterledger/internal/usecase/mocks"
)

func TestBillingUseCase_GetOutstanding(t *testing.T) {
	f := newFixture(date(2025, 9, 15))
	uc := usecase.NewBillingUseCase(f.billRepo, f.creditRepo, f.txRepo, domain.DefaultPenaltyConfig()).
		WithNow(func() time.Time { return date(2025, 9, 15) })

	// April: partially paid, three whole months past grace on the rest.
	april := unpaidBill("2025-04", 22050, date(2025, 5, 10))
	april.PaidBaseCents = 10000
	april.Status = domain.BillStatusPartial
	f.billRepo.AddBill(april)

	// May: untouched, two whole months past grace.
	f.billRepo.AddBill(unpaidBill("2025-05", 21000, date(2025, 6, 10)))

	// June: fully paid, must not be listed.
	june := unpaidBill("2025-06", 18000, date(2025, 7, 10))
	june.PaidBaseCents = 18000
	june.Status = domain.BillStatusPaid
	f.billRepo.AddBill(june)

	items, err := uc.GetOutstanding(context.Background(), testClient, testUnit)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(items) != 2 {
		t.Fatalf("expected 2 outstanding periods, got %d", len(items))
	}

	// 12050 * 1.25% * 3 months = 451.875, rounded to 452.
	if items[0].PeriodID != "2025-04" || items[0].UnpaidBaseCents != 12050 || items[0].UnpaidPenaltyCents != 452 {
		t.Errorf("unexpected first item %+v", items[0])
	}
	// 21000 * 1.25% * 2 months = 525.
	if items[1].PeriodID != "2025-05" || items[1].UnpaidBaseCents != 21000 || items[1].UnpaidPenaltyCents != 525 {
		t.Errorf("unexpected second item %+v", items[1])
	}
}

func TestBillingUseCase_GetOutstanding_PriorDebtSurvivesQuietPeriods(t *testing.T) {
	// No charge was issued for the current period, yet the old debt must
	// still come back from the outstanding query.
	f := newFixture(date(2025, 9, 15))
	uc := usecase.NewBillingUseCase(f.billRepo, f.creditRepo, f.txRepo, domain.DefaultPenaltyConfig()).
		WithNow(func() time.Time { return date(2025, 9, 15) })

	f.billRepo.AddBill(unpaidBill("2025-02", 9900, date(2025, 3, 10)))

	items, err := uc.GetOutstanding(context.Background(), testClient, testUnit)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(items) != 1 || items[0].PeriodID != "2025-02" {
		t.Errorf("expected the old period to be listed, got %+v", items)
	}
}

func TestBillingUseCase_GetOutstanding_ValidatesIDs(t *testing.T) {
	f := newFixture(date(2025, 9, 15))
	uc := usecase.NewBillingUseCase(f.billRepo, f.creditRepo, f.txRepo, domain.DefaultPenaltyConfig())

	if _, err := uc.GetOutstanding(context.Background(), "", testUnit); !errors.Is(err, domain.ErrInvalidClientID) {
		t.Errorf("expected ErrInvalidClientID, got %v", err)
	}
	if _, err := uc.GetOutstanding(context.Background(), testClient, " "); !errors.Is(err, domain.ErrInvalidUnitID) {
		t.Errorf("expected ErrInvalidUnitID, got %v", err)
	}
}

func TestBillingUseCase_GetCreditBalance(t *testing.T) {
	f := newFixture(date(2025, 9, 15))
	uc := usecase.NewBillingUseCase(f.billRepo, f.creditRepo, f.txRepo, domain.DefaultPenaltyConfig())

	f.creditRepo.SeedBalance(testClient, testUnit, testYear, 4200)

	balance, err := uc.GetCreditBalance(context.Background(), testClient, testUnit, testYear)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if balance != 4200 {
		t.Errorf("expected 4200, got %d", balance)
	}

	if _, err := uc.GetCreditBalance(context.Background(), testClient, testUnit, "bad"); !errors.Is(err, domain.ErrInvalidFiscalYear) {
		t.Errorf("expected ErrInvalidFiscalYear, got %v", err)
	}
}

func TestBillingUseCase_ListTransactions_AppliesPaginationDefaults(t *testing.T) {
	f := newFixture(date(2025, 9, 15))
	uc := usecase.NewBillingUseCase(f.billRepo, f.creditRepo, f.txRepo, domain.DefaultPenaltyConfig())

	var gotLimit, gotOffset int
	f.txRepo.ListByUnitFunc = func(ctx context.Context, clientID, unitID string, limit, offset int) ([]*domain.LedgerTransaction, error) {
		gotLimit, gotOffset = limit, offset
		return nil, nil
	}

	if _, err := uc.ListTransactions(context.Background(), usecase.ListTransactionsInput{
		ClientID: testClient,
		UnitID:   testUnit,
		Limit:    0,
		Offset:   -5,
	}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gotLimit != 50 || gotOffset != 0 {
		t.Errorf("expected default limit 50 and offset 0, got %d/%d", gotLimit, gotOffset)
	}
}

func TestBillingUseCase_GetTransaction_NotFound(t *testing.T) {
	uc := usecase.NewBillingUseCase(
		mocks.NewMockBillRepository(),
		mocks.NewMockCreditRepository(),
		mocks.NewMockTransactionRepository(),
		domain.DefaultPenaltyConfig(),
	)

	if _, err := uc.GetTransaction(context.Background(), "missing"); !errors.Is(err, domain.ErrTransactionNotFound) {
		t.Errorf("expected ErrTransactionNotFound, got %v", err)
	}
}
