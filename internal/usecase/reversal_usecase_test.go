package usecase_test

import (
	"context"
	"testing"
	"time"

	"github.com/iho/waterledger/internal/domain"
	"github.com/iho/waterledger/internal/usecase"
)

func TestReversalUseCase_RoundTripRestoresState(t *testing.T) {
	f := newFixture(date(2025, 5, 15))
	f.billRepo.AddBill(unpaidBill("2025-04", 22050, date(2025, 5, 10)))
	f.billRepo.AddBill(unpaidBill("2025-05", 21000, date(2025, 6, 10)))
	f.creditRepo.SeedBalance(testClient, testUnit, testYear, 1000)

	before := map[string]*domain.Bill{
		"2025-04": f.billRepo.GetBill(testClient, testUnit, "2025-04"),
		"2025-05": f.billRepo.GetBill(testClient, testUnit, "2025-05"),
	}

	result, err := f.payment.RecordPayment(context.Background(), usecase.RecordPaymentInput{
		ClientID:       testClient,
		UnitID:         testUnit,
		FiscalYear:     testYear,
		PaymentCents:   30000,
		UseCreditCents: 1000,
	})
	if err != nil {
		t.Fatalf("payment failed: %v", err)
	}

	reversed, err := f.reversal.ReverseTransaction(context.Background(), usecase.ReverseTransactionInput{
		ClientID:      testClient,
		TransactionID: result.TransactionID,
	})
	if err != nil {
		t.Fatalf("reversal failed: %v", err)
	}
	if len(reversed.AffectedPeriods) != 2 {
		t.Errorf("expected 2 affected periods, got %v", reversed.AffectedPeriods)
	}

	for periodID, want := range before {
		got := f.billRepo.GetBill(testClient, testUnit, periodID)
		if got.PaidBaseCents != want.PaidBaseCents ||
			got.PaidPenaltyCents != want.PaidPenaltyCents ||
			got.PenaltyCents != want.PenaltyCents ||
			got.PenaltyApplied != want.PenaltyApplied ||
			got.Status != want.Status ||
			len(got.Payments) != len(want.Payments) {
			t.Errorf("period %s not restored: got %+v, want %+v", periodID, got, want)
		}
	}

	if got := f.creditRepo.Balance(testClient, testUnit, testYear); got != 1000 {
		t.Errorf("expected credit balance restored to 1000, got %d", got)
	}
	entries := f.creditRepo.Entries(testClient, testUnit, testYear)
	if len(entries) != 1 || entries[0].Reason != domain.CreditReasonOpeningBalance {
		t.Errorf("only the seed entry should survive, got %+v", entries)
	}

	if f.txRepo.GetStored(result.TransactionID) != nil {
		t.Error("reversed transaction must be deleted")
	}

	events := f.outbox.Events()
	if len(events) != 2 || events[1].EventType != domain.EventTypePaymentReversed {
		t.Errorf("expected a reversed event after the recorded one, got %d events", len(events))
	}
}

func TestReversalUseCase_RestoresPenaltyState(t *testing.T) {
	// The payment materializes a 375 penalty; reversing it must also
	// unwind that materialization, not just the paid amounts.
	f := newFixture(date(2025, 3, 15))
	f.billRepo.AddBill(unpaidBill("2025-01", 30000, date(2025, 2, 10)))

	result, err := f.payment.RecordPayment(context.Background(), usecase.RecordPaymentInput{
		ClientID:     testClient,
		UnitID:       testUnit,
		FiscalYear:   testYear,
		PaymentCents: 30375,
	})
	if err != nil {
		t.Fatalf("payment failed: %v", err)
	}

	paid := f.billRepo.GetBill(testClient, testUnit, "2025-01")
	if paid.Status != domain.BillStatusPaid || paid.PenaltyCents != 375 {
		t.Fatalf("expected fully paid bill with 375 penalty, got %+v", paid)
	}

	if _, err := f.reversal.ReverseTransaction(context.Background(), usecase.ReverseTransactionInput{
		ClientID:      testClient,
		TransactionID: result.TransactionID,
	}); err != nil {
		t.Fatalf("reversal failed: %v", err)
	}

	bill := f.billRepo.GetBill(testClient, testUnit, "2025-01")
	if bill.PenaltyCents != 0 || bill.PenaltyApplied {
		t.Errorf("charged penalty state must be restored, got %d applied=%v", bill.PenaltyCents, bill.PenaltyApplied)
	}
	if bill.Status != domain.BillStatusUnpaid || bill.PaidBaseCents != 0 || bill.PaidPenaltyCents != 0 {
		t.Errorf("bill must read as never paid, got %+v", bill)
	}

	cell := f.aggRepo.GetCell(testClient, testYear, "2025-01", testUnit)
	if cell == nil || cell.DisplayDueCents != 30375 {
		t.Errorf("view cell should show the bill overdue again, got %+v", cell)
	}
}

func TestReversalUseCase_UnknownTransactionNoOp(t *testing.T) {
	f := newFixture(date(2025, 5, 15))

	result, err := f.reversal.ReverseTransaction(context.Background(), usecase.ReverseTransactionInput{
		ClientID:      testClient,
		TransactionID: "no-such-id",
	})
	if err != nil {
		t.Fatalf("unknown id must be a no-op success, got %v", err)
	}
	if len(result.AffectedPeriods) != 0 {
		t.Errorf("expected no affected periods, got %v", result.AffectedPeriods)
	}
	if f.txManager.Last == nil || f.txManager.Last.Committed {
		t.Error("a no-op reversal must not commit anything")
	}
}

func TestReversalUseCase_ClientMismatchNoOp(t *testing.T) {
	f := newFixture(date(2025, 5, 15))
	f.billRepo.AddBill(unpaidBill("2025-04", 22050, date(2025, 5, 10)))

	result, err := f.payment.RecordPayment(context.Background(), usecase.RecordPaymentInput{
		ClientID:     testClient,
		UnitID:       testUnit,
		FiscalYear:   testYear,
		PaymentCents: 10000,
	})
	if err != nil {
		t.Fatalf("payment failed: %v", err)
	}

	if _, err := f.reversal.ReverseTransaction(context.Background(), usecase.ReverseTransactionInput{
		ClientID:      "client-2",
		TransactionID: result.TransactionID,
	}); err != nil {
		t.Fatalf("cross-client reversal must be a no-op, got %v", err)
	}

	if f.txRepo.GetStored(result.TransactionID) == nil {
		t.Error("another client must not delete the transaction")
	}
	bill := f.billRepo.GetBill(testClient, testUnit, "2025-04")
	if bill.PaidBaseCents != 10000 {
		t.Errorf("bill must keep its payment, got %+v", bill)
	}
}

func TestReversalUseCase_SecondReversalNoOp(t *testing.T) {
	f := newFixture(date(2025, 5, 15))
	f.billRepo.AddBill(unpaidBill("2025-04", 22050, date(2025, 5, 10)))

	result, err := f.payment.RecordPayment(context.Background(), usecase.RecordPaymentInput{
		ClientID:     testClient,
		UnitID:       testUnit,
		FiscalYear:   testYear,
		PaymentCents: 10000,
	})
	if err != nil {
		t.Fatalf("payment failed: %v", err)
	}

	input := usecase.ReverseTransactionInput{
		ClientID:      testClient,
		TransactionID: result.TransactionID,
	}
	if _, err := f.reversal.ReverseTransaction(context.Background(), input); err != nil {
		t.Fatalf("first reversal failed: %v", err)
	}

	second, err := f.reversal.ReverseTransaction(context.Background(), input)
	if err != nil {
		t.Fatalf("second reversal must succeed as a no-op, got %v", err)
	}
	if len(second.AffectedPeriods) != 0 {
		t.Errorf("second reversal must touch nothing, got %v", second.AffectedPeriods)
	}

	bill := f.billRepo.GetBill(testClient, testUnit, "2025-04")
	if bill.PaidBaseCents != 0 || bill.Status != domain.BillStatusUnpaid {
		t.Errorf("bill must stay restored, got %+v", bill)
	}
}

func TestReversalUseCase_MultiplePaymentsReverseIndependently(t *testing.T) {
	f := newFixture(date(2025, 5, 15))
	f.billRepo.AddBill(unpaidBill("2025-04", 22050, date(2025, 5, 10)))

	first, err := f.payment.RecordPayment(context.Background(), usecase.RecordPaymentInput{
		ClientID: testClient, UnitID: testUnit, FiscalYear: testYear,
		PaymentCents: 10000,
	})
	if err != nil {
		t.Fatalf("first payment failed: %v", err)
	}
	second, err := f.payment.RecordPayment(context.Background(), usecase.RecordPaymentInput{
		ClientID: testClient, UnitID: testUnit, FiscalYear: testYear,
		PaymentCents: 5000,
	})
	if err != nil {
		t.Fatalf("second payment failed: %v", err)
	}

	// Reversing the first payment removes exactly its line, leaving the
	// second untouched.
	if _, err := f.reversal.ReverseTransaction(context.Background(), usecase.ReverseTransactionInput{
		ClientID:      testClient,
		TransactionID: first.TransactionID,
	}); err != nil {
		t.Fatalf("reversal failed: %v", err)
	}

	bill := f.billRepo.GetBill(testClient, testUnit, "2025-04")
	if bill.PaidBaseCents != 5000 {
		t.Errorf("expected only the second payment to remain, got %d", bill.PaidBaseCents)
	}
	if len(bill.Payments) != 1 || bill.Payments[0].TransactionID != second.TransactionID {
		t.Errorf("expected the second payment line to survive, got %+v", bill.Payments)
	}
}

func TestReversalUseCase_CrossFiscalYearPayment(t *testing.T) {
	// A payment recorded in 2026 cascades onto the unit's open 2025
	// bill. Reversing it must find that bill by its period alone and
	// drop the cached views of both years.
	f := newFixture(date(2026, 1, 15))
	f.billRepo.AddBill(&domain.Bill{
		ClientID:        testClient,
		UnitID:          testUnit,
		FiscalYear:      "2025",
		PeriodID:        "2025-12",
		BaseChargeCents: 30000,
		Status:          domain.BillStatusUnpaid,
		DueDate:         date(2026, 1, 10),
	})

	result, err := f.payment.RecordPayment(context.Background(), usecase.RecordPaymentInput{
		ClientID:     testClient,
		UnitID:       testUnit,
		FiscalYear:   "2026",
		PaymentCents: 30000,
	})
	if err != nil {
		t.Fatalf("payment failed: %v", err)
	}
	if paid := f.billRepo.GetBill(testClient, testUnit, "2025-12"); paid.Status != domain.BillStatusPaid {
		t.Fatalf("expected the 2025 bill settled, got %+v", paid)
	}

	ctx := context.Background()
	_ = f.cache.Set(ctx, "view:client-1:2025", "stale", time.Minute)
	_ = f.cache.Set(ctx, "view:client-1:2026", "stale", time.Minute)

	reversed, err := f.reversal.ReverseTransaction(ctx, usecase.ReverseTransactionInput{
		ClientID:      testClient,
		TransactionID: result.TransactionID,
	})
	if err != nil {
		t.Fatalf("cross-year reversal failed: %v", err)
	}
	if len(reversed.AffectedPeriods) != 1 || reversed.AffectedPeriods[0] != "2025-12" {
		t.Errorf("expected the 2025-12 period affected, got %v", reversed.AffectedPeriods)
	}

	bill := f.billRepo.GetBill(testClient, testUnit, "2025-12")
	if bill.PaidBaseCents != 0 || bill.Status != domain.BillStatusUnpaid {
		t.Errorf("bill must read as never paid, got %+v", bill)
	}
	if f.txRepo.GetStored(result.TransactionID) != nil {
		t.Error("reversed transaction must be deleted")
	}

	for _, key := range []string{"view:client-1:2025", "view:client-1:2026"} {
		if cached, _ := f.cache.Get(ctx, key); cached != "" {
			t.Errorf("expected %s invalidated, still holds %q", key, cached)
		}
	}
}

func TestReversalUseCase_LaterPenaltyKeepsPaidBounded(t *testing.T) {
	// Payment one lands within the grace window, before any penalty
	// exists. Payment two, a month later, materializes and settles the
	// penalty. Reversing payment one restores its zero-penalty snapshot
	// but must never leave more penalty paid than charged.
	f := newFixture(date(2025, 2, 15))
	f.billRepo.AddBill(unpaidBill("2025-01", 30000, date(2025, 2, 10)))

	first, err := f.payment.RecordPayment(context.Background(), usecase.RecordPaymentInput{
		ClientID: testClient, UnitID: testUnit, FiscalYear: testYear,
		PaymentCents: 10000,
	})
	if err != nil {
		t.Fatalf("first payment failed: %v", err)
	}

	f.payment.WithNow(func() time.Time { return date(2025, 3, 25) })
	// Remaining base 20000, one month past grace: 20000 * 1.25% = 250.
	if _, err := f.payment.RecordPayment(context.Background(), usecase.RecordPaymentInput{
		ClientID: testClient, UnitID: testUnit, FiscalYear: testYear,
		PaymentCents: 20250,
	}); err != nil {
		t.Fatalf("second payment failed: %v", err)
	}

	settled := f.billRepo.GetBill(testClient, testUnit, "2025-01")
	if settled.Status != domain.BillStatusPaid || settled.PaidPenaltyCents != 250 {
		t.Fatalf("expected settled bill with 250 penalty paid, got %+v", settled)
	}

	if _, err := f.reversal.ReverseTransaction(context.Background(), usecase.ReverseTransactionInput{
		ClientID:      testClient,
		TransactionID: first.TransactionID,
	}); err != nil {
		t.Fatalf("reversal failed: %v", err)
	}

	bill := f.billRepo.GetBill(testClient, testUnit, "2025-01")
	if bill.PaidPenaltyCents > bill.PenaltyCents {
		t.Fatalf("paid penalty %d exceeds charged %d", bill.PaidPenaltyCents, bill.PenaltyCents)
	}
	if bill.PenaltyCents != 250 || !bill.PenaltyApplied {
		t.Errorf("charged penalty must keep covering the surviving paid amount, got %d applied=%v",
			bill.PenaltyCents, bill.PenaltyApplied)
	}
	if bill.PaidBaseCents != 20000 || bill.Status != domain.BillStatusPartial {
		t.Errorf("only the second payment should remain, got %+v", bill)
	}
}
