package domain

import (
	"errors"
	"testing"
	"time"
)

func TestBill_ComputeStatus(t *testing.T) {
	tests := []struct {
		name string
		bill Bill
		want BillStatus
	}{
		{"nothing paid", Bill{BaseChargeCents: 30000}, BillStatusUnpaid},
		{"partially paid base", Bill{BaseChargeCents: 30000, PaidBaseCents: 15000}, BillStatusPartial},
		{"base paid but penalty open", Bill{BaseChargeCents: 30000, PaidBaseCents: 30000, PenaltyCents: 375}, BillStatusPartial},
		{"fully paid", Bill{BaseChargeCents: 30000, PaidBaseCents: 30000, PenaltyCents: 375, PaidPenaltyCents: 375}, BillStatusPaid},
		{"zero charge with nothing paid", Bill{}, BillStatusUnpaid},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.bill.ComputeStatus(); got != tt.want {
				t.Errorf("ComputeStatus() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestBill_ApplyPayment(t *testing.T) {
	now := time.Now().UTC()

	t.Run("records line and updates totals", func(t *testing.T) {
		bill := Bill{BaseChargeCents: 30000, PenaltyCents: 2813}

		if err := bill.ApplyPayment("tx-1", 15000, 0, now); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if bill.PaidBaseCents != 15000 || bill.Status != BillStatusPartial {
			t.Errorf("got paidBase=%d status=%s", bill.PaidBaseCents, bill.Status)
		}
		if len(bill.Payments) != 1 || bill.Payments[0].TransactionID != "tx-1" {
			t.Errorf("payment line not recorded: %+v", bill.Payments)
		}
	})

	t.Run("rejects allocation beyond remaining due", func(t *testing.T) {
		bill := Bill{BaseChargeCents: 30000, PaidBaseCents: 20000}

		err := bill.ApplyPayment("tx-1", 15000, 0, now)
		if !errors.Is(err, ErrAllocationExceedsDue) {
			t.Errorf("expected ErrAllocationExceedsDue, got %v", err)
		}
	})

	t.Run("rejects negative amounts", func(t *testing.T) {
		bill := Bill{BaseChargeCents: 30000}

		err := bill.ApplyPayment("tx-1", -1, 0, now)
		if !errors.Is(err, ErrInvalidAmount) {
			t.Errorf("expected ErrInvalidAmount, got %v", err)
		}
	})
}

func TestBill_RevertPayment(t *testing.T) {
	now := time.Now().UTC()

	t.Run("round trip restores the bill exactly", func(t *testing.T) {
		bill := Bill{BaseChargeCents: 30000, PenaltyCents: 2813}

		if err := bill.ApplyPayment("tx-1", 15000, 500, now); err != nil {
			t.Fatalf("apply: %v", err)
		}
		if err := bill.RevertPayment("tx-1", 15000, 500); err != nil {
			t.Fatalf("revert: %v", err)
		}

		if bill.PaidBaseCents != 0 || bill.PaidPenaltyCents != 0 {
			t.Errorf("paid totals not restored: base=%d penalty=%d", bill.PaidBaseCents, bill.PaidPenaltyCents)
		}
		if bill.Status != BillStatusUnpaid {
			t.Errorf("status = %s, want unpaid", bill.Status)
		}
		if len(bill.Payments) != 0 {
			t.Errorf("payment line not removed: %+v", bill.Payments)
		}
	})

	t.Run("removes only the matching transaction line", func(t *testing.T) {
		bill := Bill{BaseChargeCents: 30000}
		_ = bill.ApplyPayment("tx-1", 10000, 0, now)
		_ = bill.ApplyPayment("tx-2", 5000, 0, now)

		if err := bill.RevertPayment("tx-1", 10000, 0); err != nil {
			t.Fatalf("revert: %v", err)
		}

		if len(bill.Payments) != 1 || bill.Payments[0].TransactionID != "tx-2" {
			t.Errorf("wrong line removed: %+v", bill.Payments)
		}
		if bill.PaidBaseCents != 5000 {
			t.Errorf("PaidBaseCents = %d, want 5000", bill.PaidBaseCents)
		}
	})

	t.Run("unknown transaction", func(t *testing.T) {
		bill := Bill{BaseChargeCents: 30000}

		err := bill.RevertPayment("tx-404", 100, 0)
		if !errors.Is(err, ErrPaymentEntryNotFound) {
			t.Errorf("expected ErrPaymentEntryNotFound, got %v", err)
		}
	})

	t.Run("amount mismatch refuses to guess", func(t *testing.T) {
		bill := Bill{BaseChargeCents: 30000}
		_ = bill.ApplyPayment("tx-1", 10000, 0, now)

		err := bill.RevertPayment("tx-1", 9999, 0)
		if !errors.Is(err, ErrPaymentEntryMismatch) {
			t.Errorf("expected ErrPaymentEntryMismatch, got %v", err)
		}
	})
}

func TestCreditLedger_ValidateUse(t *testing.T) {
	ledger := CreditLedger{BalanceCents: 50000}

	if err := ledger.ValidateUse(50000); err != nil {
		t.Errorf("full balance should be usable: %v", err)
	}

	if err := ledger.ValidateUse(50001); !errors.Is(err, ErrInsufficientCredit) {
		t.Errorf("expected ErrInsufficientCredit, got %v", err)
	}

	if err := ledger.ValidateUse(-1); !errors.Is(err, ErrInvalidAmount) {
		t.Errorf("expected ErrInvalidAmount, got %v", err)
	}
}

func TestSumCreditDeltas(t *testing.T) {
	entries := []CreditEntry{
		{DeltaCents: 50000},
		{DeltaCents: -10000},
		{DeltaCents: 2500},
	}

	if got := SumCreditDeltas(entries); got != 42500 {
		t.Errorf("SumCreditDeltas() = %d, want 42500", got)
	}

	if got := SumCreditDeltas(nil); got != 0 {
		t.Errorf("SumCreditDeltas(nil) = %d, want 0", got)
	}
}

func TestLedgerTransaction_Validate(t *testing.T) {
	tx := LedgerTransaction{
		AmountCents:        108050,
		CreditUsedCents:    0,
		CreditCreatedCents: 65000,
		Allocations: []Allocation{
			{PeriodID: "2025-03", BaseCents: 22050},
			{PeriodID: "2025-04", BaseCents: 21000},
		},
	}

	if err := tx.Validate(); err != nil {
		t.Errorf("balanced transaction rejected: %v", err)
	}

	tx.CreditCreatedCents = 64999
	if err := tx.Validate(); !errors.Is(err, ErrUnbalancedTransaction) {
		t.Errorf("expected ErrUnbalancedTransaction, got %v", err)
	}
}
