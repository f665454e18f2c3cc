package domain

import "time"

// Allocation is one base/penalty portion of a payment applied to one
// billing period. Only nonzero lines are recorded.
//
// PenaltyBeforeCents and PenaltyAppliedBefore snapshot the bill's
// charged-penalty state from just before the payment. Recording a
// payment may materialize a freshly computed penalty onto the bill, and
// reversal has to restore that state exactly instead of re-deriving it.
type Allocation struct {
	PeriodID             string `json:"period_id"`
	BaseCents            int64  `json:"base_cents"`
	PenaltyCents         int64  `json:"penalty_cents"`
	PenaltyBeforeCents   int64  `json:"penalty_before_cents"`
	PenaltyAppliedBefore bool   `json:"penalty_applied_before"`
}

// LedgerTransaction is the atomic record of one payment: the money that
// came in, the credit it consumed or created, and every allocation it
// produced. It is immutable except for whole-record deletion.
// CreditHistoryRefs holds the ids of every credit entry the payment
// wrote, which is what makes reversal exact rather than heuristic.
type LedgerTransaction struct {
	ID                 string
	ClientID           string
	UnitID             string
	FiscalYear         string
	AmountCents        int64
	CreditUsedCents    int64
	CreditCreatedCents int64
	Allocations        []Allocation
	CreditHistoryRefs  []string
	CreatedAt          time.Time
}

// TotalAllocatedCents sums all allocation lines.
func (t *LedgerTransaction) TotalAllocatedCents() int64 {
	var sum int64
	for _, a := range t.Allocations {
		sum += a.BaseCents + a.PenaltyCents
	}

	return sum
}

// Validate checks the conservation invariant: every cent that entered
// the transaction is either allocated to a bill or turned into credit.
func (t *LedgerTransaction) Validate() error {
	if t.AmountCents < 0 || t.CreditUsedCents < 0 || t.CreditCreatedCents < 0 {
		return ErrInvalidAmount
	}

	if t.TotalAllocatedCents()+t.CreditCreatedCents != t.AmountCents+t.CreditUsedCents {
		return ErrUnbalancedTransaction
	}

	return nil
}

// AffectedPeriods returns the period ids touched by this transaction.
func (t *LedgerTransaction) AffectedPeriods() []string {
	periods := make([]string, 0, len(t.Allocations))
	for _, a := range t.Allocations {
		periods = append(periods, a.PeriodID)
	}

	return periods
}
