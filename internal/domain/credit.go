package domain

import "time"

// CreditReason explains why a credit ledger entry was written.
type CreditReason string

const (
	CreditReasonPaymentUsed    CreditReason = "payment.credit_used"
	CreditReasonOverpayment    CreditReason = "payment.overpayment"
	CreditReasonManualAdjust   CreditReason = "manual.adjustment"
	CreditReasonOpeningBalance CreditReason = "opening.balance"
)

// CreditEntry is one append-only movement on a unit's credit balance.
// Entries created by a payment carry the transaction id so a reversal
// deletes exactly them, never "the most recent".
type CreditEntry struct {
	EntryID               string
	ClientID              string
	UnitID                string
	FiscalYear            string
	DeltaCents            int64
	ResultingBalanceCents int64
	TransactionID         string
	Reason                CreditReason
	CreatedAt             time.Time
}

// CreditLedger is a unit's prepaid balance for one fiscal year.
// Invariant: BalanceCents equals the sum of all history deltas.
type CreditLedger struct {
	ClientID     string
	UnitID       string
	FiscalYear   string
	BalanceCents int64
	Version      int64
	History      []CreditEntry
	UpdatedAt    time.Time
}

// ValidateUse checks that the requested credit can be taken in full.
// Credit use is all or nothing; a partial draw is never honored.
func (c *CreditLedger) ValidateUse(amountCents int64) error {
	if amountCents < 0 {
		return ErrInvalidAmount
	}

	if amountCents > c.BalanceCents {
		return ErrInsufficientCredit
	}

	return nil
}

// SumCreditDeltas recomputes a balance from history entries. Reversal
// uses this instead of subtract-in-place so balances cannot drift.
func SumCreditDeltas(entries []CreditEntry) int64 {
	var sum int64
	for _, e := range entries {
		sum += e.DeltaCents
	}

	return sum
}
