package domain

import (
	"time"
)

// BillStatus describes how much of a bill has been settled.
type BillStatus string

const (
	BillStatusUnpaid  BillStatus = "unpaid"
	BillStatusPartial BillStatus = "partial"
	BillStatusPaid    BillStatus = "paid"
)

// PaymentLine is one payment applied to a bill, tagged with the
// transaction that created it so a reversal can remove it by id.
type PaymentLine struct {
	TransactionID string    `json:"transaction_id"`
	BaseCents     int64     `json:"base_cents"`
	PenaltyCents  int64     `json:"penalty_cents"`
	AppliedAt     time.Time `json:"applied_at"`
}

// Bill is the charge for one unit in one billing period. It is the
// source of truth for everything owed and paid; the aggregated view is
// derived from it and never the other way around.
type Bill struct {
	ClientID         string
	UnitID           string
	FiscalYear       string
	PeriodID         string
	BaseChargeCents  int64
	PenaltyCents     int64
	PaidBaseCents    int64
	PaidPenaltyCents int64
	Status           BillStatus
	DueDate          time.Time
	PenaltyApplied   bool
	Payments         []PaymentLine
	Version          int64
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// RemainingBaseCents returns the unpaid part of the base charge.
func (b *Bill) RemainingBaseCents() int64 {
	return b.BaseChargeCents - b.PaidBaseCents
}

// RemainingPenaltyCents returns the unpaid part of the charged penalty.
func (b *Bill) RemainingPenaltyCents() int64 {
	return b.PenaltyCents - b.PaidPenaltyCents
}

// Outstanding reports whether any base or penalty remains unpaid.
func (b *Bill) Outstanding() bool {
	return b.RemainingBaseCents() > 0 || b.RemainingPenaltyCents() > 0
}

// ComputeStatus derives the status from paid totals. Status is never
// stored independently of the totals it is derived from.
func (b *Bill) ComputeStatus() BillStatus {
	switch {
	case b.PaidBaseCents == 0 && b.PaidPenaltyCents == 0:
		return BillStatusUnpaid
	case b.RemainingBaseCents() == 0 && b.RemainingPenaltyCents() == 0:
		return BillStatusPaid
	default:
		return BillStatusPartial
	}
}

// ApplyPayment records one allocation on the bill: increments paid
// totals, appends the payment line and recomputes status.
func (b *Bill) ApplyPayment(transactionID string, baseCents, penaltyCents int64, appliedAt time.Time) error {
	if baseCents < 0 || penaltyCents < 0 {
		return ErrInvalidAmount
	}

	if baseCents > b.RemainingBaseCents() || penaltyCents > b.RemainingPenaltyCents() {
		return ErrAllocationExceedsDue
	}

	b.PaidBaseCents += baseCents
	b.PaidPenaltyCents += penaltyCents
	b.Payments = append(b.Payments, PaymentLine{
		TransactionID: transactionID,
		BaseCents:     baseCents,
		PenaltyCents:  penaltyCents,
		AppliedAt:     appliedAt,
	})
	b.Status = b.ComputeStatus()

	return nil
}

// RevertPayment removes the payment line created by transactionID and
// decrements the paid totals by the exact recorded amounts.
func (b *Bill) RevertPayment(transactionID string, baseCents, penaltyCents int64) error {
	idx := -1
	for i, p := range b.Payments {
		if p.TransactionID == transactionID {
			idx = i
			break
		}
	}

	if idx == -1 {
		return ErrPaymentEntryNotFound
	}

	line := b.Payments[idx]
	if line.BaseCents != baseCents || line.PenaltyCents != penaltyCents {
		return ErrPaymentEntryMismatch
	}

	if b.PaidBaseCents < baseCents || b.PaidPenaltyCents < penaltyCents {
		return ErrPaymentEntryMismatch
	}

	b.PaidBaseCents -= baseCents
	b.PaidPenaltyCents -= penaltyCents
	b.Payments = append(b.Payments[:idx], b.Payments[idx+1:]...)
	b.Status = b.ComputeStatus()

	return nil
}
