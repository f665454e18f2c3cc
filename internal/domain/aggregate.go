package domain

import "time"

// AggregatedCell is one (unit, period) slot of the materialized
// fiscal-year view. It is purely derived from the bill and is rebuilt
// idempotently; the engine never reads it as authoritative.
type AggregatedCell struct {
	ClientID            string
	FiscalYear          string
	PeriodID            string
	UnitID              string
	DisplayDueCents     int64
	DisplayPenaltyCents int64
	Status              BillStatus
	LastRecomputedAt    time.Time
}

// AggregatedView is the per-fiscal-year projection used for display:
// period id -> unit id -> cell.
type AggregatedView struct {
	ClientID         string
	FiscalYear       string
	PerMonth         map[string]map[string]AggregatedCell
	LastRecomputedAt time.Time
}

// DeriveCell computes the display cell for a bill. Bulk and surgical
// rebuilds both call this; there is no second derivation.
func DeriveCell(bill *Bill, asOf time.Time, cfg PenaltyConfig) AggregatedCell {
	status := bill.ComputeStatus()

	// The penalty is recomputed against the remaining unpaid base, then
	// reduced by whatever penalty was already paid. Paid bills read zero
	// inside CalculatePenalty itself. A bill whose base is settled can
	// still owe charged-but-unpaid penalty, which the recomputation no
	// longer sees; the display never shows less than that remainder,
	// matching what the allocator will collect.
	displayPenalty := CalculatePenalty(bill, asOf, cfg) - bill.PaidPenaltyCents
	if remainder := bill.RemainingPenaltyCents(); displayPenalty < remainder {
		displayPenalty = remainder
	}
	if displayPenalty < 0 {
		displayPenalty = 0
	}

	return AggregatedCell{
		ClientID:            bill.ClientID,
		FiscalYear:          bill.FiscalYear,
		PeriodID:            bill.PeriodID,
		UnitID:              bill.UnitID,
		DisplayDueCents:     bill.RemainingBaseCents() + displayPenalty,
		DisplayPenaltyCents: displayPenalty,
		Status:              status,
		LastRecomputedAt:    asOf,
	}
}
