package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// PenaltyConfig holds the overdue-penalty parameters.
type PenaltyConfig struct {
	GraceDays          int
	MonthlyRatePercent decimal.Decimal
}

// DefaultPenaltyConfig matches the standard billing policy: ten days of
// grace, then 1.25% of the unpaid base per started month.
func DefaultPenaltyConfig() PenaltyConfig {
	return PenaltyConfig{
		GraceDays:          10,
		MonthlyRatePercent: decimal.NewFromFloat(1.25),
	}
}

// CalculatePenalty returns the penalty owed on a bill as of the given
// date. This is the only penalty formula in the engine; the allocator,
// the outstanding query and both rebuild scopes all go through it.
//
// A fully paid bill always reads zero, regardless of the historical
// charged value kept on the bill for audit. Within the grace window the
// penalty is zero. Past it, the penalty is the remaining unpaid base
// times the monthly rate times the number of whole calendar months
// elapsed since grace expiry, with a minimum of one month. The penalty
// follows the remaining base, never the pre-payment balance.
func CalculatePenalty(bill *Bill, asOf time.Time, cfg PenaltyConfig) int64 {
	if bill.ComputeStatus() == BillStatusPaid {
		return 0
	}

	remainingBase := bill.RemainingBaseCents()
	if remainingBase <= 0 {
		return 0
	}

	graceEnd := bill.DueDate.AddDate(0, 0, cfg.GraceDays)
	if !asOf.After(graceEnd) {
		return 0
	}

	months := wholeMonthsBetween(graceEnd, asOf)
	if months < 1 {
		months = 1
	}

	penalty := decimal.NewFromInt(remainingBase).
		Mul(cfg.MonthlyRatePercent).
		Div(decimal.NewFromInt(100)).
		Mul(decimal.NewFromInt(int64(months))).
		Round(0)

	return penalty.IntPart()
}

// RefreshPenalty materializes the current penalty onto the bill's
// charged fields before funds are allocated against it. The charged
// penalty only ever grows; it never drops below what was already paid.
func RefreshPenalty(bill *Bill, asOf time.Time, cfg PenaltyConfig) {
	recalced := CalculatePenalty(bill, asOf, cfg)
	charged := bill.PaidPenaltyCents + recalced

	if charged > bill.PenaltyCents {
		bill.PenaltyCents = charged
	}

	if recalced > 0 {
		bill.PenaltyApplied = true
	}
}

// wholeMonthsBetween counts fully elapsed calendar months from one date
// to another.
func wholeMonthsBetween(from, to time.Time) int {
	months := (to.Year()-from.Year())*12 + int(to.Month()) - int(from.Month())
	if to.Day() < from.Day() {
		months--
	}

	if months < 0 {
		return 0
	}

	return months
}
