package domain

import "sort"

// AllocationPlan is the output of the payment cascade: the per-bill
// allocation lines plus whatever was left over as new credit.
type AllocationPlan struct {
	Allocations        []Allocation
	CreditCreatedCents int64
}

// Allocate cascades available funds across outstanding bills, oldest
// period first, base before penalty within each bill. Only nonzero
// lines are produced. Funds left after every bill is satisfied become
// CreditCreatedCents. Zero funds yields an empty plan, which makes the
// function usable as a dry run. Negative funds is rejected.
//
// Bills are sorted by period id here even though callers pass them
// oldest-first; the cascade order is an invariant, not a convention.
func Allocate(bills []*Bill, fundsCents int64) (AllocationPlan, error) {
	if fundsCents < 0 {
		return AllocationPlan{}, ErrInvalidAmount
	}

	sorted := make([]*Bill, len(bills))
	copy(sorted, bills)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].PeriodID < sorted[j].PeriodID
	})

	plan := AllocationPlan{}
	remaining := fundsCents

	for _, bill := range sorted {
		if remaining == 0 {
			break
		}

		base := minCents(remaining, bill.RemainingBaseCents())
		remaining -= base

		penalty := minCents(remaining, bill.RemainingPenaltyCents())
		remaining -= penalty

		if base == 0 && penalty == 0 {
			continue
		}

		plan.Allocations = append(plan.Allocations, Allocation{
			PeriodID:     bill.PeriodID,
			BaseCents:    base,
			PenaltyCents: penalty,
		})
	}

	plan.CreditCreatedCents = remaining

	return plan, nil
}

func minCents(a, b int64) int64 {
	if a < b {
		return a
	}

	return b
}
