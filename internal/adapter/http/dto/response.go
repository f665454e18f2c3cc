package dto

import (
	"sort"
	"time"

	"github.com/iho/waterledger/internal/domain"
	"github.com/iho/waterledger/internal/usecase"
)

// ErrorResponse represents an error in API responses.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

// AllocationResponse is one allocation line of a payment.
type AllocationResponse struct {
	PeriodID     string `json:"period_id"`
	BaseCents    int64  `json:"base_cents"`
	PenaltyCents int64  `json:"penalty_cents"`
}

// PaymentResponse represents a recorded payment.
type PaymentResponse struct {
	TransactionID      string               `json:"transaction_id"`
	Allocations        []AllocationResponse `json:"allocations"`
	CreditCreatedCents int64                `json:"credit_created_cents"`
	AffectedPeriods    []string             `json:"affected_periods"`
}

// PaymentFromResult converts a use case result to a response.
func PaymentFromResult(result *usecase.RecordPaymentResult) *PaymentResponse {
	allocations := make([]AllocationResponse, len(result.Allocations))
	for i, a := range result.Allocations {
		allocations[i] = AllocationResponse{
			PeriodID:     a.PeriodID,
			BaseCents:    a.BaseCents,
			PenaltyCents: a.PenaltyCents,
		}
	}

	return &PaymentResponse{
		TransactionID:      result.TransactionID,
		Allocations:        allocations,
		CreditCreatedCents: result.CreditCreatedCents,
		AffectedPeriods:    result.AffectedPeriods,
	}
}

// ReversalResponse represents a reversed payment.
type ReversalResponse struct {
	TransactionID   string   `json:"transaction_id"`
	AffectedPeriods []string `json:"affected_periods"`
}

// TransactionResponse represents a ledger transaction.
type TransactionResponse struct {
	ID                 string               `json:"id"`
	ClientID           string               `json:"client_id"`
	UnitID             string               `json:"unit_id"`
	FiscalYear         string               `json:"fiscal_year"`
	AmountCents        int64                `json:"amount_cents"`
	CreditUsedCents    int64                `json:"credit_used_cents"`
	CreditCreatedCents int64                `json:"credit_created_cents"`
	Allocations        []AllocationResponse `json:"allocations"`
	CreatedAt          time.Time            `json:"created_at"`
}

// TransactionFromDomain converts a domain transaction to a response.
func TransactionFromDomain(t *domain.LedgerTransaction) *TransactionResponse {
	allocations := make([]AllocationResponse, len(t.Allocations))
	for i, a := range t.Allocations {
		allocations[i] = AllocationResponse{
			PeriodID:     a.PeriodID,
			BaseCents:    a.BaseCents,
			PenaltyCents: a.PenaltyCents,
		}
	}

	return &TransactionResponse{
		ID:                 t.ID,
		ClientID:           t.ClientID,
		UnitID:             t.UnitID,
		FiscalYear:         t.FiscalYear,
		AmountCents:        t.AmountCents,
		CreditUsedCents:    t.CreditUsedCents,
		CreditCreatedCents: t.CreditCreatedCents,
		Allocations:        allocations,
		CreatedAt:          t.CreatedAt,
	}
}

// TransactionsFromDomain converts domain transactions to responses.
func TransactionsFromDomain(transactions []*domain.LedgerTransaction) []*TransactionResponse {
	result := make([]*TransactionResponse, len(transactions))
	for i, t := range transactions {
		result[i] = TransactionFromDomain(t)
	}
	return result
}

// OutstandingItemResponse is one period with money still owed.
type OutstandingItemResponse struct {
	PeriodID           string    `json:"period_id"`
	UnpaidBaseCents    int64     `json:"unpaid_base_cents"`
	UnpaidPenaltyCents int64     `json:"unpaid_penalty_cents"`
	DueDate            time.Time `json:"due_date"`
}

// OutstandingResponse lists everything a unit owes.
type OutstandingResponse struct {
	UnitID             string                    `json:"unit_id"`
	Items              []OutstandingItemResponse `json:"items"`
	TotalDueCents      int64                     `json:"total_due_cents"`
	CreditBalanceCents int64                     `json:"credit_balance_cents"`
}

// OutstandingFromItems converts use case items to a response.
func OutstandingFromItems(unitID string, items []usecase.OutstandingItem, creditBalanceCents int64) *OutstandingResponse {
	resp := &OutstandingResponse{
		UnitID:             unitID,
		Items:              make([]OutstandingItemResponse, len(items)),
		CreditBalanceCents: creditBalanceCents,
	}

	for i, item := range items {
		resp.Items[i] = OutstandingItemResponse{
			PeriodID:           item.PeriodID,
			UnpaidBaseCents:    item.UnpaidBaseCents,
			UnpaidPenaltyCents: item.UnpaidPenaltyCents,
			DueDate:            item.DueDate,
		}
		resp.TotalDueCents += item.UnpaidBaseCents + item.UnpaidPenaltyCents
	}

	return resp
}

// CellResponse is one (unit, period) slot of the aggregated view.
type CellResponse struct {
	UnitID              string    `json:"unit_id"`
	DisplayDueCents     int64     `json:"display_due_cents"`
	DisplayPenaltyCents int64     `json:"display_penalty_cents"`
	Status              string    `json:"status"`
	LastRecomputedAt    time.Time `json:"last_recomputed_at"`
}

// ViewResponse represents the aggregated fiscal-year view.
type ViewResponse struct {
	ClientID         string                    `json:"client_id"`
	FiscalYear       string                    `json:"fiscal_year"`
	PerMonth         map[string][]CellResponse `json:"per_month"`
	LastRecomputedAt time.Time                 `json:"last_recomputed_at"`
}

// ViewFromDomain converts the domain view to a response.
func ViewFromDomain(view *domain.AggregatedView) *ViewResponse {
	resp := &ViewResponse{
		ClientID:         view.ClientID,
		FiscalYear:       view.FiscalYear,
		PerMonth:         make(map[string][]CellResponse, len(view.PerMonth)),
		LastRecomputedAt: view.LastRecomputedAt,
	}

	for periodID, units := range view.PerMonth {
		cells := make([]CellResponse, 0, len(units))
		for unitID, cell := range units {
			cells = append(cells, CellResponse{
				UnitID:              unitID,
				DisplayDueCents:     cell.DisplayDueCents,
				DisplayPenaltyCents: cell.DisplayPenaltyCents,
				Status:              string(cell.Status),
				LastRecomputedAt:    cell.LastRecomputedAt,
			})
		}
		sort.Slice(cells, func(i, j int) bool { return cells[i].UnitID < cells[j].UnitID })
		resp.PerMonth[periodID] = cells
	}

	return resp
}
