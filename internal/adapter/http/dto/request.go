package dto

import (
	"github.com/iho/waterledger/internal/usecase"
)

// RecordPaymentRequest represents a request to record a payment.
type RecordPaymentRequest struct {
	UnitID         string `json:"unit_id"`
	FiscalYear     string `json:"fiscal_year"`
	PaymentCents   int64  `json:"payment_cents"`
	UseCreditCents int64  `json:"use_credit_cents,omitempty"`
}

// ToUseCaseInput converts to use case input.
func (r *RecordPaymentRequest) ToUseCaseInput(clientID, actor, requestID string) usecase.RecordPaymentInput {
	return usecase.RecordPaymentInput{
		ClientID:       clientID,
		UnitID:         r.UnitID,
		FiscalYear:     r.FiscalYear,
		PaymentCents:   r.PaymentCents,
		UseCreditCents: r.UseCreditCents,
		Actor:          actor,
		RequestID:      requestID,
	}
}

// RebuildRequest selects the scope of an aggregation rebuild. An empty
// body or all_units=true rebuilds every unit of the fiscal year.
type RebuildRequest struct {
	AllUnits  bool     `json:"all_units"`
	UnitID    string   `json:"unit_id,omitempty"`
	PeriodIDs []string `json:"period_ids,omitempty"`
}

// ToScope converts to the use case rebuild scope.
func (r *RebuildRequest) ToScope() usecase.RebuildScope {
	return usecase.RebuildScope{
		AllUnits:  r.AllUnits,
		UnitID:    r.UnitID,
		PeriodIDs: r.PeriodIDs,
	}
}
