package domain

import "time"

// Event types
const (
	EventTypePaymentRecorded      = "payment.recorded"
	EventTypePaymentReversed      = "payment.reversed"
	EventTypeAggregationRebuilt   = "aggregation.rebuilt"
)

// Aggregate types
const (
	AggregateTypeTransaction = "transaction"
	AggregateTypeView        = "aggregated_view"
)

// OutboxEvent represents an event to be published
type OutboxEvent struct {
	ID            string
	AggregateID   string
	AggregateType string
	EventType     string
	Payload       map[string]any
	CreatedAt     time.Time
	PublishedAt   *time.Time
	Published     bool
}

// PaymentRecordedEvent payload
type PaymentRecordedEvent struct {
	TransactionID      string   `json:"transaction_id"`
	ClientID           string   `json:"client_id"`
	UnitID             string   `json:"unit_id"`
	AmountCents        int64    `json:"amount_cents"`
	CreditUsedCents    int64    `json:"credit_used_cents"`
	CreditCreatedCents int64    `json:"credit_created_cents"`
	AffectedPeriods    []string `json:"affected_periods"`
}

// PaymentReversedEvent payload
type PaymentReversedEvent struct {
	TransactionID   string   `json:"transaction_id"`
	ClientID        string   `json:"client_id"`
	UnitID          string   `json:"unit_id"`
	AffectedPeriods []string `json:"affected_periods"`
}
