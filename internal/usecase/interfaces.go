package usecase

import (
	"context"
	"time"

	"github.com/iho/waterledger/internal/domain"
)

// BillRepository defines data access for bills.
type BillRepository interface {
	// GetOutstandingForUpdate locks and returns every bill of the unit
	// with any unpaid base or penalty, oldest period first.
	GetOutstandingForUpdate(ctx context.Context, tx Transaction, clientID, unitID string) ([]*domain.Bill, error)
	// GetByPeriodForUpdate locks and returns one bill. A period id
	// identifies the bill within a unit on its own; the payment cascade
	// crosses fiscal years, so lookups must not be year-scoped.
	GetByPeriodForUpdate(ctx context.Context, tx Transaction, clientID, unitID, periodID string) (*domain.Bill, error)
	ListOutstandingByUnit(ctx context.Context, clientID, unitID string) ([]*domain.Bill, error)
	ListByFiscalYear(ctx context.Context, clientID, fiscalYear string) ([]*domain.Bill, error)
	ListByUnitPeriods(ctx context.Context, clientID, fiscalYear, unitID string, periodIDs []string) ([]*domain.Bill, error)
	// Update persists the bill, failing with ErrConcurrentModification
	// when the stored version no longer matches.
	Update(ctx context.Context, tx Transaction, bill *domain.Bill) error
}

// CreditRepository defines data access for credit ledgers and their
// append-only history.
type CreditRepository interface {
	// GetForUpdate locks and returns the unit's credit ledger, creating
	// an empty one when the unit has never carried credit.
	GetForUpdate(ctx context.Context, tx Transaction, clientID, unitID, fiscalYear string) (*domain.CreditLedger, error)
	Get(ctx context.Context, clientID, unitID, fiscalYear string) (*domain.CreditLedger, error)
	AppendEntry(ctx context.Context, tx Transaction, entry *domain.CreditEntry) error
	DeleteEntryByID(ctx context.Context, tx Transaction, entryID string) error
	ListEntries(ctx context.Context, tx Transaction, clientID, unitID, fiscalYear string) ([]domain.CreditEntry, error)
	UpdateBalance(ctx context.Context, tx Transaction, clientID, unitID, fiscalYear string, balanceCents int64, updatedAt time.Time) error
}

// TransactionRepository defines data access for ledger transactions.
type TransactionRepository interface {
	Create(ctx context.Context, tx Transaction, transaction *domain.LedgerTransaction) error
	GetByID(ctx context.Context, id string) (*domain.LedgerTransaction, error)
	GetByIDForUpdate(ctx context.Context, tx Transaction, id string) (*domain.LedgerTransaction, error)
	Delete(ctx context.Context, tx Transaction, id string) error
	ListByUnit(ctx context.Context, clientID, unitID string, limit, offset int) ([]*domain.LedgerTransaction, error)
}

// AggregateRepository defines data access for the materialized
// per-fiscal-year view. The view is derived state; nothing in the
// engine reads it back as authoritative.
type AggregateRepository interface {
	UpsertCell(ctx context.Context, cell *domain.AggregatedCell) error
	UpsertCellTx(ctx context.Context, tx Transaction, cell *domain.AggregatedCell) error
	GetView(ctx context.Context, clientID, fiscalYear string) (*domain.AggregatedView, error)
}

// OutboxRepository defines data access for outbox events.
type OutboxRepository interface {
	Create(ctx context.Context, tx Transaction, event *domain.OutboxEvent) error
	GetUnpublished(ctx context.Context, limit int) ([]*domain.OutboxEvent, error)
	MarkPublished(ctx context.Context, id string, publishedAt time.Time) error
	DeletePublished(ctx context.Context, before time.Time) error
}

// AuditRepository defines data access for audit logs.
type AuditRepository interface {
	Create(ctx context.Context, log *domain.AuditLog) error
	CreateTx(ctx context.Context, tx Transaction, log *domain.AuditLog) error
	List(ctx context.Context, filter domain.AuditFilter) ([]*domain.AuditLog, error)
}

// Transaction represents a database transaction.
type Transaction interface {
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// TransactionManager handles transaction lifecycle.
type TransactionManager interface {
	Begin(ctx context.Context) (Transaction, error)
}

// IDGenerator generates unique IDs.
type IDGenerator interface {
	Generate() string
}

// Retrier retries an operation on transient store conflicts. The whole
// operation runs again from the top; nothing resumes mid-way.
type Retrier interface {
	Retry(ctx context.Context, operation func() error) error
}

// Cache defines caching operations for the display layer.
type Cache interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

// IdempotencyStore handles idempotency key storage.
type IdempotencyStore interface {
	// CheckAndSet atomically checks if key exists, sets if not.
	// Returns (exists, existingValue, error).
	CheckAndSet(ctx context.Context, key string, response []byte, ttl time.Duration) (bool, []byte, error)
	// Update updates an existing key with the final response.
	Update(ctx context.Context, key string, response []byte, ttl time.Duration) error
}
