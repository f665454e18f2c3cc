package postgres

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/iho/waterledger/internal/domain"
	"github.com/iho/waterledger/internal/usecase"
)

const transactionColumns = `
	id, client_id, unit_id, fiscal_year,
	amount_cents, credit_used_cents, credit_created_cents,
	allocations, credit_history_refs, created_at
`

// TransactionRepository implements usecase.TransactionRepository.
type TransactionRepository struct {
	pool *pgxpool.Pool
}

// NewTransactionRepository creates a new TransactionRepository.
func NewTransactionRepository(pool *pgxpool.Pool) *TransactionRepository {
	return &TransactionRepository{pool: pool}
}

// Create inserts the ledger transaction with its allocation lines and
// credit-entry references.
func (r *TransactionRepository) Create(ctx context.Context, tx usecase.Transaction, transaction *domain.LedgerTransaction) error {
	allocations, err := json.Marshal(transaction.Allocations)
	if err != nil {
		return err
	}

	refs, err := json.Marshal(transaction.CreditHistoryRefs)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO ledger_transactions (` + transactionColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	_, err = tx.(*Tx).PgxTx().Exec(ctx, query,
		transaction.ID, transaction.ClientID, transaction.UnitID, transaction.FiscalYear,
		transaction.AmountCents, transaction.CreditUsedCents, transaction.CreditCreatedCents,
		allocations, refs, transaction.CreatedAt,
	)

	return err
}

// GetByID retrieves a transaction.
func (r *TransactionRepository) GetByID(ctx context.Context, id string) (*domain.LedgerTransaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM ledger_transactions WHERE id = $1`

	return scanTransaction(r.pool.QueryRow(ctx, query, id))
}

// GetByIDForUpdate retrieves a transaction with a FOR UPDATE lock, so
// two concurrent reversals of the same id serialize.
func (r *TransactionRepository) GetByIDForUpdate(ctx context.Context, tx usecase.Transaction, id string) (*domain.LedgerTransaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM ledger_transactions WHERE id = $1 FOR UPDATE`

	return scanTransaction(tx.(*Tx).PgxTx().QueryRow(ctx, query, id))
}

// Delete removes a reversed transaction.
func (r *TransactionRepository) Delete(ctx context.Context, tx usecase.Transaction, id string) error {
	tag, err := tx.(*Tx).PgxTx().Exec(ctx, `DELETE FROM ledger_transactions WHERE id = $1`, id)
	if err != nil {
		return err
	}

	if tag.RowsAffected() == 0 {
		return domain.ErrTransactionNotFound
	}

	return nil
}

// ListByUnit lists a unit's transactions, newest first.
func (r *TransactionRepository) ListByUnit(ctx context.Context, clientID, unitID string, limit, offset int) ([]*domain.LedgerTransaction, error) {
	query := `
		SELECT ` + transactionColumns + `
		FROM ledger_transactions
		WHERE client_id = $1 AND unit_id = $2
		ORDER BY created_at DESC, id DESC
		LIMIT $3 OFFSET $4
	`

	rows, err := r.pool.Query(ctx, query, clientID, unitID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var transactions []*domain.LedgerTransaction
	for rows.Next() {
		transaction, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		transactions = append(transactions, transaction)
	}

	return transactions, rows.Err()
}

func scanTransaction(row pgx.Row) (*domain.LedgerTransaction, error) {
	var transaction domain.LedgerTransaction
	var allocations, refs []byte

	err := row.Scan(
		&transaction.ID, &transaction.ClientID, &transaction.UnitID, &transaction.FiscalYear,
		&transaction.AmountCents, &transaction.CreditUsedCents, &transaction.CreditCreatedCents,
		&allocations, &refs, &transaction.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrTransactionNotFound
		}

		return nil, err
	}

	if len(allocations) > 0 {
		if err := json.Unmarshal(allocations, &transaction.Allocations); err != nil {
			return nil, err
		}
	}

	if len(refs) > 0 {
		if err := json.Unmarshal(refs, &transaction.CreditHistoryRefs); err != nil {
			return nil, err
		}
	}

	return &transaction, nil
}
