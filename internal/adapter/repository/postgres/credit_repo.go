package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/iho/waterledger/internal/domain"
	"github.com/iho/waterledger/internal/usecase"
)

// CreditRepository implements usecase.CreditRepository. The balance row
// and the append-only history live in separate tables; entries are
// keyed by id so a reversal deletes exactly the rows a payment wrote.
type CreditRepository struct {
	pool *pgxpool.Pool
}

// NewCreditRepository creates a new CreditRepository.
func NewCreditRepository(pool *pgxpool.Pool) *CreditRepository {
	return &CreditRepository{pool: pool}
}

// GetForUpdate locks and returns the unit's credit ledger, inserting a
// zero-balance row first if the unit has never carried credit. The
// insert makes the subsequent FOR UPDATE lock a plain row lock rather
// than a gap that two payments could race through.
func (r *CreditRepository) GetForUpdate(ctx context.Context, tx usecase.Transaction, clientID, unitID, fiscalYear string) (*domain.CreditLedger, error) {
	pgxTx := tx.(*Tx).PgxTx()

	ensure := `
		INSERT INTO credit_ledgers (client_id, unit_id, fiscal_year, balance_cents, version, updated_at)
		VALUES ($1, $2, $3, 0, 0, now())
		ON CONFLICT (client_id, unit_id, fiscal_year) DO NOTHING
	`
	if _, err := pgxTx.Exec(ctx, ensure, clientID, unitID, fiscalYear); err != nil {
		return nil, err
	}

	query := `
		SELECT client_id, unit_id, fiscal_year, balance_cents, version, updated_at
		FROM credit_ledgers
		WHERE client_id = $1 AND unit_id = $2 AND fiscal_year = $3
		FOR UPDATE
	`

	return scanLedger(pgxTx.QueryRow(ctx, query, clientID, unitID, fiscalYear))
}

// Get returns the credit ledger without locking. A unit with no ledger
// row reads as a zero balance.
func (r *CreditRepository) Get(ctx context.Context, clientID, unitID, fiscalYear string) (*domain.CreditLedger, error) {
	query := `
		SELECT client_id, unit_id, fiscal_year, balance_cents, version, updated_at
		FROM credit_ledgers
		WHERE client_id = $1 AND unit_id = $2 AND fiscal_year = $3
	`

	ledger, err := scanLedger(r.pool.QueryRow(ctx, query, clientID, unitID, fiscalYear))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return &domain.CreditLedger{
				ClientID:   clientID,
				UnitID:     unitID,
				FiscalYear: fiscalYear,
			}, nil
		}

		return nil, err
	}

	return ledger, nil
}

// AppendEntry inserts one history entry.
func (r *CreditRepository) AppendEntry(ctx context.Context, tx usecase.Transaction, entry *domain.CreditEntry) error {
	query := `
		INSERT INTO credit_entries (
			entry_id, client_id, unit_id, fiscal_year,
			delta_cents, resulting_balance_cents, transaction_id, reason, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	_, err := tx.(*Tx).PgxTx().Exec(ctx, query,
		entry.EntryID, entry.ClientID, entry.UnitID, entry.FiscalYear,
		entry.DeltaCents, entry.ResultingBalanceCents, entry.TransactionID,
		entry.Reason, entry.CreatedAt,
	)

	return err
}

// DeleteEntryByID removes exactly one history entry.
func (r *CreditRepository) DeleteEntryByID(ctx context.Context, tx usecase.Transaction, entryID string) error {
	tag, err := tx.(*Tx).PgxTx().Exec(ctx, `DELETE FROM credit_entries WHERE entry_id = $1`, entryID)
	if err != nil {
		return err
	}

	if tag.RowsAffected() == 0 {
		return domain.ErrCreditEntryNotFound
	}

	return nil
}

// ListEntries returns the unit's history inside the transaction, oldest
// first. ULID entry ids sort chronologically.
func (r *CreditRepository) ListEntries(ctx context.Context, tx usecase.Transaction, clientID, unitID, fiscalYear string) ([]domain.CreditEntry, error) {
	query := `
		SELECT entry_id, client_id, unit_id, fiscal_year,
		       delta_cents, resulting_balance_cents, transaction_id, reason, created_at
		FROM credit_entries
		WHERE client_id = $1 AND unit_id = $2 AND fiscal_year = $3
		ORDER BY entry_id
	`

	rows, err := tx.(*Tx).PgxTx().Query(ctx, query, clientID, unitID, fiscalYear)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []domain.CreditEntry
	for rows.Next() {
		var e domain.CreditEntry
		var txID *string
		if err := rows.Scan(
			&e.EntryID, &e.ClientID, &e.UnitID, &e.FiscalYear,
			&e.DeltaCents, &e.ResultingBalanceCents, &txID, &e.Reason, &e.CreatedAt,
		); err != nil {
			return nil, err
		}
		if txID != nil {
			e.TransactionID = *txID
		}
		entries = append(entries, e)
	}

	return entries, rows.Err()
}

// UpdateBalance writes the recomputed balance.
func (r *CreditRepository) UpdateBalance(ctx context.Context, tx usecase.Transaction, clientID, unitID, fiscalYear string, balanceCents int64, updatedAt time.Time) error {
	query := `
		UPDATE credit_ledgers
		SET balance_cents = $1, version = version + 1, updated_at = $2
		WHERE client_id = $3 AND unit_id = $4 AND fiscal_year = $5
	`

	tag, err := tx.(*Tx).PgxTx().Exec(ctx, query, balanceCents, updatedAt, clientID, unitID, fiscalYear)
	if err != nil {
		return err
	}

	if tag.RowsAffected() == 0 {
		return domain.ErrCreditLedgerNotFound
	}

	return nil
}

func scanLedger(row pgx.Row) (*domain.CreditLedger, error) {
	var ledger domain.CreditLedger

	err := row.Scan(
		&ledger.ClientID, &ledger.UnitID, &ledger.FiscalYear,
		&ledger.BalanceCents, &ledger.Version, &ledger.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	return &ledger, nil
}
