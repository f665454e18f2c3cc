package postgres

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/iho/waterledger/internal/domain"
	"github.com/iho/waterledger/internal/usecase"
)

// querier is satisfied by both *pgxpool.Pool and pgx.Tx, so the same
// query code serves locked and unlocked reads.
type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

const billColumns = `
	client_id, unit_id, fiscal_year, period_id,
	base_charge_cents, penalty_cents, paid_base_cents, paid_penalty_cents,
	status, due_date, penalty_applied, payments, version, created_at, updated_at
`

// BillRepository implements usecase.BillRepository.
type BillRepository struct {
	pool *pgxpool.Pool
}

// NewBillRepository creates a new BillRepository.
func NewBillRepository(pool *pgxpool.Pool) *BillRepository {
	return &BillRepository{pool: pool}
}

// Create inserts a bill. Bills are issued by the upstream billing run;
// the engine itself only creates them in seeds and tests.
func (r *BillRepository) Create(ctx context.Context, bill *domain.Bill) error {
	payments, err := json.Marshal(bill.Payments)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO bills (` + billColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
	`

	_, err = r.pool.Exec(ctx, query,
		bill.ClientID, bill.UnitID, bill.FiscalYear, bill.PeriodID,
		bill.BaseChargeCents, bill.PenaltyCents, bill.PaidBaseCents, bill.PaidPenaltyCents,
		bill.Status, bill.DueDate, bill.PenaltyApplied, payments, bill.Version,
		bill.CreatedAt, bill.UpdatedAt,
	)

	return err
}

// GetOutstandingForUpdate locks and returns every open bill of the
// unit, oldest period first. Ordering by period id doubles as the
// deterministic lock order across concurrent payments.
func (r *BillRepository) GetOutstandingForUpdate(ctx context.Context, tx usecase.Transaction, clientID, unitID string) ([]*domain.Bill, error) {
	query := `
		SELECT ` + billColumns + `
		FROM bills
		WHERE client_id = $1 AND unit_id = $2
		  AND (base_charge_cents - paid_base_cents > 0 OR penalty_cents - paid_penalty_cents > 0)
		ORDER BY period_id
		FOR UPDATE
	`

	return queryBills(ctx, tx.(*Tx).PgxTx(), query, clientID, unitID)
}

// GetByPeriodForUpdate locks and returns one bill. The lookup is keyed
// like the table's primary key; a payment recorded in one fiscal year
// can land on an older year's bill, so the year is not a predicate.
func (r *BillRepository) GetByPeriodForUpdate(ctx context.Context, tx usecase.Transaction, clientID, unitID, periodID string) (*domain.Bill, error) {
	query := `
		SELECT ` + billColumns + `
		FROM bills
		WHERE client_id = $1 AND unit_id = $2 AND period_id = $3
		FOR UPDATE
	`

	row := tx.(*Tx).PgxTx().QueryRow(ctx, query, clientID, unitID, periodID)

	bill, err := scanBill(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrBillNotFound
		}

		return nil, err
	}

	return bill, nil
}

// ListOutstandingByUnit returns the unit's open bills without locking.
func (r *BillRepository) ListOutstandingByUnit(ctx context.Context, clientID, unitID string) ([]*domain.Bill, error) {
	query := `
		SELECT ` + billColumns + `
		FROM bills
		WHERE client_id = $1 AND unit_id = $2
		  AND (base_charge_cents - paid_base_cents > 0 OR penalty_cents - paid_penalty_cents > 0)
		ORDER BY period_id
	`

	return queryBills(ctx, r.pool, query, clientID, unitID)
}

// ListByFiscalYear returns every bill of the client's fiscal year.
func (r *BillRepository) ListByFiscalYear(ctx context.Context, clientID, fiscalYear string) ([]*domain.Bill, error) {
	query := `
		SELECT ` + billColumns + `
		FROM bills
		WHERE client_id = $1 AND fiscal_year = $2
		ORDER BY period_id, unit_id
	`

	return queryBills(ctx, r.pool, query, clientID, fiscalYear)
}

// ListByUnitPeriods returns the unit's bills for the given periods.
func (r *BillRepository) ListByUnitPeriods(ctx context.Context, clientID, fiscalYear, unitID string, periodIDs []string) ([]*domain.Bill, error) {
	query := `
		SELECT ` + billColumns + `
		FROM bills
		WHERE client_id = $1 AND fiscal_year = $2 AND unit_id = $3 AND period_id = ANY($4)
		ORDER BY period_id
	`

	return queryBills(ctx, r.pool, query, clientID, fiscalYear, unitID, periodIDs)
}

// Update persists the bill's mutable fields, guarded by the version
// column. A stale version means another writer got there first.
func (r *BillRepository) Update(ctx context.Context, tx usecase.Transaction, bill *domain.Bill) error {
	payments, err := json.Marshal(bill.Payments)
	if err != nil {
		return err
	}

	query := `
		UPDATE bills
		SET penalty_cents = $1, paid_base_cents = $2, paid_penalty_cents = $3,
		    status = $4, penalty_applied = $5, payments = $6,
		    version = version + 1, updated_at = now()
		WHERE client_id = $7 AND unit_id = $8 AND period_id = $9 AND version = $10
	`

	tag, err := tx.(*Tx).PgxTx().Exec(ctx, query,
		bill.PenaltyCents, bill.PaidBaseCents, bill.PaidPenaltyCents,
		bill.Status, bill.PenaltyApplied, payments,
		bill.ClientID, bill.UnitID, bill.PeriodID, bill.Version,
	)
	if err != nil {
		return err
	}

	if tag.RowsAffected() == 0 {
		return domain.ErrConcurrentModification
	}

	bill.Version++

	return nil
}

func queryBills(ctx context.Context, q querier, query string, args ...any) ([]*domain.Bill, error) {
	rows, err := q.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var bills []*domain.Bill
	for rows.Next() {
		bill, err := scanBill(rows)
		if err != nil {
			return nil, err
		}
		bills = append(bills, bill)
	}

	return bills, rows.Err()
}

func scanBill(row pgx.Row) (*domain.Bill, error) {
	var bill domain.Bill
	var payments []byte

	err := row.Scan(
		&bill.ClientID, &bill.UnitID, &bill.FiscalYear, &bill.PeriodID,
		&bill.BaseChargeCents, &bill.PenaltyCents, &bill.PaidBaseCents, &bill.PaidPenaltyCents,
		&bill.Status, &bill.DueDate, &bill.PenaltyApplied, &payments, &bill.Version,
		&bill.CreatedAt, &bill.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if len(payments) > 0 {
		if err := json.Unmarshal(payments, &bill.Payments); err != nil {
			return nil, err
		}
	}

	return &bill, nil
}
