package postgres

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/iho/waterledger/internal/domain"
	"github.com/iho/waterledger/internal/usecase"
)

// AggregateRepository implements usecase.AggregateRepository over the
// materialized per-fiscal-year view. Every write is an idempotent
// upsert keyed by (client, fiscal year, period, unit).
type AggregateRepository struct {
	pool *pgxpool.Pool
}

// NewAggregateRepository creates a new AggregateRepository.
func NewAggregateRepository(pool *pgxpool.Pool) *AggregateRepository {
	return &AggregateRepository{pool: pool}
}

const upsertCellQuery = `
	INSERT INTO aggregated_cells (
		client_id, fiscal_year, period_id, unit_id,
		display_due_cents, display_penalty_cents, status, last_recomputed_at
	) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	ON CONFLICT (client_id, fiscal_year, period_id, unit_id) DO UPDATE
	SET display_due_cents = EXCLUDED.display_due_cents,
	    display_penalty_cents = EXCLUDED.display_penalty_cents,
	    status = EXCLUDED.status,
	    last_recomputed_at = EXCLUDED.last_recomputed_at
`

// UpsertCell writes one cell outside any caller transaction. The bulk
// rebuild path uses this; each cell is independent.
func (r *AggregateRepository) UpsertCell(ctx context.Context, cell *domain.AggregatedCell) error {
	_, err := r.pool.Exec(ctx, upsertCellQuery,
		cell.ClientID, cell.FiscalYear, cell.PeriodID, cell.UnitID,
		cell.DisplayDueCents, cell.DisplayPenaltyCents, cell.Status, cell.LastRecomputedAt,
	)

	return err
}

// UpsertCellTx writes one cell inside the caller's transaction. The
// surgical rebuild after a payment or reversal uses this, so the cell
// commits or rolls back together with the bills it was derived from.
func (r *AggregateRepository) UpsertCellTx(ctx context.Context, tx usecase.Transaction, cell *domain.AggregatedCell) error {
	_, err := tx.(*Tx).PgxTx().Exec(ctx, upsertCellQuery,
		cell.ClientID, cell.FiscalYear, cell.PeriodID, cell.UnitID,
		cell.DisplayDueCents, cell.DisplayPenaltyCents, cell.Status, cell.LastRecomputedAt,
	)

	return err
}

// GetView loads the whole fiscal-year projection.
func (r *AggregateRepository) GetView(ctx context.Context, clientID, fiscalYear string) (*domain.AggregatedView, error) {
	query := `
		SELECT client_id, fiscal_year, period_id, unit_id,
		       display_due_cents, display_penalty_cents, status, last_recomputed_at
		FROM aggregated_cells
		WHERE client_id = $1 AND fiscal_year = $2
		ORDER BY period_id, unit_id
	`

	rows, err := r.pool.Query(ctx, query, clientID, fiscalYear)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	view := &domain.AggregatedView{
		ClientID:   clientID,
		FiscalYear: fiscalYear,
		PerMonth:   make(map[string]map[string]domain.AggregatedCell),
	}

	for rows.Next() {
		var cell domain.AggregatedCell
		if err := rows.Scan(
			&cell.ClientID, &cell.FiscalYear, &cell.PeriodID, &cell.UnitID,
			&cell.DisplayDueCents, &cell.DisplayPenaltyCents, &cell.Status, &cell.LastRecomputedAt,
		); err != nil {
			return nil, err
		}

		if view.PerMonth[cell.PeriodID] == nil {
			view.PerMonth[cell.PeriodID] = make(map[string]domain.AggregatedCell)
		}
		view.PerMonth[cell.PeriodID][cell.UnitID] = cell

		if cell.LastRecomputedAt.After(view.LastRecomputedAt) {
			view.LastRecomputedAt = cell.LastRecomputedAt
		}
	}

	return view, rows.Err()
}
