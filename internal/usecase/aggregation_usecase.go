package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/iho/waterledger/internal/domain"
	"github.com/iho/waterledger/internal/infrastructure/metrics"
)

// RebuildScope selects what a rebuild covers: every unit of the fiscal
// year, or a single unit's periods.
type RebuildScope struct {
	AllUnits  bool
	UnitID    string
	PeriodIDs []string
}

// AggregationUseCase rebuilds the materialized per-fiscal-year view.
// Bulk and surgical rebuilds run the identical per-bill derivation;
// bulk is simply surgical for every unit.
type AggregationUseCase struct {
	billRepo      BillRepository
	aggregateRepo AggregateRepository
	cache         Cache
	penaltyCfg    domain.PenaltyConfig
	metrics       *metrics.Metrics
	now           func() time.Time
}

// NewAggregationUseCase creates a new AggregationUseCase.
func NewAggregationUseCase(
	billRepo BillRepository,
	aggregateRepo AggregateRepository,
	cache Cache,
	penaltyCfg domain.PenaltyConfig,
	m *metrics.Metrics,
) *AggregationUseCase {
	return &AggregationUseCase{
		billRepo:      billRepo,
		aggregateRepo: aggregateRepo,
		cache:         cache,
		penaltyCfg:    penaltyCfg,
		metrics:       m,
		now:           func() time.Time { return time.Now().UTC() },
	}
}

// WithNow overrides the clock. Used by tests that need a fixed date.
func (uc *AggregationUseCase) WithNow(now func() time.Time) *AggregationUseCase {
	uc.now = now
	return uc
}

// Rebuild recomputes the view for the given scope outside of any caller
// transaction. Each cell derivation is independent and idempotent, so a
// bulk rebuild takes no locks and never blocks payment submission.
func (uc *AggregationUseCase) Rebuild(ctx context.Context, clientID, fiscalYear string, scope RebuildScope) error {
	if err := domain.ValidateClientID(clientID); err != nil {
		return err
	}
	if err := domain.ValidateFiscalYear(fiscalYear); err != nil {
		return err
	}

	scopeLabel := "surgical"
	if scope.AllUnits {
		scopeLabel = "bulk"
	}

	start := time.Now()

	var (
		bills []*domain.Bill
		err   error
	)
	if scope.AllUnits {
		bills, err = uc.billRepo.ListByFiscalYear(ctx, clientID, fiscalYear)
	} else {
		if err := domain.ValidateUnitID(scope.UnitID); err != nil {
			return err
		}
		bills, err = uc.billRepo.ListByUnitPeriods(ctx, clientID, fiscalYear, scope.UnitID, scope.PeriodIDs)
	}
	if err != nil {
		return fmt.Errorf("%w: loading bills: %w", domain.ErrCacheRebuildFailed, err)
	}

	asOf := uc.now()
	for _, bill := range bills {
		cell := domain.DeriveCell(bill, asOf, uc.penaltyCfg)
		if err := uc.aggregateRepo.UpsertCell(ctx, &cell); err != nil {
			if uc.metrics != nil {
				uc.metrics.RebuildErrors.WithLabelValues(scopeLabel).Inc()
			}
			return fmt.Errorf("%w: cell %s/%s: %w", domain.ErrCacheRebuildFailed, bill.PeriodID, bill.UnitID, err)
		}
		if uc.metrics != nil {
			uc.metrics.RebuildCells.Inc()
		}
	}

	uc.InvalidateView(ctx, clientID, fiscalYear)

	if uc.metrics != nil {
		uc.metrics.RebuildsTotal.WithLabelValues(scopeLabel).Inc()
		uc.metrics.RebuildDuration.WithLabelValues(scopeLabel).Observe(time.Since(start).Seconds())
	}

	return nil
}

// RebuildBillsTx writes the view cells for already-loaded bills inside
// the caller's transaction. This is the surgical path the recorder and
// the reversal engine invoke as their final step, so a mutated bill and
// a stale cell can never be committed together.
func (uc *AggregationUseCase) RebuildBillsTx(ctx context.Context, tx Transaction, bills []*domain.Bill, asOf time.Time) error {
	for _, bill := range bills {
		cell := domain.DeriveCell(bill, asOf, uc.penaltyCfg)
		if err := uc.aggregateRepo.UpsertCellTx(ctx, tx, &cell); err != nil {
			if uc.metrics != nil {
				uc.metrics.RebuildErrors.WithLabelValues("surgical").Inc()
			}
			return fmt.Errorf("%w: cell %s/%s: %w", domain.ErrCacheRebuildFailed, bill.PeriodID, bill.UnitID, err)
		}
		if uc.metrics != nil {
			uc.metrics.RebuildCells.Inc()
		}
	}

	return nil
}

// GetView returns the materialized view, served from the Redis copy
// when it is warm. The Redis copy is display-only; a miss or a Redis
// failure falls through to the authoritative Postgres projection.
func (uc *AggregationUseCase) GetView(ctx context.Context, clientID, fiscalYear string) (*domain.AggregatedView, error) {
	key := viewCacheKey(clientID, fiscalYear)

	if uc.cache != nil {
		if cached, err := uc.cache.Get(ctx, key); err == nil && cached != "" {
			var view domain.AggregatedView
			if err := json.Unmarshal([]byte(cached), &view); err == nil {
				return &view, nil
			}
		}
	}

	view, err := uc.aggregateRepo.GetView(ctx, clientID, fiscalYear)
	if err != nil {
		return nil, err
	}

	if uc.cache != nil {
		if data, err := json.Marshal(view); err == nil {
			_ = uc.cache.Set(ctx, key, string(data), ViewCacheTTL)
		}
	}

	return view, nil
}

// InvalidateView drops the Redis copy of a fiscal year's view. Called
// after every committed mutation; failure is tolerable because the TTL
// bounds staleness and the Postgres view is already up to date.
func (uc *AggregationUseCase) InvalidateView(ctx context.Context, clientID, fiscalYear string) {
	if uc.cache == nil {
		return
	}

	_ = uc.cache.Delete(ctx, viewCacheKey(clientID, fiscalYear))
}

func viewCacheKey(clientID, fiscalYear string) string {
	return fmt.Sprintf("view:%s:%s", clientID, fiscalYear)
}
