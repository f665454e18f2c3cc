package usecase

import (
	"context"
	"time"

	"github.com/iho/waterledger/internal/domain"
)

// BillingUseCase serves the read side consumed by the controller layer:
// what a unit still owes and what its transactions look like. It reads
// the authoritative bill and credit records, never the aggregated view.
type BillingUseCase struct {
	billRepo        BillRepository
	creditRepo      CreditRepository
	transactionRepo TransactionRepository
	penaltyCfg      domain.PenaltyConfig
	now             func() time.Time
}

// NewBillingUseCase creates a new BillingUseCase.
func NewBillingUseCase(
	billRepo BillRepository,
	creditRepo CreditRepository,
	transactionRepo TransactionRepository,
	penaltyCfg domain.PenaltyConfig,
) *BillingUseCase {
	return &BillingUseCase{
		billRepo:        billRepo,
		creditRepo:      creditRepo,
		transactionRepo: transactionRepo,
		penaltyCfg:      penaltyCfg,
		now:             func() time.Time { return time.Now().UTC() },
	}
}

// WithNow overrides the clock. Used by tests that need a fixed date.
func (uc *BillingUseCase) WithNow(now func() time.Time) *BillingUseCase {
	uc.now = now
	return uc
}

// OutstandingItem is one period with money still owed on it.
type OutstandingItem struct {
	PeriodID           string
	UnpaidBaseCents    int64
	UnpaidPenaltyCents int64
	DueDate            time.Time
}

// GetOutstanding lists every period of the unit with any unpaid amount,
// oldest first. A unit whose current period carries no new charge but
// which still owes prior periods stays payable; the result is whatever
// is genuinely open, not just the latest bill.
func (uc *BillingUseCase) GetOutstanding(ctx context.Context, clientID, unitID string) ([]OutstandingItem, error) {
	if err := domain.ValidateClientID(clientID); err != nil {
		return nil, err
	}
	if err := domain.ValidateUnitID(unitID); err != nil {
		return nil, err
	}

	bills, err := uc.billRepo.ListOutstandingByUnit(ctx, clientID, unitID)
	if err != nil {
		return nil, err
	}

	asOf := uc.now()
	items := make([]OutstandingItem, 0, len(bills))
	for _, bill := range bills {
		cell := domain.DeriveCell(bill, asOf, uc.penaltyCfg)
		items = append(items, OutstandingItem{
			PeriodID:           bill.PeriodID,
			UnpaidBaseCents:    bill.RemainingBaseCents(),
			UnpaidPenaltyCents: cell.DisplayPenaltyCents,
			DueDate:            bill.DueDate,
		})
	}

	return items, nil
}

// GetCreditBalance returns the unit's current prepaid balance.
func (uc *BillingUseCase) GetCreditBalance(ctx context.Context, clientID, unitID, fiscalYear string) (int64, error) {
	if err := domain.ValidateFiscalYear(fiscalYear); err != nil {
		return 0, err
	}

	ledger, err := uc.creditRepo.Get(ctx, clientID, unitID, fiscalYear)
	if err != nil {
		return 0, err
	}

	return ledger.BalanceCents, nil
}

// ListTransactionsInput represents input for listing transactions.
type ListTransactionsInput struct {
	ClientID string
	UnitID   string
	Limit    int
	Offset   int
}

// ListTransactions lists a unit's recorded payments, newest first.
func (uc *BillingUseCase) ListTransactions(ctx context.Context, input ListTransactionsInput) ([]*domain.LedgerTransaction, error) {
	limit, offset := domain.ClampPagination(input.Limit, input.Offset)

	return uc.transactionRepo.ListByUnit(ctx, input.ClientID, input.UnitID, limit, offset)
}

// GetTransaction retrieves a single recorded payment.
func (uc *BillingUseCase) GetTransaction(ctx context.Context, id string) (*domain.LedgerTransaction, error) {
	return uc.transactionRepo.GetByID(ctx, id)
}
