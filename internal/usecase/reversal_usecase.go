package usecase

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/iho/waterledger/internal/domain"
	"github.com/iho/waterledger/internal/infrastructure/metrics"
)

// ReversalUseCase deletes a recorded payment by inverting it exactly:
// every amount the transaction applied is subtracted back, every credit
// entry it wrote is deleted by its stored id, and the credit balance is
// recomputed from the surviving history. Nothing is re-derived
// heuristically from current state.
type ReversalUseCase struct {
	txManager       TransactionManager
	billRepo        BillRepository
	creditRepo      CreditRepository
	transactionRepo TransactionRepository
	aggregationUC   *AggregationUseCase
	outboxRepo      OutboxRepository
	auditRepo       AuditRepository
	idGen           IDGenerator
	retrier         Retrier
	metrics         *metrics.Metrics
	now             func() time.Time
}

// NewReversalUseCase creates a new ReversalUseCase.
func NewReversalUseCase(
	txManager TransactionManager,
	billRepo BillRepository,
	creditRepo CreditRepository,
	transactionRepo TransactionRepository,
	aggregationUC *AggregationUseCase,
	outboxRepo OutboxRepository,
	auditRepo AuditRepository,
	idGen IDGenerator,
	m *metrics.Metrics,
) *ReversalUseCase {
	return &ReversalUseCase{
		txManager:       txManager,
		billRepo:        billRepo,
		creditRepo:      creditRepo,
		transactionRepo: transactionRepo,
		aggregationUC:   aggregationUC,
		outboxRepo:      outboxRepo,
		auditRepo:       auditRepo,
		idGen:           idGen,
		metrics:         m,
		now:             func() time.Time { return time.Now().UTC() },
	}
}

// WithRetrier retries the whole operation on transient store conflicts.
func (uc *ReversalUseCase) WithRetrier(retrier Retrier) *ReversalUseCase {
	uc.retrier = retrier
	return uc
}

// WithNow overrides the clock. Used by tests that need a fixed date.
func (uc *ReversalUseCase) WithNow(now func() time.Time) *ReversalUseCase {
	uc.now = now
	return uc
}

// ReverseTransactionInput represents input for reversing a payment.
type ReverseTransactionInput struct {
	ClientID      string
	TransactionID string
	Actor         string
	RequestID     string
}

// ReverseTransactionResult represents the outcome of a reversal.
type ReverseTransactionResult struct {
	AffectedPeriods []string
}

// ReverseTransaction inverts a recorded payment. Reversing an unknown
// transaction id is a no-op success: the observable state already
// matches what the caller asked for.
func (uc *ReversalUseCase) ReverseTransaction(ctx context.Context, input ReverseTransactionInput) (*ReverseTransactionResult, error) {
	if err := domain.ValidateClientID(input.ClientID); err != nil {
		return nil, err
	}

	if input.TransactionID == "" || len(input.TransactionID) > domain.MaxIDLength {
		return nil, domain.ErrTransactionNotFound
	}

	if uc.retrier == nil {
		return uc.reverseOnce(ctx, input)
	}

	var result *ReverseTransactionResult
	err := uc.retrier.Retry(ctx, func() error {
		var innerErr error
		result, innerErr = uc.reverseOnce(ctx, input)
		return innerErr
	})

	return result, err
}

func (uc *ReversalUseCase) reverseOnce(ctx context.Context, input ReverseTransactionInput) (*ReverseTransactionResult, error) {
	txCtx, cancel := context.WithTimeout(ctx, DefaultTransactionTimeout)
	defer cancel()

	tx, err := uc.txManager.Begin(txCtx)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback(txCtx) }()

	transaction, err := uc.transactionRepo.GetByIDForUpdate(txCtx, tx, input.TransactionID)
	if err != nil {
		if errors.Is(err, domain.ErrTransactionNotFound) {
			return &ReverseTransactionResult{}, nil
		}
		return nil, err
	}

	if transaction.ClientID != input.ClientID {
		return &ReverseTransactionResult{}, nil
	}

	now := uc.now()

	// Lock order matches the recorder: bills by ascending period, then
	// the credit ledger row.
	allocations := make([]domain.Allocation, len(transaction.Allocations))
	copy(allocations, transaction.Allocations)
	sort.Slice(allocations, func(i, j int) bool {
		return allocations[i].PeriodID < allocations[j].PeriodID
	})

	touched := make([]*domain.Bill, 0, len(allocations))
	for _, line := range allocations {
		bill, err := uc.billRepo.GetByPeriodForUpdate(txCtx, tx, transaction.ClientID, transaction.UnitID, line.PeriodID)
		if err != nil {
			return nil, err
		}

		if err := bill.RevertPayment(transaction.ID, line.BaseCents, line.PenaltyCents); err != nil {
			return nil, err
		}

		// Restore the charged-penalty state recorded at payment time. A
		// later payment may have materialized and paid more penalty than
		// the snapshot carries; the charged total can never drop below
		// what is still marked paid.
		bill.PenaltyCents = line.PenaltyBeforeCents
		bill.PenaltyApplied = line.PenaltyAppliedBefore
		if bill.PaidPenaltyCents > bill.PenaltyCents {
			bill.PenaltyCents = bill.PaidPenaltyCents
			bill.PenaltyApplied = true
		}
		bill.Status = bill.ComputeStatus()

		if err := uc.billRepo.Update(txCtx, tx, bill); err != nil {
			return nil, err
		}

		touched = append(touched, bill)
	}

	if _, err := uc.creditRepo.GetForUpdate(txCtx, tx, transaction.ClientID, transaction.UnitID, transaction.FiscalYear); err != nil {
		return nil, err
	}

	// Delete the exact entries the payment created, by id, then
	// recompute the balance from what remains. Summing instead of
	// subtracting in place keeps the balance from ever drifting.
	for _, entryID := range transaction.CreditHistoryRefs {
		if err := uc.creditRepo.DeleteEntryByID(txCtx, tx, entryID); err != nil {
			return nil, err
		}
	}

	remaining, err := uc.creditRepo.ListEntries(txCtx, tx, transaction.ClientID, transaction.UnitID, transaction.FiscalYear)
	if err != nil {
		return nil, err
	}

	balance := domain.SumCreditDeltas(remaining)
	if err := uc.creditRepo.UpdateBalance(txCtx, tx, transaction.ClientID, transaction.UnitID, transaction.FiscalYear, balance, now); err != nil {
		return nil, err
	}

	if err := uc.transactionRepo.Delete(txCtx, tx, transaction.ID); err != nil {
		return nil, err
	}

	if err := uc.aggregationUC.RebuildBillsTx(txCtx, tx, touched, now); err != nil {
		return nil, err
	}

	if uc.outboxRepo != nil {
		event := &domain.OutboxEvent{
			ID:            uc.idGen.Generate(),
			AggregateID:   transaction.ID,
			AggregateType: domain.AggregateTypeTransaction,
			EventType:     domain.EventTypePaymentReversed,
			Payload: map[string]any{
				"transaction_id":   transaction.ID,
				"client_id":        transaction.ClientID,
				"unit_id":          transaction.UnitID,
				"affected_periods": transaction.AffectedPeriods(),
			},
			CreatedAt: now,
			Published: false,
		}
		if err := uc.outboxRepo.Create(txCtx, tx, event); err != nil {
			return nil, err
		}
	}

	if uc.auditRepo != nil {
		auditLog := &domain.AuditLog{
			Actor:        input.Actor,
			Action:       string(domain.AuditActionPaymentReverse),
			ResourceType: domain.AggregateTypeTransaction,
			ResourceID:   transaction.ID,
			ClientID:     transaction.ClientID,
			RequestID:    input.RequestID,
			BeforeState:  domain.MarshalState(transaction),
			Status:       string(domain.AuditStatusSuccess),
			CreatedAt:    now,
		}
		if err := uc.auditRepo.CreateTx(txCtx, tx, auditLog); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(txCtx); err != nil {
		return nil, err
	}

	// Reversed bills may span fiscal years; drop every touched view.
	for _, fiscalYear := range fiscalYearsOf(touched, transaction.FiscalYear) {
		uc.aggregationUC.InvalidateView(ctx, transaction.ClientID, fiscalYear)
	}

	if uc.metrics != nil {
		uc.metrics.PaymentsReversed.Inc()
	}

	return &ReverseTransactionResult{
		AffectedPeriods: transaction.AffectedPeriods(),
	}, nil
}

// fiscalYearsOf collects the distinct fiscal years of the bills plus
// the transaction's own year, in first-seen order.
func fiscalYearsOf(bills []*domain.Bill, transactionYear string) []string {
	years := []string{transactionYear}
	seen := map[string]bool{transactionYear: true}

	for _, bill := range bills {
		if !seen[bill.FiscalYear] {
			seen[bill.FiscalYear] = true
			years = append(years, bill.FiscalYear)
		}
	}

	return years
}
