package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/iho/waterledger/internal/domain"
	"github.com/iho/waterledger/internal/infrastructure/metrics"
)

// PaymentUseCase records payments: it cascades funds across the unit's
// outstanding bills, mutates the credit ledger and persists the whole
// result as one ledger transaction. Everything happens inside a single
// database transaction, including the surgical view rebuild, so either
// all six steps commit or none of them are observable.
type PaymentUseCase struct {
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
	penaltyCfg      domain.PenaltyConfig
	now             func() time.Time
}

// NewPaymentUseCase creates a new PaymentUseCase.
func NewPaymentUseCase(
	txManager TransactionManager,
	billRepo BillRepository,
	creditRepo CreditRepository,
	transactionRepo TransactionRepository,
	aggregationUC *AggregationUseCase,
	outboxRepo OutboxRepository,
	auditRepo AuditRepository,
	idGen IDGenerator,
	penaltyCfg domain.PenaltyConfig,
	m *metrics.Metrics,
) *PaymentUseCase {
	return &PaymentUseCase{
		txManager:       txManager,
		billRepo:        billRepo,
		creditRepo:      creditRepo,
		transactionRepo: transactionRepo,
		aggregationUC:   aggregationUC,
		outboxRepo:      outboxRepo,
		auditRepo:       auditRepo,
		idGen:           idGen,
		metrics:         m,
		penaltyCfg:      penaltyCfg,
		now:             func() time.Time { return time.Now().UTC() },
	}
}

// WithRetrier retries the whole operation on transient store conflicts.
func (uc *PaymentUseCase) WithRetrier(retrier Retrier) *PaymentUseCase {
	uc.retrier = retrier
	return uc
}

// WithNow overrides the clock. Used by tests that need a fixed date.
func (uc *PaymentUseCase) WithNow(now func() time.Time) *PaymentUseCase {
	uc.now = now
	return uc
}

// RecordPaymentInput represents input for recording a payment.
type RecordPaymentInput struct {
	ClientID       string
	UnitID         string
	FiscalYear     string
	PaymentCents   int64
	UseCreditCents int64
	Actor          string
	RequestID      string
}

// RecordPaymentResult represents the outcome of a recorded payment.
type RecordPaymentResult struct {
	TransactionID      string
	Allocations        []domain.Allocation
	CreditCreatedCents int64
	AffectedPeriods    []string
}

type penaltySnapshot struct {
	penaltyCents   int64
	penaltyApplied bool
}

// RecordPayment applies a payment (plus any requested existing credit)
// to the unit's outstanding bills, oldest first, base before penalty.
func (uc *PaymentUseCase) RecordPayment(ctx context.Context, input RecordPaymentInput) (*RecordPaymentResult, error) {
	if err := uc.validateInput(input); err != nil {
		return nil, err
	}

	if uc.retrier == nil {
		return uc.recordPaymentOnce(ctx, input)
	}

	var result *RecordPaymentResult
	err := uc.retrier.Retry(ctx, func() error {
		var innerErr error
		result, innerErr = uc.recordPaymentOnce(ctx, input)
		return innerErr
	})

	return result, err
}

func (uc *PaymentUseCase) validateInput(input RecordPaymentInput) error {
	if err := domain.ValidateClientID(input.ClientID); err != nil {
		return err
	}
	if err := domain.ValidateUnitID(input.UnitID); err != nil {
		return err
	}
	if err := domain.ValidateFiscalYear(input.FiscalYear); err != nil {
		return err
	}

	if input.PaymentCents < 0 || input.UseCreditCents < 0 {
		return domain.ErrInvalidAmount
	}

	if input.PaymentCents+input.UseCreditCents <= 0 {
		return domain.ErrInvalidAmount
	}

	if input.PaymentCents > MaxPaymentCents {
		return domain.ErrInvalidAmount
	}

	return nil
}

func (uc *PaymentUseCase) recordPaymentOnce(ctx context.Context, input RecordPaymentInput) (result *RecordPaymentResult, err error) {
	start := time.Now()

	txCtx, cancel := context.WithTimeout(ctx, DefaultTransactionTimeout)
	defer cancel()

	tx, err := uc.txManager.Begin(txCtx)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback(txCtx) }()

	defer func() {
		if err != nil && uc.metrics != nil {
			uc.metrics.PaymentErrors.WithLabelValues(errorType(err)).Inc()
		}
	}()

	// Lock the unit's outstanding bills (ordered by period, which keeps
	// the lock order deterministic across concurrent payments), then the
	// credit ledger row.
	bills, err := uc.billRepo.GetOutstandingForUpdate(txCtx, tx, input.ClientID, input.UnitID)
	if err != nil {
		return nil, err
	}

	credit, err := uc.creditRepo.GetForUpdate(txCtx, tx, input.ClientID, input.UnitID, input.FiscalYear)
	if err != nil {
		return nil, err
	}

	if input.UseCreditCents > 0 {
		if err := credit.ValidateUse(input.UseCreditCents); err != nil {
			return nil, err
		}
	}

	now := uc.now()
	transactionID := uc.idGen.Generate()

	// Snapshot each bill's charged-penalty state before materializing
	// the current penalty; the reversal engine restores exactly this.
	snapshots := make(map[string]penaltySnapshot, len(bills))
	for _, bill := range bills {
		snapshots[bill.PeriodID] = penaltySnapshot{
			penaltyCents:   bill.PenaltyCents,
			penaltyApplied: bill.PenaltyApplied,
		}
		domain.RefreshPenalty(bill, now, uc.penaltyCfg)
	}

	plan, err := domain.Allocate(bills, input.PaymentCents+input.UseCreditCents)
	if err != nil {
		return nil, err
	}

	billsByPeriod := make(map[string]*domain.Bill, len(bills))
	for _, bill := range bills {
		billsByPeriod[bill.PeriodID] = bill
	}

	allocations := make([]domain.Allocation, 0, len(plan.Allocations))
	touched := make([]*domain.Bill, 0, len(plan.Allocations))

	for _, line := range plan.Allocations {
		bill := billsByPeriod[line.PeriodID]
		if bill == nil {
			return nil, domain.ErrBillNotFound
		}

		if err := bill.ApplyPayment(transactionID, line.BaseCents, line.PenaltyCents, now); err != nil {
			return nil, err
		}

		if err := uc.billRepo.Update(txCtx, tx, bill); err != nil {
			return nil, err
		}

		snap := snapshots[line.PeriodID]
		allocations = append(allocations, domain.Allocation{
			PeriodID:             line.PeriodID,
			BaseCents:            line.BaseCents,
			PenaltyCents:         line.PenaltyCents,
			PenaltyBeforeCents:   snap.penaltyCents,
			PenaltyAppliedBefore: snap.penaltyApplied,
		})
		touched = append(touched, bill)
	}

	// Credit ledger mutations: consume requested credit first, then
	// book any overpayment. Every entry carries the transaction id and
	// is referenced from the transaction record for exact reversal.
	balance := credit.BalanceCents
	var creditRefs []string

	if input.UseCreditCents > 0 {
		balance -= input.UseCreditCents
		entry := &domain.CreditEntry{
			EntryID:               uc.idGen.Generate(),
			ClientID:              input.ClientID,
			UnitID:                input.UnitID,
			FiscalYear:            input.FiscalYear,
			DeltaCents:            -input.UseCreditCents,
			ResultingBalanceCents: balance,
			TransactionID:         transactionID,
			Reason:                domain.CreditReasonPaymentUsed,
			CreatedAt:             now,
		}
		if err := uc.creditRepo.AppendEntry(txCtx, tx, entry); err != nil {
			return nil, err
		}
		creditRefs = append(creditRefs, entry.EntryID)
	}

	if plan.CreditCreatedCents > 0 {
		balance += plan.CreditCreatedCents
		entry := &domain.CreditEntry{
			EntryID:               uc.idGen.Generate(),
			ClientID:              input.ClientID,
			UnitID:                input.UnitID,
			FiscalYear:            input.FiscalYear,
			DeltaCents:            plan.CreditCreatedCents,
			ResultingBalanceCents: balance,
			TransactionID:         transactionID,
			Reason:                domain.CreditReasonOverpayment,
			CreatedAt:             now,
		}
		if err := uc.creditRepo.AppendEntry(txCtx, tx, entry); err != nil {
			return nil, err
		}
		creditRefs = append(creditRefs, entry.EntryID)
	}

	if balance != credit.BalanceCents {
		if err := uc.creditRepo.UpdateBalance(txCtx, tx, input.ClientID, input.UnitID, input.FiscalYear, balance, now); err != nil {
			return nil, err
		}
	}

	transaction := &domain.LedgerTransaction{
		ID:                 transactionID,
		ClientID:           input.ClientID,
		UnitID:             input.UnitID,
		FiscalYear:         input.FiscalYear,
		AmountCents:        input.PaymentCents,
		CreditUsedCents:    input.UseCreditCents,
		CreditCreatedCents: plan.CreditCreatedCents,
		Allocations:        allocations,
		CreditHistoryRefs:  creditRefs,
		CreatedAt:          now,
	}

	if err := transaction.Validate(); err != nil {
		return nil, err
	}

	if err := uc.transactionRepo.Create(txCtx, tx, transaction); err != nil {
		return nil, err
	}

	// Surgical rebuild of every touched (unit, period) cell, inside the
	// same transaction. If this fails the whole payment rolls back; a
	// mutated bill is never committed alongside a stale cell.
	if err := uc.aggregationUC.RebuildBillsTx(txCtx, tx, touched, now); err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrPaymentFailed, err)
	}

	event := &domain.OutboxEvent{
		ID:            uc.idGen.Generate(),
		AggregateID:   transactionID,
		AggregateType: domain.AggregateTypeTransaction,
		EventType:     domain.EventTypePaymentRecorded,
		Payload: map[string]any{
			"transaction_id":       transactionID,
			"client_id":            input.ClientID,
			"unit_id":              input.UnitID,
			"amount_cents":         input.PaymentCents,
			"credit_used_cents":    input.UseCreditCents,
			"credit_created_cents": plan.CreditCreatedCents,
			"affected_periods":     transaction.AffectedPeriods(),
		},
		CreatedAt: now,
		Published: false,
	}
	if uc.outboxRepo != nil {
		if err := uc.outboxRepo.Create(txCtx, tx, event); err != nil {
			return nil, err
		}
	}

	if uc.auditRepo != nil {
		auditLog := &domain.AuditLog{
			Actor:        input.Actor,
			Action:       string(domain.AuditActionPaymentRecord),
			ResourceType: domain.AggregateTypeTransaction,
			ResourceID:   transactionID,
			ClientID:     input.ClientID,
			RequestID:    input.RequestID,
			AfterState:   domain.MarshalState(transaction),
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

	// The cascade can land on bills from older fiscal years; drop every
	// touched view, not just the payment's own year.
	for _, fiscalYear := range fiscalYearsOf(touched, input.FiscalYear) {
		uc.aggregationUC.InvalidateView(ctx, input.ClientID, fiscalYear)
	}

	if uc.metrics != nil {
		uc.metrics.PaymentsRecorded.Inc()
		uc.metrics.PaymentDuration.Observe(time.Since(start).Seconds())
		uc.metrics.PaymentAmount.Observe(float64(input.PaymentCents))
		uc.metrics.AllocationLines.Observe(float64(len(allocations)))
		uc.metrics.CreditCreated.Add(float64(plan.CreditCreatedCents))
		uc.metrics.CreditUsed.Add(float64(input.UseCreditCents))
	}

	return &RecordPaymentResult{
		TransactionID:      transactionID,
		Allocations:        allocations,
		CreditCreatedCents: plan.CreditCreatedCents,
		AffectedPeriods:    transaction.AffectedPeriods(),
	}, nil
}

func errorType(err error) string {
	switch {
	case errors.Is(err, domain.ErrInvalidAmount):
		return "invalid_amount"
	case errors.Is(err, domain.ErrInsufficientCredit):
		return "insufficient_credit"
	case errors.Is(err, domain.ErrConcurrentModification):
		return "concurrent_modification"
	case errors.Is(err, domain.ErrCacheRebuildFailed):
		return "cache_rebuild_failed"
	case errors.Is(err, domain.ErrBillNotFound), errors.Is(err, domain.ErrTransactionNotFound):
		return "not_found"
	default:
		return "internal"
	}
}
