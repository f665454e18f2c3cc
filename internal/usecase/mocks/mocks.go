package mocks

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/iho/waterledger/internal/domain"
	"github.com/iho/waterledger/internal/usecase"
)

func billKey(clientID, unitID, periodID string) string {
	return clientID + "|" + unitID + "|" + periodID
}

func copyBill(b *domain.Bill) *domain.Bill {
	c := *b
	c.Payments = append([]domain.PaymentLine(nil), b.Payments...)
	return &c
}

// MockBillRepository is a mock implementation of BillRepository backed
// by an in-memory map. Reads hand out copies and Update writes copies
// back, so mutations only become visible through Update, like a real
// store.
type MockBillRepository struct {
	mu    sync.RWMutex
	bills map[string]*domain.Bill

	GetOutstandingForUpdateFunc func(ctx context.Context, tx usecase.Transaction, clientID, unitID string) ([]*domain.Bill, error)
	GetByPeriodForUpdateFunc    func(ctx context.Context, tx usecase.Transaction, clientID, unitID, periodID string) (*domain.Bill, error)
	ListOutstandingByUnitFunc   func(ctx context.Context, clientID, unitID string) ([]*domain.Bill, error)
	ListByFiscalYearFunc        func(ctx context.Context, clientID, fiscalYear string) ([]*domain.Bill, error)
	ListByUnitPeriodsFunc       func(ctx context.Context, clientID, fiscalYear, unitID string, periodIDs []string) ([]*domain.Bill, error)
	UpdateFunc                  func(ctx context.Context, tx usecase.Transaction, bill *domain.Bill) error
}

func NewMockBillRepository() *MockBillRepository {
	return &MockBillRepository{
		bills: make(map[string]*domain.Bill),
	}
}

// AddBill seeds a bill into the in-memory store.
func (m *MockBillRepository) AddBill(bill *domain.Bill) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.bills[billKey(bill.ClientID, bill.UnitID, bill.PeriodID)] = copyBill(bill)
}

// GetBill reads a bill back out for assertions.
func (m *MockBillRepository) GetBill(clientID, unitID, periodID string) *domain.Bill {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if b, ok := m.bills[billKey(clientID, unitID, periodID)]; ok {
		return copyBill(b)
	}
	return nil
}

func (m *MockBillRepository) GetOutstandingForUpdate(ctx context.Context, tx usecase.Transaction, clientID, unitID string) ([]*domain.Bill, error) {
	if m.GetOutstandingForUpdateFunc != nil {
		return m.GetOutstandingForUpdateFunc(ctx, tx, clientID, unitID)
	}
	return m.listOutstanding(clientID, unitID), nil
}

func (m *MockBillRepository) GetByPeriodForUpdate(ctx context.Context, tx usecase.Transaction, clientID, unitID, periodID string) (*domain.Bill, error) {
	if m.GetByPeriodForUpdateFunc != nil {
		return m.GetByPeriodForUpdateFunc(ctx, tx, clientID, unitID, periodID)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	if b, ok := m.bills[billKey(clientID, unitID, periodID)]; ok {
		return copyBill(b), nil
	}
	return nil, domain.ErrBillNotFound
}

func (m *MockBillRepository) ListOutstandingByUnit(ctx context.Context, clientID, unitID string) ([]*domain.Bill, error) {
	if m.ListOutstandingByUnitFunc != nil {
		return m.ListOutstandingByUnitFunc(ctx, clientID, unitID)
	}
	return m.listOutstanding(clientID, unitID), nil
}

func (m *MockBillRepository) ListByFiscalYear(ctx context.Context, clientID, fiscalYear string) ([]*domain.Bill, error) {
	if m.ListByFiscalYearFunc != nil {
		return m.ListByFiscalYearFunc(ctx, clientID, fiscalYear)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	var bills []*domain.Bill
	for _, b := range m.bills {
		if b.ClientID == clientID && b.FiscalYear == fiscalYear {
			bills = append(bills, copyBill(b))
		}
	}
	sortBills(bills)
	return bills, nil
}

func (m *MockBillRepository) ListByUnitPeriods(ctx context.Context, clientID, fiscalYear, unitID string, periodIDs []string) ([]*domain.Bill, error) {
	if m.ListByUnitPeriodsFunc != nil {
		return m.ListByUnitPeriodsFunc(ctx, clientID, fiscalYear, unitID, periodIDs)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	var bills []*domain.Bill
	for _, periodID := range periodIDs {
		if b, ok := m.bills[billKey(clientID, unitID, periodID)]; ok && b.FiscalYear == fiscalYear {
			bills = append(bills, copyBill(b))
		}
	}
	sortBills(bills)
	return bills, nil
}

func (m *MockBillRepository) Update(ctx context.Context, tx usecase.Transaction, bill *domain.Bill) error {
	if m.UpdateFunc != nil {
		return m.UpdateFunc(ctx, tx, bill)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	key := billKey(bill.ClientID, bill.UnitID, bill.PeriodID)
	stored, ok := m.bills[key]
	if !ok {
		return domain.ErrBillNotFound
	}
	if stored.Version != bill.Version {
		return domain.ErrConcurrentModification
	}
	updated := copyBill(bill)
	updated.Version++
	m.bills[key] = updated
	bill.Version++
	return nil
}

func (m *MockBillRepository) listOutstanding(clientID, unitID string) []*domain.Bill {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var bills []*domain.Bill
	for _, b := range m.bills {
		if b.ClientID == clientID && b.UnitID == unitID && b.Outstanding() {
			bills = append(bills, copyBill(b))
		}
	}
	sortBills(bills)
	return bills
}

func sortBills(bills []*domain.Bill) {
	sort.Slice(bills, func(i, j int) bool {
		if bills[i].PeriodID != bills[j].PeriodID {
			return bills[i].PeriodID < bills[j].PeriodID
		}
		return bills[i].UnitID < bills[j].UnitID
	})
}

// MockCreditRepository is a mock implementation of CreditRepository.
type MockCreditRepository struct {
	mu       sync.RWMutex
	balances map[string]int64
	entries  map[string]*domain.CreditEntry

	GetForUpdateFunc    func(ctx context.Context, tx usecase.Transaction, clientID, unitID, fiscalYear string) (*domain.CreditLedger, error)
	GetFunc             func(ctx context.Context, clientID, unitID, fiscalYear string) (*domain.CreditLedger, error)
	AppendEntryFunc     func(ctx context.Context, tx usecase.Transaction, entry *domain.CreditEntry) error
	DeleteEntryByIDFunc func(ctx context.Context, tx usecase.Transaction, entryID string) error
	ListEntriesFunc     func(ctx context.Context, tx usecase.Transaction, clientID, unitID, fiscalYear string) ([]domain.CreditEntry, error)
	UpdateBalanceFunc   func(ctx context.Context, tx usecase.Transaction, clientID, unitID, fiscalYear string, balanceCents int64, updatedAt time.Time) error
}

func NewMockCreditRepository() *MockCreditRepository {
	return &MockCreditRepository{
		balances: make(map[string]int64),
		entries:  make(map[string]*domain.CreditEntry),
	}
}

func ledgerKey(clientID, unitID, fiscalYear string) string {
	return clientID + "|" + unitID + "|" + fiscalYear
}

// SeedBalance sets an opening balance with a matching history entry.
func (m *MockCreditRepository) SeedBalance(clientID, unitID, fiscalYear string, balanceCents int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.balances[ledgerKey(clientID, unitID, fiscalYear)] = balanceCents
	entryID := fmt.Sprintf("seed-%s-%d", unitID, balanceCents)
	m.entries[entryID] = &domain.CreditEntry{
		EntryID:               entryID,
		ClientID:              clientID,
		UnitID:                unitID,
		FiscalYear:            fiscalYear,
		DeltaCents:            balanceCents,
		ResultingBalanceCents: balanceCents,
		Reason:                domain.CreditReasonOpeningBalance,
	}
}

// Balance reads a balance back out for assertions.
func (m *MockCreditRepository) Balance(clientID, unitID, fiscalYear string) int64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.balances[ledgerKey(clientID, unitID, fiscalYear)]
}

// Entries returns all stored history entries for assertions.
func (m *MockCreditRepository) Entries(clientID, unitID, fiscalYear string) []domain.CreditEntry {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.listEntries(clientID, unitID, fiscalYear)
}

func (m *MockCreditRepository) GetForUpdate(ctx context.Context, tx usecase.Transaction, clientID, unitID, fiscalYear string) (*domain.CreditLedger, error) {
	if m.GetForUpdateFunc != nil {
		return m.GetForUpdateFunc(ctx, tx, clientID, unitID, fiscalYear)
	}
	return m.get(clientID, unitID, fiscalYear), nil
}

func (m *MockCreditRepository) Get(ctx context.Context, clientID, unitID, fiscalYear string) (*domain.CreditLedger, error) {
	if m.GetFunc != nil {
		return m.GetFunc(ctx, clientID, unitID, fiscalYear)
	}
	return m.get(clientID, unitID, fiscalYear), nil
}

func (m *MockCreditRepository) AppendEntry(ctx context.Context, tx usecase.Transaction, entry *domain.CreditEntry) error {
	if m.AppendEntryFunc != nil {
		return m.AppendEntryFunc(ctx, tx, entry)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	e := *entry
	m.entries[entry.EntryID] = &e
	return nil
}

func (m *MockCreditRepository) DeleteEntryByID(ctx context.Context, tx usecase.Transaction, entryID string) error {
	if m.DeleteEntryByIDFunc != nil {
		return m.DeleteEntryByIDFunc(ctx, tx, entryID)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.entries[entryID]; !ok {
		return domain.ErrCreditEntryNotFound
	}
	delete(m.entries, entryID)
	return nil
}

func (m *MockCreditRepository) ListEntries(ctx context.Context, tx usecase.Transaction, clientID, unitID, fiscalYear string) ([]domain.CreditEntry, error) {
	if m.ListEntriesFunc != nil {
		return m.ListEntriesFunc(ctx, tx, clientID, unitID, fiscalYear)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.listEntries(clientID, unitID, fiscalYear), nil
}

func (m *MockCreditRepository) UpdateBalance(ctx context.Context, tx usecase.Transaction, clientID, unitID, fiscalYear string, balanceCents int64, updatedAt time.Time) error {
	if m.UpdateBalanceFunc != nil {
		return m.UpdateBalanceFunc(ctx, tx, clientID, unitID, fiscalYear, balanceCents, updatedAt)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.balances[ledgerKey(clientID, unitID, fiscalYear)] = balanceCents
	return nil
}

func (m *MockCreditRepository) get(clientID, unitID, fiscalYear string) *domain.CreditLedger {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return &domain.CreditLedger{
		ClientID:     clientID,
		UnitID:       unitID,
		FiscalYear:   fiscalYear,
		BalanceCents: m.balances[ledgerKey(clientID, unitID, fiscalYear)],
		History:      m.listEntries(clientID, unitID, fiscalYear),
	}
}

func (m *MockCreditRepository) listEntries(clientID, unitID, fiscalYear string) []domain.CreditEntry {
	var entries []domain.CreditEntry
	for _, e := range m.entries {
		if e.ClientID == clientID && e.UnitID == unitID && e.FiscalYear == fiscalYear {
			entries = append(entries, *e)
		}
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].EntryID < entries[j].EntryID })
	return entries
}

// MockTransactionRepository is a mock implementation of TransactionRepository.
type MockTransactionRepository struct {
	mu           sync.RWMutex
	transactions map[string]*domain.LedgerTransaction

	CreateFunc           func(ctx context.Context, tx usecase.Transaction, transaction *domain.LedgerTransaction) error
	GetByIDFunc          func(ctx context.Context, id string) (*domain.LedgerTransaction, error)
	GetByIDForUpdateFunc func(ctx context.Context, tx usecase.Transaction, id string) (*domain.LedgerTransaction, error)
	DeleteFunc           func(ctx context.Context, tx usecase.Transaction, id string) error
	ListByUnitFunc       func(ctx context.Context, clientID, unitID string, limit, offset int) ([]*domain.LedgerTransaction, error)
}

func NewMockTransactionRepository() *MockTransactionRepository {
	return &MockTransactionRepository{
		transactions: make(map[string]*domain.LedgerTransaction),
	}
}

// GetStored reads a transaction back out for assertions.
func (m *MockTransactionRepository) GetStored(id string) *domain.LedgerTransaction {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.transactions[id]
}

func (m *MockTransactionRepository) Create(ctx context.Context, tx usecase.Transaction, transaction *domain.LedgerTransaction) error {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, tx, transaction)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.transactions[transaction.ID] = transaction
	return nil
}

func (m *MockTransactionRepository) GetByID(ctx context.Context, id string) (*domain.LedgerTransaction, error) {
	if m.GetByIDFunc != nil {
		return m.GetByIDFunc(ctx, id)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	if t, ok := m.transactions[id]; ok {
		return t, nil
	}
	return nil, domain.ErrTransactionNotFound
}

func (m *MockTransactionRepository) GetByIDForUpdate(ctx context.Context, tx usecase.Transaction, id string) (*domain.LedgerTransaction, error) {
	if m.GetByIDForUpdateFunc != nil {
		return m.GetByIDForUpdateFunc(ctx, tx, id)
	}
	return m.GetByID(ctx, id)
}

func (m *MockTransactionRepository) Delete(ctx context.Context, tx usecase.Transaction, id string) error {
	if m.DeleteFunc != nil {
		return m.DeleteFunc(ctx, tx, id)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.transactions[id]; !ok {
		return domain.ErrTransactionNotFound
	}
	delete(m.transactions, id)
	return nil
}

func (m *MockTransactionRepository) ListByUnit(ctx context.Context, clientID, unitID string, limit, offset int) ([]*domain.LedgerTransaction, error) {
	if m.ListByUnitFunc != nil {
		return m.ListByUnitFunc(ctx, clientID, unitID, limit, offset)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	var transactions []*domain.LedgerTransaction
	for _, t := range m.transactions {
		if t.ClientID == clientID && t.UnitID == unitID {
			transactions = append(transactions, t)
		}
	}
	sort.Slice(transactions, func(i, j int) bool { return transactions[i].ID > transactions[j].ID })
	return transactions, nil
}

// MockAggregateRepository is a mock implementation of AggregateRepository.
type MockAggregateRepository struct {
	mu    sync.RWMutex
	cells map[string]*domain.AggregatedCell

	UpsertCellFunc   func(ctx context.Context, cell *domain.AggregatedCell) error
	UpsertCellTxFunc func(ctx context.Context, tx usecase.Transaction, cell *domain.AggregatedCell) error
	GetViewFunc      func(ctx context.Context, clientID, fiscalYear string) (*domain.AggregatedView, error)
}

func NewMockAggregateRepository() *MockAggregateRepository {
	return &MockAggregateRepository{
		cells: make(map[string]*domain.AggregatedCell),
	}
}

func cellKey(cell *domain.AggregatedCell) string {
	return strings.Join([]string{cell.ClientID, cell.FiscalYear, cell.PeriodID, cell.UnitID}, "|")
}

// GetCell reads a cell back out for assertions.
func (m *MockAggregateRepository) GetCell(clientID, fiscalYear, periodID, unitID string) *domain.AggregatedCell {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.cells[strings.Join([]string{clientID, fiscalYear, periodID, unitID}, "|")]
	if !ok {
		return nil
	}
	copied := *c
	return &copied
}

// CellCount returns how many cells have been written.
func (m *MockAggregateRepository) CellCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.cells)
}

func (m *MockAggregateRepository) UpsertCell(ctx context.Context, cell *domain.AggregatedCell) error {
	if m.UpsertCellFunc != nil {
		return m.UpsertCellFunc(ctx, cell)
	}
	m.store(cell)
	return nil
}

func (m *MockAggregateRepository) UpsertCellTx(ctx context.Context, tx usecase.Transaction, cell *domain.AggregatedCell) error {
	if m.UpsertCellTxFunc != nil {
		return m.UpsertCellTxFunc(ctx, tx, cell)
	}
	m.store(cell)
	return nil
}

func (m *MockAggregateRepository) GetView(ctx context.Context, clientID, fiscalYear string) (*domain.AggregatedView, error) {
	if m.GetViewFunc != nil {
		return m.GetViewFunc(ctx, clientID, fiscalYear)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	view := &domain.AggregatedView{
		ClientID:   clientID,
		FiscalYear: fiscalYear,
		PerMonth:   make(map[string]map[string]domain.AggregatedCell),
	}
	for _, c := range m.cells {
		if c.ClientID != clientID || c.FiscalYear != fiscalYear {
			continue
		}
		if view.PerMonth[c.PeriodID] == nil {
			view.PerMonth[c.PeriodID] = make(map[string]domain.AggregatedCell)
		}
		view.PerMonth[c.PeriodID][c.UnitID] = *c
		if c.LastRecomputedAt.After(view.LastRecomputedAt) {
			view.LastRecomputedAt = c.LastRecomputedAt
		}
	}
	return view, nil
}

func (m *MockAggregateRepository) store(cell *domain.AggregatedCell) {
	m.mu.Lock()
	defer m.mu.Unlock()
	copied := *cell
	m.cells[cellKey(cell)] = &copied
}

// MockOutboxRepository is a mock implementation of OutboxRepository.
type MockOutboxRepository struct {
	mu     sync.RWMutex
	events []*domain.OutboxEvent

	CreateFunc func(ctx context.Context, tx usecase.Transaction, event *domain.OutboxEvent) error
}

func NewMockOutboxRepository() *MockOutboxRepository {
	return &MockOutboxRepository{}
}

func (m *MockOutboxRepository) Create(ctx context.Context, tx usecase.Transaction, event *domain.OutboxEvent) error {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, tx, event)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, event)
	return nil
}

func (m *MockOutboxRepository) GetUnpublished(ctx context.Context, limit int) ([]*domain.OutboxEvent, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var unpublished []*domain.OutboxEvent
	for _, e := range m.events {
		if !e.Published {
			unpublished = append(unpublished, e)
		}
	}
	return unpublished, nil
}

func (m *MockOutboxRepository) MarkPublished(ctx context.Context, id string, publishedAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, e := range m.events {
		if e.ID == id {
			e.Published = true
			e.PublishedAt = &publishedAt
		}
	}
	return nil
}

func (m *MockOutboxRepository) DeletePublished(ctx context.Context, before time.Time) error {
	return nil
}

// Events returns everything written so far.
func (m *MockOutboxRepository) Events() []*domain.OutboxEvent {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]*domain.OutboxEvent(nil), m.events...)
}

// MockAuditRepository is a mock implementation of AuditRepository.
type MockAuditRepository struct {
	mu   sync.RWMutex
	logs []*domain.AuditLog

	CreateFunc   func(ctx context.Context, log *domain.AuditLog) error
	CreateTxFunc func(ctx context.Context, tx usecase.Transaction, log *domain.AuditLog) error
}

func NewMockAuditRepository() *MockAuditRepository {
	return &MockAuditRepository{}
}

func (m *MockAuditRepository) Create(ctx context.Context, log *domain.AuditLog) error {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, log)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.logs = append(m.logs, log)
	return nil
}

func (m *MockAuditRepository) CreateTx(ctx context.Context, tx usecase.Transaction, log *domain.AuditLog) error {
	if m.CreateTxFunc != nil {
		return m.CreateTxFunc(ctx, tx, log)
	}
	return m.Create(ctx, log)
}

func (m *MockAuditRepository) List(ctx context.Context, filter domain.AuditFilter) ([]*domain.AuditLog, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]*domain.AuditLog(nil), m.logs...), nil
}

// MockTransaction is a mock implementation of Transaction.
type MockTransaction struct {
	mu         sync.Mutex
	Committed  bool
	RolledBack bool

	CommitFunc   func(ctx context.Context) error
	RollbackFunc func(ctx context.Context) error
}

func (m *MockTransaction) Commit(ctx context.Context) error {
	if m.CommitFunc != nil {
		return m.CommitFunc(ctx)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Committed = true
	return nil
}

func (m *MockTransaction) Rollback(ctx context.Context) error {
	if m.RollbackFunc != nil {
		return m.RollbackFunc(ctx)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.Committed {
		m.RolledBack = true
	}
	return nil
}

// MockTransactionManager is a mock implementation of TransactionManager.
type MockTransactionManager struct {
	mu    sync.Mutex
	Last  *MockTransaction
	Count int

	BeginFunc func(ctx context.Context) (usecase.Transaction, error)
}

func NewMockTransactionManager() *MockTransactionManager {
	return &MockTransactionManager{}
}

func (m *MockTransactionManager) Begin(ctx context.Context) (usecase.Transaction, error) {
	if m.BeginFunc != nil {
		return m.BeginFunc(ctx)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Last = &MockTransaction{}
	m.Count++
	return m.Last, nil
}

// MockIDGenerator is a mock implementation of IDGenerator.
type MockIDGenerator struct {
	mu      sync.Mutex
	counter int

	GenerateFunc func() string
}

func NewMockIDGenerator() *MockIDGenerator {
	return &MockIDGenerator{}
}

func (m *MockIDGenerator) Generate() string {
	if m.GenerateFunc != nil {
		return m.GenerateFunc()
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.counter++
	return fmt.Sprintf("id-%d", m.counter)
}

// MockCache is a mock implementation of Cache.
type MockCache struct {
	mu   sync.RWMutex
	data map[string]string

	GetFunc    func(ctx context.Context, key string) (string, error)
	SetFunc    func(ctx context.Context, key, value string, ttl time.Duration) error
	DeleteFunc func(ctx context.Context, key string) error
}

func NewMockCache() *MockCache {
	return &MockCache{data: make(map[string]string)}
}

func (m *MockCache) Get(ctx context.Context, key string) (string, error) {
	if m.GetFunc != nil {
		return m.GetFunc(ctx, key)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.data[key], nil
}

func (m *MockCache) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	if m.SetFunc != nil {
		return m.SetFunc(ctx, key, value, ttl)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value
	return nil
}

func (m *MockCache) Delete(ctx context.Context, key string) error {
	if m.DeleteFunc != nil {
		return m.DeleteFunc(ctx, key)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}
