package domain

import "errors"

var (
	// Payment errors
	ErrInvalidAmount         = errors.New("amount must be positive")
	ErrInsufficientCredit    = errors.New("requested credit use exceeds available balance")
	ErrAllocationExceedsDue  = errors.New("allocation exceeds remaining amount due")
	ErrUnbalancedTransaction = errors.New("transaction allocations do not balance with funds")
	ErrPaymentFailed         = errors.New("payment failed")

	// Lookup errors
	ErrBillNotFound         = errors.New("bill not found")
	ErrCreditLedgerNotFound = errors.New("credit ledger not found")
	ErrTransactionNotFound  = errors.New("transaction not found")
	ErrCreditEntryNotFound  = errors.New("credit history entry not found")
	ErrPaymentEntryNotFound = errors.New("payment entry not found on bill")
	ErrPaymentEntryMismatch = errors.New("payment entry does not match recorded amounts")

	// Consistency errors
	ErrConcurrentModification = errors.New("record was modified concurrently")
	ErrCacheRebuildFailed     = errors.New("aggregated view rebuild failed")
)
