package usecase

import "time"

const (
	// DefaultTransactionTimeout is the maximum duration for a database transaction
	// This prevents long-running transactions from blocking tables
	DefaultTransactionTimeout = 10 * time.Second

	// MaxPaymentCents caps a single payment at one million dollars.
	MaxPaymentCents = int64(100_000_000)

	// IdempotencyKeyTTL is how long idempotency keys are cached
	IdempotencyKeyTTL = 24 * time.Hour

	// ViewCacheTTL bounds the staleness of the Redis copy of the
	// aggregated view. The Postgres view is rebuilt synchronously with
	// every mutation; the Redis copy only serves reads.
	ViewCacheTTL = 5 * time.Minute
)
