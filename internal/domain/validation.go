package domain

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// Validation errors
var (
	ErrInvalidPeriodID   = errors.New("invalid period id")
	ErrInvalidFiscalYear = errors.New("invalid fiscal year")
	ErrInvalidUnitID     = errors.New("invalid unit id")
	ErrInvalidClientID   = errors.New("invalid client id")
)

// Validation constants
const (
	MaxUnitIDLength = 64
	MaxIDLength     = 64
)

// periodRegex matches zero-padded YYYY-MM period ids, whose
// lexicographic order is chronological order.
var periodRegex = regexp.MustCompile(`^\d{4}-(0[1-9]|1[0-2])$`)

var fiscalYearRegex = regexp.MustCompile(`^\d{4}$`)

// ValidatePeriodID validates a billing period id.
func ValidatePeriodID(periodID string) error {
	if !periodRegex.MatchString(periodID) {
		return fmt.Errorf("%w: %q is not a YYYY-MM period", ErrInvalidPeriodID, periodID)
	}

	return nil
}

// ValidateFiscalYear validates a fiscal year id.
func ValidateFiscalYear(fiscalYear string) error {
	if !fiscalYearRegex.MatchString(fiscalYear) {
		return fmt.Errorf("%w: %q is not a YYYY fiscal year", ErrInvalidFiscalYear, fiscalYear)
	}

	return nil
}

// ValidateUnitID validates a unit identifier.
func ValidateUnitID(unitID string) error {
	unitID = strings.TrimSpace(unitID)

	if unitID == "" || len(unitID) > MaxUnitIDLength {
		return ErrInvalidUnitID
	}

	return nil
}

// ValidateClientID validates a client identifier.
func ValidateClientID(clientID string) error {
	clientID = strings.TrimSpace(clientID)

	if clientID == "" || len(clientID) > MaxIDLength {
		return ErrInvalidClientID
	}

	return nil
}

// ClampPagination normalizes pagination parameters: a missing or
// out-of-range limit falls back to sane bounds, a negative offset
// becomes zero. It never rejects.
func ClampPagination(limit, offset int) (int, int) {
	const MaxPageSize = 1000
	const DefaultPageSize = 50

	if limit <= 0 {
		limit = DefaultPageSize
	}

	if limit > MaxPageSize {
		limit = MaxPageSize
	}

	if offset < 0 {
		offset = 0
	}

	return limit, offset
}
