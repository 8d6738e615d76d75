package domain

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound        = errors.New("not found")
	ErrRateLimited     = errors.New("rate limited")
	ErrUnauthorized    = errors.New("unauthorized")
	ErrPayloadTooLarge = errors.New("payload too large")
	ErrLockHeld        = errors.New("lock already held")
	ErrUnknownKeyspace = errors.New("unknown keyspace")
	ErrNotConfigured   = errors.New("not configured")

	// Page validation.
	ErrDuplicateKey      = errors.New("duplicate key")
	ErrInvalidIdentifier = errors.New("invalid identifier")

	// Precise conversion.
	ErrIdentityMismatch    = errors.New("condition id and question id must be both present or both absent")
	ErrNegRiskMismatch     = errors.New("neg risk flag does not match neg risk identifiers")
	ErrTokensLength        = errors.New("token list must have exactly 2 entries")
	ErrBothWinnersNot5050  = errors.New("both tokens are winners but market is not a 50-50 outcome")
	ErrPriceLevelConflict  = errors.New("price level conflicts with existing size")
	ErrInvalidTimestamp    = errors.New("invalid timestamp")
	ErrInvalidDecimal      = errors.New("invalid decimal")
	ErrUnsupportedMarket   = errors.New("unsupported gamma market")
	ErrTooManyOutcomePrice = errors.New("too many outcome prices")
	ErrRoundTripMismatch   = errors.New("round trip mismatch")
)

// BatchError aggregates the failures of a batch of independent items so the
// operator sees all of them at once.
type BatchError struct {
	Op    string
	Total int
	Errs  []error
}

func (e *BatchError) Error() string {
	return fmt.Sprintf("%s: %d of %d failed: %v", e.Op, len(e.Errs), e.Total, errors.Join(e.Errs...))
}

func (e *BatchError) Unwrap() []error { return e.Errs }

// JoinBatch returns a *BatchError over errs, or nil when errs is empty.
func JoinBatch(op string, total int, errs []error) error {
	if len(errs) == 0 {
		return nil
	}
	return &BatchError{Op: op, Total: total, Errs: errs}
}
