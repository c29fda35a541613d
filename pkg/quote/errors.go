package quote

import "errors"

var (
	// ErrPriceUnavailable indicates neither the pool nor the reference feed
	// could supply a price. The preview aborts; it is not retried
	// automatically.
	ErrPriceUnavailable = errors.New("no price source available")

	// ErrInvalidAmount indicates a zero, negative or otherwise unusable
	// input amount, caught before any ledger call.
	ErrInvalidAmount = errors.New("invalid amount")
)
