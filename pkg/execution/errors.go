package execution

import "errors"

var (
	// ErrExecutionInFlight refuses a new execution while one is pending;
	// exactly one execution may be in flight per session.
	ErrExecutionInFlight = errors.New("an execution is already in flight")

	// ErrCancelled indicates the user declined to sign. Not a failure; never
	// retried automatically.
	ErrCancelled = errors.New("execution cancelled by user")

	// ErrInsufficientBalance blocks execution before any ledger call when
	// the input amount exceeds the account balance.
	ErrInsufficientBalance = errors.New("amount exceeds available balance")

	// ErrSlippageExceeded indicates the ledger rejected execution because
	// actual output fell below the submitted minimum. The remedy differs
	// from generic failure: raise the tolerance or reduce the amount.
	ErrSlippageExceeded = errors.New("price moved beyond your slippage tolerance; raise the tolerance or reduce the amount")

	// ErrDeadlineExpired indicates the transaction was not included before
	// its ledger-enforced deadline.
	ErrDeadlineExpired = errors.New("transaction deadline expired before inclusion")
)
