package ledger

import (
	"errors"
	"fmt"
)

// ErrUserRejected indicates the signer declined to sign a transaction. It is
// a cancellation, not a failure, and must never be retried automatically.
var ErrUserRejected = errors.New("signing rejected by user")

// RevertError carries the ledger's revert reason for a failed execution so
// callers can distinguish an output shortfall or expired deadline from a
// generic failure.
type RevertError struct {
	Reason string
}

func (e *RevertError) Error() string {
	return fmt.Sprintf("execution reverted: %s", e.Reason)
}

// AsRevert unwraps a RevertError from an error chain.
func AsRevert(err error) (*RevertError, bool) {
	var re *RevertError
	if errors.As(err, &re) {
		return re, true
	}
	return nil, false
}
