package slippage

import "errors"

// ErrToleranceCeiling indicates the working tolerance exceeds the configured
// safety ceiling; execution is refused client-side before any ledger call.
var ErrToleranceCeiling = errors.New("slippage tolerance exceeds the configured safety ceiling")
