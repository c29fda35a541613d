package session

import (
	"fmt"
	"math/big"
)

// ChainMismatchError indicates the RPC endpoint serves a different network
// than the session expects.
type ChainMismatchError struct {
	Want *big.Int
	Got  *big.Int
}

func (e *ChainMismatchError) Error() string {
	return fmt.Sprintf("network mismatch: session expects chain %s, endpoint serves %s", e.Want, e.Got)
}
