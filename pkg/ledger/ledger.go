// Package ledger defines the abstract read/write interface the engine uses
// to talk to the AMM ledger, plus an EVM-backed implementation. Amounts cross
// this boundary as arbitrary-precision integers in each token's native
// decimal count.
package ledger

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"ammswap/pkg/policy"
	"ammswap/pkg/types"
)

// PendingTx is the handle returned for a submitted transaction. Wait blocks
// until the transaction is confirmed or rejected; once submitted, the client
// cannot cancel it, only the ledger-enforced deadline can.
type PendingTx interface {
	Hash() string
	Wait(ctx context.Context) error
}

// Reader is the read side of the ledger. Read failures are transient and safe
// to retry; callers decide whether to.
type Reader interface {
	// ChainID returns the network identifier the endpoint is serving.
	ChainID(ctx context.Context) (*big.Int, error)

	// PoolState returns the current reserves and LP supply of the pair.
	PoolState(ctx context.Context) (*types.PoolState, error)

	// Token returns a snapshot of a token's symbol, decimals, owner balance
	// and spender allowance.
	Token(ctx context.Context, owner, spender, token common.Address) (*types.TokenInfo, error)

	// SwapQuote is the ledger-native calculation path: the router's view
	// function computing the expected output for an input amount.
	SwapQuote(ctx context.Context, amountIn *big.Int, d types.Direction) (*big.Int, error)

	// RemovalQuote is the ledger-native path for liquidity redemption,
	// returning the expected amount of each underlying asset.
	RemovalQuote(ctx context.Context, lpAmount *big.Int) (*big.Int, *big.Int, error)

	// GasPrice returns the network-observed gas price in wei.
	GasPrice(ctx context.Context) (*big.Int, error)

	// LPBalance returns the owner's balance of pool tokens.
	LPBalance(ctx context.Context, owner common.Address) (*big.Int, error)
}

// SwapParams carries everything a swap submission needs. MinimumOut and
// Deadline are enforced by the ledger; Policy is advisory metadata except for
// the gas ceiling and priority fee, which shape the transaction itself.
type SwapParams struct {
	AmountIn   *big.Int
	Direction  types.Direction
	MinimumOut *big.Int
	Policy     policy.Params
}

// RemovalParams carries a liquidity-removal submission.
type RemovalParams struct {
	LPAmount *big.Int
	MinimumA *big.Int
	MinimumB *big.Int
	Policy   policy.Params
}

// Writer is the write side of the ledger. Write failures are never retried by
// the engine; they surface to the caller.
type Writer interface {
	Approve(ctx context.Context, token, spender common.Address, amount *big.Int) (PendingTx, error)
	Swap(ctx context.Context, p SwapParams) (PendingTx, error)
	RemoveLiquidity(ctx context.Context, p RemovalParams) (PendingTx, error)
}

// Ledger combines both sides.
type Ledger interface {
	Reader
	Writer
}
