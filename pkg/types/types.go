package types

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// Direction identifies which side of the pair is being sold.
type Direction uint8

const (
	TokenAToB Direction = iota // Sell token A for token B
	TokenBToA                  // Sell token B for token A
)

// String returns a short label for logging and display.
func (d Direction) String() string {
	if d == TokenAToB {
		return "a->b"
	}
	return "b->a"
}

// SwapQuote holds the pricing of one prospective swap. Amounts are scaled
// integers in each token's own decimal count. A quote is never mutated; a
// newer quote supersedes it.
type SwapQuote struct {
	InputAmount   *big.Int
	OutputAmount  *big.Int
	MinimumOutput *big.Int
	TradingFee    *big.Int
	PriceImpact   float64 // percent
	ExchangeRate  float64 // display only, never used on-ledger
	Tolerance     float64 // percent applied to MinimumOutput
}

// RemovalPreview holds the expected proceeds of redeeming a pooled position.
type RemovalPreview struct {
	LPTokenAmount     *big.Int
	ExpectedA         *big.Int
	ExpectedB         *big.Int
	MinimumA          *big.Int
	MinimumB          *big.Int
	PriceImpact       float64 // share of pool being redeemed, percent
	SlippageTolerance float64
}

// TokenInfo is a read-mostly snapshot of a token's on-ledger state for the
// session account. It is refreshed after any operation that could change it.
type TokenInfo struct {
	Address   common.Address
	Symbol    string
	Decimals  uint8
	Balance   *big.Int
	Allowance *big.Int
}

// PoolState is a snapshot of the pair's reserves and LP supply.
type PoolState struct {
	ReserveA  *big.Int
	ReserveB  *big.Int
	LPSupply  *big.Int
	DecimalsA uint8
	DecimalsB uint8
}

// HasLiquidity reports whether both reserves are non-zero, i.e. whether a
// pool-derived price exists.
func (p *PoolState) HasLiquidity() bool {
	return p != nil &&
		p.ReserveA != nil && p.ReserveA.Sign() > 0 &&
		p.ReserveB != nil && p.ReserveB.Sign() > 0
}

// In returns the reserve and decimals on the input side for a direction.
func (p *PoolState) In(d Direction) (*big.Int, uint8) {
	if d == TokenAToB {
		return p.ReserveA, p.DecimalsA
	}
	return p.ReserveB, p.DecimalsB
}

// Out returns the reserve and decimals on the output side for a direction.
func (p *PoolState) Out(d Direction) (*big.Int, uint8) {
	if d == TokenAToB {
		return p.ReserveB, p.DecimalsB
	}
	return p.ReserveA, p.DecimalsA
}
