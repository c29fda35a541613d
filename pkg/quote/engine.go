// Package quote computes expected swap output, trading fee and exchange rate
// from either a live pool-derived price or a fallback reference price, and
// expected proceeds for liquidity redemption. All amount arithmetic is
// integer, carried out on a common 18-decimal basis so pairs with unequal
// decimal counts lose no precision.
package quote

import (
	"context"
	"fmt"
	"log/slog"
	"math/big"

	"ammswap/pkg/amount"
	"ammswap/pkg/pricefeed"
	"ammswap/pkg/types"
)

const commonBasis = 18

// Engine prices prospective swaps and redemptions.
type Engine struct {
	feeBps int64
	ref    pricefeed.Source // may be nil: no fallback source
	logger *slog.Logger
}

// New constructs an engine with the pool's fee in basis points and an
// optional reference-price fallback.
func New(feeBps int64, ref pricefeed.Source, logger *slog.Logger) *Engine {
	return &Engine{feeBps: feeBps, ref: ref, logger: logger}
}

// Swap prices a swap of amountIn in the given direction. The price source is
// the pool when it has liquidity, otherwise the reference feed; the two are
// never mixed within one quote. The returned quote's MinimumOutput is unset;
// the slippage guard fills it.
func (e *Engine) Swap(ctx context.Context, pool *types.PoolState, d types.Direction, amountIn *big.Int) (*types.SwapQuote, error) {
	if amountIn == nil || amountIn.Sign() <= 0 {
		return nil, ErrInvalidAmount
	}
	if pool == nil {
		return nil, ErrPriceUnavailable
	}

	_, decIn := pool.In(d)
	_, decOut := pool.Out(d)

	fee := new(big.Int).Mul(amountIn, big.NewInt(e.feeBps))
	fee.Quo(fee, big.NewInt(10000))
	netIn := new(big.Int).Sub(amountIn, fee)
	if netIn.Sign() <= 0 {
		return nil, ErrInvalidAmount
	}
	in18 := amount.Rescale(netIn, decIn, commonBasis)

	var (
		out18  *big.Int
		impact float64
	)
	switch {
	case pool.HasLiquidity():
		out18, impact = poolOutput(pool, d, in18)
	case e.ref != nil:
		price, err := e.ref.ReferencePrice(ctx, d)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrPriceUnavailable, err)
		}
		out18 = new(big.Int).Mul(in18, price)
		out18.Quo(out18, pow10(commonBasis))
	default:
		return nil, ErrPriceUnavailable
	}

	out := amount.Rescale(out18, commonBasis, decOut)

	q := &types.SwapQuote{
		InputAmount:  new(big.Int).Set(amountIn),
		OutputAmount: out,
		TradingFee:   fee,
		PriceImpact:  impact,
		ExchangeRate: displayRate(amountIn, decIn, out, decOut),
	}
	e.logger.Debug("quote computed",
		"direction", d.String(),
		"in", amountIn.String(),
		"out", out.String(),
		"fee", fee.String(),
		"impact_pct", impact)
	return q, nil
}

// Removal prices redeeming lpAmount of the pooled position into its
// underlying assets, proportional to the LP share. MinimumA/MinimumB are
// unset; the slippage guard fills them.
func (e *Engine) Removal(pool *types.PoolState, lpAmount *big.Int) (*types.RemovalPreview, error) {
	if lpAmount == nil || lpAmount.Sign() <= 0 {
		return nil, ErrInvalidAmount
	}
	if pool == nil || pool.LPSupply == nil || pool.LPSupply.Sign() == 0 || !pool.HasLiquidity() {
		return nil, ErrPriceUnavailable
	}
	if lpAmount.Cmp(pool.LPSupply) > 0 {
		return nil, ErrInvalidAmount
	}

	expectedA := new(big.Int).Mul(lpAmount, pool.ReserveA)
	expectedA.Quo(expectedA, pool.LPSupply)
	expectedB := new(big.Int).Mul(lpAmount, pool.ReserveB)
	expectedB.Quo(expectedB, pool.LPSupply)

	// Redemption is proportional, so the "impact" reported is the share of
	// the pool being withdrawn.
	share := new(big.Rat).SetFrac(lpAmount, pool.LPSupply)
	shareF, _ := new(big.Rat).Mul(share, big.NewRat(100, 1)).Float64()

	return &types.RemovalPreview{
		LPTokenAmount: new(big.Int).Set(lpAmount),
		ExpectedA:     expectedA,
		ExpectedB:     expectedB,
		PriceImpact:   shareF,
	}, nil
}

// PriceImpact returns the impact percent a trade of amountIn would have,
// without building a full quote. Zero when the pool has no liquidity (the
// reference path has no depth to move).
func (e *Engine) PriceImpact(pool *types.PoolState, d types.Direction, amountIn *big.Int) float64 {
	if !pool.HasLiquidity() || amountIn == nil || amountIn.Sign() <= 0 {
		return 0
	}
	_, decIn := pool.In(d)
	fee := new(big.Int).Mul(amountIn, big.NewInt(e.feeBps))
	fee.Quo(fee, big.NewInt(10000))
	netIn := new(big.Int).Sub(amountIn, fee)
	if netIn.Sign() <= 0 {
		return 0
	}
	_, impact := poolOutput(pool, d, amount.Rescale(netIn, decIn, commonBasis))
	return impact
}

// PoolDepth returns the pool's total value on the output side of the trade,
// 18-decimal scaled, doubled to approximate both sides. Used for depth-tier
// classification.
func PoolDepth(pool *types.PoolState, d types.Direction) *big.Int {
	if !pool.HasLiquidity() {
		return big.NewInt(0)
	}
	rOut, decOut := pool.Out(d)
	depth := amount.Rescale(rOut, decOut, commonBasis)
	return depth.Mul(depth, big.NewInt(2))
}

// poolOutput derives the execution output and price impact from the
// constant-product reserves, on the 18-decimal basis.
func poolOutput(pool *types.PoolState, d types.Direction, in18 *big.Int) (*big.Int, float64) {
	rIn, decIn := pool.In(d)
	rOut, decOut := pool.Out(d)
	rIn18 := amount.Rescale(rIn, decIn, commonBasis)
	rOut18 := amount.Rescale(rOut, decOut, commonBasis)

	den := new(big.Int).Add(rIn18, in18)
	out18 := new(big.Int).Mul(in18, rOut18)
	out18.Quo(out18, den)

	impactRat := new(big.Rat).SetFrac(in18, den)
	impact, _ := new(big.Rat).Mul(impactRat, big.NewRat(100, 1)).Float64()
	return out18, impact
}

// displayRate is a display-only float approximation of output per input.
// Never used for on-ledger amounts.
func displayRate(in *big.Int, decIn uint8, out *big.Int, decOut uint8) float64 {
	inF := amount.Float(in, decIn)
	if inF == 0 {
		return 0
	}
	return amount.Float(out, decOut) / inF
}

func pow10(n int64) *big.Int {
	return new(big.Int).Exp(big.NewInt(10), big.NewInt(n), nil)
}
