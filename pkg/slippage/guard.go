// Package slippage turns an expected output into the minimum acceptable
// output enforced on-ledger, and recommends a tolerance from price impact and
// pool depth.
package slippage

import (
	"math"
	"math/big"
)

const (
	// MinTolerancePercent and MaxTolerancePercent bound the working
	// tolerance. Out-of-range values are clamped, not rejected: tolerance is
	// advisory UI state, not a submitted transaction parameter.
	MinTolerancePercent = 0.01
	MaxTolerancePercent = 50

	autoBasePercent = 0.5
	autoCapPercent  = 15
)

// DepthTier classifies total pool value in the quote's settlement asset.
type DepthTier int

const (
	DepthDeep     DepthTier = iota
	DepthModerate           // adds 0.5 to the auto recommendation
	DepthThin               // adds 1.0 to the auto recommendation
)

// Clamp bounds a tolerance percentage to [MinTolerancePercent,
// MaxTolerancePercent]. Idempotent.
func Clamp(pct float64) float64 {
	if math.IsNaN(pct) || pct < MinTolerancePercent {
		return MinTolerancePercent
	}
	if pct > MaxTolerancePercent {
		return MaxTolerancePercent
	}
	return pct
}

// MinimumOutput computes expected * (10000 - round(tolerance*100)) / 10000 in
// integer arithmetic, truncating toward zero. Truncation keeps the floor at
// or below the exact value; rounding up would weaken the guarantee.
func MinimumOutput(expected *big.Int, tolerancePct float64) *big.Int {
	if expected == nil {
		return nil
	}
	bps := int64(math.Round(Clamp(tolerancePct) * 100))
	min := new(big.Int).Mul(expected, big.NewInt(10000-bps))
	return min.Quo(min, big.NewInt(10000))
}

// TierForDepth classifies a pool's total value (18-decimal settlement-asset
// units) against the configured thresholds.
func TierForDepth(poolValue, thinBelow, moderateBelow *big.Int) DepthTier {
	if poolValue == nil {
		return DepthThin
	}
	if thinBelow != nil && poolValue.Cmp(thinBelow) < 0 {
		return DepthThin
	}
	if moderateBelow != nil && poolValue.Cmp(moderateBelow) < 0 {
		return DepthModerate
	}
	return DepthDeep
}

// AutoTolerance recommends a tolerance for the given price impact (percent)
// and pool depth: base 0.5, plus impact*1.5 once impact exceeds 1%, plus a
// depth increment for shallow pools, capped at 15 regardless of inputs.
// Pure; re-evaluate whenever impact or depth changes.
func AutoTolerance(priceImpactPct float64, tier DepthTier) float64 {
	rec := autoBasePercent
	if priceImpactPct > 1 {
		rec += priceImpactPct * 1.5
	}
	switch tier {
	case DepthThin:
		rec += 1.0
	case DepthModerate:
		rec += 0.5
	}
	if rec > autoCapPercent {
		rec = autoCapPercent
	}
	return rec
}
