package quote

import (
	"context"
	"io"
	"log/slog"
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ammswap/pkg/amount"
	"ammswap/pkg/pricefeed"
	"ammswap/pkg/types"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func pool18(reserveA, reserveB int64) *types.PoolState {
	return &types.PoolState{
		ReserveA:  big.NewInt(reserveA),
		ReserveB:  big.NewInt(reserveB),
		LPSupply:  big.NewInt(1_000_000),
		DecimalsA: 18,
		DecimalsB: 18,
	}
}

func TestSwapPoolPath(t *testing.T) {
	e := New(30, nil, testLogger())
	q, err := e.Swap(context.Background(), pool18(1_000_000, 1_000_000), types.TokenAToB, big.NewInt(10_000))
	require.NoError(t, err)

	// fee = 10000*30/10000 = 30, netIn = 9970,
	// out = 9970*1000000/(1000000+9970) = 9871 (truncated)
	assert.Equal(t, int64(30), q.TradingFee.Int64())
	assert.Equal(t, int64(9871), q.OutputAmount.Int64())
	assert.InDelta(t, 0.987, q.PriceImpact, 0.01)
	assert.Nil(t, q.MinimumOutput)
}

func TestSwapFeeTruncates(t *testing.T) {
	e := New(30, nil, testLogger())
	// 333*30/10000 = 0.999 -> truncates to 0.
	q, err := e.Swap(context.Background(), pool18(1_000_000, 1_000_000), types.TokenAToB, big.NewInt(333))
	require.NoError(t, err)
	assert.Equal(t, int64(0), q.TradingFee.Int64())
}

func TestSwapUnequalDecimals(t *testing.T) {
	// 1:1 price with 6-decimal token A and 18-decimal token B.
	units := int64(1_000_000)
	pool := &types.PoolState{
		ReserveA:  new(big.Int).Mul(big.NewInt(units), pow10(6)),
		ReserveB:  new(big.Int).Mul(big.NewInt(units), pow10(18)),
		LPSupply:  big.NewInt(1),
		DecimalsA: 6,
		DecimalsB: 18,
	}
	e := New(0, nil, testLogger())

	in, err := amount.Parse("1", 6)
	require.NoError(t, err)
	q, err := e.Swap(context.Background(), pool, types.TokenAToB, in)
	require.NoError(t, err)

	// Output is just under one whole unit of B, at B's 18-decimal scale.
	one := new(big.Int).Mul(big.NewInt(1), pow10(18))
	assert.True(t, q.OutputAmount.Sign() > 0)
	assert.True(t, q.OutputAmount.Cmp(one) < 0)
	// Within 0.001% of a whole unit: the pool is a million times deeper
	// than the trade.
	diff := new(big.Int).Sub(one, q.OutputAmount)
	limit := new(big.Int).Quo(one, big.NewInt(100_000))
	assert.True(t, diff.Cmp(limit) < 0, "diff %s", diff)
}

func TestSwapEmptyPoolNoFallback(t *testing.T) {
	e := New(30, nil, testLogger())
	_, err := e.Swap(context.Background(), pool18(0, 0), types.TokenAToB, big.NewInt(100))
	assert.ErrorIs(t, err, ErrPriceUnavailable)
}

func TestSwapEmptyPoolReferenceFallback(t *testing.T) {
	// Reference price: 2 B per A, 1e18-scaled.
	two := new(big.Int).Mul(big.NewInt(2), pow10(18))
	e := New(0, pricefeed.Static{Price: two}, testLogger())

	q, err := e.Swap(context.Background(), pool18(0, 0), types.TokenAToB, big.NewInt(500))
	require.NoError(t, err)
	assert.Equal(t, int64(1000), q.OutputAmount.Int64())
	assert.Equal(t, 0.0, q.PriceImpact)
}

func TestSwapNilPool(t *testing.T) {
	e := New(30, nil, testLogger())
	_, err := e.Swap(context.Background(), nil, types.TokenAToB, big.NewInt(100))
	assert.ErrorIs(t, err, ErrPriceUnavailable)
}

func TestSwapInvalidAmount(t *testing.T) {
	e := New(30, nil, testLogger())
	_, err := e.Swap(context.Background(), pool18(1_000_000, 1_000_000), types.TokenAToB, big.NewInt(0))
	assert.ErrorIs(t, err, ErrInvalidAmount)

	_, err = e.Swap(context.Background(), pool18(1_000_000, 1_000_000), types.TokenAToB, nil)
	assert.ErrorIs(t, err, ErrInvalidAmount)
}

func TestRemovalProportional(t *testing.T) {
	e := New(30, nil, testLogger())
	pool := pool18(1_000_000, 500_000)

	prev, err := e.Removal(pool, big.NewInt(100_000)) // 10% of supply
	require.NoError(t, err)
	assert.Equal(t, int64(100_000), prev.ExpectedA.Int64())
	assert.Equal(t, int64(50_000), prev.ExpectedB.Int64())
	assert.InDelta(t, 10, prev.PriceImpact, 1e-9)
	assert.Nil(t, prev.MinimumA)
	assert.Nil(t, prev.MinimumB)
}

func TestRemovalRejectsOversizedShare(t *testing.T) {
	e := New(30, nil, testLogger())
	_, err := e.Removal(pool18(1_000_000, 500_000), big.NewInt(2_000_000))
	assert.ErrorIs(t, err, ErrInvalidAmount)
}

func TestPoolDepth(t *testing.T) {
	depth := PoolDepth(pool18(1_000_000, 400_000), types.TokenAToB)
	assert.Equal(t, int64(800_000), depth.Int64())
	assert.Equal(t, int64(0), PoolDepth(pool18(0, 0), types.TokenAToB).Int64())
}
