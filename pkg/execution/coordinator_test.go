package execution

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ammswap/pkg/approval"
	"ammswap/pkg/ledger/ledgertest"
	"ammswap/pkg/policy"
	"ammswap/pkg/preview"
	"ammswap/pkg/quote"
	"ammswap/pkg/session"
	"ammswap/pkg/slippage"
	"ammswap/pkg/types"
)

var (
	spender = common.HexToAddress("0x2")
	lpToken = common.HexToAddress("0xcccc")
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fixture struct {
	fake  *ledgertest.Fake
	sess  *session.Session
	slip  *slippage.Config
	coord *Coordinator
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	fake := ledgertest.New(1_000_000, 1_000_000, 30)
	fake.SetBalance(fake.TokenA, ledgertest.Owner, big.NewInt(500_000))
	fake.SetBalance(fake.TokenB, ledgertest.Owner, big.NewInt(500_000))
	fake.LPBalances[ledgertest.Owner] = big.NewInt(200_000)

	logger := testLogger()
	engine := quote.New(30, nil, logger)
	sess := session.New(ledgertest.Owner, big.NewInt(1), spender, fake)
	slip := slippage.NewConfig(0.5, 15, 20, false)

	coord := New(Config{
		Ledger:    fake,
		Engine:    engine,
		Approvals: approval.New(fake, sess, spender, logger),
		Session:   sess,
		Slippage:  slip,
		Policy:    policy.Config{Enabled: true},
		TokenA:    fake.TokenA,
		TokenB:    fake.TokenB,
		LPToken:   lpToken,
		Logger:    logger,
	})
	return &fixture{fake: fake, sess: sess, slip: slip, coord: coord}
}

func TestSwapConfirmed(t *testing.T) {
	f := newFixture(t)

	result, err := f.coord.Swap(context.Background(), types.TokenAToB, big.NewInt(10_000))
	require.NoError(t, err)

	// fee 30, netIn 9970, out = 9970*1000000/1009970 = 9871;
	// min = 9871*9950/10000 = 9821 (truncated)
	assert.Equal(t, int64(9871), result.Expected.Int64())
	assert.Equal(t, int64(9821), result.MinimumOut.Int64())
	assert.True(t, result.NativePath)
	assert.Equal(t, StateConfirmed, f.coord.State())

	// Authorization covered exactly the input amount.
	require.Len(t, f.fake.ApprovedAmounts, 1)
	assert.Equal(t, int64(10_000), f.fake.ApprovedAmounts[0].Int64())

	// The submitted request carried the minimum and a deadline.
	require.Len(t, f.fake.SwapsSubmitted, 1)
	p := f.fake.SwapsSubmitted[0]
	assert.Equal(t, int64(9821), p.MinimumOut.Int64())
	require.NotNil(t, p.Policy.Deadline)
	require.NotNil(t, p.Policy.MaxGasPrice)
}

func TestSwapFallbackMatchesNativePath(t *testing.T) {
	native := newFixture(t)
	nativeResult, err := native.coord.Swap(context.Background(), types.TokenAToB, big.NewInt(10_000))
	require.NoError(t, err)
	require.True(t, nativeResult.NativePath)

	fallback := newFixture(t)
	fallback.fake.FailSwapQuote = true
	fallbackResult, err := fallback.coord.Swap(context.Background(), types.TokenAToB, big.NewInt(10_000))
	require.NoError(t, err)
	require.False(t, fallbackResult.NativePath)

	// Same reserves, same arithmetic: the enforced minimum is identical on
	// either path.
	assert.Equal(t, nativeResult.Expected.String(), fallbackResult.Expected.String())
	assert.Equal(t, nativeResult.MinimumOut.String(), fallbackResult.MinimumOut.String())
}

func TestSwapInsufficientBalance(t *testing.T) {
	f := newFixture(t)
	f.fake.SetBalance(f.fake.TokenA, ledgertest.Owner, big.NewInt(10))

	_, err := f.coord.Swap(context.Background(), types.TokenAToB, big.NewInt(10_000))
	assert.ErrorIs(t, err, ErrInsufficientBalance)
	assert.Empty(t, f.fake.ApprovedAmounts)
	assert.Empty(t, f.fake.SwapsSubmitted)
}

func TestSwapUserRejectedIsCancelled(t *testing.T) {
	f := newFixture(t)
	f.fake.RejectSigning = true

	_, err := f.coord.Swap(context.Background(), types.TokenAToB, big.NewInt(10_000))
	assert.ErrorIs(t, err, ErrCancelled)
	assert.Equal(t, StateCancelled, f.coord.State())
	assert.Empty(t, f.fake.SwapsSubmitted)
}

func TestSwapSlippageRevert(t *testing.T) {
	f := newFixture(t)
	f.fake.RevertReason = "INSUFFICIENT_OUTPUT_AMOUNT"

	_, err := f.coord.Swap(context.Background(), types.TokenAToB, big.NewInt(10_000))
	assert.ErrorIs(t, err, ErrSlippageExceeded)
	assert.Equal(t, StateFailed, f.coord.State())
}

func TestSwapDeadlineRevertIsNotSlippage(t *testing.T) {
	f := newFixture(t)
	f.fake.RevertReason = "EXPIRED"

	_, err := f.coord.Swap(context.Background(), types.TokenAToB, big.NewInt(10_000))
	assert.ErrorIs(t, err, ErrDeadlineExpired)
	assert.NotErrorIs(t, err, ErrSlippageExceeded)
}

func TestSwapGenericRevert(t *testing.T) {
	f := newFixture(t)
	f.fake.RevertReason = "LOCKED"

	_, err := f.coord.Swap(context.Background(), types.TokenAToB, big.NewInt(10_000))
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrSlippageExceeded)
	assert.NotErrorIs(t, err, ErrDeadlineExpired)
}

func TestSwapToleranceCeilingBlocks(t *testing.T) {
	f := newFixture(t)
	// Auto-derivation with a large trade against a thin pool pushes the
	// recommendation past the 5% ceiling.
	f.slip.ReenableAuto()
	f.slip.MaxTolerancePercent = 5
	f.coord.thinBelow = big.NewInt(1_000_000_000_000)

	_, err := f.coord.Swap(context.Background(), types.TokenAToB, big.NewInt(200_000))
	assert.ErrorIs(t, err, slippage.ErrToleranceCeiling)
	assert.Empty(t, f.fake.SwapsSubmitted)
}

func TestSwapChainMismatch(t *testing.T) {
	fake := ledgertest.New(1_000_000, 1_000_000, 30)
	logger := testLogger()
	sess := session.New(ledgertest.Owner, big.NewInt(5), spender, fake)
	coord := New(Config{
		Ledger:    fake,
		Engine:    quote.New(30, nil, logger),
		Approvals: approval.New(fake, sess, spender, logger),
		Session:   sess,
		Slippage:  slippage.NewConfig(0.5, 15, 20, false),
		Policy:    policy.Config{Enabled: true},
		TokenA:    fake.TokenA,
		TokenB:    fake.TokenB,
		LPToken:   lpToken,
		Logger:    logger,
	})

	_, err := coord.Swap(context.Background(), types.TokenAToB, big.NewInt(100))
	var mismatch *session.ChainMismatchError
	assert.True(t, errors.As(err, &mismatch))
}

func TestSwapSecondCallAfterFirstCompletes(t *testing.T) {
	f := newFixture(t)

	_, err := f.coord.Swap(context.Background(), types.TokenAToB, big.NewInt(10_000))
	require.NoError(t, err)

	// The in-flight guard releases on completion.
	_, err = f.coord.Swap(context.Background(), types.TokenAToB, big.NewInt(10_000))
	require.NoError(t, err)
	assert.Len(t, f.fake.SwapsSubmitted, 2)
}

func TestSwapClearsPreviewOnSuccess(t *testing.T) {
	f := newFixture(t)

	quoteFn := func(ctx context.Context, d types.Direction, amountIn *big.Int) (*types.SwapQuote, error) {
		return &types.SwapQuote{OutputAmount: new(big.Int).Set(amountIn)}, nil
	}
	r := preview.New(quoteFn, nil)
	f.coord.AttachPreview(r)
	r.SetInput(types.TokenAToB, big.NewInt(10_000))

	_, err := f.coord.Swap(context.Background(), types.TokenAToB, big.NewInt(10_000))
	require.NoError(t, err)

	// The displayed preview no longer reflects the pool; it was abandoned.
	assert.Equal(t, preview.StateIdle, r.State())
}

func TestRemoveLiquidityConfirmed(t *testing.T) {
	f := newFixture(t)

	result, err := f.coord.RemoveLiquidity(context.Background(), big.NewInt(100_000))
	require.NoError(t, err)

	// 10% of a 1,000,000/1,000,000 pool, floored by the 0.5% tolerance.
	assert.Equal(t, int64(100_000), result.ExpectedA.Int64())
	assert.Equal(t, int64(100_000), result.ExpectedB.Int64())
	assert.Equal(t, int64(99_500), result.MinimumA.Int64())
	assert.Equal(t, int64(99_500), result.MinimumB.Int64())
	assert.True(t, result.NativePath)
	assert.Equal(t, StateConfirmed, f.coord.State())

	require.Len(t, f.fake.Removals, 1)
	assert.Equal(t, int64(99_500), f.fake.Removals[0].MinimumA.Int64())

	// The pool tokens needed authorization too.
	require.Len(t, f.fake.ApprovedAmounts, 1)
	assert.Equal(t, int64(100_000), f.fake.ApprovedAmounts[0].Int64())
}

func TestRemoveLiquidityFallbackPath(t *testing.T) {
	f := newFixture(t)
	f.fake.FailRemovalQuote = true

	result, err := f.coord.RemoveLiquidity(context.Background(), big.NewInt(100_000))
	require.NoError(t, err)
	assert.False(t, result.NativePath)
	assert.Equal(t, int64(99_500), result.MinimumA.Int64())
	assert.Equal(t, int64(99_500), result.MinimumB.Int64())
}

func TestRemoveLiquidityInsufficientBalance(t *testing.T) {
	f := newFixture(t)

	_, err := f.coord.RemoveLiquidity(context.Background(), big.NewInt(500_000))
	assert.ErrorIs(t, err, ErrInsufficientBalance)
	assert.Empty(t, f.fake.Removals)
}
