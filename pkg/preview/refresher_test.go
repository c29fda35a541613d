package preview

import (
	"context"
	"math/big"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ammswap/pkg/types"
)

// echoQuote returns a quote whose output mirrors the input, so results can be
// traced back to the request that produced them.
func echoQuote(delayFor func(in *big.Int) time.Duration) QuoteFunc {
	return func(ctx context.Context, d types.Direction, amountIn *big.Int) (*types.SwapQuote, error) {
		if delayFor != nil {
			select {
			case <-time.After(delayFor(amountIn)):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}
		return &types.SwapQuote{
			InputAmount:  new(big.Int).Set(amountIn),
			OutputAmount: new(big.Int).Set(amountIn),
		}, nil
	}
}

func collect() (func(Result), chan Result) {
	ch := make(chan Result, 16)
	return func(r Result) { ch <- r }, ch
}

func TestDebouncedSingleRequest(t *testing.T) {
	var calls atomic.Int64
	fn := func(ctx context.Context, d types.Direction, amountIn *big.Int) (*types.SwapQuote, error) {
		calls.Add(1)
		return &types.SwapQuote{OutputAmount: new(big.Int).Set(amountIn)}, nil
	}
	onUpdate, updates := collect()

	r := New(fn, onUpdate, WithDebounce(50*time.Millisecond))
	r.Start()
	defer r.Stop()

	// Rapid edits within the debounce window collapse into one request.
	for i := 1; i <= 5; i++ {
		r.SetInput(types.TokenAToB, big.NewInt(int64(i)))
		time.Sleep(5 * time.Millisecond)
	}

	res := <-updates
	require.NoError(t, res.Err)
	assert.Equal(t, int64(5), res.Quote.OutputAmount.Int64())
	assert.Equal(t, int64(1), calls.Load())
}

func TestStaleResultDiscarded(t *testing.T) {
	// The first request is slow, the second fast: the slow result returns
	// last and must not overwrite the newer one.
	fn := echoQuote(func(in *big.Int) time.Duration {
		if in.Int64() == 1 {
			return 200 * time.Millisecond
		}
		return 0
	})
	onUpdate, updates := collect()

	r := New(fn, onUpdate, WithDebounce(10*time.Millisecond))
	r.Start()
	defer r.Stop()

	r.SetInput(types.TokenAToB, big.NewInt(1))
	time.Sleep(30 * time.Millisecond) // request 1 is now in flight
	r.SetInput(types.TokenAToB, big.NewInt(2))

	res := <-updates
	require.NoError(t, res.Err)
	assert.Equal(t, int64(2), res.Quote.OutputAmount.Int64())

	// Give the slow request time to come back; nothing else may arrive.
	select {
	case extra := <-updates:
		t.Fatalf("stale result delivered: %+v", extra)
	case <-time.After(300 * time.Millisecond):
	}
	assert.Equal(t, StateReady, r.State())
}

func TestPeriodicRefreshWhileReady(t *testing.T) {
	fn := echoQuote(nil)
	onUpdate, updates := collect()

	r := New(fn, onUpdate,
		WithDebounce(5*time.Millisecond),
		WithRefreshInterval(30*time.Millisecond))
	r.Start()
	defer r.Stop()

	r.SetInput(types.TokenAToB, big.NewInt(7))

	first := <-updates
	require.NoError(t, first.Err)

	// The monitor re-quotes on its own while the preview stays Ready.
	select {
	case second := <-updates:
		require.NoError(t, second.Err)
		assert.Greater(t, second.Generation, first.Generation)
	case <-time.After(500 * time.Millisecond):
		t.Fatal("no periodic refresh arrived")
	}
}

func TestSuspendBlocksRefresh(t *testing.T) {
	fn := echoQuote(nil)
	onUpdate, updates := collect()

	r := New(fn, onUpdate, WithDebounce(10*time.Millisecond))
	r.Start()
	defer r.Stop()

	r.Suspend()
	r.SetInput(types.TokenAToB, big.NewInt(3))

	select {
	case res := <-updates:
		t.Fatalf("quote issued while suspended: %+v", res)
	case <-time.After(60 * time.Millisecond):
	}

	// Resume replays the pending input.
	r.Resume()
	res := <-updates
	require.NoError(t, res.Err)
	assert.Equal(t, int64(3), res.Quote.OutputAmount.Int64())
}

func TestClearDiscardsInFlight(t *testing.T) {
	fn := echoQuote(func(*big.Int) time.Duration { return 100 * time.Millisecond })
	onUpdate, updates := collect()

	r := New(fn, onUpdate, WithDebounce(5*time.Millisecond))
	r.Start()
	defer r.Stop()

	r.SetInput(types.TokenAToB, big.NewInt(9))
	time.Sleep(30 * time.Millisecond) // in flight
	r.Clear()

	select {
	case res := <-updates:
		t.Fatalf("result delivered after Clear: %+v", res)
	case <-time.After(200 * time.Millisecond):
	}
	assert.Equal(t, StateIdle, r.State())
}

func TestStateTransitions(t *testing.T) {
	fn := echoQuote(nil)
	r := New(fn, nil, WithDebounce(20*time.Millisecond))
	r.Start()
	defer r.Stop()

	assert.Equal(t, StateIdle, r.State())
	r.SetInput(types.TokenAToB, big.NewInt(1))
	assert.Equal(t, StateDebouncing, r.State())

	require.Eventually(t, func() bool { return r.State() == StateReady },
		time.Second, 5*time.Millisecond)
}
