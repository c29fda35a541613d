// Package preview drives the quote preview lifecycle: debounced re-quoting
// on input changes, periodic refresh while a preview is displayed, and
// discarding of stale in-flight results via a generation counter.
package preview

import (
	"context"
	"math/big"
	"sync"
	"time"

	"ammswap/pkg/types"
)

const (
	DefaultDebounce        = 500 * time.Millisecond
	DefaultRefreshInterval = 30 * time.Second
	DefaultQuoteTimeout    = 10 * time.Second
)

// State is the preview lifecycle state.
type State int

const (
	StateIdle State = iota
	StateDebouncing
	StateQuoting
	StateReady
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateDebouncing:
		return "debouncing"
	case StateQuoting:
		return "quoting"
	case StateReady:
		return "ready"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Result is delivered to the update callback for each completed quote
// attempt. Only results of the latest generation are delivered.
type Result struct {
	Quote      *types.SwapQuote
	Err        error
	Generation uint64
}

// QuoteFunc issues one quote request. It must honor the context deadline.
type QuoteFunc func(ctx context.Context, d types.Direction, amountIn *big.Int) (*types.SwapQuote, error)

// Option configures a Refresher.
type Option func(*Refresher)

// WithDebounce overrides the input debounce window.
func WithDebounce(d time.Duration) Option { return func(r *Refresher) { r.debounce = d } }

// WithRefreshInterval overrides the periodic refresh interval.
func WithRefreshInterval(d time.Duration) Option { return func(r *Refresher) { r.refreshEvery = d } }

// WithQuoteTimeout overrides the per-request time budget.
func WithQuoteTimeout(d time.Duration) Option { return func(r *Refresher) { r.quoteTimeout = d } }

// Refresher owns one active preview. Input changes restart the debounce
// timer; only the most recent generation's result is ever applied, so a slow
// stale request can never overwrite a newer one. While Ready, a periodic
// timer re-quotes; it is suspended for the duration of an execution.
type Refresher struct {
	quoteFn  QuoteFunc
	onUpdate func(Result)

	debounce     time.Duration
	refreshEvery time.Duration
	quoteTimeout time.Duration

	mu            sync.Mutex
	state         State
	generation    uint64
	direction     types.Direction
	input         *big.Int
	debounceTimer *time.Timer
	suspended     bool
	running       bool

	stopChan  chan struct{}
	resetChan chan struct{}
}

// New creates a refresher. onUpdate is invoked (outside the lock) for every
// applied result; it may be nil.
func New(quoteFn QuoteFunc, onUpdate func(Result), opts ...Option) *Refresher {
	r := &Refresher{
		quoteFn:      quoteFn,
		onUpdate:     onUpdate,
		debounce:     DefaultDebounce,
		refreshEvery: DefaultRefreshInterval,
		quoteTimeout: DefaultQuoteTimeout,
		stopChan:     make(chan struct{}),
		resetChan:    make(chan struct{}, 1),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Start launches the periodic refresh monitor.
func (r *Refresher) Start() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.running {
		return
	}
	r.running = true
	go r.monitor()
}

// Stop halts the monitor and discards any in-flight result.
func (r *Refresher) Stop() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.running {
		return
	}
	r.running = false
	r.generation++
	if r.debounceTimer != nil {
		r.debounceTimer.Stop()
	}
	close(r.stopChan)
}

// SetInput registers a new input amount, restarting the debounce window. The
// previous quote, if any, stays displayed until superseded.
func (r *Refresher) SetInput(d types.Direction, amountIn *big.Int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.direction = d
	r.input = new(big.Int).Set(amountIn)
	r.state = StateDebouncing
	if r.debounceTimer != nil {
		r.debounceTimer.Stop()
	}
	r.debounceTimer = time.AfterFunc(r.debounce, r.fire)
}

// Clear abandons the active preview at no cost; any in-flight result is
// discarded.
func (r *Refresher) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.input = nil
	r.state = StateIdle
	r.generation++
	if r.debounceTimer != nil {
		r.debounceTimer.Stop()
	}
}

// Suspend pauses refreshing while an execution is in flight.
func (r *Refresher) Suspend() {
	r.mu.Lock()
	r.suspended = true
	r.mu.Unlock()
}

// Resume re-enables refreshing and resets the periodic timer. A debounce
// that fired while suspended is replayed.
func (r *Refresher) Resume() {
	r.mu.Lock()
	r.suspended = false
	replay := r.state == StateDebouncing && r.input != nil
	if replay {
		if r.debounceTimer != nil {
			r.debounceTimer.Stop()
		}
		r.debounceTimer = time.AfterFunc(r.debounce, r.fire)
	}
	r.mu.Unlock()

	select {
	case r.resetChan <- struct{}{}:
	default:
	}
}

// State returns the current lifecycle state.
func (r *Refresher) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// fire runs when the debounce window elapses: it claims the next generation
// and issues the quote request.
func (r *Refresher) fire() {
	r.mu.Lock()
	if r.input == nil || r.suspended {
		r.mu.Unlock()
		return
	}
	r.generation++
	gen := r.generation
	d := r.direction
	in := new(big.Int).Set(r.input)
	r.state = StateQuoting
	r.mu.Unlock()

	go r.issue(gen, d, in)
}

func (r *Refresher) issue(gen uint64, d types.Direction, in *big.Int) {
	ctx, cancel := context.WithTimeout(context.Background(), r.quoteTimeout)
	defer cancel()

	q, err := r.quoteFn(ctx, d, in)

	r.mu.Lock()
	if gen != r.generation {
		// A newer request started; this result is stale.
		r.mu.Unlock()
		return
	}
	if err != nil {
		r.state = StateFailed
	} else {
		r.state = StateReady
	}
	cb := r.onUpdate
	r.mu.Unlock()

	if cb != nil {
		cb(Result{Quote: q, Err: err, Generation: gen})
	}
}

// monitor periodically re-quotes while the preview is Ready and not
// suspended.
func (r *Refresher) monitor() {
	ticker := time.NewTicker(r.refreshEvery)
	defer ticker.Stop()

	for {
		select {
		case <-r.stopChan:
			return
		case <-r.resetChan:
			ticker.Reset(r.refreshEvery)
		case <-ticker.C:
			r.mu.Lock()
			ok := r.state == StateReady && !r.suspended && r.input != nil
			var (
				gen uint64
				d   types.Direction
				in  *big.Int
			)
			if ok {
				r.generation++
				gen = r.generation
				d = r.direction
				in = new(big.Int).Set(r.input)
				r.state = StateQuoting
			}
			r.mu.Unlock()
			if ok {
				go r.issue(gen, d, in)
			}
		}
	}
}
