// Package execution sequences approval, submission and confirmation for
// swaps and liquidity removals. Expected output comes from the ledger-native
// calculation path when available, falling back to the client-side engine
// with the same tolerance configuration, so the minimum-output guarantee is
// identical on either path.
package execution

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"ammswap/pkg/approval"
	"ammswap/pkg/ledger"
	"ammswap/pkg/policy"
	"ammswap/pkg/preview"
	"ammswap/pkg/quote"
	"ammswap/pkg/session"
	"ammswap/pkg/slippage"
	"ammswap/pkg/types"
)

// State is the execution lifecycle state.
type State int

const (
	StateIdle State = iota
	StateApproving
	StateSubmitting
	StateConfirming
	StateConfirmed
	StateFailed
	StateCancelled
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateApproving:
		return "approving"
	case StateSubmitting:
		return "submitting"
	case StateConfirming:
		return "confirming"
	case StateConfirmed:
		return "confirmed"
	case StateFailed:
		return "failed"
	case StateCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// Coordinator executes swaps and removals for one session.
type Coordinator struct {
	ledger    ledger.Ledger
	engine    *quote.Engine
	approvals *approval.Coordinator
	session   *session.Session
	slip      *slippage.Config
	pol       policy.Config

	tokenA  common.Address
	tokenB  common.Address
	lpToken common.Address

	thinBelow     *big.Int
	moderateBelow *big.Int

	logger *slog.Logger

	mu       sync.Mutex
	inFlight bool
	state    State

	preview *preview.Refresher // optional; suspended during execution
}

// Config wires a Coordinator.
type Config struct {
	Ledger        ledger.Ledger
	Engine        *quote.Engine
	Approvals     *approval.Coordinator
	Session       *session.Session
	Slippage      *slippage.Config
	Policy        policy.Config
	TokenA        common.Address
	TokenB        common.Address
	LPToken       common.Address
	ThinBelow     *big.Int
	ModerateBelow *big.Int
	Logger        *slog.Logger
}

// New creates a coordinator.
func New(cfg Config) *Coordinator {
	return &Coordinator{
		ledger:        cfg.Ledger,
		engine:        cfg.Engine,
		approvals:     cfg.Approvals,
		session:       cfg.Session,
		slip:          cfg.Slippage,
		pol:           cfg.Policy,
		tokenA:        cfg.TokenA,
		tokenB:        cfg.TokenB,
		lpToken:       cfg.LPToken,
		thinBelow:     cfg.ThinBelow,
		moderateBelow: cfg.ModerateBelow,
		logger:        cfg.Logger,
	}
}

// AttachPreview registers the preview refresher to suspend during executions
// and invalidate on success.
func (c *Coordinator) AttachPreview(p *preview.Refresher) {
	c.mu.Lock()
	c.preview = p
	c.mu.Unlock()
}

// State returns the state of the most recent execution.
func (c *Coordinator) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// SwapResult reports a confirmed or prepared swap execution.
type SwapResult struct {
	TxHash     string
	Expected   *big.Int
	MinimumOut *big.Int
	Tolerance  float64
	NativePath bool // expected output came from the ledger view call
}

// Swap executes a swap of amountIn in the given direction.
func (c *Coordinator) Swap(ctx context.Context, d types.Direction, amountIn *big.Int) (*SwapResult, error) {
	if err := c.begin(); err != nil {
		return nil, err
	}
	defer c.end()

	if err := c.session.RequireChain(ctx); err != nil {
		return nil, c.fail(err)
	}

	pool, err := c.ledger.PoolState(ctx)
	if err != nil {
		return nil, c.fail(fmt.Errorf("failed to read pool state: %w", err))
	}

	inputToken := c.tokenA
	if d == types.TokenBToA {
		inputToken = c.tokenB
	}
	info, err := c.session.Token(ctx, inputToken)
	if err != nil {
		return nil, c.fail(fmt.Errorf("failed to read balance: %w", err))
	}
	if amountIn == nil || amountIn.Sign() <= 0 {
		return nil, c.fail(quote.ErrInvalidAmount)
	}
	if info.Balance == nil || info.Balance.Cmp(amountIn) < 0 {
		return nil, c.fail(ErrInsufficientBalance)
	}

	tol, err := c.resolveTolerance(pool, d, amountIn)
	if err != nil {
		return nil, c.fail(err)
	}

	expected, nativePath, err := c.expectedOutput(ctx, pool, d, amountIn)
	if err != nil {
		return nil, c.fail(err)
	}

	min := slippage.MinimumOutput(expected, tol)
	// Shared invariant step: both calculation paths funnel through here.
	if min.Cmp(expected) > 0 {
		return nil, c.fail(fmt.Errorf("minimum output %s exceeds expected %s", min, expected))
	}

	c.setState(StateApproving)
	if err := c.approvals.Ensure(ctx, inputToken, amountIn); err != nil {
		return nil, c.finishApprovalErr(err)
	}

	params, err := c.resolvePolicy(ctx)
	if err != nil {
		return nil, c.fail(err)
	}

	c.setState(StateSubmitting)
	tx, err := c.ledger.Swap(ctx, ledger.SwapParams{
		AmountIn:   amountIn,
		Direction:  d,
		MinimumOut: min,
		Policy:     params,
	})
	if err != nil {
		return nil, c.finishSubmitErr(err)
	}

	c.setState(StateConfirming)
	if err := tx.Wait(ctx); err != nil {
		return nil, c.fail(classifyRevert(err))
	}

	c.confirmSuccess()
	c.logger.Info("swap confirmed",
		"tx", tx.Hash(),
		"expected", expected.String(),
		"min_out", min.String(),
		"native_path", nativePath)

	return &SwapResult{
		TxHash:     tx.Hash(),
		Expected:   expected,
		MinimumOut: min,
		Tolerance:  tol,
		NativePath: nativePath,
	}, nil
}

// RemovalResult reports a confirmed liquidity removal.
type RemovalResult struct {
	TxHash     string
	ExpectedA  *big.Int
	ExpectedB  *big.Int
	MinimumA   *big.Int
	MinimumB   *big.Int
	Tolerance  float64
	NativePath bool
}

// RemoveLiquidity redeems lpAmount of the pooled position, enforcing a
// per-asset minimum derived from the same tolerance configuration on either
// calculation path.
func (c *Coordinator) RemoveLiquidity(ctx context.Context, lpAmount *big.Int) (*RemovalResult, error) {
	if err := c.begin(); err != nil {
		return nil, err
	}
	defer c.end()

	if err := c.session.RequireChain(ctx); err != nil {
		return nil, c.fail(err)
	}

	pool, err := c.ledger.PoolState(ctx)
	if err != nil {
		return nil, c.fail(fmt.Errorf("failed to read pool state: %w", err))
	}

	if lpAmount == nil || lpAmount.Sign() <= 0 {
		return nil, c.fail(quote.ErrInvalidAmount)
	}
	lpBalance, err := c.ledger.LPBalance(ctx, c.session.Account)
	if err != nil {
		return nil, c.fail(fmt.Errorf("failed to read LP balance: %w", err))
	}
	if lpBalance.Cmp(lpAmount) < 0 {
		return nil, c.fail(ErrInsufficientBalance)
	}

	// Share-of-pool stands in for price impact when resolving tolerance.
	clientPreview, err := c.engine.Removal(pool, lpAmount)
	if err != nil {
		return nil, c.fail(err)
	}
	tier := slippage.TierForDepth(quote.PoolDepth(pool, types.TokenAToB), c.thinBelow, c.moderateBelow)
	tol := c.slip.Working(clientPreview.PriceImpact, tier)
	if err := c.slip.CheckCeiling(tol); err != nil {
		return nil, c.fail(err)
	}

	expectedA, expectedB, nativePath := clientPreview.ExpectedA, clientPreview.ExpectedB, false
	if a, b, err := c.ledger.RemovalQuote(ctx, lpAmount); err == nil {
		expectedA, expectedB, nativePath = a, b, true
	} else {
		c.logger.Warn("ledger removal quote failed, using client path", "err", err)
	}

	minA := slippage.MinimumOutput(expectedA, tol)
	minB := slippage.MinimumOutput(expectedB, tol)
	if minA.Cmp(expectedA) > 0 || minB.Cmp(expectedB) > 0 {
		return nil, c.fail(fmt.Errorf("minimum output exceeds expected output"))
	}

	c.setState(StateApproving)
	if err := c.approvals.Ensure(ctx, c.lpToken, lpAmount); err != nil {
		return nil, c.finishApprovalErr(err)
	}

	params, err := c.resolvePolicy(ctx)
	if err != nil {
		return nil, c.fail(err)
	}

	c.setState(StateSubmitting)
	tx, err := c.ledger.RemoveLiquidity(ctx, ledger.RemovalParams{
		LPAmount: lpAmount,
		MinimumA: minA,
		MinimumB: minB,
		Policy:   params,
	})
	if err != nil {
		return nil, c.finishSubmitErr(err)
	}

	c.setState(StateConfirming)
	if err := tx.Wait(ctx); err != nil {
		return nil, c.fail(classifyRevert(err))
	}

	c.confirmSuccess()
	c.logger.Info("liquidity removal confirmed", "tx", tx.Hash(), "native_path", nativePath)

	return &RemovalResult{
		TxHash:     tx.Hash(),
		ExpectedA:  expectedA,
		ExpectedB:  expectedB,
		MinimumA:   minA,
		MinimumB:   minB,
		Tolerance:  tol,
		NativePath: nativePath,
	}, nil
}

// resolveTolerance derives the working tolerance for a swap and checks it
// against the safety ceiling.
func (c *Coordinator) resolveTolerance(pool *types.PoolState, d types.Direction, amountIn *big.Int) (float64, error) {
	impact := c.engine.PriceImpact(pool, d, amountIn)
	tier := slippage.TierForDepth(quote.PoolDepth(pool, d), c.thinBelow, c.moderateBelow)
	tol := c.slip.Working(impact, tier)
	if err := c.slip.CheckCeiling(tol); err != nil {
		return 0, err
	}
	return tol, nil
}

// expectedOutput tries the ledger-native view path first and falls back to
// the client-side engine. This substitution is the only automatic retry the
// engine performs; both paths feed the same minimum-output step.
func (c *Coordinator) expectedOutput(ctx context.Context, pool *types.PoolState, d types.Direction, amountIn *big.Int) (*big.Int, bool, error) {
	expected, err := c.ledger.SwapQuote(ctx, amountIn, d)
	if err == nil && expected != nil && expected.Sign() >= 0 {
		return expected, true, nil
	}
	c.logger.Warn("ledger swap quote failed, using client path", "err", err)

	q, err := c.engine.Swap(ctx, pool, d, amountIn)
	if err != nil {
		return nil, false, err
	}
	return q.OutputAmount, false, nil
}

// resolvePolicy reads the current gas price and resolves the execution
// parameters from the MEV-protection config.
func (c *Coordinator) resolvePolicy(ctx context.Context) (policy.Params, error) {
	gas, err := c.ledger.GasPrice(ctx)
	if err != nil {
		return policy.Params{}, fmt.Errorf("failed to read gas price: %w", err)
	}
	params := c.pol.Params(time.Now(), gas)
	if !c.pol.Enabled {
		c.logger.Warn("MEV protection disabled: executing with no gas ceiling and a relaxed deadline")
	}
	return params, nil
}

func (c *Coordinator) begin() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.inFlight {
		return ErrExecutionInFlight
	}
	c.inFlight = true
	c.state = StateIdle
	if c.preview != nil {
		c.preview.Suspend()
	}
	return nil
}

func (c *Coordinator) end() {
	c.mu.Lock()
	p := c.preview
	c.inFlight = false
	c.mu.Unlock()
	if p != nil {
		p.Resume()
	}
}

func (c *Coordinator) setState(s State) {
	c.mu.Lock()
	c.state = s
	c.mu.Unlock()
}

func (c *Coordinator) fail(err error) error {
	c.setState(StateFailed)
	return err
}

// finishApprovalErr maps a signer decline during approval to Cancelled and
// anything else to Failed.
func (c *Coordinator) finishApprovalErr(err error) error {
	if errors.Is(err, ledger.ErrUserRejected) {
		c.setState(StateCancelled)
		return fmt.Errorf("%w: %v", ErrCancelled, err)
	}
	c.setState(StateFailed)
	return err
}

func (c *Coordinator) finishSubmitErr(err error) error {
	if errors.Is(err, ledger.ErrUserRejected) {
		c.setState(StateCancelled)
		return fmt.Errorf("%w: %v", ErrCancelled, err)
	}
	c.setState(StateFailed)
	return fmt.Errorf("submission failed: %w", err)
}

// confirmSuccess invalidates dependent state after a confirmed execution.
func (c *Coordinator) confirmSuccess() {
	c.setState(StateConfirmed)
	c.session.Invalidate(c.tokenA)
	c.session.Invalidate(c.tokenB)
	c.session.Invalidate(c.lpToken)
	c.mu.Lock()
	p := c.preview
	c.mu.Unlock()
	if p != nil {
		p.Clear()
	}
}

// classifyRevert maps ledger revert reasons onto the engine's error
// taxonomy so the caller can name the remedy.
func classifyRevert(err error) error {
	rev, ok := ledger.AsRevert(err)
	if !ok {
		return fmt.Errorf("confirmation failed: %w", err)
	}
	reason := strings.ToUpper(rev.Reason)
	switch {
	case strings.Contains(reason, "EXPIRED") || strings.Contains(reason, "DEADLINE"):
		return fmt.Errorf("%w: %v", ErrDeadlineExpired, err)
	case strings.Contains(reason, "INSUFFICIENT"):
		return fmt.Errorf("%w: %v", ErrSlippageExceeded, err)
	default:
		return fmt.Errorf("execution failed: %w", err)
	}
}
