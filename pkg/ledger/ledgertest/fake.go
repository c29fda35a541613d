// Package ledgertest provides an in-memory ledger fake mirroring the
// router's constant-product arithmetic, for exercising the engine without an
// RPC endpoint.
package ledgertest

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"

	"ammswap/pkg/ledger"
	"ammswap/pkg/types"
)

// Fake implements ledger.Reader and ledger.Writer over in-memory state.
// Zero-value fields use sensible defaults; knobs force specific failures.
type Fake struct {
	mu sync.Mutex

	ReserveA  *big.Int
	ReserveB  *big.Int
	LPSupply  *big.Int
	DecimalsA uint8
	DecimalsB uint8
	FeeBps    int64

	Balances   map[common.Address]map[common.Address]*big.Int // token -> owner -> balance
	Allowances map[common.Address]map[common.Address]*big.Int // token -> owner -> allowance
	LPBalances map[common.Address]*big.Int

	TokenA common.Address
	TokenB common.Address

	Chain       *big.Int
	GasPriceWei *big.Int

	// Failure knobs.
	FailSwapQuote    bool   // native quote path errors, forcing client fallback
	FailRemovalQuote bool
	RejectSigning    bool   // every write returns ledger.ErrUserRejected
	RevertReason     string // confirmed writes fail with this revert reason
	FailApproveWait  bool

	// ApprovedAmounts records every approval submitted, in order.
	ApprovedAmounts []*big.Int
	SwapsSubmitted  []ledger.SwapParams
	Removals        []ledger.RemovalParams
}

// New returns a fake with the given reserves (both 18 decimals) and fee.
func New(reserveA, reserveB int64, feeBps int64) *Fake {
	return &Fake{
		ReserveA:    big.NewInt(reserveA),
		ReserveB:    big.NewInt(reserveB),
		LPSupply:    big.NewInt(1_000_000),
		DecimalsA:   18,
		DecimalsB:   18,
		FeeBps:      feeBps,
		Balances:    make(map[common.Address]map[common.Address]*big.Int),
		Allowances:  make(map[common.Address]map[common.Address]*big.Int),
		LPBalances:  make(map[common.Address]*big.Int),
		TokenA:      common.HexToAddress("0xaaaa"),
		TokenB:      common.HexToAddress("0xbbbb"),
		Chain:       big.NewInt(1),
		GasPriceWei: big.NewInt(20_000_000_000),
	}
}

// SetBalance sets an owner's balance for a token.
func (f *Fake) SetBalance(token, owner common.Address, v *big.Int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Balances[token] == nil {
		f.Balances[token] = make(map[common.Address]*big.Int)
	}
	f.Balances[token][owner] = new(big.Int).Set(v)
}

// SetAllowance sets an owner's allowance for a token.
func (f *Fake) SetAllowance(token, owner common.Address, v *big.Int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Allowances[token] == nil {
		f.Allowances[token] = make(map[common.Address]*big.Int)
	}
	f.Allowances[token][owner] = new(big.Int).Set(v)
}

func (f *Fake) ChainID(ctx context.Context) (*big.Int, error) {
	return new(big.Int).Set(f.Chain), nil
}

func (f *Fake) PoolState(ctx context.Context) (*types.PoolState, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return &types.PoolState{
		ReserveA:  new(big.Int).Set(f.ReserveA),
		ReserveB:  new(big.Int).Set(f.ReserveB),
		LPSupply:  new(big.Int).Set(f.LPSupply),
		DecimalsA: f.DecimalsA,
		DecimalsB: f.DecimalsB,
	}, nil
}

func (f *Fake) Token(ctx context.Context, owner, spender, token common.Address) (*types.TokenInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	symbol, decimals := "TKA", f.DecimalsA
	if token == f.TokenB {
		symbol, decimals = "TKB", f.DecimalsB
	}
	balance := big.NewInt(0)
	if m := f.Balances[token]; m != nil && m[owner] != nil {
		balance = new(big.Int).Set(m[owner])
	}
	allowance := big.NewInt(0)
	if m := f.Allowances[token]; m != nil && m[owner] != nil {
		allowance = new(big.Int).Set(m[owner])
	}
	return &types.TokenInfo{
		Address:   token,
		Symbol:    symbol,
		Decimals:  decimals,
		Balance:   balance,
		Allowance: allowance,
	}, nil
}

// SwapQuote mirrors the router view function: fee off the input, then
// constant-product output.
func (f *Fake) SwapQuote(ctx context.Context, amountIn *big.Int, d types.Direction) (*big.Int, error) {
	if f.FailSwapQuote {
		return nil, errors.New("getAmountOut: view call failed")
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	out, err := f.amountOut(amountIn, d)
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (f *Fake) RemovalQuote(ctx context.Context, lpAmount *big.Int) (*big.Int, *big.Int, error) {
	if f.FailRemovalQuote {
		return nil, nil, errors.New("getRemovalAmounts: view call failed")
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.LPSupply.Sign() == 0 {
		return nil, nil, errors.New("no liquidity")
	}
	a := new(big.Int).Mul(lpAmount, f.ReserveA)
	a.Quo(a, f.LPSupply)
	b := new(big.Int).Mul(lpAmount, f.ReserveB)
	b.Quo(b, f.LPSupply)
	return a, b, nil
}

func (f *Fake) GasPrice(ctx context.Context) (*big.Int, error) {
	return new(big.Int).Set(f.GasPriceWei), nil
}

func (f *Fake) LPBalance(ctx context.Context, owner common.Address) (*big.Int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if v := f.LPBalances[owner]; v != nil {
		return new(big.Int).Set(v), nil
	}
	return big.NewInt(0), nil
}

func (f *Fake) Approve(ctx context.Context, token, spender common.Address, v *big.Int) (ledger.PendingTx, error) {
	if f.RejectSigning {
		return nil, ledger.ErrUserRejected
	}
	f.mu.Lock()
	f.ApprovedAmounts = append(f.ApprovedAmounts, new(big.Int).Set(v))
	f.mu.Unlock()
	return &fakeTx{
		hash: fmt.Sprintf("0xapprove%d", len(f.ApprovedAmounts)),
		wait: func(context.Context) error {
			if f.FailApproveWait {
				return errors.New("approval transaction reverted")
			}
			f.SetAllowance(token, f.owner(), v)
			return nil
		},
	}, nil
}

func (f *Fake) Swap(ctx context.Context, p ledger.SwapParams) (ledger.PendingTx, error) {
	if f.RejectSigning {
		return nil, ledger.ErrUserRejected
	}
	f.mu.Lock()
	f.SwapsSubmitted = append(f.SwapsSubmitted, p)
	n := len(f.SwapsSubmitted)
	f.mu.Unlock()
	return &fakeTx{
		hash: fmt.Sprintf("0xswap%d", n),
		wait: func(context.Context) error {
			if f.RevertReason != "" {
				return &ledger.RevertError{Reason: f.RevertReason}
			}
			return f.applySwap(p)
		},
	}, nil
}

func (f *Fake) RemoveLiquidity(ctx context.Context, p ledger.RemovalParams) (ledger.PendingTx, error) {
	if f.RejectSigning {
		return nil, ledger.ErrUserRejected
	}
	f.mu.Lock()
	f.Removals = append(f.Removals, p)
	n := len(f.Removals)
	f.mu.Unlock()
	return &fakeTx{
		hash: fmt.Sprintf("0xremove%d", n),
		wait: func(context.Context) error {
			if f.RevertReason != "" {
				return &ledger.RevertError{Reason: f.RevertReason}
			}
			return nil
		},
	}, nil
}

// applySwap enforces the minimum-output guarantee the way the ledger would.
func (f *Fake) applySwap(p ledger.SwapParams) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	out, err := f.amountOut(p.AmountIn, p.Direction)
	if err != nil {
		return err
	}
	if p.MinimumOut != nil && out.Cmp(p.MinimumOut) < 0 {
		return &ledger.RevertError{Reason: "INSUFFICIENT_OUTPUT_AMOUNT"}
	}
	rIn, _ := f.reserves(p.Direction)
	rIn.Add(rIn, p.AmountIn)
	_, rOut := f.reserves(p.Direction)
	rOut.Sub(rOut, out)
	return nil
}

func (f *Fake) amountOut(amountIn *big.Int, d types.Direction) (*big.Int, error) {
	if amountIn == nil || amountIn.Sign() <= 0 {
		return nil, errors.New("amount in must be greater than zero")
	}
	rIn, rOut := f.reserves(d)
	if rIn.Sign() == 0 || rOut.Sign() == 0 {
		return nil, errors.New("empty reserves")
	}
	fee := new(big.Int).Mul(amountIn, big.NewInt(f.FeeBps))
	fee.Quo(fee, big.NewInt(10000))
	netIn := new(big.Int).Sub(amountIn, fee)

	num := new(big.Int).Mul(netIn, rOut)
	den := new(big.Int).Add(rIn, netIn)
	return num.Quo(num, den), nil
}

func (f *Fake) reserves(d types.Direction) (rIn, rOut *big.Int) {
	if d == types.TokenAToB {
		return f.ReserveA, f.ReserveB
	}
	return f.ReserveB, f.ReserveA
}

// Owner is the single account the fake tracks state for.
var Owner = common.HexToAddress("0x1")

func (f *Fake) owner() common.Address { return Owner }

type fakeTx struct {
	hash string
	wait func(ctx context.Context) error
}

func (t *fakeTx) Hash() string                 { return t.hash }
func (t *fakeTx) Wait(ctx context.Context) error { return t.wait(ctx) }
