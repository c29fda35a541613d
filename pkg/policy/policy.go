// Package policy derives MEV-protection parameters attached to execution
// requests: a gas-price ceiling, priority fee, transaction deadline, and
// advisory reordering-guard flags. The flags are request metadata consumed by
// the downstream relay or ledger; nothing in this client enforces them.
package policy

import (
	"math/big"
	"time"
)

// relaxedDeadline is used when protection is disabled: the transaction stays
// valid long enough that the deadline never interferes with inclusion.
const relaxedDeadline = 24 * time.Hour

// Config holds the user's MEV-protection settings.
type Config struct {
	Enabled         bool
	MaxGasPrice     *big.Int // wei; nil means derive from current gas price
	PriorityFee     *big.Int // wei; nil means none
	DeadlineMinutes int
	UsePrivateRelay bool
	FrontrunGuard   bool
	SandwichGuard   bool
	FlashloanGuard  bool
}

// Params is the resolved set of execution parameters for one request.
// MaxGasPrice and PriorityFee are nil when protection is disabled.
type Params struct {
	MaxGasPrice     *big.Int
	PriorityFee     *big.Int
	Deadline        *big.Int // unix seconds
	UsePrivateRelay bool
	FrontrunGuard   bool
	SandwichGuard   bool
	FlashloanGuard  bool
}

// Recommend returns the suggested gas-price ceiling for the observed network
// gas price: 1.5x, computed in integer arithmetic.
func Recommend(currentGasPrice *big.Int) *big.Int {
	if currentGasPrice == nil {
		return nil
	}
	r := new(big.Int).Mul(currentGasPrice, big.NewInt(3))
	return r.Quo(r, big.NewInt(2))
}

// Params resolves the config into request parameters. currentGasPrice is the
// network-observed gas price used to derive a ceiling when none is set.
// With protection disabled the request carries no gas ceiling and a relaxed
// deadline; the caller is expected to surface that exposure to the user.
func (c Config) Params(now time.Time, currentGasPrice *big.Int) Params {
	if !c.Enabled {
		return Params{
			Deadline: big.NewInt(now.Add(relaxedDeadline).Unix()),
		}
	}

	maxGas := c.MaxGasPrice
	if maxGas == nil {
		maxGas = Recommend(currentGasPrice)
	}

	minutes := c.DeadlineMinutes
	if minutes <= 0 {
		minutes = 20
	}

	return Params{
		MaxGasPrice:     maxGas,
		PriorityFee:     c.PriorityFee,
		Deadline:        big.NewInt(now.Add(time.Duration(minutes) * time.Minute).Unix()),
		UsePrivateRelay: c.UsePrivateRelay,
		FrontrunGuard:   c.FrontrunGuard,
		SandwichGuard:   c.SandwichGuard,
		FlashloanGuard:  c.FlashloanGuard,
	}
}
