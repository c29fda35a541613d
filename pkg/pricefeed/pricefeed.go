// Package pricefeed supplies the reference price used when the pool has no
// liquidity of its own. Prices are 1e18-scaled: units of output token per one
// unit of input token, both on an 18-decimal basis.
package pricefeed

import (
	"context"
	"errors"
	"math/big"

	"ammswap/pkg/types"
)

// ErrNoReferencePrice indicates no reference source could produce a price.
var ErrNoReferencePrice = errors.New("no reference price available")

// Source produces a reference price for a swap direction.
type Source interface {
	ReferencePrice(ctx context.Context, d types.Direction) (*big.Int, error)
}

// Static returns a fixed price regardless of direction; used in tests and as
// a configured override.
type Static struct {
	Price *big.Int // 1e18-scaled, direction TokenAToB
}

// ReferencePrice returns the configured price, inverted for the reverse
// direction.
func (s Static) ReferencePrice(_ context.Context, d types.Direction) (*big.Int, error) {
	if s.Price == nil || s.Price.Sign() <= 0 {
		return nil, ErrNoReferencePrice
	}
	if d == types.TokenAToB {
		return new(big.Int).Set(s.Price), nil
	}
	one36 := new(big.Int).Exp(big.NewInt(10), big.NewInt(36), nil)
	return new(big.Int).Quo(one36, s.Price), nil
}
