package pricefeed

import (
	"context"
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ammswap/pkg/types"
)

func TestStaticPrice(t *testing.T) {
	two := new(big.Int).Mul(big.NewInt(2), new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil))
	s := Static{Price: two}

	p, err := s.ReferencePrice(context.Background(), types.TokenAToB)
	require.NoError(t, err)
	assert.Equal(t, two.String(), p.String())

	// The reverse direction is the inverse: 0.5 at 1e18 scale.
	inv, err := s.ReferencePrice(context.Background(), types.TokenBToA)
	require.NoError(t, err)
	assert.Equal(t, "500000000000000000", inv.String())
}

func TestStaticNoPrice(t *testing.T) {
	_, err := Static{}.ReferencePrice(context.Background(), types.TokenAToB)
	assert.ErrorIs(t, err, ErrNoReferencePrice)
}
