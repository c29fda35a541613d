package session

import (
	"context"
	"errors"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ammswap/pkg/ledger/ledgertest"
)

var spender = common.HexToAddress("0x2")

func TestRequireChain(t *testing.T) {
	fake := ledgertest.New(1_000_000, 1_000_000, 30)

	s := New(ledgertest.Owner, big.NewInt(1), spender, fake)
	require.NoError(t, s.RequireChain(context.Background()))

	s = New(ledgertest.Owner, big.NewInt(5), spender, fake)
	err := s.RequireChain(context.Background())
	var mismatch *ChainMismatchError
	require.True(t, errors.As(err, &mismatch))
	assert.Equal(t, int64(5), mismatch.Want.Int64())
	assert.Equal(t, int64(1), mismatch.Got.Int64())
}

func TestTokenCached(t *testing.T) {
	fake := ledgertest.New(1_000_000, 1_000_000, 30)
	fake.SetBalance(fake.TokenA, ledgertest.Owner, big.NewInt(100))

	s := New(ledgertest.Owner, big.NewInt(1), spender, fake)
	info, err := s.Token(context.Background(), fake.TokenA)
	require.NoError(t, err)
	assert.Equal(t, int64(100), info.Balance.Int64())

	// A ledger-side change is not visible until the cache is invalidated.
	fake.SetBalance(fake.TokenA, ledgertest.Owner, big.NewInt(900))
	info, err = s.Token(context.Background(), fake.TokenA)
	require.NoError(t, err)
	assert.Equal(t, int64(100), info.Balance.Int64())

	s.Invalidate(fake.TokenA)
	info, err = s.Token(context.Background(), fake.TokenA)
	require.NoError(t, err)
	assert.Equal(t, int64(900), info.Balance.Int64())
}

func TestInvalidateAll(t *testing.T) {
	fake := ledgertest.New(1_000_000, 1_000_000, 30)
	fake.SetBalance(fake.TokenA, ledgertest.Owner, big.NewInt(1))
	fake.SetBalance(fake.TokenB, ledgertest.Owner, big.NewInt(2))

	s := New(ledgertest.Owner, big.NewInt(1), spender, fake)
	_, err := s.Token(context.Background(), fake.TokenA)
	require.NoError(t, err)
	_, err = s.Token(context.Background(), fake.TokenB)
	require.NoError(t, err)

	fake.SetBalance(fake.TokenA, ledgertest.Owner, big.NewInt(10))
	fake.SetBalance(fake.TokenB, ledgertest.Owner, big.NewInt(20))
	s.InvalidateAll()

	infoA, err := s.Token(context.Background(), fake.TokenA)
	require.NoError(t, err)
	infoB, err := s.Token(context.Background(), fake.TokenB)
	require.NoError(t, err)
	assert.Equal(t, int64(10), infoA.Balance.Int64())
	assert.Equal(t, int64(20), infoB.Balance.Int64())
}
