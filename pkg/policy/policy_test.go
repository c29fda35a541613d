package policy

import (
	"math/big"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecommend(t *testing.T) {
	assert.Equal(t, int64(150), Recommend(big.NewInt(100)).Int64())
	// Integer arithmetic, truncated.
	assert.Equal(t, int64(151), Recommend(big.NewInt(101)).Int64())
	assert.Nil(t, Recommend(nil))
}

func TestParamsEnabledDerivesCeiling(t *testing.T) {
	c := Config{Enabled: true, DeadlineMinutes: 20}
	now := time.Unix(1_700_000_000, 0)

	p := c.Params(now, big.NewInt(20_000_000_000))
	require.NotNil(t, p.MaxGasPrice)
	assert.Equal(t, int64(30_000_000_000), p.MaxGasPrice.Int64())
	assert.Equal(t, now.Add(20*time.Minute).Unix(), p.Deadline.Int64())
}

func TestParamsExplicitCeilingWins(t *testing.T) {
	c := Config{Enabled: true, MaxGasPrice: big.NewInt(42)}
	p := c.Params(time.Now(), big.NewInt(1_000_000))
	assert.Equal(t, int64(42), p.MaxGasPrice.Int64())
}

func TestParamsDefaultDeadline(t *testing.T) {
	c := Config{Enabled: true}
	now := time.Unix(1_700_000_000, 0)
	p := c.Params(now, big.NewInt(100))
	assert.Equal(t, now.Add(20*time.Minute).Unix(), p.Deadline.Int64())
}

func TestParamsDisabled(t *testing.T) {
	c := Config{Enabled: false, MaxGasPrice: big.NewInt(42), FrontrunGuard: true}
	now := time.Unix(1_700_000_000, 0)

	p := c.Params(now, big.NewInt(100))
	assert.Nil(t, p.MaxGasPrice)
	assert.Nil(t, p.PriorityFee)
	assert.False(t, p.FrontrunGuard)
	assert.Equal(t, now.Add(24*time.Hour).Unix(), p.Deadline.Int64())
}

func TestParamsGuardFlagsPassThrough(t *testing.T) {
	c := Config{
		Enabled:         true,
		UsePrivateRelay: true,
		FrontrunGuard:   true,
		SandwichGuard:   true,
		FlashloanGuard:  true,
	}
	p := c.Params(time.Now(), big.NewInt(100))
	assert.True(t, p.UsePrivateRelay)
	assert.True(t, p.FrontrunGuard)
	assert.True(t, p.SandwichGuard)
	assert.True(t, p.FlashloanGuard)
}
