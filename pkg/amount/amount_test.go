package amount

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	tests := []struct {
		in       string
		decimals uint8
		want     string
	}{
		{"1", 18, "1000000000000000000"},
		{"1.5", 18, "1500000000000000000"},
		{"0.000001", 6, "1"},
		{"100", 0, "100"},
		{"0.5", 0, "0"},
		{".5", 2, "50"},
		{"1.23456789", 4, "12345"}, // excess fraction digits truncated
	}
	for _, tt := range tests {
		got, err := Parse(tt.in, tt.decimals)
		require.NoError(t, err, "Parse(%q, %d)", tt.in, tt.decimals)
		assert.Equal(t, tt.want, got.String(), "Parse(%q, %d)", tt.in, tt.decimals)
	}
}

func TestParseRejects(t *testing.T) {
	for _, in := range []string{"", "-1", "1.2.3", "abc", "1,5", "1e18"} {
		_, err := Parse(in, 18)
		assert.Error(t, err, "Parse(%q)", in)
	}
}

func TestFormat(t *testing.T) {
	tests := []struct {
		in       string
		decimals uint8
		want     string
	}{
		{"1000000000000000000", 18, "1"},
		{"1500000000000000000", 18, "1.5"},
		{"1", 6, "0.000001"},
		{"100", 0, "100"},
		{"0", 18, "0"},
	}
	for _, tt := range tests {
		v, ok := new(big.Int).SetString(tt.in, 10)
		require.True(t, ok)
		assert.Equal(t, tt.want, Format(v, tt.decimals))
	}
	assert.Equal(t, "0", Format(nil, 18))
}

func TestRescale(t *testing.T) {
	v := big.NewInt(1_500_000) // 1.5 at 6 decimals
	up := Rescale(v, 6, 18)
	assert.Equal(t, "1500000000000000000", up.String())

	down := Rescale(up, 18, 6)
	assert.Equal(t, v.String(), down.String())

	// Truncation toward zero when precision is lost.
	assert.Equal(t, int64(0), Rescale(big.NewInt(999), 18, 6).Int64())
}

func TestFloatDisplayOnly(t *testing.T) {
	assert.InDelta(t, 1.5, Float(big.NewInt(1_500_000), 6), 1e-9)
	assert.Equal(t, 0.0, Float(nil, 6))
}
