// Package amount converts between human decimal strings and token amounts
// held as arbitrary-precision integers scaled by the token's decimal count.
// All conversions are exact; floating point is never used for amounts.
package amount

import (
	"fmt"
	"math/big"
	"strings"
)

// Parse converts a decimal string such as "1.5" into a *big.Int scaled by
// 10^decimals. Fraction digits beyond the token's decimal count are
// truncated. Negative amounts are rejected.
func Parse(s string, decimals uint8) (*big.Int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, fmt.Errorf("empty amount")
	}
	if strings.HasPrefix(s, "-") {
		return nil, fmt.Errorf("negative amount: %s", s)
	}

	whole, frac := s, ""
	if i := strings.IndexByte(s, '.'); i >= 0 {
		whole, frac = s[:i], s[i+1:]
	}
	if whole == "" {
		whole = "0"
	}
	if !isDigits(whole) || (frac != "" && !isDigits(frac)) {
		return nil, fmt.Errorf("invalid amount format: %s", s)
	}

	// Truncate excess fraction digits, pad the rest to the decimal count.
	if len(frac) > int(decimals) {
		frac = frac[:decimals]
	}
	frac += strings.Repeat("0", int(decimals)-len(frac))

	v, ok := new(big.Int).SetString(whole+frac, 10)
	if !ok {
		return nil, fmt.Errorf("invalid amount format: %s", s)
	}
	return v, nil
}

// Format renders a scaled amount as a decimal string, trimming trailing
// zeros from the fraction.
func Format(v *big.Int, decimals uint8) string {
	if v == nil {
		return "0"
	}
	s := v.String()
	if decimals == 0 {
		return s
	}
	if len(s) <= int(decimals) {
		s = strings.Repeat("0", int(decimals)-len(s)+1) + s
	}
	cut := len(s) - int(decimals)
	whole, frac := s[:cut], s[cut:]
	frac = strings.TrimRight(frac, "0")
	if frac == "" {
		return whole
	}
	return whole + "." + frac
}

// Rescale converts a value from one decimal basis to another, truncating
// toward zero when precision is lost.
func Rescale(v *big.Int, from, to uint8) *big.Int {
	if v == nil {
		return nil
	}
	out := new(big.Int).Set(v)
	switch {
	case to > from:
		out.Mul(out, pow10(to-from))
	case from > to:
		out.Quo(out, pow10(from-to))
	}
	return out
}

// Float returns a display-only float approximation of a scaled amount.
// Never use the result for on-ledger values.
func Float(v *big.Int, decimals uint8) float64 {
	if v == nil {
		return 0
	}
	r := new(big.Rat).SetFrac(v, pow10(decimals))
	f, _ := r.Float64()
	return f
}

func pow10(n uint8) *big.Int {
	return new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(n)), nil)
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
