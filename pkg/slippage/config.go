package slippage

// Config is the per-session slippage state: the working tolerance, whether it
// is auto-derived, and the safety ceiling the working tolerance must never
// exceed at execution time.
type Config struct {
	TolerancePercent    float64
	MaxTolerancePercent float64
	DeadlineMinutes     int
	Auto                bool
}

// NewConfig clamps the initial values and returns a config. The ceiling is
// itself clamped so the invariant tolerance <= ceiling <= 50 holds.
func NewConfig(tolerancePct, ceilingPct float64, deadlineMinutes int, auto bool) *Config {
	c := &Config{
		TolerancePercent:    Clamp(tolerancePct),
		MaxTolerancePercent: Clamp(ceilingPct),
		DeadlineMinutes:     deadlineMinutes,
		Auto:                auto,
	}
	if c.TolerancePercent > c.MaxTolerancePercent {
		c.TolerancePercent = c.MaxTolerancePercent
	}
	return c
}

// SetManual sets an explicit tolerance (clamped, never rejected) and disables
// auto-derivation until ReenableAuto is called.
func (c *Config) SetManual(pct float64) {
	c.TolerancePercent = Clamp(pct)
	c.Auto = false
}

// ReenableAuto turns auto-derivation back on.
func (c *Config) ReenableAuto() {
	c.Auto = true
}

// Working resolves the tolerance to apply for a quote with the given price
// impact and depth tier: the auto recommendation when enabled, otherwise the
// manually set tolerance.
func (c *Config) Working(priceImpactPct float64, tier DepthTier) float64 {
	if c.Auto {
		return Clamp(AutoTolerance(priceImpactPct, tier))
	}
	return Clamp(c.TolerancePercent)
}

// CheckCeiling refuses a working tolerance that exceeds the safety ceiling.
// Execution must not proceed when this errors.
func (c *Config) CheckCeiling(tolerancePct float64) error {
	if tolerancePct > c.MaxTolerancePercent {
		return ErrToleranceCeiling
	}
	return nil
}
