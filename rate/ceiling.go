package rate

// Default tuning for Ceiling.
const (
	DefaultGrowAt     = 0.8
	DefaultGrowBy     = 1.5
	DefaultDecayBelow = 0.1
	DefaultDecayBy    = 0.7
	DefaultDebounce   = 10
)

// CeilingConfig tunes a Ceiling. Zero fields take the defaults above; Min
// has no default because it differs per quantity.
type CeilingConfig struct {
	// Min is the floor the ceiling never drops below, and its start value.
	Min float64

	// GrowAt is the fraction of the ceiling above which it grows.
	GrowAt float64
	// GrowBy multiplies the observed value to get the new ceiling.
	GrowBy float64
	// DecayBelow is the fraction of the ceiling below which it may decay.
	DecayBelow float64
	// DecayBy multiplies the ceiling on each decay step.
	DecayBy float64
	// Debounce is how many observations since the last growth must pass
	// before a decay is allowed.
	Debounce int
}

// Ceiling is the adaptive maximum a gauge is scaled against. It jumps up as
// soon as a value gets close to it and shrinks slowly once values stay low.
// One Ceiling per displayed quantity; not safe for concurrent use.
type Ceiling struct {
	cfg           CeilingConfig
	ceiling       float64
	sinceLastGrow int
}

// NewCeiling returns a Ceiling starting at cfg.Min.
func NewCeiling(cfg CeilingConfig) *Ceiling {
	if cfg.GrowAt <= 0 {
		cfg.GrowAt = DefaultGrowAt
	}
	if cfg.GrowBy <= 0 {
		cfg.GrowBy = DefaultGrowBy
	}
	if cfg.DecayBelow <= 0 {
		cfg.DecayBelow = DefaultDecayBelow
	}
	if cfg.DecayBy <= 0 || cfg.DecayBy >= 1 {
		cfg.DecayBy = DefaultDecayBy
	}
	if cfg.Debounce <= 0 {
		cfg.Debounce = DefaultDebounce
	}
	if cfg.Min < 0 {
		cfg.Min = 0
	}
	return &Ceiling{cfg: cfg, ceiling: cfg.Min}
}

// Update feeds one observed value and returns the resulting ceiling.
func (c *Ceiling) Update(observed float64) float64 {
	if observed > c.ceiling*c.cfg.GrowAt {
		c.ceiling = max(c.cfg.Min, observed*c.cfg.GrowBy)
		c.sinceLastGrow = 0
		return c.ceiling
	}

	c.sinceLastGrow++
	if observed < c.ceiling*c.cfg.DecayBelow &&
		c.ceiling > c.cfg.Min &&
		c.sinceLastGrow >= c.cfg.Debounce {
		c.ceiling = max(c.cfg.Min, c.ceiling*c.cfg.DecayBy)
	}
	return c.ceiling
}

// Value returns the current ceiling.
func (c *Ceiling) Value() float64 {
	return c.ceiling
}

// Min returns the configured floor.
func (c *Ceiling) Min() float64 {
	return c.cfg.Min
}

// Fraction returns v as a share of the ceiling, clamped to [0, 1].
func (c *Ceiling) Fraction(v float64) float64 {
	if c.ceiling <= 0 || v <= 0 {
		return 0
	}
	return min(v/c.ceiling, 1)
}

// Reset returns the ceiling to its floor.
func (c *Ceiling) Reset() {
	c.ceiling = c.cfg.Min
	c.sinceLastGrow = 0
}
