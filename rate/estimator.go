// Package rate turns cumulative counters into per-second rates and keeps the
// display ceilings that gauges are scaled against.
package rate

import "time"

const (
	// DefaultMinInterval is the shortest gap between two samples that will
	// produce a new estimate. Closer samples return the previous estimate.
	DefaultMinInterval = 500 * time.Millisecond

	// BytesPerSecond leaves the counter delta in its native unit.
	BytesPerSecond = 1.0

	// MegabitsPerSecond converts a byte counter into Mbps.
	MegabitsPerSecond = 8.0 / 1e6

	// MegabytesPerSecond converts a byte counter into MB/s (decimal).
	MegabytesPerSecond = 1.0 / 1e6
)

// Estimate is a derived rate for one counter stream.
type Estimate struct {
	// PerSecond is the rate in the estimator's configured unit. Never negative.
	PerSecond float64 `json:"per_second"`

	// Valid is false until two samples far enough apart have been seen,
	// and again right after a counter reset.
	Valid bool `json:"valid"`
}

// Config controls an Estimator.
type Config struct {
	// MinInterval is the minimum sample spacing (default DefaultMinInterval).
	MinInterval time.Duration

	// Scale multiplies the raw per-second delta, e.g. MegabitsPerSecond.
	// Zero means BytesPerSecond.
	Scale float64

	// Now overrides the clock. Nil uses time.Now.
	Now func() time.Time
}

// Estimator converts successive samples of one monotonic counter into a
// rate. It is owned by a single polling loop and is not safe for
// concurrent use.
type Estimator struct {
	minInterval time.Duration
	scale       float64
	now         func() time.Time

	hasBaseline bool
	lastValue   uint64
	lastAt      time.Time
	last        Estimate
}

// NewEstimator returns an Estimator with no baseline.
func NewEstimator(cfg Config) *Estimator {
	if cfg.MinInterval <= 0 {
		cfg.MinInterval = DefaultMinInterval
	}
	if cfg.Scale == 0 {
		cfg.Scale = BytesPerSecond
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Estimator{
		minInterval: cfg.MinInterval,
		scale:       cfg.Scale,
		now:         cfg.Now,
	}
}

// Observe records a counter value taken now.
func (e *Estimator) Observe(value uint64) Estimate {
	return e.ObserveAt(value, e.now())
}

// ObserveAt records a counter value taken at t.
//
// The first sample only seeds the baseline. Samples closer than the
// minimum interval (or behind the baseline in time) leave the state alone
// and repeat the previous estimate. A value below the baseline is a counter
// reset: the sample becomes the new baseline and the estimate goes invalid.
func (e *Estimator) ObserveAt(value uint64, t time.Time) Estimate {
	if !e.hasBaseline {
		e.rebase(value, t)
		return e.last
	}

	dt := t.Sub(e.lastAt)
	if dt < e.minInterval {
		return e.last
	}

	if value < e.lastValue {
		e.rebase(value, t)
		return e.last
	}

	perSecond := float64(value-e.lastValue) / dt.Seconds() * e.scale
	if perSecond < 0 {
		perSecond = 0
	}

	e.lastValue = value
	e.lastAt = t
	e.last = Estimate{PerSecond: perSecond, Valid: true}
	return e.last
}

// Fail reports that the counter could not be read this cycle. The previous
// estimate is returned untouched; with no baseline it is the zero estimate.
func (e *Estimator) Fail() Estimate {
	return e.last
}

// Last returns the most recent estimate without sampling.
func (e *Estimator) Last() Estimate {
	return e.last
}

// HasBaseline reports whether a sample has been recorded since the last reset.
func (e *Estimator) HasBaseline() bool {
	return e.hasBaseline
}

// Reset drops the baseline and the last estimate.
func (e *Estimator) Reset() {
	e.hasBaseline = false
	e.lastValue = 0
	e.lastAt = time.Time{}
	e.last = Estimate{}
}

func (e *Estimator) rebase(value uint64, t time.Time) {
	e.hasBaseline = true
	e.lastValue = value
	e.lastAt = t
	e.last = Estimate{}
}
