// Package retry wraps collectors in a circuit breaker. A source that keeps
// failing (process table unreadable, counters gone) is skipped for growing
// intervals instead of being hammered every tick.
package retry

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"gitlab.com/tinyland/lab/sysgauge/collectors"
)

var _ collectors.Collector = (*CircuitBreaker)(nil)

// State is the breaker state.
type State int

const (
	StateClosed State = iota
	StateOpen
	StateHalfOpen
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half_open"
	default:
		return fmt.Sprintf("unknown(%d)", int(s))
	}
}

// MarshalText lets State appear by name in JSON status output.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Config tunes a CircuitBreaker.
type Config struct {
	// MaxFailures is the consecutive failure count that opens the circuit.
	MaxFailures int
	// ResetTimeout is the first wait before a probe is allowed.
	ResetTimeout time.Duration
	// MaxResetTimeout caps the backoff.
	MaxResetTimeout time.Duration
	// BackoffMultiplier grows the wait after each failed probe.
	BackoffMultiplier float64
	// Logger defaults to a discard logger.
	Logger *slog.Logger
	// Now defaults to time.Now.
	Now func() time.Time
}

// DefaultConfig suits local OS sources, which recover quickly when they
// recover at all.
func DefaultConfig() Config {
	return Config{
		MaxFailures:       5,
		ResetTimeout:      10 * time.Second,
		MaxResetTimeout:   2 * time.Minute,
		BackoffMultiplier: 2.0,
	}
}

// Stats is a snapshot of breaker counters.
type Stats struct {
	State            State         `json:"state"`
	ConsecutiveFails int           `json:"consecutive_fails"`
	TotalFailures    int           `json:"total_failures"`
	TotalSuccesses   int           `json:"total_successes"`
	LastFailure      time.Time     `json:"last_failure"`
	LastSuccess      time.Time     `json:"last_success"`
	CurrentTimeout   time.Duration `json:"current_timeout"`
	ConsecutiveSkips int           `json:"consecutive_skips"`
}

// CircuitBreaker is a Collector that guards another Collector.
type CircuitBreaker struct {
	collector collectors.Collector
	config    Config
	logger    *slog.Logger
	now       func() time.Time

	mu               sync.Mutex
	state            State
	failures         int
	lastFailure      time.Time
	lastSuccess      time.Time
	currentTimeout   time.Duration
	totalFailures    int
	totalSuccesses   int
	consecutiveSkips int
}

// NewCircuitBreaker wraps c. Zero config fields take DefaultConfig values.
func NewCircuitBreaker(c collectors.Collector, cfg Config) *CircuitBreaker {
	def := DefaultConfig()
	if cfg.MaxFailures <= 0 {
		cfg.MaxFailures = def.MaxFailures
	}
	if cfg.ResetTimeout <= 0 {
		cfg.ResetTimeout = def.ResetTimeout
	}
	if cfg.MaxResetTimeout < cfg.ResetTimeout {
		cfg.MaxResetTimeout = max(def.MaxResetTimeout, cfg.ResetTimeout)
	}
	if cfg.BackoffMultiplier < 1 {
		cfg.BackoffMultiplier = def.BackoffMultiplier
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &CircuitBreaker{
		collector:      c,
		config:         cfg,
		logger:         logger,
		now:            now,
		currentTimeout: cfg.ResetTimeout,
	}
}

// Unwrap returns the guarded collector.
func (cb *CircuitBreaker) Unwrap() collectors.Collector {
	return cb.collector
}

func (cb *CircuitBreaker) Name() string { return cb.collector.Name() }

// Description appends the circuit state to the wrapped description.
func (cb *CircuitBreaker) Description() string {
	return fmt.Sprintf("%s [circuit: %s]", cb.collector.Description(), cb.State())
}

func (cb *CircuitBreaker) Interval() time.Duration { return cb.collector.Interval() }

// Collect runs the wrapped collector unless the circuit is open, in which
// case it returns a result with nil Data and a warning.
func (cb *CircuitBreaker) Collect(ctx context.Context) (*collectors.CollectResult, error) {
	cb.mu.Lock()
	now := cb.now()

	if cb.state == StateOpen {
		elapsed := now.Sub(cb.lastFailure)
		if elapsed < cb.currentTimeout {
			remaining := cb.currentTimeout - elapsed
			cb.consecutiveSkips++
			failures := cb.failures
			cb.mu.Unlock()

			name := cb.collector.Name()
			cb.logger.Debug("retry: circuit open, skipping",
				slog.String("collector", name),
				slog.Int("failures", failures),
				slog.Duration("retry_in", remaining),
			)
			return &collectors.CollectResult{
				Collector: name,
				Timestamp: now,
				Warnings: []string{fmt.Sprintf("%s paused after %d failures, retry in %s",
					name, failures, remaining.Truncate(time.Second))},
			}, nil
		}
		cb.state = StateHalfOpen
		cb.logger.Info("retry: circuit half-open", slog.String("collector", cb.collector.Name()))
	}
	probing := cb.state == StateHalfOpen
	cb.mu.Unlock()

	res, err := cb.collector.Collect(ctx)

	cb.mu.Lock()
	defer cb.mu.Unlock()
	if err != nil {
		if ctx.Err() != nil {
			// Shutdown is not a source failure.
			return res, err
		}
		cb.onFailure(probing)
		return res, err
	}
	cb.onSuccess(probing)
	return res, nil
}

func (cb *CircuitBreaker) onFailure(probing bool) {
	cb.failures++
	cb.totalFailures++
	cb.lastFailure = cb.now()

	switch {
	case probing:
		next := time.Duration(float64(cb.currentTimeout) * cb.config.BackoffMultiplier)
		cb.currentTimeout = min(next, cb.config.MaxResetTimeout)
		cb.state = StateOpen
		cb.logger.Warn("retry: probe failed, circuit re-opened",
			slog.String("collector", cb.collector.Name()),
			slog.Duration("next_timeout", cb.currentTimeout),
		)
	case cb.failures >= cb.config.MaxFailures:
		cb.state = StateOpen
		cb.currentTimeout = cb.config.ResetTimeout
		cb.logger.Warn("retry: circuit opened",
			slog.String("collector", cb.collector.Name()),
			slog.Int("failures", cb.failures),
		)
	}
}

func (cb *CircuitBreaker) onSuccess(probing bool) {
	if probing {
		cb.logger.Info("retry: circuit closed", slog.String("collector", cb.collector.Name()))
	}
	cb.state = StateClosed
	cb.failures = 0
	cb.consecutiveSkips = 0
	cb.totalSuccesses++
	cb.lastSuccess = cb.now()
	cb.currentTimeout = cb.config.ResetTimeout
}

// State returns the current state.
func (cb *CircuitBreaker) State() State {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}

// Stats returns a snapshot of the counters.
func (cb *CircuitBreaker) Stats() Stats {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return Stats{
		State:            cb.state,
		ConsecutiveFails: cb.failures,
		TotalFailures:    cb.totalFailures,
		TotalSuccesses:   cb.totalSuccesses,
		LastFailure:      cb.lastFailure,
		LastSuccess:      cb.lastSuccess,
		CurrentTimeout:   cb.currentTimeout,
		ConsecutiveSkips: cb.consecutiveSkips,
	}
}

// Reset closes the circuit and clears the failure count.
func (cb *CircuitBreaker) Reset() {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.state = StateClosed
	cb.failures = 0
	cb.consecutiveSkips = 0
	cb.currentTimeout = cb.config.ResetTimeout
}
