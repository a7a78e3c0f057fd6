package retry

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"gitlab.com/tinyland/lab/sysgauge/collectors"
)

type mockCollector struct {
	name   string
	errors []error

	mu    sync.Mutex
	calls int
}

func (m *mockCollector) Name() string            { return m.name }
func (m *mockCollector) Description() string     { return m.name + " collector" }
func (m *mockCollector) Interval() time.Duration { return 2 * time.Second }

func (m *mockCollector) Collect(ctx context.Context) (*collectors.CollectResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	idx := m.calls
	m.calls++

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if idx < len(m.errors) && m.errors[idx] != nil {
		return nil, m.errors[idx]
	}
	return &collectors.CollectResult{Collector: m.name, Data: idx}, nil
}

func (m *mockCollector) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

func failing(name string, n int) *mockCollector {
	m := &mockCollector{name: name, errors: make([]error, n)}
	for i := 0; i < n; i++ {
		m.errors[i] = fmt.Errorf("fail-%d", i)
	}
	return m
}

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func newClock() *clock { return &clock{now: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)} }

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func newBreaker(c collectors.Collector, clk *clock) *CircuitBreaker {
	return NewCircuitBreaker(c, Config{
		MaxFailures:       3,
		ResetTimeout:      10 * time.Second,
		MaxResetTimeout:   40 * time.Second,
		BackoffMultiplier: 2,
		Now:               clk.Now,
	})
}

func collectN(t *testing.T, cb *CircuitBreaker, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		cb.Collect(context.Background())
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.MaxFailures != 5 || cfg.ResetTimeout != 10*time.Second ||
		cfg.MaxResetTimeout != 2*time.Minute || cfg.BackoffMultiplier != 2 {
		t.Errorf("DefaultConfig() = %+v", cfg)
	}
}

func TestState_String(t *testing.T) {
	tests := []struct {
		state State
		want  string
	}{
		{StateClosed, "closed"},
		{StateOpen, "open"},
		{StateHalfOpen, "half_open"},
		{State(9), "unknown(9)"},
	}
	for _, tt := range tests {
		if got := tt.state.String(); got != tt.want {
			t.Errorf("State(%d).String() = %q, want %q", tt.state, got, tt.want)
		}
	}
}

func TestNewCircuitBreaker_ZeroConfigTakesDefaults(t *testing.T) {
	cb := NewCircuitBreaker(&mockCollector{name: "processes"}, Config{})
	def := DefaultConfig()
	if cb.config.MaxFailures != def.MaxFailures || cb.config.ResetTimeout != def.ResetTimeout {
		t.Errorf("config = %+v", cb.config)
	}
	if cb.State() != StateClosed {
		t.Errorf("initial state = %v", cb.State())
	}
}

func TestCircuitBreaker_Delegates(t *testing.T) {
	m := &mockCollector{name: "network"}
	cb := NewCircuitBreaker(m, Config{})
	if cb.Name() != "network" || cb.Interval() != 2*time.Second || cb.Unwrap() != m {
		t.Error("wrapper does not delegate identity")
	}
	if d := cb.Description(); !strings.Contains(d, "[circuit: closed]") {
		t.Errorf("Description() = %q", d)
	}
}

func TestCollect_OpensAfterMaxFailures(t *testing.T) {
	clk := newClock()
	cb := newBreaker(failing("processes", 10), clk)

	collectN(t, cb, 2)
	if cb.State() != StateClosed {
		t.Fatalf("state after 2 failures = %v, want closed", cb.State())
	}
	collectN(t, cb, 1)
	if cb.State() != StateOpen {
		t.Fatalf("state after 3 failures = %v, want open", cb.State())
	}
}

func TestCollect_OpenCircuitSkips(t *testing.T) {
	clk := newClock()
	m := failing("processes", 10)
	cb := newBreaker(m, clk)
	collectN(t, cb, 3)

	clk.Advance(4 * time.Second)
	res, err := cb.Collect(context.Background())
	if err != nil {
		t.Fatalf("skipped collect returned error: %v", err)
	}
	if res.Data != nil {
		t.Errorf("skipped collect Data = %v, want nil", res.Data)
	}
	if len(res.Warnings) != 1 || !strings.Contains(res.Warnings[0], "paused after 3 failures") {
		t.Errorf("Warnings = %v", res.Warnings)
	}
	if !strings.Contains(res.Warnings[0], "retry in 6s") {
		t.Errorf("warning should give remaining time: %q", res.Warnings[0])
	}
	if m.callCount() != 3 {
		t.Errorf("wrapped collector called %d times, want 3", m.callCount())
	}
	if s := cb.Stats(); s.ConsecutiveSkips != 1 {
		t.Errorf("ConsecutiveSkips = %d, want 1", s.ConsecutiveSkips)
	}
}

func TestCollect_HalfOpenSuccessCloses(t *testing.T) {
	clk := newClock()
	m := failing("processes", 3)
	cb := newBreaker(m, clk)
	collectN(t, cb, 3)

	clk.Advance(10 * time.Second)
	res, err := cb.Collect(context.Background())
	if err != nil || res.Data == nil {
		t.Fatalf("probe = %+v, %v", res, err)
	}
	if cb.State() != StateClosed {
		t.Errorf("state after successful probe = %v", cb.State())
	}
	if s := cb.Stats(); s.ConsecutiveFails != 0 || s.TotalSuccesses != 1 {
		t.Errorf("stats = %+v", s)
	}
}

func TestCollect_HalfOpenFailureBacksOff(t *testing.T) {
	clk := newClock()
	cb := newBreaker(failing("processes", 20), clk)
	collectN(t, cb, 3)

	wantTimeouts := []time.Duration{20 * time.Second, 40 * time.Second, 40 * time.Second}
	timeout := 10 * time.Second
	for i, want := range wantTimeouts {
		clk.Advance(timeout)
		if _, err := cb.Collect(context.Background()); err == nil {
			t.Fatalf("probe %d should fail", i)
		}
		s := cb.Stats()
		if s.State != StateOpen || s.CurrentTimeout != want {
			t.Fatalf("after probe %d: state %v timeout %v, want open %v", i, s.State, s.CurrentTimeout, want)
		}
		timeout = want
	}
}

func TestCollect_SuccessResetsFailureCount(t *testing.T) {
	clk := newClock()
	m := &mockCollector{name: "network", errors: []error{
		errors.New("a"), errors.New("b"), nil, errors.New("c"), errors.New("d"),
	}}
	cb := newBreaker(m, clk)
	collectN(t, cb, 5)
	if cb.State() != StateClosed {
		t.Errorf("state = %v, want closed (failures were not consecutive)", cb.State())
	}
	if s := cb.Stats(); s.ConsecutiveFails != 2 || s.TotalFailures != 4 {
		t.Errorf("stats = %+v", s)
	}
}

func TestCollect_CancelledContextIsNotAFailure(t *testing.T) {
	clk := newClock()
	cb := newBreaker(&mockCollector{name: "network"}, clk)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	for i := 0; i < 5; i++ {
		if _, err := cb.Collect(ctx); !errors.Is(err, context.Canceled) {
			t.Fatalf("err = %v, want context.Canceled", err)
		}
	}
	if s := cb.Stats(); s.State != StateClosed || s.TotalFailures != 0 {
		t.Errorf("stats = %+v", s)
	}
}

func TestReset(t *testing.T) {
	clk := newClock()
	cb := newBreaker(failing("processes", 10), clk)
	collectN(t, cb, 3)
	cb.Reset()

	s := cb.Stats()
	if s.State != StateClosed || s.ConsecutiveFails != 0 || s.CurrentTimeout != 10*time.Second {
		t.Errorf("stats after Reset = %+v", s)
	}
	if s.TotalFailures != 3 {
		t.Errorf("Reset should keep totals, got %d", s.TotalFailures)
	}
}

func TestConcurrentCollect(t *testing.T) {
	clk := newClock()
	cb := newBreaker(&mockCollector{name: "network"}, clk)

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 20; j++ {
				cb.Collect(context.Background())
				cb.Stats()
			}
		}()
	}
	wg.Wait()
	if s := cb.Stats(); s.TotalSuccesses != 320 {
		t.Errorf("TotalSuccesses = %d, want 320", s.TotalSuccesses)
	}
}

func TestState_MarshalText(t *testing.T) {
	b, err := StateHalfOpen.MarshalText()
	if err != nil || string(b) != "half_open" {
		t.Errorf("MarshalText = %q, %v", b, err)
	}
}
