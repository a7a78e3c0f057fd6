package rate

import (
	"math"
	"testing"
	"time"
)

var t0 = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) <= 1e-9*math.Max(1, math.Abs(b))
}

func TestEstimator_FirstSampleIsInvalid(t *testing.T) {
	e := NewEstimator(Config{})
	got := e.ObserveAt(1000, t0)
	if got.Valid || got.PerSecond != 0 {
		t.Errorf("first sample = %+v, want {0 false}", got)
	}
	if !e.HasBaseline() {
		t.Error("expected baseline after first sample")
	}
}

func TestEstimator_IncreasingSequence(t *testing.T) {
	tests := []struct {
		name    string
		scale   float64
		values  []uint64
		offsets []time.Duration
	}{
		{
			name:    "bytes per second one second apart",
			scale:   BytesPerSecond,
			values:  []uint64{0, 1000, 3000, 3000, 10000},
			offsets: []time.Duration{0, time.Second, 2 * time.Second, 3 * time.Second, 4 * time.Second},
		},
		{
			name:    "mbps irregular spacing",
			scale:   MegabitsPerSecond,
			values:  []uint64{5_000_000, 6_250_000, 9_000_000, 20_000_000},
			offsets: []time.Duration{0, 500 * time.Millisecond, 1700 * time.Millisecond, 4 * time.Second},
		},
		{
			name:    "large counters near wrap",
			scale:   BytesPerSecond,
			values:  []uint64{math.MaxUint64 - 10_000, math.MaxUint64 - 5_000, math.MaxUint64},
			offsets: []time.Duration{0, 2 * time.Second, 3 * time.Second},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := NewEstimator(Config{Scale: tt.scale})
			e.ObserveAt(tt.values[0], t0.Add(tt.offsets[0]))
			for i := 1; i < len(tt.values); i++ {
				got := e.ObserveAt(tt.values[i], t0.Add(tt.offsets[i]))
				dv := float64(tt.values[i] - tt.values[i-1])
				dt := (tt.offsets[i] - tt.offsets[i-1]).Seconds()
				want := dv / dt * tt.scale
				if !got.Valid {
					t.Fatalf("sample %d: estimate invalid", i)
				}
				if !almostEqual(got.PerSecond, want) {
					t.Errorf("sample %d: rate = %v, want %v", i, got.PerSecond, want)
				}
			}
		})
	}
}

func TestEstimator_MegabitConversion(t *testing.T) {
	e := NewEstimator(Config{Scale: MegabitsPerSecond})
	e.ObserveAt(0, t0)
	// 1.25 MB in one second is 10 Mbps.
	got := e.ObserveAt(1_250_000, t0.Add(time.Second))
	if !almostEqual(got.PerSecond, 10) {
		t.Errorf("rate = %v Mbps, want 10", got.PerSecond)
	}
}

func TestEstimator_TooSoonRepeatsPrevious(t *testing.T) {
	e := NewEstimator(Config{})
	e.ObserveAt(0, t0)
	first := e.ObserveAt(2000, t0.Add(time.Second))

	// 100ms later with a wildly different value: no recomputation.
	second := e.ObserveAt(9_000_000, t0.Add(1100*time.Millisecond))
	if second != first {
		t.Errorf("too-soon sample = %+v, want previous %+v", second, first)
	}

	// The baseline was not moved: the next sample is measured from t0+1s.
	third := e.ObserveAt(4000, t0.Add(2*time.Second))
	if !almostEqual(third.PerSecond, 2000) {
		t.Errorf("rate after skipped sample = %v, want 2000", third.PerSecond)
	}
}

func TestEstimator_TooSoonAfterFirstStaysInvalid(t *testing.T) {
	e := NewEstimator(Config{})
	e.ObserveAt(100, t0)
	got := e.ObserveAt(500, t0.Add(100*time.Millisecond))
	if got.Valid {
		t.Errorf("expected invalid estimate before min interval, got %+v", got)
	}
}

func TestEstimator_ClockSteppedBack(t *testing.T) {
	e := NewEstimator(Config{})
	e.ObserveAt(0, t0)
	prev := e.ObserveAt(1000, t0.Add(time.Second))
	got := e.ObserveAt(5000, t0.Add(-time.Minute))
	if got != prev {
		t.Errorf("backwards clock = %+v, want previous %+v", got, prev)
	}
}

func TestEstimator_CounterReset(t *testing.T) {
	e := NewEstimator(Config{})
	e.ObserveAt(10_000, t0)
	e.ObserveAt(20_000, t0.Add(time.Second))

	got := e.ObserveAt(500, t0.Add(2*time.Second))
	if got.Valid || got.PerSecond != 0 {
		t.Fatalf("after reset = %+v, want {0 false}", got)
	}

	// Resumes from the reset baseline (500), not the pre-reset value.
	got = e.ObserveAt(1500, t0.Add(3*time.Second))
	if !got.Valid || !almostEqual(got.PerSecond, 1000) {
		t.Errorf("after re-baseline = %+v, want {1000 true}", got)
	}
}

func TestEstimator_FailKeepsLastEstimate(t *testing.T) {
	e := NewEstimator(Config{})
	if got := e.Fail(); got.Valid || got.PerSecond != 0 {
		t.Errorf("Fail with no baseline = %+v, want zero", got)
	}

	e.ObserveAt(0, t0)
	want := e.ObserveAt(3000, t0.Add(time.Second))
	if got := e.Fail(); got != want {
		t.Errorf("Fail = %+v, want %+v", got, want)
	}

	// Failure does not move the baseline.
	got := e.ObserveAt(5000, t0.Add(2*time.Second))
	if !almostEqual(got.PerSecond, 2000) {
		t.Errorf("rate after failure = %v, want 2000", got.PerSecond)
	}
}

func TestEstimator_Reset(t *testing.T) {
	e := NewEstimator(Config{})
	e.ObserveAt(0, t0)
	e.ObserveAt(1000, t0.Add(time.Second))
	e.Reset()

	if e.HasBaseline() {
		t.Error("baseline should be cleared")
	}
	if got := e.Last(); got.Valid {
		t.Errorf("Last after Reset = %+v, want invalid", got)
	}
}

func TestEstimator_ObserveUsesClock(t *testing.T) {
	now := t0
	e := NewEstimator(Config{Now: func() time.Time { return now }})
	e.Observe(0)
	now = now.Add(2 * time.Second)
	got := e.Observe(4000)
	if !almostEqual(got.PerSecond, 2000) {
		t.Errorf("rate = %v, want 2000", got.PerSecond)
	}
}

func TestEstimator_CustomMinInterval(t *testing.T) {
	e := NewEstimator(Config{MinInterval: 2 * time.Second})
	e.ObserveAt(0, t0)
	if got := e.ObserveAt(100, t0.Add(time.Second)); got.Valid {
		t.Errorf("expected sample inside 2s window to be skipped, got %+v", got)
	}
	if got := e.ObserveAt(400, t0.Add(2*time.Second)); !almostEqual(got.PerSecond, 200) {
		t.Errorf("rate = %v, want 200", got.PerSecond)
	}
}
