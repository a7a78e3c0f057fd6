package cpuacct

import (
	"math"
	"testing"
	"time"
)

var t0 = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

func newSingleCore() *Accountant {
	return New(Config{CoreCount: 1})
}

func TestPercent_FirstObservationIsZero(t *testing.T) {
	a := newSingleCore()
	pct, ok := a.PercentAt(42, 3*time.Second, t0)
	if pct != 0 || ok {
		t.Errorf("first observation = %v, %v; want 0, false", pct, ok)
	}
	if a.Len() != 1 {
		t.Errorf("Len = %d, want 1", a.Len())
	}
}

func TestPercent_HalfCoreOverOneSecond(t *testing.T) {
	a := newSingleCore()
	a.PercentAt(42, time.Second, t0)
	pct, ok := a.PercentAt(42, 1500*time.Millisecond, t0.Add(time.Second))
	if !ok || math.Abs(pct-50) > 1e-9 {
		t.Errorf("percent = %v, %v; want 50, true", pct, ok)
	}
}

func TestPercent_SameCPUTimeIsMeasuredZero(t *testing.T) {
	a := newSingleCore()
	a.PercentAt(7, time.Second, t0)
	pct, ok := a.PercentAt(7, time.Second, t0.Add(500*time.Millisecond))
	if pct != 0 || !ok {
		t.Errorf("idle process = %v, %v; want 0, true", pct, ok)
	}
}

func TestPercent_TooSoonLeavesEntry(t *testing.T) {
	a := newSingleCore()
	a.PercentAt(7, 0, t0)

	pct, ok := a.PercentAt(7, 400*time.Millisecond, t0.Add(400*time.Millisecond))
	if pct != 0 || ok {
		t.Errorf("too-soon = %v, %v; want 0, false", pct, ok)
	}

	// Baseline still at t0/0, so 1s later with 250ms of CPU reads 25%.
	pct, ok = a.PercentAt(7, 250*time.Millisecond, t0.Add(time.Second))
	if !ok || math.Abs(pct-25) > 1e-9 {
		t.Errorf("after too-soon = %v, %v; want 25, true", pct, ok)
	}
}

func TestPercent_NormalizedByCores(t *testing.T) {
	a := New(Config{CoreCount: 4})
	a.PercentAt(1, 0, t0)
	// Two full cores busy for one second on a four-core machine.
	pct, _ := a.PercentAt(1, 2*time.Second, t0.Add(time.Second))
	if math.Abs(pct-50) > 1e-9 {
		t.Errorf("percent = %v, want 50", pct)
	}
}

func TestPercent_ClampedToHundred(t *testing.T) {
	a := newSingleCore()
	a.PercentAt(1, 0, t0)
	pct, ok := a.PercentAt(1, 8*time.Second, t0.Add(time.Second))
	if !ok || pct != 100 {
		t.Errorf("percent = %v, %v; want 100, true", pct, ok)
	}
}

func TestPercent_PidReuseRebaselines(t *testing.T) {
	a := newSingleCore()
	a.PercentAt(9, 10*time.Second, t0)
	a.PercentAt(9, 11*time.Second, t0.Add(2*time.Second))

	pct, ok := a.PercentAt(9, 100*time.Millisecond, t0.Add(4*time.Second))
	if pct != 0 || ok {
		t.Errorf("after pid reuse = %v, %v; want 0, false", pct, ok)
	}
	if _, ok := a.Last(9); ok {
		t.Error("Last should be cleared after re-baseline")
	}

	pct, ok = a.PercentAt(9, 600*time.Millisecond, t0.Add(5*time.Second))
	if !ok || math.Abs(pct-50) > 1e-9 {
		t.Errorf("after re-baseline = %v, %v; want 50, true", pct, ok)
	}
}

func TestPercent_UsesClock(t *testing.T) {
	now := t0
	a := New(Config{CoreCount: 2, Now: func() time.Time { return now }})
	a.Percent(3, 0)
	now = now.Add(2 * time.Second)
	pct, ok := a.Percent(3, 2*time.Second)
	if !ok || math.Abs(pct-50) > 1e-9 {
		t.Errorf("percent = %v, %v; want 50, true", pct, ok)
	}
	if got, ok := a.Last(3); !ok || got != pct {
		t.Errorf("Last = %v, %v; want %v, true", got, ok, pct)
	}
}

func TestEndCycle_PrunesAbsentEntities(t *testing.T) {
	a := newSingleCore()

	a.PercentAt(1, 0, t0)
	a.PercentAt(2, 0, t0)
	a.PercentAt(3, 0, t0)
	if n := a.EndCycle(); n != 0 {
		t.Fatalf("first EndCycle pruned %d, want 0", n)
	}

	// Next poll only sees 1 and 3; 3 could not be sampled.
	a.PercentAt(1, time.Second, t0.Add(time.Second))
	a.Touch(3)
	if n := a.EndCycle(); n != 1 {
		t.Fatalf("EndCycle pruned %d, want 1", n)
	}
	if a.Len() != 2 {
		t.Errorf("Len = %d, want 2", a.Len())
	}

	// A pruned pid starts from scratch.
	if _, ok := a.PercentAt(2, 5*time.Second, t0.Add(2*time.Second)); ok {
		t.Error("returning pid should be a first observation")
	}
}

func TestEndCycle_MaxMissedCycles(t *testing.T) {
	a := New(Config{CoreCount: 1, MaxMissedCycles: 3})
	a.PercentAt(1, 0, t0)
	a.EndCycle()

	for i := 0; i < 2; i++ {
		if n := a.EndCycle(); n != 0 {
			t.Fatalf("cycle %d pruned %d, want 0", i, n)
		}
	}
	if n := a.EndCycle(); n != 1 {
		t.Errorf("third missed cycle pruned %d, want 1", n)
	}
}

func TestTouchUnknownPidIsNoop(t *testing.T) {
	a := newSingleCore()
	a.Touch(99)
	if a.Len() != 0 {
		t.Errorf("Len = %d, want 0", a.Len())
	}
}

func TestForgetAndClear(t *testing.T) {
	a := newSingleCore()
	a.PercentAt(1, 0, t0)
	a.PercentAt(2, 0, t0)

	a.Forget(1)
	if a.Len() != 1 {
		t.Errorf("Len after Forget = %d, want 1", a.Len())
	}
	a.Clear()
	if a.Len() != 0 {
		t.Errorf("Len after Clear = %d, want 0", a.Len())
	}
}

func TestDefaults(t *testing.T) {
	a := New(Config{})
	if a.CoreCount() < 1 {
		t.Errorf("CoreCount = %d, want >= 1", a.CoreCount())
	}
}
