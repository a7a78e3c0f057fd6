// Package cpuacct turns per-process cumulative CPU time into a percentage
// of total machine capacity across successive polls.
package cpuacct

import (
	"runtime"
	"time"
)

// DefaultMinInterval is the shortest wall-clock gap between two samples of
// the same process that produces a new percentage.
const DefaultMinInterval = 500 * time.Millisecond

// Config controls an Accountant.
type Config struct {
	// CoreCount normalizes the percentage so a fully busy machine reads 100.
	// Zero uses runtime.NumCPU.
	CoreCount int

	// MinInterval defaults to DefaultMinInterval.
	MinInterval time.Duration

	// MaxMissedCycles is how many consecutive polling cycles an entity may
	// be absent before its entry is dropped. Zero means 1: anything missing
	// from the latest snapshot is pruned.
	MaxMissedCycles int

	// Now overrides the clock.
	Now func() time.Time
}

type entry struct {
	lastCPU  time.Duration
	lastAt   time.Time
	seenIn   uint64
	lastPct  float64
	measured bool
}

// Accountant tracks the last cumulative CPU time per pid. It belongs to the
// process polling loop and is not safe for concurrent use.
type Accountant struct {
	cores       int
	minInterval time.Duration
	maxMissed   uint64
	now         func() time.Time

	cycle   uint64
	entries map[int32]*entry
}

// New returns an empty Accountant.
func New(cfg Config) *Accountant {
	if cfg.CoreCount <= 0 {
		cfg.CoreCount = runtime.NumCPU()
	}
	if cfg.MinInterval <= 0 {
		cfg.MinInterval = DefaultMinInterval
	}
	if cfg.MaxMissedCycles <= 0 {
		cfg.MaxMissedCycles = 1
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Accountant{
		cores:       cfg.CoreCount,
		minInterval: cfg.MinInterval,
		maxMissed:   uint64(cfg.MaxMissedCycles),
		now:         cfg.Now,
		entries:     make(map[int32]*entry),
	}
}

// CoreCount returns the divisor used for normalization.
func (a *Accountant) CoreCount() int {
	return a.cores
}

// Percent records a sample taken now. See PercentAt.
func (a *Accountant) Percent(pid int32, cumulative time.Duration) (float64, bool) {
	return a.PercentAt(pid, cumulative, a.now())
}

// PercentAt records the cumulative CPU time of pid observed at t and
// returns its CPU share since the previous sample, in [0, 100].
//
// measured is false when there is no usable previous sample: the first
// observation, a sample closer than the minimum interval, or a cumulative
// time lower than before (the pid now belongs to a different process). In
// those cases the percentage is 0. A measured idle process returns (0, true).
func (a *Accountant) PercentAt(pid int32, cumulative time.Duration, t time.Time) (pct float64, measured bool) {
	e, ok := a.entries[pid]
	if !ok {
		a.entries[pid] = &entry{lastCPU: cumulative, lastAt: t, seenIn: a.cycle}
		return 0, false
	}
	e.seenIn = a.cycle

	dt := t.Sub(e.lastAt)
	if dt < a.minInterval {
		return 0, false
	}

	if cumulative < e.lastCPU {
		*e = entry{lastCPU: cumulative, lastAt: t, seenIn: a.cycle}
		return 0, false
	}

	cpu := cumulative - e.lastCPU
	pct = float64(cpu) / float64(dt) * 100 / float64(a.cores)
	pct = min(max(pct, 0), 100)

	e.lastCPU = cumulative
	e.lastAt = t
	e.lastPct = pct
	e.measured = true
	return pct, true
}

// Touch marks pid as present in this cycle without sampling it, for
// entities whose CPU time could not be read this poll.
func (a *Accountant) Touch(pid int32) {
	if e, ok := a.entries[pid]; ok {
		e.seenIn = a.cycle
	}
}

// Last returns the most recent measured percentage for pid.
func (a *Accountant) Last(pid int32) (float64, bool) {
	e, ok := a.entries[pid]
	if !ok || !e.measured {
		return 0, false
	}
	return e.lastPct, true
}

// EndCycle closes the current polling cycle and drops entries that have not
// been seen for MaxMissedCycles cycles. It returns how many were dropped.
func (a *Accountant) EndCycle() int {
	pruned := 0
	for pid, e := range a.entries {
		if a.cycle-e.seenIn >= a.maxMissed {
			delete(a.entries, pid)
			pruned++
		}
	}
	a.cycle++
	return pruned
}

// Forget drops the entry for pid.
func (a *Accountant) Forget(pid int32) {
	delete(a.entries, pid)
}

// Clear drops all entries.
func (a *Accountant) Clear() {
	clear(a.entries)
}

// Len returns the number of tracked entities.
func (a *Accountant) Len() int {
	return len(a.entries)
}
