// Package collectors defines the polling contract for sysgauge. Each
// collector samples one quantity (network, processes, system gauges) on its
// own interval; the Runner drives them and fans results into one channel.
package collectors

import (
	"context"
	"sort"
	"sync"
	"time"
)

// Collector is implemented by every polling loop.
type Collector interface {
	// Name is the collector's unique identifier ("network", "processes", ...).
	Name() string

	// Description is a short human-readable summary.
	Description() string

	// Interval is how often the Runner calls Collect.
	Interval() time.Duration

	// Collect takes one sample. Transient source failures should be
	// absorbed into the result (stale data plus a warning); an error means
	// nothing usable was produced this cycle.
	Collect(ctx context.Context) (*CollectResult, error)
}

// CollectResult is the output of one Collect call.
type CollectResult struct {
	Collector string    `json:"collector"`
	Timestamp time.Time `json:"timestamp"`

	// Data is the collector's snapshot type. Nil when a wrapper skipped the
	// collection (see retry.CircuitBreaker).
	Data any `json:"data"`

	// Warnings are non-fatal problems seen during this cycle.
	Warnings []string `json:"warnings,omitempty"`
}

// CollectorStatus tracks the runtime health of a collector.
type CollectorStatus struct {
	Name        string        `json:"name"`
	LastRun     time.Time     `json:"last_run"`
	RunCount    int64         `json:"run_count"`
	ErrorCount  int64         `json:"error_count"`
	LastLatency time.Duration `json:"last_latency"`
	LastError   string        `json:"last_error,omitempty"`
	Healthy     bool          `json:"healthy"`
}

// Registry holds registered collectors and their status.
type Registry struct {
	mu         sync.RWMutex
	collectors []Collector
	status     map[string]*CollectorStatus
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{status: make(map[string]*CollectorStatus)}
}

// Register adds c, replacing any collector with the same name.
func (r *Registry) Register(c Collector) {
	r.mu.Lock()
	defer r.mu.Unlock()

	name := c.Name()
	if _, ok := r.status[name]; !ok {
		r.status[name] = &CollectorStatus{Name: name}
	}
	for i, existing := range r.collectors {
		if existing.Name() == name {
			r.collectors[i] = c
			return
		}
	}
	r.collectors = append(r.collectors, c)
}

// Get returns the collector called name.
func (r *Registry) Get(name string) (Collector, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, c := range r.collectors {
		if c.Name() == name {
			return c, true
		}
	}
	return nil, false
}

// All returns the registered collectors in registration order.
func (r *Registry) All() []Collector {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Collector, len(r.collectors))
	copy(out, r.collectors)
	return out
}

// List returns the registered names in registration order.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, len(r.collectors))
	for i, c := range r.collectors {
		names[i] = c.Name()
	}
	return names
}

// Status returns a copy of the status for name.
func (r *Registry) Status(name string) (CollectorStatus, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.status[name]
	if !ok {
		return CollectorStatus{}, false
	}
	return *s, true
}

// AllStatus returns every status sorted by name.
func (r *Registry) AllStatus() []CollectorStatus {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]CollectorStatus, 0, len(r.status))
	for _, s := range r.status {
		out = append(out, *s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// record stores the outcome of one run.
func (r *Registry) record(name string, start time.Time, latency time.Duration, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.status[name]
	if !ok {
		s = &CollectorStatus{Name: name}
		r.status[name] = s
	}
	s.LastRun = start
	s.RunCount++
	s.LastLatency = latency
	if err != nil {
		s.ErrorCount++
		s.LastError = err.Error()
		s.Healthy = false
		return
	}
	s.LastError = ""
	s.Healthy = true
}
