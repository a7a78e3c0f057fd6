// Package monitor ties the polling loops, the rate state and the cached
// enumerations together behind one facade for the display layer and the
// daemon. Polling runs on background goroutines; readers get the latest
// snapshots under a single RWMutex and are told about new data through
// Updates.
package monitor

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"gitlab.com/tinyland/lab/sysgauge/cache"
	"gitlab.com/tinyland/lab/sysgauge/collectors"
	"gitlab.com/tinyland/lab/sysgauge/collectors/network"
	"gitlab.com/tinyland/lab/sysgauge/collectors/processes"
	"gitlab.com/tinyland/lab/sysgauge/collectors/retry"
	"gitlab.com/tinyland/lab/sysgauge/collectors/sysmetrics"
	"gitlab.com/tinyland/lab/sysgauge/config"
	"gitlab.com/tinyland/lab/sysgauge/rate"
	"gitlab.com/tinyland/lab/sysgauge/source"
)

var (
	// ErrNotConfigured is returned when an operation needs a dependency
	// that was not supplied.
	ErrNotConfigured = errors.New("monitor: dependency not configured")

	// ErrAlreadyStarted is returned by a second Start.
	ErrAlreadyStarted = errors.New("monitor: already started")
)

const (
	eventBufferSize = 64
	resolveTimeout  = 5 * time.Second

	// hardwareTTL is how long the hardware description is reused.
	hardwareTTL = 10 * time.Minute
)

// Deps are the collaborators a Monitor reads from. Counters is required;
// the rest are optional and the matching features report ErrNotConfigured.
type Deps struct {
	Counters source.CounterSource
	Entities source.EntityLister

	Services source.Enumerator[source.Service]
	Programs source.Enumerator[source.Program]
	Startup  source.Enumerator[source.StartupEntry]
	Hardware source.HardwareReader

	Resolver   InterfaceResolver
	Controller ProcessController
	Disabler   StartupDisabler

	// Store, when set, lets the system collector restore its history.
	Store *cache.Store

	// Now overrides the clock for caches, breakers and collectors.
	Now func() time.Time
}

// Monitor is the facade. Create it with New, then Start it.
type Monitor struct {
	cfg    *config.Config
	deps   Deps
	logger *slog.Logger

	netC  *network.Collector
	procC *processes.Collector

	registry *collectors.Registry
	breakers map[string]*retry.CircuitBreaker
	runner   *collectors.Runner
	updates  chan collectors.Update
	events   chan Event

	services *cache.Slot[[]source.Service]
	programs *cache.Slot[[]source.Program]
	startup  *cache.Slot[[]source.StartupEntry]
	hardware *cache.Slot[source.HardwareInfo]

	mu       sync.RWMutex
	started  bool
	degraded bool
	initErr  error
	net      *network.Snapshot
	procs    *processes.Snapshot
	sys      *sysmetrics.SysMetricsData

	cancel    context.CancelFunc
	consumed  chan struct{}
	stopOnce  sync.Once
	startOnce sync.Once
}

// New builds a Monitor from cfg. Nothing is read until Start. A nil cfg
// uses config.DefaultConfig.
func New(cfg *config.Config, deps Deps, logger *slog.Logger) (*Monitor, error) {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("monitor: invalid config: %w", err)
	}
	if deps.Counters == nil {
		return nil, fmt.Errorf("monitor: counter source: %w", ErrNotConfigured)
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}

	netInterval, procInterval, sysInterval, minSample := cfg.Intervals()

	m := &Monitor{
		cfg:      cfg,
		deps:     deps,
		logger:   logger,
		registry: collectors.NewRegistry(),
		breakers: make(map[string]*retry.CircuitBreaker),
		updates:  make(chan collectors.Update, collectors.DefaultUpdateBufferSize),
		events:   make(chan Event, eventBufferSize),
		consumed: make(chan struct{}),
	}

	m.netC = network.New(deps.Counters, network.Config{
		Interval:           netInterval,
		MinInterval:        minSample,
		DownloadMinCeiling: cfg.Network.DownloadMinCeiling,
		UploadMinCeiling:   cfg.Network.UploadMinCeiling,
		DiskMinCeiling:     cfg.Network.DiskMinCeiling,
		Now:                deps.Now,
	}, logger)
	m.register(m.netC)

	if deps.Entities != nil {
		m.procC = processes.New(deps.Entities, processes.Config{
			Interval:        procInterval,
			CoreCount:       cfg.Processes.CoreCount,
			MaxMissedCycles: cfg.Processes.MaxMissedCycles,
			MinInterval:     minSample,
			Now:             deps.Now,
		}, logger)
		m.register(m.procC)
	}

	m.register(sysmetrics.NewSysMetricsCollector(deps.Counters, sysInterval, deps.Store, logger))

	m.runner = collectors.NewRunner(m.registry, m.updates, logger)

	ttl := cfg.EnumerationTTL()
	clock := cache.WithClock(deps.Now)
	m.services = cache.NewSlot[[]source.Service](ttl, clock)
	m.programs = cache.NewSlot[[]source.Program](ttl, clock)
	m.startup = cache.NewSlot[[]source.StartupEntry](ttl, clock)
	m.hardware = cache.NewSlot[source.HardwareInfo](hardwareTTL, clock)

	return m, nil
}

func (m *Monitor) register(c collectors.Collector) {
	cb := retry.NewCircuitBreaker(c, retry.Config{Logger: m.logger, Now: m.deps.Now})
	m.breakers[c.Name()] = cb
	m.registry.Register(cb)
}

// Start resolves the network interface and launches the polling loops.
// Failing to find an interface is not an error: the monitor runs in
// degraded mode and Status reports it.
func (m *Monitor) Start(ctx context.Context) error {
	err := ErrAlreadyStarted
	m.startOnce.Do(func() {
		err = nil
		m.resolveInterface(ctx)

		ctx, cancel := context.WithCancel(ctx)
		m.mu.Lock()
		m.cancel = cancel
		m.started = true
		m.mu.Unlock()

		m.runner.Start(ctx)
		go m.consume(ctx)
	})
	return err
}

func (m *Monitor) resolveInterface(ctx context.Context) {
	if m.deps.Resolver == nil {
		return
	}
	rctx, cancel := context.WithTimeout(ctx, resolveTimeout)
	defer cancel()

	iface, err := m.deps.Resolver.ResolveInterface(rctx)
	if err == nil {
		m.logger.Info("monitor: network interface selected", slog.String("interface", iface))
		return
	}
	if network.IsDegradedInit(err) {
		m.logger.Warn("monitor: no usable network interface, running degraded", slog.String("error", err.Error()))
		m.mu.Lock()
		m.degraded = true
		m.initErr = err
		m.mu.Unlock()
		m.netC.SetDegraded(true)
		return
	}
	// Anything else is transient; the source resolves again on read.
	m.logger.Debug("monitor: interface resolution failed", slog.String("error", err.Error()))
}

// Stop halts polling and closes the Updates channel. It reports whether
// every loop exited within the runner's stop timeout.
func (m *Monitor) Stop() bool {
	clean := true
	m.stopOnce.Do(func() {
		// A monitor stopped before it started can no longer start.
		m.startOnce.Do(func() {})

		m.mu.RLock()
		cancel := m.cancel
		m.mu.RUnlock()
		if cancel == nil {
			close(m.events)
			return
		}
		clean = m.runner.Stop()
		cancel()
		<-m.consumed
		close(m.events)
	})
	return clean
}

// Updates delivers one Event per collection. Slow readers miss events, never
// data: the accessors always return the latest snapshot.
func (m *Monitor) Updates() <-chan Event {
	return m.events
}

func (m *Monitor) consume(ctx context.Context) {
	defer close(m.consumed)
	for {
		select {
		case <-ctx.Done():
			return
		case u := <-m.updates:
			ev := m.apply(u)
			select {
			case m.events <- ev:
			default:
			}
		}
	}
}

// apply stores the result of one collection.
func (m *Monitor) apply(u collectors.Update) Event {
	ev := Event{Source: u.Source, Time: u.Timestamp, Err: u.Error}
	if u.Result != nil {
		ev.Warnings = u.Result.Warnings
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if u.Error != nil || u.Result == nil {
		return ev
	}
	switch d := u.Result.Data.(type) {
	case *network.Snapshot:
		m.net = d
	case *processes.Snapshot:
		m.procs = d
	case *sysmetrics.SysMetricsData:
		m.sys = d
	}
	return ev
}

// Refresh collects from the named loop right away.
func (m *Monitor) Refresh(ctx context.Context, name string) error {
	res, err := m.runner.RunOnce(ctx, name)
	m.apply(collectors.Update{Source: name, Result: res, Timestamp: m.deps.Now(), Error: err})
	return err
}

// LatestRate returns the most recent estimate for q. Before the first
// collection it is the invalid zero estimate.
func (m *Monitor) LatestRate(q Quantity) rate.Estimate {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.net == nil {
		return rate.Estimate{}
	}
	switch q {
	case Download:
		return m.net.Download
	case Upload:
		return m.net.Upload
	case DiskRead:
		return m.net.DiskRead
	case DiskWrite:
		return m.net.DiskWrite
	}
	return rate.Estimate{}
}

// DisplayCeiling returns the current gauge maximum for q.
func (m *Monitor) DisplayCeiling(q Quantity) float64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.net == nil {
		switch q {
		case Download:
			return m.cfg.Network.DownloadMinCeiling
		case Upload:
			return m.cfg.Network.UploadMinCeiling
		default:
			return m.cfg.Network.DiskMinCeiling
		}
	}
	switch q {
	case Download:
		return m.net.DownloadCeiling
	case Upload:
		return m.net.UploadCeiling
	default:
		return m.net.DiskCeiling
	}
}

// Network returns the latest network snapshot. Snapshots are never
// modified after publication; callers must not modify them either.
func (m *Monitor) Network() (*network.Snapshot, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.net, m.net != nil
}

// Processes returns the latest process snapshot.
func (m *Monitor) Processes() (*processes.Snapshot, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.procs, m.procs != nil
}

// System returns the latest system gauges.
func (m *Monitor) System() (*sysmetrics.SysMetricsData, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.sys, m.sys != nil
}

// EntityCPUPercent returns the CPU share of pid from the latest process
// snapshot. measured is false for unknown pids and first observations.
func (m *Monitor) EntityCPUPercent(pid int32) (pct float64, measured bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.procs == nil {
		return 0, false
	}
	row, ok := m.procs.Lookup(pid)
	if !ok {
		return 0, false
	}
	return row.CPU, row.Measured
}

// ResetNetwork drops rate baselines, ceilings and session totals. It takes
// effect on the next network collection.
func (m *Monitor) ResetNetwork() {
	m.netC.Reset()
}

// ClearCPUCache drops every per-process CPU baseline.
func (m *Monitor) ClearCPUCache() {
	if m.procC != nil {
		m.procC.ClearCPUCache()
	}
}

// Control applies a process action.
func (m *Monitor) Control(ctx context.Context, pid int32, action source.Action) error {
	if m.deps.Controller == nil {
		return fmt.Errorf("monitor: process control: %w", ErrNotConfigured)
	}
	if err := m.deps.Controller.Do(ctx, pid, action); err != nil {
		return fmt.Errorf("monitor: %s %d: %w", action, pid, err)
	}
	m.logger.Info("monitor: process action", slog.String("action", string(action)), slog.Int("pid", int(pid)))
	return nil
}

// SetPriority changes the scheduling priority of pid.
func (m *Monitor) SetPriority(pid int32, p source.Priority) error {
	if m.deps.Controller == nil {
		return fmt.Errorf("monitor: process priority: %w", ErrNotConfigured)
	}
	if err := m.deps.Controller.SetPriority(pid, p); err != nil {
		return fmt.Errorf("monitor: set priority %s on %d: %w", p, pid, err)
	}
	return nil
}

// Status reports degraded mode, per-quantity availability and collector
// health.
func (m *Monitor) Status() Status {
	m.mu.RLock()
	st := Status{
		Started:   m.started,
		Degraded:  m.degraded,
		Available: make(map[Quantity]bool, len(Quantities)),
	}
	if m.initErr != nil {
		st.InitError = m.initErr.Error()
	}
	if m.net != nil {
		st.Interface = m.net.Interface
		live := !m.net.Stale
		st.Available[Download] = live && m.net.Connected && m.net.Download.Valid
		st.Available[Upload] = live && m.net.Connected && m.net.Upload.Valid
		st.Available[DiskRead] = live && m.net.DiskRead.Valid
		st.Available[DiskWrite] = live && m.net.DiskWrite.Valid
	} else {
		for _, q := range Quantities {
			st.Available[q] = false
		}
	}
	m.mu.RUnlock()

	for _, cs := range m.registry.AllStatus() {
		h := CollectorHealth{
			Name:      cs.Name,
			Healthy:   cs.Healthy,
			RunCount:  cs.RunCount,
			LastRun:   cs.LastRun,
			LastError: cs.LastError,
		}
		if cb, ok := m.breakers[cs.Name]; ok {
			h.Circuit = cb.State()
		}
		st.Collectors = append(st.Collectors, h)
	}
	return st
}
