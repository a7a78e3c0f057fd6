package sysmetrics

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"gitlab.com/tinyland/lab/sysgauge/cache"
	"gitlab.com/tinyland/lab/sysgauge/collectors"
	"gitlab.com/tinyland/lab/sysgauge/source"
)

const (
	// collectorName is the unique identifier for this collector.
	collectorName = "sysmetrics"

	collectorDescription = "Local system metrics (CPU, RAM, Disk, Load Average, Uptime)"

	// DefaultInterval is the system gauge polling period.
	DefaultInterval = time.Second

	// historyMaxAge bounds how old a persisted snapshot may be for its
	// history to be restored.
	historyMaxAge = 10 * time.Minute
)

// SysMetricsCollector implements collectors.Collector for the host gauges.
// History rings survive daemon restarts when a cache store is attached.
type SysMetricsCollector struct {
	src      source.CounterSource
	logger   *slog.Logger
	interval time.Duration
	now      func() time.Time

	// store, when set, is read once on the first run to restore history.
	store    *cache.Store
	firstRun bool

	// prevBusy and prevTotal are the last cumulative CPU seconds.
	prevBusy  float64
	prevTotal float64
	havePrev  bool

	cpuHistory  []float64
	ramHistory  []float64
	diskHistory []float64
}

// NewSysMetricsCollector creates a SysMetricsCollector reading src. store
// may be nil. If logger is nil, a no-op logger is used.
func NewSysMetricsCollector(src source.CounterSource, interval time.Duration, store *cache.Store, logger *slog.Logger) *SysMetricsCollector {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &SysMetricsCollector{
		src:      src,
		logger:   logger,
		interval: interval,
		now:      time.Now,
		store:    store,
		firstRun: true,
	}
}

func (c *SysMetricsCollector) Name() string            { return collectorName }
func (c *SysMetricsCollector) Description() string     { return collectorDescription }
func (c *SysMetricsCollector) Interval() time.Duration { return c.interval }

// Collect reads the counters and derives the gauges. Groups the source
// could not read keep their previous history value and add a warning.
func (c *SysMetricsCollector) Collect(ctx context.Context) (*collectors.CollectResult, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	if c.firstRun {
		c.restoreHistory()
		c.firstRun = false
	}

	counters, err := c.src.ReadCounters(ctx)
	if err != nil {
		return nil, fmt.Errorf("sysmetrics: %w", err)
	}

	var warnings []string
	data := &SysMetricsData{Timestamp: counters.TakenAt}
	if data.Timestamp.IsZero() {
		data.Timestamp = c.now()
	}

	if counters.Has(source.GroupCPU) {
		data.CPU, data.CPUValid = c.cpuPercent(counters.CPUBusy, counters.CPUTotal)
	} else {
		warnings = append(warnings, "sysmetrics: cpu times unavailable")
	}

	if counters.Has(source.GroupMemory) {
		data.RAMUsed, data.RAMTotal = counters.MemUsed, counters.MemTotal
		data.RAM = percent(counters.MemUsed, counters.MemTotal)
	} else {
		warnings = append(warnings, "sysmetrics: memory unavailable")
	}

	if counters.Has(source.GroupDiskUsage) {
		data.DiskUsed, data.DiskTotal = counters.DiskUsed, counters.DiskTotal
		data.Disk = percent(counters.DiskUsed, counters.DiskTotal)
	} else {
		warnings = append(warnings, "sysmetrics: disk usage unavailable")
	}

	if counters.Has(source.GroupLoad) {
		data.LoadAvg1, data.LoadAvg5, data.LoadAvg15 = counters.Load1, counters.Load5, counters.Load15
	}
	if counters.Has(source.GroupUptime) {
		data.Uptime = counters.Uptime
	}

	c.cpuHistory = appendAndTrim(c.cpuHistory, data.CPU)
	c.ramHistory = appendAndTrim(c.ramHistory, data.RAM)
	c.diskHistory = appendAndTrim(c.diskHistory, data.Disk)

	data.CPUHistory = collectors.CopyHistory(c.cpuHistory)
	data.RAMHistory = collectors.CopyHistory(c.ramHistory)
	data.DiskHistory = collectors.CopyHistory(c.diskHistory)

	c.logger.Debug("sysmetrics collected",
		"cpu", fmt.Sprintf("%.1f%%", data.CPU),
		"ram", fmt.Sprintf("%.1f%%", data.RAM),
		"disk", fmt.Sprintf("%.1f%%", data.Disk),
		"load", fmt.Sprintf("%.2f %.2f %.2f", data.LoadAvg1, data.LoadAvg5, data.LoadAvg15),
		"history_len", len(data.CPUHistory),
	)

	return &collectors.CollectResult{
		Collector: collectorName,
		Timestamp: data.Timestamp,
		Data:      data,
		Warnings:  warnings,
	}, nil
}

// cpuPercent computes the busy share between two cumulative readings. The
// first reading and any reading that went backwards only seed the baseline.
func (c *SysMetricsCollector) cpuPercent(busy, total float64) (float64, bool) {
	if !c.havePrev || total < c.prevTotal || busy < c.prevBusy {
		c.prevBusy, c.prevTotal, c.havePrev = busy, total, true
		return 0, false
	}

	deltaTotal := total - c.prevTotal
	deltaBusy := busy - c.prevBusy
	c.prevBusy, c.prevTotal = busy, total

	if deltaTotal <= 0 {
		return 0, true
	}
	return clampPct(deltaBusy / deltaTotal * 100), true
}

// restoreHistory loads the rings from the last persisted snapshot.
func (c *SysMetricsCollector) restoreHistory() {
	if c.store == nil {
		return
	}
	prev, ok, err := cache.GetTyped[SysMetricsData](c.store, cache.KeySystem, historyMaxAge)
	if err != nil {
		c.logger.Warn("failed to read previous sysmetrics snapshot", "error", err)
		return
	}
	if !ok || prev == nil {
		c.logger.Debug("no previous sysmetrics snapshot")
		return
	}
	c.cpuHistory = trimHistory(prev.CPUHistory)
	c.ramHistory = trimHistory(prev.RAMHistory)
	c.diskHistory = trimHistory(prev.DiskHistory)

	c.logger.Debug("loaded previous sysmetrics history",
		"cpu_samples", len(c.cpuHistory),
		"ram_samples", len(c.ramHistory),
		"disk_samples", len(c.diskHistory),
	)
}

func trimHistory(h []float64) []float64 {
	if len(h) > MaxHistorySamples {
		h = h[len(h)-MaxHistorySamples:]
	}
	return collectors.CopyHistory(h)
}

// Compile-time interface compliance check.
var _ collectors.Collector = (*SysMetricsCollector)(nil)
