package network

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"sync/atomic"
	"time"

	"gitlab.com/tinyland/lab/sysgauge/collectors"
	"gitlab.com/tinyland/lab/sysgauge/rate"
	"gitlab.com/tinyland/lab/sysgauge/source"
)

const (
	collectorName        = "network"
	collectorDescription = "Network and disk throughput"

	// DefaultInterval is the network polling period.
	DefaultInterval = 500 * time.Millisecond

	DefaultDownloadMinCeiling = 100.0 // Mbps
	DefaultUploadMinCeiling   = 50.0  // Mbps
	DefaultDiskMinCeiling     = 50.0  // MB/s
)

// Config configures a Collector. Zero fields take the defaults.
type Config struct {
	Interval    time.Duration
	MinInterval time.Duration

	DownloadMinCeiling float64
	UploadMinCeiling   float64
	DiskMinCeiling     float64

	// Degraded marks that interface resolution failed at startup. The
	// collector still runs and reports disk rates.
	Degraded bool

	Now func() time.Time
}

// Collector implements collectors.Collector for throughput. The estimator
// and ceiling state belongs to the goroutine calling Collect; Reset may be
// called from anywhere and takes effect on the next collection.
type Collector struct {
	src    source.CounterSource
	cfg    Config
	logger *slog.Logger
	now    func() time.Time

	degraded atomic.Bool
	resetReq atomic.Bool

	download  *rate.Estimator
	upload    *rate.Estimator
	diskRead  *rate.Estimator
	diskWrite *rate.Estimator

	downCeil *rate.Ceiling
	upCeil   *rate.Ceiling
	diskCeil *rate.Ceiling

	recv sessionTotal
	sent sessionTotal

	lastIface string
	connected bool

	downHist      []float64
	upHist        []float64
	diskReadHist  []float64
	diskWriteHist []float64
}

// New returns a network Collector reading from src.
func New(src source.CounterSource, cfg Config, logger *slog.Logger) *Collector {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultInterval
	}
	if cfg.MinInterval <= 0 {
		cfg.MinInterval = rate.DefaultMinInterval
	}
	if cfg.DownloadMinCeiling <= 0 {
		cfg.DownloadMinCeiling = DefaultDownloadMinCeiling
	}
	if cfg.UploadMinCeiling <= 0 {
		cfg.UploadMinCeiling = DefaultUploadMinCeiling
	}
	if cfg.DiskMinCeiling <= 0 {
		cfg.DiskMinCeiling = DefaultDiskMinCeiling
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	est := func(scale float64) *rate.Estimator {
		return rate.NewEstimator(rate.Config{MinInterval: cfg.MinInterval, Scale: scale, Now: cfg.Now})
	}
	c := &Collector{
		src:       src,
		cfg:       cfg,
		logger:    logger,
		now:       cfg.Now,
		download:  est(rate.MegabitsPerSecond),
		upload:    est(rate.MegabitsPerSecond),
		diskRead:  est(rate.MegabytesPerSecond),
		diskWrite: est(rate.MegabytesPerSecond),
		downCeil:  rate.NewCeiling(rate.CeilingConfig{Min: cfg.DownloadMinCeiling}),
		upCeil:    rate.NewCeiling(rate.CeilingConfig{Min: cfg.UploadMinCeiling}),
		diskCeil:  rate.NewCeiling(rate.CeilingConfig{Min: cfg.DiskMinCeiling}),
	}
	c.degraded.Store(cfg.Degraded)
	return c
}

func (c *Collector) Name() string            { return collectorName }
func (c *Collector) Description() string     { return collectorDescription }
func (c *Collector) Interval() time.Duration { return c.cfg.Interval }

// Degraded reports whether the collector runs without a usable interface.
func (c *Collector) Degraded() bool { return c.degraded.Load() }

// SetDegraded updates the degraded flag, e.g. after a late interface
// resolution succeeds.
func (c *Collector) SetDegraded(v bool) { c.degraded.Store(v) }

// Reset asks the collector to drop rate baselines, ceilings, session totals
// and histories before its next collection.
func (c *Collector) Reset() { c.resetReq.Store(true) }

// Collect takes one sample. A failed counter read is not an error: the last
// estimates are returned flagged Stale with a warning.
func (c *Collector) Collect(ctx context.Context) (*collectors.CollectResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if c.resetReq.CompareAndSwap(true, false) {
		c.reset()
	}

	var warnings []string
	counters, err := c.src.ReadCounters(ctx)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		c.logger.Debug("network: counter read failed", slog.String("error", err.Error()))
		warnings = append(warnings, fmt.Sprintf("network: counters unavailable: %v", err))
		snap := c.stale(c.now())
		return &collectors.CollectResult{Collector: collectorName, Timestamp: snap.Timestamp, Data: snap, Warnings: warnings}, nil
	}

	at := counters.TakenAt
	if at.IsZero() {
		at = c.now()
	}
	snap := &Snapshot{Timestamp: at, Degraded: c.degraded.Load()}

	if counters.Has(source.GroupNet) {
		if counters.Interface != c.lastIface && c.lastIface != "" {
			// A different adapter has unrelated counters.
			c.download.Reset()
			c.upload.Reset()
			c.recv.rebase()
			c.sent.rebase()
			c.logger.Info("network: interface changed",
				slog.String("from", c.lastIface),
				slog.String("to", counters.Interface),
			)
		}
		c.lastIface = counters.Interface
		c.connected = true
		snap.Download = c.download.ObserveAt(counters.BytesRecv, at)
		snap.Upload = c.upload.ObserveAt(counters.BytesSent, at)
		snap.SessionRecvMiB = float64(c.recv.observe(counters.BytesRecv)) / bytesPerMiB
		snap.SessionSentMiB = float64(c.sent.observe(counters.BytesSent)) / bytesPerMiB
		c.downCeil.Update(snap.Download.PerSecond)
		c.upCeil.Update(snap.Upload.PerSecond)
	} else {
		c.connected = false
		snap.Download = c.download.Fail()
		snap.Upload = c.upload.Fail()
		snap.SessionRecvMiB = float64(c.recv.total()) / bytesPerMiB
		snap.SessionSentMiB = float64(c.sent.total()) / bytesPerMiB
		if !snap.Degraded {
			warnings = append(warnings, "network: interface counters unavailable")
		}
	}

	if counters.Has(source.GroupDiskIO) {
		snap.DiskRead = c.diskRead.ObserveAt(counters.DiskReadBytes, at)
		snap.DiskWrite = c.diskWrite.ObserveAt(counters.DiskWriteBytes, at)
		c.diskCeil.Update(math.Max(snap.DiskRead.PerSecond, snap.DiskWrite.PerSecond))
	} else {
		snap.DiskRead = c.diskRead.Fail()
		snap.DiskWrite = c.diskWrite.Fail()
		warnings = append(warnings, "network: disk counters unavailable")
	}

	c.fill(snap)
	c.appendHistory(snap)

	c.logger.Debug("network collected",
		slog.String("interface", snap.Interface),
		slog.Float64("down_mbps", snap.Download.PerSecond),
		slog.Float64("up_mbps", snap.Upload.PerSecond),
		slog.Float64("disk_read_mbs", snap.DiskRead.PerSecond),
		slog.Float64("disk_write_mbs", snap.DiskWrite.PerSecond),
	)

	return &collectors.CollectResult{
		Collector: collectorName,
		Timestamp: at,
		Data:      snap,
		Warnings:  warnings,
	}, nil
}

// stale builds a snapshot from the last known estimates.
func (c *Collector) stale(at time.Time) *Snapshot {
	snap := &Snapshot{
		Timestamp:      at,
		Degraded:       c.degraded.Load(),
		Stale:          true,
		Download:       c.download.Fail(),
		Upload:         c.upload.Fail(),
		DiskRead:       c.diskRead.Fail(),
		DiskWrite:      c.diskWrite.Fail(),
		SessionRecvMiB: float64(c.recv.total()) / bytesPerMiB,
		SessionSentMiB: float64(c.sent.total()) / bytesPerMiB,
	}
	c.fill(snap)
	c.appendHistory(snap)
	return snap
}

func (c *Collector) fill(snap *Snapshot) {
	snap.Interface = c.lastIface
	snap.AdapterKind = source.AdapterKind(c.lastIface)
	snap.Connected = c.connected && !snap.Stale
	snap.DownloadCeiling = c.downCeil.Value()
	snap.UploadCeiling = c.upCeil.Value()
	snap.DiskCeiling = c.diskCeil.Value()
}

func (c *Collector) appendHistory(snap *Snapshot) {
	c.downHist = collectors.AppendHistory(c.downHist, snap.Download.PerSecond)
	c.upHist = collectors.AppendHistory(c.upHist, snap.Upload.PerSecond)
	c.diskReadHist = collectors.AppendHistory(c.diskReadHist, snap.DiskRead.PerSecond)
	c.diskWriteHist = collectors.AppendHistory(c.diskWriteHist, snap.DiskWrite.PerSecond)

	snap.DownloadHistory = collectors.CopyHistory(c.downHist)
	snap.UploadHistory = collectors.CopyHistory(c.upHist)
	snap.DiskReadHistory = collectors.CopyHistory(c.diskReadHist)
	snap.DiskWriteHistory = collectors.CopyHistory(c.diskWriteHist)
}

func (c *Collector) reset() {
	c.download.Reset()
	c.upload.Reset()
	c.diskRead.Reset()
	c.diskWrite.Reset()
	c.downCeil.Reset()
	c.upCeil.Reset()
	c.diskCeil.Reset()
	c.recv.reset()
	c.sent.reset()
	c.downHist, c.upHist, c.diskReadHist, c.diskWriteHist = nil, nil, nil, nil
	c.logger.Info("network: counters reset")
}

// IsDegradedInit reports whether err from interface resolution should put
// the collector in degraded mode rather than abort startup.
func IsDegradedInit(err error) bool {
	return errors.Is(err, source.ErrNoInterface)
}

var _ collectors.Collector = (*Collector)(nil)
