// Package processes polls the process table and attributes CPU usage to
// each process between polls.
package processes

import (
	"cmp"
	"context"
	"io"
	"log/slog"
	"slices"
	"strings"
	"sync/atomic"
	"time"

	"gitlab.com/tinyland/lab/sysgauge/collectors"
	"gitlab.com/tinyland/lab/sysgauge/cpuacct"
	"gitlab.com/tinyland/lab/sysgauge/source"
)

const (
	collectorName        = "processes"
	collectorDescription = "Process table with per-process CPU usage"

	// DefaultInterval is the process polling period.
	DefaultInterval = 2 * time.Second
)

// Row is one process in a snapshot.
type Row struct {
	PID  int32  `json:"pid"`
	Name string `json:"name"`

	// CPU is the share of total machine capacity (0-100) since the previous
	// poll. Measured is false for a process seen for the first time or
	// whose CPU time could not be read.
	CPU      float64 `json:"cpu"`
	Measured bool    `json:"measured"`

	RSS     uint64 `json:"rss"`
	Threads int32  `json:"threads"`
	Status  string `json:"status,omitempty"`
}

// Snapshot is one process collection, sorted by CPU descending.
type Snapshot struct {
	Timestamp time.Time `json:"timestamp"`
	Rows      []Row     `json:"rows"`

	ProcessCount int     `json:"process_count"`
	ThreadCount  int     `json:"thread_count"`
	TotalCPU     float64 `json:"total_cpu"`
	// Unreadable counts processes whose CPU time could not be sampled.
	Unreadable int `json:"unreadable"`
	CoreCount  int `json:"core_count"`
}

// Top returns at most n rows. n <= 0 returns all of them.
func (s *Snapshot) Top(n int) []Row {
	if n <= 0 || n >= len(s.Rows) {
		return s.Rows
	}
	return s.Rows[:n]
}

// Lookup finds the row for pid.
func (s *Snapshot) Lookup(pid int32) (Row, bool) {
	for _, r := range s.Rows {
		if r.PID == pid {
			return r, true
		}
	}
	return Row{}, false
}

// Config configures a Collector.
type Config struct {
	Interval time.Duration

	// CoreCount normalizes CPU percentages. Zero uses the logical CPU count.
	CoreCount       int
	MaxMissedCycles int
	MinInterval     time.Duration

	Now func() time.Time
}

// Collector implements collectors.Collector for the process table. The
// accountant belongs to the goroutine calling Collect; ClearCPUCache may be
// called from anywhere and applies on the next collection.
type Collector struct {
	src    source.EntityLister
	cfg    Config
	logger *slog.Logger
	now    func() time.Time

	acct     *cpuacct.Accountant
	clearReq atomic.Bool
}

// New returns a process Collector over src.
func New(src source.EntityLister, cfg Config, logger *slog.Logger) *Collector {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultInterval
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Collector{
		src:    src,
		cfg:    cfg,
		logger: logger,
		now:    cfg.Now,
		acct: cpuacct.New(cpuacct.Config{
			CoreCount:       cfg.CoreCount,
			MinInterval:     cfg.MinInterval,
			MaxMissedCycles: cfg.MaxMissedCycles,
			Now:             cfg.Now,
		}),
	}
}

func (c *Collector) Name() string            { return collectorName }
func (c *Collector) Description() string     { return collectorDescription }
func (c *Collector) Interval() time.Duration { return c.cfg.Interval }

// ClearCPUCache drops every per-process baseline before the next poll.
func (c *Collector) ClearCPUCache() { c.clearReq.Store(true) }

// Collect lists processes and computes their CPU share. A failed listing
// is an error; the consumer keeps the previous snapshot.
func (c *Collector) Collect(ctx context.Context) (*collectors.CollectResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if c.clearReq.CompareAndSwap(true, false) {
		c.acct.Clear()
		c.logger.Debug("processes: cpu cache cleared")
	}

	entities, err := c.src.ListEntities(ctx)
	if err != nil {
		return nil, err
	}
	now := c.now()

	snap := &Snapshot{
		Timestamp: now,
		Rows:      make([]Row, 0, len(entities)),
		CoreCount: c.acct.CoreCount(),
	}
	for _, e := range entities {
		row := Row{
			PID:     e.PID,
			Name:    e.Name,
			RSS:     e.RSS,
			Threads: e.Threads,
			Status:  e.Status,
		}
		if e.Err != nil {
			c.acct.Touch(e.PID)
			snap.Unreadable++
		} else {
			row.CPU, row.Measured = c.acct.PercentAt(e.PID, e.CPUTime, now)
		}
		snap.ThreadCount += int(e.Threads)
		snap.TotalCPU += row.CPU
		snap.Rows = append(snap.Rows, row)
	}
	snap.ProcessCount = len(snap.Rows)
	snap.TotalCPU = min(snap.TotalCPU, 100)

	pruned := c.acct.EndCycle()

	slices.SortFunc(snap.Rows, func(a, b Row) int {
		if n := cmp.Compare(b.CPU, a.CPU); n != 0 {
			return n
		}
		if n := strings.Compare(strings.ToLower(a.Name), strings.ToLower(b.Name)); n != 0 {
			return n
		}
		return cmp.Compare(a.PID, b.PID)
	})

	c.logger.Debug("processes collected",
		slog.Int("count", snap.ProcessCount),
		slog.Int("threads", snap.ThreadCount),
		slog.Int("unreadable", snap.Unreadable),
		slog.Int("pruned", pruned),
	)

	return &collectors.CollectResult{
		Collector: collectorName,
		Timestamp: now,
		Data:      snap,
	}, nil
}

var _ collectors.Collector = (*Collector)(nil)
