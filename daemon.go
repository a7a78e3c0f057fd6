package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"gitlab.com/tinyland/lab/sysgauge/cache"
	"gitlab.com/tinyland/lab/sysgauge/collectors/network"
	"gitlab.com/tinyland/lab/sysgauge/collectors/processes"
	"gitlab.com/tinyland/lab/sysgauge/collectors/sysmetrics"
	"gitlab.com/tinyland/lab/sysgauge/config"
	"gitlab.com/tinyland/lab/sysgauge/monitor"
)

// statusWriteInterval limits how often status.json and health.json are
// rewritten; the network loop alone reports twice a second.
const statusWriteInterval = time.Second

// snapshotSource is the slice of *monitor.Monitor the daemon needs.
type snapshotSource interface {
	Start(ctx context.Context) error
	Stop() bool
	Updates() <-chan monitor.Event
	Network() (*network.Snapshot, bool)
	Processes() (*processes.Snapshot, bool)
	System() (*sysmetrics.SysMetricsData, bool)
	Status() monitor.Status
}

var _ snapshotSource = (*monitor.Monitor)(nil)

// daemon runs the monitor headless and persists the latest snapshot of
// every collector to the shared cache after each update.
type daemon struct {
	config  *config.Config
	logger  *slog.Logger
	store   *cache.Store
	source  snapshotSource
	pidFile string
	now     func() time.Time

	lastStatus time.Time
}

// newDaemon creates a daemon around src, writing into store.
func newDaemon(cfg *config.Config, src snapshotSource, store *cache.Store, logger *slog.Logger) *daemon {
	return &daemon{
		config:  cfg,
		logger:  logger,
		store:   store,
		source:  src,
		pidFile: filepath.Join(store.Dir(), "sysgauge.pid"),
		now:     time.Now,
	}
}

// writePIDFile writes the current process PID to the PID file.
// The PID file path is {CacheDir}/sysgauge.pid.
func (d *daemon) writePIDFile() error {
	dir := filepath.Dir(d.pidFile)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create PID file directory: %w", err)
	}
	pid := os.Getpid()
	data := []byte(strconv.Itoa(pid))
	if err := os.WriteFile(d.pidFile, data, 0o644); err != nil {
		return fmt.Errorf("write PID file: %w", err)
	}
	d.logger.Info("wrote PID file", "path", d.pidFile, "pid", pid)
	return nil
}

// removePIDFile removes the PID file on shutdown.
func (d *daemon) removePIDFile() {
	if err := os.Remove(d.pidFile); err != nil && !os.IsNotExist(err) {
		d.logger.Error("failed to remove PID file", "path", d.pidFile, "error", err)
		return
	}
	d.logger.Info("removed PID file", "path", d.pidFile)
}

// isRunning checks if another daemon instance is already running by reading
// the PID file and checking if the process exists. A stale or corrupt PID
// file is cleaned up.
func (d *daemon) isRunning() (bool, int) {
	data, err := os.ReadFile(d.pidFile)
	if err != nil {
		return false, 0
	}

	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		d.logger.Warn("corrupt PID file, removing", "path", d.pidFile, "content", string(data))
		os.Remove(d.pidFile)
		return false, 0
	}

	process, err := os.FindProcess(pid)
	if err != nil {
		os.Remove(d.pidFile)
		return false, 0
	}

	// Signal 0 probes for existence without delivering anything.
	if err := process.Signal(syscall.Signal(0)); err != nil {
		d.logger.Warn("stale PID file, removing", "path", d.pidFile, "pid", pid)
		os.Remove(d.pidFile)
		return false, 0
	}

	return true, pid
}

// run starts the monitor and persists snapshots until the context is
// cancelled or the monitor stops.
func (d *daemon) run(ctx context.Context) error {
	if running, pid := d.isRunning(); running {
		return fmt.Errorf("daemon already running (PID %d)", pid)
	}

	if err := d.writePIDFile(); err != nil {
		return fmt.Errorf("write PID file: %w", err)
	}
	defer d.removePIDFile()

	if err := d.source.Start(ctx); err != nil {
		return fmt.Errorf("start monitor: %w", err)
	}
	defer func() {
		if !d.source.Stop() {
			d.logger.Warn("collectors did not stop in time")
		}
	}()

	updates := d.source.Updates()
	for {
		select {
		case <-ctx.Done():
			d.logger.Info("daemon shutting down gracefully")
			d.shutdown()
			return ctx.Err()
		case ev, ok := <-updates:
			if !ok {
				d.logger.Info("monitor stopped")
				d.shutdown()
				return nil
			}
			d.handle(ev)
		}
	}
}

// handle logs an update and writes the matching snapshot.
func (d *daemon) handle(ev monitor.Event) {
	for _, w := range ev.Warnings {
		d.logger.Warn("collector warning", "name", ev.Source, "warning", w)
	}
	if ev.Err != nil {
		d.logger.Error("collector failed", "name", ev.Source, "error", ev.Err)
	} else if err := d.persist(ev.Source); err != nil {
		d.logger.Error("cache write failed", "name", ev.Source, "error", err)
	}

	now := d.now()
	if now.Sub(d.lastStatus) < statusWriteInterval {
		return
	}
	d.lastStatus = now
	if err := d.writeStatus(now); err != nil {
		d.logger.Error("status write failed", "error", err)
	}
}

// persist writes the latest snapshot of the named collector.
func (d *daemon) persist(name string) error {
	switch name {
	case "network":
		if snap, ok := d.source.Network(); ok {
			return d.store.Set(cache.KeyNetwork, snap)
		}
	case "processes":
		if snap, ok := d.source.Processes(); ok {
			return d.store.Set(cache.KeyProcesses, snap)
		}
	case "sysmetrics":
		if snap, ok := d.source.System(); ok {
			return d.store.Set(cache.KeySystem, snap)
		}
	default:
		d.logger.Debug("no snapshot key for collector", "name", name)
	}
	return nil
}

// writeStatus persists the monitor status and the health file.
func (d *daemon) writeStatus(now time.Time) error {
	st := d.source.Status()
	if err := d.store.Set(cache.KeyStatus, st); err != nil {
		return err
	}
	return writeHealthFile(d.store, newHealthStatus(st, os.Getpid(), now))
}

// shutdown performs cleanup on daemon exit, logging final cache state.
func (d *daemon) shutdown() {
	d.logger.Info("performing shutdown cleanup")
	if err := d.writeStatus(d.now()); err != nil {
		d.logger.Error("final status write failed", "error", err)
	}
	entries, err := d.store.Entries()
	if err != nil {
		return
	}
	for _, e := range entries {
		d.logger.Info("cache entry at shutdown",
			"key", e.Key,
			"age", d.now().Sub(e.WrittenAt).String(),
		)
	}
}
