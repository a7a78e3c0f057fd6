package monitor

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"gitlab.com/tinyland/lab/sysgauge/cache"
	"gitlab.com/tinyland/lab/sysgauge/source"
)

// Services returns the cached service listing while it is fresh.
func (m *Monitor) Services() ([]source.Service, bool) { return m.services.Get() }

// Programs returns the cached program listing while it is fresh.
func (m *Monitor) Programs() ([]source.Program, bool) { return m.programs.Get() }

// Startup returns the cached startup listing while it is fresh.
func (m *Monitor) Startup() ([]source.StartupEntry, bool) { return m.startup.Get() }

// CachedEnumeration returns the fresh listing for kind as its typed slice
// ([]source.Service, []source.Program or []source.StartupEntry).
func (m *Monitor) CachedEnumeration(kind Kind) (any, bool) {
	switch kind {
	case KindServices:
		return m.Services()
	case KindPrograms:
		return m.Programs()
	case KindStartup:
		return m.Startup()
	}
	return nil, false
}

// LastKnown returns the stored listing for kind even when stale, with the
// time it was captured.
func (m *Monitor) LastKnown(kind Kind) (any, time.Time, bool) {
	switch kind {
	case KindServices:
		return m.services.Peek()
	case KindPrograms:
		return m.programs.Peek()
	case KindStartup:
		return m.startup.Peek()
	}
	return nil, time.Time{}, false
}

// Enumerate returns the listing for kind, rebuilding it when the cache is
// empty or stale. Concurrent callers may both rebuild; the last one wins.
func (m *Monitor) Enumerate(ctx context.Context, kind Kind) (any, error) {
	switch kind {
	case KindServices:
		return loadSlot(ctx, m, kind, m.services, m.deps.Services)
	case KindPrograms:
		return loadSlot(ctx, m, kind, m.programs, m.deps.Programs)
	case KindStartup:
		return loadSlot(ctx, m, kind, m.startup, m.deps.Startup)
	}
	return nil, fmt.Errorf("monitor: unknown enumeration %q", kind)
}

// ForceRefresh discards the cached listing for kind and rebuilds it.
func (m *Monitor) ForceRefresh(ctx context.Context, kind Kind) (any, error) {
	switch kind {
	case KindServices:
		m.services.Invalidate()
	case KindPrograms:
		m.programs.Invalidate()
	case KindStartup:
		m.startup.Invalidate()
	default:
		return nil, fmt.Errorf("monitor: unknown enumeration %q", kind)
	}
	return m.Enumerate(ctx, kind)
}

// DisableStartup turns off a login item and drops the cached listing.
func (m *Monitor) DisableStartup(entry source.StartupEntry) error {
	if m.deps.Disabler == nil {
		return fmt.Errorf("monitor: disable startup entry: %w", ErrNotConfigured)
	}
	if err := m.deps.Disabler.Disable(entry); err != nil {
		return fmt.Errorf("monitor: disable startup entry %s: %w", entry.Name, err)
	}
	m.startup.Invalidate()
	return nil
}

func loadSlot[T any](ctx context.Context, m *Monitor, kind Kind, slot *cache.Slot[[]T], e source.Enumerator[T]) ([]T, error) {
	if e == nil {
		return nil, fmt.Errorf("monitor: %s: %w", kind, ErrNotConfigured)
	}
	start := m.deps.Now()
	items, err := slot.GetOrLoad(ctx, e.Enumerate)
	if err != nil {
		return nil, fmt.Errorf("monitor: enumerate %s: %w", kind, err)
	}
	m.logger.Debug("monitor: enumeration ready",
		slog.String("kind", string(kind)),
		slog.Int("items", len(items)),
		slog.Duration("took", m.deps.Now().Sub(start)),
	)
	return items, nil
}

// Hardware returns the machine description, reading it when the cached
// copy is missing, older than ten minutes, or force is set.
func (m *Monitor) Hardware(ctx context.Context, force bool) (source.HardwareInfo, error) {
	if m.deps.Hardware == nil {
		return source.HardwareInfo{}, fmt.Errorf("monitor: hardware: %w", ErrNotConfigured)
	}
	if force {
		m.hardware.Invalidate()
	}
	info, err := m.hardware.GetOrLoad(ctx, m.deps.Hardware.Hardware)
	if err != nil {
		return source.HardwareInfo{}, fmt.Errorf("monitor: read hardware: %w", err)
	}
	return info, nil
}
