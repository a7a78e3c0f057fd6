// Package source reads raw counters, process tables and installed-software
// listings from the host. Everything above it (collectors, monitor,
// dashboard) talks to these interfaces, so tests can swap in the fakes
// from fake.go.
package source

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrUnavailable marks a transient read failure. Callers keep their last
	// value and try again next poll.
	ErrUnavailable = errors.New("source: counters unavailable")

	// ErrNoInterface means no usable network interface could be resolved.
	// Reported once at startup and shown as degraded mode.
	ErrNoInterface = errors.New("source: no usable network interface")

	// ErrNotFound is returned by Controller when the pid does not exist.
	ErrNotFound = errors.New("source: process not found")
)

// Group identifies one family of counters inside Counters.
type Group uint16

const (
	GroupNet Group = 1 << iota
	GroupCPU
	GroupDiskIO
	GroupDiskUsage
	GroupMemory
	GroupLoad
	GroupUptime

	GroupAll = GroupNet | GroupCPU | GroupDiskIO | GroupDiskUsage | GroupMemory | GroupLoad | GroupUptime
)

var groupNames = []struct {
	g    Group
	name string
}{
	{GroupNet, "net"},
	{GroupCPU, "cpu"},
	{GroupDiskIO, "diskio"},
	{GroupDiskUsage, "disk"},
	{GroupMemory, "memory"},
	{GroupLoad, "load"},
	{GroupUptime, "uptime"},
}

// Names lists the groups set in g.
func (g Group) Names() []string {
	var out []string
	for _, gn := range groupNames {
		if g&gn.g != 0 {
			out = append(out, gn.name)
		}
	}
	return out
}

// Counters is one point-in-time read of cumulative host counters. Groups
// that could not be read are absent from Valid and left zero.
type Counters struct {
	TakenAt time.Time `json:"taken_at"`
	Valid   Group     `json:"valid"`

	// Interface is the resolved network interface the byte counters belong to.
	Interface string `json:"interface,omitempty"`
	BytesRecv uint64 `json:"bytes_recv"`
	BytesSent uint64 `json:"bytes_sent"`

	// CPUBusy and CPUTotal are cumulative seconds summed over all cores.
	CPUBusy  float64 `json:"cpu_busy"`
	CPUTotal float64 `json:"cpu_total"`

	DiskReadBytes  uint64 `json:"disk_read_bytes"`
	DiskWriteBytes uint64 `json:"disk_write_bytes"`

	DiskUsed  uint64 `json:"disk_used"`
	DiskTotal uint64 `json:"disk_total"`

	MemUsed  uint64 `json:"mem_used"`
	MemTotal uint64 `json:"mem_total"`

	Load1  float64 `json:"load1"`
	Load5  float64 `json:"load5"`
	Load15 float64 `json:"load15"`

	Uptime time.Duration `json:"uptime"`
}

// Has reports whether every group in g was read successfully.
func (c Counters) Has(g Group) bool {
	return c.Valid&g == g
}

// CounterSource supplies cumulative counters on demand.
//
// ReadCounters fills what it can. It returns an error wrapping
// ErrUnavailable only when no group at all could be read, or the context's
// error when cancelled.
type CounterSource interface {
	ReadCounters(ctx context.Context) (Counters, error)
}

// Entity is one running process.
type Entity struct {
	PID     int32         `json:"pid"`
	Name    string        `json:"name"`
	CPUTime time.Duration `json:"cpu_time"`
	RSS     uint64        `json:"rss"`
	Threads int32         `json:"threads"`
	Status  string        `json:"status,omitempty"`

	// Err is set when the CPU time for this entity could not be read. The
	// entity still exists; CPUTime is zero and must not be used.
	Err error `json:"-"`
}

// EntityLister returns a snapshot of running processes.
type EntityLister interface {
	ListEntities(ctx context.Context) ([]Entity, error)
}

// HardwareReader describes the machine itself.
type HardwareReader interface {
	Hardware(ctx context.Context) (HardwareInfo, error)
}

// Enumerator performs an expensive bulk listing.
type Enumerator[T any] interface {
	Enumerate(ctx context.Context) ([]T, error)
}

// EnumeratorFunc adapts a function to Enumerator.
type EnumeratorFunc[T any] func(ctx context.Context) ([]T, error)

// Enumerate calls f.
func (f EnumeratorFunc[T]) Enumerate(ctx context.Context) ([]T, error) {
	return f(ctx)
}

// Service is one system service unit.
type Service struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Type        string `json:"type,omitempty"`
	State       string `json:"state"`
	Path        string `json:"path"`
}

// Program is one installed package.
type Program struct {
	Name        string `json:"name"`
	Version     string `json:"version,omitempty"`
	Maintainer  string `json:"maintainer,omitempty"`
	Section     string `json:"section,omitempty"`
	InstalledKB uint64 `json:"installed_kb,omitempty"`
}

// StartupEntry is one program launched at login.
type StartupEntry struct {
	Name    string `json:"name"`
	Exec    string `json:"exec"`
	Hidden  bool   `json:"hidden"`
	Path    string `json:"path"`
	Comment string `json:"comment,omitempty"`
}
