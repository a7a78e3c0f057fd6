package monitor

import (
	"context"
	"fmt"
	"time"

	"gitlab.com/tinyland/lab/sysgauge/collectors/retry"
	"gitlab.com/tinyland/lab/sysgauge/source"
)

// Quantity is one displayed rate.
type Quantity int

const (
	Download Quantity = iota
	Upload
	DiskRead
	DiskWrite
)

// Quantities lists every Quantity in display order.
var Quantities = []Quantity{Download, Upload, DiskRead, DiskWrite}

func (q Quantity) String() string {
	switch q {
	case Download:
		return "download"
	case Upload:
		return "upload"
	case DiskRead:
		return "disk_read"
	case DiskWrite:
		return "disk_write"
	default:
		return fmt.Sprintf("quantity(%d)", int(q))
	}
}

// MarshalText lets Quantity key JSON maps by name.
func (q Quantity) MarshalText() ([]byte, error) {
	return []byte(q.String()), nil
}

// Unit returns the display unit for q.
func (q Quantity) Unit() string {
	if q == Download || q == Upload {
		return "Mbps"
	}
	return "MB/s"
}

// Kind names a cached enumeration.
type Kind string

const (
	KindServices Kind = "services"
	KindPrograms Kind = "programs"
	KindStartup  Kind = "startup"
)

// Kinds lists every enumeration kind.
var Kinds = []Kind{KindServices, KindPrograms, KindStartup}

// ParseKind maps a name to a Kind.
func ParseKind(s string) (Kind, error) {
	for _, k := range Kinds {
		if string(k) == s {
			return k, nil
		}
	}
	return "", fmt.Errorf("monitor: unknown enumeration %q", s)
}

// Event tells the display layer that new data is available. The data
// itself is read through the Monitor accessors.
type Event struct {
	Source   string
	Time     time.Time
	Warnings []string
	Err      error
}

// ProcessController acts on processes. *source.Controller implements it.
type ProcessController interface {
	Do(ctx context.Context, pid int32, action source.Action) error
	SetPriority(pid int32, p source.Priority) error
}

// InterfaceResolver picks the network interface at startup. *source.Host
// implements it.
type InterfaceResolver interface {
	ResolveInterface(ctx context.Context) (string, error)
}

// StartupDisabler turns off a login item. source.StartupEnumerator
// implements it.
type StartupDisabler interface {
	Disable(entry source.StartupEntry) error
}

// Status reports what the monitor can currently show.
type Status struct {
	Started bool `json:"started"`

	// Degraded is set once at startup when no usable network interface
	// was found. Network rates are unavailable; everything else works.
	Degraded  bool   `json:"degraded"`
	InitError string `json:"init_error,omitempty"`
	Interface string `json:"interface,omitempty"`

	// Available reports, per quantity, whether a valid rate is shown.
	Available map[Quantity]bool `json:"available"`

	Collectors []CollectorHealth `json:"collectors"`
}

// CollectorHealth is the runtime state of one polling loop.
type CollectorHealth struct {
	Name      string      `json:"name"`
	Healthy   bool        `json:"healthy"`
	RunCount  int64       `json:"run_count"`
	LastRun   time.Time   `json:"last_run"`
	LastError string      `json:"last_error,omitempty"`
	Circuit   retry.State `json:"circuit"`
}
