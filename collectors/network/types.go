// Package network samples interface and disk byte counters and turns them
// into live throughput rates with adaptive gauge ceilings.
package network

import (
	"time"

	"gitlab.com/tinyland/lab/sysgauge/rate"
)

// Snapshot is one network collection.
type Snapshot struct {
	Timestamp time.Time `json:"timestamp"`

	// Interface is the adapter the byte counters were read from.
	Interface string `json:"interface,omitempty"`
	// AdapterKind is "Wi-Fi", "Ethernet" or empty when unknown.
	AdapterKind string `json:"adapter_kind,omitempty"`
	Connected   bool   `json:"connected"`

	// Degraded is set when no usable interface was found at startup.
	Degraded bool `json:"degraded"`
	// Stale means the counters could not be read this cycle and the rates
	// are the last known values.
	Stale bool `json:"stale"`

	// Download and Upload are in Mbps.
	Download rate.Estimate `json:"download"`
	Upload   rate.Estimate `json:"upload"`

	// DiskRead and DiskWrite are in MB/s.
	DiskRead  rate.Estimate `json:"disk_read"`
	DiskWrite rate.Estimate `json:"disk_write"`

	DownloadCeiling float64 `json:"download_ceiling"`
	UploadCeiling   float64 `json:"upload_ceiling"`
	DiskCeiling     float64 `json:"disk_ceiling"`

	// Session totals since the first sample or the last reset, in MiB.
	SessionRecvMiB float64 `json:"session_recv_mib"`
	SessionSentMiB float64 `json:"session_sent_mib"`

	DownloadHistory  []float64 `json:"download_history"`
	UploadHistory    []float64 `json:"upload_history"`
	DiskReadHistory  []float64 `json:"disk_read_history"`
	DiskWriteHistory []float64 `json:"disk_write_history"`
}

// sessionTotal accumulates bytes moved on a counter that may reset.
type sessionTotal struct {
	started bool
	base    uint64
	last    uint64
	carried uint64
}

// observe records v and returns the bytes moved since the session started.
// A value below the previous one is a counter reset; what was counted
// before it is kept.
func (s *sessionTotal) observe(v uint64) uint64 {
	switch {
	case !s.started:
		s.started = true
		s.base = v
	case v < s.last:
		s.carried += s.last - s.base
		s.base = v
	}
	s.last = v
	return s.total()
}

// total returns the bytes counted so far without observing.
func (s *sessionTotal) total() uint64 {
	return s.carried + (s.last - s.base)
}

// rebase keeps what was counted and waits for a new baseline, for when the
// counter switches to a different adapter.
func (s *sessionTotal) rebase() {
	s.carried = s.total()
	s.started = false
	s.base, s.last = 0, 0
}

func (s *sessionTotal) reset() {
	*s = sessionTotal{}
}

const bytesPerMiB = 1024 * 1024
