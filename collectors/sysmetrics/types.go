// Package sysmetrics provides the host gauges: CPU, RAM and disk usage,
// load average and uptime, plus history rings for sparklines.
package sysmetrics

import (
	"time"

	"gitlab.com/tinyland/lab/sysgauge/collectors"
)

// SysMetricsData holds current system metrics plus history rings.
type SysMetricsData struct {
	Timestamp time.Time `json:"timestamp"`

	// CPU is the busy percentage (0-100) since the previous sample.
	// CPUValid is false on the first sample and after a counter reset.
	CPU      float64 `json:"cpu"`
	CPUValid bool    `json:"cpu_valid"`

	// RAM is the current RAM usage percentage (0-100).
	RAM      float64 `json:"ram"`
	RAMUsed  uint64  `json:"ram_used"`
	RAMTotal uint64  `json:"ram_total"`

	// Disk is the usage percentage of the configured mount point.
	Disk      float64 `json:"disk"`
	DiskUsed  uint64  `json:"disk_used"`
	DiskTotal uint64  `json:"disk_total"`

	LoadAvg1  float64 `json:"load_avg_1"`
	LoadAvg5  float64 `json:"load_avg_5"`
	LoadAvg15 float64 `json:"load_avg_15"`

	Uptime time.Duration `json:"uptime"`

	CPUHistory  []float64 `json:"cpu_history"`
	RAMHistory  []float64 `json:"ram_history"`
	DiskHistory []float64 `json:"disk_history"`
}

// MaxHistorySamples is the ring length. At the default 1s interval this
// covers the last minute.
const MaxHistorySamples = collectors.MaxHistorySamples

// appendAndTrim appends a value to a history slice and trims it to
// MaxHistorySamples, discarding the oldest entries.
func appendAndTrim(history []float64, value float64) []float64 {
	return collectors.AppendHistory(history, value)
}

// percent returns used/total as a percentage clamped to [0, 100].
func percent(used, total uint64) float64 {
	if total == 0 {
		return 0
	}
	return clampPct(float64(used) / float64(total) * 100)
}

func clampPct(v float64) float64 {
	return min(max(v, 0), 100)
}
