// Package format provides shared string, size, rate and time formatting.
package format

import (
	"fmt"
	"time"
)

// FormatAge renders how long ago t was, relative to now.
// Returns strings like "just now", "42s ago", "5m ago", "3h ago", "2d ago".
func FormatAge(t, now time.Time) string {
	if t.IsZero() {
		return "never"
	}

	d := now.Sub(t)
	if d < 0 {
		d = -d
	}

	switch {
	case d < 10*time.Second:
		return "just now"
	case d < time.Minute:
		return fmt.Sprintf("%ds ago", int(d.Seconds()))
	case d < time.Hour:
		return fmt.Sprintf("%dm ago", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(d.Hours()))
	}
	return fmt.Sprintf("%dd ago", int(d.Hours()/24))
}

// FormatTimeSince is FormatAge against the wall clock.
func FormatTimeSince(t time.Time) string {
	return FormatAge(t, time.Now())
}

// FormatDuration renders a time.Duration as a concise human-readable string.
// Returns strings like "1s", "5m 30s", "2h 15m", "3d 4h".
func FormatDuration(d time.Duration) string {
	if d < 0 {
		d = -d
	}

	if d < time.Second {
		return "0s"
	}

	days := int(d.Hours() / 24)
	hours := int(d.Hours()) % 24
	minutes := int(d.Minutes()) % 60
	seconds := int(d.Seconds()) % 60

	switch {
	case days > 0:
		return fmt.Sprintf("%dd %dh", days, hours)
	case hours > 0:
		return fmt.Sprintf("%dh %dm", hours, minutes)
	case minutes > 0:
		return fmt.Sprintf("%dm %ds", minutes, seconds)
	default:
		return fmt.Sprintf("%ds", seconds)
	}
}

// FormatUptime renders an uptime in seconds.
func FormatUptime(seconds uint64) string {
	return FormatDuration(time.Duration(seconds) * time.Second)
}
