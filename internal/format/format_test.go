package format

import (
	"math"
	"testing"
	"time"
)

func TestTruncateWithEllipsis(t *testing.T) {
	tests := []struct {
		in    string
		width int
		want  string
	}{
		{"firefox", 10, "firefox"},
		{"gnome-shell-calendar-server", 10, "gnome-s..."},
		{"systemd", 3, "sys"},
		{"anything", 0, ""},
		{"ünïcödé-name", 6, "ünï..."},
	}
	for _, tt := range tests {
		if got := TruncateWithEllipsis(tt.in, tt.width); got != tt.want {
			t.Errorf("TruncateWithEllipsis(%q, %d) = %q, want %q", tt.in, tt.width, got, tt.want)
		}
	}
}

func TestFormatBytes(t *testing.T) {
	tests := []struct {
		in   uint64
		want string
	}{
		{0, "0 B"},
		{512, "512 B"},
		{1536, "1.5 KiB"},
		{5 * 1024 * 1024, "5.0 MiB"},
		{3 << 30, "3.0 GiB"},
	}
	for _, tt := range tests {
		if got := FormatBytes(tt.in); got != tt.want {
			t.Errorf("FormatBytes(%d) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestFormatMiB(t *testing.T) {
	if got := FormatMiB(12.34); got != "12.3 MiB" {
		t.Errorf("FormatMiB(12.34) = %q", got)
	}
	if got := FormatMiB(2048); got != "2.00 GiB" {
		t.Errorf("FormatMiB(2048) = %q", got)
	}
}

func TestFormatRate(t *testing.T) {
	tests := []struct {
		value float64
		valid bool
		unit  string
		want  string
	}{
		{8, true, "Mbps", "8.00 Mbps"},
		{42.26, true, "Mbps", "42.3 Mbps"},
		{940, true, "Mbps", "940 Mbps"},
		{0, false, "MB/s", "-- MB/s"},
		{math.NaN(), true, "MB/s", "-- MB/s"},
	}
	for _, tt := range tests {
		if got := FormatRate(tt.value, tt.valid, tt.unit); got != tt.want {
			t.Errorf("FormatRate(%v, %v) = %q, want %q", tt.value, tt.valid, got, tt.want)
		}
	}
}

func TestFormatAge(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	tests := []struct {
		t    time.Time
		want string
	}{
		{time.Time{}, "never"},
		{now.Add(-3 * time.Second), "just now"},
		{now.Add(-42 * time.Second), "42s ago"},
		{now.Add(-5 * time.Minute), "5m ago"},
		{now.Add(-3 * time.Hour), "3h ago"},
		{now.Add(-49 * time.Hour), "2d ago"},
	}
	for _, tt := range tests {
		if got := FormatAge(tt.t, now); got != tt.want {
			t.Errorf("FormatAge(%v) = %q, want %q", tt.t, got, tt.want)
		}
	}
}

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		d    time.Duration
		want string
	}{
		{500 * time.Millisecond, "0s"},
		{7 * time.Second, "7s"},
		{5*time.Minute + 30*time.Second, "5m 30s"},
		{2*time.Hour + 15*time.Minute, "2h 15m"},
		{76 * time.Hour, "3d 4h"},
		{-90 * time.Second, "1m 30s"},
	}
	for _, tt := range tests {
		if got := FormatDuration(tt.d); got != tt.want {
			t.Errorf("FormatDuration(%v) = %q, want %q", tt.d, got, tt.want)
		}
	}
	if got := FormatUptime(3600); got != "1h 0m" {
		t.Errorf("FormatUptime(3600) = %q", got)
	}
}
