package widgets

import "testing"

func TestDownloadActivity(t *testing.T) {
	tests := []struct {
		mbps float64
		want string
	}{
		{0, "Idle"},
		{0.1, "Idle"},
		{0.5, "Low"},
		{5, "Moderate"},
		{50, "High"},
		{250, "Very High"},
		{940, "Gigabit"},
	}
	for _, tt := range tests {
		if got := DownloadActivity(tt.mbps, true).Label(false); got != tt.want {
			t.Errorf("DownloadActivity(%v) = %q, want %q", tt.mbps, got, tt.want)
		}
	}
}

func TestUploadActivity(t *testing.T) {
	tests := []struct {
		mbps float64
		want string
	}{
		{0.01, "Idle"},
		{0.1, "Low"},
		{1, "Moderate"},
		{20, "High"},
		{100, "Very High"},
		{300, "Ultra"},
	}
	for _, tt := range tests {
		if got := UploadActivity(tt.mbps, true).Label(true); got != tt.want {
			t.Errorf("UploadActivity(%v) = %q, want %q", tt.mbps, got, tt.want)
		}
	}
}

func TestActivityInvalidRate(t *testing.T) {
	a := DownloadActivity(900, false)
	if a != ActivityUnknown || a.Label(false) != "No data" {
		t.Errorf("invalid rate classified as %v %q", a, a.Label(false))
	}
	if out := RenderActivity(a, false); out == "" {
		t.Error("RenderActivity returned empty string")
	}
}
