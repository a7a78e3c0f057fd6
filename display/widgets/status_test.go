package widgets

import (
	"strings"
	"testing"
)

func TestStatusLevelFromString(t *testing.T) {
	tests := []struct {
		in   string
		want StatusLevel
	}{
		{"enabled", StatusOK},
		{"Running", StatusOK},
		{"closed", StatusOK},
		{"static", StatusWarning},
		{"half_open", StatusWarning},
		{"degraded", StatusWarning},
		{"masked", StatusCritical},
		{"zombie", StatusCritical},
		{"open", StatusCritical},
		{"stopped", StatusPending},
		{"disabled", StatusUnknown},
		{"", StatusUnknown},
	}
	for _, tt := range tests {
		if got := StatusLevelFromString(tt.in); got != tt.want {
			t.Errorf("StatusLevelFromString(%q) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestRenderStatus(t *testing.T) {
	out := RenderStatus(StatusConfig{Level: StatusOK, Text: "enabled", ShowIcon: true})
	if !strings.Contains(out, "●") || !strings.HasSuffix(out, "enabled") {
		t.Errorf("RenderStatus = %q", out)
	}

	if out := RenderStatus(StatusConfig{Level: StatusUnknown, ShowIcon: true}); !strings.Contains(out, "○") || strings.Contains(out, " ") {
		t.Errorf("icon-only status = %q", out)
	}

	if out := RenderStatus(StatusConfig{Level: StatusCritical, Text: "masked"}); strings.Contains(out, "●") {
		t.Errorf("icon shown without ShowIcon: %q", out)
	}
}

func TestRenderStatusFromString(t *testing.T) {
	if out := RenderStatusFromString("masked"); !strings.Contains(out, "masked") {
		t.Errorf("RenderStatusFromString = %q", out)
	}
}
