package widgets

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// StatusLevel is the severity shown by a status dot.
type StatusLevel int

const (
	StatusOK StatusLevel = iota
	StatusWarning
	StatusCritical
	StatusUnknown
	StatusPending
)

// StatusConfig holds the configuration for rendering a status indicator.
type StatusConfig struct {
	Level    StatusLevel
	Text     string
	ShowIcon bool
}

var statusIcons = map[StatusLevel]string{
	StatusOK:       "●",
	StatusWarning:  "●",
	StatusCritical: "●",
	StatusUnknown:  "○",
	StatusPending:  "◌",
}

var statusColors = map[StatusLevel]lipgloss.Color{
	StatusOK:       ColorOK,
	StatusWarning:  ColorWarn,
	StatusCritical: ColorDanger,
	StatusUnknown:  colorMuted,
	StatusPending:  colorPending,
}

// RenderStatus renders a colored dot followed by the text.
func RenderStatus(cfg StatusConfig) string {
	style := lipgloss.NewStyle().Foreground(statusColors[cfg.Level])
	if !cfg.ShowIcon {
		return style.Render(cfg.Text)
	}
	icon := style.Render(statusIcons[cfg.Level])
	if cfg.Text == "" {
		return icon
	}
	return icon + " " + cfg.Text
}

// RenderStatusFromString renders status with the level StatusLevelFromString
// picks for it.
func RenderStatusFromString(status string) string {
	return RenderStatus(StatusConfig{
		Level:    StatusLevelFromString(status),
		Text:     status,
		ShowIcon: true,
	})
}

// StatusLevelFromString maps the state strings shown on the dashboard
// (service unit states, process states, circuit states, connection
// health) to a level. Matching is case-insensitive.
func StatusLevelFromString(status string) StatusLevel {
	switch strings.ToLower(status) {
	case "ok", "enabled", "running", "closed", "connected", "visible":
		return StatusOK
	case "static", "sleeping", "sleep", "idle", "half_open", "stale", "degraded":
		return StatusWarning
	case "masked", "zombie", "open", "error", "disconnected":
		return StatusCritical
	case "stopped", "stop", "pending", "wait":
		return StatusPending
	default:
		return StatusUnknown
	}
}
