package widgets

import (
	"math"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// GaugeConfig controls a horizontal bar gauge. The bar is filled by
// Value/Max, so rate gauges pass the adaptive ceiling as Max and
// percentage gauges pass 100.
type GaugeConfig struct {
	// Width is the character width of the bar itself.
	Width int
	Value float64
	Max   float64
	// Valid false draws an empty, muted bar whatever Value holds.
	Valid bool
	// Label is shown to the left of the bar, padded to LabelWidth.
	Label      string
	LabelWidth int
	// Text is shown to the right of the bar, e.g. "42.1 Mbps".
	Text string
	// ThresholdWarning and ThresholdDanger are fill percentages at which
	// the bar turns yellow and red (defaults 70 and 90).
	ThresholdWarning float64
	ThresholdDanger  float64
}

// DefaultGaugeConfig returns a valid 0-100 gauge 20 cells wide.
func DefaultGaugeConfig() GaugeConfig {
	return GaugeConfig{
		Width:            20,
		Max:              100,
		Valid:            true,
		ThresholdWarning: 70,
		ThresholdDanger:  90,
	}
}

const (
	gaugeFilled = "█"
	gaugeEmpty  = "░"
)

// Status colors shared by gauges, activity labels and the dashboard themes.
var (
	ColorOK      = lipgloss.Color("#22C55E")
	ColorWarn    = lipgloss.Color("#EAB308")
	ColorDanger  = lipgloss.Color("#EF4444")
	colorMuted   = lipgloss.Color("#6B7280")
	colorPending = lipgloss.Color("#3B82F6")
)

func gaugeColor(percent, warning, danger float64) lipgloss.Color {
	if warning <= 0 {
		warning = 70
	}
	if danger <= 0 {
		danger = 90
	}
	switch {
	case percent >= danger:
		return ColorDanger
	case percent >= warning:
		return ColorWarn
	default:
		return ColorOK
	}
}

// FillPercent returns Value as a percentage of Max, clamped to [0, 100].
// An invalid reading or a non-positive Max fills nothing.
func (cfg GaugeConfig) FillPercent() float64 {
	if !cfg.Valid || cfg.Max <= 0 || math.IsNaN(cfg.Value) {
		return 0
	}
	return math.Max(0, math.Min(100, cfg.Value/cfg.Max*100))
}

// RenderGauge renders "[Label] ████████░░░░ [Text]".
func RenderGauge(cfg GaugeConfig) string {
	width := cfg.Width
	if width <= 0 {
		width = 20
	}
	percent := cfg.FillPercent()
	filled := int(math.Round(percent / 100 * float64(width)))

	var sb strings.Builder
	if cfg.Label != "" {
		label := cfg.Label
		if pad := cfg.LabelWidth - lipgloss.Width(label); pad > 0 {
			label += strings.Repeat(" ", pad)
		}
		sb.WriteString(label)
		sb.WriteString(" ")
	}

	color := gaugeColor(percent, cfg.ThresholdWarning, cfg.ThresholdDanger)
	if !cfg.Valid {
		color = colorMuted
	}
	sb.WriteString(lipgloss.NewStyle().Foreground(color).Render(strings.Repeat(gaugeFilled, filled)))
	sb.WriteString(lipgloss.NewStyle().Foreground(colorMuted).Render(strings.Repeat(gaugeEmpty, width-filled)))

	if cfg.Text != "" {
		sb.WriteString(" ")
		sb.WriteString(cfg.Text)
	}
	return sb.String()
}

// RenderMiniGauge renders a bare bar for a 0-100 percentage.
func RenderMiniGauge(percent float64, width int) string {
	cfg := DefaultGaugeConfig()
	cfg.Width = width
	cfg.Value = percent
	return RenderGauge(cfg)
}
