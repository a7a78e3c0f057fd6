package tui

import (
	"github.com/charmbracelet/lipgloss"

	"gitlab.com/tinyland/lab/sysgauge/display/widgets"
)

// ThemePreset is a color scheme plus layout density, selected by name
// from the display.theme config key.
type ThemePreset struct {
	Name        string
	Description string

	// Chrome: tab bar, labels, section titles.
	Primary    lipgloss.Color
	Secondary  lipgloss.Color
	Muted      lipgloss.Color
	Background lipgloss.Color

	// Status colors. Most presets reuse the widgets gauge colors so a red
	// label and a red bar mean the same thing.
	Success lipgloss.Color
	Warning lipgloss.Color
	Danger  lipgloss.Color

	// Series colors for the download and upload sparklines.
	Download lipgloss.Color
	Upload   lipgloss.Color

	ShowBorders bool
	CompactMode bool
}

var (
	// MonitoringTheme is the default: dark chrome, the gauge colors for
	// status, cyan download and pink upload series.
	MonitoringTheme = ThemePreset{
		Name:        "monitoring",
		Description: "Dark theme tuned for rates and gauges",
		Primary:     lipgloss.Color("#0284C7"),
		Secondary:   lipgloss.Color("#2DD4BF"),
		Muted:       lipgloss.Color("#64748B"),
		Background:  lipgloss.Color("#0B1220"),
		Success:     widgets.ColorOK,
		Warning:     widgets.ColorWarn,
		Danger:      widgets.ColorDanger,
		Download:    lipgloss.Color("#38BDF8"),
		Upload:      lipgloss.Color("#F472B6"),
		ShowBorders: true,
	}

	// MinimalTheme is nearly monochrome and drops borders and padding for
	// small terminals. Only status and the two series keep their hue.
	MinimalTheme = ThemePreset{
		Name:        "minimal",
		Description: "Borderless grey theme for small terminals",
		Primary:     lipgloss.Color("#475569"),
		Secondary:   lipgloss.Color("#CBD5E1"),
		Muted:       lipgloss.Color("#94A3B8"),
		Background:  lipgloss.Color("#000000"),
		Success:     widgets.ColorOK,
		Warning:     widgets.ColorWarn,
		Danger:      widgets.ColorDanger,
		Download:    lipgloss.Color("#7DD3FC"),
		Upload:      lipgloss.Color("#FDA4AF"),
		CompactMode: true,
	}

	// FullTheme uses saturated chrome and lighter status colors for
	// terminals with washed-out palettes.
	FullTheme = ThemePreset{
		Name:        "full",
		Description: "High-contrast theme with borders",
		Primary:     lipgloss.Color("#4F46E5"),
		Secondary:   lipgloss.Color("#FACC15"),
		Muted:       lipgloss.Color("#A1A1AA"),
		Background:  lipgloss.Color("#18181B"),
		Success:     lipgloss.Color("#4ADE80"),
		Warning:     lipgloss.Color("#FDE047"),
		Danger:      lipgloss.Color("#F87171"),
		Download:    lipgloss.Color("#22D3EE"),
		Upload:      lipgloss.Color("#E879F9"),
		ShowBorders: true,
	}
)

// themes is ordered; the first entry is the fallback.
var themes = []ThemePreset{MonitoringTheme, MinimalTheme, FullTheme}

// ThemeNames lists the preset names accepted by display.theme.
func ThemeNames() []string {
	names := make([]string, len(themes))
	for i, t := range themes {
		names[i] = t.Name
	}
	return names
}

// GetThemePreset returns the preset named name. Unknown names fall back to
// the monitoring theme.
func GetThemePreset(name string) ThemePreset {
	for _, t := range themes {
		if t.Name == name {
			return t
		}
	}
	return themes[0]
}

// AllThemePresets returns a copy of the available presets.
func AllThemePresets() []ThemePreset {
	return append([]ThemePreset(nil), themes...)
}
