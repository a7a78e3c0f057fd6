package tui

import (
	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/lipgloss"
)

// styles are the rendered lipgloss styles for one preset. Each Model
// owns its own set.
type styles struct {
	preset ThemePreset

	activeTab   lipgloss.Style
	inactiveTab lipgloss.Style
	header      lipgloss.Style
	footer      lipgloss.Style
	content     lipgloss.Style
	title       lipgloss.Style
	label       lipgloss.Style
	muted       lipgloss.Style
	warning     lipgloss.Style
	danger      lipgloss.Style
	prompt      lipgloss.Style
}

func newStyles(p ThemePreset) styles {
	s := styles{
		preset: p,
		activeTab: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FFFFFF")).
			Background(p.Primary).
			Padding(0, 2),
		inactiveTab: lipgloss.NewStyle().Foreground(p.Muted).Padding(0, 2),
		footer:      lipgloss.NewStyle().Foreground(p.Muted),
		title:       lipgloss.NewStyle().Bold(true).Foreground(p.Secondary),
		label:       lipgloss.NewStyle().Bold(true).Foreground(p.Primary),
		muted:       lipgloss.NewStyle().Foreground(p.Muted),
		warning:     lipgloss.NewStyle().Foreground(p.Warning),
		danger:      lipgloss.NewStyle().Bold(true).Foreground(p.Danger),
		prompt:      lipgloss.NewStyle().Bold(true).Foreground(p.Warning),
	}

	s.header = lipgloss.NewStyle().MarginBottom(1)
	if p.ShowBorders {
		s.header = s.header.
			BorderStyle(lipgloss.NormalBorder()).
			BorderBottom(true).
			BorderForeground(p.Muted)
	}

	if p.CompactMode {
		s.content = lipgloss.NewStyle().Padding(0, 1)
	} else {
		s.content = lipgloss.NewStyle().Padding(1, 2)
	}
	return s
}

// tableStyles themes a bubbles table.
func (s styles) tableStyles() table.Styles {
	ts := table.DefaultStyles()
	ts.Header = ts.Header.
		Bold(true).
		Foreground(s.preset.Secondary).
		BorderStyle(lipgloss.NormalBorder()).
		BorderBottom(true).
		BorderForeground(s.preset.Muted)
	ts.Selected = ts.Selected.
		Bold(true).
		Foreground(lipgloss.Color("#FFFFFF")).
		Background(s.preset.Primary)
	return ts
}
