package tui

import (
	"fmt"
	"path/filepath"
	"strconv"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"

	"gitlab.com/tinyland/lab/sysgauge/internal/format"
	"gitlab.com/tinyland/lab/sysgauge/monitor"
	"gitlab.com/tinyland/lab/sysgauge/source"
)

var (
	serviceColumns = []table.Column{
		{Title: "Service", Width: 32},
		{Title: "State", Width: 9},
		{Title: "Type", Width: 8},
		{Title: "Description", Width: 30},
	}
	serviceFlexColumn = 3

	programColumns = []table.Column{
		{Title: "Package", Width: 30},
		{Title: "Version", Width: 22},
		{Title: "Size", Width: 10},
		{Title: "Section", Width: 12},
	}
	programFlexColumn = 0

	startupColumns = []table.Column{
		{Title: "Name", Width: 24},
		{Title: "Command", Width: 36},
		{Title: "Hidden", Width: 6},
		{Title: "Source", Width: 24},
	}
	startupFlexColumn = 1
)

// fitColumns gives the flex column whatever width the others leave. Each
// bubbles table cell carries one column of padding either side.
func fitColumns(cols []table.Column, flex, width int) []table.Column {
	out := make([]table.Column, len(cols))
	copy(out, cols)
	used := 2 * len(cols)
	for i, c := range cols {
		if i != flex {
			used += c.Width
		}
	}
	out[flex].Width = max(width-used, 10)
	return out
}

// listState is one cached enumeration as shown in its tab.
type listState struct {
	kind    monitor.Kind
	table   table.Model
	loaded  bool
	loading bool
	err     error
	at      time.Time
	count   int

	// entries maps table rows back to startup items for the disable action.
	entries []source.StartupEntry
}

func (l *listState) resize(cols []table.Column, height int) {
	l.table.SetColumns(cols)
	l.table.SetHeight(height)
}

// set replaces the rows with items, a []source.Service, []source.Program
// or []source.StartupEntry.
func (l *listState) set(items any, at time.Time) {
	var rows []table.Row
	l.entries = nil
	switch v := items.(type) {
	case []source.Service:
		for _, s := range v {
			rows = append(rows, table.Row{s.Name, s.State, s.Type, s.Description})
		}
	case []source.Program:
		for _, p := range v {
			size := ""
			if p.InstalledKB > 0 {
				size = format.FormatBytes(p.InstalledKB * 1024)
			}
			rows = append(rows, table.Row{p.Name, p.Version, size, p.Section})
		}
	case []source.StartupEntry:
		l.entries = v
		for _, e := range v {
			hidden := ""
			if e.Hidden {
				hidden = "yes"
			}
			rows = append(rows, table.Row{e.Name, e.Exec, hidden, filepath.Dir(e.Path)})
		}
	default:
		return
	}
	l.table.SetRows(rows)
	if c := l.table.Cursor(); len(rows) > 0 && c >= len(rows) {
		l.table.SetCursor(len(rows) - 1)
	}
	l.loaded = true
	l.count = len(rows)
	l.at = at
}

func (m Model) renderList(l *listState) string {
	var summary string
	switch {
	case !l.loaded && l.err != nil:
		return m.styles.danger.Render(fmt.Sprintf("Could not list %s: %v", l.kind, l.err)) +
			"\n\n" + m.styles.muted.Render("press r to retry")
	case !l.loaded:
		return "Loading " + string(l.kind) + "..."
	default:
		summary = fmt.Sprintf("%s %s, captured %s",
			m.styles.title.Render(strconv.Itoa(l.count)), l.kind, format.FormatAge(l.at, m.opts.Now()))
		if l.loading {
			summary += m.styles.muted.Render("  (refreshing)")
		}
		if l.err != nil {
			summary += "  " + m.styles.warning.Render("last refresh failed, showing last known")
		}
	}
	return summary + "\n\n" + l.table.View()
}

func (m Model) handleStartupKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if !key.Matches(msg, keys.Disable) {
		return m, nil
	}
	i := m.startup.table.Cursor()
	if i < 0 || i >= len(m.startup.entries) {
		return m, nil
	}
	entry := m.startup.entries[i]
	b := m.backend
	m.confirm = &pendingAction{
		prompt: fmt.Sprintf("Disable %s at login?", entry.Name),
		run: func() tea.Msg {
			return actionMsg{
				text:    "disabled " + entry.Name,
				err:     b.DisableStartup(entry),
				startup: true,
			}
		},
	}
	return m, nil
}
