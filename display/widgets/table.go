package widgets

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
)

// Alignment controls text alignment within a table column.
type Alignment int

const (
	AlignLeft Alignment = iota
	AlignRight
	AlignCenter
)

// Column defines a single table column.
type Column struct {
	Title string
	// Width is the fixed cell width. 0 sizes the column to its content.
	Width int
	Align Alignment
}

// TableConfig holds the configuration for rendering a static table.
// Cells may carry ANSI styling; widths are measured on visible cells.
type TableConfig struct {
	Columns []Column
	Rows    [][]string
	// MaxWidth caps the total table width. Auto-sized columns shrink
	// proportionally to fit.
	MaxWidth    int
	ShowHeader  bool
	HeaderStyle lipgloss.Style
	RowStyle    lipgloss.Style
	// Separator is placed between columns (default "  ").
	Separator string
}

// DefaultTableConfig returns a TableConfig with a bold header.
func DefaultTableConfig() TableConfig {
	return TableConfig{
		ShowHeader:  true,
		Separator:   "  ",
		HeaderStyle: lipgloss.NewStyle().Bold(true),
		RowStyle:    lipgloss.NewStyle(),
	}
}

// RenderTable renders a formatted text table from the given configuration.
func RenderTable(cfg TableConfig) string {
	if len(cfg.Columns) == 0 {
		return ""
	}
	if cfg.Separator == "" {
		cfg.Separator = "  "
	}

	widths := calculateColumnWidths(cfg.Columns, cfg.Rows, cfg.MaxWidth, ansi.StringWidth(cfg.Separator))

	var lines []string
	if cfg.ShowHeader {
		cells := make([]string, len(cfg.Columns))
		rule := make([]string, len(cfg.Columns))
		for i, col := range cfg.Columns {
			cells[i] = padOrTruncate(col.Title, widths[i], col.Align)
			rule[i] = strings.Repeat("─", widths[i])
		}
		lines = append(lines,
			cfg.HeaderStyle.Render(strings.Join(cells, cfg.Separator)),
			strings.Join(rule, cfg.Separator))
	}

	for _, row := range cfg.Rows {
		cells := make([]string, len(cfg.Columns))
		for i, col := range cfg.Columns {
			var text string
			if i < len(row) {
				text = row[i]
			}
			cells[i] = padOrTruncate(text, widths[i], col.Align)
		}
		lines = append(lines, cfg.RowStyle.Render(strings.Join(cells, cfg.Separator)))
	}

	return strings.Join(lines, "\n")
}

// padOrTruncate fits s into width visible cells.
func padOrTruncate(s string, width int, align Alignment) string {
	if width <= 0 {
		return ""
	}

	w := ansi.StringWidth(s)
	if w > width {
		if width == 1 {
			return ansi.Truncate(s, 1, "")
		}
		return ansi.Truncate(s, width, "…")
	}

	padding := width - w
	switch align {
	case AlignRight:
		return strings.Repeat(" ", padding) + s
	case AlignCenter:
		left := padding / 2
		return strings.Repeat(" ", left) + s + strings.Repeat(" ", padding-left)
	default:
		return s + strings.Repeat(" ", padding)
	}
}

// calculateColumnWidths sizes each column. Fixed widths are kept; auto
// columns take the widest of header and cells and shrink proportionally
// when the table would exceed maxWidth.
func calculateColumnWidths(cols []Column, rows [][]string, maxWidth, sepWidth int) []int {
	widths := make([]int, len(cols))
	fixed, auto := 0, 0
	for i, col := range cols {
		if col.Width > 0 {
			widths[i] = col.Width
			fixed += col.Width
			continue
		}
		w := ansi.StringWidth(col.Title)
		for _, row := range rows {
			if i < len(row) {
				w = max(w, ansi.StringWidth(row[i]))
			}
		}
		widths[i] = max(w, 1)
		auto += widths[i]
	}

	if maxWidth <= 0 || auto == 0 {
		return widths
	}
	total := fixed + auto + sepWidth*(len(cols)-1)
	if total <= maxWidth {
		return widths
	}
	available := max(maxWidth-fixed-sepWidth*(len(cols)-1), 1)
	for i, col := range cols {
		if col.Width > 0 {
			continue
		}
		widths[i] = max(widths[i]*available/auto, 1)
	}
	return widths
}
