package tui

import "strings"

// LayoutSize is a responsive breakpoint for terminal width.
type LayoutSize int

const (
	// LayoutCompact is used for terminals narrower than 60 columns.
	LayoutCompact LayoutSize = iota
	// LayoutNormal covers 60 to 120 columns.
	LayoutNormal
	// LayoutWide is used above 120 columns.
	LayoutWide
)

// DetectLayout returns the LayoutSize for a terminal width.
func DetectLayout(width int) LayoutSize {
	switch {
	case width < 60:
		return LayoutCompact
	case width <= 120:
		return LayoutNormal
	default:
		return LayoutWide
	}
}

// LayoutConfig holds the sizes that adapt to terminal width.
type LayoutConfig struct {
	// GaugeWidth is the bar width of rate and percentage gauges.
	GaugeWidth int
	// SparklineWidth is how many history samples are drawn.
	SparklineWidth int
	ShowSparklines bool
	// TableWidth is the width available to tables.
	TableWidth int
}

// LayoutForSize returns the LayoutConfig for size at the given width.
func LayoutForSize(size LayoutSize, width int) LayoutConfig {
	switch size {
	case LayoutCompact:
		return LayoutConfig{
			GaugeWidth: 10,
			TableWidth: max(width-4, 20),
		}
	case LayoutWide:
		return LayoutConfig{
			GaugeWidth:     40,
			SparklineWidth: 60,
			ShowSparklines: true,
			TableWidth:     width - 8,
		}
	default:
		return LayoutConfig{
			GaugeWidth:     24,
			SparklineWidth: max(min(width-30, 60), 10),
			ShowSparklines: true,
			TableWidth:     width - 6,
		}
	}
}

// chromeHeight is the rows taken by the tab bar, footer and padding.
const chromeHeight = 8

// tableHeight returns the rows left for a list table below a summary of
// summaryLines lines.
func tableHeight(termHeight, summaryLines int) int {
	return max(termHeight-chromeHeight-summaryLines, 3)
}

// horizontalRule returns a box-drawing line of the given width.
func horizontalRule(width int) string {
	if width <= 0 {
		return ""
	}
	return strings.Repeat("─", width)
}

// sectionTitle renders "──── Title ────" centered in width.
func sectionTitle(title string, width int) string {
	decor := len([]rune(title)) + 2
	if width <= 0 || decor >= width {
		return title
	}
	left := (width - decor) / 2
	return strings.Repeat("─", left) + " " + title + " " + strings.Repeat("─", width-decor-left)
}
