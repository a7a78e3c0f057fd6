package widgets

import (
	"math"

	"github.com/charmbracelet/lipgloss"
)

// sparkBlocks are the eight levels of a sparkline cell, lowest first.
var sparkBlocks = []rune{'▁', '▂', '▃', '▄', '▅', '▆', '▇', '█'}

// SparklineConfig controls a history sparkline. Bars are scaled from zero
// to Max; when a sample exceeds Max the scale stretches to the peak so the
// shape is never clipped. Rate histories pass the current ceiling, percent
// histories pass 100, and Max 0 scales to the peak alone.
type SparklineConfig struct {
	// Data points to render, most recent last.
	Data []float64
	// Width is the number of cells. 0 uses len(Data). Older samples are
	// dropped when Data is longer; the line is left-padded when shorter.
	Width int
	Max   float64
	Label string
	Color lipgloss.Color
}

// RenderSparkline renders cfg.Data as a row of block characters.
func RenderSparkline(cfg SparklineConfig) string {
	if len(cfg.Data) == 0 {
		return ""
	}

	data := cfg.Data
	width := cfg.Width
	if width <= 0 {
		width = len(data)
	}
	if width < len(data) {
		data = data[len(data)-width:]
	}

	scale := cfg.Max
	for _, v := range data {
		if v > scale {
			scale = v
		}
	}

	runes := make([]rune, 0, width)
	for i := len(data); i < width; i++ {
		runes = append(runes, ' ')
	}
	top := len(sparkBlocks) - 1
	for _, v := range data {
		if scale <= 0 || math.IsNaN(v) {
			runes = append(runes, sparkBlocks[0])
			continue
		}
		idx := int(math.Round(math.Max(0, v) / scale * float64(top)))
		runes = append(runes, sparkBlocks[min(idx, top)])
	}

	out := string(runes)
	if cfg.Color != "" {
		out = lipgloss.NewStyle().Foreground(cfg.Color).Render(out)
	}
	if cfg.Label != "" {
		out = cfg.Label + " " + out
	}
	return out
}

// SparklinePeak returns the largest sample in data, or 0.
func SparklinePeak(data []float64) float64 {
	var peak float64
	for _, v := range data {
		peak = math.Max(peak, v)
	}
	return peak
}

