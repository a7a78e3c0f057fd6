package tui

import (
	"fmt"
	"strconv"
	"strings"

	"gitlab.com/tinyland/lab/sysgauge/display/widgets"
	"gitlab.com/tinyland/lab/sysgauge/internal/format"
)

func (m Model) percentGauge(label string, pct float64, valid bool, detail string, width int) string {
	cfg := widgets.DefaultGaugeConfig()
	cfg.Width = width
	cfg.Value = pct
	cfg.Valid = valid
	cfg.Label = label
	cfg.LabelWidth = gaugeLabelWidth
	cfg.Text = "--"
	if valid {
		cfg.Text = format.FormatPercent(pct)
	}
	if detail != "" {
		cfg.Text += m.styles.muted.Render("  " + detail)
	}
	return widgets.RenderGauge(cfg)
}

// renderSystem renders the System tab: host gauges, load, uptime and the
// health of each polling loop.
func (m Model) renderSystem(lc LayoutConfig) string {
	data, ok := m.backend.System()
	if !ok {
		return "Waiting for the first system sample..."
	}

	sections := []string{
		m.percentGauge("CPU", data.CPU, data.CPUValid, "", lc.GaugeWidth),
		m.percentGauge("RAM", data.RAM, data.RAMTotal > 0,
			format.FormatBytes(data.RAMUsed)+" / "+format.FormatBytes(data.RAMTotal), lc.GaugeWidth),
		m.percentGauge("Disk", data.Disk, data.DiskTotal > 0,
			format.FormatBytes(data.DiskUsed)+" / "+format.FormatBytes(data.DiskTotal), lc.GaugeWidth),
		"",
		m.styles.label.Render("Load:") + fmt.Sprintf(" %.2f %.2f %.2f", data.LoadAvg1, data.LoadAvg5, data.LoadAvg15) +
			"   " + m.styles.label.Render("Uptime:") + " " + format.FormatDuration(data.Uptime),
	}
	if procs, ok := m.backend.Processes(); ok {
		sections = append(sections, m.styles.label.Render("Processes:")+" "+strconv.Itoa(procs.ProcessCount)+
			"   "+m.styles.label.Render("Threads:")+" "+strconv.Itoa(procs.ThreadCount))
	}

	if lc.ShowSparklines {
		sections = append(sections, "", sectionTitle("History", lc.TableWidth))
		for _, h := range []struct {
			label string
			data  []float64
		}{
			{"CPU", data.CPUHistory},
			{"RAM", data.RAMHistory},
			{"Disk", data.DiskHistory},
		} {
			sections = append(sections, m.historyLine(h.label, h.data, 100, lc.SparklineWidth, m.styles.preset.Secondary))
		}
	}

	sections = append(sections, "", sectionTitle("Collectors", lc.TableWidth), m.collectorTable(lc.TableWidth))
	return strings.Join(sections, "\n")
}

func (m Model) collectorTable(width int) string {
	cfg := widgets.DefaultTableConfig()
	cfg.MaxWidth = width
	cfg.HeaderStyle = m.styles.title
	cfg.Columns = []widgets.Column{
		{Title: "Collector"},
		{Title: "Circuit"},
		{Title: "Runs", Align: widgets.AlignRight},
		{Title: "Last run"},
		{Title: "Last error"},
	}
	now := m.opts.Now()
	for _, c := range m.backend.Status().Collectors {
		cfg.Rows = append(cfg.Rows, []string{
			c.Name,
			widgets.RenderStatusFromString(c.Circuit.String()),
			strconv.FormatInt(c.RunCount, 10),
			format.FormatAge(c.LastRun, now),
			c.LastError,
		})
	}
	return widgets.RenderTable(cfg)
}
