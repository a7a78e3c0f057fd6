package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"gitlab.com/tinyland/lab/sysgauge/collectors/network"
	"gitlab.com/tinyland/lab/sysgauge/display/widgets"
	"gitlab.com/tinyland/lab/sysgauge/internal/format"
	"gitlab.com/tinyland/lab/sysgauge/monitor"
	"gitlab.com/tinyland/lab/sysgauge/rate"
)

const gaugeLabelWidth = 8

func (m Model) rateGauge(label string, q monitor.Quantity, width int) string {
	est := m.backend.LatestRate(q)
	ceiling := m.backend.DisplayCeiling(q)
	return widgets.RenderGauge(widgets.GaugeConfig{
		Width:      width,
		Value:      est.PerSecond,
		Max:        ceiling,
		Valid:      est.Valid,
		Label:      label,
		LabelWidth: gaugeLabelWidth,
		Text: format.FormatRate(est.PerSecond, est.Valid, q.Unit()) +
			m.styles.muted.Render(fmt.Sprintf(" / %.0f", ceiling)),
	})
}

func (m Model) renderNetwork(lc LayoutConfig) string {
	snap, haveSnap := m.backend.Network()
	st := m.backend.Status()

	var sections []string
	switch {
	case st.Degraded:
		sections = append(sections, m.styles.warning.Render(
			"No active network interface found. Network rates are unavailable; disk I/O is still shown."))
	case haveSnap && snap.Interface != "":
		line := m.styles.label.Render("Interface:") + " " + snap.Interface
		if snap.AdapterKind != "" {
			line += m.styles.muted.Render(" (" + snap.AdapterKind + ")")
		}
		conn := "connected"
		if !snap.Connected {
			conn = "disconnected"
		} else if snap.Stale {
			conn = "stale"
		}
		sections = append(sections, line+"  "+widgets.RenderStatusFromString(conn))
	default:
		sections = append(sections, m.styles.muted.Render("Waiting for the first network sample..."))
	}
	sections = append(sections, "")

	if !st.Degraded {
		sections = append(sections,
			m.rateGauge("Down", monitor.Download, lc.GaugeWidth),
			m.rateGauge("Up", monitor.Upload, lc.GaugeWidth),
			"",
			m.activityTable(snap, lc.TableWidth),
		)
		if lc.ShowSparklines && haveSnap {
			sections = append(sections, "", sectionTitle("History", lc.TableWidth),
				m.historyLine("Down", snap.DownloadHistory, snap.DownloadCeiling, lc.SparklineWidth, m.styles.preset.Download),
				m.historyLine("Up", snap.UploadHistory, snap.UploadCeiling, lc.SparklineWidth, m.styles.preset.Upload),
			)
		}
		sections = append(sections, "")
	}

	sections = append(sections, sectionTitle("Disk I/O", lc.TableWidth),
		m.rateGauge("Read", monitor.DiskRead, lc.GaugeWidth),
		m.rateGauge("Write", monitor.DiskWrite, lc.GaugeWidth),
	)
	if lc.ShowSparklines && haveSnap {
		sections = append(sections,
			m.historyLine("Read", snap.DiskReadHistory, snap.DiskCeiling, lc.SparklineWidth, m.styles.preset.Secondary),
			m.historyLine("Write", snap.DiskWriteHistory, snap.DiskCeiling, lc.SparklineWidth, m.styles.preset.Secondary),
		)
	}
	return strings.Join(sections, "\n")
}

func (m Model) activityTable(snap *network.Snapshot, width int) string {
	down := m.backend.LatestRate(monitor.Download)
	up := m.backend.LatestRate(monitor.Upload)

	recv, sent := "--", "--"
	if snap != nil {
		recv = format.FormatMiB(snap.SessionRecvMiB)
		sent = format.FormatMiB(snap.SessionSentMiB)
	}

	cfg := widgets.DefaultTableConfig()
	cfg.MaxWidth = width
	cfg.HeaderStyle = m.styles.title
	cfg.Columns = []widgets.Column{
		{Title: "Direction"},
		{Title: "Rate", Align: widgets.AlignRight},
		{Title: "Activity"},
		{Title: "Scale", Align: widgets.AlignRight},
		{Title: "Session", Align: widgets.AlignRight},
	}
	cfg.Rows = [][]string{
		activityRow("Download", down, m.backend.DisplayCeiling(monitor.Download), recv, false),
		activityRow("Upload", up, m.backend.DisplayCeiling(monitor.Upload), sent, true),
	}
	return widgets.RenderTable(cfg)
}

func activityRow(dir string, est rate.Estimate, ceiling float64, total string, upload bool) []string {
	var a widgets.Activity
	if upload {
		a = widgets.UploadActivity(est.PerSecond, est.Valid)
	} else {
		a = widgets.DownloadActivity(est.PerSecond, est.Valid)
	}
	return []string{
		dir,
		format.FormatRate(est.PerSecond, est.Valid, "Mbps"),
		widgets.RenderActivity(a, upload),
		fmt.Sprintf("%.0f Mbps", ceiling),
		total,
	}
}

func (m Model) historyLine(label string, data []float64, ceiling float64, width int, color lipgloss.Color) string {
	if len(data) == 0 {
		return fmt.Sprintf("%-*s %s", gaugeLabelWidth, label, m.styles.muted.Render("no samples yet"))
	}
	return widgets.RenderSparkline(widgets.SparklineConfig{
		Data:  data,
		Width: width,
		Max:   ceiling,
		Label: fmt.Sprintf("%-*s", gaugeLabelWidth, label),
		Color: color,
	})
}
