package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"gitlab.com/tinyland/lab/sysgauge/cache"
	"gitlab.com/tinyland/lab/sysgauge/collectors/network"
	"gitlab.com/tinyland/lab/sysgauge/collectors/processes"
	"gitlab.com/tinyland/lab/sysgauge/collectors/sysmetrics"
	"gitlab.com/tinyland/lab/sysgauge/display/widgets"
	"gitlab.com/tinyland/lab/sysgauge/internal/format"
	"gitlab.com/tinyland/lab/sysgauge/rate"
)

// statusTopProcesses is how many processes -status lists.
const statusTopProcesses = 5

// statusReport is what the daemon last persisted.
type statusReport struct {
	Health    *HealthStatus              `json:"health,omitempty"`
	Stale     bool                       `json:"stale"`
	Network   *network.Snapshot          `json:"network,omitempty"`
	Processes *processes.Snapshot        `json:"processes,omitempty"`
	System    *sysmetrics.SysMetricsData `json:"system,omitempty"`
}

// loadStatusReport reads every snapshot. A snapshot older than ttl is
// still returned and marks the report stale.
func loadStatusReport(store *cache.Store, ttl time.Duration) (statusReport, error) {
	var r statusReport
	fresh := true

	net, ok, err := cache.GetTyped[network.Snapshot](store, cache.KeyNetwork, ttl)
	if err != nil {
		return r, err
	}
	r.Network, fresh = net, fresh && ok

	procs, ok, err := cache.GetTyped[processes.Snapshot](store, cache.KeyProcesses, ttl)
	if err != nil {
		return r, err
	}
	r.Processes, fresh = procs, fresh && ok

	sys, ok, err := cache.GetTyped[sysmetrics.SysMetricsData](store, cache.KeySystem, ttl)
	if err != nil {
		return r, err
	}
	r.System, fresh = sys, fresh && ok

	if h, err := readHealthFile(store); err == nil {
		r.Health = h
	}
	r.Stale = !fresh
	return r, nil
}

// runStatus prints the last persisted snapshot and returns the exit code:
// 0 when the daemon is healthy and every snapshot is fresh.
func runStatus(stdout, stderr io.Writer, store *cache.Store, ttl time.Duration, now time.Time, jsonOutput bool, width int) int {
	report, err := loadStatusReport(store, ttl)
	if err != nil {
		fmt.Fprintf(stderr, "read snapshots: %v\n", err)
		return 1
	}

	if jsonOutput {
		data, _ := json.MarshalIndent(report, "", "  ")
		fmt.Fprintln(stdout, string(data))
		if report.Stale || report.Health == nil || now.Sub(report.Health.LastPoll) > ttl {
			return 1
		}
		return 0
	}

	code := checkHealth(stdout, stderr, store, ttl, now, false)
	if report.Network == nil && report.System == nil && report.Processes == nil {
		fmt.Fprintln(stderr, "no snapshots yet; start sysgauge -daemon")
		return 1
	}
	if report.Stale {
		fmt.Fprintln(stderr, "snapshots are stale")
		code = 1
	}
	fmt.Fprint(stdout, renderStatusText(report, width))
	return code
}

// renderStatusText lays the report out as two plain tables.
func renderStatusText(r statusReport, width int) string {
	var b strings.Builder

	cfg := widgets.DefaultTableConfig()
	cfg.MaxWidth = width
	cfg.Columns = []widgets.Column{
		{Title: "Metric"},
		{Title: "Value", Align: widgets.AlignRight},
		{Title: "Detail"},
	}
	cfg.Rows = statusRows(r)
	b.WriteString(widgets.RenderTable(cfg))

	if r.Processes != nil && len(r.Processes.Rows) > 0 {
		b.WriteString("\n\n")
		pcfg := widgets.DefaultTableConfig()
		pcfg.MaxWidth = width
		pcfg.Columns = []widgets.Column{
			{Title: "PID", Align: widgets.AlignRight},
			{Title: "Name"},
			{Title: "CPU%", Align: widgets.AlignRight},
			{Title: "Memory", Align: widgets.AlignRight},
		}
		for _, p := range r.Processes.Top(statusTopProcesses) {
			cpu := "--"
			if p.Measured {
				cpu = fmt.Sprintf("%.1f", p.CPU)
			}
			pcfg.Rows = append(pcfg.Rows, []string{
				strconv.Itoa(int(p.PID)), p.Name, cpu, format.FormatBytes(p.RSS),
			})
		}
		b.WriteString(widgets.RenderTable(pcfg))
	}
	b.WriteString("\n")
	return b.String()
}

func statusRows(r statusReport) [][]string {
	var rows [][]string

	if n := r.Network; n != nil {
		switch {
		case n.Degraded:
			rows = append(rows, []string{"Interface", "none", "no active network interface"})
		default:
			state := "connected"
			if !n.Connected {
				state = "disconnected"
			}
			if n.Stale {
				state = "stale"
			}
			rows = append(rows, []string{"Interface", n.Interface, strings.TrimSpace(n.AdapterKind + " " + state)})
		}
		rows = append(rows,
			rateRow("Download", n.Download, "Mbps", widgets.DownloadActivity(n.Download.PerSecond, n.Download.Valid).Label(false)),
			rateRow("Upload", n.Upload, "Mbps", widgets.UploadActivity(n.Upload.PerSecond, n.Upload.Valid).Label(true)),
			rateRow("Disk read", n.DiskRead, "MB/s", ""),
			rateRow("Disk write", n.DiskWrite, "MB/s", ""),
			[]string{"Session", format.FormatMiB(n.SessionRecvMiB), "received, " + format.FormatMiB(n.SessionSentMiB) + " sent"},
		)
	}

	if s := r.System; s != nil {
		cpu := "--"
		if s.CPUValid {
			cpu = format.FormatPercent(s.CPU)
		}
		rows = append(rows,
			[]string{"CPU", cpu, ""},
			[]string{"RAM", format.FormatPercent(s.RAM), format.FormatBytes(s.RAMUsed) + " / " + format.FormatBytes(s.RAMTotal)},
			[]string{"Disk", format.FormatPercent(s.Disk), format.FormatBytes(s.DiskUsed) + " / " + format.FormatBytes(s.DiskTotal)},
			[]string{"Load", fmt.Sprintf("%.2f", s.LoadAvg1), fmt.Sprintf("%.2f %.2f", s.LoadAvg5, s.LoadAvg15)},
			[]string{"Uptime", format.FormatDuration(s.Uptime), ""},
		)
	}

	if p := r.Processes; p != nil {
		rows = append(rows, []string{"Processes", strconv.Itoa(p.ProcessCount), fmt.Sprintf("%d threads", p.ThreadCount)})
	}
	return rows
}

func rateRow(label string, e rate.Estimate, unit, detail string) []string {
	return []string{label, format.FormatRate(e.PerSecond, e.Valid, unit), detail}
}
