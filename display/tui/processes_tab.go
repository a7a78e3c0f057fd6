package tui

import (
	"fmt"
	"strconv"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"

	"gitlab.com/tinyland/lab/sysgauge/collectors/processes"
	"gitlab.com/tinyland/lab/sysgauge/internal/format"
	"gitlab.com/tinyland/lab/sysgauge/source"
)

var processColumns = []table.Column{
	{Title: "PID", Width: 7},
	{Title: "Name", Width: 28},
	{Title: "CPU%", Width: 6},
	{Title: "Memory", Width: 10},
	{Title: "Threads", Width: 7},
	{Title: "State", Width: 9},
}

const processFlexColumn = 1

func processRows(rows []processes.Row) ([]table.Row, []int32) {
	out := make([]table.Row, 0, len(rows))
	pids := make([]int32, 0, len(rows))
	for _, r := range rows {
		cpu := "--"
		if r.Measured {
			cpu = fmt.Sprintf("%.1f", r.CPU)
		}
		out = append(out, table.Row{
			strconv.Itoa(int(r.PID)),
			r.Name,
			cpu,
			format.FormatBytes(r.RSS),
			strconv.Itoa(int(r.Threads)),
			r.Status,
		})
		pids = append(pids, r.PID)
	}
	return out, pids
}

// syncProcesses reloads the table from the latest snapshot, keeping the
// cursor on the same pid when it is still listed.
func (m *Model) syncProcesses() {
	snap, ok := m.backend.Processes()
	if !ok {
		return
	}
	var selected int32 = -1
	if c := m.procTable.Cursor(); c >= 0 && c < len(m.procPIDs) {
		selected = m.procPIDs[c]
	}
	rows, pids := processRows(snap.Top(m.opts.Top))
	m.procTable.SetRows(rows)
	m.procPIDs = pids
	if len(pids) == 0 {
		return
	}
	cursor := min(max(m.procTable.Cursor(), 0), len(pids)-1)
	for i, pid := range pids {
		if pid == selected {
			cursor = i
			break
		}
	}
	m.procTable.SetCursor(cursor)
}

func (m Model) selectedProcess() (processes.Row, bool) {
	c := m.procTable.Cursor()
	if c < 0 || c >= len(m.procPIDs) {
		return processes.Row{}, false
	}
	snap, ok := m.backend.Processes()
	if !ok {
		return processes.Row{}, false
	}
	return snap.Lookup(m.procPIDs[c])
}

func (m Model) renderProcesses() string {
	snap, ok := m.backend.Processes()
	if !ok {
		return "Waiting for the first process sample..."
	}
	summary := fmt.Sprintf("%s processes  %s threads  CPU %s",
		m.styles.title.Render(strconv.Itoa(snap.ProcessCount)),
		m.styles.title.Render(strconv.Itoa(snap.ThreadCount)),
		m.styles.title.Render(format.FormatPercent(snap.TotalCPU)))
	if snap.CoreCount > 0 {
		summary += m.styles.muted.Render(fmt.Sprintf("  (%d cores)", snap.CoreCount))
	}
	if snap.Unreadable > 0 {
		summary += "  " + m.styles.warning.Render(fmt.Sprintf("%d unreadable", snap.Unreadable))
	}
	return summary + "\n\n" + m.procTable.View()
}

func (m Model) handleProcessKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Matches(msg, keys.ClearCPUCache) {
		m.backend.ClearCPUCache()
		m.setStatus("CPU baselines cleared", false)
		return m, nil
	}

	if key.Matches(msg, keys.LowerPriority) || key.Matches(msg, keys.NormalPriority) {
		row, ok := m.selectedProcess()
		if !ok {
			return m, nil
		}
		p := source.PriorityBelowNormal
		if key.Matches(msg, keys.NormalPriority) {
			p = source.PriorityNormal
		}
		return m, priorityCmd(m.backend, row, p)
	}

	var (
		action  source.Action
		confirm bool
	)
	switch {
	case key.Matches(msg, keys.Terminate):
		action, confirm = source.ActionTerminate, true
	case key.Matches(msg, keys.Kill):
		action, confirm = source.ActionKill, true
	case key.Matches(msg, keys.Suspend):
		action = source.ActionSuspend
	case key.Matches(msg, keys.Resume):
		action = source.ActionResume
	default:
		return m, nil
	}

	row, ok := m.selectedProcess()
	if !ok {
		return m, nil
	}
	run := processActionCmd(m.opts.Context, m.backend, row, action)
	if !confirm {
		return m, run
	}
	m.confirm = &pendingAction{
		prompt: fmt.Sprintf("%s %s (%d)?", actionVerb(action), row.Name, row.PID),
		run:    run,
	}
	return m, nil
}

func actionVerb(a source.Action) string {
	switch a {
	case source.ActionTerminate:
		return "Terminate"
	case source.ActionKill:
		return "Kill"
	case source.ActionSuspend:
		return "Suspend"
	case source.ActionResume:
		return "Resume"
	}
	return string(a)
}
