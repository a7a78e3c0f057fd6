package tui

import (
	"context"
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"gitlab.com/tinyland/lab/sysgauge/collectors/network"
	"gitlab.com/tinyland/lab/sysgauge/collectors/processes"
	"gitlab.com/tinyland/lab/sysgauge/collectors/sysmetrics"
	"gitlab.com/tinyland/lab/sysgauge/monitor"
	"gitlab.com/tinyland/lab/sysgauge/rate"
	"gitlab.com/tinyland/lab/sysgauge/source"
)

// Backend is the part of *monitor.Monitor the dashboard reads from.
type Backend interface {
	Updates() <-chan monitor.Event
	Status() monitor.Status

	LatestRate(q monitor.Quantity) rate.Estimate
	DisplayCeiling(q monitor.Quantity) float64
	Network() (*network.Snapshot, bool)
	Processes() (*processes.Snapshot, bool)
	System() (*sysmetrics.SysMetricsData, bool)
	Refresh(ctx context.Context, name string) error

	Enumerate(ctx context.Context, kind monitor.Kind) (any, error)
	ForceRefresh(ctx context.Context, kind monitor.Kind) (any, error)
	LastKnown(kind monitor.Kind) (any, time.Time, bool)
	Hardware(ctx context.Context, force bool) (source.HardwareInfo, error)

	ResetNetwork()
	ClearCPUCache()
	Control(ctx context.Context, pid int32, action source.Action) error
	SetPriority(pid int32, p source.Priority) error
	DisableStartup(entry source.StartupEntry) error
}

var _ Backend = (*monitor.Monitor)(nil)

// eventMsg carries one monitor event into the update loop.
type eventMsg monitor.Event

// updatesClosedMsg is sent once the monitor has stopped.
type updatesClosedMsg struct{}

// listMsg delivers an enumeration result.
type listMsg struct {
	kind  monitor.Kind
	items any
	err   error
}

// actionMsg reports the outcome of a process or startup action.
type actionMsg struct {
	text    string
	err     error
	startup bool
}

// refreshedMsg reports a forced collection.
type refreshedMsg struct {
	source string
	err    error
}

func waitForEvent(ch <-chan monitor.Event) tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-ch
		if !ok {
			return updatesClosedMsg{}
		}
		return eventMsg(ev)
	}
}

func enumerateCmd(ctx context.Context, b Backend, kind monitor.Kind, force bool) tea.Cmd {
	return func() tea.Msg {
		var (
			items any
			err   error
		)
		if force {
			items, err = b.ForceRefresh(ctx, kind)
		} else {
			items, err = b.Enumerate(ctx, kind)
		}
		return listMsg{kind: kind, items: items, err: err}
	}
}

func refreshCmd(ctx context.Context, b Backend, name string) tea.Cmd {
	return func() tea.Msg {
		return refreshedMsg{source: name, err: b.Refresh(ctx, name)}
	}
}

func processActionCmd(ctx context.Context, b Backend, row processes.Row, action source.Action) tea.Cmd {
	return func() tea.Msg {
		return actionMsg{
			text: fmt.Sprintf("%s %s (%d)", action, row.Name, row.PID),
			err:  b.Control(ctx, row.PID, action),
		}
	}
}

func priorityCmd(b Backend, row processes.Row, p source.Priority) tea.Cmd {
	return func() tea.Msg {
		return actionMsg{
			text: fmt.Sprintf("priority of %s (%d) set to %s", row.Name, row.PID, p),
			err:  b.SetPriority(row.PID, p),
		}
	}
}
