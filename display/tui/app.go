// Package tui is the interactive dashboard. It renders what a Backend
// (normally *monitor.Monitor) publishes and redraws on every monitor
// event.
package tui

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	zone "github.com/lrstanley/bubblezone"

	"gitlab.com/tinyland/lab/sysgauge/monitor"
)

// Tab identifies which tab is currently active.
type Tab int

const (
	TabNetwork Tab = iota
	TabProcesses
	TabSystem
	TabServices
	TabPrograms
	TabStartup
	TabHardware
	tabCount // sentinel for wrapping
)

var tabNames = map[Tab]string{
	TabNetwork:   "Network",
	TabProcesses: "Processes",
	TabSystem:    "System",
	TabServices:  "Services",
	TabPrograms:  "Programs",
	TabStartup:   "Startup",
	TabHardware:  "Hardware",
}

func (t Tab) String() string { return tabNames[t] }

// kind returns the enumeration shown by a list tab.
func (t Tab) kind() (monitor.Kind, bool) {
	switch t {
	case TabServices:
		return monitor.KindServices, true
	case TabPrograms:
		return monitor.KindPrograms, true
	case TabStartup:
		return monitor.KindStartup, true
	}
	return "", false
}

// Collector names as registered by the monitor.
const (
	sourceNetwork   = "network"
	sourceProcesses = "processes"
	sourceSystem    = "sysmetrics"
)

// Options configures a Model.
type Options struct {
	// Theme is a preset name; unknown names use the monitoring theme.
	Theme string
	// EnableMouse turns on clickable tabs and wheel scrolling. The
	// program must also be started with tea.WithMouseCellMotion.
	EnableMouse bool
	// Top caps the process table; 0 shows every process.
	Top int
	// Context bounds backend calls made from commands.
	Context context.Context
	Now     func() time.Time
}

// pendingAction is a destructive action waiting for y/n.
type pendingAction struct {
	prompt string
	run    tea.Cmd
}

// Model is the top-level Bubbletea model for the dashboard.
type Model struct {
	backend Backend
	opts    Options
	styles  styles
	zones   *zone.Manager
	help    help.Model

	activeTab Tab
	width     int
	height    int
	ready     bool

	procTable table.Model
	procPIDs  []int32
	services  listState
	programs  listState
	startup   listState
	hardware  hardwareState

	confirm     *pendingAction
	statusMsg   string
	statusErr   bool
	errSource   string
	lastUpdated time.Time
	closed      bool
}

// NewModel returns a Model reading from b with the Network tab active.
func NewModel(b Backend, opts Options) Model {
	if opts.Context == nil {
		opts.Context = context.Background()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	m := Model{
		backend:   b,
		opts:      opts,
		styles:    newStyles(GetThemePreset(opts.Theme)),
		help:      help.New(),
		activeTab: TabNetwork,
		procTable: newTable(processColumns),
		services:  listState{kind: monitor.KindServices, table: newTable(serviceColumns)},
		programs:  listState{kind: monitor.KindPrograms, table: newTable(programColumns)},
		startup:   listState{kind: monitor.KindStartup, table: newTable(startupColumns)},
	}
	if opts.EnableMouse {
		m.zones = zone.New()
	}
	ts := m.styles.tableStyles()
	for _, t := range []*table.Model{&m.procTable, &m.services.table, &m.programs.table, &m.startup.table} {
		t.SetStyles(ts)
	}
	m.help.Styles.ShortKey = m.styles.label
	m.help.Styles.FullKey = m.styles.label
	return m
}

func newTable(cols []table.Column) table.Model {
	return table.New(table.WithColumns(cols), table.WithFocused(true), table.WithHeight(10))
}

// Close releases the mouse zone manager.
func (m Model) Close() {
	if m.zones != nil {
		m.zones.Close()
	}
}

// Init implements tea.Model. It starts listening for monitor events.
func (m Model) Init() tea.Cmd {
	return waitForEvent(m.backend.Updates())
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.MouseMsg:
		return m.handleMouse(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.ready = true
		m.resize()
		return m, nil

	case eventMsg:
		m.lastUpdated = msg.Time
		if msg.Err != nil {
			m.setStatus(fmt.Sprintf("%s: %v", msg.Source, msg.Err), true)
			m.errSource = msg.Source
		} else if m.errSource == msg.Source {
			m.setStatus("", false)
			m.errSource = ""
		}
		if msg.Source == sourceProcesses {
			m.syncProcesses()
		}
		return m, waitForEvent(m.backend.Updates())

	case updatesClosedMsg:
		m.closed = true
		return m, nil

	case refreshedMsg:
		if msg.err != nil {
			m.setStatus(fmt.Sprintf("refresh %s: %v", msg.source, msg.err), true)
		} else {
			m.lastUpdated = m.opts.Now()
			m.setStatus("refreshed "+msg.source, false)
		}
		if msg.source == sourceProcesses {
			m.syncProcesses()
		}
		return m, nil

	case listMsg:
		l := m.list(msg.kind)
		l.loading = false
		if msg.err != nil {
			l.err = msg.err
			m.setStatus(msg.err.Error(), true)
			return m, nil
		}
		l.err = nil
		l.set(msg.items, m.opts.Now())
		return m, nil

	case hardwareMsg:
		m.hardware.loading = false
		if msg.err != nil {
			m.hardware.err = msg.err
			m.setStatus(msg.err.Error(), true)
			return m, nil
		}
		m.hardware = hardwareState{info: msg.info, loaded: true}
		return m, nil

	case actionMsg:
		if msg.err != nil {
			m.setStatus(fmt.Sprintf("%s: %v", msg.text, msg.err), true)
			return m, nil
		}
		m.setStatus(msg.text, false)
		if msg.startup {
			return m, m.loadList(monitor.KindStartup, false)
		}
		return m, refreshCmd(m.opts.Context, m.backend, sourceProcesses)
	}

	return m, nil
}

func (m *Model) setStatus(text string, isErr bool) {
	m.statusMsg = text
	m.statusErr = isErr
}

func (m *Model) resize() {
	lc := LayoutForSize(DetectLayout(m.width), m.width)
	h := tableHeight(m.height, 2)
	m.procTable.SetColumns(fitColumns(processColumns, processFlexColumn, lc.TableWidth))
	m.procTable.SetHeight(h)
	m.services.resize(fitColumns(serviceColumns, serviceFlexColumn, lc.TableWidth), h)
	m.programs.resize(fitColumns(programColumns, programFlexColumn, lc.TableWidth), h)
	m.startup.resize(fitColumns(startupColumns, startupFlexColumn, lc.TableWidth), h)
	m.help.Width = m.width
}

func (m *Model) list(kind monitor.Kind) *listState {
	switch kind {
	case monitor.KindPrograms:
		return &m.programs
	case monitor.KindStartup:
		return &m.startup
	default:
		return &m.services
	}
}

func (m *Model) activeTable() *table.Model {
	switch m.activeTab {
	case TabProcesses:
		return &m.procTable
	case TabServices:
		return &m.services.table
	case TabPrograms:
		return &m.programs.table
	case TabStartup:
		return &m.startup.table
	}
	return nil
}

// loadList starts an enumeration. Stored rows stay visible meanwhile.
func (m *Model) loadList(kind monitor.Kind, force bool) tea.Cmd {
	l := m.list(kind)
	if l.loading && !force {
		return nil
	}
	l.loading = true
	if !l.loaded {
		if items, at, ok := m.backend.LastKnown(kind); ok {
			l.set(items, at)
		}
	}
	return enumerateCmd(m.opts.Context, m.backend, kind, force)
}

func (m Model) switchTab(t Tab) (Model, tea.Cmd) {
	m.activeTab = (t + tabCount) % tabCount
	m.confirm = nil
	if kind, ok := m.activeTab.kind(); ok {
		return m, m.loadList(kind, false)
	}
	if m.activeTab == TabHardware && !m.hardware.loaded {
		return m, m.loadHardware(false)
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.confirm != nil {
		pending := m.confirm
		m.confirm = nil
		switch {
		case key.Matches(msg, keys.Confirm):
			m.setStatus("working...", false)
			return m, pending.run
		case key.Matches(msg, keys.Quit) && msg.String() == "ctrl+c":
			return m, tea.Quit
		}
		m.setStatus("cancelled", false)
		return m, nil
	}

	switch {
	case key.Matches(msg, keys.Quit):
		return m, tea.Quit
	case key.Matches(msg, keys.Help):
		m.help.ShowAll = !m.help.ShowAll
		return m, nil
	case key.Matches(msg, keys.NextTab):
		return m.switchTab(m.activeTab + 1)
	case key.Matches(msg, keys.PrevTab):
		return m.switchTab(m.activeTab - 1)
	case key.Matches(msg, keys.Refresh):
		return m.refresh()
	}
	for i, b := range keys.Tabs {
		if key.Matches(msg, b) {
			return m.switchTab(Tab(i))
		}
	}

	if t := m.activeTable(); t != nil {
		switch {
		case key.Matches(msg, keys.Up):
			t.MoveUp(1)
			return m, nil
		case key.Matches(msg, keys.Down):
			t.MoveDown(1)
			return m, nil
		case key.Matches(msg, keys.PageUp):
			t.MoveUp(t.Height())
			return m, nil
		case key.Matches(msg, keys.PageDown):
			t.MoveDown(t.Height())
			return m, nil
		case key.Matches(msg, keys.GoTop):
			t.GotoTop()
			return m, nil
		case key.Matches(msg, keys.GoBottom):
			t.GotoBottom()
			return m, nil
		}
	}

	switch m.activeTab {
	case TabNetwork:
		if key.Matches(msg, keys.ResetSession) {
			m.backend.ResetNetwork()
			m.setStatus("session totals and rate baselines reset", false)
		}
	case TabProcesses:
		return m.handleProcessKey(msg)
	case TabStartup:
		return m.handleStartupKey(msg)
	}
	return m, nil
}

func (m Model) refresh() (tea.Model, tea.Cmd) {
	if kind, ok := m.activeTab.kind(); ok {
		m.setStatus("refreshing "+string(kind)+"...", false)
		return m, m.loadList(kind, true)
	}
	if m.activeTab == TabHardware {
		m.setStatus("refreshing hardware...", false)
		return m, m.loadHardware(true)
	}
	name := sourceNetwork
	switch m.activeTab {
	case TabProcesses:
		name = sourceProcesses
	case TabSystem:
		name = sourceSystem
	}
	return m, refreshCmd(m.opts.Context, m.backend, name)
}

func (m Model) handleMouse(msg tea.MouseMsg) (tea.Model, tea.Cmd) {
	if m.zones == nil {
		return m, nil
	}
	switch msg.Button {
	case tea.MouseButtonWheelUp:
		if t := m.activeTable(); t != nil {
			t.MoveUp(1)
		}
		return m, nil
	case tea.MouseButtonWheelDown:
		if t := m.activeTable(); t != nil {
			t.MoveDown(1)
		}
		return m, nil
	}
	if msg.Action != tea.MouseActionRelease || msg.Button != tea.MouseButtonLeft {
		return m, nil
	}
	for t := Tab(0); t < tabCount; t++ {
		if m.zones.Get(tabZoneID(t)).InBounds(msg) {
			return m.switchTab(t)
		}
	}
	return m, nil
}

func tabZoneID(t Tab) string { return "tab-" + tabNames[t] }

// View implements tea.Model.
func (m Model) View() string {
	if !m.ready {
		return "Initializing..."
	}
	out := lipgloss.JoinVertical(lipgloss.Left, m.renderHeader(), m.renderTabContent(), m.renderFooter())
	if m.zones != nil {
		return m.zones.Scan(out)
	}
	return out
}

func (m Model) renderHeader() string {
	tabs := make([]string, 0, tabCount)
	for t := Tab(0); t < tabCount; t++ {
		label := fmt.Sprintf("%d %s", int(t)+1, tabNames[t])
		style := m.styles.inactiveTab
		if t == m.activeTab {
			style = m.styles.activeTab
		}
		rendered := style.Render(label)
		if m.zones != nil {
			rendered = m.zones.Mark(tabZoneID(t), rendered)
		}
		tabs = append(tabs, rendered)
	}
	return m.styles.header.Width(m.width).Render(lipgloss.JoinHorizontal(lipgloss.Top, tabs...))
}

func (m Model) renderTabContent() string {
	lc := LayoutForSize(DetectLayout(m.width), m.width)
	var content string
	switch m.activeTab {
	case TabNetwork:
		content = m.renderNetwork(lc)
	case TabProcesses:
		content = m.renderProcesses()
	case TabSystem:
		content = m.renderSystem(lc)
	case TabServices:
		content = m.renderList(&m.services)
	case TabPrograms:
		content = m.renderList(&m.programs)
	case TabStartup:
		content = m.renderList(&m.startup)
	case TabHardware:
		content = m.renderHardware(lc)
	}
	return m.styles.content.Width(m.width).Render(content)
}

func (m Model) renderFooter() string {
	var status string
	switch {
	case m.confirm != nil:
		status = m.styles.prompt.Render(m.confirm.prompt + " [y/N]")
	case m.statusMsg != "" && m.statusErr:
		status = m.styles.danger.Render(m.statusMsg)
	case m.statusMsg != "":
		status = m.statusMsg
	case m.closed:
		status = "monitor stopped"
	case !m.lastUpdated.IsZero():
		status = "Updated " + m.lastUpdated.Format("15:04:05")
	}
	return lipgloss.JoinVertical(lipgloss.Left,
		m.styles.footer.Width(m.width).Render(status),
		m.help.View(keys))
}
