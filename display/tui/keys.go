package tui

import "github.com/charmbracelet/bubbles/key"

// keyMap holds every binding of the dashboard. It implements
// help.KeyMap for the footer.
type keyMap struct {
	Quit     key.Binding
	NextTab  key.Binding
	PrevTab  key.Binding
	Tabs     [tabCount]key.Binding
	Up       key.Binding
	Down     key.Binding
	PageUp   key.Binding
	PageDown key.Binding
	GoTop    key.Binding
	GoBottom key.Binding
	Help     key.Binding
	Refresh  key.Binding

	// Network tab.
	ResetSession key.Binding

	// Processes tab.
	Terminate      key.Binding
	Kill           key.Binding
	Suspend        key.Binding
	Resume         key.Binding
	ClearCPUCache  key.Binding
	LowerPriority  key.Binding
	NormalPriority key.Binding

	// Startup tab.
	Disable key.Binding

	// Confirmation prompt.
	Confirm key.Binding
	Cancel  key.Binding
}

// ShortHelp returns the bindings shown in the collapsed footer.
func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Help, k.NextTab, k.Refresh, k.Quit}
}

// FullHelp returns the bindings shown when help is expanded.
func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.NextTab, k.PrevTab, k.Tabs[0], k.Tabs[1], k.Tabs[2], k.Tabs[3], k.Tabs[4], k.Tabs[5], k.Tabs[6]},
		{k.Up, k.Down, k.PageUp, k.PageDown, k.GoTop, k.GoBottom},
		{k.Refresh, k.ResetSession, k.ClearCPUCache, k.Help, k.Quit},
		{k.Terminate, k.Kill, k.Suspend, k.Resume, k.LowerPriority, k.NormalPriority, k.Disable},
	}
}

func tabBinding(t Tab) key.Binding {
	n := string(rune('1' + int(t)))
	return key.NewBinding(key.WithKeys(n), key.WithHelp(n, tabNames[t]))
}

// keys holds the default key bindings used by the application.
var keys = keyMap{
	Quit:    key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	NextTab: key.NewBinding(key.WithKeys("tab", "right"), key.WithHelp("tab", "next tab")),
	PrevTab: key.NewBinding(key.WithKeys("shift+tab", "left"), key.WithHelp("shift+tab", "prev tab")),
	Tabs: [tabCount]key.Binding{
		tabBinding(TabNetwork), tabBinding(TabProcesses), tabBinding(TabSystem),
		tabBinding(TabServices), tabBinding(TabPrograms), tabBinding(TabStartup),
		tabBinding(TabHardware),
	},
	Up:       key.NewBinding(key.WithKeys("k", "up"), key.WithHelp("k/up", "up")),
	Down:     key.NewBinding(key.WithKeys("j", "down"), key.WithHelp("j/dn", "down")),
	PageUp:   key.NewBinding(key.WithKeys("pgup", "ctrl+u"), key.WithHelp("pgup", "page up")),
	PageDown: key.NewBinding(key.WithKeys("pgdown", "ctrl+d"), key.WithHelp("pgdn", "page down")),
	GoTop:    key.NewBinding(key.WithKeys("g", "home"), key.WithHelp("g", "top")),
	GoBottom: key.NewBinding(key.WithKeys("G", "end"), key.WithHelp("G", "bottom")),
	Help:     key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "help")),
	Refresh:  key.NewBinding(key.WithKeys("r", "ctrl+r"), key.WithHelp("r", "refresh")),

	ResetSession: key.NewBinding(key.WithKeys("z"), key.WithHelp("z", "reset session")),

	Terminate:     key.NewBinding(key.WithKeys("x"), key.WithHelp("x", "terminate")),
	Kill:          key.NewBinding(key.WithKeys("K"), key.WithHelp("K", "kill")),
	Suspend:       key.NewBinding(key.WithKeys("s"), key.WithHelp("s", "suspend")),
	Resume:        key.NewBinding(key.WithKeys("c"), key.WithHelp("c", "resume")),
	ClearCPUCache: key.NewBinding(key.WithKeys("z"), key.WithHelp("z", "clear cpu cache")),

	LowerPriority:  key.NewBinding(key.WithKeys("-"), key.WithHelp("-", "lower priority")),
	NormalPriority: key.NewBinding(key.WithKeys("="), key.WithHelp("=", "normal priority")),

	Disable: key.NewBinding(key.WithKeys("d"), key.WithHelp("d", "disable")),

	Confirm: key.NewBinding(key.WithKeys("y", "enter"), key.WithHelp("y", "confirm")),
	Cancel:  key.NewBinding(key.WithKeys("n", "esc"), key.WithHelp("n", "cancel")),
}
