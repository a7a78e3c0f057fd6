package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
)

// KeyMode identifies where a keybinding is active.
type KeyMode string

const (
	// ModeGlobal bindings work on every tab.
	ModeGlobal    KeyMode = "global"
	ModeNetwork   KeyMode = "network"
	ModeProcesses KeyMode = "processes"
	ModeStartup   KeyMode = "startup"
	// ModeConfirm is active while a y/n prompt is shown.
	ModeConfirm KeyMode = "confirm"
)

var allModes = []KeyMode{ModeGlobal, ModeNetwork, ModeProcesses, ModeStartup, ModeConfirm}

// KeyCategory groups keybindings by function.
type KeyCategory string

const (
	CategoryNavigation KeyCategory = "navigation"
	CategoryScroll     KeyCategory = "scroll"
	CategorySystem     KeyCategory = "system"
	CategoryData       KeyCategory = "data"
	CategoryAction     KeyCategory = "action"
)

// KeyEntry is one registered keybinding with metadata.
type KeyEntry struct {
	Binding  key.Binding
	Mode     KeyMode
	Category KeyCategory
}

// KeyRegistry lists every dashboard binding with the mode it applies in.
type KeyRegistry struct {
	Entries []KeyEntry
}

// DefaultRegistry returns the registry for the bindings in keys.
func DefaultRegistry() *KeyRegistry {
	e := func(b key.Binding, mode KeyMode, cat KeyCategory) KeyEntry {
		return KeyEntry{Binding: b, Mode: mode, Category: cat}
	}
	reg := &KeyRegistry{Entries: []KeyEntry{
		e(keys.NextTab, ModeGlobal, CategoryNavigation),
		e(keys.PrevTab, ModeGlobal, CategoryNavigation),
	}}
	for _, b := range keys.Tabs {
		reg.Entries = append(reg.Entries, e(b, ModeGlobal, CategoryNavigation))
	}
	reg.Entries = append(reg.Entries,
		e(keys.Up, ModeGlobal, CategoryScroll),
		e(keys.Down, ModeGlobal, CategoryScroll),
		e(keys.PageUp, ModeGlobal, CategoryScroll),
		e(keys.PageDown, ModeGlobal, CategoryScroll),
		e(keys.GoTop, ModeGlobal, CategoryScroll),
		e(keys.GoBottom, ModeGlobal, CategoryScroll),

		e(keys.Help, ModeGlobal, CategorySystem),
		e(keys.Quit, ModeGlobal, CategorySystem),
		e(keys.Refresh, ModeGlobal, CategoryData),

		e(keys.ResetSession, ModeNetwork, CategoryData),

		e(keys.ClearCPUCache, ModeProcesses, CategoryData),
		e(keys.Terminate, ModeProcesses, CategoryAction),
		e(keys.Kill, ModeProcesses, CategoryAction),
		e(keys.Suspend, ModeProcesses, CategoryAction),
		e(keys.Resume, ModeProcesses, CategoryAction),
		e(keys.LowerPriority, ModeProcesses, CategoryAction),
		e(keys.NormalPriority, ModeProcesses, CategoryAction),

		e(keys.Disable, ModeStartup, CategoryAction),

		e(keys.Confirm, ModeConfirm, CategoryAction),
		e(keys.Cancel, ModeConfirm, CategoryAction),
	)
	return reg
}

// ByMode returns all entries matching the given mode.
func (r *KeyRegistry) ByMode(mode KeyMode) []KeyEntry {
	var result []KeyEntry
	for _, e := range r.Entries {
		if e.Mode == mode {
			result = append(result, e)
		}
	}
	return result
}

// ByCategory returns all entries matching the given category.
func (r *KeyRegistry) ByCategory(cat KeyCategory) []KeyEntry {
	var result []KeyEntry
	for _, e := range r.Entries {
		if e.Category == cat {
			result = append(result, e)
		}
	}
	return result
}

// HasDuplicateKeys reports keys bound twice where both bindings can fire:
// within one mode, or between a tab mode and the global bindings. The
// confirm prompt swallows all input, so it only conflicts with itself.
func (r *KeyRegistry) HasDuplicateKeys() []string {
	var conflicts []string
	global := make(map[string]string)
	for _, e := range r.ByMode(ModeGlobal) {
		for _, k := range e.Binding.Keys() {
			if prev, ok := global[k]; ok {
				conflicts = append(conflicts, fmt.Sprintf("duplicate key %q in mode %s: %s vs %s", k, ModeGlobal, prev, e.Binding.Help().Desc))
			}
			global[k] = e.Binding.Help().Desc
		}
	}

	for _, mode := range allModes[1:] {
		seen := make(map[string]string)
		for _, e := range r.ByMode(mode) {
			for _, k := range e.Binding.Keys() {
				if prev, ok := seen[k]; ok {
					conflicts = append(conflicts, fmt.Sprintf("duplicate key %q in mode %s: %s vs %s", k, mode, prev, e.Binding.Help().Desc))
				}
				if prev, ok := global[k]; ok && mode != ModeConfirm {
					conflicts = append(conflicts, fmt.Sprintf("key %q in mode %s shadows global %s", k, mode, prev))
				}
				seen[k] = e.Binding.Help().Desc
			}
		}
	}
	return conflicts
}

// FormatTable returns a formatted table of all keybindings.
func (r *KeyRegistry) FormatTable() string {
	var sb strings.Builder
	for _, mode := range allModes {
		entries := r.ByMode(mode)
		if len(entries) == 0 {
			continue
		}
		fmt.Fprintf(&sb, "\n%s:\n", strings.ToUpper(string(mode)))
		sb.WriteString(strings.Repeat("-", 50) + "\n")
		for _, e := range entries {
			fmt.Fprintf(&sb, "  %-20s  %s\n", strings.Join(e.Binding.Keys(), ", "), e.Binding.Help().Desc)
		}
	}
	return sb.String()
}

// FormatJSON returns a JSON-compatible slice of binding descriptions.
func (r *KeyRegistry) FormatJSON() []map[string]string {
	var result []map[string]string
	for _, e := range r.Entries {
		result = append(result, map[string]string{
			"keys":     strings.Join(e.Binding.Keys(), ", "),
			"desc":     e.Binding.Help().Desc,
			"mode":     string(e.Mode),
			"category": string(e.Category),
		})
	}
	return result
}
