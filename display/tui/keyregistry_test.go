package tui

import (
	"strings"
	"testing"
)

func TestDefaultRegistry_NoDuplicateKeys(t *testing.T) {
	for _, c := range DefaultRegistry().HasDuplicateKeys() {
		t.Errorf("key conflict: %s", c)
	}
}

func TestHasDuplicateKeys_DetectsShadowing(t *testing.T) {
	reg := DefaultRegistry()
	reg.Entries = append(reg.Entries, KeyEntry{Binding: keys.Quit, Mode: ModeStartup, Category: CategoryAction})
	if len(reg.HasDuplicateKeys()) == 0 {
		t.Error("expected a conflict for q bound in startup and global")
	}
}

func TestDefaultRegistry_Modes(t *testing.T) {
	reg := DefaultRegistry()
	tests := []struct {
		mode KeyMode
		min  int
	}{
		{ModeGlobal, 10},
		{ModeNetwork, 1},
		{ModeProcesses, 5},
		{ModeStartup, 1},
		{ModeConfirm, 2},
	}
	for _, tt := range tests {
		if got := len(reg.ByMode(tt.mode)); got < tt.min {
			t.Errorf("mode %s has %d bindings, want at least %d", tt.mode, got, tt.min)
		}
	}
}

func TestDefaultRegistry_ByCategory(t *testing.T) {
	reg := DefaultRegistry()
	if len(reg.ByCategory(CategoryAction)) == 0 || len(reg.ByCategory(CategoryScroll)) == 0 {
		t.Error("expected action and scroll bindings")
	}
}

func TestKeyRegistry_FormatTable(t *testing.T) {
	out := DefaultRegistry().FormatTable()
	for _, want := range []string{"GLOBAL:", "PROCESSES:", "terminate", "disable"} {
		if !strings.Contains(out, want) {
			t.Errorf("FormatTable missing %q", want)
		}
	}
}

func TestKeyRegistry_FormatJSON(t *testing.T) {
	entries := DefaultRegistry().FormatJSON()
	if len(entries) != len(DefaultRegistry().Entries) {
		t.Fatalf("got %d entries", len(entries))
	}
	for _, e := range entries {
		if e["keys"] == "" || e["mode"] == "" {
			t.Errorf("incomplete entry %v", e)
		}
	}
}
