package main

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
)

func TestRunKeysCommandTable(t *testing.T) {
	var b bytes.Buffer
	if err := runKeysCommand(&b, "all", "table"); err != nil {
		t.Fatal(err)
	}
	out := b.String()
	for _, want := range []string{"GLOBAL:", "PROCESSES:", "STARTUP:", "quit"} {
		if !strings.Contains(out, want) {
			t.Errorf("table missing %q", want)
		}
	}
}

func TestRunKeysCommandSingleMode(t *testing.T) {
	var b bytes.Buffer
	if err := runKeysCommand(&b, "processes", "table"); err != nil {
		t.Fatal(err)
	}
	out := b.String()
	if !strings.Contains(out, "PROCESSES:") || strings.Contains(out, "GLOBAL:") {
		t.Errorf("output = %q", out)
	}
}

func TestRunKeysCommandJSON(t *testing.T) {
	var b bytes.Buffer
	if err := runKeysCommand(&b, "startup", "json"); err != nil {
		t.Fatal(err)
	}
	var entries []map[string]string
	if err := json.Unmarshal(b.Bytes(), &entries); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if len(entries) == 0 {
		t.Fatal("no startup bindings")
	}
	for _, e := range entries {
		if e["mode"] != "startup" {
			t.Errorf("entry from mode %q", e["mode"])
		}
	}
}

func TestRunKeysCommandErrors(t *testing.T) {
	var b bytes.Buffer
	if err := runKeysCommand(&b, "billing", "table"); err == nil {
		t.Error("expected error for unknown mode")
	}
	if err := runKeysCommand(&b, "all", "yaml"); err == nil {
		t.Error("expected error for unknown format")
	}
}
