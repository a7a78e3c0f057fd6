package main

import (
	"encoding/json"
	"fmt"
	"io"

	"gitlab.com/tinyland/lab/sysgauge/display/tui"
)

// runKeysCommand prints the dashboard keybindings. mode "all" (or empty)
// prints every mode; format is "table" or "json".
func runKeysCommand(w io.Writer, mode, format string) error {
	reg := tui.DefaultRegistry()
	if mode == "all" {
		mode = ""
	}

	switch format {
	case "json":
		entries := reg.FormatJSON()
		if mode != "" {
			entries = filterJSONByMode(entries, mode)
		}
		data, err := json.MarshalIndent(entries, "", "  ")
		if err != nil {
			return fmt.Errorf("marshal keybindings: %w", err)
		}
		fmt.Fprintln(w, string(data))

	case "table", "":
		if mode != "" {
			filtered := reg.ByMode(tui.KeyMode(mode))
			if len(filtered) == 0 {
				return fmt.Errorf("no bindings found for mode %q", mode)
			}
			reg = &tui.KeyRegistry{Entries: filtered}
		}
		fmt.Fprint(w, reg.FormatTable())

	default:
		return fmt.Errorf("unknown keys format %q (supported: table, json)", format)
	}
	return nil
}

// filterJSONByMode filters FormatJSON entries by mode name.
func filterJSONByMode(entries []map[string]string, mode string) []map[string]string {
	var result []map[string]string
	for _, e := range entries {
		if e["mode"] == mode {
			result = append(result, e)
		}
	}
	return result
}
