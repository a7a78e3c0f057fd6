package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sort"
	"time"

	"gitlab.com/tinyland/lab/sysgauge/cache"
	"gitlab.com/tinyland/lab/sysgauge/monitor"
)

// HealthStatus represents the daemon health check output.
type HealthStatus struct {
	Status    string    `json:"status"`
	PID       int       `json:"pid"`
	LastPoll  time.Time `json:"last_poll"`
	Interface string    `json:"interface,omitempty"`
	// Collectors maps each polling loop to its circuit state.
	Collectors map[string]string `json:"collectors"`
}

// newHealthStatus summarises a monitor status. The daemon is "degraded"
// when no interface was found or any circuit is not closed.
func newHealthStatus(st monitor.Status, pid int, now time.Time) HealthStatus {
	h := HealthStatus{
		Status:     "ok",
		PID:        pid,
		LastPoll:   now,
		Interface:  st.Interface,
		Collectors: make(map[string]string, len(st.Collectors)),
	}
	if st.Degraded {
		h.Status = "degraded"
	}
	for _, c := range st.Collectors {
		h.Collectors[c.Name] = c.Circuit.String()
		if !c.Healthy {
			h.Status = "degraded"
		}
	}
	return h
}

// writeHealthFile stores the health status as health.json in the cache
// directory.
func writeHealthFile(store *cache.Store, status HealthStatus) error {
	if err := store.Set(cache.KeyHealth, status); err != nil {
		return fmt.Errorf("write health file: %w", err)
	}
	return nil
}

// readHealthFile reads the health status from the cache directory.
func readHealthFile(store *cache.Store) (*HealthStatus, error) {
	status, _, err := cache.GetTyped[HealthStatus](store, cache.KeyHealth, time.Hour)
	if err != nil {
		return nil, fmt.Errorf("read health file: %w", err)
	}
	if status == nil {
		return nil, errors.New("read health file: no health file")
	}
	return status, nil
}

// checkHealth reports whether the daemon is healthy: the health file
// exists and was written within staleAfter. Returns exit code 0 for
// healthy, 1 for stale or missing.
func checkHealth(stdout, stderr io.Writer, store *cache.Store, staleAfter time.Duration, now time.Time, jsonOutput bool) int {
	status, err := readHealthFile(store)
	if err != nil {
		if jsonOutput {
			fmt.Fprintln(stdout, `{"status":"missing","error":"no health file found"}`)
		} else {
			fmt.Fprintln(stderr, "daemon not running (no health file)")
		}
		return 1
	}

	age := now.Sub(status.LastPoll)
	isStale := age > staleAfter

	if jsonOutput {
		output := map[string]any{
			"status":     status.Status,
			"pid":        status.PID,
			"last_poll":  status.LastPoll.Format(time.RFC3339),
			"age":        age.Round(time.Second).String(),
			"stale":      isStale,
			"collectors": status.Collectors,
		}
		data, _ := json.MarshalIndent(output, "", "  ")
		fmt.Fprintln(stdout, string(data))
	} else if isStale {
		fmt.Fprintf(stderr, "daemon stale (last poll %s ago, threshold %s)\n", age.Round(time.Second), staleAfter)
	} else {
		fmt.Fprintf(stdout, "daemon %s (PID %d, last poll %s ago)\n", status.Status, status.PID, age.Round(time.Second))
		names := make([]string, 0, len(status.Collectors))
		for name := range status.Collectors {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			fmt.Fprintf(stdout, "  %s: %s\n", name, status.Collectors[name])
		}
	}

	if isStale {
		return 1
	}
	return 0
}
