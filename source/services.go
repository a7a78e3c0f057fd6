package source

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// DefaultSystemdDirs are searched in order; a unit found earlier shadows
// one with the same name later, as systemd does.
var DefaultSystemdDirs = []string{
	"/etc/systemd/system",
	"/run/systemd/system",
	"/usr/lib/systemd/system",
	"/lib/systemd/system",
}

// Service states.
const (
	ServiceEnabled  = "enabled"
	ServiceDisabled = "disabled"
	ServiceStatic   = "static"
	ServiceMasked   = "masked"
)

// ServiceEnumerator lists systemd service units from unit files on disk.
type ServiceEnumerator struct {
	Dirs []string
}

// Enumerate implements Enumerator[Service].
func (e ServiceEnumerator) Enumerate(ctx context.Context) ([]Service, error) {
	dirs := e.Dirs
	if len(dirs) == 0 {
		dirs = DefaultSystemdDirs
	}

	enabled := map[string]bool{}
	for _, d := range dirs {
		wants, _ := filepath.Glob(filepath.Join(d, "*.wants", "*.service"))
		for _, w := range wants {
			enabled[filepath.Base(w)] = true
		}
	}

	seen := map[string]bool{}
	var out []Service
	readable := 0
	for _, d := range dirs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		entries, err := os.ReadDir(d)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return nil, fmt.Errorf("source: read unit dir %s: %w", d, err)
		}
		readable++

		for _, de := range entries {
			name := de.Name()
			if !strings.HasSuffix(name, ".service") || seen[name] || de.IsDir() {
				continue
			}
			seen[name] = true
			svc, ok := readUnit(filepath.Join(d, name), enabled[name])
			if ok {
				out = append(out, svc)
			}
		}
	}
	if readable == 0 {
		return nil, fmt.Errorf("source: no systemd unit directory found: %w", ErrUnavailable)
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func readUnit(path string, enabled bool) (Service, bool) {
	svc := Service{Name: strings.TrimSuffix(filepath.Base(path), ".service"), Path: path}

	if target, err := os.Readlink(path); err == nil && target == os.DevNull {
		svc.State = ServiceMasked
		return svc, true
	}

	f, err := os.Open(path)
	if err != nil {
		return svc, false
	}
	defer f.Close()

	kf, err := parseKeyFile(f)
	if err != nil {
		return svc, false
	}

	svc.Description = kf.get("Unit", "Description")
	svc.Type = kf.get("Service", "Type")
	if svc.Type == "" {
		svc.Type = "simple"
	}

	switch {
	case enabled:
		svc.State = ServiceEnabled
	case !kf.has("Install"):
		svc.State = ServiceStatic
	default:
		svc.State = ServiceDisabled
	}
	return svc, true
}
