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

// DefaultAutostartDirs returns the XDG autostart directories, user first.
func DefaultAutostartDirs() []string {
	var dirs []string
	if cfg, err := os.UserConfigDir(); err == nil {
		dirs = append(dirs, filepath.Join(cfg, "autostart"))
	}
	return append(dirs, "/etc/xdg/autostart")
}

// StartupEnumerator lists XDG autostart entries. Dirs are searched in
// order and an entry in an earlier directory overrides a same-named file in
// a later one, so the user directory should come first.
type StartupEnumerator struct {
	Dirs []string
}

func (e StartupEnumerator) dirs() []string {
	if len(e.Dirs) == 0 {
		return DefaultAutostartDirs()
	}
	return e.Dirs
}

// Enumerate implements Enumerator[StartupEntry].
func (e StartupEnumerator) Enumerate(ctx context.Context) ([]StartupEntry, error) {
	seen := map[string]bool{}
	var out []StartupEntry

	for _, d := range e.dirs() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		entries, err := os.ReadDir(d)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return nil, fmt.Errorf("source: read autostart dir %s: %w", d, err)
		}
		for _, de := range entries {
			name := de.Name()
			if de.IsDir() || !strings.HasSuffix(name, ".desktop") || seen[name] {
				continue
			}
			seen[name] = true
			if entry, ok := readDesktopEntry(filepath.Join(d, name)); ok {
				out = append(out, entry)
			}
		}
	}

	sort.Slice(out, func(i, j int) bool {
		return strings.ToLower(out[i].Name) < strings.ToLower(out[j].Name)
	})
	return out, nil
}

func readDesktopEntry(path string) (StartupEntry, bool) {
	f, err := os.Open(path)
	if err != nil {
		return StartupEntry{}, false
	}
	defer f.Close()

	kf, err := parseKeyFile(f)
	if err != nil || !kf.has("Desktop Entry") {
		return StartupEntry{}, false
	}

	const sec = "Desktop Entry"
	entry := StartupEntry{
		Name:    kf.get(sec, "Name"),
		Exec:    kf.get(sec, "Exec"),
		Comment: kf.get(sec, "Comment"),
		Path:    path,
	}
	if entry.Name == "" {
		entry.Name = strings.TrimSuffix(filepath.Base(path), ".desktop")
	}
	entry.Hidden = strings.EqualFold(kf.get(sec, "Hidden"), "true") ||
		strings.EqualFold(kf.get(sec, "X-GNOME-Autostart-enabled"), "false")
	return entry, true
}

// Disable hides entry by writing a user override with Hidden=true into the
// first configured directory. The original file is left alone.
func (e StartupEnumerator) Disable(entry StartupEntry) error {
	userDir := e.dirs()[0]
	if err := os.MkdirAll(userDir, 0o755); err != nil {
		return fmt.Errorf("source: create %s: %w", userDir, err)
	}

	data, err := os.ReadFile(entry.Path)
	if err != nil {
		return fmt.Errorf("source: read %s: %w", entry.Path, err)
	}

	var b strings.Builder
	inEntry := false
	wroteHidden := false
	for _, line := range strings.Split(string(data), "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "[") {
			if inEntry && !wroteHidden {
				b.WriteString("Hidden=true\n")
				wroteHidden = true
			}
			inEntry = trimmed == "[Desktop Entry]"
		}
		if inEntry && strings.HasPrefix(trimmed, "Hidden=") {
			if !wroteHidden {
				b.WriteString("Hidden=true\n")
				wroteHidden = true
			}
			continue
		}
		b.WriteString(line)
		b.WriteByte('\n')
	}
	out := strings.TrimRight(b.String(), "\n") + "\n"
	if !wroteHidden {
		out += "Hidden=true\n"
	}

	dst := filepath.Join(userDir, filepath.Base(entry.Path))
	if err := os.WriteFile(dst, []byte(out), 0o644); err != nil {
		return fmt.Errorf("source: write %s: %w", dst, err)
	}
	return nil
}
