// Package cache holds the two caches sysgauge keeps: Slot, an in-memory
// TTL memo for expensive enumerations, and Store, the on-disk snapshot
// directory the daemon writes and -status reads.
package cache

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// Snapshot keys written by the daemon.
const (
	KeyNetwork   = "network"
	KeyProcesses = "processes"
	KeySystem    = "system"
	KeyStatus    = "status"
	KeyHealth    = "health"
)

// Store keeps the latest snapshot per key as one JSON file:
//
//	~/.cache/sysgauge/
//	  network.json
//	  processes.json
//	  system.json
//	  status.json
//	  health.json
//
// Each write overwrites the previous file; nothing is appended.
type Store struct {
	dir    string
	logger *slog.Logger
	now    func() time.Time
}

// envelope wraps a snapshot with the time it was written, so freshness does
// not depend on filesystem mtimes.
type envelope struct {
	WrittenAt time.Time       `json:"written_at"`
	Data      json.RawMessage `json:"data"`
}

// Entry describes one stored snapshot.
type Entry struct {
	Key       string    `json:"key"`
	WrittenAt time.Time `json:"written_at"`
	Size      int64     `json:"size"`
}

// NewStore opens (creating with 0700 if needed) a snapshot directory.
func NewStore(dir string, logger *slog.Logger) (*Store, error) {
	if dir == "" {
		return nil, errors.New("cache: empty store directory")
	}
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("cache: create directory %s: %w", dir, err)
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Store{dir: dir, logger: logger, now: time.Now}, nil
}

// Dir returns the snapshot directory.
func (s *Store) Dir() string {
	return s.dir
}

func (s *Store) keyPath(key string) string {
	return filepath.Join(s.dir, key+".json")
}

// Get reads the raw snapshot for key and reports whether it was written
// less than maxAge ago. A missing key returns nil, false, nil. A file that
// does not decode is removed and treated as missing.
func (s *Store) Get(key string, maxAge time.Duration) (json.RawMessage, bool, error) {
	env, err := s.read(key)
	if err != nil || env == nil {
		return nil, false, err
	}
	fresh := s.now().Sub(env.WrittenAt) < maxAge
	return env.Data, fresh, nil
}

func (s *Store) read(key string) (*envelope, error) {
	path := s.keyPath(key)
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("cache: read %s: %w", key, err)
	}

	var env envelope
	if err := json.Unmarshal(data, &env); err != nil || env.WrittenAt.IsZero() {
		s.logger.Warn("cache: removing unreadable snapshot", slog.String("key", key))
		_ = os.Remove(path)
		return nil, nil
	}
	return &env, nil
}

// Set writes v as the snapshot for key. The file is written to a temp file
// in the same directory and renamed into place, so readers never see a
// partial snapshot.
func (s *Store) Set(key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("cache: marshal %s: %w", key, err)
	}
	encoded, err := json.MarshalIndent(envelope{WrittenAt: s.now(), Data: data}, "", "  ")
	if err != nil {
		return fmt.Errorf("cache: marshal %s: %w", key, err)
	}

	tmp, err := os.CreateTemp(s.dir, ".tmp-"+key+"-*.json")
	if err != nil {
		return fmt.Errorf("cache: create temp for %s: %w", key, err)
	}
	tmpName := tmp.Name()

	committed := false
	defer func() {
		if !committed {
			_ = os.Remove(tmpName)
		}
	}()

	if err := tmp.Chmod(0600); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("cache: chmod temp for %s: %w", key, err)
	}
	if _, err := tmp.Write(encoded); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("cache: write temp for %s: %w", key, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("cache: close temp for %s: %w", key, err)
	}
	if err := os.Rename(tmpName, s.keyPath(key)); err != nil {
		return fmt.Errorf("cache: rename temp for %s: %w", key, err)
	}

	committed = true
	return nil
}

// GetTyped decodes the snapshot for key into a T. It returns nil when the
// key is missing or the payload does not fit T.
func GetTyped[T any](s *Store, key string, maxAge time.Duration) (*T, bool, error) {
	raw, fresh, err := s.Get(key, maxAge)
	if err != nil || raw == nil {
		return nil, false, err
	}

	var out T
	if err := json.Unmarshal(raw, &out); err != nil {
		s.logger.Warn("cache: removing snapshot with wrong shape",
			slog.String("key", key),
			slog.String("error", err.Error()),
		)
		_ = os.Remove(s.keyPath(key))
		return nil, false, nil
	}
	return &out, fresh, nil
}

// SetTyped stores a T under key.
func SetTyped[T any](s *Store, key string, v *T) error {
	return s.Set(key, v)
}

// Age returns how long ago key was written, or 0 if it is missing.
func (s *Store) Age(key string) time.Duration {
	env, err := s.read(key)
	if err != nil || env == nil {
		return 0
	}
	return s.now().Sub(env.WrittenAt)
}

// Remove deletes the snapshot for key. Missing keys are not an error.
func (s *Store) Remove(key string) error {
	if err := os.Remove(s.keyPath(key)); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("cache: remove %s: %w", key, err)
	}
	return nil
}

// Keys lists stored snapshot keys in name order.
func (s *Store) Keys() []string {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil
	}

	var keys []string
	for _, e := range entries {
		if k, ok := snapshotKey(e); ok {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys
}

// Entries describes every stored snapshot in key order.
func (s *Store) Entries() ([]Entry, error) {
	dirents, err := os.ReadDir(s.dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("cache: list %s: %w", s.dir, err)
	}

	var out []Entry
	for _, d := range dirents {
		key, ok := snapshotKey(d)
		if !ok {
			continue
		}
		info, err := d.Info()
		if err != nil {
			continue
		}
		env, err := s.read(key)
		if err != nil || env == nil {
			continue
		}
		out = append(out, Entry{Key: key, WrittenAt: env.WrittenAt, Size: info.Size()})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out, nil
}

// Clear removes every file in the snapshot directory, temp files included.
func (s *Store) Clear() error {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("cache: clear read dir: %w", err)
	}

	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		path := filepath.Join(s.dir, e.Name())
		if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("cache: clear remove %s: %w", e.Name(), err)
		}
	}
	return nil
}

func snapshotKey(e fs.DirEntry) (string, bool) {
	name := e.Name()
	if e.IsDir() || strings.HasPrefix(name, ".tmp-") || !strings.HasSuffix(name, ".json") {
		return "", false
	}
	return strings.TrimSuffix(name, ".json"), true
}
