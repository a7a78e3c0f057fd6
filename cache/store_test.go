package cache

import (
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"
)

func newTestStore(t *testing.T) (*Store, *fakeClock) {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
	s, err := NewStore(t.TempDir(), logger)
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	clk := newFakeClock()
	s.now = clk.Now
	return s, clk
}

type netSnap struct {
	Adapter  string  `json:"adapter"`
	Download float64 `json:"download"`
}

func TestStore_SetGetRoundTrip(t *testing.T) {
	s, _ := newTestStore(t)

	want := netSnap{Adapter: "eth0", Download: 12.5}
	if err := s.Set(KeyNetwork, want); err != nil {
		t.Fatalf("Set: %v", err)
	}

	raw, fresh, err := s.Get(KeyNetwork, time.Minute)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !fresh {
		t.Error("expected fresh snapshot")
	}

	var got netSnap
	if err := json.Unmarshal(raw, &got); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if got != want {
		t.Errorf("got %+v, want %+v", got, want)
	}
}

func TestStore_TypedRoundTrip(t *testing.T) {
	s, _ := newTestStore(t)

	want := &netSnap{Adapter: "wlan0", Download: 3}
	if err := SetTyped(s, KeyNetwork, want); err != nil {
		t.Fatalf("SetTyped: %v", err)
	}
	got, fresh, err := GetTyped[netSnap](s, KeyNetwork, time.Minute)
	if err != nil {
		t.Fatalf("GetTyped: %v", err)
	}
	if got == nil || *got != *want || !fresh {
		t.Errorf("GetTyped = %+v, %v; want %+v, true", got, fresh, want)
	}
}

func TestStore_StaleSnapshotStillReturned(t *testing.T) {
	s, clk := newTestStore(t)
	if err := s.Set(KeySystem, map[string]float64{"cpu": 42}); err != nil {
		t.Fatalf("Set: %v", err)
	}
	clk.Advance(10 * time.Minute)

	raw, fresh, err := s.Get(KeySystem, 5*time.Minute)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if fresh {
		t.Error("expected stale snapshot")
	}
	if raw == nil {
		t.Error("expected stale data to be returned")
	}
	if age := s.Age(KeySystem); age != 10*time.Minute {
		t.Errorf("Age = %v, want 10m", age)
	}
}

func TestStore_MissingKey(t *testing.T) {
	s, _ := newTestStore(t)
	raw, fresh, err := s.Get("nope", time.Hour)
	if err != nil || fresh || raw != nil {
		t.Errorf("Get missing = %s, %v, %v; want nil, false, nil", raw, fresh, err)
	}
	if s.Age("nope") != 0 {
		t.Error("Age of missing key should be 0")
	}
}

func TestStore_CorruptedFileRemoved(t *testing.T) {
	s, _ := newTestStore(t)

	for name, body := range map[string]string{
		"broken":    "{invalid json!!!",
		"no-header": `{"data": {"x": 1}}`,
	} {
		path := filepath.Join(s.Dir(), name+".json")
		if err := os.WriteFile(path, []byte(body), 0600); err != nil {
			t.Fatalf("WriteFile: %v", err)
		}

		raw, _, err := s.Get(name, time.Hour)
		if err != nil {
			t.Fatalf("%s: Get: %v", name, err)
		}
		if raw != nil {
			t.Errorf("%s: expected nil data", name)
		}
		if _, err := os.Stat(path); !os.IsNotExist(err) {
			t.Errorf("%s: expected file to be removed", name)
		}
	}
}

func TestStore_TypedShapeMismatchRemoved(t *testing.T) {
	s, _ := newTestStore(t)
	if err := s.Set(KeyNetwork, []int{1, 2, 3}); err != nil {
		t.Fatalf("Set: %v", err)
	}

	got, _, err := GetTyped[netSnap](s, KeyNetwork, time.Hour)
	if err != nil {
		t.Fatalf("GetTyped: %v", err)
	}
	if got != nil {
		t.Errorf("expected nil for mismatched shape, got %+v", got)
	}
	if keys := s.Keys(); len(keys) != 0 {
		t.Errorf("expected snapshot removed, keys = %v", keys)
	}
}

func TestStore_ConcurrentWritesStayValid(t *testing.T) {
	s, _ := newTestStore(t)

	var wg sync.WaitGroup
	for g := 0; g < 16; g++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			for i := 0; i < 40; i++ {
				if err := s.Set(KeyProcesses, map[string]int{"writer": id, "i": i}); err != nil {
					t.Errorf("writer %d: Set: %v", id, err)
					return
				}
			}
		}(g)
	}
	wg.Wait()

	got, _, err := GetTyped[map[string]int](s, KeyProcesses, time.Hour)
	if err != nil || got == nil {
		t.Fatalf("GetTyped after concurrent writes = %v, %v", got, err)
	}
	if keys := s.Keys(); len(keys) != 1 {
		t.Errorf("temp files leaked into keys: %v", keys)
	}
}

func TestStore_KeysEntriesRemoveClear(t *testing.T) {
	s, _ := newTestStore(t)
	for _, k := range []string{KeySystem, KeyNetwork, KeyStatus} {
		if err := s.Set(k, k); err != nil {
			t.Fatalf("Set %s: %v", k, err)
		}
	}

	keys := s.Keys()
	want := []string{KeyNetwork, KeyStatus, KeySystem}
	if len(keys) != len(want) {
		t.Fatalf("Keys = %v, want %v", keys, want)
	}
	for i := range want {
		if keys[i] != want[i] {
			t.Errorf("Keys[%d] = %s, want %s", i, keys[i], want[i])
		}
	}

	entries, err := s.Entries()
	if err != nil {
		t.Fatalf("Entries: %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("Entries = %d, want 3", len(entries))
	}
	for _, e := range entries {
		if e.Size == 0 || e.WrittenAt.IsZero() {
			t.Errorf("entry %s missing size or time: %+v", e.Key, e)
		}
	}

	if err := s.Remove(KeyStatus); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if err := s.Remove(KeyStatus); err != nil {
		t.Fatalf("Remove twice: %v", err)
	}
	if len(s.Keys()) != 2 {
		t.Errorf("Keys after Remove = %v", s.Keys())
	}

	if err := s.Clear(); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	if len(s.Keys()) != 0 {
		t.Errorf("Keys after Clear = %v", s.Keys())
	}
}

func TestStore_Permissions(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "sub")
	s, err := NewStore(dir, nil)
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	if err := s.Set(KeyStatus, "ok"); err != nil {
		t.Fatalf("Set: %v", err)
	}

	info, err := os.Stat(dir)
	if err != nil {
		t.Fatalf("Stat dir: %v", err)
	}
	if perm := info.Mode().Perm(); perm != 0700 {
		t.Errorf("dir perm = %04o, want 0700", perm)
	}

	info, err = os.Stat(filepath.Join(dir, KeyStatus+".json"))
	if err != nil {
		t.Fatalf("Stat file: %v", err)
	}
	if perm := info.Mode().Perm(); perm != 0600 {
		t.Errorf("file perm = %04o, want 0600", perm)
	}
}

func TestStore_EmptyDirRejected(t *testing.T) {
	if _, err := NewStore("", nil); err == nil {
		t.Error("expected error for empty directory")
	}
}
