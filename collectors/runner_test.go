package collectors

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

// seqCollector returns an increasing sequence number as its data.
type seqCollector struct {
	name     string
	interval time.Duration
	err      error
	panics   bool

	mu    sync.Mutex
	calls int
}

func (c *seqCollector) Name() string            { return c.name }
func (c *seqCollector) Description() string     { return "sequence " + c.name }
func (c *seqCollector) Interval() time.Duration { return c.interval }

func (c *seqCollector) Collect(ctx context.Context) (*CollectResult, error) {
	c.mu.Lock()
	c.calls++
	n := c.calls
	c.mu.Unlock()

	if c.panics {
		panic("collector exploded")
	}
	if c.err != nil {
		return nil, c.err
	}
	return &CollectResult{Collector: c.name, Timestamp: time.Now(), Data: n}, nil
}

func (c *seqCollector) callCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls
}

func receive(t *testing.T, ch <-chan Update) Update {
	t.Helper()
	select {
	case u := <-ch:
		return u
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for update")
		return Update{}
	}
}

func TestRunner_CollectsImmediatelyAndInOrder(t *testing.T) {
	reg := NewRegistry()
	reg.Register(&seqCollector{name: "network", interval: 10 * time.Millisecond})

	updates := make(chan Update, DefaultUpdateBufferSize)
	r := NewRunner(reg, updates, nil)
	r.Start(context.Background())
	defer r.Stop()

	prev := 0
	for i := 0; i < 5; i++ {
		u := receive(t, updates)
		if u.Source != "network" || u.Error != nil {
			t.Fatalf("update = %+v", u)
		}
		n := u.Result.Data.(int)
		if n <= prev {
			t.Fatalf("update %d out of order: %d after %d", i, n, prev)
		}
		prev = n
	}
}

func TestRunner_ErrorsAreDelivered(t *testing.T) {
	reg := NewRegistry()
	boom := errors.New("source unavailable")
	reg.Register(&seqCollector{name: "processes", interval: time.Hour, err: boom})

	updates := make(chan Update, DefaultUpdateBufferSize)
	r := NewRunner(reg, updates, nil)
	r.Start(context.Background())
	defer r.Stop()

	u := receive(t, updates)
	if !errors.Is(u.Error, boom) || u.Result != nil {
		t.Errorf("update = %+v, want error %v", u, boom)
	}
	if h := r.Health(); h["processes"] {
		t.Errorf("Health = %v, want processes unhealthy", h)
	}
}

func TestRunner_PanicBecomesError(t *testing.T) {
	reg := NewRegistry()
	reg.Register(&seqCollector{name: "sysmetrics", interval: time.Hour, panics: true})

	updates := make(chan Update, 1)
	r := NewRunner(reg, updates, nil)
	r.Start(context.Background())
	defer r.Stop()

	if u := receive(t, updates); u.Error == nil {
		t.Error("expected panic to surface as an error")
	}
}

func TestRunner_FullChannelDropsInsteadOfBlocking(t *testing.T) {
	reg := NewRegistry()
	c := &seqCollector{name: "network", interval: time.Millisecond}
	reg.Register(c)

	updates := make(chan Update) // nobody reads
	r := NewRunner(reg, updates, nil)
	r.Start(context.Background())

	deadline := time.Now().Add(2 * time.Second)
	for c.callCount() < 5 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	if c.callCount() < 5 {
		t.Fatalf("collector stalled after %d calls", c.callCount())
	}
	if !r.Stop() {
		t.Error("Stop timed out")
	}
}

func TestRunner_StopHaltsCollection(t *testing.T) {
	reg := NewRegistry()
	c := &seqCollector{name: "network", interval: 5 * time.Millisecond}
	reg.Register(c)

	updates := make(chan Update, DefaultUpdateBufferSize)
	r := NewRunner(reg, updates, nil)
	r.Start(context.Background())
	receive(t, updates)

	if !r.Stop() {
		t.Fatal("Stop timed out")
	}
	n := c.callCount()
	time.Sleep(30 * time.Millisecond)
	if c.callCount() != n {
		t.Errorf("collector ran %d more times after Stop", c.callCount()-n)
	}
	// Stop is idempotent.
	r.Stop()
}

func TestRunner_EmptyRegistry(t *testing.T) {
	r := NewRunner(NewRegistry(), make(chan Update, 1), nil)
	r.Start(context.Background())
	if !r.Stop() {
		t.Error("Stop on empty runner should return immediately")
	}
}

func TestRunner_StopTimesOutOnBlockedCollector(t *testing.T) {
	reg := NewRegistry()
	release := make(chan struct{})
	reg.Register(&blockingCollector{release: release})

	r := NewRunner(reg, make(chan Update, 1), nil)
	r.stopTimeout = 20 * time.Millisecond
	r.Start(context.Background())
	time.Sleep(5 * time.Millisecond)

	if r.Stop() {
		t.Error("Stop should report a timeout while a collector is blocked")
	}
	close(release)
}

type blockingCollector struct {
	release chan struct{}
}

func (b *blockingCollector) Name() string            { return "blocked" }
func (b *blockingCollector) Description() string     { return "ignores cancellation" }
func (b *blockingCollector) Interval() time.Duration { return time.Hour }
func (b *blockingCollector) Collect(context.Context) (*CollectResult, error) {
	<-b.release
	return &CollectResult{Collector: "blocked"}, nil
}

func TestRunner_RunOnce(t *testing.T) {
	reg := NewRegistry()
	c := &seqCollector{name: "network", interval: time.Hour}
	reg.Register(c)
	r := NewRunner(reg, make(chan Update, 1), nil)

	res, err := r.RunOnce(context.Background(), "network")
	if err != nil || res.Data.(int) != 1 {
		t.Fatalf("RunOnce = %+v, %v", res, err)
	}
	if s, _ := reg.Status("network"); s.RunCount != 1 || !s.Healthy {
		t.Errorf("status after RunOnce = %+v", s)
	}

	if _, err := r.RunOnce(context.Background(), "missing"); err == nil {
		t.Error("RunOnce on unknown collector should fail")
	}
}

func TestRunner_LogDedup(t *testing.T) {
	r := NewRunner(NewRegistry(), make(chan Update, 1), nil)
	err := errors.New("same failure")
	for i := 0; i < 150; i++ {
		r.logCollectorError("network", err)
	}
	if got := r.errTrackers["network"].suppressed; got != 149 {
		t.Errorf("suppressed = %d, want 149", got)
	}
	r.logCollectorError("network", errors.New("different failure"))
	if got := r.errTrackers["network"].suppressed; got != 0 {
		t.Errorf("suppressed after new error = %d, want 0", got)
	}
}

// overlapCollector counts calls that start while another is in flight.
type overlapCollector struct {
	inFlight atomic.Int32
	overlaps atomic.Int32
	calls    atomic.Int32
}

func (o *overlapCollector) Name() string            { return "processes" }
func (o *overlapCollector) Description() string     { return "detects concurrent collections" }
func (o *overlapCollector) Interval() time.Duration { return time.Millisecond }
func (o *overlapCollector) Collect(context.Context) (*CollectResult, error) {
	if o.inFlight.Add(1) > 1 {
		o.overlaps.Add(1)
	}
	defer o.inFlight.Add(-1)
	n := o.calls.Add(1)
	time.Sleep(200 * time.Microsecond)
	return &CollectResult{Collector: "processes", Data: int(n)}, nil
}

func TestRunner_RunOnceWhileRunningDoesNotOverlap(t *testing.T) {
	reg := NewRegistry()
	c := &overlapCollector{}
	reg.Register(c)

	updates := make(chan Update, DefaultUpdateBufferSize)
	r := NewRunner(reg, updates, nil)
	r.Start(context.Background())

	var wg sync.WaitGroup
	for g := 0; g < 4; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 25; i++ {
				if _, err := r.RunOnce(context.Background(), "processes"); err != nil {
					t.Errorf("RunOnce: %v", err)
					return
				}
			}
		}()
	}
	wg.Wait()

	if !r.Stop() {
		t.Fatal("Stop timed out")
	}
	if n := c.overlaps.Load(); n != 0 {
		t.Errorf("%d collections overlapped", n)
	}
	if c.calls.Load() < 100 {
		t.Errorf("calls = %d, want at least the 100 requested", c.calls.Load())
	}
}

func TestRunner_RunOnceAfterStop(t *testing.T) {
	reg := NewRegistry()
	reg.Register(&seqCollector{name: "network", interval: time.Hour})
	r := NewRunner(reg, make(chan Update, DefaultUpdateBufferSize), nil)
	r.Start(context.Background())
	if !r.Stop() {
		t.Fatal("Stop timed out")
	}
	if _, err := r.RunOnce(context.Background(), "network"); !errors.Is(err, ErrRunnerStopped) {
		t.Errorf("RunOnce after Stop = %v, want ErrRunnerStopped", err)
	}
}

func TestRunner_RunOnceHonoursContext(t *testing.T) {
	reg := NewRegistry()
	release := make(chan struct{})
	defer close(release)
	reg.Register(&blockingCollector{release: release})

	r := NewRunner(reg, make(chan Update, 1), nil)
	r.stopTimeout = 20 * time.Millisecond
	r.Start(context.Background())
	defer r.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if _, err := r.RunOnce(ctx, "blocked"); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("RunOnce = %v, want deadline exceeded", err)
	}
}
