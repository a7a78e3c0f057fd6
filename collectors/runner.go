package collectors

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"
)

const (
	// DefaultUpdateBufferSize is the capacity callers should give the
	// updates channel.
	DefaultUpdateBufferSize = 64

	// DefaultStopTimeout bounds how long Stop waits for collectors.
	DefaultStopTimeout = 5 * time.Second

	// errorRepeatWindow is how long an identical error stays suppressed.
	errorRepeatWindow = time.Hour
)

// ErrRunnerStopped is returned by RunOnce after Stop.
var ErrRunnerStopped = errors.New("collectors: runner stopped")

// Update is one collection outcome delivered to the consumer.
type Update struct {
	Source    string
	Result    *CollectResult
	Timestamp time.Time
	Error     error
}

// errTracker deduplicates repeated identical errors per collector.
type errTracker struct {
	lastMsg    string
	lastTime   time.Time
	suppressed int64
}

// runRequest asks a collector's loop for an extra collection.
type runRequest struct {
	ctx   context.Context
	reply chan runReply
}

type runReply struct {
	res *CollectResult
	err error
}

// Runner runs each registered collector in its own goroutine on its own
// ticker. Updates from one collector arrive in collection order; there is
// no ordering across collectors. Once started, a collector is only ever
// called from its own goroutine.
type Runner struct {
	registry *Registry
	updates  chan<- Update
	logger   *slog.Logger

	// mu guards triggers, done and stopping. Before Start it is also held
	// across direct RunOnce collections.
	mu       sync.Mutex
	triggers map[string]chan runRequest
	done     <-chan struct{}
	stopping bool

	cancel  context.CancelFunc
	wg      sync.WaitGroup
	stopped chan struct{}
	once    sync.Once

	errMu       sync.Mutex
	errTrackers map[string]*errTracker

	stopTimeout time.Duration
}

// NewRunner returns a Runner that sends to updates. The caller owns and
// drains the channel. A nil logger discards.
func NewRunner(registry *Registry, updates chan<- Update, logger *slog.Logger) *Runner {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Runner{
		registry:    registry,
		updates:     updates,
		logger:      logger,
		stopped:     make(chan struct{}),
		errTrackers: make(map[string]*errTracker),
		stopTimeout: DefaultStopTimeout,
	}
}

// Start launches one goroutine per collector. Each collects immediately and
// then on every tick until ctx is cancelled or Stop is called.
func (r *Runner) Start(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)

	r.mu.Lock()
	defer r.mu.Unlock()
	r.cancel = cancel
	r.done = ctx.Done()
	r.triggers = make(map[string]chan runRequest)

	all := r.registry.All()
	if len(all) == 0 {
		close(r.stopped)
		return
	}

	for _, c := range all {
		trigger := make(chan runRequest)
		r.triggers[c.Name()] = trigger
		r.wg.Add(1)
		go r.runCollector(ctx, c, trigger)
	}

	go func() {
		r.wg.Wait()
		close(r.stopped)
	}()
}

// Stop cancels all collectors and waits for them to return. A collector
// blocked in an OS call is not interrupted; after the stop timeout Stop
// gives up waiting and returns false.
func (r *Runner) Stop() bool {
	r.once.Do(func() {
		r.mu.Lock()
		r.stopping = true
		cancel := r.cancel
		r.mu.Unlock()
		if cancel != nil {
			cancel()
		}
	})

	select {
	case <-r.stopped:
		return true
	case <-time.After(r.stopTimeout):
		r.logger.Warn("collectors: runner stop timed out", slog.Duration("timeout", r.stopTimeout))
		return false
	}
}

// RunOnce collects from the named collector, records its status and
// returns the result without sending it on the channel. While the runner
// is running the collection happens on the collector's own goroutine, so
// it never overlaps a ticked collection.
func (r *Runner) RunOnce(ctx context.Context, name string) (*CollectResult, error) {
	c, ok := r.registry.Get(name)
	if !ok {
		return nil, fmt.Errorf("collectors: collector %q not found", name)
	}

	r.mu.Lock()
	if r.stopping {
		r.mu.Unlock()
		return nil, ErrRunnerStopped
	}
	if r.triggers == nil {
		defer r.mu.Unlock()
		return r.collect(ctx, c)
	}
	trigger, ok := r.triggers[name]
	done := r.done
	r.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("collectors: collector %q registered after start", name)
	}

	req := runRequest{ctx: ctx, reply: make(chan runReply, 1)}
	select {
	case trigger <- req:
	case <-done:
		return nil, ErrRunnerStopped
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	select {
	case rep := <-req.reply:
		return rep.res, rep.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Health maps collector names to their last-run health.
func (r *Runner) Health() map[string]bool {
	statuses := r.registry.AllStatus()
	out := make(map[string]bool, len(statuses))
	for _, s := range statuses {
		out[s.Name] = s.Healthy
	}
	return out
}

func (r *Runner) runCollector(ctx context.Context, c Collector, trigger <-chan runRequest) {
	defer r.wg.Done()

	interval := c.Interval()
	if interval <= 0 {
		interval = time.Second
	}

	r.collectAndSend(ctx, c)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.collectAndSend(ctx, c)
		case req := <-trigger:
			res, err := r.collect(req.ctx, c)
			req.reply <- runReply{res: res, err: err}
		}
	}
}

// collect runs one collection and records its status.
func (r *Runner) collect(ctx context.Context, c Collector) (*CollectResult, error) {
	start := time.Now()
	res, err := r.safeCollect(ctx, c)
	r.registry.record(c.Name(), start, time.Since(start), err)
	return res, err
}

func (r *Runner) collectAndSend(ctx context.Context, c Collector) {
	name := c.Name()
	start := time.Now()

	res, err := r.collect(ctx, c)

	if ctx.Err() != nil {
		return
	}
	if err != nil {
		r.logCollectorError(name, err)
	}

	u := Update{Source: name, Result: res, Timestamp: start, Error: err}
	select {
	case r.updates <- u:
	default:
		r.logger.Warn("collectors: update channel full, dropping update", slog.String("collector", name))
	}
}

// safeCollect turns a panicking collector into an error.
func (r *Runner) safeCollect(ctx context.Context, c Collector) (res *CollectResult, err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("collectors: %s panicked: %v", c.Name(), p)
		}
	}()
	return c.Collect(ctx)
}

// logCollectorError suppresses an identical error from the same collector
// for an hour, logging a summary every 100 repeats.
func (r *Runner) logCollectorError(name string, err error) {
	r.errMu.Lock()
	defer r.errMu.Unlock()

	msg := err.Error()
	tr := r.errTrackers[name]
	if tr == nil {
		tr = &errTracker{}
		r.errTrackers[name] = tr
	}
	now := time.Now()
	if msg == tr.lastMsg && now.Sub(tr.lastTime) < errorRepeatWindow {
		tr.suppressed++
		if tr.suppressed%100 == 0 {
			r.logger.Warn("collectors: error repeated",
				slog.String("collector", name),
				slog.Int64("times", tr.suppressed),
				slog.String("error", msg),
			)
		}
		return
	}
	if tr.suppressed > 0 {
		r.logger.Info("collectors: previous error repeated",
			slog.String("collector", name),
			slog.Int64("times", tr.suppressed),
		)
	}
	r.logger.Warn("collectors: collection failed", slog.String("collector", name), slog.String("error", msg))
	tr.lastMsg = msg
	tr.lastTime = now
	tr.suppressed = 0
}
