package cache

import (
	"context"
	"sync"
	"time"
)

// DefaultSlotTTL is how long an enumeration stays fresh in a Slot.
const DefaultSlotTTL = 2 * time.Minute

// entry is never mutated after it is published, so a reader holding the
// pointer always sees one consistent value/timestamp pair.
type entry[T any] struct {
	value      T
	capturedAt time.Time
}

// Slot is a single-entry, in-memory memo with a time-to-live. One Slot
// backs one enumeration kind (services, programs, startup entries).
//
// Every method takes the same mutex, so a periodic reader and a
// user-triggered refresh may use a Slot concurrently.
type Slot[T any] struct {
	ttl time.Duration
	now func() time.Time

	mu  sync.Mutex
	cur *entry[T]
}

// SlotOption configures a Slot.
type SlotOption func(*slotOptions)

type slotOptions struct {
	now func() time.Time
}

// WithClock overrides the clock used for freshness checks.
func WithClock(now func() time.Time) SlotOption {
	return func(o *slotOptions) { o.now = now }
}

// NewSlot returns an empty Slot. A ttl <= 0 selects DefaultSlotTTL.
func NewSlot[T any](ttl time.Duration, opts ...SlotOption) *Slot[T] {
	o := slotOptions{now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	if ttl <= 0 {
		ttl = DefaultSlotTTL
	}
	return &Slot[T]{ttl: ttl, now: o.now}
}

// TTL returns the configured time-to-live.
func (s *Slot[T]) TTL() time.Duration {
	return s.ttl
}

// Get returns the stored value while it is fresh. A stale entry is left in
// place and reported as a miss.
func (s *Slot[T]) Get() (T, bool) {
	s.mu.Lock()
	e := s.cur
	now := s.now()
	s.mu.Unlock()

	if e == nil || now.Sub(e.capturedAt) >= s.ttl {
		var zero T
		return zero, false
	}
	return e.value, true
}

// Peek returns the stored value and its capture time regardless of age.
// ok is false only when the slot is empty.
func (s *Slot[T]) Peek() (value T, capturedAt time.Time, ok bool) {
	s.mu.Lock()
	e := s.cur
	s.mu.Unlock()

	if e == nil {
		return value, time.Time{}, false
	}
	return e.value, e.capturedAt, true
}

// Put replaces the entry, stamping it with the current time.
func (s *Slot[T]) Put(value T) {
	s.mu.Lock()
	s.cur = &entry[T]{value: value, capturedAt: s.now()}
	s.mu.Unlock()
}

// Invalidate empties the slot.
func (s *Slot[T]) Invalidate() {
	s.mu.Lock()
	s.cur = nil
	s.mu.Unlock()
}

// Age returns how long ago the entry was captured, or 0 when empty.
func (s *Slot[T]) Age() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cur == nil {
		return 0
	}
	return s.now().Sub(s.cur.capturedAt)
}

// GetOrLoad returns the fresh value, or calls load and stores its result.
// Concurrent callers may each run load; the last Put wins. A failed load
// leaves the slot as it was.
func (s *Slot[T]) GetOrLoad(ctx context.Context, load func(context.Context) (T, error)) (T, error) {
	if v, ok := s.Get(); ok {
		return v, nil
	}
	v, err := load(ctx)
	if err != nil {
		var zero T
		return zero, err
	}
	s.Put(v)
	return v, nil
}
