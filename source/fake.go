package source

import (
	"context"
	"sync"
)

// FakeCounters is a scripted CounterSource. Each read returns the next step;
// once the script runs out the last step repeats.
type FakeCounters struct {
	mu    sync.Mutex
	steps []FakeStep
	reads int
}

// FakeStep is one scripted read.
type FakeStep struct {
	Counters Counters
	Err      error
}

// NewFakeCounters returns a FakeCounters playing steps in order.
func NewFakeCounters(steps ...FakeStep) *FakeCounters {
	return &FakeCounters{steps: steps}
}

// Push appends steps to the script.
func (f *FakeCounters) Push(steps ...FakeStep) {
	f.mu.Lock()
	f.steps = append(f.steps, steps...)
	f.mu.Unlock()
}

// Reads returns how many times ReadCounters was called.
func (f *FakeCounters) Reads() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.reads
}

// ReadCounters implements CounterSource.
func (f *FakeCounters) ReadCounters(ctx context.Context) (Counters, error) {
	if err := ctx.Err(); err != nil {
		return Counters{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.steps) == 0 {
		return Counters{}, ErrUnavailable
	}
	i := min(f.reads, len(f.steps)-1)
	f.reads++
	return f.steps[i].Counters, f.steps[i].Err
}

// FakeEntities is a settable EntityLister.
type FakeEntities struct {
	mu       sync.Mutex
	entities []Entity
	err      error
}

// Set replaces the entity list returned by the next call.
func (f *FakeEntities) Set(entities []Entity, err error) {
	f.mu.Lock()
	f.entities = append([]Entity(nil), entities...)
	f.err = err
	f.mu.Unlock()
}

// ListEntities implements EntityLister.
func (f *FakeEntities) ListEntities(ctx context.Context) ([]Entity, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	return append([]Entity(nil), f.entities...), nil
}

// FakeEnumerator returns a fixed listing and counts calls.
type FakeEnumerator[T any] struct {
	mu    sync.Mutex
	items []T
	err   error
	calls int
}

// NewFakeEnumerator returns a FakeEnumerator yielding items.
func NewFakeEnumerator[T any](items ...T) *FakeEnumerator[T] {
	return &FakeEnumerator[T]{items: items}
}

// Set replaces the listing.
func (f *FakeEnumerator[T]) Set(items []T, err error) {
	f.mu.Lock()
	f.items, f.err = items, err
	f.mu.Unlock()
}

// Calls returns how many times Enumerate ran.
func (f *FakeEnumerator[T]) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

// Enumerate implements Enumerator.
func (f *FakeEnumerator[T]) Enumerate(ctx context.Context) ([]T, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return append([]T(nil), f.items...), nil
}

var (
	_ CounterSource            = (*FakeCounters)(nil)
	_ EntityLister             = (*FakeEntities)(nil)
	_ Enumerator[Service]      = (*FakeEnumerator[Service])(nil)
	_ Enumerator[Program]      = ProgramEnumerator{}
	_ Enumerator[Service]      = ServiceEnumerator{}
	_ Enumerator[StartupEntry] = StartupEnumerator{}
)
