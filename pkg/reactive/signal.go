package reactive

import (
	"sync"
	"sync/atomic"
)

// debugLog is installed once at startup, before any state is shared
var debugLog func(args ...interface{})

// SetDebugLog sets the debug logging function
func SetDebugLog(fn func(args ...interface{})) {
	debugLog = fn
}

// Source is anything that can notify listeners of a change
type Source interface {
	Watch(fn func()) (unwatch func())
}

// listeners is a set of change callbacks keyed by subscription id
type listeners struct {
	mu     sync.RWMutex
	nextID uint64
	fns    map[uint64]func()
}

func (l *listeners) add(fn func()) func() {
	l.mu.Lock()
	if l.fns == nil {
		l.fns = make(map[uint64]func())
	}
	l.nextID++
	id := l.nextID
	l.fns[id] = fn
	l.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			l.mu.Lock()
			delete(l.fns, id)
			l.mu.Unlock()
		})
	}
}

func (l *listeners) snapshot() []func() {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]func(), 0, len(l.fns))
	for _, fn := range l.fns {
		out = append(out, fn)
	}
	return out
}

func (l *listeners) count() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.fns)
}

// State represents a reactive state value
type State[T any] struct {
	value T
	mu    sync.RWMutex
	subs  listeners
}

// NewState creates a new reactive state
func NewState[T any](initial T) *State[T] {
	return &State[T]{value: initial}
}

// Get returns the current value
func (s *State[T]) Get() T {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.value
}

// Set updates the value and notifies subscribers
func (s *State[T]) Set(value T) {
	if debugLog != nil {
		debugLog("[State] Set called with value:", value)
	}

	s.mu.Lock()
	s.value = value
	s.mu.Unlock()

	s.notify()
}

// Update atomically reads, modifies, and writes the value
func (s *State[T]) Update(fn func(T) T) T {
	s.mu.Lock()
	s.value = fn(s.value)
	newValue := s.value
	s.mu.Unlock()

	if debugLog != nil {
		debugLog("[State] Update called, new:", newValue)
	}

	s.notify()
	return newValue
}

// Watch registers fn to run after every change
func (s *State[T]) Watch(fn func()) func() {
	return s.subs.add(fn)
}

// Subscribe registers fn to receive the value after every change
func (s *State[T]) Subscribe(fn func(T)) func() {
	return s.subs.add(func() { fn(s.Get()) })
}

// Subscribers returns the number of active subscriptions
func (s *State[T]) Subscribers() int {
	return s.subs.count()
}

func (s *State[T]) notify() {
	fns := s.subs.snapshot()
	if debugLog != nil {
		debugLog("[State] Notifying", len(fns), "subscribers")
	}
	for _, fn := range fns {
		runOrBatch(fn)
	}
}

// Computed represents a memoized computed value. It is invalidated whenever
// one of its sources changes and recomputed lazily on the next Get.
type Computed[T any] struct {
	compute func() T
	value   T
	valid   bool
	mu      sync.Mutex
	subs    listeners
	unwatch []func()
}

// NewComputed creates a computed value over the given sources
func NewComputed[T any](compute func() T, sources ...Source) *Computed[T] {
	c := &Computed[T]{compute: compute}
	for _, src := range sources {
		c.unwatch = append(c.unwatch, src.Watch(c.Invalidate))
	}
	return c
}

// Get returns the computed value, recalculating if necessary
func (c *Computed[T]) Get() T {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.valid {
		c.value = c.compute()
		c.valid = true
	}
	return c.value
}

// Invalidate marks the computed value as needing recalculation
func (c *Computed[T]) Invalidate() {
	c.mu.Lock()
	c.valid = false
	c.mu.Unlock()

	for _, fn := range c.subs.snapshot() {
		runOrBatch(fn)
	}
}

// Watch registers fn to run after every invalidation
func (c *Computed[T]) Watch(fn func()) func() {
	return c.subs.add(fn)
}

// Dispose detaches the computed value from its sources
func (c *Computed[T]) Dispose() {
	for _, un := range c.unwatch {
		un()
	}
	c.unwatch = nil
}

// batchContext holds the current batch state
var batchContext atomic.Pointer[Batch]

// Batch defers subscriber notifications until the batch completes, then runs
// them in the order they were queued.
type Batch struct {
	mu      sync.Mutex
	pending []func()
	active  bool
}

// add queues fn unless the batch has been committed
func (b *Batch) add(fn func()) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.active {
		return false
	}
	b.pending = append(b.pending, fn)
	return true
}

// Commit runs all queued notifications
func (b *Batch) Commit() {
	b.mu.Lock()
	b.active = false
	fns := b.pending
	b.pending = nil
	b.mu.Unlock()

	for _, fn := range fns {
		fn()
	}
}

// RunBatch executes fn within a batch context
func RunBatch(fn func()) {
	Collect(fn).Commit()
}

// Collect executes fn within a batch context and returns the batch without
// committing it, so the caller can release its own locks first.
func Collect(fn func()) *Batch {
	batch := &Batch{active: true}
	oldBatch := batchContext.Swap(batch)
	defer batchContext.Store(oldBatch)

	fn()
	return batch
}

// runOrBatch runs fn now or queues it on the current batch
func runOrBatch(fn func()) {
	if batch := batchContext.Load(); batch != nil && batch.add(fn) {
		if debugLog != nil {
			debugLog("[State] Adding notification to batch")
		}
		return
	}
	fn()
}
