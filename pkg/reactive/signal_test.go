package reactive

import (
	"sync"
	"sync/atomic"
	"testing"
)

func TestState_GetSet(t *testing.T) {
	state := NewState(42)

	// Test initial value
	if got := state.Get(); got != 42 {
		t.Errorf("Expected initial value 42, got %d", got)
	}

	// Test set
	state.Set(100)
	if got := state.Get(); got != 100 {
		t.Errorf("Expected value 100 after Set, got %d", got)
	}
}

func TestState_Subscribe(t *testing.T) {
	state := NewState("hello")

	var seen []string
	unsubscribe := state.Subscribe(func(v string) { seen = append(seen, v) })

	state.Set("world")
	state.Update(func(v string) string { return v + "!" })

	if len(seen) != 2 || seen[0] != "world" || seen[1] != "world!" {
		t.Errorf("Unexpected notifications: %v", seen)
	}

	unsubscribe()
	unsubscribe() // idempotent
	state.Set("ignored")

	if len(seen) != 2 {
		t.Errorf("Expected no notification after unsubscribe, got %v", seen)
	}
	if state.Subscribers() != 0 {
		t.Errorf("Expected 0 subscribers, got %d", state.Subscribers())
	}
}

func TestState_Update(t *testing.T) {
	state := NewState(10)

	// Test update function
	got := state.Update(func(v int) int {
		return v * 2
	})

	if got != 20 || state.Get() != 20 {
		t.Errorf("Expected value 20 after Update, got %d", state.Get())
	}
}

func TestState_ConcurrentAccess(t *testing.T) {
	state := NewState(0)

	var wg sync.WaitGroup

	// Concurrent writes
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func(val int) {
			defer wg.Done()
			state.Set(val)
		}(i)
	}

	// Concurrent reads
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = state.Get()
		}()
	}

	wg.Wait()
}

func TestComputed_InvalidatedBySources(t *testing.T) {
	count := NewState(5)
	label := NewState("x")

	var computeCount atomic.Int32
	double := NewComputed(func() string {
		computeCount.Add(1)
		return label.Get() + string(rune('0'+count.Get()*2%10))
	}, count, label)

	if got := double.Get(); got != "x0" {
		t.Errorf("Expected computed value x0, got %s", got)
	}
	_ = double.Get()
	if computeCount.Load() != 1 {
		t.Errorf("Expected 1 computation (memoized), got %d", computeCount.Load())
	}

	count.Set(7)
	if got := double.Get(); got != "x4" {
		t.Errorf("Expected computed value x4 after update, got %s", got)
	}

	label.Set("y")
	if got := double.Get(); got != "y4" {
		t.Errorf("Expected computed value y4 after update, got %s", got)
	}
	if computeCount.Load() != 3 {
		t.Errorf("Expected 3 computations, got %d", computeCount.Load())
	}
}

func TestComputed_Dispose(t *testing.T) {
	count := NewState(1)
	c := NewComputed(func() int { return count.Get() }, count)

	_ = c.Get()
	c.Dispose()
	count.Set(2)

	if got := c.Get(); got != 1 {
		t.Errorf("Expected stale value 1 after Dispose, got %d", got)
	}
	if count.Subscribers() != 0 {
		t.Errorf("Expected source to have no subscribers, got %d", count.Subscribers())
	}
}

func TestComputed_WatchChained(t *testing.T) {
	a := NewState(1)
	b := NewComputed(func() int { return a.Get() + 1 }, a)
	c := NewComputed(func() int { return b.Get() * 2 }, b)

	if got := c.Get(); got != 4 {
		t.Errorf("Expected computed value 4, got %d", got)
	}

	a.Set(5)

	if got := c.Get(); got != 12 {
		t.Errorf("Expected computed value 12 after update, got %d", got)
	}
}

func TestBatch(t *testing.T) {
	state1 := NewState(1)
	state2 := NewState(2)

	var notified atomic.Int32
	state1.Watch(func() { notified.Add(1) })
	state2.Watch(func() { notified.Add(1) })

	RunBatch(func() {
		state1.Set(10)
		state2.Set(20)
		if notified.Load() != 0 {
			t.Errorf("Expected notifications to be deferred, got %d", notified.Load())
		}
	})

	if notified.Load() != 2 {
		t.Errorf("Expected 2 notifications after batch, got %d", notified.Load())
	}
}
