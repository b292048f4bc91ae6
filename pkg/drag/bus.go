package drag

import "sync"

// Bus is an EventTarget that fans dispatched events out to its current
// subscribers.
type Bus struct {
	mu     sync.Mutex
	nextID int
	subs   map[int]func(Event)
}

// NewBus returns an empty bus.
func NewBus() *Bus {
	return &Bus{subs: make(map[int]func(Event))}
}

// Subscribe registers handler until the returned function is called.
func (b *Bus) Subscribe(handler func(Event)) func() {
	b.mu.Lock()
	b.nextID++
	id := b.nextID
	b.subs[id] = handler
	b.mu.Unlock()

	return func() {
		b.mu.Lock()
		delete(b.subs, id)
		b.mu.Unlock()
	}
}

// Dispatch delivers e to every subscriber registered at the time of the call.
func (b *Bus) Dispatch(e Event) {
	b.mu.Lock()
	handlers := make([]func(Event), 0, len(b.subs))
	for _, h := range b.subs {
		handlers = append(handlers, h)
	}
	b.mu.Unlock()

	for _, h := range handlers {
		h(e)
	}
}

// Len reports the number of live subscriptions.
func (b *Bus) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}
