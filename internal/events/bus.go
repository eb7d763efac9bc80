// Package events carries escalation session events from the coordinator to
// the UI, the JSON-lines stream, logs and metrics.
package events

import (
	"sync"
	"time"
)

// Handler receives events. Handlers run on a goroutine owned by their
// subscription and must not block on the bus themselves.
type Handler func(Event)

// DefaultCapacity is the per-subscriber queue length
const DefaultCapacity = 64

// Bus fans events out to subscribers. Every subscriber receives events in
// emit order on its own goroutine.
type Bus struct {
	mu       sync.RWMutex
	subs     map[int]*subscription
	nextID   int
	capacity int
	closed   bool
	now      func() time.Time
}

type subscription struct {
	ch   chan Event
	done chan struct{}
}

// NewBus creates a new event bus with the specified per-subscriber capacity
func NewBus(capacity int) *Bus {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Bus{
		subs:     make(map[int]*subscription),
		capacity: capacity,
		now:      time.Now,
	}
}

// Subscribe registers h and returns a function that removes it. The
// returned function waits for queued events to be handled.
func (b *Bus) Subscribe(h Handler) (unsubscribe func()) {
	sub := &subscription{
		ch:   make(chan Event, b.capacity),
		done: make(chan struct{}),
	}
	go func() {
		defer close(sub.done)
		for e := range sub.ch {
			h(e)
		}
	}()

	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		close(sub.ch)
		<-sub.done
		return func() {}
	}
	id := b.nextID
	b.nextID++
	b.subs[id] = sub
	b.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			s, ok := b.subs[id]
			delete(b.subs, id)
			b.mu.Unlock()
			if ok {
				close(s.ch)
				<-s.done
			}
		})
	}
}

// Emit stamps the event time and delivers it to every subscriber.
// Progress events are dropped for subscribers whose queue is full; all
// other events wait for room. Emit after Close is a no-op.
func (b *Bus) Emit(e Event) {
	if e.Time.IsZero() {
		e.Time = b.now()
	}

	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return
	}

	for _, sub := range b.subs {
		if e.Type == TierProgress {
			select {
			case sub.ch <- e:
			default:
			}
			continue
		}
		sub.ch <- e
	}
}

// Close shuts down the event bus after queued events are handled
func (b *Bus) Close() error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true
	subs := b.subs
	b.subs = make(map[int]*subscription)
	b.mu.Unlock()

	for _, s := range subs {
		close(s.ch)
	}
	for _, s := range subs {
		<-s.done
	}
	return nil
}
