// Package events wraps an EventBus so that handlers may publish again.
package events

import (
	"fmt"
	"sync"

	evbus "github.com/asaskevich/EventBus"
)

// Bus delivers events in the order they were posted. EventBus holds its
// lock while a handler runs, so events posted from inside a handler are
// queued and delivered once that handler returns. Handlers may therefore
// mutate any store publishing on the same Bus; they must not call
// Subscribe or Unsubscribe.
type Bus struct {
	bus evbus.Bus

	mu       sync.Mutex
	queue    []event
	draining bool
}

type event struct {
	topic string
	args  []any
}

// NewBus creates an empty Bus.
func NewBus() *Bus {
	return &Bus{bus: evbus.New()}
}

// Subscribe registers fn for topic. fn must be a func whose parameters
// match the arguments posted on topic.
func (b *Bus) Subscribe(topic string, fn any) error {
	if err := b.bus.Subscribe(topic, fn); err != nil {
		return fmt.Errorf("subscribe %s: %w", topic, err)
	}

	return nil
}

// Unsubscribe removes fn from topic. Handlers are matched by code pointer,
// so two closures created by the same function literal are
// indistinguishable and either one may be removed.
func (b *Bus) Unsubscribe(topic string, fn any) error {
	if err := b.bus.Unsubscribe(topic, fn); err != nil {
		return fmt.Errorf("unsubscribe %s: %w", topic, err)
	}

	return nil
}

// Post queues an event without delivering it. Stores post while holding
// their own lock, so the queue order matches the order of state changes.
func (b *Bus) Post(topic string, args ...any) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.queue = append(b.queue, event{topic: topic, args: args})
}

// Deliver runs the handlers of every queued event. When another call is
// already delivering, on this goroutine or another, Deliver returns at
// once and that call delivers the queued events.
func (b *Bus) Deliver() {
	b.mu.Lock()

	if b.draining {
		b.mu.Unlock()

		return
	}

	b.draining = true

	finished := false

	defer func() {
		if !finished {
			b.mu.Lock()
			b.draining = false
			b.mu.Unlock()
		}
	}()

	for len(b.queue) > 0 {
		next := b.queue[0]
		b.queue[0] = event{}
		b.queue = b.queue[1:]

		b.mu.Unlock()
		b.bus.Publish(next.topic, next.args...)
		b.mu.Lock()
	}

	b.queue = nil
	b.draining = false
	finished = true

	b.mu.Unlock()
}

// Publish posts an event and delivers the queue.
func (b *Bus) Publish(topic string, args ...any) {
	b.Post(topic, args...)
	b.Deliver()
}
