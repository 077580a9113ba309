package jobs

import (
	"context"
	"sync"

	"runner/internal/domain"
)

// EventChannel is the ordered delivery queue of a single job. Any number of
// producers may Put concurrently; consumers Get in FIFO order. Put never
// blocks: the queue holds at most the undelivered tail of the job's event log,
// which the registry retains anyway. The channel is never closed; a DONE or
// ERROR event tells the consumer to stop.
type EventChannel struct {
	mu     sync.Mutex
	items  []domain.Event
	notify chan struct{}
}

func newEventChannel() *EventChannel {
	return &EventChannel{notify: make(chan struct{}, 1)}
}

// Put enqueues ev behind every previously enqueued event.
func (c *EventChannel) Put(ev domain.Event) {
	c.mu.Lock()
	c.items = append(c.items, ev)
	c.mu.Unlock()
	select {
	case c.notify <- struct{}{}:
	default:
	}
}

// Get removes and returns the oldest event, waiting until one is available or
// ctx is done.
func (c *EventChannel) Get(ctx context.Context) (domain.Event, error) {
	for {
		if ev, ok := c.TryGet(); ok {
			return ev, nil
		}
		select {
		case <-ctx.Done():
			return domain.Event{}, ctx.Err()
		case <-c.notify:
		}
	}
}

// TryGet returns the oldest event without waiting.
func (c *EventChannel) TryGet() (domain.Event, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.items) == 0 {
		return domain.Event{}, false
	}
	ev := c.items[0]
	c.items[0] = domain.Event{}
	c.items = c.items[1:]
	if len(c.items) > 0 {
		// Another consumer may be parked on notify; pass the wakeup on.
		select {
		case c.notify <- struct{}{}:
		default:
		}
	}
	return ev, true
}

// Len returns the number of undelivered events.
func (c *EventChannel) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}
