package notification

import (
	"sync"
	"sync/atomic"
)

// DefaultSubscriberBuffer is the per-subscriber queue length.
const DefaultSubscriberBuffer = 32

// EventType names what a stream event carries.
type EventType string

const (
	EventNotification EventType = "notification"
	EventToast        EventType = "toast"
)

// Event is a change pushed to stream subscribers. Exactly one of
// Notification and Toast is set, matching Type.
type Event struct {
	Type         EventType
	Notification *Notification
	Toast        *Toast
}

// Broadcaster fans events out to subscribers. Publishing never blocks: an
// event is dropped for a subscriber whose queue is full.
type Broadcaster struct {
	mu      sync.RWMutex
	subs    map[chan Event]struct{}
	buffer  int
	dropped atomic.Uint64
}

// NewBroadcaster creates a broadcaster whose subscribers queue up to buffer
// events.
func NewBroadcaster(buffer int) *Broadcaster {
	if buffer <= 0 {
		buffer = DefaultSubscriberBuffer
	}
	return &Broadcaster{
		subs:   make(map[chan Event]struct{}),
		buffer: buffer,
	}
}

// Subscribe registers a subscriber. The returned cancel function removes it
// and closes the channel; it is safe to call more than once.
func (b *Broadcaster) Subscribe() (<-chan Event, func()) {
	ch := make(chan Event, b.buffer)

	b.mu.Lock()
	b.subs[ch] = struct{}{}
	b.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subs, ch)
			close(ch)
			b.mu.Unlock()
		})
	}
}

// Publish sends ev to every subscriber and returns how many received it.
func (b *Broadcaster) Publish(ev Event) int {
	if b == nil {
		return 0
	}
	b.mu.RLock()
	defer b.mu.RUnlock()

	sent := 0
	for ch := range b.subs {
		select {
		case ch <- ev:
			sent++
		default:
			b.dropped.Add(1)
		}
	}
	return sent
}

// Subscribers returns the number of active subscribers.
func (b *Broadcaster) Subscribers() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}

// Dropped returns how many deliveries were skipped because a subscriber was
// not keeping up.
func (b *Broadcaster) Dropped() uint64 {
	return b.dropped.Load()
}
