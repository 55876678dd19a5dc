package alerting

import (
	"sync"
	"time"

	"github.com/sensordash/alertd/internal/logger"
	"github.com/sensordash/alertd/internal/sensor"
)

const (
	// eventBusBufferSize is the capacity of the async event channel.
	// Events are dropped if the buffer is full to avoid blocking publishers.
	eventBusBufferSize = 1000
)

// ReadingEvent carries a reading that arrived outside the polling loop.
type ReadingEvent struct {
	Reading    *sensor.Reading
	Source     string
	ReceivedAt time.Time
}

// ReadingEventHandler processes reading events.
type ReadingEventHandler func(event *ReadingEvent)

// ReadingEventBus is an async pub/sub for readings. Publish is non-blocking:
// events go to a buffered channel drained by a single worker goroutine, so
// transport callbacks (MQTT, HTTP) never wait for evaluation.
type ReadingEventBus struct {
	handlers []ReadingEventHandler
	mu       sync.RWMutex
	eventCh  chan *ReadingEvent
	stopCh   chan struct{}
	doneCh   chan struct{}
	stopOnce sync.Once
	log      logger.Logger
}

// NewReadingEventBus creates a bus and starts its worker.
func NewReadingEventBus(log logger.Logger) *ReadingEventBus {
	b := &ReadingEventBus{
		eventCh: make(chan *ReadingEvent, eventBusBufferSize),
		stopCh:  make(chan struct{}),
		doneCh:  make(chan struct{}),
		log:     log.Module("events"),
	}
	go b.processLoop()
	return b
}

// Subscribe registers a handler for reading events.
func (b *ReadingEventBus) Subscribe(handler ReadingEventHandler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers = append(b.handlers, handler)
}

// Publish enqueues an event and reports whether it was accepted. Events are
// dropped when the buffer is full or the bus is stopped.
func (b *ReadingEventBus) Publish(event *ReadingEvent) bool {
	select {
	case <-b.stopCh:
		return false
	default:
	}

	if event.ReceivedAt.IsZero() {
		event.ReceivedAt = time.Now()
	}

	select {
	case b.eventCh <- event:
		return true
	default:
		b.log.Warn("reading event dropped, buffer full",
			logger.String("source", event.Source))
		return false
	}
}

// Stop shuts down the worker after draining queued events. Safe to call
// multiple times.
func (b *ReadingEventBus) Stop() {
	b.stopOnce.Do(func() {
		close(b.stopCh)
	})
	<-b.doneCh
}

func (b *ReadingEventBus) processLoop() {
	defer close(b.doneCh)
	for {
		select {
		case event := <-b.eventCh:
			b.dispatch(event)
		case <-b.stopCh:
			for {
				select {
				case event := <-b.eventCh:
					b.dispatch(event)
				default:
					return
				}
			}
		}
	}
}

func (b *ReadingEventBus) dispatch(event *ReadingEvent) {
	b.mu.RLock()
	handlers := make([]ReadingEventHandler, len(b.handlers))
	copy(handlers, b.handlers)
	b.mu.RUnlock()

	for _, handler := range handlers {
		b.safeCall(handler, event)
	}
}

// safeCall invokes a handler with panic recovery so a panicking handler
// cannot kill the bus goroutine.
func (b *ReadingEventBus) safeCall(handler ReadingEventHandler, event *ReadingEvent) {
	defer func() {
		if r := recover(); r != nil {
			b.log.Error("reading event handler panicked",
				logger.String("source", event.Source),
				logger.Any("panic", r))
		}
	}()
	handler(event)
}
