package hub

import (
	"sync"
	"sync/atomic"

	"github.com/sirupsen/logrus"
)

// SubscriberBuffer is the channel capacity given to each subscriber.
const SubscriberBuffer = 1024

// Hub broadcasts published values to every subscriber. Each subscriber gets
// its own buffered channel; a subscriber whose buffer is full misses the
// value rather than stalling the publisher.
type Hub[T any] struct {
	mu          sync.RWMutex
	subscribers map[chan T]struct{}
	closed      bool
	dropped     atomic.Int64
	log         *logrus.Entry
}

// New creates an empty Hub. logger may be nil.
func New[T any](logger *logrus.Logger) *Hub[T] {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Hub[T]{
		subscribers: make(map[chan T]struct{}),
		log:         logger.WithField("component", "hub"),
	}
}

// Subscribe returns a channel that receives every value published from now
// on. The channel is closed by Unsubscribe or Close.
func (h *Hub[T]) Subscribe() <-chan T {
	ch := make(chan T, SubscriberBuffer)
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		close(ch)
		return ch
	}
	h.subscribers[ch] = struct{}{}
	return ch
}

// Unsubscribe detaches and closes a channel returned by Subscribe.
func (h *Hub[T]) Unsubscribe(sub <-chan T) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for ch := range h.subscribers {
		if ch == sub {
			delete(h.subscribers, ch)
			close(ch)
			return
		}
	}
}

// Publish sends v to all subscribers.
func (h *Hub[T]) Publish(v T) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for ch := range h.subscribers {
		select {
		case ch <- v:
		default:
			n := h.dropped.Add(1)
			h.log.WithField("dropped_total", n).Warn("Dropped value for slow subscriber")
		}
	}
}

// Dropped returns the number of values dropped for slow subscribers.
func (h *Hub[T]) Dropped() int64 {
	return h.dropped.Load()
}

// Subscribers returns the current subscriber count.
func (h *Hub[T]) Subscribers() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subscribers)
}

// Close closes all subscriber channels. Later subscribers receive a closed
// channel.
func (h *Hub[T]) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.closed = true
	for ch := range h.subscribers {
		close(ch)
	}
	h.subscribers = nil
}
