// Package worker runs decompression and search requests off the caller's
// goroutine. A Worker handles one request at a time in arrival order and
// reports progress and results as broadcast events.
package worker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/atikulmunna/reel/internal/hub"
	"github.com/sirupsen/logrus"
)

var (
	// ErrClosed is returned when submitting to a worker that has stopped.
	ErrClosed = errors.New("worker closed")

	// ErrUnsupported is returned by a Handler for requests it does not serve.
	ErrUnsupported = errors.New("unsupported request")
)

// DefaultQueueSize is the inbox capacity used when Options leaves it zero.
const DefaultQueueSize = 64

// Handler processes a single request, emitting events as it goes. A
// returned error is reported to subscribers as an Error event.
type Handler interface {
	Handle(ctx context.Context, req Request, emit func(Event)) error
}

// Options configures a Worker.
type Options struct {
	Name        string
	QueueSize   int
	Parallelism int // batch decompression only
	Logger      *logrus.Logger
}

// Worker owns a request queue and the handler that drains it.
type Worker struct {
	handler Handler
	inbox   chan Request
	events  *hub.Hub[Event]
	done    chan struct{}
	log     *logrus.Entry
}

// New creates a Worker around h. Call Start to begin processing.
func New(h Handler, opts Options) *Worker {
	if opts.QueueSize <= 0 {
		opts.QueueSize = DefaultQueueSize
	}
	if opts.Logger == nil {
		opts.Logger = logrus.StandardLogger()
	}
	if opts.Name == "" {
		opts.Name = "worker"
	}
	return &Worker{
		handler: h,
		inbox:   make(chan Request, opts.QueueSize),
		events:  hub.New[Event](opts.Logger),
		done:    make(chan struct{}),
		log:     opts.Logger.WithField("component", opts.Name),
	}
}

// Subscribe returns a channel of every event emitted from now on.
func (w *Worker) Subscribe() <-chan Event {
	return w.events.Subscribe()
}

// Unsubscribe detaches a channel returned by Subscribe.
func (w *Worker) Unsubscribe(ch <-chan Event) {
	w.events.Unsubscribe(ch)
}

// Publish broadcasts an event that is not tied to the request loop.
func (w *Worker) Publish(ev Event) {
	w.events.Publish(ev)
}

// Dropped returns the number of events lost to slow subscribers.
func (w *Worker) Dropped() int64 {
	return w.events.Dropped()
}

// Done is closed once Start has returned.
func (w *Worker) Done() <-chan struct{} {
	return w.done
}

// Submit queues req and returns its correlation id, assigning one when the
// request has none. It blocks while the queue is full.
func (w *Worker) Submit(ctx context.Context, req Request) (string, error) {
	if req == nil {
		return "", fmt.Errorf("%w: nil request", ErrUnsupported)
	}
	if req.RequestID() == "" {
		req = req.withID(NewRequestID())
	}

	select {
	case <-w.done:
		return "", ErrClosed
	default:
	}

	select {
	case w.inbox <- req:
		return req.RequestID(), nil
	case <-w.done:
		return "", ErrClosed
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// Start processes queued requests one at a time until ctx is cancelled.
// A request that has started always runs to completion.
func (w *Worker) Start(ctx context.Context) {
	defer close(w.done)
	defer w.events.Close()

	w.log.Info("Worker started")
	for {
		select {
		case <-ctx.Done():
			w.log.WithField("pending", len(w.inbox)).Info("Worker stopping")
			return
		case req := <-w.inbox:
			w.handle(ctx, req)
		}
	}
}

func (w *Worker) handle(ctx context.Context, req Request) {
	id := req.RequestID()
	log := w.log.WithFields(logrus.Fields{
		"request_id": id,
		"request":    requestName(req),
	})
	start := time.Now()

	defer func() {
		if r := recover(); r != nil {
			log.WithField("panic", r).Error("Request handler panicked")
			w.fail(id, fmt.Errorf("internal error: %v", r))
		}
	}()

	if err := w.handler.Handle(ctx, req, w.events.Publish); err != nil {
		log.WithError(err).Warn("Request failed")
		w.fail(id, err)
		return
	}
	log.WithField("duration", time.Since(start)).Debug("Request handled")
}

func (w *Worker) fail(id string, err error) {
	if !errors.Is(err, ErrUnsupported) {
		w.events.Publish(Status{ID: id, State: StateError})
	}
	w.events.Publish(Error{ID: id, Message: err.Error()})
}

func requestName(req Request) string {
	switch req.(type) {
	case Decompress:
		return "decompress"
	case DecompressBatch:
		return "decompress_batch"
	case QueryCacheStats:
		return "query_cache_stats"
	case ClearCache:
		return "clear_cache"
	case Search:
		return "search"
	default:
		return "unknown"
	}
}
