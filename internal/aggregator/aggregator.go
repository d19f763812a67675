// Package aggregator keeps running totals over a worker's event stream for
// the stats and health endpoints.
package aggregator

import (
	"context"
	"sync"
	"time"

	"github.com/atikulmunna/reel/internal/model"
	"github.com/atikulmunna/reel/internal/worker"
)

// rateWindow is the span used for the events-per-second figure.
const rateWindow = 5 * time.Second

// Stats holds a point-in-time snapshot of aggregated metrics.
type Stats struct {
	Uptime        string           `json:"uptime"`
	TotalEvents   int64            `json:"total_events"`
	EPS           float64          `json:"eps"`
	KindCounts    map[string]int64 `json:"kind_counts"`
	Completed     int64            `json:"completed"`
	Failed        int64            `json:"failed"`
	Evictions     map[string]int64 `json:"evictions"`
	Cache         model.CacheStats `json:"cache"`
	DroppedEvents int64            `json:"dropped_events"`
}

// Aggregator subscribes to worker events and computes time-windowed metrics.
type Aggregator struct {
	mu          sync.RWMutex
	startTime   time.Time
	totalEvents int64
	kindCounts  map[string]int64
	completed   int64
	failed      int64
	evictions   map[string]int64
	cache       model.CacheStats
	window      []time.Time
	dropped     func() int64
	sources     []<-chan worker.Event
}

// New creates an Aggregator reading from sources, typically channels from
// Worker.Subscribe. droppedFn reports events lost to slow subscribers.
func New(droppedFn func() int64, sources ...<-chan worker.Event) *Aggregator {
	if droppedFn == nil {
		droppedFn = func() int64 { return 0 }
	}
	return &Aggregator{
		startTime:  time.Now(),
		kindCounts: make(map[string]int64),
		evictions:  make(map[string]int64),
		dropped:    droppedFn,
		sources:    sources,
	}
}

// Snapshot returns the current metrics.
func (a *Aggregator) Snapshot() Stats {
	a.mu.RLock()
	defer a.mu.RUnlock()

	kinds := make(map[string]int64, len(a.kindCounts))
	for k, v := range a.kindCounts {
		kinds[k] = v
	}
	evictions := make(map[string]int64, len(a.evictions))
	for k, v := range a.evictions {
		evictions[k] = v
	}

	cutoff := time.Now().Add(-rateWindow)
	var recent int
	for _, t := range a.window {
		if t.After(cutoff) {
			recent++
		}
	}

	return Stats{
		Uptime:        time.Since(a.startTime).Truncate(time.Second).String(),
		TotalEvents:   a.totalEvents,
		EPS:           float64(recent) / rateWindow.Seconds(),
		KindCounts:    kinds,
		Completed:     a.completed,
		Failed:        a.failed,
		Evictions:     evictions,
		Cache:         a.cache,
		DroppedEvents: a.dropped(),
	}
}

// Start consumes events until ctx is cancelled or every source closes.
func (a *Aggregator) Start(ctx context.Context) {
	events := make(chan worker.Event)
	var wg sync.WaitGroup
	for _, src := range a.sources {
		src := src
		wg.Add(1)
		go func() {
			defer wg.Done()
			for ev := range src {
				select {
				case events <- ev:
				case <-ctx.Done():
					return
				}
			}
		}()
	}
	go func() {
		wg.Wait()
		close(events)
	}()

	ticker := time.NewTicker(2 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			a.record(ev)
		case <-ticker.C:
			a.prune()
		}
	}
}

func (a *Aggregator) record(ev worker.Event) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.totalEvents++
	a.kindCounts[ev.Kind()]++
	a.window = append(a.window, time.Now())

	switch e := ev.(type) {
	case worker.Status:
		switch e.State {
		case worker.StateCompleted:
			a.completed++
		case worker.StateError:
			a.failed++
		}
	case worker.CacheStatsResult:
		a.cache = e.Stats
	case worker.CacheDisposed:
		a.evictions[e.Reason]++
	}
}

// prune drops timestamps that fell out of the rate window.
func (a *Aggregator) prune() {
	a.mu.Lock()
	defer a.mu.Unlock()

	cutoff := time.Now().Add(-rateWindow)
	i := 0
	for _, t := range a.window {
		if t.After(cutoff) {
			a.window[i] = t
			i++
		}
	}
	a.window = a.window[:i]
}
