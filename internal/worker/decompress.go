package worker

import (
	"context"
	"fmt"
	"runtime"

	"github.com/atikulmunna/reel/internal/cache"
	"github.com/atikulmunna/reel/internal/decompress"
	"github.com/atikulmunna/reel/internal/model"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
)

// DecompressHandler serves Decompress, DecompressBatch, QueryCacheStats and
// ClearCache against a cache it shares with nobody else.
type DecompressHandler struct {
	cache       *cache.Cache
	dec         decompress.Decompressor
	parallelism int
	sf          singleflight.Group
	log         *logrus.Entry
}

// NewDecompressHandler creates a handler. parallelism bounds concurrent
// decompressions within one batch.
func NewDecompressHandler(c *cache.Cache, dec decompress.Decompressor, parallelism int, logger *logrus.Logger) *DecompressHandler {
	if parallelism <= 0 {
		parallelism = runtime.GOMAXPROCS(0)
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &DecompressHandler{
		cache:       c,
		dec:         dec,
		parallelism: parallelism,
		log:         logger.WithField("component", "decompress_handler"),
	}
}

// NewDecompressWorker creates a worker that owns c and reports its
// evictions as CacheDisposed events followed by a fresh snapshot. Evictions
// caused by a request carry its id; the rest, such as TTL purges and
// external removals, carry none.
func NewDecompressWorker(c *cache.Cache, dec decompress.Decompressor, opts Options) *Worker {
	if opts.Name == "" {
		opts.Name = "decompress_worker"
	}
	h := NewDecompressHandler(c, dec, opts.Parallelism, opts.Logger)
	w := New(h, opts)
	c.SetEvictFunc(h.evictFunc("", w.Publish))
	return w
}

// evictFunc reports evictions under id through emit.
func (h *DecompressHandler) evictFunc(id string, emit func(Event)) cache.EvictFunc {
	return func(key string, reason cache.Reason) {
		emit(CacheDisposed{ID: id, Name: key, Reason: reason.String()})
		// Clear sends a single snapshot once every entry is gone.
		if reason != cache.ReasonCleared && reason != cache.ReasonReplaced {
			emit(CacheStatsResult{ID: id, Stats: h.cache.Stats()})
		}
	}
}

func (h *DecompressHandler) Handle(ctx context.Context, req Request, emit func(Event)) error {
	sc := h.cache.WithEvictFunc(h.evictFunc(req.RequestID(), emit))

	switch r := req.(type) {
	case Decompress:
		return h.decompressOne(sc, r, emit)
	case DecompressBatch:
		return h.decompressBatch(ctx, sc, r, emit)
	case QueryCacheStats:
		emit(CacheStatsResult{ID: r.ID, Stats: h.cache.Stats()})
		return nil
	case ClearCache:
		n := sc.Clear()
		h.log.WithField("entries", n).Info("Cache cleared")
		emit(CacheStatsResult{ID: r.ID, Stats: h.cache.Stats()})
		return nil
	case Search:
		return fmt.Errorf("%w: search on decompression worker", ErrUnsupported)
	default:
		return ErrUnsupported
	}
}

func (h *DecompressHandler) decompressOne(sc *cache.Scope, r Decompress, emit func(Event)) error {
	if data, ok := sc.Get(r.Name); ok {
		h.log.WithField("name", r.Name).Debug("Cache hit")
		emit(DecompressResult{ID: r.ID, Name: r.Name, Data: data})
		emit(Status{ID: r.ID, State: StateCompleted})
		return nil
	}

	emit(Status{ID: r.ID, State: StateDecompressing})
	data, err := h.decompress(sc, r.ID, r.Name, r.Data, emit)
	if err != nil {
		return err
	}
	emit(DecompressResult{ID: r.ID, Name: r.Name, Data: data})
	emit(Status{ID: r.ID, State: StateCompleted})
	return nil
}

func (h *DecompressHandler) decompressBatch(ctx context.Context, sc *cache.Scope, r DecompressBatch, emit func(Event)) error {
	emit(Status{ID: r.ID, State: StateDecompressing})

	results := make([][]byte, len(r.Files))
	var g errgroup.Group
	g.SetLimit(h.parallelism)
	for i, f := range r.Files {
		i, f := i, f
		g.Go(func() error {
			data, err := h.resolve(sc, r.ID, f, emit)
			if err != nil {
				return err
			}
			results[i] = data
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	refs := make([]model.FileRef, len(r.Files))
	for i, f := range r.Files {
		refs[i] = f.Ref()
	}
	emit(BatchResult{ID: r.ID, BatchData: results, OriginalFiles: refs})
	emit(Status{ID: r.ID, State: StateCompleted})
	return nil
}

// resolve returns cached bytes or decompresses once per name, even when the
// same name appears several times in a batch.
func (h *DecompressHandler) resolve(sc *cache.Scope, id string, f model.NamedFile, emit func(Event)) ([]byte, error) {
	if data, ok := sc.Get(f.Name); ok {
		return data, nil
	}
	v, err, _ := h.sf.Do(f.Name, func() (any, error) {
		return h.decompress(sc, id, f.Name, f.Data, emit)
	})
	if err != nil {
		return nil, err
	}
	return v.([]byte), nil
}

func (h *DecompressHandler) decompress(sc *cache.Scope, id, name string, src []byte, emit func(Event)) ([]byte, error) {
	out, err := h.dec.Decompress(src)
	if err != nil {
		return nil, fmt.Errorf("decompress %s: %w", name, err)
	}

	log := h.log.WithFields(logrus.Fields{"name": name, "compressed": len(src), "bytes": len(out)})
	if sc.Set(name, out) {
		log.Debug("Decompressed and cached")
		emit(CacheStatsResult{ID: id, Stats: h.cache.Stats()})
	} else {
		log.Warn("Decompressed output exceeds cache size limit, not cached")
	}
	return out, nil
}
