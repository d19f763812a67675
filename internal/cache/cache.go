// Package cache holds decompressed recordings keyed by their original file
// name. It is bounded by entry count and by total bytes, and entries expire
// a fixed time after they are stored no matter how often they are read.
package cache

import (
	"context"
	"sync"
	"time"

	"github.com/atikulmunna/reel/internal/model"
)

// Defaults used when Options leaves a limit at zero.
const (
	DefaultMaxEntries = 50
	DefaultMaxBytes   = 400 << 20
	DefaultTTL        = 30 * time.Minute
)

// Reason says why an entry left the cache.
type Reason int

const (
	ReasonCapacity Reason = iota // entry count limit
	ReasonSize                   // byte size limit
	ReasonExpired                // TTL elapsed
	ReasonRemoved                // explicit Remove
	ReasonCleared                // Clear
	ReasonReplaced               // Set on an existing key
)

func (r Reason) String() string {
	switch r {
	case ReasonCapacity:
		return "capacity"
	case ReasonSize:
		return "size"
	case ReasonExpired:
		return "expired"
	case ReasonRemoved:
		return "removed"
	case ReasonCleared:
		return "cleared"
	case ReasonReplaced:
		return "replaced"
	default:
		return "unknown"
	}
}

// EvictFunc is called once per entry that leaves the cache, after the cache
// lock has been released.
type EvictFunc func(key string, reason Reason)

// Options configures a Cache.
type Options struct {
	MaxEntries int
	MaxBytes   int64
	TTL        time.Duration
	OnEvict    EvictFunc
	Now        func() time.Time
}

type eviction struct {
	key    string
	reason Reason
}

// Cache is an LRU cache of decompressed bytes. It is safe for concurrent use.
type Cache struct {
	mu         sync.Mutex
	entries    map[string]*entry
	order      lruList
	totalBytes int64

	maxEntries int
	maxBytes   int64
	ttl        time.Duration
	onEvict    EvictFunc
	now        func() time.Time
}

// New creates a Cache. Zero limits fall back to the package defaults.
func New(opts Options) *Cache {
	c := &Cache{
		entries:    make(map[string]*entry),
		maxEntries: opts.MaxEntries,
		maxBytes:   opts.MaxBytes,
		ttl:        opts.TTL,
		onEvict:    opts.OnEvict,
		now:        opts.Now,
	}
	if c.maxEntries <= 0 {
		c.maxEntries = DefaultMaxEntries
	}
	if c.maxBytes <= 0 {
		c.maxBytes = DefaultMaxBytes
	}
	if c.ttl < 0 {
		c.ttl = 0
	}
	if c.now == nil {
		c.now = time.Now
	}
	return c
}

// SetEvictFunc replaces the eviction listener.
func (c *Cache) SetEvictFunc(fn EvictFunc) {
	c.mu.Lock()
	c.onEvict = fn
	c.mu.Unlock()
}

// Get returns the bytes stored under key and marks the entry recently used.
// An expired entry is evicted and reported as a miss.
func (c *Cache) Get(key string) ([]byte, bool) {
	return c.get(key, nil)
}

func (c *Cache) get(key string, scoped EvictFunc) ([]byte, bool) {
	c.mu.Lock()
	e, ok := c.entries[key]
	if !ok {
		c.mu.Unlock()
		return nil, false
	}

	now := c.now()
	if e.expired(now) {
		c.removeLocked(e)
		fn := c.listener(scoped)
		c.mu.Unlock()
		notify(fn, []eviction{{key, ReasonExpired}})
		return nil, false
	}

	e.lastAccess = now
	c.order.moveToFront(e)
	data := e.data
	c.mu.Unlock()
	return data, true
}

// Set stores data under key, evicting least recently used entries until both
// limits hold. It returns false without storing when data alone exceeds the
// byte limit.
func (c *Cache) Set(key string, data []byte) bool {
	return c.set(key, data, nil)
}

func (c *Cache) set(key string, data []byte, scoped EvictFunc) bool {
	size := int64(len(data))

	c.mu.Lock()
	if size > c.maxBytes {
		c.mu.Unlock()
		return false
	}

	var evicted []eviction
	if old, ok := c.entries[key]; ok {
		c.removeLocked(old)
		evicted = append(evicted, eviction{key, ReasonReplaced})
	}

	now := c.now()
	e := &entry{
		key:        key,
		data:       data,
		size:       size,
		storedAt:   now,
		lastAccess: now,
	}
	if c.ttl > 0 {
		e.expiresAt = now.Add(c.ttl)
	}
	c.entries[key] = e
	c.order.pushFront(e)
	c.totalBytes += size

	for len(c.entries) > c.maxEntries {
		evicted = append(evicted, eviction{c.order.tail.key, ReasonCapacity})
		c.removeLocked(c.order.tail)
	}
	for c.totalBytes > c.maxBytes {
		evicted = append(evicted, eviction{c.order.tail.key, ReasonSize})
		c.removeLocked(c.order.tail)
	}

	fn := c.listener(scoped)
	c.mu.Unlock()
	notify(fn, evicted)
	return true
}

// Remove deletes key. It reports whether the key was present.
func (c *Cache) Remove(key string) bool {
	return c.remove(key, nil)
}

func (c *Cache) remove(key string, scoped EvictFunc) bool {
	c.mu.Lock()
	e, ok := c.entries[key]
	if ok {
		c.removeLocked(e)
	}
	fn := c.listener(scoped)
	c.mu.Unlock()

	if ok {
		notify(fn, []eviction{{key, ReasonRemoved}})
	}
	return ok
}

// Clear evicts every entry, least recently used first, and returns how many
// were removed.
func (c *Cache) Clear() int {
	return c.clear(nil)
}

func (c *Cache) clear(scoped EvictFunc) int {
	c.mu.Lock()
	evicted := make([]eviction, 0, len(c.entries))
	for c.order.tail != nil {
		evicted = append(evicted, eviction{c.order.tail.key, ReasonCleared})
		c.removeLocked(c.order.tail)
	}
	fn := c.listener(scoped)
	c.mu.Unlock()

	notify(fn, evicted)
	return len(evicted)
}

// Purge evicts every expired entry and returns how many were removed.
func (c *Cache) Purge() int {
	c.mu.Lock()
	now := c.now()
	var evicted []eviction
	for e := c.order.tail; e != nil; {
		prev := e.prev
		if e.expired(now) {
			evicted = append(evicted, eviction{e.key, ReasonExpired})
			c.removeLocked(e)
		}
		e = prev
	}
	fn := c.onEvict
	c.mu.Unlock()

	notify(fn, evicted)
	return len(evicted)
}

// Start purges expired entries every interval until ctx is cancelled.
func (c *Cache) Start(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.Purge()
		}
	}
}

// Stats returns a snapshot of the cache's size and limits.
func (c *Cache) Stats() model.CacheStats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return model.CacheStats{
		EntryCount: len(c.entries),
		MaxEntries: c.maxEntries,
		TotalBytes: c.totalBytes,
		MaxBytes:   c.maxBytes,
	}
}

// Keys returns the cached keys from most to least recently used.
func (c *Cache) Keys() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	keys := make([]string, 0, len(c.entries))
	for e := c.order.head; e != nil; e = e.next {
		keys = append(keys, e.key)
	}
	return keys
}

func (c *Cache) listener(scoped EvictFunc) EvictFunc {
	if scoped != nil {
		return scoped
	}
	return c.onEvict
}

func (c *Cache) removeLocked(e *entry) {
	c.order.remove(e)
	delete(c.entries, e.key)
	c.totalBytes -= e.size
}

func notify(fn EvictFunc, evicted []eviction) {
	if fn == nil {
		return
	}
	for _, ev := range evicted {
		fn(ev.key, ev.reason)
	}
}

// Scope is a view of a Cache whose own operations report evictions to a
// dedicated listener instead of the cache-wide one. Evictions caused by other
// callers, including Purge, still reach the cache-wide listener.
type Scope struct {
	c  *Cache
	fn EvictFunc
}

// WithEvictFunc returns a Scope reporting to fn. A nil fn discards the
// scope's evictions.
func (c *Cache) WithEvictFunc(fn EvictFunc) *Scope {
	if fn == nil {
		fn = func(string, Reason) {}
	}
	return &Scope{c: c, fn: fn}
}

func (s *Scope) Get(key string) ([]byte, bool)    { return s.c.get(key, s.fn) }
func (s *Scope) Set(key string, data []byte) bool { return s.c.set(key, data, s.fn) }
func (s *Scope) Remove(key string) bool           { return s.c.remove(key, s.fn) }
func (s *Scope) Clear() int                       { return s.c.clear(s.fn) }
