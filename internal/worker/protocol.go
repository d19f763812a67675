package worker

import (
	"github.com/atikulmunna/reel/internal/model"
	"github.com/google/uuid"
)

// NewRequestID returns a fresh correlation id.
func NewRequestID() string {
	return uuid.NewString()
}

// ---------------------------------------------------------------------------
// Inbound
// ---------------------------------------------------------------------------

// Request is the closed set of messages a worker accepts: Decompress,
// DecompressBatch, QueryCacheStats, ClearCache and Search.
type Request interface {
	RequestID() string
	withID(id string) Request
	isRequest()
}

// Decompress asks for one file to be decompressed, or served from cache.
type Decompress struct {
	ID   string
	Name string
	Data []byte
}

// DecompressBatch asks for several files; results keep input order.
type DecompressBatch struct {
	ID    string
	Files []model.NamedFile
}

// QueryCacheStats asks for a cache snapshot.
type QueryCacheStats struct {
	ID string
}

// ClearCache evicts every cached entry.
type ClearCache struct {
	ID string
}

// Search looks for Text in the frames of Data.
type Search struct {
	ID    string
	Data  []byte
	Text  string
	Regex bool
}

func (r Decompress) RequestID() string      { return r.ID }
func (r DecompressBatch) RequestID() string { return r.ID }
func (r QueryCacheStats) RequestID() string { return r.ID }
func (r ClearCache) RequestID() string      { return r.ID }
func (r Search) RequestID() string          { return r.ID }

func (r Decompress) withID(id string) Request      { r.ID = id; return r }
func (r DecompressBatch) withID(id string) Request { r.ID = id; return r }
func (r QueryCacheStats) withID(id string) Request { r.ID = id; return r }
func (r ClearCache) withID(id string) Request      { r.ID = id; return r }
func (r Search) withID(id string) Request          { r.ID = id; return r }

func (Decompress) isRequest()      {}
func (DecompressBatch) isRequest() {}
func (QueryCacheStats) isRequest() {}
func (ClearCache) isRequest()      {}
func (Search) isRequest()          {}

// ---------------------------------------------------------------------------
// Outbound
// ---------------------------------------------------------------------------

// State is a status transition broadcast while a request is handled.
type State string

const (
	StateDecompressing State = "decompressing"
	StateSearching     State = "searching"
	StateCompleted     State = "completed"
	StateError         State = "error"
)

// Event kinds, as used on the wire.
const (
	KindStatus           = "status"
	KindDecompressResult = "decompress_result"
	KindBatchResult      = "decompress_batch_result"
	KindError            = "error"
	KindCacheStats       = "cache_stats"
	KindCacheDisposed    = "cache_disposed"
	KindSearchResult     = "search_result"
)

// Event is the closed set of messages a worker emits. RequestID is empty
// for notifications not caused by a request, such as TTL expiry.
type Event interface {
	RequestID() string
	Kind() string
	isEvent()
}

// Status reports a state transition.
type Status struct {
	ID    string `json:"id,omitempty"`
	State State  `json:"state"`
}

// DecompressResult carries the bytes for a Decompress request.
type DecompressResult struct {
	ID   string `json:"id,omitempty"`
	Name string `json:"name"`
	Data []byte `json:"data"`
}

// BatchResult carries the bytes for a DecompressBatch request, aligned with
// OriginalFiles.
type BatchResult struct {
	ID            string          `json:"id,omitempty"`
	BatchData     [][]byte        `json:"batch_data"`
	OriginalFiles []model.FileRef `json:"original_files"`
}

// Error reports a failed request.
type Error struct {
	ID      string `json:"id,omitempty"`
	Message string `json:"message"`
}

// CacheStatsResult carries a cache snapshot.
type CacheStatsResult struct {
	ID    string           `json:"id,omitempty"`
	Stats model.CacheStats `json:"stats"`
}

// CacheDisposed names an entry that left the cache.
type CacheDisposed struct {
	ID     string `json:"id,omitempty"`
	Name   string `json:"name"`
	Reason string `json:"reason"`
}

// SearchResult carries the hits for a Search request.
type SearchResult struct {
	ID   string            `json:"id,omitempty"`
	Hits []model.SearchHit `json:"data"`
}

func (e Status) RequestID() string           { return e.ID }
func (e DecompressResult) RequestID() string { return e.ID }
func (e BatchResult) RequestID() string      { return e.ID }
func (e Error) RequestID() string            { return e.ID }
func (e CacheStatsResult) RequestID() string { return e.ID }
func (e CacheDisposed) RequestID() string    { return e.ID }
func (e SearchResult) RequestID() string     { return e.ID }

func (Status) Kind() string           { return KindStatus }
func (DecompressResult) Kind() string { return KindDecompressResult }
func (BatchResult) Kind() string      { return KindBatchResult }
func (Error) Kind() string            { return KindError }
func (CacheStatsResult) Kind() string { return KindCacheStats }
func (CacheDisposed) Kind() string    { return KindCacheDisposed }
func (SearchResult) Kind() string     { return KindSearchResult }

func (Status) isEvent()           {}
func (DecompressResult) isEvent() {}
func (BatchResult) isEvent()      {}
func (Error) isEvent()            {}
func (CacheStatsResult) isEvent() {}
func (CacheDisposed) isEvent()    {}
func (SearchResult) isEvent()     {}
