package worker

import (
	"context"

	"github.com/atikulmunna/reel/internal/model"
)

// RequestError is a failure reported by the worker for one request.
type RequestError struct {
	ID      string
	Message string
}

func (e *RequestError) Error() string { return e.Message }

// Client offers blocking calls on top of a Worker's event stream. Replies
// are matched to requests by correlation id, so several goroutines may share
// one Client.
type Client struct {
	w *Worker
}

func NewClient(w *Worker) *Client {
	return &Client{w: w}
}

// Worker returns the underlying worker.
func (c *Client) Worker() *Worker {
	return c.w
}

// Decompress returns the decompressed bytes of one file.
func (c *Client) Decompress(ctx context.Context, name string, data []byte) ([]byte, error) {
	ev, err := c.roundTrip(ctx, Decompress{Name: name, Data: data}, KindDecompressResult)
	if err != nil {
		return nil, err
	}
	return ev.(DecompressResult).Data, nil
}

// DecompressBatch returns the decompressed bytes of files, in input order.
func (c *Client) DecompressBatch(ctx context.Context, files []model.NamedFile) ([][]byte, error) {
	ev, err := c.roundTrip(ctx, DecompressBatch{Files: files}, KindBatchResult)
	if err != nil {
		return nil, err
	}
	return ev.(BatchResult).BatchData, nil
}

// Stats returns a cache snapshot.
func (c *Client) Stats(ctx context.Context) (model.CacheStats, error) {
	ev, err := c.roundTrip(ctx, QueryCacheStats{}, KindCacheStats)
	if err != nil {
		return model.CacheStats{}, err
	}
	return ev.(CacheStatsResult).Stats, nil
}

// Clear empties the cache and returns the resulting snapshot.
func (c *Client) Clear(ctx context.Context) (model.CacheStats, error) {
	ev, err := c.roundTrip(ctx, ClearCache{}, KindCacheStats)
	if err != nil {
		return model.CacheStats{}, err
	}
	return ev.(CacheStatsResult).Stats, nil
}

// Search returns every hit for text in data, unsimplified.
func (c *Client) Search(ctx context.Context, data []byte, text string, regex bool) ([]model.SearchHit, error) {
	ev, err := c.roundTrip(ctx, Search{Data: data, Text: text, Regex: regex}, KindSearchResult)
	if err != nil {
		return nil, err
	}
	return ev.(SearchResult).Hits, nil
}

func (c *Client) roundTrip(ctx context.Context, req Request, want string) (Event, error) {
	sub := c.w.Subscribe()
	defer c.w.Unsubscribe(sub)

	id, err := c.w.Submit(ctx, req)
	if err != nil {
		return nil, err
	}

	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case ev, ok := <-sub:
			if !ok {
				return nil, ErrClosed
			}
			if ev.RequestID() != id {
				continue
			}
			if e, isErr := ev.(Error); isErr {
				return nil, &RequestError{ID: id, Message: e.Message}
			}
			if ev.Kind() == want {
				return ev, nil
			}
		}
	}
}
