package worker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/atikulmunna/reel/internal/model"
	"github.com/atikulmunna/reel/internal/ttyrec"
)

func TestClientDecompress(t *testing.T) {
	w, dec, _ := newDecompressWorker(t, 10)
	c := NewClient(w)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		got, err := c.Decompress(ctx, "s.bz2", []byte("session"))
		if err != nil {
			t.Fatal(err)
		}
		if string(got) != "SESSION" {
			t.Errorf("expected SESSION, got %q", got)
		}
	}
	if n := dec.calls.Load(); n != 1 {
		t.Errorf("expected 1 decompression, got %d", n)
	}

	stats, err := c.Stats(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if stats.EntryCount != 1 {
		t.Errorf("expected 1 entry, got %d", stats.EntryCount)
	}

	stats, err = c.Clear(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if stats.EntryCount != 0 {
		t.Errorf("expected empty cache, got %d", stats.EntryCount)
	}
}

func TestClientDecompressError(t *testing.T) {
	w, _, _ := newDecompressWorker(t, 10)
	c := NewClient(w)

	_, err := c.Decompress(context.Background(), "x.bz2", []byte("bad"))
	var reqErr *RequestError
	if !errors.As(err, &reqErr) {
		t.Fatalf("expected RequestError, got %v", err)
	}
	if reqErr.ID == "" {
		t.Error("expected error to carry the request id")
	}
}

func TestClientBatch(t *testing.T) {
	w, _, _ := newDecompressWorker(t, 10)
	c := NewClient(w)

	out, err := c.DecompressBatch(context.Background(), []model.NamedFile{
		{Name: "b", Data: []byte("b")},
		{Name: "a", Data: []byte("a")},
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(out) != 2 || string(out[0]) != "B" || string(out[1]) != "A" {
		t.Errorf("unexpected batch output: %q", out)
	}
}

func TestClientConcurrentCallers(t *testing.T) {
	w := NewSearchWorker(Options{Logger: quietLogger()})
	startWorker(t, w)
	c := NewClient(w)

	buf := ttyrec.Encode([]model.Frame{
		{Seconds: 1, Payload: []byte("alpha")},
		{Seconds: 2, Payload: []byte("beta")},
	})

	terms := []string{"alpha", "beta", "gamma", "alpha", "beta"}
	want := map[string]int{"alpha": 1, "beta": 1, "gamma": 0}

	var wg sync.WaitGroup
	for _, term := range terms {
		term := term
		wg.Add(1)
		go func() {
			defer wg.Done()
			hits, err := c.Search(context.Background(), buf, term, false)
			if err != nil {
				t.Errorf("%s: %v", term, err)
				return
			}
			if len(hits) != want[term] {
				t.Errorf("%s: expected %d hits, got %d", term, want[term], len(hits))
			}
		}()
	}
	wg.Wait()
}

func TestClientContextCancelled(t *testing.T) {
	w := New(blockingHandler{release: make(chan struct{})}, Options{Logger: quietLogger()})
	startWorker(t, w)
	defer close(w.handler.(blockingHandler).release)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err := NewClient(w).Stats(ctx)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected deadline exceeded, got %v", err)
	}
}

type blockingHandler struct {
	release chan struct{}
}

func (h blockingHandler) Handle(context.Context, Request, func(Event)) error {
	<-h.release
	return nil
}
