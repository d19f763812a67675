package tailer

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/atikulmunna/reel/internal/model"
	"github.com/atikulmunna/reel/internal/ttyrec"
	"github.com/atikulmunna/reel/internal/watcher"
	"github.com/sirupsen/logrus"
)

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func appendBytes(t *testing.T, path string, b []byte) {
	t.Helper()
	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	if _, err := f.Write(b); err != nil {
		t.Fatal(err)
	}
}

func nextRecord(t *testing.T, tail *Tailer) Record {
	t.Helper()
	select {
	case rec, ok := <-tail.Records():
		if !ok {
			t.Fatal("records channel closed")
		}
		return rec
	case <-time.After(3 * time.Second):
		t.Fatal("timed out waiting for frame")
	}
	return Record{}
}

func startTailer(t *testing.T, path string, ckpt *Checkpoint, opts Options) *Tailer {
	t.Helper()
	opts.Logger = quietLogger()
	w, err := watcher.New([]string{path}, opts.Logger)
	if err != nil {
		t.Fatal(err)
	}
	tail := New(w, ckpt, opts)

	ctx, cancel := context.WithCancel(context.Background())
	go w.Start(ctx)
	go tail.Start(ctx)
	t.Cleanup(func() {
		cancel()
		// Allow goroutines to stop before TempDir cleanup.
		time.Sleep(200 * time.Millisecond)
	})
	return tail
}

func TestTailExistingAndAppendedFrames(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "live.ttyrec")
	first := ttyrec.Encode([]model.Frame{{Seconds: 1, Payload: []byte("$ ")}})
	if err := os.WriteFile(path, first, 0644); err != nil {
		t.Fatal(err)
	}

	ckpt, err := NewCheckpoint(filepath.Join(dir, ".reel-state.json"))
	if err != nil {
		t.Fatal(err)
	}
	tail := startTailer(t, path, ckpt, Options{})

	rec := nextRecord(t, tail)
	if string(rec.Frame.Payload) != "$ " {
		t.Errorf("expected existing frame, got %q", rec.Frame.Payload)
	}
	if rec.Offset != int64(len(first)) {
		t.Errorf("expected offset %d, got %d", len(first), rec.Offset)
	}

	// Write the next frame in two pieces; nothing is emitted for the first.
	next := ttyrec.Encode([]model.Frame{{Seconds: 2, Microseconds: 5, Payload: []byte("ls -la\r\n")}})
	time.Sleep(100 * time.Millisecond)
	appendBytes(t, path, next[:7])
	time.Sleep(200 * time.Millisecond)
	select {
	case rec := <-tail.Records():
		t.Fatalf("partial frame emitted: %+v", rec)
	default:
	}
	appendBytes(t, path, next[7:])

	rec = nextRecord(t, tail)
	if string(rec.Frame.Payload) != "ls -la\r\n" || rec.Frame.Seconds != 2 || rec.Frame.Microseconds != 5 {
		t.Errorf("unexpected frame: %+v", rec.Frame)
	}
	if rec.Source != path {
		t.Errorf("expected source %q, got %q", path, rec.Source)
	}

	if off, ok := ckpt.Get(path); !ok || off != int64(len(first)+len(next)) {
		t.Errorf("expected checkpoint at %d, got %d (found=%v)", len(first)+len(next), off, ok)
	}
}

func TestTailResumesFromCheckpoint(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "resume.ttyrec")
	done := ttyrec.Encode([]model.Frame{{Seconds: 1, Payload: []byte("seen")}})
	fresh := ttyrec.Encode([]model.Frame{{Seconds: 2, Payload: []byte("new")}})
	if err := os.WriteFile(path, append(append([]byte{}, done...), fresh...), 0644); err != nil {
		t.Fatal(err)
	}

	ckpt, err := NewCheckpoint(filepath.Join(dir, ".reel-state.json"))
	if err != nil {
		t.Fatal(err)
	}
	ckpt.Set(path, int64(len(done)))

	tail := startTailer(t, path, ckpt, Options{})
	rec := nextRecord(t, tail)
	if string(rec.Frame.Payload) != "new" {
		t.Errorf("expected to resume after checkpoint, got %q", rec.Frame.Payload)
	}
}

func TestTailFromEnd(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "end.ttyrec")
	if err := os.WriteFile(path, ttyrec.Encode([]model.Frame{{Payload: []byte("old")}}), 0644); err != nil {
		t.Fatal(err)
	}

	ckpt, _ := NewCheckpoint(filepath.Join(dir, ".reel-state.json"))
	tail := startTailer(t, path, ckpt, Options{FromEnd: true})

	time.Sleep(300 * time.Millisecond)
	appendBytes(t, path, ttyrec.Encode([]model.Frame{{Seconds: 9, Payload: []byte("live")}}))

	rec := nextRecord(t, tail)
	if string(rec.Frame.Payload) != "live" {
		t.Errorf("expected only appended frame, got %q", rec.Frame.Payload)
	}
}

func TestCheckpointSaveLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "ckpt.json")

	c1, err := NewCheckpoint(path)
	if err != nil {
		t.Fatal(err)
	}
	c1.Set("/srv/sessions/a.ttyrec", 42)
	c1.Set("/srv/sessions/b.ttyrec", 1024)
	if err := c1.Save(); err != nil {
		t.Fatal(err)
	}

	c2, err := NewCheckpoint(path)
	if err != nil {
		t.Fatal(err)
	}

	v1, ok := c2.Get("/srv/sessions/a.ttyrec")
	if !ok || v1 != 42 {
		t.Errorf("expected 42, got %d (found=%v)", v1, ok)
	}

	v2, ok := c2.Get("/srv/sessions/b.ttyrec")
	if !ok || v2 != 1024 {
		t.Errorf("expected 1024, got %d (found=%v)", v2, ok)
	}

	if _, ok := c2.Get("/nonexistent"); ok {
		t.Error("expected missing key to return false")
	}
}

func TestCheckpointCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ckpt.json")
	if err := os.WriteFile(path, []byte("{not json"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := NewCheckpoint(path); err == nil {
		t.Error("expected error for corrupt checkpoint")
	}
}
