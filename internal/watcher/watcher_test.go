package watcher

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/sirupsen/logrus"
)

func touch(t *testing.T, path string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, nil, 0644); err != nil {
		t.Fatal(err)
	}
}

func TestExpand(t *testing.T) {
	dir := t.TempDir()
	touch(t, filepath.Join(dir, "a.ttyrec"))
	touch(t, filepath.Join(dir, "nested", "b.ttyrec.bz2"))
	touch(t, filepath.Join(dir, "nested", "deeper", "c.ttyrec"))
	touch(t, filepath.Join(dir, "notes.txt"))

	got, err := Expand([]string{
		filepath.Join(dir, "**", "*.ttyrec"),
		filepath.Join(dir, "a.ttyrec"),
		filepath.Join(dir, "nested", "*.bz2"),
	})
	if err != nil {
		t.Fatal(err)
	}

	want := map[string]bool{
		filepath.Join(dir, "a.ttyrec"):                    true,
		filepath.Join(dir, "nested", "deeper", "c.ttyrec"): true,
		filepath.Join(dir, "nested", "b.ttyrec.bz2"):       true,
	}
	if len(got) != len(want) {
		t.Fatalf("expected %d paths, got %v", len(want), got)
	}
	for _, p := range got {
		if !want[p] {
			t.Errorf("unexpected path %s", p)
		}
	}
}

func TestExpandNoMatch(t *testing.T) {
	if _, err := Expand([]string{filepath.Join(t.TempDir(), "*.ttyrec")}); err == nil {
		t.Error("expected error for pattern without matches")
	}
}

func TestWatcherReportsWrites(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "live.ttyrec")
	touch(t, path)

	logger := logrus.New()
	logger.SetOutput(io.Discard)
	w, err := New([]string{dir}, logger)
	if err != nil {
		t.Fatal(err)
	}
	if len(w.Paths()) != 1 {
		t.Fatalf("expected the directory to be watched, got %v", w.Paths())
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Start(ctx)

	time.Sleep(100 * time.Millisecond)
	if err := os.WriteFile(path, []byte("frame"), 0644); err != nil {
		t.Fatal(err)
	}

	timeout := time.After(3 * time.Second)
	for {
		select {
		case ev := <-w.Events:
			if filepath.Base(ev.Path) == "live.ttyrec" && ev.Op&fsnotify.Write != 0 {
				return
			}
		case <-timeout:
			t.Fatal("timed out waiting for write event")
		}
	}
}
