// Package tailer follows recordings that are still being written and emits
// each frame once it is complete on disk.
package tailer

import (
	"context"
	"io"
	"os"
	"sync"
	"time"

	"github.com/atikulmunna/reel/internal/model"
	"github.com/atikulmunna/reel/internal/ttyrec"
	"github.com/atikulmunna/reel/internal/watcher"
	"github.com/fsnotify/fsnotify"
	"github.com/sirupsen/logrus"
)

// Record is one complete frame read from a followed file. Offset is the
// file position just past the frame.
type Record struct {
	Source string
	Offset int64
	Frame  model.Frame
}

// Options configures a Tailer.
type Options struct {
	// FromEnd skips content present when a file is first opened, unless a
	// checkpoint says otherwise.
	FromEnd bool
	Logger  *logrus.Logger
}

// Tailer reads frames appended to watched files.
type Tailer struct {
	mu      sync.Mutex
	files   map[string]*trackedFile
	out     chan Record
	ckpt    *Checkpoint
	events  <-chan watcher.Event
	watch   *watcher.Watcher
	fromEnd bool
	log     *logrus.Entry
}

type trackedFile struct {
	path    string
	file    *os.File
	offset  int64  // end of the last complete frame
	pending []byte // bytes of an incomplete trailing frame
}

// New creates a Tailer that reads events from the given Watcher.
func New(w *watcher.Watcher, ckpt *Checkpoint, opts Options) *Tailer {
	if opts.Logger == nil {
		opts.Logger = logrus.StandardLogger()
	}
	return &Tailer{
		files:   make(map[string]*trackedFile),
		out:     make(chan Record, 512),
		ckpt:    ckpt,
		events:  w.Events,
		watch:   w,
		fromEnd: opts.FromEnd,
		log:     opts.Logger.WithField("component", "tailer"),
	}
}

// Records returns the channel where complete frames are sent.
func (t *Tailer) Records() <-chan Record {
	return t.out
}

// Start begins processing watcher events. Blocks until context is cancelled.
func (t *Tailer) Start(ctx context.Context) {
	defer close(t.out)

	for _, p := range t.watch.Paths() {
		t.openFile(p)
		t.readFrames(ctx, p)
	}

	saveTicker := time.NewTicker(5 * time.Second)
	defer saveTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			t.saveCheckpoint()
			t.closeAll()
			return

		case ev, ok := <-t.events:
			if !ok {
				t.saveCheckpoint()
				t.closeAll()
				return
			}
			t.handleEvent(ctx, ev)

		case <-saveTicker.C:
			t.saveCheckpoint()
		}
	}
}

func (t *Tailer) handleEvent(ctx context.Context, ev watcher.Event) {
	switch {
	case ev.Op&fsnotify.Write != 0:
		t.readFrames(ctx, ev.Path)

	case ev.Op&fsnotify.Create != 0:
		t.openFile(ev.Path)
		t.readFrames(ctx, ev.Path)

	case ev.Op&fsnotify.Remove != 0, ev.Op&fsnotify.Rename != 0:
		t.closeFile(ev.Path)
		go t.reconnect(ev.Path)
	}
}

// openFile opens a file for tailing, resuming from the checkpointed offset.
func (t *Tailer) openFile(path string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if _, exists := t.files[path]; exists {
		return
	}

	f, err := os.Open(path)
	if err != nil {
		t.log.WithError(err).WithField("path", path).Warn("Cannot open recording")
		return
	}

	var offset int64
	if saved, ok := t.ckpt.Get(path); ok {
		offset = saved
	} else if t.fromEnd {
		offset, _ = f.Seek(0, io.SeekEnd)
	}
	if _, err := f.Seek(offset, io.SeekStart); err != nil {
		t.log.WithError(err).WithField("path", path).Warn("Cannot seek recording")
		f.Close()
		return
	}

	t.files[path] = &trackedFile{
		path:   path,
		file:   f,
		offset: offset,
	}
}

// readFrames reads from the last position to EOF and emits every frame that
// is now complete. A partial trailing frame is kept for the next read.
func (t *Tailer) readFrames(ctx context.Context, path string) {
	t.mu.Lock()
	tf, ok := t.files[path]
	t.mu.Unlock()
	if !ok {
		return
	}
	log := t.log.WithField("path", path)

	if info, err := tf.file.Stat(); err == nil && info.Size() < tf.offset+int64(len(tf.pending)) {
		log.WithField("size", info.Size()).Info("Recording truncated, starting over")
		tf.offset = 0
		tf.pending = nil
		if _, err := tf.file.Seek(0, io.SeekStart); err != nil {
			log.WithError(err).Warn("Cannot rewind recording")
			return
		}
	}

	chunk, err := io.ReadAll(tf.file)
	if err != nil {
		log.WithError(err).Warn("Read error")
	}
	if len(chunk) == 0 {
		return
	}

	buf := append(tf.pending, chunk...)
	sc := ttyrec.NewScanner(buf)
	for sc.Next() {
		rec := Record{
			Source: path,
			Offset: tf.offset + int64(sc.Offset()),
			Frame:  sc.Frame(),
		}
		select {
		case t.out <- rec:
		case <-ctx.Done():
			return
		}
	}

	tf.offset += int64(sc.Offset())
	tf.pending = append([]byte(nil), sc.Remaining()...)
	t.ckpt.Set(path, tf.offset)
}

// closeFile releases a tracked file.
func (t *Tailer) closeFile(path string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if tf, ok := t.files[path]; ok {
		tf.file.Close()
		delete(t.files, path)
	}
}

// reconnect polls for a file to reappear after it was replaced (up to 5 retries).
func (t *Tailer) reconnect(path string) {
	for i := 0; i < 5; i++ {
		time.Sleep(1 * time.Second)
		if _, err := os.Stat(path); err == nil {
			t.log.WithField("path", path).Info("Reconnected to replaced recording")
			_ = t.watch.ReWatch(path)
			t.openFile(path)
			return
		}
	}
	t.log.WithField("path", path).Warn("Gave up reconnecting after 5 retries")
}

func (t *Tailer) saveCheckpoint() {
	if err := t.ckpt.Save(); err != nil {
		t.log.WithError(err).Warn("Checkpoint save failed")
	}
}

func (t *Tailer) closeAll() {
	t.mu.Lock()
	defer t.mu.Unlock()
	for path, tf := range t.files {
		tf.file.Close()
		delete(t.files, path)
	}
}
