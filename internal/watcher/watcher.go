// Package watcher expands recording globs and reports changes to the
// matched files.
package watcher

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/fsnotify/fsnotify"
	"github.com/sirupsen/logrus"
)

// Event represents a file change detected by the watcher.
type Event struct {
	Path string
	Op   fsnotify.Op
}

// Watcher monitors files and directories for changes using OS-level notifications.
type Watcher struct {
	fsw    *fsnotify.Watcher
	Events chan Event
	paths  []string
	log    *logrus.Entry
}

// New creates a Watcher for the given glob patterns. Patterns are expanded
// once; a pattern naming a directory watches the directory itself.
func New(patterns []string, logger *logrus.Logger) (*Watcher, error) {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	w := &Watcher{
		fsw:    fsw,
		Events: make(chan Event, 256),
		log:    logger.WithField("component", "watcher"),
	}

	for _, pattern := range patterns {
		matches, err := expand(pattern, false)
		if err != nil {
			w.log.WithError(err).WithField("pattern", pattern).Warn("Failed to expand pattern")
			continue
		}
		for _, m := range matches {
			if err := w.Add(m); err != nil {
				w.log.WithError(err).WithField("path", m).Warn("Cannot watch path")
			}
		}
	}

	return w, nil
}

// Add watches one more path.
func (w *Watcher) Add(path string) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}
	if err := w.fsw.Add(abs); err != nil {
		return err
	}
	w.paths = append(w.paths, abs)
	return nil
}

// Start begins listening for file events. It blocks until the context is cancelled.
func (w *Watcher) Start(ctx context.Context) {
	defer w.fsw.Close()
	defer close(w.Events)

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			switch {
			case ev.Op&fsnotify.Write != 0,
				ev.Op&fsnotify.Create != 0,
				ev.Op&fsnotify.Remove != 0,
				ev.Op&fsnotify.Rename != 0:
				select {
				case w.Events <- Event{Path: ev.Name, Op: ev.Op}:
				case <-ctx.Done():
					return
				}
			}
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.log.WithError(err).Warn("Watcher error")
		}
	}
}

// Paths returns the list of paths currently being watched.
func (w *Watcher) Paths() []string {
	return w.paths
}

// ReWatch adds a path back to the watcher after it was replaced on disk.
func (w *Watcher) ReWatch(path string) error {
	return w.fsw.Add(path)
}

// Expand resolves glob patterns to the files they match, in pattern order
// with duplicates removed. Recursive patterns like logs/**/*.ttyrec are
// supported. A pattern that matches nothing is an error.
func Expand(patterns []string) ([]string, error) {
	seen := make(map[string]bool)
	var out []string
	for _, pattern := range patterns {
		matches, err := expand(pattern, true)
		if err != nil {
			return nil, fmt.Errorf("expand %q: %w", pattern, err)
		}
		if len(matches) == 0 {
			return nil, fmt.Errorf("no files match %q", pattern)
		}
		for _, m := range matches {
			if !seen[m] {
				seen[m] = true
				out = append(out, m)
			}
		}
	}
	return out, nil
}

func expand(pattern string, filesOnly bool) ([]string, error) {
	opts := []doublestar.GlobOption{doublestar.WithFailOnIOErrors()}
	if filesOnly {
		opts = append(opts, doublestar.WithFilesOnly())
	}
	return doublestar.FilepathGlob(pattern, opts...)
}
