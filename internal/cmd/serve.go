package cmd

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/atikulmunna/reel/internal/aggregator"
	"github.com/atikulmunna/reel/internal/server"
	"github.com/atikulmunna/reel/internal/watcher"
	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var serveWatch []string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the decompression and search workers over HTTP",
	Long: `Start an HTTP server exposing the workers.

  GET    /ws          worker protocol over websocket (JSON messages)
  POST   /api/merge   multipart "files", merged in upload order
  POST   /api/search  multipart "files" plus q, regex, raw
  POST   /api/info    multipart "files"
  GET    /api/cache   cache snapshot; DELETE clears it
  GET    /api/stats   event counters
  GET    /healthz

With --watch, cached entries are dropped when a file with the same path,
or an upload with the same base name, changes in a watched directory.

Examples:
  reel serve --port 9000
  reel serve --watch /srv/recordings`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().Int("port", 8080, "HTTP port")
	serveCmd.Flags().StringSliceVar(&serveWatch, "watch", nil, "directories whose changes invalidate cached entries")
	_ = viper.BindPFlag("server.port", serveCmd.Flags().Lookup("port"))
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	ctx, cancel := signalContext()
	defer cancel()

	// Subscribe before the workers start so no event is missed.
	agg := aggregator.New(
		func() int64 { return a.decompress.Dropped() + a.search.Dropped() },
		a.decompress.Subscribe(),
		a.search.Subscribe(),
	)
	a.start(ctx)
	go agg.Start(ctx)

	if len(serveWatch) > 0 {
		w, err := watcher.New(serveWatch, a.log)
		if err != nil {
			return fmt.Errorf("failed to create watcher: %w", err)
		}
		go w.Start(ctx)
		go a.invalidateOnChange(ctx, w)
	}

	srv := server.New(a.decompressClient(), a.searchClient(), agg, server.Options{
		Port:           a.cfg.Server.Port,
		RateLimit:      a.cfg.Server.RateLimit,
		RateBurst:      a.cfg.Server.RateBurst,
		SimplifyWindow: a.cfg.Search.SimplifyWindow,
		Logger:         a.log,
	})
	return srv.Start(ctx)
}

// invalidateOnChange drops the cache entries of any file that is written,
// replaced or removed.
func (a *app) invalidateOnChange(ctx context.Context, w *watcher.Watcher) {
	log := a.log.WithField("component", "invalidator")
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-w.Events:
			if !ok {
				return
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			for _, key := range staleKeys(a.cache.Keys(), ev.Path) {
				if a.cache.Remove(key) {
					log.WithField("name", key).Info("Dropped cached entry for changed file")
				}
			}
		}
	}
}

// staleKeys returns the keys naming path. Files read from disk are keyed by
// their path and uploads by their base name, so both forms match.
func staleKeys(keys []string, path string) []string {
	abs := absPath(path)
	base := filepath.Base(path)

	var stale []string
	for _, key := range keys {
		if key == base || absPath(key) == abs {
			stale = append(stale, key)
		}
	}
	return stale
}

func absPath(p string) string {
	if abs, err := filepath.Abs(p); err == nil {
		return abs
	}
	return filepath.Clean(p)
}
