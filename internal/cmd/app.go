package cmd

import (
	"context"
	"fmt"

	"github.com/atikulmunna/reel/internal/cache"
	"github.com/atikulmunna/reel/internal/config"
	"github.com/atikulmunna/reel/internal/decompress"
	"github.com/atikulmunna/reel/internal/loader"
	"github.com/atikulmunna/reel/internal/logging"
	"github.com/atikulmunna/reel/internal/worker"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

// app is the runtime shared by every subcommand: configuration, logger, the
// decompression cache and the two workers.
type app struct {
	cfg        *config.Config
	log        *logrus.Logger
	cache      *cache.Cache
	decompress *worker.Worker
	search     *worker.Worker
	loader     *loader.Loader
}

func newApp() (*app, error) {
	cfg, err := config.Load(viper.GetViper())
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	logger, err := logging.New(cfg.Log)
	if err != nil {
		return nil, err
	}

	c := cache.New(cache.Options{
		MaxEntries: cfg.Cache.MaxEntries,
		MaxBytes:   cfg.Cache.MaxBytes,
		TTL:        cfg.Cache.TTL,
	})
	opts := worker.Options{
		QueueSize:   cfg.Worker.QueueSize,
		Parallelism: cfg.Worker.Parallelism,
		Logger:      logger,
	}
	dw := worker.NewDecompressWorker(c, decompress.Auto{}, opts)
	sw := worker.NewSearchWorker(opts)

	return &app{
		cfg:        cfg,
		log:        logger,
		cache:      c,
		decompress: dw,
		search:     sw,
		loader:     loader.New(worker.NewClient(dw)),
	}, nil
}

// start runs the workers and the cache purger until ctx is cancelled.
func (a *app) start(ctx context.Context) {
	go a.cache.Start(ctx, a.cfg.Cache.PurgeInterval)
	go a.decompress.Start(ctx)
	go a.search.Start(ctx)
}

func (a *app) searchClient() *worker.Client {
	return worker.NewClient(a.search)
}

func (a *app) decompressClient() *worker.Client {
	return worker.NewClient(a.decompress)
}
