// Package server exposes the worker protocol over HTTP and websocket.
package server

import (
	"context"
	"errors"
	"net/http"
	"net/http/pprof"
	"strconv"
	"time"

	"github.com/atikulmunna/reel/internal/aggregator"
	"github.com/atikulmunna/reel/internal/loader"
	"github.com/atikulmunna/reel/internal/worker"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// Options configures a Server.
type Options struct {
	Port           int
	RateLimit      float64 // requests per second per client, zero disables
	RateBurst      int
	SimplifyWindow time.Duration
	Logger         *logrus.Logger
}

// Server holds the Gin engine and the workers it fronts.
type Server struct {
	engine     *gin.Engine
	decompress *worker.Client
	search     *worker.Client
	loader     *loader.Loader
	aggregator *aggregator.Aggregator
	limiter    *clientLimiter
	opts       Options
	log        *logrus.Entry
}

// New creates a server. decompress must wrap a decompression worker and
// search a search worker.
func New(decompress, search *worker.Client, agg *aggregator.Aggregator, opts Options) *Server {
	if opts.Logger == nil {
		opts.Logger = logrus.StandardLogger()
	}

	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery())

	// Disable automatic redirects that cause 301 issues.
	engine.RedirectTrailingSlash = false
	engine.RedirectFixedPath = false

	s := &Server{
		engine:     engine,
		decompress: decompress,
		search:     search,
		loader:     loader.New(decompress),
		aggregator: agg,
		opts:       opts,
		log:        opts.Logger.WithField("component", "server"),
	}
	if opts.RateLimit > 0 {
		s.limiter = newClientLimiter(opts.RateLimit, opts.RateBurst)
	}

	s.setupRoutes()
	return s
}

// Handler returns the HTTP handler, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.engine
}

func (s *Server) setupRoutes() {
	s.engine.Use(s.requestLogger())
	if s.limiter != nil {
		s.engine.Use(s.rateLimit())
	}

	s.engine.GET("/healthz", func(c *gin.Context) {
		stats := s.aggregator.Snapshot()
		c.JSON(http.StatusOK, gin.H{
			"status":         "ok",
			"uptime":         stats.Uptime,
			"eps":            stats.EPS,
			"dropped_events": stats.DroppedEvents,
		})
	})

	api := s.engine.Group("/api")
	api.GET("/stats", func(c *gin.Context) {
		c.JSON(http.StatusOK, s.aggregator.Snapshot())
	})
	api.GET("/cache", s.handleCacheStats)
	api.DELETE("/cache", s.handleCacheClear)
	api.POST("/merge", s.handleMerge)
	api.POST("/search", s.handleSearch)
	api.POST("/info", s.handleInfo)

	s.engine.GET("/ws", s.handleWebSocket)

	// pprof profiling endpoints.
	s.engine.GET("/debug/pprof/", gin.WrapF(pprof.Index))
	s.engine.GET("/debug/pprof/cmdline", gin.WrapF(pprof.Cmdline))
	s.engine.GET("/debug/pprof/profile", gin.WrapF(pprof.Profile))
	s.engine.GET("/debug/pprof/symbol", gin.WrapF(pprof.Symbol))
	s.engine.GET("/debug/pprof/trace", gin.WrapF(pprof.Trace))
	s.engine.GET("/debug/pprof/allocs", gin.WrapH(pprof.Handler("allocs")))
	s.engine.GET("/debug/pprof/heap", gin.WrapH(pprof.Handler("heap")))
	s.engine.GET("/debug/pprof/goroutine", gin.WrapH(pprof.Handler("goroutine")))
}

// Start serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	srv := &http.Server{
		Addr:              ":" + strconv.Itoa(s.opts.Port),
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.WithField("port", s.opts.Port).Info("Starting HTTP server")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			s.log.WithError(err).Warn("Server shutdown error")
			return err
		}
		return nil
	}
}
