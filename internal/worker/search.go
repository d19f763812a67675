package worker

import (
	"context"
	"fmt"

	"github.com/atikulmunna/reel/internal/search"
	"github.com/sirupsen/logrus"
)

// SearchHandler serves Search requests.
type SearchHandler struct {
	log *logrus.Entry
}

func NewSearchHandler(logger *logrus.Logger) *SearchHandler {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &SearchHandler{log: logger.WithField("component", "search_handler")}
}

// NewSearchWorker creates a worker that only serves Search requests.
func NewSearchWorker(opts Options) *Worker {
	if opts.Name == "" {
		opts.Name = "search_worker"
	}
	return New(NewSearchHandler(opts.Logger), opts)
}

func (h *SearchHandler) Handle(_ context.Context, req Request, emit func(Event)) error {
	r, ok := req.(Search)
	if !ok {
		return fmt.Errorf("%w: %s on search worker", ErrUnsupported, requestName(req))
	}

	emit(Status{ID: r.ID, State: StateSearching})
	hits, err := search.Search(r.Data, r.Text, r.Regex)
	if err != nil {
		return err
	}

	h.log.WithFields(logrus.Fields{
		"request_id": r.ID,
		"hits":       len(hits),
		"regex":      r.Regex,
	}).Debug("Search finished")

	emit(SearchResult{ID: r.ID, Hits: hits})
	emit(Status{ID: r.ID, State: StateCompleted})
	return nil
}
