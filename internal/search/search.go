// Package search finds frames whose visible text matches a term.
package search

import (
	"time"

	"github.com/atikulmunna/reel/internal/model"
	"github.com/atikulmunna/reel/internal/ttyrec"
)

// SnippetLength is the maximum number of characters kept in a hit snippet.
const SnippetLength = 100

// Searcher matches frames one at a time, tracking the frame index and the
// time origin across calls. The origin is the first frame fed.
type Searcher struct {
	matcher Matcher
	index   uint64
	origin  model.Timestamp
	started bool
}

// NewSearcher compiles term and returns a Searcher. It fails with
// ErrInvalidPattern when regex is set and term does not compile.
func NewSearcher(term string, regex bool) (*Searcher, error) {
	m, err := NewMatcher(term, regex)
	if err != nil {
		return nil, err
	}
	return &Searcher{matcher: m}, nil
}

// Feed tests the next frame and returns a hit when its cleaned text matches.
func (s *Searcher) Feed(f model.Frame) (model.SearchHit, bool) {
	index := s.index
	s.index++

	if !s.started {
		s.origin = f.Timestamp()
		s.started = true
	}

	text := Clean(Decode(f.Payload))
	if text == "" {
		return model.SearchHit{}, false
	}
	if !s.matcher.Match(text) {
		return model.SearchHit{}, false
	}

	return model.SearchHit{
		FrameIndex:   index,
		Timestamp:    f.Timestamp(),
		RelativeTime: s.relative(f),
		Snippet:      snippet(text),
	}, true
}

// relative returns seconds since the origin. Microseconds are not borrowed,
// so a negative microsecond difference reduces the fraction directly.
func (s *Searcher) relative(f model.Frame) float64 {
	sec := int64(f.Seconds) - int64(s.origin.Seconds)
	usec := int64(f.Microseconds) - int64(s.origin.Microseconds)
	return float64(sec) + float64(usec)/1e6
}

func snippet(text string) string {
	n := 0
	for i := range text {
		if n == SnippetLength {
			return text[:i]
		}
		n++
	}
	return text
}

// Search walks the frames of buf and returns every hit in frame order.
func Search(buf []byte, term string, regex bool) ([]model.SearchHit, error) {
	s, err := NewSearcher(term, regex)
	if err != nil {
		return nil, err
	}

	hits := []model.SearchHit{}
	sc := ttyrec.NewScanner(buf)
	for sc.Next() {
		if hit, ok := s.Feed(sc.Frame()); ok {
			hits = append(hits, hit)
		}
	}
	return hits, nil
}

// Simplify collapses runs of hits that start within window of the first hit
// of the run, keeping that first hit.
func Simplify(hits []model.SearchHit, window time.Duration) []model.SearchHit {
	if len(hits) == 0 {
		return []model.SearchHit{}
	}

	limit := window.Seconds()
	out := make([]model.SearchHit, 0, len(hits))
	current := hits[0]
	for _, h := range hits[1:] {
		if h.RelativeTime-current.RelativeTime < limit {
			continue
		}
		out = append(out, current)
		current = h
	}
	return append(out, current)
}
