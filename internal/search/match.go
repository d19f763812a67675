package search

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"
)

// ErrInvalidPattern is returned when a regex search term does not compile.
var ErrInvalidPattern = errors.New("invalid search pattern")

// Matcher reports whether cleaned frame text matches a search term.
type Matcher interface {
	Match(text string) bool
}

// ---------------------------------------------------------------------------
// Literal matcher
// ---------------------------------------------------------------------------

// LiteralMatcher performs a case-insensitive substring check.
type LiteralMatcher struct {
	term  string
	runes int
}

func NewLiteralMatcher(term string) *LiteralMatcher {
	return &LiteralMatcher{
		term:  strings.ToLower(term),
		runes: utf8.RuneCountInString(term),
	}
}

func (m *LiteralMatcher) Match(text string) bool {
	if utf8.RuneCountInString(text) < m.runes {
		return false
	}
	return strings.Contains(strings.ToLower(text), m.term)
}

// ---------------------------------------------------------------------------
// Regex matcher
// ---------------------------------------------------------------------------

// RegexMatcher tests text against a case-insensitive regular expression.
type RegexMatcher struct {
	re *regexp.Regexp
}

func NewRegexMatcher(pattern string) (*RegexMatcher, error) {
	re, err := regexp.Compile("(?i)" + pattern)
	if err != nil {
		return nil, fmt.Errorf("%w %q: %v", ErrInvalidPattern, pattern, err)
	}
	return &RegexMatcher{re: re}, nil
}

func (m *RegexMatcher) Match(text string) bool {
	return m.re.MatchString(text)
}

// NewMatcher returns a regex matcher when regex is set and a literal
// matcher otherwise.
func NewMatcher(term string, regex bool) (Matcher, error) {
	if regex {
		return NewRegexMatcher(term)
	}
	return NewLiteralMatcher(term), nil
}
