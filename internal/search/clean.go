package search

import (
	"regexp"
	"strings"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
)

var (
	// OSC, DCS and APC strings: ESC ] ... BEL|ST, ESC P ... ST, ESC _ ... ST.
	stringSeqRegex = regexp.MustCompile(`\x1b\][^\x07\x1b]*(?:\x07|\x1b\\)|\x1b[P_^][^\x1b]*\x1b\\`)

	// CSI sequences (parameter bytes, intermediate bytes, final byte), with
	// either the 7-bit or 8-bit introducer, then two-byte escapes such as
	// ESC 7 and charset selection.
	ansiRegex = regexp.MustCompile(`(?:\x1b\[|\x{9b})[\x30-\x3f]*[\x20-\x2f]*[\x40-\x7e]|\x1b[\x20-\x2f]*[\x30-\x7e]`)

	// Cursor-positioning residue such as "[12d" left behind by split writes.
	noiseRegex = regexp.MustCompile(`\[\d+d`)

	// Floor and wall glyphs of roguelike maps.
	glyphReplacer = strings.NewReplacer(".", "", "#", "")

	controlChars = runes.Remove(runes.Predicate(func(r rune) bool {
		return r < 0x20 || r == 0x7f
	}))
)

// Decode converts a payload to text, replacing invalid UTF-8 sequences with
// U+FFFD.
func Decode(payload []byte) string {
	s, _, err := transform.Bytes(unicode.UTF8.NewDecoder(), payload)
	if err != nil {
		return strings.ToValidUTF8(string(payload), "�")
	}
	return string(s)
}

// Clean strips terminal escape sequences, control characters, map glyphs and
// cursor residue from text, then trims surrounding whitespace.
func Clean(text string) string {
	text = stringSeqRegex.ReplaceAllString(text, "")
	text = ansiRegex.ReplaceAllString(text, "")

	if stripped, _, err := transform.String(controlChars, text); err == nil {
		text = stripped
	}

	text = glyphReplacer.Replace(text)
	text = noiseRegex.ReplaceAllString(text, "")
	return strings.TrimSpace(text)
}
