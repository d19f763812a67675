// Package output renders search hits and recording summaries for the
// terminal or for piping.
package output

import (
	"encoding/json"
	"fmt"
	"io"
	"math"
	"os"
	"time"

	"github.com/atikulmunna/reel/internal/model"
	"github.com/charmbracelet/lipgloss"
)

// Renderer writes command results to an output stream.
type Renderer interface {
	RenderHit(source string, hit model.SearchHit) error
	RenderInfo(info model.RecordingInfo) error
}

// New returns the renderer for format ("text" or "json") writing to stdout.
func New(format string) (Renderer, error) {
	switch format {
	case "", "text":
		return NewTextRenderer(), nil
	case "json":
		return NewJSONRenderer(), nil
	default:
		return nil, fmt.Errorf("unknown output format %q", format)
	}
}

// ---------------------------------------------------------------------------
// Text Renderer (colorized terminal output)
// ---------------------------------------------------------------------------

var (
	styleTime    = lipgloss.NewStyle().Foreground(lipgloss.Color("220"))             // yellow
	styleFrame   = lipgloss.NewStyle().Foreground(lipgloss.Color("245")).Faint(true) // gray
	styleSource  = lipgloss.NewStyle().Foreground(lipgloss.Color("39")).Faint(true)  // cyan
	styleLabel   = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	styleWarning = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true) // red bold
)

// TextRenderer prints one colored line per hit.
type TextRenderer struct {
	w io.Writer
}

// NewTextRenderer returns a Renderer that writes colorized text to stdout.
func NewTextRenderer() *TextRenderer {
	return &TextRenderer{w: os.Stdout}
}

func (r *TextRenderer) RenderHit(source string, hit model.SearchHit) error {
	ts := styleTime.Render(formatOffset(hit.RelativeTime))
	frame := styleFrame.Render(fmt.Sprintf("#%-6d", hit.FrameIndex))

	line := fmt.Sprintf("%s %s %s", ts, frame, hit.Snippet)
	if source != "" {
		line = fmt.Sprintf("%s %s", styleSource.Render(source), line)
	}
	_, err := fmt.Fprintln(r.w, line)
	return err
}

func (r *TextRenderer) RenderInfo(info model.RecordingInfo) error {
	rows := [][2]string{
		{"frames", fmt.Sprint(info.Frames)},
		{"first", formatTimestamp(info.First)},
		{"last", formatTimestamp(info.Last)},
		{"duration", info.Duration.String()},
		{"payload", fmt.Sprintf("%d bytes", info.PayloadBytes)},
	}
	if info.Source != "" {
		if _, err := fmt.Fprintln(r.w, styleSource.Render(info.Source)); err != nil {
			return err
		}
	}
	for _, row := range rows {
		if _, err := fmt.Fprintf(r.w, "  %s %s\n", styleLabel.Render(fmt.Sprintf("%-9s", row[0])), row[1]); err != nil {
			return err
		}
	}
	if info.TrailingBytes > 0 {
		msg := fmt.Sprintf("  %d trailing bytes of an incomplete frame ignored", info.TrailingBytes)
		if _, err := fmt.Fprintln(r.w, styleWarning.Render(msg)); err != nil {
			return err
		}
	}
	return nil
}

// formatOffset renders seconds from the start as [h:]mm:ss.mmm.
func formatOffset(seconds float64) string {
	d := time.Duration(math.Round(seconds*1000)) * time.Millisecond
	sign := ""
	if d < 0 {
		sign = "-"
		d = -d
	}
	h := d / time.Hour
	m := (d % time.Hour) / time.Minute
	s := (d % time.Minute) / time.Second
	ms := (d % time.Second) / time.Millisecond
	if h > 0 {
		return fmt.Sprintf("%s%d:%02d:%02d.%03d", sign, h, m, s, ms)
	}
	return fmt.Sprintf("%s%02d:%02d.%03d", sign, m, s, ms)
}

func formatTimestamp(ts model.Timestamp) string {
	t := time.Unix(int64(ts.Seconds), int64(ts.Microseconds)*1000).UTC()
	return t.Format("2006-01-02 15:04:05.000000 UTC")
}

// ---------------------------------------------------------------------------
// JSON Renderer (structured output for piping)
// ---------------------------------------------------------------------------

// JSONRenderer prints each result as a single JSON object per line.
type JSONRenderer struct {
	enc *json.Encoder
}

// NewJSONRenderer returns a Renderer that writes JSON lines to stdout.
func NewJSONRenderer() *JSONRenderer {
	return &JSONRenderer{enc: json.NewEncoder(os.Stdout)}
}

type jsonHit struct {
	Source string `json:"source,omitempty"`
	model.SearchHit
}

func (r *JSONRenderer) RenderHit(source string, hit model.SearchHit) error {
	return r.enc.Encode(jsonHit{Source: source, SearchHit: hit})
}

func (r *JSONRenderer) RenderInfo(info model.RecordingInfo) error {
	return r.enc.Encode(info)
}
