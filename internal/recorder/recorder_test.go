package recorder

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/atikulmunna/reel/internal/ttyrec"
	"github.com/sirupsen/logrus"
)

// chunkedReader returns one chunk per Read call.
type chunkedReader struct {
	chunks []string
	err    error
}

func (r *chunkedReader) Read(p []byte) (int, error) {
	if len(r.chunks) == 0 {
		if r.err != nil {
			return 0, r.err
		}
		return 0, io.EOF
	}
	n := copy(p, r.chunks[0])
	r.chunks = r.chunks[1:]
	return n, nil
}

func TestCapture(t *testing.T) {
	clock := time.Date(2026, 4, 1, 9, 30, 0, 250_000_000, time.UTC)
	now := func() time.Time {
		ts := clock
		clock = clock.Add(1500 * time.Millisecond)
		return ts
	}

	var out bytes.Buffer
	n, err := Capture(&chunkedReader{chunks: []string{"$ ", "echo hi\r\n", "hi\r\n"}}, ttyrec.NewWriter(&out), now)
	if err != nil {
		t.Fatal(err)
	}
	if n != 3 {
		t.Errorf("expected 3 frames, got %d", n)
	}

	frames := ttyrec.Decode(out.Bytes())
	if len(frames) != 3 {
		t.Fatalf("expected 3 decoded frames, got %d", len(frames))
	}
	if string(frames[1].Payload) != "echo hi\r\n" {
		t.Errorf("unexpected payload %q", frames[1].Payload)
	}
	if frames[0].Microseconds != 250000 {
		t.Errorf("expected 250000us, got %d", frames[0].Microseconds)
	}
	if frames[1].Seconds != frames[0].Seconds+1 || frames[1].Microseconds != 750000 {
		t.Errorf("unexpected second timestamp: %d.%06d", frames[1].Seconds, frames[1].Microseconds)
	}
}

func TestCaptureReadError(t *testing.T) {
	boom := errors.New("boom")
	var out bytes.Buffer
	n, err := Capture(&chunkedReader{chunks: []string{"partial"}, err: boom}, ttyrec.NewWriter(&out), nil)
	if !errors.Is(err, boom) {
		t.Errorf("expected boom, got %v", err)
	}
	if n != 1 {
		t.Errorf("expected the frame before the error to be kept, got %d", n)
	}
}

func TestRecordCommand(t *testing.T) {
	logger := logrus.New()
	logger.SetOutput(io.Discard)

	var out bytes.Buffer
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_, err := Record(ctx, &out, Options{Logger: logger}, "sh", "-c", "printf reel-recording")
	if err != nil {
		t.Skipf("pty unavailable: %v", err)
	}

	var text strings.Builder
	for _, f := range ttyrec.Decode(out.Bytes()) {
		text.Write(f.Payload)
	}
	if !strings.Contains(text.String(), "reel-recording") {
		t.Errorf("expected command output in recording, got %q", text.String())
	}
}
