package merge

import (
	"bytes"
	"errors"
	"testing"

	"github.com/atikulmunna/reel/internal/model"
	"github.com/atikulmunna/reel/internal/ttyrec"
)

type stamp struct {
	sec, usec uint32
}

func recording(text string, stamps ...stamp) []byte {
	frames := make([]model.Frame, len(stamps))
	for i, s := range stamps {
		frames[i] = model.Frame{Seconds: s.sec, Microseconds: s.usec, Payload: []byte(text)}
	}
	return ttyrec.Encode(frames)
}

func TestMergeSingleFrameFiles(t *testing.T) {
	a := recording("record 1", stamp{1, 0})
	b := recording("record 2", stamp{2, 0})
	c := recording("record 3", stamp{3, 0})

	out, err := Buffers([][]byte{a, b, c})
	if err != nil {
		t.Fatal(err)
	}
	if len(out) != len(a)+len(b)+len(c) {
		t.Errorf("expected %d bytes, got %d", len(a)+len(b)+len(c), len(out))
	}

	frames := ttyrec.Decode(out)
	want := []string{"record 1", "record 2", "record 3"}
	if len(frames) != 3 {
		t.Fatalf("expected 3 frames, got %d", len(frames))
	}
	for i, f := range frames {
		if f.Seconds != uint32(i) || f.Microseconds != 0 {
			t.Errorf("frame %d: expected %d.000000, got %d.%06d", i, i, f.Seconds, f.Microseconds)
		}
		if string(f.Payload) != want[i] {
			t.Errorf("frame %d: expected %q, got %q", i, want[i], f.Payload)
		}
	}
}

func TestMergeMultiFrameFiles(t *testing.T) {
	a := recording("a", stamp{1, 0}, stamp{1, 1000}, stamp{1, 2000})
	b := recording("b", stamp{100, 0}, stamp{100, 1000}, stamp{101, 2000})
	c := recording("c", stamp{101, 3000}, stamp{101, 4000}, stamp{102, 1000})

	out, err := Buffers([][]byte{a, b, c})
	if err != nil {
		t.Fatal(err)
	}

	want := []stamp{
		{0, 0}, {0, 1000}, {0, 2000},
		{1, 0}, {1, 1000}, {2, 2000},
		{3, 3000}, {3, 4000}, {4, 1000},
	}
	frames := ttyrec.Decode(out)
	if len(frames) != len(want) {
		t.Fatalf("expected %d frames, got %d", len(want), len(frames))
	}
	for i, w := range want {
		if frames[i].Seconds != w.sec || frames[i].Microseconds != w.usec {
			t.Errorf("frame %d: expected %d.%06d, got %d.%06d", i, w.sec, w.usec, frames[i].Seconds, frames[i].Microseconds)
		}
	}
}

func TestMergeLargeAbsoluteTimestamps(t *testing.T) {
	a := recording("one", stamp{1742472000, 0})
	b := recording("two", stamp{1742475600, 0}, stamp{1742475660, 200})

	out, err := Buffers([][]byte{a, b})
	if err != nil {
		t.Fatal(err)
	}
	frames := ttyrec.Decode(out)
	if frames[0].Seconds != 0 || frames[1].Seconds != 1 || frames[2].Seconds != 61 {
		t.Errorf("unexpected seconds %d, %d, %d", frames[0].Seconds, frames[1].Seconds, frames[2].Seconds)
	}
	if frames[2].Microseconds != 200 {
		t.Errorf("expected microseconds 200, got %d", frames[2].Microseconds)
	}
}

func TestMergeSingleRecording(t *testing.T) {
	a := recording("x", stamp{50, 10}, stamp{52, 20}, stamp{60, 30})

	out, err := Buffers([][]byte{a})
	if err != nil {
		t.Fatal(err)
	}
	frames := ttyrec.Decode(out)
	want := []uint32{0, 2, 10}
	for i, w := range want {
		if frames[i].Seconds != w {
			t.Errorf("frame %d: expected %d, got %d", i, w, frames[i].Seconds)
		}
	}
}

func TestMergeSkipsEmptyRecording(t *testing.T) {
	a := recording("a", stamp{5, 0}, stamp{7, 0})
	b := recording("b", stamp{9, 0})

	out, err := Buffers([][]byte{a, nil, b})
	if err != nil {
		t.Fatal(err)
	}
	frames := ttyrec.Decode(out)
	if len(frames) != 3 {
		t.Fatalf("expected 3 frames, got %d", len(frames))
	}
	// The empty recording does not advance the clock.
	if frames[2].Seconds != 3 {
		t.Errorf("expected 3, got %d", frames[2].Seconds)
	}
}

func TestMergeNormalizesMicroseconds(t *testing.T) {
	frames := Frames([][]model.Frame{{
		{Seconds: 10, Microseconds: 0},
		{Seconds: 10, Microseconds: 1_500_000},
	}})
	if frames[1].Seconds != 1 || frames[1].Microseconds != 500_000 {
		t.Errorf("expected 1.500000, got %d.%06d", frames[1].Seconds, frames[1].Microseconds)
	}
}

func TestMergeSharesPayload(t *testing.T) {
	payload := []byte("shared")
	frames := Frames([][]model.Frame{{{Seconds: 3, Payload: payload}}})
	if &frames[0].Payload[0] != &payload[0] {
		t.Error("expected payload to be shared, not copied")
	}
}

func TestMergeNoRecordings(t *testing.T) {
	if _, err := Buffers(nil); !errors.Is(err, ErrNoRecordings) {
		t.Errorf("expected ErrNoRecordings, got %v", err)
	}
}

func TestMergeManyFrames(t *testing.T) {
	n := 200000
	frames := make([]model.Frame, n)
	for i := range frames {
		frames[i] = model.Frame{Seconds: uint32(1000 + i/100), Payload: []byte{'x'}}
	}
	merged := Frames([][]model.Frame{frames, frames})
	if len(merged) != 2*n {
		t.Fatalf("expected %d frames, got %d", 2*n, len(merged))
	}
	lastOfFirst := merged[n-1].Seconds
	if merged[n].Seconds != lastOfFirst+1 {
		t.Errorf("expected one-second gap, got %d -> %d", lastOfFirst, merged[n].Seconds)
	}
	if !bytes.Equal(merged[2*n-1].Payload, []byte{'x'}) {
		t.Error("unexpected payload")
	}
}
