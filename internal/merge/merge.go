// Package merge joins several recordings into one continuous timeline.
package merge

import (
	"errors"

	"github.com/atikulmunna/reel/internal/model"
	"github.com/atikulmunna/reel/internal/ttyrec"
)

// ErrNoRecordings is returned when there is nothing to merge.
var ErrNoRecordings = errors.New("merge: no recordings")

const microsPerSecond = 1_000_000

// Frames rebases each recording onto a shared clock that starts at zero.
//
// Every recording keeps its internal spacing of whole seconds, starting at
// the running offset; the next recording starts one second after the last
// frame of the previous one. Microseconds are carried through unchanged.
// Payloads are shared with the input frames.
func Frames(recordings [][]model.Frame) []model.Frame {
	total := 0
	for _, frames := range recordings {
		total += len(frames)
	}
	merged := make([]model.Frame, 0, total)

	var current int64
	for _, frames := range recordings {
		if len(frames) == 0 {
			continue
		}

		base := int64(frames[0].Seconds)
		var last int64
		for _, f := range frames {
			sec := current + (int64(f.Seconds) - base)
			usec := int64(f.Microseconds)

			if usec < 0 {
				sec--
				usec += microsPerSecond
			}
			if usec >= microsPerSecond {
				sec++
				usec -= microsPerSecond
			}

			merged = append(merged, model.Frame{
				Seconds:      uint32(sec),
				Microseconds: uint32(usec),
				Payload:      f.Payload,
			})
			last = sec
		}

		current = last + 1
	}

	return merged
}

// Buffers decodes each buffer, merges the recordings in order and encodes
// the result.
func Buffers(buffers [][]byte) ([]byte, error) {
	if len(buffers) == 0 {
		return nil, ErrNoRecordings
	}

	recordings := make([][]model.Frame, len(buffers))
	for i, buf := range buffers {
		recordings[i] = ttyrec.Decode(buf)
	}
	return ttyrec.Encode(Frames(recordings)), nil
}
