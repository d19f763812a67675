// Package ttyrec reads and writes the ttyrec frame stream format.
//
// A stream is a sequence of records with no container header:
//
//	seconds:u32 microseconds:u32 length:u32 payload:[length]byte
//
// All integers are little-endian. A trailing record that is cut short is
// dropped without error, since captures are often interrupted mid-write.
package ttyrec

import (
	"encoding/binary"
	"errors"
	"io"

	"github.com/atikulmunna/reel/internal/model"
)

// HeaderSize is the fixed size of a record header in bytes.
const HeaderSize = 12

// Scanner walks the frames of an in-memory buffer without copying payloads.
type Scanner struct {
	buf    []byte
	offset int
	frame  model.Frame
}

// NewScanner returns a Scanner over buf.
func NewScanner(buf []byte) *Scanner {
	return &Scanner{buf: buf}
}

// Next advances to the next complete frame. It returns false once fewer
// bytes remain than the next record needs.
func (s *Scanner) Next() bool {
	rest := s.buf[s.offset:]
	if len(rest) < HeaderSize {
		return false
	}

	length := binary.LittleEndian.Uint32(rest[8:12])
	if uint64(len(rest)-HeaderSize) < uint64(length) {
		return false
	}

	end := HeaderSize + int(length)
	s.frame = model.Frame{
		Seconds:      binary.LittleEndian.Uint32(rest[0:4]),
		Microseconds: binary.LittleEndian.Uint32(rest[4:8]),
		Payload:      rest[HeaderSize:end:end],
	}
	s.offset += end
	return true
}

// Frame returns the frame read by the last successful call to Next.
func (s *Scanner) Frame() model.Frame {
	return s.frame
}

// Offset returns the number of bytes consumed by complete frames so far.
func (s *Scanner) Offset() int {
	return s.offset
}

// Remaining returns the bytes after the last complete frame.
func (s *Scanner) Remaining() []byte {
	return s.buf[s.offset:]
}

// Decode parses every complete frame in buf, in file order.
func Decode(buf []byte) []model.Frame {
	var frames []model.Frame
	s := NewScanner(buf)
	for s.Next() {
		frames = append(frames, s.Frame())
	}
	return frames
}

// EncodedSize returns the number of bytes Encode will produce for frames.
func EncodedSize(frames []model.Frame) int {
	n := 0
	for _, f := range frames {
		n += HeaderSize + len(f.Payload)
	}
	return n
}

// Encode serializes frames back-to-back in the order given.
func Encode(frames []model.Frame) []byte {
	out := make([]byte, 0, EncodedSize(frames))
	for _, f := range frames {
		out = AppendFrame(out, f)
	}
	return out
}

// AppendFrame appends the encoding of f to dst.
func AppendFrame(dst []byte, f model.Frame) []byte {
	dst = binary.LittleEndian.AppendUint32(dst, f.Seconds)
	dst = binary.LittleEndian.AppendUint32(dst, f.Microseconds)
	dst = binary.LittleEndian.AppendUint32(dst, uint32(len(f.Payload)))
	return append(dst, f.Payload...)
}

// Inspect summarizes the frames in buf.
func Inspect(buf []byte) model.RecordingInfo {
	var info model.RecordingInfo
	s := NewScanner(buf)
	for s.Next() {
		addFrame(&info, s.Frame())
	}
	info.TrailingBytes = len(s.Remaining())
	return info
}

// InspectReader summarizes the frames read from r without holding them in
// memory.
func InspectReader(r io.Reader) (model.RecordingInfo, error) {
	var info model.RecordingInfo
	rd := NewReader(r)
	for {
		f, err := rd.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return info, err
		}
		addFrame(&info, f)
	}
	info.TrailingBytes = rd.Trailing()
	return info, nil
}

func addFrame(info *model.RecordingInfo, f model.Frame) {
	if info.Frames == 0 {
		info.First = f.Timestamp()
	}
	info.Last = f.Timestamp()
	info.Frames++
	info.PayloadBytes += int64(len(f.Payload))
	info.Duration = info.Last.Duration() - info.First.Duration()
}
