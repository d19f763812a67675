package ttyrec

import (
	"bufio"
	"encoding/binary"
	"errors"
	"io"

	"github.com/atikulmunna/reel/internal/model"
)

// Reader decodes frames from a stream one at a time.
type Reader struct {
	r        *bufio.Reader
	header   [HeaderSize]byte
	trailing int
}

// NewReader returns a Reader that decodes frames from r.
func NewReader(r io.Reader) *Reader {
	return &Reader{r: bufio.NewReader(r)}
}

// Read returns the next frame. It returns io.EOF at the end of the stream,
// including when the final record is truncated.
func (r *Reader) Read() (model.Frame, error) {
	if n, err := io.ReadFull(r.r, r.header[:]); err != nil {
		r.trailing = n
		return model.Frame{}, endOfStream(err)
	}

	// The declared length is untrusted, so read through a limit instead of
	// allocating it up front.
	length := int64(binary.LittleEndian.Uint32(r.header[8:12]))
	payload, err := io.ReadAll(io.LimitReader(r.r, length))
	if err != nil {
		return model.Frame{}, err
	}
	if int64(len(payload)) < length {
		r.trailing = HeaderSize + len(payload)
		return model.Frame{}, io.EOF
	}

	return model.Frame{
		Seconds:      binary.LittleEndian.Uint32(r.header[0:4]),
		Microseconds: binary.LittleEndian.Uint32(r.header[4:8]),
		Payload:      payload,
	}, nil
}

// Trailing returns the number of bytes of an incomplete final record read
// before io.EOF.
func (r *Reader) Trailing() int {
	return r.trailing
}

func endOfStream(err error) error {
	if errors.Is(err, io.ErrUnexpectedEOF) {
		return io.EOF
	}
	return err
}

// Writer encodes frames onto a stream.
type Writer struct {
	w   io.Writer
	buf []byte
}

// NewWriter returns a Writer that encodes frames to w.
func NewWriter(w io.Writer) *Writer {
	return &Writer{w: w}
}

// WriteFrame writes f as a single record.
func (w *Writer) WriteFrame(f model.Frame) error {
	w.buf = AppendFrame(w.buf[:0], f)
	_, err := w.w.Write(w.buf)
	return err
}
