// Package decompress turns compressed recording files into raw frame
// streams.
package decompress

import (
	"bytes"
	"compress/bzip2"
	"compress/gzip"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
)

// ErrCorrupt wraps every failure to decompress input.
var ErrCorrupt = errors.New("corrupt compressed input")

// Decompressor converts compressed bytes to raw bytes.
type Decompressor interface {
	Decompress(src []byte) ([]byte, error)
}

// Func adapts a function to the Decompressor interface.
type Func func(src []byte) ([]byte, error)

func (f Func) Decompress(src []byte) ([]byte, error) { return f(src) }

// ---------------------------------------------------------------------------
// Formats
// ---------------------------------------------------------------------------

// Bzip2 decompresses bzip2 streams.
type Bzip2 struct{}

func (Bzip2) Decompress(src []byte) ([]byte, error) {
	return readAll("bzip2", bzip2.NewReader(bytes.NewReader(src)))
}

// Gzip decompresses gzip streams.
type Gzip struct{}

func (Gzip) Decompress(src []byte) ([]byte, error) {
	zr, err := gzip.NewReader(bytes.NewReader(src))
	if err != nil {
		return nil, fmt.Errorf("%w: gzip: %v", ErrCorrupt, err)
	}
	defer zr.Close()
	return readAll("gzip", zr)
}

func readAll(format string, r io.Reader) ([]byte, error) {
	out, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrCorrupt, format, err)
	}
	return out, nil
}

// Auto picks a format from the leading magic bytes.
type Auto struct{}

func (Auto) Decompress(src []byte) ([]byte, error) {
	switch {
	case bytes.HasPrefix(src, []byte("BZh")):
		return Bzip2{}.Decompress(src)
	case bytes.HasPrefix(src, []byte{0x1f, 0x8b}):
		return Gzip{}.Decompress(src)
	default:
		return nil, fmt.Errorf("%w: unrecognized format", ErrCorrupt)
	}
}

// ---------------------------------------------------------------------------
// Name helpers
// ---------------------------------------------------------------------------

// IsCompressed reports whether a file name carries a compressed extension.
func IsCompressed(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".bz2", ".gz":
		return true
	default:
		return false
	}
}

// TrimExt strips a compressed extension from name.
func TrimExt(name string) string {
	if IsCompressed(name) {
		return strings.TrimSuffix(name, filepath.Ext(name))
	}
	return name
}
