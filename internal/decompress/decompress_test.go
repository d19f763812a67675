package decompress

import (
	"bytes"
	"compress/gzip"
	"encoding/base64"
	"errors"
	"testing"
)

// "hello ttyrec\n" compressed with bzip2 -9.
const helloBz2 = "QlpoOTFBWSZTWYWedCsAAALRgAAQQAAKRJQgIAAxADAaAyaUcR20HzHi7kinChIQs86FYA=="

func TestBzip2(t *testing.T) {
	src, err := base64.StdEncoding.DecodeString(helloBz2)
	if err != nil {
		t.Fatal(err)
	}
	out, err := Bzip2{}.Decompress(src)
	if err != nil {
		t.Fatalf("decompress failed: %v", err)
	}
	if string(out) != "hello ttyrec\n" {
		t.Errorf("unexpected output %q", out)
	}
}

func TestBzip2Corrupt(t *testing.T) {
	_, err := Bzip2{}.Decompress([]byte("BZh9 definitely not bzip2"))
	if !errors.Is(err, ErrCorrupt) {
		t.Errorf("expected ErrCorrupt, got %v", err)
	}
}

func TestGzipRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	zw.Write([]byte("frames"))
	zw.Close()

	out, err := Auto{}.Decompress(buf.Bytes())
	if err != nil {
		t.Fatal(err)
	}
	if string(out) != "frames" {
		t.Errorf("unexpected output %q", out)
	}
}

func TestAutoUnknownFormat(t *testing.T) {
	_, err := Auto{}.Decompress([]byte("plain text"))
	if !errors.Is(err, ErrCorrupt) {
		t.Errorf("expected ErrCorrupt, got %v", err)
	}
}

func TestIsCompressed(t *testing.T) {
	cases := map[string]bool{
		"game.ttyrec.bz2": true,
		"GAME.TTYREC.BZ2": true,
		"game.ttyrec.gz":  true,
		"game.ttyrec":     false,
		"bz2":             false,
	}
	for name, want := range cases {
		if got := IsCompressed(name); got != want {
			t.Errorf("IsCompressed(%q) = %v, want %v", name, got, want)
		}
	}
	if got := TrimExt("game.ttyrec.bz2"); got != "game.ttyrec" {
		t.Errorf("expected game.ttyrec, got %q", got)
	}
}
