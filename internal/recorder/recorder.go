// Package recorder captures terminal output as a frame stream.
package recorder

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"syscall"
	"time"

	"github.com/atikulmunna/reel/internal/model"
	"github.com/atikulmunna/reel/internal/ttyrec"
	"github.com/creack/pty"
	"github.com/sirupsen/logrus"
)

// chunkSize is the largest payload written as a single frame.
const chunkSize = 32 * 1024

// Capture reads r until EOF and writes every chunk as a frame stamped with
// now(). It returns the number of frames written.
func Capture(r io.Reader, w *ttyrec.Writer, now func() time.Time) (int, error) {
	if now == nil {
		now = time.Now
	}

	buf := make([]byte, chunkSize)
	frames := 0
	for {
		n, err := r.Read(buf)
		if n > 0 {
			ts := now()
			f := model.Frame{
				Seconds:      uint32(ts.Unix()),
				Microseconds: uint32(ts.Nanosecond() / 1000),
				Payload:      append([]byte(nil), buf[:n]...),
			}
			if werr := w.WriteFrame(f); werr != nil {
				return frames, werr
			}
			frames++
		}
		if err != nil {
			if isEOF(err) {
				return frames, nil
			}
			return frames, err
		}
	}
}

// A pty master reports EIO once the child side has closed.
func isEOF(err error) bool {
	return errors.Is(err, io.EOF) || errors.Is(err, syscall.EIO) || errors.Is(err, os.ErrClosed)
}

// Options configures Record.
type Options struct {
	Rows, Cols uint16
	Input      io.Reader // forwarded to the command, may be nil
	Echo       io.Writer // receives the command's output as it is recorded, may be nil
	Logger     *logrus.Logger
}

// Record runs name with args under a pseudo terminal and writes its output
// to out as frames. It returns once the command exits or ctx is cancelled.
func Record(ctx context.Context, out io.Writer, opts Options, name string, args ...string) (int, error) {
	if opts.Logger == nil {
		opts.Logger = logrus.StandardLogger()
	}
	if opts.Rows == 0 {
		opts.Rows = 24
	}
	if opts.Cols == 0 {
		opts.Cols = 80
	}
	log := opts.Logger.WithFields(logrus.Fields{"component": "recorder", "command": name})

	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Env = append(os.Environ(), "TERM=xterm-256color")

	ptmx, err := pty.StartWithSize(cmd, &pty.Winsize{Rows: opts.Rows, Cols: opts.Cols})
	if err != nil {
		return 0, fmt.Errorf("start %s: %w", name, err)
	}
	defer func() {
		_ = ptmx.Close()
	}()
	log.WithField("pid", cmd.Process.Pid).Info("Recording started")

	if opts.Input != nil {
		go func() {
			_, _ = io.Copy(ptmx, opts.Input)
		}()
	}

	var src io.Reader = ptmx
	if opts.Echo != nil {
		src = io.TeeReader(ptmx, opts.Echo)
	}

	frames, captureErr := Capture(src, ttyrec.NewWriter(out), time.Now)
	waitErr := cmd.Wait()

	log.WithField("frames", frames).Info("Recording finished")
	if captureErr != nil {
		return frames, captureErr
	}
	var exitErr *exec.ExitError
	if waitErr != nil && !errors.As(waitErr, &exitErr) {
		return frames, waitErr
	}
	return frames, nil
}
