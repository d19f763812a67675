// Package loader turns user-supplied recording files into one frame stream,
// decompressing through the worker and merging in the order given.
package loader

import (
	"context"
	"fmt"
	"os"

	"github.com/atikulmunna/reel/internal/decompress"
	"github.com/atikulmunna/reel/internal/merge"
	"github.com/atikulmunna/reel/internal/model"
	"github.com/atikulmunna/reel/internal/worker"
)

type Loader struct {
	client *worker.Client
}

func New(client *worker.Client) *Loader {
	return &Loader{client: client}
}

// Raw returns the frame bytes of each file, in order. Files whose name ends
// in a compressed extension go through the worker in a single batch; other
// files are used as they are.
func (l *Loader) Raw(ctx context.Context, files []model.NamedFile) ([][]byte, error) {
	out := make([][]byte, len(files))

	var compressed []model.NamedFile
	var slots []int
	for i, f := range files {
		if decompress.IsCompressed(f.Name) {
			compressed = append(compressed, f)
			slots = append(slots, i)
			continue
		}
		out[i] = f.Data
	}

	if len(compressed) > 0 {
		data, err := l.client.DecompressBatch(ctx, compressed)
		if err != nil {
			return nil, err
		}
		for j, i := range slots {
			out[i] = data[j]
		}
	}
	return out, nil
}

// Merged loads files and merges them into one continuous recording.
func (l *Loader) Merged(ctx context.Context, files []model.NamedFile) ([]byte, error) {
	raw, err := l.Raw(ctx, files)
	if err != nil {
		return nil, err
	}
	return merge.Buffers(raw)
}

// ReadFiles reads paths from disk, naming each file by its path.
func ReadFiles(paths []string) ([]model.NamedFile, error) {
	files := make([]model.NamedFile, 0, len(paths))
	for _, p := range paths {
		data, err := os.ReadFile(p)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", p, err)
		}
		files = append(files, model.NamedFile{Name: p, Data: data})
	}
	return files, nil
}
