package cmd

import (
	"fmt"
	"os"

	"github.com/atikulmunna/reel/internal/decompress"
	"github.com/atikulmunna/reel/internal/loader"
	"github.com/atikulmunna/reel/internal/model"
	"github.com/atikulmunna/reel/internal/output"
	"github.com/atikulmunna/reel/internal/ttyrec"
	"github.com/atikulmunna/reel/internal/watcher"
	"github.com/spf13/cobra"
)

var infoCmd = &cobra.Command{
	Use:   "info [files...]",
	Short: "Summarize recordings",
	Long: `Print the frame count, first and last timestamps, duration and payload
size of each recording.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runInfo,
}

func init() {
	rootCmd.AddCommand(infoCmd)
}

func runInfo(cmd *cobra.Command, args []string) error {
	renderer, err := output.New(outputFmt)
	if err != nil {
		return err
	}
	paths, err := watcher.Expand(args)
	if err != nil {
		return err
	}

	a, err := newApp()
	if err != nil {
		return err
	}
	ctx, cancel := signalContext()
	defer cancel()
	a.start(ctx)

	// Compressed files go through the worker in one batch; the rest are
	// streamed from disk.
	var compressed []string
	for _, p := range paths {
		if decompress.IsCompressed(p) {
			compressed = append(compressed, p)
		}
	}
	files, err := loader.ReadFiles(compressed)
	if err != nil {
		return err
	}
	raw, err := a.loader.Raw(ctx, files)
	if err != nil {
		return err
	}

	next := 0
	for _, p := range paths {
		var info model.RecordingInfo
		if decompress.IsCompressed(p) {
			info = ttyrec.Inspect(raw[next])
			next++
		} else if info, err = inspectFile(p); err != nil {
			return err
		}
		info.Source = p
		if err := renderer.RenderInfo(info); err != nil {
			return err
		}
	}
	return nil
}

func inspectFile(path string) (model.RecordingInfo, error) {
	f, err := os.Open(path)
	if err != nil {
		return model.RecordingInfo{}, err
	}
	defer f.Close()

	info, err := ttyrec.InspectReader(f)
	if err != nil {
		return info, fmt.Errorf("read %s: %w", path, err)
	}
	return info, nil
}
