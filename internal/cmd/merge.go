package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/atikulmunna/reel/internal/loader"
	"github.com/atikulmunna/reel/internal/watcher"
	"github.com/spf13/cobra"
)

var mergeOut string

var mergeCmd = &cobra.Command{
	Use:   "merge [files...]",
	Short: "Merge recordings into one continuous timeline",
	Long: `Merge recordings in the order given. Each recording keeps its own
spacing and starts one second after the previous one ends; the merged
timeline starts at zero. Glob patterns are expanded.

Examples:
  reel merge -O all.ttyrec day1.ttyrec day2.ttyrec.bz2
  reel merge "sessions/**/*.ttyrec.bz2" > all.ttyrec`,
	Args: cobra.MinimumNArgs(1),
	RunE: runMerge,
}

func init() {
	mergeCmd.Flags().StringVarP(&mergeOut, "out", "O", "", "write the merged recording to this file instead of stdout")
	rootCmd.AddCommand(mergeCmd)
}

func runMerge(cmd *cobra.Command, args []string) error {
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

	files, err := loader.ReadFiles(paths)
	if err != nil {
		return err
	}
	merged, err := a.loader.Merged(ctx, files)
	if err != nil {
		return err
	}

	var w io.Writer = cmd.OutOrStdout()
	if mergeOut != "" {
		f, err := os.Create(mergeOut)
		if err != nil {
			return err
		}
		defer f.Close()
		w = f
	}
	if _, err := w.Write(merged); err != nil {
		return fmt.Errorf("write merged recording: %w", err)
	}

	a.log.WithField("files", len(paths)).WithField("bytes", len(merged)).Info("Merged recordings")
	return nil
}
