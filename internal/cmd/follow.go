package cmd

import (
	"fmt"
	"path/filepath"

	"github.com/atikulmunna/reel/internal/decompress"
	"github.com/atikulmunna/reel/internal/output"
	"github.com/atikulmunna/reel/internal/search"
	"github.com/atikulmunna/reel/internal/tailer"
	"github.com/atikulmunna/reel/internal/watcher"
	"github.com/spf13/cobra"
)

var (
	followRegex   bool
	followFromEnd bool
	followState   string
)

var followCmd = &cobra.Command{
	Use:   "follow <term> [files...]",
	Short: "Search recordings as they are being written",
	Long: `Follow one or more recordings that are still growing and print every
new frame whose visible text matches the term. A frame is searched once it
is complete on disk. Read offsets are saved so a later run resumes where
this one stopped; frame numbers and times then count from the resume point.

Examples:
  reel follow error /var/log/sessions/current.ttyrec
  reel follow --regex 'panic|fatal' "sessions/*.ttyrec" --from-end`,
	Args: cobra.MinimumNArgs(2),
	RunE: runFollow,
}

func init() {
	followCmd.Flags().BoolVarP(&followRegex, "regex", "e", false, "treat the term as a regular expression")
	followCmd.Flags().BoolVar(&followFromEnd, "from-end", false, "skip content already present when a file is first seen")
	followCmd.Flags().StringVar(&followState, "state", filepath.Join(".", ".reel-state.json"), "checkpoint file for read offsets")
	rootCmd.AddCommand(followCmd)
}

func runFollow(cmd *cobra.Command, args []string) error {
	term := args[0]
	if _, err := search.NewMatcher(term, followRegex); err != nil {
		return err
	}
	renderer, err := output.New(outputFmt)
	if err != nil {
		return err
	}
	paths, err := watcher.Expand(args[1:])
	if err != nil {
		return err
	}
	for _, p := range paths {
		if decompress.IsCompressed(p) {
			return fmt.Errorf("%s: compressed recordings cannot be followed", p)
		}
	}

	a, err := newApp()
	if err != nil {
		return err
	}
	ctx, cancel := signalContext()
	defer cancel()

	w, err := watcher.New(paths, a.log)
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}

	ckpt, err := tailer.NewCheckpoint(followState)
	if err != nil {
		return fmt.Errorf("failed to load checkpoint: %w", err)
	}
	t := tailer.New(w, ckpt, tailer.Options{FromEnd: followFromEnd, Logger: a.log})

	fmt.Fprintf(cmd.ErrOrStderr(), "reel following %d file(s)\n", len(w.Paths()))

	go w.Start(ctx)
	go t.Start(ctx)

	searchers := make(map[string]*search.Searcher)
	for rec := range t.Records() {
		s, ok := searchers[rec.Source]
		if !ok {
			s, err = search.NewSearcher(term, followRegex)
			if err != nil {
				return err
			}
			searchers[rec.Source] = s
		}
		hit, ok := s.Feed(rec.Frame)
		if !ok {
			continue
		}
		if err := renderer.RenderHit(rec.Source, hit); err != nil {
			a.log.WithError(err).Warn("Render error")
		}
	}
	return nil
}
