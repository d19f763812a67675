package cmd

import (
	"github.com/atikulmunna/reel/internal/loader"
	"github.com/atikulmunna/reel/internal/model"
	"github.com/atikulmunna/reel/internal/output"
	"github.com/atikulmunna/reel/internal/search"
	"github.com/atikulmunna/reel/internal/watcher"
	"github.com/spf13/cobra"
)

var (
	searchRegex bool
	searchRaw   bool
	searchEach  bool
)

var searchCmd = &cobra.Command{
	Use:   "search <term> [files...]",
	Short: "Find frames whose visible text matches a term",
	Long: `Search the visible text of recordings. Escape sequences and control
characters are stripped before matching, and matching is case-insensitive.
Multiple files are merged first, as when they are played back together,
unless --each is given.

Hits that start within search.simplify_window of the previous kept hit are
collapsed; --raw shows every hit.

Examples:
  reel search sacrifice session.ttyrec.bz2
  reel search --regex 'error|fail(ed)?' build-*.ttyrec --each -o json`,
	Args: cobra.MinimumNArgs(2),
	RunE: runSearch,
}

func init() {
	searchCmd.Flags().BoolVarP(&searchRegex, "regex", "e", false, "treat the term as a regular expression")
	searchCmd.Flags().BoolVar(&searchRaw, "raw", false, "do not collapse nearby hits")
	searchCmd.Flags().BoolVar(&searchEach, "each", false, "search each file on its own instead of merging")
	rootCmd.AddCommand(searchCmd)
}

func runSearch(cmd *cobra.Command, args []string) error {
	term := args[0]
	if _, err := search.NewMatcher(term, searchRegex); err != nil {
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

	type target struct {
		source string
		data   []byte
	}
	var targets []target
	if searchEach {
		raw, err := a.loader.Raw(ctx, files)
		if err != nil {
			return err
		}
		for i, data := range raw {
			targets = append(targets, target{source: files[i].Name, data: data})
		}
	} else {
		merged, err := a.loader.Merged(ctx, files)
		if err != nil {
			return err
		}
		targets = append(targets, target{data: merged})
	}

	client := a.searchClient()
	total := 0
	for _, tg := range targets {
		hits, err := client.Search(ctx, tg.data, term, searchRegex)
		if err != nil {
			return err
		}
		if !searchRaw {
			hits = search.Simplify(hits, a.cfg.Search.SimplifyWindow)
		}
		if err := renderHits(renderer, tg.source, hits); err != nil {
			return err
		}
		total += len(hits)
	}

	a.log.WithField("hits", total).Debug("Search finished")
	return nil
}

func renderHits(r output.Renderer, source string, hits []model.SearchHit) error {
	for _, h := range hits {
		if err := r.RenderHit(source, h); err != nil {
			return err
		}
	}
	return nil
}
