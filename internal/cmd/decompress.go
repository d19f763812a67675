package cmd

import (
	"fmt"
	"os"

	"github.com/atikulmunna/reel/internal/decompress"
	"github.com/spf13/cobra"
)

var decompressOut string

var decompressCmd = &cobra.Command{
	Use:   "decompress <file>",
	Short: "Write the raw recording inside a .bz2 or .gz file",
	Args:  cobra.ExactArgs(1),
	RunE:  runDecompress,
}

func init() {
	decompressCmd.Flags().StringVarP(&decompressOut, "out", "O", "", "destination (default: input name without its extension)")
	rootCmd.AddCommand(decompressCmd)
}

func runDecompress(cmd *cobra.Command, args []string) error {
	src := args[0]
	if !decompress.IsCompressed(src) {
		return fmt.Errorf("%s: not a .bz2 or .gz file", src)
	}
	dst := decompressOut
	if dst == "" {
		dst = decompress.TrimExt(src)
	}

	a, err := newApp()
	if err != nil {
		return err
	}
	ctx, cancel := signalContext()
	defer cancel()
	a.start(ctx)

	data, err := os.ReadFile(src)
	if err != nil {
		return err
	}
	raw, err := a.decompressClient().Decompress(ctx, src, data)
	if err != nil {
		return err
	}
	if err := os.WriteFile(dst, raw, 0644); err != nil {
		return err
	}

	fmt.Fprintf(cmd.ErrOrStderr(), "%s -> %s (%d bytes)\n", src, dst, len(raw))
	return nil
}
