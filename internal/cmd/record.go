package cmd

import (
	"fmt"
	"os"

	"github.com/atikulmunna/reel/internal/recorder"
	"github.com/spf13/cobra"
)

var (
	recordOut   string
	recordQuiet bool
)

var recordCmd = &cobra.Command{
	Use:   "record -- <command> [args...]",
	Short: "Record a command's terminal output",
	Long: `Run a command under a pseudo terminal and save everything it prints as
a recording. The recording can be followed while it is written.

Examples:
  reel record -O build.ttyrec -- make all
  reel record -O shell.ttyrec -- bash`,
	Args: cobra.MinimumNArgs(1),
	RunE: runRecord,
}

func init() {
	recordCmd.Flags().StringVarP(&recordOut, "out", "O", "session.ttyrec", "recording to write")
	recordCmd.Flags().BoolVarP(&recordQuiet, "quiet", "q", false, "do not echo the command's output")
	rootCmd.AddCommand(recordCmd)
}

func runRecord(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	ctx, cancel := signalContext()
	defer cancel()

	f, err := os.Create(recordOut)
	if err != nil {
		return err
	}
	defer f.Close()

	opts := recorder.Options{Input: os.Stdin, Logger: a.log}
	if !recordQuiet {
		opts.Echo = cmd.OutOrStdout()
	}
	frames, err := recorder.Record(ctx, f, opts, args[0], args[1:]...)
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.ErrOrStderr(), "recorded %d frame(s) to %s\n", frames, recordOut)
	return nil
}
