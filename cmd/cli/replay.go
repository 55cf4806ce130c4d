package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var replayConfirm bool

var replayCmd = &cobra.Command{
	Use:   "replay <id>",
	Short: "Print (or, with --confirm, re-run) a job's replayable command",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		d, err := openDispatcher(ctx)
		if err != nil {
			return err
		}
		defer d.Close()

		command, err := d.Replay(ctx, args[0], replayConfirm)
		if err != nil {
			return fmt.Errorf("replay: %w", err)
		}
		if !replayConfirm {
			fmt.Fprintln(cmd.OutOrStdout(), command)
		}
		return nil
	},
}

func init() {
	replayCmd.Flags().BoolVar(&replayConfirm, "confirm", false, "actually re-run the command instead of printing it")
}
