package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cvakhilesh7/queuectl/cmd/cli/format"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show job counts by state",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		d, err := openDispatcher(ctx)
		if err != nil {
			return err
		}
		defer d.Close()

		counts, err := d.CountByState(ctx)
		if err != nil {
			return fmt.Errorf("status: %w", err)
		}
		if err := format.Counts(cmd.OutOrStdout(), counts); err != nil {
			return err
		}
		if d.StopFlagSet(ctx) {
			fmt.Fprintln(cmd.OutOrStdout(), "stop_workers is set: worker:start will clear it on launch")
		}
		return nil
	},
}
