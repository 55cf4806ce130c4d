package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cvakhilesh7/queuectl/cmd/cli/format"
	"github.com/cvakhilesh7/queuectl/pkg/jobqueue"
)

var listState string

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List jobs, optionally filtered by state",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		d, err := openDispatcher(ctx)
		if err != nil {
			return err
		}
		defer d.Close()

		var state *jobqueue.State
		if listState != "" {
			st, err := jobqueue.ParseState(listState)
			if err != nil {
				return err
			}
			state = &st
		}

		jobs, err := d.List(ctx, state)
		if err != nil {
			return fmt.Errorf("list: %w", err)
		}
		return format.Jobs(cmd.OutOrStdout(), jobs)
	},
}

func init() {
	listCmd.Flags().StringVar(&listState, "state", "", "filter by state: pending, processing, completed, dead")
}
