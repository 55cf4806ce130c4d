package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cvakhilesh7/queuectl/cmd/cli/format"
	"github.com/cvakhilesh7/queuectl/pkg/jobqueue"
)

var dlqListCmd = &cobra.Command{
	Use:   "dlq:list",
	Short: "List jobs in the dead letter queue",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		d, err := openDispatcher(ctx)
		if err != nil {
			return err
		}
		defer d.Close()

		dead := jobqueue.StateDead
		jobs, err := d.List(ctx, &dead)
		if err != nil {
			return fmt.Errorf("dlq:list: %w", err)
		}
		return format.Jobs(cmd.OutOrStdout(), jobs)
	},
}

var dlqRetryCmd = &cobra.Command{
	Use:   "dlq:retry <id>",
	Short: "Resurrect a dead job back to pending",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		d, err := openDispatcher(ctx)
		if err != nil {
			return err
		}
		defer d.Close()

		if err := d.DLQRetry(ctx, args[0]); err != nil {
			return fmt.Errorf("dlq:retry: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), "ok")
		return nil
	},
}
