package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cvakhilesh7/queuectl/pkg/jobqueue"
)

var (
	enqueueRetries int
	enqueueRunAt   int64
	enqueueTimeout int
	enqueuePrio    int
)

var enqueueCmd = &cobra.Command{
	Use:   "enqueue <cmd>",
	Short: "Enqueue a shell command as a job",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		d, err := openDispatcher(ctx)
		if err != nil {
			return err
		}
		defer d.Close()

		id, err := d.Enqueue(ctx, jobqueue.EnqueueParams{
			Command:    args[0],
			MaxRetries: enqueueRetries,
			DelaySec:   enqueueRunAt,
			TimeoutSec: enqueueTimeout,
			Priority:   enqueuePrio,
		})
		if err != nil {
			return fmt.Errorf("enqueue: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), id)
		return nil
	},
}

func init() {
	enqueueCmd.Flags().IntVar(&enqueueRetries, "retries", 3, "max retries before the job is dead-lettered")
	enqueueCmd.Flags().Int64Var(&enqueueRunAt, "run-at", 0, "delay in seconds before the job becomes eligible")
	enqueueCmd.Flags().IntVar(&enqueueTimeout, "timeout", 0, "subprocess timeout in seconds (0 = no timeout)")
	enqueueCmd.Flags().IntVar(&enqueuePrio, "priority", 0, "higher runs first")
}
