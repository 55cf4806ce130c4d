package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var showCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show a job's full record, including its most recent trace",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		d, err := openDispatcher(ctx)
		if err != nil {
			return err
		}
		defer d.Close()

		job, err := d.Show(ctx, args[0])
		if err != nil {
			return fmt.Errorf("show: %w", err)
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "id:          %s\n", job.ID)
		fmt.Fprintf(out, "state:       %s\n", job.State)
		fmt.Fprintf(out, "command:     %s\n", job.Command)
		fmt.Fprintf(out, "attempts:    %d/%d\n", job.Attempts, job.MaxRetries)
		fmt.Fprintf(out, "priority:    %d\n", job.Priority)
		fmt.Fprintf(out, "timeout_sec: %d\n", job.TimeoutSec)
		fmt.Fprintf(out, "created_at:  %s\n", time.Unix(job.CreatedAt, 0).UTC().Format(time.RFC3339))
		fmt.Fprintf(out, "updated_at:  %s\n", time.Unix(job.UpdatedAt, 0).UTC().Format(time.RFC3339))
		if job.State == "pending" {
			fmt.Fprintf(out, "run_after:   %s\n", time.Unix(job.RunAfter, 0).UTC().Format(time.RFC3339))
		}
		if job.LastError != "" {
			fmt.Fprintf(out, "last_error:  %s\n", job.LastError)
		}
		if job.TraceCreatedAt > 0 {
			fmt.Fprintf(out, "exit_code:   %v\n", exitCodeDisplay(job.ExitCode))
			fmt.Fprintf(out, "runtime_sec: %d\n", job.RuntimeSec)
			fmt.Fprintf(out, "stdout:\n%s\n", job.Stdout)
			fmt.Fprintf(out, "stderr:\n%s\n", job.Stderr)
		}
		return nil
	},
}

func exitCodeDisplay(code *int) string {
	if code == nil {
		return "-"
	}
	return fmt.Sprintf("%d", *code)
}
