package cli

import (
	"fmt"
	"math"

	"github.com/spf13/cobra"

	"github.com/cvakhilesh7/queuectl/pkg/jobqueue"
)

var (
	testCount    int
	testFailRate float64
)

// testCmd implements the deterministic bulk-enqueue verb used to exercise
// the engine end to end (spec.md §6 "Test-mode determinism"): every n-th
// job (n derived from --fail-rate) fails, the rest succeed, all enqueued
// with a fixed timeout/retries/priority.
var testCmd = &cobra.Command{
	Use:   "test",
	Short: "Enqueue a deterministic mix of succeeding and failing jobs",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		d, err := openDispatcher(ctx)
		if err != nil {
			return err
		}
		defer d.Close()

		k := int(math.Max(1, math.Round(1/math.Max(0.01, testFailRate))))

		for i := 0; i < testCount; i++ {
			command := "exit 0"
			if i%k == 0 {
				command = "exit 1"
			}
			id, err := d.Enqueue(ctx, jobqueue.EnqueueParams{
				Command:    command,
				MaxRetries: 3,
				TimeoutSec: 5,
				Priority:   0,
			})
			if err != nil {
				return fmt.Errorf("test: enqueue job %d: %w", i, err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), id)
		}
		return nil
	},
}

func init() {
	testCmd.Flags().IntVar(&testCount, "count", 5, "number of jobs to enqueue")
	testCmd.Flags().Float64Var(&testFailRate, "fail-rate", 0.5, "fraction of jobs that should fail")
}
