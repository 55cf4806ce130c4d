package cli

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var workerCount int

var workerStartCmd = &cobra.Command{
	Use:   "worker:start",
	Short: "Start worker loops in the foreground",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		d, err := openDispatcher(ctx)
		if err != nil {
			return err
		}
		defer d.Close()

		if n, err := d.RecoverySweep(ctx); err != nil {
			return fmt.Errorf("recovery sweep: %w", err)
		} else if n > 0 {
			log.Infof("recovery sweep reclaimed %d stale job(s)", n)
		}

		// SIGINT/SIGTERM begin graceful shutdown without touching the
		// store: workers finish their current job, then exit (spec.md §5,
		// §6 "Signals").
		sigCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		go func() {
			<-sigCtx.Done()
			log.Infof("signal received, stopping after in-flight jobs finish")
			d.RequestShutdown()
		}()

		return d.StartWorkers(sigCtx, workerCount)
	},
}

var workerStopCmd = &cobra.Command{
	Use:   "worker:stop",
	Short: "Set stop_workers in the store; live workers exit after their current job",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		d, err := openDispatcher(ctx)
		if err != nil {
			return err
		}
		defer d.Close()
		return d.StopWorkers(ctx)
	},
}

func init() {
	workerStartCmd.Flags().IntVar(&workerCount, "count", 1, "number of concurrent worker loops")
}
