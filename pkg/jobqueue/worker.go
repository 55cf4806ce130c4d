package jobqueue

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/cvakhilesh7/queuectl/pkg/jobqueue/logger"
)

const (
	idlePollInterval = 1 * time.Second
	interJobPause    = 200 * time.Millisecond
)

// Worker runs the loop in spec.md §4.4: claim one job, execute it,
// apply the resulting state transition, repeat. Workers never hold any
// in-memory lock across the subprocess wait; all coordination across
// workers (and across processes) is delegated to the store's atomic
// PickAndLock.
type Worker struct {
	ID       string
	store    Store
	config   *ConfigRegistry
	executor *Executor
	metrics  *Metrics
	log      logger.StandardLogger
	stopped  func() bool
}

func NewWorker(id string, store Store, config *ConfigRegistry, executor *Executor, metrics *Metrics, log logger.StandardLogger) *Worker {
	if log == nil {
		log = logger.DiscardLogger{}
	}
	if metrics == nil {
		metrics = NewNoopMetrics()
	}
	return &Worker{
		ID: id, store: store, config: config, executor: executor, metrics: metrics, log: log,
		stopped: func() bool { return false },
	}
}

// SetStopFlag wires an in-process shutdown signal into the worker's
// per-iteration check, checked alongside ctx and the store's stop_workers
// flag (spec.md §5, §6 Signals). fn is consulted only between jobs, never
// mid-execution. A nil fn is ignored, leaving the default (never set).
func (w *Worker) SetStopFlag(fn func() bool) {
	if fn != nil {
		w.stopped = fn
	}
}

// Run blocks until ctx is cancelled, the in-process stop flag is set, or
// the store's stop_workers flag is observed set, checked once per loop
// iteration (spec.md §5). A job that has already been claimed always runs
// to completion and is always finalized: SaveTrace and Finalize run under
// a context that cannot be cancelled by shutdown, so a signal arriving
// mid-job never leaves the row stuck in processing.
func (w *Worker) Run(ctx context.Context) {
	w.log.Infow("worker starting", "worker", w.ID)
	defer w.log.Infow("worker stopped", "worker", w.ID)

	for {
		if ctx.Err() != nil {
			return
		}
		if w.stopped() {
			w.log.Infow("worker observed in-process shutdown, exiting after current job", "worker", w.ID)
			return
		}
		if w.config.StopRequested(ctx) {
			w.log.Infow("worker observed stop_workers, exiting after current job", "worker", w.ID)
			return
		}

		job, err := w.store.PickAndLock(ctx)
		if err != nil {
			w.log.Errorw("pick-and-lock failed, worker exiting", "worker", w.ID, "error", err)
			return
		}
		if job == nil {
			if !sleepCtx(ctx, idlePollInterval) {
				return
			}
			continue
		}

		w.metrics.jobPicked(ctx, job.Priority)
		w.log.Infow("claimed job", "worker", w.ID, "job", job.ID, "attempt", job.Attempts+1, "priority", job.Priority)

		maxOutputBytes := w.config.MaxOutputBytes(ctx)
		result := w.executor.Execute(ctx, job, maxOutputBytes)

		// A claimed job is always finalized, even if ctx was cancelled by a
		// shutdown signal while the subprocess was running: these two writes
		// must not be abandoned partway (spec.md §5).
		finalizeCtx := context.WithoutCancel(ctx)

		if err := w.store.SaveTrace(finalizeCtx, job.ID, Trace{
			Stdout:     result.Stdout,
			Stderr:     result.Stderr,
			ExitCode:   result.ExitCode,
			RuntimeSec: result.RuntimeSec,
		}); err != nil {
			w.log.Errorw("failed to save trace, worker exiting", "worker", w.ID, "job", job.ID, "error", err)
			return
		}

		if err := w.applyOutcome(finalizeCtx, job, result); err != nil {
			w.log.Errorw("failed to finalize job, worker exiting", "worker", w.ID, "job", job.ID, "error", err)
			return
		}

		if !sleepCtx(ctx, interJobPause) {
			return
		}
	}
}

// applyOutcome is the core state transition of spec.md §4.4. ctx is
// expected to be a non-cancellable derivative of the worker's loop ctx;
// see Run.
func (w *Worker) applyOutcome(ctx context.Context, job *Job, result ExecResult) error {
	if result.Success {
		w.log.Infow("job completed", "job", job.ID, "runtime_sec", result.RuntimeSec)
		w.metrics.jobCompleted(ctx)
		return w.store.Finalize(ctx, job.ID, Transition{State: StateCompleted})
	}

	next := job.Attempts + 1
	reason := failureReason(job, result)

	if next >= job.MaxRetries {
		w.log.Warnw("job exhausted retries, moving to dead letter queue",
			"job", job.ID, "attempts", next, "max_retries", job.MaxRetries, "reason", reason)
		w.metrics.jobDead(ctx)
		return w.store.Finalize(ctx, job.ID, Transition{State: StateDead, LastError: &reason})
	}

	base := w.config.BackoffBase(ctx)
	delaySec := int64(math.Floor(math.Pow(base, float64(next))))
	runAfter := time.Now().Unix() + delaySec

	w.log.Infow("job failed, scheduling retry",
		"job", job.ID, "attempts", next, "max_retries", job.MaxRetries, "delay_sec", delaySec, "reason", reason)
	w.metrics.jobRetried(ctx)

	return w.store.Finalize(ctx, job.ID, Transition{
		State:     StatePending,
		Attempts:  &next,
		RunAfter:  &runAfter,
		LastError: &reason,
	})
}

// failureReason implements the §4.4 last_error rule: timeout message,
// else non-empty stderr, else "exit N".
func failureReason(job *Job, result ExecResult) string {
	if result.KilledByTimeout {
		return fmt.Sprintf("Timeout after %ds", job.TimeoutSec)
	}
	if strings.TrimSpace(result.Stderr) != "" {
		return result.Stderr
	}
	if result.ExitCode != nil {
		return fmt.Sprintf("exit %d", *result.ExitCode)
	}
	return "unknown failure"
}

// sleepCtx sleeps for d or returns early (false) if ctx is cancelled.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
