package jobqueue

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"sync"
	"sync/atomic"

	"github.com/cvakhilesh7/queuectl/pkg/jobqueue/logger"
)

// Dispatcher is the Dispatcher/Lifecycle component (spec.md §4.5). It owns
// the store handle and the in-process stop flag explicitly, rather than
// relying on package-level singletons (spec.md §9), and exposes the
// operations the CLI boundary calls 1:1.
type Dispatcher struct {
	store    Store
	config   *ConfigRegistry
	executor *Executor
	metrics  *Metrics
	log      logger.StandardLogger

	mu      sync.Mutex
	running bool
	stopped atomic.Bool // in-process stop flag, distinct from the store's stop_workers
	wg      sync.WaitGroup
}

type Option func(*Dispatcher)

func WithLogger(log logger.StandardLogger) Option {
	return func(d *Dispatcher) { d.log = log }
}

func WithMetrics(m *Metrics) Option {
	return func(d *Dispatcher) { d.metrics = m }
}

func WithExecutor(e *Executor) Option {
	return func(d *Dispatcher) { d.executor = e }
}

// New builds a Dispatcher over the given store.
func New(store Store, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		store: store,
		log:   logger.DiscardLogger{},
	}
	for _, opt := range opts {
		opt(d)
	}
	if d.executor == nil {
		d.executor = NewExecutor(0, d.log)
	}
	if d.metrics == nil {
		d.metrics = NewNoopMetrics()
	}
	d.config = NewConfigRegistry(store, d.log)
	return d
}

// Enqueue implements spec.md §4.1 enqueue, called via the CLI's `enqueue`
// verb.
func (d *Dispatcher) Enqueue(ctx context.Context, p EnqueueParams) (string, error) {
	if d.stopped.Load() {
		return "", ErrQueueStopping
	}
	id, err := d.store.Enqueue(ctx, p)
	if err != nil {
		return "", newStoreError("enqueue", err)
	}
	d.log.Infow("enqueued job", "job", id, "priority", p.Priority, "max_retries", p.MaxRetries)
	return id, nil
}

// RecoverySweep runs the Recovery Sweep component (spec.md §4.6). It must
// be called exactly once, before StartWorkers, for every process start.
func (d *Dispatcher) RecoverySweep(ctx context.Context) (int, error) {
	lockTimeout := d.config.LockTimeout(ctx)
	n, err := d.store.ReclaimStale(ctx, lockTimeout)
	if err != nil {
		return 0, newStoreError("reclaim_stale", err)
	}
	if n > 0 {
		d.log.Warnw("recovery sweep reclaimed stale processing jobs", "count", n, "lock_timeout_sec", lockTimeout)
	}
	d.metrics.jobsReclaimed(ctx, n)
	return n, nil
}

// StartWorkers clears stop_workers, resets the in-process stop flag, and
// runs n worker loops until ctx is cancelled or StopWorkers is called.
// It blocks, matching the CLI's `worker:start` staying in the foreground
// (spec.md §6).
func (d *Dispatcher) StartWorkers(ctx context.Context, n int) error {
	d.mu.Lock()
	if d.running {
		d.mu.Unlock()
		return fmt.Errorf("dispatcher already running")
	}
	d.running = true
	d.stopped.Store(false)
	d.mu.Unlock()

	defer func() {
		d.mu.Lock()
		d.running = false
		d.mu.Unlock()
	}()

	if err := d.config.SetStopWorkers(ctx, false); err != nil {
		return newStoreError("clear stop_workers", err)
	}

	for i := 0; i < n; i++ {
		id := fmt.Sprintf("pid%d-w%d", os.Getpid(), i)
		w := NewWorker(id, d.store, d.config, d.executor, d.metrics, d.log)
		w.SetStopFlag(d.stopped.Load)
		d.wg.Add(1)
		go func() {
			defer d.wg.Done()
			w.Run(ctx)
		}()
	}

	d.wg.Wait()
	return nil
}

// StopWorkers sets the store's stop_workers flag (spec.md §4.5). Live
// workers observe it on their next loop iteration and always finish their
// current job first.
func (d *Dispatcher) StopWorkers(ctx context.Context) error {
	return newStoreError("stop_workers", d.config.SetStopWorkers(ctx, true))
}

// RequestShutdown sets the in-process stop flag, used by signal handling
// (spec.md §6): SIGINT/SIGTERM begin graceful shutdown without writing to
// the store. Every worker spawned by StartWorkers checks this flag once
// per loop iteration, so it takes effect even if ctx cancellation is
// delayed or never arrives.
func (d *Dispatcher) RequestShutdown() {
	d.stopped.Store(true)
}

// DLQRetry implements spec.md §4.5 dlq_retry.
func (d *Dispatcher) DLQRetry(ctx context.Context, id string) error {
	err := d.store.DLQRetry(ctx, id)
	if err != nil {
		return err
	}
	d.log.Infow("resurrected job from dead letter queue", "job", id)
	return nil
}

// Replay implements spec.md §4.5 replay. With confirm=false it is a dry
// run that only returns the replayable command. With confirm=true it
// spawns a fresh child with inherited I/O, outside the engine: this is
// never a queued job and never mutates job state.
func (d *Dispatcher) Replay(ctx context.Context, id string, confirm bool) (string, error) {
	job, err := d.store.Get(ctx, id)
	if err != nil {
		return "", err
	}
	if !confirm {
		return job.ReplayableCommand, nil
	}

	cmd := exec.CommandContext(ctx, "/bin/sh", "-c", job.ReplayableCommand)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	d.log.Infow("replaying job command", "job", id)
	if err := cmd.Run(); err != nil {
		return job.ReplayableCommand, fmt.Errorf("replay: %w", err)
	}
	return job.ReplayableCommand, nil
}

// Show implements spec.md §4.5 show.
func (d *Dispatcher) Show(ctx context.Context, id string) (*Job, error) {
	return d.store.Get(ctx, id)
}

// List implements spec.md §4.1 list.
func (d *Dispatcher) List(ctx context.Context, state *State) ([]*Job, error) {
	jobs, err := d.store.List(ctx, state)
	if err != nil {
		return nil, newStoreError("list", err)
	}
	return jobs, nil
}

// CountByState implements spec.md §4.1 count_by_state.
func (d *Dispatcher) CountByState(ctx context.Context) (map[State]int, error) {
	counts, err := d.store.CountByState(ctx)
	if err != nil {
		return nil, newStoreError("count_by_state", err)
	}
	return counts, nil
}

// StopFlagSet reports whether stop_workers is set, surfaced by `status`
// so an operator can see a stuck-stopped queue (SPEC_FULL.md).
func (d *Dispatcher) StopFlagSet(ctx context.Context) bool {
	return d.config.StopRequested(ctx)
}

// ConfigGet/ConfigSet expose the Config Registry to the CLI's
// config-get/config-set verbs.
func (d *Dispatcher) ConfigGet(ctx context.Context, key string) (string, bool, error) {
	return d.config.Get(ctx, key)
}

func (d *Dispatcher) ConfigSet(ctx context.Context, key, value string) error {
	return d.config.Set(ctx, key, value)
}

// Close releases the underlying store.
func (d *Dispatcher) Close() error {
	return d.store.Close()
}
