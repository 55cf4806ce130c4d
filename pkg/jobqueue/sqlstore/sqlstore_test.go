package sqlstore_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/cvakhilesh7/queuectl/pkg/jobqueue"
	"github.com/cvakhilesh7/queuectl/pkg/jobqueue/sqlstore"
)

func newStore(t *testing.T) *sqlstore.Store {
	t.Helper()
	dir := t.TempDir()
	s, err := sqlstore.NewSQLite(context.Background(), filepath.Join(dir, "queuectl.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestEnqueueAndGet(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	id, err := s.Enqueue(ctx, jobqueue.EnqueueParams{
		Command:    "echo hi",
		MaxRetries: 3,
		TimeoutSec: 5,
		Priority:   1,
	})
	require.NoError(t, err)
	require.NotEmpty(t, id)

	job, err := s.Get(ctx, id)
	require.NoError(t, err)
	require.Equal(t, jobqueue.StatePending, job.State)
	require.Equal(t, "echo hi", job.Command)
	require.Equal(t, "echo hi", job.ReplayableCommand)
	require.Equal(t, 0, job.Attempts)
}

func TestGetMissing(t *testing.T) {
	s := newStore(t)
	_, err := s.Get(context.Background(), "nope")
	require.ErrorIs(t, err, jobqueue.ErrNotFound)
}

func TestPickAndLockOrdering(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	low, err := s.Enqueue(ctx, jobqueue.EnqueueParams{Command: "low", MaxRetries: 1, Priority: 0})
	require.NoError(t, err)
	high, err := s.Enqueue(ctx, jobqueue.EnqueueParams{Command: "high", MaxRetries: 1, Priority: 10})
	require.NoError(t, err)

	job, err := s.PickAndLock(ctx)
	require.NoError(t, err)
	require.NotNil(t, job)
	require.Equal(t, high, job.ID)
	require.Equal(t, jobqueue.StateProcessing, job.State)

	job2, err := s.PickAndLock(ctx)
	require.NoError(t, err)
	require.NotNil(t, job2)
	require.Equal(t, low, job2.ID)

	job3, err := s.PickAndLock(ctx)
	require.NoError(t, err)
	require.Nil(t, job3)
}

func TestPickAndLockRespectsRunAfter(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	_, err := s.Enqueue(ctx, jobqueue.EnqueueParams{Command: "later", MaxRetries: 1, DelaySec: 3600})
	require.NoError(t, err)

	job, err := s.PickAndLock(ctx)
	require.NoError(t, err)
	require.Nil(t, job)
}

func TestFinalizeCompleted(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	id, err := s.Enqueue(ctx, jobqueue.EnqueueParams{Command: "ok", MaxRetries: 1})
	require.NoError(t, err)
	_, err = s.PickAndLock(ctx)
	require.NoError(t, err)

	err = s.Finalize(ctx, id, jobqueue.Transition{State: jobqueue.StateCompleted})
	require.NoError(t, err)

	job, err := s.Get(ctx, id)
	require.NoError(t, err)
	require.Equal(t, jobqueue.StateCompleted, job.State)
}

func TestFinalizeRetryWritesAttemptsAndRunAfter(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	id, err := s.Enqueue(ctx, jobqueue.EnqueueParams{Command: "fails", MaxRetries: 3})
	require.NoError(t, err)
	_, err = s.PickAndLock(ctx)
	require.NoError(t, err)

	attempts := 1
	runAfter := int64(9999999999)
	reason := "exit 1"
	err = s.Finalize(ctx, id, jobqueue.Transition{
		State:     jobqueue.StatePending,
		Attempts:  &attempts,
		RunAfter:  &runAfter,
		LastError: &reason,
	})
	require.NoError(t, err)

	job, err := s.Get(ctx, id)
	require.NoError(t, err)
	require.Equal(t, jobqueue.StatePending, job.State)
	require.Equal(t, 1, job.Attempts)
	require.Equal(t, runAfter, job.RunAfter)
	require.Equal(t, reason, job.LastError)
}

func TestDLQRetryOnlyFromDead(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	id, err := s.Enqueue(ctx, jobqueue.EnqueueParams{Command: "dead-bound", MaxRetries: 1})
	require.NoError(t, err)

	err = s.DLQRetry(ctx, id)
	require.ErrorIs(t, err, jobqueue.ErrIllegalTransition)

	_, err = s.PickAndLock(ctx)
	require.NoError(t, err)
	reason := "boom"
	err = s.Finalize(ctx, id, jobqueue.Transition{State: jobqueue.StateDead, LastError: &reason})
	require.NoError(t, err)

	err = s.DLQRetry(ctx, id)
	require.NoError(t, err)

	job, err := s.Get(ctx, id)
	require.NoError(t, err)
	require.Equal(t, jobqueue.StatePending, job.State)
	require.Equal(t, 0, job.Attempts)
	require.Equal(t, "", job.LastError)
}

func TestReclaimStale(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	id, err := s.Enqueue(ctx, jobqueue.EnqueueParams{Command: "stuck", MaxRetries: 1})
	require.NoError(t, err)
	_, err = s.PickAndLock(ctx)
	require.NoError(t, err)

	n, err := s.ReclaimStale(ctx, 0)
	require.NoError(t, err)
	require.Equal(t, 1, n)

	job, err := s.Get(ctx, id)
	require.NoError(t, err)
	require.Equal(t, jobqueue.StatePending, job.State)
}

func TestCountByState(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	_, err := s.Enqueue(ctx, jobqueue.EnqueueParams{Command: "a", MaxRetries: 1})
	require.NoError(t, err)
	_, err = s.Enqueue(ctx, jobqueue.EnqueueParams{Command: "b", MaxRetries: 1})
	require.NoError(t, err)

	counts, err := s.CountByState(ctx)
	require.NoError(t, err)
	require.Equal(t, 2, counts[jobqueue.StatePending])
	require.Equal(t, 0, counts[jobqueue.StateProcessing])
}

// A real database/sql-backed Store (unlike the in-memory double used by
// the jobqueue package's own worker tests) actually rejects writes made
// with an already-cancelled context, so this is the regression test for
// the Worker Loop abandoning a claimed job on shutdown (spec.md §5).
func TestWorkerFinalizesClaimedJobDespiteContextCancellationMidExecution(t *testing.T) {
	s := newStore(t)
	config := jobqueue.NewConfigRegistry(s, nil)
	executor := jobqueue.NewExecutor(0, nil)
	w := jobqueue.NewWorker("w1", s, config, executor, nil, nil)

	id, err := s.Enqueue(context.Background(), jobqueue.EnqueueParams{
		Command: "sleep 1 && exit 0", MaxRetries: 3, TimeoutSec: 5,
	})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		w.Run(ctx)
		close(done)
	}()

	require.Eventually(t, func() bool {
		job, err := s.Get(context.Background(), id)
		require.NoError(t, err)
		return job.State == jobqueue.StateProcessing
	}, 2*time.Second, 10*time.Millisecond)

	// Simulate a SIGINT/SIGTERM arriving while the claimed job is still
	// running: shutdown must not abandon it mid-transition.
	cancel()

	select {
	case <-done:
	case <-time.After(4 * time.Second):
		t.Fatal("worker never returned after ctx cancellation")
	}

	job, err := s.Get(context.Background(), id)
	require.NoError(t, err)
	require.Equal(t, jobqueue.StateCompleted, job.State)
}

func TestConfigGetSetRoundTrip(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	_, ok, err := s.ConfigGet(ctx, "backoff_base")
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, s.ConfigSet(ctx, "backoff_base", "3.0"))
	v, ok, err := s.ConfigGet(ctx, "backoff_base")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "3.0", v)

	require.NoError(t, s.ConfigSet(ctx, "backoff_base", "4.0"))
	v, ok, err = s.ConfigGet(ctx, "backoff_base")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "4.0", v)
}
