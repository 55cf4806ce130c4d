package jobqueue_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/cvakhilesh7/queuectl/pkg/jobqueue"
)

func TestExecutorSuccess(t *testing.T) {
	e := jobqueue.NewExecutor(0, nil)
	job := &jobqueue.Job{ID: "j1", Command: "echo -n hello", TimeoutSec: 5}

	result := e.Execute(context.Background(), job, 0)
	require.True(t, result.Success)
	require.Equal(t, "hello", result.Stdout)
	require.NotNil(t, result.ExitCode)
	require.Equal(t, 0, *result.ExitCode)
	require.False(t, result.KilledByTimeout)
}

func TestExecutorNonZeroExit(t *testing.T) {
	e := jobqueue.NewExecutor(0, nil)
	job := &jobqueue.Job{ID: "j2", Command: "exit 7", TimeoutSec: 5}

	result := e.Execute(context.Background(), job, 0)
	require.False(t, result.Success)
	require.NotNil(t, result.ExitCode)
	require.Equal(t, 7, *result.ExitCode)
}

func TestExecutorCapturesStderr(t *testing.T) {
	e := jobqueue.NewExecutor(0, nil)
	job := &jobqueue.Job{ID: "j3", Command: "echo -n oops 1>&2; exit 1", TimeoutSec: 5}

	result := e.Execute(context.Background(), job, 0)
	require.False(t, result.Success)
	require.Equal(t, "oops", result.Stderr)
}

func TestExecutorTimeoutKillsProcess(t *testing.T) {
	e := jobqueue.NewExecutor(0, nil)
	job := &jobqueue.Job{ID: "j4", Command: "sleep 5", TimeoutSec: 1}

	start := time.Now()
	result := e.Execute(context.Background(), job, 0)
	elapsed := time.Since(start)

	require.True(t, result.KilledByTimeout)
	require.False(t, result.Success)
	require.Nil(t, result.ExitCode)
	require.Less(t, elapsed, 4*time.Second)
}

func TestExecutorTruncatesOutputPastCap(t *testing.T) {
	e := jobqueue.NewExecutor(8, nil)
	job := &jobqueue.Job{ID: "j5", Command: "echo -n 0123456789", TimeoutSec: 5}

	result := e.Execute(context.Background(), job, 0)
	require.Contains(t, result.Stdout, "01234567")
	require.Contains(t, result.Stdout, "truncated")
}

func TestExecutorIndependentOfCallerContextCancellation(t *testing.T) {
	e := jobqueue.NewExecutor(0, nil)
	job := &jobqueue.Job{ID: "j6", Command: "sleep 1 && echo -n done", TimeoutSec: 5}

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(50 * time.Millisecond)
		cancel()
	}()

	result := e.Execute(ctx, job, 0)
	require.True(t, result.Success)
	require.Equal(t, "done", result.Stdout)
}
