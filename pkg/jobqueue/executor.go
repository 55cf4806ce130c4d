package jobqueue

import (
	"bytes"
	"context"
	"os/exec"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/cvakhilesh7/queuectl/pkg/jobqueue/logger"
)

// ExecResult is the structured outcome of one subprocess execution
// (spec.md §4.3).
type ExecResult struct {
	Success         bool
	ExitCode        *int
	Stdout          string
	Stderr          string
	RuntimeSec      int
	KilledByTimeout bool
}

// Executor spawns one child process per job, interpreting Job.Command via
// the host shell, and returns only once the child is fully reaped and any
// timeout timer cancelled (spec.md §4.3, §9 "callback-driven subprocess
// supervision... re-express as a single blocking call").
//
// The engine does not validate or escape the command; it is trusted input
// (spec.md §4.3 step 2).
type Executor struct {
	Shell          string // defaults to "/bin/sh"
	ShellFlag      string // defaults to "-c"
	MaxOutputBytes int    // per-stream cap, see SPEC_FULL.md
	Log            logger.StandardLogger
}

// NewExecutor builds an Executor with the given per-stream output cap. A
// cap of 0 uses DefaultMaxOutputCap.
func NewExecutor(maxOutputBytes int, log logger.StandardLogger) *Executor {
	if maxOutputBytes <= 0 {
		maxOutputBytes = DefaultMaxOutputCap
	}
	if log == nil {
		log = logger.DiscardLogger{}
	}
	return &Executor{
		Shell:          "/bin/sh",
		ShellFlag:      "-c",
		MaxOutputBytes: maxOutputBytes,
		Log:            log,
	}
}

// Execute runs one job to completion. It deliberately does not bind the
// child's lifetime to ctx cancellation: a worker's graceful shutdown must
// let an already-claimed job run to its own natural end or its own
// timeout (spec.md §5), never be aborted by the shutdown signal.
//
// maxOutputBytes overrides e.MaxOutputBytes for this call when positive,
// letting callers apply the Config Registry's max_output_bytes (SPEC_FULL.md)
// without mutating shared Executor state that other workers read concurrently.
func (e *Executor) Execute(ctx context.Context, job *Job, maxOutputBytes int) ExecResult {
	shell := e.Shell
	if shell == "" {
		shell = "/bin/sh"
	}
	flag := e.ShellFlag
	if flag == "" {
		flag = "-c"
	}
	outputCap := maxOutputBytes
	if outputCap <= 0 {
		outputCap = e.MaxOutputBytes
	}
	if outputCap <= 0 {
		outputCap = DefaultMaxOutputCap
	}

	cmd := exec.Command(shell, flag, job.Command)
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}

	var stdout, stderr cappedBuffer
	stdout.max = outputCap
	stderr.max = outputCap
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()

	if err := cmd.Start(); err != nil {
		return ExecResult{
			Success:    false,
			ExitCode:   intPtr(-1),
			Stderr:     err.Error(),
			RuntimeSec: 0,
		}
	}

	done := make(chan error, 1)
	go func() { done <- cmd.Wait() }()

	var timer *time.Timer
	var killedByTimeout atomic.Bool
	if job.TimeoutSec > 0 {
		timer = time.AfterFunc(time.Duration(job.TimeoutSec)*time.Second, func() {
			killedByTimeout.Store(true)
			e.Log.Warnw("job timed out, killing process group", "job", job.ID, "timeout_sec", job.TimeoutSec)
			// Negative pid targets the whole process group created by Setpgid.
			_ = syscall.Kill(-cmd.Process.Pid, syscall.SIGKILL)
		})
	}

	waitErr := <-done
	if timer != nil {
		timer.Stop()
	}

	runtimeSec := int(time.Since(start).Seconds())

	if killedByTimeout.Load() {
		return ExecResult{
			Success:         false,
			ExitCode:        nil,
			Stdout:          stdout.String(),
			Stderr:          stderr.String(),
			RuntimeSec:      runtimeSec,
			KilledByTimeout: true,
		}
	}

	exitCode := exitCodeOf(waitErr)
	return ExecResult{
		Success:    waitErr == nil,
		ExitCode:   intPtr(exitCode),
		Stdout:     stdout.String(),
		Stderr:     stderr.String(),
		RuntimeSec: runtimeSec,
	}
}

func exitCodeOf(err error) int {
	if err == nil {
		return 0
	}
	if exitErr, ok := err.(*exec.ExitError); ok {
		return exitErr.ExitCode()
	}
	return -1
}

func intPtr(v int) *int { return &v }

// cappedBuffer truncates writes past max bytes, appending a marker rather
// than silently dropping the overflow (SPEC_FULL.md, output capture
// ceiling).
type cappedBuffer struct {
	mu        sync.Mutex
	buf       bytes.Buffer
	max       int
	truncated bool
}

const truncationMarker = "\n... [truncated]"

func (c *cappedBuffer) Write(p []byte) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	n := len(p)
	if c.truncated {
		return n, nil
	}

	remaining := c.max - c.buf.Len()
	if remaining <= 0 {
		c.truncated = true
		c.buf.WriteString(truncationMarker)
		return n, nil
	}
	if len(p) > remaining {
		c.buf.Write(p[:remaining])
		c.truncated = true
		c.buf.WriteString(truncationMarker)
		return n, nil
	}
	c.buf.Write(p)
	return n, nil
}

func (c *cappedBuffer) String() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.buf.String()
}
