package jobqueue

import "fmt"

// State is a job's position in the lifecycle state machine.
//
//	pending -> processing -> completed
//	                      -> dead -> pending (via DLQ-retry only)
type State string

const (
	StatePending    State = "pending"
	StateProcessing State = "processing"
	StateCompleted  State = "completed"
	StateDead       State = "dead"
)

// ParseState validates a raw string against the closed set of states.
// Core logic never sees a raw string past this boundary.
func ParseState(s string) (State, error) {
	switch State(s) {
	case StatePending, StateProcessing, StateCompleted, StateDead:
		return State(s), nil
	default:
		return "", fmt.Errorf("invalid job state %q", s)
	}
}

func (s State) String() string { return string(s) }

// Job is the unit of work tracked by the Job Store. Field semantics are
// defined in full in spec.md §3; in short: ReplayableCommand is fixed at
// creation and never mutated, trace fields reflect only the most recent
// execution attempt, and RunAfter is meaningful only while State is
// StatePending.
type Job struct {
	ID                 string
	Command            string
	ReplayableCommand  string
	State              State
	Attempts           int
	MaxRetries         int
	RunAfter           int64 // epoch seconds
	TimeoutSec         int
	Priority           int
	CreatedAt          int64 // epoch seconds
	UpdatedAt          int64 // epoch seconds
	LastError          string

	// Trace fields, overwritten on every execution attempt.
	Stdout         string
	Stderr         string
	ExitCode       *int
	RuntimeSec     int
	TraceCreatedAt int64
}

// EnqueueParams are the caller-supplied fields for a new job. Everything
// else (ID, State, Attempts, timestamps) is assigned by the store.
type EnqueueParams struct {
	Command    string
	MaxRetries int
	DelaySec   int64
	TimeoutSec int
	Priority   int
}

// Trace is a single execution's captured output, persisted as one write
// ahead of the state transition that follows it (spec.md §4.3 step 7).
type Trace struct {
	Stdout     string
	Stderr     string
	ExitCode   *int
	RuntimeSec int
}

// Transition is the post-execution update applied to a job row. Only non-nil pointer fields are written; State and UpdatedAt are
// always written. This mirrors the §4.4 table, where each outcome writes a
// different subset of fields.
type Transition struct {
	State     State
	Attempts  *int
	RunAfter  *int64
	LastError *string
}
