package jobqueue

import "context"

// Store is the durable Job Store (spec.md §4.1). Implementations must
// make PickAndLock atomic: the selection and the pending->processing
// update happen as one serializable transaction, so a concurrent loser
// observes no eligible job rather than a partially-claimed one.
//
// The reference implementation lives in pkg/jobqueue/sqlstore.
type Store interface {
	// Enqueue inserts a new pending job and returns its id.
	Enqueue(ctx context.Context, p EnqueueParams) (string, error)

	// PickAndLock atomically claims the highest-priority, oldest eligible
	// pending job and transitions it to processing. Returns (nil, nil)
	// when no job is eligible.
	PickAndLock(ctx context.Context) (*Job, error)

	// SaveTrace persists the most recent execution's captured output.
	// Callers must call this before Finalize for the same job, per
	// spec.md §4.3 step 7.
	SaveTrace(ctx context.Context, id string, trace Trace) error

	// Finalize applies the post-execution state transition as a single
	// write (spec.md §4.4).
	Finalize(ctx context.Context, id string, t Transition) error

	// Get returns a single job, or ErrNotFound.
	Get(ctx context.Context, id string) (*Job, error)

	// List returns jobs ordered by created_at DESC, optionally filtered
	// by state.
	List(ctx context.Context, state *State) ([]*Job, error)

	// CountByState returns the number of jobs in each state.
	CountByState(ctx context.Context) (map[State]int, error)

	// ReclaimStale moves every job stuck in processing past lockTimeout
	// seconds back to pending, returning the count reclaimed.
	ReclaimStale(ctx context.Context, lockTimeoutSec int64) (int, error)

	// DLQRetry resurrects a dead job to pending with attempts reset to 0
	// and last_error cleared. Returns ErrNotFound or ErrIllegalTransition
	// if the job isn't dead.
	DLQRetry(ctx context.Context, id string) error

	// ConfigGet/ConfigSet back the Config Registry (spec.md §4.2).
	ConfigGet(ctx context.Context, key string) (string, bool, error)
	ConfigSet(ctx context.Context, key, value string) error

	Close() error
}
