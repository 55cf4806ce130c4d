package jobqueue_test

import (
	"context"
	"fmt"
	"sync"

	"github.com/cvakhilesh7/queuectl/pkg/jobqueue"
)

// memStore is a minimal in-memory Store double for unit tests that
// exercise Worker/ConfigRegistry/Dispatcher logic without a database.
type memStore struct {
	mu     sync.Mutex
	jobs   map[string]*jobqueue.Job
	meta   map[string]string
	nextID int
}

func newMemStore() *memStore {
	return &memStore{jobs: map[string]*jobqueue.Job{}, meta: map[string]string{}}
}

func (m *memStore) Enqueue(ctx context.Context, p jobqueue.EnqueueParams) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	id := fmt.Sprintf("job-%d", m.nextID)
	m.jobs[id] = &jobqueue.Job{
		ID:                id,
		Command:           p.Command,
		ReplayableCommand: p.Command,
		State:             jobqueue.StatePending,
		MaxRetries:        p.MaxRetries,
		TimeoutSec:        p.TimeoutSec,
		Priority:          p.Priority,
	}
	return id, nil
}

func (m *memStore) PickAndLock(ctx context.Context) (*jobqueue.Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var best *jobqueue.Job
	for _, j := range m.jobs {
		if j.State != jobqueue.StatePending {
			continue
		}
		if best == nil || j.Priority > best.Priority {
			best = j
		}
	}
	if best == nil {
		return nil, nil
	}
	best.State = jobqueue.StateProcessing
	cp := *best
	return &cp, nil
}

func (m *memStore) SaveTrace(ctx context.Context, id string, t jobqueue.Trace) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	j, ok := m.jobs[id]
	if !ok {
		return jobqueue.ErrNotFound
	}
	j.Stdout, j.Stderr, j.ExitCode, j.RuntimeSec = t.Stdout, t.Stderr, t.ExitCode, t.RuntimeSec
	return nil
}

func (m *memStore) Finalize(ctx context.Context, id string, t jobqueue.Transition) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	j, ok := m.jobs[id]
	if !ok {
		return jobqueue.ErrNotFound
	}
	j.State = t.State
	if t.Attempts != nil {
		j.Attempts = *t.Attempts
	}
	if t.RunAfter != nil {
		j.RunAfter = *t.RunAfter
	}
	if t.LastError != nil {
		j.LastError = *t.LastError
	}
	return nil
}

func (m *memStore) Get(ctx context.Context, id string) (*jobqueue.Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	j, ok := m.jobs[id]
	if !ok {
		return nil, jobqueue.ErrNotFound
	}
	cp := *j
	return &cp, nil
}

func (m *memStore) List(ctx context.Context, state *jobqueue.State) ([]*jobqueue.Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*jobqueue.Job
	for _, j := range m.jobs {
		if state != nil && j.State != *state {
			continue
		}
		cp := *j
		out = append(out, &cp)
	}
	return out, nil
}

func (m *memStore) CountByState(ctx context.Context) (map[jobqueue.State]int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	counts := map[jobqueue.State]int{}
	for _, j := range m.jobs {
		counts[j.State]++
	}
	return counts, nil
}

func (m *memStore) ReclaimStale(ctx context.Context, lockTimeoutSec int64) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, j := range m.jobs {
		if j.State == jobqueue.StateProcessing {
			j.State = jobqueue.StatePending
			n++
		}
	}
	return n, nil
}

func (m *memStore) DLQRetry(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	j, ok := m.jobs[id]
	if !ok {
		return jobqueue.ErrNotFound
	}
	if j.State != jobqueue.StateDead {
		return jobqueue.ErrIllegalTransition
	}
	j.State = jobqueue.StatePending
	j.Attempts = 0
	j.LastError = ""
	return nil
}

func (m *memStore) ConfigGet(ctx context.Context, key string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.meta[key]
	return v, ok, nil
}

func (m *memStore) ConfigSet(ctx context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.meta[key] = value
	return nil
}

func (m *memStore) Close() error { return nil }

var _ jobqueue.Store = (*memStore)(nil)
