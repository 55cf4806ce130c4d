// Package sqlstore is the reference Job Store (spec.md §4.1), backed by
// either SQLite (default, pure Go via modernc.org/sqlite) or PostgreSQL
// (jackc/pgx/v5 stdlib driver). Schema migrations are embedded and applied
// with goose on every NewSQLite/NewPostgres call.
package sqlstore

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/pressly/goose/v3"

	_ "github.com/jackc/pgx/v5/stdlib" // postgres driver
	_ "modernc.org/sqlite"             // sqlite driver

	"github.com/cvakhilesh7/queuectl/pkg/jobqueue"
	"github.com/cvakhilesh7/queuectl/pkg/jobqueue/sqlstore/dialect"
)

//go:embed migrations/sqlite/*.sql
var sqliteMigrations embed.FS

//go:embed migrations/postgres/*.sql
var postgresMigrations embed.FS

// Store is the concrete jobqueue.Store implementation.
type Store struct {
	db      *sql.DB
	dialect dialect.Dialect
}

// NewSQLite opens (creating if absent) a SQLite database at path and
// applies migrations. WAL mode and a busy timeout are set so concurrent
// workers in separate processes don't immediately collide (spec.md §5).
func NewSQLite(ctx context.Context, path string) (*Store, error) {
	dsn := fmt.Sprintf("%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// A single writer connection avoids SQLITE_BUSY under WAL for the
	// write-heavy pick-and-lock / finalize pattern this store uses.
	db.SetMaxOpenConns(1)

	if err := migrate(db, dialect.SQLite, sqliteMigrations, "migrations/sqlite"); err != nil {
		db.Close()
		return nil, err
	}
	return &Store{db: db, dialect: dialect.SQLite}, nil
}

// NewPostgres opens a PostgreSQL database by DSN and applies migrations.
func NewPostgres(ctx context.Context, dsn string) (*Store, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	db.SetMaxOpenConns(25)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	if err := migrate(db, dialect.Postgres, postgresMigrations, "migrations/postgres"); err != nil {
		db.Close()
		return nil, err
	}
	return &Store{db: db, dialect: dialect.Postgres}, nil
}

func migrate(db *sql.DB, d dialect.Dialect, fsys embed.FS, dir string) error {
	if err := goose.SetDialect(d.GooseDialect()); err != nil {
		return fmt.Errorf("set goose dialect: %w", err)
	}
	goose.SetBaseFS(fsys)
	if err := goose.Up(db, dir); err != nil {
		return fmt.Errorf("apply migrations: %w", err)
	}
	return nil
}

func (s *Store) Close() error { return s.db.Close() }

// Enqueue implements jobqueue.Store.
func (s *Store) Enqueue(ctx context.Context, p jobqueue.EnqueueParams) (string, error) {
	id := uuid.New().String()
	now := time.Now().Unix()
	runAfter := now + p.DelaySec

	query := s.dialect.Rebind(`
		INSERT INTO jobs (id, command, replayable_command, state, attempts, max_retries, run_after,
		                   timeout_sec, priority, created_at, updated_at, last_error)
		VALUES (?, ?, ?, ?, 0, ?, ?, ?, ?, ?, ?, '')`)

	err := withRetry(ctx, func() error {
		_, err := s.db.ExecContext(ctx, query,
			id, p.Command, p.Command, jobqueue.StatePending, p.MaxRetries, runAfter,
			p.TimeoutSec, p.Priority, now, now)
		return err
	})
	if err != nil {
		return "", fmt.Errorf("insert job: %w", err)
	}
	return id, nil
}

// PickAndLock implements jobqueue.Store via the atomic
// UPDATE ... WHERE id = (SELECT ... LIMIT 1) RETURNING pattern: the
// selection and the pending->processing transition happen in one
// statement, and the outer UPDATE re-checks state = pending, so when two
// callers race for the same row only one claims it and the other gets no
// job (spec.md §4.1).
func (s *Store) PickAndLock(ctx context.Context) (*jobqueue.Job, error) {
	now := time.Now().Unix()

	query := s.dialect.Rebind(`
		UPDATE jobs
		SET state = ?, updated_at = ?
		WHERE state = ? AND id = (
			SELECT id FROM jobs
			WHERE state = ? AND run_after <= ?
			ORDER BY priority DESC, created_at ASC
			LIMIT 1
		)
		RETURNING id, command, replayable_command, state, attempts, max_retries, run_after,
		          timeout_sec, priority, created_at, updated_at, last_error,
		          stdout, stderr, exit_code, runtime_sec, trace_created_at`)

	var job *jobqueue.Job
	err := withRetry(ctx, func() error {
		row := s.db.QueryRowContext(ctx, query, jobqueue.StateProcessing, now, jobqueue.StatePending, jobqueue.StatePending, now)
		scanned, err := scanJob(row)
		if errors.Is(err, sql.ErrNoRows) {
			job = nil
			return nil
		}
		job = scanned
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("pick and lock: %w", err)
	}
	return job, nil
}

// SaveTrace implements jobqueue.Store.
func (s *Store) SaveTrace(ctx context.Context, id string, t jobqueue.Trace) error {
	query := s.dialect.Rebind(`
		UPDATE jobs SET stdout = ?, stderr = ?, exit_code = ?, runtime_sec = ?, trace_created_at = ?
		WHERE id = ?`)
	err := withRetry(ctx, func() error {
		_, err := s.db.ExecContext(ctx, query, t.Stdout, t.Stderr, t.ExitCode, t.RuntimeSec, time.Now().Unix(), id)
		return err
	})
	if err != nil {
		return fmt.Errorf("save trace: %w", err)
	}
	return nil
}

// Finalize implements jobqueue.Store, writing only the fields the
// Transition carries (spec.md §4.4): state and updated_at always, the
// pointer fields only when non-nil.
func (s *Store) Finalize(ctx context.Context, id string, t jobqueue.Transition) error {
	set := []string{"state = ?", "updated_at = ?"}
	args := []any{t.State, time.Now().Unix()}

	if t.Attempts != nil {
		set = append(set, "attempts = ?")
		args = append(args, *t.Attempts)
	}
	if t.RunAfter != nil {
		set = append(set, "run_after = ?")
		args = append(args, *t.RunAfter)
	}
	if t.LastError != nil {
		set = append(set, "last_error = ?")
		args = append(args, *t.LastError)
	}
	args = append(args, id)

	query := s.dialect.Rebind(fmt.Sprintf("UPDATE jobs SET %s WHERE id = ?", joinComma(set)))

	var rowsAffected int64
	err := withRetry(ctx, func() error {
		res, err := s.db.ExecContext(ctx, query, args...)
		if err != nil {
			return err
		}
		rowsAffected, err = res.RowsAffected()
		return err
	})
	if err != nil {
		return fmt.Errorf("finalize job: %w", err)
	}
	if rowsAffected == 0 {
		return jobqueue.ErrNotFound
	}
	return nil
}

// Get implements jobqueue.Store.
func (s *Store) Get(ctx context.Context, id string) (*jobqueue.Job, error) {
	query := s.dialect.Rebind(`
		SELECT id, command, replayable_command, state, attempts, max_retries, run_after,
		       timeout_sec, priority, created_at, updated_at, last_error,
		       stdout, stderr, exit_code, runtime_sec, trace_created_at
		FROM jobs WHERE id = ?`)
	row := s.db.QueryRowContext(ctx, query, id)
	job, err := scanJob(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, jobqueue.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get job: %w", err)
	}
	return job, nil
}

// List implements jobqueue.Store.
func (s *Store) List(ctx context.Context, state *jobqueue.State) ([]*jobqueue.Job, error) {
	base := `SELECT id, command, replayable_command, state, attempts, max_retries, run_after,
	                timeout_sec, priority, created_at, updated_at, last_error,
	                stdout, stderr, exit_code, runtime_sec, trace_created_at
	         FROM jobs`
	var rows *sql.Rows
	var err error
	if state != nil {
		rows, err = s.db.QueryContext(ctx, s.dialect.Rebind(base+" WHERE state = ? ORDER BY created_at DESC"), *state)
	} else {
		rows, err = s.db.QueryContext(ctx, base+" ORDER BY created_at DESC")
	}
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	defer rows.Close()

	var jobs []*jobqueue.Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, fmt.Errorf("list jobs: %w", err)
		}
		jobs = append(jobs, job)
	}
	return jobs, rows.Err()
}

// CountByState implements jobqueue.Store.
func (s *Store) CountByState(ctx context.Context) (map[jobqueue.State]int, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT state, COUNT(*) FROM jobs GROUP BY state`)
	if err != nil {
		return nil, fmt.Errorf("count by state: %w", err)
	}
	defer rows.Close()

	counts := map[jobqueue.State]int{
		jobqueue.StatePending:    0,
		jobqueue.StateProcessing: 0,
		jobqueue.StateCompleted:  0,
		jobqueue.StateDead:       0,
	}
	for rows.Next() {
		var st string
		var n int
		if err := rows.Scan(&st, &n); err != nil {
			return nil, fmt.Errorf("count by state: %w", err)
		}
		parsed, err := jobqueue.ParseState(st)
		if err != nil {
			continue
		}
		counts[parsed] = n
	}
	return counts, rows.Err()
}

// ReclaimStale implements jobqueue.Store (Recovery Sweep, spec.md §4.6):
// any job left in processing past lockTimeoutSec since its last
// updated_at is assumed to belong to a crashed worker and is returned to
// pending without incrementing attempts.
func (s *Store) ReclaimStale(ctx context.Context, lockTimeoutSec int64) (int, error) {
	cutoff := time.Now().Unix() - lockTimeoutSec
	query := s.dialect.Rebind(`
		UPDATE jobs SET state = ?, updated_at = ?
		WHERE state = ? AND updated_at <= ?`)
	var rowsAffected int64
	err := withRetry(ctx, func() error {
		res, err := s.db.ExecContext(ctx, query, jobqueue.StatePending, time.Now().Unix(), jobqueue.StateProcessing, cutoff)
		if err != nil {
			return err
		}
		rowsAffected, err = res.RowsAffected()
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("reclaim stale: %w", err)
	}
	return int(rowsAffected), nil
}

// DLQRetry implements jobqueue.Store.
func (s *Store) DLQRetry(ctx context.Context, id string) error {
	job, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if job.State != jobqueue.StateDead {
		return jobqueue.ErrIllegalTransition
	}

	now := time.Now().Unix()
	query := s.dialect.Rebind(`
		UPDATE jobs SET state = ?, attempts = 0, run_after = ?, updated_at = ?, last_error = ''
		WHERE id = ? AND state = ?`)
	var rowsAffected int64
	err = withRetry(ctx, func() error {
		res, err := s.db.ExecContext(ctx, query, jobqueue.StatePending, now, now, id, jobqueue.StateDead)
		if err != nil {
			return err
		}
		rowsAffected, err = res.RowsAffected()
		return err
	})
	if err != nil {
		return fmt.Errorf("dlq retry: %w", err)
	}
	if rowsAffected == 0 {
		return jobqueue.ErrIllegalTransition
	}
	return nil
}

// ConfigGet implements jobqueue.Store.
func (s *Store) ConfigGet(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := s.db.QueryRowContext(ctx, s.dialect.Rebind(`SELECT value FROM meta WHERE key = ?`), key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("config get: %w", err)
	}
	return value, true, nil
}

// ConfigSet implements jobqueue.Store as an upsert.
func (s *Store) ConfigSet(ctx context.Context, key, value string) error {
	query := s.dialect.UpsertInto("meta", "key, value", "?, ?", "key", "value = excluded.value")
	err := withRetry(ctx, func() error {
		_, err := s.db.ExecContext(ctx, query, key, value)
		return err
	})
	if err != nil {
		return fmt.Errorf("config set: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanJob(row rowScanner) (*jobqueue.Job, error) {
	var j jobqueue.Job
	var state string
	if err := row.Scan(
		&j.ID, &j.Command, &j.ReplayableCommand, &state, &j.Attempts, &j.MaxRetries, &j.RunAfter,
		&j.TimeoutSec, &j.Priority, &j.CreatedAt, &j.UpdatedAt, &j.LastError,
		&j.Stdout, &j.Stderr, &j.ExitCode, &j.RuntimeSec, &j.TraceCreatedAt,
	); err != nil {
		return nil, err
	}
	parsed, err := jobqueue.ParseState(state)
	if err != nil {
		return nil, fmt.Errorf("job %s: %w", j.ID, err)
	}
	j.State = parsed
	return &j, nil
}

func joinComma(parts []string) string {
	out := parts[0]
	for _, p := range parts[1:] {
		out += ", " + p
	}
	return out
}

var _ jobqueue.Store = (*Store)(nil)
