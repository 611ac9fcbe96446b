package orchestrator

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/vmihailenco/msgpack/v5"
	_ "modernc.org/sqlite" // Pure Go SQLite driver
)

// SQLiteStore persists job records to a local SQLite database. It satisfies
// the same Store contract as MemoryStore, so the dispatcher is oblivious to
// which backend is configured. The database is durable job history for
// inspection across restarts; it is not a crash-recoverable queue (pending
// jobs are not re-admitted on startup).
type SQLiteStore struct {
	db *sql.DB
}

const jobsSchema = `
CREATE TABLE IF NOT EXISTS jobs (
	id            TEXT PRIMARY KEY,
	type          TEXT NOT NULL,
	status        TEXT NOT NULL,
	priority      INTEGER NOT NULL,
	progress      INTEGER NOT NULL DEFAULT 0,
	retry_count   INTEGER NOT NULL DEFAULT 0,
	max_retries   INTEGER NOT NULL DEFAULT 0,
	error_message TEXT NOT NULL DEFAULT '',
	payload       BLOB,
	result        BLOB,
	created_at    INTEGER NOT NULL,
	scheduled_at  INTEGER,
	started_at    INTEGER,
	completed_at  INTEGER
);
CREATE INDEX IF NOT EXISTS idx_jobs_status ON jobs(status);
`

// NewSQLiteStore opens (or creates) the job database at the given path.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	connStr := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)", path)
	db, err := sql.Open("sqlite", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open job database: %w", err)
	}

	// Single writer; the manager serializes access anyway.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(jobsSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize job schema: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Put inserts or updates a job record.
func (s *SQLiteStore) Put(job *Job) error {
	payload, err := msgpack.Marshal(job.Payload)
	if err != nil {
		return fmt.Errorf("failed to encode payload: %w", err)
	}
	result, err := msgpack.Marshal(job.Result)
	if err != nil {
		return fmt.Errorf("failed to encode result: %w", err)
	}

	_, err = s.db.Exec(`
		INSERT INTO jobs (id, type, status, priority, progress, retry_count, max_retries,
			error_message, payload, result, created_at, scheduled_at, started_at, completed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			status = excluded.status,
			priority = excluded.priority,
			progress = excluded.progress,
			retry_count = excluded.retry_count,
			max_retries = excluded.max_retries,
			error_message = excluded.error_message,
			result = excluded.result,
			scheduled_at = excluded.scheduled_at,
			started_at = excluded.started_at,
			completed_at = excluded.completed_at`,
		job.ID, string(job.Type), string(job.Status), job.Priority, job.Progress,
		job.RetryCount, job.MaxRetries, job.ErrorMessage, payload, result,
		job.CreatedAt.UnixNano(), nanosOrNull(job.ScheduledAt), nanosOrNull(job.StartedAt), nanosOrNull(job.CompletedAt))
	if err != nil {
		return fmt.Errorf("failed to persist job %s: %w", job.ID, err)
	}
	return nil
}

// Get returns the job with the given ID.
func (s *SQLiteStore) Get(id string) (*Job, bool) {
	row := s.db.QueryRow(`
		SELECT id, type, status, priority, progress, retry_count, max_retries,
			error_message, payload, result, created_at, scheduled_at, started_at, completed_at
		FROM jobs WHERE id = ?`, id)

	job, err := scanJob(row)
	if err != nil {
		return nil, false
	}
	return job, true
}

// All returns all job records in insertion order.
func (s *SQLiteStore) All() []*Job {
	rows, err := s.db.Query(`
		SELECT id, type, status, priority, progress, retry_count, max_retries,
			error_message, payload, result, created_at, scheduled_at, started_at, completed_at
		FROM jobs ORDER BY rowid`)
	if err != nil {
		return nil
	}
	defer rows.Close()

	var jobs []*Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			continue
		}
		jobs = append(jobs, job)
	}
	return jobs
}

// Delete removes a job record. Deleting an unknown ID is a no-op.
func (s *SQLiteStore) Delete(id string) error {
	_, err := s.db.Exec(`DELETE FROM jobs WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete job %s: %w", id, err)
	}
	return nil
}

// Len returns the number of stored jobs.
func (s *SQLiteStore) Len() int {
	var count int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM jobs`).Scan(&count); err != nil {
		return 0
	}
	return count
}

// Close closes the underlying database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanJob(row rowScanner) (*Job, error) {
	var (
		job                                 Job
		jobType, status                     string
		payload, result                     []byte
		createdAt                           int64
		scheduledAt, startedAt, completedAt sql.NullInt64
	)

	err := row.Scan(&job.ID, &jobType, &status, &job.Priority, &job.Progress,
		&job.RetryCount, &job.MaxRetries, &job.ErrorMessage, &payload, &result,
		&createdAt, &scheduledAt, &startedAt, &completedAt)
	if err != nil {
		return nil, err
	}

	job.Type = JobType(jobType)
	job.Status = JobStatus(status)
	job.CreatedAt = nanosToTime(createdAt)
	job.ScheduledAt = nullableTime(scheduledAt)
	job.StartedAt = nullableTime(startedAt)
	job.CompletedAt = nullableTime(completedAt)

	if len(payload) > 0 {
		if err := msgpack.Unmarshal(payload, &job.Payload); err != nil {
			return nil, fmt.Errorf("failed to decode payload for job %s: %w", job.ID, err)
		}
	}
	if len(result) > 0 {
		if err := msgpack.Unmarshal(result, &job.Result); err != nil {
			return nil, fmt.Errorf("failed to decode result for job %s: %w", job.ID, err)
		}
	}

	return &job, nil
}

func nanosOrNull(t *time.Time) interface{} {
	if t == nil {
		return nil
	}
	return t.UnixNano()
}

func nanosToTime(nanos int64) time.Time {
	return time.Unix(0, nanos).UTC()
}

func nullableTime(v sql.NullInt64) *time.Time {
	if !v.Valid {
		return nil
	}
	t := nanosToTime(v.Int64)
	return &t
}
