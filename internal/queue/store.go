package queue

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/codebuildervaibhav/audio-spectrogram/internal/storage"
)

//go:embed tasks.sql
var tasksSQL string

// maxErrorBytes caps last_error; longer messages are cut on a rune boundary.
const maxErrorBytes = 2000

const taskColumns = `id, record_id, status, attempts, available_at, leased_until, last_error, created_at, updated_at`

// Store persists tasks in the shared SQLite database.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// NewStore creates the tasks table if needed.
func NewStore(ctx context.Context, db *sql.DB) (*Store, error) {
	if _, err := db.ExecContext(ctx, tasksSQL); err != nil {
		return nil, fmt.Errorf("create tasks schema: %w", err)
	}
	return &Store{db: db, now: func() time.Time { return time.Now().UTC() }}, nil
}

func (s *Store) exec(ctx context.Context, query string, args ...any) (sql.Result, error) {
	var res sql.Result
	err := storage.RetryOnBusy(ctx, func() error {
		var execErr error
		res, execErr = s.db.ExecContext(ctx, query, args...)
		return execErr
	})
	return res, err
}

// Enqueue records a delivery for recordID, available immediately.
func (s *Store) Enqueue(ctx context.Context, recordID uuid.UUID) error {
	now := storage.FormatTime(s.now())
	_, err := s.exec(ctx,
		`INSERT INTO tasks (id, record_id, status, attempts, available_at, created_at, updated_at)
         VALUES (?, ?, ?, 0, ?, ?, ?)`,
		uuid.NewString(), recordID.String(), TaskQueued, now, now, now,
	)
	if err != nil {
		return fmt.Errorf("enqueue %s: %w", recordID, err)
	}
	return nil
}

// Claim leases the oldest available task for lease and counts the attempt.
// It returns nil when nothing is ready.
func (s *Store) Claim(ctx context.Context, lease time.Duration) (*Task, error) {
	now := s.now()
	var (
		task *Task
		err  error
	)
	retryErr := storage.RetryOnBusy(ctx, func() error {
		row := s.db.QueryRowContext(ctx,
			`UPDATE tasks
             SET status = ?, attempts = attempts + 1, leased_until = ?, updated_at = ?
             WHERE id = (
                 SELECT id FROM tasks
                 WHERE status = ? AND available_at <= ?
                 ORDER BY available_at, created_at
                 LIMIT 1
             )
             RETURNING `+taskColumns,
			TaskLeased, storage.FormatTime(now.Add(lease)), storage.FormatTime(now),
			TaskQueued, storage.FormatTime(now),
		)
		task, err = scanTask(row)
		if errors.Is(err, sql.ErrNoRows) {
			task, err = nil, nil
		}
		return err
	})
	if retryErr != nil {
		return nil, fmt.Errorf("claim task: %w", retryErr)
	}
	return task, nil
}

// Ack removes a task whose delivery succeeded.
func (s *Store) Ack(ctx context.Context, id uuid.UUID) error {
	if _, err := s.exec(ctx, `DELETE FROM tasks WHERE id = ?`, id.String()); err != nil {
		return fmt.Errorf("ack task %s: %w", id, err)
	}
	return nil
}

// Retry makes a failed task available again after delay.
func (s *Store) Retry(ctx context.Context, id uuid.UUID, cause error, delay time.Duration) error {
	now := s.now()
	_, err := s.exec(ctx,
		`UPDATE tasks SET status = ?, available_at = ?, leased_until = NULL, last_error = ?, updated_at = ?
         WHERE id = ?`,
		TaskQueued, storage.FormatTime(now.Add(delay)), errorText(cause), storage.FormatTime(now), id.String(),
	)
	if err != nil {
		return fmt.Errorf("retry task %s: %w", id, err)
	}
	return nil
}

// Release returns a task interrupted by shutdown without counting the attempt.
func (s *Store) Release(ctx context.Context, id uuid.UUID) error {
	now := storage.FormatTime(s.now())
	_, err := s.exec(ctx,
		`UPDATE tasks SET status = ?, attempts = MAX(attempts - 1, 0), available_at = ?, leased_until = NULL, updated_at = ?
         WHERE id = ?`,
		TaskQueued, now, now, id.String(),
	)
	if err != nil {
		return fmt.Errorf("release task %s: %w", id, err)
	}
	return nil
}

// Bury dead-letters a task that exhausted its attempts.
func (s *Store) Bury(ctx context.Context, id uuid.UUID, cause error) error {
	_, err := s.exec(ctx,
		`UPDATE tasks SET status = ?, leased_until = NULL, last_error = ?, updated_at = ? WHERE id = ?`,
		TaskDead, errorText(cause), storage.FormatTime(s.now()), id.String(),
	)
	if err != nil {
		return fmt.Errorf("bury task %s: %w", id, err)
	}
	return nil
}

// ReclaimExpired makes tasks whose lease ended before now available again.
func (s *Store) ReclaimExpired(ctx context.Context, now time.Time) (int64, error) {
	ts := storage.FormatTime(now)
	res, err := s.exec(ctx,
		`UPDATE tasks SET status = ?, available_at = ?, leased_until = NULL,
             last_error = 'lease expired', updated_at = ?
         WHERE status = ? AND leased_until IS NOT NULL AND leased_until < ?`,
		TaskQueued, ts, ts, TaskLeased, ts,
	)
	if err != nil {
		return 0, fmt.Errorf("reclaim expired leases: %w", err)
	}
	return res.RowsAffected()
}

// Requeue moves dead tasks back to queued with a fresh attempt budget. With no
// ids every dead task is requeued.
func (s *Store) Requeue(ctx context.Context, ids ...uuid.UUID) (int64, error) {
	now := storage.FormatTime(s.now())
	query := `UPDATE tasks SET status = ?, attempts = 0, available_at = ?, last_error = '', updated_at = ?
              WHERE status = ?`
	args := []any{TaskQueued, now, now, TaskDead}
	if len(ids) > 0 {
		query += ` AND id IN (` + strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",") + `)`
		for _, id := range ids {
			args = append(args, id.String())
		}
	}
	res, err := s.exec(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("requeue dead tasks: %w", err)
	}
	return res.RowsAffected()
}

// List returns tasks in status, oldest first. An empty status lists all.
func (s *Store) List(ctx context.Context, status TaskStatus, limit int) ([]Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks`
	var args []any
	if status != "" {
		query += ` WHERE status = ?`
		args = append(args, status)
	}
	query += ` ORDER BY created_at LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	defer rows.Close()

	var out []Task
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("scan task: %w", err)
		}
		out = append(out, *task)
	}
	return out, rows.Err()
}

// Stats counts tasks per status.
func (s *Store) Stats(ctx context.Context) (map[TaskStatus]int, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT status, COUNT(1) FROM tasks GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("task stats: %w", err)
	}
	defer rows.Close()

	stats := make(map[TaskStatus]int)
	for rows.Next() {
		var (
			status string
			count  int
		)
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		stats[TaskStatus(status)] = count
	}
	return stats, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanTask(row scanner) (*Task, error) {
	var (
		id, recordID, status, availableAt, lastError, createdAt, updatedAt string
		leasedUntil                                                      sql.NullString
		attempts                                                         int
	)
	if err := row.Scan(&id, &recordID, &status, &attempts, &availableAt, &leasedUntil, &lastError, &createdAt, &updatedAt); err != nil {
		return nil, err
	}

	task := &Task{Status: TaskStatus(status), Attempts: attempts, LastError: lastError}
	var err error
	if task.ID, err = uuid.Parse(id); err != nil {
		return nil, fmt.Errorf("parse task id: %w", err)
	}
	if task.RecordID, err = uuid.Parse(recordID); err != nil {
		return nil, fmt.Errorf("parse record id: %w", err)
	}
	if task.AvailableAt, err = storage.ParseTime(availableAt); err != nil {
		return nil, err
	}
	if task.CreatedAt, err = storage.ParseTime(createdAt); err != nil {
		return nil, err
	}
	if task.UpdatedAt, err = storage.ParseTime(updatedAt); err != nil {
		return nil, err
	}
	if leasedUntil.Valid {
		t, err := storage.ParseTime(leasedUntil.String)
		if err != nil {
			return nil, err
		}
		task.LeasedUntil = &t
	}
	return task, nil
}

func errorText(err error) string {
	if err == nil {
		return ""
	}
	msg := err.Error()
	if len(msg) <= maxErrorBytes {
		return msg
	}
	cut := maxErrorBytes
	for cut > 0 && !utf8.RuneStart(msg[cut]) {
		cut--
	}
	return msg[:cut]
}
