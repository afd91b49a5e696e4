package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/codebuildervaibhav/audio-spectrogram/internal/types"
)

// AudioRepository persists Audio records. It is the only writer of status.
type AudioRepository struct {
	db *sql.DB
}

// NewAudioRepository wraps an open database handle.
func NewAudioRepository(db *sql.DB) *AudioRepository {
	return &AudioRepository{db: db}
}

// Create inserts a new record, assigning ID, CreatedAt and a pending status
// where unset.
func (r *AudioRepository) Create(ctx context.Context, audio *types.Audio) error {
	if audio.ID == uuid.Nil {
		audio.ID = uuid.New()
	}
	if audio.CreatedAt.IsZero() {
		audio.CreatedAt = time.Now().UTC()
	}
	if audio.Status == "" {
		audio.Status = types.StatusPending
	}
	if !audio.Status.Valid() {
		return fmt.Errorf("%w: unknown status %q", types.ErrInvalidInput, audio.Status)
	}

	query := `
	INSERT INTO audio (id, filename, content_type, status, created_at)
	VALUES (?, ?, ?, ?, ?)
	`
	err := RetryOnBusy(ctx, func() error {
		_, err := r.db.ExecContext(ctx, query,
			audio.ID.String(), audio.Filename, audio.ContentType, string(audio.Status), FormatTime(audio.CreatedAt))
		return err
	})
	if err != nil {
		return fmt.Errorf("failed to save audio record: %w", err)
	}
	return nil
}

// GetByID returns the record or nil when none exists.
func (r *AudioRepository) GetByID(ctx context.Context, id uuid.UUID) (*types.Audio, error) {
	query := `
	SELECT id, filename, content_type, status, created_at
	FROM audio WHERE id = ?
	`
	audio, err := scanAudio(r.db.QueryRowContext(ctx, query, id.String()))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get audio %s: %w", id, err)
	}
	return audio, nil
}

// MarkDone flips the record to done. Repeating it, or calling it for an
// unknown id, is a no-op.
func (r *AudioRepository) MarkDone(ctx context.Context, id uuid.UUID) error {
	err := RetryOnBusy(ctx, func() error {
		_, err := r.db.ExecContext(ctx, `UPDATE audio SET status = ? WHERE id = ?`,
			string(types.StatusDone), id.String())
		return err
	})
	if err != nil {
		return fmt.Errorf("failed to mark audio %s done: %w", id, err)
	}
	return nil
}

// List returns up to limit records, newest first.
func (r *AudioRepository) List(ctx context.Context, limit int) ([]types.Audio, error) {
	query := `
	SELECT id, filename, content_type, status, created_at
	FROM audio ORDER BY created_at DESC LIMIT ?
	`
	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list audio: %w", err)
	}
	defer rows.Close()

	var out []types.Audio
	for rows.Next() {
		audio, err := scanAudio(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan audio: %w", err)
		}
		out = append(out, *audio)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanAudio(row scanner) (*types.Audio, error) {
	var (
		id, filename, contentType, status, createdAt string
	)
	if err := row.Scan(&id, &filename, &contentType, &status, &createdAt); err != nil {
		return nil, err
	}

	parsedID, err := uuid.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("parse id %q: %w", id, err)
	}
	created, err := ParseTime(createdAt)
	if err != nil {
		return nil, fmt.Errorf("parse created_at %q: %w", createdAt, err)
	}
	if !types.Status(status).Valid() {
		return nil, fmt.Errorf("audio %s: unknown status %q", id, status)
	}
	return &types.Audio{
		ID:          parsedID,
		Filename:    filename,
		ContentType: contentType,
		Status:      types.Status(status),
		CreatedAt:   created,
	}, nil
}
