// Package recordings stores users' recorded performances in PostgreSQL.
package recordings

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/labandina/internal/common"
	"github.com/dmitrijs2005/labandina/internal/dbx"
	"github.com/dmitrijs2005/labandina/internal/server/models"
)

// PostgresRepository implements recording storage over a dbx.DBTX (*sql.DB or *sql.Tx).
type PostgresRepository struct {
	db dbx.DBTX
}

// NewPostgresRepository constructs a repository bound to the given DBTX.
func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const selectColumns = `id, user_id, title, description, notes, duration, tempo, category, midi_key, created_at, updated_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanRecording(s scanner) (*models.Recording, error) {
	var (
		rec     models.Recording
		notes   []byte
		midiKey sql.NullString
	)
	if err := s.Scan(
		&rec.ID, &rec.UserID, &rec.Title, &rec.Description, &notes,
		&rec.Duration, &rec.Tempo, &rec.Category, &midiKey, &rec.CreatedAt, &rec.UpdatedAt,
	); err != nil {
		return nil, err
	}
	if len(notes) > 0 {
		if err := json.Unmarshal(notes, &rec.Notes); err != nil {
			return nil, fmt.Errorf("decode notes of recording %s: %w", rec.ID, err)
		}
	}
	rec.MIDIKey = midiKey.String
	return &rec, nil
}

func (r *PostgresRepository) Create(ctx context.Context, rec *models.Recording) (*models.Recording, error) {
	notes, err := json.Marshal(nonNilNotes(rec.Notes))
	if err != nil {
		return nil, fmt.Errorf("encode notes: %w", err)
	}

	query := `
		INSERT INTO recordings (user_id, title, description, notes, duration, tempo, category)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at, updated_at
	`
	err = r.db.QueryRowContext(ctx, query,
		rec.UserID, rec.Title, rec.Description, notes, rec.Duration, rec.Tempo, rec.Category).
		Scan(&rec.ID, &rec.CreatedAt, &rec.UpdatedAt)
	if err != nil {
		if dbx.IsForeignKeyViolation(err) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return rec, nil
}

func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*models.Recording, error) {
	return r.getOne(ctx, `SELECT `+selectColumns+` FROM recordings WHERE id = $1`, id)
}

// GetByIDForUpdate locks the row for the rest of the transaction.
func (r *PostgresRepository) GetByIDForUpdate(ctx context.Context, id string) (*models.Recording, error) {
	return r.getOne(ctx, `SELECT `+selectColumns+` FROM recordings WHERE id = $1 FOR UPDATE`, id)
}

func (r *PostgresRepository) getOne(ctx context.Context, query, id string) (*models.Recording, error) {
	rec, err := scanRecording(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) || dbx.IsInvalidInput(err) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return rec, nil
}

// List pages with LIMIT/OFFSET; an empty f.Category matches every category.
func (r *PostgresRepository) List(ctx context.Context, userID string, f models.RecordingFilter) ([]*models.Recording, int, error) {
	var total int
	countQuery := `
		SELECT count(*) FROM recordings
		WHERE user_id = $1 AND ($2 = '' OR category = $2)
	`
	if err := r.db.QueryRowContext(ctx, countQuery, userID, f.Category).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("db error: %w", err)
	}

	query := `SELECT ` + selectColumns + ` FROM recordings
		WHERE user_id = $1 AND ($2 = '' OR category = $2)
		ORDER BY created_at DESC
		LIMIT $3 OFFSET $4
	`
	offset := (f.Page - 1) * f.PerPage
	rows, err := r.db.QueryContext(ctx, query, userID, f.Category, f.PerPage, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to select recordings: %w", err)
	}
	defer rows.Close()

	result := []*models.Recording{}
	for rows.Next() {
		rec, err := scanRecording(rows)
		if err != nil {
			return nil, 0, err
		}
		result = append(result, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return result, total, nil
}

func (r *PostgresRepository) Categories(ctx context.Context, userID string) ([]string, error) {
	query := `
		SELECT DISTINCT category FROM recordings
		WHERE user_id = $1 AND category <> ''
		ORDER BY category
	`
	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to select categories: %w", err)
	}
	defer rows.Close()

	result := []string{}
	for rows.Next() {
		var c string
		if err := rows.Scan(&c); err != nil {
			return nil, err
		}
		result = append(result, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// Update writes title, description, tempo and category. Notes and duration
// are fixed once recorded.
func (r *PostgresRepository) Update(ctx context.Context, rec *models.Recording) error {
	query := `
		UPDATE recordings
		SET title = $2, description = $3, tempo = $4, category = $5, updated_at = now()
		WHERE id = $1
		RETURNING updated_at
	`
	err := r.db.QueryRowContext(ctx, query, rec.ID, rec.Title, rec.Description, rec.Tempo, rec.Category).
		Scan(&rec.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return common.ErrorNotFound
		}
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) Delete(ctx context.Context, id string) error {
	return dbx.DeleteOne(ctx, r.db, `DELETE FROM recordings WHERE id = $1`, id)
}

// SetMIDIKey records the object-storage key of the recording's MIDI file.
// Exactly one row must be affected.
func (r *PostgresRepository) SetMIDIKey(ctx context.Context, id, key string) error {
	query := `UPDATE recordings SET midi_key = $2, updated_at = now() WHERE id = $1`
	result, err := r.db.ExecContext(ctx, query, id, key)
	if err != nil {
		return fmt.Errorf("failed to set midi key: %w", err)
	}
	ra, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if ra == 0 {
		return common.ErrorNotFound
	}
	if ra != 1 {
		return fmt.Errorf("wrong rows affected count: %d", ra)
	}
	return nil
}

func nonNilNotes(n []models.RecordedNote) []models.RecordedNote {
	if n == nil {
		return []models.RecordedNote{}
	}
	return n
}
