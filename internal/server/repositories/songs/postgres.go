// Package songs stores the shared tutorial song catalog in PostgreSQL.
package songs

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

// PostgresRepository implements song storage over a dbx.DBTX (*sql.DB or *sql.Tx).
type PostgresRepository struct {
	db dbx.DBTX
}

// NewPostgresRepository constructs a repository bound to the given DBTX.
func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const selectColumns = `id, created_by, title, artist, difficulty, category, bpm, duration, notes, key_signature, time_signature, description, created_at, updated_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanSong(s scanner) (*models.Song, error) {
	var (
		song      models.Song
		createdBy sql.NullString
		notes     []byte
	)
	if err := s.Scan(
		&song.ID, &createdBy, &song.Title, &song.Artist, &song.Difficulty, &song.Category,
		&song.BPM, &song.Duration, &notes, &song.KeySignature, &song.TimeSignature,
		&song.Description, &song.CreatedAt, &song.UpdatedAt,
	); err != nil {
		return nil, err
	}
	if len(notes) > 0 {
		if err := json.Unmarshal(notes, &song.Notes); err != nil {
			return nil, fmt.Errorf("decode notes of song %s: %w", song.ID, err)
		}
	}
	song.CreatedBy = createdBy.String
	return &song, nil
}

// Create inserts s. An empty CreatedBy is stored as NULL.
func (r *PostgresRepository) Create(ctx context.Context, s *models.Song) (*models.Song, error) {
	notes := s.Notes
	if notes == nil {
		notes = []models.SongNote{}
	}
	data, err := json.Marshal(notes)
	if err != nil {
		return nil, fmt.Errorf("encode notes: %w", err)
	}

	var createdBy sql.NullString
	if s.CreatedBy != "" {
		createdBy = sql.NullString{String: s.CreatedBy, Valid: true}
	}

	query := `
		INSERT INTO songs (created_by, title, artist, difficulty, category, bpm, duration, notes, key_signature, time_signature, description)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING id, created_at, updated_at
	`
	err = r.db.QueryRowContext(ctx, query,
		createdBy, s.Title, s.Artist, s.Difficulty, s.Category, s.BPM, s.Duration, data,
		s.KeySignature, s.TimeSignature, s.Description).
		Scan(&s.ID, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		if dbx.IsForeignKeyViolation(err) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return s, nil
}

func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*models.Song, error) {
	return r.getOne(ctx, `SELECT `+selectColumns+` FROM songs WHERE id = $1`, id)
}

// GetByIDForUpdate locks the row for the rest of the transaction.
func (r *PostgresRepository) GetByIDForUpdate(ctx context.Context, id string) (*models.Song, error) {
	return r.getOne(ctx, `SELECT `+selectColumns+` FROM songs WHERE id = $1 FOR UPDATE`, id)
}

func (r *PostgresRepository) getOne(ctx context.Context, query, id string) (*models.Song, error) {
	song, err := scanSong(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) || dbx.IsInvalidInput(err) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return song, nil
}

// List returns catalog songs newest first.
func (r *PostgresRepository) List(ctx context.Context, f models.SongFilter) ([]*models.Song, error) {
	query := `SELECT ` + selectColumns + ` FROM songs
		WHERE ($1 = '' OR category = $1) AND ($2 = '' OR difficulty = $2)
		ORDER BY created_at DESC
		LIMIT $3 OFFSET $4
	`
	rows, err := r.db.QueryContext(ctx, query, f.Category, f.Difficulty, f.Limit, f.Offset)
	if err != nil {
		return nil, fmt.Errorf("failed to select songs: %w", err)
	}
	defer rows.Close()

	result := []*models.Song{}
	for rows.Next() {
		song, err := scanSong(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, song)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (r *PostgresRepository) Delete(ctx context.Context, id string) error {
	return dbx.DeleteOne(ctx, r.db, `DELETE FROM songs WHERE id = $1`, id)
}
