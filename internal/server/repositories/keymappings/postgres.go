// Package keymappings stores keyboard layout presets in PostgreSQL.
package keymappings

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

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Create returns common.ErrAlreadyExists when a second "default" preset is
// inserted for the same user.
func (r *PostgresRepository) Create(ctx context.Context, m *models.KeyMapping) (*models.KeyMapping, error) {
	query := `
		INSERT INTO key_mappings (user_id, name, mapping_data)
		VALUES ($1, $2, $3)
		RETURNING id, created_at, updated_at
	`
	err := r.db.QueryRowContext(ctx, query, m.UserID, m.Name, []byte(m.MappingData)).
		Scan(&m.ID, &m.CreatedAt, &m.UpdatedAt)
	if err != nil {
		if dbx.IsUniqueViolation(err) {
			return nil, common.ErrAlreadyExists
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return m, nil
}

func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*models.KeyMapping, error) {
	query := `
		SELECT id, user_id, name, mapping_data, created_at, updated_at
		FROM key_mappings
		WHERE id = $1
	`
	return r.getOne(ctx, query, id)
}

func (r *PostgresRepository) GetByIDForUpdate(ctx context.Context, id string) (*models.KeyMapping, error) {
	query := `
		SELECT id, user_id, name, mapping_data, created_at, updated_at
		FROM key_mappings
		WHERE id = $1
		FOR UPDATE
	`
	return r.getOne(ctx, query, id)
}

func (r *PostgresRepository) GetByName(ctx context.Context, userID, name string) (*models.KeyMapping, error) {
	query := `
		SELECT id, user_id, name, mapping_data, created_at, updated_at
		FROM key_mappings
		WHERE user_id = $1 AND name = $2
		ORDER BY created_at
		LIMIT 1
	`
	return r.getOne(ctx, query, userID, name)
}

func (r *PostgresRepository) getOne(ctx context.Context, query string, args ...any) (*models.KeyMapping, error) {
	m := &models.KeyMapping{}
	var data []byte
	err := r.db.QueryRowContext(ctx, query, args...).Scan(&m.ID, &m.UserID, &m.Name, &data, &m.CreatedAt, &m.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) || dbx.IsInvalidInput(err) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	m.MappingData = json.RawMessage(data)
	return m, nil
}

func (r *PostgresRepository) ListByUser(ctx context.Context, userID string) ([]*models.KeyMapping, error) {
	query := `
		SELECT id, user_id, name, mapping_data, created_at, updated_at
		FROM key_mappings
		WHERE user_id = $1
		ORDER BY name
	`
	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to select key mappings: %w", err)
	}
	defer rows.Close()

	result := []*models.KeyMapping{}
	for rows.Next() {
		var (
			item models.KeyMapping
			data []byte
		)
		if err := rows.Scan(&item.ID, &item.UserID, &item.Name, &data, &item.CreatedAt, &item.UpdatedAt); err != nil {
			return nil, err
		}
		item.MappingData = json.RawMessage(data)
		result = append(result, &item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (r *PostgresRepository) Update(ctx context.Context, m *models.KeyMapping) error {
	query := `
		UPDATE key_mappings
		SET name = $2, mapping_data = $3, updated_at = now()
		WHERE id = $1
		RETURNING updated_at
	`
	err := r.db.QueryRowContext(ctx, query, m.ID, m.Name, []byte(m.MappingData)).Scan(&m.UpdatedAt)
	if err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			return common.ErrorNotFound
		case dbx.IsUniqueViolation(err):
			return common.ErrAlreadyExists
		}
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) Delete(ctx context.Context, id string) error {
	return dbx.DeleteOne(ctx, r.db, `DELETE FROM key_mappings WHERE id = $1`, id)
}

func (r *PostgresRepository) UpsertDefault(ctx context.Context, userID string, data json.RawMessage) (*models.KeyMapping, error) {
	query := `
		INSERT INTO key_mappings (user_id, name, mapping_data)
		VALUES ($1, 'default', $2)
		ON CONFLICT (user_id) WHERE name = 'default'
		DO UPDATE SET
			mapping_data = EXCLUDED.mapping_data,
			updated_at = now()
		RETURNING id, user_id, name, mapping_data, created_at, updated_at
	`
	m := &models.KeyMapping{}
	var raw []byte
	err := r.db.QueryRowContext(ctx, query, userID, []byte(data)).
		Scan(&m.ID, &m.UserID, &m.Name, &raw, &m.CreatedAt, &m.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	m.MappingData = json.RawMessage(raw)
	return m, nil
}
