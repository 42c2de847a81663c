// Package compositions provides PostgreSQL-backed storage for user
// compositions.
package compositions

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/labandina/internal/common"
	"github.com/dmitrijs2005/labandina/internal/dbx"
	"github.com/dmitrijs2005/labandina/internal/server/models"
)

// PostgresRepository implements composition storage over a dbx.DBTX (*sql.DB or *sql.Tx).
type PostgresRepository struct {
	db dbx.DBTX
}

// NewPostgresRepository constructs a repository bound to the given DBTX.
func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, c *models.Composition) (*models.Composition, error) {
	query := `
		INSERT INTO compositions (owner_id, title, description, composition_data, is_public)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at, updated_at
	`
	err := r.db.QueryRowContext(ctx, query,
		c.OwnerID, c.Title, c.Description, c.CompositionData, c.IsPublic).
		Scan(&c.ID, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		if dbx.IsForeignKeyViolation(err) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return c, nil
}

// GetByID returns common.ErrorNotFound for unknown or malformed ids.
func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*models.Composition, error) {
	query := `
		SELECT id, owner_id, title, description, composition_data, is_public, created_at, updated_at
		FROM compositions
		WHERE id = $1
	`
	return r.getOne(ctx, query, id)
}

// GetByIDForUpdate is GetByID holding a row lock until the surrounding
// transaction ends.
func (r *PostgresRepository) GetByIDForUpdate(ctx context.Context, id string) (*models.Composition, error) {
	query := `
		SELECT id, owner_id, title, description, composition_data, is_public, created_at, updated_at
		FROM compositions
		WHERE id = $1
		FOR UPDATE
	`
	return r.getOne(ctx, query, id)
}

func (r *PostgresRepository) getOne(ctx context.Context, query string, id string) (*models.Composition, error) {
	c := &models.Composition{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&c.ID, &c.OwnerID, &c.Title, &c.Description, &c.CompositionData, &c.IsPublic, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) || dbx.IsInvalidInput(err) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return c, nil
}

// ListByOwner returns the owner's compositions, newest first.
func (r *PostgresRepository) ListByOwner(ctx context.Context, ownerID string, limit, offset int) ([]*models.Composition, error) {
	query := `
		SELECT id, owner_id, title, description, composition_data, is_public, created_at, updated_at
		FROM compositions
		WHERE owner_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`
	return r.list(ctx, query, ownerID, limit, offset)
}

// ListPublic returns compositions shared by any user, newest first.
func (r *PostgresRepository) ListPublic(ctx context.Context, limit, offset int) ([]*models.Composition, error) {
	query := `
		SELECT id, owner_id, title, description, composition_data, is_public, created_at, updated_at
		FROM compositions
		WHERE is_public
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2
	`
	return r.list(ctx, query, limit, offset)
}

func (r *PostgresRepository) list(ctx context.Context, query string, args ...any) ([]*models.Composition, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to select compositions: %w", err)
	}
	defer rows.Close()

	result := []*models.Composition{}
	for rows.Next() {
		var item models.Composition
		if err := rows.Scan(
			&item.ID, &item.OwnerID, &item.Title, &item.Description, &item.CompositionData,
			&item.IsPublic, &item.CreatedAt, &item.UpdatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, &item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// Update overwrites the editable columns of c and refreshes c.UpdatedAt.
func (r *PostgresRepository) Update(ctx context.Context, c *models.Composition) error {
	query := `
		UPDATE compositions
		SET title = $2, description = $3, composition_data = $4, is_public = $5, updated_at = now()
		WHERE id = $1
		RETURNING updated_at
	`
	err := r.db.QueryRowContext(ctx, query, c.ID, c.Title, c.Description, c.CompositionData, c.IsPublic).
		Scan(&c.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return common.ErrorNotFound
		}
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) Delete(ctx context.Context, id string) error {
	return dbx.DeleteOne(ctx, r.db, `DELETE FROM compositions WHERE id = $1`, id)
}
