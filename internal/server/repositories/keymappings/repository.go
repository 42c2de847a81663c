package keymappings

import (
	"context"
	"encoding/json"

	"github.com/dmitrijs2005/labandina/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, m *models.KeyMapping) (*models.KeyMapping, error)
	GetByID(ctx context.Context, id string) (*models.KeyMapping, error)
	GetByIDForUpdate(ctx context.Context, id string) (*models.KeyMapping, error)
	GetByName(ctx context.Context, userID, name string) (*models.KeyMapping, error)
	ListByUser(ctx context.Context, userID string) ([]*models.KeyMapping, error)
	Update(ctx context.Context, m *models.KeyMapping) error
	Delete(ctx context.Context, id string) error
	// UpsertDefault creates or replaces the user's "default" preset.
	UpsertDefault(ctx context.Context, userID string, data json.RawMessage) (*models.KeyMapping, error)
}
