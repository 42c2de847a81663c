package compositions

import (
	"context"

	"github.com/dmitrijs2005/labandina/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, c *models.Composition) (*models.Composition, error)
	GetByID(ctx context.Context, id string) (*models.Composition, error)
	GetByIDForUpdate(ctx context.Context, id string) (*models.Composition, error)
	ListByOwner(ctx context.Context, ownerID string, limit, offset int) ([]*models.Composition, error)
	ListPublic(ctx context.Context, limit, offset int) ([]*models.Composition, error)
	Update(ctx context.Context, c *models.Composition) error
	Delete(ctx context.Context, id string) error
}
