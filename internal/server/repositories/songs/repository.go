package songs

import (
	"context"

	"github.com/dmitrijs2005/labandina/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, s *models.Song) (*models.Song, error)
	GetByID(ctx context.Context, id string) (*models.Song, error)
	GetByIDForUpdate(ctx context.Context, id string) (*models.Song, error)
	List(ctx context.Context, f models.SongFilter) ([]*models.Song, error)
	Delete(ctx context.Context, id string) error
}
