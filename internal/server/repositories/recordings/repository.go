package recordings

import (
	"context"

	"github.com/dmitrijs2005/labandina/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, rec *models.Recording) (*models.Recording, error)
	GetByID(ctx context.Context, id string) (*models.Recording, error)
	GetByIDForUpdate(ctx context.Context, id string) (*models.Recording, error)
	// List returns one page of the user's recordings, newest first, and the
	// total number matching the filter.
	List(ctx context.Context, userID string, f models.RecordingFilter) ([]*models.Recording, int, error)
	Categories(ctx context.Context, userID string) ([]string, error)
	Update(ctx context.Context, rec *models.Recording) error
	Delete(ctx context.Context, id string) error
	SetMIDIKey(ctx context.Context, id, key string) error
}
