package users

import (
	"context"

	"github.com/dmitrijs2005/labandina/internal/server/models"
)

// Repository is the user store. Create and Update return
// common.ErrLoginAlreadyExists when the email or username is taken.
type Repository interface {
	Create(ctx context.Context, user *models.User) (*models.User, error)
	// GetUserByLogin matches login against the email (case-insensitive) or
	// the username.
	GetUserByLogin(ctx context.Context, login string) (*models.User, error)
	GetByID(ctx context.Context, id string) (*models.User, error)
	Update(ctx context.Context, user *models.User) (*models.User, error)
}
