package users

import (
	"context"

	"github.com/dmitrijs2005/leftoverchef/internal/server/models"
)

// Repository is the credential store. Emails are expected to be normalised
// by the caller; uniqueness is enforced by the database.
type Repository interface {
	Create(ctx context.Context, user *models.User) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	GetByID(ctx context.Context, id string) (*models.User, error)
	UpdateProfile(ctx context.Context, user *models.User) (*models.User, error)
	UpdatePassword(ctx context.Context, id string, hash []byte) error
}
