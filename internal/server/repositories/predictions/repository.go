package predictions

import (
	"context"

	"github.com/dmitrijs2005/leftoverchef/internal/server/models"
)

// Repository is the prediction record store. Every read and delete is scoped
// by owner; a record belonging to someone else behaves exactly like a missing
// one (common.ErrorNotFound).
type Repository interface {
	Create(ctx context.Context, p *models.Prediction) (*models.Prediction, error)
	ListByUser(ctx context.Context, userID string, offset, limit int) ([]*models.Prediction, error)
	CountByUser(ctx context.Context, userID string) (int64, error)
	GetForUser(ctx context.Context, id, userID string) (*models.Prediction, error)
	DeleteForUser(ctx context.Context, id, userID string) (string, error)
	DeleteAllForUser(ctx context.Context, userID string) ([]string, error)
	ItemsByUser(ctx context.Context, userID string) ([][]models.PredictionItem, error)
}
