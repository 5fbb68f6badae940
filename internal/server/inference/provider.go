// Package inference turns image bytes into labelled confidence scores, either
// through an external HTTP model service or a local mock generator.
package inference

import (
	"context"

	"github.com/dmitrijs2005/leftoverchef/internal/server/models"
)

// Image is the payload handed to a provider.
type Image struct {
	Filename    string
	ContentType string
	Data        []byte
}

// Result is a parsed but not yet validated inference answer.
type Result struct {
	Shape     Shape
	Items     []models.PredictionItem
	Freshness *models.Freshness
}

// Provider is selected once at startup.
type Provider interface {
	Predict(ctx context.Context, img Image) (*Result, error)
	// Name is "http" or "mock".
	Name() string
}
