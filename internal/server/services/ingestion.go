package services

import (
	"context"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/leftoverchef/internal/common"
	"github.com/dmitrijs2005/leftoverchef/internal/logging"
	"github.com/dmitrijs2005/leftoverchef/internal/server/inference"
	"github.com/dmitrijs2005/leftoverchef/internal/server/models"
	"github.com/dmitrijs2005/leftoverchef/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/leftoverchef/internal/server/storage"
	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	"github.com/zeebo/blake3"
)

// AllowedImageTypes are the sniffed MIME types accepted for upload.
var AllowedImageTypes = []string{"image/jpeg", "image/png", "image/webp"}

// Upload is an image received from a client. ContentType is what the client
// claimed; the stored type is sniffed from Data.
type Upload struct {
	Filename    string
	ContentType string
	Data        []byte
}

// IngestionService stores an uploaded image, runs inference on it and
// persists the resulting prediction.
type IngestionService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	provider    inference.Provider
	images      storage.Store
	maxBytes    int64
	logger      logging.Logger
	now         func() time.Time
}

func NewIngestionService(db *sql.DB, m repomanager.RepositoryManager, provider inference.Provider,
	images storage.Store, maxBytes int64, logger logging.Logger) *IngestionService {
	return &IngestionService{
		db:          db,
		repomanager: m,
		provider:    provider,
		images:      images,
		maxBytes:    maxBytes,
		logger:      logger.With("module", "ingestion_service"),
		now:         time.Now,
	}
}

// Submit runs the whole pipeline. Once the image is stored, any later
// failure removes it again.
func (s *IngestionService) Submit(ctx context.Context, ownerID string, up Upload) (*models.Prediction, error) {
	if len(up.Data) == 0 {
		return nil, common.ErrMissingFile
	}
	if s.maxBytes > 0 && int64(len(up.Data)) > s.maxBytes {
		return nil, fmt.Errorf("%w: %d bytes exceeds %d", common.ErrFileTooLarge, len(up.Data), s.maxBytes)
	}

	mt := mimetype.Detect(up.Data)
	if !mimetype.EqualsAny(mt.String(), AllowedImageTypes...) {
		return nil, fmt.Errorf("%w: got %s", common.ErrUnsupportedMedia, mt.String())
	}

	name, err := s.imageName(mt.Extension())
	if err != nil {
		return nil, err
	}

	if err := s.images.Put(ctx, name, mt.String(), up.Data); err != nil {
		return nil, fmt.Errorf("error storing image: %w", err)
	}

	p, err := s.predict(ctx, ownerID, name, mt.String(), up.Data)
	if err != nil {
		s.removeImage(ctx, name)
		return nil, err
	}

	s.logger.Info(ctx, "prediction saved", "prediction_id", p.ID, "user_id", ownerID,
		"items", len(p.Items), "provider", s.provider.Name())
	return p, nil
}

func (s *IngestionService) predict(ctx context.Context, ownerID, name, contentType string, data []byte) (*models.Prediction, error) {
	result, err := s.provider.Predict(ctx, inference.Image{Filename: name, ContentType: contentType, Data: data})
	if err != nil {
		if errors.Is(err, common.ErrInferenceUnavailable) || errors.Is(err, common.ErrInvalidInferenceResponse) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %w", common.ErrInferenceUnavailable, err)
	}

	if err := inference.Validate(result); err != nil {
		s.logger.Warn(ctx, "inference result rejected", "error", err)
		return nil, err
	}

	digest := blake3.Sum256(data)
	p := &models.Prediction{
		ID:          uuid.NewString(),
		UserID:      ownerID,
		ImagePath:   storage.PathFor(name),
		ImageDigest: hex.EncodeToString(digest[:]),
		Items:       models.NormalizeItems(result.Items),
		Freshness:   models.EnrichFreshness(result.Freshness),
	}

	saved, err := s.repomanager.Predictions(s.db).Create(ctx, p)
	if err != nil {
		return nil, fmt.Errorf("error saving prediction: %w", err)
	}
	return saved, nil
}

// imageName builds food-<unixmillis>-<hex><ext>.
func (s *IngestionService) imageName(ext string) (string, error) {
	suffix, err := common.MakeRandHexString(6)
	if err != nil {
		return "", fmt.Errorf("error generating image name: %w", err)
	}
	return fmt.Sprintf("food-%d-%s%s", s.now().UnixMilli(), suffix, ext), nil
}

func (s *IngestionService) removeImage(ctx context.Context, name string) {
	if err := s.images.Delete(context.WithoutCancel(ctx), name); err != nil {
		s.logger.Warn(ctx, "image cleanup failed", "image", name, "error", err)
	}
}
