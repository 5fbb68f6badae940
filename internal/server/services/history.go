package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/dmitrijs2005/leftoverchef/internal/common"
	"github.com/dmitrijs2005/leftoverchef/internal/dbx"
	"github.com/dmitrijs2005/leftoverchef/internal/logging"
	"github.com/dmitrijs2005/leftoverchef/internal/server/models"
	"github.com/dmitrijs2005/leftoverchef/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/leftoverchef/internal/server/storage"
	"github.com/google/uuid"
)

const (
	DefaultPageSize = 10
	MaxPageSize     = 50
	topLabelsLimit  = 5

	// MaxPage keeps (page-1)*limit inside int.
	MaxPage = math.MaxInt / MaxPageSize
)

// Page is one slice of a user's history.
type Page struct {
	Records    []*models.Prediction
	Pagination models.Pagination
}

// HistoryService reads and deletes a user's predictions. Every operation is
// scoped to the owner; foreign and missing records look the same.
type HistoryService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	images      storage.Store
	logger      logging.Logger
}

func NewHistoryService(db *sql.DB, m repomanager.RepositoryManager, images storage.Store, logger logging.Logger) *HistoryService {
	return &HistoryService{
		db:          db,
		repomanager: m,
		images:      images,
		logger:      logger.With("module", "history_service"),
	}
}

// List returns all records of the owner, newest first.
func (s *HistoryService) List(ctx context.Context, ownerID string) ([]*models.Prediction, error) {
	return s.repomanager.Predictions(s.db).ListByUser(ctx, ownerID, 0, 0)
}

// ClampPage forces page into [1, MaxPage] and limit into [1, MaxPageSize].
// A non-positive limit means DefaultPageSize.
func ClampPage(page, limit int) (int, int) {
	if page < 1 {
		page = 1
	}
	if page > MaxPage {
		page = MaxPage
	}
	if limit < 1 {
		limit = DefaultPageSize
	}
	if limit > MaxPageSize {
		limit = MaxPageSize
	}
	return page, limit
}

func (s *HistoryService) ListPaged(ctx context.Context, ownerID string, page, limit int) (*Page, error) {
	page, limit = ClampPage(page, limit)
	repo := s.repomanager.Predictions(s.db)

	total, err := repo.CountByUser(ctx, ownerID)
	if err != nil {
		return nil, err
	}

	records, err := repo.ListByUser(ctx, ownerID, (page-1)*limit, limit)
	if err != nil {
		return nil, err
	}

	return &Page{Records: records, Pagination: paginate(page, limit, total)}, nil
}

func paginate(page, limit int, total int64) models.Pagination {
	totalPages := int((total + int64(limit) - 1) / int64(limit))
	return models.Pagination{
		CurrentPage:  page,
		TotalPages:   totalPages,
		TotalItems:   total,
		ItemsPerPage: limit,
		HasNextPage:  page < totalPages,
		HasPrevPage:  page > 1,
	}
}

// ParseID rejects ids that are not UUIDs with common.ErrInvalidID.
func ParseID(id string) (string, error) {
	u, err := uuid.Parse(id)
	if err != nil {
		return "", common.ErrInvalidID
	}
	return u.String(), nil
}

func (s *HistoryService) GetByID(ctx context.Context, ownerID, id string) (*models.Prediction, error) {
	id, err := ParseID(id)
	if err != nil {
		return nil, err
	}
	p, err := s.repomanager.Predictions(s.db).GetForUser(ctx, id, ownerID)
	if err != nil {
		return nil, ownership(err)
	}
	return p, nil
}

// DeleteByID removes the record; removing its image is best effort.
func (s *HistoryService) DeleteByID(ctx context.Context, ownerID, id string) error {
	id, err := ParseID(id)
	if err != nil {
		return err
	}
	path, err := s.repomanager.Predictions(s.db).DeleteForUser(ctx, id, ownerID)
	if err != nil {
		return ownership(err)
	}

	s.logger.Info(ctx, "prediction deleted", "prediction_id", id, "user_id", ownerID)
	s.removeImages(ctx, []string{path})
	return nil
}

// DeleteAll removes every record of the owner and returns how many went away.
func (s *HistoryService) DeleteAll(ctx context.Context, ownerID string) (int64, error) {
	var paths []string
	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		var err error
		paths, err = s.repomanager.Predictions(tx).DeleteAllForUser(ctx, ownerID)
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("error clearing history: %w", err)
	}

	s.logger.Info(ctx, "history cleared", "user_id", ownerID, "deleted", len(paths))
	s.removeImages(ctx, paths)
	return int64(len(paths)), nil
}

// Stats aggregates the owner's history.
func (s *HistoryService) Stats(ctx context.Context, ownerID string) (*models.PredictionStats, error) {
	itemLists, err := s.repomanager.Predictions(s.db).ItemsByUser(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	return ComputeStats(itemLists), nil
}

// ComputeStats counts label occurrences over records given oldest first.
// Ranking is by count descending; ties keep first-seen order.
func ComputeStats(itemLists [][]models.PredictionItem) *models.PredictionStats {
	counts := map[string]int{}
	order := make([]string, 0)

	for _, items := range itemLists {
		for _, it := range items {
			if _, ok := counts[it.Name]; !ok {
				order = append(order, it.Name)
			}
			counts[it.Name]++
		}
	}

	ranked := make([]models.LabelCount, 0, len(order))
	for _, name := range order {
		ranked = append(ranked, models.LabelCount{Name: name, Count: counts[name]})
	}
	sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].Count > ranked[j].Count })
	if len(ranked) > topLabelsLimit {
		ranked = ranked[:topLabelsLimit]
	}

	return &models.PredictionStats{
		TotalPredictions:  int64(len(itemLists)),
		UniqueIngredients: len(order),
		TopIngredients:    ranked,
	}
}

func ownership(err error) error {
	if errors.Is(err, common.ErrorNotFound) {
		return common.ErrNotFoundOrForbidden
	}
	return err
}

func (s *HistoryService) removeImages(ctx context.Context, paths []string) {
	ctx = context.WithoutCancel(ctx)
	for _, p := range paths {
		name, err := storage.NameFromPath(p)
		if err != nil {
			s.logger.Warn(ctx, "skipping image cleanup", "image_path", p, "error", err)
			continue
		}
		if err := s.images.Delete(ctx, name); err != nil {
			s.logger.Warn(ctx, "image cleanup failed", "image_path", p, "error", err)
		}
	}
}
