package predictions

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/leftoverchef/internal/common"
	"github.com/dmitrijs2005/leftoverchef/internal/dbx"
	"github.com/dmitrijs2005/leftoverchef/internal/server/models"
)

const selectColumns = `id, user_id, image_path, image_digest, items, freshness, created_at, updated_at`

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, p *models.Prediction) (*models.Prediction, error) {
	items, freshness, err := encode(p)
	if err != nil {
		return nil, err
	}

	query :=
		`INSERT INTO predictions (id, user_id, image_path, image_digest, items, freshness)
		 VALUES ($1, $2, $3, $4, $5::jsonb, $6::jsonb)
		 RETURNING created_at, updated_at
		 `

	err = r.db.QueryRowContext(ctx, query,
		p.ID, p.UserID, p.ImagePath, p.ImageDigest, items, freshness).Scan(&p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return p, nil
}

// ListByUser returns the user's records newest first. A non-positive limit
// returns everything from offset on.
func (r *PostgresRepository) ListByUser(ctx context.Context, userID string, offset, limit int) ([]*models.Prediction, error) {
	query := `SELECT ` + selectColumns + ` FROM predictions
		 WHERE user_id = $1
		 ORDER BY created_at DESC, id DESC
		 OFFSET $2`
	args := []any{userID, offset}
	if limit > 0 {
		query += ` LIMIT $3`
		args = append(args, limit)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	result := make([]*models.Prediction, 0)
	for rows.Next() {
		p, err := scan(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return result, nil
}

func (r *PostgresRepository) CountByUser(ctx context.Context, userID string) (int64, error) {
	var n int64
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM predictions WHERE user_id = $1`, userID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return n, nil
}

func (r *PostgresRepository) GetForUser(ctx context.Context, id, userID string) (*models.Prediction, error) {
	query := `SELECT ` + selectColumns + ` FROM predictions
		 WHERE id = $1 AND user_id = $2`

	p, err := scan(r.db.QueryRowContext(ctx, query, id, userID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, err
	}
	return p, nil
}

// DeleteForUser removes one owned record and returns its image path.
func (r *PostgresRepository) DeleteForUser(ctx context.Context, id, userID string) (string, error) {
	query :=
		`DELETE FROM predictions
		 WHERE id = $1 AND user_id = $2
		 RETURNING image_path
		 `

	var path string
	err := r.db.QueryRowContext(ctx, query, id, userID).Scan(&path)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", common.ErrorNotFound
		}
		return "", fmt.Errorf("db error: %w", err)
	}
	return path, nil
}

// DeleteAllForUser removes every record of the user and returns the image
// paths of the removed rows.
func (r *PostgresRepository) DeleteAllForUser(ctx context.Context, userID string) ([]string, error) {
	query :=
		`DELETE FROM predictions
		 WHERE user_id = $1
		 RETURNING image_path
		 `

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	paths := make([]string, 0)
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		paths = append(paths, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return paths, nil
}

// ItemsByUser returns the item lists of all the user's records, oldest first.
func (r *PostgresRepository) ItemsByUser(ctx context.Context, userID string) ([][]models.PredictionItem, error) {
	query :=
		`SELECT items FROM predictions
		 WHERE user_id = $1
		 ORDER BY created_at ASC, id ASC
		 `

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	result := make([][]models.PredictionItem, 0)
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		var items []models.PredictionItem
		if err := json.Unmarshal(raw, &items); err != nil {
			return nil, fmt.Errorf("decode items: %w", err)
		}
		result = append(result, items)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return result, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scan(s scanner) (*models.Prediction, error) {
	p := &models.Prediction{}
	var items, freshness []byte

	err := s.Scan(&p.ID, &p.UserID, &p.ImagePath, &p.ImageDigest, &items, &freshness, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	if err := json.Unmarshal(items, &p.Items); err != nil {
		return nil, fmt.Errorf("decode items: %w", err)
	}
	if p.Items == nil {
		p.Items = []models.PredictionItem{}
	}
	if len(freshness) > 0 {
		p.Freshness = &models.Freshness{}
		if err := json.Unmarshal(freshness, p.Freshness); err != nil {
			return nil, fmt.Errorf("decode freshness: %w", err)
		}
	}
	return p, nil
}

func encode(p *models.Prediction) (string, sql.NullString, error) {
	items := p.Items
	if items == nil {
		items = []models.PredictionItem{}
	}
	b, err := json.Marshal(items)
	if err != nil {
		return "", sql.NullString{}, fmt.Errorf("encode items: %w", err)
	}

	var freshness sql.NullString
	if p.Freshness != nil {
		f, err := json.Marshal(p.Freshness)
		if err != nil {
			return "", sql.NullString{}, fmt.Errorf("encode freshness: %w", err)
		}
		freshness = sql.NullString{String: string(f), Valid: true}
	}
	return string(b), freshness, nil
}
