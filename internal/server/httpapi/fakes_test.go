package httpapi

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/leftoverchef/internal/common"
	"github.com/dmitrijs2005/leftoverchef/internal/dbx"
	"github.com/dmitrijs2005/leftoverchef/internal/logging"
	"github.com/dmitrijs2005/leftoverchef/internal/server/auth"
	"github.com/dmitrijs2005/leftoverchef/internal/server/config"
	"github.com/dmitrijs2005/leftoverchef/internal/server/inference"
	"github.com/dmitrijs2005/leftoverchef/internal/server/lockout"
	"github.com/dmitrijs2005/leftoverchef/internal/server/models"
	"github.com/dmitrijs2005/leftoverchef/internal/server/repositories/predictions"
	"github.com/dmitrijs2005/leftoverchef/internal/server/repositories/users"
	"github.com/dmitrijs2005/leftoverchef/internal/server/services"
	"github.com/dmitrijs2005/leftoverchef/internal/server/storage"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret"

var pngBytes = append([]byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR"), make([]byte, 64)...)

// --- in-memory repositories ---

type memUsers struct {
	mu   sync.Mutex
	byID map[string]*models.User
}

func (r *memUsers) Create(ctx context.Context, u *models.User) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, x := range r.byID {
		if x.Email == u.Email {
			return nil, common.ErrDuplicateEmail
		}
	}
	cp := *u
	cp.CreatedAt, cp.UpdatedAt = time.Now(), time.Now()
	r.byID[u.ID] = &cp
	out := cp
	return &out, nil
}

func (r *memUsers) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, x := range r.byID {
		if x.Email == email {
			out := *x
			return &out, nil
		}
	}
	return nil, common.ErrorNotFound
}

func (r *memUsers) GetByID(ctx context.Context, id string) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if x, ok := r.byID[id]; ok {
		out := *x
		return &out, nil
	}
	return nil, common.ErrorNotFound
}

func (r *memUsers) UpdateProfile(ctx context.Context, u *models.User) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	x, ok := r.byID[u.ID]
	if !ok {
		return nil, common.ErrorNotFound
	}
	x.Name, x.Email, x.UpdatedAt = u.Name, u.Email, time.Now()
	out := *x
	return &out, nil
}

func (r *memUsers) UpdatePassword(ctx context.Context, id string, hash []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	x, ok := r.byID[id]
	if !ok {
		return common.ErrorNotFound
	}
	x.PasswordHash = hash
	return nil
}

func (r *memUsers) remove(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.byID, id)
}

type memPredictions struct {
	mu    sync.Mutex
	rows  []*models.Prediction
	clock time.Time
}

func (r *memPredictions) Create(ctx context.Context, p *models.Prediction) (*models.Prediction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.clock = r.clock.Add(time.Second)
	cp := *p
	cp.CreatedAt, cp.UpdatedAt = r.clock, r.clock
	r.rows = append(r.rows, &cp)
	out := cp
	return &out, nil
}

func (r *memPredictions) owned(userID string, newestFirst bool) []*models.Prediction {
	out := make([]*models.Prediction, 0)
	for _, p := range r.rows {
		if p.UserID == userID {
			out = append(out, p)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if newestFirst {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

func (r *memPredictions) ListByUser(ctx context.Context, userID string, offset, limit int) ([]*models.Prediction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rows := r.owned(userID, true)
	rows = rows[min(offset, len(rows)):]
	if limit > 0 && limit < len(rows) {
		rows = rows[:limit]
	}
	return rows, nil
}

func (r *memPredictions) CountByUser(ctx context.Context, userID string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return int64(len(r.owned(userID, true))), nil
}

func (r *memPredictions) GetForUser(ctx context.Context, id, userID string) (*models.Prediction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range r.rows {
		if p.ID == id && p.UserID == userID {
			out := *p
			return &out, nil
		}
	}
	return nil, common.ErrorNotFound
}

func (r *memPredictions) DeleteForUser(ctx context.Context, id, userID string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, p := range r.rows {
		if p.ID == id && p.UserID == userID {
			r.rows = append(r.rows[:i], r.rows[i+1:]...)
			return p.ImagePath, nil
		}
	}
	return "", common.ErrorNotFound
}

func (r *memPredictions) DeleteAllForUser(ctx context.Context, userID string) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	paths := make([]string, 0)
	kept := r.rows[:0]
	for _, p := range r.rows {
		if p.UserID == userID {
			paths = append(paths, p.ImagePath)
			continue
		}
		kept = append(kept, p)
	}
	r.rows = kept
	return paths, nil
}

func (r *memPredictions) ItemsByUser(ctx context.Context, userID string) ([][]models.PredictionItem, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([][]models.PredictionItem, 0)
	for _, p := range r.owned(userID, false) {
		out = append(out, p.Items)
	}
	return out, nil
}

type memRepoManager struct {
	users       *memUsers
	predictions *memPredictions
}

func (m *memRepoManager) RunMigrations(context.Context, *sql.DB) error   { return nil }
func (m *memRepoManager) Users(dbx.DBTX) users.Repository             { return m.users }
func (m *memRepoManager) Predictions(dbx.DBTX) predictions.Repository { return m.predictions }

type lockedStore struct{ lockout.Nop }

func (lockedStore) Get(context.Context, string) (lockout.State, error) {
	until := time.Now().Add(time.Hour)
	return lockout.State{FailedCount: 5, LockedUntil: &until}, nil
}

// --- fixture ---

type fixture struct {
	srv    *httptest.Server
	rm     *memRepoManager
	images *storage.DiskStore
	mock   sqlmock.Sqlmock
	tokens *auth.TokenService
}

func newFixture(t *testing.T, lock lockout.Store) *fixture {
	t.Helper()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	images, err := storage.NewDiskStore(t.TempDir())
	require.NoError(t, err)

	rm := &memRepoManager{
		users:       &memUsers{byID: map[string]*models.User{}},
		predictions: &memPredictions{clock: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)},
	}

	cfg := &config.Config{}
	cfg.LoadDefaults()

	tokens := auth.NewTokenService(testSecret, time.Hour)
	logger := logging.Nop{}

	h := NewHandler(Deps{
		Accounts:       services.NewAuthService(db, rm, tokens, lock, cfg, logger),
		Tokens:         tokens,
		Ingestion:      services.NewIngestionService(db, rm, inference.NewMockProvider(7), images, 1<<20, logger),
		History:        services.NewHistoryService(db, rm, images, logger),
		Images:         images,
		MaxUploadBytes: 1 << 20,
		Provider:       "mock",
		Logger:         logger,
	})

	srv := httptest.NewServer(NewRouter(h))
	t.Cleanup(srv.Close)

	return &fixture{srv: srv, rm: rm, images: images, mock: mock, tokens: tokens}
}

// do sends a request and decodes the JSON envelope. body may be nil, a
// *multipartBody, or anything json-encodable.
func (f *fixture) do(t *testing.T, method, path, token string, body any) (int, map[string]any) {
	t.Helper()

	var (
		rd          io.Reader
		contentType string
	)
	switch b := body.(type) {
	case nil:
	case *multipartBody:
		rd, contentType = b.buf, b.contentType
	case string:
		rd, contentType = bytes.NewBufferString(b), "application/json"
	default:
		raw, err := json.Marshal(b)
		require.NoError(t, err)
		rd, contentType = bytes.NewReader(raw), "application/json"
	}

	req, err := http.NewRequest(method, f.srv.URL+path, rd)
	require.NoError(t, err)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := f.srv.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	out := map[string]any{}
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	if len(raw) > 0 {
		require.NoError(t, json.Unmarshal(raw, &out), string(raw))
	}
	return resp.StatusCode, out
}

func (f *fixture) register(t *testing.T, name, email string) (token, id string) {
	t.Helper()
	status, body := f.do(t, http.MethodPost, "/auth/register", "", map[string]string{
		"name": name, "email": email, "password": "secret123",
	})
	require.Equal(t, http.StatusCreated, status, body)
	user := body["user"].(map[string]any)
	return body["token"].(string), user["_id"].(string)
}

type multipartBody struct {
	buf         *bytes.Buffer
	contentType string
}

func newMultipart(t *testing.T, field, filename string, data []byte) *multipartBody {
	t.Helper()
	buf := &bytes.Buffer{}
	mw := multipart.NewWriter(buf)
	fw, err := mw.CreateFormFile(field, filename)
	require.NoError(t, err)
	_, err = fw.Write(data)
	require.NoError(t, err)
	require.NoError(t, mw.Close())
	return &multipartBody{buf: buf, contentType: mw.FormDataContentType()}
}
