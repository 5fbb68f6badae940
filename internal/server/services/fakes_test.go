package services

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/leftoverchef/internal/common"
	"github.com/dmitrijs2005/leftoverchef/internal/dbx"
	"github.com/dmitrijs2005/leftoverchef/internal/server/inference"
	"github.com/dmitrijs2005/leftoverchef/internal/server/lockout"
	"github.com/dmitrijs2005/leftoverchef/internal/server/models"
	"github.com/dmitrijs2005/leftoverchef/internal/server/repositories/predictions"
	"github.com/dmitrijs2005/leftoverchef/internal/server/repositories/users"
)

// --- helpers ---

func newSQLMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db, mock
}

// --- users ---

type memUsers struct {
	mu     sync.Mutex
	byID   map[string]*models.User
	getErr error
}

func newMemUsers() *memUsers { return &memUsers{byID: map[string]*models.User{}} }

func (r *memUsers) Create(ctx context.Context, u *models.User) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, x := range r.byID {
		if x.Email == u.Email {
			return nil, common.ErrDuplicateEmail
		}
	}
	now := time.Now()
	cp := *u
	cp.CreatedAt, cp.UpdatedAt = now, now
	r.byID[u.ID] = &cp
	out := cp
	return &out, nil
}

func (r *memUsers) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.getErr != nil {
		return nil, r.getErr
	}
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

func (r *memUsers) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.byID)
}

// --- predictions ---

type memPredictions struct {
	mu        sync.Mutex
	rows      []*models.Prediction
	clock     time.Time
	createErr error
}

func newMemPredictions() *memPredictions {
	return &memPredictions{clock: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (r *memPredictions) Create(ctx context.Context, p *models.Prediction) (*models.Prediction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.createErr != nil {
		return nil, r.createErr
	}
	r.clock = r.clock.Add(time.Second)
	cp := *p
	cp.CreatedAt, cp.UpdatedAt = r.clock, r.clock
	r.rows = append(r.rows, &cp)
	out := cp
	return &out, nil
}

func (r *memPredictions) owned(userID string) []*models.Prediction {
	out := make([]*models.Prediction, 0)
	for _, p := range r.rows {
		if p.UserID == userID {
			out = append(out, p)
		}
	}
	return out
}

func (r *memPredictions) ListByUser(ctx context.Context, userID string, offset, limit int) ([]*models.Prediction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rows := r.owned(userID)
	sort.SliceStable(rows, func(i, j int) bool { return rows[i].CreatedAt.After(rows[j].CreatedAt) })
	if offset > len(rows) {
		offset = len(rows)
	}
	rows = rows[offset:]
	if limit > 0 && limit < len(rows) {
		rows = rows[:limit]
	}
	return rows, nil
}

func (r *memPredictions) CountByUser(ctx context.Context, userID string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return int64(len(r.owned(userID))), nil
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
	rows := r.owned(userID)
	sort.SliceStable(rows, func(i, j int) bool { return rows[i].CreatedAt.Before(rows[j].CreatedAt) })
	out := make([][]models.PredictionItem, 0, len(rows))
	for _, p := range rows {
		out = append(out, p.Items)
	}
	return out, nil
}

// --- repo manager ---

type fakeRepoManager struct {
	u *memUsers
	p *memPredictions
}

func newFakeRepoManager() *fakeRepoManager {
	return &fakeRepoManager{u: newMemUsers(), p: newMemPredictions()}
}

func (m *fakeRepoManager) RunMigrations(context.Context, *sql.DB) error   { return nil }
func (m *fakeRepoManager) Users(db dbx.DBTX) users.Repository             { return m.u }
func (m *fakeRepoManager) Predictions(db dbx.DBTX) predictions.Repository { return m.p }

// --- image store ---

type memStore struct {
	mu        sync.Mutex
	objects   map[string][]byte
	putErr    error
	deleteErr error
	deleted   []string
}

func newMemStore() *memStore { return &memStore{objects: map[string][]byte{}} }

func (s *memStore) Name() string { return "mem" }

func (s *memStore) Put(ctx context.Context, name, contentType string, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.putErr != nil {
		return s.putErr
	}
	s.objects[name] = data
	return nil
}

func (s *memStore) Delete(ctx context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deleted = append(s.deleted, name)
	if s.deleteErr != nil {
		return s.deleteErr
	}
	delete(s.objects, name)
	return nil
}

func (s *memStore) Serve(w http.ResponseWriter, r *http.Request, name string) {
	http.NotFound(w, r)
}

func (s *memStore) len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.objects)
}

// --- inference ---

type fakeProvider struct {
	result *inference.Result
	err    error
	calls  int
}

func (p *fakeProvider) Name() string { return "fake" }

func (p *fakeProvider) Predict(ctx context.Context, img inference.Image) (*inference.Result, error) {
	p.calls++
	return p.result, p.err
}

// --- password hashing ---

// plainHasher keeps tests fast; bcrypt is covered in the auth package.
type plainHasher struct{}

func (plainHasher) Hash(password string) ([]byte, error) { return []byte("h:" + password), nil }
func (plainHasher) Compare(hash []byte, password string) bool {
	return strings.TrimPrefix(string(hash), "h:") == password && strings.HasPrefix(string(hash), "h:")
}

// --- lockout ---

type memLockout struct {
	mu     sync.Mutex
	states map[string]lockout.State
	err    error
}

func newMemLockout() *memLockout { return &memLockout{states: map[string]lockout.State{}} }

func (l *memLockout) Get(ctx context.Context, key string) (lockout.State, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.err != nil {
		return lockout.State{}, l.err
	}
	return l.states[key], nil
}

func (l *memLockout) RecordFailure(ctx context.Context, key string, now time.Time, threshold int, window time.Duration) (lockout.State, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.err != nil {
		return lockout.State{}, l.err
	}
	st := l.states[key]
	st.FailedCount++
	if st.FailedCount >= threshold {
		until := now.Add(window)
		st.LockedUntil = &until
	}
	l.states[key] = st
	return st, nil
}

func (l *memLockout) Clear(ctx context.Context, key string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.err != nil {
		return l.err
	}
	delete(l.states, key)
	return nil
}

var errBoom = errors.New("boom")
