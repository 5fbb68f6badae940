// Package services contains server-side business logic: authentication,
// prediction ingestion and prediction history.
package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/dmitrijs2005/leftoverchef/internal/common"
	"github.com/dmitrijs2005/leftoverchef/internal/dbx"
	"github.com/dmitrijs2005/leftoverchef/internal/logging"
	"github.com/dmitrijs2005/leftoverchef/internal/server/auth"
	"github.com/dmitrijs2005/leftoverchef/internal/server/config"
	"github.com/dmitrijs2005/leftoverchef/internal/server/lockout"
	"github.com/dmitrijs2005/leftoverchef/internal/server/models"
	"github.com/dmitrijs2005/leftoverchef/internal/server/repositories/repomanager"
	"github.com/google/uuid"
)

// PasswordHasher is implemented by auth.BcryptHasher.
type PasswordHasher interface {
	Hash(password string) ([]byte, error)
	Compare(hash []byte, password string) bool
}

type RegisterInput struct {
	Name     string `json:"name" validate:"required,min=2,max=50"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6,maxbytes72"`
}

type LoginInput struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// ProfileInput is a partial update; nil fields are left alone.
type ProfileInput struct {
	Name  *string `json:"name"`
	Email *string `json:"email"`
}

type PasswordInput struct {
	CurrentPassword string `json:"currentPassword" validate:"required"`
	NewPassword     string `json:"newPassword" validate:"required,min=6,maxbytes72"`
}

// AuthResult is returned by Register and Login.
type AuthResult struct {
	Token string           `json:"token"`
	User  *models.UserView `json:"user"`
}

// AuthService handles registration, login and profile maintenance.
type AuthService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	tokens      *auth.TokenService
	hasher      PasswordHasher
	lockouts    lockout.Store
	maxAttempts int
	window      time.Duration
	logger      logging.Logger
	now         func() time.Time

	dummyOnce sync.Once
	dummyHash []byte
}

func NewAuthService(db *sql.DB, m repomanager.RepositoryManager, tokens *auth.TokenService,
	lockouts lockout.Store, cfg *config.Config, logger logging.Logger) *AuthService {
	if lockouts == nil {
		lockouts = lockout.Nop{}
	}
	return &AuthService{
		db:          db,
		repomanager: m,
		tokens:      tokens,
		hasher:      auth.NewBcryptHasher(),
		lockouts:    lockouts,
		maxAttempts: cfg.LockoutMaxAttempts,
		window:      cfg.LockoutWindow,
		logger:      logger.With("module", "auth_service"),
		now:         time.Now,
	}
}

// Register creates a user and signs them in.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*AuthResult, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Email = normalizeEmail(in.Email)
	if err := validateStruct(in); err != nil {
		return nil, err
	}

	repo := s.repomanager.Users(s.db)

	_, err := repo.GetByEmail(ctx, in.Email)
	switch {
	case err == nil:
		return nil, common.ErrDuplicateEmail
	case !errors.Is(err, common.ErrorNotFound):
		return nil, fmt.Errorf("error looking up user: %w", err)
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, fmt.Errorf("error hashing password: %w", err)
	}

	user, err := repo.Create(ctx, &models.User{
		ID:           uuid.NewString(),
		Name:         in.Name,
		Email:        in.Email,
		PasswordHash: hash,
	})
	if err != nil {
		// a concurrent registration can still win the race at the unique index
		if errors.Is(err, common.ErrDuplicateEmail) {
			return nil, err
		}
		return nil, fmt.Errorf("error creating user: %w", err)
	}

	s.logger.Info(ctx, "user registered", "user_id", user.ID)
	return s.signIn(user)
}

// Login verifies credentials. Unknown email and wrong password are reported
// identically as common.ErrInvalidCredentials.
func (s *AuthService) Login(ctx context.Context, in LoginInput) (*AuthResult, error) {
	in.Email = normalizeEmail(in.Email)
	if err := validateStruct(in); err != nil {
		return nil, err
	}

	now := s.now()
	state, err := s.lockouts.Get(ctx, in.Email)
	if err != nil {
		s.logger.Warn(ctx, "lockout lookup failed", "error", err)
	} else if state.Locked(now) {
		return nil, common.ErrTooManyAttempts
	}

	user, err := s.repomanager.Users(s.db).GetByEmail(ctx, in.Email)
	if err != nil && !errors.Is(err, common.ErrorNotFound) {
		return nil, fmt.Errorf("error looking up user: %w", err)
	}

	if user == nil {
		// same bcrypt cost as a wrong password
		s.hasher.Compare(s.dummy(), in.Password)
		s.recordFailure(ctx, in.Email, now)
		return nil, common.ErrInvalidCredentials
	}
	if !s.hasher.Compare(user.PasswordHash, in.Password) {
		s.recordFailure(ctx, in.Email, now)
		return nil, common.ErrInvalidCredentials
	}

	if err := s.lockouts.Clear(ctx, in.Email); err != nil {
		s.logger.Warn(ctx, "lockout clear failed", "error", err)
	}

	return s.signIn(user)
}

// dummy returns a hash of a throwaway password, computed on first use.
func (s *AuthService) dummy() []byte {
	s.dummyOnce.Do(func() {
		h, err := s.hasher.Hash(uuid.NewString())
		if err != nil {
			h = []byte{}
		}
		s.dummyHash = h
	})
	return s.dummyHash
}

func (s *AuthService) recordFailure(ctx context.Context, key string, now time.Time) {
	state, err := s.lockouts.RecordFailure(ctx, key, now, s.maxAttempts, s.window)
	if err != nil {
		s.logger.Warn(ctx, "lockout record failed", "error", err)
		return
	}
	if state.Locked(now) {
		s.logger.Warn(ctx, "login locked", "failed_count", state.FailedCount)
	}
}

func (s *AuthService) signIn(user *models.User) (*AuthResult, error) {
	token, err := s.tokens.Issue(user.ID, user.Email)
	if err != nil {
		return nil, fmt.Errorf("error issuing token: %w", err)
	}
	return &AuthResult{Token: token, User: user.View()}, nil
}

// GetByID returns the safe view of a user or common.ErrorNotFound.
func (s *AuthService) GetByID(ctx context.Context, id string) (*models.UserView, error) {
	user, err := s.repomanager.Users(s.db).GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return user.View(), nil
}

// UpdateProfile applies a partial name/email change. The email availability
// check and the write share one transaction.
func (s *AuthService) UpdateProfile(ctx context.Context, id string, in ProfileInput) (*models.UserView, error) {
	if in.Name == nil && in.Email == nil {
		return nil, common.ErrNoFieldsProvided
	}

	var check struct {
		Name  *string `validate:"omitnil,min=2,max=50"`
		Email *string `validate:"omitnil,email"`
	}
	if in.Name != nil {
		n := strings.TrimSpace(*in.Name)
		check.Name = &n
	}
	if in.Email != nil {
		e := normalizeEmail(*in.Email)
		check.Email = &e
	}
	if err := validateStruct(check); err != nil {
		return nil, err
	}

	var updated *models.User
	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repomanager.Users(tx)

		user, err := repo.GetByID(ctx, id)
		if err != nil {
			return err
		}

		if check.Email != nil && *check.Email != user.Email {
			other, err := repo.GetByEmail(ctx, *check.Email)
			switch {
			case err == nil && other.ID != id:
				return common.ErrEmailTaken
			case err != nil && !errors.Is(err, common.ErrorNotFound):
				return err
			}
			user.Email = *check.Email
		}
		if check.Name != nil {
			user.Name = *check.Name
		}

		updated, err = repo.UpdateProfile(ctx, user)
		if errors.Is(err, common.ErrDuplicateEmail) {
			return common.ErrEmailTaken
		}
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info(ctx, "profile updated", "user_id", id)
	return updated.View(), nil
}

// ChangePassword replaces the hash after checking the current password.
func (s *AuthService) ChangePassword(ctx context.Context, id string, in PasswordInput) error {
	if err := validateStruct(in); err != nil {
		return err
	}

	repo := s.repomanager.Users(s.db)
	user, err := repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if !s.hasher.Compare(user.PasswordHash, in.CurrentPassword) {
		return common.ErrInvalidCredentials
	}

	hash, err := s.hasher.Hash(in.NewPassword)
	if err != nil {
		return fmt.Errorf("error hashing password: %w", err)
	}
	if err := repo.UpdatePassword(ctx, id, hash); err != nil {
		return err
	}

	s.logger.Info(ctx, "password changed", "user_id", id)
	return nil
}
