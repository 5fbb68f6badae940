// Package httpapi exposes the LeftOverChef services over REST.
package httpapi

import (
	"context"
	"time"

	"github.com/dmitrijs2005/leftoverchef/internal/logging"
	"github.com/dmitrijs2005/leftoverchef/internal/server/auth"
	"github.com/dmitrijs2005/leftoverchef/internal/server/models"
	"github.com/dmitrijs2005/leftoverchef/internal/server/services"
	"github.com/dmitrijs2005/leftoverchef/internal/server/storage"
)

// Accounts is implemented by services.AuthService.
type Accounts interface {
	Register(ctx context.Context, in services.RegisterInput) (*services.AuthResult, error)
	Login(ctx context.Context, in services.LoginInput) (*services.AuthResult, error)
	GetByID(ctx context.Context, id string) (*models.UserView, error)
	UpdateProfile(ctx context.Context, id string, in services.ProfileInput) (*models.UserView, error)
	ChangePassword(ctx context.Context, id string, in services.PasswordInput) error
}

// TokenVerifier is implemented by auth.TokenService.
type TokenVerifier interface {
	Verify(token string) (*auth.Identity, error)
}

// Ingestor is implemented by services.IngestionService.
type Ingestor interface {
	Submit(ctx context.Context, ownerID string, up services.Upload) (*models.Prediction, error)
}

// History is implemented by services.HistoryService.
type History interface {
	List(ctx context.Context, ownerID string) ([]*models.Prediction, error)
	ListPaged(ctx context.Context, ownerID string, page, limit int) (*services.Page, error)
	GetByID(ctx context.Context, ownerID, id string) (*models.Prediction, error)
	DeleteByID(ctx context.Context, ownerID, id string) error
	DeleteAll(ctx context.Context, ownerID string) (int64, error)
	Stats(ctx context.Context, ownerID string) (*models.PredictionStats, error)
}

// Deps wires the handler. Provider is the name of the inference provider in
// use; MLConfigured reports whether it talks to a real service.
type Deps struct {
	Accounts       Accounts
	Tokens         TokenVerifier
	Ingestion      Ingestor
	History        History
	Images         storage.Store
	MaxUploadBytes int64
	Provider       string
	MLConfigured   bool
	AllowedOrigins []string
	Logger         logging.Logger
}

// Handler holds the HTTP handlers. Build it with NewHandler and mount it with
// NewRouter.
type Handler struct {
	accounts     Accounts
	tokens       TokenVerifier
	ingestion    Ingestor
	history      History
	images       storage.Store
	maxBytes     int64
	provider     string
	mlConfigured bool
	origins      []string
	logger       logging.Logger
	started      time.Time
	now          func() time.Time
}

func NewHandler(d Deps) *Handler {
	logger := d.Logger
	if logger == nil {
		logger = logging.Nop{}
	}
	origins := d.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	return &Handler{
		accounts:     d.Accounts,
		tokens:       d.Tokens,
		ingestion:    d.Ingestion,
		history:      d.History,
		images:       d.Images,
		maxBytes:     d.MaxUploadBytes,
		provider:     d.Provider,
		mlConfigured: d.MLConfigured,
		origins:      origins,
		logger:       logger.With("module", "http_api"),
		started:      time.Now(),
		now:          time.Now,
	}
}
