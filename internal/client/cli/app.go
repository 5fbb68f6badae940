package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/dmitrijs2005/leftoverchef/internal/client/api"
	"github.com/dmitrijs2005/leftoverchef/internal/client/config"
	"github.com/dmitrijs2005/leftoverchef/internal/client/models"
)

// API is the server surface the commands use; *api.Client implements it.
type API interface {
	SetToken(token string)
	Token() string
	Register(ctx context.Context, name, email string, password []byte) (*api.AuthResponse, error)
	Login(ctx context.Context, email string, password []byte) (*api.AuthResponse, error)
	Me(ctx context.Context) (*models.User, error)
	ChangePassword(ctx context.Context, current, next []byte) error
	Predict(ctx context.Context, filename string, data []byte) (*models.Prediction, error)
	History(ctx context.Context, page, limit int) (*models.HistoryPage, error)
	Prediction(ctx context.Context, id string) (*models.Prediction, error)
	DeletePrediction(ctx context.Context, id string) error
	ClearHistory(ctx context.Context) (int64, error)
	Stats(ctx context.Context) (*models.Stats, error)
	Ping(ctx context.Context) error
}

type App struct {
	config   *config.Config
	api      API
	reader   *bufio.Reader
	out      io.Writer
	userName string
}

func NewApp(c *config.Config) *App {
	return &App{config: c, reader: bufio.NewReader(os.Stdin), out: os.Stdout}
}

// Run executes one command line, e.g. os.Args.
func (a *App) Run(ctx context.Context, args []string) error {
	return a.cliApp().RunContext(ctx, args)
}

// connect builds the API client on first use and restores the saved token.
func (a *App) connect() error {
	if a.api == nil {
		a.api = api.New(a.config.ServerURL, a.config.Timeout)
	}
	if a.api.Token() != "" {
		return nil
	}
	token, err := loadSession(a.config.SessionFile)
	if err != nil {
		return err
	}
	a.api.SetToken(token)
	return nil
}

func (a *App) isLoggedIn() bool {
	return a.api != nil && a.api.Token() != ""
}

func (a *App) status() string {
	switch {
	case a.userName != "":
		return "(" + a.userName + ")"
	case a.isLoggedIn():
		return "(logged in)"
	default:
		return ""
	}
}

// explain turns transport and auth failures into something actionable.
func explain(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, api.ErrNotLoggedIn):
		return errors.New("not logged in, run 'login' first")
	case api.IsUnauthorized(err):
		return fmt.Errorf("%w (run 'login' again)", err)
	case errors.Is(err, api.ErrUnavailable):
		return fmt.Errorf("cannot reach server: %w", err)
	default:
		return err
	}
}
