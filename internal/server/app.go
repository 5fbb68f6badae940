// Package server wires the LeftOverChef backend together: database and
// migrations, image storage, inference provider, login lockout, the REST API
// and the gRPC health endpoint. It also handles graceful shutdown.
package server

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/dmitrijs2005/leftoverchef/internal/logging"
	"github.com/dmitrijs2005/leftoverchef/internal/server/auth"
	"github.com/dmitrijs2005/leftoverchef/internal/server/config"
	"github.com/dmitrijs2005/leftoverchef/internal/server/httpapi"
	"github.com/dmitrijs2005/leftoverchef/internal/server/inference"
	"github.com/dmitrijs2005/leftoverchef/internal/server/lockout"
	"github.com/dmitrijs2005/leftoverchef/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/leftoverchef/internal/server/services"
	"github.com/dmitrijs2005/leftoverchef/internal/server/storage"
	"github.com/redis/go-redis/v9"

	gs "github.com/dmitrijs2005/leftoverchef/internal/server/grpc"
)

const shutdownTimeout = 10 * time.Second

type App struct {
	config  *config.Config
	logger  logging.Logger
	db      *sql.DB
	redis   *redis.Client
	handler http.Handler
}

// NewApp opens the database, applies migrations and builds every service.
func NewApp(ctx context.Context, c *config.Config, logger logging.Logger) (*App, error) {
	db, err := repomanager.Open(ctx, c.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}

	app, err := newApp(ctx, c, logger, db, repomanager.NewPostgresRepositoryManager())
	if err != nil {
		db.Close()
		return nil, err
	}
	return app, nil
}

func newApp(ctx context.Context, c *config.Config, logger logging.Logger, db *sql.DB, rm repomanager.RepositoryManager) (*App, error) {
	if err := rm.RunMigrations(ctx, db); err != nil {
		return nil, fmt.Errorf("migrations error: %w", err)
	}

	images, err := newImageStore(ctx, c)
	if err != nil {
		return nil, fmt.Errorf("image store init error: %w", err)
	}

	lock, rc, err := newLockoutStore(c)
	if err != nil {
		return nil, fmt.Errorf("lockout store init error: %w", err)
	}

	provider := newProvider(c, logger)
	tokens := auth.NewTokenService(c.SecretKey, c.TokenTTL)

	h := httpapi.NewHandler(httpapi.Deps{
		Accounts:       services.NewAuthService(db, rm, tokens, lock, c, logger),
		Tokens:         tokens,
		Ingestion:      services.NewIngestionService(db, rm, provider, images, c.MaxUploadBytes(), logger),
		History:        services.NewHistoryService(db, rm, images, logger),
		Images:         images,
		MaxUploadBytes: c.MaxUploadBytes(),
		Provider:       provider.Name(),
		MLConfigured:   c.MLServiceURL != "",
		AllowedOrigins: c.AllowedOrigins,
		Logger:         logger,
	})

	logger.Info(ctx, "app configured",
		"storage", images.Name(),
		"inference", provider.Name(),
		"lockout", rc != nil,
	)

	return &App{
		config:  c,
		logger:  logger,
		db:      db,
		redis:   rc,
		handler: httpapi.NewRouter(h),
	}, nil
}

func newImageStore(ctx context.Context, c *config.Config) (storage.Store, error) {
	if c.StorageBackend == config.StorageS3 {
		return storage.NewS3Store(ctx, storage.S3Options{
			Bucket:       c.S3Bucket,
			Region:       c.S3Region,
			BaseEndpoint: c.S3BaseEndpoint,
			AccessKey:    c.S3AccessKey,
			SecretKey:    c.S3SecretKey,
		})
	}
	return storage.NewDiskStore(c.UploadDir)
}

func newProvider(c *config.Config, logger logging.Logger) inference.Provider {
	if c.MLServiceURL == "" {
		return inference.NewMockProvider(uint64(time.Now().UnixNano()))
	}
	return inference.NewHTTPProvider(c.MLServiceURL, c.InferenceTimeout, logger)
}

// newLockoutStore returns a nil client when lockout is disabled.
func newLockoutStore(c *config.Config) (lockout.Store, *redis.Client, error) {
	if c.RedisURL == "" {
		return lockout.Nop{}, nil, nil
	}
	rc, err := lockout.Connect(c.RedisURL)
	if err != nil {
		return nil, nil, err
	}
	return lockout.NewRedisStore(rc), rc, nil
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	// Channel to catch OS signals.
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

func (app *App) startHTTPServer(ctx context.Context, cancelFunc context.CancelFunc) {
	srv := &http.Server{
		Addr:              app.config.HTTPAddr,
		Handler:           app.handler,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      app.config.InferenceTimeout + 30*time.Second,
	}

	go func() {
		<-ctx.Done()
		app.logger.Info(ctx, "Stopping HTTP server...")
		sctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(sctx); err != nil {
			app.logger.Error(ctx, "http shutdown error", "error", err)
		}
	}()

	app.logger.Info(ctx, "Starting HTTP server", "address", app.config.HTTPAddr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

func (app *App) startGRPCServer(ctx context.Context, cancelFunc context.CancelFunc) {
	s := gs.NewGRPCServer(app.config.GRPCAddr, app.logger, app.db)
	if err := s.Run(ctx); err != nil {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

// Run serves until a signal arrives or one of the servers fails, then
// releases the database and Redis connections.
func (app *App) Run(ctx context.Context) {

	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...")

	app.initSignalHandler(cancelFunc)

	var wg sync.WaitGroup

	wg.Add(2)
	go func() {
		defer wg.Done()
		app.startHTTPServer(ctx, cancelFunc)
	}()
	go func() {
		defer wg.Done()
		app.startGRPCServer(ctx, cancelFunc)
	}()

	wg.Wait()

	app.close(ctx)
}

func (app *App) close(ctx context.Context) {
	if app.redis != nil {
		if err := app.redis.Close(); err != nil {
			app.logger.Warn(ctx, "redis close error", "error", err)
		}
	}
	if app.db != nil {
		if err := app.db.Close(); err != nil {
			app.logger.Warn(ctx, "db close error", "error", err)
		}
	}
	app.logger.Info(ctx, "App stopped")
}
