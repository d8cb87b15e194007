package control

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/vietddude/retryfetch/internal/core/config"
	"github.com/vietddude/retryfetch/internal/core/env"
	"github.com/vietddude/retryfetch/internal/errlog"
	"github.com/vietddude/retryfetch/internal/infra/fetch"
	redisclient "github.com/vietddude/retryfetch/internal/infra/redis"
	"github.com/vietddude/retryfetch/internal/infra/storage"
	"github.com/vietddude/retryfetch/internal/infra/storage/memory"
	"github.com/vietddude/retryfetch/internal/infra/storage/postgres"
	"github.com/vietddude/retryfetch/internal/server"
)

// App wires the error logger, the retrying fetch handler and the ops
// server from configuration.
type App struct {
	cfg         *config.AppConfig
	logger      *errlog.Logger
	handler     *fetch.Handler
	server      *server.Server
	redisClient *redisclient.Client
	db          *postgres.DB
	log         *slog.Logger
}

// NewApp creates an App with all dependencies initialized.
func NewApp(ctx context.Context, cfg *config.AppConfig) (*App, error) {
	a := &App{cfg: cfg, log: slog.Default()}
	checks := make(map[string]server.HealthCheck)

	// 1. Initialize Storage
	var store storage.Store
	switch cfg.Storage.Driver {
	case config.StorageMemory:
		store = memory.NewMemoryStorage()
		a.log.Info("Using memory storage for persisted errors")
	case config.StorageRedis:
		client, err := a.redis()
		if err != nil {
			return nil, err
		}
		store = client
		a.log.Info("Using Redis storage for persisted errors")
	case config.StoragePostgres:
		db, err := postgres.NewDB(ctx, cfg.Database)
		if err != nil {
			return nil, fmt.Errorf("failed to init db: %w", err)
		}
		a.db = db
		store = postgres.NewSlotRepo(db)
		checks["postgres"] = db.Health
		a.log.Info("Using PostgreSQL storage for persisted errors")
	default:
		a.log.Info("Persisted error log disabled")
	}

	// 2. Initialize Error Logger
	opts := []errlog.Option{
		errlog.WithCapacity(cfg.ErrorLog.Capacity),
		errlog.WithPersistedCapacity(cfg.ErrorLog.PersistedCapacity),
		errlog.WithPersistKey(cfg.ErrorLog.PersistKey),
		errlog.WithPersistTimeout(cfg.ErrorLog.PersistTimeout),
	}
	if cfg.ErrorLog.Forward {
		client, err := a.redis()
		if err != nil {
			a.Close()
			return nil, err
		}
		opts = append(opts, errlog.WithForwarder(redisclient.NewPublishForwarder(client, cfg.Redis.Channel)))
	}
	if a.redisClient != nil {
		checks["redis"] = a.redisClient.Health
	}

	a.logger = errlog.New(env.Static{
		Debug:      cfg.Site.Debug,
		URL:        cfg.Site.URL,
		Client:     cfg.Site.ClientID,
		Persistent: store,
	}, opts...)

	// 3. Initialize Fetch Handler
	a.handler = fetch.New(a.logger,
		fetch.WithTimeout(cfg.Retry.RequestTimeout),
		fetch.WithConfig(cfg.Retry.FetchConfig()),
	)

	// 4. Initialize Ops Server
	a.server = server.NewServer(a.logger, cfg.Server.Port, checks)

	return a, nil
}

// redis lazily connects the shared Redis client.
func (a *App) redis() (*redisclient.Client, error) {
	if a.redisClient != nil {
		return a.redisClient, nil
	}
	client, err := redisclient.NewClient(a.cfg.Redis)
	if err != nil {
		return nil, fmt.Errorf("failed to init redis: %w", err)
	}
	a.redisClient = client
	return client, nil
}

// Logger returns the process-wide error logger.
func (a *App) Logger() *errlog.Logger { return a.logger }

// Handler returns the retrying fetch handler.
func (a *App) Handler() *fetch.Handler { return a.handler }

// Serve runs the ops server until ctx is cancelled or the server fails.
func (a *App) Serve(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		a.log.Info("Ops server listening", "port", a.cfg.Server.Port)
		if err := a.server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		return nil
	}
}

// Stop shuts down the ops server and releases storage connections.
func (a *App) Stop(ctx context.Context) error {
	a.log.Info("Stopping...")
	err := a.server.Stop(ctx)
	a.Close()
	return err
}

// Close releases storage connections.
func (a *App) Close() {
	if a.redisClient != nil {
		if err := a.redisClient.Close(); err != nil {
			a.log.Warn("Failed to close Redis", "error", err)
		}
		a.redisClient = nil
	}
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			a.log.Warn("Failed to close database", "error", err)
		}
		a.db = nil
	}
}
