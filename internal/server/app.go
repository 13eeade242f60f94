// Package server wires the registry together: it opens PostgreSQL and runs
// migrations, builds the artifact store, git index and team checker,
// starts the gRPC API and the HTTP download endpoint, and runs the
// download rollup until shutdown.
package server

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/cenk/backoff"
	"github.com/joaopapereira/crates.io/internal/logging"
	"github.com/joaopapereira/crates.io/internal/server/categories"
	"github.com/joaopapereira/crates.io/internal/server/config"
	"github.com/joaopapereira/crates.io/internal/server/httpapi"
	"github.com/joaopapereira/crates.io/internal/server/index"
	"github.com/joaopapereira/crates.io/internal/server/license"
	"github.com/joaopapereira/crates.io/internal/server/repositories/repomanager"
	"github.com/joaopapereira/crates.io/internal/server/services"
	"github.com/joaopapereira/crates.io/internal/server/storage"
	"github.com/joaopapereira/crates.io/internal/server/teams"
	"github.com/rs/dnscache"

	gs "github.com/joaopapereira/crates.io/internal/server/grpc"
)

const (
	indexBreakerThreshold = 5
	downloadLinkExpiry    = 15 * time.Minute
	teamsHTTPTimeout      = 10 * time.Second
	dnsRefreshInterval    = 5 * time.Minute
)

type App struct {
	config *config.Config
	logger logging.Logger
	db     *sql.DB

	resolver  *dnscache.Resolver
	crates    *services.CrateService
	owners    *services.OwnerService
	publisher *services.PublishService
	downloads *services.DownloadService
	users     *services.UserService
}

// NewApp connects to every backing service. It fails when the database
// stays unreachable or the index repository cannot be opened.
func NewApp(ctx context.Context, c *config.Config) (*App, error) {

	logger := logging.New(os.Stdout, c.LogFormat, slog.LevelInfo)

	db, err := openDB(ctx, c.DatabaseDSN, logger)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}

	m := repomanager.NewPostgresRepositoryManager()
	if err := m.RunMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrations: %w", err)
	}

	if c.CategoriesPath != "" {
		cats, err := categories.Load(c.CategoriesPath)
		if err != nil {
			_ = db.Close()
			return nil, err
		}
		if err := m.Categories(db).Sync(ctx, cats); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("categories sync: %w", err)
		}
		logger.Info(ctx, "categories synced", "count", len(cats))
	}

	store, err := storage.NewS3Store(ctx, storage.Options{
		Region:       c.S3Region,
		User:         c.S3RootUser,
		Password:     c.S3RootPassword,
		Bucket:       c.S3Bucket,
		BaseEndpoint: c.S3BaseEndpoint,
		LinkExpiry:   downloadLinkExpiry,
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("s3 init error: %w", err)
	}

	gitIndex, err := index.Open(c.IndexPath, index.Author{Name: c.IndexAuthorName, Email: c.IndexAuthorEmail})
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	resolver := &dnscache.Resolver{}
	checker := teams.NewGitHub(c.GitHubAPIURL, c.GitHubToken, teams.NewHTTPClient(resolver, teamsHTTPTimeout))

	crates := services.NewCrateService(db, m, license.SPDX{})

	return &App{
		config:    c,
		logger:    logger,
		db:        db,
		resolver:  resolver,
		crates:    crates,
		owners:    services.NewOwnerService(db, m, checker),
		publisher: services.NewPublishService(db, m, crates, checker, store, index.NewBreakerAppender(gitIndex, indexBreakerThreshold), c.MaxUploadSize, logger),
		downloads: services.NewDownloadService(db, m, store, c.Mirror, c.DownloadsWindow, logger),
		users:     services.NewUserService(db, m, c.SecretKey, c.AccessTokenValidityDuration),
	}, nil
}

// openDB opens the pgx-backed pool and waits for the server to accept
// connections, backing off between attempts.
func openDB(ctx context.Context, dsn string, logger logging.Logger) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}

	b := backoff.NewExponentialBackOff()
	b.MaxElapsedTime = time.Minute

	ping := func() error { return db.PingContext(ctx) }
	notify := func(err error, next time.Duration) {
		logger.Warn(ctx, "database not ready", "error", err, "retry_in", next)
	}
	if err := backoff.RetryNotify(ping, backoff.WithContext(b, ctx), notify); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

func (app *App) Close() error {
	return app.db.Close()
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

func (app *App) startGRPCServer(ctx context.Context, cancelFunc context.CancelFunc) {
	s := gs.NewGRPCServer(app.config.EndpointAddrGRPC, app.logger, gs.Services{
		Crates:    app.crates,
		Owners:    app.owners,
		Publisher: app.publisher,
		Downloads: app.downloads,
		Users:     app.users,
	}, app.config.MaxUploadSize)

	if err := s.Run(ctx); err != nil {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

func (app *App) startHTTPServer(ctx context.Context, cancelFunc context.CancelFunc) {
	s := httpapi.NewServer(app.config.EndpointAddrHTTP, app.logger, app.downloads, app.config.ShutdownTimeout)

	if err := s.Run(ctx); err != nil {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

// runRollup folds daily download counters into totals every interval.
func (app *App) runRollup(ctx context.Context) {
	ticker := time.NewTicker(app.config.RollupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := app.downloads.Rollup(ctx)
			if err != nil {
				app.logger.Error(ctx, "download rollup failed", "error", err)
				continue
			}
			if n > 0 {
				app.logger.Info(ctx, "download rollup", "rows", n)
			}
		}
	}
}

func (app *App) Run(ctx context.Context) {

	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...")

	app.initSignalHandler(cancelFunc)

	var wg sync.WaitGroup

	wg.Add(4)
	go func() {
		defer wg.Done()
		app.startGRPCServer(ctx, cancelFunc)
	}()
	go func() {
		defer wg.Done()
		app.startHTTPServer(ctx, cancelFunc)
	}()
	go func() {
		defer wg.Done()
		app.runRollup(ctx)
	}()
	go func() {
		defer wg.Done()
		teams.RefreshDNS(ctx, app.resolver, dnsRefreshInterval)
	}()

	wg.Wait()

	if err := app.Close(); err != nil {
		app.logger.Error(context.Background(), "closing database", "error", err)
	}
	app.logger.Info(context.Background(), "Stopped")
}

// IssueToken mints an access token for login against the configured
// database, creating the user on first use.
func IssueToken(ctx context.Context, c *config.Config, login string) (string, error) {
	logger := logging.New(os.Stderr, c.LogFormat, slog.LevelWarn)

	db, err := openDB(ctx, c.DatabaseDSN, logger)
	if err != nil {
		return "", fmt.Errorf("db init error: %w", err)
	}
	defer db.Close()

	m := repomanager.NewPostgresRepositoryManager()
	if err := m.RunMigrations(ctx, db); err != nil {
		return "", fmt.Errorf("migrations: %w", err)
	}

	return services.NewUserService(db, m, c.SecretKey, c.AccessTokenValidityDuration).IssueToken(ctx, login)
}
