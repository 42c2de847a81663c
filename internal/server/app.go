// Package server wires the La Bandina API together: configuration, the
// PostgreSQL repositories, the token authority, the optional Redis
// revocation list and S3 presigner, and the HTTP and gRPC servers. It also
// handles graceful shutdown and signing key rotation on SIGHUP.
package server

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/dmitrijs2005/labandina/internal/logging"
	"github.com/dmitrijs2005/labandina/internal/server/auth"
	"github.com/dmitrijs2005/labandina/internal/server/cache"
	"github.com/dmitrijs2005/labandina/internal/server/config"
	"github.com/dmitrijs2005/labandina/internal/server/metrics"
	"github.com/dmitrijs2005/labandina/internal/server/objectstore"
	"github.com/dmitrijs2005/labandina/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/labandina/internal/server/services"
	"github.com/redis/go-redis/v9"

	gs "github.com/dmitrijs2005/labandina/internal/server/grpc"
	hs "github.com/dmitrijs2005/labandina/internal/server/http"
)

type App struct {
	config    *config.Config
	logger    logging.Logger
	db        *sql.DB
	redis     *redis.Client
	authority *auth.Authority
	metrics   *metrics.Metrics

	httpServer *hs.Server
	grpcServer *gs.GRPCServer

	// reload re-reads the configuration on SIGHUP.
	reload func() (*config.Config, error)
}

func NewApp(ctx context.Context, c *config.Config, logger logging.Logger) (*App, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	if c.SecretKey == config.DefaultSecretKey {
		logger.Warn(ctx, "using the development signing secret; set SECRET_KEY in production")
	}

	db, err := sql.Open("pgx", c.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db open error: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("db ping error: %w", err)
	}

	rm := repomanager.NewPostgresRepositoryManager()
	if err := rm.RunMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migration error: %w", err)
	}

	keys, err := auth.NewKeyring(c.SecretKey, c.PreviousSecretKey, c.SecretGraceWindow, nil)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("keyring init error: %w", err)
	}
	authority := auth.NewAuthority(keys, c.AccessTokenValidityDuration, auth.WithIssuer(c.TokenIssuer))

	app := &App{
		config:    c,
		logger:    logger,
		db:        db,
		authority: authority,
		metrics:   metrics.New(),
		reload:    config.LoadConfig,
	}

	var (
		revoker     services.Revoker
		httpChecker hs.RevocationChecker
		grpcChecker gs.RevocationChecker
	)
	if c.RedisURL != "" {
		client, err := cache.Connect(ctx, c.RedisURL)
		if err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("redis init error: %w", err)
		}
		app.redis = client
		store := cache.NewRevocationStore(client)
		revoker, httpChecker, grpcChecker = store, store, store
	} else {
		logger.Info(ctx, "redis not configured, logout only deletes refresh tokens")
	}

	presigner, err := objectstore.NewS3Presigner(ctx, c)
	if err != nil {
		app.close(ctx)
		return nil, fmt.Errorf("s3 init error: %w", err)
	}

	handler := hs.NewHandler(hs.Deps{
		Authority:    authority,
		Users:        services.NewUserService(db, rm, authority, c, revoker),
		Compositions: services.NewCompositionService(db, rm),
		KeyMappings:  services.NewKeyMappingService(db, rm),
		Recordings:   services.NewRecordingService(db, rm, presigner),
		Songs:        services.NewSongService(db, rm),
		Revocations:  httpChecker,
		Metrics:      app.metrics,
		Logger:       logger,
	})

	app.httpServer = hs.NewServer(c.HTTPAddr, hs.NewRouter(handler, c.CORSOrigins), c.ShutdownTimeout, logger)
	if c.GRPCAddr != "" {
		app.grpcServer = gs.NewServer(c.GRPCAddr, logger, authority, grpcChecker, app.metrics)
	}

	return app, nil
}

func (app *App) initSignalHandler(ctx context.Context, cancelFunc context.CancelFunc) {
	// Channel to catch OS signals.
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT, syscall.SIGHUP)

	go func() {
		defer signal.Stop(sigs)
		for {
			select {
			case <-ctx.Done():
				return
			case sig := <-sigs:
				if sig == syscall.SIGHUP {
					app.rotateSigningKey(ctx)
					continue
				}
				app.logger.Info(ctx, "received signal", "signal", sig.String())
				cancelFunc()
				return
			}
		}
	}()
}

// rotateSigningKey promotes a changed SecretKey from the reloaded
// configuration. Tokens signed with the old key stay valid for the
// keyring's grace window. A configuration that fails to load leaves the
// current key in place.
func (app *App) rotateSigningKey(ctx context.Context) {
	next, err := app.reload()
	if err != nil {
		app.logger.Error(ctx, "config reload failed, keeping current signing key", "error", err)
		return
	}
	keys := app.authority.Keyring()

	before := keys.Current().ID
	if err := keys.Rotate(next.SecretKey); err != nil {
		app.logger.Error(ctx, "signing key rotation failed", "error", err)
		return
	}
	if keys.Current().ID == before {
		app.logger.Info(ctx, "signing key unchanged")
		return
	}

	app.metrics.KeyRotated()
	app.logger.Info(ctx, "signing key rotated", "kid", keys.Current().ID, "grace", keys.GraceWindow())
}

func (app *App) startHTTPServer(ctx context.Context, cancelFunc context.CancelFunc) {
	if err := app.httpServer.Run(ctx); err != nil {
		app.logger.Error(ctx, "http server failed", "error", err)
		cancelFunc()
	}
}

func (app *App) startGRPCServer(ctx context.Context, cancelFunc context.CancelFunc) {
	if err := app.grpcServer.Run(ctx); err != nil {
		app.logger.Error(ctx, "grpc server failed", "error", err)
		cancelFunc()
	}
}

// Run serves until ctx is cancelled, a termination signal arrives or one of
// the servers fails.
func (app *App) Run(ctx context.Context) {

	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...")

	app.initSignalHandler(ctx, cancelFunc)

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		app.startHTTPServer(ctx, cancelFunc)
	}()

	if app.grpcServer != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			app.startGRPCServer(ctx, cancelFunc)
		}()
	}

	wg.Wait()

	app.close(context.WithoutCancel(ctx))
	app.logger.Info(ctx, "App stopped")
}

func (app *App) close(ctx context.Context) {
	var errs []error
	if app.redis != nil {
		errs = append(errs, app.redis.Close())
	}
	if app.db != nil {
		errs = append(errs, app.db.Close())
	}
	if err := errors.Join(errs...); err != nil {
		app.logger.Error(ctx, "close failed", "error", err)
	}
}
