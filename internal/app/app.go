// Package app is the composition root: it opens storage, builds the use cases
// and runs the HTTP server with the visit workers.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/httplog/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/vadimbarashkov/shortlink/internal/config"
	"github.com/vadimbarashkov/shortlink/internal/shortcode"
	"github.com/vadimbarashkov/shortlink/internal/usecase"
	"github.com/vadimbarashkov/shortlink/migrations"
	"github.com/vadimbarashkov/shortlink/pkg/postgres"
	"github.com/vadimbarashkov/shortlink/pkg/ratelimit"
	"golang.org/x/sync/errgroup"

	deliveryhttp "github.com/vadimbarashkov/shortlink/internal/adapter/delivery/http"
	pgrepo "github.com/vadimbarashkov/shortlink/internal/adapter/repository/postgres"
	redisrepo "github.com/vadimbarashkov/shortlink/internal/adapter/repository/redis"
	sqliterepo "github.com/vadimbarashkov/shortlink/internal/adapter/repository/sqlite"
)

const shutdownTimeout = 15 * time.Second

// App holds the wired service. Close releases its storage connections.
type App struct {
	cfg     *config.Config
	logger  *httplog.Logger
	closers []io.Closer

	URLs    *usecase.URLUseCase
	Visits  *usecase.VisitRecorder
	limiter *ratelimit.Limiter
}

// NewLogger builds the service logger: JSON in prod, concise text otherwise.
func NewLogger(cfg *config.Config, w io.Writer) *httplog.Logger {
	return httplog.NewLogger("shortlink", httplog.Options{
		LogLevel:        cfg.SlogLevel(),
		JSON:            cfg.Env == config.EnvProd,
		Concise:         cfg.Env == config.EnvDev,
		RequestHeaders:  cfg.Env != config.EnvProd,
		Tags:            map[string]string{"env": cfg.Env},
		QuietDownRoutes: []string{"/api/v1/ping"},
		QuietDownPeriod: 10 * time.Second,
		Writer:          w,
	})
}

// New opens the configured storage, applying migrations, and wires the use cases.
func New(ctx context.Context, cfg *config.Config, logger *httplog.Logger) (*App, error) {
	const op = "app.New"

	a := &App{
		cfg:    cfg,
		logger: logger,
	}

	repo, err := a.openStorage(ctx)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if cfg.RateLimit.Enabled {
		client, err := a.redisClient(ctx)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("%s: failed to set up rate limiter: %w", op, err)
		}
		a.limiter = ratelimit.New(client, cfg.RateLimit.MaxRequests, cfg.RateLimit.Window)
	}

	a.Visits = usecase.NewVisitRecorder(
		repo,
		usecase.WithVisitWorkers(cfg.Visits.Workers),
		usecase.WithVisitQueueSize(cfg.Visits.QueueSize),
		usecase.WithVisitTimeout(cfg.Storage.Timeout),
		usecase.WithVisitLogger(logger.Logger),
	)

	a.URLs = usecase.New(
		repo,
		shortcode.NewGenerator(cfg.ShortCode.Length),
		a.Visits,
		usecase.WithMaxAttempts(cfg.ShortCode.MaxAttempts),
		usecase.WithStoreTimeout(cfg.Storage.Timeout),
		usecase.WithLogger(logger.Logger),
	)

	return a, nil
}

func (a *App) openStorage(ctx context.Context) (usecase.URLRepository, error) {
	const op = "app.App.openStorage"

	switch a.cfg.Storage.Driver {
	case config.DriverPostgres:
		dsn := a.cfg.Postgres.DSN()

		db, err := postgres.New(
			ctx,
			dsn,
			postgres.WithConnMaxIdleTime(a.cfg.Postgres.ConnMaxIdleTime),
			postgres.WithConnMaxLifetime(a.cfg.Postgres.ConnMaxLifetime),
			postgres.WithMaxIdleConns(a.cfg.Postgres.MaxIdleConns),
			postgres.WithMaxOpenConns(a.cfg.Postgres.MaxOpenConns),
			postgres.WithConnectTimeout(a.cfg.Storage.Timeout),
		)
		if err != nil {
			return nil, fmt.Errorf("%s: failed to connect to database: %w", op, err)
		}
		a.closers = append(a.closers, db)

		if err := postgres.RunMigrations(migrations.FS, dsn); err != nil {
			return nil, fmt.Errorf("%s: failed to run migrations: %w", op, err)
		}

		return pgrepo.NewURLRepository(db), nil

	case config.DriverSQLite:
		db, err := sqliterepo.Open(a.cfg.SQLite.Path)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}

		sqlDB, err := db.DB()
		if err != nil {
			return nil, fmt.Errorf("%s: failed to get sql db: %w", op, err)
		}
		a.closers = append(a.closers, sqlDB)

		return sqliterepo.NewURLRepository(db), nil

	case config.DriverRedis:
		client, err := a.redisClient(ctx)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}

		return redisrepo.NewURLRepository(client), nil
	}

	return nil, fmt.Errorf("%s: unknown storage driver %q", op, a.cfg.Storage.Driver)
}

// redisClient connects once and is shared by the store and the limiter.
func (a *App) redisClient(ctx context.Context) (*goredis.Client, error) {
	const op = "app.App.redisClient"

	for _, c := range a.closers {
		if client, ok := c.(*goredis.Client); ok {
			return client, nil
		}
	}

	client := goredis.NewClient(&goredis.Options{
		Addr:     a.cfg.Redis.Addr,
		Password: a.cfg.Redis.Password,
		DB:       a.cfg.Redis.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, a.cfg.Storage.Timeout)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("%s: failed to ping redis: %w", op, err)
	}
	a.closers = append(a.closers, client)

	return client, nil
}

// Handler returns the HTTP router for the wired use cases.
func (a *App) Handler() http.Handler {
	var opts []deliveryhttp.RouterOption
	if a.limiter != nil {
		opts = append(opts,
			deliveryhttp.WithRateLimiter(a.limiter),
			deliveryhttp.WithTrustProxy(a.cfg.RateLimit.TrustProxy),
		)
	}

	return deliveryhttp.NewRouter(a.logger, a.URLs, a.cfg.BaseURL, opts...)
}

// Run serves HTTP and processes visits until ctx is done.
func (a *App) Run(ctx context.Context) error {
	const op = "app.App.Run"

	server := &http.Server{
		Addr:           a.cfg.HTTPServer.Addr(),
		Handler:        a.Handler(),
		ReadTimeout:    a.cfg.HTTPServer.ReadTimeout,
		WriteTimeout:   a.cfg.HTTPServer.WriteTimeout,
		IdleTimeout:    a.cfg.HTTPServer.IdleTimeout,
		MaxHeaderBytes: a.cfg.HTTPServer.MaxHeaderBytes,
		BaseContext: func(_ net.Listener) context.Context {
			return ctx
		},
	}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return a.Visits.Run(ctx)
	})

	g.Go(func() error {
		a.logger.Info("starting server",
			slog.String("addr", server.Addr),
			slog.String("storage", a.cfg.Storage.Driver),
		)

		var err error

		switch a.cfg.Env {
		case config.EnvProd:
			err = server.ListenAndServeTLS(a.cfg.HTTPServer.CertFile, a.cfg.HTTPServer.KeyFile)
		default:
			err = server.ListenAndServe()
		}

		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("%s: server error occurred: %w", op, err)
		}

		return nil
	})

	g.Go(func() error {
		<-ctx.Done()

		a.logger.Info("shutting down server")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("%s: failed to shutdown server: %w", op, err)
		}

		return nil
	})

	return g.Wait()
}

// Close releases storage connections in reverse order of opening.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i].Close(); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil

	return errors.Join(errs...)
}
