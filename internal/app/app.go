// Package app wires configuration, storage, services and the HTTP server together.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/aliskhannn/lesson-engine/internal/config"
	"github.com/aliskhannn/lesson-engine/internal/delivery/rest"
	"github.com/aliskhannn/lesson-engine/internal/infra/postgres"
	"github.com/aliskhannn/lesson-engine/internal/infra/postgres/repository"
	"github.com/aliskhannn/lesson-engine/internal/metrics"
	"github.com/aliskhannn/lesson-engine/internal/service"
	"github.com/aliskhannn/lesson-engine/internal/storage"
	"github.com/aliskhannn/lesson-engine/internal/tracing"
)

const (
	serviceName     = "lessond"
	shutdownTimeout = 10 * time.Second
)

// App is the assembled lesson service.
type App struct {
	cfg       *config.Config
	logger    *zap.Logger
	pool      *pgxpool.Pool
	languages *storage.LanguageCache
	server    *http.Server
	shutdown  []func(context.Context) error
}

// New connects to the database and builds every component.
func New(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*App, error) {
	pool, err := openPool(ctx, cfg)
	if err != nil {
		return nil, err
	}

	a := &App{cfg: cfg, logger: logger, pool: pool}

	if cfg.Tracing.Enabled {
		stop, err := tracing.Init(serviceName, cfg.Tracing.CollectorEndpoint)
		if err != nil {
			pool.Close()
			return nil, fmt.Errorf("init tracing: %w", err)
		}
		a.shutdown = append(a.shutdown, stop)
	}

	m := metrics.New()
	now := service.Clock(func() time.Time { return time.Now().UTC() })

	tr := unitTransactor{tr: postgres.NewTransactor(pool, cfg.DB.QueryTimeout, postgres.RetryPolicy{
		MaxAttempts: cfg.DB.Retry.MaxAttempts,
		BaseDelay:   cfg.DB.Retry.BaseDelay,
		MaxDelay:    cfg.DB.Retry.MaxDelay,
	}, logger)}

	lessons := service.NewLessonService(
		tr,
		repository.NewSessionRepository(pool),
		repository.NewProgressRepository(pool),
		service.NewCandidateSelector(repository.NewCandidateRepository(pool), now),
		service.NewSessionComposer(),
		service.NewExerciseGenerator(repository.NewContentRepository(pool)),
		service.NewProgressUpdater(),
		m,
		service.LessonLimits{
			DefaultTotalExercises: cfg.Lesson.DefaultTotalExercises,
			MaxTotalExercises:     cfg.Lesson.MaxTotalExercises,
			DefaultMaxNewItems:    cfg.Lesson.DefaultMaxNewItems,
			DefaultLanguages: service.Languages{
				Native: cfg.Lesson.NativeLanguage,
				Target: cfg.Lesson.TargetLanguage,
			},
		},
		now,
		logger,
	)
	curated := service.NewCuratedListService(repository.NewCuratedListRepository(pool), now)
	a.languages = storage.NewLanguageCache(repository.NewLanguageRepository(pool))

	handler := rest.NewHandler(lessons, curated, a.languages, pool, service.Languages{
		Native: cfg.Lesson.NativeLanguage,
		Target: cfg.Lesson.TargetLanguage,
	}, logger)

	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := rest.NewRouter(handler, rest.RouterConfig{
		JWTSecret:      cfg.JWTSecret,
		RateLimit:      cfg.HTTP.RateLimit.MaxRequests,
		RateWindow:     cfg.HTTP.RateLimit.Window,
		TracingEnabled: cfg.Tracing.Enabled,
	}, m, m.Handler(), logger)

	a.server = &http.Server{
		Addr:         cfg.HTTP.Addr,
		Handler:      router,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
	}

	return a, nil
}

// Run serves HTTP until ctx is cancelled, then drains in-flight requests.
func (a *App) Run(ctx context.Context) error {
	go func() {
		if err := a.languages.RunInvalidation(ctx, a.cfg.LanguagesRefreshSpec, a.logger); err != nil {
			a.logger.Error("language cache invalidation", zap.Error(err))
		}
	}()

	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("http server started", zap.String("addr", a.server.Addr))
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	a.logger.Info("shutting down http server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := a.server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown http server: %w", err)
	}
	return nil
}

// Close releases the pool and flushes telemetry.
func (a *App) Close() {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	for _, stop := range a.shutdown {
		if err := stop(ctx); err != nil {
			a.logger.Error("shutdown tracer provider", zap.Error(err))
		}
	}
	a.pool.Close()
}

// Migrate applies the embedded schema migrations.
func Migrate(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	pool, err := openPool(ctx, cfg)
	if err != nil {
		return err
	}
	defer pool.Close()

	return postgres.Migrate(ctx, pool, logger)
}

func openPool(ctx context.Context, cfg *config.Config) (*pgxpool.Pool, error) {
	dsn, err := cfg.DB.DSN()
	if err != nil {
		return nil, err
	}

	pool, err := postgres.NewPool(ctx, dsn, postgres.PoolConfig{
		MaxConns:         int32(cfg.DB.MaxConnections),
		MaxConnLifetime:  cfg.DB.MaxConnLifetime,
		LockTimeout:      cfg.DB.LockTimeout,
		StatementTimeout: cfg.DB.StatementTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	return pool, nil
}
