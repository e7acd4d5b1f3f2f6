package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dfryer1193/rhyon/article/application"
	"github.com/dfryer1193/rhyon/article/domain"
	"github.com/dfryer1193/rhyon/article/persistence"
	"github.com/dfryer1193/rhyon/internal/logging"
	"github.com/dfryer1193/rhyon/internal/metrics"
	"github.com/dfryer1193/rhyon/internal/middleware"
	"github.com/dfryer1193/rhyon/internal/observability"
	"github.com/dfryer1193/rhyon/internal/rest"
	"github.com/dfryer1193/rhyon/shared/config"
	"github.com/dfryer1193/rhyon/shared/db"
	"github.com/dfryer1193/rhyon/shared/db/postgres"
	"github.com/dfryer1193/rhyon/shared/db/sqlite"
	gh "github.com/dfryer1193/rhyon/shared/github"
	webhook "github.com/dfryer1193/rhyon/webhook/http"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
)

const poolStatsInterval = 15 * time.Second

func main() {
	if err := run(); err != nil {
		log.Fatal().Err(err).Msg("Server exited with error")
	}
}

func run() error {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Warn().Err(err).Msg("Failed to load .env file")
	}

	cfg, err := config.Load(config.DefaultSources())
	if err != nil {
		return err
	}
	logging.Setup(cfg.Log)
	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx := context.Background()

	shutdownTracing, err := observability.InitTracing(ctx, cfg.Tracing, cfg.Environment)
	if err != nil {
		return err
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := shutdownTracing(ctx); err != nil {
			log.Error().Err(err).Msg("Failed to flush traces")
		}
	}()

	repo, pinger, closeStore, err := openArticleStore(ctx, cfg.Database)
	if err != nil {
		return err
	}
	defer closeStore()

	if cfg.Cache.RedisAddr != "" {
		cache, err := persistence.NewRedisCache(ctx, cfg.Cache.RedisAddr)
		if err != nil {
			return fmt.Errorf("failed to connect to redis: %w", err)
		}
		defer cache.Close()
		repo = persistence.NewCachedArticleRepository(repo, cache, cfg.Cache.TTL)
		log.Info().Str("addr", cfg.Cache.RedisAddr).Dur("ttl", cfg.Cache.TTL).Msg("Article cache enabled")
	}

	articleService := application.NewArticleService(repo)
	markdownRenderer := application.NewMarkdownRenderer(cfg.Markdown.SiteURL)

	router := newRouter(cfg)
	rest.NewApi(router,
		rest.NewArticleHandler(articleService, markdownRenderer),
		rest.NewHealthHandler(pinger),
	)

	if cfg.Source.SyncEnabled() {
		syncService, err := newSyncService(ctx, cfg.Source, articleService, markdownRenderer)
		if err != nil {
			return err
		}
		defer func() {
			if err := syncService.Close(); err != nil {
				log.Error().Err(err).Msg("Failed to gracefully close sync service")
			}
		}()
		webhook.NewWebhookHandler(cfg.Source.WebhookSecret, syncService).RegisterRoutes(router)
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		log.Info().Int("port", cfg.Server.Port).Str("environment", cfg.Environment).Msg("Starting server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErr:
		return fmt.Errorf("failed to start server: %w", err)
	case <-quit:
	}

	log.Info().Msg("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shutdown server: %w", err)
	}

	log.Info().Msg("Server stopped")
	return nil
}

// newRouter builds the engine with the middleware chain. Metrics sits outside
// recovery so requests that panic are still counted as 500s.
func newRouter(cfg config.Config) *gin.Engine {
	router := gin.New()
	if cfg.Tracing.Enabled {
		router.Use(otelgin.Middleware(cfg.Tracing.ServiceName))
	}
	router.Use(
		middleware.RequestID(),
		middleware.LoggingMiddleware(),
		middleware.Metrics(),
		gin.CustomRecoveryWithWriter(io.Discard, middleware.HandlePanics()),
		middleware.CORS(cfg.Server.CORSOrigins),
	)
	return router
}

// openArticleStore connects the configured database and returns its repository,
// a pinger for health checks, and a close func.
func openArticleStore(ctx context.Context, cfg config.DatabaseConfig) (domain.ArticleRepository, db.Pinger, func(), error) {
	switch cfg.Driver {
	case config.DriverPostgres:
		pgCfg := postgres.Config{
			Host:     cfg.Host,
			Port:     cfg.Port,
			Username: cfg.Username,
			Password: cfg.Password,
			Name:     cfg.Name,
			SSLMode:  cfg.SSLMode,
			MaxConns: cfg.MaxConns,
			MinConns: cfg.MinConns,
		}
		if err := postgres.Migrate(pgCfg.ConnString()); err != nil {
			return nil, nil, nil, err
		}

		pool, err := postgres.Connect(ctx, pgCfg)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("failed to connect to postgres: %w", err)
		}

		collector := metrics.NewPoolStatsCollector(pool)
		collector.Start(poolStatsInterval)

		log.Info().Str("host", cfg.Host).Str("database", cfg.Name).Msg("Connected to postgres")
		return persistence.NewPostgresArticleRepository(pool), pool, func() {
			collector.Stop()
			pool.Close()
		}, nil

	default:
		database := sqlite.NewSQLiteDB(sqlite.Config{Path: cfg.SQLitePath})
		if err := database.Connect(); err != nil {
			return nil, nil, nil, fmt.Errorf("failed to connect to sqlite: %w", err)
		}

		log.Info().Str("path", cfg.SQLitePath).Msg("Connected to sqlite")
		return persistence.NewSQLiteArticleRepository(database.DB()), database, func() {
			if err := database.Close(); err != nil {
				log.Error().Err(err).Msg("Failed to close database")
			}
		}, nil
	}
}

func newSyncService(ctx context.Context, cfg config.SourceConfig, articles application.ArticleStore, markdown application.MarkdownRenderer) (*application.SyncService, error) {
	sourceRepo := gh.NewGithubSourceRepository(gh.NewClient(cfg.Token), cfg.Owner, cfg.Repo)

	mainBranchName, err := sourceRepo.GetDefaultBranchName(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get default branch name: %w", err)
	}

	log.Info().
		Str("repo", sourceRepo.GetRepoFullName()).
		Str("branch", mainBranchName).
		Str("contentDir", cfg.ContentDir).
		Msg("Git sync enabled")

	return application.NewSyncService(articles, sourceRepo, markdown, mainBranchName, cfg.ContentDir), nil
}
