package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/sync/errgroup"

	"github.com/angelmondragon/library-backend/api/middleware"
	"github.com/angelmondragon/library-backend/api/routes"
	"github.com/angelmondragon/library-backend/internal/auth"
	"github.com/angelmondragon/library-backend/internal/books"
	"github.com/angelmondragon/library-backend/internal/borrowers"
	"github.com/angelmondragon/library-backend/internal/content"
	"github.com/angelmondragon/library-backend/internal/lending"
	"github.com/angelmondragon/library-backend/internal/librarians"
	"github.com/angelmondragon/library-backend/internal/users"
	"github.com/angelmondragon/library-backend/pkg/auth/session"
	"github.com/angelmondragon/library-backend/pkg/config"
	"github.com/angelmondragon/library-backend/pkg/db"
	"github.com/angelmondragon/library-backend/pkg/logger"
	"github.com/angelmondragon/library-backend/pkg/metrics"
	"github.com/angelmondragon/library-backend/pkg/migrate"
	"github.com/angelmondragon/library-backend/pkg/redis"
	"github.com/angelmondragon/library-backend/pkg/storage"
	"github.com/angelmondragon/library-backend/pkg/storage/local"
	"github.com/angelmondragon/library-backend/pkg/storage/s3store"
)

const shutdownTimeout = 15 * time.Second

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	if err := run(cfg, logg); err != nil {
		logg.Error(context.Background(), "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, logg *logger.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	dbClient, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		return fmt.Errorf("bootstrap database: %w", err)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(ctx, cfg, logg, dbClient); err != nil {
		return fmt.Errorf("run dev migrations: %w", err)
	}

	redisClient, err := redis.New(ctx, cfg.Redis, logg)
	if err != nil {
		return fmt.Errorf("bootstrap redis: %w", err)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	store, err := newStore(ctx, cfg)
	if err != nil {
		return fmt.Errorf("bootstrap storage: %w", err)
	}

	sessionManager, err := session.NewManager(redisClient, cfg.JWT)
	if err != nil {
		return fmt.Errorf("create session manager: %w", err)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	httpMetrics := metrics.NewHTTPMetrics(registry)
	libraryMetrics := metrics.NewLibraryMetrics(registry)

	deps, err := buildServices(cfg, logg, dbClient, sessionManager, store, libraryMetrics)
	if err != nil {
		return err
	}
	deps.DB = dbClient
	deps.Redis = redisClient
	deps.Storage = store
	deps.Sessions = sessionManager
	deps.IPLimiter = middleware.NewIPRateLimiter(cfg.RateLimit)
	deps.HTTPMetrics = httpMetrics
	deps.Gatherer = registry

	addr := ":" + cfg.App.Port
	server := &http.Server{
		Addr:              addr,
		Handler:           routes.NewRouter(cfg, logg, deps),
		ReadHeaderTimeout: 10 * time.Second,
	}

	logCtx := logg.WithFields(ctx, map[string]any{
		"env":     cfg.App.Env,
		"addr":    addr,
		"storage": cfg.Storage.Driver,
	})
	logg.Info(logCtx, "starting api server")

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		deps.IPLimiter.Run(gctx.Done())
		return nil
	})
	g.Go(func() error {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logg.Info(logCtx, "shutting down api server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

func buildServices(
	cfg *config.Config,
	logg *logger.Logger,
	dbClient *db.Client,
	sessionManager *session.Manager,
	store storage.Store,
	libraryMetrics *metrics.LibraryMetrics,
) (routes.Dependencies, error) {
	conn := dbClient.DB()
	userRepo := users.NewRepository(conn)

	authService, err := auth.NewService(auth.ServiceParams{
		UserRepo:       userRepo,
		SessionManager: sessionManager,
		JWTConfig:      cfg.JWT,
		PasswordConfig: cfg.Password,
	})
	if err != nil {
		return routes.Dependencies{}, fmt.Errorf("create auth service: %w", err)
	}

	userService, err := users.NewService(userRepo, cfg.Password)
	if err != nil {
		return routes.Dependencies{}, fmt.Errorf("create user service: %w", err)
	}

	bookService, err := books.NewService(books.NewRepository(conn))
	if err != nil {
		return routes.Dependencies{}, fmt.Errorf("create book service: %w", err)
	}

	lendingService, err := lending.NewService(lending.ServiceParams{
		DB:      dbClient,
		Logger:  logg,
		Metrics: libraryMetrics,
	})
	if err != nil {
		return routes.Dependencies{}, fmt.Errorf("create lending service: %w", err)
	}

	borrowerService, err := borrowers.NewService(borrowers.NewRepository(conn), dbClient, lendingService)
	if err != nil {
		return routes.Dependencies{}, fmt.Errorf("create borrower service: %w", err)
	}

	librarianService, err := librarians.NewService(librarians.NewRepository(conn), dbClient)
	if err != nil {
		return routes.Dependencies{}, fmt.Errorf("create librarian service: %w", err)
	}

	contentService, err := content.NewService(content.ServiceParams{
		Repo:           content.NewRepository(conn),
		DB:             dbClient,
		Store:          store,
		Logger:         logg,
		Metrics:        libraryMetrics,
		MaxUploadBytes: cfg.Storage.MaxUploadBytes(),
		QuotaMB:        cfg.Storage.QuotaMB,
		CacheTTL:       cfg.Cache.ContentListTTL,
	})
	if err != nil {
		return routes.Dependencies{}, fmt.Errorf("create content service: %w", err)
	}

	return routes.Dependencies{
		Auth:       authService,
		Users:      userService,
		Books:      bookService,
		Lending:    lendingService,
		Borrowers:  borrowerService,
		Librarians: librarianService,
		Content:    contentService,
	}, nil
}

func newStore(ctx context.Context, cfg *config.Config) (storage.Store, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Storage.Driver)) {
	case config.StorageDriverS3:
		return s3store.New(ctx, cfg.S3)
	default:
		return local.New(cfg.Storage.LocalDir)
	}
}
