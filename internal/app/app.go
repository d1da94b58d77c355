// Package app wires configuration into the services shared by the API and
// worker processes.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/nikhilbhutani/coursegen/internal/api"
	"github.com/nikhilbhutani/coursegen/internal/api/handlers"
	"github.com/nikhilbhutani/coursegen/internal/api/middleware"
	"github.com/nikhilbhutani/coursegen/internal/cache"
	"github.com/nikhilbhutani/coursegen/internal/config"
	"github.com/nikhilbhutani/coursegen/internal/course"
	"github.com/nikhilbhutani/coursegen/internal/database"
	"github.com/nikhilbhutani/coursegen/internal/document"
	"github.com/nikhilbhutani/coursegen/internal/events"
	"github.com/nikhilbhutani/coursegen/internal/llm"
	"github.com/nikhilbhutani/coursegen/internal/pipeline"
	"github.com/nikhilbhutani/coursegen/internal/prompt"
	"github.com/nikhilbhutani/coursegen/internal/queue"
	"github.com/nikhilbhutani/coursegen/internal/storage"
	"github.com/nikhilbhutani/coursegen/internal/store"
	"github.com/nikhilbhutani/coursegen/internal/store/memory"
	"github.com/nikhilbhutani/coursegen/internal/store/postgres"
)

type App struct {
	Config    *config.Config
	Store     *store.Store
	Documents *document.Service
	Courses   *course.Service
	LLM       *llm.Service
	Prompts   *prompt.Compiler
	Pipeline  *pipeline.Orchestrator
	Bus       events.Bus

	pool   *pgxpool.Pool
	redis  *redis.Client
	cache  *cache.Cache
	closed bool
}

// New connects the configured backends. A missing DATABASE_URL selects the
// in-memory store and an unreachable Redis disables caching; both are logged.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	a := &App{Config: cfg}

	if err := a.openStore(ctx); err != nil {
		return nil, err
	}
	cacheStore := a.openCache(ctx)

	blobs, err := newStorage(ctx, cfg.Storage)
	if err != nil {
		a.Close(ctx)
		return nil, err
	}

	switch cfg.Pipeline.EventBus {
	case "asynq":
		a.Bus = queue.NewBus(cfg.Redis)
	default:
		a.Bus = events.NewMemoryBus()
	}

	prompts, err := prompt.NewCompiler()
	if err != nil {
		a.Close(ctx)
		return nil, fmt.Errorf("load prompts: %w", err)
	}
	a.Prompts = prompts

	gw := llm.NewGateway(cfg.LLM)
	a.LLM = llm.NewService(gw, nil)
	slog.Info("llm providers configured", "providers", gw.Providers(), "default", gw.DefaultProvider())

	ttl := cfg.Pipeline.CacheTTL
	a.Documents = document.NewService(a.Store.Documents, blobs, cacheStore, ttl)
	a.Courses = course.NewService(a.Store, cacheStore, ttl)

	ocr := document.NewOCRService()
	if !ocr.IsAvailable() {
		slog.Warn("tesseract not found, image uploads will fail extraction")
	}
	a.Pipeline = pipeline.New(
		a.Documents,
		a.Courses,
		document.NewExtractor(blobs, ocr),
		a.LLM,
		prompts,
		a.Bus,
		pipeline.Config{
			QuizQuestionCount: cfg.Pipeline.QuizQuestionCount,
			FlashcardCount:    cfg.Pipeline.FlashcardCount,
			MaxInputTokens:    cfg.Pipeline.MaxInputTokens,
		},
	)
	return a, nil
}

func (a *App) openStore(ctx context.Context) error {
	if a.Config.Database.URL == "" {
		slog.Warn("DATABASE_URL not set, using in-memory store")
		a.Store = memory.New()
		return nil
	}
	pool, err := database.NewPool(ctx, a.Config.Database)
	if err != nil {
		return err
	}
	if err := database.RunMigrations(ctx, pool); err != nil {
		pool.Close()
		return fmt.Errorf("run migrations: %w", err)
	}
	a.pool = pool
	a.Store = postgres.New(pool)
	return nil
}

func (a *App) openCache(ctx context.Context) cache.Store {
	rdb := redis.NewClient(&redis.Options{
		Addr:     a.Config.Redis.Addr,
		Password: a.Config.Redis.Password,
		DB:       a.Config.Redis.DB,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		slog.Warn("redis unavailable, running without cache", "error", err)
		rdb.Close()
		return cache.Noop{}
	}
	a.redis = rdb
	a.cache = cache.NewCache(rdb)
	return a.cache
}

func newStorage(ctx context.Context, cfg config.StorageConfig) (storage.Storage, error) {
	switch cfg.Backend {
	case "minio":
		s, err := storage.NewMinIOStorage(storage.MinIOConfig{
			Endpoint:        cfg.MinIOEndpoint,
			Bucket:          cfg.Bucket,
			AccessKeyID:     cfg.MinIOAccessKey,
			SecretAccessKey: cfg.MinIOSecretKey,
			UseSSL:          cfg.MinIOUseSSL,
		})
		if err != nil {
			return nil, err
		}
		if err := s.EnsureBucket(ctx); err != nil {
			return nil, err
		}
		return s, nil
	case "supabase":
		return storage.NewSupabaseStorage(cfg.SupabaseURL, cfg.SupabaseKey, cfg.Bucket), nil
	case "memory":
		slog.Warn("using in-memory blob storage, uploads are lost on restart")
		return storage.NewMemoryStorage(), nil
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Backend)
	}
}

// RegisterHandlers subscribes the pipeline stages on the bus. The API calls
// it only for the in-process bus; the worker always does.
func (a *App) RegisterHandlers() {
	a.Pipeline.Register()
}

// Handler builds the HTTP surface over the app's services.
func (a *App) Handler(limiter *middleware.RateLimiter) http.Handler {
	checks := map[string]handlers.Pinger{}
	if a.pool != nil {
		checks["database"] = a.pool
	}
	if a.cache != nil {
		checks["redis"] = a.cache
	}
	return api.NewRouter(api.Deps{
		Config:    a.Config,
		Pipeline:  a.Pipeline,
		Courses:   a.Courses,
		Documents: a.Documents,
		LLM:       a.LLM,
		Prompts:   a.Prompts,
		Limiter:   limiter,
		Checks:    checks,
	})
}

// Close drains the in-process bus, then releases connections.
func (a *App) Close(ctx context.Context) error {
	if a.closed {
		return nil
	}
	a.closed = true

	var errs []error
	switch bus := a.Bus.(type) {
	case *events.MemoryBus:
		if err := bus.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("drain event bus: %w", err))
		}
	case *queue.Bus:
		if err := bus.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close queue client: %w", err))
		}
	}
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close redis: %w", err))
		}
	}
	if a.pool != nil {
		database.LogStats(a.pool)
		a.pool.Close()
	}
	return errors.Join(errs...)
}
