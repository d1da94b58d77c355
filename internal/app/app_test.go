package app

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/nikhilbhutani/coursegen/internal/config"
	"github.com/nikhilbhutani/coursegen/internal/events"
)

func localConfig() *config.Config {
	return &config.Config{
		Server:   config.ServerConfig{AllowedOrigins: []string{"*"}},
		Redis:    config.RedisConfig{Addr: "127.0.0.1:1"},
		Auth:     config.AuthConfig{JWTSecret: "secret"},
		LLM:      config.LLMConfig{DefaultProvider: "openrouter"},
		Storage:  config.StorageConfig{Backend: "memory"},
		Pipeline: config.PipelineConfig{EventBus: "memory"},
	}
}

func TestNew_LocalFallbacks(t *testing.T) {
	ctx := context.Background()
	a, err := New(ctx, localConfig())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if _, ok := a.Bus.(*events.MemoryBus); !ok {
		t.Errorf("bus = %T, want *events.MemoryBus", a.Bus)
	}
	if a.pool != nil || a.cache != nil {
		t.Error("no database or redis should be connected")
	}
	a.RegisterHandlers()

	rec := httptest.NewRecorder()
	a.Handler(nil).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("/readyz status = %d, body %s", rec.Code, rec.Body.String())
	}

	if err := a.Close(ctx); err != nil {
		t.Errorf("Close() error = %v", err)
	}
	if err := a.Close(ctx); err != nil {
		t.Errorf("second Close() error = %v", err)
	}
}

func TestNewStorage_UnknownBackend(t *testing.T) {
	if _, err := newStorage(context.Background(), config.StorageConfig{Backend: "ftp"}); err == nil {
		t.Error("expected an error for an unknown backend")
	}
}
