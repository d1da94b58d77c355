package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Auth     AuthConfig
	LLM      LLMConfig
	Storage  StorageConfig
	Pipeline PipelineConfig
	LogLevel string
}

type ServerConfig struct {
	Host           string
	Port           int
	AllowedOrigins []string
	RateLimitRPS   float64
	RateLimitBurst int
}

type DatabaseConfig struct {
	URL      string
	MaxConns int
	MinConns int
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type AuthConfig struct {
	JWTSecret string
}

type LLMConfig struct {
	DefaultProvider string
	MaxRetries      int
	Temperature     float64
	MaxTokens       int

	OpenRouterKey     string
	OpenRouterBaseURL string
	OpenRouterModel   string
	OpenRouterReferer string
	OpenRouterTitle   string

	OpenAIKey   string
	OpenAIModel string

	AnthropicKey   string
	AnthropicModel string

	MistralKey     string
	MistralBaseURL string
	MistralModel   string

	OllamaURL   string
	OllamaModel string
}

type StorageConfig struct {
	Backend        string // "minio", "supabase" or "memory"
	Bucket         string
	MinIOEndpoint  string
	MinIOAccessKey string
	MinIOSecretKey string
	MinIOUseSSL    bool
	SupabaseURL    string
	SupabaseKey    string
}

type PipelineConfig struct {
	EventBus          string // "memory" or "asynq"
	QuizQuestionCount int
	FlashcardCount    int
	MaxInputTokens    int
	CacheTTL          time.Duration
}

func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		slog.Warn("could not read .env file", "error", err)
	}

	var errs []error
	intVar := func(key string, fallback int) int {
		v, err := getEnvInt(key, fallback)
		if err != nil {
			errs = append(errs, fmt.Errorf("invalid %s: %w", key, err))
		}
		return v
	}
	floatVar := func(key string, fallback float64) float64 {
		v, err := getEnvFloat(key, fallback)
		if err != nil {
			errs = append(errs, fmt.Errorf("invalid %s: %w", key, err))
		}
		return v
	}
	boolVar := func(key string, fallback bool) bool {
		v, err := getEnvBool(key, fallback)
		if err != nil {
			errs = append(errs, fmt.Errorf("invalid %s: %w", key, err))
		}
		return v
	}
	durationVar := func(key string, fallback time.Duration) time.Duration {
		v, err := getEnvDuration(key, fallback)
		if err != nil {
			errs = append(errs, fmt.Errorf("invalid %s: %w", key, err))
		}
		return v
	}

	cfg := &Config{
		Server: ServerConfig{
			Host:           getEnv("SERVER_HOST", "0.0.0.0"),
			Port:           intVar("SERVER_PORT", 8080),
			AllowedOrigins: splitList(getEnv("CORS_ALLOWED_ORIGINS", "*")),
			RateLimitRPS:   floatVar("RATE_LIMIT_RPS", 20),
			RateLimitBurst: intVar("RATE_LIMIT_BURST", 40),
		},
		Database: DatabaseConfig{
			URL:      getEnv("DATABASE_URL", ""),
			MaxConns: intVar("DB_MAX_CONNS", 20),
			MinConns: intVar("DB_MIN_CONNS", 2),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       intVar("REDIS_DB", 0),
		},
		Auth: AuthConfig{
			JWTSecret: getEnv("JWT_SECRET", ""),
		},
		LLM: LLMConfig{
			DefaultProvider: getEnv("LLM_DEFAULT_PROVIDER", "openrouter"),
			MaxRetries:      intVar("LLM_MAX_RETRIES", 3),
			Temperature:     floatVar("LLM_TEMPERATURE", 0.3),
			MaxTokens:       intVar("LLM_MAX_TOKENS", 8000),

			OpenRouterKey:     getEnv("OPENROUTER_API_KEY", ""),
			OpenRouterBaseURL: getEnv("OPENROUTER_BASE_URL", "https://openrouter.ai/api/v1"),
			OpenRouterModel:   getEnv("OPENROUTER_MODEL", "openai/gpt-4o-mini"),
			OpenRouterReferer: getEnv("OPENROUTER_REFERER", "http://localhost:8080"),
			OpenRouterTitle:   getEnv("OPENROUTER_TITLE", "Lenva Learning Platform"),

			OpenAIKey:   getEnv("OPENAI_API_KEY", ""),
			OpenAIModel: getEnv("OPENAI_MODEL", "gpt-4o-mini"),

			AnthropicKey:   getEnv("ANTHROPIC_API_KEY", ""),
			AnthropicModel: getEnv("ANTHROPIC_MODEL", "claude-sonnet-4-20250514"),

			MistralKey:     getEnv("MISTRAL_API_KEY", ""),
			MistralBaseURL: getEnv("MISTRAL_BASE_URL", "https://api.mistral.ai/v1"),
			MistralModel:   getEnv("MISTRAL_MODEL", "mistral-small-latest"),

			OllamaURL:   getEnv("OLLAMA_URL", ""),
			OllamaModel: getEnv("OLLAMA_MODEL", "llama3"),
		},
		Storage: StorageConfig{
			Backend:        getEnv("STORAGE_BACKEND", "minio"),
			Bucket:         getEnv("STORAGE_BUCKET", "documents"),
			MinIOEndpoint:  getEnv("MINIO_ENDPOINT", "localhost:9000"),
			MinIOAccessKey: getEnv("MINIO_ACCESS_KEY", ""),
			MinIOSecretKey: getEnv("MINIO_SECRET_KEY", ""),
			MinIOUseSSL:    boolVar("MINIO_USE_SSL", false),
			SupabaseURL:    getEnv("SUPABASE_URL", ""),
			SupabaseKey:    getEnv("SUPABASE_SERVICE_KEY", ""),
		},
		Pipeline: PipelineConfig{
			EventBus:          getEnv("EVENT_BUS", "memory"),
			QuizQuestionCount: intVar("PIPELINE_QUIZ_QUESTIONS", 10),
			FlashcardCount:    intVar("PIPELINE_FLASHCARDS", 15),
			MaxInputTokens:    intVar("PIPELINE_MAX_INPUT_TOKENS", 100000),
			CacheTTL:          durationVar("CACHE_TTL", time.Hour),
		},
		LogLevel: getEnv("LOG_LEVEL", "info"),
	}

	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return cfg, nil
}

func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

// Validate reports every missing or inconsistent setting at once.
func (c *Config) Validate() error {
	var missing []string
	if c.Auth.JWTSecret == "" {
		missing = append(missing, "JWT_SECRET")
	}
	if c.LLM.OpenRouterKey == "" && c.LLM.OpenAIKey == "" && c.LLM.AnthropicKey == "" &&
		c.LLM.MistralKey == "" && c.LLM.OllamaURL == "" {
		missing = append(missing, "one of OPENROUTER_API_KEY, OPENAI_API_KEY, ANTHROPIC_API_KEY, MISTRAL_API_KEY, OLLAMA_URL")
	}
	switch c.Storage.Backend {
	case "minio":
		if c.Storage.MinIOAccessKey == "" {
			missing = append(missing, "MINIO_ACCESS_KEY")
		}
		if c.Storage.MinIOSecretKey == "" {
			missing = append(missing, "MINIO_SECRET_KEY")
		}
	case "supabase":
		if c.Storage.SupabaseURL == "" {
			missing = append(missing, "SUPABASE_URL")
		}
		if c.Storage.SupabaseKey == "" {
			missing = append(missing, "SUPABASE_SERVICE_KEY")
		}
	case "memory":
	default:
		return fmt.Errorf("unknown STORAGE_BACKEND %q", c.Storage.Backend)
	}
	switch c.Pipeline.EventBus {
	case "memory":
	case "asynq":
		// The API and the worker must see the same courses and blobs.
		if c.Storage.Backend == "memory" {
			return errors.New("EVENT_BUS=asynq needs a shared STORAGE_BACKEND, not memory")
		}
		if c.Database.URL == "" {
			missing = append(missing, "DATABASE_URL (required by EVENT_BUS=asynq)")
		}
	default:
		return fmt.Errorf("unknown EVENT_BUS %q", c.Pipeline.EventBus)
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required env vars: %s", strings.Join(missing, ", "))
	}
	return nil
}

// SlogLevel maps LOG_LEVEL onto a slog level, defaulting to info.
func (c *Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	return strconv.Atoi(v)
}

func getEnvFloat(key string, fallback float64) (float64, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	return strconv.ParseFloat(v, 64)
}

func getEnvBool(key string, fallback bool) (bool, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	return strconv.ParseBool(v)
}

func getEnvDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	return time.ParseDuration(v)
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
