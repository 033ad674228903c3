package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
)

// RequiredVars must all be non-blank before the app mounts, in display order.
var RequiredVars = []string{"API_KEY", "SUPABASE_URL", "SUPABASE_ANON_KEY"}

const (
	AuthHosted   = "hosted"
	AuthUsername = "username"

	StoreSupabase = "supabase"
	StoreSQL      = "sql"
)

type Config struct {
	APIKey          string `env:"API_KEY"`
	SupabaseURL     string `env:"SUPABASE_URL"`
	SupabaseAnonKey string `env:"SUPABASE_ANON_KEY"`

	HTTPAddr  string `env:"HTTP_ADDR" envDefault:":8080"`
	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogPretty bool   `env:"LOG_PRETTY"`

	// auth
	AuthMode      string        `env:"AUTH_MODE" envDefault:"hosted"`
	SessionSecret string        `env:"SESSION_SECRET"`
	SessionTTL    time.Duration `env:"SESSION_TTL" envDefault:"24h"`

	// AI provider
	AIProvider        string `env:"AI_PROVIDER" envDefault:"gemini"`
	AIModel           string `env:"AI_MODEL"`
	GeminiBaseURL     string `env:"GEMINI_BASE_URL"`
	OllamaBaseURL     string `env:"OLLAMA_BASE_URL" envDefault:"http://localhost:11434"`
	OpenRouterBaseURL string `env:"OPENROUTER_BASE_URL" envDefault:"https://openrouter.ai/api/v1"`
	OpenRouterAPIKey  string `env:"OPENROUTER_API_KEY"`
	OpenRouterSiteURL string `env:"OPENROUTER_SITE_URL"`
	OpenRouterAppName string `env:"OPENROUTER_APP_NAME"`

	ResumeHistory bool          `env:"RESUME_HISTORY"`
	StreamTimeout time.Duration `env:"STREAM_TIMEOUT" envDefault:"2m"`

	// persistence
	StoreBackend string `env:"STORE_BACKEND" envDefault:"supabase"`
	DBDriver     string `env:"DB_DRIVER" envDefault:"sqlite"`
	DBDSN        string `env:"DB_DSN" envDefault:"kai.db"`

	RedisAddr     string `env:"REDIS_ADDR"`
	RedisPassword string `env:"REDIS_PASSWORD"`
	RedisDB       int    `env:"REDIS_DB"`

	// rabbitMQ
	RabbitURL         string `env:"RABBIT_URL"`
	RabbitQueue       string `env:"RABBIT_QUEUE" envDefault:"chat_events"`
	WorkerConcurrency int    `env:"WORKER_CONCURRENCY" envDefault:"2"`
	WorkerMetricsAddr string `env:"WORKER_METRICS_ADDR"`
}

// Load reads a .env file when one exists, then the process environment.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}
	return parse(env.Options{})
}

// LoadFrom parses the given variables only. Used by tests and tools.
func LoadFrom(vars map[string]string) (Config, error) {
	return parse(env.Options{Environment: vars})
}

func parse(opts env.Options) (Config, error) {
	var cfg Config
	if err := env.ParseWithOptions(&cfg, opts); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	cfg.AuthMode = strings.ToLower(strings.TrimSpace(cfg.AuthMode))
	cfg.StoreBackend = strings.ToLower(strings.TrimSpace(cfg.StoreBackend))
	cfg.AIProvider = strings.ToLower(strings.TrimSpace(cfg.AIProvider))
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	switch c.AuthMode {
	case AuthHosted, AuthUsername:
	default:
		return fmt.Errorf("AUTH_MODE must be %q or %q, got %q", AuthHosted, AuthUsername, c.AuthMode)
	}
	switch c.StoreBackend {
	case StoreSupabase, StoreSQL:
	default:
		return fmt.Errorf("STORE_BACKEND must be %q or %q, got %q", StoreSupabase, StoreSQL, c.StoreBackend)
	}
	if c.SessionTTL <= 0 {
		return fmt.Errorf("SESSION_TTL must be positive, got %s", c.SessionTTL)
	}
	if c.StreamTimeout < 0 {
		return fmt.Errorf("STREAM_TIMEOUT must not be negative, got %s", c.StreamTimeout)
	}
	return nil
}

// MissingRequired lists the required variables that are unset or blank, in
// RequiredVars order.
func (c Config) MissingRequired() []string {
	values := map[string]string{
		"API_KEY":           c.APIKey,
		"SUPABASE_URL":      c.SupabaseURL,
		"SUPABASE_ANON_KEY": c.SupabaseAnonKey,
	}
	var missing []string
	for _, name := range RequiredVars {
		if strings.TrimSpace(values[name]) == "" {
			missing = append(missing, name)
		}
	}
	return missing
}

// OpenRouterKey falls back to API_KEY when no dedicated key is set.
func (c Config) OpenRouterKey() string {
	if c.OpenRouterAPIKey != "" {
		return c.OpenRouterAPIKey
	}
	return c.APIKey
}
