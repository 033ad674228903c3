// Package bootstrap wires config into the stores, providers and session
// machinery shared by the server and the terminal client.
package bootstrap

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/suPer8Hu/kai-companion/internal/ai"
	"github.com/suPer8Hu/kai-companion/internal/chat"
	"github.com/suPer8Hu/kai-companion/internal/config"
	"github.com/suPer8Hu/kai-companion/internal/db"
	"github.com/suPer8Hu/kai-companion/internal/identity"
	"github.com/suPer8Hu/kai-companion/internal/store/rabbitmq"
	"github.com/suPer8Hu/kai-companion/internal/store/redisstore"
	"github.com/suPer8Hu/kai-companion/internal/store/supabase"
)

type App struct {
	Cfg      config.Config
	Store    chat.Store
	Opener   ai.Opener
	Hub      *chat.Hub
	Sessions *identity.Sessions
	// Hosted is nil unless AUTH_MODE=hosted.
	Hosted *identity.Hosted

	closers []func() error
}

// NewRegistry registers every supported provider. API_KEY authenticates
// gemini and is the openrouter fallback key.
func NewRegistry(cfg config.Config) *ai.Registry {
	reg := ai.NewRegistry()
	reg.Register("gemini", func(ctx context.Context, model string) (ai.Provider, error) {
		return ai.NewGeminiProvider(cfg.GeminiBaseURL, cfg.APIKey, model), nil
	})
	reg.Register("openrouter", func(ctx context.Context, model string) (ai.Provider, error) {
		if model == "" {
			model = "openrouter/auto"
		}
		return ai.NewOpenRouterProvider(cfg.OpenRouterBaseURL, cfg.OpenRouterKey(), model, cfg.OpenRouterSiteURL, cfg.OpenRouterAppName), nil
	})
	reg.Register("ollama", func(ctx context.Context, model string) (ai.Provider, error) {
		return ai.NewOllamaProvider(cfg.OllamaBaseURL, model), nil
	})
	return reg
}

// Build assumes the required variables are present.
func Build(ctx context.Context, cfg config.Config) (*App, error) {
	log := zerolog.Ctx(ctx)
	app := &App{Cfg: cfg}

	opener, err := NewRegistry(cfg).Opener(ctx, cfg.AIProvider, cfg.AIModel, ai.SystemPrompt)
	if err != nil {
		return nil, fmt.Errorf("ai provider: %w", err)
	}
	app.Opener = opener

	supa := supabase.NewClient(cfg.SupabaseURL, cfg.SupabaseAnonKey)
	store, err := app.openStore(ctx, supa)
	if err != nil {
		_ = app.Close()
		return nil, err
	}

	if cfg.RabbitURL != "" {
		pub, err := rabbitmq.NewPublisher(cfg.RabbitURL, cfg.RabbitQueue)
		if err != nil {
			_ = app.Close()
			return nil, fmt.Errorf("rabbit publisher: %w", err)
		}
		app.closers = append(app.closers, pub.Close)
		store = rabbitmq.NewPublishingStore(store, pub)
		log.Info().Str("queue", cfg.RabbitQueue).Msg("publishing message events")
	}
	app.Store = store

	revocations, err := app.openRevocations(ctx)
	if err != nil {
		_ = app.Close()
		return nil, err
	}

	secret := cfg.SessionSecret
	if secret == "" {
		secret, err = randomSecret()
		if err != nil {
			_ = app.Close()
			return nil, err
		}
		log.Warn().Msg("SESSION_SECRET not set, sessions will not survive a restart")
	}
	app.Sessions = identity.NewSessions(secret, cfg.SessionTTL, revocations)

	if cfg.AuthMode == config.AuthHosted {
		app.Hosted = identity.NewHosted(supa)
	}

	app.Hub = chat.NewHub(app.Store, app.Opener, chat.Options{
		ResumeHistory: cfg.ResumeHistory,
		StreamTimeout: cfg.StreamTimeout,
	})
	return app, nil
}

func (a *App) openStore(ctx context.Context, supa *supabase.Client) (chat.Store, error) {
	if a.Cfg.StoreBackend != config.StoreSQL {
		return supa, nil
	}
	gdb, err := db.Connect(a.Cfg.DBDriver, a.Cfg.DBDSN)
	if err != nil {
		return nil, err
	}
	if sqlDB, err := gdb.DB(); err == nil {
		a.closers = append(a.closers, sqlDB.Close)
	}
	repo := chat.NewRepo(gdb)
	if err := repo.Migrate(ctx); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return repo, nil
}

func (a *App) openRevocations(ctx context.Context) (identity.Revocations, error) {
	if a.Cfg.RedisAddr == "" {
		return identity.NewMemoryRevocations(), nil
	}
	rds, err := redisstore.New(ctx, a.Cfg.RedisAddr, a.Cfg.RedisPassword, a.Cfg.RedisDB)
	if err != nil {
		return nil, fmt.Errorf("redis: %w", err)
	}
	a.closers = append(a.closers, rds.Close)
	return rds, nil
}

// Close releases connections in reverse order of opening.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}

func randomSecret() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
