// Package app assembles stores, caches, providers and services from config.
// Both the HTTP server and the terminal client start from here.
package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Rrens/flora-expert/internal/config"
	"github.com/Rrens/flora-expert/internal/domain"
	"github.com/Rrens/flora-expert/internal/llm"
	"github.com/Rrens/flora-expert/internal/llm/anthropic"
	"github.com/Rrens/flora-expert/internal/llm/deepseek"
	"github.com/Rrens/flora-expert/internal/llm/gemini"
	"github.com/Rrens/flora-expert/internal/llm/ollama"
	"github.com/Rrens/flora-expert/internal/llm/openai"
	"github.com/Rrens/flora-expert/internal/mailer"
	"github.com/Rrens/flora-expert/internal/repository"
	"github.com/Rrens/flora-expert/internal/repository/memory"
	"github.com/Rrens/flora-expert/internal/repository/redis"
	"github.com/Rrens/flora-expert/internal/security"
	"github.com/Rrens/flora-expert/internal/service"
	"github.com/rs/zerolog/log"
)

// RateLimiter counts requests per key within a window
type RateLimiter interface {
	Allow(ctx context.Context, key string) (bool, int, time.Time, error)
}

// App holds the wired dependencies of one process
type App struct {
	Config      *config.Config
	Store       domain.Store
	Redis       *redis.Client
	LLM         *llm.Router
	Auth        *service.AuthService
	Chat        *service.ChatService
	Alerts      *service.AlertService
	RateLimiter RateLimiter
}

// New opens the configured store and builds every service on top of it.
// Redis is optional: when disabled or unreachable, in-process caches are used.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	store, err := repository.Open(ctx, cfg.Store)
	if err != nil {
		return nil, fmt.Errorf("failed to open store: %w", err)
	}

	a := &App{
		Config: cfg,
		Store:  store,
		LLM:    NewLLMRouter(cfg.LLM),
	}

	var (
		codes   service.CodeStore
		revoker service.TokenRevoker
	)
	if cfg.Redis.Enabled {
		client, err := redis.NewClient(ctx, cfg.Redis)
		if err != nil {
			log.Warn().Err(err).Str("addr", cfg.Redis.Addr()).Msg("Redis unavailable, using in-memory caches")
		} else {
			a.Redis = client
		}
	}
	if a.Redis != nil {
		codes = redis.NewCodeStore(a.Redis)
		revoker = redis.NewTokenRevocation(a.Redis)
		a.RateLimiter = redis.NewRateLimiter(a.Redis, cfg.Security.RateLimit.RequestsPerMinute, cfg.Security.RateLimit.Burst)
	} else {
		codes = memory.NewCodeStore()
		revoker = memory.NewTokenRevocation()
		a.RateLimiter = memory.NewRateLimiter(cfg.Security.RateLimit.RequestsPerMinute, cfg.Security.RateLimit.Burst)
	}

	hasher := security.NewPasswordHasher(cfg.Auth.BcryptCost)
	jwtManager := security.NewJWTManager(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTL)

	a.Auth = service.NewAuthService(store, hasher, jwtManager, revoker)
	a.Chat = service.NewChatService(store, NewResponder(a.LLM, cfg.LLM))
	a.Alerts = service.NewAlertService(codes, mailer.New(cfg.Mail, cfg.Alerts.CodeTTL), cfg.Alerts.CodeTTL)

	return a, nil
}

// Close releases the store and the Redis client
func (a *App) Close() error {
	var errs []error
	if a.Redis != nil {
		errs = append(errs, a.Redis.Close())
	}
	if a.Store != nil {
		errs = append(errs, a.Store.Close())
	}
	return errors.Join(errs...)
}

// NewLLMRouter registers every provider with credentials. Gemini is always
// registered so the default resolves even without a key.
func NewLLMRouter(cfg config.LLMConfig) *llm.Router {
	router := llm.NewRouter(cfg.DefaultProvider)

	log.Info().Msgf("Initializing LLM providers. Default: %s", cfg.DefaultProvider)

	router.RegisterProvider(gemini.NewProvider(cfg.Gemini))
	if cfg.Gemini.APIKey == "" {
		log.Warn().Msg("Gemini API Key is empty, replies will fall back to the busy message")
	}
	if cfg.Ollama.Host != "" {
		log.Info().Str("host", cfg.Ollama.Host).Msg("Registering Ollama provider")
		router.RegisterProvider(ollama.NewProvider(cfg.Ollama.Host, cfg.Ollama.DefaultModel))
	}
	if cfg.OpenAI.APIKey != "" {
		router.RegisterProvider(openai.NewProvider(cfg.OpenAI.APIKey, cfg.OpenAI.Model))
	}
	if cfg.Anthropic.APIKey != "" {
		router.RegisterProvider(anthropic.NewProvider(cfg.Anthropic.APIKey, cfg.Anthropic.Model))
	}
	if cfg.DeepSeek.APIKey != "" {
		router.RegisterProvider(deepseek.NewProvider(cfg.DeepSeek.APIKey, cfg.DeepSeek.Model))
	}

	return router
}

// NewResponder wraps the default provider. An unknown or unconfigured default
// falls back to Gemini, whose errors the responder turns into the busy reply.
func NewResponder(router *llm.Router, cfg config.LLMConfig) *llm.Responder {
	provider, err := router.GetProvider("")
	if err != nil {
		log.Warn().Err(err).Msg("Default LLM provider unavailable, using gemini")
		provider = gemini.NewProvider(cfg.Gemini)
	}
	return llm.NewResponder(provider, provider.DefaultModel(), cfg.Timeout)
}
