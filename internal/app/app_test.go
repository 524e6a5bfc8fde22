package app

import (
	"context"
	"testing"
	"time"

	"github.com/Rrens/flora-expert/internal/config"
	"github.com/Rrens/flora-expert/internal/domain"
	"github.com/Rrens/flora-expert/internal/llm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig() *config.Config {
	return &config.Config{
		Store: config.StoreConfig{
			Driver:      "sqlite",
			SQLite:      config.SQLiteConfig{Path: ":memory:"},
			AutoMigrate: true,
		},
		Auth: config.AuthConfig{
			JWTSecret:      "test-secret",
			AccessTokenTTL: time.Hour,
			BcryptCost:     4,
		},
		LLM: config.LLMConfig{
			DefaultProvider: "gemini",
			Timeout:         time.Second,
		},
		Alerts: config.AlertsConfig{CodeTTL: 2 * time.Minute},
		Security: config.SecurityConfig{
			RateLimit: config.RateLimitConfig{RequestsPerMinute: 60, Burst: 10},
		},
	}
}

func TestNew_WiresInMemoryFallbacks(t *testing.T) {
	a, err := New(context.Background(), testConfig())
	require.NoError(t, err)
	defer a.Close()

	assert.Nil(t, a.Redis)
	assert.NotNil(t, a.RateLimiter)
	assert.NoError(t, a.Store.Ping(context.Background()))

	ctx := context.Background()
	id, err := a.Auth.Register(ctx, "Rose@Example.com", "sunflower", "Rose")
	require.NoError(t, err)

	// Without a Gemini key every reply is the busy message, never an error.
	result, err := a.Chat.SendMessage(ctx, id, domain.SendMessageInput{Content: "Why are my tomato leaves yellow?"})
	require.NoError(t, err)
	assert.False(t, result.Failed)
	require.NotNil(t, result.AssistantMessage)
	assert.Equal(t, llm.BusyMessage, result.AssistantMessage.Content)
}

func TestNew_UnknownDriver(t *testing.T) {
	cfg := testConfig()
	cfg.Store.Driver = "cassandra"

	_, err := New(context.Background(), cfg)
	assert.Error(t, err)
}

func TestNewLLMRouter(t *testing.T) {
	router := NewLLMRouter(config.LLMConfig{
		DefaultProvider: "openai",
		OpenAI:          config.OpenAIConfig{APIKey: "sk-test"},
		Ollama:          config.OllamaConfig{Host: "http://localhost:11434"},
	})

	assert.Equal(t, []string{"gemini", "ollama", "openai"}, providerNames(router))
	assert.Equal(t, "openai", router.DefaultProvider())

	p, err := router.GetProvider("")
	require.NoError(t, err)
	assert.Equal(t, "openai", p.Name())
}

func providerNames(r *llm.Router) []string {
	var names []string
	for _, info := range r.GetProvidersInfo() {
		names = append(names, info.Name)
	}
	return names
}
