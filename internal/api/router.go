package api

import (
	"net/http"

	"github.com/Rrens/flora-expert/internal/api/handler"
	customMiddleware "github.com/Rrens/flora-expert/internal/api/middleware"
	"github.com/Rrens/flora-expert/internal/app"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// NewRouter creates and configures the HTTP router
func NewRouter(a *app.App) http.Handler {
	cfg := a.Config
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(customMiddleware.Logger)
	r.Use(middleware.Recoverer)
	if cfg.Server.MiddlewareTimeout > 0 {
		r.Use(middleware.Timeout(cfg.Server.MiddlewareTimeout))
	}

	// CORS
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"X-Request-ID", "X-RateLimit-Remaining", "X-RateLimit-Reset"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Initialize handlers
	authHandler := handler.NewAuthHandler(a.Auth)
	chatHandler := handler.NewChatHandler(a.Chat, cfg.Server.MaxBodyBytes)
	alertHandler := handler.NewAlertHandler(a.Alerts)

	authMiddleware := customMiddleware.NewAuthMiddleware(a.Auth)
	rateLimitMiddleware := customMiddleware.NewRateLimitMiddleware(a.RateLimiter)

	r.Route("/api/v1", func(r chi.Router) {
		// Health check
		r.Get("/health", handler.HealthCheck)
		r.Get("/ready", handler.ReadyCheck(a.Store))

		// Auth routes (public, limited per client address)
		r.Route("/auth", func(r chi.Router) {
			r.With(rateLimitMiddleware.Limit).Post("/register", authHandler.Register)
			r.With(rateLimitMiddleware.Limit).Post("/login", authHandler.Login)

			r.Group(func(r chi.Router) {
				r.Use(authMiddleware.Authenticate)
				r.Post("/signout", authHandler.SignOut)
				r.Get("/me", authHandler.Me)
			})
		})

		// Protected routes
		r.Group(func(r chi.Router) {
			r.Use(authMiddleware.Authenticate)
			r.Use(rateLimitMiddleware.Limit)

			r.Get("/llm-providers", handler.ListLLMProviders(a.LLM))

			r.Route("/sessions", func(r chi.Router) {
				r.Get("/", chatHandler.ListSessions)
				r.Post("/", chatHandler.CreateSession)
				r.Get("/{sessionID}", chatHandler.GetSession)
			})

			r.Post("/chat", chatHandler.Send)

			r.Route("/alerts", func(r chi.Router) {
				r.Post("/code", alertHandler.RequestCode)
				r.Post("/verify", alertHandler.VerifyCode)
			})
		})
	})

	return r
}
