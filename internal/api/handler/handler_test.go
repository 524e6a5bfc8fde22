package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/Rrens/flora-expert/internal/api/handler"
	"github.com/Rrens/flora-expert/internal/api/middleware"
	"github.com/Rrens/flora-expert/internal/config"
	"github.com/Rrens/flora-expert/internal/domain"
	"github.com/Rrens/flora-expert/internal/llm"
	"github.com/Rrens/flora-expert/internal/repository/memory"
	"github.com/Rrens/flora-expert/internal/repository/sqlstore"
	"github.com/Rrens/flora-expert/internal/security"
	"github.com/Rrens/flora-expert/internal/service"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testReply = "🌿 **Diagnosis**: Nitrogen deficiency."

type stubResponder struct{}

func (stubResponder) Generate(context.Context, string, []llm.Turn, *llm.Image) string {
	return testReply
}

// captureSender remembers the last code instead of mailing it
type captureSender struct {
	mu   sync.Mutex
	code string
}

func (s *captureSender) SendCode(_ context.Context, _, _, code string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.code = code
	return true
}

func (s *captureSender) last() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.code
}

type failingPinger struct{}

func (failingPinger) Ping(context.Context) error { return errors.New("down") }

type testServer struct {
	router http.Handler
	sender *captureSender
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	store, err := sqlstore.OpenSQLite(context.Background(), config.SQLiteConfig{Path: ":memory:"}, true)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	authService := service.NewAuthService(
		store,
		security.NewPasswordHasher(4),
		security.NewJWTManager("test-secret", time.Hour),
		memory.NewTokenRevocation(),
	)
	chatService := service.NewChatService(store, stubResponder{})
	sender := &captureSender{}
	alertService := service.NewAlertService(memory.NewCodeStore(), sender, 2*time.Minute)

	authHandler := handler.NewAuthHandler(authService)
	chatHandler := handler.NewChatHandler(chatService, 1<<20)
	alertHandler := handler.NewAlertHandler(alertService)
	authMiddleware := middleware.NewAuthMiddleware(authService)

	r := chi.NewRouter()
	r.Get("/health", handler.HealthCheck)
	r.Get("/ready", handler.ReadyCheck(store))
	r.Post("/auth/register", authHandler.Register)
	r.Post("/auth/login", authHandler.Login)
	r.Group(func(r chi.Router) {
		r.Use(authMiddleware.Authenticate)
		r.Post("/auth/signout", authHandler.SignOut)
		r.Get("/auth/me", authHandler.Me)
		r.Get("/sessions", chatHandler.ListSessions)
		r.Post("/sessions", chatHandler.CreateSession)
		r.Get("/sessions/{sessionID}", chatHandler.GetSession)
		r.Post("/chat", chatHandler.Send)
		r.Post("/alerts/code", alertHandler.RequestCode)
		r.Post("/alerts/verify", alertHandler.VerifyCode)
	})

	return &testServer{router: r, sender: sender}
}

func (s *testServer) do(t *testing.T, method, path, token string, body any) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)

	var resp map[string]any
	if rec.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	}
	return rec, resp
}

func (s *testServer) register(t *testing.T, email string) string {
	t.Helper()
	rec, resp := s.do(t, http.MethodPost, "/auth/register", "", map[string]string{
		"email":    email,
		"password": "sunflower",
		"name":     "Rose",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	return resp["data"].(map[string]any)["access_token"].(string)
}

func TestHealthCheck(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/v1/health", nil)
	rec := httptest.NewRecorder()

	handler.HealthCheck(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)

	var response map[string]any
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&response))
	assert.Equal(t, true, response["success"])

	data, ok := response["data"].(map[string]any)
	require.True(t, ok, "expected data to be a map")
	assert.Equal(t, "ok", data["status"])
}

func TestReadyCheck(t *testing.T) {
	srv := newTestServer(t)
	rec, _ := srv.do(t, http.MethodGet, "/ready", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	handler.ReadyCheck(failingPinger{})(rec, httptest.NewRequest(http.MethodGet, "/ready", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestAuthHandler_Register(t *testing.T) {
	srv := newTestServer(t)

	rec, resp := srv.do(t, http.MethodPost, "/auth/register", "", map[string]string{
		"email":    "Rose@Example.com",
		"password": "sunflower",
		"name":     "Rose",
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	data := resp["data"].(map[string]any)
	assert.NotEmpty(t, data["access_token"])
	assert.Equal(t, "Bearer", data["token_type"])
	identity := data["identity"].(map[string]any)
	assert.Equal(t, "rose@example.com", identity["uid"])
	assert.Equal(t, "Rose", identity["displayName"])

	t.Run("duplicate email in any casing", func(t *testing.T) {
		rec, _ := srv.do(t, http.MethodPost, "/auth/register", "", map[string]string{
			"email":    "ROSE@example.COM",
			"password": "other",
			"name":     "Other",
		})
		assert.Equal(t, http.StatusConflict, rec.Code)
	})

	t.Run("long multibyte password", func(t *testing.T) {
		password := strings.Repeat("🌵", 30)
		rec, _ := srv.do(t, http.MethodPost, "/auth/register", "", map[string]string{
			"email":    "cactus@example.com",
			"password": password,
			"name":     "Cactus",
		})
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

		rec, _ = srv.do(t, http.MethodPost, "/auth/login", "", map[string]string{
			"email":    "cactus@example.com",
			"password": password,
		})
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("invalid input", func(t *testing.T) {
		rec, resp := srv.do(t, http.MethodPost, "/auth/register", "", map[string]string{
			"email":    "not-an-email",
			"password": "x",
		})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		fields := resp["error"].(map[string]any)
		assert.Equal(t, "invalid email format", fields["Email"])
		assert.Equal(t, "field is required", fields["Name"])
	})
}

func TestAuthHandler_Login(t *testing.T) {
	srv := newTestServer(t)
	srv.register(t, "rose@example.com")

	tests := []struct {
		name     string
		email    string
		password string
		status   int
	}{
		{"success", "rose@example.com", "sunflower", http.StatusOK},
		{"email casing ignored", "ROSE@example.com", "sunflower", http.StatusOK},
		{"unknown user", "fern@example.com", "sunflower", http.StatusNotFound},
		{"wrong password", "rose@example.com", "tulip", http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, resp := srv.do(t, http.MethodPost, "/auth/login", "", map[string]string{
				"email":    tt.email,
				"password": tt.password,
			})
			assert.Equal(t, tt.status, rec.Code)
			if tt.status == http.StatusOK {
				identity := resp["data"].(map[string]any)["identity"].(map[string]any)
				assert.Equal(t, "rose@example.com", identity["uid"])
			}
		})
	}
}

func TestAuthHandler_MeAndSignOut(t *testing.T) {
	srv := newTestServer(t)
	token := srv.register(t, "rose@example.com")

	rec, resp := srv.do(t, http.MethodGet, "/auth/me", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "rose@example.com", resp["data"].(map[string]any)["email"])

	rec, _ = srv.do(t, http.MethodPost, "/auth/signout", token, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec, _ = srv.do(t, http.MethodGet, "/auth/me", token, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuthMiddleware_RejectsMissingToken(t *testing.T) {
	srv := newTestServer(t)

	rec, _ := srv.do(t, http.MethodGet, "/sessions", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec, _ = srv.do(t, http.MethodGet, "/sessions", "garbage", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestChatHandler_SendAndReload(t *testing.T) {
	srv := newTestServer(t)
	token := srv.register(t, "rose@example.com")

	rec, resp := srv.do(t, http.MethodPost, "/chat", token, map[string]string{
		"content": "Why are my tomato leaves yellow?",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	result := resp["data"].(map[string]any)
	assert.Equal(t, false, result["failed"])
	assert.Equal(t, testReply, result["assistant_message"].(map[string]any)["content"])
	sessionID := result["session_id"].(string)
	require.NotEmpty(t, sessionID)

	rec, resp = srv.do(t, http.MethodGet, "/sessions", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	sessions := resp["data"].(map[string]any)["sessions"].([]any)
	require.Len(t, sessions, 1)
	session := sessions[0].(map[string]any)
	assert.Equal(t, "Why are my tomato leaves ...", session["title"])

	messages := session["messages"].([]any)
	require.Len(t, messages, 2)
	assert.Equal(t, "user", messages[0].(map[string]any)["role"])
	assert.Equal(t, "assistant", messages[1].(map[string]any)["role"])

	rec, resp = srv.do(t, http.MethodGet, "/sessions/"+sessionID, token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	state := resp["data"].(map[string]any)
	assert.Equal(t, sessionID, state["active_session_id"])
	assert.Equal(t, false, state["awaiting"])
}

func TestChatHandler_Photo(t *testing.T) {
	srv := newTestServer(t)
	token := srv.register(t, "rose@example.com")

	rec, resp := srv.do(t, http.MethodPost, "/chat", token, map[string]any{
		"image": map[string]string{
			"mime_type": "image/jpeg",
			"data":      "aGVsbG8=",
		},
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	result := resp["data"].(map[string]any)
	userMessage := result["user_message"].(map[string]any)
	assert.Equal(t, "data:image/jpeg;base64,aGVsbG8=", userMessage["image_url"])

	session := result["state"].(map[string]any)["sessions"].([]any)[0].(map[string]any)
	assert.Equal(t, "Photo Analysis", session["title"])
}

func TestChatHandler_Errors(t *testing.T) {
	srv := newTestServer(t)
	token := srv.register(t, "rose@example.com")
	other := srv.register(t, "fern@example.com")

	rec, _ := srv.do(t, http.MethodPost, "/chat", token, map[string]string{"content": "   "})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, _ = srv.do(t, http.MethodPost, "/chat", token, map[string]any{
		"content": "hello",
		"image":   map[string]string{"mime_type": "image/png", "data": "%%%"},
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, _ = srv.do(t, http.MethodGet, "/sessions/does-not-exist", token, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec, resp := srv.do(t, http.MethodPost, "/sessions", token, nil)
	require.Equal(t, http.StatusCreated, rec.Code)
	sessionID := resp["data"].(map[string]any)["active_session_id"].(string)

	// Another identity cannot see or write to the session.
	rec, _ = srv.do(t, http.MethodGet, "/sessions/"+sessionID, other, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	rec, _ = srv.do(t, http.MethodPost, "/chat", other, map[string]string{
		"session_id": sessionID,
		"content":    "hi",
	})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAlertHandler_CodeFlow(t *testing.T) {
	srv := newTestServer(t)
	token := srv.register(t, "rose@example.com")

	rec, resp := srv.do(t, http.MethodPost, "/alerts/code", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, resp["data"].(map[string]any)["sent"])

	code := srv.sender.last()
	require.Len(t, code, 6)

	rec, _ = srv.do(t, http.MethodPost, "/alerts/verify", token, map[string]string{"code": "12ab"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, _ = srv.do(t, http.MethodPost, "/alerts/verify", token, map[string]string{"code": code})
	assert.Equal(t, http.StatusOK, rec.Code)

	// Codes are single use.
	rec, _ = srv.do(t, http.MethodPost, "/alerts/verify", token, map[string]string{"code": code})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRateLimitMiddleware(t *testing.T) {
	limiter := middleware.NewRateLimitMiddleware(memory.NewRateLimiter(1, 0))
	h := limiter.Limit(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodPost, "/auth/login", nil)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "0", rec.Header().Get("X-RateLimit-Remaining"))

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
}

// BenchmarkJWTGeneration benchmarks token generation
func BenchmarkJWTGeneration(b *testing.B) {
	manager := security.NewJWTManager("benchmark-secret-key-32-chars!!", 15*time.Minute)
	identity := &domain.Identity{UID: "rose@example.com", Email: "rose@example.com", DisplayName: "Rose"}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = manager.GenerateAccessToken(identity)
	}
}
