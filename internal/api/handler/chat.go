package handler

import (
	"errors"
	"net/http"

	"github.com/Rrens/flora-expert/internal/api/middleware"
	"github.com/Rrens/flora-expert/internal/api/response"
	"github.com/Rrens/flora-expert/internal/domain"
	"github.com/Rrens/flora-expert/internal/service"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"
)

// ChatHandler exposes the chat sessions of the authenticated identity
type ChatHandler struct {
	chatService  *service.ChatService
	maxBodyBytes int64
}

// NewChatHandler creates a new chat handler. maxBodyBytes caps the size of a
// chat turn, inline photo included; zero disables the cap.
func NewChatHandler(chatService *service.ChatService, maxBodyBytes int64) *ChatHandler {
	return &ChatHandler{chatService: chatService, maxBodyBytes: maxBodyBytes}
}

// ListSessions returns every session, newest first
func (h *ChatHandler) ListSessions(w http.ResponseWriter, r *http.Request) {
	identity, ok := middleware.GetIdentity(r.Context())
	if !ok {
		response.Unauthorized(w, "unauthorized")
		return
	}

	state, err := h.chatService.Reload(r.Context(), identity)
	if err != nil {
		writeChatError(w, err)
		return
	}

	response.OK(w, state)
}

// CreateSession starts an empty "New Chat" session
func (h *ChatHandler) CreateSession(w http.ResponseWriter, r *http.Request) {
	identity, ok := middleware.GetIdentity(r.Context())
	if !ok {
		response.Unauthorized(w, "unauthorized")
		return
	}

	state, err := h.chatService.NewChat(r.Context(), identity)
	if err != nil {
		writeChatError(w, err)
		return
	}

	response.Created(w, state)
}

// GetSession makes a session active and returns the refreshed view
func (h *ChatHandler) GetSession(w http.ResponseWriter, r *http.Request) {
	identity, ok := middleware.GetIdentity(r.Context())
	if !ok {
		response.Unauthorized(w, "unauthorized")
		return
	}

	state, err := h.chatService.SelectSession(r.Context(), identity, chi.URLParam(r, "sessionID"))
	if err != nil {
		writeChatError(w, err)
		return
	}

	response.OK(w, state)
}

// Send runs one chat turn
func (h *ChatHandler) Send(w http.ResponseWriter, r *http.Request) {
	identity, ok := middleware.GetIdentity(r.Context())
	if !ok {
		response.Unauthorized(w, "unauthorized")
		return
	}

	if h.maxBodyBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, h.maxBodyBytes)
	}

	var input domain.SendMessageInput
	if !decodeAndValidate(w, r, &input) {
		return
	}

	result, err := h.chatService.SendMessage(r.Context(), identity, input)
	if err != nil {
		writeChatError(w, err)
		return
	}

	response.OK(w, result)
}

func writeChatError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrSessionNotFound):
		response.NotFound(w, err.Error())
	case errors.Is(err, domain.ErrTurnInFlight):
		response.Conflict(w, err.Error())
	case errors.Is(err, domain.ErrEmptyMessage):
		response.BadRequest(w, err.Error())
	default:
		log.Error().Err(err).Msg("Chat request failed")
		response.InternalError(w, "internal error")
	}
}
