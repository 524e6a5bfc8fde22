package service

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/Rrens/flora-expert/internal/domain"
	"github.com/Rrens/flora-expert/internal/llm"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// Responder produces the assistant reply for a turn. Implementations are
// expected to absorb their own failures and always return text.
type Responder interface {
	Generate(ctx context.Context, prompt string, history []llm.Turn, image *llm.Image) string
}

// ChatService runs chat turns: it creates and renames sessions, appends
// messages and asks the responder for replies. Every operation returns the
// freshly reloaded view of the identity's sessions.
type ChatService struct {
	store     domain.Store
	responder Responder
	now       func() time.Time
	newID     func() string

	mu       sync.Mutex
	inFlight map[string]struct{}

	// createMu serializes session creation so CreatedAt stays strictly increasing
	createMu sync.Mutex
}

// NewChatService creates a new chat service
func NewChatService(store domain.Store, responder Responder) *ChatService {
	return &ChatService{
		store:     store,
		responder: responder,
		now:       time.Now,
		newID:     func() string { return uuid.NewString() },
		inFlight:  make(map[string]struct{}),
	}
}

// NewChat creates an empty session titled "New Chat" and makes it active
func (s *ChatService) NewChat(ctx context.Context, identity *domain.Identity) (*domain.ChatState, error) {
	if identity == nil {
		return nil, nil
	}

	session, err := s.createSession(ctx, identity)
	if err != nil {
		return nil, err
	}

	return s.reload(ctx, identity, session.ID)
}

// Reload returns every session of the identity, newest first, with messages oldest first
func (s *ChatService) Reload(ctx context.Context, identity *domain.Identity) (*domain.ChatState, error) {
	if identity == nil {
		return nil, nil
	}
	return s.reload(ctx, identity, "")
}

// SelectSession reloads the view with sessionID as the active session
func (s *ChatService) SelectSession(ctx context.Context, identity *domain.Identity, sessionID string) (*domain.ChatState, error) {
	if identity == nil {
		return nil, nil
	}

	if _, err := s.ownedSession(ctx, identity, sessionID); err != nil {
		return nil, err
	}

	state, err := s.reload(ctx, identity, sessionID)
	if err != nil {
		return nil, err
	}
	state.Awaiting = s.isInFlight(sessionID)
	return state, nil
}

// SendMessage runs one turn. Errors resolving or renaming the session are
// returned; failures from appending the user message onwards are logged and
// reported via TurnResult.Failed.
func (s *ChatService) SendMessage(ctx context.Context, identity *domain.Identity, input domain.SendMessageInput) (*domain.TurnResult, error) {
	if identity == nil {
		return nil, nil
	}

	content := strings.TrimSpace(input.Content)
	if content == "" && input.Image == nil {
		return nil, domain.ErrEmptyMessage
	}

	session, err := s.resolveSession(ctx, identity, input.SessionID)
	if err != nil {
		return nil, err
	}

	if !s.acquire(session.ID) {
		return nil, domain.ErrTurnInFlight
	}
	defer s.release(session.ID)

	if session.NeedsTitle() {
		title := domain.TitleFor(content, input.Image != nil)
		if err := s.store.UpdateSessionTitle(ctx, session.ID, title); err != nil {
			return nil, fmt.Errorf("failed to rename session: %w", err)
		}
		session.Title = title
	}

	result := &domain.TurnResult{SessionID: session.ID}
	if err := s.runTurn(ctx, identity, session.ID, content, input.Image, result); err != nil {
		log.Error().
			Err(err).
			Str("session_id", session.ID).
			Str("uid", identity.UID).
			Msg("Chat turn failed")

		result.Failed = true
		result.AssistantMessage = nil

		// Show what was persisted: the user message, without a reply.
		if state, reloadErr := s.reload(context.WithoutCancel(ctx), identity, session.ID); reloadErr == nil {
			result.State = state
		} else if result.State != nil {
			result.State.Awaiting = false
		}
	}

	return result, nil
}

func (s *ChatService) runTurn(
	ctx context.Context,
	identity *domain.Identity,
	sessionID string,
	content string,
	image *domain.Image,
	result *domain.TurnResult,
) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("chat turn panic: %v", rec)
		}
	}()

	userMsg := &domain.Message{
		ID:        s.newID(),
		SessionID: sessionID,
		Role:      domain.RoleUser,
		Content:   content,
		ImageURL:  image.StoredURL(),
	}
	if err := s.appendMessage(ctx, userMsg); err != nil {
		return err
	}
	result.UserMessage = userMsg

	// The user message is written; the turn now runs to completion.
	ctx = context.WithoutCancel(ctx)

	state, err := s.reload(ctx, identity, sessionID)
	if err != nil {
		return err
	}
	state.Awaiting = true
	result.State = state

	reply := s.responder.Generate(ctx, content, historyFor(state, sessionID, userMsg.ID), responderImage(image))

	assistantMsg := &domain.Message{
		ID:        s.newID(),
		SessionID: sessionID,
		Role:      domain.RoleAssistant,
		Content:   reply,
	}
	if err := s.appendMessage(ctx, assistantMsg); err != nil {
		return err
	}
	result.AssistantMessage = assistantMsg

	state, err = s.reload(ctx, identity, sessionID)
	if err != nil {
		return err
	}
	result.State = state

	return nil
}

// appendMessage stamps the message strictly after the newest stored message
// of its session, at millisecond precision, and stores it.
func (s *ChatService) appendMessage(ctx context.Context, msg *domain.Message) error {
	existing, err := s.store.ListMessagesForSession(ctx, msg.SessionID)
	if err != nil {
		return fmt.Errorf("failed to read messages: %w", err)
	}

	ts := s.now().UTC().Truncate(time.Millisecond)
	if n := len(existing); n > 0 {
		if last := existing[n-1].Timestamp; !ts.After(last) {
			ts = last.Add(time.Millisecond)
		}
	}
	msg.Timestamp = ts

	if err := s.store.AddMessage(ctx, msg); err != nil {
		return fmt.Errorf("failed to save %s message: %w", msg.Role, err)
	}
	return nil
}

func (s *ChatService) resolveSession(ctx context.Context, identity *domain.Identity, sessionID string) (*domain.ChatSession, error) {
	if sessionID == "" {
		return s.createSession(ctx, identity)
	}
	return s.ownedSession(ctx, identity, sessionID)
}

// createSession stamps the session strictly after the identity's newest
// session, at millisecond precision, so listings stay newest first.
func (s *ChatService) createSession(ctx context.Context, identity *domain.Identity) (*domain.ChatSession, error) {
	s.createMu.Lock()
	defer s.createMu.Unlock()

	existing, err := s.store.ListSessionsForUser(ctx, identity.UID)
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}

	createdAt := s.now().UTC().Truncate(time.Millisecond)
	if len(existing) > 0 {
		if newest := existing[0].CreatedAt; !createdAt.After(newest) {
			createdAt = newest.Add(time.Millisecond)
		}
	}

	session := &domain.ChatSession{
		ID:        s.newID(),
		UserID:    identity.UID,
		Title:     domain.PlaceholderTitle,
		CreatedAt: createdAt,
	}
	if err := s.store.AddSession(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	log.Debug().Str("session_id", session.ID).Str("uid", identity.UID).Msg("Session created")
	return session, nil
}

// ownedSession fetches a session, hiding sessions of other users
func (s *ChatService) ownedSession(ctx context.Context, identity *domain.Identity, sessionID string) (*domain.ChatSession, error) {
	session, err := s.store.GetSession(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	if session == nil || session.UserID != identity.UID {
		return nil, domain.ErrSessionNotFound
	}
	return session, nil
}

func (s *ChatService) reload(ctx context.Context, identity *domain.Identity, activeID string) (*domain.ChatState, error) {
	sessions, err := s.store.ListSessionsForUser(ctx, identity.UID)
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}

	views := make([]domain.SessionView, 0, len(sessions))
	for _, session := range sessions {
		messages, err := s.store.ListMessagesForSession(ctx, session.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to list messages: %w", err)
		}
		views = append(views, domain.SessionView{ChatSession: session, Messages: messages})
	}

	return &domain.ChatState{Sessions: views, ActiveSessionID: activeID}, nil
}

func (s *ChatService) acquire(sessionID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, busy := s.inFlight[sessionID]; busy {
		return false
	}
	s.inFlight[sessionID] = struct{}{}
	return true
}

func (s *ChatService) release(sessionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.inFlight, sessionID)
}

func (s *ChatService) isInFlight(sessionID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, busy := s.inFlight[sessionID]
	return busy
}

// historyFor maps the session's messages, minus the one just written, to responder turns
func historyFor(state *domain.ChatState, sessionID, excludeID string) []llm.Turn {
	view := state.Session(sessionID)
	if view == nil {
		return nil
	}

	history := make([]llm.Turn, 0, len(view.Messages))
	for _, m := range view.Messages {
		if m.ID == excludeID {
			continue
		}
		role := llm.RoleUser
		if m.Role == domain.RoleAssistant {
			role = llm.RoleModel
		}
		history = append(history, llm.Turn{Role: role, Text: m.Content})
	}
	return history
}

func responderImage(image *domain.Image) *llm.Image {
	mimeType, data, ok := image.Inline()
	if !ok {
		return nil
	}
	return &llm.Image{MIMEType: mimeType, Data: data}
}
