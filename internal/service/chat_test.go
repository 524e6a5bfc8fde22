package service

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/Rrens/flora-expert/internal/domain"
	"github.com/Rrens/flora-expert/internal/llm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)

func setupChat(t *testing.T, responder Responder) (*ChatService, *domain.Identity, domain.Store) {
	t.Helper()
	store := newTestStore(t)
	identity, err := newTestAuth(store).Register(context.Background(), "a@x.com", "pw", "Ana")
	require.NoError(t, err)

	svc := NewChatService(store, responder)
	svc.now = fixedClock(t0)
	return svc, identity, store
}

func TestChatService_TomatoScenario(t *testing.T) {
	ctx := context.Background()
	responder := new(MockResponder)
	responder.On("Generate", mock.Anything, "Why are my tomato leaves yellow?", []llm.Turn{}, (*llm.Image)(nil)).
		Return("Check soil moisture.")

	svc, identity, _ := setupChat(t, responder)

	result, err := svc.SendMessage(ctx, identity, domain.SendMessageInput{Content: "Why are my tomato leaves yellow?"})
	require.NoError(t, err)
	assert.False(t, result.Failed)
	assert.False(t, result.State.Awaiting)

	view := result.State.Session(result.SessionID)
	require.NotNil(t, view)
	// 32 characters: cut to the first 25 plus an ellipsis
	assert.Equal(t, "Why are my tomato leaves ...", view.Title)

	require.Len(t, view.Messages, 2)
	assert.Equal(t, domain.RoleUser, view.Messages[0].Role)
	assert.Equal(t, "Why are my tomato leaves yellow?", view.Messages[0].Content)
	assert.Equal(t, domain.RoleAssistant, view.Messages[1].Role)
	assert.Equal(t, "Check soil moisture.", view.Messages[1].Content)
	assert.True(t, view.Messages[1].Timestamp.After(view.Messages[0].Timestamp))

	responder.AssertExpectations(t)
}

func TestChatService_TitleRewrittenOnce(t *testing.T) {
	ctx := context.Background()
	responder := new(MockResponder)
	responder.On("Generate", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return("ok")

	svc, identity, store := setupChat(t, responder)

	state, err := svc.NewChat(ctx, identity)
	require.NoError(t, err)
	sessionID := state.ActiveSessionID
	assert.Equal(t, domain.PlaceholderTitle, state.Session(sessionID).Title)

	_, err = svc.SendMessage(ctx, identity, domain.SendMessageInput{SessionID: sessionID, Content: "Yellow spots on basil"})
	require.NoError(t, err)
	_, err = svc.SendMessage(ctx, identity, domain.SendMessageInput{SessionID: sessionID, Content: "Also the stems are soft and brown now"})
	require.NoError(t, err)

	session, err := store.GetSession(ctx, sessionID)
	require.NoError(t, err)
	assert.Equal(t, "Yellow spots on basil", session.Title)
}

func TestChatService_PhotoTitle(t *testing.T) {
	ctx := context.Background()
	image := &domain.Image{MIMEType: "image/jpeg", Data: "QUJD"}

	responder := new(MockResponder)
	responder.On("Generate", mock.Anything, "What is this?", []llm.Turn{}, &llm.Image{MIMEType: "image/jpeg", Data: "QUJD"}).
		Return("A monstera.")

	svc, identity, _ := setupChat(t, responder)

	result, err := svc.SendMessage(ctx, identity, domain.SendMessageInput{Content: "What is this?", Image: image})
	require.NoError(t, err)

	view := result.State.Session(result.SessionID)
	assert.Equal(t, domain.PhotoTitle, view.Title)
	assert.Equal(t, "data:image/jpeg;base64,QUJD", view.Messages[0].ImageURL)
	responder.AssertExpectations(t)
}

func TestChatService_HistoryExcludesCurrentMessage(t *testing.T) {
	ctx := context.Background()
	responder := new(MockResponder)
	responder.On("Generate", mock.Anything, "first", []llm.Turn{}, (*llm.Image)(nil)).Return("reply one").Once()
	responder.On("Generate", mock.Anything, "second", []llm.Turn{
		{Role: llm.RoleUser, Text: "first"},
		{Role: llm.RoleModel, Text: "reply one"},
	}, (*llm.Image)(nil)).Return("reply two").Once()

	svc, identity, _ := setupChat(t, responder)

	first, err := svc.SendMessage(ctx, identity, domain.SendMessageInput{Content: "first"})
	require.NoError(t, err)
	_, err = svc.SendMessage(ctx, identity, domain.SendMessageInput{SessionID: first.SessionID, Content: "second"})
	require.NoError(t, err)

	responder.AssertExpectations(t)
}

func TestChatService_ReloadIsIdempotentAndOrdered(t *testing.T) {
	ctx := context.Background()
	responder := new(MockResponder)
	responder.On("Generate", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return("noted")

	// the clock never advances, so ordering relies on tie bumping
	svc, identity, _ := setupChat(t, responder)

	first, err := svc.SendMessage(ctx, identity, domain.SendMessageInput{Content: "msg 0"})
	require.NoError(t, err)
	for i := 1; i < 5; i++ {
		_, err := svc.SendMessage(ctx, identity, domain.SendMessageInput{SessionID: first.SessionID, Content: fmt.Sprintf("msg %d", i)})
		require.NoError(t, err)
	}

	a, err := svc.Reload(ctx, identity)
	require.NoError(t, err)
	b, err := svc.Reload(ctx, identity)
	require.NoError(t, err)
	assert.Equal(t, a, b)

	messages := a.Session(first.SessionID).Messages
	require.Len(t, messages, 10)
	for i := 1; i < len(messages); i++ {
		assert.True(t, messages[i].Timestamp.After(messages[i-1].Timestamp), "message %d out of order", i)
	}
	assert.Equal(t, "msg 0", messages[0].Content)
	assert.Equal(t, "msg 4", messages[8].Content)
}

func TestChatService_SessionsScopedToIdentity(t *testing.T) {
	ctx := context.Background()
	responder := new(MockResponder)
	responder.On("Generate", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return("ok")

	svc, ana, store := setupChat(t, responder)
	bo, err := newTestAuth(store).Register(ctx, "bo@x.com", "pw", "Bo")
	require.NoError(t, err)

	anaTurn, err := svc.SendMessage(ctx, ana, domain.SendMessageInput{Content: "ana's fern"})
	require.NoError(t, err)
	_, err = svc.SendMessage(ctx, bo, domain.SendMessageInput{Content: "bo's cactus"})
	require.NoError(t, err)

	state, err := svc.Reload(ctx, bo)
	require.NoError(t, err)
	require.Len(t, state.Sessions, 1)
	assert.Equal(t, "bo@x.com", state.Sessions[0].UserID)

	_, err = svc.SelectSession(ctx, bo, anaTurn.SessionID)
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)

	_, err = svc.SendMessage(ctx, bo, domain.SendMessageInput{SessionID: anaTurn.SessionID, Content: "sneaky"})
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)
}

func TestChatService_SessionsNewestFirst(t *testing.T) {
	ctx := context.Background()
	svc, identity, _ := setupChat(t, new(MockResponder))

	svc.now = fixedClock(t0)
	older, err := svc.NewChat(ctx, identity)
	require.NoError(t, err)
	svc.now = fixedClock(t0.Add(time.Hour))
	newer, err := svc.NewChat(ctx, identity)
	require.NoError(t, err)

	require.Len(t, newer.Sessions, 2)
	assert.Equal(t, newer.ActiveSessionID, newer.Sessions[0].ID)
	assert.Equal(t, older.ActiveSessionID, newer.Sessions[1].ID)
}

func TestChatService_SameInstantSessionsNewestFirst(t *testing.T) {
	ctx := context.Background()
	svc, identity, _ := setupChat(t, new(MockResponder))

	var created []string
	for i := 0; i < 5; i++ {
		state, err := svc.NewChat(ctx, identity)
		require.NoError(t, err)
		created = append(created, state.ActiveSessionID)
	}

	state, err := svc.Reload(ctx, identity)
	require.NoError(t, err)
	require.Len(t, state.Sessions, 5)
	for i, view := range state.Sessions {
		assert.Equal(t, created[len(created)-1-i], view.ID)
		if i > 0 {
			assert.True(t, view.CreatedAt.Before(state.Sessions[i-1].CreatedAt))
		}
	}
}

func TestChatService_ResponderFailure(t *testing.T) {
	ctx := context.Background()
	svc, identity, _ := setupChat(t, panicResponder{})

	result, err := svc.SendMessage(ctx, identity, domain.SendMessageInput{Content: "Help my orchid"})
	require.NoError(t, err)

	assert.True(t, result.Failed)
	assert.Nil(t, result.AssistantMessage)
	require.NotNil(t, result.UserMessage)
	assert.False(t, result.State.Awaiting)

	view := result.State.Session(result.SessionID)
	require.Len(t, view.Messages, 1)
	assert.Equal(t, domain.RoleUser, view.Messages[0].Role)

	// the session accepts the next turn
	assert.False(t, svc.isInFlight(result.SessionID))
}

func TestChatService_AssistantWriteFailure(t *testing.T) {
	ctx := context.Background()
	responder := new(MockResponder)
	responder.On("Generate", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return("ok")

	svc, identity, store := setupChat(t, responder)
	svc.store = &failingStore{Store: store, failRole: domain.RoleAssistant}

	result, err := svc.SendMessage(ctx, identity, domain.SendMessageInput{Content: "hello"})
	require.NoError(t, err)
	assert.True(t, result.Failed)

	messages, err := store.ListMessagesForSession(ctx, result.SessionID)
	require.NoError(t, err)
	require.Len(t, messages, 1)
	assert.Equal(t, domain.RoleUser, messages[0].Role)
}

func TestChatService_ProviderErrorBecomesFallbackReply(t *testing.T) {
	ctx := context.Background()
	provider := &erroringProvider{}
	svc, identity, _ := setupChat(t, llm.NewResponder(provider, "", 0))

	result, err := svc.SendMessage(ctx, identity, domain.SendMessageInput{Content: "hi"})
	require.NoError(t, err)
	assert.False(t, result.Failed)
	assert.Equal(t, llm.BusyMessage, result.AssistantMessage.Content)
}

func TestChatService_NilIdentityIsNoop(t *testing.T) {
	ctx := context.Background()
	svc, _, store := setupChat(t, new(MockResponder))

	state, err := svc.NewChat(ctx, nil)
	assert.NoError(t, err)
	assert.Nil(t, state)

	result, err := svc.SendMessage(ctx, nil, domain.SendMessageInput{Content: "hi"})
	assert.NoError(t, err)
	assert.Nil(t, result)

	state, err = svc.Reload(ctx, nil)
	assert.NoError(t, err)
	assert.Nil(t, state)

	sessions, err := store.ListSessionsForUser(ctx, "a@x.com")
	require.NoError(t, err)
	assert.Empty(t, sessions)
}

func TestChatService_EmptyMessage(t *testing.T) {
	svc, identity, _ := setupChat(t, new(MockResponder))
	_, err := svc.SendMessage(context.Background(), identity, domain.SendMessageInput{Content: "   "})
	assert.ErrorIs(t, err, domain.ErrEmptyMessage)
}

func TestChatService_TurnInFlight(t *testing.T) {
	ctx := context.Background()
	release := make(chan struct{})
	started := make(chan struct{})

	responder := new(MockResponder)
	responder.On("Generate", mock.Anything, "slow", mock.Anything, mock.Anything).
		Run(func(mock.Arguments) {
			close(started)
			<-release
		}).
		Return("done")

	svc, identity, _ := setupChat(t, responder)
	state, err := svc.NewChat(ctx, identity)
	require.NoError(t, err)
	sessionID := state.ActiveSessionID

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		_, err := svc.SendMessage(ctx, identity, domain.SendMessageInput{SessionID: sessionID, Content: "slow"})
		assert.NoError(t, err)
	}()

	<-started
	_, err = svc.SendMessage(ctx, identity, domain.SendMessageInput{SessionID: sessionID, Content: "impatient"})
	assert.ErrorIs(t, err, domain.ErrTurnInFlight)

	selected, err := svc.SelectSession(ctx, identity, sessionID)
	require.NoError(t, err)
	assert.True(t, selected.Awaiting)

	close(release)
	wg.Wait()
	assert.False(t, svc.isInFlight(sessionID))
}

type erroringProvider struct{}

func (erroringProvider) Name() string              { return "broken" }
func (erroringProvider) AvailableModels() []string { return nil }
func (erroringProvider) DefaultModel() string      { return "" }
func (erroringProvider) IsConfigured() bool        { return true }
func (erroringProvider) Generate(context.Context, llm.Request, string) (*llm.Response, error) {
	return nil, fmt.Errorf("upstream unavailable")
}
