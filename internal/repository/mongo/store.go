// Package mongo implements domain.Store on MongoDB.
package mongo

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Rrens/flora-expert/internal/config"
	"github.com/Rrens/flora-expert/internal/domain"
	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	usersCollection    = "users"
	sessionsCollection = "chat_sessions"
	messagesCollection = "chat_messages"
	countersCollection = "counters"
)

// Store implements domain.Store
type Store struct {
	client *mongo.Client
	db     *mongo.Database
}

type userDoc struct {
	ID           int64     `bson:"_id"`
	Name         string    `bson:"name"`
	Email        string    `bson:"email"`
	EmailLower   string    `bson:"email_lower"`
	PasswordHash string    `bson:"password_hash"`
	CreatedAt    time.Time `bson:"created_at"`
}

type sessionDoc struct {
	ID        string    `bson:"_id"`
	UserID    string    `bson:"user_id"`
	Title     string    `bson:"title"`
	CreatedAt time.Time `bson:"created_at"`
}

type messageDoc struct {
	ID        string    `bson:"_id"`
	SessionID string    `bson:"session_id"`
	Role      string    `bson:"role"`
	Content   string    `bson:"content"`
	ImageURL  string    `bson:"image_url,omitempty"`
	Timestamp time.Time `bson:"timestamp"`
}

// Open connects to MongoDB and ensures the store's indexes exist
func Open(ctx context.Context, cfg config.MongoConfig) (*Store, error) {
	clientOpts := options.Client().ApplyURI(cfg.URI)
	if cfg.Timeout > 0 {
		clientOpts.SetConnectTimeout(cfg.Timeout)
	}

	client, err := mongo.Connect(ctx, clientOpts)
	if err != nil {
		return nil, fmt.Errorf("failed to create client: %w", err)
	}

	if err := client.Ping(ctx, nil); err != nil {
		client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to ping: %w", err)
	}

	s := &Store{client: client, db: client.Database(cfg.Database)}
	if err := s.ensureIndexes(ctx); err != nil {
		client.Disconnect(context.Background())
		return nil, err
	}

	log.Info().Str("database", cfg.Database).Msg("MongoDB store ready")
	return s, nil
}

func (s *Store) ensureIndexes(ctx context.Context) error {
	indexes := map[string][]mongo.IndexModel{
		usersCollection: {
			{Keys: bson.D{{Key: "email_lower", Value: 1}}, Options: options.Index().SetUnique(true)},
		},
		sessionsCollection: {
			{Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "created_at", Value: -1}}},
		},
		messagesCollection: {
			{Keys: bson.D{{Key: "session_id", Value: 1}, {Key: "timestamp", Value: 1}}},
		},
	}

	for name, models := range indexes {
		if _, err := s.db.Collection(name).Indexes().CreateMany(ctx, models); err != nil {
			return fmt.Errorf("failed to create %s indexes: %w", name, err)
		}
	}
	return nil
}

// Ping verifies connectivity
func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx, nil)
}

// Close disconnects the client
func (s *Store) Close() error {
	return s.client.Disconnect(context.Background())
}

func (s *Store) nextUserID(ctx context.Context) (int64, error) {
	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)

	var counter struct {
		Seq int64 `bson:"seq"`
	}
	err := s.db.Collection(countersCollection).FindOneAndUpdate(ctx,
		bson.M{"_id": usersCollection},
		bson.M{"$inc": bson.M{"seq": 1}},
		opts,
	).Decode(&counter)
	if err != nil {
		return 0, fmt.Errorf("failed to allocate user id: %w", err)
	}
	return counter.Seq, nil
}

// AddUser creates a user. Emails are unique case-insensitively.
func (s *Store) AddUser(ctx context.Context, name, email, passwordHash string) (*domain.User, error) {
	id, err := s.nextUserID(ctx)
	if err != nil {
		return nil, err
	}

	doc := userDoc{
		ID:           id,
		Name:         name,
		Email:        email,
		EmailLower:   strings.ToLower(email),
		PasswordHash: passwordHash,
		CreatedAt:    time.Now().UTC().Truncate(time.Millisecond),
	}
	if _, err := s.db.Collection(usersCollection).InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, domain.ErrDuplicateEmail
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	return doc.toUser(), nil
}

// FindUserByEmail looks a user up case-insensitively. Returns nil, nil when absent.
func (s *Store) FindUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	var doc userDoc
	err := s.db.Collection(usersCollection).FindOne(ctx, bson.M{"email_lower": strings.ToLower(email)}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return doc.toUser(), nil
}

// AddSession inserts a session owned by an existing user
func (s *Store) AddSession(ctx context.Context, session *domain.ChatSession) error {
	n, err := s.db.Collection(usersCollection).CountDocuments(ctx, bson.M{"email_lower": session.UserID})
	if err != nil {
		return fmt.Errorf("failed to check session owner: %w", err)
	}
	if n == 0 {
		return domain.ErrUserNotFound
	}

	doc := sessionDoc{
		ID:        session.ID,
		UserID:    session.UserID,
		Title:     session.Title,
		CreatedAt: session.CreatedAt,
	}
	if _, err := s.db.Collection(sessionsCollection).InsertOne(ctx, doc); err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}
	return nil
}

// GetSession returns the session or nil, nil when absent
func (s *Store) GetSession(ctx context.Context, id string) (*domain.ChatSession, error) {
	var doc sessionDoc
	err := s.db.Collection(sessionsCollection).FindOne(ctx, bson.M{"_id": id}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	sess := doc.toSession()
	return &sess, nil
}

// UpdateSessionTitle renames a session
func (s *Store) UpdateSessionTitle(ctx context.Context, id, title string) error {
	res, err := s.db.Collection(sessionsCollection).UpdateOne(ctx,
		bson.M{"_id": id},
		bson.M{"$set": bson.M{"title": title}},
	)
	if err != nil {
		return fmt.Errorf("failed to update session: %w", err)
	}
	if res.MatchedCount == 0 {
		return domain.ErrSessionNotFound
	}
	return nil
}

// ListSessionsForUser returns the user's sessions, newest first
func (s *Store) ListSessionsForUser(ctx context.Context, userID string) ([]domain.ChatSession, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}})
	cursor, err := s.db.Collection(sessionsCollection).Find(ctx, bson.M{"user_id": userID}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	defer cursor.Close(ctx)

	var docs []sessionDoc
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("failed to decode sessions: %w", err)
	}

	sessions := make([]domain.ChatSession, 0, len(docs))
	for _, doc := range docs {
		sessions = append(sessions, doc.toSession())
	}
	return sessions, nil
}

// AddMessage appends a message to an existing session
func (s *Store) AddMessage(ctx context.Context, message *domain.Message) error {
	n, err := s.db.Collection(sessionsCollection).CountDocuments(ctx, bson.M{"_id": message.SessionID})
	if err != nil {
		return fmt.Errorf("failed to check session: %w", err)
	}
	if n == 0 {
		return domain.ErrSessionNotFound
	}

	doc := messageDoc{
		ID:        message.ID,
		SessionID: message.SessionID,
		Role:      string(message.Role),
		Content:   message.Content,
		ImageURL:  message.ImageURL,
		Timestamp: message.Timestamp,
	}
	if _, err := s.db.Collection(messagesCollection).InsertOne(ctx, doc); err != nil {
		return fmt.Errorf("failed to create message: %w", err)
	}
	return nil
}

// ListMessagesForSession returns the session's messages in chronological order
func (s *Store) ListMessagesForSession(ctx context.Context, sessionID string) ([]domain.Message, error) {
	opts := options.Find().SetSort(bson.D{{Key: "timestamp", Value: 1}, {Key: "_id", Value: 1}})
	cursor, err := s.db.Collection(messagesCollection).Find(ctx, bson.M{"session_id": sessionID}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}
	defer cursor.Close(ctx)

	var docs []messageDoc
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("failed to decode messages: %w", err)
	}

	messages := make([]domain.Message, 0, len(docs))
	for _, doc := range docs {
		messages = append(messages, domain.Message{
			ID:        doc.ID,
			SessionID: doc.SessionID,
			Role:      domain.MessageRole(doc.Role),
			Content:   doc.Content,
			ImageURL:  doc.ImageURL,
			Timestamp: doc.Timestamp.UTC(),
		})
	}
	return messages, nil
}

func (d userDoc) toUser() *domain.User {
	return &domain.User{
		ID:           d.ID,
		Name:         d.Name,
		Email:        d.Email,
		PasswordHash: d.PasswordHash,
		CreatedAt:    d.CreatedAt.UTC(),
	}
}

func (d sessionDoc) toSession() domain.ChatSession {
	return domain.ChatSession{
		ID:        d.ID,
		UserID:    d.UserID,
		Title:     d.Title,
		CreatedAt: d.CreatedAt.UTC(),
	}
}
