// Package docstore implements the backend gateway over a document store
// with redis change notification.
//
// Layout mirrors the original per-user collections: a users collection
// keyed by username, a chats collection keyed by owner, and a messages
// collection keyed by chat. Every mutation publishes a notification on
// the owning channel; subscriptions re-read the full ordered snapshot on
// each notification.
package docstore

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/bson"

	"github.com/ambermind/chat-controller/internal/core/cache"
	"github.com/ambermind/chat-controller/internal/core/docdb"
	"github.com/ambermind/chat-controller/internal/core/gateway"
	domainerrors "github.com/ambermind/chat-controller/internal/domain/errors"
	"github.com/ambermind/chat-controller/internal/domain/models"
	"github.com/ambermind/chat-controller/internal/services/profilecache"
)

// Responder produces the assistant reply for a prompt. The production
// wiring points this at the model integration; tests and the default
// configuration use EchoResponder.
type Responder interface {
	// Respond returns the assistant reply text for the chat's history.
	// The last history entry is the user prompt being answered.
	Respond(ctx context.Context, chatID string, history []models.Message) (string, error)
}

// EchoResponder replies with the prompt echoed back.
type EchoResponder struct{}

// Respond implements Responder.
func (EchoResponder) Respond(_ context.Context, _ string, history []models.Message) (string, error) {
	for i := len(history) - 1; i >= 0; i-- {
		if history[i].Role == models.RoleUser {
			return "Echo: " + history[i].Content, nil
		}
	}
	return "", fmt.Errorf("no user prompt in history")
}

// Store implements gateway.LiveGateway over a document store.
type Store struct {
	db        docdb.Client
	cache     cache.Client
	responder Responder
	profiles  profilecache.Service
	logger    zerolog.Logger

	mu       sync.Mutex
	identity models.UserIdentity // zero value when logged out
}

// Config holds the configuration for the document-store gateway.
type Config struct {
	DB        docdb.Client
	Cache     cache.Client
	Responder Responder
	// Profiles is optional; when set, the authenticated profile is
	// cached encrypted between sessions.
	Profiles profilecache.Service
}

// NewStore creates a new document-store gateway.
func NewStore(cfg *Config) (*Store, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	if cfg.DB == nil {
		return nil, fmt.Errorf("document db client is required")
	}
	if cfg.Cache == nil {
		return nil, fmt.Errorf("cache client is required")
	}

	responder := cfg.Responder
	if responder == nil {
		responder = EchoResponder{}
	}

	return &Store{
		db:        cfg.DB,
		cache:     cfg.Cache,
		responder: responder,
		profiles:  cfg.Profiles,
		logger:    log.With().Str("component", "docstore-gateway").Logger(),
	}, nil
}

// userDoc is the stored shape of a user account.
type userDoc struct {
	ID        string    `bson:"_id"`
	Username  string    `bson:"username"`
	Password  string    `bson:"password"`
	IsAdmin   bool      `bson:"isAdmin"`
	CreatedAt time.Time `bson:"createdAt"`
}

// chatDoc is the stored shape of a chat.
type chatDoc struct {
	ID          string    `bson:"_id"`
	UserID      string    `bson:"userId"`
	Title       string    `bson:"title"`
	CreatedAt   time.Time `bson:"createdAt"`
	LastUpdated time.Time `bson:"lastUpdated"`
}

func (d chatDoc) toModel() models.Chat {
	return models.Chat{
		ChatID:      d.ID,
		Title:       d.Title,
		CreatedAt:   d.CreatedAt,
		LastUpdated: d.LastUpdated,
	}
}

// Signup creates an account plus its first chat and signs the user in.
func (s *Store) Signup(ctx context.Context, username, password string) (*gateway.SignupResult, error) {
	count, err := s.db.Users().CountDocuments(ctx, bson.M{"username": username})
	if err != nil {
		return nil, domainerrors.NewBackendError("failed to check username", err)
	}
	if count > 0 {
		return nil, domainerrors.NewConflictError("Username already exists.", username)
	}

	user := userDoc{
		ID:        uuid.NewString(),
		Username:  username,
		Password:  password,
		IsAdmin:   false,
		CreatedAt: time.Now().UTC(),
	}
	if _, err := s.db.Users().InsertOne(ctx, user); err != nil {
		return nil, domainerrors.NewBackendError("failed to create user", err)
	}

	now := time.Now().UTC()
	chat := chatDoc{
		ID:          uuid.NewString(),
		UserID:      user.ID,
		Title:       models.FirstChatTitle,
		CreatedAt:   now,
		LastUpdated: now,
	}
	if _, err := s.db.Chats().InsertOne(ctx, chat); err != nil {
		return nil, domainerrors.NewBackendError("failed to create first chat", err)
	}

	identity := models.UserIdentity{UserID: user.ID, Username: username}
	s.setIdentity(ctx, identity)
	s.notifyChats(ctx, user.ID)

	return &gateway.SignupResult{
		Message:  "Signup successful! You are now logged in.",
		ChatID:   chat.ID,
		Identity: identity,
	}, nil
}

// Login authenticates an existing account and returns its chat list.
func (s *Store) Login(ctx context.Context, username, password string) (*gateway.LoginResult, error) {
	var user userDoc
	err := s.db.Users().FindOne(ctx, bson.M{"username": username}).Decode(&user)
	if errors.Is(err, docdb.ErrNoDocuments) {
		return nil, domainerrors.NewNotFoundError("user", username)
	}
	if err != nil {
		return nil, domainerrors.NewBackendError("failed to look up user", err)
	}

	if subtle.ConstantTimeCompare([]byte(user.Password), []byte(password)) != 1 {
		return nil, domainerrors.NewInvalidCredentialsError()
	}

	identity := models.UserIdentity{UserID: user.ID, Username: username, IsAdmin: user.IsAdmin}
	s.setIdentity(ctx, identity)

	chats, err := s.fetchChatsFor(ctx, user.ID)
	if err != nil {
		return nil, err
	}

	return &gateway.LoginResult{
		Message:  "Login successful!",
		Chats:    chats,
		Identity: identity,
	}, nil
}

// Logout drops the in-memory identity and the cached profile. Idempotent.
func (s *Store) Logout(ctx context.Context) error {
	s.mu.Lock()
	identity := s.identity
	s.identity = models.UserIdentity{}
	s.mu.Unlock()

	if identity.UserID != "" && s.profiles != nil {
		if err := s.profiles.Delete(ctx, identity.UserID); err != nil {
			s.logger.Warn().Err(err).Msg("failed to drop cached profile on logout")
		}
	}
	return nil
}

// FetchChats returns the active session's chats, newest first.
func (s *Store) FetchChats(ctx context.Context) ([]models.Chat, error) {
	userID, err := s.activeUser()
	if err != nil {
		return nil, err
	}
	return s.fetchChatsFor(ctx, userID)
}

func (s *Store) fetchChatsFor(ctx context.Context, userID string) ([]models.Chat, error) {
	cursor, err := s.db.Chats().Find(ctx, bson.M{"userId": userID}, &docdb.FindOptions{
		Sort: bson.M{"createdAt": -1},
	})
	if err != nil {
		return nil, domainerrors.NewBackendError("failed to fetch chats", err)
	}
	defer cursor.Close(ctx)

	var docs []chatDoc
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, domainerrors.NewBackendError("failed to decode chats", err)
	}

	chats := make([]models.Chat, 0, len(docs))
	for _, d := range docs {
		chats = append(chats, d.toModel())
	}
	return chats, nil
}

// CreateChat creates a chat with the default title for the active session.
func (s *Store) CreateChat(ctx context.Context) (*models.Chat, error) {
	userID, err := s.activeUser()
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	doc := chatDoc{
		ID:          uuid.NewString(),
		UserID:      userID,
		Title:       models.DefaultChatTitle,
		CreatedAt:   now,
		LastUpdated: now,
	}
	if _, err := s.db.Chats().InsertOne(ctx, doc); err != nil {
		return nil, domainerrors.NewBackendError("failed to create chat", err)
	}

	s.notifyChats(ctx, userID)
	chat := doc.toModel()
	return &chat, nil
}

// FetchHistory returns a chat's messages in ascending timestamp order.
func (s *Store) FetchHistory(ctx context.Context, chatID string) ([]models.Message, error) {
	userID, err := s.activeUser()
	if err != nil {
		return nil, err
	}
	if err := s.ownsChat(ctx, userID, chatID); err != nil {
		return nil, err
	}

	cursor, err := s.db.Messages().Find(ctx, bson.M{"chatId": chatID}, &docdb.FindOptions{
		Sort: bson.M{"timestamp": 1},
	})
	if err != nil {
		return nil, domainerrors.NewBackendError("failed to fetch history", err)
	}
	defer cursor.Close(ctx)

	var msgs []models.Message
	if err := cursor.All(ctx, &msgs); err != nil {
		return nil, domainerrors.NewBackendError("failed to decode history", err)
	}
	return msgs, nil
}

// SendPrompt persists the user message, asks the responder for a reply,
// persists the assistant message, and notifies subscribers. If the
// exchange fails after the prompt was stored, the prompt is removed
// again so history never keeps a half-exchange.
func (s *Store) SendPrompt(ctx context.Context, chatID, prompt string) (*models.Message, error) {
	userID, err := s.activeUser()
	if err != nil {
		return nil, err
	}
	if err := s.ownsChat(ctx, userID, chatID); err != nil {
		return nil, err
	}

	userMsg := models.NewMessage(chatID, models.RoleUser, prompt)
	userMsg.ID = uuid.NewString()
	if _, err := s.db.Messages().InsertOne(ctx, userMsg); err != nil {
		return nil, domainerrors.NewBackendError("failed to store prompt", err)
	}
	s.notifyHistory(ctx, chatID)

	// a failed exchange is rolled back: the stored prompt is removed and
	// subscribers are re-notified, so no transport keeps a half-exchange
	rollback := func() {
		if _, err := s.db.Messages().DeleteMany(ctx, bson.M{"_id": userMsg.ID}); err != nil {
			s.logger.Warn().Err(err).Str("chat_id", chatID).Msg("failed to roll back stored prompt")
			return
		}
		s.notifyHistory(ctx, chatID)
	}

	history, err := s.FetchHistory(ctx, chatID)
	if err != nil {
		rollback()
		return nil, err
	}

	reply, err := s.responder.Respond(ctx, chatID, history)
	if err != nil {
		rollback()
		return nil, domainerrors.NewBackendError("assistant failed to respond", err)
	}

	assistantMsg := models.NewMessage(chatID, models.RoleAssistant, reply)
	assistantMsg.ID = uuid.NewString()
	if _, err := s.db.Messages().InsertOne(ctx, assistantMsg); err != nil {
		rollback()
		return nil, domainerrors.NewBackendError("failed to store reply", err)
	}

	_, err = s.db.Chats().UpdateOne(ctx,
		bson.M{"_id": chatID, "userId": userID},
		bson.M{"$set": bson.M{"lastUpdated": time.Now().UTC()}},
	)
	if err != nil {
		s.logger.Warn().Err(err).Str("chat_id", chatID).Msg("failed to bump lastUpdated")
	}

	s.notifyHistory(ctx, chatID)
	s.notifyChats(ctx, userID)

	return assistantMsg, nil
}

// SetChatTitle updates a chat's title and notifies chat-list subscribers.
func (s *Store) SetChatTitle(ctx context.Context, chatID, title string) error {
	userID, err := s.activeUser()
	if err != nil {
		return err
	}

	result, err := s.db.Chats().UpdateOne(ctx,
		bson.M{"_id": chatID, "userId": userID},
		bson.M{"$set": bson.M{"title": title, "lastUpdated": time.Now().UTC()}},
	)
	if err != nil {
		return domainerrors.NewBackendError("failed to set chat title", err)
	}
	if result.MatchedCount == 0 {
		return domainerrors.NewUnknownChatError(chatID)
	}

	s.notifyChats(ctx, userID)
	return nil
}

// AdminSnapshot returns usernames and per-user chat counts. Admin-only.
func (s *Store) AdminSnapshot(ctx context.Context) (*models.AdminSnapshot, error) {
	s.mu.Lock()
	identity := s.identity
	s.mu.Unlock()

	if identity.UserID == "" {
		return nil, domainerrors.NewNotReadyError("admin snapshot")
	}
	if !s.adminAllowed(ctx, identity) {
		return nil, domainerrors.NewForbiddenError("admin access required")
	}

	cursor, err := s.db.Users().Find(ctx, bson.M{}, &docdb.FindOptions{
		Sort: bson.M{"username": 1},
	})
	if err != nil {
		return nil, domainerrors.NewBackendError("failed to fetch users", err)
	}
	defer cursor.Close(ctx)

	var users []userDoc
	if err := cursor.All(ctx, &users); err != nil {
		return nil, domainerrors.NewBackendError("failed to decode users", err)
	}

	snap := &models.AdminSnapshot{
		Users:     make([]string, 0, len(users)),
		ChatStats: make(map[string]int, len(users)),
	}
	for _, u := range users {
		count, err := s.db.Chats().CountDocuments(ctx, bson.M{"userId": u.ID})
		if err != nil {
			return nil, domainerrors.NewBackendError("failed to count chats", err)
		}
		snap.Users = append(snap.Users, u.Username)
		snap.ChatStats[u.Username] = int(count)
	}
	return snap, nil
}

// adminAllowed reports whether the active identity may read the admin
// snapshot. The cached profile is consulted first, so an admin flag
// re-cached mid-session takes effect without a re-login; a cache miss
// falls back to the identity captured at login.
func (s *Store) adminAllowed(ctx context.Context, identity models.UserIdentity) bool {
	if s.profiles != nil {
		profile, err := s.profiles.Get(ctx, identity.UserID)
		if err != nil {
			s.logger.Warn().Err(err).Msg("failed to read cached profile")
		} else if profile != nil {
			return profile.IsAdmin
		}
	}
	return identity.IsAdmin
}

// activeUser returns the signed-in user ID, or a not-ready error.
func (s *Store) activeUser() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.identity.UserID == "" {
		return "", domainerrors.NewNotReadyError("chat operation")
	}
	return s.identity.UserID, nil
}

// ownsChat verifies the chat belongs to the user.
func (s *Store) ownsChat(ctx context.Context, userID, chatID string) error {
	count, err := s.db.Chats().CountDocuments(ctx, bson.M{"_id": chatID, "userId": userID})
	if err != nil {
		return domainerrors.NewBackendError("failed to verify chat ownership", err)
	}
	if count == 0 {
		return domainerrors.NewUnknownChatError(chatID)
	}
	return nil
}

// setIdentity records the signed-in identity and caches the profile.
func (s *Store) setIdentity(ctx context.Context, identity models.UserIdentity) {
	s.mu.Lock()
	s.identity = identity
	s.mu.Unlock()

	if s.profiles != nil {
		err := s.profiles.Set(ctx, &profilecache.Profile{
			UserID:   identity.UserID,
			Username: identity.Username,
			IsAdmin:  identity.IsAdmin,
		})
		if err != nil {
			s.logger.Warn().Err(err).Msg("failed to cache profile")
		}
	}
}

// chatsChannel is the notification channel for a user's chat list.
func chatsChannel(userID string) string {
	return "chats:" + userID
}

// historyChannel is the notification channel for a chat's messages.
func historyChannel(chatID string) string {
	return "history:" + chatID
}

func (s *Store) notifyChats(ctx context.Context, userID string) {
	if err := s.cache.Publish(ctx, chatsChannel(userID), []byte("changed")); err != nil {
		s.logger.Warn().Err(err).Str("user_id", userID).Msg("failed to publish chat-list change")
	}
}

func (s *Store) notifyHistory(ctx context.Context, chatID string) {
	if err := s.cache.Publish(ctx, historyChannel(chatID), []byte("changed")); err != nil {
		s.logger.Warn().Err(err).Str("chat_id", chatID).Msg("failed to publish history change")
	}
}
