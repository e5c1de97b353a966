// Package gateway defines the backend gateway interfaces.
//
// Two transports implement the same contract: a stateless REST API
// (request/response, re-fetched after mutations) and a real-time document
// store (standing subscriptions delivering full snapshots on every
// change). The controller never talks to a transport directly.
package gateway

import (
	"context"

	"github.com/ambermind/chat-controller/internal/domain/models"
)

// SignupResult is the backend's response to a successful signup.
type SignupResult struct {
	// Message is the user-facing confirmation text.
	Message string
	// ChatID identifies the chat auto-created for the new account.
	ChatID string
	// Identity is the freshly established identity.
	Identity models.UserIdentity
}

// LoginResult is the backend's response to a successful login.
type LoginResult struct {
	// Message is the user-facing confirmation text.
	Message string
	// Chats is the account's chat list, newest first.
	Chats []models.Chat
	// Identity is the authenticated identity, including admin status as
	// reported by the backend.
	Identity models.UserIdentity
}

// Authenticator covers the session lifecycle operations.
type Authenticator interface {
	// Signup creates an account. Fails with a conflict error if the
	// username is taken.
	Signup(ctx context.Context, username, password string) (*SignupResult, error)

	// Login authenticates an existing account. Fails with a not found
	// error for an unknown user and an invalid credentials error on a
	// password mismatch.
	Login(ctx context.Context, username, password string) (*LoginResult, error)

	// Logout ends the backend session. Idempotent.
	Logout(ctx context.Context) error
}

// ChatStore covers chat and message operations for the active session.
type ChatStore interface {
	// FetchChats returns the session's chats, newest first.
	FetchChats(ctx context.Context) ([]models.Chat, error)

	// CreateChat creates a chat with the default title.
	CreateChat(ctx context.Context) (*models.Chat, error)

	// FetchHistory returns the chat's messages, timestamp ascending.
	FetchHistory(ctx context.Context, chatID string) ([]models.Message, error)

	// SendPrompt delivers a user prompt and returns the assistant reply.
	SendPrompt(ctx context.Context, chatID, prompt string) (*models.Message, error)

	// SetChatTitle updates a chat's title.
	SetChatTitle(ctx context.Context, chatID, title string) error

	// AdminSnapshot returns the admin panel data. Admin-only.
	AdminSnapshot(ctx context.Context) (*models.AdminSnapshot, error)
}

// ChatSubscription is a standing subscription to the chat list.
type ChatSubscription interface {
	// Chats yields a full ordered snapshot on every change. The channel
	// closes after Cancel.
	Chats() <-chan []models.Chat
	// Errs yields subscription failures.
	Errs() <-chan error
	// Cancel stops the subscription. Safe to call more than once.
	Cancel()
}

// HistorySubscription is a standing subscription to one chat's messages.
type HistorySubscription interface {
	// Messages yields a full ordered snapshot on every change. The
	// channel closes after Cancel.
	Messages() <-chan []models.Message
	// Errs yields subscription failures.
	Errs() <-chan error
	// Cancel stops the subscription. Safe to call more than once.
	Cancel()
}

// Subscriber is the live-store capability. Gateways without it fall back
// to snapshot fetches re-issued after each mutation.
type Subscriber interface {
	// SubscribeChats opens a chat-list subscription for the active session.
	SubscribeChats(ctx context.Context) (ChatSubscription, error)

	// SubscribeHistory opens a message subscription for one chat.
	SubscribeHistory(ctx context.Context, chatID string) (HistorySubscription, error)
}

// Gateway is the capability set every backend must provide.
type Gateway interface {
	Authenticator
	ChatStore
}

// LiveGateway is a gateway with the live-subscription capability.
type LiveGateway interface {
	Gateway
	Subscriber
}

// AsSubscriber returns the gateway's Subscriber capability, or nil if the
// transport does not support live subscriptions.
func AsSubscriber(gw Gateway) Subscriber {
	if sub, ok := gw.(Subscriber); ok {
		return sub
	}
	return nil
}
