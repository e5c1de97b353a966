// Package controller ties the session, chat list, history and dispatch
// components into the chat session controller.
//
// Single-writer discipline: the auth manager owns the session, the chat
// list synchronizer owns the list and the active selection, the history
// synchronizer owns the message log. The controller sequences their
// operations; it never mutates their state directly.
package controller

import (
	"context"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/ambermind/chat-controller/internal/controller/auth"
	"github.com/ambermind/chat-controller/internal/controller/chatlist"
	"github.com/ambermind/chat-controller/internal/controller/dispatch"
	"github.com/ambermind/chat-controller/internal/controller/history"
	"github.com/ambermind/chat-controller/internal/core/gateway"
	domainerrors "github.com/ambermind/chat-controller/internal/domain/errors"
	"github.com/ambermind/chat-controller/internal/domain/models"
)

// SendKey selects which key submits the compose field.
type SendKey string

const (
	// SendKeyEnter submits on Enter; Shift+Enter inserts a newline.
	SendKeyEnter SendKey = "enter"
	// SendKeyShiftEnter submits on Shift+Enter; Enter inserts a newline.
	SendKeyShiftEnter SendKey = "shift-enter"
)

// AdminView consumes the admin panel snapshot. Fetch errors degrade to an
// inline message, never a silent blank panel.
type AdminView interface {
	ShowAdmin(snap models.AdminSnapshot)
	ShowAdminError(err error)
}

// Config holds the controller's collaborators.
type Config struct {
	Gateway gateway.Gateway
	// HistoryView, ChatListView and AdminView are optional presentation
	// sinks.
	HistoryView  history.View
	ChatListView chatlist.View
	AdminView    AdminView
	// SendKey defaults to SendKeyEnter.
	SendKey SendKey
}

// Controller is the chat session controller.
type Controller struct {
	gw        gateway.Gateway
	auth      *auth.Manager
	chats     *chatlist.Synchronizer
	history   *history.Synchronizer
	dispatch  *dispatch.Dispatcher
	adminView AdminView
	sendKey   SendKey
	logger    zerolog.Logger
}

// New creates a controller in the Unready state. Call Start to make it
// ready for authentication.
func New(cfg *Config) (*Controller, error) {
	if cfg == nil || cfg.Gateway == nil {
		return nil, domainerrors.NewValidationError("gateway is required", "")
	}

	sendKey := cfg.SendKey
	if sendKey == "" {
		sendKey = SendKeyEnter
	}

	live := gateway.AsSubscriber(cfg.Gateway)
	authMgr := auth.NewManager(cfg.Gateway)
	chats := chatlist.NewSynchronizer(cfg.Gateway, live, cfg.ChatListView)
	hist := history.NewSynchronizer(cfg.Gateway, live, cfg.HistoryView)
	disp := dispatch.NewDispatcher(cfg.Gateway, chats, hist)

	// logout and re-login must cancel standing subscriptions before any
	// new session state is established
	authMgr.RegisterTeardown(hist.Teardown)
	authMgr.RegisterTeardown(chats.Teardown)

	return &Controller{
		gw:        cfg.Gateway,
		auth:      authMgr,
		chats:     chats,
		history:   hist,
		dispatch:  disp,
		adminView: cfg.AdminView,
		sendKey:   sendKey,
		logger:    log.With().Str("component", "controller").Logger(),
	}, nil
}

// Start transitions the controller from Unready to Anonymous.
func (c *Controller) Start() {
	c.auth.Ready()
}

// Session returns a snapshot of the current session.
func (c *Controller) Session() models.Session {
	return c.auth.Session()
}

// Sessions returns a stream of session snapshots plus its cancel.
func (c *Controller) Sessions() (<-chan models.Session, func()) {
	return c.auth.Subscribe()
}

// SendKey returns the configured compose submit key.
func (c *Controller) SendKey() SendKey {
	return c.sendKey
}

// Signup creates an account, loads its chat list and selects the
// auto-created first chat.
func (c *Controller) Signup(ctx context.Context, username, password string) (*gateway.SignupResult, error) {
	result, err := c.auth.Signup(ctx, username, password)
	if err != nil {
		return nil, err
	}

	if err := c.chats.Load(ctx); err != nil {
		c.logger.Warn().Err(err).Msg("chat list load after signup failed")
	}
	if result.ChatID != "" {
		if err := c.SelectChat(ctx, result.ChatID); err != nil {
			c.logger.Warn().Err(err).Str("chat_id", result.ChatID).Msg("first chat selection failed")
		}
	}
	return result, nil
}

// Login authenticates and loads the account's chat list. The first chat,
// if any, is selected.
func (c *Controller) Login(ctx context.Context, username, password string) (*gateway.LoginResult, error) {
	result, err := c.auth.Login(ctx, username, password)
	if err != nil {
		return nil, err
	}

	if len(result.Chats) > 0 {
		c.chats.SetInitial(result.Chats)
	}
	if err := c.chats.Load(ctx); err != nil {
		c.logger.Warn().Err(err).Msg("chat list load after login failed")
	}

	if chats := c.chats.Chats(); len(chats) > 0 {
		if err := c.SelectChat(ctx, chats[0].ChatID); err != nil {
			c.logger.Warn().Err(err).Msg("initial chat selection failed")
		}
	}
	return result, nil
}

// Logout resets the session. Chat and history state is cleared even when
// the backend reports an error; the error is surfaced.
func (c *Controller) Logout(ctx context.Context) error {
	err := c.auth.Logout(ctx)

	c.chats.Clear()
	c.history.Clear()
	c.dispatch.Reset()

	return err
}

// Chats returns a snapshot of the chat list.
func (c *Controller) Chats() []models.Chat {
	return c.chats.Chats()
}

// ActiveChat returns the active chat ID, or "".
func (c *Controller) ActiveChat() string {
	return c.chats.ActiveChat()
}

// SelectChat makes a chat the active selection and starts history
// retrieval for it. The previous chat's subscription is cancelled before
// the new retrieval is issued.
func (c *Controller) SelectChat(ctx context.Context, chatID string) error {
	if err := c.requireAuthenticated("chat selection"); err != nil {
		return err
	}
	if err := c.chats.Select(chatID); err != nil {
		return err
	}
	return c.history.Select(ctx, chatID)
}

// NewChat creates a chat and selects it.
func (c *Controller) NewChat(ctx context.Context) (*models.Chat, error) {
	if err := c.requireAuthenticated("chat creation"); err != nil {
		return nil, err
	}

	chat, err := c.chats.CreateChat(ctx)
	if err != nil {
		return nil, err
	}
	if err := c.history.Select(ctx, chat.ChatID); err != nil {
		c.logger.Warn().Err(err).Str("chat_id", chat.ChatID).Msg("history load for new chat failed")
	}
	return chat, nil
}

// History returns a snapshot of the selected chat's messages.
func (c *Controller) History() []models.Message {
	return c.history.Messages()
}

// Send delivers a prompt to the active chat. On the snapshot transport
// the history converges through the returned messages; on the live
// transport the subscription re-delivers it.
func (c *Controller) Send(ctx context.Context, chatID, promptText string) (*models.Message, error) {
	if err := c.requireAuthenticated("send"); err != nil {
		return nil, err
	}
	return c.dispatch.Send(ctx, chatID, promptText)
}

// Sending reports whether a send is outstanding for the chat.
func (c *Controller) Sending(chatID string) bool {
	return c.dispatch.Sending(chatID)
}

// Greeting returns the greeting line, or "" once the user has chatted in
// the active chat or when no user is signed in.
func (c *Controller) Greeting() string {
	session := c.auth.Session()
	if !session.IsAuthenticated {
		return ""
	}
	active := c.chats.ActiveChat()
	if active != "" && c.dispatch.HasChatted(active) {
		return ""
	}
	return "Hi " + session.Identity.Username + "!"
}

// Admin fetches the admin panel snapshot. Only reachable for admin
// sessions; errors are mirrored to the admin view as inline messages.
func (c *Controller) Admin(ctx context.Context) (*models.AdminSnapshot, error) {
	session := c.auth.Session()
	if !session.IsAdmin() {
		err := domainerrors.NewForbiddenError("admin access required")
		if c.adminView != nil {
			c.adminView.ShowAdminError(err)
		}
		return nil, err
	}

	snap, err := c.gw.AdminSnapshot(ctx)
	if err != nil {
		if c.adminView != nil {
			c.adminView.ShowAdminError(err)
		}
		return nil, err
	}
	if c.adminView != nil {
		c.adminView.ShowAdmin(*snap)
	}
	return snap, nil
}

// requireAuthenticated gates chat operations on the session state.
func (c *Controller) requireAuthenticated(operation string) error {
	if c.auth.State() != auth.StateAuthenticated {
		return domainerrors.NewNotReadyError(operation)
	}
	return nil
}
