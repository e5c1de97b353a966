// Package dispatch orchestrates sending a user prompt.
//
// The send path is optimistic: the user message is appended to the
// displayed history before the backend round trip, and rolled back with
// an inline failure notice if the round trip fails. Rollback plus notice
// is the one documented failure policy; a failure is never silent.
package dispatch

import (
	"context"
	"strings"
	"sync"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/ambermind/chat-controller/internal/controller/chatlist"
	"github.com/ambermind/chat-controller/internal/controller/history"
	"github.com/ambermind/chat-controller/internal/core/gateway"
	domainerrors "github.com/ambermind/chat-controller/internal/domain/errors"
	"github.com/ambermind/chat-controller/internal/domain/models"
)

// TitleLimit is the maximum derived title length in runes before the
// ellipsis marker is appended.
const TitleLimit = 30

// Dispatcher coordinates prompt delivery for the active chat.
type Dispatcher struct {
	gw      gateway.ChatStore
	chats   *chatlist.Synchronizer
	history *history.Synchronizer
	logger  zerolog.Logger

	mu       sync.Mutex
	inflight map[string]bool
	titled   map[string]bool
}

// NewDispatcher creates a prompt dispatcher.
func NewDispatcher(gw gateway.ChatStore, chats *chatlist.Synchronizer, hist *history.Synchronizer) *Dispatcher {
	return &Dispatcher{
		gw:       gw,
		chats:    chats,
		history:  hist,
		logger:   log.With().Str("component", "dispatch").Logger(),
		inflight: make(map[string]bool),
		titled:   make(map[string]bool),
	}
}

// Sending reports whether a send is outstanding for the chat. Views use
// this to keep the compose input disabled until resolution.
func (d *Dispatcher) Sending(chatID string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.inflight[chatID]
}

// Send delivers a prompt to the active chat and returns the assistant
// reply. Empty and whitespace-only prompts are rejected without any
// network call. Sends are single-flight per chat.
func (d *Dispatcher) Send(ctx context.Context, chatID, promptText string) (*models.Message, error) {
	prompt := strings.TrimSpace(promptText)
	if prompt == "" {
		return nil, domainerrors.NewValidationError("prompt is required", "")
	}

	// a response must never land in the wrong chat
	active := d.chats.ActiveChat()
	if chatID != active {
		return nil, domainerrors.NewStaleChatError(chatID, active)
	}

	if err := d.acquire(chatID); err != nil {
		return nil, err
	}
	defer d.release(chatID)

	// optimistic append hides the round-trip latency
	userMsg := models.NewMessage(chatID, models.RoleUser, prompt)
	if err := d.history.Append(*userMsg); err != nil {
		return nil, err
	}

	firstExchange := d.isFirstExchange(chatID)

	assistantMsg, err := d.gw.SendPrompt(ctx, chatID, prompt)
	if err != nil {
		// documented policy: roll back the optimistic message and show
		// an inline failure notice
		d.history.RemoveLast(models.RoleUser, prompt)
		d.history.NotifySendFailure(err)
		return nil, err
	}

	// a send that outlived a reselection resolves into the void: the
	// result is discarded, logged, never displayed
	if d.chats.ActiveChat() != chatID {
		d.logger.Info().Str("chat_id", chatID).Msg("discarding send result for inactive chat")
		return nil, domainerrors.NewStaleChatError(chatID, d.chats.ActiveChat())
	}

	if err := d.history.Append(*assistantMsg); err != nil {
		d.logger.Info().Err(err).Msg("assistant reply discarded")
		return nil, err
	}

	if firstExchange {
		d.markTitled(chatID)
		// fire and forget; the input re-enables without waiting for the
		// title round trip
		go d.generateTitle(chatID, prompt)
	}

	return assistantMsg, nil
}

// HasChatted reports whether the chat has completed an exchange since
// selection. The greeting hides once this is true.
func (d *Dispatcher) HasChatted(chatID string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.titled[chatID]
}

// Reset forgets per-chat send state. Called on logout.
func (d *Dispatcher) Reset() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.inflight = make(map[string]bool)
	d.titled = make(map[string]bool)
}

// acquire takes the single-flight slot for a chat.
func (d *Dispatcher) acquire(chatID string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.inflight[chatID] {
		return domainerrors.NewSendInFlightError(chatID)
	}
	d.inflight[chatID] = true
	return nil
}

// release frees the single-flight slot.
func (d *Dispatcher) release(chatID string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.inflight, chatID)
}

func (d *Dispatcher) isFirstExchange(chatID string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return !d.titled[chatID]
}

func (d *Dispatcher) markTitled(chatID string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.titled[chatID] = true
}

// generateTitle derives a short title from the first prompt and pushes it
// to the backend. Failures are logged only; titling is best effort.
func (d *Dispatcher) generateTitle(chatID, prompt string) {
	title := DeriveTitle(prompt)

	ctx := context.Background()
	if err := d.gw.SetChatTitle(ctx, chatID, title); err != nil {
		d.logger.Warn().Err(err).Str("chat_id", chatID).Msg("title generation failed")
		return
	}
	if err := d.chats.Refresh(ctx); err != nil {
		d.logger.Warn().Err(err).Msg("chat list refresh after titling failed")
	}
}

// DeriveTitle cuts a prompt down to a chat title: the first TitleLimit
// runes, with an ellipsis marker when truncated.
func DeriveTitle(prompt string) string {
	runes := []rune(prompt)
	if len(runes) <= TitleLimit {
		return prompt
	}
	return string(runes[:TitleLimit]) + "..."
}
