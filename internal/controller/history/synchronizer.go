// Package history owns the message log of the currently selected chat.
//
// Selection changes cancel the previous chat's subscription before the
// new one is issued, and every delivery carries the generation it was
// issued under: a late callback from a previous selection is discarded,
// never merged. This is the race-freedom guarantee that keeps one chat's
// messages out of another chat's view.
package history

import (
	"context"
	"sync"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/ambermind/chat-controller/internal/core/gateway"
	domainerrors "github.com/ambermind/chat-controller/internal/domain/errors"
	"github.com/ambermind/chat-controller/internal/domain/models"
)

// View consumes history snapshots and inline error states.
type View interface {
	// ShowHistory receives the full ordered message log. An empty slice
	// means the conversation has not started; views render the
	// placeholder, not an error.
	ShowHistory(msgs []models.Message)

	// ShowHistoryError replaces the history area with an inline error.
	// History is central content; failures must not hide behind a toast.
	ShowHistoryError(err error)

	// ShowSendFailure appends an inline failure notice after a rolled
	// back send.
	ShowSendFailure(err error)
}

// Synchronizer owns the message log singleton for the selected chat.
type Synchronizer struct {
	gw     gateway.ChatStore
	live   gateway.Subscriber // nil without the live capability
	view   View
	logger zerolog.Logger

	mu       sync.Mutex
	chatID   string
	messages []models.Message
	gen      uint64
	cancel   func()
}

// NewSynchronizer creates a history synchronizer. The live subscriber and
// view may be nil.
func NewSynchronizer(gw gateway.ChatStore, live gateway.Subscriber, view View) *Synchronizer {
	return &Synchronizer{
		gw:     gw,
		live:   live,
		view:   view,
		logger: log.With().Str("component", "history").Logger(),
	}
}

// Select switches the synchronizer to a chat. The previous subscription
// is cancelled synchronously before the new retrieval starts.
func (s *Synchronizer) Select(ctx context.Context, chatID string) error {
	s.mu.Lock()
	s.gen++
	gen := s.gen
	cancel := s.cancel
	s.cancel = nil
	s.chatID = chatID
	s.messages = nil
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}

	if s.live != nil {
		return s.subscribe(ctx, chatID, gen)
	}

	msgs, err := s.gw.FetchHistory(ctx, chatID)
	if err != nil {
		s.showError(err)
		return err
	}
	s.apply(gen, msgs)
	return nil
}

// ChatID returns the chat the synchronizer is bound to.
func (s *Synchronizer) ChatID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.chatID
}

// Messages returns a snapshot of the current log.
func (s *Synchronizer) Messages() []models.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.Message, len(s.messages))
	copy(out, s.messages)
	return out
}

// Append adds a message to the displayed log. Used for the optimistic
// user append and the confirmed assistant reply. Appends for a chat that
// is no longer selected fail with a stale chat error.
func (s *Synchronizer) Append(msg models.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if msg.ChatID != "" && msg.ChatID != s.chatID {
		return domainerrors.NewStaleChatError(msg.ChatID, s.chatID)
	}
	s.messages = append(s.messages, msg)
	s.notifyLocked()
	return nil
}

// RemoveLast rolls back the most recent message if it matches the given
// role and content. Used to undo an optimistic append after a failed
// send; a live snapshot that already replaced the log makes this a no-op.
func (s *Synchronizer) RemoveLast(role models.MessageRole, content string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := len(s.messages)
	if n == 0 {
		return
	}
	last := s.messages[n-1]
	if last.Role != role || last.Content != content {
		return
	}
	s.messages = s.messages[:n-1]
	s.notifyLocked()
}

// NotifySendFailure surfaces a failed send as an inline notice.
func (s *Synchronizer) NotifySendFailure(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.view != nil {
		s.view.ShowSendFailure(err)
	}
}

// Refresh re-fetches the selected chat's history. Used after a send on
// the snapshot transport.
func (s *Synchronizer) Refresh(ctx context.Context) error {
	s.mu.Lock()
	gen := s.gen
	chatID := s.chatID
	s.mu.Unlock()

	if chatID == "" {
		return nil
	}
	msgs, err := s.gw.FetchHistory(ctx, chatID)
	if err != nil {
		s.showError(err)
		return err
	}
	s.apply(gen, msgs)
	return nil
}

// Clear drops the log and selection, cancelling any subscription. Called
// on logout.
func (s *Synchronizer) Clear() {
	s.Teardown()

	s.mu.Lock()
	s.chatID = ""
	s.messages = nil
	s.notifyLocked()
	s.mu.Unlock()
}

// Teardown cancels the standing subscription and invalidates in-flight
// deliveries. Safe to call at any time.
func (s *Synchronizer) Teardown() {
	s.mu.Lock()
	s.gen++
	cancel := s.cancel
	s.cancel = nil
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}
}

// subscribe opens the live subscription for a chat and pumps snapshots
// until cancellation.
func (s *Synchronizer) subscribe(ctx context.Context, chatID string, gen uint64) error {
	sub, err := s.live.SubscribeHistory(ctx, chatID)
	if err != nil {
		s.showError(err)
		return err
	}

	s.mu.Lock()
	if gen != s.gen {
		// selection moved on while the subscription was being opened
		s.mu.Unlock()
		sub.Cancel()
		return nil
	}
	s.cancel = sub.Cancel
	s.mu.Unlock()

	go func() {
		for {
			select {
			case msgs, ok := <-sub.Messages():
				if !ok {
					return
				}
				s.apply(gen, msgs)
			case err, ok := <-sub.Errs():
				if !ok {
					return
				}
				s.applyError(gen, err)
				return
			}
		}
	}()
	return nil
}

// apply installs a snapshot unless it belongs to a cancelled generation.
func (s *Synchronizer) apply(gen uint64, msgs []models.Message) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if gen != s.gen {
		s.logger.Debug().Str("chat_id", s.chatID).Msg("discarding stale history snapshot")
		return
	}

	models.SortMessages(msgs)
	s.messages = msgs
	s.notifyLocked()
}

// applyError surfaces a subscription failure unless the generation moved on.
func (s *Synchronizer) applyError(gen uint64, err error) {
	s.mu.Lock()
	stale := gen != s.gen
	s.mu.Unlock()

	if stale {
		s.logger.Debug().Err(err).Msg("discarding stale history error")
		return
	}
	s.showError(err)
}

// showError replaces the history view with an inline error state.
func (s *Synchronizer) showError(err error) {
	s.logger.Error().Err(err).Msg("history retrieval failed")
	if s.view != nil {
		s.view.ShowHistoryError(err)
	}
}

// notifyLocked pushes the current log to the view. Callers hold the lock.
func (s *Synchronizer) notifyLocked() {
	if s.view == nil {
		return
	}
	out := make([]models.Message, len(s.messages))
	copy(out, s.messages)
	s.view.ShowHistory(out)
}
