// Package chatlist owns the chat list and the active chat selection.
//
// For the REST transport the list is a point-in-time fetch re-issued
// after each mutating chat operation; for the live store it is a
// standing subscription cancelled on session change or teardown.
package chatlist

import (
	"context"
	"sync"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/ambermind/chat-controller/internal/core/gateway"
	domainerrors "github.com/ambermind/chat-controller/internal/domain/errors"
	"github.com/ambermind/chat-controller/internal/domain/models"
)

// View consumes chat list snapshots. Implementations must not call back
// into the synchronizer.
type View interface {
	// ShowChats receives the ordered list and the active selection.
	ShowChats(chats []models.Chat, activeChatID string)
}

// Synchronizer owns the chat list singleton and the active selection.
type Synchronizer struct {
	gw     gateway.ChatStore
	live   gateway.Subscriber // nil without the live capability
	view   View
	logger zerolog.Logger

	mu     sync.Mutex
	chats  []models.Chat
	active string
	gen    uint64
	cancel func()
}

// NewSynchronizer creates a chat list synchronizer. The live subscriber
// may be nil; view may be nil.
func NewSynchronizer(gw gateway.ChatStore, live gateway.Subscriber, view View) *Synchronizer {
	return &Synchronizer{
		gw:     gw,
		live:   live,
		view:   view,
		logger: log.With().Str("component", "chatlist").Logger(),
	}
}

// Load starts list synchronization for a freshly authenticated session.
// Any previous subscription is cancelled first.
func (s *Synchronizer) Load(ctx context.Context) error {
	s.Teardown()

	s.mu.Lock()
	gen := s.gen
	s.mu.Unlock()

	if s.live != nil {
		return s.subscribe(ctx, gen)
	}
	return s.Refresh(ctx)
}

// SetInitial seeds the list from a login response without a round trip.
func (s *Synchronizer) SetInitial(chats []models.Chat) {
	s.mu.Lock()
	gen := s.gen
	s.mu.Unlock()
	s.apply(gen, chats)
}

// Refresh re-fetches the list. Used after each mutating chat operation
// on the snapshot transport.
func (s *Synchronizer) Refresh(ctx context.Context) error {
	s.mu.Lock()
	gen := s.gen
	s.mu.Unlock()

	chats, err := s.gw.FetchChats(ctx)
	if err != nil {
		return err
	}
	s.apply(gen, chats)
	return nil
}

// CreateChat creates a chat with the default title and selects it.
func (s *Synchronizer) CreateChat(ctx context.Context) (*models.Chat, error) {
	chat, err := s.gw.CreateChat(ctx)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.chats = append([]models.Chat{*chat}, s.chats...)
	s.active = chat.ChatID
	s.notifyLocked()
	s.mu.Unlock()

	// the live transport re-delivers the list via its subscription; the
	// snapshot transport re-fetches to converge with the backend order
	if s.live == nil {
		if err := s.Refresh(ctx); err != nil {
			s.logger.Warn().Err(err).Msg("chat list refresh after create failed")
		}
	}
	return chat, nil
}

// Select marks a chat as the active selection. Selecting a chat not in
// the list is an error, not a partial state change.
func (s *Synchronizer) Select(chatID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.containsLocked(chatID) {
		return domainerrors.NewUnknownChatError(chatID)
	}
	s.active = chatID
	s.notifyLocked()
	return nil
}

// ActiveChat returns the active chat ID, or "" when nothing is selected.
func (s *Synchronizer) ActiveChat() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active
}

// Chats returns a snapshot of the current list.
func (s *Synchronizer) Chats() []models.Chat {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.Chat, len(s.chats))
	copy(out, s.chats)
	return out
}

// Clear empties the list and selection, cancelling any subscription.
// Called on logout.
func (s *Synchronizer) Clear() {
	s.Teardown()

	s.mu.Lock()
	s.chats = nil
	s.active = ""
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

// subscribe opens the live subscription and pumps snapshots until
// cancellation.
func (s *Synchronizer) subscribe(ctx context.Context, gen uint64) error {
	sub, err := s.live.SubscribeChats(ctx)
	if err != nil {
		return err
	}

	s.mu.Lock()
	if gen != s.gen {
		// session moved on while the subscription was being opened
		s.mu.Unlock()
		sub.Cancel()
		return nil
	}
	s.cancel = sub.Cancel
	s.mu.Unlock()

	go func() {
		for {
			select {
			case chats, ok := <-sub.Chats():
				if !ok {
					return
				}
				s.apply(gen, chats)
			case err, ok := <-sub.Errs():
				if !ok {
					return
				}
				s.logger.Error().Err(err).Msg("chat list subscription failed")
				return
			}
		}
	}()
	return nil
}

// apply installs a snapshot unless it belongs to a cancelled generation.
// Stale deliveries are discarded, never merged.
func (s *Synchronizer) apply(gen uint64, chats []models.Chat) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if gen != s.gen {
		s.logger.Debug().Msg("discarding stale chat list snapshot")
		return
	}

	models.SortChats(chats)
	s.chats = chats
	if s.active != "" && !s.containsLocked(s.active) {
		s.active = ""
	}
	s.notifyLocked()
}

// containsLocked reports list membership by chat ID. Callers hold the lock.
func (s *Synchronizer) containsLocked(chatID string) bool {
	for _, c := range s.chats {
		if c.ChatID == chatID {
			return true
		}
	}
	return false
}

// notifyLocked pushes the current snapshot to the view. Callers hold the
// lock; the copy keeps the view from aliasing internal state.
func (s *Synchronizer) notifyLocked() {
	if s.view == nil {
		return
	}
	out := make([]models.Chat, len(s.chats))
	copy(out, s.chats)
	s.view.ShowChats(out, s.active)
}
