package docstore

import (
	"context"
	"sync"

	"github.com/ambermind/chat-controller/internal/core/cache"
	"github.com/ambermind/chat-controller/internal/core/gateway"
	"github.com/ambermind/chat-controller/internal/domain/models"
)

// SubscribeChats opens a standing chat-list subscription for the active
// session. The subscription emits a full ordered snapshot immediately and
// again after every change notification.
func (s *Store) SubscribeChats(ctx context.Context) (gateway.ChatSubscription, error) {
	userID, err := s.activeUser()
	if err != nil {
		return nil, err
	}

	notify, err := s.cache.Subscribe(ctx, chatsChannel(userID))
	if err != nil {
		return nil, err
	}

	sub := newChatSubscription()
	go sub.run(ctx, notify, func(ctx context.Context) ([]models.Chat, error) {
		return s.fetchChatsFor(ctx, userID)
	})
	return sub, nil
}

// SubscribeHistory opens a standing message subscription for one chat.
func (s *Store) SubscribeHistory(ctx context.Context, chatID string) (gateway.HistorySubscription, error) {
	userID, err := s.activeUser()
	if err != nil {
		return nil, err
	}
	if err := s.ownsChat(ctx, userID, chatID); err != nil {
		return nil, err
	}

	notify, err := s.cache.Subscribe(ctx, historyChannel(chatID))
	if err != nil {
		return nil, err
	}

	sub := newHistorySubscription()
	go sub.run(ctx, notify, func(ctx context.Context) ([]models.Message, error) {
		return s.FetchHistory(ctx, chatID)
	})
	return sub, nil
}

// liveSub carries the cancellation plumbing shared by both subscription
// kinds.
type liveSub struct {
	errs   chan error
	done   chan struct{}
	cancel sync.Once
}

// Cancel stops the subscription. Safe to call more than once.
func (s *liveSub) Cancel() {
	s.cancel.Do(func() { close(s.done) })
}

// Errs yields subscription failures.
func (s *liveSub) Errs() <-chan error {
	return s.errs
}

func (s *liveSub) fail(err error) {
	select {
	case s.errs <- err:
	case <-s.done:
	}
}

// chatSubscription implements gateway.ChatSubscription.
type chatSubscription struct {
	liveSub
	chats chan []models.Chat
}

func newChatSubscription() *chatSubscription {
	return &chatSubscription{
		liveSub: liveSub{errs: make(chan error, 1), done: make(chan struct{})},
		chats:   make(chan []models.Chat),
	}
}

// Chats yields a full ordered snapshot on every change.
func (s *chatSubscription) Chats() <-chan []models.Chat {
	return s.chats
}

// run emits the initial snapshot, then re-fetches on every notification.
func (s *chatSubscription) run(ctx context.Context, notify cache.Subscription, fetch func(context.Context) ([]models.Chat, error)) {
	defer close(s.chats)
	defer notify.Close()

	emit := func() bool {
		snapshot, err := fetch(ctx)
		if err != nil {
			s.fail(err)
			return false
		}
		select {
		case s.chats <- snapshot:
			return true
		case <-s.done:
			return false
		case <-ctx.Done():
			return false
		}
	}

	if !emit() {
		return
	}
	for {
		select {
		case _, ok := <-notify.Messages():
			if !ok {
				return
			}
			if !emit() {
				return
			}
		case <-s.done:
			return
		case <-ctx.Done():
			return
		}
	}
}

// historySubscription implements gateway.HistorySubscription.
type historySubscription struct {
	liveSub
	messages chan []models.Message
}

func newHistorySubscription() *historySubscription {
	return &historySubscription{
		liveSub:  liveSub{errs: make(chan error, 1), done: make(chan struct{})},
		messages: make(chan []models.Message),
	}
}

// Messages yields a full ordered snapshot on every change.
func (s *historySubscription) Messages() <-chan []models.Message {
	return s.messages
}

// run emits the initial snapshot, then re-fetches on every notification.
func (s *historySubscription) run(ctx context.Context, notify cache.Subscription, fetch func(context.Context) ([]models.Message, error)) {
	defer close(s.messages)
	defer notify.Close()

	emit := func() bool {
		snapshot, err := fetch(ctx)
		if err != nil {
			s.fail(err)
			return false
		}
		select {
		case s.messages <- snapshot:
			return true
		case <-s.done:
			return false
		case <-ctx.Done():
			return false
		}
	}

	if !emit() {
		return
	}
	for {
		select {
		case _, ok := <-notify.Messages():
			if !ok {
				return
			}
			if !emit() {
				return
			}
		case <-s.done:
			return
		case <-ctx.Done():
			return
		}
	}
}
