package sse

import (
	"context"
	"sync"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/ambermind/chat-controller/internal/api/dto"
	domainerrors "github.com/ambermind/chat-controller/internal/domain/errors"
	"github.com/ambermind/chat-controller/internal/domain/models"
	"github.com/ambermind/chat-controller/internal/render"
)

// Event is one broadcastable state change.
type Event struct {
	Type EventType
	Data interface{}
}

// emptyHistoryPlaceholder is shown in place of messages for a chat that
// has none yet.
const emptyHistoryPlaceholder = "Start the conversation!"

// Hub fans chat state changes out to connected event streams. It is the
// presentation sink for the controller: the chat list synchronizer, the
// history synchronizer and the admin fetch all report through it.
//
// Broadcasts never block: a subscriber that cannot keep up loses
// intermediate snapshots, and the next one supersedes them anyway.
type Hub struct {
	renderer render.Service
	logger   zerolog.Logger

	mu     sync.Mutex
	nextID int
	subs   map[int]chan Event
}

// NewHub creates a hub. The renderer converts assistant markdown before
// history snapshots go out; nil disables rendering.
func NewHub(renderer render.Service) *Hub {
	return &Hub{
		renderer: renderer,
		logger:   log.With().Str("component", "sse-hub").Logger(),
		subs:     make(map[int]chan Event),
	}
}

// Subscribe registers an event stream. The returned cancel removes it.
func (h *Hub) Subscribe() (<-chan Event, func()) {
	h.mu.Lock()
	defer h.mu.Unlock()

	id := h.nextID
	h.nextID++
	ch := make(chan Event, 16)
	h.subs[id] = ch

	cancel := func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		if _, ok := h.subs[id]; ok {
			delete(h.subs, id)
			close(ch)
		}
	}
	return ch, cancel
}

// ShowSession broadcasts a session state change.
func (h *Hub) ShowSession(session models.Session) {
	h.broadcast(Event{
		Type: EventSession,
		Data: dto.FromSession(session),
	})
}

// ShowChats broadcasts a chat list snapshot.
func (h *Hub) ShowChats(chats []models.Chat, activeChatID string) {
	h.broadcast(Event{
		Type: EventChats,
		Data: dto.ChatsResponse{
			Chats:        dto.FromChats(chats),
			ActiveChatID: activeChatID,
		},
	})
}

// ShowHistory broadcasts a message history snapshot. Assistant content is
// rendered to sanitized HTML before it goes out.
func (h *Hub) ShowHistory(messages []models.Message) {
	chatID := ""
	if len(messages) > 0 {
		chatID = messages[0].ChatID
	}

	history := make([]dto.MessageResponse, 0, len(messages))
	for _, msg := range messages {
		history = append(history, dto.FromMessage(msg, h.renderHTML(msg)))
	}

	placeholder := ""
	if len(history) == 0 {
		placeholder = emptyHistoryPlaceholder
	}

	h.broadcast(Event{
		Type: EventHistory,
		Data: dto.HistoryResponse{
			ChatID:      chatID,
			History:     history,
			Placeholder: placeholder,
		},
	})
}

// ShowHistoryError broadcasts a history retrieval failure. The client
// replaces the message area with the notice.
func (h *Hub) ShowHistoryError(err error) {
	h.broadcastError(EventError, err)
}

// ShowSendFailure broadcasts a failed-send notice.
func (h *Hub) ShowSendFailure(err error) {
	h.broadcastError(EventSendFailure, err)
}

// ShowAdmin broadcasts an admin panel snapshot.
func (h *Hub) ShowAdmin(snap models.AdminSnapshot) {
	h.broadcast(Event{
		Type: EventAdmin,
		Data: dto.AdminResponse{
			Users:     snap.Users,
			ChatStats: snap.ChatStats,
		},
	})
}

// ShowAdminError broadcasts an admin fetch failure.
func (h *Hub) ShowAdminError(err error) {
	h.broadcastError(EventError, err)
}

func (h *Hub) renderHTML(msg models.Message) string {
	if h.renderer == nil || msg.Role != models.RoleAssistant {
		return ""
	}
	// renderer degrades to escaped plaintext on failure, so the HTML is
	// always usable
	html, err := h.renderer.Render(context.Background(), msg.Content)
	if err != nil {
		h.logger.Debug().Err(err).Str("message_id", msg.ID).Msg("degraded message rendering")
	}
	return html
}

func (h *Hub) broadcastError(eventType EventType, err error) {
	resp := dto.ErrorResponse{
		Code:    "BACKEND_ERROR",
		Message: "something went wrong",
	}
	if domainErr, ok := domainerrors.GetDomainError(err); ok {
		resp.Code = domainErr.Code
		resp.Message = domainErr.Message
		resp.Details = domainErr.Details
	} else if err != nil {
		resp.Details = err.Error()
	}
	h.broadcast(Event{Type: eventType, Data: resp})
}

func (h *Hub) broadcast(event Event) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for id, ch := range h.subs {
		select {
		case ch <- event:
		default:
			h.logger.Debug().Int("subscriber", id).Str("event", string(event.Type)).Msg("subscriber lagging, event dropped")
		}
	}
}
