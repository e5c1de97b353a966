package dto

import (
	"github.com/ambermind/chat-controller/internal/domain/models"
)

// ErrorResponse represents an error response.
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

// ChatResponse represents one chat list entry.
type ChatResponse struct {
	ChatID string `json:"chat_id"`
	Title  string `json:"title"`
}

// MessageResponse represents one message. HTML is the sanitized
// rendering of assistant content; empty for user messages.
type MessageResponse struct {
	ID        string `json:"id,omitempty"`
	Role      string `json:"role"`
	Content   string `json:"content"`
	HTML      string `json:"html,omitempty"`
	Timestamp int64  `json:"timestamp,omitempty"`
}

// SignupResponse represents a successful signup.
type SignupResponse struct {
	Message string `json:"message"`
	ChatID  string `json:"chat_id"`
}

// LoginResponse represents a successful login.
type LoginResponse struct {
	Message  string         `json:"message"`
	Chats    []ChatResponse `json:"chats"`
	IsAdmin  bool           `json:"is_admin"`
	Greeting string         `json:"greeting,omitempty"`
}

// LogoutResponse represents a logout acknowledgement.
type LogoutResponse struct {
	Message string `json:"message"`
}

// ChatsResponse represents the chat list.
type ChatsResponse struct {
	Chats        []ChatResponse `json:"chats"`
	ActiveChatID string         `json:"active_chat_id,omitempty"`
}

// NewChatResponse represents a created chat.
type NewChatResponse struct {
	ChatID string `json:"chat_id"`
	Title  string `json:"title"`
}

// HistoryResponse represents a chat's message log. Placeholder is set
// instead of messages when the chat has no history yet, so the client
// shows an invitation rather than a blank pane.
type HistoryResponse struct {
	ChatID      string            `json:"chat_id"`
	History     []MessageResponse `json:"history"`
	Placeholder string            `json:"placeholder,omitempty"`
}

// SendResponse represents a completed prompt exchange.
type SendResponse struct {
	Response     string            `json:"response"`
	ResponseHTML string            `json:"response_html,omitempty"`
	History      []MessageResponse `json:"history"`
}

// AdminResponse represents the admin panel snapshot.
type AdminResponse struct {
	Users     []string       `json:"users"`
	ChatStats map[string]int `json:"chat_stats"`
}

// SessionResponse represents the session state pushed to event streams.
type SessionResponse struct {
	IsReady         bool   `json:"is_ready"`
	IsAuthenticated bool   `json:"is_authenticated"`
	Username        string `json:"username,omitempty"`
	IsAdmin         bool   `json:"is_admin,omitempty"`
}

// FromSession converts a session snapshot.
func FromSession(session models.Session) SessionResponse {
	return SessionResponse{
		IsReady:         session.IsReady,
		IsAuthenticated: session.IsAuthenticated,
		Username:        session.Username(),
		IsAdmin:         session.IsAdmin(),
	}
}

// FromChat converts a chat model.
func FromChat(chat models.Chat) ChatResponse {
	return ChatResponse{
		ChatID: chat.ChatID,
		Title:  chat.Title,
	}
}

// FromChats converts a chat list. Never nil, so the JSON stays [].
func FromChats(chats []models.Chat) []ChatResponse {
	out := make([]ChatResponse, 0, len(chats))
	for _, chat := range chats {
		out = append(out, FromChat(chat))
	}
	return out
}

// FromMessage converts a message model. html carries the sanitized
// rendering when the caller has one.
func FromMessage(msg models.Message, html string) MessageResponse {
	return MessageResponse{
		ID:        msg.ID,
		Role:      string(msg.Role),
		Content:   msg.Content,
		HTML:      html,
		Timestamp: msg.Timestamp.UnixMilli(),
	}
}
