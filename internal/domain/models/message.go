// Package models contains domain models for the AmberMind chat controller.
package models

import "time"

// MessageRole represents the role of a message sender.
type MessageRole string

const (
	// RoleUser represents a message from the user.
	RoleUser MessageRole = "user"
	// RoleAssistant represents a message from the assistant.
	RoleAssistant MessageRole = "assistant"
)

// Message represents a single entry in a chat's message log.
// Messages are append-only: once created they are never mutated or
// reordered. Ordering within a chat is by Timestamp ascending; ties
// preserve the backend's delivery order.
type Message struct {
	ID        string      `json:"id,omitempty" bson:"_id,omitempty"`
	ChatID    string      `json:"chatId,omitempty" bson:"chatId,omitempty"`
	Role      MessageRole `json:"role" bson:"role"`
	Content   string      `json:"content" bson:"content"`
	Timestamp time.Time   `json:"timestamp" bson:"timestamp"`
}

// NewMessage creates a new message with the given role and content.
func NewMessage(chatID string, role MessageRole, content string) *Message {
	return &Message{
		ChatID:    chatID,
		Role:      role,
		Content:   content,
		Timestamp: time.Now().UTC(),
	}
}

// SortMessages orders messages by timestamp ascending, keeping the
// original order for equal timestamps.
func SortMessages(msgs []Message) {
	// insertion sort keeps the backend's delivery order on ties and the
	// input is already nearly sorted in practice
	for i := 1; i < len(msgs); i++ {
		for j := i; j > 0 && msgs[j].Timestamp.Before(msgs[j-1].Timestamp); j-- {
			msgs[j], msgs[j-1] = msgs[j-1], msgs[j]
		}
	}
}
