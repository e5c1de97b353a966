package models

import "time"

// DefaultChatTitle is the title given to a chat before its first exchange.
const DefaultChatTitle = "New Chat"

// FirstChatTitle is the title of the chat auto-created on signup.
const FirstChatTitle = "First Chat"

// Chat represents one conversation thread owned by a session.
// ChatID is the only stable identity; titles change after the first
// exchange and must never be used for selection comparisons.
type Chat struct {
	ChatID      string    `json:"chat_id" bson:"_id,omitempty"`
	Title       string    `json:"title" bson:"title"`
	CreatedAt   time.Time `json:"createdAt" bson:"createdAt"`
	LastUpdated time.Time `json:"lastUpdated" bson:"lastUpdated"`
}

// NewChat creates a chat with the default title.
func NewChat(chatID string) *Chat {
	now := time.Now().UTC()
	return &Chat{
		ChatID:      chatID,
		Title:       DefaultChatTitle,
		CreatedAt:   now,
		LastUpdated: now,
	}
}

// SortChats orders chats by creation time descending (newest first),
// which is the display order for the chat list.
func SortChats(chats []Chat) {
	for i := 1; i < len(chats); i++ {
		for j := i; j > 0 && chats[j].CreatedAt.After(chats[j-1].CreatedAt); j-- {
			chats[j], chats[j-1] = chats[j-1], chats[j]
		}
	}
}

// AdminSnapshot is the read-only data backing the admin panel.
type AdminSnapshot struct {
	Users     []string       `json:"users"`
	ChatStats map[string]int `json:"chat_stats"`
}
