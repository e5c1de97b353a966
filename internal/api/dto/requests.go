// Package dto provides Data Transfer Objects for API requests and responses.
package dto

// CredentialsRequest represents a signup or login request.
type CredentialsRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// SelectChatRequest represents a chat selection request.
type SelectChatRequest struct {
	ChatID string `json:"chat_id" binding:"required"`
}

// PromptRequest represents a prompt sent to a chat.
type PromptRequest struct {
	Prompt string `json:"prompt"`
}
