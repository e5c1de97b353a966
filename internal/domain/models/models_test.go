package models_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/ambermind/chat-controller/internal/domain/models"
)

func TestSortMessages_TimestampAscending(t *testing.T) {
	// Arrange
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	msgs := []models.Message{
		{ID: "c", Timestamp: base.Add(2 * time.Second)},
		{ID: "a", Timestamp: base},
		{ID: "b", Timestamp: base.Add(time.Second)},
	}

	// Act
	models.SortMessages(msgs)

	// Assert
	assert.Equal(t, "a", msgs[0].ID)
	assert.Equal(t, "b", msgs[1].ID)
	assert.Equal(t, "c", msgs[2].ID)
}

func TestSortMessages_TiesPreserveDeliveryOrder(t *testing.T) {
	// Arrange
	ts := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	msgs := []models.Message{
		{ID: "first", Timestamp: ts},
		{ID: "second", Timestamp: ts},
		{ID: "third", Timestamp: ts},
	}

	// Act
	models.SortMessages(msgs)

	// Assert
	assert.Equal(t, "first", msgs[0].ID)
	assert.Equal(t, "second", msgs[1].ID)
	assert.Equal(t, "third", msgs[2].ID)
}

func TestSortChats_NewestFirst(t *testing.T) {
	// Arrange
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	chats := []models.Chat{
		{ChatID: "old", CreatedAt: base},
		{ChatID: "new", CreatedAt: base.Add(time.Hour)},
		{ChatID: "mid", CreatedAt: base.Add(time.Minute)},
	}

	// Act
	models.SortChats(chats)

	// Assert
	assert.Equal(t, "new", chats[0].ChatID)
	assert.Equal(t, "mid", chats[1].ChatID)
	assert.Equal(t, "old", chats[2].ChatID)
}

func TestNewChat_Defaults(t *testing.T) {
	// Act
	chat := models.NewChat("chat-1")

	// Assert
	assert.Equal(t, "chat-1", chat.ChatID)
	assert.Equal(t, models.DefaultChatTitle, chat.Title)
	assert.False(t, chat.CreatedAt.IsZero())
	assert.Equal(t, chat.CreatedAt, chat.LastUpdated)
}

func TestSession_IsAdmin(t *testing.T) {
	// An admin identity without authentication never grants admin
	session := models.Session{
		Identity: models.UserIdentity{Username: "root", IsAdmin: true},
	}
	assert.False(t, session.IsAdmin())

	session.IsAuthenticated = true
	assert.True(t, session.IsAdmin())
}

func TestSession_Username_AnonymousIsEmpty(t *testing.T) {
	session := models.AnonymousSession()
	assert.True(t, session.IsReady)
	assert.Equal(t, "", session.Username())
}
