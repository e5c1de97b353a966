package rest_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ambermind/chat-controller/internal/core/gateway"
	domainerrors "github.com/ambermind/chat-controller/internal/domain/errors"
	"github.com/ambermind/chat-controller/internal/domain/models"
	"github.com/ambermind/chat-controller/internal/infrastructure/gateway/rest"
)

func newClient(t *testing.T, handler http.Handler) *rest.Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	client, err := rest.NewClient(&rest.Config{BaseURL: srv.URL})
	require.NoError(t, err)
	return client
}

func TestNewClient_Validation(t *testing.T) {
	_, err := rest.NewClient(nil)
	assert.Error(t, err)

	_, err = rest.NewClient(&rest.Config{})
	assert.Error(t, err)
}

func TestClient_Signup_Success(t *testing.T) {
	// Arrange
	client := newClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/signup", r.URL.Path)

		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "amber", body["username"])
		assert.Equal(t, "secret", body["password"])

		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(map[string]string{
			"message": "Signup successful! You are now logged in.",
			"chat_id": "chat-1",
		})
	}))

	// Act
	result, err := client.Signup(context.Background(), "amber", "secret")

	// Assert
	require.NoError(t, err)
	assert.Equal(t, "chat-1", result.ChatID)
	assert.Equal(t, "amber", result.Identity.Username)
	assert.Contains(t, result.Message, "Signup successful")
}

func TestClient_Signup_Conflict(t *testing.T) {
	// Arrange
	client := newClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
		_ = json.NewEncoder(w).Encode(map[string]string{"error": "Username already exists."})
	}))

	// Act
	_, err := client.Signup(context.Background(), "amber", "secret")

	// Assert
	require.Error(t, err)
	assert.True(t, domainerrors.IsConflict(err))
	assert.Contains(t, err.Error(), "Username already exists.")
}

func TestClient_Login_Success(t *testing.T) {
	// Arrange
	client := newClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.SetCookie(w, &http.Cookie{Name: "session", Value: "tok"})
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"message":  "Login successful!",
			"is_admin": true,
			"chats": []map[string]string{
				{"chat_id": "c2", "title": "New Chat"},
				{"chat_id": "c1", "title": "First Chat"},
			},
		})
	}))

	// Act
	result, err := client.Login(context.Background(), "amber", "secret")

	// Assert
	require.NoError(t, err)
	assert.True(t, result.Identity.IsAdmin)
	require.Len(t, result.Chats, 2)
	assert.Equal(t, "c2", result.Chats[0].ChatID)
}

func TestClient_Login_InvalidCredentials(t *testing.T) {
	// Arrange
	client := newClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_ = json.NewEncoder(w).Encode(map[string]string{"error": "Invalid credentials"})
	}))

	// Act
	_, err := client.Login(context.Background(), "amber", "wrong")

	// Assert
	require.Error(t, err)
	assert.True(t, domainerrors.IsInvalidCredentials(err))
}

func TestClient_SessionCookiePersistsAcrossRequests(t *testing.T) {
	// Arrange: login sets a cookie; the chats call must carry it back
	var sawCookie bool
	client := newClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/login":
			http.SetCookie(w, &http.Cookie{Name: "session", Value: "tok"})
			_ = json.NewEncoder(w).Encode(map[string]interface{}{"message": "ok"})
		case "/chats":
			if cookie, err := r.Cookie("session"); err == nil && cookie.Value == "tok" {
				sawCookie = true
			}
			_ = json.NewEncoder(w).Encode(map[string]interface{}{"chats": []interface{}{}})
		}
	}))

	// Act
	_, err := client.Login(context.Background(), "amber", "secret")
	require.NoError(t, err)
	_, err = client.FetchChats(context.Background())
	require.NoError(t, err)

	// Assert
	assert.True(t, sawCookie)
}

func TestClient_FetchHistory(t *testing.T) {
	// Arrange
	client := newClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/history/c1", r.URL.Path)
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"history": []map[string]string{
				{"role": "user", "content": "hello"},
				{"role": "assistant", "content": "Echo: hello"},
			},
		})
	}))

	// Act
	msgs, err := client.FetchHistory(context.Background(), "c1")

	// Assert
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, models.RoleUser, msgs[0].Role)
	assert.Equal(t, "Echo: hello", msgs[1].Content)
}

func TestClient_SendPrompt_ResponseField(t *testing.T) {
	// Arrange
	client := newClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/chat/c1", r.URL.Path)
		_ = json.NewEncoder(w).Encode(map[string]string{"response": "Echo: hi"})
	}))

	// Act
	reply, err := client.SendPrompt(context.Background(), "c1", "hi")

	// Assert
	require.NoError(t, err)
	assert.Equal(t, models.RoleAssistant, reply.Role)
	assert.Equal(t, "Echo: hi", reply.Content)
	assert.Equal(t, "c1", reply.ChatID)
}

func TestClient_SendPrompt_HistoryFallback(t *testing.T) {
	// Arrange: no response field, reply extracted from the history
	client := newClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"history": []map[string]string{
				{"role": "user", "content": "hi"},
				{"role": "assistant", "content": "Echo: hi"},
			},
		})
	}))

	// Act
	reply, err := client.SendPrompt(context.Background(), "c1", "hi")

	// Assert
	require.NoError(t, err)
	assert.Equal(t, "Echo: hi", reply.Content)
}

func TestClient_SendPrompt_NoReply(t *testing.T) {
	// Arrange
	client := newClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]interface{}{"history": []interface{}{}})
	}))

	// Act
	_, err := client.SendPrompt(context.Background(), "c1", "hi")

	// Assert
	require.Error(t, err)
	assert.True(t, domainerrors.IsCode(err, domainerrors.ErrCodeBackend))
}

func TestClient_AdminSnapshot(t *testing.T) {
	// Arrange
	client := newClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/admin", r.URL.Path)
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"users":      []string{"amber", "beryl"},
			"chat_stats": map[string]int{"amber": 2, "beryl": 1},
		})
	}))

	// Act
	snap, err := client.AdminSnapshot(context.Background())

	// Assert
	require.NoError(t, err)
	assert.Equal(t, []string{"amber", "beryl"}, snap.Users)
	assert.Equal(t, 2, snap.ChatStats["amber"])
}

func TestClient_BackendDown(t *testing.T) {
	// Arrange
	srv := httptest.NewServer(http.NotFoundHandler())
	srv.Close()

	client, err := rest.NewClient(&rest.Config{BaseURL: srv.URL})
	require.NoError(t, err)

	// Act
	_, err = client.FetchChats(context.Background())

	// Assert
	require.Error(t, err)
	assert.True(t, domainerrors.IsCode(err, domainerrors.ErrCodeBackend))
}

var _ gateway.Gateway = (*rest.Client)(nil)
