// Package rest implements the backend gateway over the stateless REST API.
//
// Session credentials are cookie-based: the client carries a cookie jar
// and never manages credential storage directly. There is no live
// subscription capability; the controller re-fetches snapshots after
// each mutating operation.
package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/ambermind/chat-controller/internal/core/gateway"
	domainerrors "github.com/ambermind/chat-controller/internal/domain/errors"
	"github.com/ambermind/chat-controller/internal/domain/models"
)

// Config holds the configuration for the REST gateway.
type Config struct {
	// BaseURL is the root of the REST API, e.g. "http://localhost:5000".
	BaseURL string
	// Timeout bounds each request round trip.
	Timeout time.Duration
	// HTTPClient overrides the default client (for testing).
	HTTPClient *http.Client
}

// Client implements gateway.Gateway over the REST API.
type Client struct {
	baseURL string
	http    *http.Client
	logger  zerolog.Logger
}

// NewClient creates a new REST gateway client.
func NewClient(cfg *Config) (*Client, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("base URL is required")
	}
	if _, err := url.Parse(cfg.BaseURL); err != nil {
		return nil, fmt.Errorf("invalid base URL: %w", err)
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		jar, err := cookiejar.New(nil)
		if err != nil {
			return nil, fmt.Errorf("failed to create cookie jar: %w", err)
		}
		timeout := cfg.Timeout
		if timeout == 0 {
			timeout = 30 * time.Second
		}
		httpClient = &http.Client{Jar: jar, Timeout: timeout}
	} else if httpClient.Jar == nil {
		jar, err := cookiejar.New(nil)
		if err != nil {
			return nil, fmt.Errorf("failed to create cookie jar: %w", err)
		}
		httpClient.Jar = jar
	}

	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		http:    httpClient,
		logger:  log.With().Str("component", "rest-gateway").Logger(),
	}, nil
}

type credentialsRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type signupResponse struct {
	Message string `json:"message"`
	ChatID  string `json:"chat_id"`
}

type loginResponse struct {
	Message string        `json:"message"`
	Chats   []models.Chat `json:"chats"`
	IsAdmin bool          `json:"is_admin"`
}

type chatsResponse struct {
	Chats []models.Chat `json:"chats"`
}

type newChatResponse struct {
	ChatID string `json:"chat_id"`
}

type historyResponse struct {
	History []models.Message `json:"history"`
}

type chatResponse struct {
	Response string           `json:"response"`
	History  []models.Message `json:"history"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// Signup creates an account and returns the auto-created first chat.
func (c *Client) Signup(ctx context.Context, username, password string) (*gateway.SignupResult, error) {
	var resp signupResponse
	err := c.do(ctx, http.MethodPost, "/signup", credentialsRequest{Username: username, Password: password}, &resp)
	if err != nil {
		return nil, err
	}

	return &gateway.SignupResult{
		Message: resp.Message,
		ChatID:  resp.ChatID,
		Identity: models.UserIdentity{
			UserID:   username,
			Username: username,
		},
	}, nil
}

// Login authenticates and returns the chat list, newest first.
func (c *Client) Login(ctx context.Context, username, password string) (*gateway.LoginResult, error) {
	var resp loginResponse
	err := c.do(ctx, http.MethodPost, "/login", credentialsRequest{Username: username, Password: password}, &resp)
	if err != nil {
		return nil, err
	}

	return &gateway.LoginResult{
		Message: resp.Message,
		Chats:   resp.Chats,
		Identity: models.UserIdentity{
			UserID:   username,
			Username: username,
			IsAdmin:  resp.IsAdmin,
		},
	}, nil
}

// Logout ends the backend session. Idempotent.
func (c *Client) Logout(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, "/logout", nil, nil)
}

// FetchChats returns the session's chats, newest first.
func (c *Client) FetchChats(ctx context.Context) ([]models.Chat, error) {
	var resp chatsResponse
	if err := c.do(ctx, http.MethodGet, "/chats", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Chats, nil
}

// CreateChat creates a chat with the default title.
func (c *Client) CreateChat(ctx context.Context) (*models.Chat, error) {
	var resp newChatResponse
	if err := c.do(ctx, http.MethodPost, "/new_chat", nil, &resp); err != nil {
		return nil, err
	}
	chat := models.NewChat(resp.ChatID)
	return chat, nil
}

// FetchHistory returns the chat's messages in ascending timestamp order.
func (c *Client) FetchHistory(ctx context.Context, chatID string) ([]models.Message, error) {
	var resp historyResponse
	if err := c.do(ctx, http.MethodGet, "/history/"+url.PathEscape(chatID), nil, &resp); err != nil {
		return nil, err
	}
	return resp.History, nil
}

// SendPrompt delivers a prompt and returns the assistant reply. The
// backend answers either {response} or a full {history}; for the latter
// the last assistant message is the reply.
func (c *Client) SendPrompt(ctx context.Context, chatID, prompt string) (*models.Message, error) {
	var resp chatResponse
	err := c.do(ctx, http.MethodPost, "/chat/"+url.PathEscape(chatID), map[string]string{"prompt": prompt}, &resp)
	if err != nil {
		return nil, err
	}

	if resp.Response != "" {
		return models.NewMessage(chatID, models.RoleAssistant, resp.Response), nil
	}
	for i := len(resp.History) - 1; i >= 0; i-- {
		if resp.History[i].Role == models.RoleAssistant {
			msg := resp.History[i]
			msg.ChatID = chatID
			return &msg, nil
		}
	}
	return nil, domainerrors.NewBackendError("no assistant reply in response", nil)
}

// SetChatTitle is unsupported on the REST surface; the backend derives
// titles server-side on the first exchange.
func (c *Client) SetChatTitle(ctx context.Context, chatID, title string) error {
	return nil
}

// AdminSnapshot returns the admin panel data.
func (c *Client) AdminSnapshot(ctx context.Context) (*models.AdminSnapshot, error) {
	var resp models.AdminSnapshot
	if err := c.do(ctx, http.MethodGet, "/admin", nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// do issues one request and decodes the response into out, mapping
// non-2xx statuses onto the domain error taxonomy.
func (c *Client) do(ctx context.Context, method, path string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request body: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return domainerrors.NewBackendError("request failed", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return domainerrors.NewBackendError("failed to read response", err)
	}

	if resp.StatusCode >= 400 {
		return c.mapError(resp.StatusCode, data, method, path)
	}

	if out != nil && len(data) > 0 {
		if err := json.Unmarshal(data, out); err != nil {
			return domainerrors.NewBackendError("failed to decode response", err)
		}
	}
	return nil
}

// mapError maps an HTTP error status onto the domain taxonomy.
func (c *Client) mapError(status int, body []byte, method, path string) error {
	var errResp errorResponse
	_ = json.Unmarshal(body, &errResp)
	message := errResp.Error
	if message == "" {
		message = http.StatusText(status)
	}

	c.logger.Warn().
		Str("method", method).
		Str("path", path).
		Int("status", status).
		Str("error", message).
		Msg("backend request failed")

	switch status {
	case http.StatusBadRequest:
		return domainerrors.NewValidationError(message, "")
	case http.StatusUnauthorized:
		return domainerrors.NewInvalidCredentialsError()
	case http.StatusNotFound:
		return domainerrors.NewNotFoundError("resource", message)
	case http.StatusConflict:
		return domainerrors.NewConflictError(message, "")
	default:
		return domainerrors.NewBackendError(message, nil)
	}
}
