// Package profilecache provides an encrypted cache of the authenticated
// user profile for the document-store gateway.
package profilecache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/ambermind/chat-controller/internal/core/cache"
	"github.com/ambermind/chat-controller/internal/pkg/encryption"
)

// DefaultTTL is the default TTL for cached profiles.
const DefaultTTL = 30 * time.Minute

// Profile is the cached view of an authenticated account.
type Profile struct {
	UserID    string    `json:"userId"`
	Username  string    `json:"username"`
	IsAdmin   bool      `json:"isAdmin"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Service provides profile caching with encryption at rest.
type Service interface {
	// Get retrieves a cached profile, or nil if not found.
	Get(ctx context.Context, userID string) (*Profile, error)

	// Set stores a profile in cache with the configured TTL.
	Set(ctx context.Context, profile *Profile) error

	// Delete removes a profile from cache.
	Delete(ctx context.Context, userID string) error
}

// service implements the Service interface.
type service struct {
	cacheClient cache.Client
	encryptor   encryption.Encryptor
	ttl         time.Duration
}

// Config holds the configuration for the profile cache service.
type Config struct {
	CacheClient cache.Client
	Encryptor   encryption.Encryptor
	TTL         time.Duration
}

// NewService creates a new profile cache service.
func NewService(cfg *Config) (Service, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	if cfg.CacheClient == nil {
		return nil, fmt.Errorf("cache client is required")
	}
	if cfg.Encryptor == nil {
		return nil, fmt.Errorf("encryptor is required")
	}

	ttl := cfg.TTL
	if ttl == 0 {
		ttl = DefaultTTL
	}

	return &service{
		cacheClient: cfg.CacheClient,
		encryptor:   cfg.Encryptor,
		ttl:         ttl,
	}, nil
}

// Get retrieves a cached profile.
// Returns nil (not an error) if decryption fails, e.g. after a key
// change: the stale entry is dropped and the caller reads fresh data.
func (s *service) Get(ctx context.Context, userID string) (*Profile, error) {
	key := cacheKey(userID)

	encrypted, err := s.cacheClient.Get(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("failed to get profile from cache: %w", err)
	}
	if encrypted == nil {
		return nil, nil // Not found
	}

	decrypted, err := s.encryptor.Decrypt(string(encrypted))
	if err != nil {
		_, _ = s.cacheClient.Delete(ctx, key)
		return nil, nil
	}

	var profile Profile
	if err := json.Unmarshal(decrypted, &profile); err != nil {
		_, _ = s.cacheClient.Delete(ctx, key)
		return nil, nil
	}

	return &profile, nil
}

// Set stores a profile in cache.
func (s *service) Set(ctx context.Context, profile *Profile) error {
	if profile == nil {
		return fmt.Errorf("profile is required")
	}

	profile.UpdatedAt = time.Now().UTC()

	data, err := json.Marshal(profile)
	if err != nil {
		return fmt.Errorf("failed to marshal profile: %w", err)
	}

	encrypted, err := s.encryptor.Encrypt(data)
	if err != nil {
		return fmt.Errorf("failed to encrypt profile: %w", err)
	}

	if err := s.cacheClient.Set(ctx, cacheKey(profile.UserID), []byte(encrypted), s.ttl); err != nil {
		return fmt.Errorf("failed to store profile in cache: %w", err)
	}
	return nil
}

// Delete removes a profile from cache.
func (s *service) Delete(ctx context.Context, userID string) error {
	if _, err := s.cacheClient.Delete(ctx, cacheKey(userID)); err != nil {
		return fmt.Errorf("failed to delete profile: %w", err)
	}
	return nil
}

// cacheKey generates the cache key for a user's profile.
func cacheKey(userID string) string {
	return "profile:" + userID
}
