// Package cache defines the cache and change-notification interface.
package cache

import (
	"context"
	"time"
)

// Subscription receives messages published to one channel.
type Subscription interface {
	// Messages yields published payloads until Close.
	Messages() <-chan []byte

	// Close stops the subscription and closes the message channel.
	Close() error
}

// Client defines the interface for cache and pub/sub operations.
// The document-store gateway uses Publish/Subscribe as its change
// notification primitive; the profile cache uses Get/Set/Delete.
type Client interface {
	// Get retrieves a value from the cache by key.
	// Returns nil if the key does not exist.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores a value in the cache with an optional TTL.
	// If ttl is 0, the default TTL is used.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Delete removes a key from the cache.
	// Returns true if the key was deleted, false if it didn't exist.
	Delete(ctx context.Context, key string) (bool, error)

	// Publish sends a payload to all subscribers of a channel.
	Publish(ctx context.Context, channel string, payload []byte) error

	// Subscribe opens a subscription to a channel.
	Subscribe(ctx context.Context, channel string) (Subscription, error)

	// Ping checks if the cache connection is alive.
	Ping(ctx context.Context) error

	// Close closes the cache connection.
	Close() error
}
