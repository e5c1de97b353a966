// Package redis provides the Redis cache and pub/sub implementation.
package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ambermind/chat-controller/internal/core/cache"
)

// Config holds Redis connection configuration.
type Config struct {
	Host       string
	Port       string
	Password   string
	DB         int
	DefaultTTL time.Duration
}

// Client implements the cache.Client interface for Redis.
type Client struct {
	client     *redis.Client
	defaultTTL time.Duration
}

// NewClient creates a new Redis cache client.
func NewClient(cfg Config) (*Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%s", cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &Client{
		client:     client,
		defaultTTL: cfg.DefaultTTL,
	}, nil
}

// Get retrieves a value from Redis by key.
func (c *Client) Get(ctx context.Context, key string) ([]byte, error) {
	val, err := c.client.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return nil, nil // Key not found
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get key %s: %w", key, err)
	}
	return val, nil
}

// Set stores a value in Redis with an optional TTL.
func (c *Client) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl == 0 {
		ttl = c.defaultTTL
	}

	if err := c.client.Set(ctx, key, value, ttl).Err(); err != nil {
		return fmt.Errorf("failed to set key %s: %w", key, err)
	}
	return nil
}

// Delete removes a key from Redis.
func (c *Client) Delete(ctx context.Context, key string) (bool, error) {
	result, err := c.client.Del(ctx, key).Result()
	if err != nil {
		return false, fmt.Errorf("failed to delete key %s: %w", key, err)
	}
	return result > 0, nil
}

// Publish sends a payload to all subscribers of a channel.
func (c *Client) Publish(ctx context.Context, channel string, payload []byte) error {
	if err := c.client.Publish(ctx, channel, payload).Err(); err != nil {
		return fmt.Errorf("failed to publish to channel %s: %w", channel, err)
	}
	return nil
}

// Subscribe opens a subscription to a channel.
func (c *Client) Subscribe(ctx context.Context, channel string) (cache.Subscription, error) {
	pubsub := c.client.Subscribe(ctx, channel)

	// Force the subscription to be established before returning so a
	// publish issued right after Subscribe is not lost.
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, fmt.Errorf("failed to subscribe to channel %s: %w", channel, err)
	}

	sub := &subscription{
		pubsub:   pubsub,
		messages: make(chan []byte),
		done:     make(chan struct{}),
	}
	go sub.pump()

	return sub, nil
}

// Ping checks if the Redis connection is alive.
func (c *Client) Ping(ctx context.Context) error {
	if err := c.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping failed: %w", err)
	}
	return nil
}

// Close closes the Redis connection.
func (c *Client) Close() error {
	if err := c.client.Close(); err != nil {
		return fmt.Errorf("failed to close redis connection: %w", err)
	}
	return nil
}

// subscription implements cache.Subscription over a redis PubSub.
type subscription struct {
	pubsub   *redis.PubSub
	messages chan []byte
	done     chan struct{}
}

// pump moves payloads from the redis subscription to the message channel.
func (s *subscription) pump() {
	defer close(s.messages)
	ch := s.pubsub.Channel()
	for {
		select {
		case msg, ok := <-ch:
			if !ok {
				return
			}
			select {
			case s.messages <- []byte(msg.Payload):
			case <-s.done:
				return
			}
		case <-s.done:
			return
		}
	}
}

// Messages yields published payloads until Close.
func (s *subscription) Messages() <-chan []byte {
	return s.messages
}

// Close stops the subscription.
func (s *subscription) Close() error {
	select {
	case <-s.done:
		return nil // already closed
	default:
		close(s.done)
	}
	return s.pubsub.Close()
}
