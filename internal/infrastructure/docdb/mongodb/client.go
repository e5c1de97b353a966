// Package mongodb provides the MongoDB document database implementation.
package mongodb

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/ambermind/chat-controller/internal/core/docdb"
)

const (
	// UsersCollection is the name of the user accounts collection.
	UsersCollection = "users"
	// ChatsCollection is the name of the chats collection.
	ChatsCollection = "chats"
	// MessagesCollection is the name of the messages collection.
	MessagesCollection = "messages"
)

// Client implements the docdb.Client interface for MongoDB.
type Client struct {
	client   *mongo.Client
	database *mongo.Database
}

// ClientConfig holds MongoDB connection configuration.
type ClientConfig struct {
	URI          string
	DatabaseName string
}

// NewClient creates a new MongoDB client.
func NewClient(ctx context.Context, config *ClientConfig) (*Client, error) {
	if config == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	if config.URI == "" {
		return nil, fmt.Errorf("mongodb URI is required")
	}
	if config.DatabaseName == "" {
		return nil, fmt.Errorf("database name is required")
	}

	clientOpts := options.Client().ApplyURI(config.URI)
	client, err := mongo.Connect(ctx, clientOpts)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongodb: %w", err)
	}

	// Verify connection
	if err := client.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("failed to ping mongodb: %w", err)
	}

	return &Client{
		client:   client,
		database: client.Database(config.DatabaseName),
	}, nil
}

// Users returns the user accounts collection.
func (c *Client) Users() docdb.Collection {
	return NewCollection(c.database.Collection(UsersCollection))
}

// Chats returns the chats collection.
func (c *Client) Chats() docdb.Collection {
	return NewCollection(c.database.Collection(ChatsCollection))
}

// Messages returns the messages collection.
func (c *Client) Messages() docdb.Collection {
	return NewCollection(c.database.Collection(MessagesCollection))
}

// EnsureIndexes creates the indexes the document-store gateway depends on.
func (c *Client) EnsureIndexes(ctx context.Context) error {
	unique := true
	_, err := c.database.Collection(UsersCollection).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "username", Value: 1}},
		Options: &options.IndexOptions{Unique: &unique},
	})
	if err != nil {
		return fmt.Errorf("failed to create username index: %w", err)
	}

	_, err = c.database.Collection(ChatsCollection).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "userId", Value: 1}, {Key: "createdAt", Value: -1}},
	})
	if err != nil {
		return fmt.Errorf("failed to create chats index: %w", err)
	}

	_, err = c.database.Collection(MessagesCollection).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "chatId", Value: 1}, {Key: "timestamp", Value: 1}},
	})
	if err != nil {
		return fmt.Errorf("failed to create messages index: %w", err)
	}

	return nil
}

// Ping verifies the connection to MongoDB.
func (c *Client) Ping(ctx context.Context) error {
	if err := c.client.Ping(ctx, nil); err != nil {
		return fmt.Errorf("mongodb ping failed: %w", err)
	}
	return nil
}

// Close closes the MongoDB connection.
func (c *Client) Close(ctx context.Context) error {
	if err := c.client.Disconnect(ctx); err != nil {
		return fmt.Errorf("failed to disconnect from mongodb: %w", err)
	}
	return nil
}
