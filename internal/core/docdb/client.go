// Package docdb defines the document database client interface.
package docdb

import (
	"context"
)

// Client defines the interface for a document database client.
type Client interface {
	// Users returns the user accounts collection.
	Users() Collection

	// Chats returns the chats collection.
	Chats() Collection

	// Messages returns the messages collection.
	Messages() Collection

	// EnsureIndexes creates the indexes the gateway depends on.
	EnsureIndexes(ctx context.Context) error

	// Ping verifies the database connection.
	Ping(ctx context.Context) error

	// Close closes the database connection.
	Close(ctx context.Context) error
}
