// Package docdb defines the document database interface backing the
// document-store gateway.
package docdb

import (
	"context"
	"errors"
)

// ErrNoDocuments is returned by SingleResult.Err and Decode when FindOne
// matched nothing. Implementations map their driver sentinel onto it.
var ErrNoDocuments = errors.New("docdb: no documents in result")

// SingleResult represents the result of a FindOne operation.
type SingleResult interface {
	// Decode decodes the result into the provided interface.
	Decode(v interface{}) error
	// Err returns any error from the operation.
	Err() error
}

// Cursor represents a cursor for iterating over query results.
type Cursor interface {
	// Next advances the cursor to the next document.
	Next(ctx context.Context) bool
	// Decode decodes the current document.
	Decode(v interface{}) error
	// All decodes all remaining documents.
	All(ctx context.Context, results interface{}) error
	// Err returns any cursor error.
	Err() error
	// Close closes the cursor.
	Close(ctx context.Context) error
}

// FindOptions represents options for Find operations.
type FindOptions struct {
	Limit int64
	Skip  int64
	Sort  interface{}
}

// UpdateResult represents the result of an update operation.
type UpdateResult struct {
	MatchedCount  int64
	ModifiedCount int64
}

// DeleteResult represents the result of a delete operation.
type DeleteResult struct {
	DeletedCount int64
}

// Collection defines the interface for document collection operations.
type Collection interface {
	// InsertOne inserts a single document.
	InsertOne(ctx context.Context, document interface{}) (interface{}, error)

	// FindOne finds a single document.
	FindOne(ctx context.Context, filter interface{}) SingleResult

	// Find finds multiple documents.
	Find(ctx context.Context, filter interface{}, opts *FindOptions) (Cursor, error)

	// UpdateOne updates a single document.
	UpdateOne(ctx context.Context, filter interface{}, update interface{}) (*UpdateResult, error)

	// DeleteMany deletes all documents matching the filter.
	DeleteMany(ctx context.Context, filter interface{}) (*DeleteResult, error)

	// CountDocuments counts documents matching the filter.
	CountDocuments(ctx context.Context, filter interface{}) (int64, error)
}
