// Package gateway provides the gateway type constants.
package gateway

// Type represents the type of backend gateway.
type Type string

const (
	// TypeREST represents the stateless REST backend.
	TypeREST Type = "rest"
	// TypeDocStore represents the real-time document-store backend.
	TypeDocStore Type = "docstore"
)
