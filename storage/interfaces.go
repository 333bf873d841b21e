package storage

import (
	"context"

	"github.com/poiesic/recall/core"
)

// DocumentRepository persists documents and their chunks, scoped by agent id.
// Implementations must be thread-safe and support concurrent access.
type DocumentRepository interface {
	// PutDocument commits a document and all of its chunks as a single
	// atomic publish. Readers observe either the whole document or nothing.
	// A document with the same ID is replaced, chunks included. The
	// document is validated before the write.
	PutDocument(ctx context.Context, doc *core.Document) error

	// GetDocument retrieves a document with its chunks in ordinal order.
	// Returns core.ErrNotFound if the document doesn't exist in the scope.
	GetDocument(ctx context.Context, scopeID string, id core.ID) (*core.Document, error)

	// DeleteDocument removes a document and all of its chunks.
	// Returns core.ErrNotFound if the document doesn't exist in the scope.
	DeleteDocument(ctx context.Context, scopeID string, id core.ID) error

	// ListDocuments returns document metadata (no chunks) for a scope,
	// ordered by document ID. An unknown scope yields an empty slice.
	ListDocuments(ctx context.Context, scopeID string) ([]*core.Document, error)

	// FindSimilar ranks every chunk in the scope by cosine similarity to
	// the query vector and returns the top limit results, highest score
	// first. Ties are broken by ascending chunk ordinal, then document ID,
	// so rankings are reproducible. Chunks from other scopes are never
	// considered. An empty scope yields an empty slice, not an error.
	FindSimilar(ctx context.Context, scopeID string, vector []float32, limit int) ([]*core.ScoredChunk, error)

	// Close closes the storage backend and releases resources.
	Close() error
}
