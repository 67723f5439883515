package core

import (
	"context"

	"modernstack.dev/ragapi/internal/store"
)

// DocumentStore persists document metadata.
type DocumentStore interface {
	CreateDocument(ctx context.Context, doc *store.Document) error
	GetDocumentsByOwner(ctx context.Context, ownerID string) ([]store.Document, error)
}

// TextSplitter cuts document content into ordered, overlapping chunks.
type TextSplitter interface {
	Split(content string) ([]string, error)
}

// VectorIndex stores chunk records and answers similarity queries by text.
type VectorIndex interface {
	// Upsert makes every record queryable once it returns nil.
	Upsert(ctx context.Context, records []VectorRecord) error

	// Query returns at most q.TopK results ordered by descending score. No
	// match is an empty slice, not an error.
	Query(ctx context.Context, q VectorQuery) ([]RetrievalResult, error)
}

// Embedder turns text into vectors for backends that embed client-side.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}

// LanguageModel streams a completion for a system instruction and messages.
type LanguageModel interface {
	StreamChat(ctx context.Context, req ChatRequest) (TokenStream, error)
}

// TokenStream is a finite, forward-only sequence of generated text.
//
// Next returns io.EOF once generation completed normally. Close stops
// upstream generation and releases the connection; it is safe to call more
// than once.
type TokenStream interface {
	Next() (string, error)
	Close() error
}
