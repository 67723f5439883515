package store

import "time"

type Document struct {
	ID        string    `json:"id"` // Using UUID for external ID
	OwnerID   string    `json:"userId"`
	Title     string    `json:"title"`
	Content   string    `json:"content,omitempty"` // Optional, chunks live in the vector index
	CreatedAt time.Time `json:"createdAt"`
}

type DataChunk struct {
	ID            string    `json:"id"` // <documentID>-<sequenceIndex>
	DocumentID    string    `json:"documentId"`
	OwnerID       string    `json:"ownerId"`
	SequenceIndex int       `json:"sequenceIndex"`
	Title         string    `json:"title"`
	Content       string    `json:"content"`
	Embedding     []float32 `json:"-"` // Don't marshal to JSON response, internal
	EmbeddingJSON string    `json:"-"` // Store as JSON string for DB
}
