package core

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"
	"modernstack.dev/ragapi/internal/store"
)

// Chunking configuration used for every ingested document.
const (
	IngestChunkSize    = 1000
	IngestChunkOverlap = 200
)

// IngestService turns a submitted document into searchable chunks.
type IngestService struct {
	docs     DocumentStore
	splitter TextSplitter
	index    VectorIndex

	newID func() string
	now   func() time.Time
}

// NewIngestService wires the pipeline. The splitter is expected to be
// configured with IngestChunkSize and IngestChunkOverlap.
func NewIngestService(docs DocumentStore, splitter TextSplitter, index VectorIndex) *IngestService {
	return &IngestService{
		docs:     docs,
		splitter: splitter,
		index:    index,
		newID:    uuid.NewString,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Ingest persists the document, chunks its content and upserts every chunk in
// one batch. Validation happens before any side effect. If the upsert fails
// after the document was persisted, the returned error is a
// *PartialIngestionError; nothing is retried or rolled back.
func (s *IngestService) Ingest(ctx context.Context, ownerID, title, content string) (*IngestResult, error) {
	switch {
	case strings.TrimSpace(ownerID) == "":
		return nil, fmt.Errorf("%w: owner is required", ErrInvalidInput)
	case strings.TrimSpace(title) == "":
		return nil, fmt.Errorf("%w: title is required", ErrInvalidInput)
	case strings.TrimSpace(content) == "":
		return nil, fmt.Errorf("%w: content is required", ErrInvalidInput)
	}

	doc := &store.Document{
		ID:        s.newID(),
		OwnerID:   ownerID,
		Title:     title,
		Content:   content,
		CreatedAt: s.now(),
	}
	if err := s.docs.CreateDocument(ctx, doc); err != nil {
		return nil, fmt.Errorf("failed to persist document: %w", err)
	}

	chunks, err := s.splitter.Split(content)
	if err != nil {
		return nil, s.partial(doc, fmt.Errorf("failed to chunk content: %w", err))
	}

	records := make([]VectorRecord, len(chunks))
	for i, text := range chunks {
		records[i] = VectorRecord{
			ID:   ChunkID(doc.ID, i),
			Text: text,
			Metadata: map[string]any{
				MetaOwnerID:    ownerID,
				MetaDocumentID: doc.ID,
				MetaTitle:      title,
				MetaText:       text,
			},
		}
	}

	if err := s.index.Upsert(ctx, records); err != nil {
		return nil, s.partial(doc, fmt.Errorf("%w: %w", ErrRetrievalUnavailable, err))
	}

	log.Printf("Ingested document %s (%d chunks) for owner %s.", doc.ID, len(records), ownerID)
	return &IngestResult{DocumentID: doc.ID, ChunkCount: len(records)}, nil
}

func (s *IngestService) partial(doc *store.Document, err error) error {
	log.Printf("PARTIAL INGESTION: document %s (owner %s, title %q) persisted but not indexed: %v", doc.ID, doc.OwnerID, doc.Title, err)
	return &PartialIngestionError{DocumentID: doc.ID, Err: err}
}

// ListDocuments returns the owner's documents, newest first.
func (s *IngestService) ListDocuments(ctx context.Context, ownerID string) ([]store.Document, error) {
	if strings.TrimSpace(ownerID) == "" {
		return nil, fmt.Errorf("%w: owner is required", ErrInvalidInput)
	}
	docs, err := s.docs.GetDocumentsByOwner(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list documents: %w", err)
	}
	return docs, nil
}
