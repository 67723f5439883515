package core

import (
	"errors"
	"fmt"
)

// Pipeline errors. Handlers classify failures with errors.Is.
var (
	// ErrInvalidInput indicates a missing or empty title, content, or query.
	ErrInvalidInput = errors.New("invalid input")

	// ErrRetrievalUnavailable indicates the vector index could not be reached
	// or rejected the request. Callers may retry after backoff.
	ErrRetrievalUnavailable = errors.New("retrieval unavailable")

	// ErrGenerationFailed indicates the language model call errored or the
	// token stream was aborted before completion.
	ErrGenerationFailed = errors.New("generation failed")

	// ErrPartialIngestion indicates the document metadata was persisted but its
	// chunks never reached the vector index.
	ErrPartialIngestion = errors.New("partial ingestion")
)

// PartialIngestionError reports a document that is stored but unsearchable.
type PartialIngestionError struct {
	DocumentID string
	Err        error
}

func (e *PartialIngestionError) Error() string {
	return fmt.Sprintf("document %s persisted but not indexed: %v", e.DocumentID, e.Err)
}

func (e *PartialIngestionError) Unwrap() error { return e.Err }

// Is matches ErrPartialIngestion.
func (e *PartialIngestionError) Is(target error) bool {
	return target == ErrPartialIngestion
}
