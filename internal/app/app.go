// Package app wires configuration into the ingestion and chat pipelines.
package app

import (
	"context"
	"fmt"
	"log"

	"modernstack.dev/ragapi/internal/chunker"
	"modernstack.dev/ragapi/internal/config"
	"modernstack.dev/ragapi/internal/core"
	"modernstack.dev/ragapi/internal/store"
	"modernstack.dev/ragapi/internal/vector/local"
	"modernstack.dev/ragapi/internal/vector/postgres"
	"modernstack.dev/ragapi/internal/vector/upstash"
)

type App struct {
	Store         *store.SQLiteStore
	LLM           *core.LLMService
	Index         core.VectorIndex
	IngestService *core.IngestService
	ChatService   *core.ChatService

	closers []func()
}

func New(ctx context.Context, cfg *config.Config) (*App, error) {
	a := &App{}

	dbStore, err := store.NewSQLiteStore(cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	a.Store = dbStore
	a.closers = append(a.closers, func() { dbStore.Close() })

	llmService, err := core.NewLLMService(ctx, cfg.GeminiAPIKey, cfg.ChatModel, cfg.EmbeddingModel)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.LLM = llmService
	a.closers = append(a.closers, llmService.Close)

	index, closeIndex, err := NewVectorIndex(ctx, cfg, dbStore, llmService)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.Index = index
	if closeIndex != nil {
		a.closers = append(a.closers, closeIndex)
	}

	splitter := chunker.New(chunker.WithChunkSize(core.IngestChunkSize), chunker.WithOverlap(core.IngestChunkOverlap))
	a.IngestService = core.NewIngestService(dbStore, splitter, index)
	a.ChatService = core.NewChatService(index, llmService)

	log.Printf("Using %s vector backend.", cfg.VectorBackend)
	return a, nil
}

// NewVectorIndex builds the backend named by cfg.VectorBackend. The returned
// close function may be nil.
func NewVectorIndex(ctx context.Context, cfg *config.Config, dbStore *store.SQLiteStore, embedder core.Embedder) (core.VectorIndex, func(), error) {
	switch cfg.VectorBackend {
	case config.BackendSQLite, "":
		return local.NewIndex(dbStore, embedder), nil, nil
	case config.BackendUpstash:
		idx, err := upstash.NewIndex(upstash.Config{URL: cfg.UpstashURL, Token: cfg.UpstashToken})
		if err != nil {
			return nil, nil, err
		}
		return idx, nil, nil
	case config.BackendPGVector:
		idx, err := postgres.NewIndex(ctx, postgres.Config{URL: cfg.PostgresURL, Dimensions: cfg.EmbeddingDimensions}, embedder)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to initialize pgvector backend: %w", err)
		}
		return idx, idx.Close, nil
	default:
		return nil, nil, fmt.Errorf("unknown vector backend %q", cfg.VectorBackend)
	}
}

// Close releases resources in reverse order of creation.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}
