// Package postgres stores chunk embeddings in Postgres with the pgvector
// extension and ranks them by cosine distance.
package postgres

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"
	"modernstack.dev/ragapi/internal/core"
)

// DefaultDimensions matches the Gemini text-embedding-004 output size.
const DefaultDimensions = 768

type Config struct {
	URL        string
	Dimensions int
}

type Index struct {
	pool     *pgxpool.Pool
	embedder core.Embedder
}

// NewIndex connects, pings and makes sure the schema exists.
func NewIndex(ctx context.Context, cfg Config, embedder core.Embedder) (*Index, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse connection string: %w", err)
	}

	poolConfig.MaxConns = 10
	poolConfig.MaxConnLifetime = time.Hour
	poolConfig.MaxConnIdleTime = time.Minute * 30

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	dims := cfg.Dimensions
	if dims <= 0 {
		dims = DefaultDimensions
	}
	if _, err := pool.Exec(ctx, schema(dims)); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &Index{pool: pool, embedder: embedder}, nil
}

func schema(dims int) string {
	return strings.ReplaceAll(`
	CREATE EXTENSION IF NOT EXISTS vector;

	CREATE TABLE IF NOT EXISTS document_chunks (
		id TEXT PRIMARY KEY,
		document_id TEXT NOT NULL,
		owner_id TEXT NOT NULL,
		chunk_index INTEGER NOT NULL,
		title TEXT NOT NULL,
		content TEXT NOT NULL,
		embedding vector({dims}),
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);

	CREATE INDEX IF NOT EXISTS idx_document_chunks_owner_id ON document_chunks (owner_id);
	`, "{dims}", strconv.Itoa(dims))
}

func (x *Index) Close() {
	x.pool.Close()
}

const upsertChunkSQL = `INSERT INTO document_chunks (id, document_id, owner_id, chunk_index, title, content, embedding)
	VALUES ($1, $2, $3, $4, $5, $6, $7)
	ON CONFLICT (id) DO UPDATE SET
		document_id = EXCLUDED.document_id,
		owner_id = EXCLUDED.owner_id,
		chunk_index = EXCLUDED.chunk_index,
		title = EXCLUDED.title,
		content = EXCLUDED.content,
		embedding = EXCLUDED.embedding`

// Upsert embeds every record and writes them in one batch.
func (x *Index) Upsert(ctx context.Context, records []core.VectorRecord) error {
	if len(records) == 0 {
		return nil
	}

	texts := make([]string, len(records))
	for i, r := range records {
		texts[i] = r.Text
	}
	embeddings, err := x.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return fmt.Errorf("failed to embed %d chunks: %w", len(records), err)
	}

	batch := &pgx.Batch{}
	for i, r := range records {
		batch.Queue(upsertChunkSQL,
			r.ID,
			metaString(r.Metadata, core.MetaDocumentID),
			metaString(r.Metadata, core.MetaOwnerID),
			core.ChunkSequence(r.ID, i),
			metaString(r.Metadata, core.MetaTitle),
			r.Text,
			pgvector.NewVector(embeddings[i]),
		)
	}
	br := x.pool.SendBatch(ctx, batch)
	defer br.Close()

	for i := 0; i < len(records); i++ {
		if _, err := br.Exec(); err != nil {
			return fmt.Errorf("failed to upsert chunk %s: %w", records[i].ID, err)
		}
	}
	return nil
}

func (x *Index) Query(ctx context.Context, q core.VectorQuery) ([]core.RetrievalResult, error) {
	if q.TopK <= 0 {
		return []core.RetrievalResult{}, nil
	}

	queryEmbedding, err := x.embedder.Embed(ctx, q.Text)
	if err != nil {
		return nil, fmt.Errorf("failed to get query embedding: %w", err)
	}
	vec := pgvector.NewVector(queryEmbedding)

	rows, err := x.pool.Query(ctx,
		`SELECT id, document_id, owner_id, title, content, 1 - (embedding <=> $1) AS score
		 FROM document_chunks
		 WHERE embedding IS NOT NULL AND ($2 = '' OR owner_id = $2)
		 ORDER BY embedding <=> $1
		 LIMIT $3`,
		vec, q.OwnerID, q.TopK,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to search chunks: %w", err)
	}
	defer rows.Close()

	results := []core.RetrievalResult{}
	for rows.Next() {
		var id, documentID, ownerID, title, content string
		var score float64
		if err := rows.Scan(&id, &documentID, &ownerID, &title, &content, &score); err != nil {
			return nil, fmt.Errorf("failed to scan chunk: %w", err)
		}

		var metadata map[string]any
		if q.IncludeMetadata {
			metadata = map[string]any{
				core.MetaOwnerID:    ownerID,
				core.MetaDocumentID: documentID,
				core.MetaTitle:      title,
				core.MetaText:       content,
			}
		}
		var data string
		if q.IncludeData {
			data = content
		}
		results = append(results, core.NewRetrievalResult(id, score, metadata, data))
	}
	return results, rows.Err()
}

func metaString(m map[string]any, key string) string {
	if v, ok := m[key].(string); ok {
		return v
	}
	return ""
}
