// Package local ranks chunk embeddings stored in the SQLite metadata database
// by brute-force cosine similarity.
package local

import (
	"context"
	"fmt"
	"log"
	"sort"

	"modernstack.dev/ragapi/internal/core"
	"modernstack.dev/ragapi/internal/store"
	"modernstack.dev/ragapi/internal/utils"
)

// SimilarityThreshold is the minimum similarity score for a chunk to be
// considered relevant.
const SimilarityThreshold = 0.7

type chunkStore interface {
	UpsertDataChunks(ctx context.Context, chunks []store.DataChunk) error
	GetDataChunks(ctx context.Context, ownerID string) ([]store.DataChunk, error)
}

type Index struct {
	chunks    chunkStore
	embedder  core.Embedder
	threshold float64
}

func NewIndex(chunks chunkStore, embedder core.Embedder) *Index {
	return &Index{
		chunks:    chunks,
		embedder:  embedder,
		threshold: SimilarityThreshold,
	}
}

func (i *Index) Upsert(ctx context.Context, records []core.VectorRecord) error {
	if len(records) == 0 {
		return nil
	}

	texts := make([]string, len(records))
	for n, r := range records {
		texts[n] = r.Text
	}
	embeddings, err := i.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return fmt.Errorf("failed to embed %d chunks: %w", len(records), err)
	}

	chunks := make([]store.DataChunk, len(records))
	for n, r := range records {
		chunks[n] = store.DataChunk{
			ID:            r.ID,
			DocumentID:    metaString(r.Metadata, core.MetaDocumentID),
			OwnerID:       metaString(r.Metadata, core.MetaOwnerID),
			SequenceIndex: core.ChunkSequence(r.ID, n),
			Title:         metaString(r.Metadata, core.MetaTitle),
			Content:       r.Text,
			Embedding:     embeddings[n],
		}
	}
	return i.chunks.UpsertDataChunks(ctx, chunks)
}

type scoredChunk struct {
	chunk      store.DataChunk
	similarity float64
}

func (i *Index) Query(ctx context.Context, q core.VectorQuery) ([]core.RetrievalResult, error) {
	if q.TopK <= 0 {
		return []core.RetrievalResult{}, nil
	}

	chunks, err := i.chunks.GetDataChunks(ctx, q.OwnerID)
	if err != nil {
		return nil, err
	}
	if len(chunks) == 0 {
		log.Println("No data chunks available for context retrieval.")
		return []core.RetrievalResult{}, nil
	}

	queryEmbedding, err := i.embedder.Embed(ctx, q.Text)
	if err != nil {
		return nil, fmt.Errorf("failed to get query embedding: %w", err)
	}

	scored := make([]scoredChunk, 0, len(chunks))
	for _, chunk := range chunks {
		if len(chunk.Embedding) == 0 {
			log.Printf("Skipping chunk %s due to missing embedding.", chunk.ID)
			continue
		}
		similarity, err := utils.CosineSimilarity(queryEmbedding, chunk.Embedding)
		if err != nil {
			log.Printf("Error calculating similarity for chunk %s: %v. Skipping.", chunk.ID, err)
			continue
		}
		if similarity >= i.threshold {
			scored = append(scored, scoredChunk{chunk: chunk, similarity: similarity})
		}
	}

	sort.SliceStable(scored, func(a, b int) bool {
		return scored[a].similarity > scored[b].similarity
	})
	if len(scored) > q.TopK {
		scored = scored[:q.TopK]
	}

	results := make([]core.RetrievalResult, 0, len(scored))
	for _, s := range scored {
		var metadata map[string]any
		if q.IncludeMetadata {
			metadata = map[string]any{
				core.MetaOwnerID:    s.chunk.OwnerID,
				core.MetaDocumentID: s.chunk.DocumentID,
				core.MetaTitle:      s.chunk.Title,
				core.MetaText:       s.chunk.Content,
			}
		}
		var data string
		if q.IncludeData {
			data = s.chunk.Content
		}
		results = append(results, core.NewRetrievalResult(s.chunk.ID, s.similarity, metadata, data))
	}

	if len(results) == 0 {
		log.Printf("No relevant chunks found for query (similarity threshold: %.2f).", i.threshold)
	}
	return results, nil
}

func metaString(m map[string]any, key string) string {
	if v, ok := m[key].(string); ok {
		return v
	}
	return ""
}
