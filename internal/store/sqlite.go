package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"time"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

type SQLiteStore struct {
	db *sql.DB
}

func NewSQLiteStore(dataSourceName string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dataSourceName)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err = db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	store := &SQLiteStore{db: db}
	if err = store.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return store, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) initSchema() error {
	schema := `
    CREATE TABLE IF NOT EXISTS documents (
        id TEXT PRIMARY KEY, -- UUID
        user_id TEXT NOT NULL,
        title TEXT NOT NULL,
        content TEXT,
        created_at DATETIME NOT NULL
    );

    CREATE INDEX IF NOT EXISTS idx_documents_user_id ON documents (user_id);

    CREATE TABLE IF NOT EXISTS data_chunks (
        id TEXT PRIMARY KEY, -- <document id>-<sequence index>
        document_id TEXT NOT NULL,
        owner_id TEXT NOT NULL,
        sequence_index INTEGER NOT NULL,
        title TEXT NOT NULL,
        content TEXT NOT NULL,
        embedding_json TEXT -- Storing as JSON string of []float32
    );

    CREATE INDEX IF NOT EXISTS idx_data_chunks_owner_id ON data_chunks (owner_id);
    `
	_, err := s.db.Exec(schema)
	return err
}

// Document methods
func (s *SQLiteStore) CreateDocument(ctx context.Context, doc *Document) error {
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = time.Now().UTC()
	}

	stmt, err := s.db.PrepareContext(ctx, "INSERT INTO documents (id, user_id, title, content, created_at) VALUES (?, ?, ?, ?, ?)")
	if err != nil {
		return fmt.Errorf("failed to prepare document insert: %w", err)
	}
	defer stmt.Close()

	var content sql.NullString
	if doc.Content != "" {
		content = sql.NullString{String: doc.Content, Valid: true}
	}

	_, err = stmt.ExecContext(ctx, doc.ID, doc.OwnerID, doc.Title, content, doc.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to execute document insert: %w", err)
	}
	return nil
}

func (s *SQLiteStore) GetDocumentsByOwner(ctx context.Context, ownerID string) ([]Document, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT id, user_id, title, content, created_at FROM documents WHERE user_id = ? ORDER BY created_at DESC", ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to query documents: %w", err)
	}
	defer rows.Close()

	docs := []Document{}
	for rows.Next() {
		var doc Document
		var content sql.NullString
		if err := rows.Scan(&doc.ID, &doc.OwnerID, &doc.Title, &content, &doc.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan document row: %w", err)
		}
		if content.Valid {
			doc.Content = content.String
		}
		docs = append(docs, doc)
	}
	return docs, rows.Err()
}

// DataChunk methods (for the local vector index)
func (s *SQLiteStore) UpsertDataChunks(ctx context.Context, chunks []DataChunk) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin data_chunk transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `INSERT OR REPLACE INTO data_chunks
        (id, document_id, owner_id, sequence_index, title, content, embedding_json)
        VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare data_chunk upsert: %w", err)
	}
	defer stmt.Close()

	for i := range chunks {
		chunk := &chunks[i]
		embeddingBytes, err := json.Marshal(chunk.Embedding)
		if err != nil {
			return fmt.Errorf("failed to marshal embedding for chunk %s: %w", chunk.ID, err)
		}
		chunk.EmbeddingJSON = string(embeddingBytes)

		_, err = stmt.ExecContext(ctx, chunk.ID, chunk.DocumentID, chunk.OwnerID, chunk.SequenceIndex, chunk.Title, chunk.Content, chunk.EmbeddingJSON)
		if err != nil {
			return fmt.Errorf("failed to execute data_chunk upsert for %s: %w", chunk.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit data_chunks: %w", err)
	}
	return nil
}

// GetDataChunks loads chunks with their embeddings. An empty ownerID loads
// every chunk.
func (s *SQLiteStore) GetDataChunks(ctx context.Context, ownerID string) ([]DataChunk, error) {
	query := "SELECT id, document_id, owner_id, sequence_index, title, content, embedding_json FROM data_chunks"
	var args []any
	if ownerID != "" {
		query += " WHERE owner_id = ?"
		args = append(args, ownerID)
	}
	query += " ORDER BY document_id, sequence_index"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query data_chunks: %w", err)
	}
	defer rows.Close()

	var chunks []DataChunk
	for rows.Next() {
		var chunk DataChunk
		var embeddingJSON sql.NullString // Read as string from DB
		if err := rows.Scan(&chunk.ID, &chunk.DocumentID, &chunk.OwnerID, &chunk.SequenceIndex, &chunk.Title, &chunk.Content, &embeddingJSON); err != nil {
			return nil, fmt.Errorf("failed to scan data_chunk row: %w", err)
		}
		if embeddingJSON.Valid && embeddingJSON.String != "" {
			if err := json.Unmarshal([]byte(embeddingJSON.String), &chunk.Embedding); err != nil {
				log.Printf("Warning: failed to unmarshal embedding for chunk %s (content: %.50s...): %v. Embedding will be empty.", chunk.ID, chunk.Content, err)
				chunk.Embedding = nil
			}
			chunk.EmbeddingJSON = embeddingJSON.String
		} else {
			log.Printf("Warning: empty embedding_json for chunk ID %s. Embedding will be empty.", chunk.ID)
		}
		chunks = append(chunks, chunk)
	}
	return chunks, rows.Err()
}
