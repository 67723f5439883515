package core

import (
	"strconv"
	"strings"
)

// Conversation roles.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleSystem    = "system"
)

// Metadata keys stored with every chunk record.
const (
	MetaOwnerID    = "ownerId"
	MetaDocumentID = "documentId"
	MetaTitle      = "title"
	MetaText       = "text"
)

// MessagePart is one typed piece of a conversation turn. Only "text" parts
// carry meaning for retrieval.
type MessagePart struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
}

// ConversationTurn is one message of a chat exchange as supplied by the caller.
type ConversationTurn struct {
	Role    string        `json:"role"`
	Content string        `json:"content,omitempty"`
	Parts   []MessagePart `json:"parts,omitempty"`
}

// Text concatenates the text parts of the turn in order, falling back to
// Content when the turn has no parts.
func (t ConversationTurn) Text() string {
	if len(t.Parts) == 0 {
		return t.Content
	}
	var b strings.Builder
	for _, p := range t.Parts {
		if p.Type == "text" {
			b.WriteString(p.Text)
		}
	}
	return b.String()
}

// VectorRecord is a chunk as written to the vector index.
type VectorRecord struct {
	ID       string
	Text     string
	Metadata map[string]any
}

// VectorQuery describes a nearest-neighbour lookup by text.
type VectorQuery struct {
	Text            string
	TopK            int
	IncludeMetadata bool
	IncludeData     bool
	// OwnerID restricts matches to chunks tagged with this owner when set.
	OwnerID string
}

// RetrievalResult is a ranked match returned by the vector index.
type RetrievalResult struct {
	ID          string
	ChunkText   string
	SourceLabel string
	Score       float64
	Metadata    map[string]any
}

// NewRetrievalResult builds a result from a backend hit, taking the chunk
// text from data when present and from metadata otherwise.
func NewRetrievalResult(id string, score float64, metadata map[string]any, data string) RetrievalResult {
	res := RetrievalResult{
		ID:        id,
		ChunkText: data,
		Score:     score,
		Metadata:  metadata,
	}
	if res.ChunkText == "" {
		res.ChunkText = metaString(metadata, MetaText)
	}
	res.SourceLabel = metaString(metadata, MetaTitle)
	return res
}

// ChunkID names the i-th chunk of a document.
func ChunkID(documentID string, i int) string {
	return documentID + "-" + strconv.Itoa(i)
}

// ChunkSequence reads the sequence index back from a ChunkID, returning
// fallback when id carries none.
func ChunkSequence(id string, fallback int) int {
	if i := strings.LastIndexByte(id, '-'); i >= 0 {
		if n, err := strconv.Atoi(id[i+1:]); err == nil && n >= 0 {
			return n
		}
	}
	return fallback
}

func metaString(m map[string]any, key string) string {
	if v, ok := m[key].(string); ok {
		return v
	}
	return ""
}

// ChatRequest is what the language model receives.
type ChatRequest struct {
	System   string
	Messages []ConversationTurn
}

// IngestResult is returned by a successful ingestion.
type IngestResult struct {
	DocumentID string `json:"id"`
	ChunkCount int    `json:"chunks"`
}
