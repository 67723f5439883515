package core

import (
	"context"
	"fmt"
	"io"
	"log"
	"strings"
	"sync"
)

// ChatService answers the latest user turn from retrieved document chunks.
type ChatService struct {
	index VectorIndex
	model LanguageModel
}

func NewChatService(index VectorIndex, model LanguageModel) *ChatService {
	return &ChatService{
		index: index,
		model: model,
	}
}

// Respond retrieves context for the last user turn and streams a grounded
// answer. Only the last user turn reaches the model; earlier turns are
// dropped, so follow-ups that depend on them are not rewritten.
//
// Retrieval is mandatory: if the index fails, Respond returns
// ErrRetrievalUnavailable without calling the model.
func (s *ChatService) Respond(ctx context.Context, ownerID string, history []ConversationTurn) (TokenStream, error) {
	if len(history) == 0 {
		return nil, fmt.Errorf("%w: conversation is empty", ErrInvalidInput)
	}
	last := history[len(history)-1]
	if last.Role != RoleUser {
		return nil, fmt.Errorf("%w: last message must come from the user, got %q", ErrInvalidInput, last.Role)
	}
	userQuery := last.Text()
	if strings.TrimSpace(userQuery) == "" {
		return nil, fmt.Errorf("%w: message has no text", ErrInvalidInput)
	}

	results, err := s.index.Query(ctx, VectorQuery{
		Text:            userQuery,
		TopK:            NumRelevantChunks,
		IncludeMetadata: true,
		IncludeData:     true,
		OwnerID:         ownerID,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrRetrievalUnavailable, err)
	}
	if len(results) > NumRelevantChunks {
		results = results[:NumRelevantChunks]
	}
	log.Printf("Retrieved %d relevant chunks for query from owner %s.", len(results), ownerID)

	stream, err := s.model.StreamChat(ctx, ChatRequest{
		System:   BuildSystemPrompt(BuildContextBlock(results)),
		Messages: []ConversationTurn{{Role: RoleUser, Content: userQuery}},
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrGenerationFailed, err)
	}
	return &generationStream{inner: stream}, nil
}

// generationStream classifies every abnormal end of the model stream as
// ErrGenerationFailed. The terminal error is sticky.
type generationStream struct {
	inner     TokenStream
	err       error
	closeOnce sync.Once
	closeErr  error
}

func (g *generationStream) Next() (string, error) {
	if g.err != nil {
		return "", g.err
	}
	tok, err := g.inner.Next()
	if err == nil {
		return tok, nil
	}
	if err == io.EOF {
		g.err = io.EOF
	} else {
		g.err = fmt.Errorf("%w: %w", ErrGenerationFailed, err)
		g.Close()
	}
	return "", g.err
}

func (g *generationStream) Close() error {
	g.closeOnce.Do(func() {
		g.closeErr = g.inner.Close()
	})
	return g.closeErr
}
