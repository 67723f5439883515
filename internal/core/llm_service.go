package core

import (
	"context"
	"fmt"
	"io"
	"log"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"golang.org/x/sync/errgroup"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
)

const (
	DefaultChatModelName      = "gemini-1.5-flash-latest"
	DefaultEmbeddingModelName = "text-embedding-004"

	maxEmbeddingBatchSize = 100 // Gemini rejects larger batch embedding requests
	embeddingConcurrency  = 4
)

// LLMService is the Gemini adapter for LanguageModel and Embedder.
type LLMService struct {
	client         *genai.Client
	chatModel      string
	embeddingModel string
}

func NewLLMService(ctx context.Context, apiKey, chatModel, embeddingModel string) (*LLMService, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini api key is empty")
	}
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create GenAI client: %w", err)
	}
	if chatModel == "" {
		chatModel = DefaultChatModelName
	}
	if embeddingModel == "" {
		embeddingModel = DefaultEmbeddingModelName
	}

	return &LLMService{
		client:         client,
		chatModel:      chatModel,
		embeddingModel: embeddingModel,
	}, nil
}

func (s *LLMService) Close() {
	if s.client != nil {
		if err := s.client.Close(); err != nil {
			log.Printf("Error closing GenAI client: %v", err)
		} else {
			log.Println("GenAI client closed.")
		}
	}
}

func (s *LLMService) Embed(ctx context.Context, text string) ([]float32, error) {
	em := s.client.EmbeddingModel(s.embeddingModel)
	res, err := em.EmbedContent(ctx, genai.Text(text))
	if err != nil {
		return nil, fmt.Errorf("gemini embedding request failed: %w", err)
	}

	if res.Embedding == nil || len(res.Embedding.Values) == 0 {
		return nil, fmt.Errorf("no embedding data received from gemini")
	}
	return res.Embedding.Values, nil
}

// EmbedBatch embeds texts in requests of at most 100 items, a few in flight
// at once. The result is index-aligned with texts.
func (s *LLMService) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	em := s.client.EmbeddingModel(s.embeddingModel)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(embeddingConcurrency)
	for start := 0; start < len(texts); start += maxEmbeddingBatchSize {
		end := min(start+maxEmbeddingBatchSize, len(texts))
		g.Go(func() error {
			batch := em.NewBatch()
			for _, t := range texts[start:end] {
				batch.AddContent(genai.Text(t))
			}
			res, err := em.BatchEmbedContents(gctx, batch)
			if err != nil {
				return fmt.Errorf("gemini batch embedding request failed: %w", err)
			}
			if len(res.Embeddings) != end-start {
				return fmt.Errorf("gemini returned %d embeddings for %d texts", len(res.Embeddings), end-start)
			}
			for i, e := range res.Embeddings {
				if e == nil || len(e.Values) == 0 {
					return fmt.Errorf("no embedding data received from gemini for text %d", start+i)
				}
				out[start+i] = e.Values
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// StreamChat starts a streamed completion. All but the last message become
// chat history; the last one, which must come from the user, is sent.
func (s *LLMService) StreamChat(ctx context.Context, req ChatRequest) (TokenStream, error) {
	if len(req.Messages) == 0 {
		return nil, fmt.Errorf("prompt history is empty for chat completion")
	}
	last := req.Messages[len(req.Messages)-1]
	if last.Role != RoleUser {
		return nil, fmt.Errorf("last message in history is not from 'user', cannot proceed with chat completion")
	}

	model := s.client.GenerativeModel(s.chatModel)
	if req.System != "" {
		model.SystemInstruction = &genai.Content{
			Parts: []genai.Part{genai.Text(req.System)},
		}
	}

	chatSession := model.StartChat()
	chatSession.History = toGeminiHistory(req.Messages[:len(req.Messages)-1])

	streamCtx, cancel := context.WithCancel(ctx)
	iter := chatSession.SendMessageStream(streamCtx, genai.Text(last.Text()))
	return &geminiStream{next: iter.Next, cancel: cancel}, nil
}

func toGeminiHistory(turns []ConversationTurn) []*genai.Content {
	history := make([]*genai.Content, 0, len(turns))
	for _, t := range turns {
		role := geminiRole(t.Role)
		if role == "" {
			continue
		}
		history = append(history, &genai.Content{
			Role:  role,
			Parts: []genai.Part{genai.Text(t.Text())},
		})
	}
	return history
}

// geminiRole maps a conversation role to Gemini's; system turns have no
// Gemini equivalent and map to "".
func geminiRole(role string) string {
	switch role {
	case RoleUser:
		return "user"
	case RoleAssistant:
		return "model"
	default:
		return ""
	}
}

type geminiStream struct {
	next   func() (*genai.GenerateContentResponse, error)
	cancel context.CancelFunc
}

func (g *geminiStream) Next() (string, error) {
	for {
		resp, err := g.next()
		if err == iterator.Done {
			return "", io.EOF
		}
		if err != nil {
			return "", fmt.Errorf("gemini chat stream failed: %w", err)
		}
		if text := responseText(resp); text != "" {
			return text, nil
		}
	}
}

func (g *geminiStream) Close() error {
	g.cancel()
	return nil
}

// responseText joins the text parts of the first candidate. Non-text parts
// are skipped.
func responseText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ""
	}
	var b strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if txt, ok := part.(genai.Text); ok {
			b.WriteString(string(txt))
		} else {
			log.Printf("Gemini response part was not text: %T", part)
		}
	}
	return b.String()
}
