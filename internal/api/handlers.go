package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"modernstack.dev/ragapi/internal/auth"
	"modernstack.dev/ragapi/internal/config"
	"modernstack.dev/ragapi/internal/core"
	"modernstack.dev/ragapi/internal/store"
)

const maxRequestBodyBytes = 5 << 20

type contextKey string

const principalKey contextKey = "principalID"

// PrincipalFromContext returns the authenticated principal id.
func PrincipalFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(principalKey).(string)
	return id, ok && id != ""
}

func WithPrincipal(ctx context.Context, principalID string) context.Context {
	return context.WithValue(ctx, principalKey, principalID)
}

type Ingester interface {
	Ingest(ctx context.Context, ownerID, title, content string) (*core.IngestResult, error)
	ListDocuments(ctx context.Context, ownerID string) ([]store.Document, error)
}

type Responder interface {
	Respond(ctx context.Context, ownerID string, history []core.ConversationTurn) (core.TokenStream, error)
}

type APIHandler struct {
	ingestService Ingester
	chatService   Responder
}

func NewAPIHandler(ingest Ingester, chat Responder) *APIHandler {
	return &APIHandler{ingestService: ingest, chatService: chat}
}

// JWTAuthMiddleware accepts a bearer token or the "token" cookie.
func (h *APIHandler) JWTAuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tokenString := bearerToken(r)
		if tokenString == "" {
			writeError(w, http.StatusUnauthorized, "Authorization is required")
			return
		}

		principalID, err := auth.ValidateJWT(tokenString)
		if err != nil {
			config.Debugf("Rejected token: %v", err)
			writeError(w, http.StatusUnauthorized, "Invalid token")
			return
		}

		next.ServeHTTP(w, r.WithContext(WithPrincipal(r.Context(), principalID)))
	})
}

func bearerToken(r *http.Request) string {
	if authHeader := r.Header.Get("Authorization"); authHeader != "" {
		if token, ok := strings.CutPrefix(authHeader, "Bearer "); ok {
			return strings.TrimSpace(token)
		}
		return ""
	}
	if c, err := r.Cookie("token"); err == nil {
		return c.Value
	}
	return ""
}

func (h *APIHandler) HealthHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type CreateDocumentRequest struct {
	Title   string `json:"title"`
	Content string `json:"content"`
}

type CreateDocumentResponse struct {
	Success bool   `json:"success"`
	ID      string `json:"id"`
	Chunks  int    `json:"chunks"`
}

func (h *APIHandler) CreateDocumentHandler(w http.ResponseWriter, r *http.Request) {
	principalID, _ := PrincipalFromContext(r.Context())

	var req CreateDocumentRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBodyBytes)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}

	res, err := h.ingestService.Ingest(r.Context(), principalID, req.Title, req.Content)
	if err != nil {
		var partial *core.PartialIngestionError
		switch {
		case errors.Is(err, core.ErrInvalidInput):
			writeError(w, http.StatusBadRequest, "Title and content are required")
		case errors.As(err, &partial):
			writeJSON(w, http.StatusInternalServerError, map[string]any{
				"error": "Document saved but could not be indexed",
				"id":    partial.DocumentID,
			})
		default:
			log.Printf("Error ingesting document for %s: %v", principalID, err)
			writeError(w, http.StatusInternalServerError, "Failed to ingest document")
		}
		return
	}

	writeJSON(w, http.StatusOK, CreateDocumentResponse{Success: true, ID: res.DocumentID, Chunks: res.ChunkCount})
}

type DocumentSummary struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"createdAt"`
}

func (h *APIHandler) ListDocumentsHandler(w http.ResponseWriter, r *http.Request) {
	principalID, _ := PrincipalFromContext(r.Context())

	docs, err := h.ingestService.ListDocuments(r.Context(), principalID)
	if err != nil {
		log.Printf("Error listing documents for %s: %v", principalID, err)
		writeError(w, http.StatusInternalServerError, "Failed to list documents")
		return
	}

	out := make([]DocumentSummary, len(docs))
	for i, d := range docs {
		out[i] = DocumentSummary{ID: d.ID, Title: d.Title, CreatedAt: d.CreatedAt}
	}
	writeJSON(w, http.StatusOK, out)
}

type ChatRequest struct {
	Messages []core.ConversationTurn `json:"messages"`
}

// ChatHandler streams the grounded answer as a UI message stream. Errors
// raised before the first byte are plain JSON errors; a failure after that
// ends the stream with an error event and no finish event.
func (h *APIHandler) ChatHandler(w http.ResponseWriter, r *http.Request) {
	principalID, _ := PrincipalFromContext(r.Context())

	var req ChatRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBodyBytes)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}

	stream, err := h.chatService.Respond(r.Context(), principalID, req.Messages)
	if err != nil {
		switch {
		case errors.Is(err, core.ErrInvalidInput):
			writeError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, core.ErrRetrievalUnavailable):
			log.Printf("Retrieval unavailable for %s: %v", principalID, err)
			writeError(w, http.StatusServiceUnavailable, "Knowledge base is temporarily unavailable")
		case errors.Is(err, core.ErrGenerationFailed):
			log.Printf("Model refused chat request for %s: %v", principalID, err)
			writeError(w, http.StatusBadGateway, "Failed to generate a response")
		default:
			log.Printf("Error handling chat for %s: %v", principalID, err)
			writeError(w, http.StatusInternalServerError, "Failed to process chat")
		}
		return
	}
	defer stream.Close()

	sw := newSSEWriter(w)
	textID := uuid.NewString()
	if err := sw.send(uiStreamPart{Type: "start", MessageID: uuid.NewString()}); err != nil {
		return
	}
	if err := sw.send(uiStreamPart{Type: "text-start", ID: textID}); err != nil {
		return
	}

	tokens := 0
	for {
		tok, err := stream.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			if r.Context().Err() != nil {
				config.Debugf("Client went away after %d tokens: %v", tokens, err)
				return
			}
			log.Printf("Chat stream for %s aborted after %d tokens: %v", principalID, tokens, err)
			sw.send(uiStreamPart{Type: "error", ErrorText: "The response was interrupted. Please try again."})
			return
		}
		if err := sw.send(uiStreamPart{Type: "text-delta", ID: textID, Delta: tok}); err != nil {
			config.Debugf("Failed to write token to client: %v", err)
			return
		}
		tokens++
	}

	sw.send(uiStreamPart{Type: "text-end", ID: textID})
	sw.send(uiStreamPart{Type: "finish"})
	sw.done()
	config.Debugf("Chat stream for %s completed with %d tokens", principalID, tokens)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("Error encoding response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
