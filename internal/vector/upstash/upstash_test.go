package upstash

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"modernstack.dev/ragapi/internal/core"
)

func newTestIndex(t *testing.T, handler http.HandlerFunc) *Index {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	idx, err := NewIndex(Config{URL: srv.URL, Token: "secret"})
	require.NoError(t, err)
	return idx
}

func TestNewIndex_RequiresCredentials(t *testing.T) {
	_, err := NewIndex(Config{URL: "https://example.upstash.io"})
	assert.Error(t, err)
}

func TestIndex_Upsert(t *testing.T) {
	var got []map[string]any
	idx := newTestIndex(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.True(t, strings.HasPrefix(r.URL.Path, "/upsert-data"), r.URL.Path)
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		assert.Equal(t, "no-cache", r.Header.Get("Cache-Control"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Write([]byte(`{"result":"Success"}`))
	})

	err := idx.Upsert(context.Background(), []core.VectorRecord{{
		ID:       "doc-1-0",
		Text:     "Refunds within 30 days.",
		Metadata: map[string]any{core.MetaTitle: "Policies", core.MetaOwnerID: "alice"},
	}})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "doc-1-0", got[0]["id"])
	assert.Equal(t, "Refunds within 30 days.", got[0]["data"])
	metadata, ok := got[0]["metadata"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "Policies", metadata[core.MetaTitle])
	assert.Equal(t, "alice", metadata[core.MetaOwnerID])
}

func TestIndex_Query(t *testing.T) {
	var got map[string]any
	idx := newTestIndex(t, func(w http.ResponseWriter, r *http.Request) {
		assert.True(t, strings.HasPrefix(r.URL.Path, "/query-data"), r.URL.Path)
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		assert.Equal(t, "no-cache", r.Header.Get("Cache-Control"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Write([]byte(`{"result":[
			{"id":"doc-1-0","score":0.91,"metadata":{"title":"Policies","text":"meta text"},"data":"Refunds within 30 days."},
			{"id":"doc-2-0","score":0.55,"metadata":{"text":"Only metadata text."}}
		]}`))
	})

	results, err := idx.Query(context.Background(), core.VectorQuery{
		Text: "What is the refund policy?", TopK: 3, IncludeMetadata: true, IncludeData: true, OwnerID: "o'brien",
	})
	require.NoError(t, err)

	assert.Equal(t, "What is the refund policy?", got["data"])
	assert.EqualValues(t, 3, got["topK"])
	assert.Equal(t, true, got["includeMetadata"])
	assert.Equal(t, true, got["includeData"])
	assert.Equal(t, `ownerId = 'o\'brien'`, got["filter"])

	require.Len(t, results, 2)
	assert.Equal(t, "Refunds within 30 days.", results[0].ChunkText)
	assert.Equal(t, "Policies", results[0].SourceLabel)
	assert.InDelta(t, 0.91, results[0].Score, 1e-9)
	assert.Equal(t, "Only metadata text.", results[1].ChunkText)
	assert.Equal(t, "", results[1].SourceLabel)
}

func TestIndex_Query_NoOwnerNoFilter(t *testing.T) {
	var raw map[string]any
	idx := newTestIndex(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&raw))
		w.Write([]byte(`{"result":[]}`))
	})

	results, err := idx.Query(context.Background(), core.VectorQuery{Text: "q", TopK: 3})
	require.NoError(t, err)
	assert.Empty(t, results)
	assert.Empty(t, raw["filter"])
}

func TestIndex_ErrorResponse(t *testing.T) {
	idx := newTestIndex(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"error":"Unauthorized: Invalid auth token","status":401}`))
	})

	_, err := idx.Query(context.Background(), core.VectorQuery{Text: "q", TopK: 3})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "upstash query-data failed")

	err = idx.Upsert(context.Background(), []core.VectorRecord{{ID: "x", Text: "y"}})
	assert.Error(t, err)
}

func TestIndex_CancelledContext(t *testing.T) {
	called := false
	idx := newTestIndex(t, func(w http.ResponseWriter, r *http.Request) {
		called = true
		w.Write([]byte(`{"result":[]}`))
	})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := idx.Query(ctx, core.VectorQuery{Text: "q", TopK: 3})
	assert.ErrorIs(t, err, context.Canceled)
	err = idx.Upsert(ctx, []core.VectorRecord{{ID: "x", Text: "y"}})
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, called)
}

func TestEqualsFilter(t *testing.T) {
	assert.Equal(t, `ownerId = 'alice'`, equalsFilter(core.MetaOwnerID, "alice"))
	assert.Equal(t, `ownerId = 'a\\b'`, equalsFilter(core.MetaOwnerID, `a\b`))
}
