package app

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"modernstack.dev/ragapi/internal/config"
	"modernstack.dev/ragapi/internal/store"
	"modernstack.dev/ragapi/internal/vector/local"
	"modernstack.dev/ragapi/internal/vector/upstash"
)

type nopEmbedder struct{}

func (nopEmbedder) Embed(context.Context, string) ([]float32, error) { return []float32{1}, nil }

func (nopEmbedder) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	return make([][]float32, len(texts)), nil
}

func TestNewVectorIndex(t *testing.T) {
	db, err := store.NewSQLiteStore(filepath.Join(t.TempDir(), "app.db"))
	require.NoError(t, err)
	defer db.Close()
	ctx := context.Background()

	cfg := config.Default()
	idx, closeFn, err := NewVectorIndex(ctx, cfg, db, nopEmbedder{})
	require.NoError(t, err)
	assert.IsType(t, &local.Index{}, idx)
	assert.Nil(t, closeFn)

	cfg.VectorBackend = config.BackendUpstash
	cfg.UpstashURL = "https://example.upstash.io"
	cfg.UpstashToken = "token"
	idx, _, err = NewVectorIndex(ctx, cfg, db, nopEmbedder{})
	require.NoError(t, err)
	assert.IsType(t, &upstash.Index{}, idx)

	cfg.UpstashToken = ""
	_, _, err = NewVectorIndex(ctx, cfg, db, nopEmbedder{})
	assert.Error(t, err)

	cfg.VectorBackend = "redis"
	_, _, err = NewVectorIndex(ctx, cfg, db, nopEmbedder{})
	assert.ErrorContains(t, err, "unknown vector backend")
}
