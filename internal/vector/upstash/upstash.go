// Package upstash adapts the Upstash Vector SDK to core.VectorIndex.
// Embedding happens server side: records and queries are sent as raw text.
package upstash

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/upstash/vector-go"

	"modernstack.dev/ragapi/internal/core"
)

type Config struct {
	URL     string
	Token   string
	Timeout time.Duration
}

type Index struct {
	index *vector.Index
}

func NewIndex(cfg Config) (*Index, error) {
	if cfg.URL == "" || cfg.Token == "" {
		return nil, errors.New("upstash vector url and token are required")
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 15 * time.Second
	}
	client := &http.Client{
		Timeout:   timeout,
		Transport: noCacheTransport{base: http.DefaultTransport},
	}
	return &Index{
		index: vector.NewIndexWith(vector.Options{
			Url:    strings.TrimRight(cfg.URL, "/"),
			Token:  cfg.Token,
			Client: client,
		}),
	}, nil
}

// noCacheTransport keeps every request off intermediate caches so freshly
// ingested records are visible to the next query.
type noCacheTransport struct {
	base http.RoundTripper
}

func (t noCacheTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req = req.Clone(req.Context())
	req.Header.Set("Cache-Control", "no-cache")
	return t.base.RoundTrip(req)
}

// The SDK calls take no context, so cancellation is only honoured before
// each request is sent.
func (x *Index) Upsert(ctx context.Context, records []core.VectorRecord) error {
	if len(records) == 0 {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	items := make([]vector.UpsertData, len(records))
	for i, r := range records {
		items[i] = vector.UpsertData{Id: r.ID, Data: r.Text, Metadata: r.Metadata}
	}
	if err := x.index.UpsertDataMany(items); err != nil {
		return fmt.Errorf("upstash upsert-data failed: %w", err)
	}
	return nil
}

func (x *Index) Query(ctx context.Context, q core.VectorQuery) ([]core.RetrievalResult, error) {
	if q.TopK <= 0 {
		return []core.RetrievalResult{}, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	req := vector.QueryData{
		Data:            q.Text,
		TopK:            q.TopK,
		IncludeMetadata: q.IncludeMetadata,
		IncludeData:     q.IncludeData,
	}
	if q.OwnerID != "" {
		req.Filter = equalsFilter(core.MetaOwnerID, q.OwnerID)
	}

	scores, err := x.index.QueryData(req)
	if err != nil {
		return nil, fmt.Errorf("upstash query-data failed: %w", err)
	}

	results := make([]core.RetrievalResult, 0, len(scores))
	for _, s := range scores {
		results = append(results, core.NewRetrievalResult(s.Id, float64(s.Score), s.Metadata, s.Data))
	}
	if len(results) > q.TopK {
		results = results[:q.TopK]
	}
	return results, nil
}

// equalsFilter renders an Upstash metadata filter expression.
func equalsFilter(field, value string) string {
	escaped := strings.ReplaceAll(value, `\`, `\\`)
	escaped = strings.ReplaceAll(escaped, `'`, `\'`)
	return fmt.Sprintf("%s = '%s'", field, escaped)
}
