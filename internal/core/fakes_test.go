package core

import (
	"context"
	"errors"
	"io"
	"sync"

	"modernstack.dev/ragapi/internal/store"
)

type fakeIndex struct {
	mu        sync.Mutex
	results   []RetrievalResult
	queryErr  error
	upsertErr error

	queries  []VectorQuery
	upserted [][]VectorRecord
}

func (f *fakeIndex) Upsert(_ context.Context, records []VectorRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.upserted = append(f.upserted, records)
	return f.upsertErr
}

func (f *fakeIndex) Query(_ context.Context, q VectorQuery) ([]RetrievalResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queries = append(f.queries, q)
	if f.queryErr != nil {
		return nil, f.queryErr
	}
	return f.results, nil
}

type fakeModel struct {
	stream  TokenStream
	err     error
	calls   int
	request ChatRequest
}

func (f *fakeModel) StreamChat(_ context.Context, req ChatRequest) (TokenStream, error) {
	f.calls++
	f.request = req
	if f.err != nil {
		return nil, f.err
	}
	return f.stream, nil
}

// sliceStream yields tokens in order, then failErr if set, else io.EOF.
type sliceStream struct {
	tokens  []string
	failErr error
	delay   func(i int)
	pos     int
	closed  int
}

func (s *sliceStream) Next() (string, error) {
	if s.pos < len(s.tokens) {
		if s.delay != nil {
			s.delay(s.pos)
		}
		tok := s.tokens[s.pos]
		s.pos++
		return tok, nil
	}
	if s.failErr != nil {
		return "", s.failErr
	}
	return "", io.EOF
}

func (s *sliceStream) Close() error {
	s.closed++
	return nil
}

type fakeDocs struct {
	created   []store.Document
	createErr error
}

func (f *fakeDocs) CreateDocument(_ context.Context, doc *store.Document) error {
	if f.createErr != nil {
		return f.createErr
	}
	f.created = append(f.created, *doc)
	return nil
}

func (f *fakeDocs) GetDocumentsByOwner(_ context.Context, ownerID string) ([]store.Document, error) {
	var out []store.Document
	for i := len(f.created) - 1; i >= 0; i-- {
		if f.created[i].OwnerID == ownerID {
			out = append(out, f.created[i])
		}
	}
	return out, nil
}

type failingSplitter struct{}

func (failingSplitter) Split(string) ([]string, error) {
	return nil, errors.New("splitter broken")
}

// drain collects every token until the stream ends.
func drain(s TokenStream) ([]string, error) {
	var out []string
	for {
		tok, err := s.Next()
		if err == io.EOF {
			return out, nil
		}
		if err != nil {
			return out, err
		}
		out = append(out, tok)
	}
}
