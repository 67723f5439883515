package core

import (
	"errors"
	"io"
	"testing"

	"github.com/google/generative-ai-go/genai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/iterator"
)

func textResponse(parts ...genai.Part) *genai.GenerateContentResponse {
	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{Content: &genai.Content{Role: "model", Parts: parts}}},
	}
}

// responses replays canned stream responses, then ends with last.
func responses(last error, resps ...*genai.GenerateContentResponse) func() (*genai.GenerateContentResponse, error) {
	return func() (*genai.GenerateContentResponse, error) {
		if len(resps) == 0 {
			return nil, last
		}
		r := resps[0]
		resps = resps[1:]
		return r, nil
	}
}

func TestGeminiStream(t *testing.T) {
	cancelled := false
	s := &geminiStream{
		next: responses(iterator.Done,
			textResponse(genai.Text("Refunds "), genai.Text("are ")),
			textResponse(),
			&genai.GenerateContentResponse{},
			textResponse(genai.Blob{MIMEType: "image/png"}, genai.Text("accepted.")),
		),
		cancel: func() { cancelled = true },
	}

	var got []string
	for {
		tok, err := s.Next()
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		got = append(got, tok)
	}
	assert.Equal(t, []string{"Refunds are ", "accepted."}, got)

	require.NoError(t, s.Close())
	assert.True(t, cancelled)
}

func TestGeminiStream_Error(t *testing.T) {
	s := &geminiStream{
		next:   responses(errors.New("rpc error: code = Unavailable"), textResponse(genai.Text("partial"))),
		cancel: func() {},
	}

	tok, err := s.Next()
	require.NoError(t, err)
	assert.Equal(t, "partial", tok)

	_, err = s.Next()
	require.Error(t, err)
	assert.NotErrorIs(t, err, io.EOF)
	assert.Contains(t, err.Error(), "Unavailable")
}

func TestToGeminiHistory(t *testing.T) {
	history := toGeminiHistory([]ConversationTurn{
		{Role: RoleSystem, Content: "ignored"},
		{Role: RoleUser, Content: "hi"},
		{Role: RoleAssistant, Parts: []MessagePart{{Type: "text", Text: "hello"}}},
	})

	require.Len(t, history, 2)
	assert.Equal(t, "user", history[0].Role)
	assert.Equal(t, []genai.Part{genai.Text("hi")}, history[0].Parts)
	assert.Equal(t, "model", history[1].Role)
	assert.Equal(t, []genai.Part{genai.Text("hello")}, history[1].Parts)
}
