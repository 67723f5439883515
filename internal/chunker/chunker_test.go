package chunker

import (
	"strings"
	"testing"
	"unicode"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// reconstruct joins chunks after dropping the overlapping prefix of each
// chunk, checking that the prefix really repeats the previous suffix.
func reconstruct(t *testing.T, chunks []string, ws []Window, overlap int) string {
	t.Helper()
	require.Len(t, ws, len(chunks))

	var b strings.Builder
	b.WriteString(chunks[0])
	for i := 1; i < len(chunks); i++ {
		k := ws[i-1].End - ws[i].Start
		require.GreaterOrEqual(t, k, 0, "gap before chunk %d", i)
		assert.LessOrEqual(t, k, overlap, "overlap too large before chunk %d", i)

		prev := []rune(chunks[i-1])
		cur := []rune(chunks[i])
		require.Equal(t, string(prev[len(prev)-k:]), string(cur[:k]))
		b.WriteString(string(cur[k:]))
	}
	return b.String()
}

func TestSplit_Reconstructs(t *testing.T) {
	paragraphs := strings.Repeat("Refunds are issued within 30 days. Contact support first!\n\nShipping is free over $50? Yes.\n", 40)
	cases := []struct {
		name    string
		content string
		size    int
		overlap int
	}{
		{"prose default config", paragraphs, DefaultChunkSize, DefaultChunkOverlap},
		{"prose small windows", paragraphs, 100, 20},
		{"no overlap", paragraphs, 64, 0},
		{"no boundaries", strings.Repeat("x", 2500), 100, 20},
		{"multibyte", strings.Repeat("知识库文档。退款政策说明！", 120), 50, 10},
		{"tiny windows", "the quick brown fox jumps over the lazy dog", 7, 3},
		{"whitespace heavy", strings.Repeat("  \n\t ", 300), 40, 15},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			chunks, err := Split(tc.content, tc.size, tc.overlap)
			require.NoError(t, err)
			ws, err := Windows(tc.content, tc.size, tc.overlap)
			require.NoError(t, err)

			for i, c := range chunks {
				n := utf8.RuneCountInString(c)
				assert.Greater(t, n, 0, "chunk %d is empty", i)
				assert.LessOrEqual(t, n, tc.size, "chunk %d exceeds size", i)
			}
			for i := 1; i < len(ws); i++ {
				assert.Greater(t, ws[i].Start, ws[i-1].Start, "window %d does not advance", i)
			}

			assert.Equal(t, tc.content, reconstruct(t, chunks, ws, tc.overlap))
		})
	}
}

func TestSplit_ShortContent(t *testing.T) {
	chunks, err := Split("short text", 1000, 200)
	require.NoError(t, err)
	assert.Equal(t, []string{"short text"}, chunks)

	exact := strings.Repeat("a", 100)
	chunks, err = Split(exact, 100, 20)
	require.NoError(t, err)
	assert.Equal(t, []string{exact}, chunks)
}

func TestSplit_HardCutWithoutBoundary(t *testing.T) {
	chunks, err := Split(strings.Repeat("x", 250), 100, 20)
	require.NoError(t, err)
	require.Len(t, chunks, 3)
	assert.Len(t, chunks[0], 100)
	assert.Len(t, chunks[1], 100)
	assert.Len(t, chunks[2], 90)
}

func TestSplit_PrefersParagraphBoundary(t *testing.T) {
	content := strings.Repeat("a", 60) + "\n\n" + strings.Repeat("b", 60)

	chunks, err := Split(content, 100, 10)
	require.NoError(t, err)
	require.Len(t, chunks, 2)
	assert.Equal(t, strings.Repeat("a", 60)+"\n\n", chunks[0])
	assert.True(t, strings.HasSuffix(chunks[1], strings.Repeat("b", 60)))
}

func TestSplit_PrefersSentenceOverWord(t *testing.T) {
	content := strings.Repeat("word ", 12) + "end. " + strings.Repeat("tail ", 20)

	chunks, err := Split(content, 80, 0)
	require.NoError(t, err)
	require.NotEmpty(t, chunks)
	assert.True(t, strings.HasSuffix(chunks[0], "end. "), "got %q", chunks[0])
}

func TestSplit_OverlapStartsAtWord(t *testing.T) {
	content := strings.Repeat("lorem ipsum dolor sit amet ", 100)

	ws, err := Windows(content, 100, 20)
	require.NoError(t, err)
	require.Greater(t, len(ws), 1)

	runes := []rune(content)
	for i := 1; i < len(ws); i++ {
		assert.True(t, unicode.IsSpace(runes[ws[i].Start-1]), "window %d starts mid-word", i)
	}
}

func TestSplit_Deterministic(t *testing.T) {
	content := strings.Repeat("Determinism matters. Same input, same output.\n", 200)

	first, err := Split(content, 300, 50)
	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		again, err := Split(content, 300, 50)
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
}

func TestSplit_InvalidInput(t *testing.T) {
	_, err := Split("", 100, 10)
	assert.ErrorIs(t, err, ErrEmptyContent)

	for _, tc := range []struct{ size, overlap int }{{0, 0}, {-5, 0}, {100, -1}, {100, 100}, {100, 150}} {
		_, err := Split("content", tc.size, tc.overlap)
		assert.ErrorIs(t, err, ErrInvalidConfig, "size=%d overlap=%d", tc.size, tc.overlap)
	}
}
