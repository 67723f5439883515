// Package chunker splits document text into overlapping passages sized for
// embedding and retrieval.
//
// Sizes are measured in characters (runes). A window is cut at the latest
// natural boundary found in its second half: a paragraph break first, then a
// line or sentence end, then any whitespace. Without a boundary the window is
// cut hard at the size limit.
package chunker

import (
	"errors"
	"fmt"
	"unicode"
)

// DefaultChunkSize is the default number of characters per chunk.
const DefaultChunkSize = 1000

// DefaultChunkOverlap is the default number of overlapping characters.
const DefaultChunkOverlap = 200

var (
	// ErrEmptyContent is returned when there is nothing to split.
	ErrEmptyContent = errors.New("chunker: content is empty")

	// ErrInvalidConfig is returned when size and overlap violate 0 <= overlap < size.
	ErrInvalidConfig = errors.New("chunker: invalid chunk size or overlap")
)

// Window is a half-open [Start, End) range of rune offsets into the content.
type Window struct {
	Start int
	End   int
}

var sentenceEnds = [][]rune{
	[]rune("\n"),
	[]rune(". "),
	[]rune("! "),
	[]rune("? "),
	[]rune("。"),
	[]rune("！"),
	[]rune("？"),
}

var paragraphBreak = []rune("\n\n")

// Split cuts content into ordered, overlapping chunks.
func Split(content string, chunkSize, chunkOverlap int) ([]string, error) {
	runes, ws, err := split(content, chunkSize, chunkOverlap)
	if err != nil {
		return nil, err
	}
	chunks := make([]string, len(ws))
	for i, w := range ws {
		chunks[i] = string(runes[w.Start:w.End])
	}
	return chunks, nil
}

// Windows returns the rune ranges Split would produce. The overlap between
// chunk i-1 and chunk i is ws[i-1].End - ws[i].Start.
func Windows(content string, chunkSize, chunkOverlap int) ([]Window, error) {
	_, ws, err := split(content, chunkSize, chunkOverlap)
	return ws, err
}

func split(content string, size, overlap int) ([]rune, []Window, error) {
	if content == "" {
		return nil, nil, ErrEmptyContent
	}
	if size <= 0 || overlap < 0 || overlap >= size {
		return nil, nil, fmt.Errorf("%w: size=%d overlap=%d", ErrInvalidConfig, size, overlap)
	}

	runes := []rune(content)
	n := len(runes)
	ws := make([]Window, 0, n/(size-overlap)+1)

	start := 0
	for {
		end := start + size
		if end >= n {
			ws = append(ws, Window{Start: start, End: n})
			return runes, ws, nil
		}
		cut := findCut(runes, start, end, overlap)
		ws = append(ws, Window{Start: start, End: cut})
		start = nextStart(runes, cut, overlap)
	}
}

// findCut returns the end offset for the window beginning at start. The cut
// never falls before start+overlap+1 so the next window always advances.
func findCut(runes []rune, start, end, overlap int) int {
	minCut := start + (end-start)/2
	if minCut < start+overlap+1 {
		minCut = start + overlap + 1
	}

	for c := end; c >= minCut; c-- {
		if endsWith(runes, c, paragraphBreak) {
			return c
		}
	}
	for c := end; c >= minCut; c-- {
		for _, sep := range sentenceEnds {
			if endsWith(runes, c, sep) {
				return c
			}
		}
	}
	for c := end; c >= minCut; c-- {
		if unicode.IsSpace(runes[c-1]) {
			return c
		}
	}
	return end
}

// nextStart backs off overlap characters from the cut, then moves forward to
// the next word start if one exists before the cut.
func nextStart(runes []rune, cut, overlap int) int {
	s := cut - overlap
	if overlap == 0 || s == 0 || unicode.IsSpace(runes[s-1]) {
		return s
	}
	for p := s + 1; p < cut; p++ {
		if unicode.IsSpace(runes[p-1]) && !unicode.IsSpace(runes[p]) {
			return p
		}
	}
	return s
}

func endsWith(runes []rune, c int, sep []rune) bool {
	if c < len(sep) {
		return false
	}
	for i := range sep {
		if runes[c-len(sep)+i] != sep[i] {
			return false
		}
	}
	return true
}
