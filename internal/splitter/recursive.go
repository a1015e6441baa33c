package splitter

import (
	"slices"
	"strings"

	"github.com/quarry-ai/quarry/internal/document"
)

// defaultSeparators is the boundary hierarchy tried in order: paragraphs
// first, then lines, sentences, words, and finally raw runes.
var defaultSeparators = []string{"\n\n", "\n", ". ", "? ", "! ", " ", ""}

// recursiveSplitter splits on the coarsest separator that produces pieces
// small enough, then merges consecutive pieces back into chunks of at most
// chunkSize runes, carrying chunkOverlap runes from the tail of each chunk
// into the next.
type recursiveSplitter struct {
	chunkSize    int
	chunkOverlap int
	separators   []string
}

func newRecursive(cfg Config) *recursiveSplitter {
	seps := defaultSeparators
	if raw, ok := cfg.Params["separators"].([]string); ok && len(raw) > 0 {
		seps = raw
	}
	return &recursiveSplitter{
		chunkSize:    cfg.ChunkSize,
		chunkOverlap: cfg.ChunkOverlap,
		separators:   seps,
	}
}

func (s *recursiveSplitter) Split(doc document.Document) ([]document.Document, error) {
	text := doc.Content
	if strings.TrimSpace(text) == "" {
		return nil, nil
	}

	pieces := s.splitText(text, s.separators)
	merged := s.merge(pieces)

	chunks := make([]document.Document, 0, len(merged))
	for _, m := range merged {
		if strings.TrimSpace(m) == "" {
			continue
		}
		chunks = append(chunks, document.New(m, doc.Metadata))
	}
	return chunks, nil
}

// splitText recursively breaks text into pieces no longer than chunkSize,
// preferring the earliest separator in the hierarchy that applies.
func (s *recursiveSplitter) splitText(text string, separators []string) []string {
	if len([]rune(text)) <= s.chunkSize {
		return []string{text}
	}
	if len(separators) == 0 {
		return s.hardSplit(text)
	}

	sep := separators[0]
	rest := separators[1:]

	if sep == "" {
		return s.hardSplit(text)
	}

	parts := strings.SplitAfter(text, sep)
	if len(parts) == 1 {
		// Separator not present, try the next finer one.
		return s.splitText(text, rest)
	}

	var out []string
	for _, part := range parts {
		if part == "" {
			continue
		}
		if len([]rune(part)) > s.chunkSize {
			out = append(out, s.splitText(part, rest)...)
		} else {
			out = append(out, part)
		}
	}
	return out
}

// hardSplit cuts text at rune boundaries when no separator helps.
func (s *recursiveSplitter) hardSplit(text string) []string {
	runes := []rune(text)
	var out []string
	for start := 0; start < len(runes); start += s.chunkSize {
		end := start + s.chunkSize
		if end > len(runes) {
			end = len(runes)
		}
		out = append(out, string(runes[start:end]))
	}
	return out
}

// merge greedily packs pieces into chunks of at most chunkSize runes and
// prepends the overlap tail of the previous chunk to each following chunk.
// The overlap counts against the chunk budget, so it shrinks below
// chunkOverlap when the next piece would not fit otherwise.
func (s *recursiveSplitter) merge(pieces []string) []string {
	var chunks []string
	var current strings.Builder
	currentLen := 0

	flush := func() {
		if currentLen == 0 {
			return
		}
		chunks = append(chunks, current.String())
		current.Reset()
		currentLen = 0
	}

	for _, piece := range pieces {
		pieceLen := len([]rune(piece))
		if currentLen > 0 && currentLen+pieceLen > s.chunkSize {
			prev := current.String()
			flush()
			if allowed := min(s.chunkOverlap, s.chunkSize-pieceLen); allowed > 0 {
				tail := overlapTail(prev, allowed)
				current.WriteString(tail)
				currentLen = len([]rune(tail))
			}
		}
		current.WriteString(piece)
		currentLen += pieceLen
	}
	flush()

	return chunks
}

// overlapTail returns the last n runes of text, extended left to the nearest
// space when one exists inside the window so overlaps do not start mid-word.
func overlapTail(text string, n int) string {
	runes := []rune(text)
	if len(runes) <= n {
		return text
	}
	tail := runes[len(runes)-n:]
	if idx := slices.Index(tail, ' '); idx > 0 && idx < len(tail)-1 {
		return strings.TrimLeft(string(tail[idx:]), " ")
	}
	return string(tail)
}
