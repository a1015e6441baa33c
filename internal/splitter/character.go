package splitter

import (
	"github.com/quarry-ai/quarry/internal/document"
)

// characterSplitter cuts text into fixed windows of chunkSize runes with
// chunkOverlap runes shared between consecutive windows. Boundaries are
// mechanical, so rejoining the windows (dropping each overlap prefix once)
// reproduces the original text exactly.
type characterSplitter struct {
	chunkSize    int
	chunkOverlap int
}

func newCharacter(cfg Config) *characterSplitter {
	return &characterSplitter{
		chunkSize:    cfg.ChunkSize,
		chunkOverlap: cfg.ChunkOverlap,
	}
}

func (s *characterSplitter) Split(doc document.Document) ([]document.Document, error) {
	runes := []rune(doc.Content)
	if len(runes) == 0 {
		return nil, nil
	}
	if len(runes) <= s.chunkSize {
		return []document.Document{document.New(doc.Content, doc.Metadata)}, nil
	}

	stride := s.chunkSize - s.chunkOverlap
	chunks := make([]document.Document, 0, (len(runes)+stride-1)/stride)
	for start := 0; start < len(runes); start += stride {
		end := start + s.chunkSize
		if end > len(runes) {
			end = len(runes)
		}
		chunks = append(chunks, document.New(string(runes[start:end]), doc.Metadata))
		if end == len(runes) {
			break
		}
	}
	return chunks, nil
}
