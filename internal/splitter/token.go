package splitter

import (
	"fmt"

	"github.com/pkoukk/tiktoken-go"

	"github.com/quarry-ai/quarry/internal/document"
)

// DefaultTokenEncoding is the BPE encoding used when the splitter config
// does not name one. cl100k_base matches the OpenAI embedding models.
const DefaultTokenEncoding = "cl100k_base"

// tokenSplitter windows text by token count instead of characters, so chunk
// sizes line up with embedding model limits. chunkSize and chunkOverlap are
// measured in tokens.
type tokenSplitter struct {
	chunkSize    int
	chunkOverlap int
	encoder      *tiktoken.Tiktoken
}

func newToken(cfg Config) (*tokenSplitter, error) {
	encoding := DefaultTokenEncoding
	if raw, ok := cfg.Params["encoding"].(string); ok && raw != "" {
		encoding = raw
	}

	encoder, err := tiktoken.GetEncoding(encoding)
	if err != nil {
		return nil, fmt.Errorf("token splitter: loading encoding %q: %w", encoding, err)
	}

	return &tokenSplitter{
		chunkSize:    cfg.ChunkSize,
		chunkOverlap: cfg.ChunkOverlap,
		encoder:      encoder,
	}, nil
}

func (s *tokenSplitter) Split(doc document.Document) ([]document.Document, error) {
	tokens := s.encoder.Encode(doc.Content, nil, nil)
	if len(tokens) == 0 {
		return nil, nil
	}
	if len(tokens) <= s.chunkSize {
		return []document.Document{document.New(doc.Content, doc.Metadata)}, nil
	}

	stride := s.chunkSize - s.chunkOverlap
	var chunks []document.Document
	for start := 0; start < len(tokens); start += stride {
		end := start + s.chunkSize
		if end > len(tokens) {
			end = len(tokens)
		}
		chunks = append(chunks, document.New(s.encoder.Decode(tokens[start:end]), doc.Metadata))
		if end == len(tokens) {
			break
		}
	}
	return chunks, nil
}
