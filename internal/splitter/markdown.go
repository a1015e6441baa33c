package splitter

import (
	"strings"

	"github.com/quarry-ai/quarry/internal/document"
)

// Metadata keys written by the markdown splitter for the heading path of
// each section. A chunk under "# Intro" / "## Setup" carries h1=Intro and
// h2=Setup in addition to its parent document's metadata.
const (
	MetaHeading1 = "h1"
	MetaHeading2 = "h2"
	MetaHeading3 = "h3"
)

// markdownSplitter splits on ATX headings (levels 1-3) so each chunk stays
// within one section, then falls back to character windows for sections that
// exceed chunkSize. Heading metadata wins over parent keys of the same name.
type markdownSplitter struct {
	chunkSize    int
	chunkOverlap int
}

func newMarkdown(cfg Config) *markdownSplitter {
	return &markdownSplitter{
		chunkSize:    cfg.ChunkSize,
		chunkOverlap: cfg.ChunkOverlap,
	}
}

type mdSection struct {
	headings [3]string // h1..h3 in effect for this section
	body     strings.Builder
}

func (s *markdownSplitter) Split(doc document.Document) ([]document.Document, error) {
	sections := parseSections(doc.Content)

	inner := newCharacter(Config{ChunkSize: s.chunkSize, ChunkOverlap: s.chunkOverlap})

	var chunks []document.Document
	for _, sec := range sections {
		body := strings.TrimSpace(sec.body.String())
		if body == "" {
			continue
		}

		meta := doc.CloneMetadata()
		if sec.headings[0] != "" {
			meta[MetaHeading1] = sec.headings[0]
		}
		if sec.headings[1] != "" {
			meta[MetaHeading2] = sec.headings[1]
		}
		if sec.headings[2] != "" {
			meta[MetaHeading3] = sec.headings[2]
		}

		if len([]rune(body)) <= s.chunkSize {
			chunks = append(chunks, document.Document{Content: body, Metadata: meta})
			continue
		}

		sub, err := inner.Split(document.Document{Content: body, Metadata: meta})
		if err != nil {
			return nil, err
		}
		chunks = append(chunks, sub...)
	}
	return chunks, nil
}

func parseSections(text string) []*mdSection {
	var sections []*mdSection
	current := &mdSection{}
	sections = append(sections, current)

	inCodeBlock := false
	for _, line := range strings.Split(text, "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "```") {
			inCodeBlock = !inCodeBlock
		}

		level, title := headingOf(trimmed)
		if inCodeBlock || level == 0 {
			current.body.WriteString(line)
			current.body.WriteString("\n")
			continue
		}

		next := &mdSection{headings: current.headings}
		next.headings[level-1] = title
		for i := level; i < 3; i++ {
			next.headings[i] = ""
		}
		sections = append(sections, next)
		current = next
	}
	return sections
}

// headingOf reports the ATX heading level (1-3) and title of a line, or 0
// when the line is not a heading the splitter cares about.
func headingOf(line string) (int, string) {
	for level := 3; level >= 1; level-- {
		prefix := strings.Repeat("#", level) + " "
		if strings.HasPrefix(line, prefix) {
			return level, strings.TrimSpace(strings.TrimPrefix(line, prefix))
		}
	}
	return 0, ""
}
