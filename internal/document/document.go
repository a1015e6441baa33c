// Package document defines the document and chunk types shared by the
// ingestion pipeline: loaders produce documents, splitters cut them into
// retrieval-sized chunks, and vector stores index them.
//
// Metadata is map[string]string throughout. Vector store backends require
// flat, scalar metadata values, so richer values are flattened at the
// pipeline boundary (see FlattenMetadata).
package document

import (
	"fmt"
	"maps"
	"sort"
	"strconv"
	"strings"
	"time"
)

// Well-known metadata keys written by the pipeline. Loaders and splitters
// may add their own keys; these are the ones the processor guarantees.
const (
	MetaSourceURL    = "source_url"
	MetaResourceType = "resource_type"
	MetaPriority     = "priority"
	MetaTags         = "tags"
	MetaProcessedAt  = "processed_at"
)

// Document is a passage of text plus metadata. Loaders return whole
// documents; splitters return chunk documents derived from them.
type Document struct {
	ID       string            // Unique identifier (assigned at indexing time if empty)
	Content  string            // Page text
	Metadata map[string]string // Flat metadata, scalar values only
}

// New creates a Document with a copy of the given metadata so callers can
// reuse their map.
func New(content string, metadata map[string]string) Document {
	return Document{
		Content:  content,
		Metadata: maps.Clone(metadata),
	}
}

// CloneMetadata returns a copy of the document's metadata, never nil.
func (d Document) CloneMetadata() map[string]string {
	if d.Metadata == nil {
		return make(map[string]string)
	}
	return maps.Clone(d.Metadata)
}

// SetMeta stores a key/value pair, allocating the metadata map if needed.
func (d *Document) SetMeta(key, value string) {
	if d.Metadata == nil {
		d.Metadata = make(map[string]string)
	}
	d.Metadata[key] = value
}

// FlattenMetadata converts an open key-value map into the flat string form
// vector store backends accept. Scalars are formatted; string slices are
// joined with commas; nested maps, nil values, and anything else without a
// stable scalar form are dropped. Chunks are never rejected over metadata,
// only the incompatible values are removed.
func FlattenMetadata(in map[string]any) map[string]string {
	out := make(map[string]string, len(in))
	for k, v := range in {
		s, ok := flattenValue(v)
		if !ok {
			continue
		}
		out[k] = s
	}
	return out
}

func flattenValue(v any) (string, bool) {
	switch t := v.(type) {
	case nil:
		return "", false
	case string:
		return t, true
	case bool:
		return strconv.FormatBool(t), true
	case int:
		return strconv.Itoa(t), true
	case int32:
		return strconv.FormatInt(int64(t), 10), true
	case int64:
		return strconv.FormatInt(t, 10), true
	case float32:
		return strconv.FormatFloat(float64(t), 'g', -1, 32), true
	case float64:
		return strconv.FormatFloat(t, 'g', -1, 64), true
	case time.Time:
		return t.Format(time.RFC3339), true
	case []string:
		return strings.Join(t, ","), true
	case fmt.Stringer:
		return t.String(), true
	default:
		return "", false
	}
}

// JoinTags renders a tag set in the canonical comma-joined form used in
// chunk metadata. Tags are sorted so the representation is stable.
func JoinTags(tags []string) string {
	if len(tags) == 0 {
		return ""
	}
	sorted := make([]string, len(tags))
	copy(sorted, tags)
	sort.Strings(sorted)
	return strings.Join(sorted, ",")
}

// SplitTags is the inverse of JoinTags. An empty value yields nil.
func SplitTags(value string) []string {
	if value == "" {
		return nil
	}
	return strings.Split(value, ",")
}
