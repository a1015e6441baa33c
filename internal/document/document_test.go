package document

import (
	"testing"
	"time"
)

func TestFlattenMetadata(t *testing.T) {
	in := map[string]any{
		"str":    "value",
		"int":    42,
		"float":  1.5,
		"bool":   true,
		"tags":   []string{"a", "b"},
		"time":   time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC),
		"nested": map[string]string{"drop": "me"},
		"nil":    nil,
	}

	out := FlattenMetadata(in)

	want := map[string]string{
		"str":   "value",
		"int":   "42",
		"float": "1.5",
		"bool":  "true",
		"tags":  "a,b",
		"time":  "2025-06-01T00:00:00Z",
	}

	if len(out) != len(want) {
		t.Fatalf("got %d keys, want %d: %v", len(out), len(want), out)
	}
	for k, v := range want {
		if out[k] != v {
			t.Errorf("key %q = %q, want %q", k, out[k], v)
		}
	}
	if _, ok := out["nested"]; ok {
		t.Error("nested map should have been dropped")
	}
	if _, ok := out["nil"]; ok {
		t.Error("nil value should have been dropped")
	}
}

func TestNewCopiesMetadata(t *testing.T) {
	meta := map[string]string{"k": "v"}
	doc := New("content", meta)

	meta["k"] = "mutated"
	if doc.Metadata["k"] != "v" {
		t.Error("New must copy the metadata map")
	}
}

func TestSetMetaAllocates(t *testing.T) {
	var doc Document
	doc.SetMeta("key", "value")
	if doc.Metadata["key"] != "value" {
		t.Errorf("SetMeta on zero document: got %q", doc.Metadata["key"])
	}
}

func TestJoinSplitTags(t *testing.T) {
	joined := JoinTags([]string{"beta", "alpha"})
	if joined != "alpha,beta" {
		t.Fatalf("JoinTags = %q, want sorted alpha,beta", joined)
	}

	tags := SplitTags(joined)
	if len(tags) != 2 || tags[0] != "alpha" || tags[1] != "beta" {
		t.Fatalf("SplitTags = %v", tags)
	}

	if SplitTags("") != nil {
		t.Error("SplitTags(\"\") should be nil")
	}
	if JoinTags(nil) != "" {
		t.Error("JoinTags(nil) should be empty")
	}
}
