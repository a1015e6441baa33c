package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/quarry-ai/quarry/internal/loader"
	"github.com/quarry-ai/quarry/internal/splitter"
)

func writeManifest(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "resources.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadManifest(t *testing.T) {
	path := writeManifest(t, `
resources:
  - url: ./docs/architecture.md
    resource_type: guidelines
    priority: 2
    tags: [architecture, canonical]
  - url: https://example.com/handbook
    resource_type: contextual
    splitter:
      chunk_size: 500
      chunk_overlap: 50
`)

	m, err := LoadManifest(path)
	if err != nil {
		t.Fatalf("LoadManifest: %v", err)
	}
	if len(m.Resources) != 2 {
		t.Fatalf("got %d resources, want 2", len(m.Resources))
	}

	md := m.Resources[0]
	if md.Priority != 2 || len(md.Tags) != 2 {
		t.Errorf("first resource = %+v", md)
	}
	if md.Loader.Type != loader.TypeFile {
		t.Errorf("loader type = %q, want inferred file", md.Loader.Type)
	}
	if md.Splitter.Type != splitter.TypeMarkdown {
		t.Errorf("splitter type = %q, want markdown for .md", md.Splitter.Type)
	}

	web := m.Resources[1]
	if web.Loader.Type != loader.TypeWeb {
		t.Errorf("loader type = %q, want inferred web", web.Loader.Type)
	}
	if web.Splitter.ChunkSize != 500 || web.Splitter.ChunkOverlap != 50 {
		t.Errorf("splitter overrides lost: %+v", web.Splitter)
	}
	if web.Splitter.Type != splitter.TypeRecursive {
		t.Errorf("splitter type = %q, want recursive default", web.Splitter.Type)
	}
	if web.Priority != 1 {
		t.Errorf("priority = %d, want default 1", web.Priority)
	}
}

func TestLoadManifest_Errors(t *testing.T) {
	if _, err := LoadManifest(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("missing file accepted")
	}

	empty := writeManifest(t, "resources: []\n")
	if _, err := LoadManifest(empty); err == nil {
		t.Error("empty manifest accepted")
	}

	badType := writeManifest(t, `
resources:
  - url: ./a.txt
    resource_type: secret
`)
	if _, err := LoadManifest(badType); err == nil {
		t.Error("unknown resource_type accepted")
	}

	noURL := writeManifest(t, `
resources:
  - resource_type: dsl
`)
	if _, err := LoadManifest(noURL); err == nil {
		t.Error("resource without url accepted")
	}
}
