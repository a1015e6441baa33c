package rag

import (
	"context"
	"encoding/json"
	"errors"
	"hash/fnv"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/quarry-ai/quarry/internal/document"
	"github.com/quarry-ai/quarry/internal/embed"
	"github.com/quarry-ai/quarry/internal/log"
	"github.com/quarry-ai/quarry/internal/retriever"
	"github.com/quarry-ai/quarry/internal/vectorstore"
)

// fakeEmbedServer serves the local-embedding API with a deterministic
// bag-of-words embedding: each word hashes into one of 16 dimensions.
// Documents sharing words get similar vectors, which is enough signal for
// ranking assertions.
func fakeEmbedServer(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Prompt string `json:"prompt"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		vec := make([]float64, 16)
		for _, word := range strings.Fields(strings.ToLower(req.Prompt)) {
			word = strings.Trim(word, ".,;:!?\"'()")
			if word == "" {
				continue
			}
			h := fnv.New32a()
			h.Write([]byte(word))
			vec[h.Sum32()%16]++
		}
		json.NewEncoder(w).Encode(map[string]any{"embedding": vec})
	}))
	t.Cleanup(srv.Close)
	return srv
}

func testConfig(t *testing.T, persistDir string) Config {
	t.Helper()
	srv := fakeEmbedServer(t)
	storeType := vectorstore.TypeMemory
	if persistDir != "" {
		storeType = vectorstore.TypeChroma
	}
	return Config{
		Embedding: embed.Config{
			Type:    embed.TypeOllama,
			Model:   "test-embed",
			BaseURL: srv.URL,
		},
		VectorStore: vectorstore.Config{
			Type:             storeType,
			PersistDirectory: persistDir,
		},
		Retriever:       retriever.Config{Type: retriever.TypeSimilarity},
		SkipInvalidDocs: true,
	}
}

func newTestProcessor(t *testing.T, cfg Config) *Processor {
	t.Helper()
	p, err := New(context.Background(), cfg, log.NewNop())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { p.Close() })
	return p
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("writing %s: %v", name, err)
	}
	return path
}

func TestAddResourcesAndSearch(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	path := writeFile(t, dir, "readme.txt", "Kubernetes deployments require manifests.")

	p := newTestProcessor(t, testConfig(t, ""))

	resource := NewResourceFromURL(path, ResourceDSL, WithChunkSize(1000))
	summary, err := p.AddResources(ctx, []ResourceConfig{resource})
	if err != nil {
		t.Fatalf("AddResources: %v", err)
	}
	if summary.Successful != 1 || summary.Failed != 0 || summary.TotalDocuments != 1 {
		t.Fatalf("summary = %+v, want 1 successful, 0 failed, 1 document", summary)
	}

	results, err := p.Search(ctx, "kubernetes manifest", "", 1, true)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("got %d results, want 1", len(results))
	}
	if !strings.Contains(results[0].Content, "Kubernetes") {
		t.Errorf("content %q does not mention Kubernetes", results[0].Content)
	}
	if results[0].Metadata == nil {
		t.Fatal("metadata missing despite includeMetadata")
	}
	if results[0].Metadata.SourceURL != path {
		t.Errorf("source_url = %q, want %q", results[0].Metadata.SourceURL, path)
	}
	if results[0].Metadata.ResourceType != string(ResourceDSL) {
		t.Errorf("resource_type = %q, want %q", results[0].Metadata.ResourceType, ResourceDSL)
	}
	if results[0].Metadata.Priority != 1 {
		t.Errorf("priority = %d, want default 1", results[0].Metadata.Priority)
	}
}

func TestAddResources_PartialFailure(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	good1 := writeFile(t, dir, "a.txt", "alpha document about gateways and routing tables")
	good2 := writeFile(t, dir, "b.txt", "beta document about storage classes and volumes")
	missing := filepath.Join(dir, "does-not-exist.txt")

	p := newTestProcessor(t, testConfig(t, ""))

	summary, err := p.AddResources(ctx, []ResourceConfig{
		NewResourceFromURL(good1, ResourceDSL),
		NewResourceFromURL(missing, ResourceDSL),
		NewResourceFromURL(good2, ResourceContextual),
	})
	if err != nil {
		t.Fatalf("AddResources: %v", err)
	}
	if summary.Successful != 2 {
		t.Errorf("successful = %d, want 2", summary.Successful)
	}
	if summary.Failed != 1 {
		t.Errorf("failed = %d, want 1", summary.Failed)
	}
	if len(summary.Errors) != 1 || !strings.Contains(summary.Errors[0], missing) {
		t.Errorf("errors = %v, want one entry naming %s", summary.Errors, missing)
	}

	// The surviving resources are searchable.
	results, err := p.Search(ctx, "alpha gateways", "", 5, false)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) == 0 {
		t.Error("expected results from the successfully ingested resources")
	}
}

func TestAddResources_StrictModeReportsError(t *testing.T) {
	ctx := context.Background()
	missing := filepath.Join(t.TempDir(), "nope.txt")

	cfg := testConfig(t, "")
	cfg.SkipInvalidDocs = false
	p := newTestProcessor(t, cfg)

	summary, err := p.AddResources(ctx, []ResourceConfig{NewResourceFromURL(missing, ResourceDSL)})
	if err != nil {
		t.Fatalf("AddResources: %v", err)
	}
	if summary.Failed != 1 || summary.Successful != 0 {
		t.Fatalf("summary = %+v, want 1 failed", summary)
	}
	if len(summary.Errors) != 1 || !strings.Contains(summary.Errors[0], "failed to process resource") {
		t.Errorf("errors = %v, want a processing error entry", summary.Errors)
	}
}

func TestProcessResource_MetadataOverrideOrder(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	path := writeFile(t, dir, "notes.txt", "etcd stores cluster state")

	p := newTestProcessor(t, testConfig(t, ""))

	resource := NewResourceFromURL(path, ResourceGuidelines,
		WithTags("standard", "internal"),
		WithMetadata(map[string]any{
			"tags":  "custom-wins",
			"topic": "infra",
			"depth": 3,
		}),
	)
	chunks, err := p.ProcessResource(ctx, resource)
	if err != nil {
		t.Fatalf("ProcessResource: %v", err)
	}
	if len(chunks) != 1 {
		t.Fatalf("got %d chunks, want 1", len(chunks))
	}

	meta := chunks[0].Metadata
	if meta[document.MetaTags] != "custom-wins" {
		t.Errorf("tags = %q, resource metadata must override the standard key", meta[document.MetaTags])
	}
	if meta["topic"] != "infra" || meta["depth"] != "3" {
		t.Errorf("custom metadata not carried: %v", meta)
	}
	if meta[document.MetaSourceURL] != path {
		t.Errorf("source_url = %q, want %q", meta[document.MetaSourceURL], path)
	}
	if meta[document.MetaProcessedAt] == "" {
		t.Error("processed_at not stamped")
	}
}

func TestSearch_TypeFilterNeverExpands(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	dslPath := writeFile(t, dir, "dsl.txt", "pipeline syntax uses stages and steps")
	ctxPath := writeFile(t, dir, "context.txt", "pipeline runs happen on worker nodes")

	p := newTestProcessor(t, testConfig(t, ""))
	_, err := p.AddResources(ctx, []ResourceConfig{
		NewResourceFromURL(dslPath, ResourceDSL),
		NewResourceFromURL(ctxPath, ResourceContextual),
	})
	if err != nil {
		t.Fatalf("AddResources: %v", err)
	}

	unfiltered, err := p.Search(ctx, "pipeline", "", 5, true)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	filtered, err := p.Search(ctx, "pipeline", string(ResourceDSL), 5, true)
	if err != nil {
		t.Fatalf("Search filtered: %v", err)
	}

	if len(filtered) > len(unfiltered) {
		t.Errorf("filter expanded results: %d > %d", len(filtered), len(unfiltered))
	}
	for _, r := range filtered {
		if r.Metadata.ResourceType != string(ResourceDSL) {
			t.Errorf("filtered result has resource_type %q", r.Metadata.ResourceType)
		}
	}
}

func TestSearch_EmptyIndex(t *testing.T) {
	p := newTestProcessor(t, testConfig(t, ""))

	_, err := p.Search(context.Background(), "anything", "", 5, true)
	if err == nil {
		t.Fatal("expected error before any ingestion")
	}
	if !strings.Contains(err.Error(), "add resources first") {
		t.Errorf("error = %v, want guidance to add resources", err)
	}
}

func TestStats_Lifecycle(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	path := writeFile(t, dir, "doc.txt", "content for counting")

	p := newTestProcessor(t, testConfig(t, ""))

	stats := p.Stats(ctx)
	if stats.Status != StatusEmpty || stats.TotalDocuments != 0 {
		t.Fatalf("pre-ingestion stats = %+v, want empty/0", stats)
	}
	if stats.EmbeddingModel != "test-embed" {
		t.Errorf("embedding_model = %q", stats.EmbeddingModel)
	}
	if stats.VectorstoreType != vectorstore.TypeMemory {
		t.Errorf("vectorstore_type = %q", stats.VectorstoreType)
	}

	if _, err := p.AddResources(ctx, []ResourceConfig{NewResourceFromURL(path, ResourceDSL)}); err != nil {
		t.Fatalf("AddResources: %v", err)
	}

	stats = p.Stats(ctx)
	if stats.Status != StatusActive {
		t.Errorf("status = %q, want active", stats.Status)
	}
	if stats.TotalDocuments != 1 {
		t.Errorf("total_documents = %d, want 1", stats.TotalDocuments)
	}
	if stats.RetrieverType != retriever.TypeSimilarity {
		t.Errorf("retriever_type = %q", stats.RetrieverType)
	}
}

func TestClearKnowledgeBase(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	path := writeFile(t, dir, "doc.txt", "content that will be cleared")
	persist := filepath.Join(t.TempDir(), "kb")

	p := newTestProcessor(t, testConfig(t, persist))
	if _, err := p.AddResources(ctx, []ResourceConfig{NewResourceFromURL(path, ResourceDSL)}); err != nil {
		t.Fatalf("AddResources: %v", err)
	}
	if got := p.Stats(ctx).Status; got != StatusActive {
		t.Fatalf("status = %q before clear", got)
	}

	if err := p.ClearKnowledgeBase(ctx); err != nil {
		t.Fatalf("ClearKnowledgeBase: %v", err)
	}

	stats := p.Stats(ctx)
	if stats.Status != StatusEmpty || stats.TotalDocuments != 0 {
		t.Errorf("post-clear stats = %+v, want empty/0", stats)
	}
	if _, err := p.Search(ctx, "content", "", 5, false); err == nil {
		t.Error("search should fail after clear")
	}
	if _, err := os.Stat(persist); !os.IsNotExist(err) {
		t.Errorf("persist directory still present after clear: %v", err)
	}
}

func TestPersistedIndexSurvivesRestart(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	path := writeFile(t, dir, "doc.txt", "persistent knowledge about ingress controllers")
	persist := filepath.Join(t.TempDir(), "kb")

	cfg := testConfig(t, persist)
	first, err := New(ctx, cfg, log.NewNop())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, err := first.AddResources(ctx, []ResourceConfig{NewResourceFromURL(path, ResourceDSL)}); err != nil {
		first.Close()
		t.Fatalf("AddResources: %v", err)
	}
	if err := first.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	second := newTestProcessor(t, cfg)
	stats := second.Stats(ctx)
	if stats.Status != StatusActive {
		t.Fatalf("restarted processor status = %q, want active", stats.Status)
	}
	if stats.TotalDocuments != 1 {
		t.Errorf("restarted total_documents = %d, want 1", stats.TotalDocuments)
	}

	results, err := second.Search(ctx, "ingress controllers", "", 1, false)
	if err != nil {
		t.Fatalf("Search after restart: %v", err)
	}
	if len(results) != 1 || !strings.Contains(results[0].Content, "ingress") {
		t.Errorf("results after restart = %+v", results)
	}
}

func TestValidateResource(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	existing := writeFile(t, dir, "ok.txt", "here")

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodHead {
			t.Errorf("validation used %s, want HEAD", r.Method)
		}
		if strings.HasSuffix(r.URL.Path, "/missing") {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	cfg := testConfig(t, "")
	cfg.ValidateURLs = true
	p := newTestProcessor(t, cfg)

	tests := []struct {
		name    string
		url     string
		wantErr bool
	}{
		{"existing local path", existing, false},
		{"missing local path", filepath.Join(dir, "gone.txt"), true},
		{"reachable url", srv.URL + "/page", false},
		{"http error status", srv.URL + "/missing", true},
		{"delegated scheme", "confluence://SPACE/123", false},
		{"unsupported scheme", "ftp://host/file", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := p.ValidateResource(ctx, ResourceConfig{URL: tt.url, ResourceType: ResourceDSL})
			if (err != nil) != tt.wantErr {
				t.Fatalf("ValidateResource(%s) error = %v, wantErr %v", tt.url, err, tt.wantErr)
			}
			if err != nil {
				var ve *ValidationError
				if !errors.As(err, &ve) {
					t.Errorf("error type = %T, want *ValidationError", err)
				}
			}
		})
	}
}

func TestValidateResource_DisabledSkipsReachability(t *testing.T) {
	p := newTestProcessor(t, testConfig(t, ""))

	// Reachability is off by default; only the declaration is checked.
	err := p.ValidateResource(context.Background(),
		ResourceConfig{URL: "/definitely/not/there.txt", ResourceType: ResourceDSL})
	if err != nil {
		t.Errorf("ValidateResource with validation disabled: %v", err)
	}

	err = p.ValidateResource(context.Background(), ResourceConfig{URL: "", ResourceType: ResourceDSL})
	if err == nil {
		t.Error("empty URL must fail even with validation disabled")
	}
}

func TestValidateResource_BlocksPrivateURLs(t *testing.T) {
	cfg := testConfig(t, "")
	cfg.BlockPrivateURLs = true
	p := newTestProcessor(t, cfg)

	var verr *ValidationError
	err := p.ValidateResource(context.Background(),
		ResourceConfig{URL: "http://127.0.0.1:9/doc", ResourceType: ResourceDSL})
	if !errors.As(err, &verr) {
		t.Fatalf("ValidateResource(loopback) = %v, want ValidationError", err)
	}
	if !strings.Contains(verr.Reason, "loopback") {
		t.Errorf("reason = %q, want loopback rejection", verr.Reason)
	}

	// Local paths are untouched by the guard.
	path := writeFile(t, t.TempDir(), "doc.txt", "local content")
	err = p.ValidateResource(context.Background(),
		ResourceConfig{URL: path, ResourceType: ResourceDSL})
	if err != nil {
		t.Errorf("ValidateResource(local path) = %v", err)
	}
}

func TestNew_EmbeddingFailureIsConfigurationError(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")

	cfg := testConfig(t, "")
	cfg.Embedding = embed.Config{Type: embed.TypeOpenAI}
	_, err := New(context.Background(), cfg, log.NewNop())
	if err == nil {
		t.Fatal("expected error for missing OpenAI key")
	}
	if !IsConfigurationError(err) {
		t.Fatalf("error type = %T, want ConfigurationError", err)
	}
	if !strings.Contains(err.Error(), "OPENAI_API_KEY") {
		t.Errorf("error %q does not name the environment variable", err)
	}
}

func TestNew_CorruptPersistDirIsNotFatal(t *testing.T) {
	persist := filepath.Join(t.TempDir(), "kb")
	if err := os.MkdirAll(persist, 0o755); err != nil {
		t.Fatal(err)
	}
	// chromem stores collections as subdirectories; a stray file with the
	// collection layout confuses the loader but must not break startup.
	if err := os.WriteFile(filepath.Join(persist, "00000000"), []byte("junk"), 0o644); err != nil {
		t.Fatal(err)
	}

	p := newTestProcessor(t, testConfig(t, persist))
	if got := p.Stats(context.Background()); got.Status != StatusEmpty && got.Status != StatusActive {
		t.Errorf("unexpected status %q", got.Status)
	}
}
