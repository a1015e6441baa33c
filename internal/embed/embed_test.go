package embed

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestNew_MissingAPIKey(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")
	t.Setenv("COHERE_API_KEY", "")

	for _, typ := range []string{TypeOpenAI, TypeCohere} {
		_, err := New(context.Background(), Config{Type: typ})
		if err == nil {
			t.Errorf("%s: expected error without API key", typ)
			continue
		}
		if !strings.Contains(err.Error(), "API_KEY") {
			t.Errorf("%s: error should name the missing variable: %v", typ, err)
		}
	}
}

func TestNew_UnsupportedType(t *testing.T) {
	_, err := New(context.Background(), Config{Type: "telepathy"})
	if err == nil {
		t.Fatal("expected error for unsupported provider type")
	}
	if !strings.Contains(err.Error(), "telepathy") {
		t.Errorf("error should name the bad type: %v", err)
	}
}

func TestNew_OllamaNeedsNoKey(t *testing.T) {
	p, err := New(context.Background(), Config{Type: TypeOllama})
	if err != nil {
		t.Fatalf("ollama provider: %v", err)
	}
	if p.Model() != DefaultOllamaModel {
		t.Errorf("model = %q, want %q", p.Model(), DefaultOllamaModel)
	}
}

func TestOpenAI_EmbedDocuments(t *testing.T) {
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		if r.URL.Path != "/embeddings" {
			t.Errorf("path = %q", r.URL.Path)
		}

		var req openaiEmbedRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatal(err)
		}

		// Answer out of order to exercise index-based reordering.
		resp := openaiEmbedResponse{}
		for i := len(req.Input) - 1; i >= 0; i-- {
			resp.Data = append(resp.Data, struct {
				Index     int       `json:"index"`
				Embedding []float32 `json:"embedding"`
			}{Index: i, Embedding: []float32{float32(i), 1}})
		}
		json.NewEncoder(w).Encode(resp)
	}))
	defer srv.Close()

	p := newOpenAI(Config{BaseURL: srv.URL, Model: "test-model"}, "sk-test")
	vectors, err := p.EmbedDocuments(context.Background(), []string{"alpha", "beta", "gamma"})
	if err != nil {
		t.Fatal(err)
	}
	if gotAuth != "Bearer sk-test" {
		t.Errorf("Authorization = %q", gotAuth)
	}
	if len(vectors) != 3 {
		t.Fatalf("got %d vectors", len(vectors))
	}
	for i, v := range vectors {
		if v[0] != float32(i) {
			t.Errorf("vector %d not in input order: %v", i, v)
		}
	}
}

func TestOpenAI_APIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"error":{"message":"Incorrect API key provided","type":"invalid_request_error"}}`))
	}))
	defer srv.Close()

	p := newOpenAI(Config{BaseURL: srv.URL}, "sk-bad")
	_, err := p.EmbedQuery(context.Background(), "hello")
	if err == nil {
		t.Fatal("expected error for 401 response")
	}
	if !strings.Contains(err.Error(), "Incorrect API key") {
		t.Errorf("error should carry the API message: %v", err)
	}
}

func TestCohere_InputTypes(t *testing.T) {
	var inputTypes []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req cohereEmbedRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatal(err)
		}
		inputTypes = append(inputTypes, req.InputType)

		resp := cohereEmbedResponse{}
		for range req.Texts {
			resp.Embeddings = append(resp.Embeddings, []float32{0.1, 0.2})
		}
		json.NewEncoder(w).Encode(resp)
	}))
	defer srv.Close()

	p := newCohere(Config{BaseURL: srv.URL}, "co-test")

	if _, err := p.EmbedDocuments(context.Background(), []string{"a", "b"}); err != nil {
		t.Fatal(err)
	}
	if _, err := p.EmbedQuery(context.Background(), "q"); err != nil {
		t.Fatal(err)
	}

	want := []string{cohereInputDocument, cohereInputQuery}
	for i, w := range want {
		if inputTypes[i] != w {
			t.Errorf("request %d input_type = %q, want %q", i, inputTypes[i], w)
		}
	}
}

func TestOllama_Embed(t *testing.T) {
	var prompts []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/embeddings" {
			t.Errorf("path = %q", r.URL.Path)
		}
		var req ollamaEmbedRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatal(err)
		}
		prompts = append(prompts, req.Prompt)
		json.NewEncoder(w).Encode(ollamaEmbedResponse{Embedding: []float64{0.5, 0.25}})
	}))
	defer srv.Close()

	p := newOllama(Config{BaseURL: srv.URL, Model: "nomic-embed-text"})
	vectors, err := p.EmbedDocuments(context.Background(), []string{"one", "two"})
	if err != nil {
		t.Fatal(err)
	}
	if len(vectors) != 2 || len(prompts) != 2 {
		t.Fatalf("vectors=%d prompts=%d", len(vectors), len(prompts))
	}
	if vectors[0][0] != 0.5 {
		t.Errorf("float64 response not converted: %v", vectors[0])
	}
}

func TestOllama_ModelError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		json.NewEncoder(w).Encode(ollamaEmbedResponse{Error: `model "missing" not found, try pulling it first`})
	}))
	defer srv.Close()

	p := newOllama(Config{BaseURL: srv.URL, Model: "missing"})
	_, err := p.EmbedQuery(context.Background(), "hello")
	if err == nil {
		t.Fatal("expected error for missing model")
	}
	if !strings.Contains(err.Error(), "try pulling it first") {
		t.Errorf("error should carry the server message: %v", err)
	}
}
