package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quarry-ai/quarry/internal/rag"
)

func postResources(t *testing.T, handler http.Handler, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/resources", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestResources_Add(t *testing.T) {
	t.Parallel()

	var captured []rag.ResourceConfig
	kb := &fakeKnowledge{
		addFunc: func(_ context.Context, resources []rag.ResourceConfig) (rag.Summary, error) {
			captured = resources
			return rag.Summary{
				TotalResources: len(resources),
				Successful:     len(resources),
				TotalDocuments: 7,
			}, nil
		},
	}
	handler := newTestServer(kb)

	rec := postResources(t, handler, `{
		"resources": [
			{"url": "./docs/guide.md", "resource_type": "guidelines", "priority": 2},
			{"url": "https://example.com/handbook", "resource_type": "contextual"}
		]
	}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var summary rag.Summary
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &summary))
	assert.Equal(t, 2, summary.TotalResources)
	assert.Equal(t, 7, summary.TotalDocuments)

	// Defaults are applied before the pipeline sees the resources.
	require.Len(t, captured, 2)
	assert.Equal(t, "file", captured[0].Loader.Type)
	assert.Equal(t, "markdown", captured[0].Splitter.Type)
	assert.Equal(t, 2, captured[0].Priority)
	assert.Equal(t, "web", captured[1].Loader.Type)
	assert.Equal(t, 1, captured[1].Priority)
}

func TestResources_PartialFailureIsOK(t *testing.T) {
	t.Parallel()

	kb := &fakeKnowledge{
		addFunc: func(_ context.Context, resources []rag.ResourceConfig) (rag.Summary, error) {
			return rag.Summary{
				TotalResources: 2,
				Successful:     1,
				Failed:         1,
				Errors:         []string{"No documents from ./gone.txt"},
			}, nil
		},
	}
	rec := postResources(t, newTestServer(kb), `{
		"resources": [
			{"url": "./ok.txt", "resource_type": "dsl"},
			{"url": "./gone.txt", "resource_type": "dsl"}
		]
	}`)

	require.Equal(t, http.StatusOK, rec.Code)
	var summary rag.Summary
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &summary))
	assert.Equal(t, 1, summary.Failed)
	assert.Len(t, summary.Errors, 1)
}

func TestResources_BadRequests(t *testing.T) {
	t.Parallel()
	handler := newTestServer(&fakeKnowledge{})

	tests := []struct {
		name string
		body string
	}{
		{"not json", "not json"},
		{"empty list", `{"resources": []}`},
		{"missing url", `{"resources": [{"resource_type": "dsl"}]}`},
		{"unknown resource_type", `{"resources": [{"url": "./a.txt", "resource_type": "secret"}]}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := postResources(t, handler, tt.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)

			var resp ErrorResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
			assert.NotEmpty(t, resp.Error)
		})
	}
}

func TestResources_TooManyResources(t *testing.T) {
	t.Parallel()

	var sb strings.Builder
	sb.WriteString(`{"resources": [`)
	for i := 0; i <= MaxResourcesPerRequest; i++ {
		if i > 0 {
			sb.WriteString(",")
		}
		sb.WriteString(`{"url": "./a.txt", "resource_type": "dsl"}`)
	}
	sb.WriteString(`]}`)

	rec := postResources(t, newTestServer(&fakeKnowledge{}), sb.String())
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
