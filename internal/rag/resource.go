package rag

import (
	"fmt"
	"net/url"
	"path/filepath"
	"strings"

	"github.com/quarry-ai/quarry/internal/loader"
	"github.com/quarry-ai/quarry/internal/splitter"
)

// ResourceType tags a resource for query-time filtering.
type ResourceType string

// Recognized resource types.
const (
	ResourceDSL         ResourceType = "dsl"
	ResourceContextual  ResourceType = "contextual"
	ResourceGuidelines  ResourceType = "guidelines"
	ResourceDomainRules ResourceType = "domain_rules"
)

func (t ResourceType) valid() bool {
	switch t {
	case ResourceDSL, ResourceContextual, ResourceGuidelines, ResourceDomainRules:
		return true
	}
	return false
}

// ResourceConfig declares one ingestible source: where it lives, how to load
// and split it, and the metadata every derived chunk carries. Immutable once
// constructed.
type ResourceConfig struct {
	URL          string           `yaml:"url" json:"url"`
	ResourceType ResourceType     `yaml:"resource_type" json:"resource_type"`
	Loader       loader.Config    `yaml:"loader,omitempty" json:"loader,omitempty"`
	Splitter     splitter.Config  `yaml:"splitter,omitempty" json:"splitter,omitempty"`
	Priority     int              `yaml:"priority,omitempty" json:"priority,omitempty"`
	Tags         []string         `yaml:"tags,omitempty" json:"tags,omitempty"`
	Metadata     map[string]any   `yaml:"metadata,omitempty" json:"metadata,omitempty"`
}

// Validate checks the declaration itself (not reachability, which is
// ValidateResource's job on the processor).
func (r ResourceConfig) Validate() error {
	if r.URL == "" {
		return fmt.Errorf("resource url must not be empty")
	}
	if !r.ResourceType.valid() {
		return fmt.Errorf("unknown resource_type %q (recognized: %s, %s, %s, %s)",
			r.ResourceType, ResourceDSL, ResourceContextual, ResourceGuidelines, ResourceDomainRules)
	}
	return nil
}

// ResourceOption overrides a default on a resource built by
// NewResourceFromURL.
type ResourceOption func(*ResourceConfig)

// WithChunkSize sets the splitter chunk size.
func WithChunkSize(n int) ResourceOption {
	return func(r *ResourceConfig) { r.Splitter.ChunkSize = n }
}

// WithChunkOverlap sets the splitter chunk overlap.
func WithChunkOverlap(n int) ResourceOption {
	return func(r *ResourceConfig) { r.Splitter.ChunkOverlap = n }
}

// WithPriority sets the caller-side ranking priority.
func WithPriority(p int) ResourceOption {
	return func(r *ResourceConfig) { r.Priority = p }
}

// WithTags sets the free-form tags.
func WithTags(tags ...string) ResourceOption {
	return func(r *ResourceConfig) { r.Tags = tags }
}

// WithMetadata sets the resource-level metadata merged into every chunk.
func WithMetadata(meta map[string]any) ResourceOption {
	return func(r *ResourceConfig) { r.Metadata = meta }
}

// WithLoader replaces the inferred loader config.
func WithLoader(cfg loader.Config) ResourceOption {
	return func(r *ResourceConfig) { r.Loader = cfg }
}

// WithSplitter replaces the default splitter config.
func WithSplitter(cfg splitter.Config) ResourceOption {
	return func(r *ResourceConfig) { r.Splitter = cfg }
}

// NewResourceFromURL builds a ResourceConfig with defaults appropriate to
// the URL shape: the loader type is inferred from the scheme/extension and
// the splitter follows the loader (markdown files get the markdown splitter,
// everything else the recursive one).
func NewResourceFromURL(sourceURL string, resourceType ResourceType, opts ...ResourceOption) ResourceConfig {
	r := ResourceConfig{
		URL:          sourceURL,
		ResourceType: resourceType,
		Loader:       loader.Config{Type: loader.InferType(sourceURL)},
		Splitter:     defaultSplitterFor(sourceURL),
		Priority:     1,
	}
	for _, opt := range opts {
		opt(&r)
	}
	return r
}

// ApplyDefaults fills zero-valued fields the same way NewResourceFromURL
// would: inferred loader type, URL-appropriate splitter, priority 1. Used
// when resources arrive from declarative sources (YAML manifests, HTTP
// payloads) instead of the options API.
func (r *ResourceConfig) ApplyDefaults() {
	if r.Loader.Type == "" {
		r.Loader.Type = loader.InferType(r.URL)
	}
	if r.Splitter.Type == "" {
		r.Splitter.Type = defaultSplitterFor(r.URL).Type
	}
	if r.Priority == 0 {
		r.Priority = 1
	}
}

func defaultSplitterFor(sourceURL string) splitter.Config {
	path := sourceURL
	if u, err := url.Parse(sourceURL); err == nil && u.Path != "" {
		path = u.Path
	}
	if strings.EqualFold(filepath.Ext(path), ".md") {
		return splitter.Config{Type: splitter.TypeMarkdown}
	}
	return splitter.Config{Type: splitter.TypeRecursive}
}
