package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/quarry-ai/quarry/internal/rag"
)

// Manifest is a declarative list of resources to ingest, typically checked
// into the repository whose knowledge base it describes.
//
//	resources:
//	  - url: ./docs/architecture.md
//	    resource_type: guidelines
//	    priority: 2
//	    tags: [architecture]
//	  - url: https://example.com/handbook
//	    resource_type: contextual
//	    splitter:
//	      chunk_size: 500
//	      chunk_overlap: 50
type Manifest struct {
	Resources []rag.ResourceConfig `yaml:"resources"`
}

// LoadManifest reads and validates a resource manifest. Unset fields get the
// same defaults the programmatic API applies.
func LoadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading manifest: %w", err)
	}

	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parsing manifest %s: %w", path, err)
	}
	if len(m.Resources) == 0 {
		return nil, fmt.Errorf("manifest %s declares no resources", path)
	}

	for i := range m.Resources {
		m.Resources[i].ApplyDefaults()
		if err := m.Resources[i].Validate(); err != nil {
			return nil, fmt.Errorf("manifest %s, resource %d: %w", path, i+1, err)
		}
	}
	return &m, nil
}
