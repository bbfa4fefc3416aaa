// Package catalog loads the demo host's tenant-scope catalog from an
// optional YAML file, letting an operator add scope kinds (e.g. "team",
// "workspace") without a code change.
package catalog

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/ignitergo/connectors/connectors"
)

// Scope mirrors connectors.ScopeDefinition with YAML tags.
type Scope struct {
	Key      string `yaml:"key"`
	Required bool   `yaml:"required"`
}

// Document is the top-level shape of a scope catalog file.
type Document struct {
	Scopes []Scope `yaml:"scopes"`
}

// Load reads and parses a scope catalog file. An empty path is not an
// error; it returns a nil slice so the caller can fall back to defaults.
func Load(path string) ([]connectors.ScopeDefinition, error) {
	if path == "" {
		return nil, nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("catalog: read %s: %w", path, err)
	}

	var doc Document
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("catalog: parse %s: %w", path, err)
	}

	defs := make([]connectors.ScopeDefinition, 0, len(doc.Scopes))
	for _, s := range doc.Scopes {
		defs = append(defs, connectors.ScopeDefinition{Key: s.Key, Required: s.Required})
	}
	return defs, nil
}
