// Package registry loads the document-type registry: the single source of
// truth binding classification vocabulary, field specifications, and
// extraction prompt templates.
package registry

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/tradefinlabs/docpipeline/constants"
)

// FieldSpec declares one extractable field of a document type.
type FieldSpec struct {
	Name     string `yaml:"name"`
	Type     string `yaml:"type"` // string | number | currency | date
	Required bool   `yaml:"required"`
}

// DocumentTypeConfig describes one registry entry.
type DocumentTypeConfig struct {
	Type             string      `yaml:"type"`
	Category         string      `yaml:"category"`
	Description      string      `yaml:"description"`
	Extract          bool        `yaml:"extract"`
	Fields           []FieldSpec `yaml:"fields"`
	ExtractionPrompt string      `yaml:"extraction_prompt"` // template with a {text} slot
}

// Registry is the loaded document-type registry. Read-only after load.
type Registry struct {
	Documents []DocumentTypeConfig `yaml:"documents"`

	byType map[string]*DocumentTypeConfig
}

// Load reads the registry YAML from path.
func Load(path string, logger *slog.Logger) (*Registry, error) {
	if logger == nil {
		logger = slog.Default()
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read registry: %w", err)
	}
	var reg Registry
	if err := yaml.Unmarshal(raw, &reg); err != nil {
		return nil, fmt.Errorf("parse registry: %w", err)
	}
	if len(reg.Documents) == 0 {
		return nil, fmt.Errorf("registry %s declares no document types", path)
	}
	reg.index()
	logger.Info("registry.loaded",
		"path", path,
		"types", len(reg.Documents),
		"extraction_enabled", reg.ExtractionEnabledCount(),
	)
	return &reg, nil
}

func (r *Registry) index() {
	r.byType = make(map[string]*DocumentTypeConfig, len(r.Documents))
	for i := range r.Documents {
		doc := &r.Documents[i]
		doc.Type = strings.TrimSpace(doc.Type)
		r.byType[doc.Type] = doc
	}
}

// Lookup returns the config for a document type, or nil if unregistered.
func (r *Registry) Lookup(docType string) *DocumentTypeConfig {
	return r.byType[docType]
}

// Has reports whether docType is a registered type.
func (r *Registry) Has(docType string) bool {
	_, ok := r.byType[docType]
	return ok
}

// Types returns all registered type keys in declaration order.
func (r *Registry) Types() []string {
	out := make([]string, 0, len(r.Documents))
	for _, d := range r.Documents {
		out = append(out, d.Type)
	}
	return out
}

// ByCategory groups entries by their registry category, preserving
// declaration order inside each group.
func (r *Registry) ByCategory() map[string][]DocumentTypeConfig {
	out := make(map[string][]DocumentTypeConfig)
	for _, d := range r.Documents {
		cat := d.Category
		if cat == "" {
			cat = constants.CategoryUnknown
		}
		out[cat] = append(out[cat], d)
	}
	return out
}

// ExtractionEnabledCount reports how many types have extraction enabled.
func (r *Registry) ExtractionEnabledCount() int {
	n := 0
	for _, d := range r.Documents {
		if d.Extract {
			n++
		}
	}
	return n
}
