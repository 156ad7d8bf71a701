package toolrouter

import (
	"fmt"
	"io"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/flowmesh-dev/mcp-peer/internal/protocol"
)

// manifestValidate is a package-level validator instance, matching the
// single-instance-reuse pattern validator/v10 recommends (it builds an
// internal struct-field cache keyed by reflect.Type).
var manifestValidate = validator.New()

// ManifestEntry describes one statically declared tool, as loaded from a
// YAML manifest file rather than registered in code.
type ManifestEntry struct {
	Name         string         `yaml:"name" validate:"required"`
	Description  string         `yaml:"description" validate:"required"`
	InputSchema  map[string]any `yaml:"inputSchema" validate:"required"`
	OutputSchema map[string]any `yaml:"outputSchema,omitempty"`
	ReadOnly     bool           `yaml:"readOnly,omitempty"`
	Destructive  bool           `yaml:"destructive,omitempty"`
}

// Manifest is the top-level shape of a tool manifest file: a flat list of
// tool descriptors.
type Manifest struct {
	Tools []ManifestEntry `yaml:"tools" validate:"dive"`
}

// LoadManifest decodes and validates a tool manifest from r. It does not
// register any tools; callers pair each validated entry with a Tool
// implementation (typically one built around the entry's schema) and call
// Router.Register themselves.
func LoadManifest(r io.Reader) (*Manifest, error) {
	var m Manifest
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&m); err != nil {
		return nil, fmt.Errorf("decode tool manifest: %w", err)
	}

	if err := manifestValidate.Struct(&m); err != nil {
		return nil, fmt.Errorf("validate tool manifest: %w", err)
	}

	seen := make(map[string]bool, len(m.Tools))
	for _, t := range m.Tools {
		if seen[t.Name] {
			return nil, fmt.Errorf("validate tool manifest: duplicate tool name %q", t.Name)
		}
		seen[t.Name] = true
	}

	return &m, nil
}

// Definition converts a validated manifest entry into the wire-level
// ToolDefinition used for tools/list discovery.
func (e ManifestEntry) Definition() protocol.ToolDefinition {
	return protocol.ToolDefinition{
		Name:         e.Name,
		Description:  e.Description,
		InputSchema:  e.InputSchema,
		OutputSchema: e.OutputSchema,
		Annotations: &protocol.ToolAnnotations{
			ReadOnlyHint:    e.ReadOnly,
			DestructiveHint: e.Destructive,
		},
	}
}
