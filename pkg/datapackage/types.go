package datapackage

import (
	"encoding/json"
	"fmt"
)

// Profile identifies the kind of a resource record.
type Profile string

const (
	// ProfileTabular is a plain tabular data resource.
	ProfileTabular Profile = "tabular-data-resource"

	// ProfileParameterTabular is a tabular resource holding algorithm
	// parameters rather than data rows.
	ProfileParameterTabular Profile = "parameter-tabular-data-resource"
)

// SchemaInherit is the on-disk schema value meaning "use the associated
// format's schema at load time; do not store a literal copy".
const SchemaInherit = "inherit-from-format"

// schemaFormatMarker tags an in-memory schema object as copied from a
// format, so raw-record consumers can tell it apart from a resource-owned
// schema. It never reaches disk.
const schemaFormatMarker = "format"

// Schema is a resource schema: either an explicit object owned by the
// resource, or one inherited from a format at load time. An inherited
// schema holds the format's fields in memory but always persists as the
// SchemaInherit sentinel.
type Schema struct {
	// Fields is the schema object. Nil for an inherited schema that has
	// not been merged with its format yet.
	Fields map[string]any

	// Inherited reports that this schema came from a format and must be
	// written back as the SchemaInherit sentinel, never as a literal copy.
	Inherited bool
}

// UnmarshalJSON decodes either the sentinel string or a schema object.
func (s *Schema) UnmarshalJSON(b []byte) error {
	var sentinel string
	if err := json.Unmarshal(b, &sentinel); err == nil {
		if sentinel != SchemaInherit {
			return fmt.Errorf("unknown schema sentinel %q", sentinel)
		}
		*s = Schema{Inherited: true}
		return nil
	}

	var fields map[string]any
	if err := json.Unmarshal(b, &fields); err != nil {
		return fmt.Errorf("schema must be an object or %q: %w", SchemaInherit, err)
	}

	// A raw record round-tripped through a container may carry the
	// in-memory format marker. Honor it so the schema is not claimed as
	// resource-owned.
	inherited := false
	if t, ok := fields["type"]; ok && t == schemaFormatMarker {
		inherited = true
		delete(fields, "type")
	}

	*s = Schema{Fields: fields, Inherited: inherited}
	return nil
}

// MarshalJSON emits the sentinel for inherited schemas and the literal
// object otherwise.
func (s Schema) MarshalJSON() ([]byte, error) {
	if s.Inherited {
		return json.Marshal(SchemaInherit)
	}
	if s.Fields == nil {
		return json.Marshal(map[string]any{})
	}
	return json.Marshal(s.Fields)
}

// VariableBinding binds a configuration variable to a resource and the
// format that resource should be loaded with.
type VariableBinding struct {
	Name     string `json:"name" validate:"required"`
	Resource string `json:"resource" validate:"required"`
	Format   string `json:"format"`
}

// Configuration names the container image to run and the variable bindings
// the containerized algorithm resolves resources through.
type Configuration struct {
	Name      string            `json:"name" validate:"required"`
	Title     string            `json:"title,omitempty"`
	Container string            `json:"container" validate:"required"`
	Data      []VariableBinding `json:"data"`
}

// View names the container image that renders it and the resources it
// reads. All listed resources must be populated before the view can run.
type View struct {
	Name      string   `json:"name"`
	Title     string   `json:"title,omitempty"`
	Container string   `json:"container" validate:"required"`
	Resources []string `json:"resources"`
	Specs     []string `json:"specs,omitempty"`
}

// Format is a reusable schema definition resources may inherit from.
type Format struct {
	Name   string         `json:"name"`
	Title  string         `json:"title,omitempty"`
	Schema map[string]any `json:"schema" validate:"required"`
}

// Metadata is the datapackage-level record. Updated is advanced on every
// successful resource write; the remaining fields (resource manifest and
// friends) pass through untouched.
type Metadata struct {
	Updated int64 `json:"updated"`

	extra map[string]json.RawMessage
}

// UnmarshalJSON keeps unrecognized fields so a rewrite never loses the
// resource manifest.
func (m *Metadata) UnmarshalJSON(b []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	if v, ok := raw["updated"]; ok {
		if err := json.Unmarshal(v, &m.Updated); err != nil {
			return fmt.Errorf("invalid updated timestamp: %w", err)
		}
		delete(raw, "updated")
	}
	m.extra = raw
	return nil
}

// MarshalJSON re-emits passthrough fields alongside the updated timestamp.
func (m Metadata) MarshalJSON() ([]byte, error) {
	out := make(map[string]json.RawMessage, len(m.extra)+1)
	for k, v := range m.extra {
		out[k] = v
	}
	updated, err := json.Marshal(m.Updated)
	if err != nil {
		return nil, err
	}
	out["updated"] = updated
	return json.Marshal(out)
}
