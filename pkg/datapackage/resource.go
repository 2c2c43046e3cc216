package datapackage

import (
	"encoding/json"
	"fmt"
)

// TabularDataResource is the strongly-typed form of a resource record:
// named rows of data described by a schema, plus the transient format
// schema merged in at load time.
type TabularDataResource struct {
	// Name identifies the resource within its datapackage.
	Name string

	// Profile is the resource variant tag.
	Profile Profile

	// Schema describes the data columns. May be inherited from a format.
	Schema Schema

	// Data is the row payload. Empty until the datapackage has executed.
	Data []map[string]any

	// Format is the schema of the format this resource was loaded with.
	// Caller-supplied context, never persisted: the write path strips it.
	Format map[string]any

	// extra holds fields this package does not interpret (title,
	// description, mediatype and the like) so a write never drops them.
	extra map[string]json.RawMessage
}

// knownResourceFields are the fields lifted out of the raw record.
var knownResourceFields = []string{"name", "profile", "schema", "data", "format"}

// UnmarshalJSON decodes a resource record, keeping unrecognized fields for
// round-tripping.
func (r *TabularDataResource) UnmarshalJSON(b []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}

	if v, ok := raw["name"]; ok {
		if err := json.Unmarshal(v, &r.Name); err != nil {
			return fmt.Errorf("invalid resource name: %w", err)
		}
	}
	if v, ok := raw["profile"]; ok {
		if err := json.Unmarshal(v, &r.Profile); err != nil {
			return fmt.Errorf("invalid resource profile: %w", err)
		}
	}
	if v, ok := raw["schema"]; ok {
		if err := json.Unmarshal(v, &r.Schema); err != nil {
			return fmt.Errorf("invalid resource schema: %w", err)
		}
	}
	if v, ok := raw["data"]; ok && string(v) != "null" {
		if err := json.Unmarshal(v, &r.Data); err != nil {
			return fmt.Errorf("invalid resource data: %w", err)
		}
	}
	if v, ok := raw["format"]; ok && string(v) != "null" {
		if err := json.Unmarshal(v, &r.Format); err != nil {
			return fmt.Errorf("invalid resource format: %w", err)
		}
	}

	for _, k := range knownResourceFields {
		delete(raw, k)
	}
	r.extra = raw
	return nil
}

// MarshalJSON emits the persistable form of the resource: no transient
// format field, and an inherited schema collapsed back to its sentinel.
func (r TabularDataResource) MarshalJSON() ([]byte, error) {
	out := make(map[string]json.RawMessage, len(r.extra)+4)
	for k, v := range r.extra {
		out[k] = v
	}

	var err error
	if out["name"], err = json.Marshal(r.Name); err != nil {
		return nil, err
	}
	if out["profile"], err = json.Marshal(r.Profile); err != nil {
		return nil, err
	}
	if out["schema"], err = json.Marshal(r.Schema); err != nil {
		return nil, err
	}
	data := r.Data
	if data == nil {
		data = []map[string]any{}
	}
	if out["data"], err = json.Marshal(data); err != nil {
		return nil, err
	}

	return json.Marshal(out)
}

// ToMap returns the in-memory raw-record form of the resource, the shape a
// containerized algorithm sees: transient format included, and an inherited
// schema expanded to its object form with the format marker set.
func (r *TabularDataResource) ToMap() (map[string]any, error) {
	out := make(map[string]any, len(r.extra)+5)
	for k, v := range r.extra {
		var val any
		if err := json.Unmarshal(v, &val); err != nil {
			return nil, fmt.Errorf("invalid field %q: %w", k, err)
		}
		out[k] = val
	}

	out["name"] = r.Name
	out["profile"] = string(r.Profile)

	data := make([]any, len(r.Data))
	for i, row := range r.Data {
		data[i] = row
	}
	out["data"] = data

	format := r.Format
	if format == nil {
		format = map[string]any{}
	}
	out["format"] = format

	switch {
	case r.Schema.Inherited && r.Schema.Fields != nil:
		schema := make(map[string]any, len(r.Schema.Fields)+1)
		for k, v := range r.Schema.Fields {
			schema[k] = v
		}
		schema["type"] = schemaFormatMarker
		out["schema"] = schema
	case r.Schema.Inherited:
		out["schema"] = SchemaInherit
	default:
		out["schema"] = r.Schema.Fields
	}

	return out, nil
}
