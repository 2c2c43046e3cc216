package datapackage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
)

// Directory names for the record kinds under a datapackage base path.
const (
	ConfigurationsDir = "configurations"
	ViewsDir          = "views"
	ResourcesDir      = "resources"
	FormatsDir        = "formats"

	// MetadataFile is the datapackage-level metadata record.
	MetadataFile = "datapackage.json"
)

// Store reads and writes the records of a single datapackage rooted at a
// base path. The base path is an explicit value; there is no process-wide
// default. Store applies no locking: concurrent writers to the same record
// race and the last writer wins.
type Store struct {
	basePath string
	validate *validator.Validate
	logger   zerolog.Logger
}

// NewStore creates a store for the datapackage at basePath.
func NewStore(basePath string, logger zerolog.Logger) *Store {
	return &Store{
		basePath: basePath,
		validate: validator.New(),
		logger:   logger.With().Str("component", "datapackage-store").Logger(),
	}
}

// BasePath returns the datapackage root this store operates on.
func (s *Store) BasePath() string {
	return s.basePath
}

// ResourcePath returns the on-disk path of a named resource record.
func (s *Store) ResourcePath(name string) string {
	return filepath.Join(s.basePath, ResourcesDir, name+".json")
}

// LoadConfiguration loads a named run configuration.
func (s *Store) LoadConfiguration(name string) (*Configuration, error) {
	var cfg Configuration
	path := filepath.Join(s.basePath, ConfigurationsDir, name+".json")
	if err := s.readRecord("configuration", name, path, &cfg); err != nil {
		return nil, err
	}
	if err := s.validate.Struct(&cfg); err != nil {
		return nil, &NotFoundError{Kind: "configuration", Name: name, Err: err}
	}
	return &cfg, nil
}

// WriteConfiguration fully replaces the configuration record keyed by the
// record's own name. No merge, no partial update.
func (s *Store) WriteConfiguration(cfg *Configuration) error {
	if err := s.validate.Struct(cfg); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	path := filepath.Join(s.basePath, ConfigurationsDir, cfg.Name+".json")
	if err := s.writeRecord(path, cfg); err != nil {
		return fmt.Errorf("failed to write configuration %q: %w", cfg.Name, err)
	}
	s.logger.Debug().Str("configuration", cfg.Name).Msg("Configuration written")
	return nil
}

// LoadView loads a named view.
func (s *Store) LoadView(name string) (*View, error) {
	var view View
	path := filepath.Join(s.basePath, ViewsDir, name+".json")
	if err := s.readRecord("view", name, path, &view); err != nil {
		return nil, err
	}
	if err := s.validate.Struct(&view); err != nil {
		return nil, &NotFoundError{Kind: "view", Name: name, Err: err}
	}
	return &view, nil
}

// LoadFormat loads a named format definition.
func (s *Store) LoadFormat(name string) (*Format, error) {
	var format Format
	path := filepath.Join(s.basePath, FormatsDir, name+".json")
	if err := s.readRecord("format", name, path, &format); err != nil {
		return nil, err
	}
	return &format, nil
}

// LoadMetadata loads the datapackage metadata record.
func (s *Store) LoadMetadata() (*Metadata, error) {
	var meta Metadata
	path := filepath.Join(s.basePath, MetadataFile)
	if err := s.readRecord("datapackage", s.basePath, path, &meta); err != nil {
		return nil, err
	}
	return &meta, nil
}

// LoadResource loads a named resource as a typed tabular value, merged
// with the named format. formatName may be empty, in which case the
// transient format is an empty placeholder; callers that only read data
// (view rendering, for one) do not need a format. The format association
// is not persisted on the resource, so it must be re-supplied on every
// load.
func (s *Store) LoadResource(name, formatName string) (*TabularDataResource, error) {
	var resource TabularDataResource
	if err := s.readRecord("resource", name, s.ResourcePath(name), &resource); err != nil {
		return nil, err
	}

	if resource.Profile != ProfileTabular && resource.Profile != ProfileParameterTabular {
		return nil, &UnsupportedProfileError{Resource: name, Profile: string(resource.Profile)}
	}

	if formatName == "" {
		resource.Format = map[string]any{}
		return &resource, nil
	}

	format, err := s.LoadFormat(formatName)
	if err != nil {
		return nil, err
	}

	resource.Format = format.Schema
	if resource.Schema.Inherited {
		fields, err := cloneSchema(format.Schema)
		if err != nil {
			return nil, fmt.Errorf("failed to copy format %q schema: %w", formatName, err)
		}
		resource.Schema.Fields = fields
	}

	s.logger.Debug().
		Str("resource", name).
		Str("format", formatName).
		Bool("schema_inherited", resource.Schema.Inherited).
		Msg("Resource loaded")

	return &resource, nil
}

// LoadResourceMap loads a named resource as a raw record, merged with the
// named format at the map level: the format's schema lands in the record's
// "format" field, and a sentinel schema is replaced by a schema object
// tagged with type "format" so the write path knows not to persist it.
// This is the record shape a containerized algorithm reads and writes.
func (s *Store) LoadResourceMap(name, formatName string) (map[string]any, error) {
	rec, err := s.LoadRawResource(name)
	if err != nil {
		return nil, err
	}

	if formatName == "" {
		rec["format"] = map[string]any{}
		return rec, nil
	}

	format, err := s.LoadFormat(formatName)
	if err != nil {
		return nil, err
	}

	rec["format"] = format.Schema
	if sentinel, ok := rec["schema"].(string); ok && sentinel == SchemaInherit {
		schema, err := cloneSchema(format.Schema)
		if err != nil {
			return nil, fmt.Errorf("failed to copy format %q schema: %w", formatName, err)
		}
		schema["type"] = schemaFormatMarker
		rec["schema"] = schema
	}

	return rec, nil
}

// LoadRawResource reads a resource record without any format merging.
func (s *Store) LoadRawResource(name string) (map[string]any, error) {
	var rec map[string]any
	if err := s.readRecord("resource", name, s.ResourcePath(name), &rec); err != nil {
		return nil, err
	}
	return rec, nil
}

// LoadResourceByVariable loads the resource bound to a configuration
// variable, merged with the binding's format. Bindings are scanned in
// declared order; the first match wins.
func (s *Store) LoadResourceByVariable(variableName, configurationName string) (*TabularDataResource, error) {
	cfg, err := s.LoadConfiguration(configurationName)
	if err != nil {
		return nil, err
	}

	for _, binding := range cfg.Data {
		if binding.Name == variableName {
			return s.LoadResource(binding.Resource, binding.Format)
		}
	}

	return nil, &VariableNotFoundError{Variable: variableName, Configuration: configurationName}
}

// WriteResource persists a resource record and then advances the
// datapackage metadata timestamp. The transient format field is never
// written, and an inherited schema is written as its sentinel rather than
// the copied format object. The metadata update is a best-effort second
// step, deliberately not atomic with the resource write.
func (s *Store) WriteResource(resource *TabularDataResource) error {
	if err := s.writeRecord(s.ResourcePath(resource.Name), resource); err != nil {
		return fmt.Errorf("failed to write resource %q: %w", resource.Name, err)
	}

	s.logger.Debug().Str("resource", resource.Name).Msg("Resource written")
	return s.touchMetadata()
}

// WriteResourceMap persists a raw resource record, applying the same
// format-stripping contract as WriteResource.
func (s *Store) WriteResourceMap(rec map[string]any) error {
	name, ok := rec["name"].(string)
	if !ok || name == "" {
		return fmt.Errorf("resource record has no name")
	}

	delete(rec, "format")
	if schema, ok := rec["schema"].(map[string]any); ok {
		if t, ok := schema["type"].(string); ok && t == schemaFormatMarker {
			rec["schema"] = SchemaInherit
		}
	}

	if err := s.writeRecord(s.ResourcePath(name), rec); err != nil {
		return fmt.Errorf("failed to write resource %q: %w", name, err)
	}

	s.logger.Debug().Str("resource", name).Msg("Resource written")
	return s.touchMetadata()
}

// touchMetadata rewrites the datapackage metadata with a fresh updated
// timestamp. Runs after every resource write; a crash between the two
// writes leaves the timestamp stale but the resource intact.
func (s *Store) touchMetadata() error {
	meta, err := s.LoadMetadata()
	if err != nil {
		return err
	}

	meta.Updated = time.Now().Unix()
	if err := s.writeRecord(filepath.Join(s.basePath, MetadataFile), meta); err != nil {
		return fmt.Errorf("failed to update datapackage metadata: %w", err)
	}
	return nil
}

// readRecord decodes one JSON record file into out. Missing and malformed
// files are both reported as NotFoundError, keyed by record kind and name.
func (s *Store) readRecord(kind, name, path string, out any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return &NotFoundError{Kind: kind, Name: name, Err: err}
	}
	if err := json.Unmarshal(data, out); err != nil {
		return &NotFoundError{Kind: kind, Name: name, Err: err}
	}
	return nil
}

// writeRecord serializes one record to its file, replacing any previous
// contents.
func (s *Store) writeRecord(path string, record any) error {
	data, err := json.MarshalIndent(record, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, append(data, '\n'), 0o644)
}

// cloneSchema deep-copies a schema object so a resource never aliases the
// format definition it inherited from.
func cloneSchema(schema map[string]any) (map[string]any, error) {
	data, err := json.Marshal(schema)
	if err != nil {
		return nil, err
	}
	var out map[string]any
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, err
	}
	if out == nil {
		out = map[string]any{}
	}
	return out, nil
}
