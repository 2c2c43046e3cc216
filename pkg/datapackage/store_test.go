package datapackage

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
)

// setupStore creates a datapackage skeleton in a temp dir.
func setupStore(t *testing.T) *Store {
	t.Helper()

	base := t.TempDir()
	for _, dir := range []string{ConfigurationsDir, ViewsDir, ResourcesDir, FormatsDir} {
		if err := os.MkdirAll(filepath.Join(base, dir), 0o755); err != nil {
			t.Fatalf("failed to create %s: %v", dir, err)
		}
	}

	writeFile(t, filepath.Join(base, MetadataFile), `{
		"name": "test-package",
		"resources": ["measurements"],
		"updated": 100
	}`)

	return NewStore(base, zerolog.Nop())
}

func writeFile(t *testing.T, path, contents string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("failed to write %s: %v", path, err)
	}
}

// writeResourceFile writes a resource record with the given schema JSON.
func writeResourceFile(t *testing.T, s *Store, name, schema, data string) {
	t.Helper()
	writeFile(t, s.ResourcePath(name), `{
		"name": "`+name+`",
		"profile": "tabular-data-resource",
		"title": "Test resource",
		"schema": `+schema+`,
		"data": `+data+`
	}`)
}

func writeFormatFile(t *testing.T, s *Store, name string) {
	t.Helper()
	writeFile(t, filepath.Join(s.BasePath(), FormatsDir, name+".json"), `{
		"name": "`+name+`",
		"schema": {"fields": [{"name": "x", "type": "number"}]}
	}`)
}

func TestLoadConfiguration(t *testing.T) {
	s := setupStore(t)
	writeFile(t, filepath.Join(s.BasePath(), ConfigurationsDir, "analysis.json"), `{
		"name": "analysis",
		"container": "example/algorithm:latest",
		"data": [{"name": "x", "resource": "measurements", "format": "timeseries"}]
	}`)

	cfg, err := s.LoadConfiguration("analysis")
	if err != nil {
		t.Fatalf("failed to load configuration: %v", err)
	}
	if cfg.Container != "example/algorithm:latest" {
		t.Errorf("unexpected container: %s", cfg.Container)
	}
	if len(cfg.Data) != 1 || cfg.Data[0].Resource != "measurements" {
		t.Errorf("unexpected bindings: %+v", cfg.Data)
	}
}

func TestLoadConfigurationMissing(t *testing.T) {
	s := setupStore(t)

	_, err := s.LoadConfiguration("nope")
	var notFound *NotFoundError
	if !errors.As(err, &notFound) {
		t.Fatalf("expected NotFoundError, got %v", err)
	}
	if notFound.Kind != "configuration" || notFound.Name != "nope" {
		t.Errorf("unexpected error fields: %+v", notFound)
	}
}

func TestLoadConfigurationMalformed(t *testing.T) {
	s := setupStore(t)
	// Missing the required container field.
	writeFile(t, filepath.Join(s.BasePath(), ConfigurationsDir, "broken.json"), `{"name": "broken"}`)

	_, err := s.LoadConfiguration("broken")
	var notFound *NotFoundError
	if !errors.As(err, &notFound) {
		t.Fatalf("expected NotFoundError for malformed record, got %v", err)
	}
}

func TestWriteConfigurationReplaces(t *testing.T) {
	s := setupStore(t)

	cfg := &Configuration{
		Name:      "analysis",
		Container: "example/algorithm:v1",
		Data:      []VariableBinding{{Name: "x", Resource: "r1", Format: "f1"}},
	}
	if err := s.WriteConfiguration(cfg); err != nil {
		t.Fatalf("failed to write configuration: %v", err)
	}

	cfg.Container = "example/algorithm:v2"
	cfg.Data = nil
	if err := s.WriteConfiguration(cfg); err != nil {
		t.Fatalf("failed to rewrite configuration: %v", err)
	}

	loaded, err := s.LoadConfiguration("analysis")
	if err != nil {
		t.Fatalf("failed to load configuration: %v", err)
	}
	if loaded.Container != "example/algorithm:v2" {
		t.Errorf("write did not replace record: %s", loaded.Container)
	}
	if len(loaded.Data) != 0 {
		t.Errorf("stale bindings survived the rewrite: %+v", loaded.Data)
	}
}

func TestLoadView(t *testing.T) {
	s := setupStore(t)
	writeFile(t, filepath.Join(s.BasePath(), ViewsDir, "plot.json"), `{
		"name": "plot",
		"container": "example/view:latest",
		"resources": ["measurements"]
	}`)

	view, err := s.LoadView("plot")
	if err != nil {
		t.Fatalf("failed to load view: %v", err)
	}
	if view.Container != "example/view:latest" || len(view.Resources) != 1 {
		t.Errorf("unexpected view: %+v", view)
	}
}

func TestLoadResourceWithFormatMerge(t *testing.T) {
	s := setupStore(t)
	writeResourceFile(t, s, "measurements", `"inherit-from-format"`, `[]`)
	writeFormatFile(t, s, "timeseries")

	resource, err := s.LoadResource("measurements", "timeseries")
	if err != nil {
		t.Fatalf("failed to load resource: %v", err)
	}

	if !resource.Schema.Inherited {
		t.Error("schema not tagged as format-derived")
	}
	fields, ok := resource.Schema.Fields["fields"].([]any)
	if !ok || len(fields) != 1 {
		t.Fatalf("schema not merged from format: %+v", resource.Schema.Fields)
	}
	if len(resource.Format) == 0 {
		t.Error("transient format not set")
	}
}

func TestLoadResourceExplicitSchemaKeptOnMerge(t *testing.T) {
	s := setupStore(t)
	writeResourceFile(t, s, "measurements", `{"fields": [{"name": "own", "type": "string"}]}`, `[]`)
	writeFormatFile(t, s, "timeseries")

	resource, err := s.LoadResource("measurements", "timeseries")
	if err != nil {
		t.Fatalf("failed to load resource: %v", err)
	}

	if resource.Schema.Inherited {
		t.Error("explicit schema wrongly tagged as format-derived")
	}
	fields := resource.Schema.Fields["fields"].([]any)
	if fields[0].(map[string]any)["name"] != "own" {
		t.Errorf("explicit schema overwritten by format: %+v", resource.Schema.Fields)
	}
	if len(resource.Format) == 0 {
		t.Error("transient format not set")
	}
}

func TestLoadResourceWithoutFormat(t *testing.T) {
	s := setupStore(t)
	writeResourceFile(t, s, "measurements", `"inherit-from-format"`, `[{"x": 1}]`)

	resource, err := s.LoadResource("measurements", "")
	if err != nil {
		t.Fatalf("failed to load resource: %v", err)
	}

	if resource.Format == nil || len(resource.Format) != 0 {
		t.Errorf("expected empty placeholder format, got %+v", resource.Format)
	}
	if !resource.Schema.Inherited || resource.Schema.Fields != nil {
		t.Errorf("sentinel schema should stay unresolved without a format: %+v", resource.Schema)
	}
	if len(resource.Data) != 1 {
		t.Errorf("data not loaded: %+v", resource.Data)
	}
}

func TestLoadResourceUnsupportedProfile(t *testing.T) {
	s := setupStore(t)
	writeFile(t, s.ResourcePath("weird"), `{
		"name": "weird",
		"profile": "spreadsheet-resource",
		"schema": {},
		"data": []
	}`)

	_, err := s.LoadResource("weird", "")
	var profErr *UnsupportedProfileError
	if !errors.As(err, &profErr) {
		t.Fatalf("expected UnsupportedProfileError, got %v", err)
	}
	if profErr.Profile != "spreadsheet-resource" {
		t.Errorf("error does not name the offending profile: %+v", profErr)
	}
}

func TestWriteResourceRoundTrip(t *testing.T) {
	s := setupStore(t)
	writeResourceFile(t, s, "measurements", `"inherit-from-format"`, `[]`)
	writeFormatFile(t, s, "timeseries")

	resource, err := s.LoadResource("measurements", "timeseries")
	if err != nil {
		t.Fatalf("failed to load resource: %v", err)
	}

	resource.Data = []map[string]any{{"x": 1.5}}
	if err := s.WriteResource(resource); err != nil {
		t.Fatalf("failed to write resource: %v", err)
	}

	// Inspect the raw persisted record.
	raw, err := os.ReadFile(s.ResourcePath("measurements"))
	if err != nil {
		t.Fatalf("failed to read persisted record: %v", err)
	}
	var rec map[string]any
	if err := json.Unmarshal(raw, &rec); err != nil {
		t.Fatalf("persisted record is not valid JSON: %v", err)
	}

	if _, ok := rec["format"]; ok {
		t.Error("persisted record contains a format field")
	}
	if rec["schema"] != SchemaInherit {
		t.Errorf("format-derived schema persisted literally: %v", rec["schema"])
	}
	if rec["title"] != "Test resource" {
		t.Errorf("passthrough field lost on write: %v", rec["title"])
	}
	if rows, ok := rec["data"].([]any); !ok || len(rows) != 1 {
		t.Errorf("data not persisted: %v", rec["data"])
	}
}

func TestWriteResourceExplicitSchemaPersisted(t *testing.T) {
	s := setupStore(t)
	writeResourceFile(t, s, "measurements", `{"fields": []}`, `[]`)

	resource, err := s.LoadResource("measurements", "")
	if err != nil {
		t.Fatalf("failed to load resource: %v", err)
	}
	if err := s.WriteResource(resource); err != nil {
		t.Fatalf("failed to write resource: %v", err)
	}

	rec, err := s.LoadRawResource("measurements")
	if err != nil {
		t.Fatalf("failed to re-read record: %v", err)
	}
	if _, ok := rec["schema"].(map[string]any); !ok {
		t.Errorf("explicit schema not persisted as object: %v", rec["schema"])
	}
}

func TestWriteResourceMapStripsFormat(t *testing.T) {
	s := setupStore(t)
	writeResourceFile(t, s, "measurements", `"inherit-from-format"`, `[]`)
	writeFormatFile(t, s, "timeseries")

	rec, err := s.LoadResourceMap("measurements", "timeseries")
	if err != nil {
		t.Fatalf("failed to load resource map: %v", err)
	}

	schema, ok := rec["schema"].(map[string]any)
	if !ok || schema["type"] != "format" {
		t.Fatalf("merged raw schema not marked as format copy: %v", rec["schema"])
	}

	if err := s.WriteResourceMap(rec); err != nil {
		t.Fatalf("failed to write resource map: %v", err)
	}

	persisted, err := s.LoadRawResource("measurements")
	if err != nil {
		t.Fatalf("failed to re-read record: %v", err)
	}
	if _, ok := persisted["format"]; ok {
		t.Error("persisted record contains a format field")
	}
	if persisted["schema"] != SchemaInherit {
		t.Errorf("format copy persisted as schema: %v", persisted["schema"])
	}
}

func TestWriteResourceAdvancesMetadata(t *testing.T) {
	s := setupStore(t)
	writeResourceFile(t, s, "measurements", `{"fields": []}`, `[]`)

	before, err := s.LoadMetadata()
	if err != nil {
		t.Fatalf("failed to load metadata: %v", err)
	}

	resource, err := s.LoadResource("measurements", "")
	if err != nil {
		t.Fatalf("failed to load resource: %v", err)
	}
	if err := s.WriteResource(resource); err != nil {
		t.Fatalf("failed to write resource: %v", err)
	}

	after, err := s.LoadMetadata()
	if err != nil {
		t.Fatalf("failed to load metadata: %v", err)
	}
	if after.Updated < before.Updated {
		t.Errorf("updated went backwards: %d -> %d", before.Updated, after.Updated)
	}
	if after.Updated == 100 {
		t.Error("updated timestamp not advanced")
	}

	// The manifest must survive the rewrite.
	raw, err := os.ReadFile(filepath.Join(s.BasePath(), MetadataFile))
	if err != nil {
		t.Fatalf("failed to read metadata file: %v", err)
	}
	var meta map[string]any
	if err := json.Unmarshal(raw, &meta); err != nil {
		t.Fatalf("metadata is not valid JSON: %v", err)
	}
	if _, ok := meta["resources"]; !ok {
		t.Error("resource manifest lost on metadata rewrite")
	}
}

func TestLoadResourceByVariable(t *testing.T) {
	s := setupStore(t)
	writeFile(t, filepath.Join(s.BasePath(), ConfigurationsDir, "analysis.json"), `{
		"name": "analysis",
		"container": "example/algorithm:latest",
		"data": [{"name": "x", "resource": "measurements", "format": "timeseries"}]
	}`)
	writeResourceFile(t, s, "measurements", `"inherit-from-format"`, `[]`)
	writeFormatFile(t, s, "timeseries")

	resource, err := s.LoadResourceByVariable("x", "analysis")
	if err != nil {
		t.Fatalf("failed to load resource by variable: %v", err)
	}
	if resource.Name != "measurements" {
		t.Errorf("wrong resource resolved: %s", resource.Name)
	}
	if !resource.Schema.Inherited || resource.Schema.Fields == nil {
		t.Error("binding's format not merged")
	}
}

func TestLoadResourceByVariableMissing(t *testing.T) {
	s := setupStore(t)
	writeFile(t, filepath.Join(s.BasePath(), ConfigurationsDir, "analysis.json"), `{
		"name": "analysis",
		"container": "example/algorithm:latest",
		"data": [{"name": "x", "resource": "measurements", "format": "timeseries"}]
	}`)

	_, err := s.LoadResourceByVariable("y", "analysis")
	var varErr *VariableNotFoundError
	if !errors.As(err, &varErr) {
		t.Fatalf("expected VariableNotFoundError, got %v", err)
	}
	if varErr.Variable != "y" || varErr.Configuration != "analysis" {
		t.Errorf("error does not name variable and configuration: %+v", varErr)
	}
}
