package datapackage_test

import (
	"encoding/json"
	"fmt"

	"github.com/opendatastudio/opendatago/pkg/datapackage"
)

// ExampleSchema shows how a format-derived schema persists: the in-memory
// copy of the format's schema collapses back to the sentinel on write.
func ExampleSchema() {
	schema := datapackage.Schema{
		Fields:    map[string]any{"fields": []any{map[string]any{"name": "x"}}},
		Inherited: true,
	}

	persisted, _ := json.Marshal(schema)
	fmt.Println(string(persisted))

	var loaded datapackage.Schema
	_ = json.Unmarshal(persisted, &loaded)
	fmt.Println(loaded.Inherited, loaded.Fields == nil)

	// Output:
	// "inherit-from-format"
	// true true
}
