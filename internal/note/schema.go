package note

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/invopop/jsonschema"
)

// SchemaName identifies the clinical-note schema in structured-output
// requests.
const SchemaName = "clinical_note"

var (
	schemaOnce sync.Once
	schemaDoc  map[string]any
	schemaErr  error
)

// Schema returns the JSON Schema for [ClinicalNote] as a generic document,
// reflected once from the Go types so the schema can never drift from the
// structs that parse against it. The schema is self-contained (no $ref
// indirection) because structured-output endpoints require inline
// definitions.
func Schema() (map[string]any, error) {
	schemaOnce.Do(func() {
		r := &jsonschema.Reflector{
			DoNotReference:            true,
			ExpandedStruct:            true,
			AllowAdditionalProperties: false,
		}
		s := r.Reflect(&ClinicalNote{})
		s.Title = "Clinical Note"
		s.Description = "Structured clinical note extracted from a consultation transcript."

		data, err := json.Marshal(s)
		if err != nil {
			schemaErr = fmt.Errorf("note: marshal schema: %w", err)
			return
		}
		var doc map[string]any
		if err := json.Unmarshal(data, &doc); err != nil {
			schemaErr = fmt.Errorf("note: decode schema: %w", err)
			return
		}
		schemaDoc = doc
	})
	return schemaDoc, schemaErr
}

// SchemaJSON returns the schema as indented JSON, suitable for embedding in a
// prompt for providers without native structured-output support.
func SchemaJSON() (string, error) {
	doc, err := Schema()
	if err != nil {
		return "", err
	}
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return "", fmt.Errorf("note: marshal schema: %w", err)
	}
	return string(data), nil
}
