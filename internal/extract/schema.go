package extract

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// payloadSchema is the minimum contract an extraction response must meet: an
// object with a phoneLines array of objects, either at the top level or inside
// one analysis, data or result envelope. Everything else is optional and
// defaulted during normalization.
const payloadSchema = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "$defs": {
    "record": {
      "type": "object",
      "required": ["phoneLines"],
      "properties": {
        "phoneLines": {
          "type": "array",
          "items": {"type": "object"}
        },
        "totalAmount": {"type": ["number", "string", "null"]},
        "chargesByCategory": {"type": ["object", "null"]},
        "usageAnalysis": {"type": ["object", "null"]},
        "costAnalysis": {"type": ["object", "null"]},
        "planRecommendation": {"type": ["object", "null"]}
      }
    }
  },
  "type": "object",
  "anyOf": [
    {"$ref": "#/$defs/record"},
    {"required": ["analysis"], "properties": {"analysis": {"$ref": "#/$defs/record"}}},
    {"required": ["data"], "properties": {"data": {"$ref": "#/$defs/record"}}},
    {"required": ["result"], "properties": {"result": {"$ref": "#/$defs/record"}}}
  ]
}`

var compiledSchema = sync.OnceValues(func() (*jsonschema.Schema, error) {
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("payload.json", bytes.NewReader([]byte(payloadSchema))); err != nil {
		return nil, fmt.Errorf("add schema: %w", err)
	}
	return compiler.Compile("payload.json")
})

// ValidatePayload checks an extraction response against the payload schema.
// Failures wrap ErrMalformedPayload.
func ValidatePayload(data []byte) error {
	schema, err := compiledSchema()
	if err != nil {
		return fmt.Errorf("compile schema: %w", err)
	}
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}
	if err := schema.Validate(v); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}
	return nil
}
