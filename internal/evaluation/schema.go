package evaluation

import (
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// Result schemas enforced on every model response. Scores are an explicit
// enum so an out-of-range value is a schema violation, not something to
// clamp.
const correctionSchemaJSON = `{
	"type": "object",
	"required": ["highlight", "issue", "correction"],
	"additionalProperties": false,
	"properties": {
		"highlight": {"type": "string"},
		"issue": {"type": "string"},
		"correction": {"type": "string"}
	}
}`

var grammarResultSchema = jsonschema.MustCompileString("grammar_result.json", `{
	"type": "object",
	"required": ["score", "corrections", "feedback"],
	"additionalProperties": false,
	"properties": {
		"score": {"type": "integer", "enum": [0, 1, 2]},
		"corrections": {"type": "array", "items": `+correctionSchemaJSON+`},
		"feedback": {"type": "string"}
	}
}`)

var sectionResultSchema = jsonschema.MustCompileString("section_result.json", `{
	"type": "object",
	"required": ["score", "feedback"],
	"additionalProperties": false,
	"properties": {
		"score": {"type": "integer", "enum": [0, 1, 2]},
		"corrections": {"type": "array", "items": `+correctionSchemaJSON+`},
		"feedback": {"type": "string"},
		"corrected_text": {"type": "string"}
	}
}`)

// validateAgainst checks raw JSON content against a compiled schema before
// decoding into the typed result.
func validateAgainst(schema *jsonschema.Schema, content json.RawMessage) error {
	var value any
	if err := json.Unmarshal(content, &value); err != nil {
		return fmt.Errorf("%w: %v", ErrParseFailure, err)
	}

	if err := schema.Validate(value); err != nil {
		return fmt.Errorf("%w: %v", ErrParseFailure, err)
	}

	return nil
}
