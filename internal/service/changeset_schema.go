package service

import (
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/noah-isme/railrules-api/internal/models"
)

// changeSetSchemaJSON enforces the shape of the stored payload: a field change
// carries either old/new values or a diff, never both. Section ids come from
// document markup and are not bounded here.
const changeSetSchemaJSON = `{
  "type": "object",
  "required": ["field_changes"],
  "properties": {
    "field_changes": {
      "type": "array",
      "maxItems": 16,
      "items": {"$ref": "#/$defs/fieldChange"}
    },
    "changed_sections": {
      "type": "array",
      "items": {"type": "string", "minLength": 1}
    }
  },
  "$defs": {
    "fieldChange": {
      "type": "object",
      "required": ["field", "content_kind", "operation"],
      "properties": {
        "field": {"type": "string", "minLength": 1, "maxLength": 64},
        "content_kind": {"enum": ["text", "html", "json", "file"]},
        "operation": {"enum": ["add", "modify", "delete"]},
        "old_value": {"type": "string"},
        "new_value": {"type": "string"},
        "diff": {"type": "array", "minItems": 1, "items": {"$ref": "#/$defs/segment"}}
      },
      "oneOf": [
        {
          "required": ["diff"],
          "not": {"anyOf": [{"required": ["old_value"]}, {"required": ["new_value"]}]}
        },
        {
          "not": {"required": ["diff"]},
          "anyOf": [{"required": ["old_value"]}, {"required": ["new_value"]}]
        }
      ]
    },
    "segment": {
      "type": "object",
      "required": ["type", "content"],
      "properties": {
        "type": {"enum": ["add", "remove", "unchanged"]},
        "content": {"type": "string", "minLength": 1}
      }
    }
  }
}`

var changeSetSchema = jsonschema.MustCompileString("changeset.schema.json", changeSetSchemaJSON)

// validateChangeSet checks a change payload against the stored schema.
func validateChangeSet(changes models.ChangeSet) error {
	payload, err := json.Marshal(changes)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidChangeLog, err)
	}

	var document interface{}
	if err := json.Unmarshal(payload, &document); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidChangeLog, err)
	}

	if err := changeSetSchema.Validate(document); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidChangeLog, err)
	}
	return nil
}
