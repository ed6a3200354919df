// internal/common/validation/schema.go
package validation

import (
	"fmt"

	"github.com/xeipuuv/gojsonschema"
)

type Result struct {
	Valid  bool    `json:"valid"`
	Errors []Error `json:"errors,omitempty"`
}

type Error struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Validate checks a Go value against a JSON-schema document. Both sides are
// plain Go values (maps, slices, structs with json tags); gojsonschema
// handles the marshalling.
func Validate(schema, value interface{}) (*Result, error) {
	schemaLoader := gojsonschema.NewGoLoader(schema)
	docLoader := gojsonschema.NewGoLoader(value)

	result, err := gojsonschema.Validate(schemaLoader, docLoader)
	if err != nil {
		return nil, fmt.Errorf("schema validation error: %w", err)
	}

	out := &Result{Valid: result.Valid()}
	for _, resErr := range result.Errors() {
		out.Errors = append(out.Errors, Error{
			Field:   resErr.Field(),
			Message: resErr.Description(),
		})
	}
	return out, nil
}

// Require is the common one-shot form: nil when the value conforms, an
// error naming the first violation otherwise.
func Require(schema, value interface{}) error {
	result, err := Validate(schema, value)
	if err != nil {
		return err
	}
	if !result.Valid {
		first := result.Errors[0]
		return fmt.Errorf("%s: %s", first.Field, first.Message)
	}
	return nil
}
