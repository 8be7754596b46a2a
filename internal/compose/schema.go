package compose

import (
	_ "embed"
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

//go:embed cv_schema.json
var cvSchemaJSON string

// ValidateCV checks a candidate CV document against the structured CV schema.
// Returns a list of human-readable violations, empty when the document is
// valid.
func ValidateCV(document string) ([]string, error) {
	schemaLoader := gojsonschema.NewStringLoader(cvSchemaJSON)
	docLoader := gojsonschema.NewStringLoader(document)

	result, err := gojsonschema.Validate(schemaLoader, docLoader)
	if err != nil {
		return nil, fmt.Errorf("schema validation failed to run: %w", err)
	}
	if result.Valid() {
		return nil, nil
	}

	violations := make([]string, 0, len(result.Errors()))
	for _, desc := range result.Errors() {
		violations = append(violations, fmt.Sprintf("%s: %s", desc.Field(), desc.Description()))
	}
	return violations, nil
}

// formatViolations joins violations for error messages and repair prompts.
func formatViolations(violations []string) string {
	return strings.Join(violations, "; ")
}
