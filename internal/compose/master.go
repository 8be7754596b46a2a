package compose

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/jonathan/job-agent/internal/types"
)

// LoadMasterCV reads and validates the master CV from a JSON file. The
// master CV is the single source of truth for every fact the composer may
// use.
func LoadMasterCV(path string) (*types.StructuredCV, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read master CV %s: %w", path, err)
	}

	violations, err := ValidateCV(string(raw))
	if err != nil {
		return nil, fmt.Errorf("failed to validate master CV: %w", err)
	}
	if len(violations) > 0 {
		return nil, fmt.Errorf("master CV %s is invalid: %s", path, formatViolations(violations))
	}

	var cv types.StructuredCV
	if err := json.Unmarshal(raw, &cv); err != nil {
		return nil, fmt.Errorf("failed to parse master CV %s: %w", path, err)
	}
	return &cv, nil
}
