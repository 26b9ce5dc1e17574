package secrets

import (
	"encoding/json"
	"fmt"
	"os"
)

// LoadSecretsFromFile loads secrets from a JSON file.
// The file should contain a flat object of name to value:
//
//	{
//	  "storage.service_key": "eyJhbGciOi...",
//	  "share.secret": "hunter2"
//	}
//
// Entries with empty names or values are skipped.
func LoadSecretsFromFile(path string) (map[string]string, error) {
	data, err := os.ReadFile(path) //nolint:gosec // Path is from trusted config file
	if err != nil {
		return nil, fmt.Errorf("read secrets file: %w", err)
	}

	var raw map[string]string
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse secrets file: %w", err)
	}

	values := make(map[string]string, len(raw))
	for name, value := range raw {
		if name != "" && value != "" {
			values[name] = value
		}
	}

	return values, nil
}
