// Package secrets provides Source implementations for secret retrieval.
package secrets

import (
	"errors"
	"fmt"
	"strings"
)

// ErrSecretNotFound is returned when a named secret does not exist in the source.
var ErrSecretNotFound = errors.New("secret not found")

// Source retrieves secret values by logical name, such as
// "storage.service_key". Implementations must not log or echo values.
type Source interface {
	Lookup(name string) (string, error)
}

// StoreConfig holds configuration for assembling a secret source.
type StoreConfig struct {
	Inline map[string]string `mapstructure:"inline"` // Inline secrets from config
	File   string            `mapstructure:"file"`   // Path to JSON file containing secrets
}

// NewStore creates a Source from the given configuration. It merges inline
// secrets with the file (if specified) into a single source. File secrets
// take precedence over inline secrets if there are duplicates.
func NewStore(cfg StoreConfig) (Source, error) {
	values := make(map[string]string)

	for name, value := range cfg.Inline {
		if name != "" && value != "" {
			values[name] = value
		}
	}

	if cfg.File != "" {
		fileValues, err := LoadSecretsFromFile(cfg.File)
		if err != nil {
			return nil, err
		}
		for name, value := range fileValues {
			values[name] = value
		}
	}

	return NewMapSource(values), nil
}

// Require looks up a secret and fails when it is absent or empty. The
// error names the secret, never its value.
func Require(src Source, name string) (string, error) {
	value, err := src.Lookup(name)
	if err != nil {
		return "", fmt.Errorf("missing secret: %s: %w", name, err)
	}
	if value == "" {
		return "", fmt.Errorf("missing secret: %s: %w", name, ErrSecretNotFound)
	}
	return value, nil
}

// RequireEnum looks up a secret and validates it against a closed set of
// allowed values.
func RequireEnum(src Source, name string, allowed ...string) (string, error) {
	value, err := Require(src, name)
	if err != nil {
		return "", err
	}

	for _, a := range allowed {
		if value == a {
			return value, nil
		}
	}
	return "", fmt.Errorf("invalid secret %s (valid values: %s)", name, strings.Join(allowed, ", "))
}
