package secrets

import "fmt"

// MapSource retrieves secrets from an in-memory map.
// Suitable for configuration file-based secret storage and tests.
type MapSource struct {
	values map[string]string
}

// NewMapSource creates a new map-based source with the given name to value mapping.
func NewMapSource(values map[string]string) *MapSource {
	return &MapSource{values: values}
}

// Lookup retrieves the value for the given secret name from the map.
func (s *MapSource) Lookup(name string) (string, error) {
	value, found := s.values[name]
	if !found {
		return "", fmt.Errorf("%s: %w", name, ErrSecretNotFound)
	}
	return value, nil
}
