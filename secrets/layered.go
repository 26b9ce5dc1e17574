package secrets

import (
	"errors"
	"fmt"
)

// LayeredSource tries sources in order and returns the first hit.
// Lookup errors other than ErrSecretNotFound stop the search.
type LayeredSource struct {
	sources []Source
}

// NewLayeredSource creates a source that consults each given source in
// order. Earlier sources take precedence.
func NewLayeredSource(sources ...Source) *LayeredSource {
	return &LayeredSource{sources: sources}
}

// Lookup retrieves the value from the first source that knows the name.
func (s *LayeredSource) Lookup(name string) (string, error) {
	for _, src := range s.sources {
		value, err := src.Lookup(name)
		if err == nil {
			return value, nil
		}
		if !errors.Is(err, ErrSecretNotFound) {
			return "", err
		}
	}
	return "", fmt.Errorf("%s: %w", name, ErrSecretNotFound)
}
