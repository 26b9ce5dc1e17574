package secrets

import (
	"fmt"
	"os"
	"strings"
)

// EnvSource retrieves secrets from environment variables. A logical name
// like "storage.service_key" with prefix "RETRACE_SECRET" maps to the
// variable RETRACE_SECRET_STORAGE_SERVICE_KEY.
type EnvSource struct {
	prefix string
}

// NewEnvSource creates an environment-backed source with the given
// variable prefix.
func NewEnvSource(prefix string) *EnvSource {
	return &EnvSource{prefix: prefix}
}

// Lookup retrieves the value of the environment variable derived from the
// secret name.
func (s *EnvSource) Lookup(name string) (string, error) {
	value, found := os.LookupEnv(s.varName(name))
	if !found {
		return "", fmt.Errorf("%s: %w", name, ErrSecretNotFound)
	}
	return value, nil
}

func (s *EnvSource) varName(name string) string {
	v := strings.NewReplacer(".", "_", "-", "_").Replace(name)
	v = strings.ToUpper(v)
	if s.prefix == "" {
		return v
	}
	return s.prefix + "_" + v
}
