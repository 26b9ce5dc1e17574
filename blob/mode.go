package blob

import (
	"fmt"
	"strings"
)

// Mode selects which backend the facade routes operations to.
type Mode string

const (
	// ModeMemory stores objects in an in-process map.
	ModeMemory Mode = "memory"
	// ModeRemote stores objects in the configured HTTP object store.
	ModeRemote Mode = "remote"
)

func (m Mode) IsValid() bool {
	switch m {
	case ModeMemory, ModeRemote:
		return true
	default:
		return false
	}
}

// ParseMode parses a configured mode value. Matching is case-insensitive.
// An empty or unrecognized value is a configuration error naming the mode
// key; there is no silent default.
func ParseMode(s string) (Mode, error) {
	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		return "", missingConfig(modeKey)
	}

	mode := Mode(strings.ToLower(trimmed))
	if !mode.IsValid() {
		return "", &ConfigError{
			Keys:    []string{modeKey},
			message: fmt.Sprintf("invalid storage mode: %s (valid modes: memory, remote)", s),
		}
	}

	return mode, nil
}
