package config

import (
	"sync/atomic"

	"github.com/retracehq/retrace/blob"
)

// Snapshot is an atomically swappable view of the storage section. It
// implements blob.Source, so operations issued after a Swap see the new
// settings while in-flight ones finish against the old.
type Snapshot struct {
	current atomic.Pointer[blob.Settings]
}

// NewSnapshot creates a Snapshot holding the given storage settings.
func NewSnapshot(storage StorageConfig) *Snapshot {
	s := &Snapshot{}
	s.Swap(storage)
	return s
}

// Swap replaces the settings visible to subsequent BlobSettings calls.
func (s *Snapshot) Swap(storage StorageConfig) {
	settings := storage.BlobSettings()
	s.current.Store(&settings)
}

// BlobSettings returns the settings as of the last Swap.
func (s *Snapshot) BlobSettings() blob.Settings {
	return *s.current.Load()
}
