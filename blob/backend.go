package blob

import (
	"context"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// Settings is the storage slice of the application configuration. The
// facade re-reads it through a Source on every operation.
type Settings struct {
	// Mode selects the backend: "memory" or "remote".
	Mode string
	// Endpoint is the base URL of the remote object store.
	Endpoint string
	// Bucket is the remote bucket objects live in.
	Bucket string
	// ServiceKey is the bearer token for the remote store.
	ServiceKey string
	// PublicBase optionally replaces the proxy prefix in returned URLs.
	// Both full URLs and path fragments are accepted.
	PublicBase string
	// ProxyPrefix overrides DefaultProxyPrefix when set.
	ProxyPrefix string
}

// missingRemoteKeys reports which remote credentials are absent, in the
// order they are configured.
func (s Settings) missingRemoteKeys() []string {
	var missing []string
	if strings.TrimSpace(s.Endpoint) == "" {
		missing = append(missing, endpointKey)
	}
	if strings.TrimSpace(s.Bucket) == "" {
		missing = append(missing, bucketKey)
	}
	if strings.TrimSpace(s.ServiceKey) == "" {
		missing = append(missing, serviceKeyKey)
	}
	return missing
}

// Source yields the current storage settings. Implementations must be safe
// for concurrent use; the server swaps snapshots on config reload.
type Source interface {
	BlobSettings() Settings
}

// SourceFunc adapts a function to the Source interface.
type SourceFunc func() Settings

func (f SourceFunc) BlobSettings() Settings { return f() }

// Object is a stored payload with its metadata. Size, UploadedAt,
// CacheControl and ETag are populated where the backend knows them.
type Object struct {
	Data         []byte
	ContentType  string
	Size         int64
	UploadedAt   time.Time
	CacheControl string
	ETag         string
}

// Entry is one listed object.
type Entry struct {
	Key        string    `json:"key"`
	URL        string    `json:"url"`
	Size       int64     `json:"size"`
	UploadedAt time.Time `json:"uploaded_at"`
}

// PutOptions control a Put.
type PutOptions struct {
	// ContentType of the payload; detected from the key's extension when
	// empty.
	ContentType string
	// CacheControl is stored alongside the object and replayed on reads.
	CacheControl string
	// AddRandomSuffix makes the stored key unique per upload.
	AddRandomSuffix bool
}

// PutResult reports where a payload landed.
type PutResult struct {
	// Key is the final stored key, including any random suffix.
	Key string `json:"key"`
	// URL is the proxy URL serving the object.
	URL string `json:"url"`
	// DownloadURL is URL with a marker that forces attachment disposition.
	DownloadURL string `json:"download_url"`
}

// ListOptions control a List.
type ListOptions struct {
	Prefix string
	Limit  int
	Cursor string
}

// ListResult is one page of listed objects.
type ListResult struct {
	Blobs   []Entry `json:"blobs"`
	HasMore bool    `json:"has_more"`
	// Cursor resumes listing after the last returned key. Present only
	// when HasMore.
	Cursor string `json:"cursor,omitempty"`
}

// HealthReport is the result of a health probe.
type HealthReport struct {
	OK     bool   `json:"ok"`
	Mode   Mode   `json:"mode,omitempty"`
	Bucket string `json:"bucket,omitempty"`
	Reason string `json:"reason,omitempty"`
}

// Environment describes the storage configuration for diagnostics. It is
// always produced, never an error: misconfiguration lands in Error.
type Environment struct {
	Provider    string            `json:"provider"`
	Configured  bool              `json:"configured"`
	Bucket      string            `json:"bucket"`
	Diagnostics map[string]string `json:"diagnostics"`
	Error       string            `json:"error,omitempty"`
}

// Backend is the closed set of storage implementations behind the facade.
type Backend interface {
	Put(ctx context.Context, key string, obj Object) error
	// Get returns nil with no error when the key does not exist.
	Get(ctx context.Context, key string) (*Object, error)
	// Delete reports whether the key existed. Deleting an absent key is
	// not an error.
	Delete(ctx context.Context, key string) (bool, error)
	// List returns every entry under prefix, unordered.
	List(ctx context.Context, prefix string) ([]Entry, error)
	Health(ctx context.Context) error
}

func endpointHost(endpoint string) string {
	u, err := url.Parse(endpoint)
	if err != nil || u.Host == "" {
		return ""
	}
	return u.Host
}

func boolString(b bool) string { return strconv.FormatBool(b) }
