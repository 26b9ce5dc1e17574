package apiclient

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/retracehq/retrace/blob"
)

// RecordOptions configures a record (ingest) operation.
type RecordOptions struct {
	PageURL   string
	UserAgent string          // optional
	Events    json.RawMessage // must be a JSON array
}

// ListOptions configures a session list operation.
type ListOptions struct {
	URLPrefix string
	Limit     int
	Cursor    string
	All       bool // auto-paginate through all results
}

// DeleteResult represents the result of deleting a single session.
type DeleteResult struct {
	ID      uuid.UUID `json:"id"`
	Deleted bool      `json:"deleted"`
	Err     error     `json:"-"` // nil on success
}

// DownloadOptions configures a recording download.
type DownloadOptions struct {
	ID        uuid.UUID
	LocalPath string // empty = <id>.json, "-" = stdout
}

// DownloadResult represents the result of downloading a recording.
type DownloadResult struct {
	ID          uuid.UUID `json:"id"`
	LocalPath   string    `json:"local_path"`
	ETag        string    `json:"etag"`
	ContentType string    `json:"content_type"`
	Size        int64     `json:"size_bytes"`
}

// AttachOptions configures an attachment upload.
type AttachOptions struct {
	ID          uuid.UUID
	LocalPath   string
	Filename    string // optional, defaults to the local file's name
	ContentType string // optional, auto-detect if empty
}

// ShareResult is a minted share link.
type ShareResult struct {
	Token     string    `json:"token"`
	URL       string    `json:"url"`
	ExpiresAt time.Time `json:"expires_at"`
}

// BlobListOptions configures an admin blob listing.
type BlobListOptions struct {
	Prefix string
	Limit  int
	Cursor string
}

// HealthStatus mirrors the server's health report.
type HealthStatus struct {
	OK       bool              `json:"ok"`
	Blob     blob.HealthReport `json:"blob"`
	Database string            `json:"database"`
}
