package retrace

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Session is the metadata row for one recorded browser session. The
// recording payload itself lives in blob storage under RecordingKey.
type Session struct {
	ID            uuid.UUID `json:"id"`
	PageURL       string    `json:"page_url"`
	UserAgent     string    `json:"user_agent,omitempty"`
	EventCount    int       `json:"event_count"`
	RecordingKey  string    `json:"recording_key"`
	RecordingSize int64     `json:"recording_size"`
	Summary       string    `json:"summary,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// RecordRequest carries one recording to ingest. Events must be a JSON
// array of rrweb-style events.
type RecordRequest struct {
	PageURL   string
	UserAgent string
	Events    json.RawMessage
}

type ListQuery struct {
	URLPrefix string
	Limit     int
	Cursor    string
}

type ListResult struct {
	Items      []Session `json:"items"`
	NextCursor string    `json:"next_cursor,omitempty"`
}

// Attachment is the stored form of an auxiliary file uploaded alongside a
// session (console dumps, screenshots).
type Attachment struct {
	Key  string `json:"key"`
	URL  string `json:"url"`
	Size int64  `json:"size"`
}

// SessionPrefix is the blob key prefix holding everything stored for a
// session. Deleting this prefix removes the recording and all attachments.
func SessionPrefix(id uuid.UUID) string {
	return "sessions/" + id.String() + "/"
}

// RecordingKey is the blob key of a session's recording payload.
func RecordingKey(id uuid.UUID) string {
	return "sessions/" + id.String() + "/recording.json"
}

// AttachmentKey is the blob key for an attachment before its random suffix
// is applied.
func AttachmentKey(id uuid.UUID, filename string) string {
	return "sessions/" + id.String() + "/attachments/" + filename
}
