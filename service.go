package retrace

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/retracehq/retrace/blob"
)

// SessionRepo defines the interface for session metadata persistence.
// Implementations must handle concurrent access safely and ensure data consistency.
//
// All methods accept a context for cancellation and timeout control.
// Implementations should respect context cancellation and return appropriate errors.
type SessionRepo interface {
	// Insert persists a new session row.
	//
	// Parameters:
	//   - ctx: Context for cancellation and timeout
	//   - session: Session with ID, page URL, and recording fields populated
	//
	// Returns:
	//   - Session: The stored row including database-assigned timestamps
	//   - error: Any database error, including duplicate IDs
	Insert(ctx context.Context, session Session) (Session, error)

	// Get retrieves a session by its ID.
	//
	// Parameters:
	//   - ctx: Context for cancellation and timeout
	//   - id: The session ID to look up
	//
	// Returns:
	//   - Session: The session row if found
	//   - error: ErrNotFound if the ID doesn't exist, or other database errors
	Get(ctx context.Context, id uuid.UUID) (Session, error)

	// List retrieves a paginated list of sessions matching the query criteria.
	// Results are ordered by (created_at, id) ascending.
	//
	// Parameters:
	//   - ctx: Context for cancellation and timeout
	//   - q: ListQuery with optional page-URL prefix filter, limit, and cursor
	//
	// Returns:
	//   - ListResult: Matching sessions and a cursor for the next page
	//   - error: Any database error, including malformed cursors
	List(ctx context.Context, q ListQuery) (ListResult, error)

	// Delete removes a session row by its ID.
	//
	// Parameters:
	//   - ctx: Context for cancellation and timeout
	//   - id: The session ID to delete
	//
	// Returns:
	//   - error: ErrNotFound if the ID doesn't exist, or other database errors
	//
	// Note: This only deletes the metadata row, not the stored recording.
	// Callers are responsible for coordinating row and blob deletion.
	Delete(ctx context.Context, id uuid.UUID) error

	// SetSummary stores a generated summary on an existing session and
	// bumps its updated_at timestamp.
	//
	// Parameters:
	//   - ctx: Context for cancellation and timeout
	//   - id: The session ID to update
	//   - summary: The summary text
	//
	// Returns:
	//   - error: ErrNotFound if the ID doesn't exist, or other database errors
	SetSummary(ctx context.Context, id uuid.UUID, summary string) error

	// Ping verifies the underlying database connection is alive. Used by
	// health checks.
	Ping(ctx context.Context) error
}

// BlobStore is the slice of the blob facade the session service needs.
// *blob.Store satisfies it; tests substitute doubles.
type BlobStore interface {
	Put(ctx context.Context, key string, data []byte, opts blob.PutOptions) (blob.PutResult, error)
	Read(ctx context.Context, keyOrURL string) (*blob.Object, error)
	DeletePrefix(ctx context.Context, prefix string) (int, error)
}

// Summarizer produces a text completion for a prompt. The llm package
// provides the production implementation.
type Summarizer interface {
	Complete(ctx context.Context, system string, prompt string) (string, error)
}

// maxSummaryInput caps how much of a recording is handed to the
// summarizer. The digest may cut mid-event; the model copes.
const maxSummaryInput = 16 * 1024

const summarySystemPrompt = "You summarize recorded browser sessions for engineers. " +
	"Reply with two or three plain sentences describing what the user did and " +
	"anything that looks like an error. No preamble."

type SessionService struct {
	repo           SessionRepo
	blobs          BlobStore
	summarizer     Summarizer
	cleanupTimeout time.Duration
}

// ServiceConfig holds configuration options for SessionService.
type ServiceConfig struct {
	Summarizer     Summarizer    // Optional; Summarize returns ErrUnavailable when nil
	CleanupTimeout time.Duration // Timeout for cleanup operations (default: 30s)
}

func NewSessionService(repo SessionRepo, blobs BlobStore, cfg ServiceConfig) (*SessionService, error) {
	if repo == nil {
		return nil, fmt.Errorf("new session service: repo cannot be nil")
	}
	if blobs == nil {
		return nil, fmt.Errorf("new session service: blob store cannot be nil")
	}
	cleanupTimeout := cfg.CleanupTimeout
	if cleanupTimeout <= 0 {
		cleanupTimeout = 30 * time.Second
	}
	return &SessionService{
		repo:           repo,
		blobs:          blobs,
		summarizer:     cfg.Summarizer,
		cleanupTimeout: cleanupTimeout,
	}, nil
}

// Record ingests one recording: it validates the request, stores the
// payload in blob storage, and inserts the session row. If the row insert
// fails, the stored blob is automatically cleaned up to prevent orphaned
// data.
//
// The method performs the following steps:
//  1. Validates context is not cancelled
//  2. Validates input (page URL present, events are a JSON array)
//  3. Mints the session ID and stores the payload at its recording key
//  4. Inserts the session row
//  5. On insert failure, deletes the session's blob prefix
//
// Cleanup uses a separate background context with the configured cleanup
// timeout so it completes even if the request context is cancelled.
//
// Error types returned:
//   - ErrInvalidInput: Empty page URL, or events that are not a JSON array
//   - context.Canceled or context.DeadlineExceeded: Context was cancelled
//   - Wrapped blob errors: Issues storing the payload
//   - Wrapped repository errors: Issues inserting the row
func (s *SessionService) Record(ctx context.Context, req RecordRequest) (Session, error) {
	// Early context check - fail fast before expensive operations
	if err := ctx.Err(); err != nil {
		return Session{}, fmt.Errorf("record session: %w", err)
	}

	if req.PageURL == "" {
		return Session{}, fmt.Errorf("record session: %w: page url cannot be empty", ErrInvalidInput)
	}

	count, err := countEvents(req.Events)
	if err != nil {
		return Session{}, fmt.Errorf("record session: %w", err)
	}

	id := uuid.New()
	key := RecordingKey(id)

	put, putErr := s.blobs.Put(ctx, key, req.Events, blob.PutOptions{ContentType: "application/json"})
	if putErr != nil {
		return Session{}, fmt.Errorf("record session %s: store recording: %w", id, putErr)
	}

	session := Session{
		ID:            id,
		PageURL:       req.PageURL,
		UserAgent:     req.UserAgent,
		EventCount:    count,
		RecordingKey:  put.Key,
		RecordingSize: int64(len(req.Events)),
	}

	stored, insertErr := s.repo.Insert(ctx, session)
	if insertErr != nil {
		// Use background context for cleanup since original context may be cancelled
		cleanupCtx, cancel := context.WithTimeout(context.Background(), s.cleanupTimeout)
		defer cancel()

		if _, delErr := s.blobs.DeletePrefix(cleanupCtx, SessionPrefix(id)); delErr != nil {
			return Session{}, fmt.Errorf("record session %s: insert failed (%w) and cleanup failed: %w", id, insertErr, delErr)
		}
		return Session{}, fmt.Errorf("record session %s: insert failed: %w", id, insertErr)
	}

	return stored, nil
}

func (s *SessionService) Get(ctx context.Context, id uuid.UUID) (Session, error) {
	if err := ctx.Err(); err != nil {
		return Session{}, fmt.Errorf("get session: %w", err)
	}

	session, err := s.repo.Get(ctx, id)
	if err != nil {
		return Session{}, fmt.Errorf("get session %s: %w", id, err)
	}

	return session, nil
}

func (s *SessionService) List(ctx context.Context, q ListQuery) (ListResult, error) {
	if err := ctx.Err(); err != nil {
		return ListResult{}, fmt.Errorf("list sessions: %w", err)
	}

	result, err := s.repo.List(ctx, q)
	if err != nil {
		return ListResult{}, fmt.Errorf("list sessions: %w", err)
	}

	return result, nil
}

// Delete removes the session row and everything stored under the
// session's blob prefix. The row goes first so the session disappears
// from the API even if blob cleanup fails; leftover blobs are unreachable
// and harmless.
func (s *SessionService) Delete(ctx context.Context, id uuid.UUID) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete session %s: %w", id, err)
	}

	if _, err := s.blobs.DeletePrefix(ctx, SessionPrefix(id)); err != nil {
		return fmt.Errorf("delete session %s: blob cleanup: %w", id, err)
	}

	return nil
}

// Replay returns the session row together with its recording payload. A
// session whose recording blob is missing reports ErrNotFound.
func (s *SessionService) Replay(ctx context.Context, id uuid.UUID) (Session, *blob.Object, error) {
	if err := ctx.Err(); err != nil {
		return Session{}, nil, fmt.Errorf("replay session: %w", err)
	}

	session, err := s.repo.Get(ctx, id)
	if err != nil {
		return Session{}, nil, fmt.Errorf("replay session %s: %w", id, err)
	}

	obj, err := s.blobs.Read(ctx, session.RecordingKey)
	if err != nil {
		return Session{}, nil, fmt.Errorf("replay session %s: %w", id, err)
	}
	if obj == nil {
		return Session{}, nil, fmt.Errorf("replay session %s: recording: %w", id, ErrNotFound)
	}

	return session, obj, nil
}

// Attach stores an auxiliary file under the session's attachments prefix.
// The stored key carries a random suffix so repeated uploads of the same
// filename never collide.
func (s *SessionService) Attach(ctx context.Context, id uuid.UUID, filename string, data []byte, contentType string) (Attachment, error) {
	if err := ctx.Err(); err != nil {
		return Attachment{}, fmt.Errorf("attach: %w", err)
	}

	if filename == "" {
		return Attachment{}, fmt.Errorf("attach: %w: filename cannot be empty", ErrInvalidInput)
	}
	if !IsValidFilename(filename) {
		return Attachment{}, fmt.Errorf("attach %s: %w", filename, ErrInvalidInput)
	}
	if len(data) == 0 {
		return Attachment{}, fmt.Errorf("attach %s: %w: attachment cannot be empty", filename, ErrInvalidInput)
	}

	if _, err := s.repo.Get(ctx, id); err != nil {
		return Attachment{}, fmt.Errorf("attach to session %s: %w", id, err)
	}

	put, err := s.blobs.Put(ctx, AttachmentKey(id, filename), data, blob.PutOptions{
		ContentType:     contentType,
		AddRandomSuffix: true,
	})
	if err != nil {
		return Attachment{}, fmt.Errorf("attach to session %s: %w", id, err)
	}

	return Attachment{Key: put.Key, URL: put.URL, Size: int64(len(data))}, nil
}

// Summarize runs the configured summarizer over a digest of the recording
// and persists the result on the session. Returns ErrUnavailable when no
// summarizer is configured.
func (s *SessionService) Summarize(ctx context.Context, id uuid.UUID) (Session, error) {
	if err := ctx.Err(); err != nil {
		return Session{}, fmt.Errorf("summarize session: %w", err)
	}

	if s.summarizer == nil {
		return Session{}, fmt.Errorf("summarize session %s: %w: no summarizer configured", id, ErrUnavailable)
	}

	session, err := s.repo.Get(ctx, id)
	if err != nil {
		return Session{}, fmt.Errorf("summarize session %s: %w", id, err)
	}

	obj, err := s.blobs.Read(ctx, session.RecordingKey)
	if err != nil {
		return Session{}, fmt.Errorf("summarize session %s: %w", id, err)
	}
	if obj == nil {
		return Session{}, fmt.Errorf("summarize session %s: recording: %w", id, ErrNotFound)
	}

	digest := obj.Data
	if len(digest) > maxSummaryInput {
		digest = digest[:maxSummaryInput]
	}

	prompt := fmt.Sprintf("Page: %s\nEvents recorded: %d\nEvent data (possibly truncated):\n%s",
		session.PageURL, session.EventCount, digest)

	text, err := s.summarizer.Complete(ctx, summarySystemPrompt, prompt)
	if err != nil {
		return Session{}, fmt.Errorf("summarize session %s: %w", id, err)
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return Session{}, fmt.Errorf("summarize session %s: empty completion: %w", id, ErrInternal)
	}

	if err := s.repo.SetSummary(ctx, id, text); err != nil {
		return Session{}, fmt.Errorf("summarize session %s: %w", id, err)
	}

	session, err = s.repo.Get(ctx, id)
	if err != nil {
		return Session{}, fmt.Errorf("summarize session %s: %w", id, err)
	}

	return session, nil
}

// Ping reports whether the backing database is reachable.
func (s *SessionService) Ping(ctx context.Context) error {
	return s.repo.Ping(ctx)
}

// countEvents counts entries in a top-level JSON array. Anything that is
// not an array, including null, is rejected.
func countEvents(raw json.RawMessage) (int, error) {
	trimmed := bytes.TrimLeft(raw, " \t\r\n")
	if len(trimmed) == 0 || trimmed[0] != '[' {
		return 0, fmt.Errorf("%w: events must be a JSON array", ErrInvalidInput)
	}

	var events []json.RawMessage
	if err := json.Unmarshal(raw, &events); err != nil {
		return 0, fmt.Errorf("%w: malformed events payload", ErrInvalidInput)
	}

	return len(events), nil
}
