package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/retracehq/retrace"
	"github.com/retracehq/retrace/blob"
)

// DefaultTimeout is the default HTTP client timeout.
const DefaultTimeout = 30 * time.Second

// Client performs operations against a retrace server.
type Client struct {
	config     *Config
	httpClient *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		c.httpClient = client
	}
}

// WithTimeout sets the HTTP client timeout.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		c.httpClient.Timeout = timeout
	}
}

// New creates a new Client with the given config and options.
func New(cfg *Config, opts ...Option) (*Client, error) {
	if cfg == nil {
		return nil, ErrConfigRequired
	}

	cfg = cfg.WithDefaults()

	c := &Client{
		config: &Config{
			Server:        strings.TrimSuffix(cfg.Server, "/"),
			IngestKey:     cfg.IngestKey,
			AdminUser:     cfg.AdminUser,
			AdminPassword: cfg.AdminPassword,
		},
		httpClient: &http.Client{Timeout: DefaultTimeout},
	}

	for _, opt := range opts {
		opt(c)
	}

	return c, nil
}

func (c *Client) newRequest(ctx context.Context, method, path string, query url.Values, body io.Reader) (*http.Request, error) {
	u := c.config.Server + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, method, u, body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	return req, nil
}

// doJSON executes req, maps non-2xx responses to an APIError, and
// decodes the body into out when out is non-nil.
func (c *Client) doJSON(req *http.Request, out any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return parseServerError(resp.StatusCode, body)
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("parse response: %w", err)
	}
	return nil
}

// Record ingests a recording and returns the created session.
func (c *Client) Record(ctx context.Context, opts RecordOptions) (retrace.Session, error) {
	if opts.PageURL == "" {
		return retrace.Session{}, fmt.Errorf("record: %w", ErrPageURLRequired)
	}

	payload, err := json.Marshal(struct {
		PageURL   string          `json:"page_url"`
		UserAgent string          `json:"user_agent,omitempty"`
		Events    json.RawMessage `json:"events"`
	}{opts.PageURL, opts.UserAgent, opts.Events})
	if err != nil {
		return retrace.Session{}, fmt.Errorf("encode request: %w", err)
	}

	req, err := c.newRequest(ctx, http.MethodPost, "/api/sessions", nil, bytes.NewReader(payload))
	if err != nil {
		return retrace.Session{}, err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.config.IngestKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.config.IngestKey)
	}

	var session retrace.Session
	if err := c.doJSON(req, &session); err != nil {
		return retrace.Session{}, err
	}
	return session, nil
}

// List lists sessions. If opts.All is true, paginates through all pages.
func (c *Client) List(ctx context.Context, opts ListOptions) (*retrace.ListResult, error) {
	if opts.All {
		return c.listAll(ctx, opts)
	}
	return c.listPage(ctx, opts)
}

func (c *Client) listPage(ctx context.Context, opts ListOptions) (*retrace.ListResult, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = 100
	}
	if limit > 1000 {
		limit = 1000
	}

	query := url.Values{}
	query.Set("limit", strconv.Itoa(limit))
	if opts.URLPrefix != "" {
		query.Set("url_prefix", opts.URLPrefix)
	}
	if opts.Cursor != "" {
		query.Set("cursor", opts.Cursor)
	}

	req, err := c.newRequest(ctx, http.MethodGet, "/api/sessions", query, http.NoBody)
	if err != nil {
		return nil, err
	}

	var result retrace.ListResult
	if err := c.doJSON(req, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *Client) listAll(ctx context.Context, opts ListOptions) (*retrace.ListResult, error) {
	var allItems []retrace.Session
	cursor := opts.Cursor

	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		page, err := c.listPage(ctx, ListOptions{
			URLPrefix: opts.URLPrefix,
			Limit:     opts.Limit,
			Cursor:    cursor,
		})
		if err != nil {
			return nil, err
		}

		allItems = append(allItems, page.Items...)

		if page.NextCursor == "" {
			break
		}
		cursor = page.NextCursor
	}

	return &retrace.ListResult{Items: allItems}, nil
}

// Get retrieves a single session by id.
func (c *Client) Get(ctx context.Context, id uuid.UUID) (retrace.Session, error) {
	req, err := c.newRequest(ctx, http.MethodGet, "/api/sessions/"+id.String(), nil, http.NoBody)
	if err != nil {
		return retrace.Session{}, err
	}

	var session retrace.Session
	if err := c.doJSON(req, &session); err != nil {
		return retrace.Session{}, err
	}
	return session, nil
}

// Delete deletes one or more sessions.
// Continues on error, collecting results for all ids.
func (c *Client) Delete(ctx context.Context, ids []uuid.UUID) ([]DeleteResult, error) {
	if len(ids) == 0 {
		return nil, ErrNoIDs
	}

	results := make([]DeleteResult, 0, len(ids))

	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return results, err
		}
		results = append(results, c.deleteSingle(ctx, id))
	}

	return results, nil
}

func (c *Client) deleteSingle(ctx context.Context, id uuid.UUID) DeleteResult {
	req, err := c.newRequest(ctx, http.MethodDelete, "/api/sessions/"+id.String(), nil, http.NoBody)
	if err != nil {
		return DeleteResult{ID: id, Err: err}
	}

	if err := c.doJSON(req, nil); err != nil {
		return DeleteResult{ID: id, Err: err}
	}
	return DeleteResult{ID: id, Deleted: true}
}

// HasDeleteErrors returns true if any delete operation failed.
func HasDeleteErrors(results []DeleteResult) bool {
	for _, r := range results {
		if r.Err != nil {
			return true
		}
	}
	return false
}

// DownloadRecording downloads a session's recording.
// If opts.LocalPath is "-", the content is returned via the
// io.ReadCloser and must be closed by the caller. Otherwise, the content
// is written to the file and the io.ReadCloser is nil.
func (c *Client) DownloadRecording(ctx context.Context, opts DownloadOptions) (*DownloadResult, io.ReadCloser, error) {
	req, err := c.newRequest(ctx, http.MethodGet, "/api/sessions/"+opts.ID.String()+"/recording", nil, http.NoBody)
	if err != nil {
		return nil, nil, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, nil, fmt.Errorf("do request: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		_ = resp.Body.Close()
		return nil, nil, parseServerError(resp.StatusCode, body)
	}

	result := &DownloadResult{
		ID:          opts.ID,
		ETag:        strings.Trim(resp.Header.Get("ETag"), `"`),
		ContentType: resp.Header.Get("Content-Type"),
		Size:        resp.ContentLength,
	}

	if opts.LocalPath == "-" {
		result.LocalPath = "-"
		return result, resp.Body, nil
	}

	localPath := opts.LocalPath
	if localPath == "" {
		localPath = opts.ID.String() + ".json"
	}
	result.LocalPath = localPath

	dir := filepath.Dir(localPath)
	if dir != "" && dir != "." {
		if mkdirErr := os.MkdirAll(dir, 0o750); mkdirErr != nil {
			_ = resp.Body.Close()
			return nil, nil, fmt.Errorf("create directory: %w", mkdirErr)
		}
	}

	file, createErr := os.Create(localPath) //#nosec G304 -- localPath is user-provided input
	if createErr != nil {
		_ = resp.Body.Close()
		return nil, nil, fmt.Errorf("create file: %w", createErr)
	}

	written, copyErr := io.Copy(file, resp.Body)
	_ = resp.Body.Close()
	if copyErr != nil {
		_ = file.Close()
		return nil, nil, fmt.Errorf("write file: %w", copyErr)
	}

	if closeErr := file.Close(); closeErr != nil {
		return nil, nil, fmt.Errorf("close file: %w", closeErr)
	}

	result.Size = written
	return result, nil, nil
}

// Attach uploads a file as a session attachment. The file streams to the
// server without an in-memory copy.
func (c *Client) Attach(ctx context.Context, opts AttachOptions) (retrace.Attachment, error) {
	if opts.LocalPath == "" {
		return retrace.Attachment{}, fmt.Errorf("attach: %w", ErrEmptyPath)
	}

	file, err := os.Open(opts.LocalPath) //#nosec G304 -- localPath is user-provided input
	if err != nil {
		return retrace.Attachment{}, fmt.Errorf("open file: %w", err)
	}
	defer func() { _ = file.Close() }()

	info, err := file.Stat()
	if err != nil {
		return retrace.Attachment{}, fmt.Errorf("stat file: %w", err)
	}

	filename := opts.Filename
	if filename == "" {
		filename = filepath.Base(opts.LocalPath)
	}
	contentType := opts.ContentType
	if contentType == "" {
		contentType = detectContentType(opts.LocalPath)
	}

	query := url.Values{}
	query.Set("filename", filename)

	req, err := c.newRequest(ctx, http.MethodPost, "/api/sessions/"+opts.ID.String()+"/attachments", query, file)
	if err != nil {
		return retrace.Attachment{}, err
	}
	req.Header.Set("Content-Type", contentType)
	req.ContentLength = info.Size()

	var attachment retrace.Attachment
	if err := c.doJSON(req, &attachment); err != nil {
		return retrace.Attachment{}, err
	}
	return attachment, nil
}

// Share mints a share link for a session.
func (c *Client) Share(ctx context.Context, id uuid.UUID) (ShareResult, error) {
	req, err := c.newRequest(ctx, http.MethodPost, "/api/sessions/"+id.String()+"/share", nil, http.NoBody)
	if err != nil {
		return ShareResult{}, err
	}

	var result ShareResult
	if err := c.doJSON(req, &result); err != nil {
		return ShareResult{}, err
	}
	return result, nil
}

// Summarize asks the server to generate a summary and returns the
// updated session.
func (c *Client) Summarize(ctx context.Context, id uuid.UUID) (retrace.Session, error) {
	req, err := c.newRequest(ctx, http.MethodPost, "/api/sessions/"+id.String()+"/summary", nil, http.NoBody)
	if err != nil {
		return retrace.Session{}, err
	}

	var session retrace.Session
	if err := c.doJSON(req, &session); err != nil {
		return retrace.Session{}, err
	}
	return session, nil
}

// Health fetches the server's health report. The route reports through
// the body on both 200 and 503, so an unhealthy server is a valid
// result, not an error.
func (c *Client) Health(ctx context.Context) (HealthStatus, error) {
	req, err := c.newRequest(ctx, http.MethodGet, "/api/health", nil, http.NoBody)
	if err != nil {
		return HealthStatus{}, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return HealthStatus{}, fmt.Errorf("do request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return HealthStatus{}, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusServiceUnavailable {
		return HealthStatus{}, parseServerError(resp.StatusCode, body)
	}

	var status HealthStatus
	if err := json.Unmarshal(body, &status); err != nil {
		return HealthStatus{}, fmt.Errorf("parse response: %w", err)
	}
	return status, nil
}

// ListBlobs lists stored blobs through the admin route.
func (c *Client) ListBlobs(ctx context.Context, opts BlobListOptions) (*blob.ListResult, error) {
	query := url.Values{}
	if opts.Prefix != "" {
		query.Set("prefix", opts.Prefix)
	}
	if opts.Limit > 0 {
		query.Set("limit", strconv.Itoa(opts.Limit))
	}
	if opts.Cursor != "" {
		query.Set("cursor", opts.Cursor)
	}

	req, err := c.newRequest(ctx, http.MethodGet, "/api/blobs", query, http.NoBody)
	if err != nil {
		return nil, err
	}
	c.setAdminAuth(req)

	var result blob.ListResult
	if err := c.doJSON(req, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// PurgeBlobs deletes every blob under a key prefix through the admin
// route and returns the count.
func (c *Client) PurgeBlobs(ctx context.Context, prefix string) (int, error) {
	if prefix == "" {
		return 0, fmt.Errorf("purge blobs: %w", ErrPrefixRequired)
	}

	query := url.Values{}
	query.Set("prefix", prefix)

	req, err := c.newRequest(ctx, http.MethodDelete, "/api/blobs", query, http.NoBody)
	if err != nil {
		return 0, err
	}
	c.setAdminAuth(req)

	var result struct {
		Deleted int `json:"deleted"`
	}
	if err := c.doJSON(req, &result); err != nil {
		return 0, err
	}
	return result.Deleted, nil
}

func (c *Client) setAdminAuth(req *http.Request) {
	if c.config.AdminUser != "" {
		req.SetBasicAuth(c.config.AdminUser, c.config.AdminPassword)
	}
}

// detectContentType returns MIME type based on file extension.
func detectContentType(path string) string {
	ext := filepath.Ext(path)
	if ext == "" {
		return "application/octet-stream"
	}

	mimeType := mime.TypeByExtension(ext)
	if mimeType == "" {
		return "application/octet-stream"
	}

	return mimeType
}

// parseServerError extracts the error envelope from a server response.
func parseServerError(statusCode int, body []byte) error {
	var envelope struct {
		Error struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(body, &envelope); err == nil && envelope.Error.Code != "" {
		return &APIError{
			StatusCode: statusCode,
			Code:       envelope.Error.Code,
			Message:    envelope.Error.Message,
		}
	}
	return &APIError{StatusCode: statusCode, Message: strings.TrimSpace(string(body))}
}

// APIError represents an error response from the server.
type APIError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("server error: %d %s - %s", e.StatusCode, e.Code, e.Message)
	}
	return fmt.Sprintf("server error: %d - %s", e.StatusCode, e.Message)
}

// Is reports whether target matches this error.
// It matches if target is an *APIError with the same StatusCode.
func (e *APIError) Is(target error) bool {
	var t *APIError
	ok := errors.As(target, &t)
	if !ok {
		return false
	}
	return t.StatusCode == e.StatusCode
}

// IsNotFound returns true if the error is a 404.
func (e *APIError) IsNotFound() bool {
	return e.StatusCode == http.StatusNotFound
}

// Sentinel errors for common API error conditions.
// Use errors.Is() to check for these conditions.
var (
	// ErrNotFound is returned when the requested resource does not exist (404).
	ErrNotFound = &APIError{StatusCode: http.StatusNotFound}

	// ErrUnauthorized is returned when authentication fails (401).
	// This typically means an invalid or missing ingest key or admin password.
	ErrUnauthorized = &APIError{StatusCode: http.StatusUnauthorized}

	// ErrForbidden is returned when the request is not permitted (403).
	ErrForbidden = &APIError{StatusCode: http.StatusForbidden}
)
