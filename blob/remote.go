package blob

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"
)

const (
	// DefaultTimeout is the default HTTP client timeout for remote calls.
	DefaultTimeout = 30 * time.Second

	// remoteListLimit is the fixed page size for remote list calls. The
	// facade re-paginates client side, so prefixes holding more objects
	// than this are listed incompletely. That ceiling is an accepted
	// scaling limit of the remote protocol.
	remoteListLimit = 1000
)

type credentials struct {
	endpoint   string
	bucket     string
	serviceKey string
}

// Remote talks to the bucket-scoped HTTP object store. Credentials are
// resolved from the settings source on first use and cached until
// InvalidateCredentials; a missing credential is a ConfigError listing
// every absent key.
//
// Remote never retries. One request per operation; failures propagate to
// the caller.
type Remote struct {
	source Source
	client *http.Client

	mu    sync.Mutex
	creds *credentials
}

// NewRemote creates a remote backend reading credentials from source.
// A nil client gets a default with DefaultTimeout.
func NewRemote(source Source, client *http.Client) *Remote {
	if client == nil {
		client = &http.Client{Timeout: DefaultTimeout}
	}
	return &Remote{source: source, client: client}
}

func (r *Remote) credentials() (credentials, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.creds != nil {
		return *r.creds, nil
	}

	s := r.source.BlobSettings()
	if missing := s.missingRemoteKeys(); len(missing) > 0 {
		return credentials{}, missingConfig(missing...)
	}

	r.creds = &credentials{
		endpoint:   strings.TrimSuffix(strings.TrimSpace(s.Endpoint), "/"),
		bucket:     strings.TrimSpace(s.Bucket),
		serviceKey: strings.TrimSpace(s.ServiceKey),
	}
	return *r.creds, nil
}

// InvalidateCredentials drops the cached credentials so the next operation
// re-reads the settings source.
func (r *Remote) InvalidateCredentials() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.creds = nil
}

func (c credentials) objectURL(key string) string {
	return c.endpoint + "/object/" + c.bucket + "/" + encodeKeyPath(key)
}

func (c credentials) listURL() string {
	return c.endpoint + "/object/list/" + c.bucket
}

func (r *Remote) newRequest(ctx context.Context, method, url string, body io.Reader, c credentials) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.serviceKey)
	return req, nil
}

func (r *Remote) Put(ctx context.Context, key string, obj Object) error {
	c, err := r.credentials()
	if err != nil {
		return err
	}

	req, err := r.newRequest(ctx, http.MethodPost, c.objectURL(key), bytes.NewReader(obj.Data), c)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", obj.ContentType)
	if obj.CacheControl != "" {
		req.Header.Set("Cache-Control", obj.CacheControl)
	}
	req.ContentLength = int64(len(obj.Data))

	resp, err := r.client.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(resp.Body)
		return newAPIError(resp.StatusCode, body)
	}

	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

func (r *Remote) Get(ctx context.Context, key string) (*Object, error) {
	c, err := r.credentials()
	if err != nil {
		return nil, err
	}

	req, err := r.newRequest(ctx, http.MethodGet, c.objectURL(key), http.NoBody, c)
	if err != nil {
		return nil, err
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("do request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode == http.StatusNotFound {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, nil
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(resp.Body)
		return nil, newAPIError(resp.StatusCode, body)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	obj := &Object{
		Data:         data,
		ContentType:  resp.Header.Get("Content-Type"),
		Size:         int64(len(data)),
		CacheControl: resp.Header.Get("Cache-Control"),
		ETag:         strings.Trim(resp.Header.Get("ETag"), `"`),
	}
	if lastModified := resp.Header.Get("Last-Modified"); lastModified != "" {
		if t, parseErr := http.ParseTime(lastModified); parseErr == nil {
			obj.UploadedAt = t
		}
	}
	return obj, nil
}

func (r *Remote) Delete(ctx context.Context, key string) (bool, error) {
	c, err := r.credentials()
	if err != nil {
		return false, err
	}

	req, err := r.newRequest(ctx, http.MethodDelete, c.objectURL(key), http.NoBody, c)
	if err != nil {
		return false, err
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return false, fmt.Errorf("do request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	// 404 counts as success so deletes stay idempotent.
	if resp.StatusCode == http.StatusNotFound {
		_, _ = io.Copy(io.Discard, resp.Body)
		return false, nil
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(resp.Body)
		return false, newAPIError(resp.StatusCode, body)
	}

	_, _ = io.Copy(io.Discard, resp.Body)
	return true, nil
}

type listRequest struct {
	Prefix string     `json:"prefix"`
	Limit  int        `json:"limit"`
	Offset int        `json:"offset"`
	SortBy listSortBy `json:"sortBy"`
}

type listSortBy struct {
	Column string `json:"column"`
	Order  string `json:"order"`
}

type listResponse struct {
	Data []listItem `json:"data"`
}

type listItem struct {
	Name      string `json:"name"`
	UpdatedAt string `json:"updated_at"`
	CreatedAt string `json:"created_at"`
	Metadata  struct {
		Size int64 `json:"size"`
	} `json:"metadata"`
}

// List queries the remote listing API. The API lists children of a folder,
// so the request carries the directory part of the prefix and the caller's
// full prefix is re-applied to the assembled keys.
func (r *Remote) List(ctx context.Context, prefix string) ([]Entry, error) {
	c, err := r.credentials()
	if err != nil {
		return nil, err
	}

	items, err := r.listFolder(ctx, c, listDir(prefix), remoteListLimit)
	if err != nil {
		return nil, err
	}

	dir := listDir(prefix)
	entries := make([]Entry, 0, len(items))
	for _, item := range items {
		key := item.Name
		if dir != "" {
			key = dir + "/" + item.Name
		}
		if !strings.HasPrefix(key, prefix) {
			continue
		}
		entries = append(entries, Entry{
			Key:        key,
			Size:       item.Metadata.Size,
			UploadedAt: item.uploadedAt(),
		})
	}
	return entries, nil
}

func (r *Remote) Health(ctx context.Context) error {
	c, err := r.credentials()
	if err != nil {
		return err
	}

	_, err = r.listFolder(ctx, c, "", 1)
	return err
}

func (r *Remote) listFolder(ctx context.Context, c credentials, dir string, limit int) ([]listItem, error) {
	payload, err := json.Marshal(listRequest{
		Prefix: dir,
		Limit:  limit,
		Offset: 0,
		SortBy: listSortBy{Column: "name", Order: "asc"},
	})
	if err != nil {
		return nil, fmt.Errorf("encode list request: %w", err)
	}

	req, err := r.newRequest(ctx, http.MethodPost, c.listURL(), bytes.NewReader(payload), c)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("do request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, newAPIError(resp.StatusCode, body)
	}

	var decoded listResponse
	if err := json.Unmarshal(body, &decoded); err != nil {
		return nil, fmt.Errorf("parse list response: %w", err)
	}
	return decoded.Data, nil
}

// listDir is the folder the listing API is asked for: everything up to the
// prefix's last slash.
func listDir(prefix string) string {
	idx := strings.LastIndex(prefix, "/")
	if idx < 0 {
		return ""
	}
	return prefix[:idx]
}

func (i listItem) uploadedAt() time.Time {
	for _, raw := range []string{i.UpdatedAt, i.CreatedAt} {
		if raw == "" {
			continue
		}
		if t, err := time.Parse(time.RFC3339, raw); err == nil {
			return t
		}
	}
	return time.Time{}
}
