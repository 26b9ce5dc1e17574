package blob

import (
	"context"
	"fmt"
	"net/http"
	"time"
)

// Stats receives one observation per facade operation. Implementations
// must be safe for concurrent use.
type Stats interface {
	ObserveOp(op string, mode Mode, err error, elapsed time.Duration)
}

// Store is the storage facade. Every operation resolves the active mode
// from the settings source before touching a backend, so configuration
// changes apply to the next call without a restart.
type Store struct {
	source Source
	memory *Memory
	remote *Remote
	stats  Stats

	httpClient *http.Client
}

// Option configures a Store.
type Option func(*Store)

// WithHTTPClient sets the HTTP client the remote backend uses.
func WithHTTPClient(client *http.Client) Option {
	return func(s *Store) {
		s.httpClient = client
	}
}

// WithStats installs an operation observer.
func WithStats(stats Stats) Option {
	return func(s *Store) {
		s.stats = stats
	}
}

// New creates a Store reading settings from source.
func New(source Source, opts ...Option) *Store {
	s := &Store{source: source}
	for _, opt := range opts {
		opt(s)
	}

	s.memory = NewMemory()
	s.remote = NewRemote(source, s.httpClient)
	return s
}

// Memory exposes the in-process backend so tests can clear or inspect it.
func (s *Store) Memory() *Memory {
	return s.memory
}

// InvalidateCredentials drops the remote backend's cached credentials.
func (s *Store) InvalidateCredentials() {
	s.remote.InvalidateCredentials()
}

func (s *Store) resolve() (Mode, Backend, Settings, error) {
	settings := s.source.BlobSettings()
	mode, err := ParseMode(settings.Mode)
	if err != nil {
		return "", nil, settings, err
	}

	if mode == ModeRemote {
		return mode, s.remote, settings, nil
	}
	return mode, s.memory, settings, nil
}

func (s *Store) observe(op string, mode Mode, err error, start time.Time) {
	if s.stats == nil {
		return
	}
	s.stats.ObserveOp(op, mode, err, time.Since(start))
}

// Put stores a payload under key and returns the final key with its
// serving URLs. With AddRandomSuffix the stored key gets a unique token
// before its extension and the returned URLs point at that final key.
func (s *Store) Put(ctx context.Context, key string, data []byte, opts PutOptions) (PutResult, error) {
	start := time.Now()
	mode, backend, settings, err := s.resolve()
	if err != nil {
		s.observe("put", mode, err, start)
		return PutResult{}, err
	}

	if err := ctx.Err(); err != nil {
		return PutResult{}, err
	}

	k := NormalizeKey(key)
	if k == "" {
		return PutResult{}, fmt.Errorf("put: empty key: %w", ErrInvalidKey)
	}
	if opts.AddRandomSuffix {
		k = WithRandomSuffix(k)
	}

	contentType := opts.ContentType
	if contentType == "" {
		contentType = detectContentType(k)
	}

	err = backend.Put(ctx, k, Object{
		Data:         data,
		ContentType:  contentType,
		CacheControl: opts.CacheControl,
	})
	s.observe("put", mode, err, start)
	if err != nil {
		return PutResult{}, fmt.Errorf("put %s: %w", k, err)
	}

	u := proxyURL(settings, k)
	return PutResult{Key: k, URL: u, DownloadURL: downloadURL(u)}, nil
}

// Read fetches an object by key, proxy URL, or public URL. It returns nil
// when the object does not exist or when the input is not one of ours
// (foreign absolute URLs, data URIs).
func (s *Store) Read(ctx context.Context, keyOrURL string) (*Object, error) {
	start := time.Now()
	mode, backend, settings, err := s.resolve()
	if err != nil {
		s.observe("read", mode, err, start)
		return nil, err
	}

	key, ok := extractKey(settings, keyOrURL)
	if !ok || key == "" {
		return nil, nil
	}

	obj, err := backend.Get(ctx, key)
	s.observe("read", mode, err, start)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", key, err)
	}
	return obj, nil
}

// Delete removes one object and reports whether it existed. Deleting an
// absent key is not an error.
func (s *Store) Delete(ctx context.Context, key string) (bool, error) {
	start := time.Now()
	mode, backend, _, err := s.resolve()
	if err != nil {
		s.observe("delete", mode, err, start)
		return false, err
	}

	k := NormalizeKey(key)
	if k == "" {
		return false, fmt.Errorf("delete: empty key: %w", ErrInvalidKey)
	}

	existed, err := backend.Delete(ctx, k)
	s.observe("delete", mode, err, start)
	if err != nil {
		return false, fmt.Errorf("delete %s: %w", k, err)
	}
	return existed, nil
}

// DeletePrefix removes every object under prefix and returns how many
// existed.
func (s *Store) DeletePrefix(ctx context.Context, prefix string) (int, error) {
	start := time.Now()
	mode, backend, _, err := s.resolve()
	if err != nil {
		s.observe("delete_prefix", mode, err, start)
		return 0, err
	}

	p := NormalizeKey(prefix)
	entries, err := backend.List(ctx, p)
	if err != nil {
		s.observe("delete_prefix", mode, err, start)
		return 0, fmt.Errorf("delete prefix %s: %w", p, err)
	}

	deleted := 0
	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			s.observe("delete_prefix", mode, err, start)
			return deleted, err
		}

		existed, err := backend.Delete(ctx, entry.Key)
		if err != nil {
			s.observe("delete_prefix", mode, err, start)
			return deleted, fmt.Errorf("delete prefix %s: %w", p, err)
		}
		if existed {
			deleted++
		}
	}

	s.observe("delete_prefix", mode, nil, start)
	return deleted, nil
}

// List returns one page of objects under a prefix, sorted by key. Paging
// is cursor-based: pass the returned cursor to continue after the last
// key of the previous page.
func (s *Store) List(ctx context.Context, opts ListOptions) (ListResult, error) {
	start := time.Now()
	mode, backend, settings, err := s.resolve()
	if err != nil {
		s.observe("list", mode, err, start)
		return ListResult{}, err
	}

	prefix := NormalizeKey(opts.Prefix)
	entries, err := backend.List(ctx, prefix)
	s.observe("list", mode, err, start)
	if err != nil {
		return ListResult{}, fmt.Errorf("list %s: %w", prefix, err)
	}

	res := pageEntries(entries, opts.Limit, opts.Cursor)
	for i := range res.Blobs {
		res.Blobs[i].URL = proxyURL(settings, res.Blobs[i].Key)
	}
	return res, nil
}

// Health probes the active backend without mutating anything. Memory is
// always healthy; remote runs a single-entry list against the bucket. The
// reason distinguishes configuration problems from backend failures.
func (s *Store) Health(ctx context.Context) HealthReport {
	mode, backend, settings, err := s.resolve()
	if err != nil {
		return HealthReport{OK: false, Reason: err.Error()}
	}

	if err := backend.Health(ctx); err != nil {
		return HealthReport{OK: false, Mode: mode, Bucket: settings.Bucket, Reason: err.Error()}
	}

	report := HealthReport{OK: true, Mode: mode}
	if mode == ModeRemote {
		report.Bucket = settings.Bucket
	}
	return report
}

// Environment reports the storage configuration for diagnostics. It never
// fails: misconfiguration is captured in the Error field.
func (s *Store) Environment() Environment {
	settings := s.source.BlobSettings()

	diag := map[string]string{
		"proxy_prefix":    settings.proxyPrefix(),
		"public_base_set": boolString(settings.PublicBase != ""),
	}

	mode, err := ParseMode(settings.Mode)
	if err != nil {
		return Environment{
			Provider:    "",
			Configured:  false,
			Bucket:      "",
			Diagnostics: diag,
			Error:       err.Error(),
		}
	}

	if mode == ModeMemory {
		return Environment{
			Provider:    string(ModeMemory),
			Configured:  true,
			Bucket:      "",
			Diagnostics: diag,
		}
	}

	diag["endpoint_host"] = endpointHost(settings.Endpoint)
	diag["service_key_present"] = boolString(settings.ServiceKey != "")

	env := Environment{
		Provider:    string(ModeRemote),
		Configured:  true,
		Bucket:      settings.Bucket,
		Diagnostics: diag,
	}
	if missing := settings.missingRemoteKeys(); len(missing) > 0 {
		env.Configured = false
		env.Error = missingConfig(missing...).Error()
	}
	return env
}

// ProxyURL returns the serving URL for a key under the current settings.
func (s *Store) ProxyURL(key string) string {
	return proxyURL(s.source.BlobSettings(), NormalizeKey(key))
}

// ExtractKey resolves a key, proxy URL, or public URL to the stored key.
// The second return is false when the input is not one of ours.
func (s *Store) ExtractKey(input string) (string, bool) {
	return extractKey(s.source.BlobSettings(), input)
}
