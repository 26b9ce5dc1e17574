package http

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/google/uuid"

	"github.com/retracehq/retrace"
	"github.com/retracehq/retrace/blob"
	"github.com/retracehq/retrace/deploy"
	"github.com/retracehq/retrace/metrics"
	"github.com/retracehq/retrace/sharetoken"
)

// defaultMaxBodySize caps ingest and attachment bodies when no limit is
// configured.
const defaultMaxBodySize = 10 << 20

// Service is the slice of the session service the handlers need.
type Service interface {
	Record(ctx context.Context, req retrace.RecordRequest) (retrace.Session, error)
	Get(ctx context.Context, id uuid.UUID) (retrace.Session, error)
	List(ctx context.Context, q retrace.ListQuery) (retrace.ListResult, error)
	Delete(ctx context.Context, id uuid.UUID) error
	Replay(ctx context.Context, id uuid.UUID) (retrace.Session, *blob.Object, error)
	Attach(ctx context.Context, id uuid.UUID, filename string, data []byte, contentType string) (retrace.Attachment, error)
	Summarize(ctx context.Context, id uuid.UUID) (retrace.Session, error)
	Ping(ctx context.Context) error
}

// BlobStore is the slice of the blob facade behind the proxy, admin,
// health and diagnostics routes.
type BlobStore interface {
	Read(ctx context.Context, keyOrURL string) (*blob.Object, error)
	List(ctx context.Context, opts blob.ListOptions) (blob.ListResult, error)
	DeletePrefix(ctx context.Context, prefix string) (int, error)
	ExtractKey(input string) (string, bool)
	Health(ctx context.Context) blob.HealthReport
	Environment() blob.Environment
}

type CORSConfig struct {
	Enabled          bool     `mapstructure:"enabled"`
	AllowedOrigins   []string `mapstructure:"allowed_origins"`
	AllowedMethods   []string `mapstructure:"allowed_methods"`
	AllowedHeaders   []string `mapstructure:"allowed_headers"`
	ExposedHeaders   []string `mapstructure:"exposed_headers"`
	AllowCredentials bool     `mapstructure:"allow_credentials"`
	MaxAge           int      `mapstructure:"max_age"`
}

// AdminConfig gates the blob admin routes. Both fields empty means the
// routes are off.
type AdminConfig struct {
	Username     string `mapstructure:"username"`
	PasswordHash string `mapstructure:"password_hash"`
}

type HandlerConfig struct {
	// IngestKey, when set, is the bearer token required on ingest.
	IngestKey string
	// MaxBodySize caps ingest and attachment bodies in bytes.
	MaxBodySize int64
	// ProxyPrefix is the path the blob proxy route serves under. Must
	// match the prefix the blob store builds URLs with.
	ProxyPrefix string
	Admin       AdminConfig
	CORS        CORSConfig
	// Deploy feeds the diagnostics route and absolute share link URLs.
	Deploy deploy.Info
}

// Handler provides the HTTP handlers for the session API.
type Handler struct {
	config    HandlerConfig
	service   Service
	blobs     BlobStore
	issuer    *sharetoken.Issuer
	collector *metrics.Collector
	started   time.Time
}

// HandlerOption configures optional handler capabilities.
type HandlerOption func(*Handler)

// WithShareTokens enables the share routes. Without an issuer they answer
// 503.
func WithShareTokens(issuer *sharetoken.Issuer) HandlerOption {
	return func(h *Handler) {
		h.issuer = issuer
	}
}

// WithMetrics installs request instrumentation and the /metrics route.
func WithMetrics(collector *metrics.Collector) HandlerOption {
	return func(h *Handler) {
		h.collector = collector
	}
}

// NewHandler creates a new Handler with the given configuration and
// dependencies.
func NewHandler(config *HandlerConfig, service Service, blobs BlobStore, opts ...HandlerOption) *Handler {
	h := &Handler{
		config:  *config,
		service: service,
		blobs:   blobs,
		started: time.Now(),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

func (h *Handler) maxBody() int64 {
	if h.config.MaxBodySize > 0 {
		return h.config.MaxBodySize
	}
	return defaultMaxBodySize
}

// proxyPattern is the chi route pattern serving stored objects.
func (h *Handler) proxyPattern() string {
	prefix := strings.TrimSpace(h.config.ProxyPrefix)
	if prefix == "" {
		prefix = blob.DefaultProxyPrefix
	}
	if !strings.HasPrefix(prefix, "/") {
		prefix = "/" + prefix
	}
	return strings.TrimSuffix(prefix, "/") + "/*"
}

// Router returns an http.Handler with all API routes configured. Request
// logging, recovery and timeouts are left to the caller so the router
// composes under any middleware stack.
func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()

	if h.collector != nil {
		r.Use(Metrics(h.collector))
	}

	if h.config.CORS.Enabled {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   h.config.CORS.AllowedOrigins,
			AllowedMethods:   h.config.CORS.AllowedMethods,
			AllowedHeaders:   h.config.CORS.AllowedHeaders,
			ExposedHeaders:   h.config.CORS.ExposedHeaders,
			AllowCredentials: h.config.CORS.AllowCredentials,
			MaxAge:           h.config.CORS.MaxAge,
		}))
	}

	r.Group(func(r chi.Router) {
		r.Use(BearerAuth(h.config.IngestKey))
		r.Post("/api/sessions", h.handleRecord)
	})

	r.Get("/api/sessions", h.handleList)
	r.Get("/api/sessions/{id}", h.handleGet)
	r.Delete("/api/sessions/{id}", h.handleDelete)
	r.Get("/api/sessions/{id}/recording", h.handleRecording)
	r.Post("/api/sessions/{id}/attachments", h.handleAttach)
	r.Post("/api/sessions/{id}/share", h.handleShare)
	r.Post("/api/sessions/{id}/summary", h.handleSummarize)
	r.Get("/api/share/{token}", h.handleSharedReplay)

	r.Get(h.proxyPattern(), h.handleBlobProxy)

	// Diagnostics are public until admin credentials exist, then they
	// move behind the same gate as the blob admin routes.
	if h.config.Admin.Username == "" {
		r.Get("/api/diagnostics", h.handleDiagnostics)
	}
	r.Group(func(r chi.Router) {
		r.Use(BasicAuth(h.config.Admin.Username, h.config.Admin.PasswordHash))
		r.Get("/api/blobs", h.handleBlobList)
		r.Delete("/api/blobs", h.handleBlobPurge)
		if h.config.Admin.Username != "" {
			r.Get("/api/diagnostics", h.handleDiagnostics)
		}
	})

	r.Get("/api/health", h.handleHealth)

	if h.collector != nil {
		r.Method(http.MethodGet, "/metrics", h.collector.Handler())
	}

	return r
}
