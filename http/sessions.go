package http

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"

	"github.com/retracehq/retrace"
	"github.com/retracehq/retrace/blob"
	"github.com/retracehq/retrace/sharetoken"
)

type recordBody struct {
	PageURL   string          `json:"page_url"`
	UserAgent string          `json:"user_agent"`
	Events    json.RawMessage `json:"events"`
}

type shareResponse struct {
	Token     string    `json:"token"`
	URL       string    `json:"url"`
	ExpiresAt time.Time `json:"expires_at"`
}

var errBodyTooLarge = errors.New("body too large")

// decodeBody unwraps the request body according to its Content-Encoding.
// The recorder compresses payloads client-side, so ingest accepts gzip
// and zstd alongside identity.
func decodeBody(r *http.Request) (io.ReadCloser, error) {
	switch enc := r.Header.Get("Content-Encoding"); enc {
	case "", "identity":
		return r.Body, nil
	case "gzip":
		zr, err := gzip.NewReader(r.Body)
		if err != nil {
			return nil, fmt.Errorf("%w: bad gzip payload", retrace.ErrInvalidInput)
		}
		return zr, nil
	case "zstd":
		zr, err := zstd.NewReader(r.Body)
		if err != nil {
			return nil, fmt.Errorf("%w: bad zstd payload", retrace.ErrInvalidInput)
		}
		return zr.IOReadCloser(), nil
	default:
		return nil, fmt.Errorf("%w: unsupported content encoding %q", retrace.ErrInvalidInput, enc)
	}
}

// readAll drains r up to limit bytes. The limit applies to the bytes read
// here, so decompressed payloads are capped independently of the wire cap
// MaxBytesReader enforces.
func readAll(r io.Reader, limit int64) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(r, limit+1))
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > limit {
		return nil, errBodyTooLarge
	}
	return data, nil
}

func writeBodyError(w http.ResponseWriter, err error) {
	var maxErr *http.MaxBytesError
	if errors.Is(err, errBodyTooLarge) || errors.As(err, &maxErr) {
		WriteError(w, http.StatusRequestEntityTooLarge, "payload_too_large", "Request body exceeds the configured limit")
		return
	}
	WriteError(w, http.StatusBadRequest, "invalid_body", "Could not read request body")
}

func sessionID(r *http.Request) (uuid.UUID, error) {
	return uuid.Parse(chi.URLParam(r, "id"))
}

func (h *Handler) handleRecord(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxBody())

	reader, err := decodeBody(r)
	if err != nil {
		HandleError(w, err)
		return
	}
	defer func() { _ = reader.Close() }()

	data, err := readAll(reader, h.maxBody())
	if err != nil {
		writeBodyError(w, err)
		return
	}

	var body recordBody
	if err := json.Unmarshal(data, &body); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid_body", "Request body must be valid JSON")
		return
	}
	if body.UserAgent == "" {
		body.UserAgent = r.UserAgent()
	}

	session, err := h.service.Record(r.Context(), retrace.RecordRequest{
		PageURL:   body.PageURL,
		UserAgent: body.UserAgent,
		Events:    body.Events,
	})
	if err != nil {
		HandleError(w, err)
		return
	}

	if h.collector != nil {
		h.collector.AddIngestBytes(session.RecordingSize)
	}

	_ = WriteJSON(w, http.StatusCreated, session)
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	prefix := r.URL.Query().Get("url_prefix")
	limitStr := r.URL.Query().Get("limit")
	cursor := r.URL.Query().Get("cursor")

	limit := 100
	if limitStr != "" {
		parsed, err := strconv.Atoi(limitStr)
		if err != nil {
			WriteError(w, http.StatusBadRequest, "invalid_parameter", "limit must be an integer")
			return
		}
		limit = max(1, min(1000, parsed))
	}

	// Reject malformed cursors here; the repos treat them as plain
	// query failures.
	if _, err := retrace.DecodeCursor(cursor); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid_cursor", "Cursor is not valid")
		return
	}

	result, err := h.service.List(r.Context(), retrace.ListQuery{
		URLPrefix: prefix,
		Limit:     limit,
		Cursor:    cursor,
	})
	if err != nil {
		HandleError(w, err)
		return
	}

	_ = WriteJSON(w, http.StatusOK, result)
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	id, err := sessionID(r)
	if err != nil {
		WriteError(w, http.StatusBadRequest, "invalid_id", "Session id must be a UUID")
		return
	}

	session, err := h.service.Get(r.Context(), id)
	if err != nil {
		HandleError(w, err)
		return
	}

	_ = WriteJSON(w, http.StatusOK, session)
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	id, err := sessionID(r)
	if err != nil {
		WriteError(w, http.StatusBadRequest, "invalid_id", "Session id must be a UUID")
		return
	}

	if err := h.service.Delete(r.Context(), id); err != nil {
		HandleError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleRecording(w http.ResponseWriter, r *http.Request) {
	id, err := sessionID(r)
	if err != nil {
		WriteError(w, http.StatusBadRequest, "invalid_id", "Session id must be a UUID")
		return
	}

	_, obj, err := h.service.Replay(r.Context(), id)
	if err != nil {
		HandleError(w, err)
		return
	}

	serveRecording(w, r, obj)
}

func (h *Handler) handleAttach(w http.ResponseWriter, r *http.Request) {
	id, err := sessionID(r)
	if err != nil {
		WriteError(w, http.StatusBadRequest, "invalid_id", "Session id must be a UUID")
		return
	}

	filename := r.URL.Query().Get("filename")

	r.Body = http.MaxBytesReader(w, r.Body, h.maxBody())
	data, err := readAll(r.Body, h.maxBody())
	if err != nil {
		writeBodyError(w, err)
		return
	}

	attachment, err := h.service.Attach(r.Context(), id, filename, data, r.Header.Get("Content-Type"))
	if err != nil {
		HandleError(w, err)
		return
	}

	_ = WriteJSON(w, http.StatusCreated, attachment)
}

func (h *Handler) handleShare(w http.ResponseWriter, r *http.Request) {
	id, err := sessionID(r)
	if err != nil {
		WriteError(w, http.StatusBadRequest, "invalid_id", "Session id must be a UUID")
		return
	}

	if h.issuer == nil {
		WriteError(w, http.StatusServiceUnavailable, "unavailable", "Sharing is not configured")
		return
	}

	if _, err := h.service.Get(r.Context(), id); err != nil {
		HandleError(w, err)
		return
	}

	token, expiresAt, err := h.issuer.Issue(id)
	if err != nil {
		HandleError(w, err)
		return
	}

	_ = WriteJSON(w, http.StatusCreated, shareResponse{
		Token:     token,
		URL:       h.shareURL(token),
		ExpiresAt: expiresAt,
	})
}

func (h *Handler) shareURL(token string) string {
	base := strings.TrimSuffix(h.config.Deploy.BaseURL, "/")
	return base + "/api/share/" + token
}

func (h *Handler) handleSharedReplay(w http.ResponseWriter, r *http.Request) {
	if h.issuer == nil {
		WriteError(w, http.StatusServiceUnavailable, "unavailable", "Sharing is not configured")
		return
	}

	id, err := h.issuer.Verify(chi.URLParam(r, "token"))
	if err != nil {
		if errors.Is(err, sharetoken.ErrExpired) {
			WriteError(w, http.StatusUnauthorized, "token_expired", "Share link has expired")
			return
		}
		WriteError(w, http.StatusUnauthorized, "invalid_token", "Share link is not valid")
		return
	}

	_, obj, err := h.service.Replay(r.Context(), id)
	if err != nil {
		HandleError(w, err)
		return
	}

	serveRecording(w, r, obj)
}

func (h *Handler) handleSummarize(w http.ResponseWriter, r *http.Request) {
	id, err := sessionID(r)
	if err != nil {
		WriteError(w, http.StatusBadRequest, "invalid_id", "Session id must be a UUID")
		return
	}

	session, err := h.service.Summarize(r.Context(), id)
	if err != nil {
		HandleError(w, err)
		return
	}

	_ = WriteJSON(w, http.StatusOK, session)
}

func serveRecording(w http.ResponseWriter, r *http.Request, obj *blob.Object) {
	contentType := obj.ContentType
	if contentType == "" {
		contentType = "application/json"
	}
	w.Header().Set("Content-Type", contentType)
	if obj.ETag != "" {
		w.Header().Set("ETag", `"`+obj.ETag+`"`)
	}

	http.ServeContent(w, r, "", obj.UploadedAt, bytes.NewReader(obj.Data))
}
