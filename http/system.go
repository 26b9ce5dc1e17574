package http

import (
	"bytes"
	"mime"
	"net/http"
	"path"
	"runtime"
	"strconv"
	"time"

	"github.com/retracehq/retrace/blob"
	"github.com/retracehq/retrace/deploy"
)

// defaultCacheControl applies to proxied objects that carry no cache
// policy of their own.
const defaultCacheControl = "public, max-age=3600"

type purgeResponse struct {
	Deleted int `json:"deleted"`
}

type healthResponse struct {
	OK       bool              `json:"ok"`
	Blob     blob.HealthReport `json:"blob"`
	Database string            `json:"database"`
}

type runtimeInfo struct {
	GoVersion  string `json:"go_version"`
	Goroutines int    `json:"goroutines"`
	Uptime     string `json:"uptime"`
}

type diagnosticsResponse struct {
	Storage blob.Environment `json:"storage"`
	Deploy  deploy.Info      `json:"deploy"`
	Runtime runtimeInfo      `json:"runtime"`
}

func (h *Handler) handleBlobProxy(w http.ResponseWriter, r *http.Request) {
	key, ok := h.blobs.ExtractKey(r.URL.EscapedPath())
	if !ok || key == "" {
		writeDefaultNotFound(w)
		return
	}

	obj, err := h.blobs.Read(r.Context(), key)
	if err != nil {
		HandleError(w, err)
		return
	}
	if obj == nil {
		writeDefaultNotFound(w)
		return
	}

	w.Header().Set("Content-Type", obj.ContentType)
	if obj.CacheControl != "" {
		w.Header().Set("Cache-Control", obj.CacheControl)
	} else {
		w.Header().Set("Cache-Control", defaultCacheControl)
	}
	if obj.ETag != "" {
		w.Header().Set("ETag", `"`+obj.ETag+`"`)
	}
	if r.URL.Query().Get("download") == "1" {
		disposition := mime.FormatMediaType("attachment", map[string]string{"filename": path.Base(key)})
		w.Header().Set("Content-Disposition", disposition)
	}

	http.ServeContent(w, r, "", obj.UploadedAt, bytes.NewReader(obj.Data))
}

func (h *Handler) handleBlobList(w http.ResponseWriter, r *http.Request) {
	prefix := r.URL.Query().Get("prefix")
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

	result, err := h.blobs.List(r.Context(), blob.ListOptions{
		Prefix: prefix,
		Limit:  limit,
		Cursor: cursor,
	})
	if err != nil {
		HandleError(w, err)
		return
	}

	_ = WriteJSON(w, http.StatusOK, result)
}

func (h *Handler) handleBlobPurge(w http.ResponseWriter, r *http.Request) {
	prefix := r.URL.Query().Get("prefix")
	if prefix == "" {
		WriteError(w, http.StatusBadRequest, "invalid_parameter", "prefix is required")
		return
	}

	deleted, err := h.blobs.DeletePrefix(r.Context(), prefix)
	if err != nil {
		HandleError(w, err)
		return
	}

	_ = WriteJSON(w, http.StatusOK, purgeResponse{Deleted: deleted})
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	report := h.blobs.Health(r.Context())

	resp := healthResponse{OK: report.OK, Blob: report, Database: "ok"}
	if err := h.service.Ping(r.Context()); err != nil {
		resp.OK = false
		resp.Database = err.Error()
	}

	status := http.StatusOK
	if !resp.OK {
		status = http.StatusServiceUnavailable
	}
	_ = WriteJSON(w, status, resp)
}

func (h *Handler) handleDiagnostics(w http.ResponseWriter, r *http.Request) {
	_ = WriteJSON(w, http.StatusOK, diagnosticsResponse{
		Storage: h.blobs.Environment(),
		Deploy:  h.config.Deploy,
		Runtime: runtimeInfo{
			GoVersion:  runtime.Version(),
			Goroutines: runtime.NumGoroutine(),
			Uptime:     time.Since(h.started).Round(time.Second).String(),
		},
	})
}
