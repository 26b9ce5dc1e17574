// Package http provides the HTTP API for the retrace backend.
//
// The API covers the session lifecycle end to end: ingest, listing,
// replay, attachments, share links and AI summaries, plus a blob proxy
// route serving stored objects, admin blob management, health and
// diagnostics endpoints.
//
// # Routes
//
//   - POST   /api/sessions                   ingest a recording (optional bearer key)
//   - GET    /api/sessions                   list sessions with cursor pagination
//   - GET    /api/sessions/{id}              session metadata
//   - DELETE /api/sessions/{id}              remove the session row and its blobs
//   - GET    /api/sessions/{id}/recording    replay payload
//   - POST   /api/sessions/{id}/attachments  upload an auxiliary file
//   - POST   /api/sessions/{id}/share        mint a signed share link
//   - GET    /api/share/{token}              replay via share token
//   - POST   /api/sessions/{id}/summary      generate an AI summary
//   - GET    /api/blob/*                     blob proxy (prefix configurable)
//   - GET    /api/blobs                      admin: list stored objects
//   - DELETE /api/blobs?prefix=              admin: purge objects under a prefix
//   - GET    /api/health                     blob and database health probe
//   - GET    /api/diagnostics                storage, deploy and runtime info
//   - GET    /metrics                        prometheus exposition
//
// # Authentication
//
// Ingest optionally requires a static bearer key compared in constant
// time. Admin routes sit behind HTTP basic auth checked against a bcrypt
// hash and answer 404 until credentials are configured. Share tokens are
// signed JWTs minted and verified by the sharetoken package.
//
// # Ingest encoding
//
// POST /api/sessions accepts Content-Encoding gzip and zstd; both the
// wire payload and the decompressed payload are capped at the configured
// body limit.
//
// # Usage
//
// Create a handler with HandlerConfig and its dependencies:
//
//	handlerCfg := http.HandlerConfig{
//	    MaxBodySize: 10 << 20,
//	    CORS:        http.CORSConfig{Enabled: true, AllowedOrigins: []string{"*"}},
//	}
//	handler := http.NewHandler(&handlerCfg, service, blobs,
//	    http.WithShareTokens(issuer),
//	    http.WithMetrics(collector),
//	)
//	http.ListenAndServe(":5710", handler.Router())
//
// Errors come back as a JSON envelope:
//
//	{"error": {"code": "not_found", "message": "Resource not found"}}
package http
