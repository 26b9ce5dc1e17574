// Package retrace provides the core domain model and services for a
// session-recording backend.
//
// Retrace ingests browser session recordings (rrweb-style event arrays),
// stores the payloads through the blob package's pluggable storage layer,
// indexes session metadata in SQL, and exposes replay, sharing, and
// diagnostics operations.
//
// # Key Components
//
//   - SessionService: Main service combining the session repository and blob store
//   - SessionRepo: Interface for session metadata persistence (PostgreSQL, SQLite)
//   - BlobStore: Interface for recording payload storage (satisfied by blob.Store)
//   - Summarizer: Optional interface for AI-generated session summaries
//
// # Example Usage
//
//	service, err := retrace.NewSessionService(repo, store, retrace.ServiceConfig{})
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	// Ingest a recording
//	session, err := service.Record(ctx, retrace.RecordRequest{
//	    PageURL: "https://app.example.com/checkout",
//	    Events:  payload,
//	})
//
//	// Fetch it back for replay
//	session, recording, err := service.Replay(ctx, session.ID)
//
// See the http package for the REST API and the database packages for the
// repository implementations.
package retrace
