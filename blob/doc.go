// Package blob provides the storage layer for recording payloads with two
// interchangeable backends behind one facade.
//
// The memory backend keeps objects in an in-process map and is the default
// for development and tests. The remote backend talks to a bucket-scoped
// HTTP object store with bearer-token authentication. The active backend is
// resolved from configuration on every operation, so a settings refresh
// switches backends without a restart.
//
// # Basic Usage
//
//	store := blob.New(blob.SourceFunc(func() blob.Settings {
//		return blob.Settings{Mode: "memory"}
//	}))
//
//	res, err := store.Put(ctx, "sessions/abc/recording.json", data, blob.PutOptions{
//		ContentType: "application/json",
//	})
//	// res.URL is the proxy URL the HTTP layer serves the object under.
//
//	obj, err := store.Read(ctx, res.URL)
//	// obj is nil when the object does not exist or the input is not ours.
//
// # Errors
//
// Missing or invalid configuration surfaces as *ConfigError naming the
// offending keys. Remote failures surface as *APIError carrying the HTTP
// status and a truncated response body. Absent objects are never errors:
// Read returns nil and Delete reports false.
package blob
