// Package config provides configuration loading and validation for retrace.
//
// The package handles YAML configuration files, environment variables, and CLI flags
// with automatic merging and validation using go-playground/validator.
//
// # Configuration Precedence
//
// Values are loaded in this order (later sources override earlier ones):
//
//  1. Default values
//  2. Configuration file(s) - multiple files merged left-to-right
//  3. Environment variables (RETRACE_ prefix)
//  4. CLI flags
//
// When no file is given explicitly, config.yaml is searched in the working
// directory, $HOME/.config/retrace, and /etc/retrace.
//
// # Usage
//
//	cfg, err := config.Load([]string{"config.yaml"}, cmd.Flags())
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	// Store in context for subcommands
//	ctx = config.WithContext(ctx, cfg)
//
//	// Retrieve later
//	cfg, err = config.FromContext(ctx)
//
// # Environment Variables
//
// All config keys map to environment variables with RETRACE_ prefix:
//   - server.port → RETRACE_SERVER_PORT
//   - database.type → RETRACE_DATABASE_TYPE
//   - storage.mode → RETRACE_STORAGE_MODE
//
// # Secrets
//
// Sensitive values (storage.service_key, share.secret, ai.api_key,
// admin.password_hash) left empty in the config are filled from
// RETRACE_SECRET_* environment variables or from the configured secrets
// file, in that order. Values written directly into the config win.
//
// # Configuration Structure
//
// The Config struct contains:
//   - Server: port and request timeout
//   - Service: cleanup_timeout for background operations
//   - Database: type, DSN, and table names
//   - Storage: blob mode (memory/remote) and remote credentials
//   - Ingest: recording bearer key and body size cap
//   - Share: share link signing secret and TTL
//   - Admin: basic auth credentials for the blob admin routes
//   - AI: summarization API key, endpoint, model, and token budget
//   - Metrics: Prometheus exposition toggle
//   - CORS: cross-origin resource sharing settings
//   - Log: logging level and format
//   - Secrets: inline or file-backed secret source
//
// # Validation
//
// Configuration is validated using struct tags:
//   - Port must be 1-65535
//   - Storage mode must be memory or remote
//   - Share TTL must not exceed 7 days
//   - Log level must be debug, info, warn, or error
//
// # Hot reload
//
// The storage section converts into a Snapshot, which the server swaps
// atomically when the config file changes. The blob facade re-reads it
// on every operation, so a mode flip takes effect without a restart.
package config
