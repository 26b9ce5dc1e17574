package apiclient

import "errors"

// Errors for profile operations.
var (
	ErrProfileNotFound = errors.New("profile not found")
	ErrNoProfiles      = errors.New("no profiles configured")
	ErrProfileExists   = errors.New("profile already exists")
)

// Errors for input validation.
var (
	ErrConfigRequired  = errors.New("config is required")
	ErrPageURLRequired = errors.New("page url is required")
	ErrEmptyPath       = errors.New("path is required")
	ErrNoIDs           = errors.New("no session ids provided")
	ErrPrefixRequired  = errors.New("prefix is required")
)
