package config

import "errors"

// Validation errors returned by Config.Validate. Callers match them with errors.Is.
var (
	// ErrUnknownProvider is returned when provider is neither apollo nor gemini.
	ErrUnknownProvider = errors.New("unknown provider: must be apollo or gemini")

	// ErrInvalidTimeout is returned when the per-request timeout is not positive.
	ErrInvalidTimeout = errors.New("invalid request timeout: must be positive")

	// ErrInvalidRateLimit is returned when the client-side rate limit is negative.
	// Use 0 to disable pacing.
	ErrInvalidRateLimit = errors.New("invalid rate limit: must be non-negative")

	// ErrInvalidServerLimit is returned when the per-client request limit or its
	// window is negative.
	ErrInvalidServerLimit = errors.New("invalid server limit: max and window must be non-negative")

	// ErrMissingAPIKey is returned by RequireCredential when the selected
	// provider has no API key. It is fatal for the CLI and a 503 for the server.
	ErrMissingAPIKey = errors.New("missing API key")

	// ErrConfigNotFound is returned when an explicitly named config file does not exist.
	ErrConfigNotFound = errors.New("configuration file not found")
)
