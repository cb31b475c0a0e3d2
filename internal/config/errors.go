package config

import "errors"

// Configuration validation errors.
// These errors are returned by Config.Validate() and provide specific
// information about what is wrong with the configuration.
//
// Design decision: We use package-level sentinel errors rather than
// creating new error instances in Validate(). This allows callers to use
// errors.Is() for programmatic error handling while still providing
// human-readable messages.
var (
	// ErrEmptyQuery is returned when no search keywords are given.
	ErrEmptyQuery = errors.New("empty query: provide at least one keyword")

	// ErrInvalidTimeout is returned when the per-fetch timeout is not positive.
	ErrInvalidTimeout = errors.New("invalid timeout: must be positive")

	// ErrInvalidPageBudget is returned when fewer than one page per source
	// is requested.
	ErrInvalidPageBudget = errors.New("invalid page budget: must be at least 1")

	// ErrInvalidResultBudget is returned when the result budget is negative.
	// Zero means no limit.
	ErrInvalidResultBudget = errors.New("invalid result budget: must be non-negative")

	// ErrInvalidPoolSize is returned when a worker pool size is not positive.
	ErrInvalidPoolSize = errors.New("invalid pool size: must be positive")

	// ErrConflictingReportFormats is returned when both --json and --markdown
	// are specified. Only one output format can be used at a time.
	ErrConflictingReportFormats = errors.New("conflicting report formats: --json and --markdown cannot be used together")

	// ErrConflictingTransports is returned when both --proxy and --tor are
	// specified.
	ErrConflictingTransports = errors.New("conflicting transports: --proxy and --tor cannot be used together")

	// ErrUnknownSource is returned when a requested source is not registered.
	ErrUnknownSource = errors.New("unknown source")

	// ErrInvalidRateLimit is returned when the per-host rate is negative or
	// the burst is below one while a rate is set.
	ErrInvalidRateLimit = errors.New("invalid rate limit: rate must be non-negative and burst at least 1")

	// ErrInvalidMaxBodySize is returned when the max body size is negative.
	// A negative body size is invalid; use 0 to use the default limit.
	ErrInvalidMaxBodySize = errors.New("invalid max body size: must be non-negative")

	// ErrInvalidPublicKey is returned when the manifest public key is not a
	// base64 encoded 32-byte Ed25519 key.
	ErrInvalidPublicKey = errors.New("invalid manifest public key: must be base64 of 32 bytes")
)
