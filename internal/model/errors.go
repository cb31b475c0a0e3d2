package model

import "errors"

// Failure kinds shared by fetchers, performers and the alias resolver.
// Concrete errors wrap one of these so callers can classify them with
// errors.Is without knowing where they came from.
var (
	// ErrFetchFailure covers network errors, timeouts and non-success
	// HTTP statuses. It ends pagination for the performer that hit it.
	ErrFetchFailure = errors.New("fetch failure")

	// ErrDecodeFailure means a whole page could not be decoded, e.g.
	// malformed JSON. It also ends pagination for that performer.
	ErrDecodeFailure = errors.New("decode failure")

	// ErrExtractFailure means a single row or item failed its pattern or
	// field coercion. The row is skipped and the page continues.
	ErrExtractFailure = errors.New("extract failure")

	// ErrManifestUnavailable means a domain alias refresh failed. The
	// current manifest stays in effect; callers never see this error.
	ErrManifestUnavailable = errors.New("domain alias manifest unavailable")
)
