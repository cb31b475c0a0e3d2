package source

import "errors"

var (
	// ErrUnknownSource is returned by Registry.Select for a name that is not
	// registered.
	ErrUnknownSource = errors.New("source: unknown source")

	// ErrDuplicateSource is returned by Registry.Register for a name that is
	// already taken.
	ErrDuplicateSource = errors.New("source: duplicate source")

	// errMissingField is reported for rows lacking a required capture.
	errMissingField = errors.New("missing field")
)
