package session

import "errors"

var (
	// ErrEmptyQuery is returned by Search for a blank query.
	ErrEmptyQuery = errors.New("session: empty query")

	// ErrNoSources is returned by Search when the manager has no sources.
	ErrNoSources = errors.New("session: no sources")

	// ErrNilListener is returned by Search without a listener.
	ErrNilListener = errors.New("session: nil listener")
)
