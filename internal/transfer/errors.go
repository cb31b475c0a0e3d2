package transfer

import "errors"

var (
	// ErrNotTransferable is returned for results that carry nothing to
	// download, such as preliminary results.
	ErrNotTransferable = errors.New("transfer: result is not transferable")

	// ErrNoEngine is returned by a Dispatcher without an engine.
	ErrNoEngine = errors.New("transfer: no engine")
)
