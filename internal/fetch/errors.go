package fetch

import (
	"errors"
	"fmt"

	"github.com/nao1215/fedsearch/internal/model"
)

// ErrEmptyURL is returned when a Request has no URL.
var ErrEmptyURL = errors.New("fetch: empty url")

// Error describes a failed fetch. StatusCode is zero when the request never
// got a response.
type Error struct {
	URL        string
	StatusCode int
	Err        error
}

// Error implements error.
func (e *Error) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("fetch %s: unexpected status %d", e.URL, e.StatusCode)
	}
	return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
}

// Unwrap returns the underlying transport error.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is makes every fetch error match model.ErrFetchFailure.
func (e *Error) Is(target error) bool {
	return target == model.ErrFetchFailure
}

// IsStatus reports whether err is a fetch error with the given status code.
func IsStatus(err error, code int) bool {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.StatusCode == code
	}
	return false
}
