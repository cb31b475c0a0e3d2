package matcher

import "errors"

// ErrIterationExhausted is returned when a matching pass runs out of budget.
// It means the page could not be parsed within the allowed effort, which
// callers must not confuse with a page that simply had no matches.
var ErrIterationExhausted = errors.New("matcher: iteration budget exhausted")
