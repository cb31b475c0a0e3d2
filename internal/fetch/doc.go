// Package fetch retrieves pages for performers.
//
// Fetcher is the single capability the search core consumes from the HTTP
// layer: fetch a URL with a timeout, user agent, referrer, cookie and extra
// headers, and return either bytes or decoded text. Transport details such as
// TLS, redirects, proxying and connection pooling stay inside Client.
//
// Design decision: Failures are reported as *Error, which matches
// model.ErrFetchFailure under errors.Is. A non-success status is an error,
// never an empty body, so callers can tell "no results" from "no page".
//
// Client can limit the request rate per host and Limited bounds the number
// of fetches in flight through a workpool.Pool. Both are opt-in.
package fetch
