package fetch

import (
	"context"
	"time"
)

// Request describes one page fetch.
type Request struct {
	URL string

	// Timeout bounds the whole request. Zero uses the fetcher's default.
	Timeout time.Duration

	// UserAgent overrides the fetcher's default User-Agent.
	UserAgent string

	// Referrer is sent as the Referer header when set.
	Referrer string

	// Cookie is a raw Cookie header value, e.g. "a=1; b=2".
	Cookie string

	// Headers are extra request headers.
	Headers map[string]string

	// Charset forces the text decoding used by FetchText. Empty means detect
	// it from the Content-Type header and the document itself.
	Charset string
}

// Fetcher retrieves pages. Implementations must be safe for concurrent use.
type Fetcher interface {
	// Fetch returns the raw response body.
	Fetch(ctx context.Context, req Request) ([]byte, error)

	// FetchText returns the body decoded to UTF-8.
	FetchText(ctx context.Context, req Request) (string, error)
}

// Func adapts an ordinary function to the Fetcher interface.
// FetchText decodes with req.Charset, or treats the body as UTF-8.
type Func func(ctx context.Context, req Request) ([]byte, error)

// Fetch implements Fetcher.
func (f Func) Fetch(ctx context.Context, req Request) ([]byte, error) {
	return f(ctx, req)
}

// FetchText implements Fetcher.
func (f Func) FetchText(ctx context.Context, req Request) (string, error) {
	body, err := f(ctx, req)
	if err != nil {
		return "", err
	}
	return Decode(body, "", req.Charset)
}
