package fetch

import (
	"context"

	"github.com/nao1215/fedsearch/internal/workpool"
)

// Limited returns a Fetcher that runs every fetch of f inside pool, so at
// most pool.Size() fetches are in flight across all callers.
func Limited(f Fetcher, pool *workpool.Pool) Fetcher {
	return &limited{fetcher: f, pool: pool}
}

type limited struct {
	fetcher Fetcher
	pool    *workpool.Pool
}

// Fetch implements Fetcher.
func (l *limited) Fetch(ctx context.Context, req Request) ([]byte, error) {
	var body []byte
	ran := false
	err := l.pool.Do(ctx, func(ctx context.Context) error {
		ran = true
		var err error
		body, err = l.fetcher.Fetch(ctx, req)
		return err
	})
	return body, waitError(req.URL, ran, err)
}

// FetchText implements Fetcher.
func (l *limited) FetchText(ctx context.Context, req Request) (string, error) {
	var text string
	ran := false
	err := l.pool.Do(ctx, func(ctx context.Context) error {
		ran = true
		var err error
		text, err = l.fetcher.FetchText(ctx, req)
		return err
	})
	return text, waitError(req.URL, ran, err)
}

// waitError turns a cancelled wait for a pool slot into a fetch failure.
// Errors from the wrapped fetcher pass through unchanged.
func waitError(url string, ran bool, err error) error {
	if err == nil || ran {
		return err
	}
	return &Error{URL: url, Err: err}
}
