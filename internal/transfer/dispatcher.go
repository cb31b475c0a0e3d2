package transfer

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/nao1215/fedsearch/internal/fetch"
	"github.com/nao1215/fedsearch/internal/workpool"
)

// Engine starts transfers. Implementations own the download itself.
type Engine interface {
	StartTransfer(ctx context.Context, p Payload) error
}

// EngineFunc adapts a function to Engine.
type EngineFunc func(ctx context.Context, p Payload) error

// StartTransfer implements Engine.
func (f EngineFunc) StartTransfer(ctx context.Context, p Payload) error {
	return f(ctx, p)
}

// Dispatcher hands payloads to an engine inside the transfer pool.
type Dispatcher struct {
	engine    Engine
	pool      *workpool.Pool
	fetcher   fetch.Fetcher
	userAgent string
	logger    *slog.Logger
}

// DispatcherOption configures a Dispatcher.
type DispatcherOption func(*Dispatcher)

// WithFetcher makes the dispatcher download .torrent URLs itself and pass
// the bytes on. Without a fetcher the URL is passed through.
func WithFetcher(f fetch.Fetcher) DispatcherOption {
	return func(d *Dispatcher) {
		d.fetcher = f
	}
}

// WithUserAgent sets the user agent for .torrent downloads.
func WithUserAgent(ua string) DispatcherOption {
	return func(d *Dispatcher) {
		d.userAgent = ua
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) DispatcherOption {
	return func(d *Dispatcher) {
		d.logger = logger
	}
}

// NewDispatcher returns a Dispatcher. A nil pool gets the default
// transfer size.
func NewDispatcher(engine Engine, pool *workpool.Pool, opts ...DispatcherOption) *Dispatcher {
	if pool == nil {
		pool = workpool.New("transfer", workpool.DefaultTransferSize)
	}
	d := &Dispatcher{
		engine: engine,
		pool:   pool,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Dispatch starts the transfer of p and blocks until the engine has
// accepted it.
func (d *Dispatcher) Dispatch(ctx context.Context, p Payload) error {
	if d.engine == nil {
		return ErrNoEngine
	}
	return d.pool.Do(ctx, func(ctx context.Context) error {
		if p.Kind == PayloadTorrentURL && d.fetcher != nil {
			data, err := d.fetcher.Fetch(ctx, fetch.Request{URL: p.URI, UserAgent: d.userAgent})
			if err != nil {
				return fmt.Errorf("transfer: fetch torrent: %w", err)
			}
			p.Kind, p.Data = PayloadTorrentBytes, data
			d.logger.Debug("torrent fetched", "url", p.URI, "bytes", len(data))
		}
		if err := d.engine.StartTransfer(ctx, p); err != nil {
			return fmt.Errorf("transfer: start %s: %w", p.Name, err)
		}
		d.logger.Info("transfer started", "name", p.Name, "kind", p.Kind.String(), "files", len(p.Files))
		return nil
	})
}
