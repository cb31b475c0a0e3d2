package session

import (
	"context"
	"log/slog"
	"strings"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/nao1215/fedsearch/internal/fetch"
	"github.com/nao1215/fedsearch/internal/model"
	"github.com/nao1215/fedsearch/internal/performer"
	"github.com/nao1215/fedsearch/internal/workpool"
)

// Factory creates the performer that runs src for one search.
type Factory func(src performer.Source, deps performer.Deps) performer.Performer

// Manager starts searches over a fixed set of sources.
type Manager struct {
	sources      []performer.Source
	deps         performer.Deps
	searchPool   *workpool.Pool
	transferPool *workpool.Pool
	budget       performer.Budget
	factory      Factory
	logger       *slog.Logger

	lastToken atomic.Uint64
}

// Option configures a Manager.
type Option func(*Manager)

// WithSearchPool sets the pool that bounds concurrent search fetches.
func WithSearchPool(p *workpool.Pool) Option {
	return func(m *Manager) {
		m.searchPool = p
	}
}

// WithTransferPool sets the pool handed to transfer dispatchers.
func WithTransferPool(p *workpool.Pool) Option {
	return func(m *Manager) {
		m.transferPool = p
	}
}

// WithBudget sets the budget applied to every source. The zero budget
// lets each source use its own.
func WithBudget(b performer.Budget) Option {
	return func(m *Manager) {
		m.budget = b
	}
}

// WithFactory replaces the function that creates performers.
func WithFactory(f Factory) Option {
	return func(m *Manager) {
		m.factory = f
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) {
		m.logger = logger
	}
}

// NewManager returns a Manager that searches sources. Every fetch made by
// its performers runs inside the search pool.
func NewManager(sources []performer.Source, deps performer.Deps, opts ...Option) *Manager {
	m := &Manager{
		sources: sources,
		factory: func(src performer.Source, deps performer.Deps) performer.Performer {
			return performer.New(src, deps)
		},
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.searchPool == nil {
		m.searchPool = workpool.New("search", workpool.DefaultSearchSize)
	}
	if m.transferPool == nil {
		m.transferPool = workpool.New("transfer", workpool.DefaultTransferSize)
	}
	if deps.Logger == nil {
		deps.Logger = m.logger
	}
	if deps.Fetcher != nil {
		deps.Fetcher = fetch.Limited(deps.Fetcher, m.searchPool)
	}
	m.deps = deps
	return m
}

// Sources returns the names of the sources, in search order.
func (m *Manager) Sources() []string {
	names := make([]string, 0, len(m.sources))
	for _, src := range m.sources {
		names = append(names, src.Name)
	}
	return names
}

// SearchPool returns the pool bounding search fetches.
func (m *Manager) SearchPool() *workpool.Pool {
	return m.searchPool
}

// TransferPool returns the pool for transfer work.
func (m *Manager) TransferPool() *workpool.Pool {
	return m.transferPool
}

// Search starts query on every source and returns immediately. Results and
// the final End signal are delivered to listener.
//
// The session lives until every performer has returned or Stop is called;
// cancelling ctx stops it too and also aborts the fetches in flight.
func (m *Manager) Search(ctx context.Context, query string, listener model.Listener) (*Session, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, ErrEmptyQuery
	}
	if listener == nil {
		return nil, ErrNilListener
	}
	if len(m.sources) == 0 {
		return nil, ErrNoSources
	}

	token := model.Token(m.lastToken.Add(1))
	performers := make([]performer.Performer, 0, len(m.sources))
	for _, src := range m.sources {
		performers = append(performers, m.factory(src, m.deps))
	}

	sctx, cancel := context.WithCancel(ctx)
	s := newSession(token, query, performers, listener, cancel)
	logger := m.logger.With("search", uint64(token))
	logger.Info("search started", "query", query, "sources", len(performers))

	g, gctx := errgroup.WithContext(sctx)
	for _, p := range performers {
		g.Go(func() error {
			p.Start(gctx, token, query, m.budget, s.deliver)
			logger.Debug("source finished", "source", p.Name())
			return nil
		})
	}
	go func() {
		_ = g.Wait()
		s.finish()
		logger.Info("search finished", "results", s.Count(), "stopped", s.IsStopped())
	}()
	return s, nil
}
