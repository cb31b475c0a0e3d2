package performer

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"log/slog"
	"net/url"
	"sync"
	"sync/atomic"

	"github.com/nao1215/fedsearch/internal/fetch"
	"github.com/nao1215/fedsearch/internal/matcher"
	"github.com/nao1215/fedsearch/internal/model"
	"github.com/nao1215/fedsearch/internal/pipeline"
)

// Engine runs a Source through the crawl pipeline. It implements both
// Performer and pipeline.Source.
//
// An Engine holds the stop flag of one search; create a new one per search.
type Engine struct {
	src    Source
	deps   Deps
	logger *slog.Logger

	stopped atomic.Bool

	// page caches the last details page so a scrape that reads the same
	// page does not fetch it twice.
	pageMu   sync.Mutex
	pageURL  string
	pageText string
}

// New returns an Engine for src.
func New(src Source, deps Deps) *Engine {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if deps.BudgetFactor < 1 {
		deps.BudgetFactor = matcher.DefaultBudgetFactor
	}
	return &Engine{
		src:    src,
		deps:   deps,
		logger: logger.With("source", src.Name),
	}
}

// Name implements Performer and pipeline.Source.
func (e *Engine) Name() string {
	return e.src.Name
}

// Source returns the description the engine runs.
func (e *Engine) Source() Source {
	return e.src
}

// Stop implements Performer.
func (e *Engine) Stop() {
	e.stopped.Store(true)
}

// IsStopped implements Performer.
func (e *Engine) IsStopped() bool {
	return e.stopped.Load()
}

// Start implements Performer.
func (e *Engine) Start(ctx context.Context, token model.Token, query string, budget Budget, emit Emitter) {
	if budget == (Budget{}) {
		budget = e.src.Budget
	}
	if budget.Pages < 1 {
		budget.Pages = pipeline.DefaultBudget.Pages
	}
	logger := e.logger.With("search", uint64(token))
	if err := e.src.Validate(); err != nil {
		logger.Error("source cannot run", "error", err)
		return
	}
	d := pipeline.NewDriver(e, emit,
		pipeline.WithBudget(budget),
		pipeline.WithStopCheck(e.IsStopped),
		pipeline.WithDriverLogger(logger),
	)
	d.Run(ctx, query)
}

// CrawlResult runs the crawl and scrape stages for a single result, for
// example one the user picked from an earlier search. A Detailed result
// goes straight to the scrape stage.
func (e *Engine) CrawlResult(ctx context.Context, c model.Crawlable, emit Emitter) pipeline.Stats {
	d := pipeline.NewDriver(e, emit,
		pipeline.WithStopCheck(e.IsStopped),
		pipeline.WithDriverLogger(e.logger),
	)
	d.Crawl(ctx, c)
	if stage, ok := d.StageOf(c.UID()); ok {
		e.logger.Debug("item crawled", "item", c.DisplayName(), "stage", stage.String())
	}
	return d.Stats()
}

// domain returns the domain to search on right now.
func (e *Engine) domain() string {
	if e.deps.Resolver == nil {
		return e.src.Canonical
	}
	return e.deps.Resolver.CurrentDomain(e.src.Canonical)
}

// request builds a fetch request carrying the source's headers.
func (e *Engine) request(rawURL string) fetch.Request {
	ua := e.src.UserAgent
	if ua == "" {
		ua = e.deps.UserAgent
	}
	return fetch.Request{
		URL:       rawURL,
		Timeout:   e.deps.Timeout,
		UserAgent: ua,
		Referrer:  e.src.Referrer,
		Cookie:    e.src.Cookie,
		Headers:   e.src.Headers,
		Charset:   e.src.Charset,
	}
}

// fetchText fetches rawURL and reports a fetch failure on an alias domain
// to the resolver, so the next search tries the next alias. A fetch that
// failed because the search was cancelled says nothing about the domain
// and is not reported.
func (e *Engine) fetchText(ctx context.Context, rawURL string) (string, error) {
	text, err := e.deps.Fetcher.FetchText(ctx, e.request(rawURL))
	if err != nil {
		if e.domainFailed(ctx, err) {
			if u, perr := url.Parse(rawURL); perr == nil && u.Hostname() != "" {
				e.deps.Resolver.ReportFailure(e.src.Canonical, u.Hostname())
			}
		}
		return "", err
	}
	return text, nil
}

// domainFailed reports whether err should demote the domain it came from.
func (e *Engine) domainFailed(ctx context.Context, err error) bool {
	if e.deps.Resolver == nil || e.src.Canonical == "" {
		return false
	}
	if ctx.Err() != nil || errors.Is(err, context.Canceled) {
		return false
	}
	return errors.Is(err, model.ErrFetchFailure)
}

func (e *Engine) rewrite(rawURL string) string {
	if e.src.RewriteURL == nil {
		return rawURL
	}
	return e.src.RewriteURL(rawURL)
}

// keep applies the source filter to a detailed result.
func (e *Engine) keep(d *model.Detailed) bool {
	return e.src.Keep == nil || e.src.Keep(d)
}

// Scan implements pipeline.Source.
func (e *Engine) Scan(ctx context.Context, query string, page int) iter.Seq2[model.SearchResult, error] {
	return func(yield func(model.SearchResult, error) bool) {
		domain := e.domain()
		searchURL := e.src.Stage1.searchURL(domain, query, page)
		e.logger.Debug("fetching search page", "page", page, "url", searchURL)

		body, err := e.fetchText(ctx, searchURL)
		if err != nil {
			yield(nil, err)
			return
		}

		switch st := e.src.Stage1.(type) {
		case *Pattern:
			e.scanPattern(st, body, domain, yield)
		case *JSON:
			e.scanJSON(st, body, domain, yield)
		case *Paged:
			e.scanPaged(st, body, domain, yield)
		}
	}
}

func (e *Engine) scanPattern(st *Pattern, body, domain string, yield func(model.SearchResult, error) bool) {
	text := matcher.NewWithFactor(st.Window.Apply(body), e.deps.BudgetFactor)
	m := text.FindAll(st.Scan)
	rows := 0
	for m.Next() {
		rows++
		p, err := st.FromScan(m.Match(), domain)
		switch {
		case err != nil:
			if !yield(nil, extractError(err)) {
				return
			}
		case p == nil:
			if !yield(nil, ErrFiltered) {
				return
			}
		default:
			if !yield(p, nil) {
				return
			}
		}
	}
	if err := m.Err(); err != nil {
		yield(nil, decodeError(err))
		return
	}
	e.logger.Debug("search page parsed", "rows", rows, "budget_left", text.Remaining())
}

func (e *Engine) scanJSON(st *JSON, body, domain string, yield func(model.SearchResult, error) bool) {
	items, err := st.List(body)
	if err != nil {
		yield(nil, decodeError(err))
		return
	}
	for _, raw := range items {
		r, err := st.Item(raw, domain)
		if !yield(e.filter(r, err)) {
			return
		}
	}
}

func (e *Engine) scanPaged(st *Paged, body, domain string, yield func(model.SearchResult, error) bool) {
	results, err := st.Page(body, domain)
	if err != nil {
		yield(nil, decodeError(err))
		return
	}
	for _, r := range results {
		if !yield(e.filter(r, nil)) {
			return
		}
	}
}

// filter classifies one decoded stage-1 item.
func (e *Engine) filter(r model.SearchResult, err error) (model.SearchResult, error) {
	if err != nil {
		return nil, extractError(err)
	}
	if r == nil {
		return nil, ErrFiltered
	}
	if d, ok := r.(*model.Detailed); ok && !e.keep(d) {
		return nil, ErrFiltered
	}
	return r, nil
}

// Crawl implements pipeline.Source.
func (e *Engine) Crawl(ctx context.Context, p *model.Preliminary) (*model.Detailed, error) {
	st, ok := e.src.Stage1.(*Pattern)
	if !ok || st.Detail == nil {
		return nil, ErrNoDetailStage
	}
	detailsURL := e.rewrite(p.DetailsURL())
	body, err := e.fetchText(ctx, detailsURL)
	if err != nil {
		return nil, err
	}
	e.cachePage(detailsURL, body)

	text := matcher.NewWithFactor(st.DetailWindow.Apply(body), e.deps.BudgetFactor)
	m, err := text.Find(st.Detail)
	if err != nil {
		return nil, decodeError(err)
	}
	if m == nil {
		return nil, nil
	}
	d, err := st.FromDetail(m, p)
	if err != nil {
		return nil, extractError(err)
	}
	if d == nil || !e.keep(d) {
		return nil, nil
	}
	return d, nil
}

// CanScrape implements pipeline.Source.
func (e *Engine) CanScrape() bool {
	return e.src.Scrape != nil
}

// Scrape implements pipeline.Source.
//
// Rows with a bad size are reported one by one. The remaining entries are
// emitted only once the whole list has been read, so a page that exhausts
// the matcher budget yields no files at all.
func (e *Engine) Scrape(ctx context.Context, d *model.Detailed) iter.Seq2[*model.CrawledFile, error] {
	return func(yield func(*model.CrawledFile, error) bool) {
		if e.src.Scrape == nil {
			return
		}
		body, err := e.filePage(ctx, d)
		if err != nil {
			yield(nil, err)
			return
		}
		window := e.src.Scrape.window().Apply(body)

		var entries []pipeline.FileEntry
		var rows iter.Seq2[pipeline.FileEntry, error]
		switch sc := e.src.Scrape.(type) {
		case *PatternFiles:
			rows = patternRows(sc, matcher.NewWithFactor(window, e.deps.BudgetFactor))
		case *SelectorFiles:
			rows = selectorRows(sc, window)
		}
		for entry, err := range rows {
			if err != nil {
				if errors.Is(err, model.ErrExtractFailure) {
					if !yield(nil, err) {
						return
					}
					continue
				}
				yield(nil, err)
				return
			}
			entries = append(entries, entry)
		}

		for _, entry := range pipeline.FilterFiles(entries) {
			f, err := model.NewCrawledFile(d, entry.Path, entry.Size)
			if !yield(f, err) {
				return
			}
		}
	}
}

// filePage returns the page the scraper reads.
func (e *Engine) filePage(ctx context.Context, d *model.Detailed) (string, error) {
	target := e.src.Scrape.fileURL(d)
	if target == "" {
		target = d.DetailsURL()
	}
	if target == "" {
		return "", fmt.Errorf("%w: %s has no file list URL", model.ErrExtractFailure, d.DisplayName())
	}
	target = e.rewrite(target)
	if body, ok := e.cachedPage(target); ok {
		return body, nil
	}
	return e.fetchText(ctx, target)
}

func (e *Engine) cachePage(rawURL, body string) {
	e.pageMu.Lock()
	e.pageURL, e.pageText = rawURL, body
	e.pageMu.Unlock()
}

func (e *Engine) cachedPage(rawURL string) (string, bool) {
	e.pageMu.Lock()
	defer e.pageMu.Unlock()
	if e.pageURL != rawURL || e.pageURL == "" {
		return "", false
	}
	return e.pageText, true
}

var (
	_ Performer       = (*Engine)(nil)
	_ pipeline.Source = (*Engine)(nil)
)
