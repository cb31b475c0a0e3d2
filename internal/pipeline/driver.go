package pipeline

import (
	"context"
	"errors"
	"iter"
	"log/slog"
	"sync"

	"github.com/nao1215/fedsearch/internal/matcher"
	"github.com/nao1215/fedsearch/internal/model"
)

// Budget limits how much work one search does on one source.
type Budget struct {
	// Pages is the number of search pages to scan, starting at page 1.
	Pages int

	// Results is the number of stage-1 rows to emit. Zero means no limit.
	Results int
}

// DefaultBudget is used when a source does not set its own.
var DefaultBudget = Budget{Pages: 1, Results: 20}

// Source is the per-source behavior the Driver runs.
//
// Scan and Scrape report row-level problems by yielding an error that wraps
// model.ErrExtractFailure; the Driver skips that row and keeps going. Any
// other error ends the page (Scan) or the item (Scrape).
type Source interface {
	// Name identifies the source in logs and results.
	Name() string

	// Scan fetches search page number page (1-based) and yields its rows in
	// page order.
	Scan(ctx context.Context, query string, page int) iter.Seq2[model.SearchResult, error]

	// Crawl resolves a preliminary row. It returns nil, nil when the details
	// page did not confirm the item.
	Crawl(ctx context.Context, p *model.Preliminary) (*model.Detailed, error)

	// CanScrape reports whether the source has a scrape stage.
	CanScrape() bool

	// Scrape yields the files of a detailed item.
	Scrape(ctx context.Context, d *model.Detailed) iter.Seq2[*model.CrawledFile, error]
}

// Stats summarizes one Run.
type Stats struct {
	Pages    int
	Rows     int
	Skipped  int
	Detailed int
	Files    int
	Failed   int
}

// Driver runs Scan, Crawl and Scrape for one source and emits every result
// as soon as it is produced.
//
// Design decision: Results of a page are emitted while the page is still
// being parsed, and crawling only starts once the page has been scanned.
// That keeps the ordering promise (a page's preliminary rows before anything
// derived from them, a Detailed before its files) without buffering a page.
//
// Run is called from a single goroutine. StageOf and Stats may be called
// from others.
type Driver struct {
	source  Source
	emit    func(model.SearchResult)
	budget  Budget
	stopped func() bool
	logger  *slog.Logger

	mu     sync.Mutex
	stages map[uint32]Stage
	stats  Stats
}

// DriverOption configures a Driver.
type DriverOption func(*Driver)

// WithBudget sets the page and result budget.
func WithBudget(b Budget) DriverOption {
	return func(d *Driver) {
		d.budget = b
	}
}

// WithStopCheck sets a function polled before every fetch and after every
// row. When it returns true the Driver stops as soon as possible.
func WithStopCheck(stopped func() bool) DriverOption {
	return func(d *Driver) {
		d.stopped = stopped
	}
}

// WithDriverLogger sets the logger.
func WithDriverLogger(logger *slog.Logger) DriverOption {
	return func(d *Driver) {
		d.logger = logger
	}
}

// NewDriver returns a Driver that sends results from src to emit.
func NewDriver(src Source, emit func(model.SearchResult), opts ...DriverOption) *Driver {
	d := &Driver{
		source: src,
		emit:   emit,
		budget: DefaultBudget,
		stages: make(map[uint32]Stage),
	}
	for _, opt := range opts {
		opt(d)
	}
	if d.logger == nil {
		d.logger = slog.Default()
	}
	if d.stopped == nil {
		d.stopped = func() bool { return false }
	}
	return d
}

// halted reports whether the driver should stop.
func (d *Driver) halted(ctx context.Context) bool {
	return ctx.Err() != nil || d.stopped()
}

// Run scans pages until a budget is spent, a page fails or comes back
// empty, or the driver is stopped. Failures are logged, never returned:
// a failing source simply produces fewer results.
func (d *Driver) Run(ctx context.Context, query string) Stats {
	logger := d.logger.With("source", d.source.Name())
	emitted := 0

	for page := 1; page <= d.budget.Pages; page++ {
		if d.halted(ctx) {
			break
		}
		d.count(func(s *Stats) { s.Pages++ })

		var pending []model.Crawlable
		var pageErr error
		rows, skipped := 0, 0
		budgetSpent := false

		for res, err := range d.source.Scan(ctx, query, page) {
			if err != nil {
				if errors.Is(err, model.ErrExtractFailure) {
					skipped++
					logger.Debug("skipping malformed row", "page", page, "error", err)
					if d.halted(ctx) {
						break
					}
					continue
				}
				pageErr = err
				break
			}
			if d.halted(ctx) {
				break
			}

			d.emit(res)
			d.setStage(res.UID(), StageScan)
			rows++
			emitted++
			if c, ok := res.(model.Crawlable); ok {
				pending = append(pending, c)
			}
			if d.budget.Results > 0 && emitted >= d.budget.Results {
				budgetSpent = true
				break
			}
			if d.halted(ctx) {
				break
			}
		}
		d.count(func(s *Stats) {
			s.Rows += rows
			s.Skipped += skipped
		})

		for _, c := range pending {
			if d.halted(ctx) {
				break
			}
			d.Crawl(ctx, c)
		}

		if pageErr != nil {
			logPageError(logger, page, pageErr)
			break
		}
		if budgetSpent {
			break
		}
		if rows == 0 && skipped == 0 {
			logger.Debug("page yielded no rows, ending pagination", "page", page)
			break
		}
	}

	stats := d.Stats()
	logger.Debug("source finished",
		"pages", stats.Pages,
		"rows", stats.Rows,
		"skipped", stats.Skipped,
		"detailed", stats.Detailed,
		"files", stats.Files,
		"failed", stats.Failed,
		"unfinished", d.unfinished(),
	)
	return stats
}

// logPageError logs why pagination ended. An exhausted matcher budget is
// reported separately from fetch and decode failures so it is not mistaken
// for a page with no matches.
func logPageError(logger *slog.Logger, page int, err error) {
	switch {
	case errors.Is(err, matcher.ErrIterationExhausted):
		logger.Warn("matcher budget exhausted, page treated as undecodable", "page", page, "error", err)
	case errors.Is(err, model.ErrFetchFailure):
		logger.Warn("page fetch failed, ending pagination", "page", page, "error", err)
	default:
		logger.Warn("page decode failed, ending pagination", "page", page, "error", err)
	}
}

// Crawl advances one item through the crawl and scrape stages. A Detailed
// item skips straight to Scrape.
func (d *Driver) Crawl(ctx context.Context, c model.Crawlable) {
	logger := d.logger.With("source", d.source.Name())

	var det *model.Detailed
	switch v := c.(type) {
	case *model.Detailed:
		det = v
	case *model.Preliminary:
		if d.halted(ctx) {
			return
		}
		got, err := d.source.Crawl(ctx, v)
		if err != nil {
			d.fail(v.UID())
			logger.Debug("crawl failed", "url", v.DetailsURL(), "error", err)
			return
		}
		if got == nil {
			d.fail(v.UID())
			logger.Debug("item not confirmed", "url", v.DetailsURL())
			return
		}
		if d.halted(ctx) {
			return
		}
		det = got
		d.emit(det)
		d.setStage(v.UID(), StageDone)
		d.setStage(det.UID(), StageCrawl)
		d.count(func(s *Stats) { s.Detailed++ })
	default:
		return
	}

	if !d.source.CanScrape() {
		d.setStage(det.UID(), StageDone)
		return
	}
	if d.halted(ctx) {
		return
	}
	d.scrape(ctx, logger, det)
}

func (d *Driver) scrape(ctx context.Context, logger *slog.Logger, det *model.Detailed) {
	d.setStage(det.UID(), StageScrape)
	files := 0
	for f, err := range d.source.Scrape(ctx, det) {
		if err != nil {
			if errors.Is(err, model.ErrExtractFailure) {
				logger.Debug("skipping file row", "item", det.DisplayName(), "error", err)
				if d.halted(ctx) {
					return
				}
				continue
			}
			d.fail(det.UID())
			if errors.Is(err, matcher.ErrIterationExhausted) {
				logger.Warn("matcher budget exhausted during scrape", "item", det.DisplayName(), "error", err)
			} else {
				logger.Debug("scrape failed", "item", det.DisplayName(), "error", err)
			}
			return
		}
		if d.halted(ctx) {
			return
		}
		d.emit(f)
		files++
		if d.halted(ctx) {
			break
		}
	}
	d.count(func(s *Stats) { s.Files += files })
	d.setStage(det.UID(), StageDone)
}

func (d *Driver) fail(uid uint32) {
	d.setStage(uid, StageFailed)
	d.count(func(s *Stats) { s.Failed++ })
}

// setStage records a transition. A terminal stage is final, so an item
// listed again later keeps its outcome.
func (d *Driver) setStage(uid uint32, s Stage) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if cur, ok := d.stages[uid]; ok && cur.Terminal() {
		return
	}
	d.stages[uid] = s
}

// unfinished counts the items a stop or budget left short of a terminal
// stage.
func (d *Driver) unfinished() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	n := 0
	for _, s := range d.stages {
		if !s.Terminal() {
			n++
		}
	}
	return n
}

func (d *Driver) count(fn func(*Stats)) {
	d.mu.Lock()
	fn(&d.stats)
	d.mu.Unlock()
}

// StageOf returns the last recorded stage of the item with uid.
func (d *Driver) StageOf(uid uint32) (Stage, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	s, ok := d.stages[uid]
	return s, ok
}

// Stats returns the counters collected so far.
func (d *Driver) Stats() Stats {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.stats
}
