package performer

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"maps"
	"regexp"
	"time"

	"github.com/nao1215/fedsearch/internal/domainalias"
	"github.com/nao1215/fedsearch/internal/fetch"
	"github.com/nao1215/fedsearch/internal/matcher"
	"github.com/nao1215/fedsearch/internal/model"
	"github.com/nao1215/fedsearch/internal/pipeline"
)

// Budget limits the pages and stage-1 results of one search on one source.
type Budget = pipeline.Budget

// Emitter receives results as they are produced.
type Emitter func(model.SearchResult)

// Performer runs one search against one source.
type Performer interface {
	// Name identifies the source.
	Name() string

	// Start runs the search and blocks until the source is done, the budget
	// is spent, ctx is cancelled or Stop is called. Failures are logged and
	// end the search early; they are never returned.
	Start(ctx context.Context, token model.Token, query string, budget Budget, emit Emitter)

	// Stop asks a running search to finish. It is safe to call more than
	// once and from any goroutine.
	Stop()

	// IsStopped reports whether Stop has been called.
	IsStopped() bool
}

// Deps are the collaborators shared by every performer of a session.
type Deps struct {
	// Fetcher retrieves pages. It is required.
	Fetcher fetch.Fetcher

	// Resolver maps canonical domains to live aliases. Nil means every
	// source uses its canonical domain.
	Resolver *domainalias.Resolver

	Logger *slog.Logger

	// Timeout bounds every fetch. Zero uses the fetcher's default.
	Timeout time.Duration

	// UserAgent is sent unless the source sets its own.
	UserAgent string

	// BudgetFactor is the matcher read allowance per rune of input.
	BudgetFactor int
}

// URLFunc builds the search URL for one page (1-based) on domain.
type URLFunc func(domain, query string, page int) string

// Cues cut a page down to the part an extractor needs. The zero value keeps
// the whole page.
type Cues struct {
	Prefix   string
	Suffixes []string
}

// Apply returns the window of page selected by the cues.
func (c Cues) Apply(page string) string {
	if c.Prefix == "" && len(c.Suffixes) == 0 {
		return page
	}
	return pipeline.Window(page, c.Prefix, c.Suffixes...)
}

// Stage1 is how a source obtains its first results. It is implemented by
// *Pattern, *JSON and *Paged only.
type Stage1 interface {
	searchURL(domain, query string, page int) string
	kind() string
}

// Pattern is the stage-1 variant for sources that need a details fetch per
// row. Scan runs over the search page, Detail over each details page.
type Pattern struct {
	SearchURL URLFunc

	// Window restricts Scan to part of the search page.
	Window Cues

	// Scan matches one row of the search page.
	Scan *regexp.Regexp

	// FromScan turns a Scan match into a preliminary result. Returning nil
	// without an error filters the row out.
	FromScan func(m *matcher.Match, domain string) (*model.Preliminary, error)

	// DetailWindow restricts Detail to part of the details page.
	DetailWindow Cues

	// Detail matches the item on its details page.
	Detail *regexp.Regexp

	// FromDetail turns a Detail match into a detailed result. Returning nil
	// without an error means the item could not be confirmed.
	FromDetail func(m *matcher.Match, p *model.Preliminary) (*model.Detailed, error)
}

func (p *Pattern) searchURL(domain, query string, page int) string {
	return p.SearchURL(domain, query, page)
}

func (p *Pattern) kind() string { return "pattern" }

// JSON is the stage-1 variant for sources with a JSON search endpoint whose
// items are complete enough to skip the details fetch.
type JSON struct {
	SearchURL URLFunc

	// List extracts the raw items from the response body.
	List func(body string) ([]json.RawMessage, error)

	// Item decodes one item. Returning nil without an error filters the
	// item out.
	Item func(raw json.RawMessage, domain string) (model.SearchResult, error)
}

func (j *JSON) searchURL(domain, query string, page int) string {
	return j.SearchURL(domain, query, page)
}

func (j *JSON) kind() string { return "json" }

// Paged is the stage-1 variant for sources that turn a whole page into
// results in one step and have no crawl stage.
type Paged struct {
	SearchURL URLFunc

	// Page decodes the response body. Any error ends pagination.
	Page func(body, domain string) ([]model.SearchResult, error)
}

func (p *Paged) searchURL(domain, query string, page int) string {
	return p.SearchURL(domain, query, page)
}

func (p *Paged) kind() string { return "paged" }

// KindOf returns "pattern", "json" or "paged".
func KindOf(s Stage1) string {
	if s == nil {
		return ""
	}
	return s.kind()
}

// Scraper extracts the file list of a detailed result. It is implemented
// by *PatternFiles and *SelectorFiles only.
type Scraper interface {
	fileURL(d *model.Detailed) string
	window() Cues
}

// PatternFiles extracts files with a regular expression using the named
// groups path and size, and optionally unit and flags. A flags value
// containing "pad" or "hidden" marks the entry as such; "dir" marks a
// directory row, which is dropped like a hidden one.
type PatternFiles struct {
	// URL returns the page listing the files. Nil reuses the details page.
	URL func(d *model.Detailed) string

	Window  Cues
	Pattern *regexp.Regexp
}

func (p *PatternFiles) fileURL(d *model.Detailed) string {
	if p.URL == nil {
		return ""
	}
	return p.URL(d)
}

func (p *PatternFiles) window() Cues { return p.Window }

// SelectorFiles extracts files from an HTML table with CSS selectors.
// Row selects one element per file. Path and Size are evaluated inside the
// row; an empty Path uses the row text with the size text removed. Sizes
// may be wrapped in parentheses.
type SelectorFiles struct {
	// URL returns the page listing the files. Nil reuses the details page.
	URL func(d *model.Detailed) string

	Window Cues
	Row    string
	Path   string
	Size   string
}

func (s *SelectorFiles) fileURL(d *model.Detailed) string {
	if s.URL == nil {
		return ""
	}
	return s.URL(d)
}

func (s *SelectorFiles) window() Cues { return s.Window }

// Source describes one content source.
type Source struct {
	// Name is the unique, lower-case source name.
	Name string

	// Canonical is the canonical domain, resolved through the alias
	// resolver before every search.
	Canonical string

	// Budget is used when Start is called with a zero budget.
	Budget Budget

	Stage1 Stage1

	// Scrape is the optional file stage.
	Scrape Scraper

	// Keep filters detailed results. Nil keeps everything.
	Keep func(d *model.Detailed) bool

	// RewriteURL is applied to every details and file URL before it is
	// fetched.
	RewriteURL func(string) string

	Cookie    string
	Headers   map[string]string
	Referrer  string
	UserAgent string

	// Charset forces the decoding of fetched pages.
	Charset string
}

// Validate checks that the source can be run.
func (s Source) Validate() error {
	if s.Name == "" {
		return fmt.Errorf("%w: empty name", ErrInvalidSource)
	}
	switch st := s.Stage1.(type) {
	case *Pattern:
		if st.SearchURL == nil || st.Scan == nil || st.FromScan == nil {
			return fmt.Errorf("%w: %s: pattern stage needs SearchURL, Scan and FromScan", ErrInvalidSource, s.Name)
		}
		if (st.Detail == nil) != (st.FromDetail == nil) {
			return fmt.Errorf("%w: %s: Detail and FromDetail go together", ErrInvalidSource, s.Name)
		}
	case *JSON:
		if st.SearchURL == nil || st.List == nil || st.Item == nil {
			return fmt.Errorf("%w: %s: json stage needs SearchURL, List and Item", ErrInvalidSource, s.Name)
		}
	case *Paged:
		if st.SearchURL == nil || st.Page == nil {
			return fmt.Errorf("%w: %s: paged stage needs SearchURL and Page", ErrInvalidSource, s.Name)
		}
		if s.Scrape != nil {
			return fmt.Errorf("%w: %s: paged sources have no scrape stage", ErrInvalidSource, s.Name)
		}
	default:
		return fmt.Errorf("%w: %s: missing stage-1", ErrInvalidSource, s.Name)
	}
	switch sc := s.Scrape.(type) {
	case nil:
	case *PatternFiles:
		if sc.Pattern == nil {
			return fmt.Errorf("%w: %s: file pattern is nil", ErrInvalidSource, s.Name)
		}
		if sc.Pattern.SubexpIndex("path") < 0 || sc.Pattern.SubexpIndex("size") < 0 {
			return fmt.Errorf("%w: %s: file pattern needs path and size groups", ErrInvalidSource, s.Name)
		}
	case *SelectorFiles:
		if sc.Row == "" || sc.Size == "" {
			return fmt.Errorf("%w: %s: selector scrape needs Row and Size", ErrInvalidSource, s.Name)
		}
	}
	return nil
}

// Overrides are per-source settings from the configuration file.
// Empty fields keep the source's own value.
type Overrides struct {
	Domain    string
	Cookie    string
	Headers   map[string]string
	UserAgent string
	Pages     int
	Results   int
}

// With returns a copy of s with o applied. Headers are merged, with o
// taking precedence.
func (s Source) With(o Overrides) Source {
	if o.Domain != "" {
		s.Canonical = o.Domain
	}
	if o.Cookie != "" {
		s.Cookie = o.Cookie
	}
	if o.UserAgent != "" {
		s.UserAgent = o.UserAgent
	}
	if o.Pages > 0 {
		s.Budget.Pages = o.Pages
	}
	if o.Results > 0 {
		s.Budget.Results = o.Results
	}
	if len(o.Headers) > 0 {
		merged := make(map[string]string, len(s.Headers)+len(o.Headers))
		maps.Copy(merged, s.Headers)
		maps.Copy(merged, o.Headers)
		s.Headers = merged
	}
	return s
}
