// Package performer adapts one content source to the crawl pipeline.
//
// A source is described declaratively by a Source value: where its search
// pages live, how stage-1 rows are obtained, and whether it has a scrape
// stage. New turns a Source into an Engine, the single Performer
// implementation, which drives the shared pipeline.Driver.
//
// # Stage-1 variants
//
// Stage1 is sealed. A source picks exactly one of:
//
//   - *Pattern: a scan pattern over the search page and a detail pattern over
//     each details page. Both run through the bounded matcher.
//   - *JSON: a search endpoint returning a list of items that decode
//     straight into Detailed results.
//   - *Paged: a raw page-to-results function for sources whose search
//     response already contains everything.
//
// Design decision: Sources are data, not subclasses. The variants cover
// every way the supported sites hand out results, and adding a site means
// writing a grammar, not another crawl loop.
//
// # Scrape
//
// Scraper is sealed as well. *PatternFiles runs a regular expression with
// the named groups path, size, unit and flags. *SelectorFiles walks an HTML
// table with goquery. Both drop padding and hidden entries before emitting.
//
// # Usage
//
//	eng := performer.New(src, performer.Deps{Fetcher: client, Resolver: resolver})
//	eng.Start(ctx, token, "ubuntu", performer.Budget{Pages: 1, Results: 10}, emit)
package performer
