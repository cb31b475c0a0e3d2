// Package pipeline runs the stages of one search on one source.
//
// Every item moves through a small state machine:
//
//	Scan -> Crawl -> Scrape -> Done
//
// Scan turns a search page into rows, Crawl resolves a preliminary row
// through its details page, and Scrape enumerates the files of a confirmed
// item. Failed is reachable from every stage. The Driver executes these
// stages for a Source and hands each result to its emitter as soon as it
// exists, within a page and result Budget.
//
// The package also carries the helpers the stages share: Window cuts the
// region of a page between cue strings, ParseSize reads the human-readable
// sizes search pages print, and FilterFiles drops the padding entries that
// torrent file lists contain.
//
// Design decision: Failures are logged by the Driver and never returned.
// A source that breaks produces fewer results; it cannot fail the search
// of the other sources running next to it.
package pipeline
