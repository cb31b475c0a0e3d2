package pipeline

// Stage is the position of one item in the crawl state machine.
//
//	Scan -> Crawl -> Scrape -> Done
//
// Failed is reachable from every stage.
type Stage int

const (
	// StageScan means the item was found on a search page.
	StageScan Stage = iota
	// StageCrawl means the item's details page was resolved.
	StageCrawl
	// StageScrape means the item's file list is being enumerated.
	StageScrape
	// StageDone means the item went through every stage its source supports.
	StageDone
	// StageFailed means the item could not be advanced.
	StageFailed
)

// String returns the lower-case name of the stage.
func (s Stage) String() string {
	switch s {
	case StageScan:
		return "scan"
	case StageCrawl:
		return "crawl"
	case StageScrape:
		return "scrape"
	case StageDone:
		return "done"
	case StageFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Terminal reports whether no further transition is possible.
func (s Stage) Terminal() bool {
	return s == StageDone || s == StageFailed
}
