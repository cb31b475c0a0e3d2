package report

import (
	"cmp"
	"slices"
	"time"

	"github.com/nao1215/fedsearch/internal/model"
)

// Report is the outcome of one search as handed to a Writer.
type Report struct {
	// Query is the search query.
	Query string `json:"query"`

	// SearchID is the history database ID, empty when history is off.
	SearchID string `json:"search_id,omitempty"`

	// Date is when the search started.
	Date time.Time `json:"date"`

	// Stopped is set when the user stopped the search early.
	Stopped bool `json:"stopped,omitempty"`

	// Records are the results in delivery order.
	Records []model.Record `json:"results"`
}

// NewReport returns a Report for query dated now.
func NewReport(query string, records []model.Record) *Report {
	return &Report{
		Query:   query,
		Date:    time.Now(),
		Records: records,
	}
}

// SourceCount is the number of results one source delivered.
type SourceCount struct {
	Source string
	Count  int
}

// CountBySource returns the result count per source, largest first and
// then by name.
func (r *Report) CountBySource() []SourceCount {
	counts := make(map[string]int)
	for _, rec := range r.Records {
		counts[rec.Source]++
	}
	out := make([]SourceCount, 0, len(counts))
	for src, n := range counts {
		out = append(out, SourceCount{Source: src, Count: n})
	}
	slices.SortFunc(out, func(a, b SourceCount) int {
		if c := cmp.Compare(b.Count, a.Count); c != 0 {
			return c
		}
		return cmp.Compare(a.Source, b.Source)
	})
	return out
}

// CountByKind returns how many records of each kind the report holds.
func (r *Report) CountByKind() map[string]int {
	counts := make(map[string]int)
	for _, rec := range r.Records {
		counts[rec.Kind]++
	}
	return counts
}
