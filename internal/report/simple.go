package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"

	"github.com/nao1215/fedsearch/internal/model"
)

// SimpleWriter outputs human-readable text reports.
//
// Design decision: We print plain text by default so the output can be
// piped to files or other tools. WithColor turns on ANSI colors for
// interactive terminals.
type SimpleWriter struct {
	baseWriter

	// verbose adds URLs and hashes under every result.
	verbose bool

	source *color.Color
	name   *color.Color
	file   *color.Color
}

// SimpleWriterOption configures a SimpleWriter.
type SimpleWriterOption func(*SimpleWriter)

// WithVerbose enables verbose output with additional details.
func WithVerbose(verbose bool) SimpleWriterOption {
	return func(w *SimpleWriter) {
		w.verbose = verbose
	}
}

// WithColor enables or disables ANSI colors.
func WithColor(enabled bool) SimpleWriterOption {
	return func(w *SimpleWriter) {
		for _, c := range []*color.Color{w.source, w.name, w.file} {
			if enabled {
				c.EnableColor()
			} else {
				c.DisableColor()
			}
		}
	}
}

// NewSimpleWriter creates a SimpleWriter that outputs to the given writer.
func NewSimpleWriter(output io.Writer, opts ...SimpleWriterOption) *SimpleWriter {
	w := &SimpleWriter{
		baseWriter: newBaseWriter(output),
		source:     color.New(color.FgYellow),
		name:       color.New(color.FgCyan, color.Bold),
		file:       color.New(color.FgGreen),
	}
	WithColor(false)(w)

	for _, opt := range opts {
		opt(w)
	}

	return w
}

// Write outputs the whole report.
func (w *SimpleWriter) Write(report *Report) (int, error) {
	var sb strings.Builder

	w.writeHeader(&sb, report)
	for _, rec := range report.Records {
		w.writeRecord(&sb, rec)
	}
	w.writeFooter(&sb, report)

	return io.WriteString(w.output, sb.String())
}

// WriteOne outputs a single result, for streaming while a search runs.
func (w *SimpleWriter) WriteOne(rec model.Record) (int, error) {
	var sb strings.Builder
	w.writeRecord(&sb, rec)
	return io.WriteString(w.output, sb.String())
}

// WriteSummary outputs only the per-source footer. It closes a report
// whose records were already streamed with WriteOne.
func (w *SimpleWriter) WriteSummary(report *Report) (int, error) {
	var sb strings.Builder
	w.writeFooter(&sb, report)
	if report.Stopped {
		sb.WriteString("Search stopped, results are partial.\n")
	}
	return io.WriteString(w.output, sb.String())
}

// writeHeader writes the report header with search information.
func (w *SimpleWriter) writeHeader(sb *strings.Builder, report *Report) {
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n")
	sb.WriteString("                        FEDSEARCH RESULTS\n")
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n\n")

	fmt.Fprintf(sb, "Query:   %s\n", report.Query)
	fmt.Fprintf(sb, "Date:    %s\n", report.Date.Format("2006-01-02 15:04:05 MST"))
	if report.SearchID != "" {
		fmt.Fprintf(sb, "Search:  %s\n", report.SearchID)
	}
	fmt.Fprintf(sb, "Results: %d\n", len(report.Records))
	if report.Stopped {
		sb.WriteString("Status:  STOPPED (partial results)\n")
	} else {
		sb.WriteString("Status:  Complete\n")
	}
	sb.WriteString("\n")
	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n")
}

// writeRecord writes one result line. Crawled files are indented under
// their parent.
func (w *SimpleWriter) writeRecord(sb *strings.Builder, rec model.Record) {
	uid := fmt.Sprintf("%08x", rec.UID)
	switch rec.Kind {
	case model.KindCrawledFile.String():
		fmt.Fprintf(sb, "    %s %s  %s\n", uid, w.file.Sprint(rec.Path), sizeText(rec.Size))
	case model.KindPreliminary.String():
		fmt.Fprintf(sb, "  %s [%s] %s (pending)\n", uid, w.source.Sprint(rec.Source), rec.DisplayName)
	default:
		fmt.Fprintf(sb, "  %s [%s] %s  %s", uid, w.source.Sprint(rec.Source), w.name.Sprint(rec.DisplayName), sizeText(rec.Size))
		if rec.Seeds > 0 {
			fmt.Fprintf(sb, "  %d seeds", rec.Seeds)
		}
		if !rec.CreationTime.IsZero() {
			fmt.Fprintf(sb, "  %s", rec.CreationTime.Format("2006-01-02"))
		}
		sb.WriteString("\n")
	}
	if !w.verbose || rec.IsFile() {
		return
	}
	if rec.DetailsURL != "" {
		fmt.Fprintf(sb, "           details: %s\n", rec.DetailsURL)
	}
	if rec.Hash != "" {
		fmt.Fprintf(sb, "           hash:    %s\n", rec.Hash)
	}
	if link := firstNonEmpty(rec.DownloadURL, rec.TorrentURL); link != "" {
		fmt.Fprintf(sb, "           link:    %s\n", link)
	}
}

// writeFooter writes the per-source summary.
func (w *SimpleWriter) writeFooter(sb *strings.Builder, report *Report) {
	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n")
	counts := report.CountBySource()
	if len(counts) == 0 {
		sb.WriteString("No results.\n")
		return
	}
	parts := make([]string, 0, len(counts))
	for _, c := range counts {
		parts = append(parts, fmt.Sprintf("%s: %d", c.Source, c.Count))
	}
	sb.WriteString(strings.Join(parts, ", "))
	sb.WriteString("\n")
}

// sizeText renders a byte count in binary units, or "-" when unknown.
func sizeText(size int64) string {
	if size <= 0 {
		return "-"
	}
	return humanize.IBytes(uint64(size))
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
