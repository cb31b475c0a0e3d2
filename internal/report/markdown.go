package report

import (
	"fmt"
	"io"
	"strconv"

	"github.com/nao1215/markdown"
	"github.com/nao1215/markdown/mermaid/piechart"

	"github.com/nao1215/fedsearch/internal/model"
)

// MarkdownWriter outputs reports in Markdown format.
// This format is designed for documentation and sharing.
type MarkdownWriter struct {
	baseWriter
}

// NewMarkdownWriter creates a MarkdownWriter that outputs to the given writer.
func NewMarkdownWriter(output io.Writer) *MarkdownWriter {
	return &MarkdownWriter{
		baseWriter: newBaseWriter(output),
	}
}

// Write outputs the report in Markdown format.
func (w *MarkdownWriter) Write(report *Report) (int, error) {
	md := markdown.NewMarkdown(w.output)

	w.writeHeader(md, report)
	w.writeSources(md, report)
	w.writeResults(md, report)
	w.writeFooter(md)

	return len(md.String()), md.Build()
}

// writeHeader writes the report header with search information.
func (w *MarkdownWriter) writeHeader(md *markdown.Markdown, report *Report) {
	md.H1("fedsearch Results")
	md.PlainText("")

	rows := [][]string{
		{"Query", "`" + report.Query + "`"},
		{"Date", report.Date.Format("2006-01-02 15:04:05 MST")},
		{"Results", strconv.Itoa(len(report.Records))},
		{"Status", statusText(report)},
	}
	if report.SearchID != "" {
		rows = append(rows, []string{"Search ID", "`" + report.SearchID + "`"})
	}
	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows:   rows,
	})
	md.PlainText("")

	if report.Stopped {
		md.Warning("The search was stopped before every source finished.")
		md.PlainText("")
	}
}

func statusText(report *Report) string {
	if report.Stopped {
		return "⚠️ Stopped (partial results)"
	}
	return "✅ Complete"
}

// writeSources writes the per-source counts and a pie chart of them.
func (w *MarkdownWriter) writeSources(md *markdown.Markdown, report *Report) {
	md.H2("Sources")
	md.PlainText("")

	counts := report.CountBySource()
	if len(counts) == 0 {
		md.Note("No source returned any results.")
		md.PlainText("")
		return
	}

	rows := make([][]string, 0, len(counts))
	chart := piechart.NewPieChart(
		io.Discard,
		piechart.WithTitle("Results by Source"),
		piechart.WithShowData(true),
	)
	for _, c := range counts {
		rows = append(rows, []string{c.Source, strconv.Itoa(c.Count)})
		chart.LabelAndIntValue(c.Source, uint64(c.Count)) //nolint:gosec // counts are positive
	}
	md.Table(markdown.TableSet{
		Header: []string{"Source", "Results"},
		Rows:   rows,
	})
	md.PlainText("")
	md.CodeBlocks(markdown.SyntaxHighlightMermaid, chart.String())
	md.PlainText("")
}

// writeResults writes one table of items and one of crawled files.
func (w *MarkdownWriter) writeResults(md *markdown.Markdown, report *Report) {
	var items, files [][]string
	for _, rec := range report.Records {
		uid := fmt.Sprintf("`%08x`", rec.UID)
		if rec.IsFile() {
			files = append(files, []string{uid, fmt.Sprintf("`%08x`", rec.ParentUID), truncateString(rec.Path, 60), sizeText(rec.Size)})
			continue
		}
		name := truncateString(rec.DisplayName, 60)
		if rec.DetailsURL != "" {
			name = markdown.Link(name, rec.DetailsURL)
		}
		seeds := "-"
		if rec.Seeds > 0 {
			seeds = strconv.Itoa(rec.Seeds)
		}
		items = append(items, []string{uid, rec.Source, name, sizeText(rec.Size), seeds, kindLabel(rec.Kind)})
	}

	md.H2("Results")
	md.PlainText("")
	if len(items) == 0 {
		md.PlainText("No results.")
		md.PlainText("")
	} else {
		md.Table(markdown.TableSet{
			Header: []string{"UID", "Source", "Name", "Size", "Seeds", "Kind"},
			Rows:   items,
		})
		md.PlainText("")
	}

	if len(files) == 0 {
		return
	}
	md.H2("Files")
	md.PlainText("")
	md.Table(markdown.TableSet{
		Header: []string{"UID", "Parent", "Path", "Size"},
		Rows:   files,
	})
	md.PlainText("")
}

func kindLabel(kind string) string {
	if kind == model.KindPreliminary.String() {
		return "pending"
	}
	return kind
}

// writeFooter writes the report footer.
func (w *MarkdownWriter) writeFooter(md *markdown.Markdown) {
	md.HorizontalRule()
	md.PlainText("")
	md.PlainTextf("*Report generated by [fedsearch](https://github.com/nao1215/fedsearch)*")
}
