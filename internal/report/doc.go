// Package report provides output writers for search results.
//
// This package contains writers for different output formats:
//   - SimpleWriter: Human-readable text for the terminal, also used to
//     stream results one line at a time while a search runs
//   - JSONWriter: Structured JSON for tool integration
//   - MarkdownWriter: GitHub-flavored Markdown for sharing
//   - XLSXWriter: A spreadsheet file with one row per result
//
// Design decision: Writers consume the flat model.Record view rather than
// the SearchResult types, so a report can be produced from a live search
// and from the history database alike.
package report
