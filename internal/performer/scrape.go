package performer

import (
	"errors"
	"fmt"
	"iter"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/nao1215/fedsearch/internal/matcher"
	"github.com/nao1215/fedsearch/internal/pipeline"
)

// errEmptyPath is reported for a file row without a name.
var errEmptyPath = errors.New("empty file path")

// patternRows yields one entry per match of sc.Pattern over text.
func patternRows(sc *PatternFiles, text *matcher.Text) iter.Seq2[pipeline.FileEntry, error] {
	return func(yield func(pipeline.FileEntry, error) bool) {
		m := text.FindAll(sc.Pattern)
		for m.Next() {
			match := m.Match()
			size := match.Named("size")
			unit, hasUnit := match.NamedOK("unit")
			entry, err := newEntry(match.Named("path"), size, unit, hasUnit)
			if err == nil {
				flags := strings.ToLower(match.Named("flags"))
				entry.Padding = strings.Contains(flags, "pad")
				entry.Hidden = strings.Contains(flags, "hidden") || flags == "dir"
			}
			if !yield(entry, err) {
				return
			}
		}
		if err := m.Err(); err != nil {
			yield(pipeline.FileEntry{}, decodeError(err))
		}
	}
}

// selectorRows yields one entry per element matching sc.Row. Rows without a
// size element are headers or decoration and are passed over silently.
func selectorRows(sc *SelectorFiles, window string) iter.Seq2[pipeline.FileEntry, error] {
	return func(yield func(pipeline.FileEntry, error) bool) {
		doc, err := goquery.NewDocumentFromReader(strings.NewReader(window))
		if err != nil {
			yield(pipeline.FileEntry{}, decodeError(err))
			return
		}
		doc.Find(sc.Row).EachWithBreak(func(_ int, row *goquery.Selection) bool {
			sizeSel := row.Find(sc.Size).First()
			if sizeSel.Length() == 0 {
				return true
			}
			sizeText := sizeSel.Text()

			var name string
			if sc.Path != "" {
				name = row.Find(sc.Path).First().Text()
			} else {
				name = strings.Replace(row.Text(), sizeText, "", 1)
			}
			size := strings.Trim(strings.TrimSpace(sizeText), "()")
			entry, err := newEntry(name, size, "", false)
			return yield(entry, err)
		})
	}
}

// newEntry parses one file row. The size is split into value and unit when
// the row has no separate unit.
func newEntry(name, size, unit string, hasUnit bool) (pipeline.FileEntry, error) {
	name = CleanText(name)
	if name == "" {
		return pipeline.FileEntry{}, extractError(errEmptyPath)
	}
	var n int64
	var err error
	if hasUnit {
		n, err = pipeline.ParseSize(size, unit)
	} else {
		n, err = pipeline.ParseSizeString(size)
	}
	if err != nil {
		return pipeline.FileEntry{}, extractError(fmt.Errorf("file %q: %w", name, err))
	}
	return pipeline.FileEntry{Path: name, Size: n}, nil
}
