package pipeline

import (
	"path"
	"strings"
)

// FileEntry is one row of a scraped file list before it becomes a
// model.CrawledFile.
type FileEntry struct {
	Path string
	Size int64

	// Padding marks alignment filler inserted by torrent creators.
	Padding bool

	// Hidden marks entries flagged hidden by the source.
	Hidden bool
}

// paddingPrefix is the name BitComet and others give to filler files.
const paddingPrefix = "_____padding_file"

// IsPadding reports whether e is filler. Entries flagged by the source and
// entries named like padding files both count.
func (e FileEntry) IsPadding() bool {
	if e.Padding {
		return true
	}
	base := path.Base(strings.ReplaceAll(e.Path, `\`, "/"))
	return strings.HasPrefix(base, paddingPrefix)
}

// FilterFiles drops padding and hidden entries and keeps the order of the
// rest. The input slice is not modified.
func FilterFiles(entries []FileEntry) []FileEntry {
	out := make([]FileEntry, 0, len(entries))
	for _, e := range entries {
		if e.IsPadding() || e.Hidden {
			continue
		}
		out = append(out, e)
	}
	return out
}
