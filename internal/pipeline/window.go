package pipeline

import "strings"

// Window cuts page down to the part an extractor needs.
//
// The window starts right after the first occurrence of prefixCue and ends
// at the first suffix cue found after that, trying suffixCues in order. A
// missing prefix cue starts the window at the beginning of the page and a
// missing suffix cue ends it at the end of the page, so a redesigned page
// degrades to a full scan rather than an empty one.
func Window(page, prefixCue string, suffixCues ...string) string {
	start := 0
	if prefixCue != "" {
		if i := strings.Index(page, prefixCue); i >= 0 {
			start = i + len(prefixCue)
		}
	}
	end := len(page)
	for _, cue := range suffixCues {
		if cue == "" {
			continue
		}
		if i := strings.Index(page[start:], cue); i >= 0 {
			end = start + i
			break
		}
	}
	return page[start:end]
}
