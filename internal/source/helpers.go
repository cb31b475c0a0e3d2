package source

import (
	"net/url"
	"strconv"
	"strings"
	"time"
)

// atoi parses a count such as "1,234". Anything unparsable counts as zero.
func atoi(s string) int {
	s = strings.NewReplacer(",", "", " ", "", "\u00a0", "").Replace(strings.TrimSpace(s))
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return 0
	}
	return n
}

// parseTime tries each layout in turn and returns the zero time when none
// fits. Publication dates are informational; a format change must not drop
// the result.
func parseTime(s string, layouts ...string) time.Time {
	s = strings.TrimSpace(s)
	for _, layout := range layouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}

// magnet builds a magnet link for an info hash.
func magnet(hash, name string) string {
	if hash == "" {
		return ""
	}
	v := url.Values{}
	v.Set("dn", name)
	return "magnet:?xt=urn:btih:" + strings.ToLower(hash) + "&" + v.Encode()
}

// unescape decodes a URL-encoded value, falling back to the raw text.
func unescape(s string) string {
	if u, err := url.QueryUnescape(s); err == nil {
		return u
	}
	return s
}

// hostOf returns the host of rawURL, or "" when it does not parse.
func hostOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return u.Host
}
