package source

import (
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/nao1215/fedsearch/internal/matcher"
	"github.com/nao1215/fedsearch/internal/model"
	"github.com/nao1215/fedsearch/internal/performer"
	"github.com/nao1215/fedsearch/internal/pipeline"
)

// Monova is the name of the Monova source.
const Monova = "monova"

const (
	// monovaCookie opts into the non-adult catalogue.
	monovaCookie = "MONOVA=1; MONOVA-ADULT=0; MONOVA-NON-ADULT=1;"

	// MonovaMinSeeds and MonovaMaxAge drop dead or stale Monova items.
	MonovaMinSeeds = 40
	MonovaMaxAge   = 200 * 24 * time.Hour
)

var (
	monovaRow = regexp.MustCompile(`(?is)<a href="https?://[^/"]+/torrent/(?P<id>\d+)/(?P<slug>[^"]*?)\.html`)

	monovaDetail = regexp.MustCompile(`(?is)<a id="tab1" title="Download (?P<filename>[^"]*?) torrent\." class="selected"` +
		`.*?<strong>Added:</strong>(?P<added>[^<]*?)ago <div class="clear-both">` +
		`.*?<strong>Peers:</strong><font color="green">(?P<seeds>\d+)</font> seeds` +
		`.*?<strong>Total size:</strong><div class="pull-left pos-text-c">(?P<size>[^<]*)</div><div class="clear-both">` +
		`.*?<strong>Hash:</strong><div class="pull-left pos-text-c">(?P<hash>[a-f0-9]{40})</div>`)

	monovaAge = regexp.MustCompile(`(?i)(\d+)\s*(minute|min|hour|day|week|month|year)s?`)
)

// NewMonova returns the Monova source. now is used to compute item age;
// nil means time.Now.
func NewMonova(now func() time.Time) performer.Source {
	if now == nil {
		now = time.Now
	}
	return performer.Source{
		Name:      Monova,
		Canonical: "www.monova.org",
		Budget:    performer.Budget{Pages: 1, Results: 20},
		Cookie:    monovaCookie,
		Stage1: &performer.Pattern{
			SearchURL: func(domain, query string, _ int) string {
				return "http://" + domain + "/search.php?sort=5&term=" + url.QueryEscape(query)
			},
			Scan: monovaRow,
			FromScan: func(m *matcher.Match, domain string) (*model.Preliminary, error) {
				id, slug := m.Named("id"), m.Named("slug")
				if id == "" {
					return nil, fmt.Errorf("monova row: %w: id", errMissingField)
				}
				detailsURL := "http://" + domain + "/torrent/" + id + "/" + slug + ".html"
				return model.NewPreliminary(Monova, id, detailsURL, strings.ReplaceAll(unescape(slug), "-", " ")), nil
			},
			Detail: monovaDetail,
			FromDetail: func(m *matcher.Match, p *model.Preliminary) (*model.Detailed, error) {
				return monovaFromDetail(m, p, now())
			},
		},
		Keep: func(d *model.Detailed) bool {
			return monovaKeep(d, now())
		},
	}
}

func monovaFromDetail(m *matcher.Match, p *model.Preliminary, now time.Time) (*model.Detailed, error) {
	size, err := pipeline.ParseSizeString(performer.CleanText(m.Named("size")))
	if err != nil {
		return nil, fmt.Errorf("monova detail %s: %w", p.DetailsURL(), err)
	}
	created, err := parseAge(m.Named("added"), now)
	if err != nil {
		return nil, fmt.Errorf("monova detail %s: %w", p.DetailsURL(), err)
	}
	name := performer.CleanText(m.Named("filename"))
	hash := strings.ToLower(m.Named("hash"))
	return model.NewDetailed(model.DetailedInfo{
		Source:       Monova,
		DisplayName:  name,
		Filename:     name + ".torrent",
		Size:         size,
		CreationTime: created,
		Hash:         hash,
		Seeds:        atoi(m.Named("seeds")),
		DetailsURL:   p.DetailsURL(),
		TorrentURL:   magnet(hash, name),
	})
}

// monovaKeep drops items with few seeds or older than MonovaMaxAge.
func monovaKeep(d *model.Detailed, now time.Time) bool {
	if d.Seeds() < MonovaMinSeeds {
		return false
	}
	return now.Sub(d.CreationTime()) <= MonovaMaxAge
}

// parseAge turns a relative age such as "3 days" into a point in time.
// Months and years are approximated as 30 and 365 days.
func parseAge(s string, now time.Time) (time.Time, error) {
	m := monovaAge.FindStringSubmatch(s)
	if m == nil {
		return time.Time{}, fmt.Errorf("%w: age %q", errMissingField, strings.TrimSpace(s))
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return time.Time{}, fmt.Errorf("age %q: %w", s, err)
	}
	var unit time.Duration
	switch strings.ToLower(m[2]) {
	case "minute", "min":
		unit = time.Minute
	case "hour":
		unit = time.Hour
	case "day":
		unit = 24 * time.Hour
	case "week":
		unit = 7 * 24 * time.Hour
	case "month":
		unit = 30 * 24 * time.Hour
	case "year":
		unit = 365 * 24 * time.Hour
	}
	return now.Add(-time.Duration(n) * unit), nil
}
