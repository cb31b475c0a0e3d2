package source

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"github.com/nao1215/fedsearch/internal/matcher"
	"github.com/nao1215/fedsearch/internal/model"
	"github.com/nao1215/fedsearch/internal/performer"
	"github.com/nao1215/fedsearch/internal/pipeline"
)

// BitSnoop is the name of the BitSnoop source.
const BitSnoop = "bitsnoop"

var (
	bitsnoopRow = regexp.MustCompile(`(?is)<span class="icon cat[^"]*"></span> <a href="(?P<path>/[^"]+)">(?P<name>.*?)</a>`)

	bitsnoopDetail = regexp.MustCompile(`(?is)Help</a>, <a href="magnet:\?xt=urn:btih:(?P<hash>[0-9a-f]{40})&(?:amp;)?dn=(?P<name>[^"]*)"[^>]*>.*?Magnet</a>` +
		`.*?<a href="(?P<torrent>[^"]*)" title="[^"]*" class="dlbtn[^"]*"` +
		`.*?title="Torrent Size"><strong>(?P<size>[^<]*)</strong>` +
		`.*?title="Availability"></span>(?P<seeds>[^<]*)</span></td>` +
		`.*?<li>Added to index &#8212; (?P<added>[^(<]*?) \([^)]{0,50}\)</li>`)

	// Directory rows carry the filetype "dir" and no size cell.
	bitsnoopFiles = regexp.MustCompile(`(?is)<td[^>]*><span class="filetype (?P<flags>\w+)[^"]*"></span> (?P<path>[^<]*)</td>` +
		`<td align="right"><span class="icon[^"]*"></span>(?P<size>[\d.,]+) (?P<unit>[GBMK]+|bytes)</td>`)
)

// bitsnoopCues cut both the search page and the details page.
var bitsnoopCues = performer.Cues{
	Prefix:   "Search results for",
	Suffixes: []string{`<div id="pages"`, "Last queries:"},
}

// NewBitSnoop returns the BitSnoop source. The file list lives on the
// details page, so the scrape stage reuses it.
func NewBitSnoop() performer.Source {
	return performer.Source{
		Name:      BitSnoop,
		Canonical: "bitsnoop.com",
		Budget:    performer.Budget{Pages: 1, Results: 20},
		Stage1: &performer.Pattern{
			SearchURL: func(domain, query string, page int) string {
				return fmt.Sprintf("http://%s/search/all/%s/c/d/%d/", domain, url.PathEscape(query), page)
			},
			Window:       bitsnoopCues,
			Scan:         bitsnoopRow,
			FromScan:     bitsnoopFromScan,
			DetailWindow: bitsnoopCues,
			Detail:       bitsnoopDetail,
			FromDetail:   bitsnoopFromDetail,
		},
		Scrape: &performer.PatternFiles{
			Window: performer.Cues{
				Prefix:   "Torrent Contents",
				Suffixes: []string{"Additional Information", "Last queries:"},
			},
			Pattern: bitsnoopFiles,
		},
	}
}

func bitsnoopFromScan(m *matcher.Match, domain string) (*model.Preliminary, error) {
	path := m.Named("path")
	id := strings.TrimSuffix(strings.TrimPrefix(path, "/"), ".html")
	if id == "" {
		return nil, fmt.Errorf("bitsnoop row: %w: path", errMissingField)
	}
	return model.NewPreliminary(BitSnoop, id, "http://"+domain+path, performer.CleanText(m.Named("name"))), nil
}

func bitsnoopFromDetail(m *matcher.Match, p *model.Preliminary) (*model.Detailed, error) {
	size, err := pipeline.ParseSizeString(performer.CleanText(m.Named("size")))
	if err != nil {
		return nil, fmt.Errorf("bitsnoop detail %s: %w", p.DetailsURL(), err)
	}
	name := performer.CleanText(unescape(m.Named("name")))
	if name == "" {
		name = p.DisplayName()
	}
	hash := strings.ToLower(m.Named("hash"))
	torrentURL := m.Named("torrent")
	if !strings.HasPrefix(torrentURL, "http") {
		torrentURL = magnet(hash, name)
	}
	return model.NewDetailed(model.DetailedInfo{
		Source:       BitSnoop,
		DisplayName:  name,
		Filename:     name + ".torrent",
		Size:         size,
		CreationTime: parseTime(m.Named("added"), "2006-01-02", "Jan 2, 2006", "January 2, 2006", "2 Jan 2006"),
		Hash:         hash,
		Seeds:        atoi(performer.CleanText(m.Named("seeds"))),
		DetailsURL:   p.DetailsURL(),
		TorrentURL:   torrentURL,
	})
}
