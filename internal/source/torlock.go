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

// TorLock is the name of the TorLock source.
const TorLock = "torlock"

var (
	torlockRow = regexp.MustCompile(`(?is)<a href=/torrent/(?P<id>\d+/[^>]*?\.html)>(?P<name>.*?)</a>`)

	torlockDetail = regexp.MustCompile(`(?is)<td><b>Name:</b></td><td>(?P<filename>[^<]*?)\.torrent</td>` +
		`.*?<td><b>Size:</b></td><td>(?P<size>[^<]*?) in [^<]*?</td>` +
		`.*?<td><b>Added:</b></td><td>Uploaded on (?P<added>[^<]*?) by ` +
		`.*?color:#FF5400[^>]*>(?P<seeds>\d*)</b>[^<]*? seeders` +
		`.*?<a href="/tor/(?P<torrent>[^"]*?)\.torrent"><img`)
)

// NewTorLock returns the TorLock source. TorLock has no file list.
func NewTorLock() performer.Source {
	return performer.Source{
		Name:      TorLock,
		Canonical: "www.torlock.com",
		Budget:    performer.Budget{Pages: 1, Results: 20},
		Stage1: &performer.Pattern{
			SearchURL: func(domain, query string, _ int) string {
				slug := strings.ReplaceAll(url.PathEscape(strings.Join(strings.Fields(query), " ")), "%20", "-")
				return "https://" + domain + "/all/torrents/" + slug + ".html"
			},
			Scan: torlockRow,
			FromScan: func(m *matcher.Match, domain string) (*model.Preliminary, error) {
				id := m.Named("id")
				if id == "" {
					return nil, fmt.Errorf("torlock row: %w: id", errMissingField)
				}
				return model.NewPreliminary(TorLock, id, "https://"+domain+"/torrent/"+id, performer.CleanText(m.Named("name"))), nil
			},
			Detail:     torlockDetail,
			FromDetail: torlockFromDetail,
		},
	}
}

func torlockFromDetail(m *matcher.Match, p *model.Preliminary) (*model.Detailed, error) {
	size, err := pipeline.ParseSizeString(performer.CleanText(m.Named("size")))
	if err != nil {
		return nil, fmt.Errorf("torlock detail %s: %w", p.DetailsURL(), err)
	}
	name := performer.CleanText(m.Named("filename"))
	torrentURL := ""
	if id := m.Named("torrent"); id != "" {
		torrentURL = "https://" + hostOf(p.DetailsURL()) + "/tor/" + id + ".torrent"
	}
	return model.NewDetailed(model.DetailedInfo{
		Source:       TorLock,
		DisplayName:  name,
		Filename:     name + ".torrent",
		Size:         size,
		CreationTime: parseTime(m.Named("added"), "1/2/2006", "2006-01-02"),
		Seeds:        atoi(m.Named("seeds")),
		DetailsURL:   p.DetailsURL(),
		TorrentURL:   torrentURL,
	})
}
