package source

import (
	"encoding/json"
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/nao1215/fedsearch/internal/model"
	"github.com/nao1215/fedsearch/internal/performer"
)

// KAT is the name of the KickassTorrents source.
const KAT = "kat"

var katFiles = regexp.MustCompile(`(?is)<tr[^>]*>.*?<td class="torFileName" title="[^"]*">(?P<path>.*?)</td>` +
	`.*?<td class="torFileSize">(?P<size>[\d.,]+) <span>(?P<unit>[^<]*)</span></td>`)

// katItem is one element of the KAT JSON list.
type katItem struct {
	Title       string `json:"title"`
	Link        string `json:"link"`
	GUID        string `json:"guid"`
	PubDate     string `json:"pubDate"`
	TorrentLink string `json:"torrentLink"`
	Files       int    `json:"files"`
	Comments    int    `json:"comments"`
	Hash        string `json:"hash"`
	Peers       int    `json:"peers"`
	Seeds       int    `json:"seeds"`
	Leechs      int    `json:"leechs"`
	Size        int64  `json:"size"`
	Verified    int    `json:"verified"`
}

// NewKAT returns the KickassTorrents source. Unverified items are dropped.
func NewKAT() performer.Source {
	return performer.Source{
		Name:      KAT,
		Canonical: "kickass.to",
		Budget:    performer.Budget{Pages: 1, Results: 20},
		Stage1: &performer.JSON{
			SearchURL: func(domain, query string, page int) string {
				u := "http://" + domain + "/json.php?q=" + url.QueryEscape(query)
				if page > 1 {
					u += fmt.Sprintf("&page=%d", page)
				}
				return u
			},
			List: jsonList("list"),
			Item: katFromItem,
		},
		Scrape: &performer.PatternFiles{
			URL: func(d *model.Detailed) string {
				host := hostOf(d.DetailsURL())
				if host == "" {
					host = "kickass.to"
				}
				return "http://" + host + "/torrents/getfiles/" + d.Hash() + "/?all=1"
			},
			Pattern: katFiles,
		},
	}
}

func katFromItem(raw json.RawMessage, _ string) (model.SearchResult, error) {
	var item katItem
	if err := json.Unmarshal(raw, &item); err != nil {
		return nil, fmt.Errorf("kat item: %w", err)
	}
	if item.Verified == 0 {
		return nil, nil
	}
	name := performer.CleanText(item.Title)
	return model.NewDetailed(model.DetailedInfo{
		Source:       KAT,
		DisplayName:  name,
		Filename:     name + ".torrent",
		Size:         item.Size,
		CreationTime: parseTime(item.PubDate, time.RFC1123Z, time.RFC1123),
		Hash:         strings.ToLower(item.Hash),
		Seeds:        item.Seeds,
		DetailsURL:   item.Link,
		TorrentURL:   item.TorrentLink,
	})
}
