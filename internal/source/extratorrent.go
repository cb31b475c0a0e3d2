package source

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"github.com/nao1215/fedsearch/internal/model"
	"github.com/nao1215/fedsearch/internal/performer"
)

// Extratorrent is the name of the ExtraTorrent source.
const Extratorrent = "extratorrent"

// extratorrentItem is one element of the ExtraTorrent JSON list.
type extratorrentItem struct {
	Title       string `json:"title"`
	Link        string `json:"link"`
	TorrentLink string `json:"torrentLink"`
	Size        int64  `json:"size"`
	Seeds       int    `json:"seeds"`
	Peers       int    `json:"peers"`
	Hash        string `json:"hash"`
}

// extratorrentRewrite moves links from the retired .com domain to .cc.
func extratorrentRewrite(s string) string {
	return strings.ReplaceAll(s, "extratorrent.com", "extratorrent.cc")
}

// NewExtratorrent returns the ExtraTorrent source. Its file list is an HTML
// table read with CSS selectors.
func NewExtratorrent() performer.Source {
	return performer.Source{
		Name:       Extratorrent,
		Canonical:  "extratorrent.cc",
		Budget:     performer.Budget{Pages: 1, Results: 20},
		RewriteURL: extratorrentRewrite,
		Stage1: &performer.JSON{
			SearchURL: func(domain, query string, page int) string {
				u := "http://" + domain + "/json/?search=" + url.QueryEscape(query)
				if page > 1 {
					u += fmt.Sprintf("&page=%d", page)
				}
				return u
			},
			List: jsonList("list"),
			Item: extratorrentFromItem,
		},
		Scrape: &performer.SelectorFiles{
			URL: func(d *model.Detailed) string {
				return strings.Replace(d.DetailsURL(), "/torrent/", "/torrent_files/", 1)
			},
			Window: performer.Cues{
				Prefix:   "Torrent files list",
				Suffixes: []string{"Recent Searches"},
			},
			Row:  `td[nowrap]`,
			Size: "font",
		},
	}
}

func extratorrentFromItem(raw json.RawMessage, _ string) (model.SearchResult, error) {
	var item extratorrentItem
	if err := json.Unmarshal(raw, &item); err != nil {
		return nil, fmt.Errorf("extratorrent item: %w", err)
	}
	name := performer.CleanText(item.Title)
	return model.NewDetailed(model.DetailedInfo{
		Source:      Extratorrent,
		DisplayName: name,
		Filename:    name + ".torrent",
		Size:        item.Size,
		Hash:        strings.ToLower(item.Hash),
		Seeds:       item.Seeds,
		DetailsURL:  extratorrentRewrite(item.Link),
		TorrentURL:  extratorrentRewrite(item.TorrentLink),
	})
}
