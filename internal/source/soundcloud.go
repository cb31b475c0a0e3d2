package source

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"

	"github.com/nao1215/fedsearch/internal/model"
	"github.com/nao1215/fedsearch/internal/performer"
)

// Soundcloud is the name of the SoundCloud source.
const Soundcloud = "soundcloud"

// soundcloudPageSize is the number of tracks asked for per page.
const soundcloudPageSize = 50

// soundcloudItem is one track of the SoundCloud search response.
type soundcloudItem struct {
	ID           int64  `json:"id"`
	Title        string `json:"title"`
	PermalinkURL string `json:"permalink_url"`
	User         struct {
		Username string `json:"username"`
	} `json:"user"`
	Duration            int64  `json:"duration"`
	Downloadable        bool   `json:"downloadable"`
	DownloadURL         string `json:"download_url"`
	StreamURL           string `json:"stream_url"`
	CreatedAt           string `json:"created_at"`
	OriginalContentSize int64  `json:"original_content_size"`
	ArtworkURL          string `json:"artwork_url"`
}

// NewSoundcloud returns the SoundCloud source. Only downloadable tracks are
// kept, and their download links carry clientID.
func NewSoundcloud(clientID string) performer.Source {
	return performer.Source{
		Name:      Soundcloud,
		Canonical: "api.sndcdn.com",
		Budget:    performer.Budget{Pages: 1, Results: soundcloudPageSize},
		Stage1: &performer.Paged{
			SearchURL: func(domain, query string, page int) string {
				v := url.Values{}
				v.Set("q", query)
				v.Set("limit", strconv.Itoa(soundcloudPageSize))
				v.Set("offset", strconv.Itoa((page-1)*soundcloudPageSize))
				if clientID != "" {
					v.Set("client_id", clientID)
				}
				return "https://" + domain + "/search/sounds?" + v.Encode()
			},
			Page: func(body, _ string) ([]model.SearchResult, error) {
				return soundcloudPage(body, clientID)
			},
		},
	}
}

func soundcloudPage(body, clientID string) ([]model.SearchResult, error) {
	var resp struct {
		Collection []soundcloudItem `json:"collection"`
	}
	if err := json.Unmarshal([]byte(body), &resp); err != nil {
		return nil, fmt.Errorf("decode soundcloud response: %w", err)
	}
	results := make([]model.SearchResult, 0, len(resp.Collection))
	for _, item := range resp.Collection {
		if !item.Downloadable || item.DownloadURL == "" {
			continue
		}
		d, err := soundcloudResult(item, clientID)
		if err != nil {
			continue
		}
		results = append(results, d)
	}
	return results, nil
}

func soundcloudResult(item soundcloudItem, clientID string) (*model.Detailed, error) {
	name := performer.CleanText(item.Title)
	if item.User.Username != "" {
		name = performer.CleanText(item.User.Username) + " - " + name
	}
	download := item.DownloadURL
	if clientID != "" {
		if u, err := url.Parse(download); err == nil {
			q := u.Query()
			q.Set("client_id", clientID)
			u.RawQuery = q.Encode()
			download = u.String()
		}
	}
	return model.NewDetailed(model.DetailedInfo{
		Source:       Soundcloud,
		DisplayName:  name,
		Filename:     performer.CleanText(item.Title) + ".mp3",
		Size:         item.OriginalContentSize,
		CreationTime: parseTime(item.CreatedAt, "2006/01/02 15:04:05 -0700", "2006-01-02T15:04:05Z07:00"),
		Hash:         strconv.FormatInt(item.ID, 10),
		DetailsURL:   item.PermalinkURL,
		DownloadURL:  download,
	})
}
