package transfer

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/nao1215/fedsearch/internal/model"
)

// PayloadKind tells the engine how to read a Payload.
type PayloadKind int

const (
	// PayloadMagnet carries a magnet URI.
	PayloadMagnet PayloadKind = iota
	// PayloadTorrentURL carries the URL of a .torrent file.
	PayloadTorrentURL
	// PayloadTorrentBytes carries the contents of a .torrent file in Data.
	PayloadTorrentBytes
	// PayloadDirectURL carries a plain HTTP download URL.
	PayloadDirectURL
)

// String returns the lower-case name of the kind.
func (k PayloadKind) String() string {
	switch k {
	case PayloadMagnet:
		return "magnet"
	case PayloadTorrentURL:
		return "torrent-url"
	case PayloadTorrentBytes:
		return "torrent"
	case PayloadDirectURL:
		return "direct"
	default:
		return "unknown"
	}
}

// Payload is what a download engine needs to start a transfer.
type Payload struct {
	Kind PayloadKind
	URI  string
	// Data holds the .torrent contents for PayloadTorrentBytes.
	Data []byte
	// Files restricts the transfer to these paths inside the torrent.
	// Empty means every file.
	Files []string
	// Name is a human-readable name for the transfer.
	Name string
}

// NewPayload picks the payload kind from the links a result carries.
// A direct download URL wins over a torrent link.
func NewPayload(name, torrentURL, downloadURL string, files []string) (Payload, error) {
	p := Payload{Name: name, Files: files}
	switch {
	case downloadURL != "":
		p.Kind, p.URI = PayloadDirectURL, downloadURL
	case strings.HasPrefix(strings.ToLower(torrentURL), "magnet:"):
		p.Kind, p.URI = PayloadMagnet, torrentURL
	case isHTTP(torrentURL):
		p.Kind, p.URI = PayloadTorrentURL, torrentURL
	default:
		return Payload{}, fmt.Errorf("%w: %s has no usable link", ErrNotTransferable, name)
	}
	return p, nil
}

// PayloadFor builds the payload of a search result. A crawled file
// transfers its parent restricted to that one file.
func PayloadFor(r model.SearchResult) (Payload, error) {
	switch v := r.(type) {
	case *model.Detailed:
		return NewPayload(nameOf(v.Filename(), v.DisplayName()), v.TorrentURL(), v.DownloadURL(), nil)
	case *model.CrawledFile:
		parent := v.Parent()
		return NewPayload(nameOf(parent.Filename(), parent.DisplayName()), parent.TorrentURL(), parent.DownloadURL(), []string{v.Path()})
	case nil:
		return Payload{}, ErrNotTransferable
	default:
		return Payload{}, fmt.Errorf("%w: %s result %q", ErrNotTransferable, r.Kind(), r.DisplayName())
	}
}

// PayloadForRecord builds the payload of a stored result.
func PayloadForRecord(rec model.Record) (Payload, error) {
	if rec.Kind == model.KindPreliminary.String() {
		return Payload{}, fmt.Errorf("%w: preliminary result %q", ErrNotTransferable, rec.DisplayName)
	}
	var files []string
	if rec.IsFile() && rec.Path != "" {
		files = []string{rec.Path}
	}
	return NewPayload(nameOf(rec.Filename, rec.DisplayName), rec.TorrentURL, rec.DownloadURL, files)
}

func nameOf(filename, displayName string) string {
	if filename != "" {
		return filename
	}
	return displayName
}

func isHTTP(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return false
	}
	return u.Scheme == "http" || u.Scheme == "https"
}
