package model

import "time"

// Record is the flat view of a SearchResult used by reports and the
// history database.
type Record struct {
	UID          uint32    `json:"uid"`
	Kind         string    `json:"kind"`
	Source       string    `json:"source"`
	DisplayName  string    `json:"display_name"`
	Filename     string    `json:"filename,omitempty"`
	DetailsURL   string    `json:"details_url,omitempty"`
	Hash         string    `json:"hash,omitempty"`
	Seeds        int       `json:"seeds,omitempty"`
	Size         int64     `json:"size,omitempty"`
	CreationTime time.Time `json:"creation_time,omitzero"`
	TorrentURL   string    `json:"torrent_url,omitempty"`
	DownloadURL  string    `json:"download_url,omitempty"`
	// ParentUID is set for crawled files.
	ParentUID uint32 `json:"parent_uid,omitempty"`
	// Path is the path inside the parent item for crawled files.
	Path string `json:"path,omitempty"`
}

// ToRecord flattens r. Fields a kind does not carry stay at their zero value.
func ToRecord(r SearchResult) Record {
	rec := Record{
		UID:         r.UID(),
		Kind:        r.Kind().String(),
		Source:      r.Source(),
		DisplayName: r.DisplayName(),
		DetailsURL:  r.DetailsURL(),
	}
	if t, ok := r.(Torrent); ok {
		rec.Filename = t.Filename()
		rec.Hash = t.Hash()
		rec.Seeds = t.Seeds()
		rec.Size = t.Size()
		rec.CreationTime = t.CreationTime()
		rec.TorrentURL = t.TorrentURL()
		rec.DownloadURL = t.DownloadURL()
	}
	if f, ok := r.(*CrawledFile); ok {
		rec.ParentUID = f.Parent().UID()
		rec.Path = f.Path()
	}
	return rec
}

// IsFile reports whether the record describes a crawled file.
func (r Record) IsFile() bool {
	return r.Kind == KindCrawledFile.String()
}
