package model

import (
	"fmt"
	"hash/fnv"
	"io"
	"path"
	"strings"
	"sync"
	"time"
)

// Kind tags the variant of a SearchResult.
type Kind int

const (
	// KindPreliminary is a stage-1 row that still needs a details fetch.
	KindPreliminary Kind = iota
	// KindDetailed is a fully resolved item.
	KindDetailed
	// KindCrawledFile is one file inside a Detailed item.
	KindCrawledFile
)

// String returns the lower-case name of the kind.
func (k Kind) String() string {
	switch k {
	case KindPreliminary:
		return "preliminary"
	case KindDetailed:
		return "detailed"
	case KindCrawledFile:
		return "file"
	default:
		return "unknown"
	}
}

// SearchResult is the capability every result kind shares.
type SearchResult interface {
	// Kind reports which variant this result is.
	Kind() Kind
	// Source is the name of the performer that produced the result.
	Source() string
	// DisplayName is the human readable title.
	DisplayName() string
	// DetailsURL is the page describing the item.
	DetailsURL() string
	// UID is a stable per-process identity.
	UID() uint32
}

// Crawlable is implemented by results the crawl pipeline can escalate.
// Complete reports whether the details stage already ran.
type Crawlable interface {
	SearchResult
	Complete() bool
}

// Torrent is implemented by results that describe transferable content.
type Torrent interface {
	SearchResult
	Hash() string
	Seeds() int
	Size() int64
	CreationTime() time.Time
	TorrentURL() string
	DownloadURL() string
	Filename() string
}

// computeUID hashes the identity fields with 32-bit FNV-1a.
func computeUID(parts ...string) uint32 {
	h := fnv.New32a()
	for _, p := range parts {
		_, _ = io.WriteString(h, p) //nolint:errcheck // hash writes never fail
	}
	return h.Sum32()
}

// Preliminary is the minimal identity found while scanning a search page.
type Preliminary struct {
	source      string
	itemID      string
	detailsURL  string
	displayName string

	uidOnce sync.Once
	uid     uint32
}

// NewPreliminary creates a stage-1 result. displayName may be empty when the
// search page does not show one.
func NewPreliminary(source, itemID, detailsURL, displayName string) *Preliminary {
	return &Preliminary{
		source:      source,
		itemID:      itemID,
		detailsURL:  detailsURL,
		displayName: displayName,
	}
}

// Kind implements SearchResult.
func (p *Preliminary) Kind() Kind { return KindPreliminary }

// Source implements SearchResult.
func (p *Preliminary) Source() string { return p.source }

// ItemID returns the source-specific id or slug.
func (p *Preliminary) ItemID() string { return p.itemID }

// DetailsURL implements SearchResult.
func (p *Preliminary) DetailsURL() string { return p.detailsURL }

// DisplayName implements SearchResult. It falls back to the item id.
func (p *Preliminary) DisplayName() string {
	if p.displayName != "" {
		return p.displayName
	}
	return p.itemID
}

// Complete implements Crawlable. A preliminary result is never complete.
func (p *Preliminary) Complete() bool { return false }

// UID implements SearchResult.
func (p *Preliminary) UID() uint32 {
	p.uidOnce.Do(func() {
		p.uid = computeUID(p.DisplayName(), p.detailsURL, p.source)
	})
	return p.uid
}

// DetailedInfo carries the fields used to build a Detailed result.
type DetailedInfo struct {
	Source       string
	DisplayName  string
	Filename     string
	Size         int64
	CreationTime time.Time
	Hash         string
	Seeds        int
	DetailsURL   string
	// TorrentURL is a magnet link or a link to a .torrent file.
	TorrentURL string
	// DownloadURL is a direct download link for sources without torrents.
	DownloadURL string
}

// Detailed is a fully resolved item and the root of a crawl.
type Detailed struct {
	info DetailedInfo

	uidOnce sync.Once
	uid     uint32
}

// NewDetailed validates info and returns a Detailed result.
// A negative size is rejected because it cannot be meaningful.
func NewDetailed(info DetailedInfo) (*Detailed, error) {
	if info.Size < 0 {
		return nil, fmt.Errorf("%w: negative size %d for %q", ErrExtractFailure, info.Size, info.DisplayName)
	}
	if strings.TrimSpace(info.DisplayName) == "" {
		return nil, fmt.Errorf("%w: empty display name", ErrExtractFailure)
	}
	if info.Filename == "" {
		info.Filename = info.DisplayName
	}
	return &Detailed{info: info}, nil
}

// Kind implements SearchResult.
func (d *Detailed) Kind() Kind { return KindDetailed }

// Source implements SearchResult.
func (d *Detailed) Source() string { return d.info.Source }

// DisplayName implements SearchResult.
func (d *Detailed) DisplayName() string { return d.info.DisplayName }

// Filename returns the suggested file name.
func (d *Detailed) Filename() string { return d.info.Filename }

// DetailsURL implements SearchResult.
func (d *Detailed) DetailsURL() string { return d.info.DetailsURL }

// Size returns the total size in bytes.
func (d *Detailed) Size() int64 { return d.info.Size }

// CreationTime returns when the item was published, if known.
func (d *Detailed) CreationTime() time.Time { return d.info.CreationTime }

// Hash returns the source-specific content hash.
func (d *Detailed) Hash() string { return d.info.Hash }

// Seeds returns the seed count, or 0 when not applicable.
func (d *Detailed) Seeds() int { return d.info.Seeds }

// TorrentURL returns the magnet or .torrent link.
func (d *Detailed) TorrentURL() string { return d.info.TorrentURL }

// DownloadURL returns the direct download link.
func (d *Detailed) DownloadURL() string { return d.info.DownloadURL }

// Complete implements Crawlable.
func (d *Detailed) Complete() bool { return true }

// UID implements SearchResult. It is computed once and cached.
func (d *Detailed) UID() uint32 {
	d.uidOnce.Do(func() {
		d.uid = computeUID(d.info.DisplayName, d.info.DetailsURL, d.info.Source, d.info.Hash)
	})
	return d.uid
}

// CrawledFile is one file inside a Detailed item. Identity fields are read
// from the parent.
type CrawledFile struct {
	parent *Detailed
	path   string
	size   int64

	uidOnce sync.Once
	uid     uint32
}

// NewCrawledFile creates a file result owned by parent.
func NewCrawledFile(parent *Detailed, filePath string, size int64) (*CrawledFile, error) {
	if parent == nil {
		return nil, fmt.Errorf("%w: file %q has no parent", ErrExtractFailure, filePath)
	}
	if size < 0 {
		return nil, fmt.Errorf("%w: negative size %d for %q", ErrExtractFailure, size, filePath)
	}
	if strings.TrimSpace(filePath) == "" {
		return nil, fmt.Errorf("%w: empty file path", ErrExtractFailure)
	}
	return &CrawledFile{parent: parent, path: filePath, size: size}, nil
}

// Kind implements SearchResult.
func (f *CrawledFile) Kind() Kind { return KindCrawledFile }

// Parent returns the Detailed result this file belongs to.
func (f *CrawledFile) Parent() *Detailed { return f.parent }

// Path returns the path of the file inside the item.
func (f *CrawledFile) Path() string { return f.path }

// Filename returns the base name of the path.
func (f *CrawledFile) Filename() string {
	return path.Base(strings.ReplaceAll(f.path, `\`, "/"))
}

// DisplayName implements SearchResult. It is the base name without its
// extension.
func (f *CrawledFile) DisplayName() string {
	base := f.Filename()
	name := strings.TrimSuffix(base, path.Ext(base))
	if name == "" {
		return base
	}
	return name
}

// Size returns the file size in bytes.
func (f *CrawledFile) Size() int64 { return f.size }

// Source implements SearchResult.
func (f *CrawledFile) Source() string { return f.parent.Source() }

// DetailsURL implements SearchResult.
func (f *CrawledFile) DetailsURL() string { return f.parent.DetailsURL() }

// Hash returns the parent's hash.
func (f *CrawledFile) Hash() string { return f.parent.Hash() }

// Seeds returns the parent's seed count.
func (f *CrawledFile) Seeds() int { return f.parent.Seeds() }

// TorrentURL returns the parent's torrent link.
func (f *CrawledFile) TorrentURL() string { return f.parent.TorrentURL() }

// DownloadURL returns the parent's direct link.
func (f *CrawledFile) DownloadURL() string { return f.parent.DownloadURL() }

// CreationTime returns the parent's creation time.
func (f *CrawledFile) CreationTime() time.Time { return f.parent.CreationTime() }

// UID implements SearchResult.
func (f *CrawledFile) UID() uint32 {
	f.uidOnce.Do(func() {
		f.uid = computeUID(f.DisplayName(), f.DetailsURL(), f.Source(), f.Hash(), f.path)
	})
	return f.uid
}

var (
	_ Crawlable = (*Preliminary)(nil)
	_ Crawlable = (*Detailed)(nil)
	_ Torrent   = (*Detailed)(nil)
	_ Torrent   = (*CrawledFile)(nil)
)
