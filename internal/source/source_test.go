package source

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/nao1215/fedsearch/internal/fetch"
	"github.com/nao1215/fedsearch/internal/model"
	"github.com/nao1215/fedsearch/internal/performer"
)

// cannedSite maps URLs to testdata files.
type cannedSite struct {
	t     *testing.T
	files map[string]string

	mu   sync.Mutex
	reqs []fetch.Request
}

func (s *cannedSite) fetcher() fetch.Func {
	return func(_ context.Context, req fetch.Request) ([]byte, error) {
		s.mu.Lock()
		s.reqs = append(s.reqs, req)
		s.mu.Unlock()

		name, ok := s.files[req.URL]
		if !ok {
			return nil, &fetch.Error{URL: req.URL, StatusCode: 404}
		}
		data, err := os.ReadFile(filepath.Join("testdata", name))
		if err != nil {
			s.t.Errorf("failed to read fixture %s: %v", name, err)
			return nil, &fetch.Error{URL: req.URL, Err: err}
		}
		return data, nil
	}
}

func (s *cannedSite) request(url string) (fetch.Request, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range s.reqs {
		if r.URL == url {
			return r, true
		}
	}
	return fetch.Request{}, false
}

// run executes src against the canned site and returns every result.
func run(t *testing.T, src performer.Source, files map[string]string) ([]model.SearchResult, *cannedSite) {
	t.Helper()

	site := &cannedSite{t: t, files: files}
	eng := performer.New(src, performer.Deps{
		Fetcher: site.fetcher(),
		Logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	var mu sync.Mutex
	var results []model.SearchResult
	eng.Start(context.Background(), 1, "ubuntu", performer.Budget{}, func(r model.SearchResult) {
		mu.Lock()
		results = append(results, r)
		mu.Unlock()
	})
	return results, site
}

func byKind(results []model.SearchResult, k model.Kind) []model.SearchResult {
	var out []model.SearchResult
	for _, r := range results {
		if r.Kind() == k {
			out = append(out, r)
		}
	}
	return out
}

func filePaths(results []model.SearchResult) []string {
	var out []string
	for _, r := range byKind(results, model.KindCrawledFile) {
		out = append(out, r.(*model.CrawledFile).Path())
	}
	return out
}

func TestBitSnoop(t *testing.T) {
	t.Parallel()

	results, _ := run(t, NewBitSnoop(), map[string]string{
		"http://bitsnoop.com/search/all/ubuntu/c/d/1/":       "bitsnoop_search.html",
		"http://bitsnoop.com/ubuntu-14-04-desktop-q123.html": "bitsnoop_detail.html",
	})

	prelims := byKind(results, model.KindPreliminary)
	if len(prelims) != 2 {
		t.Fatalf("expected 2 preliminary results inside the window, got %d", len(prelims))
	}
	if prelims[0].DisplayName() != "Ubuntu 14.04 Desktop" {
		t.Errorf("expected highlighted name to be cleaned, got %q", prelims[0].DisplayName())
	}

	detailed := byKind(results, model.KindDetailed)
	if len(detailed) != 1 {
		t.Fatalf("expected 1 detailed result, got %d", len(detailed))
	}
	d := detailed[0].(*model.Detailed)
	if d.Hash() != "0123456789abcdef0123456789abcdef01234567" {
		t.Errorf("expected lower-case hash, got %q", d.Hash())
	}
	if d.DisplayName() != "Ubuntu 14.04 Desktop" {
		t.Errorf("expected name from the magnet link, got %q", d.DisplayName())
	}
	if want := int64(1024.5 * (1 << 20)); d.Size() != want {
		t.Errorf("expected size %d, got %d", want, d.Size())
	}
	if d.Seeds() != 1234 {
		t.Errorf("expected 1234 seeds, got %d", d.Seeds())
	}
	if d.TorrentURL() != "http://torrents.test/0123.torrent" {
		t.Errorf("expected torrent link, got %q", d.TorrentURL())
	}
	if got := d.CreationTime().Format("2006-01-02"); got != "2014-04-17" {
		t.Errorf("expected added date 2014-04-17, got %s", got)
	}

	paths := filePaths(results)
	if strings.Join(paths, ",") != "ubuntu-14.04-desktop-amd64.iso,README.txt" {
		t.Errorf("expected directory, padding and out-of-window rows dropped, got %v", paths)
	}
	files := byKind(results, model.KindCrawledFile)
	if got := files[1].(*model.CrawledFile).Size(); got != 24*1024 {
		t.Errorf("expected 24 KB in bytes, got %d", got)
	}
}

func TestMonova(t *testing.T) {
	t.Parallel()

	now := time.Date(2014, 4, 20, 12, 0, 0, 0, time.UTC)
	src := NewMonova(func() time.Time { return now })
	results, site := run(t, src, map[string]string{
		"http://www.monova.org/search.php?sort=5&term=ubuntu":         "monova_search.html",
		"http://www.monova.org/torrent/101/Ubuntu-14.04-Desktop.html": "monova_detail_101.html",
		"http://www.monova.org/torrent/102/Ubuntu-Few-Seeds.html":     "monova_detail_102.html",
		"http://www.monova.org/torrent/103/Ubuntu-Ancient.html":       "monova_detail_103.html",
	})

	req, ok := site.request("http://www.monova.org/search.php?sort=5&term=ubuntu")
	if !ok {
		t.Fatal("expected the search page to be fetched")
	}
	if req.Cookie != monovaCookie {
		t.Errorf("expected consent cookie, got %q", req.Cookie)
	}

	if got := len(byKind(results, model.KindPreliminary)); got != 3 {
		t.Errorf("expected 3 preliminary results, got %d", got)
	}
	detailed := byKind(results, model.KindDetailed)
	if len(detailed) != 1 {
		t.Fatalf("expected only the seeded, recent item, got %d", len(detailed))
	}
	d := detailed[0].(*model.Detailed)
	if d.DisplayName() != "Ubuntu 14.04 Desktop" || d.Seeds() != 120 {
		t.Errorf("unexpected item %q with %d seeds", d.DisplayName(), d.Seeds())
	}
	if want := now.Add(-72 * time.Hour); !d.CreationTime().Equal(want) {
		t.Errorf("expected creation time %v, got %v", want, d.CreationTime())
	}
	if !strings.HasPrefix(d.TorrentURL(), "magnet:?xt=urn:btih:abcdef0123456789") {
		t.Errorf("expected magnet link, got %q", d.TorrentURL())
	}
}

func TestParseAge(t *testing.T) {
	t.Parallel()

	now := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	tests := []struct {
		in      string
		want    time.Duration
		wantErr bool
	}{
		{in: " 3 days ", want: 72 * time.Hour},
		{in: "1 day", want: 24 * time.Hour},
		{in: "5 hours", want: 5 * time.Hour},
		{in: "10 mins", want: 10 * time.Minute},
		{in: "2 weeks", want: 14 * 24 * time.Hour},
		{in: "1 Month", want: 30 * 24 * time.Hour},
		{in: "2 years", want: 730 * 24 * time.Hour},
		{in: "yesterday", wantErr: true},
	}
	for _, tt := range tests {
		got, err := parseAge(tt.in, now)
		if tt.wantErr {
			if err == nil {
				t.Errorf("parseAge(%q): expected an error", tt.in)
			}
			continue
		}
		if err != nil {
			t.Errorf("parseAge(%q): unexpected error %v", tt.in, err)
			continue
		}
		if now.Sub(got) != tt.want {
			t.Errorf("parseAge(%q): expected %v, got %v", tt.in, tt.want, now.Sub(got))
		}
	}
}

func TestTorLock(t *testing.T) {
	t.Parallel()

	src := NewTorLock()
	url := src.Stage1.(*performer.Pattern).SearchURL("www.torlock.com", "ubuntu  desktop", 1)
	if url != "https://www.torlock.com/all/torrents/ubuntu-desktop.html" {
		t.Fatalf("expected dashed keywords, got %s", url)
	}

	site := &cannedSite{t: t, files: map[string]string{
		"https://www.torlock.com/all/torrents/ubuntu.html":          "torlock_search.html",
		"https://www.torlock.com/torrent/2345/ubuntu-desktop.html": "torlock_detail.html",
	}}
	eng := performer.New(src, performer.Deps{Fetcher: site.fetcher(), Logger: slog.New(slog.NewTextHandler(io.Discard, nil))})
	var results []model.SearchResult
	eng.Start(context.Background(), 1, "ubuntu", performer.Budget{}, func(r model.SearchResult) { results = append(results, r) })

	detailed := byKind(results, model.KindDetailed)
	if len(detailed) != 1 {
		t.Fatalf("expected 1 detailed result, got %d", len(detailed))
	}
	d := detailed[0].(*model.Detailed)
	if d.Filename() != "Ubuntu Desktop.torrent" {
		t.Errorf("expected filename, got %q", d.Filename())
	}
	if d.Seeds() != 42 {
		t.Errorf("expected 42 seeds, got %d", d.Seeds())
	}
	if d.Size() != int64(1.5*(1<<30)) {
		t.Errorf("expected 1.5 GB, got %d", d.Size())
	}
	if d.TorrentURL() != "https://www.torlock.com/tor/2345.torrent" {
		t.Errorf("expected torrent URL, got %q", d.TorrentURL())
	}
	if got := d.CreationTime().Format("2006-01-02"); got != "2014-05-17" {
		t.Errorf("expected 2014-05-17, got %s", got)
	}
}

func TestKAT(t *testing.T) {
	t.Parallel()

	results, _ := run(t, NewKAT(), map[string]string{
		"http://kickass.to/json.php?q=ubuntu": "kat_search.json",
		"http://kickass.to/torrents/getfiles/aaaabbbbccccddddeeeeffff0000111122223333/?all=1": "kat_files.html",
	})

	detailed := byKind(results, model.KindDetailed)
	if len(detailed) != 1 {
		t.Fatalf("expected the unverified item to be dropped, got %d detailed", len(detailed))
	}
	d := detailed[0].(*model.Detailed)
	if d.DisplayName() != "Ubuntu 14.04 & Extras" {
		t.Errorf("expected decoded title, got %q", d.DisplayName())
	}
	if d.CreationTime().IsZero() {
		t.Error("expected pubDate to be parsed")
	}
	paths := filePaths(results)
	if strings.Join(paths, ",") != "ubuntu.iso,notes & readme.txt" {
		t.Errorf("unexpected files %v", paths)
	}
	gb := 1.1
	if got := byKind(results, model.KindCrawledFile)[0].(*model.CrawledFile).Size(); got != int64(gb*(1<<30)) {
		t.Errorf("expected 1.1 GB, got %d", got)
	}
}

func TestExtratorrent(t *testing.T) {
	t.Parallel()

	results, site := run(t, NewExtratorrent(), map[string]string{
		"http://extratorrent.cc/json/?search=ubuntu":                 "extratorrent_search.json",
		"http://extratorrent.cc/torrent_files/777/Ubuntu-14.04.html": "extratorrent_files.html",
	})

	detailed := byKind(results, model.KindDetailed)
	if len(detailed) != 1 {
		t.Fatalf("expected 1 detailed result, got %d", len(detailed))
	}
	d := detailed[0].(*model.Detailed)
	if d.DetailsURL() != "http://extratorrent.cc/torrent/777/Ubuntu-14.04.html" {
		t.Errorf("expected rewritten details URL, got %q", d.DetailsURL())
	}
	if d.TorrentURL() != "http://extratorrent.cc/download/777/" {
		t.Errorf("expected rewritten torrent URL, got %q", d.TorrentURL())
	}
	if _, ok := site.request("http://extratorrent.cc/torrent_files/777/Ubuntu-14.04.html"); !ok {
		t.Error("expected the file list page to be fetched")
	}

	paths := filePaths(results)
	if strings.Join(paths, ",") != "ubuntu-14.04.iso,md5sum.txt" {
		t.Errorf("expected only rows inside the file list, got %v", paths)
	}
	files := byKind(results, model.KindCrawledFile)
	if got := files[0].(*model.CrawledFile).Size(); got != 734527488 {
		t.Errorf("expected 700.5 MB in bytes, got %d", got)
	}
	if got := files[1].(*model.CrawledFile).Size(); got != 64 {
		t.Errorf("expected 64 bytes, got %d", got)
	}
}

func TestSoundcloud(t *testing.T) {
	t.Parallel()

	results, _ := run(t, NewSoundcloud("abc"), map[string]string{
		"https://api.sndcdn.com/search/sounds?client_id=abc&limit=50&offset=0&q=ubuntu": "soundcloud_search.json",
	})

	if len(results) != 1 {
		t.Fatalf("expected only the downloadable track, got %d results", len(results))
	}
	d := results[0].(*model.Detailed)
	if d.DisplayName() != "dj - Ubuntu Theme (Remix)" {
		t.Errorf("unexpected name %q", d.DisplayName())
	}
	if d.DownloadURL() != "https://api.soundcloud.com/tracks/1001/download?client_id=abc" {
		t.Errorf("expected client id on the download URL, got %q", d.DownloadURL())
	}
	if d.Filename() != "Ubuntu Theme (Remix).mp3" {
		t.Errorf("unexpected filename %q", d.Filename())
	}
	if d.Size() != 5242880 {
		t.Errorf("expected size 5242880, got %d", d.Size())
	}
}

func TestRegistry(t *testing.T) {
	t.Parallel()

	t.Run("default registry has every source", func(t *testing.T) {
		t.Parallel()

		r := Default(Settings{})
		want := []string{BitSnoop, Monova, TorLock, KAT, Extratorrent, Soundcloud}
		if got := r.Names(); strings.Join(got, ",") != strings.Join(want, ",") {
			t.Errorf("expected %v, got %v", want, got)
		}
		for _, src := range r.All() {
			if err := src.Validate(); err != nil {
				t.Errorf("%s: unexpected validation error %v", src.Name, err)
			}
		}
	})

	t.Run("select keeps order and drops duplicates", func(t *testing.T) {
		t.Parallel()

		r := Default(Settings{})
		got, err := r.Select([]string{"kat", " Monova ", "kat"})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(got) != 2 || got[0].Name != KAT || got[1].Name != Monova {
			t.Errorf("expected kat, monova, got %v", got)
		}
	})

	t.Run("empty selection is everything", func(t *testing.T) {
		t.Parallel()

		r := Default(Settings{})
		got, err := r.Select(nil)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(got) != len(r.Names()) {
			t.Errorf("expected %d sources, got %d", len(r.Names()), len(got))
		}
	})

	t.Run("unknown source", func(t *testing.T) {
		t.Parallel()

		r := Default(Settings{})
		if _, err := r.Select([]string{"nope"}); !errors.Is(err, ErrUnknownSource) {
			t.Errorf("expected ErrUnknownSource, got %v", err)
		}
	})

	t.Run("duplicate and invalid registrations", func(t *testing.T) {
		t.Parallel()

		r := NewRegistry()
		if err := r.Register(NewKAT()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if err := r.Register(NewKAT()); !errors.Is(err, ErrDuplicateSource) {
			t.Errorf("expected ErrDuplicateSource, got %v", err)
		}
		if err := r.Register(performer.Source{Name: "broken"}); !errors.Is(err, performer.ErrInvalidSource) {
			t.Errorf("expected ErrInvalidSource, got %v", err)
		}
	})

	t.Run("replace applies overrides", func(t *testing.T) {
		t.Parallel()

		r := Default(Settings{})
		src, _ := r.Lookup(KAT)
		r.Replace(src.With(performer.Overrides{Domain: "kat.mirror.test"}))
		got, _ := r.Lookup(KAT)
		if got.Canonical != "kat.mirror.test" {
			t.Errorf("expected overridden domain, got %s", got.Canonical)
		}
	})
}
