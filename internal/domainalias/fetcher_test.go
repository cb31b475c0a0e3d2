package domainalias

import (
	"context"
	"crypto/rand"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"golang.org/x/crypto/nacl/sign"

	"github.com/nao1215/fedsearch/internal/fetch"
	"github.com/nao1215/fedsearch/internal/model"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newKeys(t *testing.T) (*[32]byte, *[64]byte) {
	t.Helper()

	pub, priv, err := sign.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatalf("failed to generate key: %v", err)
	}
	return pub, priv
}

type failingFetcher struct{}

func (failingFetcher) FetchManifest(context.Context) (*Manifest, error) {
	return nil, errors.New("unreachable")
}

func TestSignedFetcher(t *testing.T) {
	t.Parallel()

	pub, priv := newKeys(t)
	manifest := Manifest{
		Version:     7,
		LastUpdated: time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC),
		Aliases:     map[string][]string{CanonicalKAT: {"kat.cr", "kickass.cd"}},
	}
	body, err := SignManifest(manifest, priv)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	t.Run("downloads and verifies a signed manifest", func(t *testing.T) {
		t.Parallel()

		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(body + "\n"))
		}))
		defer srv.Close()

		f, err := NewSignedFetcher(srv.URL, pub[:], fetch.NewClient())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		got, err := f.FetchManifest(context.Background())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got.Version != 7 {
			t.Errorf("got version %d, expected 7", got.Version)
		}
		if len(got.Aliases[CanonicalKAT]) != 2 || got.Aliases[CanonicalKAT][0] != "kat.cr" {
			t.Errorf("unexpected aliases %v", got.Aliases)
		}
	})

	t.Run("rejects a manifest signed by another key", func(t *testing.T) {
		t.Parallel()

		otherPub, _ := newKeys(t)
		if _, err := OpenSigned([]byte(body), otherPub); !errors.Is(err, ErrBadSignature) {
			t.Errorf("expected ErrBadSignature, got %v", err)
		}
	})

	t.Run("rejects a body that is not base64", func(t *testing.T) {
		t.Parallel()

		if _, err := OpenSigned([]byte("%%%"), pub); !errors.Is(err, model.ErrDecodeFailure) {
			t.Errorf("expected ErrDecodeFailure, got %v", err)
		}
	})

	t.Run("rejects a short public key", func(t *testing.T) {
		t.Parallel()

		if _, err := NewSignedFetcher("http://example.com", []byte{1, 2, 3}, fetch.NewClient()); !errors.Is(err, ErrInvalidPublicKey) {
			t.Errorf("expected ErrInvalidPublicKey, got %v", err)
		}
	})
}

func TestFileFetcher(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "aliases.yaml")
	content := `version: 3
last_updated: 2024-06-01T00:00:00Z
aliases:
  kickass.to:
    - kat.cr
  extratorrent.cc: []
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("failed to write manifest: %v", err)
	}

	m, err := FileFetcher{Path: path}.FetchManifest(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if m.Version != 3 {
		t.Errorf("got version %d, expected 3", m.Version)
	}
	if m.Aliases[CanonicalKAT][0] != "kat.cr" {
		t.Errorf("unexpected aliases %v", m.Aliases)
	}
	if m.LastUpdated.Year() != 2024 {
		t.Errorf("got %v, expected a 2024 timestamp", m.LastUpdated)
	}

	if _, err := (FileFetcher{Path: filepath.Join(dir, "missing.yaml")}).FetchManifest(context.Background()); err == nil {
		t.Error("expected an error for a missing file")
	}
}

func TestRefresh(t *testing.T) {
	t.Parallel()

	t.Run("failure keeps the current manifest", func(t *testing.T) {
		t.Parallel()

		r := NewResolver(Manifest{Version: 1, Aliases: map[string][]string{"src": {"a"}}})
		err := Refresh(context.Background(), failingFetcher{}, r, discardLogger())
		if !errors.Is(err, model.ErrManifestUnavailable) {
			t.Fatalf("expected ErrManifestUnavailable, got %v", err)
		}
		if got := r.CurrentDomain("src"); got != "a" {
			t.Errorf("got %q, expected a", got)
		}
	})

	t.Run("stale manifest is reported as unavailable", func(t *testing.T) {
		t.Parallel()

		dir := t.TempDir()
		path := filepath.Join(dir, "aliases.yaml")
		if err := os.WriteFile(path, []byte("version: 1\naliases:\n  src: [z]\n"), 0o600); err != nil {
			t.Fatalf("failed to write manifest: %v", err)
		}
		r := NewResolver(Manifest{Version: 9, Aliases: map[string][]string{"src": {"a"}}})
		err := Refresh(context.Background(), FileFetcher{Path: path}, r, discardLogger())
		if !errors.Is(err, model.ErrManifestUnavailable) || !errors.Is(err, ErrStaleManifest) {
			t.Errorf("expected ErrManifestUnavailable wrapping ErrStaleManifest, got %v", err)
		}
	})

	t.Run("success loads the manifest", func(t *testing.T) {
		t.Parallel()

		dir := t.TempDir()
		path := filepath.Join(dir, "aliases.yaml")
		if err := os.WriteFile(path, []byte("version: 2\naliases:\n  src: [b, c]\n"), 0o600); err != nil {
			t.Fatalf("failed to write manifest: %v", err)
		}
		r := NewResolver(Manifest{Version: 1, Aliases: map[string][]string{"src": {"a"}}})
		if err := Refresh(context.Background(), FileFetcher{Path: path}, r, discardLogger()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got := r.CurrentDomain("src"); got != "b" {
			t.Errorf("got %q, expected b", got)
		}
	})
}

func TestWriteFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "cache", "aliases.yaml")
	want := Manifest{
		Version:     4,
		LastUpdated: time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC),
		Aliases:     map[string][]string{CanonicalKAT: {"kat.cr", "kat.am"}},
	}
	if err := WriteFile(path, want); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got, err := FileFetcher{Path: path}.FetchManifest(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Version != want.Version {
		t.Errorf("got version %d, expected %d", got.Version, want.Version)
	}
	if !got.LastUpdated.Equal(want.LastUpdated) {
		t.Errorf("got %v, expected %v", got.LastUpdated, want.LastUpdated)
	}
	if aliases := got.Aliases[CanonicalKAT]; len(aliases) != 2 || aliases[1] != "kat.am" {
		t.Errorf("unexpected aliases %v", got.Aliases)
	}
	if _, err := os.Stat(path + ".tmp"); !os.IsNotExist(err) {
		t.Errorf("expected temporary file to be gone, got %v", err)
	}
}
