package domainalias

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/crypto/nacl/sign"
	"gopkg.in/yaml.v3"

	"github.com/nao1215/fedsearch/internal/fetch"
	"github.com/nao1215/fedsearch/internal/model"
)

// DefaultManifestTimeout bounds a signed manifest download.
const DefaultManifestTimeout = 15 * time.Second

// Fetcher retrieves a manifest from somewhere outside the process.
type Fetcher interface {
	FetchManifest(ctx context.Context) (*Manifest, error)
}

// SignedFetcher downloads a manifest signed with NaCl sign (Ed25519).
// The response body is the base64 encoding of the signed message, and the
// opened message is the JSON encoding of a Manifest.
type SignedFetcher struct {
	url       string
	publicKey *[32]byte
	fetcher   fetch.Fetcher
	timeout   time.Duration
}

// NewSignedFetcher returns a SignedFetcher for url that verifies documents
// against publicKey and downloads them through f.
func NewSignedFetcher(url string, publicKey []byte, f fetch.Fetcher) (*SignedFetcher, error) {
	if len(publicKey) != 32 {
		return nil, fmt.Errorf("%w: got %d bytes", ErrInvalidPublicKey, len(publicKey))
	}
	var key [32]byte
	copy(key[:], publicKey)
	return &SignedFetcher{
		url:       url,
		publicKey: &key,
		fetcher:   f,
		timeout:   DefaultManifestTimeout,
	}, nil
}

// FetchManifest implements Fetcher.
func (s *SignedFetcher) FetchManifest(ctx context.Context) (*Manifest, error) {
	body, err := s.fetcher.Fetch(ctx, fetch.Request{URL: s.url, Timeout: s.timeout})
	if err != nil {
		return nil, err
	}
	return OpenSigned(body, s.publicKey)
}

// OpenSigned verifies a base64 encoded signed manifest and decodes it.
func OpenSigned(body []byte, publicKey *[32]byte) (*Manifest, error) {
	signed, err := base64.StdEncoding.DecodeString(string(bytes.TrimSpace(body)))
	if err != nil {
		return nil, fmt.Errorf("%w: manifest is not base64: %w", model.ErrDecodeFailure, err)
	}
	msg, ok := sign.Open(nil, signed, publicKey)
	if !ok {
		return nil, ErrBadSignature
	}
	var m Manifest
	if err := json.Unmarshal(msg, &m); err != nil {
		return nil, fmt.Errorf("%w: manifest json: %w", model.ErrDecodeFailure, err)
	}
	if m.Aliases == nil {
		m.Aliases = map[string][]string{}
	}
	return &m, nil
}

// SignManifest produces the base64 body served for m.
func SignManifest(m Manifest, privateKey *[64]byte) (string, error) {
	msg, err := json.Marshal(m)
	if err != nil {
		return "", fmt.Errorf("failed to encode manifest: %w", err)
	}
	return base64.StdEncoding.EncodeToString(sign.Sign(nil, msg, privateKey)), nil
}

// FileFetcher reads an unsigned manifest from a local YAML file.
// Local files are trusted the same way the config file is.
type FileFetcher struct {
	Path string
}

// FetchManifest implements Fetcher.
func (f FileFetcher) FetchManifest(_ context.Context) (*Manifest, error) {
	data, err := os.ReadFile(f.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest file: %w", err)
	}
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("%w: manifest yaml: %w", model.ErrDecodeFailure, err)
	}
	if m.Aliases == nil {
		m.Aliases = map[string][]string{}
	}
	return &m, nil
}

// WriteFile saves m as YAML so that FileFetcher can read it back. It is
// used to cache the last refreshed manifest between runs.
func WriteFile(path string, m Manifest) error {
	data, err := yaml.Marshal(m)
	if err != nil {
		return fmt.Errorf("failed to encode manifest: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return fmt.Errorf("failed to create manifest directory: %w", err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("failed to write manifest: %w", err)
	}
	return os.Rename(tmp, path)
}

// Refresh fetches a manifest with f and loads it into r. On any failure the
// loaded manifest stays in effect and the returned error wraps
// model.ErrManifestUnavailable.
func Refresh(ctx context.Context, f Fetcher, r *Resolver, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}
	m, err := f.FetchManifest(ctx)
	if err != nil {
		logger.Warn("domain alias refresh failed, keeping current manifest",
			"version", r.Version(), "error", err)
		return fmt.Errorf("%w: %w", model.ErrManifestUnavailable, err)
	}
	if err := r.LoadManifest(*m); err != nil {
		logger.Warn("domain alias manifest rejected", "version", m.Version, "error", err)
		return fmt.Errorf("%w: %w", model.ErrManifestUnavailable, err)
	}
	logger.Info("domain alias manifest loaded",
		"version", m.Version, "sources", len(m.Aliases))
	return nil
}
