package transfer

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode"
)

// DirEngine is an Engine that saves payloads into a directory for an
// external client to pick up: .torrent files as they are, magnet links as
// .magnet and other links as .url shortcuts. A selected file list is
// written next to them as .files.
type DirEngine struct {
	dir string
}

// NewDirEngine returns a DirEngine writing into dir.
func NewDirEngine(dir string) *DirEngine {
	return &DirEngine{dir: dir}
}

// Dir returns the target directory.
func (e *DirEngine) Dir() string {
	return e.dir
}

// StartTransfer implements Engine.
func (e *DirEngine) StartTransfer(ctx context.Context, p Payload) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := os.MkdirAll(e.dir, 0o750); err != nil {
		return fmt.Errorf("create %s: %w", e.dir, err)
	}

	base := filepath.Join(e.dir, safeName(p.Name))
	var path string
	var data []byte
	switch p.Kind {
	case PayloadTorrentBytes:
		path, data = base+".torrent", p.Data
	case PayloadMagnet:
		path, data = base+".magnet", []byte(p.URI+"\n")
	case PayloadTorrentURL, PayloadDirectURL:
		path, data = base+".url", []byte("[InternetShortcut]\nURL="+p.URI+"\n")
	default:
		return fmt.Errorf("%w: payload kind %s", ErrNotTransferable, p.Kind)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	if len(p.Files) > 0 {
		list := strings.Join(p.Files, "\n") + "\n"
		if err := os.WriteFile(base+".files", []byte(list), 0o600); err != nil {
			return fmt.Errorf("write %s.files: %w", base, err)
		}
	}
	return nil
}

// safeName turns a display name into a file name.
func safeName(name string) string {
	name = strings.TrimSuffix(strings.TrimSpace(name), ".torrent")
	out := strings.Map(func(r rune) rune {
		switch {
		case r == '/' || r == '\\' || r == ':' || r == '*' || r == '?' || r == '"' || r == '<' || r == '>' || r == '|':
			return '_'
		case unicode.IsControl(r):
			return -1
		default:
			return r
		}
	}, name)
	out = strings.Trim(out, ". ")
	if out == "" {
		return "transfer"
	}
	return out
}
