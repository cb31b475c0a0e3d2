package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/nao1215/fedsearch/internal/config"
	"github.com/nao1215/fedsearch/internal/database"
	seclog "github.com/nao1215/fedsearch/internal/log"
)

func TestParseUIDs(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		args    []string
		want    []uint32
		wantErr bool
	}{
		{name: "lower case", args: []string{"1a2b3c4d"}, want: []uint32{0x1a2b3c4d}},
		{name: "upper case with prefix", args: []string{"0X00C0FFEE"}, want: []uint32{0x00c0ffee}},
		{name: "short", args: []string{"ff"}, want: []uint32{0xff}},
		{name: "several", args: []string{"1", "2"}, want: []uint32{1, 2}},
		{name: "not hex", args: []string{"xyz"}, wantErr: true},
		{name: "too long", args: []string{"123456789"}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := parseUIDs(tt.args)
			if tt.wantErr {
				if err == nil {
					t.Errorf("expected an error, got %v", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, got)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("expected %v, got %v", tt.want, got)
				}
			}
		})
	}
}

func TestGetResults(t *testing.T) {
	t.Parallel()

	t.Run("saves every result", func(t *testing.T) {
		t.Parallel()

		dbDir := t.TempDir()
		seedHistory(t, dbDir)
		db, err := database.Open(dbDir, database.DefaultOptions())
		if err != nil {
			t.Fatal(err)
		}
		defer db.Close()

		cfg := config.NewConfig()
		cfg.DownloadDir = t.TempDir()
		d := newGetDispatcher(cfg, nil, seclog.Discard())

		var out bytes.Buffer
		if err := getResults(context.Background(), db, d, []uint32{0x1a2b3c4d, 0x00c0ffee}, &out); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		magnet, err := os.ReadFile(filepath.Join(cfg.DownloadDir, "ubuntu desktop.magnet"))
		if err != nil {
			t.Fatalf("expected a magnet file: %v", err)
		}
		if strings.TrimSpace(string(magnet)) != "magnet:?xt=urn:btih:aaaa" {
			t.Errorf("unexpected magnet contents %q", magnet)
		}
		if _, err := os.Stat(filepath.Join(cfg.DownloadDir, "ubuntu theme.url")); err != nil {
			t.Errorf("expected a .url shortcut: %v", err)
		}
		if !strings.Contains(out.String(), "Saved ubuntu desktop (magnet)") {
			t.Errorf("expected a saved line, got %q", out.String())
		}
	})

	t.Run("unknown uid saves nothing", func(t *testing.T) {
		t.Parallel()

		dbDir := t.TempDir()
		seedHistory(t, dbDir)
		db, err := database.Open(dbDir, database.DefaultOptions())
		if err != nil {
			t.Fatal(err)
		}
		defer db.Close()

		cfg := config.NewConfig()
		cfg.DownloadDir = t.TempDir()
		d := newGetDispatcher(cfg, nil, seclog.Discard())

		err = getResults(context.Background(), db, d, []uint32{0x1a2b3c4d, 0xdeadbeef}, &bytes.Buffer{})
		if err == nil || !strings.Contains(err.Error(), "deadbeef") {
			t.Errorf("expected an error naming deadbeef, got %v", err)
		}
		entries, err := os.ReadDir(cfg.DownloadDir)
		if err != nil {
			t.Fatal(err)
		}
		if len(entries) != 0 {
			t.Errorf("expected nothing saved, got %d entries", len(entries))
		}
	})
}

func TestRunGetCmd(t *testing.T) {
	t.Parallel()

	dbDir := t.TempDir()
	seedHistory(t, dbDir)
	downloads := filepath.Join(t.TempDir(), "downloads")
	cfgPath := writeConfig(t, "sources:\n")

	cmd := NewGetCmd()
	var buf bytes.Buffer
	cmd.SetOut(&buf)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"--db-dir", dbDir, "--dir", downloads, "--config", cfgPath, "--no-fetch", "00c0ffee"})
	if err := cmd.Execute(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := os.Stat(filepath.Join(downloads, "ubuntu theme.url")); err != nil {
		t.Errorf("expected a .url shortcut: %v", err)
	}
}
