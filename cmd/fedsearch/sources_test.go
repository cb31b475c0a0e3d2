package main

import (
	"bytes"
	"regexp"
	"strings"
	"testing"

	"github.com/nao1215/fedsearch/internal/performer"
	"github.com/nao1215/fedsearch/internal/source"
)

func TestBudgetString(t *testing.T) {
	t.Parallel()

	if got := budgetString(performer.Budget{Pages: 2, Results: 10}); got != "2/10" {
		t.Errorf("expected 2/10, got %q", got)
	}
	if got := budgetString(performer.Budget{Pages: 1}); got != "1/unlimited" {
		t.Errorf("expected 1/unlimited, got %q", got)
	}
}

func TestRunSourcesCmd(t *testing.T) {
	t.Parallel()

	cfgPath := writeConfig(t, "sources:\n  monova:\n    enabled: false\n  kat:\n    results: 25\n")

	cmd := NewSourcesCmd()
	var buf bytes.Buffer
	cmd.SetOut(&buf)
	cmd.SetArgs([]string{"--config", cfgPath, "-p", "2"})
	if err := cmd.Execute(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	out := buf.String()

	for _, name := range []string{source.BitSnoop, source.Monova, source.KAT, source.Soundcloud} {
		if !strings.Contains(out, name) {
			t.Errorf("expected %s in the output, got %q", name, out)
		}
	}
	for _, want := range []string{"pattern", "json", "paged", "2/25", "2/10"} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %q in the output, got %q", want, out)
		}
	}

	var monova string
	for _, line := range strings.Split(out, "\n") {
		if strings.Contains(line, source.Monova) {
			monova = line
		}
	}
	if !regexp.MustCompile(`\bno\s+\S\s+2/10\b`).MatchString(monova) {
		t.Errorf("expected monova to be disabled, got %q", monova)
	}
}
