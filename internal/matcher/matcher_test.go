package matcher

import (
	"errors"
	"regexp"
	"strings"
	"testing"
)

func TestMatcherFindAll(t *testing.T) {
	t.Parallel()

	t.Run("iterates matches with positional and named groups", func(t *testing.T) {
		t.Parallel()

		re := regexp.MustCompile(`<a href="/item/(?P<id>\d+)">(?P<name>[^<]+)</a>`)
		text := New(`<a href="/item/1">first</a> junk <a href="/item/22">second</a>`)

		m := text.FindAll(re)
		var ids, names []string
		for m.Next() {
			ids = append(ids, m.Match().Group(1))
			names = append(names, m.Match().Named("name"))
		}
		if err := m.Err(); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if strings.Join(ids, ",") != "1,22" {
			t.Errorf("expected ids 1,22, got %v", ids)
		}
		if strings.Join(names, ",") != "first,second" {
			t.Errorf("expected names first,second, got %v", names)
		}
	})

	t.Run("reports match offsets within the text", func(t *testing.T) {
		t.Parallel()

		text := New("abc-xyz-abc")
		m := text.FindAll(regexp.MustCompile(`xyz`))
		if !m.Next() {
			t.Fatal("expected a match")
		}
		if m.Match().Start() != 4 || m.Match().End() != 7 {
			t.Errorf("expected [4,7), got [%d,%d)", m.Match().Start(), m.Match().End())
		}
	})

	t.Run("unknown groups yield empty strings", func(t *testing.T) {
		t.Parallel()

		text := New("key=value")
		match, err := text.Find(regexp.MustCompile(`(?P<k>\w+)=(?P<v>\w+)(?P<opt>;)?`))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if match == nil {
			t.Fatal("expected a match")
		}
		if match.Group(5) != "" {
			t.Errorf("expected empty group, got %q", match.Group(5))
		}
		if match.Named("missing") != "" {
			t.Errorf("expected empty named group, got %q", match.Named("missing"))
		}
		if _, ok := match.NamedOK("opt"); ok {
			t.Error("expected optional group not to participate")
		}
		if match.Group(3) != "" {
			t.Errorf("expected empty optional group, got %q", match.Group(3))
		}
	})

	t.Run("no match is not an error", func(t *testing.T) {
		t.Parallel()

		text := New("nothing interesting here")
		match, err := text.Find(regexp.MustCompile(`\d+`))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if match != nil {
			t.Errorf("expected nil match, got %v", match)
		}
		if text.Remaining() == 0 {
			t.Error("expected budget to be left over")
		}
	})

	t.Run("empty matches make progress", func(t *testing.T) {
		t.Parallel()

		text := New("bab")
		m := text.FindAll(regexp.MustCompile(`a*`))
		count := 0
		sawA := false
		for m.Next() {
			count++
			if m.Match().Group(0) == "a" {
				sawA = true
			}
			if count > 10 {
				t.Fatal("matcher did not advance past empty matches")
			}
		}
		if err := m.Err(); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !sawA {
			t.Error("expected to see the non-empty match")
		}
	})
}

func TestMatcherAgreesWithRegexp(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		pattern string
		input   string
	}{
		{name: "word boundary", pattern: `\bfoo`, input: "foofoo foo"},
		{name: "non word boundary", pattern: `\Bfoo`, input: "foofoo foo"},
		{name: "whole words", pattern: `\b\w+\b`, input: "one two,three"},
		{name: "begin text", pattern: `^a`, input: "aaa"},
		{name: "begin line", pattern: `(?m)^(?P<first>\w)`, input: "ab\ncd\nef"},
		{name: "end line", pattern: `(?m)\w$`, input: "ab\ncd"},
		{name: "empty after match", pattern: `a*`, input: "baaac"},
		{name: "empty everywhere", pattern: `x*`, input: "héé"},
		{name: "unicode boundary", pattern: `\b\w`, input: "é a é"},
		{name: "alternation with boundary", pattern: `\bab|cd\b`, input: "abab cdcd ab"},
		{name: "case folded", pattern: `(?i)\bFOO`, input: "foo xfoo Foo"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			re := regexp.MustCompile(tt.pattern)
			want := re.FindAllStringSubmatchIndex(tt.input, -1)

			m := NewWithFactor(tt.input, 100).FindAll(re)
			var got []*Match
			for m.Next() {
				got = append(got, m.Match())
				if len(got) > len(want) {
					break
				}
			}
			if err := m.Err(); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if len(got) != len(want) {
				t.Fatalf("expected %d matches %v, got %d", len(want), want, len(got))
			}
			for i, loc := range want {
				if got[i].Start() != loc[0] || got[i].End() != loc[1] {
					t.Errorf("match %d: expected [%d,%d), got [%d,%d)", i, loc[0], loc[1], got[i].Start(), got[i].End())
				}
				for g := 1; g <= re.NumSubexp(); g++ {
					expected := ""
					if loc[2*g] >= 0 {
						expected = tt.input[loc[2*g]:loc[2*g+1]]
					}
					if got[i].Group(g) != expected {
						t.Errorf("match %d group %d: expected %q, got %q", i, g, expected, got[i].Group(g))
					}
				}
			}
		})
	}

	t.Run("groups follow the context", func(t *testing.T) {
		t.Parallel()

		re := regexp.MustCompile(`(?m)^(?P<key>\w)=(?P<value>\d)`)
		m := New("a=1b=2\nc=3").FindAll(re)
		var keys []string
		for m.Next() {
			keys = append(keys, m.Match().Named("key")+m.Match().Group(2))
		}
		if err := m.Err(); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if strings.Join(keys, ",") != "a1,c3" {
			t.Errorf("expected a1,c3, got %v", keys)
		}
	})
}

func TestMatcherBudget(t *testing.T) {
	t.Parallel()

	t.Run("budget is twice the rune length", func(t *testing.T) {
		t.Parallel()

		text := New("héllo")
		if text.Remaining() != 10 {
			t.Errorf("expected budget 10, got %d", text.Remaining())
		}
	})

	t.Run("custom factor", func(t *testing.T) {
		t.Parallel()

		text := NewWithFactor("abcd", 3)
		if text.Remaining() != 12 {
			t.Errorf("expected budget 12, got %d", text.Remaining())
		}

		fallback := NewWithFactor("abcd", 0)
		if fallback.Remaining() != 8 {
			t.Errorf("expected fallback budget 8, got %d", fallback.Remaining())
		}
	})

	t.Run("pathological pattern fails fast with IterationExhausted", func(t *testing.T) {
		t.Parallel()

		// The preferred alternative rescans to the end of the input for
		// every match, which costs roughly L*L/2 reads in total.
		input := strings.Repeat("x", 100)
		text := New(input)
		m := text.FindAll(regexp.MustCompile(`(?s)x.*?y|x`))

		matches := 0
		for m.Next() {
			matches++
		}
		if !errors.Is(m.Err(), ErrIterationExhausted) {
			t.Fatalf("expected ErrIterationExhausted, got %v", m.Err())
		}
		if matches >= len(input) {
			t.Errorf("expected the pass to stop early, got %d matches", matches)
		}
		if text.Remaining() != 0 {
			t.Errorf("expected budget to be spent, got %d", text.Remaining())
		}
		if m.Match() != nil {
			t.Error("expected no current match after exhaustion")
		}
	})

	t.Run("reads never exceed the budget", func(t *testing.T) {
		t.Parallel()

		inputs := []string{
			"",
			"a",
			strings.Repeat("ab", 50),
			strings.Repeat("<tr><td>row</td></tr>", 20),
		}
		patterns := []*regexp.Regexp{
			regexp.MustCompile(`(?s)<tr>(.*?)</tr>`),
			regexp.MustCompile(`(?s)a.*?z|a`),
			regexp.MustCompile(`b*`),
		}

		for _, in := range inputs {
			for _, re := range patterns {
				text := New(in)
				initial := text.Remaining()
				m := text.FindAll(re)
				for m.Next() {
				}
				used := initial - text.Remaining()
				if used > 2*len([]rune(in)) {
					t.Errorf("pattern %q on %d runes used %d reads", re, len(in), used)
				}
				if text.Remaining() < 0 {
					t.Errorf("budget went negative: %d", text.Remaining())
				}
			}
		}
	})

	t.Run("slices share the remaining budget", func(t *testing.T) {
		t.Parallel()

		text := New("abcabcabc")
		before := text.Remaining()

		sub := text.Slice(3, 6)
		if sub.String() != "abc" {
			t.Fatalf("expected slice abc, got %q", sub.String())
		}
		if sub.Remaining() != before {
			t.Errorf("expected slice to inherit %d, got %d", before, sub.Remaining())
		}

		if _, err := sub.Find(regexp.MustCompile(`c`)); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if text.Remaining() >= before {
			t.Error("expected reads on the slice to be charged to the parent")
		}
		if sub.Remaining() != text.Remaining() {
			t.Errorf("expected shared budget, got %d and %d", sub.Remaining(), text.Remaining())
		}
	})

	t.Run("slicing an exhausted text stays exhausted", func(t *testing.T) {
		t.Parallel()

		text := New(strings.Repeat("x", 40))
		m := text.FindAll(regexp.MustCompile(`(?s)x.*?y|x`))
		for m.Next() {
		}
		if !errors.Is(m.Err(), ErrIterationExhausted) {
			t.Fatalf("expected exhaustion, got %v", m.Err())
		}

		sub := text.Slice(0, 10)
		if _, err := sub.Find(regexp.MustCompile(`x`)); !errors.Is(err, ErrIterationExhausted) {
			t.Errorf("expected ErrIterationExhausted from slice, got %v", err)
		}
	})

	t.Run("slice bounds are clamped", func(t *testing.T) {
		t.Parallel()

		text := New("abc")
		if got := text.Slice(-5, 99).String(); got != "abc" {
			t.Errorf("expected abc, got %q", got)
		}
		if got := text.Slice(2, 1).String(); got != "" {
			t.Errorf("expected empty slice, got %q", got)
		}
	})
}
