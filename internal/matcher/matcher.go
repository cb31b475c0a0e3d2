package matcher

import (
	"io"
	"regexp"
	"regexp/syntax"
	"sync"
	"unicode/utf8"
)

// DefaultBudgetFactor is the number of rune reads allowed per rune of input.
// Two reads per rune leaves room for the lookahead a typical lazy row pattern
// needs while still cutting off patterns that rescan the page for every match.
const DefaultBudgetFactor = 2

// budget is the read allowance shared by a Text and every slice cut from it.
// It is owned by a single call stack and is not safe for concurrent use.
type budget struct {
	remaining int
	exhausted bool
}

// take consumes one read. It reports false once the allowance is spent.
func (b *budget) take() bool {
	if b.remaining <= 0 {
		b.exhausted = true
		return false
	}
	b.remaining--
	return true
}

// Text is a read-budgeted view over a string.
type Text struct {
	s string
	b *budget
}

// New wraps s with a budget of DefaultBudgetFactor reads per rune.
func New(s string) *Text {
	return NewWithFactor(s, DefaultBudgetFactor)
}

// NewWithFactor wraps s with a budget of factor reads per rune.
// A factor below 1 falls back to DefaultBudgetFactor.
func NewWithFactor(s string, factor int) *Text {
	if factor < 1 {
		factor = DefaultBudgetFactor
	}
	return &Text{
		s: s,
		b: &budget{remaining: factor * utf8.RuneCountInString(s)},
	}
}

// String returns the underlying text.
func (t *Text) String() string {
	return t.s
}

// Len returns the length of the text in bytes.
func (t *Text) Len() int {
	return len(t.s)
}

// Remaining returns the number of reads left in the shared budget.
func (t *Text) Remaining() int {
	return t.b.remaining
}

// Slice returns the byte range [start, end) as a new Text that draws on the
// same budget. Out-of-range bounds are clamped.
func (t *Text) Slice(start, end int) *Text {
	if start < 0 {
		start = 0
	}
	if end > len(t.s) {
		end = len(t.s)
	}
	if start > end {
		start = end
	}
	return &Text{s: t.s[start:end], b: t.b}
}

// FindAll returns a Matcher that iterates over successive matches of re.
// The matches are the ones re.FindAllStringSubmatchIndex reports for the
// same text, including for patterns with ^, \b or \B assertions.
func (t *Text) FindAll(re *regexp.Regexp) *Matcher {
	return &Matcher{re: re, ctx: leftContext(re), text: t, prevEnd: -1}
}

// Find returns the first match of re, or nil when there is none.
func (t *Text) Find(re *regexp.Regexp) (*Match, error) {
	m := t.FindAll(re)
	if m.Next() {
		return m.Match(), nil
	}
	return nil, m.Err()
}

// Matcher walks the matches of one pattern over a Text.
// It follows the bufio.Scanner convention: call Next until it returns false,
// then check Err.
type Matcher struct {
	re   *regexp.Regexp
	ctx  *regexp.Regexp
	text *Text

	cursor  int
	prevEnd int
	cur     *Match
	err     error
	done    bool
}

// Next advances to the next match. It returns false when there are no more
// matches or the budget ran out.
func (m *Matcher) Next() bool {
	if m.done || m.err != nil {
		return false
	}
	s := m.text.s
	for {
		if m.cursor > len(s) {
			m.done = true
			m.cur = nil
			return false
		}

		loc := m.exec(m.cursor)
		if m.text.b.exhausted {
			// A refused read looks like end of input to the regexp engine,
			// so whatever it returned is not trustworthy.
			m.err = ErrIterationExhausted
			m.cur = nil
			return false
		}
		if loc == nil {
			m.done = true
			m.cur = nil
			return false
		}

		// Same stepping rules as regexp.FindAll: an empty match advances by
		// one rune and is dropped when it touches the previous match.
		accept := true
		if loc[1] == m.cursor {
			if loc[0] == m.prevEnd {
				accept = false
			}
			if m.cursor >= len(s) {
				m.cursor = len(s) + 1
			} else {
				_, size := utf8.DecodeRuneInString(s[m.cursor:])
				m.cursor += size
			}
		} else {
			m.cursor = loc[1]
		}
		m.prevEnd = loc[1]

		if accept {
			m.cur = newMatch(m.re, s, loc)
			return true
		}
	}
}

// exec runs one search starting at pos and returns absolute offsets.
// Past the start of the text it reads one rune early through the context
// pattern, so assertions see the rune before pos.
func (m *Matcher) exec(pos int) []int {
	s := m.text.s
	re, from := m.re, pos
	if pos > 0 && pos <= len(s) && m.ctx != nil {
		_, size := utf8.DecodeLastRuneInString(s[:pos])
		re, from = m.ctx, pos-size
	}

	loc := re.FindReaderSubmatchIndex(&runeReader{s: s[from:], b: m.text.b})
	if loc == nil {
		return nil
	}
	for i := range loc {
		if loc[i] >= 0 {
			loc[i] += from
		}
	}
	if re == m.ctx {
		_, size := utf8.DecodeRuneInString(s[loc[0]:])
		loc[0] += size
	}
	return loc
}

// Match returns the current match. It is nil before the first call to Next
// and after Next returns false.
func (m *Matcher) Match() *Match {
	return m.cur
}

// Err returns ErrIterationExhausted if the budget ran out, nil otherwise.
func (m *Matcher) Err() error {
	return m.err
}

// runeReader feeds the regexp engine one rune at a time, charging each read
// against the shared budget.
type runeReader struct {
	s   string
	pos int
	b   *budget
}

// ReadRune implements io.RuneReader.
func (r *runeReader) ReadRune() (rune, int, error) {
	if r.pos >= len(r.s) {
		return 0, 0, io.EOF
	}
	if !r.b.take() {
		return 0, 0, ErrIterationExhausted
	}
	ch, size := utf8.DecodeRuneInString(r.s[r.pos:])
	r.pos += size
	return ch, size, nil
}

// Match is one match record with positional and named capture groups.
type Match struct {
	start  int
	end    int
	groups []string
	set    []bool
	names  []string
}

// newMatch builds a Match from absolute offsets into s.
func newMatch(re *regexp.Regexp, s string, loc []int) *Match {
	n := len(loc) / 2
	m := &Match{
		start:  loc[0],
		end:    loc[1],
		groups: make([]string, n),
		set:    make([]bool, n),
		names:  re.SubexpNames(),
	}
	for i := range n {
		a, b := loc[2*i], loc[2*i+1]
		if a < 0 || b < 0 {
			continue
		}
		m.groups[i] = s[a:b]
		m.set[i] = true
	}
	return m
}

// Start returns the byte offset of the match within its Text.
func (m *Match) Start() int {
	return m.start
}

// End returns the byte offset just past the match within its Text.
func (m *Match) End() int {
	return m.end
}

// Group returns capture group i. Group 0 is the whole match.
// Unknown or non-participating groups yield "".
func (m *Match) Group(i int) string {
	if i < 0 || i >= len(m.groups) {
		return ""
	}
	return m.groups[i]
}

// Named returns the named capture group, or "" when it does not exist or
// did not participate in the match.
func (m *Match) Named(name string) string {
	v, _ := m.NamedOK(name)
	return v
}

// NamedOK is like Named but also reports whether the group participated.
func (m *Match) NamedOK(name string) (string, bool) {
	for i, n := range m.names {
		if n == name && i < len(m.groups) {
			return m.groups[i], m.set[i]
		}
	}
	return "", false
}

// contexts caches the context pattern of every pattern seen so far. A nil
// entry means the pattern does not look behind its start.
var contexts sync.Map

// leftContext returns re prefixed with one arbitrary rune, or nil when re
// has no assertion that depends on the text before a match.
func leftContext(re *regexp.Regexp) *regexp.Regexp {
	if v, ok := contexts.Load(re); ok {
		return v.(*regexp.Regexp)
	}
	var ctx *regexp.Regexp
	if tree, err := syntax.Parse(re.String(), syntax.Perl); err == nil && looksBehind(tree) {
		prefixed := &syntax.Regexp{
			Op:  syntax.OpConcat,
			Sub: []*syntax.Regexp{{Op: syntax.OpAnyChar}, tree},
		}
		if c, err := regexp.Compile(prefixed.String()); err == nil && c.NumSubexp() == re.NumSubexp() {
			ctx = c
		}
	}
	contexts.Store(re, ctx)
	return ctx
}

// looksBehind reports whether tree contains an assertion on the preceding
// rune.
func looksBehind(tree *syntax.Regexp) bool {
	switch tree.Op {
	case syntax.OpBeginLine, syntax.OpBeginText, syntax.OpWordBoundary, syntax.OpNoWordBoundary:
		return true
	}
	for _, sub := range tree.Sub {
		if looksBehind(sub) {
			return true
		}
	}
	return false
}
