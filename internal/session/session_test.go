package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"regexp"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/nao1215/fedsearch/internal/domainalias"
	"github.com/nao1215/fedsearch/internal/fetch"
	"github.com/nao1215/fedsearch/internal/matcher"
	"github.com/nao1215/fedsearch/internal/model"
	"github.com/nao1215/fedsearch/internal/performer"
	"github.com/nao1215/fedsearch/internal/workpool"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// recorder is a listener that keeps every signal.
type recorder struct {
	mu      sync.Mutex
	signals []model.Signal
	onSig   func(model.Signal)
}

func (r *recorder) listen(sig model.Signal) {
	r.mu.Lock()
	r.signals = append(r.signals, sig)
	r.mu.Unlock()
	if r.onSig != nil {
		r.onSig(sig)
	}
}

func (r *recorder) snapshot() []model.Signal {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]model.Signal(nil), r.signals...)
}

func waitDone(t *testing.T, s *Session) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.Wait(ctx); err != nil {
		t.Fatalf("session did not finish: %v", err)
	}
}

// fake is a performer that emits a fixed number of detailed results.
type fake struct {
	name    string
	n       int
	delay   time.Duration
	ignore  bool // keep emitting after Stop
	stopped atomic.Bool
}

func (f *fake) Name() string    { return f.name }
func (f *fake) Stop()           { f.stopped.Store(true) }
func (f *fake) IsStopped() bool { return f.stopped.Load() }
func (f *fake) Start(ctx context.Context, _ model.Token, _ string, _ performer.Budget, emit performer.Emitter) {
	for i := range f.n {
		if !f.ignore && f.IsStopped() {
			return
		}
		if f.delay > 0 {
			time.Sleep(f.delay)
		}
		d, err := model.NewDetailed(model.DetailedInfo{
			Source:      f.name,
			DisplayName: fmt.Sprintf("%s-%d", f.name, i),
			TorrentURL:  "magnet:?xt=urn:btih:x",
		})
		if err != nil {
			panic(err)
		}
		emit(d)
	}
}

func fakeFactory(fakes map[string]*fake) Factory {
	return func(src performer.Source, _ performer.Deps) performer.Performer {
		return fakes[src.Name]
	}
}

func sources(names ...string) []performer.Source {
	out := make([]performer.Source, 0, len(names))
	for _, n := range names {
		out = append(out, performer.Source{Name: n})
	}
	return out
}

func TestSearchRejectsBadInput(t *testing.T) {
	t.Parallel()

	m := NewManager(sources("a"), performer.Deps{}, WithLogger(quietLogger()))
	rec := &recorder{}

	if _, err := m.Search(context.Background(), "   ", rec.listen); !errors.Is(err, ErrEmptyQuery) {
		t.Errorf("expected ErrEmptyQuery, got %v", err)
	}
	if _, err := m.Search(context.Background(), "q", nil); !errors.Is(err, ErrNilListener) {
		t.Errorf("expected ErrNilListener, got %v", err)
	}
	empty := NewManager(nil, performer.Deps{}, WithLogger(quietLogger()))
	if _, err := empty.Search(context.Background(), "q", rec.listen); !errors.Is(err, ErrNoSources) {
		t.Errorf("expected ErrNoSources, got %v", err)
	}
}

func TestSearchDeliversAllResultsThenEnd(t *testing.T) {
	t.Parallel()

	fakes := map[string]*fake{
		"a": {name: "a", n: 5},
		"b": {name: "b", n: 7},
		"c": {name: "c", n: 0},
	}
	m := NewManager(sources("a", "b", "c"), performer.Deps{},
		WithFactory(fakeFactory(fakes)), WithLogger(quietLogger()))
	rec := &recorder{}

	s, err := m.Search(context.Background(), " ubuntu ", rec.listen)
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if s.Query() != "ubuntu" {
		t.Errorf("expected trimmed query, got %q", s.Query())
	}
	waitDone(t, s)

	sigs := rec.snapshot()
	if len(sigs) != 13 {
		t.Fatalf("expected 12 results and End, got %d signals", len(sigs))
	}
	for i, sig := range sigs {
		if sig.Token != s.Token() {
			t.Errorf("signal %d: expected token %d, got %d", i, s.Token(), sig.Token)
		}
		want := model.SignalResult
		if i == len(sigs)-1 {
			want = model.SignalEnd
		}
		if sig.Kind != want {
			t.Errorf("signal %d: expected %v, got %v", i, want, sig.Kind)
		}
	}
	if s.Count() != 12 {
		t.Errorf("expected count 12, got %d", s.Count())
	}
	if s.State() != StateStopped {
		t.Errorf("expected a finished session to be stopped, got %v", s.State())
	}
}

func TestTokensIncrease(t *testing.T) {
	t.Parallel()

	m := NewManager(sources("a"), performer.Deps{},
		WithFactory(func(src performer.Source, _ performer.Deps) performer.Performer {
			return &fake{name: src.Name}
		}),
		WithLogger(quietLogger()))

	var last model.Token
	for range 3 {
		rec := &recorder{}
		s, err := m.Search(context.Background(), "q", rec.listen)
		if err != nil {
			t.Fatalf("Search failed: %v", err)
		}
		if s.Token() <= last {
			t.Errorf("expected token above %d, got %d", last, s.Token())
		}
		last = s.Token()
		waitDone(t, s)
	}
}

func TestListenerCallsAreSerialized(t *testing.T) {
	t.Parallel()

	fakes := map[string]*fake{}
	var names []string
	for i := range 8 {
		n := fmt.Sprintf("s%d", i)
		fakes[n] = &fake{name: n, n: 50}
		names = append(names, n)
	}
	m := NewManager(sources(names...), performer.Deps{},
		WithFactory(fakeFactory(fakes)), WithLogger(quietLogger()))

	var inside atomic.Int32
	var overlaps atomic.Int32
	rec := &recorder{onSig: func(model.Signal) {
		if inside.Add(1) > 1 {
			overlaps.Add(1)
		}
		time.Sleep(10 * time.Microsecond)
		inside.Add(-1)
	}}
	s, err := m.Search(context.Background(), "q", rec.listen)
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	waitDone(t, s)

	if overlaps.Load() != 0 {
		t.Errorf("expected no overlapping listener calls, got %d", overlaps.Load())
	}
	if got := len(rec.snapshot()); got != 401 {
		t.Errorf("expected 401 signals, got %d", got)
	}
}

func TestStopFromListener(t *testing.T) {
	t.Parallel()

	fakes := map[string]*fake{
		"a": {name: "a", n: 100, delay: time.Millisecond, ignore: true},
		"b": {name: "b", n: 100, delay: time.Millisecond},
	}
	m := NewManager(sources("a", "b"), performer.Deps{},
		WithFactory(fakeFactory(fakes)), WithLogger(quietLogger()))

	var s *Session
	var once sync.Once
	ready := make(chan struct{})
	rec := &recorder{}
	rec.onSig = func(sig model.Signal) {
		<-ready
		if sig.Kind == model.SignalResult {
			once.Do(s.Stop)
		}
	}
	s, err := m.Search(context.Background(), "q", rec.listen)
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	close(ready)
	waitDone(t, s)

	sigs := rec.snapshot()
	ends := 0
	for i, sig := range sigs {
		if sig.Kind == model.SignalEnd {
			ends++
			if i != len(sigs)-1 {
				t.Errorf("expected End to be the last signal, found it at %d of %d", i, len(sigs))
			}
		}
	}
	if ends != 1 {
		t.Errorf("expected exactly one End, got %d", ends)
	}
	if len(sigs) > 50 {
		t.Errorf("expected the stop to cut the stream short, got %d signals", len(sigs))
	}
	if !s.IsStopped() || s.State() != StateStopped {
		t.Error("expected the session to be stopped")
	}
	if !fakes["a"].IsStopped() || !fakes["b"].IsStopped() {
		t.Error("expected every performer to be stopped")
	}

	// A performer that ignores Stop must not reach the listener after End.
	time.Sleep(20 * time.Millisecond)
	if got := len(rec.snapshot()); got != len(sigs) {
		t.Errorf("expected no signals after End, got %d more", got-len(sigs))
	}
}

func TestStopIsIdempotent(t *testing.T) {
	t.Parallel()

	fakes := map[string]*fake{"a": {name: "a", n: 1000, delay: time.Millisecond}}
	m := NewManager(sources("a"), performer.Deps{},
		WithFactory(fakeFactory(fakes)), WithLogger(quietLogger()))
	rec := &recorder{}
	s, err := m.Search(context.Background(), "q", rec.listen)
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if s.State() != StateRunning {
		t.Errorf("expected running, got %v", s.State())
	}

	var wg sync.WaitGroup
	for range 4 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.Stop()
		}()
	}
	wg.Wait()
	waitDone(t, s)

	ends := 0
	for _, sig := range rec.snapshot() {
		if sig.Kind == model.SignalEnd {
			ends++
		}
	}
	if ends != 1 {
		t.Errorf("expected exactly one End, got %d", ends)
	}
}

func TestCancelledContextEndsSession(t *testing.T) {
	t.Parallel()

	block := func(src performer.Source, _ performer.Deps) performer.Performer {
		return &blocking{name: src.Name}
	}
	m := NewManager(sources("a"), performer.Deps{}, WithFactory(block), WithLogger(quietLogger()))
	ctx, cancel := context.WithCancel(context.Background())
	rec := &recorder{}
	s, err := m.Search(ctx, "q", rec.listen)
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	cancel()
	waitDone(t, s)

	sigs := rec.snapshot()
	if len(sigs) != 1 || sigs[0].Kind != model.SignalEnd {
		t.Errorf("expected only End, got %v", sigs)
	}
}

// blocking waits for its context.
type blocking struct {
	name    string
	stopped atomic.Bool
}

func (b *blocking) Name() string    { return b.name }
func (b *blocking) Stop()           { b.stopped.Store(true) }
func (b *blocking) IsStopped() bool { return b.stopped.Load() }
func (b *blocking) Start(ctx context.Context, _ model.Token, _ string, _ performer.Budget, _ performer.Emitter) {
	<-ctx.Done()
}

// itemSource is a pattern source over "items.test" with one details page per
// item.
func itemSource() performer.Source {
	return performer.Source{
		Name:      "items",
		Canonical: "items.test",
		Budget:    performer.Budget{Pages: 1, Results: 3},
		Stage1: &performer.Pattern{
			SearchURL: func(domain, query string, page int) string {
				return fmt.Sprintf("http://%s/s?q=%s&p=%d", domain, query, page)
			},
			Scan: regexp.MustCompile(`<a href="/i/(?P<id>[^"]+)">(?P<name>[^<]+)</a>`),
			FromScan: func(m *matcher.Match, domain string) (*model.Preliminary, error) {
				id := m.Named("id")
				if strings.HasPrefix(id, "x") {
					return nil, errors.New("bad id")
				}
				return model.NewPreliminary("items", id, "http://"+domain+"/i/"+id, m.Named("name")), nil
			},
			Detail: regexp.MustCompile(`<h1>(?P<name>[^<]+)</h1><i>(?P<hash>\w+)</i>`),
			FromDetail: func(m *matcher.Match, p *model.Preliminary) (*model.Detailed, error) {
				return model.NewDetailed(model.DetailedInfo{
					Source:      "items",
					DisplayName: m.Named("name"),
					Hash:        m.Named("hash"),
					DetailsURL:  p.DetailsURL(),
					TorrentURL:  "magnet:?xt=urn:btih:" + m.Named("hash"),
				})
			},
		},
	}
}

func TestSearchEndToEnd(t *testing.T) {
	t.Parallel()

	pages := map[string]string{
		"http://items.test/s?q=ubuntu&p=1": `<a href="/i/xbad">broken</a>` +
			`<a href="/i/1">one</a><a href="/i/2">two</a><a href="/i/3">three</a>` +
			`<a href="/i/4">four</a><a href="/i/5">five</a>`,
	}
	for i := 1; i <= 5; i++ {
		pages[fmt.Sprintf("http://items.test/i/%d", i)] = fmt.Sprintf("<h1>item %d</h1><i>h%d</i>", i, i)
	}
	var mu sync.Mutex
	var fetched []string
	fetcher := fetch.Func(func(_ context.Context, req fetch.Request) ([]byte, error) {
		mu.Lock()
		fetched = append(fetched, req.URL)
		mu.Unlock()
		body, ok := pages[req.URL]
		if !ok {
			return nil, &fetch.Error{URL: req.URL, StatusCode: 404}
		}
		return []byte(body), nil
	})

	pool := workpool.New("search", 2)
	m := NewManager([]performer.Source{itemSource()},
		performer.Deps{Fetcher: fetcher, Logger: quietLogger()},
		WithSearchPool(pool), WithLogger(quietLogger()))
	if m.SearchPool() != pool {
		t.Error("expected the configured search pool")
	}
	if got := m.Sources(); len(got) != 1 || got[0] != "items" {
		t.Errorf("expected [items], got %v", got)
	}

	rec := &recorder{}
	s, err := m.Search(context.Background(), "ubuntu", rec.listen)
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	waitDone(t, s)

	sigs := rec.snapshot()
	var detailed []string
	for _, sig := range sigs {
		if sig.Kind == model.SignalResult && sig.Result.Kind() == model.KindDetailed {
			detailed = append(detailed, sig.Result.DisplayName())
		}
	}
	want := []string{"item 1", "item 2", "item 3"}
	if strings.Join(detailed, ",") != strings.Join(want, ",") {
		t.Errorf("expected %v, got %v", want, detailed)
	}
	if last := sigs[len(sigs)-1]; last.Kind != model.SignalEnd {
		t.Errorf("expected End last, got %v", last.Kind)
	}
	mu.Lock()
	defer mu.Unlock()
	for _, u := range fetched {
		if strings.HasSuffix(u, "/i/4") || strings.HasSuffix(u, "/i/5") {
			t.Errorf("expected no fetch past the result budget, got %s", u)
		}
	}
}

func TestStopLetsInFlightFetchFinish(t *testing.T) {
	t.Parallel()

	resolver := domainalias.NewResolver(domainalias.Manifest{
		Version: 1,
		Aliases: map[string][]string{"items.test": {"items.test", "mirror.test"}},
	})
	entered := make(chan struct{})
	release := make(chan struct{})
	var once sync.Once
	var aborted atomic.Bool
	fetcher := fetch.Func(func(ctx context.Context, req fetch.Request) ([]byte, error) {
		once.Do(func() { close(entered) })
		select {
		case <-release:
		case <-ctx.Done():
			aborted.Store(true)
			return nil, &fetch.Error{URL: req.URL, Err: ctx.Err()}
		}
		return []byte(`<a href="/i/1">one</a>`), nil
	})
	m := NewManager([]performer.Source{itemSource()},
		performer.Deps{Fetcher: fetcher, Resolver: resolver, Logger: quietLogger()},
		WithLogger(quietLogger()))

	rec := &recorder{}
	s, err := m.Search(context.Background(), "ubuntu", rec.listen)
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	select {
	case <-entered:
	case <-time.After(5 * time.Second):
		t.Fatal("expected the search page to be fetched")
	}
	s.Stop()
	select {
	case <-s.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("expected End to be delivered right after Stop")
	}
	close(release)
	waitDone(t, s)

	if aborted.Load() {
		t.Error("expected Stop to let the in-flight fetch finish")
	}
	if got := resolver.CurrentDomain("items.test"); got != "items.test" {
		t.Errorf("expected items.test to stay current after Stop, got %s", got)
	}
	if sigs := rec.snapshot(); len(sigs) != 1 || sigs[0].Kind != model.SignalEnd {
		t.Errorf("expected only End, got %v", sigs)
	}
}

func TestCancelDoesNotDemoteDomain(t *testing.T) {
	t.Parallel()

	resolver := domainalias.NewResolver(domainalias.Manifest{
		Version: 1,
		Aliases: map[string][]string{"items.test": {"items.test", "mirror.test"}},
	})
	entered := make(chan struct{})
	var once sync.Once
	fetcher := fetch.Func(func(ctx context.Context, req fetch.Request) ([]byte, error) {
		once.Do(func() { close(entered) })
		<-ctx.Done()
		return nil, &fetch.Error{URL: req.URL, Err: ctx.Err()}
	})
	m := NewManager([]performer.Source{itemSource()},
		performer.Deps{Fetcher: fetcher, Resolver: resolver, Logger: quietLogger()},
		WithLogger(quietLogger()))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	s, err := m.Search(ctx, "ubuntu", (&recorder{}).listen)
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	<-entered
	cancel()
	waitDone(t, s)

	if got := resolver.CurrentDomain("items.test"); got != "items.test" {
		t.Errorf("expected items.test to stay current after cancel, got %s", got)
	}
}
