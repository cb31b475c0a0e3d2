package session

import (
	"context"
	"sync/atomic"

	"github.com/nao1215/fedsearch/internal/model"
	"github.com/nao1215/fedsearch/internal/performer"
)

// State is the lifecycle state of a session.
type State int

const (
	// StateRunning means performers may still deliver results.
	StateRunning State = iota
	// StateStopped is terminal: End has been or is about to be delivered.
	StateStopped
)

// String returns the lower-case name of the state.
func (s State) String() string {
	if s == StateStopped {
		return "stopped"
	}
	return "running"
}

// Session is one running search.
type Session struct {
	token      model.Token
	query      string
	performers []performer.Performer
	cancel     context.CancelFunc
	dispatch   *dispatcher

	stopped atomic.Bool
	results atomic.Int64

	// finished is closed once every performer has returned.
	finished chan struct{}
}

func newSession(token model.Token, query string, performers []performer.Performer, listener model.Listener, cancel context.CancelFunc) *Session {
	return &Session{
		token:      token,
		query:      query,
		performers: performers,
		cancel:     cancel,
		dispatch:   newDispatcher(listener),
		finished:   make(chan struct{}),
	}
}

// Token returns the session token carried by every signal.
func (s *Session) Token() model.Token {
	return s.token
}

// Query returns the trimmed query.
func (s *Session) Query() string {
	return s.query
}

// Stop ends the search. The listener receives End once, right after any
// signal it is currently handling; later results are dropped. Stop is safe
// to call more than once, from any goroutine and from the listener itself.
//
// Stop only raises the stop flag. A fetch already in flight runs to
// completion and each performer returns at its next stop check; cancel the
// context passed to Search to abort in-flight fetches as well.
func (s *Session) Stop() {
	if s.stopped.Swap(true) {
		return
	}
	for _, p := range s.performers {
		p.Stop()
	}
	s.dispatch.push(model.EndSignal(s.token))
}

// IsStopped reports whether the session has stopped, either through Stop or
// because every source finished.
func (s *Session) IsStopped() bool {
	return s.stopped.Load()
}

// State returns the lifecycle state.
func (s *Session) State() State {
	if s.IsStopped() {
		return StateStopped
	}
	return StateRunning
}

// Count returns the number of results delivered to the listener's queue.
func (s *Session) Count() int {
	return int(s.results.Load())
}

// Done returns a channel closed once End has been delivered.
func (s *Session) Done() <-chan struct{} {
	return s.dispatch.delivered
}

// Wait blocks until End has been delivered and every performer has
// returned, or ctx is done.
func (s *Session) Wait(ctx context.Context) error {
	for _, ch := range []chan struct{}{s.dispatch.delivered, s.finished} {
		select {
		case <-ch:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

// deliver is the emitter handed to every performer.
func (s *Session) deliver(r model.SearchResult) {
	if r == nil || s.IsStopped() {
		return
	}
	if s.dispatch.push(model.ResultSignal(s.token, r)) {
		s.results.Add(1)
	}
}

// finish runs once every performer has returned.
func (s *Session) finish() {
	s.stopped.Store(true)
	s.cancel()
	s.dispatch.push(model.EndSignal(s.token))
	close(s.finished)
}
