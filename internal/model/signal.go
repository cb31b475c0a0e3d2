package model

// Token identifies one search session. Tokens are allocated in increasing
// order by the session manager.
type Token uint64

// SignalKind distinguishes result deliveries from the end-of-search marker.
type SignalKind int

const (
	// SignalResult carries one SearchResult.
	SignalResult SignalKind = iota
	// SignalEnd marks the end of a search. Nothing follows it.
	SignalEnd
)

// String returns the lower-case name of the signal kind.
func (k SignalKind) String() string {
	if k == SignalEnd {
		return "end"
	}
	return "result"
}

// Signal is one delivery to a Listener.
type Signal struct {
	Kind  SignalKind
	Token Token
	// Result is nil for SignalEnd.
	Result SearchResult
}

// ResultSignal returns a SignalResult for r.
func ResultSignal(token Token, r SearchResult) Signal {
	return Signal{Kind: SignalResult, Token: token, Result: r}
}

// EndSignal returns the end marker for token.
func EndSignal(token Token) Signal {
	return Signal{Kind: SignalEnd, Token: token}
}

// Listener receives signals for one search. Calls are serialized by the
// session that owns the listener.
type Listener func(Signal)
