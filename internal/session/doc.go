// Package session runs one search across many sources and streams the
// results to a single listener.
//
// A Manager owns the shared collaborators: the fetcher, the alias resolver
// and the two worker pools. Search starts one performer per source, each in
// its own goroutine, and returns a Session.
//
// # Delivery
//
// Results reach the listener through one dispatcher goroutine, so listener
// calls never overlap and a listener may call Stop itself. Every session
// ends with exactly one End signal, on natural completion or on Stop;
// results that arrive after it are dropped.
//
// Design decision: Stop only sets every performer's stop flag. Performers
// check the flag before each fetch and after each row, so a stopped session
// finishes at most one more fetch per source. Cancelling the context passed
// to Search is the hard abort; fetches cut short that way are never held
// against a domain.
package session
