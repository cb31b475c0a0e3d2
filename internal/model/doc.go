// Package model defines the data shared by every stage of a federated search:
// the search token, the three kinds of search result, the signals a session
// delivers to its caller, and the error taxonomy used across performers.
//
// Results form a small tagged family:
//   - Preliminary: an item discovered on a search page that still needs its
//     details page fetched.
//   - Detailed: a fully resolved item (name, size, hash, seeds, links).
//   - CrawledFile: one file inside a Detailed item.
//
// A CrawledFile owns a reference to its Detailed parent and reads hash, seeds
// and links through it instead of copying them. Nothing points back from the
// parent, so results stay acyclic and can be treated as immutable values once
// constructed.
//
// Design decision: result types keep their fields unexported and expose
// accessors. Results cross goroutines on their way to the caller, and a
// result that cannot be mutated after emission needs no synchronization.
// Record is the flat, exported view used for serialization.
package model
