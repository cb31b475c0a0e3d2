// Package database provides SQLite-based storage for search history.
//
// This package implements the HistoryDB, which stores:
//   - One row per search with its query, session token and timing
//   - Every result the search emitted, in the flat model.Record form
//
// Design decision: We use SQLite (via modernc.org/sqlite) so the history
// is a single local file. WAL mode lets the history command read while a
// search is still writing.
//
// Results are keyed by search and UID, so a result emitted twice by the
// same search is stored once.
package database
