package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // SQLite driver

	"github.com/nao1215/fedsearch/internal/model"
)

// FileName is the name of the database file inside the data directory.
const FileName = "history.db"

// HistoryDB stores searches and their results.
type HistoryDB struct {
	// db is the underlying SQL database connection.
	db *sql.DB

	// dbPath is the path to the SQLite database file.
	dbPath string

	now func() time.Time
}

// Options configures HistoryDB behavior.
type Options struct {
	// CreateIfNotExists creates the database file if it doesn't exist.
	CreateIfNotExists bool

	// EnableWAL enables Write-Ahead Logging so readers do not block the
	// writer.
	EnableWAL bool
}

// DefaultOptions returns the default database options.
func DefaultOptions() Options {
	return Options{
		CreateIfNotExists: true,
		EnableWAL:         true,
	}
}

// Open opens or creates the HistoryDB in dbDir.
func Open(dbDir string, opts Options) (*HistoryDB, error) {
	dbPath := filepath.Join(dbDir, FileName)

	if !opts.CreateIfNotExists {
		if _, err := os.Stat(dbPath); os.IsNotExist(err) {
			return nil, fmt.Errorf("%w at %s", ErrDatabaseNotFound, dbPath)
		} else if err != nil {
			return nil, fmt.Errorf("failed to check database path: %w", err)
		}
	} else if err := os.MkdirAll(dbDir, 0750); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	// mode=rw refuses to create a missing file.
	dsn := dbPath + "?mode=rw"
	if opts.CreateIfNotExists {
		dsn = dbPath + "?mode=rwc"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1) // SQLite only supports one writer
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	hdb := &HistoryDB{
		db:     db,
		dbPath: dbPath,
		now:    time.Now,
	}

	if opts.EnableWAL {
		if _, err := db.ExecContext(context.Background(), "PRAGMA journal_mode=WAL"); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
		}
	}
	if err := hdb.createTables(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}
	return hdb, nil
}

// Close closes the database connection.
func (h *HistoryDB) Close() error {
	return h.db.Close()
}

// Path returns the database file path.
func (h *HistoryDB) Path() string {
	return h.dbPath
}

func (h *HistoryDB) createTables() error {
	schema := `
	-- One row per search session
	CREATE TABLE IF NOT EXISTS searches (
		id TEXT PRIMARY KEY,
		token INTEGER NOT NULL,
		query TEXT NOT NULL,
		started_at TEXT NOT NULL,
		finished_at TEXT,
		result_count INTEGER DEFAULT 0
	);

	CREATE INDEX IF NOT EXISTS idx_searches_started ON searches(started_at);

	-- Every result a search emitted
	CREATE TABLE IF NOT EXISTS results (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		search_id TEXT NOT NULL REFERENCES searches(id) ON DELETE CASCADE,
		uid INTEGER NOT NULL,
		kind TEXT NOT NULL,
		source TEXT NOT NULL,
		display_name TEXT NOT NULL,
		filename TEXT,
		details_url TEXT,
		hash TEXT,
		seeds INTEGER DEFAULT 0,
		size INTEGER DEFAULT 0,
		creation_time TEXT,
		torrent_url TEXT,
		download_url TEXT,
		parent_uid INTEGER DEFAULT 0,
		path TEXT,
		saved_at TEXT NOT NULL,
		UNIQUE(search_id, uid)
	);

	CREATE INDEX IF NOT EXISTS idx_results_uid ON results(uid);
	`

	_, err := h.db.ExecContext(context.Background(), schema)
	return err
}

// Search is one recorded search session.
type Search struct {
	// ID is a random UUID.
	ID string

	// Token is the session token the search ran under. Tokens restart with
	// every process, so only ID is unique.
	Token model.Token

	Query     string
	StartedAt time.Time

	// FinishedAt is zero while the search is running or if it was never
	// finished.
	FinishedAt time.Time

	ResultCount int
}

// CreateSearch records the start of a search.
func (h *HistoryDB) CreateSearch(ctx context.Context, token model.Token, query string) (Search, error) {
	s := Search{
		ID:        uuid.NewString(),
		Token:     token,
		Query:     query,
		StartedAt: h.now().UTC(),
	}
	_, err := h.db.ExecContext(ctx,
		`INSERT INTO searches (id, token, query, started_at) VALUES (?, ?, ?, ?)`,
		s.ID, int64(token), s.Query, formatTimestamp(s.StartedAt),
	)
	if err != nil {
		return Search{}, fmt.Errorf("failed to create search: %w", err)
	}
	return s, nil
}

// FinishSearch records the end of a search and the number of results it
// delivered.
func (h *HistoryDB) FinishSearch(ctx context.Context, id string, count int) error {
	res, err := h.db.ExecContext(ctx,
		`UPDATE searches SET finished_at = ?, result_count = ? WHERE id = ?`,
		formatTimestamp(h.now().UTC()), count, id,
	)
	if err != nil {
		return fmt.Errorf("failed to finish search: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to finish search: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrSearchNotFound, id)
	}
	return nil
}

// SaveResult stores rec under searchID. Saving the same UID twice for one
// search updates the stored row.
func (h *HistoryDB) SaveResult(ctx context.Context, searchID string, rec model.Record) error {
	query := `
	INSERT INTO results (search_id, uid, kind, source, display_name, filename, details_url,
		hash, seeds, size, creation_time, torrent_url, download_url, parent_uid, path, saved_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(search_id, uid) DO UPDATE SET
		kind = excluded.kind,
		display_name = excluded.display_name,
		filename = excluded.filename,
		details_url = excluded.details_url,
		hash = excluded.hash,
		seeds = excluded.seeds,
		size = excluded.size,
		creation_time = excluded.creation_time,
		torrent_url = excluded.torrent_url,
		download_url = excluded.download_url,
		parent_uid = excluded.parent_uid,
		path = excluded.path,
		saved_at = excluded.saved_at
	`

	_, err := h.db.ExecContext(ctx, query,
		searchID,
		int64(rec.UID),
		rec.Kind,
		rec.Source,
		rec.DisplayName,
		rec.Filename,
		rec.DetailsURL,
		rec.Hash,
		rec.Seeds,
		rec.Size,
		formatTimestamp(rec.CreationTime),
		rec.TorrentURL,
		rec.DownloadURL,
		int64(rec.ParentUID),
		rec.Path,
		formatTimestamp(h.now().UTC()),
	)
	if err != nil {
		return fmt.Errorf("failed to save result: %w", err)
	}
	return nil
}

// ListSearches returns the most recent searches first. A limit below 1
// returns every search.
func (h *HistoryDB) ListSearches(ctx context.Context, limit int) ([]Search, error) {
	query := `
	SELECT id, token, query, started_at, finished_at, result_count
	FROM searches
	ORDER BY started_at DESC, rowid DESC
	`
	args := make([]any, 0, 1)
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := h.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list searches: %w", err)
	}
	defer rows.Close()

	var searches []Search
	for rows.Next() {
		var s Search
		var token int64
		var started string
		var finished sql.NullString
		if err := rows.Scan(&s.ID, &token, &s.Query, &started, &finished, &s.ResultCount); err != nil {
			return nil, fmt.Errorf("failed to scan search: %w", err)
		}
		s.Token = model.Token(token)
		s.StartedAt = parseTimestamp(started)
		if finished.Valid {
			s.FinishedAt = parseTimestamp(finished.String)
		}
		searches = append(searches, s)
	}
	return searches, rows.Err()
}

// GetSearch returns one search by ID.
func (h *HistoryDB) GetSearch(ctx context.Context, id string) (Search, error) {
	var s Search
	var token int64
	var started string
	var finished sql.NullString
	err := h.db.QueryRowContext(ctx,
		`SELECT id, token, query, started_at, finished_at, result_count FROM searches WHERE id = ?`, id,
	).Scan(&s.ID, &token, &s.Query, &started, &finished, &s.ResultCount)
	if errors.Is(err, sql.ErrNoRows) {
		return Search{}, fmt.Errorf("%w: %s", ErrSearchNotFound, id)
	}
	if err != nil {
		return Search{}, fmt.Errorf("failed to get search: %w", err)
	}
	s.Token = model.Token(token)
	s.StartedAt = parseTimestamp(started)
	if finished.Valid {
		s.FinishedAt = parseTimestamp(finished.String)
	}
	return s, nil
}

const resultColumns = `uid, kind, source, display_name, filename, details_url, hash, seeds, size,
	creation_time, torrent_url, download_url, parent_uid, path`

// Results returns the results of one search in the order they were saved.
func (h *HistoryDB) Results(ctx context.Context, searchID string) ([]model.Record, error) {
	rows, err := h.db.QueryContext(ctx,
		`SELECT `+resultColumns+` FROM results WHERE search_id = ? ORDER BY id`, searchID)
	if err != nil {
		return nil, fmt.Errorf("failed to get results: %w", err)
	}
	defer rows.Close()

	var records []model.Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// FindResult returns the most recently saved result with uid, or nil if
// there is none.
func (h *HistoryDB) FindResult(ctx context.Context, uid uint32) (*model.Record, error) {
	row := h.db.QueryRowContext(ctx,
		`SELECT `+resultColumns+` FROM results WHERE uid = ? ORDER BY id DESC LIMIT 1`, int64(uid))
	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(s scanner) (model.Record, error) {
	var rec model.Record
	var uid, parentUID int64
	var filename, detailsURL, hash, created, torrentURL, downloadURL, path sql.NullString
	err := s.Scan(
		&uid,
		&rec.Kind,
		&rec.Source,
		&rec.DisplayName,
		&filename,
		&detailsURL,
		&hash,
		&rec.Seeds,
		&rec.Size,
		&created,
		&torrentURL,
		&downloadURL,
		&parentUID,
		&path,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Record{}, err
	}
	if err != nil {
		return model.Record{}, fmt.Errorf("failed to scan result: %w", err)
	}
	rec.UID = uint32(uid)             //nolint:gosec // stored from a uint32
	rec.ParentUID = uint32(parentUID) //nolint:gosec // stored from a uint32
	rec.Filename = filename.String
	rec.DetailsURL = detailsURL.String
	rec.Hash = hash.String
	rec.CreationTime = parseTimestamp(created.String)
	rec.TorrentURL = torrentURL.String
	rec.DownloadURL = downloadURL.String
	rec.Path = path.String
	return rec, nil
}

// formatTimestamp stores t as RFC 3339 in UTC; the zero time is stored as
// an empty string.
func formatTimestamp(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}

// timestampFormats contains the timestamp formats that SQLite may return.
// The order matters: more specific formats should come first.
var timestampFormats = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02 15:04:05",     // SQLite default datetime format
	"2006-01-02 15:04:05.999", // SQLite with milliseconds
}

// parseTimestamp tries every known format and returns the zero time if
// none matches.
func parseTimestamp(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	for _, format := range timestampFormats {
		if t, err := time.Parse(format, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
