package config

import (
	"fmt"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/adrg/xdg"
)

// Default configuration values.
const (
	// DefaultTimeout bounds every single fetch, not the whole search.
	DefaultTimeout = 10 * time.Second

	// DefaultPages is the number of search pages fetched per source.
	DefaultPages = 1

	// DefaultResults is the number of stage-1 results kept per source.
	DefaultResults = 10

	// DefaultSearchWorkers bounds concurrent search fetches across all
	// sources.
	DefaultSearchWorkers = 4

	// DefaultTransferWorkers bounds concurrent transfer hand-offs.
	DefaultTransferWorkers = 10

	// DefaultRateLimit is the number of requests per second sent to one
	// host.
	DefaultRateLimit = 2.0

	// DefaultRateBurst is the burst allowed above DefaultRateLimit.
	DefaultRateBurst = 4

	// AppName is the application name used for XDG directory paths.
	AppName = "fedsearch"

	// DefaultUserAgent is sent unless a source sets its own.
	DefaultUserAgent = "Mozilla/5.0 (compatible; fedsearch/1.0; +https://github.com/nao1215/fedsearch)"

	// DefaultMaxBodySize limits the response body size read per fetch.
	DefaultMaxBodySize = 5 * 1024 * 1024 // 5MB

	// DefaultTorStartupTimeout is the maximum time to wait for the embedded
	// Tor daemon to bootstrap.
	DefaultTorStartupTimeout = 3 * time.Minute
)

// Config holds all configuration options for a fedsearch run.
// It is populated from CLI flags and the configuration file and passed
// through the application rather than kept in global state.
//
// Design decision: We use a single flat struct instead of nested structs.
// Per-source settings live in SourceConfigs because they are keyed by
// source name.
type Config struct {
	// Query is the search query, built from the positional keywords.
	Query string

	// Sources restricts the search to these source names. Empty means
	// every enabled source.
	Sources []string

	// Timeout bounds each fetch.
	Timeout time.Duration

	// Pages is the number of search pages fetched per source.
	Pages int

	// Results is the number of stage-1 results kept per source. Zero means
	// no limit.
	Results int

	// SearchWorkers is the size of the search pool.
	SearchWorkers int

	// TransferWorkers is the size of the transfer pool.
	TransferWorkers int

	// RateLimit is the per-host request rate. Zero disables the limiter.
	RateLimit float64

	// RateBurst is the per-host burst.
	RateBurst int

	// UserAgent is the default User-Agent header.
	UserAgent string

	// MaxBodySize is the maximum response body size in bytes to read.
	// Set to 0 to use the default (5MB).
	MaxBodySize int64

	// Verbose enables detailed log output using slog.LevelDebug.
	// When false, only warnings and errors are logged.
	Verbose bool

	// ConfigFilePath is the path to the configuration file.
	// If empty, the tool searches for .fedsearch in the current directory
	// and then in the user's home directory.
	ConfigFilePath string

	// SourceConfigs holds the contents of the configuration file.
	SourceConfigs *File

	// JSONReport writes a JSON report at the end of the search.
	// Mutually exclusive with MarkdownReport.
	JSONReport bool

	// MarkdownReport writes a Markdown report at the end of the search.
	// Mutually exclusive with JSONReport.
	MarkdownReport bool

	// XLSXFile, when set, also writes the results to this spreadsheet.
	XLSXFile string

	// ReportFile is the output file path for the report.
	// When set, the report is written to this file instead of stdout.
	ReportFile string

	// ProxyAddress routes fetches through a SOCKS5 proxy in "host:port"
	// format.
	ProxyAddress string

	// UseTor starts an embedded Tor daemon and routes fetches through it.
	UseTor bool

	// TorStartupTimeout is the maximum time to wait for the embedded Tor
	// daemon to start and bootstrap.
	TorStartupTimeout time.Duration

	// DBDir is the directory of the history database.
	// Defaults to XDG data directory (~/.local/share/fedsearch on Linux).
	DBDir string

	// SaveHistory records the search and its results in the database.
	SaveHistory bool

	// CacheDir holds the last fetched domain alias manifest.
	CacheDir string

	// DownloadDir receives transfer payloads.
	DownloadDir string
}

// NewConfig creates a new Config with default values.
//
// Design decision: We use a constructor function instead of relying on
// zero values because many defaults are non-zero. This also serves as
// documentation of what the defaults are.
func NewConfig() *Config {
	return &Config{
		Timeout:           DefaultTimeout,
		Pages:             DefaultPages,
		Results:           DefaultResults,
		SearchWorkers:     DefaultSearchWorkers,
		TransferWorkers:   DefaultTransferWorkers,
		RateLimit:         DefaultRateLimit,
		RateBurst:         DefaultRateBurst,
		UserAgent:         DefaultUserAgent,
		MaxBodySize:       DefaultMaxBodySize,
		TorStartupTimeout: DefaultTorStartupTimeout,
		DBDir:             XDGDataDir(),
		SaveHistory:       true,
		CacheDir:          XDGCacheDir(),
		DownloadDir:       XDGDownloadDir(),
	}
}

// XDGDataDir returns the XDG data directory for fedsearch.
// On Linux: ~/.local/share/fedsearch
// On macOS: ~/Library/Application Support/fedsearch
// On Windows: %LOCALAPPDATA%\fedsearch
func XDGDataDir() string {
	return filepath.Join(xdg.DataHome, AppName)
}

// XDGConfigDir returns the XDG config directory for fedsearch.
// On Linux: ~/.config/fedsearch
func XDGConfigDir() string {
	return filepath.Join(xdg.ConfigHome, AppName)
}

// XDGCacheDir returns the XDG cache directory for fedsearch.
// On Linux: ~/.cache/fedsearch
func XDGCacheDir() string {
	return filepath.Join(xdg.CacheHome, AppName)
}

// XDGDownloadDir returns the directory transfer payloads are saved to,
// a fedsearch folder inside the user's download directory.
func XDGDownloadDir() string {
	return filepath.Join(xdg.UserDirs.Download, AppName)
}

// Validate checks if the configuration is valid.
// It returns the first problem found.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Query) == "" {
		return ErrEmptyQuery
	}
	if c.Timeout <= 0 {
		return ErrInvalidTimeout
	}
	if c.Pages < 1 {
		return ErrInvalidPageBudget
	}
	if c.Results < 0 {
		return ErrInvalidResultBudget
	}
	if c.SearchWorkers < 1 || c.TransferWorkers < 1 {
		return ErrInvalidPoolSize
	}
	if c.RateLimit < 0 || (c.RateLimit > 0 && c.RateBurst < 1) {
		return ErrInvalidRateLimit
	}
	if c.JSONReport && c.MarkdownReport {
		return ErrConflictingReportFormats
	}
	if c.ProxyAddress != "" && c.UseTor {
		return ErrConflictingTransports
	}
	if c.MaxBodySize < 0 {
		return ErrInvalidMaxBodySize
	}
	return nil
}

// ValidateSources checks that every requested source is one of known.
// Names are compared case-insensitively.
func (c *Config) ValidateSources(known []string) error {
	for _, name := range c.Sources {
		n := strings.ToLower(strings.TrimSpace(name))
		if !slices.Contains(known, n) {
			return fmt.Errorf("%w: %q (known: %s)", ErrUnknownSource, name, strings.Join(known, ", "))
		}
	}
	return nil
}
