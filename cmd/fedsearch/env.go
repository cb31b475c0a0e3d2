package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/nao1215/fedsearch/internal/config"
	"github.com/nao1215/fedsearch/internal/domainalias"
	"github.com/nao1215/fedsearch/internal/fetch"
	seclog "github.com/nao1215/fedsearch/internal/log"
	"github.com/nao1215/fedsearch/internal/performer"
	"github.com/nao1215/fedsearch/internal/source"
	"github.com/nao1215/fedsearch/internal/tor"
)

// manifestCacheFile is the name of the cached alias manifest inside the
// XDG cache directory.
const manifestCacheFile = "aliases.yaml"

// errNoManifestSource is returned when neither a manifest URL nor a
// manifest file is configured.
var errNoManifestSource = errors.New("no manifest source configured (set manifest.url and manifest.publicKey, or manifest.file)")

// getVerboseFlag retrieves the verbose flag from the command or its parent.
func getVerboseFlag(cmd *cobra.Command) bool {
	verbose, err := cmd.Flags().GetBool("verbose")
	if err != nil {
		verbose, err = cmd.Root().PersistentFlags().GetBool("verbose")
		if err != nil {
			return false
		}
	}
	return verbose
}

// newLogger returns the masking logger every command uses.
func newLogger(cmd *cobra.Command) *slog.Logger {
	return seclog.NewSecureLogger(cmd.ErrOrStderr(), getVerboseFlag(cmd))
}

// loadSourceConfigs reads the configuration file. An explicitly given path
// must exist; otherwise a missing file yields an empty configuration.
func loadSourceConfigs(path string) (*config.File, error) {
	found := config.FindConfigFile(path)
	switch {
	case found != "":
		cf, err := config.LoadConfigFile(found)
		if err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", found, err)
		}
		return cf, nil
	case path != "":
		return nil, fmt.Errorf("%w: %s", config.ErrConfigNotFound, path)
	default:
		return &config.File{Sources: make(map[string]config.SourceConfig)}, nil
	}
}

// applyFileSettings copies settings that live in the configuration file
// but apply to the whole run.
func applyFileSettings(cfg *config.Config) {
	if cfg.SourceConfigs == nil {
		return
	}
	if dir := cfg.SourceConfigs.DownloadDir; dir != "" {
		cfg.DownloadDir = expandHome(dir)
	}
	if ua := cfg.SourceConfigs.Defaults.UserAgent; ua != "" {
		cfg.UserAgent = ua
	}
}

// expandHome replaces a leading "~/" with the user's home directory.
func expandHome(path string) string {
	if len(path) < 2 || path[:2] != "~/" {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, path[2:])
}

// newTransport returns the round tripper fetches go through: a SOCKS5
// proxy, an embedded Tor daemon, or nil for direct connections. The
// returned cleanup must always be called.
func newTransport(ctx context.Context, cfg *config.Config, out io.Writer, logger *slog.Logger) (http.RoundTripper, func(), error) {
	noop := func() {}

	switch {
	case cfg.ProxyAddress != "":
		p, err := tor.NewProxy(cfg.ProxyAddress)
		if err != nil {
			return nil, noop, err
		}
		if status := p.CheckConnection(ctx); status != tor.StatusOK {
			return nil, noop, fmt.Errorf("proxy check failed: %w (make sure a SOCKS5 proxy is running at %s)",
				status.Err(), cfg.ProxyAddress)
		}
		logger.Info("SOCKS5 proxy connection verified", "address", cfg.ProxyAddress)
		return p.Transport(), noop, nil

	case cfg.UseTor:
		fmt.Fprintln(out, "Starting embedded Tor daemon...")
		fmt.Fprintf(out, "This may take 1-3 minutes while Tor bootstraps and connects to the network.\n\n")

		embedded := tor.NewEmbeddedTor(tor.WithStartupTimeout(cfg.TorStartupTimeout))
		if err := embedded.Start(ctx); err != nil {
			return nil, noop, fmt.Errorf("failed to start embedded Tor: %w", err)
		}
		stop := func() {
			logger.Info("stopping embedded Tor daemon")
			if err := embedded.Stop(); err != nil {
				logger.Error("failed to stop embedded Tor", "error", err)
			}
		}
		p, err := embedded.Proxy()
		if err != nil {
			stop()
			return nil, noop, err
		}
		if status := p.CheckConnection(ctx); status != tor.StatusOK {
			stop()
			return nil, noop, fmt.Errorf("embedded Tor proxy check failed: %w", status.Err())
		}
		logger.Info("embedded Tor daemon started", "socksAddr", embedded.SocksAddr())
		return p.Transport(), stop, nil
	}
	return nil, noop, nil
}

// newFetcher builds the HTTP fetcher from the configuration.
func newFetcher(cfg *config.Config, rt http.RoundTripper, logger *slog.Logger) *fetch.Client {
	opts := []fetch.Option{
		fetch.WithUserAgent(cfg.UserAgent),
		fetch.WithTimeout(cfg.Timeout),
		fetch.WithRateLimit(cfg.RateLimit, cfg.RateBurst),
		fetch.WithLogger(logger),
	}
	if cfg.MaxBodySize > 0 {
		opts = append(opts, fetch.WithMaxBodySize(cfg.MaxBodySize))
	}
	if rt != nil {
		opts = append(opts, fetch.WithTransport(rt))
	}
	return fetch.NewClient(opts...)
}

// manifestCachePath returns where the last refreshed manifest is kept.
func manifestCachePath(cfg *config.Config) string {
	return filepath.Join(cfg.CacheDir, manifestCacheFile)
}

// newResolver returns a resolver seeded with the built-in manifest and,
// when present, the cached one.
func newResolver(ctx context.Context, cfg *config.Config, logger *slog.Logger) *domainalias.Resolver {
	r := domainalias.NewResolver(domainalias.DefaultManifest(time.Now()))
	cache := manifestCachePath(cfg)
	if _, err := os.Stat(cache); err == nil {
		_ = domainalias.Refresh(ctx, domainalias.FileFetcher{Path: cache}, r, logger) //nolint:errcheck // logged, defaults stay
	}
	return r
}

// manifestFetcher returns the configured manifest source.
func manifestFetcher(mc config.ManifestConfig, f fetch.Fetcher) (domainalias.Fetcher, error) {
	switch {
	case mc.URL != "":
		key, err := mc.Key()
		if err != nil {
			return nil, err
		}
		return domainalias.NewSignedFetcher(mc.URL, key, f)
	case mc.File != "":
		return domainalias.FileFetcher{Path: expandHome(mc.File)}, nil
	default:
		return nil, errNoManifestSource
	}
}

// refreshAliases loads the configured manifest into r and caches it.
// A failure leaves r unchanged.
func refreshAliases(ctx context.Context, cfg *config.Config, f fetch.Fetcher, r *domainalias.Resolver, logger *slog.Logger) error {
	var mc config.ManifestConfig
	if cfg.SourceConfigs != nil {
		mc = cfg.SourceConfigs.Manifest
	}
	mf, err := manifestFetcher(mc, f)
	if err != nil {
		return err
	}
	if err := domainalias.Refresh(ctx, mf, r, logger); err != nil {
		return err
	}
	if err := domainalias.WriteFile(manifestCachePath(cfg), r.Snapshot()); err != nil {
		logger.Warn("failed to cache alias manifest", "error", err)
	}
	return nil
}

// toOverrides converts a configuration file entry into performer overrides.
func toOverrides(sc config.SourceConfig) performer.Overrides {
	return performer.Overrides{
		Domain:    sc.Domain,
		Cookie:    sc.Cookie,
		Headers:   sc.Headers,
		UserAgent: sc.UserAgent,
		Pages:     sc.Pages,
		Results:   sc.Results,
	}
}

// newRegistry returns the built-in sources with the configuration file
// applied. Every source starts from the run's page and result budget, and
// per-source entries in the file override it.
func newRegistry(cfg *config.Config) *source.Registry {
	cf := cfg.SourceConfigs
	if cf == nil {
		cf = &config.File{}
	}
	reg := source.Default(source.Settings{
		SoundcloudClientID: cf.SourceConfig(source.Soundcloud).ClientID,
	})
	for _, src := range reg.All() {
		src.Budget = performer.Budget{Pages: cfg.Pages, Results: cfg.Results}
		reg.Replace(src.With(toOverrides(cf.SourceConfig(src.Name))))
	}
	return reg
}

// selectSources returns the sources to search. Named sources are used
// as given, even when the file disables them; otherwise every enabled
// source is used.
func selectSources(cfg *config.Config, reg *source.Registry) ([]performer.Source, error) {
	if err := cfg.ValidateSources(reg.Names()); err != nil {
		return nil, err
	}
	if len(cfg.Sources) > 0 {
		return reg.Select(cfg.Sources)
	}

	var out []performer.Source
	for _, src := range reg.All() {
		if cfg.SourceConfigs != nil && !cfg.SourceConfigs.SourceConfig(src.Name).IsEnabled() {
			continue
		}
		out = append(out, src)
	}
	if len(out) == 0 {
		return nil, errors.New("every source is disabled in the configuration file")
	}
	return out, nil
}
