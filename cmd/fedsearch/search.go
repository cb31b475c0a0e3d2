package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/nao1215/fedsearch/internal/config"
	"github.com/nao1215/fedsearch/internal/database"
	"github.com/nao1215/fedsearch/internal/domainalias"
	"github.com/nao1215/fedsearch/internal/fetch"
	"github.com/nao1215/fedsearch/internal/model"
	"github.com/nao1215/fedsearch/internal/performer"
	"github.com/nao1215/fedsearch/internal/report"
	"github.com/nao1215/fedsearch/internal/session"
	"github.com/nao1215/fedsearch/internal/transfer"
	"github.com/nao1215/fedsearch/internal/workpool"
)

// NewSearchCmd creates the search command.
func NewSearchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "search <keywords...>",
		Short: "Search every enabled source for the given keywords",
		Long: `Search sends the keywords to every enabled source in parallel.

Results are printed as they arrive:
- Preliminary rows from a search page are marked "(pending)"
- Confirmed items show size, seeds and age
- Files found inside an item are listed under it

Press Ctrl+C to stop the search; the results found so far are kept.

Examples:
  # Search every enabled source
  fedsearch search debian netinst

  # Search two sources, two pages each, without a result limit
  fedsearch search -s kat,bitsnoop -p 2 -r 0 ubuntu

  # Write a Markdown report and a spreadsheet
  fedsearch search --markdown -o ubuntu.md --xlsx ubuntu.xlsx ubuntu

  # Route every request through a running Tor daemon
  fedsearch search --proxy 127.0.0.1:9050 ubuntu

  # Save every confirmed item to the download directory
  fedsearch search --save ubuntu`,
		Args: cobra.MinimumNArgs(1),
		RunE: runSearchCmd,
	}

	cmd.Flags().StringSliceP("sources", "s", nil,
		"Comma separated list of sources to search (default: every enabled source)")
	cmd.Flags().IntP("pages", "p", config.DefaultPages,
		"Number of search pages fetched per source")
	cmd.Flags().IntP("results", "r", config.DefaultResults,
		"Number of first-stage results kept per source (0 for no limit)")
	cmd.Flags().DurationP("timeout", "t", config.DefaultTimeout,
		"Timeout for each request")
	cmd.Flags().Int("search-workers", config.DefaultSearchWorkers,
		"Number of concurrent search requests across all sources")
	cmd.Flags().Int("transfer-workers", config.DefaultTransferWorkers,
		"Number of concurrent transfers started by --save")
	cmd.Flags().Float64("rate-limit", config.DefaultRateLimit,
		"Requests per second sent to one host (0 to disable)")

	cmd.Flags().StringP("config", "c", "",
		"Configuration file path (default: .fedsearch in current or home directory)")

	cmd.Flags().BoolP("json", "j", false,
		"Output JSON report (mutually exclusive with --markdown)")
	cmd.Flags().BoolP("markdown", "m", false,
		"Output Markdown report (mutually exclusive with --json)")
	cmd.Flags().String("xlsx", "",
		"Also write the results to this Excel file")
	cmd.Flags().StringP("output", "o", "",
		"Write report to specified file path (creates directories if needed)")

	cmd.Flags().StringP("proxy", "x", "",
		"Route requests through a SOCKS5 proxy (e.g., 127.0.0.1:9050)")
	cmd.Flags().Bool("tor", false,
		"Start an embedded Tor daemon and route requests through it")
	cmd.Flags().DurationP("tor-timeout", "T", config.DefaultTorStartupTimeout,
		"Timeout for embedded Tor startup")

	cmd.Flags().Bool("no-history", false,
		"Do not record this search in the history database")
	cmd.Flags().String("db-dir", config.XDGDataDir(),
		"Directory of the history database")
	cmd.Flags().Bool("save", false,
		"Hand every confirmed result to the download directory")

	return cmd
}

// runSearchCmd executes the search command.
func runSearchCmd(cmd *cobra.Command, args []string) error {
	cfg, err := buildSearchConfig(cmd, args)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	logger := newLogger(cmd)
	slog.SetDefault(logger)

	save, err := cmd.Flags().GetBool("save")
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	interrupt := make(chan os.Signal, 2)
	signal.Notify(interrupt, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(interrupt)

	rt, cleanup, err := newTransport(ctx, cfg, cmd.ErrOrStderr(), logger)
	if err != nil {
		return err
	}
	defer cleanup()

	fetcher := newFetcher(cfg, rt, logger)
	resolver := newResolver(ctx, cfg, logger)
	if mc := cfg.SourceConfigs.Manifest; mc.URL != "" || mc.File != "" {
		if err := refreshAliases(ctx, cfg, fetcher, resolver, logger); err != nil {
			logger.Warn("using cached domain aliases", "error", err)
		}
		if mc.File != "" {
			go func() {
				if err := domainalias.Watch(ctx, expandHome(mc.File), resolver, logger); err != nil {
					logger.Warn("manifest watcher stopped", "error", err)
				}
			}()
		}
	}

	sources, err := selectSources(cfg, newRegistry(cfg))
	if err != nil {
		return err
	}

	env := searchEnv{
		fetcher:  fetcher,
		resolver: resolver,
		sources:  sources,
		logger:   logger,
		out:      cmd.OutOrStdout(),
		errOut:   cmd.ErrOrStderr(),
		color:    cmd.OutOrStdout() == os.Stdout && !color.NoColor,
	}
	if cfg.SaveHistory {
		db, err := database.Open(cfg.DBDir, database.DefaultOptions())
		if err != nil {
			return fmt.Errorf("failed to open history database: %w", err)
		}
		defer db.Close()
		env.history = db
	}
	if save {
		env.engine = transfer.NewDirEngine(cfg.DownloadDir)
	}

	_, err = runSearch(ctx, cfg, env, interrupt)
	return err
}

// buildSearchConfig creates a Config from cobra command flags.
func buildSearchConfig(cmd *cobra.Command, args []string) (*config.Config, error) {
	cfg := config.NewConfig()
	cfg.Query = strings.Join(args, " ")
	cfg.Verbose = getVerboseFlag(cmd)

	var err error
	if cfg.Sources, err = cmd.Flags().GetStringSlice("sources"); err != nil {
		return nil, err
	}
	if cfg.Pages, err = cmd.Flags().GetInt("pages"); err != nil {
		return nil, err
	}
	if cfg.Results, err = cmd.Flags().GetInt("results"); err != nil {
		return nil, err
	}
	if cfg.Timeout, err = cmd.Flags().GetDuration("timeout"); err != nil {
		return nil, err
	}
	if cfg.SearchWorkers, err = cmd.Flags().GetInt("search-workers"); err != nil {
		return nil, err
	}
	if cfg.TransferWorkers, err = cmd.Flags().GetInt("transfer-workers"); err != nil {
		return nil, err
	}
	if cfg.RateLimit, err = cmd.Flags().GetFloat64("rate-limit"); err != nil {
		return nil, err
	}
	if cfg.ConfigFilePath, err = cmd.Flags().GetString("config"); err != nil {
		return nil, err
	}
	if cfg.JSONReport, err = cmd.Flags().GetBool("json"); err != nil {
		return nil, err
	}
	if cfg.MarkdownReport, err = cmd.Flags().GetBool("markdown"); err != nil {
		return nil, err
	}
	if cfg.XLSXFile, err = cmd.Flags().GetString("xlsx"); err != nil {
		return nil, err
	}
	if cfg.ReportFile, err = cmd.Flags().GetString("output"); err != nil {
		return nil, err
	}
	if cfg.ProxyAddress, err = cmd.Flags().GetString("proxy"); err != nil {
		return nil, err
	}
	if cfg.UseTor, err = cmd.Flags().GetBool("tor"); err != nil {
		return nil, err
	}
	if cfg.TorStartupTimeout, err = cmd.Flags().GetDuration("tor-timeout"); err != nil {
		return nil, err
	}
	if cfg.DBDir, err = cmd.Flags().GetString("db-dir"); err != nil {
		return nil, err
	}
	noHistory, err := cmd.Flags().GetBool("no-history")
	if err != nil {
		return nil, err
	}
	cfg.SaveHistory = !noHistory

	if cfg.SourceConfigs, err = loadSourceConfigs(cfg.ConfigFilePath); err != nil {
		return nil, err
	}
	applyFileSettings(cfg)

	return cfg, nil
}

// searchEnv holds the collaborators of one search run.
type searchEnv struct {
	fetcher  fetch.Fetcher
	resolver *domainalias.Resolver
	sources  []performer.Source

	// history records the search. Nil disables recording.
	history *database.HistoryDB

	// engine receives every confirmed result once the search completes.
	// Nil disables saving.
	engine transfer.Engine

	logger *slog.Logger
	out    io.Writer
	errOut io.Writer
	color  bool
}

// runSearch runs one search to completion and writes its report. The
// first value received on interrupt stops the search and lets in-flight
// fetches finish; a second one aborts them.
func runSearch(ctx context.Context, cfg *config.Config, env searchEnv, interrupt <-chan os.Signal) (*report.Report, error) {
	manager := session.NewManager(env.sources,
		performer.Deps{
			Fetcher:   env.fetcher,
			Resolver:  env.resolver,
			Logger:    env.logger,
			Timeout:   cfg.Timeout,
			UserAgent: cfg.UserAgent,
		},
		session.WithSearchPool(workpool.New("search", cfg.SearchWorkers)),
		session.WithTransferPool(workpool.New("transfer", cfg.TransferWorkers)),
		session.WithLogger(env.logger),
	)

	streaming := !cfg.JSONReport && !cfg.MarkdownReport && cfg.ReportFile == ""
	simple := report.NewSimpleWriter(env.out,
		report.WithVerbose(cfg.Verbose),
		report.WithColor(env.color),
	)
	recorder := newHistoryRecorder(context.WithoutCancel(ctx), env.history, cfg.Query, env.logger)

	var records []model.Record
	started := time.Now()
	searchCtx, abort := context.WithCancel(ctx)
	defer abort()
	sess, err := manager.Search(searchCtx, cfg.Query, func(sig model.Signal) {
		recorder.handle(sig)
		if sig.Kind == model.SignalEnd {
			return
		}
		rec := model.ToRecord(sig.Result)
		records = append(records, rec)
		if streaming {
			if _, err := simple.WriteOne(rec); err != nil {
				env.logger.Warn("failed to print result", "error", err)
			}
		}
	})
	if err != nil {
		return nil, err
	}

	if streaming {
		fmt.Fprintf(env.errOut, "Searching %s for %q...\n", strings.Join(manager.Sources(), ", "), cfg.Query)
	}

	finished := make(chan error, 1)
	go func() {
		finished <- sess.Wait(context.WithoutCancel(ctx))
	}()

	stopped := false
wait:
	for {
		select {
		case err := <-finished:
			if err != nil {
				return nil, err
			}
			break wait
		case <-interrupt:
			if !stopped {
				fmt.Fprintln(env.errOut, "\nStopping search... (press Ctrl-C again to abort pending requests)")
				stopped = true
				sess.Stop()
				continue
			}
			fmt.Fprintln(env.errOut, "Aborting pending requests...")
			abort()
		}
	}

	rep := report.NewReport(cfg.Query, records)
	rep.Date = started
	rep.Stopped = stopped
	rep.SearchID = recorder.searchID()

	if streaming {
		if _, err := simple.WriteSummary(rep); err != nil {
			return rep, err
		}
		fmt.Fprintf(env.errOut, "Search finished in %s\n", time.Since(started).Round(time.Millisecond))
	} else if err := outputReport(cfg, rep, env.out); err != nil {
		return rep, err
	}

	if cfg.XLSXFile != "" {
		if err := writeXLSX(cfg.XLSXFile, rep); err != nil {
			return rep, err
		}
	}

	if env.engine != nil && !stopped {
		d := transfer.NewDispatcher(env.engine, manager.TransferPool(),
			transfer.WithFetcher(env.fetcher),
			transfer.WithUserAgent(cfg.UserAgent),
			transfer.WithLogger(env.logger),
		)
		if err := saveResults(ctx, d, records, env.errOut); err != nil {
			return rep, err
		}
	}
	return rep, nil
}

// historyRecorder writes one search and its results to the history
// database. It is driven from the session listener, so calls never overlap.
type historyRecorder struct {
	ctx    context.Context
	db     *database.HistoryDB
	query  string
	logger *slog.Logger

	search *database.Search
	count  int
	failed bool
}

func newHistoryRecorder(ctx context.Context, db *database.HistoryDB, query string, logger *slog.Logger) *historyRecorder {
	return &historyRecorder{ctx: ctx, db: db, query: query, logger: logger}
}

// handle records sig. The search row is created with the first signal,
// which carries the session token.
func (h *historyRecorder) handle(sig model.Signal) {
	if h.db == nil || h.failed {
		return
	}
	if h.search == nil {
		s, err := h.db.CreateSearch(h.ctx, sig.Token, h.query)
		if err != nil {
			h.logger.Warn("search history disabled", "error", err)
			h.failed = true
			return
		}
		h.search = &s
	}

	switch sig.Kind {
	case model.SignalResult:
		if err := h.db.SaveResult(h.ctx, h.search.ID, model.ToRecord(sig.Result)); err != nil {
			h.logger.Warn("failed to record result", "uid", sig.Result.UID(), "error", err)
			return
		}
		h.count++
	case model.SignalEnd:
		if err := h.db.FinishSearch(h.ctx, h.search.ID, h.count); err != nil {
			h.logger.Warn("failed to finish search history", "error", err)
		}
	}
}

// searchID returns the history ID, or "" when nothing was recorded.
func (h *historyRecorder) searchID() string {
	if h.search == nil {
		return ""
	}
	return h.search.ID
}

// outputReport writes the report in the requested format to the report
// file or to stdout.
func outputReport(cfg *config.Config, rep *report.Report, stdout io.Writer) error {
	output := stdout
	if cfg.ReportFile != "" {
		f, err := createReportFile(cfg.ReportFile)
		if err != nil {
			return err
		}
		defer f.Close()
		output = f
	}

	var w report.Writer
	switch {
	case cfg.JSONReport:
		w = report.NewJSONWriter(output, report.WithPrettyPrint(), report.WithVersion(getVersion()))
	case cfg.MarkdownReport:
		w = report.NewMarkdownWriter(output)
	default:
		w = report.NewSimpleWriter(output, report.WithVerbose(cfg.Verbose))
	}
	_, err := w.Write(rep)
	return err
}

// createReportFile creates path and its parent directories. Reports may
// carry links with API keys, so the file is only readable by its owner.
func createReportFile(path string) (*os.File, error) {
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, fmt.Errorf("failed to create output directory: %w", err)
		}
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600) //nolint:gosec // user-provided output path
	if err != nil {
		return nil, fmt.Errorf("failed to create output file: %w", err)
	}
	return f, nil
}

// writeXLSX writes rep to an Excel file at path.
func writeXLSX(path string, rep *report.Report) error {
	f, err := createReportFile(path)
	if err != nil {
		return err
	}
	if _, err := report.NewXLSXWriter(f).Write(rep); err != nil {
		_ = f.Close() //nolint:errcheck // the write error is more useful
		return err
	}
	return f.Close()
}

// saveResults hands every confirmed result to d. Transfers run in
// parallel, bounded by the dispatcher's pool.
func saveResults(ctx context.Context, d *transfer.Dispatcher, records []model.Record, out io.Writer) error {
	var payloads []transfer.Payload
	for _, rec := range records {
		if rec.Kind != model.KindDetailed.String() {
			continue
		}
		p, err := transfer.PayloadForRecord(rec)
		if errors.Is(err, transfer.ErrNotTransferable) {
			continue
		}
		if err != nil {
			return err
		}
		payloads = append(payloads, p)
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, p := range payloads {
		g.Go(func() error {
			return d.Dispatch(gctx, p)
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	if len(payloads) > 0 {
		fmt.Fprintf(out, "Saved %d transfer(s)\n", len(payloads))
	}
	return nil
}
