package main

import (
	"context"
	"fmt"
	"io"

	"github.com/dustin/go-humanize"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/nao1215/fedsearch/internal/config"
	"github.com/nao1215/fedsearch/internal/database"
	"github.com/nao1215/fedsearch/internal/model"
	"github.com/nao1215/fedsearch/internal/performer"
)

// NewFilesCmd creates the files command.
func NewFilesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "files <uid>",
		Short: "List the files inside a recorded result",
		Long: `Files reads the file list of a result from an earlier search. The
result is looked up by the 8-digit UID shown in the search output and its
source is asked for the files again, so this works for results found
while file scraping was cut short by a stop or a result budget.

Only confirmed (detailed) results from sources that publish file lists
can be listed; "fedsearch sources" shows which sources do.

Examples:
  fedsearch files 1a2b3c4d`,
		Args: cobra.ExactArgs(1),
		RunE: runFilesCmd,
	}

	cmd.Flags().DurationP("timeout", "t", config.DefaultTimeout,
		"Timeout for each request")
	cmd.Flags().StringP("config", "c", "",
		"Configuration file path (default: .fedsearch in current or home directory)")
	cmd.Flags().StringP("proxy", "x", "",
		"Route requests through a SOCKS5 proxy (e.g., 127.0.0.1:9050)")
	cmd.Flags().String("db-dir", config.XDGDataDir(),
		"Directory of the history database")

	return cmd
}

// runFilesCmd executes the files command.
func runFilesCmd(cmd *cobra.Command, args []string) error {
	uids, err := parseUIDs(args)
	if err != nil {
		return err
	}

	cfg := config.NewConfig()
	if cfg.ConfigFilePath, err = cmd.Flags().GetString("config"); err != nil {
		return err
	}
	if cfg.Timeout, err = cmd.Flags().GetDuration("timeout"); err != nil {
		return err
	}
	if cfg.ProxyAddress, err = cmd.Flags().GetString("proxy"); err != nil {
		return err
	}
	if cfg.DBDir, err = cmd.Flags().GetString("db-dir"); err != nil {
		return err
	}
	if cfg.SourceConfigs, err = loadSourceConfigs(cfg.ConfigFilePath); err != nil {
		return err
	}
	applyFileSettings(cfg)

	logger := newLogger(cmd)
	ctx := cmd.Context()

	db, err := database.Open(cfg.DBDir, database.Options{EnableWAL: true})
	if err != nil {
		return fmt.Errorf("failed to open history database: %w", err)
	}
	defer db.Close()

	rec, err := db.FindResult(ctx, uids[0])
	if err != nil {
		return err
	}
	if rec == nil {
		return fmt.Errorf("no recorded result with uid %08x", uids[0])
	}
	src, ok := newRegistry(cfg).Lookup(rec.Source)
	if !ok {
		return fmt.Errorf("result %08x comes from unknown source %q", rec.UID, rec.Source)
	}

	rt, cleanup, err := newTransport(ctx, cfg, cmd.ErrOrStderr(), logger)
	if err != nil {
		return err
	}
	defer cleanup()

	deps := performer.Deps{
		Fetcher:   newFetcher(cfg, rt, logger),
		Resolver:  newResolver(ctx, cfg, logger),
		Logger:    logger,
		Timeout:   cfg.Timeout,
		UserAgent: cfg.UserAgent,
	}
	return listFiles(ctx, *rec, src, deps, cmd.OutOrStdout())
}

// listFiles scrapes the file list of rec from src and prints it.
func listFiles(ctx context.Context, rec model.Record, src performer.Source, deps performer.Deps, out io.Writer) error {
	if rec.Kind != model.KindDetailed.String() {
		return fmt.Errorf("result %08x is a %s result; only detailed results have file lists", rec.UID, rec.Kind)
	}
	if src.Scrape == nil {
		return fmt.Errorf("source %s does not list files", src.Name)
	}
	det, err := model.NewDetailed(model.DetailedInfo{
		Source:       rec.Source,
		DisplayName:  rec.DisplayName,
		Filename:     rec.Filename,
		Size:         rec.Size,
		CreationTime: rec.CreationTime,
		Hash:         rec.Hash,
		Seeds:        rec.Seeds,
		DetailsURL:   rec.DetailsURL,
		TorrentURL:   rec.TorrentURL,
		DownloadURL:  rec.DownloadURL,
	})
	if err != nil {
		return err
	}

	var files []*model.CrawledFile
	stats := performer.New(src, deps).CrawlResult(ctx, det, func(r model.SearchResult) {
		if f, ok := r.(*model.CrawledFile); ok {
			files = append(files, f)
		}
	})
	if stats.Failed > 0 {
		return fmt.Errorf("failed to read the file list of %s", rec.DisplayName)
	}

	table := tablewriter.NewWriter(out)
	table.Header("Path", "Size")
	for _, f := range files {
		if err := table.Append([]string{f.Path(), humanize.IBytes(uint64(f.Size()))}); err != nil {
			return err
		}
	}
	if err := table.Render(); err != nil {
		return err
	}
	fmt.Fprintf(out, "%d file(s) in %s\n", len(files), rec.DisplayName)
	return nil
}
