package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/nao1215/fedsearch/internal/config"
	"github.com/nao1215/fedsearch/internal/database"
	"github.com/nao1215/fedsearch/internal/fetch"
	"github.com/nao1215/fedsearch/internal/transfer"
	"github.com/nao1215/fedsearch/internal/workpool"
)

// NewGetCmd creates the get command.
func NewGetCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "get <uid>...",
		Short: "Save recorded results to the download directory",
		Long: `Get looks up results from earlier searches by the 8-digit UID shown in
the search output and saves them for a download client:

- A .torrent file is downloaded and saved as is
- A magnet link is saved as a .magnet file
- A direct download link is saved as a .url shortcut

For a file found inside a torrent, the torrent is saved together with a
.files list naming that file.

Examples:
  # Save one result
  fedsearch get 1a2b3c4d

  # Save several results into a custom directory
  fedsearch get -d ~/torrents 1a2b3c4d 5e6f7a8b`,
		Args: cobra.MinimumNArgs(1),
		RunE: runGetCmd,
	}

	cmd.Flags().StringP("dir", "d", "",
		"Directory to save to (default: the configured download directory)")
	cmd.Flags().Bool("no-fetch", false,
		"Save .torrent links as .url shortcuts instead of downloading them")
	cmd.Flags().Int("transfer-workers", config.DefaultTransferWorkers,
		"Number of concurrent transfers")
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

// runGetCmd executes the get command.
func runGetCmd(cmd *cobra.Command, args []string) error {
	uids, err := parseUIDs(args)
	if err != nil {
		return err
	}

	cfg := config.NewConfig()
	if cfg.ConfigFilePath, err = cmd.Flags().GetString("config"); err != nil {
		return err
	}
	if cfg.SourceConfigs, err = loadSourceConfigs(cfg.ConfigFilePath); err != nil {
		return err
	}
	applyFileSettings(cfg)

	dir, err := cmd.Flags().GetString("dir")
	if err != nil {
		return err
	}
	if dir != "" {
		cfg.DownloadDir = expandHome(dir)
	}
	noFetch, err := cmd.Flags().GetBool("no-fetch")
	if err != nil {
		return err
	}
	if cfg.TransferWorkers, err = cmd.Flags().GetInt("transfer-workers"); err != nil {
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
	if cfg.TransferWorkers < 1 {
		return config.ErrInvalidPoolSize
	}

	logger := newLogger(cmd)
	ctx := cmd.Context()

	db, err := database.Open(cfg.DBDir, database.Options{EnableWAL: true})
	if err != nil {
		return fmt.Errorf("failed to open history database: %w", err)
	}
	defer db.Close()

	var fetcher fetch.Fetcher
	if !noFetch {
		rt, cleanup, err := newTransport(ctx, cfg, cmd.ErrOrStderr(), logger)
		if err != nil {
			return err
		}
		defer cleanup()
		fetcher = newFetcher(cfg, rt, logger)
	}

	d := newGetDispatcher(cfg, fetcher, logger)
	return getResults(ctx, db, d, uids, cmd.OutOrStdout())
}

// parseUIDs parses the hexadecimal UIDs printed by the search output.
func parseUIDs(args []string) ([]uint32, error) {
	out := make([]uint32, 0, len(args))
	for _, arg := range args {
		s := strings.TrimPrefix(strings.ToLower(strings.TrimSpace(arg)), "0x")
		v, err := strconv.ParseUint(s, 16, 32)
		if err != nil {
			return nil, fmt.Errorf("invalid uid %q: expected up to 8 hexadecimal digits", arg)
		}
		out = append(out, uint32(v))
	}
	return out, nil
}

// newGetDispatcher returns a dispatcher saving into cfg.DownloadDir.
// A nil fetcher passes .torrent links through as shortcuts.
func newGetDispatcher(cfg *config.Config, f fetch.Fetcher, logger *slog.Logger) *transfer.Dispatcher {
	opts := []transfer.DispatcherOption{
		transfer.WithUserAgent(cfg.UserAgent),
		transfer.WithLogger(logger),
	}
	if f != nil {
		opts = append(opts, transfer.WithFetcher(f))
	}
	return transfer.NewDispatcher(
		transfer.NewDirEngine(cfg.DownloadDir),
		workpool.New("transfer", cfg.TransferWorkers),
		opts...,
	)
}

// getResults looks every uid up and dispatches its payload. All lookups
// happen before any transfer starts, so an unknown uid saves nothing.
func getResults(ctx context.Context, db *database.HistoryDB, d *transfer.Dispatcher, uids []uint32, out io.Writer) error {
	payloads := make([]transfer.Payload, 0, len(uids))
	for _, uid := range uids {
		rec, err := db.FindResult(ctx, uid)
		if err != nil {
			return err
		}
		if rec == nil {
			return fmt.Errorf("no recorded result with uid %08x", uid)
		}
		p, err := transfer.PayloadForRecord(*rec)
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
	for _, p := range payloads {
		fmt.Fprintf(out, "Saved %s (%s)\n", p.Name, p.Kind)
	}
	return nil
}
