package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/nao1215/fedsearch/internal/config"
	"github.com/nao1215/fedsearch/internal/database"
	"github.com/nao1215/fedsearch/internal/report"
)

// NewHistoryCmd creates the history command.
func NewHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history [search-id]",
		Short: "List recorded searches or show the results of one",
		Long: `History reads the local search history.

Without arguments it lists the most recent searches. With a search ID it
prints the results that search delivered, in the same formats as the
search command.

Examples:
  # List the last 20 searches
  fedsearch history

  # Show the results of one search as JSON
  fedsearch history --json 0b7e4a5c-...`,
		Args: cobra.MaximumNArgs(1),
		RunE: runHistoryCmd,
	}

	cmd.Flags().IntP("limit", "n", 20, "Number of searches to list (0 for all)")
	cmd.Flags().BoolP("json", "j", false, "Output JSON report (mutually exclusive with --markdown)")
	cmd.Flags().BoolP("markdown", "m", false, "Output Markdown report (mutually exclusive with --json)")
	cmd.Flags().StringP("output", "o", "", "Write report to specified file path")
	cmd.Flags().String("db-dir", config.XDGDataDir(), "Directory of the history database")

	return cmd
}

// runHistoryCmd executes the history command.
func runHistoryCmd(cmd *cobra.Command, args []string) error {
	limit, err := cmd.Flags().GetInt("limit")
	if err != nil {
		return err
	}
	cfg := config.NewConfig()
	cfg.Verbose = getVerboseFlag(cmd)
	if cfg.JSONReport, err = cmd.Flags().GetBool("json"); err != nil {
		return err
	}
	if cfg.MarkdownReport, err = cmd.Flags().GetBool("markdown"); err != nil {
		return err
	}
	if cfg.ReportFile, err = cmd.Flags().GetString("output"); err != nil {
		return err
	}
	if cfg.DBDir, err = cmd.Flags().GetString("db-dir"); err != nil {
		return err
	}
	if cfg.JSONReport && cfg.MarkdownReport {
		return config.ErrConflictingReportFormats
	}

	db, err := database.Open(cfg.DBDir, database.Options{EnableWAL: true})
	if err != nil {
		if errors.Is(err, database.ErrDatabaseNotFound) {
			fmt.Fprintln(cmd.OutOrStdout(), "No searches recorded yet.")
			return nil
		}
		return fmt.Errorf("failed to open history database: %w", err)
	}
	defer db.Close()

	if len(args) == 0 {
		return listSearches(cmd.Context(), db, limit, cmd.OutOrStdout())
	}
	return showSearch(cmd.Context(), db, args[0], cfg, cmd.OutOrStdout())
}

// listSearches prints the most recent searches as a table.
func listSearches(ctx context.Context, db *database.HistoryDB, limit int, out io.Writer) error {
	searches, err := db.ListSearches(ctx, limit)
	if err != nil {
		return err
	}
	if len(searches) == 0 {
		fmt.Fprintln(out, "No searches recorded yet.")
		return nil
	}

	table := tablewriter.NewWriter(out)
	table.Header("ID", "Query", "Started", "Results", "Status")
	for _, s := range searches {
		if err := table.Append([]string{
			s.ID,
			s.Query,
			humanize.Time(s.StartedAt),
			fmt.Sprint(s.ResultCount),
			searchStatus(s),
		}); err != nil {
			return err
		}
	}
	return table.Render()
}

// searchStatus describes how a recorded search ended.
func searchStatus(s database.Search) string {
	if s.FinishedAt.IsZero() {
		return "incomplete"
	}
	return "done in " + s.FinishedAt.Sub(s.StartedAt).Round(time.Millisecond).String()
}

// showSearch writes the results of one recorded search.
func showSearch(ctx context.Context, db *database.HistoryDB, id string, cfg *config.Config, out io.Writer) error {
	s, err := db.GetSearch(ctx, id)
	if err != nil {
		return err
	}
	records, err := db.Results(ctx, id)
	if err != nil {
		return err
	}

	rep := report.NewReport(s.Query, records)
	rep.SearchID = s.ID
	rep.Date = s.StartedAt
	rep.Stopped = s.FinishedAt.IsZero()
	return outputReport(cfg, rep, out)
}
