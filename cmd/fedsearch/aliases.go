package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/nao1215/fedsearch/internal/config"
	"github.com/nao1215/fedsearch/internal/domainalias"
)

// NewAliasesCmd creates the aliases command.
func NewAliasesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "aliases",
		Short: "Show or refresh the domain alias manifest",
		Long: `Aliases prints the domain each canonical site name currently resolves
to, together with the alias domains known for it.

With --refresh the manifest configured under "manifest:" in the
configuration file is fetched first and cached for later searches. A
signed manifest is only accepted when its signature verifies with the
configured public key.

Examples:
  # Show the cached manifest
  fedsearch aliases

  # Fetch the configured manifest and show it
  fedsearch aliases --refresh`,
		Args: cobra.NoArgs,
		RunE: runAliasesCmd,
	}

	cmd.Flags().Bool("refresh", false, "Fetch the configured manifest before printing")
	cmd.Flags().StringP("config", "c", "",
		"Configuration file path (default: .fedsearch in current or home directory)")
	cmd.Flags().StringP("proxy", "x", "",
		"Route the manifest fetch through a SOCKS5 proxy (e.g., 127.0.0.1:9050)")

	return cmd
}

// runAliasesCmd executes the aliases command.
func runAliasesCmd(cmd *cobra.Command, _ []string) error {
	refresh, err := cmd.Flags().GetBool("refresh")
	if err != nil {
		return err
	}
	cfg := config.NewConfig()
	if cfg.ConfigFilePath, err = cmd.Flags().GetString("config"); err != nil {
		return err
	}
	if cfg.ProxyAddress, err = cmd.Flags().GetString("proxy"); err != nil {
		return err
	}
	if cfg.SourceConfigs, err = loadSourceConfigs(cfg.ConfigFilePath); err != nil {
		return err
	}
	applyFileSettings(cfg)

	logger := newLogger(cmd)
	ctx := cmd.Context()
	r := newResolver(ctx, cfg, logger)

	if refresh {
		if err := refreshResolver(ctx, cfg, cmd.ErrOrStderr(), r, logger); err != nil {
			return err
		}
	}
	return printAliases(r, cmd.OutOrStdout())
}

// refreshResolver fetches the configured manifest into r.
func refreshResolver(ctx context.Context, cfg *config.Config, errOut io.Writer, r *domainalias.Resolver, logger *slog.Logger) error {
	rt, cleanup, err := newTransport(ctx, cfg, errOut, logger)
	if err != nil {
		return err
	}
	defer cleanup()
	if err := refreshAliases(ctx, cfg, newFetcher(cfg, rt, logger), r, logger); err != nil {
		return fmt.Errorf("failed to refresh alias manifest: %w", err)
	}
	return nil
}

// printAliases writes the resolver's current view as a table.
func printAliases(r *domainalias.Resolver, out io.Writer) error {
	m := r.Snapshot()
	fmt.Fprintf(out, "Manifest version %d, updated %s\n\n", m.Version, humanize.Time(m.LastUpdated))

	table := tablewriter.NewWriter(out)
	table.Header("Canonical", "Current", "Aliases")
	for _, canonical := range m.Canonicals() {
		aliases := r.Aliases(canonical)
		list := "-"
		if len(aliases) > 0 {
			list = strings.Join(aliases, ", ")
		}
		if err := table.Append([]string{canonical, r.CurrentDomain(canonical), list}); err != nil {
			return err
		}
	}
	return table.Render()
}
