package main

import (
	"fmt"
	"io"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/nao1215/fedsearch/internal/config"
	"github.com/nao1215/fedsearch/internal/performer"
	"github.com/nao1215/fedsearch/internal/source"
)

// NewSourcesCmd creates the sources command.
func NewSourcesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sources",
		Short: "List the built-in sources",
		Long: `Sources lists every built-in source with the settings a search would
use: the search stage kind, the domain, whether file lists are scraped,
whether the configuration file enables it, and its page and result
budget.`,
		Args: cobra.NoArgs,
		RunE: runSourcesCmd,
	}

	cmd.Flags().StringP("config", "c", "",
		"Configuration file path (default: .fedsearch in current or home directory)")
	cmd.Flags().IntP("pages", "p", config.DefaultPages, "Base page budget per source")
	cmd.Flags().IntP("results", "r", config.DefaultResults, "Base result budget per source (0 for no limit)")

	return cmd
}

// runSourcesCmd executes the sources command.
func runSourcesCmd(cmd *cobra.Command, _ []string) error {
	var err error
	cfg := config.NewConfig()
	if cfg.ConfigFilePath, err = cmd.Flags().GetString("config"); err != nil {
		return err
	}
	if cfg.Pages, err = cmd.Flags().GetInt("pages"); err != nil {
		return err
	}
	if cfg.Results, err = cmd.Flags().GetInt("results"); err != nil {
		return err
	}
	if cfg.SourceConfigs, err = loadSourceConfigs(cfg.ConfigFilePath); err != nil {
		return err
	}
	return printSources(cfg, newRegistry(cfg), cmd.OutOrStdout())
}

// printSources writes one table row per registered source.
func printSources(cfg *config.Config, reg *source.Registry, out io.Writer) error {
	table := tablewriter.NewWriter(out)
	table.Header("Name", "Kind", "Domain", "Files", "Enabled", "Budget")
	for _, src := range reg.All() {
		enabled := cfg.SourceConfigs.SourceConfig(src.Name).IsEnabled()
		if err := table.Append([]string{
			src.Name,
			performer.KindOf(src.Stage1),
			src.Canonical,
			yesNo(src.Scrape != nil),
			yesNo(enabled),
			budgetString(src.Budget),
		}); err != nil {
			return err
		}
	}
	return table.Render()
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

// budgetString formats a budget as "pages/results".
func budgetString(b performer.Budget) string {
	if b.Results == 0 {
		return fmt.Sprintf("%d/unlimited", b.Pages)
	}
	return fmt.Sprintf("%d/%d", b.Pages, b.Results)
}
