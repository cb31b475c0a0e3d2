package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// NewRootCmd creates the root command for fedsearch.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "fedsearch",
		Short: "Federated search across torrent indexes and media sources",
		Long: `fedsearch queries several content sources in parallel and merges their
results into one stream.

Each source is searched in up to three stages: the search page, the
details page of every row, and the file list of every confirmed item.
Results are printed as soon as a stage produces them.

Searches and their results are recorded in a local history database so
that a result can be handed to the download directory later with
"fedsearch get <uid>".`,
		Version:       getVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose logging")

	cmd.AddCommand(NewSearchCmd())
	cmd.AddCommand(NewHistoryCmd())
	cmd.AddCommand(NewGetCmd())
	cmd.AddCommand(NewFilesCmd())
	cmd.AddCommand(NewAliasesCmd())
	cmd.AddCommand(NewSourcesCmd())
	cmd.AddCommand(NewInitCmd())
	cmd.AddCommand(NewVersionCmd())

	return cmd
}

// Execute runs the root command.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
