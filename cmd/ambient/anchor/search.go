package anchorcmder

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/ambient/pkg/utils"
)

const searchLongDesc string = `Search anchor documents semantically.

Embeds the query and ranks anchors by vector similarity, the same path
query-driven recall uses.

Examples:
  ambient anchor search "what city does the user live in"
  ambient anchor search -n 3 "formatting rules"`

const searchShortDesc string = "Search anchor documents semantically"

func newSearchCmd() *cobra.Command {
	flags := &storageFlags{}
	var topK int

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: searchShortDesc,
		Long:  searchLongDesc,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSearch(cmd, args[0], topK)
		},
	}

	flags.register(cmd)
	cmd.Flags().IntVarP(&topK, "limit", "n", 5, "Maximum results")

	return cmd
}

func runSearch(cmd *cobra.Command, query string, topK int) error {
	store, index, log, err := buildIndex(cmd)
	if err != nil {
		return err
	}
	defer store.Close()
	defer log.Sync()

	hits, err := index.Search(context.Background(), query, topK)
	if err != nil {
		return fmt.Errorf("searching anchors: %w", err)
	}

	if len(hits) == 0 {
		fmt.Println("No matching anchors.")
		return nil
	}

	for _, hit := range hits {
		fmt.Printf("%.4f  %s  %s\n",
			hit.Score,
			hit.Anchor.Name,
			utils.Truncate(hit.Anchor.Body, 80),
		)
	}

	return nil
}
