package anchorcmder

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

const reindexLongDesc string = `Re-embed every anchor document.

Walks the anchor table and rewrites each vector store entry with a fresh
embedding. Run this after changing the embedding model or to repair
anchors whose embedding failed at write time.

Examples:
  ambient anchor reindex
  ambient anchor reindex --embedding-model nomic-embed-text`

const reindexShortDesc string = "Re-embed every anchor document"

func newReindexCmd() *cobra.Command {
	flags := &storageFlags{}

	cmd := &cobra.Command{
		Use:   "reindex",
		Short: reindexShortDesc,
		Long:  reindexLongDesc,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runReindex(cmd)
		},
	}

	flags.register(cmd)

	return cmd
}

func runReindex(cmd *cobra.Command) error {
	store, index, log, err := buildIndex(cmd)
	if err != nil {
		return err
	}
	defer store.Close()
	defer log.Sync()

	count, err := index.Reindex(context.Background())
	if err != nil {
		return fmt.Errorf("reindexing anchors: %w", err)
	}

	fmt.Printf("Reindexed %d anchors\n", count)
	return nil
}
