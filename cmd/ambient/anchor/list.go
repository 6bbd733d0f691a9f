package anchorcmder

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/ambient/pkg/utils"
)

const listLongDesc string = `List recent anchor documents.

Anchors are ordered by most recent update. The body is truncated for
display; use "ambient recall" to see anchors as the agent would.

Examples:
  ambient anchor list
  ambient anchor list -n 20`

const listShortDesc string = "List recent anchor documents"

func newListCmd() *cobra.Command {
	flags := &storageFlags{}
	var limit int

	cmd := &cobra.Command{
		Use:   "list",
		Short: listShortDesc,
		Long:  listLongDesc,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runList(cmd, limit)
		},
	}

	flags.register(cmd)
	cmd.Flags().IntVarP(&limit, "limit", "n", 10, "Maximum anchors to list")

	return cmd
}

func runList(cmd *cobra.Command, limit int) error {
	store, index, log, err := buildIndex(cmd)
	if err != nil {
		return err
	}
	defer store.Close()
	defer log.Sync()

	recent, err := index.Recent(context.Background(), limit)
	if err != nil {
		return fmt.Errorf("listing anchors: %w", err)
	}

	if len(recent) == 0 {
		fmt.Println("No anchors stored.")
		return nil
	}

	for _, anchor := range recent {
		fmt.Printf("%s  %s  %s\n",
			anchor.UpdatedAt.Format("2006-01-02 15:04"),
			anchor.Name,
			utils.Truncate(anchor.Body, 80),
		)
	}

	return nil
}
