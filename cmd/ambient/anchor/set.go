package anchorcmder

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

const setLongDesc string = `Store or update an anchor document.

Writing to an existing name replaces the body. The anchor is persisted to
the ledger first and then embedded into the vector store; if embedding
fails the anchor still lands and "ambient anchor reindex" repairs the
vector side later.

Examples:
  ambient anchor set owner "Sam, software engineer in Portland"
  ambient anchor set style "Prefers short answers, no emoji"`

const setShortDesc string = "Store or update an anchor document"

func newSetCmd() *cobra.Command {
	flags := &storageFlags{}

	cmd := &cobra.Command{
		Use:   "set <name> <body>",
		Short: setShortDesc,
		Long:  setLongDesc,
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSet(cmd, args[0], args[1])
		},
	}

	flags.register(cmd)

	return cmd
}

func runSet(cmd *cobra.Command, name, body string) error {
	store, index, log, err := buildIndex(cmd)
	if err != nil {
		return err
	}
	defer store.Close()
	defer log.Sync()

	if err := index.Put(context.Background(), name, body); err != nil {
		return fmt.Errorf("storing anchor: %w", err)
	}

	fmt.Printf("Stored anchor %q (%d chars)\n", name, len(body))
	return nil
}
