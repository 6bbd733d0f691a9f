package historycmder

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

const contextLongDesc string = `Show recent conversation context under a turn budget.

When the unsummarized backlog meets the budget, the newest turns fill it
directly. Otherwise summaries blend in ahead of the backlog, oldest
first, each standing in for roughly fifty turns of spent budget.

Examples:
  ambient history context
  ambient history context --turns 100`

const contextShortDesc string = "Show recent conversation context"

func newContextCmd() *cobra.Command {
	flags := &storageFlags{}
	var turnBudget int

	cmd := &cobra.Command{
		Use:   "context",
		Short: contextShortDesc,
		Long:  contextLongDesc,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runContext(cmd, turnBudget)
		},
	}

	flags.register(cmd)
	cmd.Flags().IntVar(&turnBudget, "turns", 50, "Turn budget for the context window")

	return cmd
}

func runContext(cmd *cobra.Command, turnBudget int) error {
	store, nav, log, err := buildNavigator(cmd)
	if err != nil {
		return err
	}
	defer store.Close()
	defer log.Sync()

	bundle, err := nav.ConversationContext(context.Background(), turnBudget)
	if err != nil {
		return fmt.Errorf("loading context: %w", err)
	}

	if len(bundle.Summaries) == 0 && len(bundle.Turns) == 0 {
		fmt.Println("No history.")
		return nil
	}

	printBundle(bundle)
	return nil
}
