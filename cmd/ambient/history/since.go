package historycmder

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

const sinceLongDesc string = `Show turns strictly after a moment.

With --summaries, summaries whose span ends after the timestamp are
included ahead of the turns, oldest first.

Examples:
  ambient history since 2026-08-29T00:00:00Z
  ambient history since 2026-08-29T00:00:00Z --summaries -n 100`

const sinceShortDesc string = "Show turns strictly after a moment"

func newSinceCmd() *cobra.Command {
	flags := &storageFlags{}
	var (
		includeSummaries bool
		limit            int
	)

	cmd := &cobra.Command{
		Use:   "since <timestamp>",
		Short: sinceShortDesc,
		Long:  sinceLongDesc,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSince(cmd, args[0], includeSummaries, limit)
		},
	}

	flags.register(cmd)
	cmd.Flags().BoolVar(&includeSummaries, "summaries", false, "Include summaries ending after the timestamp")
	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "Maximum turns (0 = unlimited)")

	return cmd
}

func runSince(cmd *cobra.Command, timestamp string, includeSummaries bool, limit int) error {
	store, nav, log, err := buildNavigator(cmd)
	if err != nil {
		return err
	}
	defer store.Close()
	defer log.Sync()

	bundle, err := nav.TurnsSince(context.Background(), timestamp, includeSummaries, limit)
	if err != nil {
		return fmt.Errorf("loading turns: %w", err)
	}

	if len(bundle.Summaries) == 0 && len(bundle.Turns) == 0 {
		fmt.Println("No history after that moment.")
		return nil
	}

	printBundle(bundle)
	return nil
}
