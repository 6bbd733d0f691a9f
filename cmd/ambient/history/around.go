package historycmder

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

const aroundLongDesc string = `Show a window of turns centered on a moment.

The before-ratio splits the window between turns before and after the
timestamp; it clamps to [0, 1].

Examples:
  ambient history around 2026-08-29T12:00:00Z
  ambient history around 2026-08-29T12:00:00Z -n 40 --before-ratio 0.75`

const aroundShortDesc string = "Show a window of turns centered on a moment"

func newAroundCmd() *cobra.Command {
	flags := &storageFlags{}
	var (
		count       int
		beforeRatio float64
	)

	cmd := &cobra.Command{
		Use:   "around <timestamp>",
		Short: aroundShortDesc,
		Long:  aroundLongDesc,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAround(cmd, args[0], count, beforeRatio)
		},
	}

	flags.register(cmd)
	cmd.Flags().IntVarP(&count, "limit", "n", 20, "Total turns in the window")
	cmd.Flags().Float64Var(&beforeRatio, "before-ratio", 0.5, "Fraction of the window before the timestamp")

	return cmd
}

func runAround(cmd *cobra.Command, timestamp string, count int, beforeRatio float64) error {
	store, nav, log, err := buildNavigator(cmd)
	if err != nil {
		return err
	}
	defer store.Close()
	defer log.Sync()

	turns, err := nav.TurnsAround(context.Background(), timestamp, count, beforeRatio)
	if err != nil {
		return fmt.Errorf("loading window: %w", err)
	}

	if len(turns) == 0 {
		fmt.Println("No turns in that window.")
		return nil
	}

	for _, t := range turns {
		printTurn(t)
	}

	return nil
}
