// Package historycmder provides the history command for navigating the
// turn ledger and summary ledger directly.
package historycmder

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/papercomputeco/ambient/cmd/ambient/wiring"
	"github.com/papercomputeco/ambient/pkg/config"
	"github.com/papercomputeco/ambient/pkg/history"
	"github.com/papercomputeco/ambient/pkg/ledger"
	"github.com/papercomputeco/ambient/pkg/logger"
)

const historyLongDesc string = `Navigate conversation history.

Reads the turn ledger and summary ledger directly, without recall ranking:
  ambient history context              Recent context under a turn budget
  ambient history since <timestamp>    Turns strictly after a moment
  ambient history around <timestamp>   A window centered on a moment

Timestamps are RFC 3339, e.g. 2026-08-30T14:00:00Z.

Examples:
  ambient history context --turns 50
  ambient history since 2026-08-29T00:00:00Z --summaries
  ambient history around 2026-08-29T12:00:00Z -n 40 --before-ratio 0.5`

const historyShortDesc string = "Navigate conversation history"

func NewHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: historyShortDesc,
		Long:  historyLongDesc,
	}

	cmd.AddCommand(newContextCmd())
	cmd.AddCommand(newSinceCmd())
	cmd.AddCommand(newAroundCmd())

	return cmd
}

// buildNavigator assembles the store and navigator for a subcommand.
// The caller owns closing the returned store.
func buildNavigator(cmd *cobra.Command) (ledger.Driver, *history.Navigator, *zap.Logger, error) {
	debug, _ := cmd.Flags().GetBool("debug")
	configDir, _ := cmd.Flags().GetString("config-dir")

	v, err := config.InitViper(configDir)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("initializing config: %w", err)
	}

	config.BindRegisteredFlags(v, cmd, config.DefaultFlags, []string{
		config.FlagStorageDriver,
		config.FlagSQLite,
		config.FlagPostgresDSN,
	})

	log := logger.New(logger.WithDebug(debug))

	store, err := wiring.NewStore(context.Background(), v, configDir, log)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("creating ledger store: %w", err)
	}

	return store, history.NewNavigator(store), log, nil
}

// storageFlags holds the shared storage flag targets for the history
// subcommands. The values reach the store through the viper chain.
type storageFlags struct {
	storageDriver string
	sqlitePath    string
	postgresDSN   string
}

func (f *storageFlags) register(cmd *cobra.Command) {
	fs := config.DefaultFlags
	config.AddStringFlag(cmd, fs, config.FlagStorageDriver, &f.storageDriver)
	config.AddStringFlag(cmd, fs, config.FlagSQLite, &f.sqlitePath)
	config.AddStringFlag(cmd, fs, config.FlagPostgresDSN, &f.postgresDSN)
}

func printBundle(bundle *history.ContextBundle) {
	for _, s := range bundle.Summaries {
		fmt.Printf("[summary %s to %s] %s\n",
			s.SpanStart.Format(time.RFC3339),
			s.SpanEnd.Format(time.RFC3339),
			s.Text,
		)
	}

	for _, t := range bundle.Turns {
		printTurn(t)
	}
}

func printTurn(t *ledger.Turn) {
	fmt.Printf("[%s] %s: %s\n", t.CreatedAt.Format(time.RFC3339), t.Author, t.Content)
}
