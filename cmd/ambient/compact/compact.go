// Package compactcmder provides the compact command for running a single
// compaction pass over the turn ledger.
package compactcmder

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/papercomputeco/ambient/cmd/ambient/wiring"
	"github.com/papercomputeco/ambient/pkg/compactor"
	compactorollama "github.com/papercomputeco/ambient/pkg/compactor/ollama"
	"github.com/papercomputeco/ambient/pkg/config"
	"github.com/papercomputeco/ambient/pkg/logger"
)

type CompactCommander struct {
	storageDriver   string
	sqlitePath      string
	postgresDSN     string
	turnThreshold   int
	maxAgeMinutes   int
	summarizerModel string
	configDir       string
	debug           bool
	logger          *zap.Logger
}

const compactLongDesc string = `Run one compaction pass.

Folds eligible unsummarized turns into a new summary ledger entry. A pass
is a no-op when neither trigger fires: fewer unsummarized turns than the
turn threshold and none older than the age cutoff. Setting both triggers
to 0 disables compaction entirely.

The daemon runs this on a schedule; the command exists for manual or
cron-driven operation.

Examples:
  ambient compact
  ambient compact --turn-threshold 50
  ambient compact --max-age-minutes 120`

const compactShortDesc string = "Run one compaction pass"

func NewCompactCmd() *cobra.Command {
	cmder := &CompactCommander{}

	cmd := &cobra.Command{
		Use:   "compact",
		Short: compactShortDesc,
		Long:  compactLongDesc,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var err error
			cmder.debug, err = cmd.Flags().GetBool("debug")
			if err != nil {
				return fmt.Errorf("could not get debug flag: %v", err)
			}
			cmder.configDir, _ = cmd.Flags().GetString("config-dir")

			v, err := config.InitViper(cmder.configDir)
			if err != nil {
				return fmt.Errorf("initializing config: %w", err)
			}

			config.BindRegisteredFlags(v, cmd, config.DefaultFlags, []string{
				config.FlagStorageDriver,
				config.FlagSQLite,
				config.FlagPostgresDSN,
				config.FlagTurnThreshold,
				config.FlagMaxAgeMinutes,
			})

			return cmder.run(v)
		},
	}

	fs := config.DefaultFlags
	config.AddStringFlag(cmd, fs, config.FlagStorageDriver, &cmder.storageDriver)
	config.AddStringFlag(cmd, fs, config.FlagSQLite, &cmder.sqlitePath)
	config.AddStringFlag(cmd, fs, config.FlagPostgresDSN, &cmder.postgresDSN)
	config.AddIntFlag(cmd, fs, config.FlagTurnThreshold, &cmder.turnThreshold)
	config.AddIntFlag(cmd, fs, config.FlagMaxAgeMinutes, &cmder.maxAgeMinutes)

	cmd.Flags().StringVar(&cmder.summarizerModel, "summarizer-model", compactorollama.DefaultModel, "Ollama model used to write summaries")

	return cmd
}

func (c *CompactCommander) run(v *viper.Viper) error {
	c.logger = logger.New(logger.WithDebug(c.debug))
	defer c.logger.Sync()

	ctx := context.Background()

	store, err := wiring.NewStore(ctx, v, c.configDir, c.logger)
	if err != nil {
		return fmt.Errorf("creating ledger store: %w", err)
	}
	defer store.Close()

	summarizer := compactor.NewFallback(
		compactorollama.NewSummarizer(compactorollama.SummarizerConfig{
			BaseURL: v.GetString("embedding.target"),
			Model:   c.summarizerModel,
		}),
		compactor.NewDigest(),
		c.logger,
	)

	comp := compactor.New(store, summarizer, c.logger,
		compactor.WithTurnThreshold(v.GetInt("compaction.turn_threshold")),
		compactor.WithMaxAge(time.Duration(v.GetInt("compaction.max_age_minutes"))*time.Minute),
	)

	summary, err := comp.Compact(ctx)
	if err != nil {
		return fmt.Errorf("compacting: %w", err)
	}

	if summary == nil {
		fmt.Println("Nothing to compact.")
		return nil
	}

	fmt.Printf("Wrote summary %d covering %s to %s (%d chars)\n",
		summary.ID,
		summary.SpanStart.Format(time.RFC3339),
		summary.SpanEnd.Format(time.RFC3339),
		len(summary.Text),
	)
	return nil
}
