// Package servecmder provides the serve command that runs the ambient
// maintenance daemon: scheduled compaction, curation sweeps, claim purges,
// and idle session expiry over the shared stores.
package servecmder

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/papercomputeco/ambient/cmd/ambient/wiring"
	"github.com/papercomputeco/ambient/pkg/compactor"
	compactorollama "github.com/papercomputeco/ambient/pkg/compactor/ollama"
	"github.com/papercomputeco/ambient/pkg/config"
	"github.com/papercomputeco/ambient/pkg/curation"
	"github.com/papercomputeco/ambient/pkg/logger"
	"github.com/papercomputeco/ambient/pkg/maintain"
)

type ServeCommander struct {
	storageDriver   string
	sqlitePath      string
	postgresDSN     string
	graphURI        string
	turnThreshold   int
	maxAgeMinutes   int
	summarizerModel string
	curationQueries []string
	configDir       string
	debug           bool
	logger          *zap.Logger
}

const serveLongDesc string = `Run the ambient maintenance daemon.

The daemon shares the ledger, vector store, and fact graph with the
conversational surface and runs the background upkeep jobs on a schedule:

  compaction       folds old unsummarized turns into summary ledger entries
  claim purge      removes expired message claims
  session expiry   removes sessions idle past the timeout
  curation         sweeps the fact graph for vague or duplicate entries

Curation only runs when curation.schedule is set and the fact graph is
reachable. The daemon runs until interrupted.

Examples:
  ambient serve
  ambient serve --turn-threshold 50 --max-age-minutes 120
  ambient serve --storage-driver postgres --postgres-dsn postgres://...`

const serveShortDesc string = "Run the ambient maintenance daemon"

func NewServeCmd() *cobra.Command {
	cmder := &ServeCommander{}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: serveShortDesc,
		Long:  serveLongDesc,
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
				config.FlagGraphURI,
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
	config.AddStringFlag(cmd, fs, config.FlagGraphURI, &cmder.graphURI)
	config.AddIntFlag(cmd, fs, config.FlagTurnThreshold, &cmder.turnThreshold)
	config.AddIntFlag(cmd, fs, config.FlagMaxAgeMinutes, &cmder.maxAgeMinutes)

	cmd.Flags().StringVar(&cmder.summarizerModel, "summarizer-model", compactorollama.DefaultModel, "Ollama model used to write summaries")
	cmd.Flags().StringArrayVar(&cmder.curationQueries, "curation-query", nil, "Probe query for curation sampling (repeatable)")

	return cmd
}

func (c *ServeCommander) run(v *viper.Viper) error {
	c.logger = logger.New(logger.WithDebug(c.debug))
	defer c.logger.Sync()

	ctx := context.Background()

	store, err := wiring.NewStore(ctx, v, c.configDir, c.logger)
	if err != nil {
		return fmt.Errorf("creating ledger store: %w", err)
	}
	defer store.Close()

	// The summarizer falls back to a model-free digest so compaction
	// still makes progress when the generation model is unreachable.
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

	// Curation is optional; a missing graph downgrades the daemon rather
	// than failing it.
	var curator maintain.Curator
	graph, err := wiring.NewGraphClient(ctx, v, c.logger)
	if err != nil {
		c.logger.Warn("fact graph unreachable, curation disabled",
			zap.String("uri", v.GetString("graph.uri")),
			zap.Error(err),
		)
	} else {
		defer graph.Close(ctx)
		curator = curation.NewCurator(graph, c.logger)
	}

	runner := maintain.NewRunner(store, comp, curator, maintain.Config{
		CurationSchedule: v.GetString("curation.schedule"),
		CurationQueries:  c.curationQueries,
		CurationDryRun:   v.GetBool("curation.dry_run"),
		SessionTimeout:   time.Duration(v.GetInt("session.timeout_minutes")) * time.Minute,
	}, c.logger)

	if err := runner.Start(); err != nil {
		return fmt.Errorf("starting maintenance runner: %w", err)
	}
	defer runner.Stop()

	c.logger.Info("ambient maintenance daemon running",
		zap.String("storage_driver", v.GetString("storage.driver")),
		zap.Int("jobs", runner.Jobs()),
	)

	// Wait for interrupt signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigChan
	c.logger.Info("received signal, shutting down", zap.String("signal", sig.String()))
	return nil
}
