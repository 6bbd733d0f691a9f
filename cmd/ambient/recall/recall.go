// Package recallcmder provides the recall command for assembling memory
// packages from the ledger, anchor index, and fact graph.
package recallcmder

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/papercomputeco/ambient/cmd/ambient/wiring"
	"github.com/papercomputeco/ambient/pkg/config"
	"github.com/papercomputeco/ambient/pkg/facts"
	"github.com/papercomputeco/ambient/pkg/logger"
	"github.com/papercomputeco/ambient/pkg/recall"
)

type RecallCommander struct {
	storageDriver  string
	sqlitePath     string
	postgresDSN    string
	vectorProvider string
	vectorTarget   string
	graphURI       string
	charBudget     int
	limitPerSource int
	showManifest   bool
	configDir      string
	debug          bool
	logger         *zap.Logger
}

const recallLongDesc string = `Assemble a recall package.

With a query, searches the anchor index, the fact graph, and the summary
ledger concurrently and merges the results into a single text block under
the character budget. Sources that fail or time out are omitted; the rest
of the package stands.

Without a query, assembles the startup package instead: recent anchors,
recent summaries, and the unsummarized turn tail.

Examples:
  ambient recall
  ambient recall "what does sam do for work"
  ambient recall -b 2000 "deployment preferences"
  ambient recall --manifest "the trip to portland"`

const recallShortDesc string = "Assemble a recall package"

func NewRecallCmd() *cobra.Command {
	cmder := &RecallCommander{}

	cmd := &cobra.Command{
		Use:   "recall [query]",
		Short: recallShortDesc,
		Long:  recallLongDesc,
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
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
				config.FlagVectorProvider,
				config.FlagVectorTarget,
				config.FlagGraphURI,
				config.FlagCharBudget,
				config.FlagLimitPerSource,
			})

			query := ""
			if len(args) == 1 {
				query = args[0]
			}

			return cmder.run(v, query)
		},
	}

	fs := config.DefaultFlags
	config.AddStringFlag(cmd, fs, config.FlagStorageDriver, &cmder.storageDriver)
	config.AddStringFlag(cmd, fs, config.FlagSQLite, &cmder.sqlitePath)
	config.AddStringFlag(cmd, fs, config.FlagPostgresDSN, &cmder.postgresDSN)
	config.AddStringFlag(cmd, fs, config.FlagVectorProvider, &cmder.vectorProvider)
	config.AddStringFlag(cmd, fs, config.FlagVectorTarget, &cmder.vectorTarget)
	config.AddStringFlag(cmd, fs, config.FlagGraphURI, &cmder.graphURI)
	config.AddIntFlag(cmd, fs, config.FlagCharBudget, &cmder.charBudget)
	config.AddIntFlag(cmd, fs, config.FlagLimitPerSource, &cmder.limitPerSource)

	cmd.Flags().BoolVar(&cmder.showManifest, "manifest", false, "Print the per-source manifest after the package")

	return cmd
}

func (c *RecallCommander) run(v *viper.Viper, query string) error {
	c.logger = logger.New(logger.WithDebug(c.debug))
	defer c.logger.Sync()

	ctx := context.Background()

	store, err := wiring.NewStore(ctx, v, c.configDir, c.logger)
	if err != nil {
		return fmt.Errorf("creating ledger store: %w", err)
	}
	defer store.Close()

	index, err := wiring.NewAnchorIndex(v, c.configDir, store, c.logger)
	if err != nil {
		return fmt.Errorf("creating anchor index: %w", err)
	}

	// The fact graph is optional for recall; without it the package is
	// assembled from anchors, summaries, and turns alone.
	var factSource recall.FactSource = noFacts{}
	graph, err := wiring.NewGraphClient(ctx, v, c.logger)
	if err != nil {
		c.logger.Warn("fact graph unreachable, omitting fact source",
			zap.String("uri", v.GetString("graph.uri")),
			zap.Error(err),
		)
	} else {
		defer graph.Close(ctx)
		factSource = facts.NewAdapter(graph, c.logger,
			facts.WithHalfLife(time.Duration(v.GetFloat64("facts.half_life_days")*24*float64(time.Hour))),
			facts.WithDiversityDedup(v.GetBool("facts.diversity_dedup")),
			facts.WithFocalEntity(v.GetString("facts.focal_entity")),
		)
	}

	orch := recall.NewOrchestrator(index, factSource, store, recall.Config{
		CharBudget:       v.GetInt("recall.char_budget"),
		LimitPerSource:   v.GetInt("recall.limit_per_source"),
		StartupAnchors:   v.GetInt("recall.startup_anchors"),
		StartupSummaries: v.GetInt("recall.startup_summaries"),
		SourceTimeout:    wiring.SourceTimeout(v),
	}, c.logger)

	pkg, err := orch.Recall(ctx, query, 0)
	if err != nil {
		return fmt.Errorf("assembling recall package: %w", err)
	}

	if pkg.Text == "" {
		fmt.Println("(empty recall package)")
	} else {
		fmt.Println(pkg.Text)
	}

	if c.showManifest {
		fmt.Printf("\n--- manifest (%d chars, %dms) ---\n", pkg.Manifest.TotalChars, pkg.LatencyMS)
		for _, source := range []string{recall.SourceAnchors, recall.SourceFacts, recall.SourceSummaries, recall.SourceTurns} {
			stats, ok := pkg.Manifest.Sources[source]
			if !ok {
				continue
			}
			fmt.Printf("%-10s %d items, %d chars\n", source, stats.Count, stats.Chars)
		}
	}

	return nil
}

// noFacts stands in for the fact adapter when the graph is unreachable.
type noFacts struct{}

func (noFacts) Search(context.Context, string, int) []*facts.Fact { return nil }
