// Package curatecmder provides the curate command for sweeping the fact
// graph for low-quality entries.
package curatecmder

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/papercomputeco/ambient/cmd/ambient/wiring"
	"github.com/papercomputeco/ambient/pkg/config"
	"github.com/papercomputeco/ambient/pkg/curation"
	"github.com/papercomputeco/ambient/pkg/logger"
)

type CurateCommander struct {
	graphURI  string
	queries   []string
	dryRun    bool
	verbose   bool
	configDir string
	debug     bool
	logger    *zap.Logger
}

const curateLongDesc string = `Sweep the fact graph for low-quality entries.

Samples facts via the given probe queries and flags edges whose subject or
object is a vague reference ("it", "the thing") and older duplicates of
the same (subject, predicate, object) statement. Flagged edges are deleted
unless --dry-run is set.

Examples:
  ambient curate --dry-run -q "people" -q "projects"
  ambient curate -q "preferences"`

const curateShortDesc string = "Sweep the fact graph for low-quality entries"

func NewCurateCmd() *cobra.Command {
	cmder := &CurateCommander{}

	cmd := &cobra.Command{
		Use:   "curate",
		Short: curateShortDesc,
		Long:  curateLongDesc,
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
				config.FlagGraphURI,
			})

			return cmder.run(v)
		},
	}

	config.AddStringFlag(cmd, config.DefaultFlags, config.FlagGraphURI, &cmder.graphURI)

	cmd.Flags().StringArrayVarP(&cmder.queries, "query", "q", nil, "Probe query for sampling (repeatable)")
	cmd.Flags().BoolVar(&cmder.dryRun, "dry-run", false, "Report issues without deleting anything")
	cmd.Flags().BoolVarP(&cmder.verbose, "verbose", "v", false, "Print each flagged edge")

	return cmd
}

func (c *CurateCommander) run(v *viper.Viper) error {
	c.logger = logger.New(logger.WithDebug(c.debug))
	defer c.logger.Sync()

	ctx := context.Background()

	graph, err := wiring.NewGraphClient(ctx, v, c.logger)
	if err != nil {
		return fmt.Errorf("connecting to fact graph: %w", err)
	}
	defer graph.Close(ctx)

	dryRun := c.dryRun || v.GetBool("curation.dry_run")

	curator := curation.NewCurator(graph, c.logger)
	report, err := curator.Curate(ctx, c.queries, dryRun)
	if err != nil {
		return fmt.Errorf("curation sweep: %w", err)
	}

	if report.DryRun {
		fmt.Printf("Examined %d facts, flagged %d (dry run, nothing deleted)\n",
			report.Examined, report.IssuesFound)
	} else {
		fmt.Printf("Examined %d facts, flagged %d, deleted %d\n",
			report.Examined, report.IssuesFound, report.Deleted)
	}

	if c.verbose {
		for _, issue := range report.Issues {
			fmt.Printf("  [%s] %s  %s\n", issue.Kind, issue.EdgeUUID, issue.Detail)
		}
	}

	return nil
}
