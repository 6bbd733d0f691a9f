// Package ambientcmder
package ambientcmder

import (
	"github.com/spf13/cobra"

	anchorcmder "github.com/papercomputeco/ambient/cmd/ambient/anchor"
	capturecmder "github.com/papercomputeco/ambient/cmd/ambient/capture"
	compactcmder "github.com/papercomputeco/ambient/cmd/ambient/compact"
	configcmder "github.com/papercomputeco/ambient/cmd/ambient/config"
	curatecmder "github.com/papercomputeco/ambient/cmd/ambient/curate"
	historycmder "github.com/papercomputeco/ambient/cmd/ambient/history"
	initcmder "github.com/papercomputeco/ambient/cmd/ambient/init"
	recallcmder "github.com/papercomputeco/ambient/cmd/ambient/recall"
	servecmder "github.com/papercomputeco/ambient/cmd/ambient/serve"
	versioncmder "github.com/papercomputeco/ambient/cmd/version"
)

const ambientLongDesc string = `Ambient is a long-horizon memory substrate for conversational agents.

It keeps the full turn ledger, compacts old spans into summaries, indexes
anchor documents for semantic search, and mirrors durable facts into a
graph, then assembles all of it into recall packages on demand.

Common commands:
  ambient serve            Run the background maintenance daemon
  ambient capture          Append a conversation turn to the ledger
  ambient recall [query]   Assemble a recall package
  ambient anchor set       Store or update an anchor document
  ambient history context  Navigate raw conversation history
  ambient compact          Run one compaction pass
  ambient curate           Sweep the fact graph for low-quality entries`

const ambientShortDesc string = "Ambient - Agent Memory"

func NewAmbientCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ambient",
		Short: ambientShortDesc,
		Long:  ambientLongDesc,
	}

	// Global flags
	cmd.PersistentFlags().BoolP("debug", "d", false, "Enable debug logging")
	cmd.PersistentFlags().String("config-dir", "", "Directory containing config.toml (default: .ambient/ resolution)")

	// Add subcommands
	cmd.AddCommand(initcmder.NewInitCmd())
	cmd.AddCommand(servecmder.NewServeCmd())
	cmd.AddCommand(capturecmder.NewCaptureCmd())
	cmd.AddCommand(recallcmder.NewRecallCmd())
	cmd.AddCommand(anchorcmder.NewAnchorCmd())
	cmd.AddCommand(historycmder.NewHistoryCmd())
	cmd.AddCommand(compactcmder.NewCompactCmd())
	cmd.AddCommand(curatecmder.NewCurateCmd())
	cmd.AddCommand(configcmder.NewConfigCmd())
	cmd.AddCommand(versioncmder.NewVersionCmd())

	return cmd
}
