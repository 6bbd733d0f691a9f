// Package anchorcmder provides the anchor command for managing the
// always-relevant anchor documents in the memory substrate.
package anchorcmder

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/papercomputeco/ambient/cmd/ambient/wiring"
	"github.com/papercomputeco/ambient/pkg/anchors"
	"github.com/papercomputeco/ambient/pkg/config"
	"github.com/papercomputeco/ambient/pkg/ledger"
	"github.com/papercomputeco/ambient/pkg/logger"
)

const anchorLongDesc string = `Manage anchor documents.

Anchors are small named documents that should survive any amount of
conversation history: who the user is, standing preferences, house rules.
They are embedded into the vector store so query-driven recall can rank
them semantically, and the most recently updated ones lead the startup
package.

Use subcommands to store, list, search, or reindex anchors:
  ambient anchor set <name> <body>    Store or update an anchor
  ambient anchor list                 List recent anchors
  ambient anchor search <query>       Search anchors semantically
  ambient anchor reindex              Re-embed every anchor

Examples:
  ambient anchor set owner "Sam, software engineer in Portland"
  ambient anchor list -n 10
  ambient anchor search "what city"`

const anchorShortDesc string = "Manage anchor documents"

func NewAnchorCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "anchor",
		Short: anchorShortDesc,
		Long:  anchorLongDesc,
	}

	cmd.AddCommand(newSetCmd())
	cmd.AddCommand(newListCmd())
	cmd.AddCommand(newSearchCmd())
	cmd.AddCommand(newReindexCmd())

	return cmd
}

// buildIndex assembles the store and anchor index for a subcommand.
// The caller owns closing the returned store.
func buildIndex(cmd *cobra.Command) (ledger.Driver, *anchors.Index, *zap.Logger, error) {
	debug, _ := cmd.Flags().GetBool("debug")
	configDir, _ := cmd.Flags().GetString("config-dir")

	v, err := config.InitViper(configDir)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("initializing config: %w", err)
	}

	bindStorageFlags(v, cmd)

	log := logger.New(logger.WithDebug(debug))

	store, err := wiring.NewStore(context.Background(), v, configDir, log)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("creating ledger store: %w", err)
	}

	index, err := wiring.NewAnchorIndex(v, configDir, store, log)
	if err != nil {
		store.Close()
		return nil, nil, nil, fmt.Errorf("creating anchor index: %w", err)
	}

	return store, index, log, nil
}

func bindStorageFlags(v *viper.Viper, cmd *cobra.Command) {
	config.BindRegisteredFlags(v, cmd, config.DefaultFlags, []string{
		config.FlagStorageDriver,
		config.FlagSQLite,
		config.FlagPostgresDSN,
		config.FlagVectorProvider,
		config.FlagVectorTarget,
		config.FlagEmbeddingProv,
		config.FlagEmbeddingTgt,
		config.FlagEmbeddingModel,
		config.FlagEmbeddingDims,
	})
}

// storageFlags holds the shared storage and embedding flag targets for the
// anchor subcommands. The values reach the backends through the viper
// precedence chain once bindStorageFlags runs.
type storageFlags struct {
	storageDriver  string
	sqlitePath     string
	postgresDSN    string
	vectorProvider string
	vectorTarget   string
	embeddingProv  string
	embeddingTgt   string
	embeddingModel string
	embeddingDims  uint
}

func (f *storageFlags) register(cmd *cobra.Command) {
	fs := config.DefaultFlags
	config.AddStringFlag(cmd, fs, config.FlagStorageDriver, &f.storageDriver)
	config.AddStringFlag(cmd, fs, config.FlagSQLite, &f.sqlitePath)
	config.AddStringFlag(cmd, fs, config.FlagPostgresDSN, &f.postgresDSN)
	config.AddStringFlag(cmd, fs, config.FlagVectorProvider, &f.vectorProvider)
	config.AddStringFlag(cmd, fs, config.FlagVectorTarget, &f.vectorTarget)
	config.AddStringFlag(cmd, fs, config.FlagEmbeddingProv, &f.embeddingProv)
	config.AddStringFlag(cmd, fs, config.FlagEmbeddingTgt, &f.embeddingTgt)
	config.AddStringFlag(cmd, fs, config.FlagEmbeddingModel, &f.embeddingModel)
	config.AddUintFlag(cmd, fs, config.FlagEmbeddingDims, &f.embeddingDims)
}
