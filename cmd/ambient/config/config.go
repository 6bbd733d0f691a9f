// Package configcmder provides the config command for managing persistent
// ambient configuration stored in the .ambient/ directory.
package configcmder

import (
	"github.com/spf13/cobra"
)

const configLongDesc string = `Manage persistent ambient configuration.

Configuration is stored as config.toml in the .ambient/ directory and provides
default values for command flags. CLI flags always take precedence over
config file values, and environment variables with the AMBIENT_ prefix sit
between the two.

Keys use dotted notation matching the TOML section structure:
  storage.driver, storage.sqlite_path, storage.postgres_dsn,
  vector_store.provider, vector_store.target,
  embedding.provider, embedding.target, embedding.model, embedding.dimensions,
  graph.uri, graph.username, graph.password, graph.database,
  recall.char_budget, recall.limit_per_source,
  claims.ttl_seconds, compaction.turn_threshold, compaction.max_age_minutes

Use subcommands to get, set, or list configuration values:
  ambient config set <key> <value>    Set a configuration value
  ambient config get <key>            Get a configuration value
  ambient config list                 List all configuration values

Examples:
  ambient config set storage.driver postgres
  ambient config set recall.char_budget 8000
  ambient config get graph.uri
  ambient config list`

const configShortDesc string = "Manage persistent ambient configuration"

func NewConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: configShortDesc,
		Long:  configLongDesc,
	}

	cmd.AddCommand(newSetCmd())
	cmd.AddCommand(newGetCmd())
	cmd.AddCommand(newListCmd())

	return cmd
}
