package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"github.com/papercomputeco/ambient/pkg/dotdir"
)

// InitViper creates and returns a configured *viper.Viper.
// It sets defaults from NewDefaultConfig(), reads the config.toml file
// (if found via dotdir resolution), and binds environment variables
// with the AMBIENT_ prefix.
//
// Config precedence (highest to lowest):
//  1. CLI flags (once bound via BindRegisteredFlags)
//  2. Environment variables (AMBIENT_RECALL_CHAR_BUDGET, AMBIENT_GRAPH_URI, etc.)
//  3. config.toml file values
//  4. Defaults from NewDefaultConfig()
func InitViper(configDir string) (*viper.Viper, error) {
	v := viper.New()

	// 1. Register all defaults from NewDefaultConfig().
	setViperDefaults(v)

	// 2. Config file discovery via dotdir resolution.
	v.SetConfigName("config")
	v.SetConfigType("toml")

	ddm := dotdir.NewManager()
	target, err := ddm.Target(configDir)
	if err != nil {
		return nil, fmt.Errorf("resolving config dir: %w", err)
	}

	if target != "" {
		v.AddConfigPath(target)
	}

	if err := v.ReadInConfig(); err != nil {
		// Config file not found errors are fine, defaults will apply.
		if !errors.As(err, &viper.ConfigFileNotFoundError{}) {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	// 3. Environment variables: AMBIENT_STORAGE_DRIVER, AMBIENT_CLAIMS_TTL_SECONDS, etc.
	v.SetEnvPrefix("AMBIENT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	return v, nil
}

// setViperDefaults registers defaults from NewDefaultConfig() into viper
// using dotted-key notation. This keeps defaults.go as the single source of truth.
func setViperDefaults(v *viper.Viper) {
	d := NewDefaultConfig()

	v.SetDefault("version", d.Version)

	// Storage
	v.SetDefault("storage.driver", d.Storage.Driver)
	v.SetDefault("storage.sqlite_path", d.Storage.SQLitePath)
	v.SetDefault("storage.postgres_dsn", d.Storage.PostgresDSN)

	// Vector store
	v.SetDefault("vector_store.provider", d.VectorStore.Provider)
	v.SetDefault("vector_store.target", d.VectorStore.Target)

	// Embedding
	v.SetDefault("embedding.provider", d.Embedding.Provider)
	v.SetDefault("embedding.target", d.Embedding.Target)
	v.SetDefault("embedding.fallback_target", d.Embedding.FallbackTarget)
	v.SetDefault("embedding.model", d.Embedding.Model)
	v.SetDefault("embedding.dimensions", d.Embedding.Dimensions)

	// Graph
	v.SetDefault("graph.uri", d.Graph.URI)
	v.SetDefault("graph.username", d.Graph.Username)
	v.SetDefault("graph.password", d.Graph.Password)
	v.SetDefault("graph.database", d.Graph.Database)
	v.SetDefault("graph.group_id", d.Graph.GroupID)

	// Recall
	v.SetDefault("recall.char_budget", d.Recall.CharBudget)
	v.SetDefault("recall.limit_per_source", d.Recall.LimitPerSource)
	v.SetDefault("recall.startup_anchors", d.Recall.StartupAnchors)
	v.SetDefault("recall.startup_summaries", d.Recall.StartupSummaries)
	v.SetDefault("recall.source_timeout_ms", d.Recall.SourceTimeoutMS)

	// Claims
	v.SetDefault("claims.ttl_seconds", d.Claims.TTLSeconds)

	// Compaction
	v.SetDefault("compaction.turn_threshold", d.Compaction.TurnThreshold)
	v.SetDefault("compaction.max_age_minutes", d.Compaction.MaxAgeMinutes)

	// Session
	v.SetDefault("session.timeout_minutes", d.Session.TimeoutMinutes)

	// Curation
	v.SetDefault("curation.schedule", d.Curation.Schedule)
	v.SetDefault("curation.dry_run", d.Curation.DryRun)

	// Facts
	v.SetDefault("facts.half_life_days", d.Facts.HalfLifeDays)
	v.SetDefault("facts.diversity_dedup", d.Facts.DiversityDedup)
	v.SetDefault("facts.focal_entity", d.Facts.FocalEntity)

	// Event stream
	v.SetDefault("eventstream.provider", d.EventStream.Provider)
	v.SetDefault("eventstream.brokers", d.EventStream.Brokers)
	v.SetDefault("eventstream.topic", d.EventStream.Topic)
}
