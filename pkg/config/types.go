package config

import (
	"fmt"
	"strconv"
	"strings"
)

// Config represents the persistent ambient configuration stored as config.toml
// in the .ambient/ directory. The TOML layout uses sections for logical grouping.
type Config struct {
	Version     int               `toml:"version"`
	Storage     StorageConfig     `toml:"storage"`
	VectorStore VectorStoreConfig `toml:"vector_store"`
	Embedding   EmbeddingConfig   `toml:"embedding"`
	Graph       GraphConfig       `toml:"graph"`
	Recall      RecallConfig      `toml:"recall"`
	Claims      ClaimsConfig      `toml:"claims"`
	Compaction  CompactionConfig  `toml:"compaction"`
	Session     SessionConfig     `toml:"session"`
	Curation    CurationConfig    `toml:"curation"`
	Facts       FactsConfig       `toml:"facts"`
	EventStream EventStreamConfig `toml:"eventstream"`
}

// StorageConfig holds ledger storage settings shared by every process that
// touches the conversation record.
type StorageConfig struct {
	Driver      string `toml:"driver,omitempty"`
	SQLitePath  string `toml:"sqlite_path,omitempty"`
	PostgresDSN string `toml:"postgres_dsn,omitempty"`
}

// VectorStoreConfig holds anchor vector store settings.
type VectorStoreConfig struct {
	Provider string `toml:"provider,omitempty"`
	Target   string `toml:"target,omitempty"`
}

// EmbeddingConfig holds embedding provider settings. FallbackTarget, when
// set, configures the secondary tier tried when the primary is unreachable.
type EmbeddingConfig struct {
	Provider       string `toml:"provider,omitempty"`
	Target         string `toml:"target,omitempty"`
	FallbackTarget string `toml:"fallback_target,omitempty"`
	Model          string `toml:"model,omitempty"`
	Dimensions     uint   `toml:"dimensions,omitempty"`
}

// GraphConfig holds fact graph connection settings.
type GraphConfig struct {
	URI      string `toml:"uri,omitempty"`
	Username string `toml:"username,omitempty"`
	Password string `toml:"password,omitempty"`
	Database string `toml:"database,omitempty"`
	GroupID  string `toml:"group_id,omitempty"`
}

// RecallConfig holds recall orchestration settings. Zero values disable
// where noted: a zero CharBudget means no trimming.
type RecallConfig struct {
	CharBudget       int `toml:"char_budget,omitempty"`
	LimitPerSource   int `toml:"limit_per_source,omitempty"`
	StartupAnchors   int `toml:"startup_anchors,omitempty"`
	StartupSummaries int `toml:"startup_summaries,omitempty"`
	SourceTimeoutMS  int `toml:"source_timeout_ms,omitempty"`
}

// ClaimsConfig holds message claim settings. TTLSeconds 0 disables claiming.
type ClaimsConfig struct {
	TTLSeconds int `toml:"ttl_seconds,omitempty"`
}

// CompactionConfig holds summary compaction thresholds. Either threshold
// set to 0 disables that trigger.
type CompactionConfig struct {
	TurnThreshold int `toml:"turn_threshold,omitempty"`
	MaxAgeMinutes int `toml:"max_age_minutes,omitempty"`
}

// SessionConfig holds active-session tracking settings.
type SessionConfig struct {
	TimeoutMinutes int `toml:"timeout_minutes,omitempty"`
}

// CurationConfig holds curation sweep settings. Schedule is a cron
// expression consumed by the maintenance runner.
type CurationConfig struct {
	Schedule string `toml:"schedule,omitempty"`
	DryRun   bool   `toml:"dry_run,omitempty"`
}

// FactsConfig holds fact reranking settings.
type FactsConfig struct {
	HalfLifeDays   float64 `toml:"half_life_days,omitempty"`
	DiversityDedup bool    `toml:"diversity_dedup,omitempty"`
	FocalEntity    string  `toml:"focal_entity,omitempty"`
}

// EventStreamConfig holds turn-captured event publishing settings.
type EventStreamConfig struct {
	Provider string   `toml:"provider,omitempty"`
	Brokers  []string `toml:"brokers,omitempty"`
	Topic    string   `toml:"topic,omitempty"`
}

// configKeyInfo maps a user-facing dotted key name to a getter and setter on *Config.
type configKeyInfo struct {
	get func(c *Config) string
	set func(c *Config, v string) error
}

func intKey(get func(c *Config) *int) configKeyInfo {
	return configKeyInfo{
		get: func(c *Config) string {
			if *get(c) == 0 {
				return ""
			}
			return strconv.Itoa(*get(c))
		},
		set: func(c *Config, v string) error {
			n, err := strconv.Atoi(v)
			if err != nil {
				return fmt.Errorf("invalid integer value %q: %w", v, err)
			}
			*get(c) = n
			return nil
		},
	}
}

func stringKey(get func(c *Config) *string) configKeyInfo {
	return configKeyInfo{
		get: func(c *Config) string { return *get(c) },
		set: func(c *Config, v string) error { *get(c) = v; return nil },
	}
}

func boolKey(get func(c *Config) *bool) configKeyInfo {
	return configKeyInfo{
		get: func(c *Config) string { return strconv.FormatBool(*get(c)) },
		set: func(c *Config, v string) error {
			b, err := strconv.ParseBool(v)
			if err != nil {
				return fmt.Errorf("invalid boolean value %q: %w", v, err)
			}
			*get(c) = b
			return nil
		},
	}
}

// configKeys is the authoritative map of all supported config keys.
// Keys use dotted notation matching the TOML section structure.
var configKeys = map[string]configKeyInfo{
	"storage.driver":       stringKey(func(c *Config) *string { return &c.Storage.Driver }),
	"storage.sqlite_path":  stringKey(func(c *Config) *string { return &c.Storage.SQLitePath }),
	"storage.postgres_dsn": stringKey(func(c *Config) *string { return &c.Storage.PostgresDSN }),

	"vector_store.provider": stringKey(func(c *Config) *string { return &c.VectorStore.Provider }),
	"vector_store.target":   stringKey(func(c *Config) *string { return &c.VectorStore.Target }),

	"embedding.provider":        stringKey(func(c *Config) *string { return &c.Embedding.Provider }),
	"embedding.target":          stringKey(func(c *Config) *string { return &c.Embedding.Target }),
	"embedding.fallback_target": stringKey(func(c *Config) *string { return &c.Embedding.FallbackTarget }),
	"embedding.model":           stringKey(func(c *Config) *string { return &c.Embedding.Model }),
	"embedding.dimensions": {
		get: func(c *Config) string {
			if c.Embedding.Dimensions == 0 {
				return ""
			}
			return strconv.FormatUint(uint64(c.Embedding.Dimensions), 10)
		},
		set: func(c *Config, v string) error {
			n, err := strconv.ParseUint(v, 10, 64)
			if err != nil {
				return fmt.Errorf("invalid value for embedding.dimensions: %w", err)
			}
			c.Embedding.Dimensions = uint(n)
			return nil
		},
	},

	"graph.uri":      stringKey(func(c *Config) *string { return &c.Graph.URI }),
	"graph.username": stringKey(func(c *Config) *string { return &c.Graph.Username }),
	"graph.password": stringKey(func(c *Config) *string { return &c.Graph.Password }),
	"graph.database": stringKey(func(c *Config) *string { return &c.Graph.Database }),
	"graph.group_id": stringKey(func(c *Config) *string { return &c.Graph.GroupID }),

	"recall.char_budget":       intKey(func(c *Config) *int { return &c.Recall.CharBudget }),
	"recall.limit_per_source":  intKey(func(c *Config) *int { return &c.Recall.LimitPerSource }),
	"recall.startup_anchors":   intKey(func(c *Config) *int { return &c.Recall.StartupAnchors }),
	"recall.startup_summaries": intKey(func(c *Config) *int { return &c.Recall.StartupSummaries }),
	"recall.source_timeout_ms": intKey(func(c *Config) *int { return &c.Recall.SourceTimeoutMS }),

	"claims.ttl_seconds": intKey(func(c *Config) *int { return &c.Claims.TTLSeconds }),

	"compaction.turn_threshold":  intKey(func(c *Config) *int { return &c.Compaction.TurnThreshold }),
	"compaction.max_age_minutes": intKey(func(c *Config) *int { return &c.Compaction.MaxAgeMinutes }),

	"session.timeout_minutes": intKey(func(c *Config) *int { return &c.Session.TimeoutMinutes }),

	"curation.schedule": stringKey(func(c *Config) *string { return &c.Curation.Schedule }),
	"curation.dry_run":  boolKey(func(c *Config) *bool { return &c.Curation.DryRun }),

	"facts.half_life_days": {
		get: func(c *Config) string {
			if c.Facts.HalfLifeDays == 0 {
				return ""
			}
			return strconv.FormatFloat(c.Facts.HalfLifeDays, 'f', -1, 64)
		},
		set: func(c *Config, v string) error {
			f, err := strconv.ParseFloat(v, 64)
			if err != nil {
				return fmt.Errorf("invalid value for facts.half_life_days: %w", err)
			}
			c.Facts.HalfLifeDays = f
			return nil
		},
	},
	"facts.diversity_dedup": boolKey(func(c *Config) *bool { return &c.Facts.DiversityDedup }),
	"facts.focal_entity":    stringKey(func(c *Config) *string { return &c.Facts.FocalEntity }),

	"eventstream.provider": stringKey(func(c *Config) *string { return &c.EventStream.Provider }),
	"eventstream.brokers": {
		get: func(c *Config) string { return strings.Join(c.EventStream.Brokers, ",") },
		set: func(c *Config, v string) error {
			if v == "" {
				c.EventStream.Brokers = nil
				return nil
			}
			parts := strings.Split(v, ",")
			for i := range parts {
				parts[i] = strings.TrimSpace(parts[i])
			}
			c.EventStream.Brokers = parts
			return nil
		},
	},
	"eventstream.topic": stringKey(func(c *Config) *string { return &c.EventStream.Topic }),
}
