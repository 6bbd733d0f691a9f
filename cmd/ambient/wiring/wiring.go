// Package wiring assembles the shared backends the ambient commands run
// against: the ledger store, the anchor index, the fact graph client, and
// the turn event publisher. Commands pull the pieces they need from the
// viper precedence chain so a flag, env var, or config.toml entry all land
// in the same place.
package wiring

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/papercomputeco/ambient/pkg/anchors"
	"github.com/papercomputeco/ambient/pkg/dotdir"
	"github.com/papercomputeco/ambient/pkg/embeddings"
	embeddingutils "github.com/papercomputeco/ambient/pkg/embeddings/utils"
	"github.com/papercomputeco/ambient/pkg/eventstream"
	eventkafka "github.com/papercomputeco/ambient/pkg/eventstream/kafka"
	"github.com/papercomputeco/ambient/pkg/eventstream/nop"
	"github.com/papercomputeco/ambient/pkg/facts/neograph"
	"github.com/papercomputeco/ambient/pkg/ledger"
	"github.com/papercomputeco/ambient/pkg/ledger/postgres"
	"github.com/papercomputeco/ambient/pkg/ledger/sqlite"
	vectorutils "github.com/papercomputeco/ambient/pkg/vector/utils"
)

// NewStore opens the ledger driver selected by storage.driver.
// An empty sqlite path falls back to ledger.db in the resolved dotdir.
func NewStore(ctx context.Context, v *viper.Viper, configDir string, logger *zap.Logger) (ledger.Driver, error) {
	switch driver := v.GetString("storage.driver"); driver {
	case "sqlite":
		path := v.GetString("storage.sqlite_path")
		if path == "" {
			ddm := dotdir.NewManager()
			resolved, err := ddm.DefaultLedgerPath(configDir)
			if err != nil {
				return nil, fmt.Errorf("resolving ledger path: %w", err)
			}
			path = resolved
		}

		logger.Debug("opening sqlite ledger", zap.String("path", path))
		return sqlite.NewDriver(ctx, path)
	case "postgres":
		dsn := v.GetString("storage.postgres_dsn")
		if dsn == "" {
			return nil, fmt.Errorf("storage.driver is postgres but storage.postgres_dsn is empty")
		}

		logger.Debug("opening postgres ledger")
		return postgres.NewDriver(ctx, dsn)
	default:
		return nil, fmt.Errorf("unsupported storage driver: %s", driver)
	}
}

// NewEmbedder builds the configured embedder.
func NewEmbedder(v *viper.Viper, logger *zap.Logger) (embeddings.Embedder, error) {
	return embeddingutils.NewEmbedder(&embeddingutils.NewEmbedderOpts{
		ProviderType: v.GetString("embedding.provider"),
		TargetURL:    v.GetString("embedding.target"),
		Model:        v.GetString("embedding.model"),
		FallbackURL:  v.GetString("embedding.fallback_target"),
		Logger:       logger,
	})
}

// NewAnchorIndex builds the anchor index over the shared store.
// An empty vector store target falls back to vectors.db in the resolved dotdir.
func NewAnchorIndex(v *viper.Viper, configDir string, store ledger.Driver, logger *zap.Logger) (*anchors.Index, error) {
	target := v.GetString("vector_store.target")
	if target == "" && v.GetString("vector_store.provider") == "sqlite" {
		ddm := dotdir.NewManager()
		resolved, err := ddm.DefaultVectorPath(configDir)
		if err != nil {
			return nil, fmt.Errorf("resolving vector path: %w", err)
		}
		target = resolved
	}

	vectors, err := vectorutils.NewDriver(&vectorutils.NewDriverOpts{
		Provider:   v.GetString("vector_store.provider"),
		Target:     target,
		Dimensions: v.GetUint("embedding.dimensions"),
		Logger:     logger,
	})
	if err != nil {
		return nil, fmt.Errorf("creating vector driver: %w", err)
	}

	embedder, err := NewEmbedder(v, logger)
	if err != nil {
		return nil, fmt.Errorf("creating embedder: %w", err)
	}

	return anchors.NewIndex(store, vectors, embedder, logger), nil
}

// NewGraphClient connects to the configured fact graph.
func NewGraphClient(ctx context.Context, v *viper.Viper, logger *zap.Logger) (*neograph.Client, error) {
	return neograph.NewClient(ctx, neograph.Config{
		URI:      v.GetString("graph.uri"),
		Username: v.GetString("graph.username"),
		Password: v.GetString("graph.password"),
		Database: v.GetString("graph.database"),
		GroupID:  v.GetString("graph.group_id"),
	}, logger)
}

// NewPublisher builds the turn event publisher selected by
// eventstream.provider. The nop provider is the default.
func NewPublisher(v *viper.Viper, logger *zap.Logger) (eventstream.Publisher, error) {
	switch provider := v.GetString("eventstream.provider"); provider {
	case "", "nop":
		return nop.NewPublisher(), nil
	case "kafka":
		return eventkafka.NewPublisher(eventkafka.Config{
			Brokers: v.GetStringSlice("eventstream.brokers"),
			Topic:   v.GetString("eventstream.topic"),
		}, logger)
	default:
		return nil, fmt.Errorf("unsupported eventstream provider: %s", provider)
	}
}

// SourceTimeout converts the configured per-source recall timeout.
func SourceTimeout(v *viper.Viper) time.Duration {
	return time.Duration(v.GetInt("recall.source_timeout_ms")) * time.Millisecond
}
