// Package embeddingutils is the embeddings utility package
package embeddingutils

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/papercomputeco/ambient/pkg/embeddings"
	"github.com/papercomputeco/ambient/pkg/embeddings/ollama"
)

type NewEmbedderOpts struct {
	ProviderType string
	TargetURL    string
	Model        string

	// FallbackURL, when set, configures a secondary tier of the same
	// provider type to try when the primary is unreachable.
	FallbackURL string

	Logger *zap.Logger
}

// NewEmbedder constructs an embeddings.Embedder for the configured provider,
// wrapped in a two-tier fallback when a fallback target is configured.
func NewEmbedder(o *NewEmbedderOpts) (embeddings.Embedder, error) {
	switch o.ProviderType {
	case "ollama":
		primary, err := ollama.NewEmbedder(ollama.EmbedderConfig{
			BaseURL: o.TargetURL,
			Model:   o.Model,
		})
		if err != nil {
			return nil, err
		}

		if o.FallbackURL == "" {
			return primary, nil
		}

		secondary, err := ollama.NewEmbedder(ollama.EmbedderConfig{
			BaseURL: o.FallbackURL,
			Model:   o.Model,
		})
		if err != nil {
			return nil, err
		}

		return embeddings.NewFallback(primary, secondary, o.Logger), nil
	default:
		return nil, fmt.Errorf("unsupported embedding provider: %s", o.ProviderType)
	}
}
