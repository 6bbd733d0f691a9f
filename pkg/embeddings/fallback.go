package embeddings

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
)

// Fallback chains a primary and a secondary embedder. Each call tries the
// primary first and falls through to the secondary on failure; an error is
// only returned when both tiers fail. This is the standard shape for every
// external dependency in ambient: degrade before failing.
type Fallback struct {
	primary   Embedder
	secondary Embedder
	logger    *zap.Logger
}

// NewFallback creates a two-tier embedder. The secondary may be nil, in
// which case primary errors are returned directly.
func NewFallback(primary, secondary Embedder, logger *zap.Logger) *Fallback {
	return &Fallback{
		primary:   primary,
		secondary: secondary,
		logger:    logger,
	}
}

// Embed converts text into a vector embedding, trying the primary tier first.
func (f *Fallback) Embed(ctx context.Context, text string) ([]float32, error) {
	embedding, primaryErr := f.primary.Embed(ctx, text)
	if primaryErr == nil {
		return embedding, nil
	}

	if f.secondary == nil {
		return nil, primaryErr
	}

	f.logger.Warn("primary embedder failed, using fallback",
		zap.Error(primaryErr),
	)

	embedding, secondaryErr := f.secondary.Embed(ctx, text)
	if secondaryErr != nil {
		return nil, fmt.Errorf("both embedding tiers failed: %w", errors.Join(primaryErr, secondaryErr))
	}

	return embedding, nil
}

// Close closes both tiers, reporting the first error encountered.
func (f *Fallback) Close() error {
	primaryErr := f.primary.Close()

	if f.secondary != nil {
		if err := f.secondary.Close(); err != nil && primaryErr == nil {
			primaryErr = err
		}
	}

	return primaryErr
}

// Ensure Fallback implements Embedder
var _ Embedder = (*Fallback)(nil)
