package compactor

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/papercomputeco/ambient/pkg/ledger"
)

const digestMaxLineChars = 120

// Digest is a model-free summarizer: a compact transcript digest built
// from truncated turn lines. It never fails, which makes it the terminal
// tier of a summarizer fallback chain — compaction must not stall just
// because the language model is down.
type Digest struct{}

// NewDigest creates the digest summarizer.
func NewDigest() *Digest { return &Digest{} }

// Summarize renders the span as a truncated line-per-turn digest.
func (d *Digest) Summarize(_ context.Context, turns []*ledger.Turn) (string, error) {
	if len(turns) == 0 {
		return "", errors.New("no turns to summarize")
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Conversation digest (%d turns, %s to %s):\n",
		len(turns),
		turns[0].CreatedAt.Format("2006-01-02 15:04"),
		turns[len(turns)-1].CreatedAt.Format("2006-01-02 15:04"),
	)

	for _, t := range turns {
		content := strings.TrimSpace(t.Content)
		if len(content) > digestMaxLineChars {
			content = content[:digestMaxLineChars] + "…"
		}
		fmt.Fprintf(&b, "- %s: %s\n", t.Author, content)
	}

	return b.String(), nil
}

// Fallback chains a primary and a secondary summarizer, trying the primary
// first. Same degrade-before-failing shape as the embeddings fallback.
type Fallback struct {
	primary   Summarizer
	secondary Summarizer
	logger    *zap.Logger
}

// NewFallback creates a two-tier summarizer. The secondary may be nil, in
// which case primary errors are returned directly.
func NewFallback(primary, secondary Summarizer, logger *zap.Logger) *Fallback {
	return &Fallback{
		primary:   primary,
		secondary: secondary,
		logger:    logger,
	}
}

// Summarize condenses the turns, trying the primary tier first.
func (f *Fallback) Summarize(ctx context.Context, turns []*ledger.Turn) (string, error) {
	text, primaryErr := f.primary.Summarize(ctx, turns)
	if primaryErr == nil {
		return text, nil
	}

	if f.secondary == nil {
		return "", primaryErr
	}

	f.logger.Warn("primary summarizer failed, using fallback",
		zap.Error(primaryErr),
	)

	text, secondaryErr := f.secondary.Summarize(ctx, turns)
	if secondaryErr != nil {
		return "", fmt.Errorf("both summarizer tiers failed: %w", errors.Join(primaryErr, secondaryErr))
	}

	return text, nil
}

// Ensure implementations satisfy Summarizer.
var (
	_ Summarizer = (*Digest)(nil)
	_ Summarizer = (*Fallback)(nil)
)
