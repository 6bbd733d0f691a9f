// Package compactor folds old raw turns into summary ledger entries. Spans
// are contiguous and non-overlapping: each compaction picks up exactly
// where the previous summary ended, so the summary chain plus the
// unsummarized tail always covers the full conversation history.
package compactor

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/papercomputeco/ambient/pkg/ledger"
)

// Summarizer condenses a span of turns into prose.
type Summarizer interface {
	Summarize(ctx context.Context, turns []*ledger.Turn) (string, error)
}

// Compactor watches the unsummarized backlog and writes summaries when
// either trigger fires. A turnThreshold of 0 disables the count trigger and
// a maxAge of 0 disables the age trigger; with both disabled Compact is a
// no-op.
type Compactor struct {
	store      ledger.Driver
	summarizer Summarizer
	logger     *zap.Logger

	turnThreshold int
	maxAge        time.Duration

	now func() time.Time
}

// Option configures a Compactor.
type Option func(*Compactor)

// WithTurnThreshold sets the backlog size that triggers compaction.
func WithTurnThreshold(n int) Option {
	return func(c *Compactor) { c.turnThreshold = n }
}

// WithMaxAge sets the oldest-turn age that triggers compaction.
func WithMaxAge(d time.Duration) Option {
	return func(c *Compactor) { c.maxAge = d }
}

// WithClock overrides the time source, for tests.
func WithClock(now func() time.Time) Option {
	return func(c *Compactor) { c.now = now }
}

// New creates a compactor. Both triggers default to disabled; callers
// enable them explicitly from config.
func New(store ledger.Driver, summarizer Summarizer, logger *zap.Logger, opts ...Option) *Compactor {
	c := &Compactor{
		store:      store,
		summarizer: summarizer,
		logger:     logger,
		now:        time.Now,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Compact summarizes the eligible backlog, if any. It returns the summary
// it wrote, or (nil, nil) when no trigger fired. Running it repeatedly is
// safe: once a span is summarized those turns are never revisited, so a
// second immediate call sees a smaller backlog and does nothing.
func (c *Compactor) Compact(ctx context.Context) (*ledger.Summary, error) {
	if c.turnThreshold == 0 && c.maxAge == 0 {
		return nil, nil
	}

	lastEnd, err := c.lastSummaryEnd(ctx)
	if err != nil {
		return nil, err
	}

	backlog, err := c.store.TurnsSince(ctx, lastEnd, 0)
	if err != nil {
		return nil, fmt.Errorf("reading unsummarized turns: %w", err)
	}

	if len(backlog) == 0 {
		return nil, nil
	}

	span := c.eligibleSpan(backlog)
	if len(span) == 0 {
		return nil, nil
	}

	text, err := c.summarizer.Summarize(ctx, span)
	if err != nil {
		return nil, fmt.Errorf("summarizing %d turns: %w", len(span), err)
	}

	summary := &ledger.Summary{
		Text:      text,
		SpanStart: span[0].CreatedAt,
		SpanEnd:   span[len(span)-1].CreatedAt,
		Channels:  distinctChannels(span),
		CreatedAt: c.now().UTC(),
	}

	if err := c.store.PutSummary(ctx, summary); err != nil {
		return nil, fmt.Errorf("storing summary: %w", err)
	}

	c.logger.Info("compacted turn span",
		zap.Int("turns", len(span)),
		zap.Time("span_start", summary.SpanStart),
		zap.Time("span_end", summary.SpanEnd),
	)

	return summary, nil
}

func (c *Compactor) lastSummaryEnd(ctx context.Context) (time.Time, error) {
	latest, err := c.store.LatestSummary(ctx)
	if err != nil {
		if errors.Is(err, ledger.ErrNoSummaries) {
			return time.Time{}, nil
		}
		return time.Time{}, fmt.Errorf("reading latest summary: %w", err)
	}

	return latest.SpanEnd, nil
}

// eligibleSpan decides which prefix of the backlog to summarize. The count
// trigger takes exactly the oldest turnThreshold turns, leaving the newest
// as live context; the age trigger takes the whole backlog.
func (c *Compactor) eligibleSpan(backlog []*ledger.Turn) []*ledger.Turn {
	if c.turnThreshold > 0 && len(backlog) >= c.turnThreshold {
		return backlog[:c.turnThreshold]
	}

	if c.maxAge > 0 && c.now().UTC().Sub(backlog[0].CreatedAt) >= c.maxAge {
		return backlog
	}

	return nil
}

func distinctChannels(turns []*ledger.Turn) string {
	set := make(map[string]struct{})
	for _, t := range turns {
		if t.Channel != "" {
			set[t.Channel] = struct{}{}
		}
	}

	channels := make([]string, 0, len(set))
	for ch := range set {
		channels = append(channels, ch)
	}
	sort.Strings(channels)

	return strings.Join(channels, ",")
}
