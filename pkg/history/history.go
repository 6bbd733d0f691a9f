// Package history is the read-side navigation boundary over the ledger:
// context assembly within a turn budget, time-anchored slicing, and
// windowed lookups around a moment. Inputs are validated here, before any
// storage call, so malformed requests never reach the drivers.
package history

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/papercomputeco/ambient/pkg/ledger"
)

// turnsPerSummary is the estimated raw-turn coverage of one summary entry,
// used to decide how many summaries substitute for the unspent turn budget.
const turnsPerSummary = 50

// ValidationError reports a rejected request parameter.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

// ContextBundle is an assembled slice of history: summaries for the old
// past, raw turns for the recent past, both ordered oldest first.
type ContextBundle struct {
	Summaries []*ledger.Summary
	Turns     []*ledger.Turn
}

// Navigator serves history reads over a ledger driver.
type Navigator struct {
	store ledger.Driver
}

// NewNavigator creates a history navigator.
func NewNavigator(store ledger.Driver) *Navigator {
	return &Navigator{store: store}
}

// ConversationContext assembles recent context within turnBudget raw turns.
// When the unsummarized backlog alone meets the budget the bundle is all
// raw turns; otherwise the backlog is topped up with recent summaries, each
// standing in for roughly turnsPerSummary turns of coverage. A zero budget
// yields an empty bundle; a negative one is rejected.
func (n *Navigator) ConversationContext(ctx context.Context, turnBudget int) (*ContextBundle, error) {
	if turnBudget < 0 {
		return nil, &ValidationError{Field: "turn budget", Message: "must not be negative"}
	}
	if turnBudget == 0 {
		return &ContextBundle{}, nil
	}

	lastEnd, err := n.lastSummaryEnd(ctx)
	if err != nil {
		return nil, err
	}

	backlog, err := n.store.TurnsSince(ctx, lastEnd, 0)
	if err != nil {
		return nil, fmt.Errorf("reading unsummarized turns: %w", err)
	}

	if len(backlog) >= turnBudget {
		turns, err := n.store.RecentTurns(ctx, turnBudget)
		if err != nil {
			return nil, fmt.Errorf("reading recent turns: %w", err)
		}
		return &ContextBundle{Turns: turns}, nil
	}

	unspent := turnBudget - len(backlog)
	summaryCount := int(math.Ceil(float64(unspent) / turnsPerSummary))

	summaries, err := n.store.RecentSummaries(ctx, summaryCount)
	if err != nil {
		return nil, fmt.Errorf("reading summaries: %w", err)
	}

	// RecentSummaries returns newest first; present oldest first so the
	// bundle reads chronologically into the raw tail.
	reverse(summaries)

	return &ContextBundle{Summaries: summaries, Turns: backlog}, nil
}

// TurnsSince returns turns strictly after the given RFC3339 timestamp,
// oldest first, optionally with the summaries whose spans end after it.
func (n *Navigator) TurnsSince(ctx context.Context, timestamp string, includeSummaries bool, limit int) (*ContextBundle, error) {
	t, err := parseTimestamp(timestamp)
	if err != nil {
		return nil, err
	}

	turns, err := n.store.TurnsSince(ctx, t, limit)
	if err != nil {
		return nil, fmt.Errorf("reading turns: %w", err)
	}

	bundle := &ContextBundle{Turns: turns}

	if includeSummaries {
		summaries, err := n.summariesEndingAfter(ctx, t)
		if err != nil {
			return nil, err
		}
		bundle.Summaries = summaries
	}

	return bundle, nil
}

// TurnsAround returns a window of count turns surrounding the RFC3339
// timestamp, split by beforeRatio (clamped to [0,1]) and concatenated
// chronologically. The turn at the timestamp itself counts toward the
// before side.
func (n *Navigator) TurnsAround(ctx context.Context, timestamp string, count int, beforeRatio float64) ([]*ledger.Turn, error) {
	t, err := parseTimestamp(timestamp)
	if err != nil {
		return nil, err
	}

	if count < 0 {
		return nil, &ValidationError{Field: "count", Message: "must not be negative"}
	}
	if count == 0 {
		return nil, nil
	}

	ratio := math.Min(math.Max(beforeRatio, 0), 1)
	beforeCount := int(math.Round(float64(count) * ratio))
	afterCount := count - beforeCount

	var window []*ledger.Turn

	// A zero limit means unlimited to the drivers, so empty sides are
	// skipped rather than queried.
	if beforeCount > 0 {
		before, err := n.store.TurnsBefore(ctx, t, beforeCount)
		if err != nil {
			return nil, fmt.Errorf("reading turns before: %w", err)
		}
		window = append(window, before...)
	}

	if afterCount > 0 {
		after, err := n.store.TurnsSince(ctx, t, afterCount)
		if err != nil {
			return nil, fmt.Errorf("reading turns after: %w", err)
		}
		window = append(window, after...)
	}

	return window, nil
}

func (n *Navigator) lastSummaryEnd(ctx context.Context) (time.Time, error) {
	latest, err := n.store.LatestSummary(ctx)
	if err != nil {
		if errors.Is(err, ledger.ErrNoSummaries) {
			return time.Time{}, nil
		}
		return time.Time{}, fmt.Errorf("reading latest summary: %w", err)
	}

	return latest.SpanEnd, nil
}

func (n *Navigator) summariesEndingAfter(ctx context.Context, t time.Time) ([]*ledger.Summary, error) {
	// The summary ledger stays small, so scanning the recent window is
	// cheaper than a dedicated query.
	recent, err := n.store.RecentSummaries(ctx, math.MaxInt32)
	if err != nil {
		return nil, fmt.Errorf("reading summaries: %w", err)
	}

	var out []*ledger.Summary
	for i := len(recent) - 1; i >= 0; i-- {
		if recent[i].SpanEnd.After(t) {
			out = append(out, recent[i])
		}
	}

	return out, nil
}

func parseTimestamp(timestamp string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339, timestamp)
	if err != nil {
		return time.Time{}, &ValidationError{
			Field:   "timestamp",
			Message: fmt.Sprintf("%q is not RFC3339", timestamp),
		}
	}
	return t.UTC(), nil
}

func reverse[S ~[]E, E any](s S) {
	for i, j := 0, len(s)-1; i < j; i, j = i+1, j-1 {
		s[i], s[j] = s[j], s[i]
	}
}
