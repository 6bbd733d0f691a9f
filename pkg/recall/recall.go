// Package recall assembles memory packages for the agent: a fixed startup
// package when a session opens, and query-driven packages that fan out to
// the anchor index, the fact graph, and the summary ledger in parallel.
// Recall is best-effort by construction: every source failure degrades the
// package instead of failing it.
package recall

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/papercomputeco/ambient/pkg/anchors"
	"github.com/papercomputeco/ambient/pkg/facts"
	"github.com/papercomputeco/ambient/pkg/ledger"
)

// Source section names used in manifests and package text.
const (
	SourceAnchors   = "anchors"
	SourceFacts     = "facts"
	SourceSummaries = "summaries"
	SourceTurns     = "turns"
)

// SourceStats records one source's contribution to a package.
type SourceStats struct {
	Chars int
	Count int
}

// Manifest itemizes where a package's content came from, so the agent can
// tell a thin package (quiet history) from a degraded one (source down).
type Manifest struct {
	Sources    map[string]SourceStats
	TotalChars int
}

// Package is an assembled memory package.
type Package struct {
	Text      string
	Manifest  Manifest
	LatencyMS int64
}

// AnchorSource is the anchor index surface recall needs.
type AnchorSource interface {
	Recent(ctx context.Context, n int) ([]*ledger.Anchor, error)
	Search(ctx context.Context, query string, topK int) ([]anchors.Scored, error)
}

// FactSource is the fact adapter surface recall needs.
type FactSource interface {
	Search(ctx context.Context, query string, returnCount int) []*facts.Fact
}

// Config holds recall tuning. Zero CharBudget disables trimming.
type Config struct {
	CharBudget       int
	LimitPerSource   int
	StartupAnchors   int
	StartupSummaries int
	SourceTimeout    time.Duration
}

// Orchestrator coordinates the recall sources.
type Orchestrator struct {
	anchors AnchorSource
	facts   FactSource
	store   ledger.Driver
	cfg     Config
	logger  *zap.Logger
}

// NewOrchestrator creates a recall orchestrator.
func NewOrchestrator(anchorSource AnchorSource, factSource FactSource, store ledger.Driver, cfg Config, logger *zap.Logger) *Orchestrator {
	return &Orchestrator{
		anchors: anchorSource,
		facts:   factSource,
		store:   store,
		cfg:     cfg,
		logger:  logger,
	}
}

// Startup assembles the fixed session-open package: the most recent anchors
// and summaries, plus every turn newer than the last summary span. The raw
// tail is deliberately uncapped; compaction is what keeps it bounded. The
// fact graph is not consulted: with no query there is nothing to rank
// against.
func (o *Orchestrator) Startup(ctx context.Context) (*Package, error) {
	started := time.Now()

	var sections []section

	recentAnchors, err := o.anchors.Recent(ctx, o.cfg.StartupAnchors)
	if err != nil {
		o.logger.Warn("startup anchor fetch failed", zap.Error(err))
	}
	sections = append(sections, anchorSection(scoredFromAnchors(recentAnchors)))

	summaries, err := o.store.RecentSummaries(ctx, o.cfg.StartupSummaries)
	if err != nil {
		o.logger.Warn("startup summary fetch failed", zap.Error(err))
	}
	sections = append(sections, summarySection(summaries))

	turns, err := o.unsummarizedTail(ctx)
	if err != nil {
		o.logger.Warn("startup turn fetch failed", zap.Error(err))
	}
	sections = append(sections, turnSection(turns))

	pkg := o.assemble(sections)
	pkg.LatencyMS = time.Since(started).Milliseconds()

	return pkg, nil
}

// Recall assembles a query-driven package. The three sources are queried
// concurrently, each under its own timeout; a source that fails or times
// out contributes nothing and the rest of the package stands. An empty
// query degenerates to the startup package.
func (o *Orchestrator) Recall(ctx context.Context, query string, limitPerSource int) (*Package, error) {
	if strings.TrimSpace(query) == "" {
		return o.Startup(ctx)
	}

	started := time.Now()

	if limitPerSource <= 0 {
		limitPerSource = o.cfg.LimitPerSource
	}

	var (
		anchorHits []anchors.Scored
		factHits   []*facts.Fact
		summaries  []*ledger.Summary
	)

	var g errgroup.Group

	g.Go(func() error {
		defer recoverSource(o.logger, SourceAnchors)
		sctx, cancel := o.sourceContext(ctx)
		defer cancel()

		hits, err := o.anchors.Search(sctx, query, limitPerSource)
		if err != nil {
			o.logger.Warn("anchor search failed, omitting source",
				zap.String("query", query),
				zap.Error(err),
			)
			return nil
		}
		anchorHits = hits
		return nil
	})

	g.Go(func() error {
		defer recoverSource(o.logger, SourceFacts)
		sctx, cancel := o.sourceContext(ctx)
		defer cancel()

		// The adapter already swallows graph failures.
		factHits = o.facts.Search(sctx, query, limitPerSource)
		return nil
	})

	g.Go(func() error {
		defer recoverSource(o.logger, SourceSummaries)
		sctx, cancel := o.sourceContext(ctx)
		defer cancel()

		recent, err := o.store.RecentSummaries(sctx, limitPerSource)
		if err != nil {
			o.logger.Warn("summary fetch failed, omitting source",
				zap.Error(err),
			)
			return nil
		}
		summaries = recent
		return nil
	})

	// Source goroutines never return errors; Wait is a join point.
	_ = g.Wait()

	pkg := o.assemble([]section{
		anchorSection(anchorHits),
		factSection(factHits),
		summarySection(summaries),
	})
	pkg.LatencyMS = time.Since(started).Milliseconds()

	return pkg, nil
}

func (o *Orchestrator) sourceContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if o.cfg.SourceTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, o.cfg.SourceTimeout)
}

func (o *Orchestrator) unsummarizedTail(ctx context.Context) ([]*ledger.Turn, error) {
	latest, err := o.store.LatestSummary(ctx)
	if err != nil {
		if errors.Is(err, ledger.ErrNoSummaries) {
			return o.store.TurnsSince(ctx, time.Time{}, 0)
		}
		return nil, fmt.Errorf("reading latest summary: %w", err)
	}

	return o.store.TurnsSince(ctx, latest.SpanEnd, 0)
}

func recoverSource(logger *zap.Logger, source string) {
	if r := recover(); r != nil {
		logger.Error("recall source panicked",
			zap.String("source", source),
			zap.Any("panic", r),
		)
	}
}

func scoredFromAnchors(list []*ledger.Anchor) []anchors.Scored {
	out := make([]anchors.Scored, 0, len(list))
	for _, a := range list {
		out = append(out, anchors.Scored{Anchor: a})
	}
	return out
}
