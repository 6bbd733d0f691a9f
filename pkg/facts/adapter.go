package facts

import (
	"context"
	"math"
	"sort"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
)

const (
	// DefaultHalfLife controls freshness decay: relevance is scaled by
	// exp(-age/DefaultHalfLife).
	DefaultHalfLife = 14 * 24 * time.Hour

	// undatedMultiplier is applied to facts with no ValidAt timestamp,
	// ranking them below fresh facts but above very stale ones.
	undatedMultiplier = 0.5

	// overFetchFactor is how many candidates are requested from the graph
	// per result returned, giving the diversity pass room to fill from
	// distinct entity pairs.
	overFetchFactor = 2

	// focalCacheTTL bounds how long a resolved focal entity UUID is
	// reused before being re-resolved.
	focalCacheTTL = time.Hour
)

// Adapter wraps a GraphClient with recall-oriented reranking. Retrieval
// failures never surface to callers: recall proceeds with an empty fact
// section and the failure is logged.
type Adapter struct {
	client GraphClient
	logger *zap.Logger

	halfLife       time.Duration
	diversityDedup bool
	focalName      string

	now func() time.Time

	mu              sync.Mutex
	focalUUID       string
	focalResolvedAt time.Time
}

// AdapterOption configures an Adapter.
type AdapterOption func(*Adapter)

// WithHalfLife overrides the freshness half-life.
func WithHalfLife(d time.Duration) AdapterOption {
	return func(a *Adapter) {
		if d > 0 {
			a.halfLife = d
		}
	}
}

// WithDiversityDedup toggles the entity-pair deduplication pass.
func WithDiversityDedup(enabled bool) AdapterOption {
	return func(a *Adapter) { a.diversityDedup = enabled }
}

// WithFocalEntity names the entity whose graph neighborhood is boosted in
// searches. Empty disables proximity bias.
func WithFocalEntity(name string) AdapterOption {
	return func(a *Adapter) { a.focalName = name }
}

// WithAdapterClock overrides the time source, for tests.
func WithAdapterClock(now func() time.Time) AdapterOption {
	return func(a *Adapter) { a.now = now }
}

// NewAdapter creates a fact adapter over the given graph client.
func NewAdapter(client GraphClient, logger *zap.Logger, opts ...AdapterOption) *Adapter {
	a := &Adapter{
		client:         client,
		logger:         logger,
		halfLife:       DefaultHalfLife,
		diversityDedup: true,
		now:            time.Now,
	}

	for _, opt := range opts {
		opt(a)
	}

	return a
}

// Search retrieves up to returnCount facts relevant to the query, reranked
// by freshness and deduplicated by entity pair. Graph connectivity failures
// yield an empty slice, never an error: missing facts degrade recall, they
// must not break it.
func (a *Adapter) Search(ctx context.Context, query string, returnCount int) []*Fact {
	if returnCount <= 0 {
		return nil
	}

	focalUUID := a.resolveFocal(ctx)

	candidates, err := a.client.SearchEdges(ctx, query, returnCount*overFetchFactor, focalUUID)
	if err != nil {
		a.logger.Warn("fact graph search failed, continuing without facts",
			zap.String("query", query),
			zap.Error(err),
		)
		return nil
	}

	a.reweightByFreshness(candidates)

	sortByRelevance(candidates)

	if a.diversityDedup {
		candidates = diversify(candidates)
	}

	if len(candidates) > returnCount {
		candidates = candidates[:returnCount]
	}

	return candidates
}

// reweightByFreshness multiplies each candidate's relevance by an
// exponential age decay. Relevance strictly decreases with age: of two
// otherwise identical facts the older one always ranks lower.
func (a *Adapter) reweightByFreshness(candidates []*Fact) {
	now := a.now().UTC()
	halfLifeDays := a.halfLife.Hours() / 24

	for _, f := range candidates {
		if f.ValidAt == nil {
			f.Relevance *= undatedMultiplier
			continue
		}

		ageDays := now.Sub(f.ValidAt.UTC()).Hours() / 24
		if ageDays < 0 {
			ageDays = 0
		}
		f.Relevance *= math.Exp(-ageDays / halfLifeDays)
	}
}

// pairKey builds an order-insensitive (subject, object) bucket key:
// "alice likes bob" and "bob works-with alice" share a key.
func pairKey(f *Fact) string {
	s := strings.ToLower(strings.TrimSpace(f.Subject))
	o := strings.ToLower(strings.TrimSpace(f.Object))
	if s > o {
		s, o = o, s
	}
	return s + "\x00" + o
}

// diversify splits the ranked candidates into a primary bucket (first
// occurrence of each entity pair) and an overflow bucket (later
// occurrences), then returns primary results first with overflow filling
// the tail. Every entity pair surfaces at least once before any pair
// surfaces twice.
func diversify(ranked []*Fact) []*Fact {
	seen := make(map[string]struct{}, len(ranked))
	primary := make([]*Fact, 0, len(ranked))
	var overflow []*Fact

	for _, f := range ranked {
		key := pairKey(f)
		if _, dup := seen[key]; dup {
			overflow = append(overflow, f)
			continue
		}
		seen[key] = struct{}{}
		primary = append(primary, f)
	}

	return append(primary, overflow...)
}

func sortByRelevance(facts []*Fact) {
	// Stable sort keeps graph order for equal relevance.
	sort.SliceStable(facts, func(i, j int) bool {
		return facts[i].Relevance > facts[j].Relevance
	})
}

// resolveFocal resolves the configured focal entity name to a node UUID,
// caching the result for focalCacheTTL. Resolution failures and ambiguity
// are logged and treated as "no focal bias"; duplicate focal nodes are
// opportunistically merged, with the most recently active node as the
// canonical survivor, without ever blocking the search.
func (a *Adapter) resolveFocal(ctx context.Context) string {
	if a.focalName == "" {
		return ""
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	now := a.now()
	if a.focalUUID != "" && now.Sub(a.focalResolvedAt) < focalCacheTTL {
		return a.focalUUID
	}

	nodes, err := a.client.SearchNodes(ctx, a.focalName, 5)
	if err != nil {
		a.logger.Warn("focal entity resolution failed",
			zap.String("name", a.focalName),
			zap.Error(err),
		)
		return ""
	}

	matches := exactNameMatches(nodes, a.focalName)
	if len(matches) == 0 {
		a.logger.Debug("focal entity not found", zap.String("name", a.focalName))
		return ""
	}

	canonical := mostRecentlyActive(matches)

	if len(matches) > 1 {
		a.mergeDuplicates(ctx, canonical, matches)
	}

	a.focalUUID = canonical.UUID
	a.focalResolvedAt = now

	return a.focalUUID
}

func exactNameMatches(nodes []*EntityNode, name string) []*EntityNode {
	var matches []*EntityNode
	for _, n := range nodes {
		if strings.EqualFold(n.Name, name) {
			matches = append(matches, n)
		}
	}
	return matches
}

// mostRecentlyActive picks the candidate with the latest activity,
// falling back to the first returned when none carry timestamps.
func mostRecentlyActive(matches []*EntityNode) *EntityNode {
	canonical := matches[0]
	for _, n := range matches[1:] {
		if n.LastSeen == nil {
			continue
		}
		if canonical.LastSeen == nil || n.LastSeen.After(*canonical.LastSeen) {
			canonical = n
		}
	}
	return canonical
}

func (a *Adapter) mergeDuplicates(ctx context.Context, canonical *EntityNode, matches []*EntityNode) {
	for _, n := range matches {
		if n.UUID == canonical.UUID {
			continue
		}
		if err := a.client.MergeNodes(ctx, canonical.UUID, n.UUID); err != nil {
			a.logger.Warn("focal entity merge failed",
				zap.String("canonical", canonical.UUID),
				zap.String("duplicate", n.UUID),
				zap.Error(err),
			)
		} else {
			a.logger.Info("merged duplicate focal entity",
				zap.String("name", canonical.Name),
				zap.String("canonical", canonical.UUID),
				zap.String("duplicate", n.UUID),
			)
		}
	}
}
