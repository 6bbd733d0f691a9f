// Package inmemory provides an in-process ledger.Driver used by tests and
// local development. It mirrors the SQL drivers' semantics, including the
// atomic claim insert, but offers no cross-process guarantees.
package inmemory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/papercomputeco/ambient/pkg/ledger"
)

// Driver implements ledger.Driver using in-process data structures.
type Driver struct {
	mu sync.Mutex

	nextTurnID    int64
	nextSummaryID int64

	turns     []*ledger.Turn
	externals map[string]struct{}
	summaries []*ledger.Summary
	claims    map[claimKey]*ledger.Claim
	sessions  map[string]*ledger.ActiveSession
	anchors   map[string]*ledger.Anchor
}

type claimKey struct {
	channel    string
	externalID string
}

// NewDriver creates an empty in-memory ledger.
func NewDriver() *Driver {
	return &Driver{
		externals: make(map[string]struct{}),
		claims:    make(map[claimKey]*ledger.Claim),
		sessions:  make(map[string]*ledger.ActiveSession),
		anchors:   make(map[string]*ledger.Anchor),
	}
}

func (d *Driver) AppendTurn(_ context.Context, turn *ledger.Turn) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if turn.ExternalID != "" {
		if _, dup := d.externals[turn.ExternalID]; dup {
			return false, nil
		}
		d.externals[turn.ExternalID] = struct{}{}
	}

	if turn.CreatedAt.IsZero() {
		turn.CreatedAt = time.Now()
	}
	turn.CreatedAt = turn.CreatedAt.UTC()

	d.nextTurnID++
	turn.ID = d.nextTurnID

	stored := *turn
	d.turns = append(d.turns, &stored)

	return true, nil
}

func (d *Driver) collectTurns(keep func(*ledger.Turn) bool) []*ledger.Turn {
	var out []*ledger.Turn
	for _, t := range d.turns {
		if keep(t) {
			copied := *t
			out = append(out, &copied)
		}
	}
	return out
}

func (d *Driver) TurnsSince(_ context.Context, t time.Time, limit int) ([]*ledger.Turn, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	out := d.collectTurns(func(turn *ledger.Turn) bool {
		return turn.CreatedAt.After(t)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}

	return out, nil
}

func (d *Driver) TurnsBefore(_ context.Context, t time.Time, limit int) ([]*ledger.Turn, error) {
	if limit <= 0 {
		return nil, nil
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	out := d.collectTurns(func(turn *ledger.Turn) bool {
		return !turn.CreatedAt.After(t)
	})
	if len(out) > limit {
		out = out[len(out)-limit:]
	}

	return out, nil
}

func (d *Driver) TurnsBetween(_ context.Context, start, end time.Time) ([]*ledger.Turn, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	return d.collectTurns(func(turn *ledger.Turn) bool {
		return turn.CreatedAt.After(start) && !turn.CreatedAt.After(end)
	}), nil
}

func (d *Driver) RecentTurns(_ context.Context, limit int) ([]*ledger.Turn, error) {
	if limit <= 0 {
		return nil, nil
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	out := d.collectTurns(func(*ledger.Turn) bool { return true })
	if len(out) > limit {
		out = out[len(out)-limit:]
	}

	return out, nil
}

func (d *Driver) CountTurnsSince(_ context.Context, t time.Time) (int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	count := 0
	for _, turn := range d.turns {
		if turn.CreatedAt.After(t) {
			count++
		}
	}

	return count, nil
}

func (d *Driver) PutSummary(_ context.Context, summary *ledger.Summary) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if summary.CreatedAt.IsZero() {
		summary.CreatedAt = time.Now()
	}

	d.nextSummaryID++
	summary.ID = d.nextSummaryID

	stored := *summary
	d.summaries = append(d.summaries, &stored)

	return nil
}

func (d *Driver) sortedSummaries() []*ledger.Summary {
	out := make([]*ledger.Summary, 0, len(d.summaries))
	for _, s := range d.summaries {
		copied := *s
		out = append(out, &copied)
	}

	// Newest span end first, ties broken by newest ID.
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].SpanEnd.Equal(out[j].SpanEnd) {
			return out[i].SpanEnd.After(out[j].SpanEnd)
		}
		return out[i].ID > out[j].ID
	})

	return out
}

func (d *Driver) LatestSummary(_ context.Context) (*ledger.Summary, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	sorted := d.sortedSummaries()
	if len(sorted) == 0 {
		return nil, ledger.ErrNoSummaries
	}

	return sorted[0], nil
}

func (d *Driver) RecentSummaries(_ context.Context, n int) ([]*ledger.Summary, error) {
	if n <= 0 {
		return nil, nil
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	sorted := d.sortedSummaries()
	if len(sorted) > n {
		sorted = sorted[:n]
	}

	return sorted, nil
}

func (d *Driver) InsertClaim(_ context.Context, claim *ledger.Claim) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	key := claimKey{channel: claim.Channel, externalID: claim.ExternalID}
	if _, held := d.claims[key]; held {
		return false, nil
	}

	stored := *claim
	d.claims[key] = &stored

	return true, nil
}

func (d *Driver) DeleteClaim(_ context.Context, channel, externalID, holderID string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	key := claimKey{channel: channel, externalID: externalID}
	if existing, held := d.claims[key]; held && existing.HolderID == holderID {
		delete(d.claims, key)
	}

	return nil
}

func (d *Driver) PurgeExpiredClaims(_ context.Context, now time.Time) (int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	purged := 0
	for key, claim := range d.claims {
		if claim.ExpiresAt.Before(now) {
			delete(d.claims, key)
			purged++
		}
	}

	return purged, nil
}

func (d *Driver) UpsertSession(_ context.Context, channel, holderID string, now time.Time) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if existing, ok := d.sessions[channel]; ok {
		existing.HolderID = holderID
		existing.LastActivityAt = now
		return nil
	}

	d.sessions[channel] = &ledger.ActiveSession{
		Channel:        channel,
		HolderID:       holderID,
		EnteredAt:      now,
		LastActivityAt: now,
	}

	return nil
}

func (d *Driver) Session(_ context.Context, channel string) (*ledger.ActiveSession, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	sess, ok := d.sessions[channel]
	if !ok {
		return nil, ledger.ErrNoSession
	}

	copied := *sess
	return &copied, nil
}

func (d *Driver) PurgeIdleSessions(_ context.Context, cutoff time.Time) (int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	purged := 0
	for channel, sess := range d.sessions {
		if sess.LastActivityAt.Before(cutoff) {
			delete(d.sessions, channel)
			purged++
		}
	}

	return purged, nil
}

func (d *Driver) PutAnchor(_ context.Context, name, body string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.anchors[name] = &ledger.Anchor{
		Name:      name,
		Body:      body,
		UpdatedAt: time.Now().UTC(),
	}

	return nil
}

// SeedAnchor inserts an anchor with an explicit modification time. Used by
// tests and seed tooling that need deterministic recency ordering.
func (d *Driver) SeedAnchor(name, body string, updatedAt time.Time) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.anchors[name] = &ledger.Anchor{
		Name:      name,
		Body:      body,
		UpdatedAt: updatedAt.UTC(),
	}
}

func (d *Driver) Anchors(_ context.Context, names []string) ([]*ledger.Anchor, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	out := make([]*ledger.Anchor, 0, len(names))
	for _, name := range names {
		if a, ok := d.anchors[name]; ok {
			copied := *a
			out = append(out, &copied)
		}
	}

	return out, nil
}

func (d *Driver) sortedAnchors() []*ledger.Anchor {
	out := make([]*ledger.Anchor, 0, len(d.anchors))
	for _, a := range d.anchors {
		copied := *a
		out = append(out, &copied)
	}

	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].UpdatedAt.Equal(out[j].UpdatedAt) {
			return out[i].UpdatedAt.After(out[j].UpdatedAt)
		}
		return out[i].Name < out[j].Name
	})

	return out
}

func (d *Driver) RecentAnchors(_ context.Context, n int) ([]*ledger.Anchor, error) {
	if n <= 0 {
		return nil, nil
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	sorted := d.sortedAnchors()
	if len(sorted) > n {
		sorted = sorted[:n]
	}

	return sorted, nil
}

func (d *Driver) AllAnchors(_ context.Context) ([]*ledger.Anchor, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	return d.sortedAnchors(), nil
}

// Close is a no-op for the in-memory driver.
func (d *Driver) Close() error {
	return nil
}

// Ensure Driver implements ledger.Driver.
var _ ledger.Driver = (*Driver)(nil)
