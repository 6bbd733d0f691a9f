// Package ledger defines the persistent state shared by every ambient
// process: the append-only turn ledger, the summary table, the claim table,
// the active-session table, and the anchor documents.
//
// The Driver interface is the single storage boundary. Multiple independent
// processes (the gateway-facing daemon and the periodic-maintenance process)
// open drivers against the same backing database; cross-process mutual
// exclusion is provided solely by InsertClaim's atomic unique-key semantics,
// never by in-process locks.
package ledger

import (
	"context"
	"time"
)

// Driver persists and retrieves ambient's shared state.
type Driver interface {
	// AppendTurn stores a turn and assigns its ID. Returns true if the turn
	// was newly inserted, false if a turn with the same external_id already
	// exists (upstream redelivery — a no-op, not an error).
	AppendTurn(ctx context.Context, turn *Turn) (bool, error)

	// TurnsSince returns turns created strictly after t, oldest first.
	// limit <= 0 means no cap.
	TurnsSince(ctx context.Context, t time.Time, limit int) ([]*Turn, error)

	// TurnsBefore returns up to limit turns created at or before t,
	// oldest first (the limit applies to the newest such turns).
	TurnsBefore(ctx context.Context, t time.Time, limit int) ([]*Turn, error)

	// TurnsBetween returns turns with start < created_at <= end, oldest first.
	TurnsBetween(ctx context.Context, start, end time.Time) ([]*Turn, error)

	// RecentTurns returns the newest limit turns, oldest first.
	RecentTurns(ctx context.Context, limit int) ([]*Turn, error)

	// CountTurnsSince counts turns created strictly after t.
	CountTurnsSince(ctx context.Context, t time.Time) (int, error)

	// PutSummary stores a new summary and assigns its ID.
	PutSummary(ctx context.Context, summary *Summary) error

	// LatestSummary returns the summary with the newest span end.
	// Returns ErrNoSummaries when none exist.
	LatestSummary(ctx context.Context) (*Summary, error)

	// RecentSummaries returns the n newest summaries, newest first.
	RecentSummaries(ctx context.Context, n int) ([]*Summary, error)

	// InsertClaim atomically inserts a claim row. Returns false when a row
	// for the same (channel, external_id) already exists. The insert must be
	// atomic with respect to the uniqueness constraint: two concurrent
	// holders must not both observe true.
	InsertClaim(ctx context.Context, claim *Claim) (bool, error)

	// DeleteClaim removes a claim held by holderID. Removing a missing or
	// foreign claim is a no-op.
	DeleteClaim(ctx context.Context, channel, externalID, holderID string) error

	// PurgeExpiredClaims removes claims with expires_at < now and reports
	// how many rows were removed.
	PurgeExpiredClaims(ctx context.Context, now time.Time) (int, error)

	// UpsertSession creates or refreshes the active session for a channel.
	UpsertSession(ctx context.Context, channel, holderID string, now time.Time) error

	// Session returns the active session for a channel, or ErrNoSession.
	Session(ctx context.Context, channel string) (*ActiveSession, error)

	// PurgeIdleSessions removes sessions idle since before cutoff and
	// reports how many rows were removed.
	PurgeIdleSessions(ctx context.Context, cutoff time.Time) (int, error)

	// PutAnchor creates or replaces an anchor document, bumping UpdatedAt.
	PutAnchor(ctx context.Context, name, body string) error

	// Anchors returns the named anchors, in the order requested, skipping
	// names that do not exist.
	Anchors(ctx context.Context, names []string) ([]*Anchor, error)

	// RecentAnchors returns the n most recently modified anchors,
	// newest first.
	RecentAnchors(ctx context.Context, n int) ([]*Anchor, error)

	// AllAnchors returns every anchor, newest first.
	AllAnchors(ctx context.Context) ([]*Anchor, error)

	// Close closes the store and releases any resources.
	Close() error
}
