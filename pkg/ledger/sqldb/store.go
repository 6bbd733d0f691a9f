// Package sqldb implements ledger.Driver on top of database/sql.
//
// The same implementation backs both the SQLite and PostgreSQL drivers; a
// Dialect supplies placeholder rebinding and the few DDL differences. All
// timestamps are normalized to UTC before binding so that range comparisons
// behave identically across backends.
package sqldb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/papercomputeco/ambient/pkg/ledger"
)

// Store implements ledger.Driver over a *sql.DB.
type Store struct {
	db      *sql.DB
	dialect Dialect
}

// NewStore wraps an open database handle and runs schema migration.
func NewStore(ctx context.Context, db *sql.DB, dialect Dialect) (*Store, error) {
	s := &Store{db: db, dialect: dialect}

	if err := s.migrate(ctx); err != nil {
		return nil, fmt.Errorf("migrating ledger schema: %w", err)
	}

	return s, nil
}

// migrate creates the ledger tables. Statements are append-only; existing
// rows are never rewritten.
func (s *Store) migrate(ctx context.Context) error {
	stmts := []string{
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS turns (
			%s,
			external_id TEXT NOT NULL DEFAULT '',
			channel TEXT NOT NULL,
			author TEXT NOT NULL,
			content TEXT NOT NULL,
			is_agent BOOLEAN NOT NULL DEFAULT FALSE,
			created_at TIMESTAMP NOT NULL
		)`, s.dialect.AutoIncrementPK()),
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_turns_external_id
			ON turns (external_id) WHERE external_id <> ''`,
		`CREATE INDEX IF NOT EXISTS idx_turns_created_at ON turns (created_at)`,

		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS summaries (
			%s,
			text TEXT NOT NULL,
			span_start TIMESTAMP NOT NULL,
			span_end TIMESTAMP NOT NULL,
			channels TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMP NOT NULL
		)`, s.dialect.AutoIncrementPK()),
		`CREATE INDEX IF NOT EXISTS idx_summaries_span_end ON summaries (span_end)`,

		`CREATE TABLE IF NOT EXISTS claims (
			channel TEXT NOT NULL,
			external_id TEXT NOT NULL,
			holder_id TEXT NOT NULL,
			claimed_at TIMESTAMP NOT NULL,
			expires_at TIMESTAMP NOT NULL,
			PRIMARY KEY (channel, external_id)
		)`,

		`CREATE TABLE IF NOT EXISTS active_sessions (
			channel TEXT PRIMARY KEY,
			holder_id TEXT NOT NULL,
			entered_at TIMESTAMP NOT NULL,
			last_activity_at TIMESTAMP NOT NULL
		)`,

		`CREATE TABLE IF NOT EXISTS anchors (
			name TEXT PRIMARY KEY,
			body TEXT NOT NULL,
			updated_at TIMESTAMP NOT NULL
		)`,
	}

	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("executing %q: %w", stmt[:40], err)
		}
	}

	return nil
}

// AppendTurn stores a turn, assigning its monotonic ID. A turn whose
// external_id is already present is an upstream redelivery: the insert is
// skipped and (false, nil) is returned.
func (s *Store) AppendTurn(ctx context.Context, turn *ledger.Turn) (bool, error) {
	if turn.CreatedAt.IsZero() {
		turn.CreatedAt = time.Now()
	}
	turn.CreatedAt = turn.CreatedAt.UTC()

	query := s.dialect.Rebind(`INSERT INTO turns
		(external_id, channel, author, content, is_agent, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (external_id) WHERE external_id <> '' DO NOTHING
		RETURNING id`)

	err := s.db.QueryRowContext(ctx, query,
		turn.ExternalID, turn.Channel, turn.Author, turn.Content,
		turn.IsAgent, turn.CreatedAt,
	).Scan(&turn.ID)

	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("inserting turn: %w", err)
	}

	return true, nil
}

const turnColumns = `id, external_id, channel, author, content, is_agent, created_at`

func (s *Store) scanTurns(rows *sql.Rows) ([]*ledger.Turn, error) {
	var turns []*ledger.Turn
	for rows.Next() {
		var t ledger.Turn
		if err := rows.Scan(&t.ID, &t.ExternalID, &t.Channel, &t.Author,
			&t.Content, &t.IsAgent, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning turn: %w", err)
		}
		t.CreatedAt = t.CreatedAt.UTC()
		turns = append(turns, &t)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating turns: %w", err)
	}

	return turns, nil
}

func (s *Store) queryTurns(ctx context.Context, query string, args ...any) ([]*ledger.Turn, error) {
	rows, err := s.db.QueryContext(ctx, s.dialect.Rebind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("querying turns: %w", err)
	}
	defer rows.Close()

	return s.scanTurns(rows)
}

// TurnsSince returns turns created strictly after t, oldest first.
func (s *Store) TurnsSince(ctx context.Context, t time.Time, limit int) ([]*ledger.Turn, error) {
	query := `SELECT ` + turnColumns + ` FROM turns WHERE created_at > ? ORDER BY id ASC`
	if limit > 0 {
		return s.queryTurns(ctx, query+` LIMIT ?`, t.UTC(), limit)
	}
	return s.queryTurns(ctx, query, t.UTC())
}

// TurnsBefore returns the newest limit turns created at or before t,
// reordered oldest first.
func (s *Store) TurnsBefore(ctx context.Context, t time.Time, limit int) ([]*ledger.Turn, error) {
	if limit <= 0 {
		return nil, nil
	}

	turns, err := s.queryTurns(ctx,
		`SELECT `+turnColumns+` FROM turns WHERE created_at <= ? ORDER BY id DESC LIMIT ?`,
		t.UTC(), limit)
	if err != nil {
		return nil, err
	}

	reverse(turns)
	return turns, nil
}

// TurnsBetween returns turns with start < created_at <= end, oldest first.
func (s *Store) TurnsBetween(ctx context.Context, start, end time.Time) ([]*ledger.Turn, error) {
	return s.queryTurns(ctx,
		`SELECT `+turnColumns+` FROM turns WHERE created_at > ? AND created_at <= ? ORDER BY id ASC`,
		start.UTC(), end.UTC())
}

// RecentTurns returns the newest limit turns, reordered oldest first.
func (s *Store) RecentTurns(ctx context.Context, limit int) ([]*ledger.Turn, error) {
	if limit <= 0 {
		return nil, nil
	}

	turns, err := s.queryTurns(ctx,
		`SELECT `+turnColumns+` FROM turns ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}

	reverse(turns)
	return turns, nil
}

// CountTurnsSince counts turns created strictly after t.
func (s *Store) CountTurnsSince(ctx context.Context, t time.Time) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		s.dialect.Rebind(`SELECT COUNT(*) FROM turns WHERE created_at > ?`),
		t.UTC(),
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("counting turns: %w", err)
	}

	return count, nil
}

// PutSummary stores a new summary, assigning its ID.
func (s *Store) PutSummary(ctx context.Context, summary *ledger.Summary) error {
	if summary.CreatedAt.IsZero() {
		summary.CreatedAt = time.Now()
	}
	summary.CreatedAt = summary.CreatedAt.UTC()
	summary.SpanStart = summary.SpanStart.UTC()
	summary.SpanEnd = summary.SpanEnd.UTC()

	query := s.dialect.Rebind(`INSERT INTO summaries
		(text, span_start, span_end, channels, created_at)
		VALUES (?, ?, ?, ?, ?)
		RETURNING id`)

	err := s.db.QueryRowContext(ctx, query,
		summary.Text, summary.SpanStart, summary.SpanEnd,
		summary.Channels, summary.CreatedAt,
	).Scan(&summary.ID)
	if err != nil {
		return fmt.Errorf("inserting summary: %w", err)
	}

	return nil
}

const summaryColumns = `id, text, span_start, span_end, channels, created_at`

func (s *Store) scanSummaries(rows *sql.Rows) ([]*ledger.Summary, error) {
	var summaries []*ledger.Summary
	for rows.Next() {
		var sum ledger.Summary
		if err := rows.Scan(&sum.ID, &sum.Text, &sum.SpanStart, &sum.SpanEnd,
			&sum.Channels, &sum.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning summary: %w", err)
		}
		sum.SpanStart = sum.SpanStart.UTC()
		sum.SpanEnd = sum.SpanEnd.UTC()
		sum.CreatedAt = sum.CreatedAt.UTC()
		summaries = append(summaries, &sum)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating summaries: %w", err)
	}

	return summaries, nil
}

// LatestSummary returns the summary with the newest span end.
func (s *Store) LatestSummary(ctx context.Context) (*ledger.Summary, error) {
	rows, err := s.db.QueryContext(ctx, s.dialect.Rebind(
		`SELECT `+summaryColumns+` FROM summaries ORDER BY span_end DESC, id DESC LIMIT 1`))
	if err != nil {
		return nil, fmt.Errorf("querying latest summary: %w", err)
	}
	defer rows.Close()

	summaries, err := s.scanSummaries(rows)
	if err != nil {
		return nil, err
	}
	if len(summaries) == 0 {
		return nil, ledger.ErrNoSummaries
	}

	return summaries[0], nil
}

// RecentSummaries returns the n newest summaries, newest first.
func (s *Store) RecentSummaries(ctx context.Context, n int) ([]*ledger.Summary, error) {
	if n <= 0 {
		return nil, nil
	}

	rows, err := s.db.QueryContext(ctx, s.dialect.Rebind(
		`SELECT `+summaryColumns+` FROM summaries ORDER BY span_end DESC, id DESC LIMIT ?`), n)
	if err != nil {
		return nil, fmt.Errorf("querying recent summaries: %w", err)
	}
	defer rows.Close()

	return s.scanSummaries(rows)
}

// InsertClaim atomically inserts a claim row. The uniqueness constraint on
// (channel, external_id) is the entire cross-process mutual exclusion story:
// of two concurrent inserts exactly one reports a row affected.
func (s *Store) InsertClaim(ctx context.Context, claim *ledger.Claim) (bool, error) {
	claim.ClaimedAt = claim.ClaimedAt.UTC()
	claim.ExpiresAt = claim.ExpiresAt.UTC()

	result, err := s.db.ExecContext(ctx, s.dialect.Rebind(`INSERT INTO claims
		(channel, external_id, holder_id, claimed_at, expires_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (channel, external_id) DO NOTHING`),
		claim.Channel, claim.ExternalID, claim.HolderID,
		claim.ClaimedAt, claim.ExpiresAt)
	if err != nil {
		return false, fmt.Errorf("inserting claim: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("checking claim insert: %w", err)
	}

	return affected == 1, nil
}

// DeleteClaim removes a claim held by holderID. A missing or foreign claim
// is left alone without error.
func (s *Store) DeleteClaim(ctx context.Context, channel, externalID, holderID string) error {
	_, err := s.db.ExecContext(ctx, s.dialect.Rebind(
		`DELETE FROM claims WHERE channel = ? AND external_id = ? AND holder_id = ?`),
		channel, externalID, holderID)
	if err != nil {
		return fmt.Errorf("deleting claim: %w", err)
	}

	return nil
}

// PurgeExpiredClaims removes claims whose expiry has passed.
func (s *Store) PurgeExpiredClaims(ctx context.Context, now time.Time) (int, error) {
	result, err := s.db.ExecContext(ctx, s.dialect.Rebind(
		`DELETE FROM claims WHERE expires_at < ?`), now.UTC())
	if err != nil {
		return 0, fmt.Errorf("purging claims: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("counting purged claims: %w", err)
	}

	return int(affected), nil
}

// UpsertSession creates or refreshes the active session for a channel.
func (s *Store) UpsertSession(ctx context.Context, channel, holderID string, now time.Time) error {
	_, err := s.db.ExecContext(ctx, s.dialect.Rebind(`INSERT INTO active_sessions
		(channel, holder_id, entered_at, last_activity_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (channel) DO UPDATE SET
			holder_id = excluded.holder_id,
			last_activity_at = excluded.last_activity_at`),
		channel, holderID, now.UTC(), now.UTC())
	if err != nil {
		return fmt.Errorf("upserting session: %w", err)
	}

	return nil
}

// Session returns the active session for a channel.
func (s *Store) Session(ctx context.Context, channel string) (*ledger.ActiveSession, error) {
	var sess ledger.ActiveSession
	err := s.db.QueryRowContext(ctx, s.dialect.Rebind(
		`SELECT channel, holder_id, entered_at, last_activity_at
		FROM active_sessions WHERE channel = ?`), channel,
	).Scan(&sess.Channel, &sess.HolderID, &sess.EnteredAt, &sess.LastActivityAt)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, ledger.ErrNoSession
	}
	if err != nil {
		return nil, fmt.Errorf("querying session: %w", err)
	}

	sess.EnteredAt = sess.EnteredAt.UTC()
	sess.LastActivityAt = sess.LastActivityAt.UTC()

	return &sess, nil
}

// PurgeIdleSessions removes sessions idle since before cutoff.
func (s *Store) PurgeIdleSessions(ctx context.Context, cutoff time.Time) (int, error) {
	result, err := s.db.ExecContext(ctx, s.dialect.Rebind(
		`DELETE FROM active_sessions WHERE last_activity_at < ?`), cutoff.UTC())
	if err != nil {
		return 0, fmt.Errorf("purging sessions: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("counting purged sessions: %w", err)
	}

	return int(affected), nil
}

// PutAnchor creates or replaces an anchor document, bumping UpdatedAt.
func (s *Store) PutAnchor(ctx context.Context, name, body string) error {
	_, err := s.db.ExecContext(ctx, s.dialect.Rebind(`INSERT INTO anchors
		(name, body, updated_at) VALUES (?, ?, ?)
		ON CONFLICT (name) DO UPDATE SET
			body = excluded.body,
			updated_at = excluded.updated_at`),
		name, body, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("upserting anchor: %w", err)
	}

	return nil
}

// Anchors returns the named anchors in request order, skipping missing names.
func (s *Store) Anchors(ctx context.Context, names []string) ([]*ledger.Anchor, error) {
	anchors := make([]*ledger.Anchor, 0, len(names))
	for _, name := range names {
		var a ledger.Anchor
		err := s.db.QueryRowContext(ctx, s.dialect.Rebind(
			`SELECT name, body, updated_at FROM anchors WHERE name = ?`), name,
		).Scan(&a.Name, &a.Body, &a.UpdatedAt)

		if errors.Is(err, sql.ErrNoRows) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("querying anchor %s: %w", name, err)
		}

		a.UpdatedAt = a.UpdatedAt.UTC()
		anchors = append(anchors, &a)
	}

	return anchors, nil
}

func (s *Store) queryAnchors(ctx context.Context, query string, args ...any) ([]*ledger.Anchor, error) {
	rows, err := s.db.QueryContext(ctx, s.dialect.Rebind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("querying anchors: %w", err)
	}
	defer rows.Close()

	var anchors []*ledger.Anchor
	for rows.Next() {
		var a ledger.Anchor
		if err := rows.Scan(&a.Name, &a.Body, &a.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scanning anchor: %w", err)
		}
		a.UpdatedAt = a.UpdatedAt.UTC()
		anchors = append(anchors, &a)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating anchors: %w", err)
	}

	return anchors, nil
}

// RecentAnchors returns the n most recently modified anchors, newest first.
func (s *Store) RecentAnchors(ctx context.Context, n int) ([]*ledger.Anchor, error) {
	if n <= 0 {
		return nil, nil
	}

	return s.queryAnchors(ctx,
		`SELECT name, body, updated_at FROM anchors ORDER BY updated_at DESC, name ASC LIMIT ?`, n)
}

// AllAnchors returns every anchor, newest first.
func (s *Store) AllAnchors(ctx context.Context) ([]*ledger.Anchor, error) {
	return s.queryAnchors(ctx,
		`SELECT name, body, updated_at FROM anchors ORDER BY updated_at DESC, name ASC`)
}

// Close closes the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

func reverse(turns []*ledger.Turn) {
	for i, j := 0, len(turns)-1; i < j; i, j = i+1, j-1 {
		turns[i], turns[j] = turns[j], turns[i]
	}
}

// Ensure Store implements ledger.Driver.
var _ ledger.Driver = (*Store)(nil)
