package ledger

import "time"

// Turn is one inbound or outbound conversational message, immutably logged
// in the raw capture store. ID is monotonic within a channel by arrival
// order; ExternalID is the optional dedup key against the upstream source.
type Turn struct {
	ID         int64     `json:"id"`
	ExternalID string    `json:"external_id,omitempty"`
	Channel    string    `json:"channel"`
	Author     string    `json:"author"`
	Content    string    `json:"content"`
	IsAgent    bool      `json:"is_agent"`
	CreatedAt  time.Time `json:"created_at"`
}

// Summary is a compacted textual digest replacing a contiguous,
// non-overlapping span of turns. Immutable once created.
type Summary struct {
	ID        int64     `json:"id"`
	Text      string    `json:"text"`
	SpanStart time.Time `json:"span_start"`
	SpanEnd   time.Time `json:"span_end"`
	Channels  string    `json:"channels,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Claim is a short-lived mutual-exclusion marker preventing double-handling
// of an inbound event by concurrent agent instances. At most one live
// (non-expired) claim exists per (channel, external_id).
type Claim struct {
	Channel    string    `json:"channel"`
	ExternalID string    `json:"external_id"`
	HolderID   string    `json:"holder_id"`
	ClaimedAt  time.Time `json:"claimed_at"`
	ExpiresAt  time.Time `json:"expires_at"`
}

// ActiveSession marks a channel the agent is currently engaged in.
// One row per channel, refreshed per relevant turn, removed on timeout.
type ActiveSession struct {
	Channel        string    `json:"channel"`
	HolderID       string    `json:"holder_id"`
	EnteredAt      time.Time `json:"entered_at"`
	LastActivityAt time.Time `json:"last_activity_at"`
}

// Anchor is a small, hand-curated identity document retrieved by semantic
// similarity at recall time. Anchors are authored explicitly and never
// auto-deleted; UpdatedAt orders the "most recently modified" startup set.
type Anchor struct {
	Name      string    `json:"name"`
	Body      string    `json:"body"`
	UpdatedAt time.Time `json:"updated_at"`
}
