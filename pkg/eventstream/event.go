package eventstream

import (
	"time"

	"github.com/google/uuid"

	"github.com/papercomputeco/ambient/pkg/ledger"
)

const (
	// SchemaVersionV1 is the first version of the event payload schema.
	SchemaVersionV1 = 1

	// EventTypeTurnCaptured is emitted after a conversation turn is
	// appended to the ledger.
	EventTypeTurnCaptured = "ambient.turn.captured"
)

// TurnCapturedEvent is a transport-neutral event payload for a captured
// turn. Content itself stays in the ledger; the event carries enough to
// key downstream processing without duplicating the transcript.
type TurnCapturedEvent struct {
	SchemaVersion int       `json:"schema_version"`
	EventType     string    `json:"event_type"`
	EventID       string    `json:"event_id"`
	EmittedAt     time.Time `json:"emitted_at"`
	Channel       string    `json:"channel"`
	Author        string    `json:"author"`
	IsAgent       bool      `json:"is_agent"`
	TurnID        int64     `json:"turn_id"`
	ExternalID    string    `json:"external_id,omitempty"`
	ContentChars  int       `json:"content_chars"`
}

// NewTurnCapturedEvent builds the event for a freshly appended turn.
func NewTurnCapturedEvent(turn *ledger.Turn) *TurnCapturedEvent {
	return &TurnCapturedEvent{
		SchemaVersion: SchemaVersionV1,
		EventType:     EventTypeTurnCaptured,
		EventID:       uuid.NewString(),
		EmittedAt:     time.Now().UTC(),
		Channel:       turn.Channel,
		Author:        turn.Author,
		IsAgent:       turn.IsAgent,
		TurnID:        turn.ID,
		ExternalID:    turn.ExternalID,
		ContentChars:  len(turn.Content),
	}
}
