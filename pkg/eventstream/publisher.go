// Package eventstream defines turn-captured events and the publisher
// contract for streaming them to downstream consumers.
package eventstream

import "context"

// Publisher publishes turn events to an event stream backend.
type Publisher interface {
	PublishTurn(ctx context.Context, event *TurnCapturedEvent) error
	Close() error
}
