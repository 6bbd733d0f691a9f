// Package claims coordinates exclusive message handling across processes
// sharing one ledger. A claim is a short-lived lock on a (channel,
// external_id) pair: the process that wins the claim responds to the
// message, everyone else drops it. Claims expire on a TTL so a crashed
// holder cannot wedge a message forever.
package claims

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/papercomputeco/ambient/pkg/ledger"
)

// DefaultTTL is the claim lifetime used when none is configured.
const DefaultTTL = 30 * time.Second

// Coordinator arbitrates message claims through the shared ledger.
// A TTL of zero disables claiming entirely: TryClaim always succeeds
// without touching the store, for single-process deployments.
type Coordinator struct {
	store    ledger.Driver
	ttl      time.Duration
	holderID string
	logger   *zap.Logger

	now func() time.Time
}

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithTTL sets the claim lifetime. Zero disables claiming.
func WithTTL(ttl time.Duration) Option {
	return func(c *Coordinator) { c.ttl = ttl }
}

// WithHolderID overrides the generated process identity.
func WithHolderID(id string) Option {
	return func(c *Coordinator) { c.holderID = id }
}

// WithClock overrides the time source, for tests.
func WithClock(now func() time.Time) Option {
	return func(c *Coordinator) { c.now = now }
}

// NewCoordinator creates a claim coordinator with a fresh holder identity.
func NewCoordinator(store ledger.Driver, logger *zap.Logger, opts ...Option) *Coordinator {
	c := &Coordinator{
		store:    store,
		ttl:      DefaultTTL,
		holderID: uuid.NewString(),
		logger:   logger,
		now:      time.Now,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// HolderID returns this coordinator's process identity.
func (c *Coordinator) HolderID() string {
	return c.holderID
}

// TryClaim attempts to claim the message identified by (channel, externalID).
// It returns true when this process holds the claim and should respond, and
// false when another live holder already has it. Contention is an expected
// outcome, not an error. Expired claims are purged first so a message whose
// holder died becomes claimable again.
func (c *Coordinator) TryClaim(ctx context.Context, channel, externalID string) (bool, error) {
	if c.ttl == 0 {
		return true, nil
	}

	now := c.now().UTC()

	if _, err := c.store.PurgeExpiredClaims(ctx, now); err != nil {
		return false, fmt.Errorf("purging expired claims: %w", err)
	}

	claim := &ledger.Claim{
		Channel:    channel,
		ExternalID: externalID,
		HolderID:   c.holderID,
		ClaimedAt:  now,
		ExpiresAt:  now.Add(c.ttl),
	}

	won, err := c.store.InsertClaim(ctx, claim)
	if err != nil {
		return false, fmt.Errorf("inserting claim: %w", err)
	}

	if !won {
		c.logger.Debug("message already claimed",
			zap.String("channel", channel),
			zap.String("external_id", externalID),
		)
	}

	return won, nil
}

// Release drops this process's claim on the message. Claims held by other
// processes are left alone; releasing a claim that is already gone is a
// no-op.
func (c *Coordinator) Release(ctx context.Context, channel, externalID string) error {
	if c.ttl == 0 {
		return nil
	}

	if err := c.store.DeleteClaim(ctx, channel, externalID, c.holderID); err != nil {
		return fmt.Errorf("releasing claim: %w", err)
	}

	return nil
}
