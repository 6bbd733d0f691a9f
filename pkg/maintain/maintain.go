// Package maintain runs the background upkeep loop: summary compaction,
// curation sweeps, expired claim purges, and idle session expiry. It is
// designed to run as its own process sharing the backing stores with the
// conversational surface, so every job tolerates concurrent siblings.
package maintain

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/papercomputeco/ambient/pkg/curation"
	"github.com/papercomputeco/ambient/pkg/ledger"
)

// Default schedules for the jobs that are not user-configured.
const (
	defaultCompactionSchedule = "@every 5m"
	defaultClaimPurgeSchedule = "@every 1m"
	defaultSessionSchedule    = "@every 5m"
)

// Compacter is the compaction surface the runner drives.
type Compacter interface {
	Compact(ctx context.Context) (*ledger.Summary, error)
}

// Curator is the curation surface the runner drives.
type Curator interface {
	Curate(ctx context.Context, sampleQueries []string, dryRun bool) (*curation.Report, error)
}

// Config holds the maintenance schedules and knobs.
type Config struct {
	// CompactionSchedule overrides the default compaction cadence.
	CompactionSchedule string

	// CurationSchedule is a cron expression; empty disables curation.
	CurationSchedule string
	CurationQueries  []string
	CurationDryRun   bool

	// SessionTimeout is the idle cutoff for active sessions; zero
	// disables session expiry.
	SessionTimeout time.Duration
}

// Runner schedules and executes the maintenance jobs.
type Runner struct {
	store     ledger.Driver
	compacter Compacter
	curator   Curator
	cfg       Config
	logger    *zap.Logger
	cron      *cron.Cron

	now func() time.Time
}

// NewRunner creates a maintenance runner over the shared stores.
func NewRunner(store ledger.Driver, compacter Compacter, curator Curator, cfg Config, logger *zap.Logger) *Runner {
	return &Runner{
		store:     store,
		compacter: compacter,
		curator:   curator,
		cfg:       cfg,
		logger:    logger,
		cron:      cron.New(),
		now:       time.Now,
	}
}

// Start registers the maintenance jobs and starts the scheduler.
func (r *Runner) Start() error {
	compactionSchedule := r.cfg.CompactionSchedule
	if compactionSchedule == "" {
		compactionSchedule = defaultCompactionSchedule
	}

	if _, err := r.cron.AddFunc(compactionSchedule, r.RunCompaction); err != nil {
		return fmt.Errorf("scheduling compaction: %w", err)
	}

	if _, err := r.cron.AddFunc(defaultClaimPurgeSchedule, r.PurgeClaims); err != nil {
		return fmt.Errorf("scheduling claim purge: %w", err)
	}

	if r.cfg.SessionTimeout > 0 {
		if _, err := r.cron.AddFunc(defaultSessionSchedule, r.PurgeSessions); err != nil {
			return fmt.Errorf("scheduling session expiry: %w", err)
		}
	}

	if r.cfg.CurationSchedule != "" && r.curator != nil {
		if _, err := r.cron.AddFunc(r.cfg.CurationSchedule, r.RunCuration); err != nil {
			return fmt.Errorf("scheduling curation: %w", err)
		}
	}

	r.cron.Start()
	r.logger.Info("maintenance runner started",
		zap.Int("jobs", len(r.cron.Entries())),
	)

	return nil
}

// Stop halts the scheduler and waits for running jobs to finish.
func (r *Runner) Stop() {
	ctx := r.cron.Stop()
	<-ctx.Done()
	r.logger.Info("maintenance runner stopped")
}

// Jobs returns how many jobs are scheduled.
func (r *Runner) Jobs() int {
	return len(r.cron.Entries())
}

// RunCompaction executes one compaction pass.
func (r *Runner) RunCompaction() {
	summary, err := r.compacter.Compact(context.Background())
	if err != nil {
		r.logger.Error("compaction failed", zap.Error(err))
		return
	}

	if summary != nil {
		r.logger.Info("compaction wrote summary",
			zap.Int64("summary_id", summary.ID),
			zap.Time("span_end", summary.SpanEnd),
		)
	}
}

// RunCuration executes one curation sweep.
func (r *Runner) RunCuration() {
	report, err := r.curator.Curate(context.Background(), r.cfg.CurationQueries, r.cfg.CurationDryRun)
	if err != nil {
		r.logger.Error("curation sweep failed", zap.Error(err))
		return
	}

	r.logger.Info("curation sweep ran",
		zap.Int("examined", report.Examined),
		zap.Int("issues", report.IssuesFound),
		zap.Int("deleted", report.Deleted),
		zap.Bool("dry_run", report.DryRun),
	)
}

// PurgeClaims removes expired message claims.
func (r *Runner) PurgeClaims() {
	purged, err := r.store.PurgeExpiredClaims(context.Background(), r.now().UTC())
	if err != nil {
		r.logger.Error("claim purge failed", zap.Error(err))
		return
	}

	if purged > 0 {
		r.logger.Debug("purged expired claims", zap.Int("count", purged))
	}
}

// PurgeSessions removes sessions idle past the timeout.
func (r *Runner) PurgeSessions() {
	cutoff := r.now().UTC().Add(-r.cfg.SessionTimeout)

	purged, err := r.store.PurgeIdleSessions(context.Background(), cutoff)
	if err != nil {
		r.logger.Error("session expiry failed", zap.Error(err))
		return
	}

	if purged > 0 {
		r.logger.Debug("expired idle sessions", zap.Int("count", purged))
	}
}
