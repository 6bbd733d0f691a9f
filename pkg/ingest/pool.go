// Package ingest provides an asynchronous worker pool for capturing
// conversation turns into the ledger.
//
// The pool decouples capture from the gateway hot path: appending a turn,
// touching the channel session, and publishing the turn event all happen on
// background workers so the conversational surface never blocks on storage.
package ingest

import (
	"context"
	"fmt"
	"math"
	"sync"

	"go.uber.org/zap"

	"github.com/papercomputeco/ambient/pkg/eventstream"
	"github.com/papercomputeco/ambient/pkg/ledger"
)

var (
	defaultNumWorkers   uint = 3
	defaultJobQueueSize uint = 256
)

// Job is a unit of work for the worker pool to execute against.
type Job struct {
	Turn *ledger.Turn
}

// Config is the configuration options for the worker pool.
type Config struct {
	// Driver is the ledger backend for persisting turns.
	Driver ledger.Driver

	// Publisher receives a TurnCapturedEvent after each successful append.
	// Optional; nil disables event publishing.
	Publisher eventstream.Publisher

	// HolderID identifies this process in the active session table.
	HolderID string

	// NumWorkers is the number of background workers in the pool.
	NumWorkers uint

	// QueueSize is the capacity of the buffered job channel (defaults to 256).
	QueueSize uint

	// Logger is the provided zap logger
	Logger *zap.Logger
}

// Pool processes capture jobs asynchronously via a worker pool.
type Pool struct {
	config *Config
	queue  chan Job
	wg     sync.WaitGroup
	logger *zap.Logger
}

// NewPool creates a new Pool and starts its worker goroutines.
func NewPool(c *Config) (*Pool, error) {
	if c.NumWorkers == 0 {
		c.NumWorkers = defaultNumWorkers
	}

	if c.QueueSize == 0 {
		c.QueueSize = defaultJobQueueSize
	}

	if c.NumWorkers > uint(math.MaxInt) {
		return nil, fmt.Errorf("NumWorkers %d exceeds max int", c.NumWorkers)
	}

	wp := &Pool{
		config: c,
		queue:  make(chan Job, c.QueueSize),
		logger: c.Logger,
	}

	wp.wg.Add(int(c.NumWorkers))
	for i := range c.NumWorkers {
		go wp.worker(i)
	}

	return wp, nil
}

// Enqueue submits a job for processing by the worker pool.
// Returns true if enqueued, false if the queue is full, resulting in the job being dropped
func (p *Pool) Enqueue(job Job) bool {
	select {
	case p.queue <- job:
		p.logger.Debug("capture job queued",
			zap.String("channel", job.Turn.Channel),
			zap.String("author", job.Turn.Author),
		)
		return true
	default:
		p.logger.Error("capture job not queued, queue full, job dropped",
			zap.String("channel", job.Turn.Channel),
			zap.String("external_id", job.Turn.ExternalID),
		)
		return false
	}
}

// Close signals workers to stop and waits for in-flight jobs to drain.
// Call this during graceful shutdown after the conversational surface has stopped.
func (p *Pool) Close() {
	close(p.queue)
	p.wg.Wait()
}

// worker is the inner worker thread that continuously pulls jobs off the jobs queue
func (p *Pool) worker(id uint) {
	defer p.wg.Done()
	p.logger.Debug("worker started", zap.Uint("worker_id", id))

	for job := range p.queue {
		p.processJob(job)
	}

	p.logger.Debug("capture worker stopped", zap.Uint("worker_id", id))
}

// processJob appends the turn, touches the channel session, and publishes
// the capture event.
func (p *Pool) processJob(job Job) {
	ctx := context.Background()

	appended, err := p.config.Driver.AppendTurn(ctx, job.Turn)
	if err != nil {
		p.logger.Error("async turn capture failed",
			zap.String("channel", job.Turn.Channel),
			zap.Error(err),
		)
		return
	}

	if !appended {
		// Redelivery of an already-captured message.
		p.logger.Debug("duplicate turn skipped",
			zap.String("channel", job.Turn.Channel),
			zap.String("external_id", job.Turn.ExternalID),
		)
		return
	}

	p.logger.Info("turn captured",
		zap.Int64("turn_id", job.Turn.ID),
		zap.String("channel", job.Turn.Channel),
	)

	if err := p.config.Driver.UpsertSession(ctx, job.Turn.Channel, p.config.HolderID, job.Turn.CreatedAt); err != nil {
		p.logger.Warn("session touch failed",
			zap.String("channel", job.Turn.Channel),
			zap.Error(err),
		)
	}

	if p.config.Publisher != nil {
		event := eventstream.NewTurnCapturedEvent(job.Turn)
		if err := p.config.Publisher.PublishTurn(ctx, event); err != nil {
			p.logger.Warn("turn event publish failed",
				zap.String("event_id", event.EventID),
				zap.Error(err),
			)
		}
	}
}
