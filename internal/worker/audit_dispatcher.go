package worker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/auth-service/internal/domain"
	"github.com/spec-kit/auth-service/internal/observability"
)

// Overflow policies for a full queue.
const (
	OverflowDrop = "drop"
	OverflowWait = "wait"
)

const (
	defaultWorkers      = 4
	defaultQueueSize    = 1024
	defaultWriteTimeout = 2 * time.Second
)

// AuditWriter persists a single audit event.
type AuditWriter interface {
	Append(ctx context.Context, event *domain.AuditEvent) error
}

// AuditOptions tunes the dispatcher.
type AuditOptions struct {
	Workers        int
	QueueSize      int
	OverflowPolicy string
	// EnqueueTimeout bounds how long the wait policy blocks a caller.
	EnqueueTimeout time.Duration
	WriteTimeout   time.Duration
	Clock          func() time.Time
}

// AuditDispatcher records audit events off the request path. Callers never
// observe write failures; those are logged and counted.
type AuditDispatcher struct {
	writer  AuditWriter
	logger  *zap.Logger
	metrics *observability.Metrics
	opts    AuditOptions
	queue   chan domain.AuditEvent

	mu      sync.RWMutex
	closed  bool
	started bool
	wg      sync.WaitGroup
}

// NewAuditDispatcher builds a dispatcher; Start must be called before events
// are written.
func NewAuditDispatcher(writer AuditWriter, logger *zap.Logger, metrics *observability.Metrics, opts AuditOptions) *AuditDispatcher {
	if opts.Workers <= 0 {
		opts.Workers = defaultWorkers
	}
	if opts.QueueSize <= 0 {
		opts.QueueSize = defaultQueueSize
	}
	if opts.OverflowPolicy == "" {
		opts.OverflowPolicy = OverflowDrop
	}
	if opts.WriteTimeout <= 0 {
		opts.WriteTimeout = defaultWriteTimeout
	}
	if opts.Clock == nil {
		opts.Clock = func() time.Time { return time.Now().UTC() }
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuditDispatcher{
		writer:  writer,
		logger:  logger,
		metrics: metrics,
		opts:    opts,
		queue:   make(chan domain.AuditEvent, opts.QueueSize),
	}
}

// Start launches the workers. Writes use a context detached from ctx's
// cancellation so queued events still drain during shutdown.
func (d *AuditDispatcher) Start(ctx context.Context) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.started || d.closed {
		return
	}
	d.started = true

	base := context.WithoutCancel(ctx)
	for i := 0; i < d.opts.Workers; i++ {
		d.wg.Add(1)
		go d.runWorker(base, i)
	}
}

// RecordAsync queues an event stamped with the current time. It never
// returns an error and never blocks longer than the enqueue timeout.
func (d *AuditDispatcher) RecordAsync(username string, action domain.AuditAction) {
	event := domain.AuditEvent{
		ID:        uuid.NewString(),
		Username:  username,
		Action:    action,
		Timestamp: d.opts.Clock(),
	}

	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		d.drop(event, "dispatcher closed")
		return
	}

	select {
	case d.queue <- event:
		d.metrics.SetAuditQueueDepth(len(d.queue))
		return
	default:
	}

	if d.opts.OverflowPolicy != OverflowWait || d.opts.EnqueueTimeout <= 0 {
		d.drop(event, "queue full")
		return
	}

	timer := time.NewTimer(d.opts.EnqueueTimeout)
	defer timer.Stop()
	select {
	case d.queue <- event:
		d.metrics.SetAuditQueueDepth(len(d.queue))
	case <-timer.C:
		d.drop(event, "queue full after wait")
	}
}

// Shutdown stops accepting events and waits for queued ones to be written.
// It returns ctx's error if the queue did not drain in time.
func (d *AuditDispatcher) Shutdown(ctx context.Context) error {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return nil
	}
	d.closed = true
	close(d.queue)
	started := d.started
	d.mu.Unlock()

	if !started {
		if n := len(d.queue); n > 0 {
			d.logger.Warn("audit dispatcher never started; discarding events", zap.Int("pending", n))
		}
		return nil
	}

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		d.logger.Warn("audit queue not drained before shutdown deadline", zap.Int("pending", len(d.queue)))
		return ctx.Err()
	}
}

// Pending reports the number of queued events.
func (d *AuditDispatcher) Pending() int {
	return len(d.queue)
}

func (d *AuditDispatcher) runWorker(ctx context.Context, id int) {
	defer d.wg.Done()
	for event := range d.queue {
		d.metrics.SetAuditQueueDepth(len(d.queue))
		if err := d.write(ctx, event); err != nil {
			d.metrics.RecordAudit(observability.AuditFailed)
			d.logger.Error("audit write failed",
				zap.Int("worker_id", id),
				zap.String("event_id", event.ID),
				zap.String("username", event.Username),
				zap.String("action", string(event.Action)),
				zap.Error(err),
			)
			continue
		}
		d.metrics.RecordAudit(observability.AuditWritten)
	}
}

func (d *AuditDispatcher) write(ctx context.Context, event domain.AuditEvent) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("audit writer panic: %v", r)
		}
	}()

	writeCtx, cancel := context.WithTimeout(ctx, d.opts.WriteTimeout)
	defer cancel()

	if err := d.writer.Append(writeCtx, &event); err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return fmt.Errorf("write timed out after %s: %w", d.opts.WriteTimeout, err)
		}
		return err
	}
	return nil
}

func (d *AuditDispatcher) drop(event domain.AuditEvent, reason string) {
	d.metrics.RecordAudit(observability.AuditDropped)
	d.logger.Warn("audit event dropped",
		zap.String("reason", reason),
		zap.String("username", event.Username),
		zap.String("action", string(event.Action)),
	)
}
