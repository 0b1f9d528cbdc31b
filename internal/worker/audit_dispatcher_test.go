package worker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/spec-kit/auth-service/internal/domain"
	"github.com/spec-kit/auth-service/internal/repository/memory"
)

// gatedWriter blocks every Append until release is closed.
type gatedWriter struct {
	started chan struct{}
	release chan struct{}
	once    sync.Once

	mu     sync.Mutex
	events []domain.AuditEvent
}

func newGatedWriter() *gatedWriter {
	return &gatedWriter{started: make(chan struct{}), release: make(chan struct{})}
}

func (w *gatedWriter) Append(ctx context.Context, event *domain.AuditEvent) error {
	w.once.Do(func() { close(w.started) })
	<-w.release
	w.mu.Lock()
	defer w.mu.Unlock()
	w.events = append(w.events, *event)
	return nil
}

func (w *gatedWriter) count() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.events)
}

type panicWriter struct{}

func (panicWriter) Append(context.Context, *domain.AuditEvent) error { panic("boom") }

func observedLogger() (*zap.Logger, *observer.ObservedLogs) {
	core, logs := observer.New(zap.InfoLevel)
	return zap.New(core), logs
}

func TestAuditDispatcher_WritesAndDrains(t *testing.T) {
	store := memory.NewStore()
	fixed := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	d := NewAuditDispatcher(store.Audit(), zap.NewNop(), nil, AuditOptions{
		Workers:   2,
		QueueSize: 16,
		Clock:     func() time.Time { return fixed },
	})
	d.Start(context.Background())

	d.RecordAsync("alice", domain.AuditActionRegister)
	d.RecordAsync("alice", domain.AuditActionLogin)
	d.RecordAsync("bob", domain.AuditActionLogin)

	require.NoError(t, d.Shutdown(context.Background()))

	events := store.AuditEvents()
	require.Len(t, events, 3)
	for _, e := range events {
		assert.NotEmpty(t, e.ID)
		assert.Equal(t, fixed, e.Timestamp)
	}
}

func TestAuditDispatcher_WriteFailureIsLoggedNotSurfaced(t *testing.T) {
	store := memory.NewStore()
	store.FailAudit(errors.New("disk full"), 0)
	logger, logs := observedLogger()

	d := NewAuditDispatcher(store.Audit(), logger, nil, AuditOptions{Workers: 1, QueueSize: 4})
	d.Start(context.Background())
	d.RecordAsync("alice", domain.AuditActionLogin)
	require.NoError(t, d.Shutdown(context.Background()))

	failed := logs.FilterMessage("audit write failed").All()
	require.Len(t, failed, 1)
	assert.Equal(t, "alice", failed[0].ContextMap()["username"])
	assert.Empty(t, store.AuditEvents())
}

func TestAuditDispatcher_DropsWhenSaturated(t *testing.T) {
	w := newGatedWriter()
	logger, logs := observedLogger()
	d := NewAuditDispatcher(w, logger, nil, AuditOptions{Workers: 1, QueueSize: 1, OverflowPolicy: OverflowDrop})
	d.Start(context.Background())

	d.RecordAsync("a", domain.AuditActionLogin)
	<-w.started
	d.RecordAsync("b", domain.AuditActionLogin)

	start := time.Now()
	d.RecordAsync("c", domain.AuditActionLogin)
	assert.Less(t, time.Since(start), 100*time.Millisecond)
	assert.Equal(t, 1, logs.FilterMessage("audit event dropped").Len())

	close(w.release)
	require.NoError(t, d.Shutdown(context.Background()))
	assert.Equal(t, 2, w.count())
}

func TestAuditDispatcher_WaitPolicyBoundsCaller(t *testing.T) {
	w := newGatedWriter()
	logger, logs := observedLogger()
	d := NewAuditDispatcher(w, logger, nil, AuditOptions{
		Workers:        1,
		QueueSize:      1,
		OverflowPolicy: OverflowWait,
		EnqueueTimeout: 30 * time.Millisecond,
	})
	d.Start(context.Background())

	d.RecordAsync("a", domain.AuditActionLogin)
	<-w.started
	d.RecordAsync("b", domain.AuditActionLogin)

	start := time.Now()
	d.RecordAsync("c", domain.AuditActionLogin)
	elapsed := time.Since(start)
	assert.GreaterOrEqual(t, elapsed, 30*time.Millisecond)
	assert.Less(t, elapsed, time.Second)
	assert.Equal(t, 1, logs.FilterMessage("audit event dropped").Len())

	close(w.release)
	require.NoError(t, d.Shutdown(context.Background()))
}

func TestAuditDispatcher_ShutdownDeadline(t *testing.T) {
	w := newGatedWriter()
	d := NewAuditDispatcher(w, zap.NewNop(), nil, AuditOptions{Workers: 1, QueueSize: 4})
	d.Start(context.Background())
	d.RecordAsync("a", domain.AuditActionLogin)
	<-w.started

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, d.Shutdown(ctx), context.DeadlineExceeded)

	close(w.release)
}

func TestAuditDispatcher_RecordAfterShutdown(t *testing.T) {
	d := NewAuditDispatcher(memory.NewStore().Audit(), zap.NewNop(), nil, AuditOptions{})
	d.Start(context.Background())
	require.NoError(t, d.Shutdown(context.Background()))
	require.NoError(t, d.Shutdown(context.Background()))

	assert.NotPanics(t, func() { d.RecordAsync("alice", domain.AuditActionLogin) })
}

func TestAuditDispatcher_RecoversWriterPanic(t *testing.T) {
	logger, logs := observedLogger()
	d := NewAuditDispatcher(panicWriter{}, logger, nil, AuditOptions{Workers: 1, QueueSize: 2})
	d.Start(context.Background())
	d.RecordAsync("alice", domain.AuditActionLogin)
	d.RecordAsync("bob", domain.AuditActionLogin)
	require.NoError(t, d.Shutdown(context.Background()))

	assert.Equal(t, 2, logs.FilterMessage("audit write failed").Len())
}

func TestAuditDispatcher_WriteTimeout(t *testing.T) {
	store := memory.NewStore()
	store.FailAudit(nil, time.Second)
	logger, logs := observedLogger()

	d := NewAuditDispatcher(store.Audit(), logger, nil, AuditOptions{Workers: 1, QueueSize: 1, WriteTimeout: 20 * time.Millisecond})
	d.Start(context.Background())
	d.RecordAsync("alice", domain.AuditActionLogin)
	require.NoError(t, d.Shutdown(context.Background()))

	assert.Equal(t, 1, logs.FilterMessage("audit write failed").Len())
}
