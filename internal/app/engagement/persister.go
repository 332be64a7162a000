package engagement

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/kickoff-wellness/kickoff/internal/domain"
	"github.com/kickoff-wellness/kickoff/internal/infra/metrics"
	"github.com/kickoff-wellness/kickoff/internal/logger"
)

// ─── Write-Behind Persister ─────────────────────────────────────────────────
// Engine mutations hand their snapshot to the persister and return at once.
// A background loop flushes the newest snapshot per user, plus the journal
// events in order, to the underlying store. Failed writes stay queued and
// are retried on the next flush unless a newer snapshot replaced them.

// PersisterConfig configures the write-behind loop.
type PersisterConfig struct {
	FlushInterval time.Duration
}

// DefaultPersisterConfig batches writes for one second after a change.
func DefaultPersisterConfig() PersisterConfig {
	return PersisterConfig{FlushInterval: time.Second}
}

// Persister is a domain.Store that defers writes to an inner store.
type Persister struct {
	inner  domain.Store
	config PersisterConfig
	log    *slog.Logger

	mu        sync.Mutex
	snapshots map[string]domain.PointsState
	events    []domain.PointEvent
	syncErrs  map[string]error

	flushMu sync.Mutex // serializes flushes

	// Stats
	totalFlushes int64
	totalFailed  int64
}

// NewPersister wraps inner with write-behind buffering.
func NewPersister(inner domain.Store, cfg PersisterConfig) *Persister {
	if cfg.FlushInterval <= 0 {
		cfg.FlushInterval = DefaultPersisterConfig().FlushInterval
	}
	return &Persister{
		inner:     inner,
		config:    cfg,
		log:       logger.Component("persister"),
		snapshots: make(map[string]domain.PointsState),
		syncErrs:  make(map[string]error),
	}
}

// LoadPoints serves a queued snapshot before falling back to the store.
func (p *Persister) LoadPoints(ctx context.Context, userKey string) (*domain.PointsState, error) {
	p.mu.Lock()
	if s, ok := p.snapshots[userKey]; ok {
		p.mu.Unlock()
		c := s.Clone()
		return &c, nil
	}
	p.mu.Unlock()
	return p.inner.LoadPoints(ctx, userKey)
}

// SavePoints queues state and never blocks on I/O.
func (p *Persister) SavePoints(_ context.Context, userKey string, state domain.PointsState) error {
	p.mu.Lock()
	p.snapshots[userKey] = state.Clone()
	metrics.PersistQueueDepth.Set(float64(len(p.snapshots)))
	p.mu.Unlock()
	return nil
}

// AppendPointEvent queues ev behind earlier events.
func (p *Persister) AppendPointEvent(_ context.Context, ev domain.PointEvent) error {
	p.mu.Lock()
	p.events = append(p.events, ev)
	p.mu.Unlock()
	return nil
}

// ListPointEvents flushes queued events first so history is never stale.
func (p *Persister) ListPointEvents(ctx context.Context, userKey string, limit int) ([]domain.PointEvent, error) {
	if err := p.Flush(ctx); err != nil {
		p.log.Warn("flush before history read failed", "error", err)
	}
	return p.inner.ListPointEvents(ctx, userKey, limit)
}

// Ping checks the underlying store.
func (p *Persister) Ping(ctx context.Context) error {
	return p.inner.Ping(ctx)
}

// Close flushes whatever is queued and closes the underlying store.
func (p *Persister) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	flushErr := p.Flush(ctx)
	return errors.Join(flushErr, p.inner.Close())
}

// SyncErr returns the last write failure for userKey, or nil once a later
// flush for that user succeeded.
func (p *Persister) SyncErr(userKey string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.syncErrs[userKey]
}

// Run flushes on every tick until ctx is cancelled, then flushes once more.
func (p *Persister) Run(ctx context.Context) {
	ticker := time.NewTicker(p.config.FlushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			final, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			if err := p.Flush(final); err != nil {
				p.log.Error("final flush failed", "error", err)
			}
			cancel()
			return
		case <-ticker.C:
			if err := p.Flush(ctx); err != nil {
				p.log.Warn("flush failed, will retry", "error", err)
			}
		}
	}
}

// Flush writes every queued snapshot and event to the store.
func (p *Persister) Flush(ctx context.Context) error {
	p.flushMu.Lock()
	defer p.flushMu.Unlock()

	p.mu.Lock()
	snapshots := p.snapshots
	events := p.events
	p.snapshots = make(map[string]domain.PointsState)
	p.events = nil
	p.mu.Unlock()

	if len(snapshots) == 0 && len(events) == 0 {
		return nil
	}

	start := time.Now()
	defer func() { metrics.PersistFlushLatency.Observe(time.Since(start).Seconds()) }()

	var errs []error
	failedSnapshots := make(map[string]domain.PointsState)
	outcome := make(map[string]error, len(snapshots))

	for userKey, state := range snapshots {
		if err := p.inner.SavePoints(ctx, userKey, state); err != nil {
			failedSnapshots[userKey] = state
			outcome[userKey] = err
			errs = append(errs, fmt.Errorf("save %q: %w", userKey, err))
			metrics.PersistFailures.WithLabelValues("flush").Inc()
			continue
		}
		outcome[userKey] = nil
	}

	var failedEvents []domain.PointEvent
	for i, ev := range events {
		if err := p.inner.AppendPointEvent(ctx, ev); err != nil {
			failedEvents = events[i:]
			if outcome[ev.UserKey] == nil {
				outcome[ev.UserKey] = err
			}
			errs = append(errs, fmt.Errorf("append event %s: %w", ev.ID, err))
			metrics.PersistFailures.WithLabelValues("journal").Inc()
			break
		}
	}

	p.mu.Lock()
	for userKey, state := range failedSnapshots {
		if _, newer := p.snapshots[userKey]; !newer {
			p.snapshots[userKey] = state
		}
	}
	if len(failedEvents) > 0 {
		p.events = append(failedEvents, p.events...)
	}
	for userKey, err := range outcome {
		if err != nil {
			p.syncErrs[userKey] = fmt.Errorf("%w: %w", domain.ErrPersistenceUnavailable, err)
		} else {
			delete(p.syncErrs, userKey)
		}
	}
	p.totalFlushes++
	if len(errs) > 0 {
		p.totalFailed++
	}
	metrics.PersistQueueDepth.Set(float64(len(p.snapshots)))
	p.mu.Unlock()

	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", domain.ErrPersistenceUnavailable, errors.Join(errs...))
	}
	return nil
}

// PersisterStats holds write-behind statistics.
type PersisterStats struct {
	QueuedSnapshots int   `json:"queued_snapshots"`
	QueuedEvents    int   `json:"queued_events"`
	TotalFlushes    int64 `json:"total_flushes"`
	TotalFailed     int64 `json:"total_failed"`
}

// Stats returns current persister statistics.
func (p *Persister) Stats() PersisterStats {
	p.mu.Lock()
	defer p.mu.Unlock()
	return PersisterStats{
		QueuedSnapshots: len(p.snapshots),
		QueuedEvents:    len(p.events),
		TotalFlushes:    p.totalFlushes,
		TotalFailed:     p.totalFailed,
	}
}
