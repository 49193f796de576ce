package board

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"kanban/internal/metrics"
)

type collection string

const (
	collTasks   collection = "tasks"
	collSprints collection = "sprints"
	collUsers   collection = "users"
)

// flushOrder is the order in which dirty collections are written.
var flushOrder = []collection{collTasks, collSprints, collUsers}

const shutdownFlushTimeout = 5 * time.Second

// persister writes whole collections back to the repository. Mutations mark
// a collection dirty and kick the run loop; the loop snapshots and saves.
// Marks are dropped while the board is still loading.
type persister struct {
	logger  *slog.Logger
	loading atomic.Bool

	mu    sync.Mutex
	dirty map[collection]bool
	kick  chan struct{}

	// io serializes every repository write so a bulk save and a direct
	// delete cannot interleave.
	io    sync.Mutex
	saves map[collection]func(context.Context) error
}

// newPersister returns a persister that starts in the loading state.
func newPersister(logger *slog.Logger) *persister {
	p := &persister{
		logger: logger,
		dirty:  make(map[collection]bool),
		kick:   make(chan struct{}, 1),
		saves:  make(map[collection]func(context.Context) error),
	}
	p.loading.Store(true)
	return p
}

// register installs the snapshot-and-save function for a collection.
func (p *persister) register(c collection, save func(context.Context) error) {
	p.saves[c] = save
}

// setLoading opens or closes the loading gate.
func (p *persister) setLoading(v bool) {
	p.loading.Store(v)
}

// mark queues a flush of c unless the board is loading.
func (p *persister) mark(c collection) {
	if p.loading.Load() {
		return
	}
	p.mu.Lock()
	p.dirty[c] = true
	p.mu.Unlock()

	select {
	case p.kick <- struct{}{}:
	default:
	}
}

// write runs fn while holding the I/O lock.
func (p *persister) write(ctx context.Context, fn func(context.Context) error) error {
	p.io.Lock()
	defer p.io.Unlock()
	return fn(ctx)
}

// writeUnlessLoading is write, skipped while loading.
func (p *persister) writeUnlessLoading(ctx context.Context, fn func(context.Context) error) error {
	if p.loading.Load() {
		return nil
	}
	return p.write(ctx, fn)
}

// flush writes every dirty collection. Failures are logged and counted; the
// in-memory state is never rolled back.
func (p *persister) flush(ctx context.Context) error {
	p.mu.Lock()
	pending := p.dirty
	p.dirty = make(map[collection]bool)
	p.mu.Unlock()

	var errs []error
	for _, c := range flushOrder {
		if !pending[c] {
			continue
		}
		save, ok := p.saves[c]
		if !ok {
			continue
		}
		if err := p.write(ctx, save); err != nil {
			metrics.PersistFailures.WithLabelValues(string(c)).Inc()
			p.logger.Error("persist collection failed", slog.String("collection", string(c)), slog.String("error", err.Error()))
			errs = append(errs, fmt.Errorf("save %s: %w", c, err))
			continue
		}
		metrics.PersistFlushes.WithLabelValues(string(c)).Inc()
	}
	return errors.Join(errs...)
}

// run flushes on every kick until ctx is cancelled, then performs one last
// flush with a short timeout.
func (p *persister) run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			final, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownFlushTimeout)
			_ = p.flush(final)
			cancel()
			return
		case <-p.kick:
			_ = p.flush(ctx)
		}
	}
}
