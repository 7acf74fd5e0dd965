// Package syncer persists ledger snapshots to the backend store. Writes
// are debounced: mutations call Notify and the syncer coalesces bursts
// into one save. Repeated failures trip a breaker that stops automatic
// saves until a manual ForceSync succeeds; failed snapshots are parked
// in a fallback store so nothing is lost while the primary is down.
package syncer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/getsentry/sentry-go"

	"monbudget/internal/backend"
	"monbudget/internal/core"
)

// MaxSyncErrors is how many consecutive failures trip the breaker.
const MaxSyncErrors = 3

// DefaultDebounce is the quiet period after the last Notify before a
// save fires.
const DefaultDebounce = 2 * time.Second

// ErrSyncInFlight is returned by ForceSync while another sync is
// already running.
var ErrSyncInFlight = errors.New("sync already in flight")

// Publisher announces persisted revisions; wired to the AMQP client.
type Publisher interface {
	PublishSnapshotSync(ctx context.Context, revision int64, source string) error
}

type Syncer struct {
	source    func() *core.Snapshot
	store     backend.SnapshotStore
	fallback  backend.SnapshotStore
	pub       Publisher
	debounce  time.Duration
	maxErrors int
	logger    *slog.Logger

	notify   chan struct{}
	shutdown chan struct{}
	done     chan struct{}

	inFlight atomic.Bool
	revision atomic.Int64

	mu        sync.Mutex
	errorSeq  int
	suspended bool
}

// Option configures a Syncer.
type Option func(*Syncer)

// WithDebounce overrides the quiet period.
func WithDebounce(d time.Duration) Option {
	return func(s *Syncer) { s.debounce = d }
}

// WithFallback sets the store that receives snapshots the primary
// rejected.
func WithFallback(store backend.SnapshotStore) Option {
	return func(s *Syncer) { s.fallback = store }
}

// WithPublisher wires the revision announcer.
func WithPublisher(pub Publisher) Option {
	return func(s *Syncer) { s.pub = pub }
}

// WithLogger overrides the default logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Syncer) { s.logger = logger }
}

// WithMaxErrors overrides how many consecutive failures trip the
// breaker.
func WithMaxErrors(n int) Option {
	return func(s *Syncer) {
		if n > 0 {
			s.maxErrors = n
		}
	}
}

// New starts the sync loop. source must return a self-contained copy of
// the ledger.
func New(source func() *core.Snapshot, store backend.SnapshotStore, opts ...Option) *Syncer {
	s := &Syncer{
		source:    source,
		store:     store,
		debounce:  DefaultDebounce,
		maxErrors: MaxSyncErrors,
		logger:    slog.Default(),
		notify:    make(chan struct{}, 1),
		shutdown:  make(chan struct{}),
		done:      make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	go s.run()
	return s
}

// Notify schedules a save after the debounce window. Safe to call from
// any goroutine; bursts coalesce.
func (s *Syncer) Notify() {
	select {
	case s.notify <- struct{}{}:
	default:
	}
}

// Revision is the last successfully persisted revision.
func (s *Syncer) Revision() int64 {
	return s.revision.Load()
}

// Suspended reports whether the breaker is tripped.
func (s *Syncer) Suspended() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.suspended
}

func (s *Syncer) run() {
	defer close(s.done)

	var timer *time.Timer
	var fire <-chan time.Time

	for {
		select {
		case <-s.notify:
			if s.isSuspended() {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(s.debounce)
			} else {
				if !timer.Stop() {
					select {
					case <-timer.C:
					default:
					}
				}
				timer.Reset(s.debounce)
			}
			fire = timer.C
		case <-fire:
			fire = nil
			if err := s.sync(context.Background()); err != nil {
				s.logger.Warn("Scheduled sync failed", "error", err)
			}
		case <-s.shutdown:
			if timer != nil {
				timer.Stop()
			}
			return
		}
	}
}

// ForceSync persists immediately, bypassing the debounce. A successful
// forced sync also resets a tripped breaker.
func (s *Syncer) ForceSync(ctx context.Context) error {
	err := s.sync(ctx)
	if err == nil {
		s.mu.Lock()
		s.errorSeq = 0
		s.suspended = false
		s.mu.Unlock()
	}
	return err
}

// Shutdown performs a final save and stops the loop.
func (s *Syncer) Shutdown(ctx context.Context) error {
	close(s.shutdown)
	select {
	case <-s.done:
	case <-ctx.Done():
		return ctx.Err()
	}
	return s.sync(ctx)
}

func (s *Syncer) isSuspended() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.suspended
}

func (s *Syncer) sync(ctx context.Context) error {
	if !s.inFlight.CompareAndSwap(false, true) {
		return ErrSyncInFlight
	}
	defer s.inFlight.Store(false)

	snap := s.source()
	if err := s.store.SaveSnapshot(ctx, snap); err != nil {
		s.recordFailure(ctx, snap, err)
		return fmt.Errorf("save snapshot: %w", err)
	}

	revision := s.revision.Add(1)
	s.mu.Lock()
	s.errorSeq = 0
	s.mu.Unlock()

	if s.pub != nil {
		if err := s.pub.PublishSnapshotSync(ctx, revision, "syncer"); err != nil {
			// The snapshot is safe; only the announcement was lost.
			s.logger.Warn("Publishing snapshot revision failed", "revision", revision, "error", err)
		}
	}
	s.logger.Debug("Snapshot persisted", "revision", revision, "budgets", len(snap.Budgets))
	return nil
}

func (s *Syncer) recordFailure(ctx context.Context, snap *core.Snapshot, cause error) {
	s.mu.Lock()
	s.errorSeq++
	seq := s.errorSeq
	tripped := false
	if seq >= s.maxErrors && !s.suspended {
		s.suspended = true
		tripped = true
	}
	s.mu.Unlock()

	s.logger.Error("Snapshot sync failed", "attempt", seq, "error", cause)
	if tripped {
		s.logger.Error("Sync suspended after repeated failures; manual sync required",
			"failures", seq)
		sentry.CaptureException(fmt.Errorf("snapshot sync suspended after %d failures: %w", seq, cause))
	}

	if s.fallback != nil {
		if err := s.fallback.SaveSnapshot(ctx, snap); err != nil {
			s.logger.Error("Fallback snapshot save failed", "error", err)
			sentry.CaptureException(fmt.Errorf("fallback snapshot save failed: %w", err))
		} else {
			s.logger.Info("Snapshot parked in fallback store")
		}
	}
}
