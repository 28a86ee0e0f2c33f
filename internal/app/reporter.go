package app

import (
	"context"
	"fmt"
	"time"

	"github.com/benbjohnson/clock"
	"go.uber.org/zap"

	"github.com/five82/sdqprobe/internal/metrics"
	"github.com/five82/sdqprobe/internal/state"
)

const defaultReportInterval = 7 * time.Minute

// Counter reports the current windowed touch count.
type Counter interface {
	Size() int
}

// SnapshotWriter persists one count line.
type SnapshotWriter interface {
	AppendSnapshot(count int) error
}

// Reporter appends the windowed touch count to the report file on a fixed
// cadence, independent of the tail loop.
type Reporter struct {
	Counter  Counter
	Sink     SnapshotWriter
	Interval time.Duration
	// StaleAfter, when positive, logs a warning on any tick where no touch
	// has been seen for that long.
	StaleAfter time.Duration

	Clock   clock.Clock
	Store   *state.Store
	Metrics *metrics.Metrics
	Logger  *zap.Logger
}

func (r *Reporter) defaults() error {
	if r.Counter == nil || r.Sink == nil {
		return fmt.Errorf("reporter needs a counter and a sink")
	}
	if r.Interval <= 0 {
		r.Interval = defaultReportInterval
	}
	if r.Clock == nil {
		r.Clock = clock.New()
	}
	if r.Store == nil {
		r.Store = &state.Store{}
	}
	if r.Logger == nil {
		r.Logger = zap.NewNop()
	}
	return nil
}

// Run writes one snapshot per interval until ctx is done, then returns nil.
// The first snapshot comes one full interval after Run starts. Ticks missed
// while a write is slow are dropped rather than replayed. A failed write is
// returned so the supervisor can end the session.
func (r *Reporter) Run(ctx context.Context) error {
	if err := r.defaults(); err != nil {
		return err
	}
	log := r.Logger.Named("reporter")

	ticker := r.Clock.Ticker(r.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := r.tick(log); err != nil {
				return err
			}
		}
	}
}

// Start runs the reporter on its own goroutine and returns immediately. The
// returned stop function cancels future ticks, waits for a tick already in
// progress, and returns the reporter's error, if any.
func (r *Reporter) Start(ctx context.Context) (stop func() error) {
	ctx, cancel := context.WithCancel(ctx)
	done := make(chan error, 1)
	go func() {
		done <- r.Run(ctx)
	}()
	return func() error {
		cancel()
		return <-done
	}
}

func (r *Reporter) tick(log *zap.Logger) error {
	count := r.Counter.Size()
	if err := r.Sink.AppendSnapshot(count); err != nil {
		return fmt.Errorf("write snapshot: %w", err)
	}
	now := r.Clock.Now()
	r.Store.RecordSnapshot(count, now)
	r.Metrics.ObserveSnapshot(count)
	log.Debug("snapshot written", zap.Int("count", count))

	if r.StaleAfter > 0 {
		if snap := r.Store.Snapshot(); snap.Stale(now, r.StaleAfter) {
			log.Warn("no touch seen recently",
				zap.Duration("stale_after", r.StaleAfter),
				zap.Time("last_touch", snap.LastTouch))
		}
	}
	return nil
}
