package app

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/benbjohnson/clock"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Outcome is the supervisor's state.
type Outcome int32

const (
	Running Outcome = iota
	CompletedOnDeadline
	CompletedOnCancellation
	Failed
)

func (o Outcome) String() string {
	switch o {
	case Running:
		return "running"
	case CompletedOnDeadline:
		return "deadline"
	case CompletedOnCancellation:
		return "cancelled"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

// Task is one long-running activity. It must return nil once ctx is done.
type Task func(ctx context.Context) error

// Result is how a supervised run ended.
type Result struct {
	Outcome Outcome
	Err     error
	Elapsed time.Duration
}

// Success is true for a planned stop: the deadline or an external cancel.
func (r Result) Success() bool {
	return r.Outcome == CompletedOnDeadline || r.Outcome == CompletedOnCancellation
}

// Supervisor runs tasks together, optionally for a bounded time. The first
// task error cancels every other task.
type Supervisor struct {
	// Runtime of zero runs until the parent context is cancelled.
	Runtime time.Duration
	Clock   clock.Clock
	Logger  *zap.Logger

	state atomic.Int32
}

// State returns the current outcome; Running while Run is in progress.
func (s *Supervisor) State() Outcome {
	return Outcome(s.state.Load())
}

// Run blocks until all tasks have returned.
func (s *Supervisor) Run(ctx context.Context, tasks ...Task) Result {
	clk := s.Clock
	if clk == nil {
		clk = clock.New()
	}
	log := s.Logger
	if log == nil {
		log = zap.NewNop()
	}
	log = log.Named("supervisor")

	s.state.Store(int32(Running))
	start := clk.Now()

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	if s.Runtime > 0 {
		var cancelDeadline context.CancelFunc
		runCtx, cancelDeadline = clk.WithTimeout(runCtx, s.Runtime)
		defer cancelDeadline()
		log.Info("bounded run", zap.Duration("runtime", s.Runtime))
	}

	g, gctx := errgroup.WithContext(runCtx)
	for _, task := range tasks {
		g.Go(func() error {
			return task(gctx)
		})
	}
	err := g.Wait()

	res := Result{Elapsed: clk.Since(start)}
	switch {
	case err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded):
		res.Outcome, res.Err = Failed, err
		log.Error("run failed", zap.Error(err), zap.Duration("elapsed", res.Elapsed))
	case s.Runtime > 0 && ctx.Err() == nil && errors.Is(runCtx.Err(), context.DeadlineExceeded):
		res.Outcome = CompletedOnDeadline
		log.Info("deadline reached", zap.Duration("elapsed", res.Elapsed))
	default:
		res.Outcome = CompletedOnCancellation
		log.Info("stopped", zap.Duration("elapsed", res.Elapsed))
	}
	s.state.Store(int32(res.Outcome))
	return res
}
