package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/benbjohnson/clock"
	"go.uber.org/zap"

	"github.com/five82/sdqprobe/internal/cache"
	"github.com/five82/sdqprobe/internal/classify"
	"github.com/five82/sdqprobe/internal/metrics"
	"github.com/five82/sdqprobe/internal/report"
	"github.com/five82/sdqprobe/internal/state"
)

// LineSource yields complete log lines in file order. *logtail.Tailer
// implements it.
type LineSource interface {
	Next(ctx context.Context) (string, error)
}

// Monitor is the tail-scan loop: it classifies each new log line and routes
// touches to the cache and rotator and failures to the report file.
type Monitor struct {
	Source     LineSource
	Classifier classify.Classifier
	Cache      *cache.Expiring
	Report     *report.File
	Rotator    *report.Rotator

	Clock   clock.Clock
	Store   *state.Store
	Metrics *metrics.Metrics
	Logger  *zap.Logger
}

func (m *Monitor) defaults() error {
	if m.Source == nil || m.Cache == nil || m.Report == nil || m.Rotator == nil {
		return fmt.Errorf("monitor needs a source, cache, report, and rotator")
	}
	if m.Clock == nil {
		m.Clock = clock.New()
	}
	if m.Store == nil {
		m.Store = &state.Store{}
	}
	if m.Logger == nil {
		m.Logger = zap.NewNop()
	}
	return nil
}

// Run processes lines until ctx is done (returning nil) or a fatal error
// occurs in the tailer, the report file, or rotation.
func (m *Monitor) Run(ctx context.Context) error {
	if err := m.defaults(); err != nil {
		return err
	}
	for {
		line, err := m.Source.Next(ctx)
		if err != nil {
			if ctx.Err() != nil && (errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)) {
				return nil
			}
			return fmt.Errorf("tail log: %w", err)
		}
		if err := m.Handle(line); err != nil {
			return err
		}
	}
}

// Handle classifies and records a single line. A touch is counted before the
// rotation check, so the line that crosses the threshold belongs to the batch
// it completes.
func (m *Monitor) Handle(line string) error {
	if err := m.defaults(); err != nil {
		return err
	}
	log := m.Logger.Named("monitor")

	switch m.Classifier.Classify(line) {
	case classify.Touch:
		now := m.Clock.Now()
		m.Cache.Insert(now, line)
		m.Store.RecordTouch(now)
		m.Metrics.ObserveTouch(now)
		log.Debug("touch", zap.String("line", line))

		archived, err := m.Rotator.Touch()
		if err != nil {
			return err
		}
		if archived != "" {
			m.Store.RecordRotation(archived)
			m.Metrics.ObserveRotation()
			log.Info("report rotated", zap.String("archive", archived))
		}

	case classify.Failure:
		keyword := m.Classifier.FailureKeyword(line)
		if err := m.Report.AppendFailure(line); err != nil {
			return fmt.Errorf("record failure: %w", err)
		}
		m.Store.RecordFailure(keyword)
		m.Metrics.ObserveFailure(keyword)
		log.Debug("failure", zap.String("keyword", keyword))
	}
	return nil
}
