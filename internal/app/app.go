package app

import (
	"context"
	"fmt"

	"github.com/benbjohnson/clock"
	"go.uber.org/zap"

	"github.com/five82/sdqprobe/internal/cache"
	"github.com/five82/sdqprobe/internal/classify"
	"github.com/five82/sdqprobe/internal/config"
	"github.com/five82/sdqprobe/internal/cron"
	"github.com/five82/sdqprobe/internal/logtail"
	"github.com/five82/sdqprobe/internal/metrics"
	"github.com/five82/sdqprobe/internal/report"
	"github.com/five82/sdqprobe/internal/state"
)

// Options configure one monitoring session.
type Options struct {
	Config config.Config
	Logger *zap.Logger
	Clock  clock.Clock
	// Table is the crontab to install into; nil uses crontab(1) for
	// Config.CronUser.
	Table cron.Table
	// Metrics is used when set; otherwise one is created if
	// Config.MetricsAddr is non-empty.
	Metrics *metrics.Metrics
}

// Summary describes a finished session.
type Summary struct {
	Result   Result
	Snapshot state.Snapshot
	Marker   string
}

// Run prepares the workspace, installs the cron job, and monitors the syslog
// until the runtime elapses, ctx is cancelled, or a component fails. Setup
// problems are returned as an error; how the monitoring itself ended is in
// Summary.Result.
func Run(ctx context.Context, opts Options) (Summary, error) {
	cfg := opts.Config
	if err := cfg.Validate(); err != nil {
		return Summary{}, err
	}
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	clk := opts.Clock
	if clk == nil {
		clk = clock.New()
	}

	if err := PrepareWorkspace(cfg, log); err != nil {
		return Summary{}, err
	}

	table := opts.Table
	if table == nil {
		table = cron.Crontab{User: cfg.CronUser}
	}
	job := cron.Job{Minutes: cfg.Minutes, Command: cfg.CronCommand(), Comment: cfg.Comment}
	if err := cron.NewScheduler(table, log).Install(ctx, job); err != nil {
		return Summary{}, fmt.Errorf("install cron job: %w", err)
	}

	tailer, err := logtail.Open(cfg.Syslog, logtail.Options{
		PollInterval: cfg.PollInterval.Std(),
		MissingGrace: cfg.MissingGrace.Std(),
		Logger:       log,
	})
	if err != nil {
		return Summary{}, err
	}
	defer tailer.Close()

	m := opts.Metrics
	if m == nil && cfg.MetricsAddr != "" {
		m = metrics.New()
	}

	store := &state.Store{}
	store.Start(clk.Now())

	marker := cfg.TouchMarker()
	window := cache.New(cfg.Window(), cfg.CacheCapacity, clk)
	file := report.NewFile(cfg.ReportFile, clk)

	monitor := &Monitor{
		Source:     tailer,
		Classifier: classify.New(marker, cfg.FailureKeywords),
		Cache:      window,
		Report:     file,
		Rotator:    report.NewRotator(file, cfg.ArchivePath(), cfg.RotateAfter),
		Clock:      clk,
		Store:      store,
		Metrics:    m,
		Logger:     log,
	}
	reporter := &Reporter{
		Counter:    window,
		Sink:       file,
		Interval:   cfg.ReportInterval.Std(),
		StaleAfter: cfg.StaleAfter(),
		Clock:      clk,
		Store:      store,
		Metrics:    m,
		Logger:     log,
	}

	tasks := []Task{monitor.Run, reporter.Run}
	if cfg.MetricsAddr != "" {
		tasks = append(tasks, func(ctx context.Context) error {
			return m.Serve(ctx, cfg.MetricsAddr, log)
		})
	}

	log.Info("monitoring",
		zap.String("syslog", cfg.Syslog),
		zap.String("marker", marker),
		zap.String("report", cfg.ReportFile),
		zap.String("archive", cfg.ArchivePath()),
		zap.Int("minutes", cfg.Minutes),
		zap.Duration("runtime", cfg.Runtime()))

	sup := &Supervisor{Runtime: cfg.Runtime(), Clock: clk, Logger: log}
	res := sup.Run(ctx, tasks...)
	if res.Err != nil {
		store.RecordError(res.Err)
	}
	return Summary{Result: res, Snapshot: store.Snapshot(), Marker: marker}, nil
}
