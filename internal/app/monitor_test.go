package app

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/five82/sdqprobe/internal/cache"
	"github.com/five82/sdqprobe/internal/classify"
	"github.com/five82/sdqprobe/internal/logtail"
	"github.com/five82/sdqprobe/internal/metrics"
	"github.com/five82/sdqprobe/internal/report"
	"github.com/five82/sdqprobe/internal/state"
)

// scriptedSource returns its lines in order, then err (or blocks until ctx
// is done when err is nil).
type scriptedSource struct {
	lines []string
	err   error
}

func (s *scriptedSource) Next(ctx context.Context) (string, error) {
	if len(s.lines) > 0 {
		line := s.lines[0]
		s.lines = s.lines[1:]
		return line, nil
	}
	if s.err != nil {
		return "", s.err
	}
	<-ctx.Done()
	return "", ctx.Err()
}

type monitorFixture struct {
	dir     string
	mock    *clock.Mock
	cache   *cache.Expiring
	report  *report.File
	store   *state.Store
	monitor *Monitor
}

func newMonitorFixture(t *testing.T, threshold int, src LineSource) *monitorFixture {
	t.Helper()
	dir := t.TempDir()
	mock := clock.NewMock()
	mock.Set(time.Date(2026, 10, 18, 10, 0, 0, 0, time.UTC))

	reportPath := filepath.Join(dir, "report.txt")
	file := report.NewFile(reportPath, mock)
	f := &monitorFixture{
		dir:    dir,
		mock:   mock,
		cache:  cache.New(7*time.Minute, 1000, mock),
		report: file,
		store:  &state.Store{},
	}
	f.monitor = &Monitor{
		Source:     src,
		Classifier: classify.New(classify.TouchMarker(reportPath, "SDQScript"), nil),
		Cache:      f.cache,
		Report:     file,
		Rotator:    report.NewRotator(file, filepath.Join(dir, "archive.log"), threshold),
		Clock:      mock,
		Store:      f.store,
		Metrics:    metrics.New(),
	}
	return f
}

func (f *monitorFixture) touchLine() string {
	return "Oct 18 10:00:00 host CRON[1]: (root) CMD (touch " + f.report.Path() + " # SDQScript)\n"
}

func TestMonitor_HandleRoutesLines(t *testing.T) {
	f := newMonitorFixture(t, 15, &scriptedSource{})

	require.NoError(t, f.monitor.Handle(f.touchLine()))
	require.NoError(t, f.monitor.Handle("Oct 18 10:00:01 host app: WARNING low disk\n"))
	require.NoError(t, f.monitor.Handle("Oct 18 10:00:02 host app: all good\n"))

	assert.Equal(t, 1, f.cache.Size())

	data, err := os.ReadFile(f.report.Path())
	require.NoError(t, err)
	assert.Equal(t, "2026-10-18 10:00:00\tOct 18 10:00:01 host app: WARNING low disk\n", string(data))

	snap := f.store.Snapshot()
	assert.Equal(t, 1, snap.Touches)
	assert.Equal(t, 1, snap.Failures)
	assert.Equal(t, 1, snap.FailureByWord["WARNING"])
}

func TestMonitor_TouchOnlyLinesNeverWriteFailures(t *testing.T) {
	f := newMonitorFixture(t, 100, &scriptedSource{})
	for range 5 {
		f.mock.Add(time.Second)
		require.NoError(t, f.monitor.Handle(f.touchLine()))
	}
	_, err := os.Stat(f.report.Path())
	assert.True(t, errors.Is(err, os.ErrNotExist), "no report content without failures or snapshots")
	assert.Equal(t, 5, f.cache.Size())
}

func TestMonitor_RotatesAfterThreshold(t *testing.T) {
	f := newMonitorFixture(t, 3, &scriptedSource{})

	require.NoError(t, f.monitor.Handle("ERROR before rotation\n"))
	for range 3 {
		f.mock.Add(time.Second)
		require.NoError(t, f.monitor.Handle(f.touchLine()))
	}

	archived, err := os.ReadFile(filepath.Join(f.dir, "archive.log"))
	require.NoError(t, err)
	assert.Contains(t, string(archived), "ERROR before rotation")
	_, err = os.Stat(f.report.Path())
	assert.True(t, errors.Is(err, os.ErrNotExist))

	snap := f.store.Snapshot()
	assert.Equal(t, 1, snap.Rotations)
	assert.Equal(t, filepath.Join(f.dir, "archive.log"), snap.LastArchive)
	assert.Equal(t, 3, f.cache.Size(), "the touch that triggers rotation is still counted")
}

func TestMonitor_RunProcessesInOrderAndStopsOnCancel(t *testing.T) {
	src := &scriptedSource{}
	f := newMonitorFixture(t, 15, src)
	src.lines = []string{"ERROR one\n", f.touchLine(), "WARN two\n"}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- f.monitor.Run(ctx) }()

	require.Eventually(t, func() bool {
		return f.store.Snapshot().Failures == 2
	}, time.Second, 5*time.Millisecond)
	cancel()
	require.NoError(t, <-done)

	data, err := os.ReadFile(f.report.Path())
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 2)
	assert.True(t, strings.HasSuffix(lines[0], "ERROR one"))
	assert.True(t, strings.HasSuffix(lines[1], "WARN two"))
}

func TestMonitor_SourceErrorIsFatal(t *testing.T) {
	f := newMonitorFixture(t, 15, &scriptedSource{err: logtail.ErrMissing})

	err := f.monitor.Run(context.Background())
	require.ErrorIs(t, err, logtail.ErrMissing)
	assert.Contains(t, err.Error(), "tail log")
}

func TestMonitor_ReportWriteErrorIsFatal(t *testing.T) {
	src := &scriptedSource{lines: []string{"ERROR cannot write\n"}}
	f := newMonitorFixture(t, 15, src)
	// A directory in place of the report file makes every append fail.
	require.NoError(t, os.Mkdir(f.report.Path(), 0o755))

	err := f.monitor.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "record failure")
}

func TestMonitor_RequiresComponents(t *testing.T) {
	assert.Error(t, (&Monitor{}).Run(context.Background()))
}

func TestMonitor_HandleWithoutOptionalFields(t *testing.T) {
	dir := t.TempDir()
	file := report.NewFile(filepath.Join(dir, "report.txt"), nil)
	m := &Monitor{
		Source:     &scriptedSource{},
		Classifier: classify.New(classify.TouchMarker(file.Path(), "SDQScript"), nil),
		Cache:      cache.New(time.Minute, 10, nil),
		Report:     file,
		Rotator:    report.NewRotator(file, filepath.Join(dir, "archive.log"), 15),
	}

	require.NoError(t, m.Handle("CMD (touch "+file.Path()+" # SDQScript)\n"))
	require.NoError(t, m.Handle("ERROR no logger configured\n"))

	assert.Equal(t, 1, m.Cache.Size())
	assert.Equal(t, 1, m.Store.Snapshot().Failures)
	assert.Error(t, (&Monitor{}).Handle("ERROR x\n"))
}
