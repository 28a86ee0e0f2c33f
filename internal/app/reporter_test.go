package app

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/five82/sdqprobe/internal/cache"
	"github.com/five82/sdqprobe/internal/report"
	"github.com/five82/sdqprobe/internal/state"
)

type fixedCounter int

func (c fixedCounter) Size() int { return int(c) }

type recordingSink struct {
	mu     sync.Mutex
	counts []int
	err    error
}

func (s *recordingSink) AppendSnapshot(count int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.counts = append(s.counts, count)
	return nil
}

func (s *recordingSink) written() []int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]int(nil), s.counts...)
}

func TestReporter_NoImmediateTick(t *testing.T) {
	mock := clock.NewMock()
	sink := &recordingSink{}
	r := &Reporter{Counter: fixedCounter(3), Sink: sink, Interval: time.Minute, Clock: mock}

	stop := r.Start(context.Background())
	time.Sleep(20 * time.Millisecond)
	mock.Add(59 * time.Second)
	require.NoError(t, stop())

	assert.Empty(t, sink.written())
}

func TestReporter_WritesEachInterval(t *testing.T) {
	mock := clock.NewMock()
	sink := &recordingSink{}
	store := &state.Store{}
	r := &Reporter{Counter: fixedCounter(4), Sink: sink, Interval: time.Minute, Clock: mock, Store: store}

	stop := r.Start(context.Background())
	defer func() { require.NoError(t, stop()) }()

	// The ticker is registered on the reporter goroutine; keep advancing
	// until it has fired twice.
	require.Eventually(t, func() bool {
		mock.Add(time.Minute)
		return len(sink.written()) >= 2
	}, time.Second, 5*time.Millisecond)

	for _, c := range sink.written() {
		assert.Equal(t, 4, c)
	}
	snap := store.Snapshot()
	assert.GreaterOrEqual(t, snap.Snapshots, 2)
	assert.Equal(t, 4, snap.LastCount)
}

func TestReporter_WriteFailureIsReturned(t *testing.T) {
	mock := clock.NewMock()
	boom := errors.New("disk full")
	r := &Reporter{Counter: fixedCounter(1), Sink: &recordingSink{err: boom}, Interval: time.Second, Clock: mock}

	done := make(chan error, 1)
	go func() { done <- r.Run(context.Background()) }()

	var err error
	require.Eventually(t, func() bool {
		mock.Add(time.Second)
		select {
		case err = <-done:
			return true
		default:
			return false
		}
	}, time.Second, 5*time.Millisecond)

	require.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "write snapshot")
}

func TestReporter_CancelReturnsNil(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	r := &Reporter{Counter: fixedCounter(0), Sink: &recordingSink{}, Clock: clock.NewMock()}

	done := make(chan error, 1)
	go func() { done <- r.Run(ctx) }()
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("reporter did not stop after cancel")
	}
}

func TestReporter_RequiresCounterAndSink(t *testing.T) {
	err := (&Reporter{}).Run(context.Background())
	assert.Error(t, err)
}

func TestReporter_WritesWindowedCount(t *testing.T) {
	mock := clock.NewMock()
	window := cache.New(7*time.Minute, 1000, mock)
	path := filepath.Join(t.TempDir(), "report.txt")
	r := &Reporter{Counter: window, Sink: report.NewFile(path, mock), Interval: 7 * time.Minute, Clock: mock}

	window.Insert(mock.Now(), "a")
	mock.Add(time.Second)
	window.Insert(mock.Now(), "b")

	stop := r.Start(context.Background())
	require.Eventually(t, func() bool {
		mock.Add(time.Minute)
		data, _ := os.ReadFile(path)
		return len(data) > 0
	}, time.Second, 5*time.Millisecond)
	require.NoError(t, stop())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	first := strings.SplitN(string(data), "\n", 2)[0]
	// The first tick lands a full window after the newest entry.
	assert.True(t, strings.HasSuffix(first, "\t0"), "got %q", first)
}
