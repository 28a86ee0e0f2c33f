package state

import (
	"errors"
	"reflect"
	"sync"
	"testing"
	"time"
)

func TestStore_RecordsAndSnapshotClone(t *testing.T) {
	var s Store
	start := time.Date(2026, 10, 18, 10, 0, 0, 0, time.UTC)
	s.Start(start)

	touch := start.Add(time.Minute)
	s.RecordTouch(touch)
	s.RecordTouch(touch.Add(time.Minute))
	s.RecordFailure("ERROR")
	s.RecordFailure("WARN")
	s.RecordFailure("ERROR")
	s.RecordRotation("/var/log/sdq/sdq.log")
	s.RecordSnapshot(2, start.Add(7*time.Minute))

	snap := s.Snapshot()
	if snap.Touches != 2 || !snap.LastTouch.Equal(touch.Add(time.Minute)) {
		t.Fatalf("touches = %d last = %v, want 2 at %v", snap.Touches, snap.LastTouch, touch.Add(time.Minute))
	}
	if snap.Failures != 3 {
		t.Fatalf("Failures = %d, want 3", snap.Failures)
	}
	if want := map[string]int{"ERROR": 2, "WARN": 1}; !reflect.DeepEqual(snap.FailureByWord, want) {
		t.Fatalf("FailureByWord = %v, want %v", snap.FailureByWord, want)
	}
	if snap.Rotations != 1 || snap.LastArchive != "/var/log/sdq/sdq.log" {
		t.Fatalf("rotation = %d %q, want 1 /var/log/sdq/sdq.log", snap.Rotations, snap.LastArchive)
	}
	if snap.Snapshots != 1 || snap.LastCount != 2 {
		t.Fatalf("snapshots = %d count = %d, want 1 and 2", snap.Snapshots, snap.LastCount)
	}

	// Returned snapshot should be independent of the stored one.
	snap.FailureByWord["ERROR"] = 99
	if got := s.Snapshot().FailureByWord["ERROR"]; got != 2 {
		t.Fatalf("Snapshot should clone FailureByWord; got %d want 2", got)
	}
}

func TestStore_RecordError(t *testing.T) {
	var s Store
	s.RecordError(nil)
	if s.Snapshot().LastError != nil {
		t.Fatal("nil error should not be recorded")
	}

	origErr := errors.New("boom")
	s.RecordError(origErr)
	snap := s.Snapshot()
	if !errors.Is(snap.LastError, origErr) {
		t.Fatalf("LastError = %v, want boom", snap.LastError)
	}
	if reflect.ValueOf(snap.LastError).Pointer() == reflect.ValueOf(origErr).Pointer() {
		t.Fatalf("Snapshot should wrap the error instance")
	}
}

func TestStore_StartResets(t *testing.T) {
	var s Store
	s.RecordTouch(time.Now())
	s.RecordFailure("ERROR")

	start := time.Now()
	s.Start(start)
	snap := s.Snapshot()
	if snap.Touches != 0 || snap.Failures != 0 || snap.FailureByWord != nil {
		t.Fatalf("Start did not reset: %+v", snap)
	}
	if !snap.StartedAt.Equal(start) {
		t.Fatalf("StartedAt = %v, want %v", snap.StartedAt, start)
	}
}

func TestSnapshot_Stale(t *testing.T) {
	start := time.Date(2026, 10, 18, 10, 0, 0, 0, time.UTC)
	grace := 10 * time.Minute

	tests := []struct {
		name string
		snap Snapshot
		now  time.Time
		want bool
	}{
		{"zero snapshot", Snapshot{}, start, false},
		{"young session", Snapshot{StartedAt: start}, start.Add(5 * time.Minute), false},
		{"old session without touch", Snapshot{StartedAt: start}, start.Add(11 * time.Minute), true},
		{"recent touch", Snapshot{StartedAt: start, LastTouch: start.Add(20 * time.Minute)}, start.Add(25 * time.Minute), false},
		{"old touch", Snapshot{StartedAt: start, LastTouch: start.Add(time.Minute)}, start.Add(25 * time.Minute), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.snap.Stale(tt.now, grace); got != tt.want {
				t.Fatalf("Stale() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestStore_ConcurrentUse(t *testing.T) {
	var s Store
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				s.RecordTouch(time.Now())
			}
		}()
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				_ = s.Snapshot()
			}
		}()
	}
	wg.Wait()
	if got := s.Snapshot().Touches; got != 800 {
		t.Fatalf("Touches = %d, want 800", got)
	}
}
