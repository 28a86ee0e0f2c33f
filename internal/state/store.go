package state

import (
	"fmt"
	"sync"
	"time"
)

// Snapshot is a point-in-time view of one monitoring session.
type Snapshot struct {
	Touches       int       // touch lines seen this session
	Failures      int       // failure lines written to the report
	Rotations     int       // report files archived
	Snapshots     int       // periodic count lines written
	LastTouch     time.Time // zero until the first touch
	LastCount     int       // windowed count in the latest snapshot line
	LastSnapshot  time.Time
	LastArchive   string
	LastError     error
	StartedAt     time.Time
	FailureByWord map[string]int
}

// Stale reports whether no touch has been seen within grace of now. A session
// younger than grace is never stale.
func (s Snapshot) Stale(now time.Time, grace time.Duration) bool {
	last := s.LastTouch
	if last.IsZero() {
		last = s.StartedAt
	}
	if last.IsZero() {
		return false
	}
	return now.Sub(last) > grace
}

// Store coordinates concurrent updates from the tail loop and the reporter.
type Store struct {
	mu       sync.RWMutex
	snapshot Snapshot
}

// Start resets the store for a new session beginning at t.
func (s *Store) Start(t time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snapshot = Snapshot{StartedAt: t}
}

// RecordTouch counts one touch seen at t.
func (s *Store) RecordTouch(t time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snapshot.Touches++
	s.snapshot.LastTouch = t
}

// RecordFailure counts one failure line, attributed to the keyword it matched.
func (s *Store) RecordFailure(keyword string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snapshot.Failures++
	if keyword == "" {
		return
	}
	if s.snapshot.FailureByWord == nil {
		s.snapshot.FailureByWord = make(map[string]int)
	}
	s.snapshot.FailureByWord[keyword]++
}

// RecordRotation counts one archived report file.
func (s *Store) RecordRotation(archive string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snapshot.Rotations++
	s.snapshot.LastArchive = archive
}

// RecordSnapshot notes a periodic count line written at t.
func (s *Store) RecordSnapshot(count int, t time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snapshot.Snapshots++
	s.snapshot.LastCount = count
	s.snapshot.LastSnapshot = t
}

// RecordError keeps the most recent fatal error for the session summary.
func (s *Store) RecordError(err error) {
	if err == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snapshot.LastError = err
}

// Snapshot returns a copy of the current snapshot.
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := s.snapshot
	if s.snapshot.LastError != nil {
		snap.LastError = fmt.Errorf("%w", s.snapshot.LastError)
	}
	if s.snapshot.FailureByWord != nil {
		snap.FailureByWord = make(map[string]int, len(s.snapshot.FailureByWord))
		for k, v := range s.snapshot.FailureByWord {
			snap.FailureByWord[k] = v
		}
	}
	return snap
}
