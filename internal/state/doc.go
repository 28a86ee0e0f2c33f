// Package state keeps thread-safe running totals for one sdqprobe session.
//
// # Overview
//
// The tail loop and the periodic reporter run on separate goroutines. Both
// record what they did here, and the command line reads a Snapshot once the
// session ends to print its summary:
//
//	Tail loop:                     Reporter:
//	┌────────────────────┐        ┌──────────────────────┐
//	│ RecordTouch()      │        │ RecordSnapshot()     │
//	│ RecordFailure()    │        │                      │
//	│ RecordRotation()   │        │                      │
//	└─────────┬──────────┘        └──────────┬───────────┘
//	          └──────────→ Store ←───────────┘
//	                         ↓
//	                   Snapshot() → summary
//
// The Store is not the touch window itself; the windowed count lives in
// package cache. The Store only accumulates session totals, which never decay.
//
// # Concurrency Model
//
// Store uses a sync.RWMutex. Record* methods take the write lock for a few
// field updates; Snapshot takes the read lock and returns a copy with the
// FailureByWord map cloned and LastError wrapped, so callers never share
// mutable state with the store.
//
// # Staleness
//
// Snapshot.Stale reports whether no touch has been seen for longer than a
// grace period (the command line uses two cron periods). A session that has
// not yet lived that long is never stale.
//
// # Testing Considerations
//
// The zero Store is ready to use. Start resets it and sets StartedAt.
package state
