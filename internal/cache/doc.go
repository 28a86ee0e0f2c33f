// Package cache holds the windowed touch counter shared by the tail loop and
// the reporter.
//
// # Overview
//
// Expiring keys entries by timestamp and only answers one question: how many
// entries are younger than the window right now. Every Insert and Size call
// first drops entries whose age has reached the window, so the count never
// includes stale touches even if nothing was inserted for a long time.
//
// # Bounds
//
//   - window: an entry is kept while now - at < window (strictly less)
//   - capacity: when full, the oldest-inserted entry is dropped regardless of
//     its age
//
// A non-positive window or capacity disables that bound. Re-inserting an
// existing timestamp replaces its value and keeps its position.
//
// # Time
//
// The current time comes from a benbjohnson/clock Clock, so tests drive expiry
// with clock.NewMock() instead of sleeping.
package cache
