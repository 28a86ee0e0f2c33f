// Package report writes the session's report file and rotates it aside after a
// fixed number of touches.
//
// # Format
//
// The report file is append-only text with two kinds of lines, interleaved in
// write order:
//
//	2026-10-18 10:07:00	3
//	2026-10-18 10:07:12	Oct 18 10:07:12 host kernel: ERROR disk timeout
//
// A line whose payload is a bare integer is a periodic snapshot of the
// windowed touch count; anything else is a copied failure line.
//
// # Rotation
//
// Every write opens the file in append mode and closes it again, so rotation
// can rename the file at any time without a stale handle writing into the
// archive. Rotator moves the file to <logdir>/<logfile> the first time, then
// to <logfile>.0, <logfile>.1, ... while the bare name is taken.
package report
