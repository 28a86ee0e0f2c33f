// Package logtail follows a log file as it grows and reads the tail of
// finished files.
//
// # Overview
//
// Two entry points cover the two ways sdqprobe looks at files:
//
//  1. Tailer: a live, lazy sequence of newly appended lines (the syslog)
//  2. Read: the last N lines of a file, used to summarise the report file
//
// # Following a File
//
// Open positions the tailer at the current end of the file; content that was
// already there is never returned. Next then blocks until a complete line is
// available:
//
//	t, err := logtail.Open("/var/log/syslog", logtail.Options{Logger: log})
//	if err != nil {
//		return err
//	}
//	defer t.Close()
//
//	for line, err := range t.Lines(ctx) {
//		if err != nil {
//			return err
//		}
//		handle(line)
//	}
//
// A line is complete once its '\n' has been read. Bytes after the last newline
// are held back and prefixed to the next read, so a writer that flushes half a
// line never produces a torn record. Returned lines keep their terminator.
//
// # Waiting
//
// When a read returns no data the tailer waits on a select over:
//
//   - ctx.Done(): cancellation is observed immediately
//   - a poll timer (DefaultPollInterval, 300ms)
//   - fsnotify events for the file's directory
//
// fsnotify only shortens the wait; the poll timer keeps the tailer correct on
// filesystems where inotify is unavailable, in which case Open silently
// degrades to polling.
//
// # Rotation and Failure
//
// After each empty read the tailer stats the path:
//
//   - different file identity: the file was renamed away and replaced; the old
//     handle is drained and the new file is followed from offset 0
//   - same file, smaller than the read offset: truncated in place; rewind to 0
//   - path absent: tolerated for Options.MissingGrace, then ErrMissing
//   - path no longer openable (permission change): fatal, even though the
//     already-open handle would keep reading
//   - any other stat, read, or reopen error: fatal
//
// Fatal errors are sticky. The tailer is single-use: after Close or a fatal
// error every call to Next returns the same error.
//
// # Reading the Tail
//
// Read uses a ring buffer of maxLines entries so memory stays O(maxLines)
// regardless of file size. A missing file yields nil, nil.
package logtail
