package logtail

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"iter"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

var (
	// ErrClosed is returned by Next once the tailer has been closed.
	ErrClosed = errors.New("tailer closed")
	// ErrMissing is returned when the tailed path stays absent past the grace period.
	ErrMissing = errors.New("log file missing")
)

const (
	DefaultPollInterval = 300 * time.Millisecond
	DefaultMissingGrace = 5 * time.Second

	readChunkSize = 32 * 1024
)

// Options tune a Tailer. Zero values select the defaults.
type Options struct {
	PollInterval time.Duration
	MissingGrace time.Duration
	Logger       *zap.Logger
}

func (o Options) withDefaults() Options {
	if o.PollInterval <= 0 {
		o.PollInterval = DefaultPollInterval
	}
	if o.MissingGrace <= 0 {
		o.MissingGrace = DefaultMissingGrace
	}
	if o.Logger == nil {
		o.Logger = zap.NewNop()
	}
	return o
}

// Tailer follows a single file from its end and yields complete lines.
// It is not safe for concurrent use and cannot be restarted once closed or
// failed.
type Tailer struct {
	path string
	opts Options
	log  *zap.Logger

	file    *os.File
	offset  int64
	buf     []byte
	partial []byte   // bytes after the last newline seen
	pending []string // complete lines not yet returned

	watcher      *fsnotify.Watcher
	missingSince time.Time
	err          error

	// canOpen reports whether path can still be opened for reading. The
	// open handle keeps working after a chmod, so this is the only way to
	// notice lost access.
	canOpen func(path string) error
}

// Open opens path and positions the tailer at its current end, so nothing
// already in the file is ever returned.
func Open(path string, opts Options) (*Tailer, error) {
	opts = opts.withDefaults()
	path = filepath.Clean(path)

	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open log: %w", err)
	}
	offset, err := file.Seek(0, io.SeekEnd)
	if err != nil {
		_ = file.Close()
		return nil, fmt.Errorf("seek log: %w", err)
	}

	log := opts.Logger.Named("tailer").With(zap.String("path", path))
	t := &Tailer{
		path:   path,
		opts:   opts,
		log:    log,
		file:   file,
		offset:  offset,
		buf:     make([]byte, readChunkSize),
		canOpen: openForRead,
	}
	t.watcher = newDirWatcher(path, log)
	log.Debug("tailing", zap.Int64("offset", offset), zap.Bool("fsnotify", t.watcher != nil))
	return t, nil
}

// newDirWatcher watches the directory holding path so that both writes and
// rename/create pairs from log rotation wake the tailer. A nil watcher means
// the tailer falls back to plain polling.
func newDirWatcher(path string, log *zap.Logger) *fsnotify.Watcher {
	w, err := fsnotify.NewBufferedWatcher(64)
	if err != nil {
		log.Debug("fsnotify unavailable, polling only", zap.Error(err))
		return nil
	}
	if err := w.Add(filepath.Dir(path)); err != nil {
		_ = w.Close()
		log.Debug("cannot watch log dir, polling only", zap.Error(err))
		return nil
	}
	return w
}

// Path returns the file being tailed.
func (t *Tailer) Path() string {
	return t.path
}

// Next blocks until a complete line (including its trailing newline) is
// available, ctx is done, or the tailer hits a fatal error. Fatal errors are
// sticky: every later call returns the same error.
func (t *Tailer) Next(ctx context.Context) (string, error) {
	for {
		if t.err != nil {
			return "", t.err
		}
		if err := ctx.Err(); err != nil {
			return "", err
		}
		if len(t.pending) > 0 {
			line := t.pending[0]
			t.pending[0] = ""
			t.pending = t.pending[1:]
			return line, nil
		}

		n, err := t.read()
		if err != nil {
			t.err = err
			continue
		}
		if n > 0 {
			continue
		}

		switched, err := t.checkFile()
		if err != nil {
			t.err = err
			continue
		}
		if switched {
			continue
		}

		if err := t.wait(ctx); err != nil {
			return "", err
		}
	}
}

// Lines exposes Next as an iterator. Iteration stops after the first error,
// which is yielded with an empty line.
func (t *Tailer) Lines(ctx context.Context) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		for {
			line, err := t.Next(ctx)
			if err != nil {
				yield("", err)
				return
			}
			if !yield(line, nil) {
				return
			}
		}
	}
}

// Close releases the file handle and the watcher. It is safe to call more
// than once.
func (t *Tailer) Close() error {
	if errors.Is(t.err, ErrClosed) {
		return nil
	}
	t.err = ErrClosed

	var errs []error
	if t.watcher != nil {
		errs = append(errs, t.watcher.Close())
		t.watcher = nil
	}
	if t.file != nil {
		errs = append(errs, t.file.Close())
		t.file = nil
	}
	t.pending = nil
	t.partial = nil
	return errors.Join(errs...)
}

func (t *Tailer) read() (int, error) {
	n, err := t.file.Read(t.buf)
	if n > 0 {
		t.offset += int64(n)
		t.split(t.buf[:n])
	}
	if err != nil && !errors.Is(err, io.EOF) {
		return n, fmt.Errorf("read log: %w", err)
	}
	return n, nil
}

func (t *Tailer) split(chunk []byte) {
	data := append(t.partial, chunk...)
	for {
		i := bytes.IndexByte(data, '\n')
		if i < 0 {
			break
		}
		t.pending = append(t.pending, string(data[:i+1]))
		data = data[i+1:]
	}
	if len(data) == 0 {
		t.partial = t.partial[:0]
		return
	}
	t.partial = append([]byte(nil), data...)
}

// checkFile compares the open handle with whatever now lives at the path.
// It reports true when the tailer switched to a new file or rewound, meaning
// the caller should read again before waiting.
func (t *Tailer) checkFile() (bool, error) {
	info, err := os.Stat(t.path)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			return false, fmt.Errorf("stat log: %w", err)
		}
		if t.missingSince.IsZero() {
			t.missingSince = time.Now()
			t.log.Warn("log file disappeared, waiting for it to come back", zap.Duration("grace", t.opts.MissingGrace))
		}
		if time.Since(t.missingSince) > t.opts.MissingGrace {
			return false, fmt.Errorf("%w: %s", ErrMissing, t.path)
		}
		return false, nil
	}
	t.missingSince = time.Time{}

	current, err := t.file.Stat()
	if err != nil {
		return false, fmt.Errorf("stat open log: %w", err)
	}

	if !os.SameFile(info, current) {
		return t.reopen()
	}

	if info.Size() < t.offset {
		if _, err := t.file.Seek(0, io.SeekStart); err != nil {
			return false, fmt.Errorf("rewind log: %w", err)
		}
		t.log.Info("log file truncated, rewinding", zap.Int64("offset", t.offset), zap.Int64("size", info.Size()))
		t.offset = 0
		t.partial = t.partial[:0]
		return true, nil
	}

	if err := t.canOpen(t.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return false, fmt.Errorf("log not readable: %w", err)
	}
	return false, nil
}

func openForRead(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	return f.Close()
}

// reopen finishes the rotated handle and switches to the new file at offset 0.
func (t *Tailer) reopen() (bool, error) {
	for {
		n, err := t.read()
		if err != nil {
			return false, err
		}
		if n == 0 {
			break
		}
	}

	next, err := os.Open(t.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		return false, fmt.Errorf("reopen log: %w", err)
	}
	if len(t.partial) > 0 {
		t.log.Debug("dropping unterminated tail of rotated file", zap.Int("bytes", len(t.partial)))
	}
	_ = t.file.Close()
	t.file = next
	t.offset = 0
	t.partial = t.partial[:0]
	t.log.Info("log file rotated, following new file")
	return true, nil
}

// wait blocks for one poll interval, until the watcher reports activity on
// the tailed path, or until ctx is done.
func (t *Tailer) wait(ctx context.Context) error {
	timer := time.NewTimer(t.opts.PollInterval)
	defer timer.Stop()

	var (
		events <-chan fsnotify.Event
		errs   <-chan error
	)
	if t.watcher != nil {
		events = t.watcher.Events
		errs = t.watcher.Errors
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
			return nil
		case ev, ok := <-events:
			if !ok {
				events = nil
				continue
			}
			if filepath.Clean(ev.Name) == t.path {
				return nil
			}
		case err, ok := <-errs:
			if !ok {
				errs = nil
				continue
			}
			t.log.Warn("watch error", zap.Error(err))
		}
	}
}
