package report

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"sync"

	"github.com/benbjohnson/clock"
)

// TimestampLayout prefixes every report line.
const TimestampLayout = "2006-01-02 15:04:05"

// File appends timestamped lines to the report file. It is safe for
// concurrent use by the tail loop and the reporter.
type File struct {
	mu    sync.Mutex
	path  string
	perm  fs.FileMode
	clock clock.Clock
}

// NewFile returns a writer for path. Nothing is created until the first write.
func NewFile(path string, clk clock.Clock) *File {
	if clk == nil {
		clk = clock.New()
	}
	return &File{path: path, perm: 0o644, clock: clk}
}

// Path returns the report file location.
func (f *File) Path() string {
	return f.path
}

// AppendSnapshot writes "<ts>\t<count>\n".
func (f *File) AppendSnapshot(count int) error {
	return f.append(f.stamp() + strconv.Itoa(count) + "\n")
}

// AppendFailure writes "<ts>\t<line>". The raw line keeps its own
// terminator; one is added only if it is missing.
func (f *File) AppendFailure(line string) error {
	if len(line) == 0 || line[len(line)-1] != '\n' {
		line += "\n"
	}
	return f.append(f.stamp() + line)
}

func (f *File) stamp() string {
	return f.clock.Now().Format(TimestampLayout) + "\t"
}

func (f *File) append(text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.appendLocked(text)
}

func (f *File) appendLocked(text string) error {
	out, err := os.OpenFile(f.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, f.perm)
	if err != nil {
		return fmt.Errorf("open report: %w", err)
	}
	if _, err := out.WriteString(text); err != nil {
		_ = out.Close()
		return fmt.Errorf("write report: %w", err)
	}
	if err := out.Close(); err != nil {
		return fmt.Errorf("close report: %w", err)
	}
	return nil
}

// moveTo renames the report file to dst while holding the write lock. A
// report that was never written is created empty first.
func (f *File) moveTo(dst string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if _, err := os.Stat(f.path); errors.Is(err, fs.ErrNotExist) {
		if err := f.appendLocked(""); err != nil {
			return err
		}
	}
	if err := os.Rename(f.path, dst); err != nil {
		return fmt.Errorf("rotate report: %w", err)
	}
	return nil
}

// Remove deletes the report file if it exists.
func (f *File) Remove() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := os.Remove(f.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove report: %w", err)
	}
	return nil
}
