package report

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"sync"
)

// DefaultRotateAfter is the number of touches per report file.
const DefaultRotateAfter = 15

// Rotator counts touches and moves the report file to the archive path every
// threshold touches. The first archive takes the bare archive name; while that
// name is taken, later archives get ".0", ".1", ... suffixes.
type Rotator struct {
	mu        sync.Mutex
	file      *File
	archive   string
	threshold int

	count int // touches since the last rotation
	seq   int // next numeric suffix; never reset
}

// NewRotator returns a Rotator for file. A threshold below 1 selects
// DefaultRotateAfter.
func NewRotator(file *File, archive string, threshold int) *Rotator {
	if threshold < 1 {
		threshold = DefaultRotateAfter
	}
	return &Rotator{file: file, archive: archive, threshold: threshold}
}

// Touch records one touch. When the threshold is reached it rotates the report
// file and returns the archive path it was moved to; otherwise it returns "".
func (r *Rotator) Touch() (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.count++
	if r.count < r.threshold {
		return "", nil
	}

	dst, suffixed, err := r.nextArchive()
	if err != nil {
		return "", err
	}
	if err := r.file.moveTo(dst); err != nil {
		return "", err
	}
	if suffixed {
		r.seq++
	}
	r.count = 0
	return dst, nil
}

// Pending returns how many touches have been counted since the last rotation.
func (r *Rotator) Pending() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.count
}

func (r *Rotator) nextArchive() (string, bool, error) {
	_, err := os.Stat(r.archive)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return r.archive, false, nil
	case err != nil:
		return "", false, fmt.Errorf("stat archive: %w", err)
	default:
		return r.archive + "." + strconv.Itoa(r.seq), true, nil
	}
}
