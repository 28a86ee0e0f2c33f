package app

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/five82/sdqprobe/internal/config"
)

// ErrUnsafeWorkspace is returned when cleanup would delete the tailed log.
var ErrUnsafeWorkspace = errors.New("workspace cleanup would remove the tailed log")

// PrepareWorkspace readies the archive directory for a fresh session: it
// creates the directory, removes archives from earlier sessions (any entry
// whose name contains the archive file name), and removes a leftover report
// file. Nothing is removed if any candidate is the tailed syslog. Entries
// that vanish concurrently are ignored.
func PrepareWorkspace(cfg config.Config, log *zap.Logger) error {
	if log == nil {
		log = zap.NewNop()
	}
	log = log.Named("workspace")

	if err := os.MkdirAll(cfg.LogDir, 0o755); err != nil {
		return fmt.Errorf("create log dir: %w", err)
	}

	entries, err := os.ReadDir(cfg.LogDir)
	if err != nil {
		return fmt.Errorf("list log dir: %w", err)
	}
	var stale []string
	for _, entry := range entries {
		if entry.IsDir() || !strings.Contains(entry.Name(), cfg.LogFile) {
			continue
		}
		path := filepath.Join(cfg.LogDir, entry.Name())
		if isSyslog(path, cfg.Syslog) {
			return fmt.Errorf("%w: archive name %q matches the tailed log %s", ErrUnsafeWorkspace, cfg.LogFile, cfg.Syslog)
		}
		stale = append(stale, path)
	}
	if isSyslog(cfg.ReportFile, cfg.Syslog) {
		return fmt.Errorf("%w: report file is the tailed log %s", ErrUnsafeWorkspace, cfg.Syslog)
	}

	for _, path := range stale {
		if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("remove old archive: %w", err)
		}
		log.Debug("removed old archive", zap.String("path", path))
	}

	if err := os.Remove(cfg.ReportFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove report file: %w", err)
	}
	return nil
}

// isSyslog reports whether path names the tailed log, by path or by file
// identity (hard links, symlinked directories).
func isSyslog(path, syslog string) bool {
	if syslog == "" {
		return false
	}
	if filepath.Clean(path) == filepath.Clean(syslog) {
		return true
	}
	a, err := os.Stat(path)
	if err != nil {
		return false
	}
	b, err := os.Stat(syslog)
	if err != nil {
		return false
	}
	return os.SameFile(a, b)
}
