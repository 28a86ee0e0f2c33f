package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	toml "github.com/pelletier/go-toml/v2"

	"github.com/five82/sdqprobe/internal/classify"
)

// ErrInvalid wraps every validation failure.
var ErrInvalid = errors.New("invalid config")

// Duration is a time.Duration read from TOML as a Go duration string.
type Duration time.Duration

// UnmarshalText parses values such as "7m" or "300ms".
func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(strings.TrimSpace(string(text)))
	if err != nil {
		return err
	}
	*d = Duration(parsed)
	return nil
}

// MarshalText writes the duration in Go notation.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

// Std returns the duration as a time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// Config holds everything one monitoring session needs.
type Config struct {
	ReportFile      string   `toml:"report_file"`
	Minutes         int      `toml:"minutes"`
	LogDir          string   `toml:"log_dir"`
	LogFile         string   `toml:"log_file"`
	RuntimeMinutes  int      `toml:"runtime_minutes"`
	Syslog          string   `toml:"syslog"`
	Comment         string   `toml:"comment"`
	CronUser        string   `toml:"cron_user"`
	ReportInterval  Duration `toml:"report_interval"`
	RotateAfter     int      `toml:"rotate_after"`
	CacheWindow     Duration `toml:"cache_window"`
	CacheCapacity   int      `toml:"cache_capacity"`
	PollInterval    Duration `toml:"poll_interval"`
	MissingGrace    Duration `toml:"missing_grace"`
	FailureKeywords []string `toml:"failure_keywords"`
	MetricsAddr     string   `toml:"metrics_addr"`
	LogLevel        string   `toml:"log_level"`
	LogFormat       string   `toml:"log_format"`
	Theme           string   `toml:"theme"`
}

const (
	defaultConfigPath     = "~/.config/sdqprobe/config.toml"
	defaultSyslog         = "/var/log/syslog"
	defaultCronUser       = "root"
	defaultReportInterval = 7 * time.Minute
	defaultRotateAfter    = 15
	defaultCacheCapacity  = 1000
	defaultPollInterval   = 300 * time.Millisecond
	defaultMissingGrace   = 5 * time.Second
	defaultLogLevel       = "info"
	defaultLogFormat      = "console"
	defaultTheme          = "Dracula"
)

// Default returns a Config with every tunable at its default. The four
// job-specific fields (report file, minutes, log dir, log file) stay empty.
func Default() Config {
	return Config{
		Syslog:          defaultSyslog,
		Comment:         classify.DefaultComment,
		CronUser:        defaultCronUser,
		ReportInterval:  Duration(defaultReportInterval),
		RotateAfter:     defaultRotateAfter,
		CacheCapacity:   defaultCacheCapacity,
		PollInterval:    Duration(defaultPollInterval),
		MissingGrace:    Duration(defaultMissingGrace),
		FailureKeywords: append([]string(nil), classify.DefaultFailureKeywords...),
		LogLevel:        defaultLogLevel,
		LogFormat:       defaultLogFormat,
		Theme:           defaultTheme,
	}
}

// Load reads the TOML file at path over the defaults. An empty path uses
// ~/.config/sdqprobe/config.toml; a missing file is not an error.
func Load(path string) (Config, error) {
	resolved, err := resolvePath(path)
	if err != nil {
		return Config{}, err
	}

	cfg := Default()

	file, err := os.Open(resolved)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return Config{}, fmt.Errorf("open config: %w", err)
	}
	defer file.Close()

	bytes, err := io.ReadAll(file)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}

	if err := toml.Unmarshal(bytes, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}

	return cfg.Normalize(), nil
}

// Normalize trims strings, restores defaults for blanked fields, and expands
// ~ in paths.
func (c Config) Normalize() Config {
	def := Default()

	c.ReportFile = strings.TrimSpace(c.ReportFile)
	c.LogDir = strings.TrimSpace(c.LogDir)
	c.LogFile = strings.TrimSpace(c.LogFile)
	c.MetricsAddr = strings.TrimSpace(c.MetricsAddr)

	c.Syslog = orDefault(c.Syslog, def.Syslog)
	c.Comment = orDefault(c.Comment, def.Comment)
	c.CronUser = orDefault(c.CronUser, def.CronUser)
	c.LogLevel = orDefault(c.LogLevel, def.LogLevel)
	c.LogFormat = orDefault(c.LogFormat, def.LogFormat)
	c.Theme = orDefault(c.Theme, def.Theme)

	if c.ReportFile != "" {
		c.ReportFile = mustExpand(c.ReportFile)
	}
	if c.LogDir != "" {
		c.LogDir = mustExpand(c.LogDir)
	}
	c.Syslog = mustExpand(c.Syslog)

	keywords := make([]string, 0, len(c.FailureKeywords))
	for _, kw := range c.FailureKeywords {
		if kw = strings.TrimSpace(kw); kw != "" {
			keywords = append(keywords, kw)
		}
	}
	if len(keywords) == 0 {
		keywords = def.FailureKeywords
	}
	c.FailureKeywords = keywords
	return c
}

// Validate reports every invalid field at once, each wrapped in ErrInvalid.
func (c Config) Validate() error {
	var errs []error
	add := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf("%w: "+format, append([]any{ErrInvalid}, args...)...))
	}

	if c.ReportFile == "" {
		add("report file is required")
	} else if !filepath.IsAbs(c.ReportFile) {
		add("report file must be an absolute path, got %q", c.ReportFile)
	}
	if c.Minutes < 1 || c.Minutes > 59 {
		add("minutes must be between 1 and 59, got %d", c.Minutes)
	}
	if c.LogDir == "" {
		add("log dir is required")
	}
	if c.LogFile == "" {
		add("log file name is required")
	} else if strings.ContainsRune(c.LogFile, filepath.Separator) {
		add("log file name must not contain a path separator, got %q", c.LogFile)
	}
	if c.RuntimeMinutes < 0 {
		add("runtime must be >= 0, got %d", c.RuntimeMinutes)
	}
	if c.ReportInterval <= 0 {
		add("report interval must be > 0")
	}
	if c.RotateAfter < 1 {
		add("rotate_after must be >= 1, got %d", c.RotateAfter)
	}
	if c.CacheCapacity < 0 {
		add("cache capacity must be >= 0, got %d", c.CacheCapacity)
	}
	if c.CacheWindow < 0 {
		add("cache window must be >= 0")
	}
	if c.PollInterval <= 0 {
		add("poll interval must be > 0")
	}
	if c.Syslog != "" {
		syslog := filepath.Clean(c.Syslog)
		if c.LogDir != "" && c.LogFile != "" && filepath.Clean(c.ArchivePath()) == syslog {
			add("archive path must not be the tailed log %q", c.Syslog)
		}
		if c.ReportFile != "" && filepath.Clean(c.ReportFile) == syslog {
			add("report file must not be the tailed log %q", c.Syslog)
		}
	}
	return errors.Join(errs...)
}

// Runtime is the bounded run length; zero means run until interrupted.
func (c Config) Runtime() time.Duration {
	return time.Duration(c.RuntimeMinutes) * time.Minute
}

// Window is the touch cache age limit. It defaults to the report interval so
// each snapshot counts the touches since roughly the previous one.
func (c Config) Window() time.Duration {
	if c.CacheWindow > 0 {
		return c.CacheWindow.Std()
	}
	return c.ReportInterval.Std()
}

// ArchivePath is where the report file is moved on rotation.
func (c Config) ArchivePath() string {
	return filepath.Join(c.LogDir, c.LogFile)
}

// TouchMarker is the syslog substring proving the cron job ran.
func (c Config) TouchMarker() string {
	return classify.TouchMarker(c.ReportFile, c.Comment)
}

// CronCommand is the command installed in the crontab.
func (c Config) CronCommand() string {
	return "touch " + c.ReportFile
}

// StaleAfter is how long without a touch before the session is flagged.
func (c Config) StaleAfter() time.Duration {
	return 2 * time.Duration(c.Minutes) * time.Minute
}

func orDefault(v, def string) string {
	if v = strings.TrimSpace(v); v == "" {
		return def
	}
	return v
}

func resolvePath(path string) (string, error) {
	if strings.TrimSpace(path) == "" {
		return expandPath(defaultConfigPath)
	}
	return expandPath(path)
}

func mustExpand(path string) string {
	expanded, err := expandPath(path)
	if err != nil {
		return path
	}
	return expanded
}

func expandPath(path string) (string, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return "", fmt.Errorf("path is empty")
	}
	if strings.HasPrefix(trimmed, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home dir: %w", err)
		}
		trimmed = filepath.Join(home, strings.TrimPrefix(trimmed, "~"))
	}
	return filepath.Abs(trimmed)
}
