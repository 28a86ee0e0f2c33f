// Package config assembles the settings for one sdqprobe session.
//
// # Overview
//
// Settings come from three layers, later layers winning:
//
//  1. Default(): every tunable at its default value
//  2. An optional TOML file (default ~/.config/sdqprobe/config.toml)
//  3. Command-line flags, applied by cmd/sdqprobe
//
// A missing config file is NOT an error. The four job-specific settings
// (report file, cron minutes, archive dir, archive name) have no defaults and
// normally arrive as flags.
//
// # TOML Format
//
//	report_file     = "/tmp/sdq/report.txt"
//	minutes         = 5
//	log_dir         = "/var/log/sdq"
//	log_file        = "sdq.log"
//	runtime_minutes = 0
//	syslog          = "/var/log/syslog"
//	report_interval = "7m"
//	cache_window    = "7m"     # defaults to report_interval
//	cache_capacity  = 1000
//	rotate_after    = 15
//	poll_interval   = "300ms"
//	missing_grace   = "5s"
//	failure_keywords = ["ERROR", "WARNING", "WARN"]
//	metrics_addr    = ":9464"
//	log_level       = "info"
//	log_format      = "console"
//
// Durations use Go notation ("90s", "7m"). Tilde expansion applies to
// report_file, log_dir, and syslog.
//
// # Validation
//
// Validate checks the merged result and reports every problem at once; each
// one wraps ErrInvalid so callers can test with errors.Is. The report file
// must be absolute because it is embedded verbatim in the touch marker that
// cron writes to syslog.
//
// # Derived Values
//
//   - TouchMarker: "(touch <report_file> # <comment>)"
//   - CronCommand: "touch <report_file>"
//   - ArchivePath: <log_dir>/<log_file>
//   - Window: cache_window, or report_interval when unset
//   - StaleAfter: two cron periods
package config
