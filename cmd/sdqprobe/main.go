// Command sdqprobe proves that cron keeps firing on this host: it installs a
// tagged cron job that touches a report file, watches syslog for each run, and
// keeps a report of run counts and failure lines.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/five82/sdqprobe/internal/app"
	"github.com/five82/sdqprobe/internal/config"
	"github.com/five82/sdqprobe/internal/cron"
	"github.com/five82/sdqprobe/internal/logging"
	"github.com/five82/sdqprobe/internal/logtail"
	"github.com/five82/sdqprobe/internal/ui"
)

const (
	exitOK      = 0
	exitFailure = 1
	exitUsage   = 2
)

var version = "dev"

// newTable returns the crontab a session installs into.
var newTable = func(cfg config.Config) cron.Table {
	return cron.Crontab{User: cfg.CronUser}
}

// usageError marks problems with the command line or configuration.
type usageError struct{ err error }

func (e usageError) Error() string { return e.err.Error() }
func (e usageError) Unwrap() error { return e.err }

// exitCode carries the process exit status out of a RunE that already
// printed its verdict.
type exitCode int

func (e exitCode) Error() string { return fmt.Sprintf("exit status %d", int(e)) }

func noArgs(cmd *cobra.Command, args []string) error {
	if err := cobra.NoArgs(cmd, args); err != nil {
		return usageError{err}
	}
	return nil
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	cancel()
	os.Exit(code)
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	root := newRootCmd(stdout, stderr)
	root.SetArgs(args)

	err := root.ExecuteContext(ctx)
	var code exitCode
	var usage usageError
	switch {
	case err == nil:
		return exitOK
	case errors.As(err, &code):
		return int(code)
	case errors.As(err, &usage):
		fmt.Fprintf(stderr, "sdqprobe: %v\n", usage.err)
		fmt.Fprintf(stderr, "Run 'sdqprobe --help' for usage.\n")
		return exitUsage
	default:
		fmt.Fprintf(stdout, "error: %v\n", err)
		return exitFailure
	}
}

type rootFlags struct {
	configPath  string
	reportFile  string
	minutes     int
	logDir      string
	logFile     string
	runtime     int
	syslog      string
	cronUser    string
	metricsAddr string
	logLevel    string
	logFormat   string
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	var f rootFlags

	cmd := &cobra.Command{
		Use:   "sdqprobe",
		Short: "Verify that cron jobs keep running by watching syslog",
		Long: `sdqprobe installs a cron job that touches a report file every few minutes,
then follows syslog for the line cron writes each time the job runs.

Every report interval the number of runs seen in the recent window is appended
to the report file, together with any syslog line containing ERROR, WARNING or
WARN. After a fixed number of runs the report file is moved into the log
directory.

Examples:
  # Run for one hour with a job every 5 minutes
  sdqprobe -f /tmp/sdq.report -m 5 -d /var/tmp/sdq -l sdq.log -r 60

  # Run until interrupted, exposing Prometheus metrics
  sdqprobe -f /tmp/sdq.report -m 1 -d /var/tmp/sdq -l sdq.log --metrics-addr :9464`,
		Version:       version,
		Args:          noArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runProbe(cmd, f, stdout, stderr)
		},
	}
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)
	cmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return usageError{err}
	})

	pf := cmd.PersistentFlags()
	pf.StringVar(&f.configPath, "config", "", "TOML config file (default ~/.config/sdqprobe/config.toml)")
	pf.StringVarP(&f.reportFile, "file", "f", "", "report file the cron job touches")
	pf.StringVar(&f.cronUser, "cron-user", "", "user whose crontab holds the job (default root)")
	pf.StringVar(&f.logLevel, "log-level", "", "log level: debug, info, warn, error")
	pf.StringVar(&f.logFormat, "log-format", "", "log format: console or json")

	fl := cmd.Flags()
	fl.IntVarP(&f.minutes, "minutes", "m", 0, "cron job frequency in minutes (1-59)")
	fl.StringVarP(&f.logDir, "logdir", "d", "", "directory for archived report files")
	fl.StringVarP(&f.logFile, "logfile", "l", "", "archive file name inside the log directory")
	fl.IntVarP(&f.runtime, "runtime", "r", 0, "minutes to run; 0 runs until interrupted")
	fl.StringVar(&f.syslog, "syslog", "", "log file to follow (default /var/log/syslog)")
	fl.StringVar(&f.metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address")

	cmd.AddCommand(newStatusCmd(&f, stdout), newUninstallCmd(&f, stdout))
	return cmd
}

// loadConfig reads the config file and applies every flag the user set.
func loadConfig(flags *pflag.FlagSet, f rootFlags) (config.Config, error) {
	cfg, err := config.Load(f.configPath)
	if err != nil {
		return config.Config{}, usageError{err}
	}
	set := func(name string, apply func()) {
		if flags.Changed(name) {
			apply()
		}
	}
	set("file", func() { cfg.ReportFile = f.reportFile })
	set("minutes", func() { cfg.Minutes = f.minutes })
	set("logdir", func() { cfg.LogDir = f.logDir })
	set("logfile", func() { cfg.LogFile = f.logFile })
	set("runtime", func() { cfg.RuntimeMinutes = f.runtime })
	set("syslog", func() { cfg.Syslog = f.syslog })
	set("cron-user", func() { cfg.CronUser = f.cronUser })
	set("metrics-addr", func() { cfg.MetricsAddr = f.metricsAddr })
	set("log-level", func() { cfg.LogLevel = f.logLevel })
	set("log-format", func() { cfg.LogFormat = f.logFormat })
	return cfg.Normalize(), nil
}

func runProbe(cmd *cobra.Command, f rootFlags, stdout, stderr io.Writer) error {
	cfg, err := loadConfig(cmd.Flags(), f)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return usageError{err}
	}

	log, err := logging.NewWithWriter(cfg.LogLevel, cfg.LogFormat, stderr)
	if err != nil {
		return usageError{err}
	}
	defer func() { _ = logging.Sync(log) }()

	sum, err := app.Run(cmd.Context(), app.Options{
		Config: cfg,
		Logger: log,
		Table:  newTable(cfg),
	})
	if err != nil {
		return err
	}

	fmt.Fprint(stderr, ui.RenderSummary(sum, ui.GetTheme(cfg.Theme).Styles()))

	switch sum.Result.Outcome {
	case app.CompletedOnDeadline:
		fmt.Fprintln(stdout, "success")
		return nil
	case app.CompletedOnCancellation:
		fmt.Fprintln(stdout, "User interrupted")
		return nil
	default:
		log.Error("session failed", zap.Error(sum.Result.Err))
		fmt.Fprintf(stdout, "error: %v\n", sum.Result.Err)
		return exitCode(exitFailure)
	}
}

func newStatusCmd(f *rootFlags, stdout io.Writer) *cobra.Command {
	var lines int
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show the most recent lines of the report file",
		Args:  noArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd.Flags(), *f)
			if err != nil {
				return err
			}
			if cfg.ReportFile == "" {
				return usageError{fmt.Errorf("%w: report file is required", config.ErrInvalid)}
			}
			recent, total, err := logtail.Read(cfg.ReportFile, lines)
			if err != nil {
				return fmt.Errorf("read report: %w", err)
			}
			fmt.Fprint(stdout, ui.RenderStatus(cfg.ReportFile, recent, total, ui.GetTheme(cfg.Theme).Styles()))
			return nil
		},
	}
	cmd.Flags().IntVarP(&lines, "lines", "n", 20, "number of report lines to show")
	return cmd
}

func newUninstallCmd(f *rootFlags, stdout io.Writer) *cobra.Command {
	return &cobra.Command{
		Use:   "uninstall",
		Short: "Remove the sdqprobe cron job",
		Args:  noArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd.Flags(), *f)
			if err != nil {
				return err
			}
			log, err := logging.NewWithWriter(cfg.LogLevel, cfg.LogFormat, cmd.ErrOrStderr())
			if err != nil {
				return usageError{err}
			}
			defer func() { _ = logging.Sync(log) }()

			removed, err := cron.NewScheduler(newTable(cfg), log).Remove(cmd.Context(), cfg.Comment)
			if err != nil {
				return err
			}
			fmt.Fprintf(stdout, "removed %d cron job(s) tagged %q\n", removed, cfg.Comment)
			return nil
		},
	}
}
