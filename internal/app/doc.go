// Package app is the composition root for one sdqprobe session.
//
// # Overview
//
// A session proves that a scheduled job keeps running. It installs a cron
// entry that touches the report file every few minutes, then follows the
// syslog for the line cron writes each time that entry fires. Touches are
// counted in a sliding window and snapshotted into the report file at a fixed
// cadence; lines that mention a failure keyword are copied into the report
// file as they arrive.
//
// # Components
//
//   - app.go: Run wires configuration, workspace, cron, tailer, and tasks
//   - monitor.go: the tail-scan loop (classify, count, rotate, record failures)
//   - reporter.go: periodic snapshot of the windowed touch count
//   - supervisor.go: runs tasks together with an optional deadline and
//     decides the Outcome
//   - workspace.go: archive directory and report file cleanup at startup
//
// # Data Flow
//
//	┌──────────────┐
//	│   Run()      │
//	└──────┬───────┘
//	       ├─────> PrepareWorkspace()   mkdir, drop old archives and report
//	       ├─────> Scheduler.Install()  one tagged crontab line
//	       ├─────> logtail.Open()       seek to end of syslog
//	       └─────> Supervisor.Run()
//	                ├─> Monitor.Run()   line → cache / rotator / report
//	                ├─> Reporter.Run()  every interval: cache.Size() → report
//	                └─> metrics.Serve() only with a metrics address
//
// # Outcomes
//
// The supervisor reports how monitoring ended:
//
//   - CompletedOnDeadline: the configured runtime elapsed
//   - CompletedOnCancellation: the parent context was cancelled (signal)
//   - Failed: a task returned an error; the others were cancelled
//
// Setup problems (invalid config, crontab failure, unreadable syslog) are
// returned from Run as errors before any task starts.
//
// # Error Handling
//
// Nothing in the tail or report path is logged and swallowed. A tailer error
// (file missing past its grace period, read failure), a failed report append,
// a failed rotation, or a failed snapshot write ends the session as Failed.
package app
