// Package ui renders sdqprobe's terminal output with Lipgloss.
//
// The tool is unattended, so there is no interactive view. Two renderings
// exist:
//
//   - RenderSummary: printed when a session ends (outcome, counters, cause)
//   - RenderStatus: the `status` command's view of the report file tail
//
// Colors come from a named Theme (Dracula, Nightfox, Slate). Lipgloss drops
// the escape codes when output is not a terminal, so both renderings are safe
// to pipe.
package ui
