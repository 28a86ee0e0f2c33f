package ui

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/five82/sdqprobe/internal/app"
	"github.com/five82/sdqprobe/internal/state"
)

func TestParseReportLine(t *testing.T) {
	snap, ok := ParseReportLine("2026-10-18 10:07:00\t3\n")
	if !ok || !snap.Snapshot || snap.Count != 3 {
		t.Fatalf("ParseReportLine snapshot = %+v, %v", snap, ok)
	}
	if got := snap.At.Format("15:04:05"); got != "10:07:00" {
		t.Fatalf("snapshot time = %q, want 10:07:00", got)
	}

	fail, ok := ParseReportLine("2026-10-18 10:07:12\tOct 18 host app: ERROR 42\n")
	if !ok || fail.Snapshot || fail.Text != "Oct 18 host app: ERROR 42" {
		t.Fatalf("ParseReportLine failure = %+v, %v", fail, ok)
	}

	if _, ok := ParseReportLine("no tab here"); ok {
		t.Fatal("ParseReportLine accepted a line without a tab")
	}
	if _, ok := ParseReportLine("yesterday\t3"); ok {
		t.Fatal("ParseReportLine accepted a bad timestamp")
	}
}

func TestRenderSummary(t *testing.T) {
	sum := app.Summary{
		Result: app.Result{Outcome: app.Failed, Err: errors.New("tail log: log file missing"), Elapsed: 90 * time.Second},
		Snapshot: state.Snapshot{
			Touches:       4,
			Failures:      3,
			FailureByWord: map[string]int{"WARN": 1, "ERROR": 2},
		},
		Marker: "(touch /tmp/r # SDQScript)",
	}
	out := RenderSummary(sum, GetTheme("Dracula").Styles())

	for _, want := range []string{"failed", "1m30s", "(touch /tmp/r # SDQScript)", "ERROR=2 WARN=1", "log file missing"} {
		if !strings.Contains(out, want) {
			t.Fatalf("RenderSummary missing %q:\n%s", want, out)
		}
	}
}

func TestRenderStatus(t *testing.T) {
	lines := []string{
		"2026-10-18 10:07:00\t3",
		"2026-10-18 10:07:12\tOct 18 host app: ERROR disk",
		"garbage",
		"2026-10-18 10:14:00\t0",
	}
	out := RenderStatus("/tmp/report.txt", lines, 10, GetTheme("Slate").Styles())

	for _, want := range []string{"/tmp/report.txt", "10 (showing 4)", "ERROR disk", "3 touches", "garbage"} {
		if !strings.Contains(out, want) {
			t.Fatalf("RenderStatus missing %q:\n%s", want, out)
		}
	}
	if !strings.Contains(out, "failures shown") {
		t.Fatalf("RenderStatus missing failure count:\n%s", out)
	}
}

func TestRenderStatus_Empty(t *testing.T) {
	out := RenderStatus("/tmp/report.txt", nil, 0, GetTheme("").Styles())
	if !strings.Contains(out, "no report lines yet") {
		t.Fatalf("RenderStatus empty = %q", out)
	}
}
