package ui

import (
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/five82/sdqprobe/internal/app"
	"github.com/five82/sdqprobe/internal/report"
)

// ReportLine is one parsed line of the report file.
type ReportLine struct {
	At       time.Time
	Snapshot bool
	Count    int    // set for snapshot lines
	Text     string // the copied syslog line for failure lines
}

// ParseReportLine splits "<ts>\t<payload>". A payload that is a bare integer
// is a snapshot; anything else is a copied failure line.
func ParseReportLine(line string) (ReportLine, bool) {
	stamp, payload, ok := strings.Cut(strings.TrimRight(line, "\r\n"), "\t")
	if !ok {
		return ReportLine{}, false
	}
	at, err := time.ParseInLocation(report.TimestampLayout, stamp, time.Local)
	if err != nil {
		return ReportLine{}, false
	}
	if n, err := strconv.Atoi(strings.TrimSpace(payload)); err == nil {
		return ReportLine{At: at, Snapshot: true, Count: n}, true
	}
	return ReportLine{At: at, Text: payload}, true
}

// RenderSummary formats the end-of-session summary.
func RenderSummary(sum app.Summary, s Styles) string {
	res := sum.Result
	snap := sum.Snapshot

	var b strings.Builder
	b.WriteString(s.Heading.Render("sdqprobe"))
	b.WriteString(" ")
	b.WriteString(s.OutcomeStyle(res.Outcome.String()).Render(res.Outcome.String()))
	b.WriteString(s.MutedText.Render(fmt.Sprintf(" after %s", res.Elapsed.Round(time.Second))))
	b.WriteString("\n")

	b.WriteString(field(s, "marker", sum.Marker))
	b.WriteString(field(s, "touches", strconv.Itoa(snap.Touches)))
	b.WriteString(field(s, "snapshots", strconv.Itoa(snap.Snapshots)))
	b.WriteString(field(s, "rotations", strconv.Itoa(snap.Rotations)))
	if !snap.LastTouch.IsZero() {
		b.WriteString(field(s, "last touch", snap.LastTouch.Format(report.TimestampLayout)))
	}
	if snap.LastArchive != "" {
		b.WriteString(field(s, "last archive", snap.LastArchive))
	}

	failures := strconv.Itoa(snap.Failures)
	if snap.Failures > 0 {
		failures = s.WarningText.Render(failures) + s.MutedText.Render(" ("+keywordBreakdown(snap.FailureByWord)+")")
	}
	b.WriteString(field(s, "failures", failures))

	if res.Err != nil {
		b.WriteString(field(s, "error", s.DangerText.Render(res.Err.Error())))
	}
	return b.String()
}

// RenderStatus formats the tail of a report file. total is the number of
// lines in the whole file; lines are the most recent of them.
func RenderStatus(path string, lines []string, total int, s Styles) string {
	var b strings.Builder
	b.WriteString(s.Heading.Render("report"))
	b.WriteString(" ")
	b.WriteString(s.Text.Render(path))
	b.WriteString("\n")

	if total == 0 {
		b.WriteString(s.MutedText.Render("  no report lines yet"))
		b.WriteString("\n")
		return b.String()
	}

	var failures int
	var last *ReportLine
	body := make([]string, 0, len(lines))
	for _, raw := range lines {
		parsed, ok := ParseReportLine(raw)
		if !ok {
			body = append(body, "  "+s.FaintText.Render(raw))
			continue
		}
		stamp := s.MutedText.Render(parsed.At.Format(report.TimestampLayout))
		if parsed.Snapshot {
			p := parsed
			last = &p
			body = append(body, "  "+stamp+"  "+s.AccentText.Render(fmt.Sprintf("%d touches", parsed.Count)))
			continue
		}
		failures++
		body = append(body, "  "+stamp+"  "+s.WarningText.Render(parsed.Text))
	}

	b.WriteString(field(s, "lines", fmt.Sprintf("%d (showing %d)", total, len(lines))))
	b.WriteString(field(s, "failures shown", strconv.Itoa(failures)))
	if last != nil {
		countStyle := s.SuccessText
		if last.Count == 0 {
			countStyle = s.DangerText
		}
		b.WriteString(field(s, "last count", countStyle.Render(strconv.Itoa(last.Count))))
	}
	b.WriteString("\n")
	b.WriteString(strings.Join(body, "\n"))
	b.WriteString("\n")
	return b.String()
}

func field(s Styles, label, value string) string {
	return "  " + s.MutedText.Render(fmt.Sprintf("%-15s", label)) + value + "\n"
}

func keywordBreakdown(byWord map[string]int) string {
	words := make([]string, 0, len(byWord))
	for w := range byWord {
		words = append(words, w)
	}
	slices.Sort(words)
	parts := make([]string, 0, len(words))
	for _, w := range words {
		parts = append(parts, fmt.Sprintf("%s=%d", w, byWord[w]))
	}
	return strings.Join(parts, " ")
}
