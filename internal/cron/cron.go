package cron

import (
	"context"
	"fmt"
	"strings"

	robfig "github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Job is one tagged crontab entry that runs Command every Minutes minutes.
type Job struct {
	Minutes int
	Command string
	Comment string
}

// Schedule returns the five-field expression for the job.
func (j Job) Schedule() string {
	return fmt.Sprintf("*/%d * * * *", j.Minutes)
}

// Line renders the crontab line.
func (j Job) Line() string {
	return j.Schedule() + " " + j.Command + " " + tag(j.Comment)
}

// Validate checks the job renders to a line cron will accept.
func (j Job) Validate() error {
	if j.Minutes < 1 || j.Minutes > 59 {
		return fmt.Errorf("cron minutes must be between 1 and 59, got %d", j.Minutes)
	}
	if strings.TrimSpace(j.Command) == "" {
		return fmt.Errorf("cron command is empty")
	}
	if strings.ContainsAny(j.Command, "\n%") {
		return fmt.Errorf("cron command must not contain newlines or %%: %q", j.Command)
	}
	if strings.TrimSpace(j.Comment) == "" {
		return fmt.Errorf("cron comment is empty")
	}
	if _, err := robfig.ParseStandard(j.Schedule()); err != nil {
		return fmt.Errorf("parse schedule %q: %w", j.Schedule(), err)
	}
	return nil
}

func tag(comment string) string {
	return "# " + strings.TrimSpace(comment)
}

// Table reads and replaces a whole crontab.
type Table interface {
	Read(ctx context.Context) (string, error)
	Write(ctx context.Context, content string) error
}

// Scheduler edits tagged entries in a Table.
type Scheduler struct {
	table Table
	log   *zap.Logger
}

// NewScheduler returns a Scheduler backed by table.
func NewScheduler(table Table, log *zap.Logger) *Scheduler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Scheduler{table: table, log: log.Named("cron")}
}

// Install replaces any job tagged with job.Comment by job.
func (s *Scheduler) Install(ctx context.Context, job Job) error {
	if err := job.Validate(); err != nil {
		return err
	}
	current, err := s.table.Read(ctx)
	if err != nil {
		return fmt.Errorf("read crontab: %w", err)
	}

	kept, removed := without(current, job.Comment)
	kept = append(kept, job.Line())
	if err := s.table.Write(ctx, render(kept)); err != nil {
		return fmt.Errorf("write crontab: %w", err)
	}
	s.log.Info("installed cron job",
		zap.String("line", job.Line()),
		zap.Int("replaced", removed))
	return nil
}

// Remove deletes every job tagged with comment. It reports how many lines were
// removed and leaves the table untouched when there were none.
func (s *Scheduler) Remove(ctx context.Context, comment string) (int, error) {
	if strings.TrimSpace(comment) == "" {
		return 0, fmt.Errorf("cron comment is empty")
	}
	current, err := s.table.Read(ctx)
	if err != nil {
		return 0, fmt.Errorf("read crontab: %w", err)
	}
	kept, removed := without(current, comment)
	if removed == 0 {
		return 0, nil
	}
	if err := s.table.Write(ctx, render(kept)); err != nil {
		return 0, fmt.Errorf("write crontab: %w", err)
	}
	s.log.Info("removed cron job", zap.String("comment", comment), zap.Int("removed", removed))
	return removed, nil
}

// Find returns the lines tagged with comment.
func (s *Scheduler) Find(ctx context.Context, comment string) ([]string, error) {
	current, err := s.table.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("read crontab: %w", err)
	}
	var found []string
	for _, line := range splitLines(current) {
		if tagged(line, comment) {
			found = append(found, line)
		}
	}
	return found, nil
}

func without(content, comment string) ([]string, int) {
	var kept []string
	removed := 0
	for _, line := range splitLines(content) {
		if tagged(line, comment) {
			removed++
			continue
		}
		kept = append(kept, line)
	}
	return kept, removed
}

func tagged(line, comment string) bool {
	trimmed := strings.TrimSpace(line)
	if trimmed == "" || strings.HasPrefix(trimmed, "#") {
		return false
	}
	return strings.HasSuffix(trimmed, tag(comment))
}

func splitLines(content string) []string {
	content = strings.TrimRight(content, "\n")
	if content == "" {
		return nil
	}
	return strings.Split(content, "\n")
}

// render joins lines with the trailing newline cron requires.
func render(lines []string) string {
	if len(lines) == 0 {
		return ""
	}
	return strings.Join(lines, "\n") + "\n"
}
