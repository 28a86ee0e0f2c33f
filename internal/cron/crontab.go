package cron

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
)

// Crontab is a Table backed by the crontab(1) command for one user.
type Crontab struct {
	User string
	// Path of the crontab binary; empty means "crontab" on $PATH.
	Path string
}

var _ Table = Crontab{}

func (c Crontab) command(ctx context.Context, args ...string) *exec.Cmd {
	bin := c.Path
	if bin == "" {
		bin = "crontab"
	}
	if c.User != "" {
		args = append([]string{"-u", c.User}, args...)
	}
	return exec.CommandContext(ctx, bin, args...)
}

// Read returns the user's crontab. A user without a crontab reads as empty.
func (c Crontab) Read(ctx context.Context) (string, error) {
	var stdout, stderr bytes.Buffer
	cmd := c.command(ctx, "-l")
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) && strings.Contains(stderr.String(), "no crontab for") {
			return "", nil
		}
		return "", fmt.Errorf("crontab -l: %w: %s", err, strings.TrimSpace(stderr.String()))
	}
	return stdout.String(), nil
}

// Write replaces the user's crontab with content.
func (c Crontab) Write(ctx context.Context, content string) error {
	var stderr bytes.Buffer
	cmd := c.command(ctx, "-")
	cmd.Stdin = strings.NewReader(content)
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("crontab -: %w: %s", err, strings.TrimSpace(stderr.String()))
	}
	return nil
}
