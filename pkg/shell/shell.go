// Package shell runs external commands for pipeline steps.
package shell

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"
)

// Shell executes a command and returns its output lines.
type Shell interface {
	Execute(ctx context.Context, name string, args ...string) ([]string, error)
}

// Exec runs commands as subprocesses in a working directory.
type Exec struct {
	Dir string
}

// NewExec creates a shell that runs commands in dir.
func NewExec(dir string) *Exec {
	return &Exec{Dir: dir}
}

func (e *Exec) Execute(ctx context.Context, name string, args ...string) ([]string, error) {
	if !strings.Contains(name, "/") {
		if _, err := exec.LookPath(name); err != nil {
			return nil, fmt.Errorf("%s binary not found in PATH: %w", name, err)
		}
	}

	slog.Debug("running command", "command", name, "args", args, "dir", e.Dir)

	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = e.Dir

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("%s %s failed: %w\nstderr: %s", name, strings.Join(args, " "), err, stderr.String())
	}

	return splitLines(stdout.String()), nil
}

func splitLines(s string) []string {
	s = strings.TrimRight(s, "\n")
	if s == "" {
		return nil
	}
	return strings.Split(s, "\n")
}
