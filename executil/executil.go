// Package executil runs external commands for the gate and the black-box
// tests.
package executil

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"sort"
	"strings"
)

// Command is one invocation.
type Command struct {
	Argv []string
	// Env is merged over the current environment.
	Env   map[string]string
	Dir   string
	Stdin io.Reader
}

// CommandRunner abstracts command execution so callers can be tested without
// spawning processes.
type CommandRunner interface {
	Run(ctx context.Context, c Command, stdout, stderr io.Writer) error
}

// OSRunner executes commands on the host.
type OSRunner struct{}

// Run executes c, streaming its output to stdout and stderr.
func (OSRunner) Run(ctx context.Context, c Command, stdout, stderr io.Writer) error {
	if len(c.Argv) == 0 {
		return fmt.Errorf("empty argv")
	}
	// #nosec G204 -- argv comes from fixed gate steps and test harnesses.
	cmd := exec.CommandContext(ctx, c.Argv[0], c.Argv[1:]...)
	cmd.Dir = c.Dir
	cmd.Stdin = c.Stdin
	cmd.Stdout = stdout
	cmd.Stderr = stderr
	if len(c.Env) != 0 {
		keys := make([]string, 0, len(c.Env))
		for k := range c.Env {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		merged := cmd.Environ()
		for _, k := range keys {
			merged = append(merged, fmt.Sprintf("%s=%s", k, c.Env[k]))
		}
		cmd.Env = merged
	}
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("run %q failed: %w", c.Argv, err)
	}
	return nil
}

// Output runs c and returns its combined output. A failure message carries
// the output.
func Output(ctx context.Context, r CommandRunner, c Command) (string, error) {
	var out bytes.Buffer
	if err := r.Run(ctx, c, &out, &out); err != nil {
		msg := strings.TrimSpace(out.String())
		if msg != "" {
			return out.String(), fmt.Errorf("%w: %s", err, msg)
		}
		return out.String(), err
	}
	return out.String(), nil
}

// ExitCode extracts a process exit status from err: 0 for nil, -1 when the
// process never produced one.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode()
	}
	return -1
}
