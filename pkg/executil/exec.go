// Package executil runs external commands behind an interface so callers
// can be tested without spawning processes.
package executil

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
)

const maxStderrLen = 500

// Executor runs external commands.
type Executor interface {
	// Run executes cmd and returns its standard output. On failure the
	// error carries the first bytes of standard error.
	Run(ctx context.Context, cmd string, args ...string) ([]byte, error)
}

// RealExecutor spawns actual processes.
type RealExecutor struct {
	// Dir is the working directory; empty inherits the current one.
	Dir string
}

func (e *RealExecutor) Run(ctx context.Context, cmd string, args ...string) ([]byte, error) {
	c := exec.CommandContext(ctx, cmd, args...)
	c.Dir = e.Dir

	var stdout, stderr bytes.Buffer
	c.Stdout = &stdout
	c.Stderr = &stderr
	if err := c.Run(); err != nil {
		msg := strings.TrimSpace(stderr.String())
		if len(msg) > maxStderrLen {
			msg = msg[:maxStderrLen]
		}
		if msg != "" {
			return stdout.Bytes(), fmt.Errorf("exec %s: %s: %w", cmd, msg, err)
		}
		return stdout.Bytes(), fmt.Errorf("exec %s: %w", cmd, err)
	}
	return stdout.Bytes(), nil
}

// LookPath reports whether cmd resolves to an executable.
func LookPath(cmd string) bool {
	_, err := exec.LookPath(cmd)
	return err == nil
}
