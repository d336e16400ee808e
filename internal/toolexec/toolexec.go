// Package toolexec runs the external command-line tools simdock depends on
// (Open Babel, AutoDock Vina, molecular viewers) and probes their presence.
package toolexec

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"path/filepath"
	"strings"
	"time"
)

// ErrToolNotFound indicates the requested executable could not be located.
var ErrToolNotFound = errors.New("tool not found")

// DefaultTimeout bounds a single external tool invocation.
const DefaultTimeout = 10 * time.Minute

// Result holds the captured output of an external command.
type Result struct {
	Stdout string
	Stderr string
}

// Runner executes external commands. The interface exists so engine and
// molfile code can be tested without the real binaries installed.
type Runner interface {
	Run(ctx context.Context, name string, args ...string) (*Result, error)
}

// ExecRunner runs commands via os/exec.
type ExecRunner struct {
	// Timeout applies per invocation. Zero means DefaultTimeout.
	Timeout time.Duration
}

// NewRunner returns a Runner backed by os/exec with the default timeout.
func NewRunner() *ExecRunner {
	return &ExecRunner{}
}

// Run executes name with args, capturing stdout and stderr.
// A missing binary is reported as ErrToolNotFound; a non-zero exit carries
// the tool's trimmed stderr in the error message.
func (r *ExecRunner) Run(ctx context.Context, name string, args ...string) (*Result, error) {
	timeout := r.Timeout
	if timeout == 0 {
		timeout = DefaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, name, args...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	res := &Result{Stdout: stdout.String(), Stderr: stderr.String()}

	if err != nil {
		if errors.Is(err, exec.ErrNotFound) {
			return res, fmt.Errorf("%w: %s", ErrToolNotFound, name)
		}
		if ctx.Err() != nil {
			return res, fmt.Errorf("%s timed out after %s", name, timeout)
		}
		msg := trimOutput(res.Stderr)
		if msg == "" {
			msg = err.Error()
		}
		return res, fmt.Errorf("%s failed: %s", filepath.Base(name), msg)
	}

	return res, nil
}

// trimOutput collapses tool stderr to a single reasonably short line.
func trimOutput(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[:i]
	}
	const max = 200
	if len(s) > max {
		s = s[:max]
	}
	return s
}
