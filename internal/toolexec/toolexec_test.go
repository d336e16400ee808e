package toolexec

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
)

func TestRunCapturesStdout(t *testing.T) {
	r := NewRunner()
	res, err := r.Run(context.Background(), "echo", "hello")
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if strings.TrimSpace(res.Stdout) != "hello" {
		t.Errorf("expected stdout 'hello', got %q", res.Stdout)
	}
}

func TestRunMissingBinary(t *testing.T) {
	r := NewRunner()
	_, err := r.Run(context.Background(), "simdock-no-such-binary-xyzzy")
	if !errors.Is(err, ErrToolNotFound) {
		t.Errorf("expected ErrToolNotFound, got %v", err)
	}
}

func TestRunNonZeroExitCarriesStderr(t *testing.T) {
	r := NewRunner()
	_, err := r.Run(context.Background(), "sh", "-c", "echo boom >&2; exit 3")
	if err == nil {
		t.Fatal("expected an error for non-zero exit")
	}
	if !strings.Contains(err.Error(), "boom") {
		t.Errorf("error should carry the tool's stderr, got: %v", err)
	}
}

func TestRunTimeout(t *testing.T) {
	r := &ExecRunner{Timeout: 50 * time.Millisecond}
	_, err := r.Run(context.Background(), "sleep", "5")
	if err == nil {
		t.Fatal("expected a timeout error")
	}
	if !strings.Contains(err.Error(), "timed out") {
		t.Errorf("expected timeout message, got: %v", err)
	}
}

func TestTrimOutput(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain", "error: bad input", "error: bad input"},
		{"multiline keeps first", "first line\nsecond line", "first line"},
		{"trims whitespace", "  padded  \n", "padded"},
		{"long line truncated", strings.Repeat("x", 300), strings.Repeat("x", 200)},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := trimOutput(tt.in); got != tt.want {
				t.Errorf("trimOutput(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestProbeMissingTool(t *testing.T) {
	status := Probe(context.Background(), "vina", "simdock-no-such-binary-xyzzy")
	if status.Exists {
		t.Error("missing binary must not report Exists")
	}
	if status.Functional {
		t.Error("missing binary must not report Functional")
	}
}

func TestProbeFunctionalTool(t *testing.T) {
	// sh -> unknown tool, probed with --version; any output counts.
	status := Probe(context.Background(), "sh", "sh")
	if !status.Exists {
		t.Fatal("sh should exist on PATH")
	}
}

func TestProbeArgs(t *testing.T) {
	tests := []struct {
		tool string
		want string
	}{
		{"obabel", "-L"},
		{"vina", "--help"},
		{"chimerax", "--version"},
		{"vmd", "--version"},
	}
	for _, tt := range tests {
		args := probeArgs(tt.tool)
		if len(args) == 0 || args[0] != tt.want {
			t.Errorf("probeArgs(%q)[0] = %v, want %q", tt.tool, args, tt.want)
		}
	}
}
