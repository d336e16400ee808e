package toolexec

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"time"
)

// probeTimeout bounds a functionality check. Probes invoke the tool with a
// cheap informational flag, so a well-behaved binary answers in well under
// ten seconds.
const probeTimeout = 10 * time.Second

// ProbeStatus describes whether an executable exists and responds.
type ProbeStatus struct {
	Tool       string
	Path       string
	Exists     bool
	Functional bool
	Error      string
}

// probeArgs returns the invocation used to verify a tool responds.
func probeArgs(tool string) []string {
	switch tool {
	case "obabel":
		return []string{"-L", "formats"}
	case "vina":
		return []string{"--help"}
	default:
		// Viewers (chimerax, vmd) and anything unknown.
		return []string{"--version"}
	}
}

// Probe checks that the executable at path exists and responds to a trivial
// invocation. tool selects the probe flags ("obabel", "vina", "chimerax",
// "vmd").
func Probe(ctx context.Context, tool, path string) ProbeStatus {
	status := ProbeStatus{Tool: tool, Path: path}

	if filepath.IsAbs(path) {
		if _, err := os.Stat(path); err != nil {
			return status
		}
	} else if _, err := exec.LookPath(path); err != nil {
		return status
	}
	status.Exists = true

	ctx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, path, probeArgs(tool)...)
	out, err := cmd.CombinedOutput()

	// Some tools (vina --help among them) exit non-zero while still printing
	// usage text, so any output counts as functional.
	if err == nil || len(out) > 0 {
		status.Functional = true
		return status
	}

	if ctx.Err() != nil {
		status.Error = "probe timed out"
	} else {
		status.Error = err.Error()
	}
	return status
}
