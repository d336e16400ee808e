package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/simdock-lab/simdock/internal/cli/output"
	"github.com/simdock-lab/simdock/internal/toolexec"
)

// probeTool is stubbed in tests.
var probeTool = toolexec.Probe

// ToolCheck is one external tool's probe result.
type ToolCheck struct {
	Tool        string `json:"tool"`
	Application string `json:"application"`
	Required    bool   `json:"required"`
	Path        string `json:"path,omitempty"`
	Functional  bool   `json:"functional"`
	Error       string `json:"error,omitempty"`
	Hint        string `json:"hint,omitempty"`
}

// DoctorOutput is the JSON output for the doctor command.
type DoctorOutput struct {
	Checks  []ToolCheck `json:"checks"`
	Healthy bool        `json:"healthy"`
}

// NewDoctorCommand creates the doctor command.
func NewDoctorCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Check that the external docking tools are installed",
		Long: `Probe the external applications SimDock depends on.

Open Babel (obabel) and AutoDock Vina (vina) are required for structure
preparation and docking. A molecular viewer (ChimeraX or VMD) is
recommended for inspecting poses but not required.

The command exits with an error when a required tool is missing or not
functional.`,
		Example: `  # Check the default tool paths
  simdock doctor

  # Machine-readable report
  simdock doctor -o json`,
		RunE: runDoctor,
	}
	return cmd
}

func runDoctor(cmd *cobra.Command, _ []string) error {
	cmdCtx := NewCommandContextWithoutStore(cmd)
	r := cmdCtx.Renderer
	exes := cmdCtx.Cfg.Executables

	specs := []struct {
		tool        string
		application string
		path        string
		required    bool
		hint        string
	}{
		{"obabel", "Open Babel", exes.OBabel, true,
			"install Open Babel and make obabel available on PATH, or set executables.obabel"},
		{"vina", "AutoDock Vina", exes.Vina, true,
			"install AutoDock Vina and make vina available on PATH, or set executables.vina"},
		{"chimerax", "UCSF ChimeraX", exes.ChimeraX, false,
			"install ChimeraX or VMD to visualize docking poses"},
		{"vmd", "VMD", exes.VMD, false,
			"install ChimeraX or VMD to visualize docking poses"},
	}

	out := DoctorOutput{Healthy: true}
	for _, spec := range specs {
		status := probeTool(cmd.Context(), spec.tool, spec.path)
		check := ToolCheck{
			Tool:        spec.tool,
			Application: spec.application,
			Required:    spec.required,
			Path:        status.Path,
			Functional:  status.Functional,
			Error:       status.Error,
		}
		if !status.Functional {
			check.Hint = spec.hint
			if spec.required {
				out.Healthy = false
			}
		}
		out.Checks = append(out.Checks, check)
	}

	if r.EffectiveMode() == output.ModeJSON {
		if err := r.JSON(out); err != nil {
			return err
		}
	} else {
		renderDoctor(r, out)
	}

	if !out.Healthy {
		return fmt.Errorf("required tools are missing; see the report above")
	}
	return nil
}

func renderDoctor(r *output.Renderer, out DoctorOutput) {
	r.Header(1, "SimDock Environment Check")

	r.Header(2, "Required")
	for _, c := range out.Checks {
		if c.Required {
			renderCheck(r, c)
		}
	}
	r.Println("")

	r.Header(2, "Viewers (optional)")
	viewerFound := false
	for _, c := range out.Checks {
		if !c.Required {
			renderCheck(r, c)
			if c.Functional {
				viewerFound = true
			}
		}
	}
	r.Println("")

	if out.Healthy {
		r.Success("All required tools are available")
		if !viewerFound {
			r.Warning("no molecular viewer found; install ChimeraX or VMD to inspect poses")
		}
	} else {
		r.Error("Some required tools are missing")
	}
}

func renderCheck(r *output.Renderer, c ToolCheck) {
	if c.Functional {
		r.StatusLine(fmt.Sprintf("%s (%s)", c.Tool, c.Application), "success", c.Path)
		return
	}
	detail := c.Error
	if detail == "" {
		detail = "not functional"
	}
	r.StatusLine(fmt.Sprintf("%s (%s)", c.Tool, c.Application), "failed", detail)
	if c.Hint != "" {
		r.Println("    " + r.Muted("hint: "+c.Hint))
	}
}
