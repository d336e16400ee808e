package engine

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strconv"
	"strings"

	"github.com/simdock-lab/simdock/internal/molfile"
	"github.com/simdock-lab/simdock/internal/toolexec"
)

// Search box limits accepted by Vina, in angstroms per axis.
const (
	MinBoxSize = 1.0
	MaxBoxSize = 200.0
)

// Exhaustiveness presets.
const (
	QuickExhaustiveness  = 4
	RefineExhaustiveness = 32
)

func init() {
	Register("vina", func() Engine { return NewVina("vina", nil, nil) })
}

// Vina drives the AutoDock Vina command line.
type Vina struct {
	binary string
	runner toolexec.Runner
	logger *slog.Logger
}

// NewVina returns a Vina engine using the given binary path. A nil runner
// uses the default process runner.
func NewVina(binary string, runner toolexec.Runner, logger *slog.Logger) *Vina {
	if binary == "" {
		binary = "vina"
	}
	if runner == nil {
		runner = toolexec.NewRunner()
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Vina{binary: binary, runner: runner, logger: logger}
}

// Name returns the engine identifier.
func (v *Vina) Name() string { return "vina" }

// Version reports the Vina build string. Vina prints usage to stderr and
// exits nonzero on --version, so the probe output is used instead.
func (v *Vina) Version(ctx context.Context) (string, error) {
	status := toolexec.Probe(ctx, "vina", v.binary)
	if !status.Functional {
		return "", fmt.Errorf("vina not functional: %s", status.Error)
	}
	return status.Path, nil
}

// ValidateBox checks the search box against Vina's accepted range.
func (v *Vina) ValidateBox(_, size molfile.Vec3) error {
	axes := []struct {
		name string
		val  float64
	}{{"x", size.X}, {"y", size.Y}, {"z", size.Z}}
	for _, a := range axes {
		if a.val < MinBoxSize || a.val > MaxBoxSize {
			return fmt.Errorf("box size %s=%.3f out of range [%.0f, %.0f]", a.name, a.val, MinBoxSize, MaxBoxSize)
		}
	}
	return nil
}

// Dock runs a docking job and parses the pose table from stdout.
func (v *Vina) Dock(ctx context.Context, spec Spec) (*Result, error) {
	if err := v.ValidateBox(spec.Center, spec.Size); err != nil {
		return nil, err
	}

	args := v.buildArgs(spec)
	v.logger.Debug("running vina", "ligand", spec.Ligand, "exhaustiveness", spec.Exhaustiveness)

	res, err := v.runner.Run(ctx, v.binary, args...)
	if err != nil {
		return nil, fmt.Errorf("vina failed for %s: %w", spec.Ligand, err)
	}

	poses, err := ParseOutput(res.Stdout)
	if err != nil {
		return nil, fmt.Errorf("could not parse vina output for %s: %w", spec.Ligand, err)
	}

	return &Result{
		Poses:      poses,
		OutputPath: spec.Output,
		RawOutput:  res.Stdout,
	}, nil
}

func (v *Vina) buildArgs(spec Spec) []string {
	args := []string{
		"--receptor", spec.Receptor,
		"--ligand", spec.Ligand,
		"--out", spec.Output,
		"--center_x", fmt.Sprintf("%.3f", spec.Center.X),
		"--center_y", fmt.Sprintf("%.3f", spec.Center.Y),
		"--center_z", fmt.Sprintf("%.3f", spec.Center.Z),
		"--size_x", fmt.Sprintf("%.3f", spec.Size.X),
		"--size_y", fmt.Sprintf("%.3f", spec.Size.Y),
		"--size_z", fmt.Sprintf("%.3f", spec.Size.Z),
		"--exhaustiveness", strconv.Itoa(spec.Exhaustiveness),
	}
	if spec.NumModes > 0 {
		args = append(args, "--num_modes", strconv.Itoa(spec.NumModes))
	}
	if spec.EnergyRange > 0 {
		args = append(args, "--energy_range", fmt.Sprintf("%g", spec.EnergyRange))
	}
	if spec.CPU > 0 {
		args = append(args, "--cpu", strconv.Itoa(spec.CPU))
	}
	if spec.Seed != 0 {
		args = append(args, "--seed", strconv.FormatInt(spec.Seed, 10))
	}
	return args
}

// poseLine matches rows of Vina's result table:
//
//	mode |   affinity | dist from best mode
//	     | (kcal/mol) | rmsd l.b.| rmsd u.b.
//	   1       -7.2          0.000      0.000
var poseLine = regexp.MustCompile(`^\s*(\d+)\s+(-?\d+(?:\.\d+)?)\s+(\d+(?:\.\d+)?)\s+(\d+(?:\.\d+)?)\s*$`)

// ParseOutput extracts the pose table from Vina stdout.
func ParseOutput(stdout string) ([]Pose, error) {
	var poses []Pose
	scanner := bufio.NewScanner(strings.NewReader(stdout))
	inTable := false
	for scanner.Scan() {
		line := scanner.Text()
		if strings.HasPrefix(strings.TrimSpace(line), "-----") {
			inTable = true
			continue
		}
		if !inTable {
			continue
		}
		m := poseLine.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		mode, _ := strconv.Atoi(m[1])
		affinity, _ := strconv.ParseFloat(m[2], 64)
		lower, _ := strconv.ParseFloat(m[3], 64)
		upper, _ := strconv.ParseFloat(m[4], 64)
		poses = append(poses, Pose{Mode: mode, Affinity: affinity, RMSDLower: lower, RMSDUpper: upper})
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	if len(poses) == 0 {
		return nil, fmt.Errorf("no poses found in output")
	}
	return poses, nil
}

// AdaptiveExhaustiveness picks a search effort from ligand flexibility.
// Thresholds are rotatable-bond counts; values has one more entry than
// thresholds and supplies the exhaustiveness for each band.
func AdaptiveExhaustiveness(rotatableBonds int, thresholds, values []int) (int, error) {
	if len(values) != len(thresholds)+1 {
		return 0, fmt.Errorf("need %d exhaustiveness values for %d thresholds, got %d",
			len(thresholds)+1, len(thresholds), len(values))
	}
	for i, limit := range thresholds {
		if rotatableBonds <= limit {
			return values[i], nil
		}
	}
	return values[len(values)-1], nil
}
