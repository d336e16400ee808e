package engine

import (
	"context"
	"strings"
	"testing"

	"github.com/simdock-lab/simdock/internal/molfile"
	"github.com/simdock-lab/simdock/internal/testutil"
	"github.com/simdock-lab/simdock/internal/toolexec"
)

const vinaOutput = `#################################################################
# If you used AutoDock Vina in your work, please cite:          #
#################################################################

Detected 8 CPUs
Reading input ... done.
Setting up the scoring function ... done.
Analyzing the binding site ... done.
Using random seed: 1234
Performing search ... done.
Refining results ... done.

mode |   affinity | dist from best mode
     | (kcal/mol) | rmsd l.b.| rmsd u.b.
-----+------------+----------+----------
   1         -7.2      0.000      0.000
   2         -6.9      1.732      2.845
   3         -6.1      3.011      5.223
Writing output ... done.
`

type fakeRunner struct {
	stdout string
	err    error
	calls  [][]string
}

func (f *fakeRunner) Run(_ context.Context, name string, args ...string) (*toolexec.Result, error) {
	f.calls = append(f.calls, append([]string{name}, args...))
	if f.err != nil {
		return nil, f.err
	}
	return &toolexec.Result{Stdout: f.stdout}, nil
}

func TestParseOutput(t *testing.T) {
	poses, err := ParseOutput(vinaOutput)
	if err != nil {
		t.Fatalf("ParseOutput failed: %v", err)
	}
	if len(poses) != 3 {
		t.Fatalf("expected 3 poses, got %d", len(poses))
	}

	first := poses[0]
	if first.Mode != 1 || first.Affinity != -7.2 || first.RMSDLower != 0 || first.RMSDUpper != 0 {
		t.Errorf("unexpected first pose: %+v", first)
	}
	last := poses[2]
	if last.Mode != 3 || last.Affinity != -6.1 || last.RMSDUpper != 5.223 {
		t.Errorf("unexpected last pose: %+v", last)
	}
}

func TestParseOutputNoPoses(t *testing.T) {
	if _, err := ParseOutput("Reading input ... done.\n"); err == nil {
		t.Error("expected error for output without a pose table")
	}
}

func TestBuildArgs(t *testing.T) {
	v := NewVina("vina", nil, testutil.NewTestLogger(t))

	spec := Spec{
		Receptor:       "rec.pdbqt",
		Ligand:         "lig.pdbqt",
		Output:         "out.pdbqt",
		Center:         molfile.Vec3{X: 1.5, Y: -2.25, Z: 3},
		Size:           molfile.Vec3{X: 25, Y: 25, Z: 25},
		Exhaustiveness: 8,
		NumModes:       9,
		EnergyRange:    3.0,
	}
	args := strings.Join(v.buildArgs(spec), " ")

	for _, want := range []string{
		"--receptor rec.pdbqt",
		"--ligand lig.pdbqt",
		"--out out.pdbqt",
		"--center_x 1.500",
		"--center_y -2.250",
		"--center_z 3.000",
		"--size_x 25.000",
		"--exhaustiveness 8",
		"--num_modes 9",
		"--energy_range 3",
	} {
		if !strings.Contains(args, want) {
			t.Errorf("args missing %q:\n%s", want, args)
		}
	}
	if strings.Contains(args, "--cpu") || strings.Contains(args, "--seed") {
		t.Errorf("unset optional flags should be omitted:\n%s", args)
	}
}

func TestBuildArgsOptional(t *testing.T) {
	v := NewVina("vina", nil, testutil.NewTestLogger(t))
	spec := Spec{
		Center: molfile.Vec3{}, Size: molfile.Vec3{X: 20, Y: 20, Z: 20},
		Exhaustiveness: 16, CPU: 4, Seed: 42,
	}
	args := strings.Join(v.buildArgs(spec), " ")
	if !strings.Contains(args, "--cpu 4") || !strings.Contains(args, "--seed 42") {
		t.Errorf("optional flags missing:\n%s", args)
	}
}

func TestValidateBox(t *testing.T) {
	v := NewVina("vina", nil, testutil.NewTestLogger(t))

	tests := []struct {
		name    string
		size    molfile.Vec3
		wantErr bool
	}{
		{"typical ligand box", molfile.Vec3{X: 25, Y: 25, Z: 25}, false},
		{"minimum", molfile.Vec3{X: 1, Y: 1, Z: 1}, false},
		{"maximum", molfile.Vec3{X: 200, Y: 200, Z: 200}, false},
		{"zero axis", molfile.Vec3{X: 0, Y: 25, Z: 25}, true},
		{"oversized axis", molfile.Vec3{X: 25, Y: 201, Z: 25}, true},
		{"negative", molfile.Vec3{X: 25, Y: 25, Z: -5}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.ValidateBox(molfile.Vec3{}, tt.size)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateBox(%v) error = %v, wantErr %v", tt.size, err, tt.wantErr)
			}
		})
	}
}

func TestVinaDock(t *testing.T) {
	runner := &fakeRunner{stdout: vinaOutput}
	v := NewVina("/opt/vina/bin/vina", runner, testutil.NewTestLogger(t))

	result, err := v.Dock(context.Background(), Spec{
		Receptor:       "rec.pdbqt",
		Ligand:         "lig.pdbqt",
		Output:         "out.pdbqt",
		Size:           molfile.Vec3{X: 25, Y: 25, Z: 25},
		Exhaustiveness: 8,
	})
	if err != nil {
		t.Fatalf("Dock failed: %v", err)
	}

	if len(runner.calls) != 1 {
		t.Fatalf("expected one vina invocation, got %d", len(runner.calls))
	}
	if runner.calls[0][0] != "/opt/vina/bin/vina" {
		t.Errorf("unexpected binary: %s", runner.calls[0][0])
	}

	best, ok := result.Best()
	if !ok || best.Affinity != -7.2 {
		t.Errorf("unexpected best pose: %+v", best)
	}
	if result.OutputPath != "out.pdbqt" {
		t.Errorf("unexpected output path: %s", result.OutputPath)
	}
}

func TestVinaDockRejectsBadBox(t *testing.T) {
	runner := &fakeRunner{stdout: vinaOutput}
	v := NewVina("vina", runner, testutil.NewTestLogger(t))

	_, err := v.Dock(context.Background(), Spec{Size: molfile.Vec3{X: 500, Y: 25, Z: 25}, Exhaustiveness: 8})
	if err == nil {
		t.Fatal("expected box validation error")
	}
	if len(runner.calls) != 0 {
		t.Error("vina should not run with an invalid box")
	}
}

func TestAdaptiveExhaustiveness(t *testing.T) {
	thresholds := []int{7, 12}
	values := []int{8, 16, 32}

	tests := []struct {
		bonds int
		want  int
	}{
		{0, 8},
		{7, 8},
		{8, 16},
		{12, 16},
		{13, 32},
		{40, 32},
	}
	for _, tt := range tests {
		got, err := AdaptiveExhaustiveness(tt.bonds, thresholds, values)
		if err != nil {
			t.Fatalf("AdaptiveExhaustiveness(%d) error: %v", tt.bonds, err)
		}
		if got != tt.want {
			t.Errorf("AdaptiveExhaustiveness(%d) = %d, want %d", tt.bonds, got, tt.want)
		}
	}

	if _, err := AdaptiveExhaustiveness(5, thresholds, []int{8, 16}); err == nil {
		t.Error("expected error for mismatched threshold and value counts")
	}
}

func TestRegistry(t *testing.T) {
	eng, err := Get("vina")
	if err != nil {
		t.Fatalf("vina should be registered: %v", err)
	}
	if eng.Name() != "vina" {
		t.Errorf("unexpected engine name: %s", eng.Name())
	}

	if _, err := Get("glide"); err == nil {
		t.Error("expected error for unregistered engine")
	}

	names := List()
	if len(names) == 0 || names[0] != "vina" {
		t.Errorf("unexpected engine list: %v", names)
	}
}
