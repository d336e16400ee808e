package commands

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/simdock-lab/simdock/internal/cli/output"
	"github.com/simdock-lab/simdock/internal/engine"
	"github.com/simdock-lab/simdock/internal/molfile"
	"github.com/simdock-lab/simdock/internal/project"
	"github.com/simdock-lab/simdock/internal/state"
)

// DockOptions holds options for the dock command.
type DockOptions struct {
	Receptor       string
	Ligand         string
	Center         string
	Size           string
	Exhaustiveness int
	NumModes       int
	EnergyRange    float64
	Seed           int64
	OutputDir      string
	SkipPrepare    bool
}

// NewDockCommand creates the dock command.
func NewDockCommand() *cobra.Command {
	opts := &DockOptions{}
	cmd := &cobra.Command{
		Use:   "dock",
		Short: "Dock a single ligand against a receptor",
		Long: `Run one docking job with AutoDock Vina.

Raw inputs (PDB, SDF, MOL2) are converted to PDBQT with Open Babel
first; pass --skip-prepare when both files are already PDBQT.

The search box defaults to the receptor's bounding box plus the
configured padding (blind docking). Pass --center to target a known
site; --size then defaults to the configured box size.

With --exhaustiveness 0 the search effort adapts to the ligand's
rotatable bond count.`,
		Example: `  # Blind docking with adaptive effort
  simdock dock --receptor 6LU7_cleaned.pdb --ligand aspirin.sdf -e 0

  # Targeted docking at a known site
  simdock dock -r rec.pdbqt -l lig.pdbqt --skip-prepare \
    --center 12.5,8.0,-3.2 --size 20,20,20`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runDock(cmd, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.Receptor, "receptor", "r", "", "Receptor file (required)")
	cmd.Flags().StringVarP(&opts.Ligand, "ligand", "l", "", "Ligand file (required)")
	cmd.Flags().StringVar(&opts.Center, "center", "", "Box center as x,y,z (default: receptor centroid)")
	cmd.Flags().StringVar(&opts.Size, "size", "", "Box size as x,y,z in angstroms")
	cmd.Flags().IntVarP(&opts.Exhaustiveness, "exhaustiveness", "e", 0, "Search effort (0 = adaptive)")
	cmd.Flags().IntVar(&opts.NumModes, "num-modes", 0, "Binding modes to generate")
	cmd.Flags().Float64Var(&opts.EnergyRange, "energy-range", 0, "Max energy spread between modes (kcal/mol)")
	cmd.Flags().Int64Var(&opts.Seed, "seed", 0, "Random seed for reproducible runs")
	cmd.Flags().StringVar(&opts.OutputDir, "out-dir", "", "Directory for pose output (default: project results dir)")
	cmd.Flags().BoolVar(&opts.SkipPrepare, "skip-prepare", false, "Inputs are already PDBQT")

	_ = cmd.MarkFlagRequired("receptor")
	_ = cmd.MarkFlagRequired("ligand")

	return cmd
}

func runDock(cmd *cobra.Command, opts *DockOptions) error {
	cmdCtx, cleanup, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	defer cleanup()
	r := cmdCtx.Renderer

	outputDir, projectPath := resolveOutputDir(opts.OutputDir, "results")

	receptor, ligand, err := prepareInputs(cmd.Context(), cmdCtx, opts, outputDir)
	if err != nil {
		return err
	}

	center, size, err := resolveBox(cmd.Context(), cmdCtx, opts, receptor)
	if err != nil {
		return err
	}

	exhaustiveness := opts.Exhaustiveness
	if exhaustiveness == 0 {
		exhaustiveness, err = adaptiveFor(cmdCtx, ligand)
		if err != nil {
			return err
		}
		cmdCtx.Logger.Info("adaptive exhaustiveness", "ligand", ligand, "value", exhaustiveness)
	}

	eng, err := newEngine(cmdCtx)
	if err != nil {
		return err
	}

	run, err := cmdCtx.Store.CreateRun(projectPath, cmdCtx.Cfg.Environment, "dock", eng.Name(), filepath.Base(receptor))
	if err != nil {
		return err
	}

	screener := engine.NewScreener(eng, cmdCtx.Store, cmdCtx.Logger)
	items, err := screener.Run(cmd.Context(), run.ID, engine.ScreenOptions{
		Receptor:       receptor,
		Ligands:        []string{ligand},
		OutputDir:      outputDir,
		Center:         center,
		Size:           size,
		Exhaustiveness: exhaustiveness,
		NumModes:       pickInt(opts.NumModes, cmdCtx.Cfg.Docking.NumModes),
		EnergyRange:    pickFloat(opts.EnergyRange, cmdCtx.Cfg.Docking.EnergyRange),
		CPU:            cmdCtx.Cfg.Docking.CPU,
		Seed:           opts.Seed,
		Workers:        1,
	})
	if err != nil {
		_ = cmdCtx.Store.CompleteRun(run.ID, state.RunStatusCancelled, err.Error())
		return err
	}

	item := items[0]
	if item.Err != nil {
		_ = cmdCtx.Store.CompleteRun(run.ID, state.RunStatusFailed, item.Err.Error())
		return item.Err
	}
	if err := cmdCtx.Store.CompleteRun(run.ID, state.RunStatusCompleted, ""); err != nil {
		return err
	}

	return renderDockResult(r, run.ID, item)
}

func renderDockResult(r *output.Renderer, runID string, item engine.ScreenItem) error {
	if r.EffectiveMode() == output.ModeJSON {
		return r.JSON(map[string]any{
			"run_id": runID,
			"ligand": item.Ligand,
			"output": item.Result.OutputPath,
			"poses":  item.Result.Poses,
		})
	}

	r.Header(1, "Docking Result")
	tw := r.NewTable()
	tw.AppendHeader(table.Row{"Mode", "Affinity (kcal/mol)", "RMSD l.b.", "RMSD u.b."})
	for _, p := range item.Result.Poses {
		tw.AppendRow(table.Row{p.Mode, fmt.Sprintf("%.1f", p.Affinity),
			fmt.Sprintf("%.3f", p.RMSDLower), fmt.Sprintf("%.3f", p.RMSDUpper)})
	}
	r.RenderTable(tw)
	r.Println("")
	r.Printf("Poses written to %s\n", item.Result.OutputPath)
	r.Printf("Run recorded as %s\n", shortID(runID))
	return nil
}

// prepareInputs converts raw structures to PDBQT unless told not to.
func prepareInputs(ctx context.Context, cmdCtx *CommandContext, opts *DockOptions, outputDir string) (receptor, ligand string, err error) {
	receptor, ligand = opts.Receptor, opts.Ligand
	if opts.SkipPrepare {
		return receptor, ligand, nil
	}

	prep := newPreparer(cmdCtx)
	if molfile.Ext(receptor) != ".pdbqt" {
		receptor, err = prep.PrepareReceptor(ctx, opts.Receptor, outputDir, molfile.ReceptorOptions{RemoveWater: true})
		if err != nil {
			return "", "", fmt.Errorf("receptor preparation failed: %w", err)
		}
	}
	if molfile.Ext(ligand) != ".pdbqt" {
		ligand, err = prep.PrepareLigand(ctx, opts.Ligand, outputDir, molfile.LigandOptions{AddHydrogens: true})
		if err != nil {
			return "", "", fmt.Errorf("ligand preparation failed: %w", err)
		}
	}
	return receptor, ligand, nil
}

// resolveBox determines the search box from flags or the receptor extent.
func resolveBox(ctx context.Context, cmdCtx *CommandContext, opts *DockOptions, receptor string) (center, size molfile.Vec3, err error) {
	cfgBox := cmdCtx.Cfg.Docking.BoxSize
	size = molfile.Vec3{X: cfgBox[0], Y: cfgBox[1], Z: cfgBox[2]}
	if opts.Size != "" {
		size, err = molfile.ParseVec3(opts.Size)
		if err != nil {
			return center, size, fmt.Errorf("invalid --size: %w", err)
		}
	}

	if opts.Center != "" {
		center, err = molfile.ParseVec3(opts.Center)
		if err != nil {
			return center, size, fmt.Errorf("invalid --center: %w", err)
		}
		return center, size, nil
	}

	// Blind docking: box around the whole receptor.
	coords, err := newPreparer(cmdCtx).Coordinates(ctx, receptor, os.TempDir())
	if err != nil {
		return center, size, fmt.Errorf("could not read receptor coordinates: %w", err)
	}
	center, boxSize, err := molfile.BoundingBox(coords, cmdCtx.Cfg.Docking.BoxPadding)
	if err != nil {
		return center, size, err
	}
	if opts.Size == "" {
		size = boxSize
	}
	return center, size, nil
}

// adaptiveFor picks exhaustiveness from the prepared ligand's flexibility.
func adaptiveFor(cmdCtx *CommandContext, ligand string) (int, error) {
	bonds, err := molfile.RotatableBonds(ligand)
	if err != nil {
		return 0, fmt.Errorf("could not count rotatable bonds: %w", err)
	}
	return engine.AdaptiveExhaustiveness(bonds,
		cmdCtx.Cfg.Docking.AdaptiveThresholds, cmdCtx.Cfg.Docking.AdaptiveValues)
}

// newEngine constructs the configured docking engine with its binary path.
func newEngine(cmdCtx *CommandContext) (engine.Engine, error) {
	name := cmdCtx.Cfg.Docking.Engine
	if name == "" || name == "vina" {
		return engine.NewVina(cmdCtx.Cfg.Executables.Vina, nil, cmdCtx.Logger), nil
	}
	return engine.Get(name)
}

// resolveOutputDir picks the output directory: explicit flag, the project
// subdirectory when inside a project, or the working directory. The second
// return is the project path for run records.
func resolveOutputDir(flag, sub string) (dir, projectPath string) {
	cwd, _ := os.Getwd()
	if p, err := project.Find(cwd); err == nil {
		projectPath = p.Root
		if flag == "" {
			return p.Dir(sub), projectPath
		}
	}
	if flag != "" {
		return flag, projectPath
	}
	if projectPath == "" {
		projectPath = cwd
	}
	return cwd, projectPath
}

func pickInt(flag, cfg int) int {
	if flag > 0 {
		return flag
	}
	return cfg
}

func pickFloat(flag, cfg float64) float64 {
	if flag > 0 {
		return flag
	}
	return cfg
}
