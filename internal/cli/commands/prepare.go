package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/simdock-lab/simdock/internal/molfile"
	"github.com/simdock-lab/simdock/internal/toolexec"
)

// PrepareOptions holds options for the prepare commands.
type PrepareOptions struct {
	Project     string
	OutputDir   string
	KeepWater   bool
	NoHydrogens bool
	PH          float64
}

// NewPrepareCommand creates the prepare command group.
func NewPrepareCommand() *cobra.Command {
	opts := &PrepareOptions{}
	cmd := &cobra.Command{
		Use:   "prepare",
		Short: "Convert structures to docking-ready PDBQT with Open Babel",
	}

	receptorCmd := &cobra.Command{
		Use:   "receptor <file>",
		Short: "Prepare a receptor (PDB to rigid PDBQT)",
		Long: `Convert a receptor PDB file to PDBQT for docking.

Water molecules are removed unless --keep-water is set. The output is
written next to the input as <name>_receptor.pdbqt, or into --out-dir.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPrepareReceptor(cmd, args[0], opts)
		},
	}
	receptorCmd.Flags().BoolVar(&opts.KeepWater, "keep-water", false, "Keep water molecules")

	ligandCmd := &cobra.Command{
		Use:   "ligand <files...>",
		Short: "Prepare ligands (PDB/SDF/MOL2 to PDBQT)",
		Long: `Convert ligand files to PDBQT for docking.

Hydrogens are added at the given pH unless --no-hydrogens is set. Each
output is written next to its input as <name>_ligand.pdbqt, or into
--out-dir.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPrepareLigands(cmd, args, opts)
		},
	}
	ligandCmd.Flags().BoolVar(&opts.NoHydrogens, "no-hydrogens", false, "Do not add hydrogens")
	ligandCmd.Flags().Float64Var(&opts.PH, "ph", molfile.DefaultPH, "Protonation pH")

	cmd.PersistentFlags().StringVar(&opts.OutputDir, "out-dir", "", "Directory for prepared files (default: next to input)")
	cmd.AddCommand(receptorCmd, ligandCmd)

	return cmd
}

func newPreparer(cmdCtx *CommandContext) *molfile.Preparer {
	return molfile.NewPreparer(cmdCtx.Cfg.Executables.OBabel, toolexec.NewRunner(), cmdCtx.Logger)
}

func runPrepareReceptor(cmd *cobra.Command, path string, opts *PrepareOptions) error {
	cmdCtx := NewCommandContextWithoutStore(cmd)
	r := cmdCtx.Renderer

	prep := newPreparer(cmdCtx)
	out, err := prep.PrepareReceptor(cmd.Context(), path, opts.OutputDir, molfile.ReceptorOptions{
		RemoveWater: !opts.KeepWater,
	})
	if err != nil {
		return fmt.Errorf("receptor preparation failed: %w", err)
	}

	r.Success(fmt.Sprintf("Prepared receptor: %s", out))
	return nil
}

func runPrepareLigands(cmd *cobra.Command, paths []string, opts *PrepareOptions) error {
	cmdCtx := NewCommandContextWithoutStore(cmd)
	r := cmdCtx.Renderer

	valid, rejected := molfile.FilterLigands(paths)
	for path, err := range rejected {
		r.Warning(fmt.Sprintf("skipping %s: %v", path, err))
	}
	if len(valid) == 0 {
		return fmt.Errorf("no valid ligand files to prepare")
	}

	prep := newPreparer(cmdCtx)
	ligOpts := molfile.LigandOptions{
		AddHydrogens: !opts.NoHydrogens,
		PH:           opts.PH,
	}

	prepared := 0
	for _, path := range valid {
		out, err := prep.PrepareLigand(cmd.Context(), path, opts.OutputDir, ligOpts)
		if err != nil {
			r.Warning(fmt.Sprintf("failed to prepare %s: %v", path, err))
			continue
		}
		r.StatusLine(out, "success", "")
		prepared++
	}

	if prepared == 0 {
		return fmt.Errorf("all ligand preparations failed")
	}
	r.Success(fmt.Sprintf("Prepared %d of %d ligand(s)", prepared, len(valid)))
	return nil
}
