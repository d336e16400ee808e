package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/simdock-lab/simdock/internal/molfile"
)

// AddOptions holds options for the add commands.
type AddOptions struct {
	Project string
}

// NewAddCommand creates the add command group.
func NewAddCommand() *cobra.Command {
	opts := &AddOptions{}
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Register local structure files with a project",
	}

	receptorCmd := &cobra.Command{
		Use:   "receptor <file>",
		Short: "Add a receptor file (PDB)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAddReceptor(cmd, args[0], opts)
		},
	}

	ligandCmd := &cobra.Command{
		Use:   "ligand <files...>",
		Short: "Add ligand files (PDB, SDF, or MOL2)",
		Long: `Copy ligand files into the project and register them.

Files that fail format validation are skipped with a warning; the rest
are added.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAddLigands(cmd, args, opts)
		},
	}

	cmd.PersistentFlags().StringVarP(&opts.Project, "project", "p", "", "Project folder (default: nearest project)")
	cmd.AddCommand(receptorCmd, ligandCmd)

	return cmd
}

func runAddReceptor(cmd *cobra.Command, path string, opts *AddOptions) error {
	cmdCtx := NewCommandContextWithoutStore(cmd)
	r := cmdCtx.Renderer

	if err := molfile.ValidateFile(path, molfile.ReceptorFormats); err != nil {
		return fmt.Errorf("invalid receptor file: %w", err)
	}

	p, err := openProject(opts.Project)
	if err != nil {
		return err
	}

	entry, err := p.AddReceptor(path)
	if err != nil {
		return err
	}

	r.Success(fmt.Sprintf("Added receptor %s (%d bytes)", entry.Name, entry.Size))
	return nil
}

func runAddLigands(cmd *cobra.Command, paths []string, opts *AddOptions) error {
	cmdCtx := NewCommandContextWithoutStore(cmd)
	r := cmdCtx.Renderer

	valid, rejected := molfile.FilterLigands(paths)
	for path, err := range rejected {
		r.Warning(fmt.Sprintf("skipping %s: %v", path, err))
	}
	if len(valid) == 0 {
		return fmt.Errorf("no valid ligand files to add")
	}

	p, err := openProject(opts.Project)
	if err != nil {
		return err
	}

	entries, err := p.AddLigands(valid)
	if err != nil {
		return err
	}

	for _, entry := range entries {
		r.StatusLine(entry.Name, "success", entry.Path)
	}
	r.Success(fmt.Sprintf("Added %d ligand(s)", len(entries)))
	return nil
}
