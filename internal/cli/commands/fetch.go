package commands

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"
)

// FetchOptions holds options for the fetch commands.
type FetchOptions struct {
	Project string
	Add     bool
}

// NewFetchCommand creates the fetch command group.
func NewFetchCommand() *cobra.Command {
	opts := &FetchOptions{}
	cmd := &cobra.Command{
		Use:   "fetch",
		Short: "Download structures from public databases",
	}

	pdbCmd := &cobra.Command{
		Use:   "pdb <id>",
		Short: "Download a receptor from RCSB PDB",
		Long: `Download a protein structure by its 4-character PDB ID.

The raw file is kept as <ID>_original.pdb and a cleaned copy, stripped
to ATOM records, is written as <ID>_cleaned.pdb. Both land in the
project's receptors directory. The cleaned file is registered with the
project manifest.`,
		Example: `  simdock fetch pdb 6lu7`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFetchPDB(cmd, args[0], opts)
		},
	}

	ligandCmd := &cobra.Command{
		Use:   "ligand <name-or-cid>",
		Short: "Download a ligand from PubChem",
		Long: `Download a 3D SDF from PubChem by compound name or CID.

Numeric identifiers are treated as CIDs, anything else as a compound
name. The file lands in the project's ligands directory and is
registered with the project manifest.`,
		Example: `  simdock fetch ligand aspirin
  simdock fetch ligand 2244`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFetchLigand(cmd, args[0], opts)
		},
	}

	cmd.PersistentFlags().StringVarP(&opts.Project, "project", "p", "", "Project folder (default: nearest project)")
	cmd.AddCommand(pdbCmd, ligandCmd)

	return cmd
}

func runFetchPDB(cmd *cobra.Command, id string, opts *FetchOptions) error {
	cmdCtx := NewCommandContextWithoutStore(cmd)
	r := cmdCtx.Renderer

	p, err := openProject(opts.Project)
	if err != nil {
		return err
	}

	client := cmdCtx.newFetchClient()
	cleaned, err := client.FetchPDB(cmd.Context(), id, p.Dir("receptors"))
	if err != nil {
		return err
	}

	if _, err := p.AddReceptor(cleaned); err != nil {
		return err
	}

	r.Success(fmt.Sprintf("Downloaded %s", filepath.Base(cleaned)))
	r.Printf("Cleaned receptor saved to %s\n", cleaned)
	return nil
}

func runFetchLigand(cmd *cobra.Command, identifier string, opts *FetchOptions) error {
	cmdCtx := NewCommandContextWithoutStore(cmd)
	r := cmdCtx.Renderer

	p, err := openProject(opts.Project)
	if err != nil {
		return err
	}

	client := cmdCtx.newFetchClient()
	path, err := client.FetchLigand(cmd.Context(), identifier, p.Dir("ligands"))
	if err != nil {
		return err
	}

	if _, err := p.AddLigands([]string{path}); err != nil {
		return err
	}

	r.Success(fmt.Sprintf("Downloaded %s", filepath.Base(path)))
	r.Printf("Ligand saved to %s\n", path)
	return nil
}
