package commands

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/simdock-lab/simdock/internal/project"
)

// InitOptions holds options for the init command.
type InitOptions struct {
	Dir string
}

// NewInitCommand creates the init command.
func NewInitCommand() *cobra.Command {
	opts := &InitOptions{}
	cmd := &cobra.Command{
		Use:   "init <name>",
		Short: "Create a new docking project",
		Long: `Create a new project folder with the standard layout.

A project holds receptors, ligands, docking outputs, and a manifest. The
folder name combines the project name with a timestamp and a unique
suffix, so the same name can be reused.`,
		Example: `  # Create a project in the configured projects directory
  simdock init "kinase screen"

  # Create a project under a specific directory
  simdock init covid-mpro --dir ~/docking`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInit(cmd, args[0], opts)
		},
	}

	cmd.Flags().StringVarP(&opts.Dir, "dir", "d", "", "Base directory for the project (default: configured project_dir)")

	return cmd
}

func runInit(cmd *cobra.Command, name string, opts *InitOptions) error {
	cmdCtx := NewCommandContextWithoutStore(cmd)
	r := cmdCtx.Renderer

	baseDir := opts.Dir
	if baseDir == "" {
		baseDir = cmdCtx.Cfg.ProjectDir
	}

	p, err := project.Create(name, baseDir)
	if err != nil {
		return fmt.Errorf("failed to create project: %w", err)
	}

	if err := writeProjectConfig(p.Root, cmdCtx); err != nil {
		return err
	}

	r.Success(fmt.Sprintf("Created project %q", name))
	r.Println("")
	r.StatusLine(filepath.Base(p.Root)+"/", "success", "")
	for _, sub := range []string{"receptors", "ligands", "results", "runs", "exports", "backups"} {
		r.StatusLine("  "+sub+"/", "success", "")
	}
	r.StatusLine("  "+project.ManifestName, "success", "")
	r.StatusLine("  simdock.yaml", "success", "")
	r.Println("")
	r.Printf("Next steps:\n")
	r.Printf("  cd %s\n", p.Root)
	r.Printf("  simdock fetch pdb <id>        # download a receptor\n")
	r.Printf("  simdock fetch ligand aspirin  # download a ligand\n")
	r.Printf("  simdock doctor                # check external tools\n")

	cmdCtx.Logger.Info("created project", "name", name, "path", p.Root)
	return nil
}

// writeProjectConfig scaffolds a simdock.yaml in the project root so
// commands run inside the project pick up its settings.
func writeProjectConfig(root string, cmdCtx *CommandContext) error {
	cfg := cmdCtx.Cfg
	doc := map[string]any{
		"state_path": ".simdock/state.db",
		"executables": map[string]string{
			"obabel":   cfg.Executables.OBabel,
			"vina":     cfg.Executables.Vina,
			"chimerax": cfg.Executables.ChimeraX,
			"vmd":      cfg.Executables.VMD,
		},
		"docking": map[string]any{
			"engine":         cfg.Docking.Engine,
			"exhaustiveness": cfg.Docking.Exhaustiveness,
			"num_modes":      cfg.Docking.NumModes,
			"energy_range":   cfg.Docking.EnergyRange,
			"box_size":       cfg.Docking.BoxSize,
			"box_padding":    cfg.Docking.BoxPadding,
			"refine_percent": cfg.Docking.RefinePercent,
			"workers":        cfg.Docking.Workers,
		},
	}

	data, err := yaml.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to render project config: %w", err)
	}
	path := filepath.Join(root, "simdock.yaml")
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write project config: %w", err)
	}
	return nil
}
