package commands

import (
	"fmt"
	"path/filepath"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/simdock-lab/simdock/internal/cli/output"
	"github.com/simdock-lab/simdock/internal/project"
)

// ProjectsOptions holds options for the projects commands.
type ProjectsOptions struct {
	Project string
	Recent  int
}

// NewProjectsCommand creates the projects command group.
func NewProjectsCommand() *cobra.Command {
	opts := &ProjectsOptions{}
	cmd := &cobra.Command{
		Use:   "projects",
		Short: "Browse and maintain project folders",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runProjectsList(cmd, opts)
		},
	}

	infoCmd := &cobra.Command{
		Use:   "info",
		Short: "Summarize a project's contents",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runProjectsInfo(cmd, opts)
		},
	}

	backupCmd := &cobra.Command{
		Use:   "backup",
		Short: "Archive a project into its backups directory",
		Long: `Zip the whole project tree, except earlier backups, into
backups/project_backup_<timestamp>.zip.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runProjectsBackup(cmd, opts)
		},
	}

	cmd.Flags().IntVar(&opts.Recent, "recent", 0, "Show only the N most recently modified projects")
	cmd.PersistentFlags().StringVarP(&opts.Project, "project", "p", "", "Project folder (default: nearest project)")
	cmd.AddCommand(infoCmd, backupCmd)

	return cmd
}

func runProjectsList(cmd *cobra.Command, opts *ProjectsOptions) error {
	cmdCtx := NewCommandContextWithoutStore(cmd)
	r := cmdCtx.Renderer

	var entries []project.Entry
	var err error
	if opts.Recent > 0 {
		entries, err = project.Recent(cmdCtx.Cfg.ProjectDir, opts.Recent)
	} else {
		entries, err = project.List(cmdCtx.Cfg.ProjectDir)
	}
	if err != nil {
		return err
	}

	if r.EffectiveMode() == output.ModeJSON {
		return r.JSON(entries)
	}

	if len(entries) == 0 {
		r.Println("No projects found. Create one with: simdock init <name>")
		return nil
	}

	r.Header(1, "Projects")
	tw := r.NewTable()
	tw.AppendHeader(table.Row{"Name", "Modified", "Files", "Ligands", "Path"})
	for _, e := range entries {
		tw.AppendRow(table.Row{
			e.Name,
			e.Modified.Local().Format("2006-01-02 15:04"),
			e.Files,
			e.Ligands,
			e.Path,
		})
	}
	r.RenderTable(tw)
	return nil
}

func runProjectsInfo(cmd *cobra.Command, opts *ProjectsOptions) error {
	cmdCtx := NewCommandContextWithoutStore(cmd)
	r := cmdCtx.Renderer

	p, err := openProject(opts.Project)
	if err != nil {
		return err
	}
	s, err := p.Summarize()
	if err != nil {
		return err
	}

	if r.EffectiveMode() == output.ModeJSON {
		return r.JSON(map[string]any{
			"name":      s.Info.Name,
			"created":   s.Info.Created,
			"modified":  s.Info.Modified,
			"receptors": s.ReceptorCount,
			"ligands":   s.LigandCount,
			"size":      s.TotalSize,
			"path":      p.Root,
		})
	}

	r.Header(1, s.Info.Name)
	r.Println(output.FormatKeyValue("Path", p.Root))
	r.Println(output.FormatKeyValue("Created", s.Info.Created.Local().Format("2006-01-02 15:04")))
	r.Println(output.FormatKeyValue("Modified", s.Info.Modified.Local().Format("2006-01-02 15:04")))
	r.Println(output.FormatKeyValue("Receptors", fmt.Sprintf("%d", s.ReceptorCount)))
	r.Println(output.FormatKeyValue("Ligands", fmt.Sprintf("%d", s.LigandCount)))
	r.Println(output.FormatKeyValue("Size", formatBytes(s.TotalSize)))
	return nil
}

func runProjectsBackup(cmd *cobra.Command, opts *ProjectsOptions) error {
	cmdCtx := NewCommandContextWithoutStore(cmd)
	r := cmdCtx.Renderer

	p, err := openProject(opts.Project)
	if err != nil {
		return err
	}

	path, err := p.Backup()
	if err != nil {
		return err
	}

	r.Success(fmt.Sprintf("Backup written: %s", filepath.Base(path)))
	r.Printf("Archive saved to %s\n", path)
	cmdCtx.Logger.Info("project backed up", "project", p.Root, "archive", path)
	return nil
}

// formatBytes renders a size with a binary unit suffix.
func formatBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}
