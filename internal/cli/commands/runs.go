package commands

import (
	"fmt"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/simdock-lab/simdock/internal/cli/output"
	"github.com/simdock-lab/simdock/internal/state"
)

// RunsOptions holds options for the runs commands.
type RunsOptions struct {
	Limit int
	All   bool
}

// NewRunsCommand creates the runs command group.
func NewRunsCommand() *cobra.Command {
	opts := &RunsOptions{}
	cmd := &cobra.Command{
		Use:   "runs",
		Short: "Inspect recorded docking runs",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runRunsList(cmd, opts)
		},
	}

	showCmd := &cobra.Command{
		Use:   "show <run-id>",
		Short: "Show the dockings of one run",
		Long: `Show every docking recorded for a run, with status, best
affinity, and timing. The run ID may be abbreviated to any unique
prefix.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRunsShow(cmd, args[0])
		},
	}

	cmd.Flags().IntVarP(&opts.Limit, "limit", "n", 20, "Maximum runs to list")
	cmd.Flags().BoolVarP(&opts.All, "all", "a", false, "List runs from every project")
	cmd.AddCommand(showCmd)

	return cmd
}

func runRunsList(cmd *cobra.Command, opts *RunsOptions) error {
	cmdCtx, cleanup, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	defer cleanup()
	r := cmdCtx.Renderer

	projectPath := ""
	if !opts.All {
		projectPath = currentProjectPath()
	}

	runs, err := cmdCtx.Store.ListRuns(projectPath, opts.Limit)
	if err != nil {
		return err
	}

	if r.EffectiveMode() == output.ModeJSON {
		return r.JSON(runs)
	}

	if len(runs) == 0 {
		r.Println("No runs recorded yet.")
		return nil
	}

	r.Header(1, "Runs")
	tw := r.NewTable()
	tw.AppendHeader(table.Row{"ID", "Kind", "Engine", "Receptor", "Status", "Started", "Duration"})
	for _, run := range runs {
		tw.AppendRow(table.Row{
			shortID(run.ID),
			run.Kind,
			run.Engine,
			run.Receptor,
			run.Status,
			run.StartedAt.Local().Format("2006-01-02 15:04"),
			runDuration(run),
		})
	}
	r.RenderTable(tw)
	return nil
}

func runRunsShow(cmd *cobra.Command, idArg string) error {
	cmdCtx, cleanup, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	defer cleanup()
	r := cmdCtx.Renderer

	run, err := resolveRun(cmdCtx.Store, idArg)
	if err != nil {
		return err
	}

	dockings, err := cmdCtx.Store.GetDockingsForRun(run.ID)
	if err != nil {
		return err
	}

	if r.EffectiveMode() == output.ModeJSON {
		return r.JSON(map[string]any{
			"run":      run,
			"dockings": dockings,
		})
	}

	r.Header(1, fmt.Sprintf("Run %s", shortID(run.ID)))
	r.Println(output.FormatKeyValue("Kind", run.Kind))
	r.Println(output.FormatKeyValue("Engine", run.Engine))
	r.Println(output.FormatKeyValue("Receptor", run.Receptor))
	r.Println(output.FormatKeyValue("Status", string(run.Status)))
	r.Println(output.FormatKeyValue("Started", run.StartedAt.Local().Format(time.RFC1123)))
	if run.Error != "" {
		r.Println(output.FormatKeyValue("Error", run.Error))
	}
	r.Println("")

	if len(dockings) == 0 {
		r.Println("No dockings recorded for this run.")
		return nil
	}

	tw := r.NewTable()
	tw.AppendHeader(table.Row{"Ligand", "Status", "Best Affinity", "Exhaustiveness", "Time"})
	for _, d := range dockings {
		tw.AppendRow(table.Row{
			d.Ligand,
			d.Status,
			formatAffinity(d.BestAffinity),
			d.Exhaustiveness,
			formatDuration(d.ExecutionMS),
		})
	}
	r.RenderTable(tw)
	return nil
}

// resolveRun looks a run up by full ID or by unique prefix.
func resolveRun(store state.Store, idArg string) (*state.Run, error) {
	if run, err := store.GetRun(idArg); err == nil {
		return run, nil
	}

	runs, err := store.ListRuns("", 0)
	if err != nil {
		return nil, err
	}
	var matches []*state.Run
	for _, run := range runs {
		if strings.HasPrefix(run.ID, idArg) {
			matches = append(matches, run)
		}
	}
	switch len(matches) {
	case 0:
		return nil, fmt.Errorf("no run matches %q", idArg)
	case 1:
		return matches[0], nil
	default:
		return nil, fmt.Errorf("run ID %q is ambiguous (%d matches)", idArg, len(matches))
	}
}

func runDuration(run *state.Run) string {
	if run.CompletedAt == nil {
		return "-"
	}
	return run.CompletedAt.Sub(run.StartedAt).Round(time.Second).String()
}
