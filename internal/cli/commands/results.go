package commands

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/simdock-lab/simdock/internal/cli/output"
	"github.com/simdock-lab/simdock/internal/state"
)

// ResultsOptions holds options for the results command.
type ResultsOptions struct {
	Top    int
	Export string
	Out    string
}

// NewResultsCommand creates the results command.
func NewResultsCommand() *cobra.Command {
	opts := &ResultsOptions{}
	cmd := &cobra.Command{
		Use:   "results [run-id]",
		Short: "Rank the best dockings of a run",
		Long: `Show the top dockings of a run ranked by binding affinity.

Without a run ID the latest run of the current project is used. The
run ID may be abbreviated to any unique prefix.

With --export the ranking is written to a file instead: csv or json,
into the project's exports directory unless --out names a path.`,
		Example: `  # Top 10 hits of the latest run
  simdock results

  # Top 50 of a specific run, exported for a spreadsheet
  simdock results 3f2a91c7 --top 50 --export csv`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			idArg := ""
			if len(args) == 1 {
				idArg = args[0]
			}
			return runResults(cmd, idArg, opts)
		},
	}

	cmd.Flags().IntVarP(&opts.Top, "top", "n", 10, "Number of hits to show")
	cmd.Flags().StringVar(&opts.Export, "export", "", "Export format: csv or json")
	cmd.Flags().StringVar(&opts.Out, "out", "", "Export file path (default: project exports dir)")

	return cmd
}

func runResults(cmd *cobra.Command, idArg string, opts *ResultsOptions) error {
	cmdCtx, cleanup, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	defer cleanup()
	r := cmdCtx.Renderer

	run, err := findResultsRun(cmdCtx.Store, idArg)
	if err != nil {
		return err
	}

	dockings, err := cmdCtx.Store.TopDockings(run.ID, opts.Top)
	if err != nil {
		return err
	}
	if len(dockings) == 0 {
		return fmt.Errorf("run %s has no successful dockings", shortID(run.ID))
	}

	if opts.Export != "" {
		path, err := exportResults(run, dockings, opts)
		if err != nil {
			return err
		}
		r.Success(fmt.Sprintf("Exported %d hit(s) to %s", len(dockings), path))
		return nil
	}

	if r.EffectiveMode() == output.ModeJSON {
		return r.JSON(map[string]any{
			"run":  run,
			"hits": dockings,
		})
	}

	r.Header(1, fmt.Sprintf("Top Hits - Run %s", shortID(run.ID)))
	tw := r.NewTable()
	tw.AppendHeader(table.Row{"Rank", "Ligand", "Affinity (kcal/mol)", "Output"})
	for i, d := range dockings {
		tw.AppendRow(table.Row{i + 1, d.Ligand, formatAffinity(d.BestAffinity), d.OutputPath})
	}
	r.RenderTable(tw)
	return nil
}

// findResultsRun resolves an explicit run reference, or falls back to the
// latest run of the current project (or any project).
func findResultsRun(store state.Store, idArg string) (*state.Run, error) {
	if idArg != "" {
		return resolveRun(store, idArg)
	}

	projectPath := currentProjectPath()
	run, err := store.GetLatestRun(projectPath)
	if err != nil {
		return nil, err
	}
	if run == nil && projectPath != "" {
		run, err = store.GetLatestRun("")
		if err != nil {
			return nil, err
		}
	}
	if run == nil {
		return nil, fmt.Errorf("no runs recorded yet")
	}
	return run, nil
}

// exportResults writes the ranking as CSV or JSON and returns the path.
func exportResults(run *state.Run, dockings []*state.Docking, opts *ResultsOptions) (string, error) {
	path := opts.Out
	if path == "" {
		dir, _ := resolveOutputDir("", "exports")
		name := fmt.Sprintf("results_%s_%s.%s",
			shortID(run.ID), time.Now().Format("20060102_150405"), opts.Export)
		path = filepath.Join(dir, name)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil {
		return "", err
	}

	f, err := os.Create(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	switch opts.Export {
	case "csv":
		w := csv.NewWriter(f)
		if err := w.Write([]string{"rank", "ligand", "affinity_kcal_mol", "exhaustiveness", "output_path"}); err != nil {
			return "", err
		}
		for i, d := range dockings {
			record := []string{
				strconv.Itoa(i + 1),
				d.Ligand,
				formatAffinity(d.BestAffinity),
				strconv.Itoa(d.Exhaustiveness),
				d.OutputPath,
			}
			if err := w.Write(record); err != nil {
				return "", err
			}
		}
		w.Flush()
		if err := w.Error(); err != nil {
			return "", err
		}
	case "json":
		enc := json.NewEncoder(f)
		enc.SetIndent("", "  ")
		if err := enc.Encode(map[string]any{"run": run, "hits": dockings}); err != nil {
			return "", err
		}
	default:
		return "", fmt.Errorf("unsupported export format %q (want csv or json)", opts.Export)
	}
	return path, nil
}
