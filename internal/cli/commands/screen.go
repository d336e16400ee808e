package commands

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/simdock-lab/simdock/internal/cli/output"
	"github.com/simdock-lab/simdock/internal/engine"
	"github.com/simdock-lab/simdock/internal/molfile"
	"github.com/simdock-lab/simdock/internal/state"
)

// ScreenOptions holds options for the screen command.
type ScreenOptions struct {
	Receptor       string
	LigandsDir     string
	Center         string
	Size           string
	Exhaustiveness int
	Workers        int
	Quick          bool
	Refine         bool
	RefinePercent  int
	OutputDir      string
	SkipPrepare    bool
	Watch          bool
}

// NewScreenCommand creates the screen command.
func NewScreenCommand() *cobra.Command {
	opts := &ScreenOptions{}
	cmd := &cobra.Command{
		Use:   "screen [ligand files...]",
		Short: "Screen a ligand library against a receptor",
		Long: `Dock many ligands against one receptor concurrently and rank them
by binding affinity.

Ligands come from the arguments or from every supported file in
--ligands-dir. With --quick the whole library runs at low
exhaustiveness; --refine then re-docks the top fraction at high
exhaustiveness, which keeps large screens fast without losing the
best hits.

With --watch the command keeps running after the initial pass and
docks new ligand files as they appear in --ligands-dir.`,
		Example: `  # Screen a directory with refinement
  simdock screen -r receptor.pdbqt --ligands-dir ligands/ --quick --refine

  # Screen specific files with 8 workers
  simdock screen -r receptor.pdbqt -w 8 lig1.sdf lig2.sdf lig3.sdf`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScreen(cmd, args, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.Receptor, "receptor", "r", "", "Receptor file (required)")
	cmd.Flags().StringVar(&opts.LigandsDir, "ligands-dir", "", "Directory of ligand files")
	cmd.Flags().StringVar(&opts.Center, "center", "", "Box center as x,y,z (default: receptor centroid)")
	cmd.Flags().StringVar(&opts.Size, "size", "", "Box size as x,y,z in angstroms")
	cmd.Flags().IntVarP(&opts.Exhaustiveness, "exhaustiveness", "e", 0, "Search effort (0 = configured default)")
	cmd.Flags().IntVarP(&opts.Workers, "workers", "w", 0, "Concurrent dockings (0 = configured default)")
	cmd.Flags().BoolVar(&opts.Quick, "quick", false, "Low-exhaustiveness first pass")
	cmd.Flags().BoolVar(&opts.Refine, "refine", false, "Re-dock top hits at high exhaustiveness")
	cmd.Flags().IntVar(&opts.RefinePercent, "refine-percent", 0, "Share of top hits to refine (0 = configured default)")
	cmd.Flags().StringVar(&opts.OutputDir, "out-dir", "", "Directory for pose outputs (default: project runs dir)")
	cmd.Flags().BoolVar(&opts.SkipPrepare, "skip-prepare", false, "Inputs are already PDBQT")
	cmd.Flags().BoolVar(&opts.Watch, "watch", false, "Keep watching --ligands-dir for new ligands")

	_ = cmd.MarkFlagRequired("receptor")

	return cmd
}

func runScreen(cmd *cobra.Command, args []string, opts *ScreenOptions) error {
	cmdCtx, cleanup, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	defer cleanup()
	r := cmdCtx.Renderer

	if opts.Watch && opts.LigandsDir == "" {
		return fmt.Errorf("--watch requires --ligands-dir")
	}

	ligandFiles, err := collectLigands(args, opts.LigandsDir)
	if err != nil {
		return err
	}

	outputDir, projectPath := resolveOutputDir(opts.OutputDir, "runs")

	dockOpts := &DockOptions{
		Receptor:    opts.Receptor,
		Center:      opts.Center,
		Size:        opts.Size,
		SkipPrepare: opts.SkipPrepare,
	}
	receptor := opts.Receptor
	if !opts.SkipPrepare && molfile.Ext(receptor) != ".pdbqt" {
		receptor, err = newPreparer(cmdCtx).PrepareReceptor(cmd.Context(), opts.Receptor, outputDir,
			molfile.ReceptorOptions{RemoveWater: true})
		if err != nil {
			return fmt.Errorf("receptor preparation failed: %w", err)
		}
	}

	center, size, err := resolveBox(cmd.Context(), cmdCtx, dockOpts, receptor)
	if err != nil {
		return err
	}

	exhaustiveness := opts.Exhaustiveness
	if exhaustiveness == 0 {
		exhaustiveness = cmdCtx.Cfg.Docking.Exhaustiveness
	}
	if opts.Quick {
		exhaustiveness = engine.QuickExhaustiveness
	}
	refinePercent := opts.RefinePercent
	if refinePercent == 0 {
		refinePercent = cmdCtx.Cfg.Docking.RefinePercent
	}
	workers := opts.Workers
	if workers == 0 {
		workers = cmdCtx.Cfg.Docking.Workers
	}

	eng, err := newEngine(cmdCtx)
	if err != nil {
		return err
	}

	prepared, err := prepareLigandSet(cmd.Context(), cmdCtx, ligandFiles, outputDir, opts.SkipPrepare)
	if err != nil {
		return err
	}

	run, err := cmdCtx.Store.CreateRun(projectPath, cmdCtx.Cfg.Environment, "screen", eng.Name(), filepath.Base(receptor))
	if err != nil {
		return err
	}

	screenOpts := engine.ScreenOptions{
		Receptor:       receptor,
		Ligands:        prepared,
		OutputDir:      outputDir,
		Center:         center,
		Size:           size,
		Exhaustiveness: exhaustiveness,
		NumModes:       cmdCtx.Cfg.Docking.NumModes,
		EnergyRange:    cmdCtx.Cfg.Docking.EnergyRange,
		CPU:            cmdCtx.Cfg.Docking.CPU,
		Workers:        workers,
		Refine:         opts.Refine,
		RefinePercent:  refinePercent,
		ShowProgress:   r.IsTTY() && r.EffectiveMode() == output.ModeText,
	}

	screener := engine.NewScreener(eng, cmdCtx.Store, cmdCtx.Logger)
	items, err := screener.Run(cmd.Context(), run.ID, screenOpts)
	if err != nil {
		_ = cmdCtx.Store.CompleteRun(run.ID, state.RunStatusCancelled, err.Error())
		return err
	}
	if err := completeScreenRun(cmdCtx.Store, run.ID, items); err != nil {
		return err
	}

	if err := renderScreenResults(r, run.ID, items); err != nil {
		return err
	}

	if opts.Watch {
		return watchLigands(cmd.Context(), cmdCtx, screener, screenOpts, run.ID, opts.LigandsDir)
	}
	return nil
}

// collectLigands merges explicit files with a directory scan.
func collectLigands(args []string, dir string) ([]string, error) {
	files := append([]string{}, args...)
	if dir != "" {
		entries, err := os.ReadDir(dir)
		if err != nil {
			return nil, fmt.Errorf("could not read ligands directory: %w", err)
		}
		for _, entry := range entries {
			if entry.IsDir() {
				continue
			}
			files = append(files, filepath.Join(dir, entry.Name()))
		}
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no ligands given; pass files or --ligands-dir")
	}
	return files, nil
}

// completeScreenRun records the run outcome. Partial failures still count
// as a completed run; only when every ligand failed is the run recorded as
// failed, with the per-ligand errors joined into its error text.
func completeScreenRun(store state.Store, runID string, items []engine.ScreenItem) error {
	var failures []error
	for _, it := range items {
		if it.Err != nil {
			failures = append(failures, fmt.Errorf("%s: %w", filepath.Base(it.Ligand), it.Err))
		}
	}
	if len(items) > 0 && len(failures) == len(items) {
		joined := errors.Join(failures...)
		_ = store.CompleteRun(runID, state.RunStatusFailed, joined.Error())
		return fmt.Errorf("all %d ligand(s) failed to dock: %w", len(items), joined)
	}
	return store.CompleteRun(runID, state.RunStatusCompleted, "")
}

// prepareLigandSet validates and converts ligands, dropping failures.
func prepareLigandSet(ctx context.Context, cmdCtx *CommandContext, files []string, outputDir string, skip bool) ([]string, error) {
	if skip {
		return files, nil
	}

	valid, rejected := molfile.FilterLigands(files)
	for path, err := range rejected {
		cmdCtx.Renderer.Warning(fmt.Sprintf("skipping %s: %v", path, err))
	}

	prep := newPreparer(cmdCtx)
	var prepared []string
	for _, path := range valid {
		if molfile.Ext(path) == ".pdbqt" {
			prepared = append(prepared, path)
			continue
		}
		out, err := prep.PrepareLigand(ctx, path, outputDir, molfile.LigandOptions{AddHydrogens: true})
		if err != nil {
			cmdCtx.Renderer.Warning(fmt.Sprintf("failed to prepare %s: %v", path, err))
			continue
		}
		prepared = append(prepared, out)
	}
	if len(prepared) == 0 {
		return nil, fmt.Errorf("no ligands survived preparation")
	}
	return prepared, nil
}

func renderScreenResults(r *output.Renderer, runID string, items []engine.ScreenItem) error {
	type hit struct {
		Ligand   string  `json:"ligand"`
		Affinity float64 `json:"affinity"`
		Refined  bool    `json:"refined"`
		Output   string  `json:"output"`
	}
	var hits []hit
	failed := 0
	for _, it := range items {
		affinity, ok := it.BestAffinity()
		if !ok {
			failed++
			continue
		}
		hits = append(hits, hit{
			Ligand:   filepath.Base(it.Ligand),
			Affinity: affinity,
			Refined:  it.Refined,
			Output:   it.Result.OutputPath,
		})
	}
	sort.Slice(hits, func(i, j int) bool { return hits[i].Affinity < hits[j].Affinity })

	if r.EffectiveMode() == output.ModeJSON {
		return r.JSON(map[string]any{
			"run_id": runID,
			"hits":   hits,
			"failed": failed,
		})
	}

	r.Header(1, "Screening Results")
	tw := r.NewTable()
	tw.AppendHeader(table.Row{"Rank", "Ligand", "Affinity (kcal/mol)", "Refined"})
	for i, h := range hits {
		refined := ""
		if h.Refined {
			refined = "yes"
		}
		tw.AppendRow(table.Row{i + 1, h.Ligand, fmt.Sprintf("%.1f", h.Affinity), refined})
	}
	r.RenderTable(tw)
	r.Println("")
	if failed > 0 {
		r.Warning(fmt.Sprintf("%d ligand(s) failed to dock", failed))
	}
	r.Printf("Run recorded as %s\n", shortID(runID))
	return nil
}

// watchLigands docks new files as they land in dir until interrupted.
func watchLigands(ctx context.Context, cmdCtx *CommandContext, screener *engine.Screener, opts engine.ScreenOptions, runID, dir string) error {
	r := cmdCtx.Renderer
	r.Println("")
	r.Printf("Watching %s for new ligands (ctrl-c to stop)\n", dir)

	prep := newPreparer(cmdCtx)
	err := engine.Watch(ctx, dir, cmdCtx.Logger, func(path string) {
		ligand := path
		if molfile.Ext(path) != ".pdbqt" {
			out, err := prep.PrepareLigand(ctx, path, opts.OutputDir, molfile.LigandOptions{AddHydrogens: true})
			if err != nil {
				r.Warning(fmt.Sprintf("failed to prepare %s: %v", path, err))
				return
			}
			ligand = out
		}

		single := opts
		single.Ligands = []string{ligand}
		single.Refine = false
		single.ShowProgress = false
		items, err := screener.Run(ctx, runID, single)
		if err != nil || items[0].Err != nil {
			if err == nil {
				err = items[0].Err
			}
			r.Warning(fmt.Sprintf("failed to dock %s: %v", path, err))
			return
		}
		if affinity, ok := items[0].BestAffinity(); ok {
			r.Printf("%s: %.1f kcal/mol\n", filepath.Base(path), affinity)
		}
	})
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
