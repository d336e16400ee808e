package engine

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"path/filepath"
	"sort"
	"sync"

	"github.com/schollz/progressbar/v3"
	"golang.org/x/sync/errgroup"

	"github.com/simdock-lab/simdock/internal/molfile"
	"github.com/simdock-lab/simdock/internal/state"
)

// ScreenOptions configures a virtual screening pass.
type ScreenOptions struct {
	Receptor       string
	Ligands        []string // prepared PDBQT paths
	OutputDir      string
	Center         molfile.Vec3
	Size           molfile.Vec3
	Exhaustiveness int
	NumModes       int
	EnergyRange    float64
	CPU            int
	Seed           int64
	Workers        int
	Refine         bool
	RefinePercent  int // share of top hits to refine, 1..100
	ShowProgress   bool
}

// ScreenItem is the per-ligand outcome of a screening pass.
type ScreenItem struct {
	Ligand  string
	Result  *Result
	Refined bool
	Err     error
}

// BestAffinity returns the top pose affinity, or false on failure.
func (it *ScreenItem) BestAffinity() (float64, bool) {
	if it.Err != nil || it.Result == nil {
		return 0, false
	}
	best, ok := it.Result.Best()
	if !ok {
		return 0, false
	}
	return best.Affinity, true
}

// Screener docks many ligands against one receptor concurrently, recording
// each docking in the state store when one is attached.
type Screener struct {
	engine Engine
	store  state.Store
	logger *slog.Logger
}

// NewScreener builds a Screener. The store may be nil to skip history.
func NewScreener(eng Engine, store state.Store, logger *slog.Logger) *Screener {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Screener{engine: eng, store: store, logger: logger}
}

// Run screens every ligand and, when refinement is on, re-docks the top
// fraction at high exhaustiveness. Items come back in input order. A
// per-ligand failure is reported in its item, not as a run error.
func (s *Screener) Run(ctx context.Context, runID string, opts ScreenOptions) ([]ScreenItem, error) {
	if len(opts.Ligands) == 0 {
		return nil, fmt.Errorf("no ligands to screen")
	}
	workers := opts.Workers
	if workers < 1 {
		workers = 1
	}

	var bar *progressbar.ProgressBar
	if opts.ShowProgress {
		bar = progressbar.Default(int64(len(opts.Ligands)), "docking")
	}

	items := make([]ScreenItem, len(opts.Ligands))
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for i, ligand := range opts.Ligands {
		g.Go(func() error {
			item := s.dockOne(gctx, runID, ligand, opts, opts.Exhaustiveness, "_docked")
			mu.Lock()
			items[i] = item
			mu.Unlock()
			if bar != nil {
				_ = bar.Add(1)
			}
			return gctx.Err()
		})
	}
	if err := g.Wait(); err != nil {
		return items, err
	}
	if bar != nil {
		_ = bar.Finish()
	}

	if opts.Refine {
		if err := s.refine(ctx, runID, items, opts); err != nil {
			return items, err
		}
	}

	return items, nil
}

func (s *Screener) dockOne(ctx context.Context, runID, ligand string, opts ScreenOptions, exhaustiveness int, suffix string) ScreenItem {
	item := ScreenItem{Ligand: ligand}

	spec := Spec{
		Receptor:       opts.Receptor,
		Ligand:         ligand,
		Output:         filepath.Join(opts.OutputDir, molfile.Stem(ligand)+suffix+".pdbqt"),
		Center:         opts.Center,
		Size:           opts.Size,
		Exhaustiveness: exhaustiveness,
		NumModes:       opts.NumModes,
		EnergyRange:    opts.EnergyRange,
		CPU:            opts.CPU,
		Seed:           opts.Seed,
	}

	var rec *state.Docking
	if s.store != nil && runID != "" {
		rec = &state.Docking{
			RunID:          runID,
			Ligand:         filepath.Base(ligand),
			Exhaustiveness: exhaustiveness,
			CenterX:        spec.Center.X, CenterY: spec.Center.Y, CenterZ: spec.Center.Z,
			SizeX: spec.Size.X, SizeY: spec.Size.Y, SizeZ: spec.Size.Z,
			Status: state.DockingStatusRunning,
		}
		if err := s.store.RecordDocking(rec); err != nil {
			s.logger.Warn("could not record docking", "ligand", ligand, "error", err)
			rec = nil
		}
	}

	result, err := s.engine.Dock(ctx, spec)
	if err != nil {
		item.Err = err
		s.logger.Warn("docking failed", "ligand", ligand, "error", err)
		if rec != nil {
			_ = s.store.UpdateDocking(rec.ID, state.DockingStatusFailed, nil, "", err.Error())
		}
		return item
	}

	item.Result = result
	if rec != nil {
		var bestPtr *float64
		if best, ok := result.Best(); ok {
			bestPtr = &best.Affinity
		}
		if err := s.store.UpdateDocking(rec.ID, state.DockingStatusSuccess, bestPtr, result.OutputPath, ""); err != nil {
			s.logger.Warn("could not update docking", "ligand", ligand, "error", err)
		}
		poses := make([]state.Pose, len(result.Poses))
		for i, p := range result.Poses {
			poses[i] = state.Pose{Mode: p.Mode, Affinity: p.Affinity, RMSDLower: p.RMSDLower, RMSDUpper: p.RMSDUpper}
		}
		if err := s.store.RecordPoses(rec.ID, poses); err != nil {
			s.logger.Warn("could not record poses", "ligand", ligand, "error", err)
		}
	}

	return item
}

// refine re-docks the best-scoring ligands at high exhaustiveness and swaps
// the improved results into their items.
func (s *Screener) refine(ctx context.Context, runID string, items []ScreenItem, opts ScreenOptions) error {
	percent := opts.RefinePercent
	if percent <= 0 || percent > 100 {
		percent = 10
	}

	type ranked struct {
		index    int
		affinity float64
	}
	var hits []ranked
	for i := range items {
		if affinity, ok := items[i].BestAffinity(); ok {
			hits = append(hits, ranked{index: i, affinity: affinity})
		}
	}
	if len(hits) == 0 {
		return nil
	}

	sort.Slice(hits, func(a, b int) bool { return hits[a].affinity < hits[b].affinity })
	count := int(math.Ceil(float64(len(hits)) * float64(percent) / 100))
	if count < 1 {
		count = 1
	}
	if count > len(hits) {
		count = len(hits)
	}
	hits = hits[:count]

	s.logger.Info("refining top hits", "count", count, "exhaustiveness", RefineExhaustiveness)

	workers := opts.Workers
	if workers < 1 {
		workers = 1
	}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	var mu sync.Mutex
	for _, hit := range hits {
		g.Go(func() error {
			item := s.dockOne(gctx, runID, items[hit.index].Ligand, opts, RefineExhaustiveness, "_refined")
			if item.Err == nil {
				item.Refined = true
				mu.Lock()
				items[hit.index] = item
				mu.Unlock()
			}
			return gctx.Err()
		})
	}
	return g.Wait()
}
