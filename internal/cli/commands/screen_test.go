package commands

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/simdock-lab/simdock/internal/cli/testutil"
	"github.com/simdock-lab/simdock/internal/engine"
	"github.com/simdock-lab/simdock/internal/state"
)

func sampleItems() []engine.ScreenItem {
	return []engine.ScreenItem{
		{
			Ligand: "/work/ligA.pdbqt",
			Result: &engine.Result{
				Poses:      []engine.Pose{{Mode: 1, Affinity: -6.1}},
				OutputPath: "/work/ligA_docked.pdbqt",
			},
		},
		{
			Ligand: "/work/ligB.pdbqt",
			Result: &engine.Result{
				Poses:      []engine.Pose{{Mode: 1, Affinity: -9.3}},
				OutputPath: "/work/ligB_docked.pdbqt",
			},
			Refined: true,
		},
		{
			Ligand: "/work/broken.pdbqt",
			Err:    assert.AnError,
		},
	}
}

func TestRenderScreenResultsRanksByAffinity(t *testing.T) {
	tr := testutil.NewTestRendererMarkdown()

	require.NoError(t, renderScreenResults(tr.Renderer, "run-1234", sampleItems()))
	out := tr.Output()

	assert.Contains(t, out, "Screening Results")
	assert.Contains(t, out, "ligB.pdbqt")
	assert.Contains(t, out, "-9.3")
	// Best affinity must rank above the weaker one.
	assert.Less(t, strings.Index(out, "ligB.pdbqt"), strings.Index(out, "ligA.pdbqt"))
	assert.Contains(t, tr.ErrorOutput(), "1 ligand(s) failed to dock")
	testutil.AssertNoANSI(t, out)
}

func TestRenderScreenResultsJSON(t *testing.T) {
	tr := testutil.NewTestRendererJSON()

	require.NoError(t, renderScreenResults(tr.Renderer, "run-1234", sampleItems()))

	var doc struct {
		RunID  string `json:"run_id"`
		Failed int    `json:"failed"`
		Hits   []struct {
			Ligand   string  `json:"ligand"`
			Affinity float64 `json:"affinity"`
			Refined  bool    `json:"refined"`
		} `json:"hits"`
	}
	require.NoError(t, json.Unmarshal(tr.Out.Bytes(), &doc))

	assert.Equal(t, "run-1234", doc.RunID)
	assert.Equal(t, 1, doc.Failed)
	require.Len(t, doc.Hits, 2)
	assert.Equal(t, "ligB.pdbqt", doc.Hits[0].Ligand)
	assert.True(t, doc.Hits[0].Refined)
}

func TestPrepareLigandSetSkip(t *testing.T) {
	files := []string{"a.sdf", "b.mol2"}
	got, err := prepareLigandSet(nil, nil, files, "", true)
	require.NoError(t, err)
	assert.Equal(t, files, got)
}

func TestCompleteScreenRunAllFailed(t *testing.T) {
	store := newTestStore(t)
	run, err := store.CreateRun("/tmp/proj", "default", "screen", "vina", "rec.pdbqt")
	require.NoError(t, err)

	items := []engine.ScreenItem{
		{Ligand: "/work/a.pdbqt", Err: errors.New("vina exited with code 1")},
		{Ligand: "/work/b.pdbqt", Err: errors.New("vina exited with code 1")},
	}
	err = completeScreenRun(store, run.ID, items)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "all 2 ligand(s) failed to dock")

	got, err := store.GetRun(run.ID)
	require.NoError(t, err)
	assert.Equal(t, state.RunStatusFailed, got.Status)
	assert.Contains(t, got.Error, "a.pdbqt")
	assert.Contains(t, got.Error, "b.pdbqt")
}

func TestCompleteScreenRunPartialFailuresComplete(t *testing.T) {
	store := newTestStore(t)
	run, err := store.CreateRun("/tmp/proj", "default", "screen", "vina", "rec.pdbqt")
	require.NoError(t, err)

	require.NoError(t, completeScreenRun(store, run.ID, sampleItems()))

	got, err := store.GetRun(run.ID)
	require.NoError(t, err)
	assert.Equal(t, state.RunStatusCompleted, got.Status)
	assert.Empty(t, got.Error)
}
