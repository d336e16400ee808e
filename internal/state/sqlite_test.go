package state

import (
	"testing"
	"time"

	"github.com/simdock-lab/simdock/internal/testutil"
)

func setupTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store := NewSQLiteStore(testutil.NewTestLogger(t))
	if err := store.Open(":memory:"); err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	if err := store.Migrate(); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}
	return store
}

func TestSQLiteStore_OpenClose(t *testing.T) {
	store := NewSQLiteStore(testutil.NewTestLogger(t))

	if err := store.Open(":memory:"); err != nil {
		t.Fatalf("failed to open in-memory store: %v", err)
	}

	if err := store.Close(); err != nil {
		t.Fatalf("failed to close store: %v", err)
	}
}

func TestSQLiteStore_Migrate(t *testing.T) {
	store := setupTestStore(t)

	// Verify tables exist by querying them
	tables := []string{"runs", "dockings", "poses"}
	for _, table := range tables {
		rows, err := store.db.Query("SELECT 1 FROM " + table + " LIMIT 1")
		if err != nil {
			t.Errorf("table %s does not exist: %v", table, err)
		} else {
			rows.Close()
		}
	}

	version, err := store.GetMigrationVersion()
	if err != nil {
		t.Fatalf("failed to get migration version: %v", err)
	}
	if version < 1 {
		t.Errorf("expected migration version >= 1, got %d", version)
	}
}

// --- Run lifecycle tests ---

func TestSQLiteStore_RunLifecycle(t *testing.T) {
	tests := []struct {
		name      string
		setup     func(t *testing.T, store *SQLiteStore) *Run
		operation func(t *testing.T, store *SQLiteStore, run *Run)
		verify    func(t *testing.T, store *SQLiteStore, run *Run)
	}{
		{
			name: "create run",
			setup: func(t *testing.T, store *SQLiteStore) *Run {
				run, err := store.CreateRun("/proj/alpha", "default", "screen", "vina", "1abc_receptor.pdbqt")
				if err != nil {
					t.Fatalf("failed to create run: %v", err)
				}
				return run
			},
			verify: func(t *testing.T, store *SQLiteStore, run *Run) {
				if run.ID == "" {
					t.Error("run ID should not be empty")
				}
				if run.Kind != "screen" {
					t.Errorf("expected kind 'screen', got %q", run.Kind)
				}
				got, err := store.GetRun(run.ID)
				if err != nil {
					t.Fatalf("failed to get run: %v", err)
				}
				if got.Environment != "default" {
					t.Errorf("expected environment 'default', got %q", got.Environment)
				}
				if run.Status != RunStatusRunning {
					t.Errorf("expected status running, got %q", run.Status)
				}
			},
		},
		{
			name: "complete run",
			setup: func(t *testing.T, store *SQLiteStore) *Run {
				run, err := store.CreateRun("/proj/alpha", "default", "dock", "vina", "r.pdbqt")
				if err != nil {
					t.Fatalf("failed to create run: %v", err)
				}
				return run
			},
			operation: func(t *testing.T, store *SQLiteStore, run *Run) {
				if err := store.CompleteRun(run.ID, RunStatusCompleted, ""); err != nil {
					t.Fatalf("failed to complete run: %v", err)
				}
			},
			verify: func(t *testing.T, store *SQLiteStore, run *Run) {
				got, err := store.GetRun(run.ID)
				if err != nil {
					t.Fatalf("failed to get run: %v", err)
				}
				if got.Status != RunStatusCompleted {
					t.Errorf("expected status completed, got %q", got.Status)
				}
				if got.CompletedAt == nil {
					t.Error("completed run should have a completion time")
				}
			},
		},
		{
			name: "fail run with error",
			setup: func(t *testing.T, store *SQLiteStore) *Run {
				run, err := store.CreateRun("/proj/alpha", "default", "dock", "vina", "r.pdbqt")
				if err != nil {
					t.Fatalf("failed to create run: %v", err)
				}
				return run
			},
			operation: func(t *testing.T, store *SQLiteStore, run *Run) {
				if err := store.CompleteRun(run.ID, RunStatusFailed, "engine exited"); err != nil {
					t.Fatalf("failed to fail run: %v", err)
				}
			},
			verify: func(t *testing.T, store *SQLiteStore, run *Run) {
				got, err := store.GetRun(run.ID)
				if err != nil {
					t.Fatalf("failed to get run: %v", err)
				}
				if got.Status != RunStatusFailed {
					t.Errorf("expected status failed, got %q", got.Status)
				}
				if got.Error != "engine exited" {
					t.Errorf("expected error message, got %q", got.Error)
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := setupTestStore(t)
			run := tt.setup(t, store)
			if tt.operation != nil {
				tt.operation(t, store, run)
			}
			tt.verify(t, store, run)
		})
	}
}

func TestSQLiteStore_CompleteRunNotFound(t *testing.T) {
	store := setupTestStore(t)
	if err := store.CompleteRun("missing", RunStatusCompleted, ""); err == nil {
		t.Error("expected error for unknown run ID")
	}
}

func TestSQLiteStore_ListRuns(t *testing.T) {
	store := setupTestStore(t)

	for i := 0; i < 3; i++ {
		if _, err := store.CreateRun("/proj/alpha", "default", "screen", "vina", "r.pdbqt"); err != nil {
			t.Fatalf("failed to create run: %v", err)
		}
		time.Sleep(2 * time.Millisecond)
	}
	if _, err := store.CreateRun("/proj/beta", "default", "dock", "vina", "r.pdbqt"); err != nil {
		t.Fatalf("failed to create run: %v", err)
	}

	runs, err := store.ListRuns("/proj/alpha", 0)
	if err != nil {
		t.Fatalf("failed to list runs: %v", err)
	}
	if len(runs) != 3 {
		t.Fatalf("expected 3 runs, got %d", len(runs))
	}
	for i := 1; i < len(runs); i++ {
		if runs[i].StartedAt.After(runs[i-1].StartedAt) {
			t.Error("runs should be ordered newest first")
		}
	}

	limited, err := store.ListRuns("", 2)
	if err != nil {
		t.Fatalf("failed to list runs with limit: %v", err)
	}
	if len(limited) != 2 {
		t.Errorf("expected 2 runs with limit, got %d", len(limited))
	}

	latest, err := store.GetLatestRun("/proj/beta")
	if err != nil {
		t.Fatalf("failed to get latest run: %v", err)
	}
	if latest == nil || latest.Kind != "dock" {
		t.Errorf("unexpected latest run: %+v", latest)
	}

	none, err := store.GetLatestRun("/proj/none")
	if err != nil {
		t.Fatalf("GetLatestRun should not error for empty project: %v", err)
	}
	if none != nil {
		t.Errorf("expected nil for project with no runs, got %+v", none)
	}
}

// --- Docking tests ---

func TestSQLiteStore_DockingLifecycle(t *testing.T) {
	store := setupTestStore(t)

	run, err := store.CreateRun("/proj/alpha", "default", "screen", "vina", "r.pdbqt")
	if err != nil {
		t.Fatalf("failed to create run: %v", err)
	}

	d := &Docking{
		RunID:          run.ID,
		Ligand:         "aspirin.pdbqt",
		Exhaustiveness: 8,
		CenterX:        1.5, CenterY: 2.5, CenterZ: 3.5,
		SizeX: 25, SizeY: 25, SizeZ: 25,
	}
	if err := store.RecordDocking(d); err != nil {
		t.Fatalf("failed to record docking: %v", err)
	}
	if d.ID == "" {
		t.Error("docking ID should be assigned")
	}
	if d.Status != DockingStatusPending {
		t.Errorf("expected pending status, got %q", d.Status)
	}

	affinity := -7.2
	if err := store.UpdateDocking(d.ID, DockingStatusSuccess, &affinity, "out.pdbqt", ""); err != nil {
		t.Fatalf("failed to update docking: %v", err)
	}

	dockings, err := store.GetDockingsForRun(run.ID)
	if err != nil {
		t.Fatalf("failed to get dockings: %v", err)
	}
	if len(dockings) != 1 {
		t.Fatalf("expected 1 docking, got %d", len(dockings))
	}
	got := dockings[0]
	if got.Status != DockingStatusSuccess {
		t.Errorf("expected success status, got %q", got.Status)
	}
	if got.BestAffinity == nil || *got.BestAffinity != -7.2 {
		t.Errorf("unexpected best affinity: %v", got.BestAffinity)
	}
	if got.OutputPath != "out.pdbqt" {
		t.Errorf("unexpected output path: %q", got.OutputPath)
	}
	if got.CompletedAt == nil {
		t.Error("completed docking should have a completion time")
	}
}

func TestSQLiteStore_UpdateDockingNotFound(t *testing.T) {
	store := setupTestStore(t)
	if err := store.UpdateDocking("missing", DockingStatusFailed, nil, "", "boom"); err == nil {
		t.Error("expected error for unknown docking ID")
	}
}

func TestSQLiteStore_TopDockings(t *testing.T) {
	store := setupTestStore(t)

	run, err := store.CreateRun("/proj/alpha", "default", "screen", "vina", "r.pdbqt")
	if err != nil {
		t.Fatalf("failed to create run: %v", err)
	}

	scores := map[string]float64{
		"weak.pdbqt":   -5.1,
		"strong.pdbqt": -9.8,
		"mid.pdbqt":    -7.3,
	}
	for ligand, score := range scores {
		d := &Docking{RunID: run.ID, Ligand: ligand, Exhaustiveness: 8, SizeX: 25, SizeY: 25, SizeZ: 25}
		if err := store.RecordDocking(d); err != nil {
			t.Fatalf("failed to record docking: %v", err)
		}
		s := score
		if err := store.UpdateDocking(d.ID, DockingStatusSuccess, &s, "", ""); err != nil {
			t.Fatalf("failed to update docking: %v", err)
		}
	}

	// Failed dockings never rank.
	failed := &Docking{RunID: run.ID, Ligand: "bad.pdbqt", Exhaustiveness: 8}
	if err := store.RecordDocking(failed); err != nil {
		t.Fatalf("failed to record docking: %v", err)
	}
	if err := store.UpdateDocking(failed.ID, DockingStatusFailed, nil, "", "parse error"); err != nil {
		t.Fatalf("failed to update docking: %v", err)
	}

	top, err := store.TopDockings(run.ID, 2)
	if err != nil {
		t.Fatalf("failed to get top dockings: %v", err)
	}
	if len(top) != 2 {
		t.Fatalf("expected 2 top dockings, got %d", len(top))
	}
	if top[0].Ligand != "strong.pdbqt" || top[1].Ligand != "mid.pdbqt" {
		t.Errorf("unexpected ranking: %s, %s", top[0].Ligand, top[1].Ligand)
	}
}

// --- Pose tests ---

func TestSQLiteStore_Poses(t *testing.T) {
	store := setupTestStore(t)

	run, err := store.CreateRun("/proj/alpha", "default", "dock", "vina", "r.pdbqt")
	if err != nil {
		t.Fatalf("failed to create run: %v", err)
	}
	d := &Docking{RunID: run.ID, Ligand: "lig.pdbqt", Exhaustiveness: 8}
	if err := store.RecordDocking(d); err != nil {
		t.Fatalf("failed to record docking: %v", err)
	}

	poses := []Pose{
		{Mode: 1, Affinity: -8.4, RMSDLower: 0, RMSDUpper: 0},
		{Mode: 2, Affinity: -7.9, RMSDLower: 1.2, RMSDUpper: 2.4},
		{Mode: 3, Affinity: -7.1, RMSDLower: 2.8, RMSDUpper: 5.0},
	}
	if err := store.RecordPoses(d.ID, poses); err != nil {
		t.Fatalf("failed to record poses: %v", err)
	}

	got, err := store.GetPoses(d.ID)
	if err != nil {
		t.Fatalf("failed to get poses: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("expected 3 poses, got %d", len(got))
	}
	if got[0].Mode != 1 || got[0].Affinity != -8.4 {
		t.Errorf("unexpected first pose: %+v", got[0])
	}

	// Re-recording replaces rather than appends.
	if err := store.RecordPoses(d.ID, poses[:1]); err != nil {
		t.Fatalf("failed to re-record poses: %v", err)
	}
	got, err = store.GetPoses(d.ID)
	if err != nil {
		t.Fatalf("failed to get poses: %v", err)
	}
	if len(got) != 1 {
		t.Errorf("expected poses to be replaced, got %d", len(got))
	}
}
