package state

import (
	"database/sql"
	"fmt"
	"time"
)

// RecordDocking records a new docking within a run.
func (s *SQLiteStore) RecordDocking(d *Docking) error {
	if s.db == nil {
		return fmt.Errorf("database not opened")
	}

	if d.ID == "" {
		d.ID = generateID()
	}
	if d.Status == "" {
		d.Status = DockingStatusPending
	}
	d.StartedAt = time.Now().UTC()

	_, err := s.db.Exec(
		`INSERT INTO dockings (id, run_id, ligand, exhaustiveness,
		    center_x, center_y, center_z, size_x, size_y, size_z,
		    status, best_affinity, output_path, started_at, error, execution_ms)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		d.ID, d.RunID, d.Ligand, d.Exhaustiveness,
		d.CenterX, d.CenterY, d.CenterZ, d.SizeX, d.SizeY, d.SizeZ,
		d.Status, d.BestAffinity, d.OutputPath, d.StartedAt, d.Error, d.ExecutionMS,
	)
	if err != nil {
		return fmt.Errorf("failed to record docking: %w", err)
	}

	return nil
}

// UpdateDocking updates the outcome of a docking.
func (s *SQLiteStore) UpdateDocking(id string, status DockingStatus, bestAffinity *float64, outputPath, errMsg string) error {
	if s.db == nil {
		return fmt.Errorf("database not opened")
	}

	now := time.Now().UTC()
	var errorPtr *string
	if errMsg != "" {
		errorPtr = &errMsg
	}

	var startedAt time.Time
	err := s.db.QueryRow(`SELECT started_at FROM dockings WHERE id = ?`, id).Scan(&startedAt)
	if err == sql.ErrNoRows {
		return fmt.Errorf("docking not found: %s", id)
	}
	if err != nil {
		return fmt.Errorf("failed to get docking start time: %w", err)
	}

	executionMS := now.Sub(startedAt).Milliseconds()

	_, err = s.db.Exec(
		`UPDATE dockings SET status = ?, best_affinity = ?, output_path = ?,
		    completed_at = ?, error = ?, execution_ms = ? WHERE id = ?`,
		status, bestAffinity, outputPath, now, errorPtr, executionMS, id,
	)
	if err != nil {
		return fmt.Errorf("failed to update docking: %w", err)
	}

	return nil
}

// GetDockingsForRun retrieves all dockings for a run in start order.
func (s *SQLiteStore) GetDockingsForRun(runID string) ([]*Docking, error) {
	if s.db == nil {
		return nil, fmt.Errorf("database not opened")
	}

	rows, err := s.db.Query(
		`SELECT id, run_id, ligand, exhaustiveness,
		    center_x, center_y, center_z, size_x, size_y, size_z,
		    status, best_affinity, output_path, started_at, completed_at, error, execution_ms
		 FROM dockings WHERE run_id = ? ORDER BY started_at`,
		runID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get dockings: %w", err)
	}
	defer rows.Close()

	return collectDockings(rows)
}

// TopDockings retrieves the best-scoring successful dockings for a run,
// ordered by binding affinity (most negative first).
func (s *SQLiteStore) TopDockings(runID string, limit int) ([]*Docking, error) {
	if s.db == nil {
		return nil, fmt.Errorf("database not opened")
	}

	rows, err := s.db.Query(
		`SELECT id, run_id, ligand, exhaustiveness,
		    center_x, center_y, center_z, size_x, size_y, size_z,
		    status, best_affinity, output_path, started_at, completed_at, error, execution_ms
		 FROM dockings
		 WHERE run_id = ? AND status = ? AND best_affinity IS NOT NULL
		 ORDER BY best_affinity ASC LIMIT ?`,
		runID, DockingStatusSuccess, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get top dockings: %w", err)
	}
	defer rows.Close()

	return collectDockings(rows)
}

func collectDockings(rows *sql.Rows) ([]*Docking, error) {
	var dockings []*Docking
	for rows.Next() {
		d := &Docking{}
		var bestAffinity sql.NullFloat64
		var outputPath sql.NullString
		var completedAt sql.NullTime
		var errMsg sql.NullString

		err := rows.Scan(&d.ID, &d.RunID, &d.Ligand, &d.Exhaustiveness,
			&d.CenterX, &d.CenterY, &d.CenterZ, &d.SizeX, &d.SizeY, &d.SizeZ,
			&d.Status, &bestAffinity, &outputPath, &d.StartedAt, &completedAt, &errMsg, &d.ExecutionMS)
		if err != nil {
			return nil, fmt.Errorf("failed to scan docking: %w", err)
		}

		if bestAffinity.Valid {
			d.BestAffinity = &bestAffinity.Float64
		}
		if outputPath.Valid {
			d.OutputPath = outputPath.String
		}
		if completedAt.Valid {
			d.CompletedAt = &completedAt.Time
		}
		if errMsg.Valid {
			d.Error = errMsg.String
		}
		dockings = append(dockings, d)
	}

	return dockings, rows.Err()
}
