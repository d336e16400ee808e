package state

import (
	"fmt"
)

// RecordPoses stores the binding modes reported for a docking. Existing
// poses for the docking are replaced.
func (s *SQLiteStore) RecordPoses(dockingID string, poses []Pose) error {
	if s.db == nil {
		return fmt.Errorf("database not opened")
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM poses WHERE docking_id = ?`, dockingID); err != nil {
		return fmt.Errorf("failed to delete existing poses: %w", err)
	}

	for _, p := range poses {
		_, err := tx.Exec(
			`INSERT INTO poses (docking_id, mode, affinity, rmsd_lower, rmsd_upper)
			 VALUES (?, ?, ?, ?, ?)`,
			dockingID, p.Mode, p.Affinity, p.RMSDLower, p.RMSDUpper,
		)
		if err != nil {
			return fmt.Errorf("failed to insert pose: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// GetPoses retrieves the poses for a docking in mode order.
func (s *SQLiteStore) GetPoses(dockingID string) ([]*Pose, error) {
	if s.db == nil {
		return nil, fmt.Errorf("database not opened")
	}

	rows, err := s.db.Query(
		`SELECT id, docking_id, mode, affinity, rmsd_lower, rmsd_upper
		 FROM poses WHERE docking_id = ? ORDER BY mode`,
		dockingID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get poses: %w", err)
	}
	defer rows.Close()

	var poses []*Pose
	for rows.Next() {
		p := &Pose{}
		if err := rows.Scan(&p.ID, &p.DockingID, &p.Mode, &p.Affinity, &p.RMSDLower, &p.RMSDUpper); err != nil {
			return nil, fmt.Errorf("failed to scan pose: %w", err)
		}
		poses = append(poses, p)
	}

	return poses, rows.Err()
}
