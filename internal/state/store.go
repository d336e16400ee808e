// Package state tracks docking history in SQLite: screening runs, the
// individual receptor/ligand dockings inside them, and the binding poses
// each docking produced.
package state

import "time"

// RunStatus is the lifecycle state of a screening run.
type RunStatus string

const (
	RunStatusRunning   RunStatus = "running"
	RunStatusCompleted RunStatus = "completed"
	RunStatusFailed    RunStatus = "failed"
	RunStatusCancelled RunStatus = "cancelled"
)

// Run is one invocation of the docking engine over a set of ligands.
type Run struct {
	ID          string
	ProjectPath string
	Environment string
	Kind        string // "dock" or "screen"
	Engine      string
	Receptor    string
	Status      RunStatus
	StartedAt   time.Time
	CompletedAt *time.Time
	Error       string
}

// DockingStatus is the lifecycle state of a single ligand docking.
type DockingStatus string

const (
	DockingStatusPending DockingStatus = "pending"
	DockingStatusRunning DockingStatus = "running"
	DockingStatusSuccess DockingStatus = "success"
	DockingStatusFailed  DockingStatus = "failed"
	DockingStatusSkipped DockingStatus = "skipped"
)

// Docking records a single receptor/ligand docking within a run.
type Docking struct {
	ID             string
	RunID          string
	Ligand         string
	Exhaustiveness int
	CenterX        float64
	CenterY        float64
	CenterZ        float64
	SizeX          float64
	SizeY          float64
	SizeZ          float64
	Status         DockingStatus
	BestAffinity   *float64
	OutputPath     string
	StartedAt      time.Time
	CompletedAt    *time.Time
	Error          string
	ExecutionMS    int64
}

// Pose is one binding mode reported by the engine for a docking.
type Pose struct {
	ID        int64
	DockingID string
	Mode      int
	Affinity  float64
	RMSDLower float64
	RMSDUpper float64
}

// Store is the persistence interface for docking history.
type Store interface {
	Open(path string) error
	Close() error
	Migrate() error

	CreateRun(projectPath, environment, kind, engine, receptor string) (*Run, error)
	GetRun(id string) (*Run, error)
	CompleteRun(id string, status RunStatus, errMsg string) error
	ListRuns(projectPath string, limit int) ([]*Run, error)
	GetLatestRun(projectPath string) (*Run, error)

	RecordDocking(d *Docking) error
	UpdateDocking(id string, status DockingStatus, bestAffinity *float64, outputPath, errMsg string) error
	GetDockingsForRun(runID string) ([]*Docking, error)

	RecordPoses(dockingID string, poses []Pose) error
	GetPoses(dockingID string) ([]*Pose, error)
	TopDockings(runID string, limit int) ([]*Docking, error)
}
