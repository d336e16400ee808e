// Package engine runs molecular docking through external engines. It builds
// command lines, parses pose tables, and ranks results; AutoDock Vina is the
// built-in engine.
package engine

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/simdock-lab/simdock/internal/molfile"
)

// ErrUnknownEngine indicates a docking engine name with no registration.
var ErrUnknownEngine = errors.New("unknown docking engine")

// Spec describes one docking job.
type Spec struct {
	Receptor       string // prepared receptor, PDBQT
	Ligand         string // prepared ligand, PDBQT
	Output         string // pose output path
	Center         molfile.Vec3
	Size           molfile.Vec3
	Exhaustiveness int
	NumModes       int
	EnergyRange    float64
	CPU            int
	Seed           int64
}

// Pose is one binding mode from the engine's result table.
type Pose struct {
	Mode      int
	Affinity  float64 // kcal/mol, more negative binds tighter
	RMSDLower float64
	RMSDUpper float64
}

// Result is the outcome of a docking job.
type Result struct {
	Poses      []Pose
	OutputPath string
	RawOutput  string
}

// Best returns the top-ranked pose, or false when the engine reported none.
func (r *Result) Best() (Pose, bool) {
	if len(r.Poses) == 0 {
		return Pose{}, false
	}
	best := r.Poses[0]
	for _, p := range r.Poses[1:] {
		if p.Affinity < best.Affinity {
			best = p
		}
	}
	return best, true
}

// Engine docks a ligand against a receptor.
type Engine interface {
	Name() string
	Version(ctx context.Context) (string, error)
	Dock(ctx context.Context, spec Spec) (*Result, error)
	ValidateBox(center, size molfile.Vec3) error
}

var (
	registryMu sync.RWMutex
	registry   = make(map[string]func() Engine)
)

// Register makes an engine constructor available by name.
func Register(name string, constructor func() Engine) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[name] = constructor
}

// Get returns a new engine instance by name.
func Get(name string) (Engine, error) {
	registryMu.RLock()
	constructor, ok := registry[name]
	registryMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %q (available: %v)", ErrUnknownEngine, name, List())
	}
	return constructor(), nil
}

// List returns the registered engine names, sorted.
func List() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
