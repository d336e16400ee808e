// Package config provides configuration management for the simdock CLI.
// Settings come from a YAML file, environment variables, and flags, merged
// with koanf.
package config

// ExecutablesConfig holds paths to the external tools simdock drives.
// Names without a path component are resolved on PATH.
type ExecutablesConfig struct {
	OBabel   string `koanf:"obabel"`
	Vina     string `koanf:"vina"`
	ChimeraX string `koanf:"chimerax"`
	VMD      string `koanf:"vmd"`
}

// DockingConfig holds the default docking parameters.
type DockingConfig struct {
	Engine             string    `koanf:"engine"`
	Exhaustiveness     int       `koanf:"exhaustiveness"`
	NumModes           int       `koanf:"num_modes"`
	EnergyRange        float64   `koanf:"energy_range"`
	BoxSize            []float64 `koanf:"box_size"`
	BoxPadding         float64   `koanf:"box_padding"`
	RefinePercent      int       `koanf:"refine_percent"`
	AdaptiveThresholds []int     `koanf:"adaptive_thresholds"`
	AdaptiveValues     []int     `koanf:"adaptive_values"`
	Workers            int       `koanf:"workers"`
	CPU                int       `koanf:"cpu"`
	Seed               int64     `koanf:"seed"`
}

// NetworkConfig holds endpoints for structure downloads.
type NetworkConfig struct {
	PDBURL         string `koanf:"pdb_url"`
	PubChemURL     string `koanf:"pubchem_url"`
	TimeoutSeconds int    `koanf:"timeout_seconds"`
}

// Config holds all CLI configuration options.
type Config struct {
	ProjectDir   string            `koanf:"project_dir"`
	StatePath    string            `koanf:"state_path"`
	Environment  string            `koanf:"environment"`
	Verbose      bool              `koanf:"verbose"`
	OutputFormat string            `koanf:"output"`
	Executables  ExecutablesConfig `koanf:"executables"`
	Docking      DockingConfig     `koanf:"docking"`
	Network      NetworkConfig     `koanf:"network"`

	// ProjectRoot is the inferred working root, not read from the file.
	ProjectRoot string `koanf:"-"`
}

// Default configuration values.
const (
	DefaultProjectDir = "projects"
	DefaultStateFile  = ".simdock/state.db"
	DefaultEnv        = "default"
	DefaultOutput     = "auto" // Auto-detect: TTY=text, non-TTY=markdown
)

// DefaultDocking returns the stock docking parameters.
func DefaultDocking() DockingConfig {
	return DockingConfig{
		Engine:             "vina",
		Exhaustiveness:     8,
		NumModes:           9,
		EnergyRange:        3.0,
		BoxSize:            []float64{25, 25, 25},
		BoxPadding:         5.0,
		RefinePercent:      10,
		AdaptiveThresholds: []int{7, 12},
		AdaptiveValues:     []int{8, 16, 32},
		Workers:            2,
	}
}
