package commands

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/simdock-lab/simdock/internal/cli/config"
	"github.com/simdock-lab/simdock/internal/cli/output"
	"github.com/simdock-lab/simdock/internal/fetch"
	"github.com/simdock-lab/simdock/internal/project"
	"github.com/simdock-lab/simdock/internal/state"
)

// CommandContext holds common dependencies for CLI commands.
type CommandContext struct {
	Cfg      *config.Config
	Logger   *slog.Logger
	Store    state.Store
	Renderer *output.Renderer
}

// NewCommandContext creates a CommandContext with an open state store.
// Returns the context and a cleanup function that must be called
// (typically via defer).
func NewCommandContext(cmd *cobra.Command) (*CommandContext, func(), error) {
	cmdCtx := NewCommandContextWithoutStore(cmd)

	stateDir := filepath.Dir(cmdCtx.Cfg.StatePath)
	if stateDir != "." && stateDir != "" {
		if err := os.MkdirAll(stateDir, 0750); err != nil {
			return nil, nil, fmt.Errorf("failed to create state directory: %w", err)
		}
	}

	store := state.NewSQLiteStore(cmdCtx.Logger)
	if err := store.Open(cmdCtx.Cfg.StatePath); err != nil {
		return nil, nil, err
	}
	if err := store.Migrate(); err != nil {
		store.Close()
		return nil, nil, err
	}

	cmdCtx.Store = store
	cleanup := func() { _ = store.Close() }
	return cmdCtx, cleanup, nil
}

// NewCommandContextWithoutStore creates a CommandContext without opening
// the state store. Useful for commands that never touch run history.
func NewCommandContextWithoutStore(cmd *cobra.Command) *CommandContext {
	cfg := getConfig()
	logger := config.GetLogger(cmd.Context())

	// The root command stores a renderer built after config loading; commands
	// constructed directly in tests fall back to one on their own streams.
	r := output.GetRenderer(cmd.Context())
	if r == nil {
		r = output.NewRenderer(cmd.OutOrStdout(), cmd.ErrOrStderr(), output.Mode(cfg.OutputFormat))
	}

	return &CommandContext{
		Cfg:      cfg,
		Logger:   logger,
		Renderer: r,
	}
}

// getConfig returns the current configuration, falling back to defaults
// when no config has been loaded (direct command construction in tests).
func getConfig() *config.Config {
	if cfg := config.GetCurrentConfig(); cfg != nil {
		return cfg
	}
	return &config.Config{
		ProjectDir:   config.DefaultProjectDir,
		StatePath:    config.DefaultStateFile,
		Environment:  config.DefaultEnv,
		OutputFormat: config.DefaultOutput,
		Executables: config.ExecutablesConfig{
			OBabel: "obabel", Vina: "vina", ChimeraX: "chimerax", VMD: "vmd",
		},
		Docking: config.DefaultDocking(),
		Network: config.NetworkConfig{
			PDBURL:         fetch.DefaultPDBURL,
			PubChemURL:     fetch.DefaultPubChemURL,
			TimeoutSeconds: 30,
		},
	}
}

// openProject resolves the project to operate on: an explicit --project
// path wins, otherwise the nearest project above the working directory.
func openProject(projectFlag string) (*project.Project, error) {
	if projectFlag != "" {
		return project.Open(projectFlag)
	}
	cwd, err := os.Getwd()
	if err != nil {
		return nil, err
	}
	p, err := project.Find(cwd)
	if err != nil {
		return nil, fmt.Errorf("%w (run inside a project folder or pass --project)", err)
	}
	return p, nil
}

// currentProjectPath returns the root of the nearest project above the
// working directory, or "" when not inside one.
func currentProjectPath() string {
	cwd, err := os.Getwd()
	if err != nil {
		return ""
	}
	if p, err := project.Find(cwd); err == nil {
		return p.Root
	}
	return ""
}

// newFetchClient builds a download client from the network configuration.
func (c *CommandContext) newFetchClient() *fetch.Client {
	return fetch.NewClient(
		fetch.WithPDBURL(c.Cfg.Network.PDBURL),
		fetch.WithPubChemURL(c.Cfg.Network.PubChemURL),
		fetch.WithTimeout(time.Duration(c.Cfg.Network.TimeoutSeconds)*time.Second),
		fetch.WithLogger(c.Logger),
	)
}

// formatAffinity renders a nullable affinity for tables.
func formatAffinity(a *float64) string {
	if a == nil {
		return "-"
	}
	return fmt.Sprintf("%.1f", *a)
}

// formatDuration renders a millisecond duration compactly.
func formatDuration(ms int64) string {
	d := time.Duration(ms) * time.Millisecond
	if d < time.Second {
		return d.String()
	}
	return d.Round(100 * time.Millisecond).String()
}

// shortID trims a UUID for display.
func shortID(id string) string {
	if i := strings.Index(id, "-"); i > 0 {
		return id[:i]
	}
	return id
}
