package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/pflag"
)

func chdir(t *testing.T, dir string) {
	t.Helper()
	old, err := os.Getwd()
	if err != nil {
		t.Fatalf("failed to get cwd: %v", err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("failed to chdir: %v", err)
	}
	t.Cleanup(func() {
		_ = os.Chdir(old)
		ResetConfig()
	})
}

func newFlags() *pflag.FlagSet {
	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.String("project-dir", "", "")
	flags.String("state", "", "")
	flags.Bool("verbose", false, "")
	flags.StringP("output", "o", "", "")
	flags.Int("exhaustiveness", 0, "")
	return flags
}

func TestLoadConfigDefaults(t *testing.T) {
	chdir(t, t.TempDir())

	cfg, err := LoadConfig("", nil)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	if cfg.Environment != "default" {
		t.Errorf("expected default environment, got %q", cfg.Environment)
	}
	if cfg.OutputFormat != "auto" {
		t.Errorf("expected auto output, got %q", cfg.OutputFormat)
	}
	if cfg.Executables.OBabel != "obabel" || cfg.Executables.Vina != "vina" {
		t.Errorf("unexpected executables: %+v", cfg.Executables)
	}
	if cfg.Docking.Exhaustiveness != 8 || cfg.Docking.NumModes != 9 {
		t.Errorf("unexpected docking defaults: %+v", cfg.Docking)
	}
	if len(cfg.Docking.BoxSize) != 3 || cfg.Docking.BoxSize[0] != 25 {
		t.Errorf("unexpected box size: %v", cfg.Docking.BoxSize)
	}
	if !strings.HasSuffix(cfg.StatePath, filepath.Join(".simdock", "state.db")) {
		t.Errorf("state path should resolve under project root: %s", cfg.StatePath)
	}
}

func TestLoadConfigFromFile(t *testing.T) {
	dir := t.TempDir()
	content := `environment: screening
docking:
  exhaustiveness: 16
  workers: 8
executables:
  vina: /opt/vina/bin/vina
`
	if err := os.WriteFile(filepath.Join(dir, "simdock.yaml"), []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	chdir(t, dir)

	cfg, err := LoadConfig("", nil)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	if cfg.Environment != "screening" {
		t.Errorf("expected file environment, got %q", cfg.Environment)
	}
	if cfg.Docking.Exhaustiveness != 16 || cfg.Docking.Workers != 8 {
		t.Errorf("file values not applied: %+v", cfg.Docking)
	}
	if cfg.Executables.Vina != "/opt/vina/bin/vina" {
		t.Errorf("executable override not applied: %s", cfg.Executables.Vina)
	}
	// Untouched keys keep defaults.
	if cfg.Docking.NumModes != 9 {
		t.Errorf("unset key should keep default, got %d", cfg.Docking.NumModes)
	}
	if GetConfigFileUsed() == "" {
		t.Error("config file path should be recorded")
	}
}

func TestLoadConfigEnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "simdock.yaml"),
		[]byte("environment: from_file\n"), 0644); err != nil {
		t.Fatal(err)
	}
	chdir(t, dir)
	t.Setenv("SIMDOCK_ENVIRONMENT", "from_env")
	t.Setenv("SIMDOCK_DOCKING__EXHAUSTIVENESS", "32")

	cfg, err := LoadConfig("", nil)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	if cfg.Environment != "from_env" {
		t.Errorf("env should override file, got %q", cfg.Environment)
	}
	if cfg.Docking.Exhaustiveness != 32 {
		t.Errorf("nested env override not applied, got %d", cfg.Docking.Exhaustiveness)
	}
}

func TestLoadConfigFlagsOverrideEnv(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("SIMDOCK_OUTPUT", "markdown")

	flags := newFlags()
	if err := flags.Parse([]string{"--output", "json"}); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadConfig("", flags)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.OutputFormat != "json" {
		t.Errorf("flag should override env, got %q", cfg.OutputFormat)
	}
}

func TestLoadConfigUnchangedFlagsIgnored(t *testing.T) {
	chdir(t, t.TempDir())

	flags := newFlags()
	if err := flags.Parse(nil); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadConfig("", flags)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	// Zero-valued but unchanged flags must not clobber defaults.
	if cfg.OutputFormat != "auto" {
		t.Errorf("unchanged flag clobbered default: %q", cfg.OutputFormat)
	}
}

func TestLoadConfigUpwardSearch(t *testing.T) {
	root := t.TempDir()
	if err := os.WriteFile(filepath.Join(root, "simdock.yaml"),
		[]byte("environment: parent\n"), 0644); err != nil {
		t.Fatal(err)
	}
	nested := filepath.Join(root, "a", "b")
	if err := os.MkdirAll(nested, 0750); err != nil {
		t.Fatal(err)
	}
	chdir(t, nested)

	cfg, err := LoadConfig("", nil)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.Environment != "parent" {
		t.Errorf("upward search did not find parent config, got %q", cfg.Environment)
	}
	if evalSymlinks(t, cfg.ProjectRoot) != evalSymlinks(t, root) {
		t.Errorf("project root should be %s, got %s", root, cfg.ProjectRoot)
	}
}

func evalSymlinks(t *testing.T, path string) string {
	t.Helper()
	resolved, err := filepath.EvalSymlinks(path)
	if err != nil {
		return path
	}
	return resolved
}

func TestLoadConfigInvalidYAML(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "simdock.yaml")
	if err := os.WriteFile(cfgPath, []byte(":\tnot yaml"), 0644); err != nil {
		t.Fatal(err)
	}
	chdir(t, dir)

	if _, err := LoadConfig(cfgPath, nil); err == nil {
		t.Error("expected error for invalid YAML")
	}
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			Docking: DefaultDocking(),
			Network: NetworkConfig{TimeoutSeconds: 30},
		}
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"defaults are valid", func(*Config) {}, false},
		{"zero exhaustiveness", func(c *Config) { c.Docking.Exhaustiveness = 0 }, true},
		{"wrong box size length", func(c *Config) { c.Docking.BoxSize = []float64{25, 25} }, true},
		{"negative box axis", func(c *Config) { c.Docking.BoxSize = []float64{25, -1, 25} }, true},
		{"refine percent too high", func(c *Config) { c.Docking.RefinePercent = 150 }, true},
		{"refine percent zero", func(c *Config) { c.Docking.RefinePercent = 0 }, true},
		{"mismatched adaptive lists", func(c *Config) { c.Docking.AdaptiveValues = []int{8, 16} }, true},
		{"zero timeout", func(c *Config) { c.Network.TimeoutSeconds = 0 }, true},
		{"bad output mode", func(c *Config) { c.OutputFormat = "xml" }, true},
		{"json output", func(c *Config) { c.OutputFormat = "json" }, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
