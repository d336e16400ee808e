package molfile

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/simdock-lab/simdock/internal/toolexec"
)

// DefaultPH is the protonation pH applied when preparing ligands.
const DefaultPH = 7.4

// Preparer converts structures to PDBQT and inspects them through Open Babel.
type Preparer struct {
	obabel string
	runner toolexec.Runner
	logger *slog.Logger
}

// NewPreparer returns a Preparer invoking the given obabel executable.
func NewPreparer(obabel string, runner toolexec.Runner, logger *slog.Logger) *Preparer {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Preparer{obabel: obabel, runner: runner, logger: logger}
}

// ReceptorOptions controls receptor preparation.
type ReceptorOptions struct {
	RemoveWater bool
}

// LigandOptions controls ligand preparation.
type LigandOptions struct {
	AddHydrogens bool
	PH           float64
}

// PrepareReceptor converts a PDB receptor to rigid PDBQT in outputDir,
// stripping non-standard residues. Returns the output path.
func (p *Preparer) PrepareReceptor(ctx context.Context, receptorPath, outputDir string, opts ReceptorOptions) (string, error) {
	if err := ValidateFile(receptorPath, ReceptorFormats); err != nil {
		return "", err
	}
	if err := p.ValidateStructure(ctx, receptorPath); err != nil {
		return "", fmt.Errorf("receptor validation failed: %w", err)
	}

	if outputDir == "" {
		outputDir = filepath.Dir(receptorPath)
	}
	outPath := filepath.Join(outputDir, Stem(receptorPath)+"_receptor.pdbqt")

	args := []string{
		"-ipdb", receptorPath,
		"-opdbqt",
		"-O", outPath,
		"-xr", // rigid receptor, strip non-standard residues
	}
	if opts.RemoveWater {
		args = append(args, "-d")
	}

	p.logger.Debug("preparing receptor", "input", receptorPath, "output", outPath)
	if _, err := p.runner.Run(ctx, p.obabel, args...); err != nil {
		return "", fmt.Errorf("receptor preparation: %w", err)
	}
	if _, err := os.Stat(outPath); err != nil {
		return "", fmt.Errorf("receptor preparation produced no output: %w", err)
	}
	return outPath, nil
}

// PrepareLigand converts a ligand to PDBQT in outputDir, optionally adding
// hydrogens and protonating for the given pH. Returns the output path.
func (p *Preparer) PrepareLigand(ctx context.Context, ligandPath, outputDir string, opts LigandOptions) (string, error) {
	if err := ValidateFile(ligandPath, LigandFormats); err != nil {
		return "", err
	}
	if err := p.ValidateStructure(ctx, ligandPath); err != nil {
		return "", fmt.Errorf("ligand validation failed: %w", err)
	}

	if outputDir == "" {
		outputDir = filepath.Dir(ligandPath)
	}
	outPath := filepath.Join(outputDir, Stem(ligandPath)+"_ligand.pdbqt")

	ext := Ext(ligandPath)
	args := []string{
		"-i" + strings.TrimPrefix(ext, "."), ligandPath,
		"-opdbqt",
		"-O", outPath,
	}
	if opts.AddHydrogens {
		args = append(args, "-h")
	}
	ph := opts.PH
	if ph == 0 {
		ph = DefaultPH
	}
	args = append(args, "-p", strconv.FormatFloat(ph, 'f', -1, 64))

	p.logger.Debug("preparing ligand", "input", ligandPath, "output", outPath, "ph", ph)
	if _, err := p.runner.Run(ctx, p.obabel, args...); err != nil {
		return "", fmt.Errorf("ligand preparation: %w", err)
	}
	if _, err := os.Stat(outPath); err != nil {
		return "", fmt.Errorf("ligand preparation produced no output: %w", err)
	}
	return outPath, nil
}

// ValidateStructure checks that Open Babel can read the file by converting
// it to SMILES. Conversion errors surface as the returned error.
func (p *Preparer) ValidateStructure(ctx context.Context, path string) error {
	ext := strings.TrimPrefix(Ext(path), ".")
	res, err := p.runner.Run(ctx, p.obabel,
		"-i"+ext, path,
		"-osmi",
		"--errorlevel", "2",
	)
	if err != nil {
		return err
	}
	if strings.TrimSpace(res.Stdout) == "" {
		return fmt.Errorf("%s could not be interpreted as a molecule", path)
	}
	return nil
}

// Coordinates extracts atom coordinates from any supported file, converting
// to PDB through Open Babel when the input is not already PDB-like.
func (p *Preparer) Coordinates(ctx context.Context, path, tempDir string) ([]Vec3, error) {
	ext := Ext(path)
	pdbPath := path
	if ext != ".pdb" && ext != ".pdbqt" {
		pdbPath = filepath.Join(tempDir, Stem(path)+"_coords.pdb")
		args := []string{
			"-i" + strings.TrimPrefix(ext, "."), path,
			"-opdb",
			"-O", pdbPath,
		}
		if _, err := p.runner.Run(ctx, p.obabel, args...); err != nil {
			return nil, fmt.Errorf("coordinate conversion: %w", err)
		}
	}

	f, err := os.Open(pdbPath)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ParsePDBCoords(f)
}

// RotatableBonds estimates torsional flexibility. PDBQT files carry an exact
// TORSDOF record; for other formats the BRANCH count is the fallback.
func RotatableBonds(path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}

	content := string(data)
	for _, line := range strings.Split(content, "\n") {
		if strings.HasPrefix(line, "TORSDOF") {
			fields := strings.Fields(line)
			if len(fields) >= 2 {
				if n, err := strconv.Atoi(fields[1]); err == nil {
					return n, nil
				}
			}
		}
	}

	branches := 0
	for _, line := range strings.Split(content, "\n") {
		if strings.HasPrefix(line, "BRANCH") {
			branches++
		}
	}
	return branches, nil
}
