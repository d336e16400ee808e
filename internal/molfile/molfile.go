// Package molfile handles molecular structure files: format detection,
// signature validation, coordinate extraction, docking box geometry, and
// PDBQT preparation through Open Babel.
package molfile

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ErrUnsupportedFormat indicates a file extension outside the accepted set.
var ErrUnsupportedFormat = errors.New("unsupported file format")

// Supported extensions, lowercase with leading dot.
var (
	ReceptorFormats = []string{".pdb"}
	LigandFormats   = []string{".pdb", ".sdf", ".mol2"}
)

// pdbRecordStarts are the record types a PDB file plausibly opens with.
var pdbRecordStarts = []string{"ATOM", "HETATM", "HEADER", "TITLE", "COMPND", "REMARK", "MODEL", "CRYST1"}

// Ext returns the lowercase extension of path, including the dot.
func Ext(path string) string {
	return strings.ToLower(filepath.Ext(path))
}

// Stem returns the base name of path without its extension.
func Stem(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// ValidateFile checks that path exists, is a non-empty regular file, carries
// one of the allowed extensions, and opens with a plausible signature for
// that format.
func ValidateFile(path string, allowed []string) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("stat %s: %w", path, err)
	}
	if info.IsDir() {
		return fmt.Errorf("%s is a directory, not a file", path)
	}
	if info.Size() == 0 {
		return fmt.Errorf("%s is empty", path)
	}

	ext := Ext(path)
	ok := false
	for _, a := range allowed {
		if ext == a {
			ok = true
			break
		}
	}
	if !ok {
		return fmt.Errorf("%w: %s (allowed: %s)", ErrUnsupportedFormat, ext, strings.Join(allowed, ", "))
	}

	if !checkSignature(path, ext) {
		return fmt.Errorf("%s does not look like a valid %s file", path, ext)
	}
	return nil
}

// checkSignature inspects the first few lines for format markers.
func checkSignature(path, ext string) bool {
	f, err := os.Open(path)
	if err != nil {
		return false
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	var lines []string
	for scanner.Scan() && len(lines) < 5 {
		lines = append(lines, strings.TrimSpace(scanner.Text()))
	}

	switch ext {
	case ".pdb", ".pdbqt":
		for _, line := range lines {
			for _, start := range pdbRecordStarts {
				if strings.HasPrefix(line, start) {
					return true
				}
			}
		}
		return false
	case ".sdf":
		// The counts line of a connection table names the CTAB version.
		for _, line := range lines {
			if strings.Contains(line, "V2000") || strings.Contains(line, "V3000") {
				return true
			}
		}
		return false
	case ".mol2":
		for _, line := range lines {
			if strings.HasPrefix(line, "@<TRIPOS>") {
				return true
			}
		}
		return false
	}
	return true
}

// FilterLigands returns the subset of paths that pass ligand validation.
// Invalid entries are reported through the returned map of path to error.
func FilterLigands(paths []string) (valid []string, rejected map[string]error) {
	rejected = make(map[string]error)
	for _, p := range paths {
		if err := ValidateFile(p, LigandFormats); err != nil {
			rejected[p] = err
			continue
		}
		valid = append(valid, p)
	}
	return valid, rejected
}
