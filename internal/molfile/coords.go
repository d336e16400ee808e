package molfile

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// Vec3 is a point or extent in Angstroms.
type Vec3 struct {
	X, Y, Z float64
}

// String renders the vector as comma-separated values with three decimals,
// matching the precision passed to docking engines.
func (v Vec3) String() string {
	return fmt.Sprintf("%.3f,%.3f,%.3f", v.X, v.Y, v.Z)
}

// ParseVec3 parses "x,y,z" into a Vec3.
func ParseVec3(s string) (Vec3, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 3 {
		return Vec3{}, fmt.Errorf("expected 3 comma-separated values, got %q", s)
	}
	var v Vec3
	for i, p := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return Vec3{}, fmt.Errorf("invalid coordinate %q: %w", p, err)
		}
		switch i {
		case 0:
			v.X = f
		case 1:
			v.Y = f
		case 2:
			v.Z = f
		}
	}
	return v, nil
}

// ParsePDBCoords extracts atom coordinates from PDB-format content. ATOM and
// HETATM records store X, Y, Z in fixed columns 31-38, 39-46, and 47-54.
func ParsePDBCoords(r io.Reader) ([]Vec3, error) {
	var coords []Vec3
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := scanner.Text()
		if !strings.HasPrefix(line, "ATOM") && !strings.HasPrefix(line, "HETATM") {
			continue
		}
		if len(line) < 54 {
			continue
		}
		x, errX := strconv.ParseFloat(strings.TrimSpace(line[30:38]), 64)
		y, errY := strconv.ParseFloat(strings.TrimSpace(line[38:46]), 64)
		z, errZ := strconv.ParseFloat(strings.TrimSpace(line[46:54]), 64)
		if errX != nil || errY != nil || errZ != nil {
			continue
		}
		coords = append(coords, Vec3{X: x, Y: y, Z: z})
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return coords, nil
}

// BoundingBox computes the center and padded extent of a coordinate set.
func BoundingBox(coords []Vec3, padding float64) (center, size Vec3, err error) {
	if len(coords) == 0 {
		return Vec3{}, Vec3{}, errors.New("no coordinates")
	}

	minC, maxC := coords[0], coords[0]
	for _, c := range coords[1:] {
		minC.X = min(minC.X, c.X)
		minC.Y = min(minC.Y, c.Y)
		minC.Z = min(minC.Z, c.Z)
		maxC.X = max(maxC.X, c.X)
		maxC.Y = max(maxC.Y, c.Y)
		maxC.Z = max(maxC.Z, c.Z)
	}

	center = Vec3{
		X: (minC.X + maxC.X) / 2,
		Y: (minC.Y + maxC.Y) / 2,
		Z: (minC.Z + maxC.Z) / 2,
	}
	size = Vec3{
		X: (maxC.X - minC.X) + padding,
		Y: (maxC.Y - minC.Y) + padding,
		Z: (maxC.Z - minC.Z) + padding,
	}
	return center, size, nil
}

// LigandBox centers a fixed-size search box on a coordinate set. Used when
// the binding site is known from a bound ligand.
func LigandBox(coords []Vec3, size Vec3) (center, boxSize Vec3, err error) {
	center, _, err = BoundingBox(coords, 0)
	if err != nil {
		return Vec3{}, Vec3{}, err
	}
	return center, size, nil
}
