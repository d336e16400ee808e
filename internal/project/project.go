// Package project manages simdock project folders: a dedicated directory
// per project holding receptors, ligands, docking outputs, and a JSON
// manifest describing them.
package project

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ErrNoProject indicates no project manifest was found at the given path.
var ErrNoProject = errors.New("no project found")

// ManifestName is the project manifest file name.
const ManifestName = "project.json"

// Version recorded in new manifests.
const Version = "1.0"

// Subdirectories created in every project.
var subdirs = []string{"receptors", "ligands", "results", "runs", "exports", "backups"}

// Info identifies a project.
type Info struct {
	Name     string    `json:"name"`
	Created  time.Time `json:"created"`
	Modified time.Time `json:"modified,omitempty"`
	Version  string    `json:"version"`
}

// FileEntry records a structure file registered with the project. Path is
// always relative to the project root.
type FileEntry struct {
	Name  string    `json:"name"`
	Path  string    `json:"path"`
	Added time.Time `json:"added"`
	Size  int64     `json:"size"`
}

// Manifest is the persisted project state.
type Manifest struct {
	Info      Info              `json:"project_info"`
	Receptors []FileEntry       `json:"receptors"`
	Ligands   []FileEntry       `json:"ligands"`
	Settings  map[string]string `json:"settings,omitempty"`
}

// Project is an open project rooted at a directory.
type Project struct {
	Root     string
	Manifest *Manifest
}

// Create makes a new project folder under baseDir. The folder name combines
// the project name with a timestamp and a short unique suffix so repeated
// names never collide.
func Create(name, baseDir string) (*Project, error) {
	if strings.TrimSpace(name) == "" {
		return nil, errors.New("project name is empty")
	}

	folder := fmt.Sprintf("%s_%s_%s",
		sanitize(name),
		time.Now().Format("20060102_150405"),
		uuid.New().String()[:8],
	)
	root := filepath.Join(baseDir, folder)

	for _, sub := range subdirs {
		if err := os.MkdirAll(filepath.Join(root, sub), 0750); err != nil {
			return nil, fmt.Errorf("failed to create project directory: %w", err)
		}
	}

	p := &Project{
		Root: root,
		Manifest: &Manifest{
			Info: Info{
				Name:    name,
				Created: time.Now().UTC(),
				Version: Version,
			},
			Settings: map[string]string{},
		},
	}
	if err := p.Save(); err != nil {
		return nil, err
	}
	return p, nil
}

// Open loads a project from a directory or a direct path to its manifest.
func Open(path string) (*Project, error) {
	root := path
	if filepath.Base(path) == ManifestName {
		root = filepath.Dir(path)
	}

	data, err := os.ReadFile(filepath.Join(root, ManifestName))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w at %s", ErrNoProject, root)
		}
		return nil, err
	}

	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("invalid project manifest: %w", err)
	}

	return &Project{Root: root, Manifest: &m}, nil
}

// Find walks upward from dir looking for a project manifest.
func Find(dir string) (*Project, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, err
	}
	for {
		if _, err := os.Stat(filepath.Join(abs, ManifestName)); err == nil {
			return Open(abs)
		}
		parent := filepath.Dir(abs)
		if parent == abs {
			return nil, fmt.Errorf("%w in %s or any parent", ErrNoProject, dir)
		}
		abs = parent
	}
}

// Save writes the manifest atomically, stamping the modification time.
func (p *Project) Save() error {
	p.Manifest.Info.Modified = time.Now().UTC()

	data, err := json.MarshalIndent(p.Manifest, "", "    ")
	if err != nil {
		return err
	}

	dest := filepath.Join(p.Root, ManifestName)
	tmp := dest + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("failed to save project: %w", err)
	}
	if err := os.Rename(tmp, dest); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to save project: %w", err)
	}
	return nil
}

// Abs resolves a manifest-relative path against the project root.
func (p *Project) Abs(rel string) string {
	if filepath.IsAbs(rel) {
		return rel
	}
	return filepath.Join(p.Root, rel)
}

// Dir returns the absolute path of a project subdirectory.
func (p *Project) Dir(sub string) string {
	return filepath.Join(p.Root, sub)
}

// AddReceptor copies a receptor file into receptors/ and records it.
func (p *Project) AddReceptor(path string) (FileEntry, error) {
	entry, err := p.addFile(path, "receptors")
	if err != nil {
		return FileEntry{}, fmt.Errorf("failed to add receptor: %w", err)
	}
	p.Manifest.Receptors = append(p.Manifest.Receptors, entry)
	return entry, p.Save()
}

// AddLigands copies ligand files into ligands/ and records them.
func (p *Project) AddLigands(paths []string) ([]FileEntry, error) {
	var entries []FileEntry
	for _, path := range paths {
		entry, err := p.addFile(path, "ligands")
		if err != nil {
			return entries, fmt.Errorf("failed to add ligand: %w", err)
		}
		p.Manifest.Ligands = append(p.Manifest.Ligands, entry)
		entries = append(entries, entry)
	}
	return entries, p.Save()
}

func (p *Project) addFile(src, sub string) (FileEntry, error) {
	info, err := os.Stat(src)
	if err != nil {
		return FileEntry{}, err
	}

	name := filepath.Base(src)
	dest := filepath.Join(p.Root, sub, name)

	// Files already inside the target directory are registered in place.
	absSrc, _ := filepath.Abs(src)
	absDest, _ := filepath.Abs(dest)
	if absSrc != absDest {
		if err := copyFile(src, dest); err != nil {
			return FileEntry{}, err
		}
	}

	return FileEntry{
		Name:  name,
		Path:  filepath.Join(sub, name),
		Added: time.Now().UTC(),
		Size:  info.Size(),
	}, nil
}

// Summary aggregates project contents.
type Summary struct {
	Info          Info
	ReceptorCount int
	LigandCount   int
	TotalSize     int64
}

// Summarize walks the project tree for sizes and counts.
func (p *Project) Summarize() (Summary, error) {
	s := Summary{
		Info:          p.Manifest.Info,
		ReceptorCount: len(p.Manifest.Receptors),
		LigandCount:   len(p.Manifest.Ligands),
	}

	err := filepath.Walk(p.Root, func(_ string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() {
			s.TotalSize += info.Size()
		}
		return nil
	})
	return s, err
}

func copyFile(src, dest string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dest)
	if err != nil {
		return err
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return err
	}
	return out.Close()
}

// sanitize makes a project name safe for use as a directory name.
func sanitize(name string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		case r == ' ':
			return '_'
		default:
			return -1
		}
	}, name)
}

// Entry describes a project for the browser listing.
type Entry struct {
	Name     string
	Path     string
	Created  time.Time
	Modified time.Time
	Files    int
	Ligands  int
}

// List scans dir for project folders, newest first. Folders without a
// readable manifest are skipped.
func List(dir string) ([]Entry, error) {
	items, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var entries []Entry
	for _, item := range items {
		if !item.IsDir() {
			continue
		}
		p, err := Open(filepath.Join(dir, item.Name()))
		if err != nil {
			continue
		}
		entries = append(entries, Entry{
			Name:     p.Manifest.Info.Name,
			Path:     p.Root,
			Created:  p.Manifest.Info.Created,
			Modified: p.Manifest.Info.Modified,
			Files:    len(p.Manifest.Receptors) + len(p.Manifest.Ligands),
			Ligands:  len(p.Manifest.Ligands),
		})
	}

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Modified.After(entries[j].Modified)
	})
	return entries, nil
}

// Recent returns up to n most recently modified projects in dir.
func Recent(dir string, n int) ([]Entry, error) {
	entries, err := List(dir)
	if err != nil {
		return nil, err
	}
	if len(entries) > n {
		entries = entries[:n]
	}
	return entries, nil
}
