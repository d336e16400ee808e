package project

import (
	"archive/zip"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Backup zips the project into backups/ and returns the archive path.
// Earlier backups are not re-archived.
func (p *Project) Backup() (string, error) {
	name := fmt.Sprintf("project_backup_%s.zip", time.Now().Format("20060102_150405"))
	dest := filepath.Join(p.Root, "backups", name)

	f, err := os.Create(dest)
	if err != nil {
		return "", fmt.Errorf("failed to create backup: %w", err)
	}
	defer f.Close()

	zw := zip.NewWriter(f)

	err = filepath.Walk(p.Root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(p.Root, path)
		if err != nil {
			return err
		}
		if rel == "." {
			return nil
		}
		if info.IsDir() {
			if rel == "backups" {
				return filepath.SkipDir
			}
			return nil
		}

		w, err := zw.Create(filepath.ToSlash(rel))
		if err != nil {
			return err
		}
		in, err := os.Open(path)
		if err != nil {
			return err
		}
		defer in.Close()
		_, err = io.Copy(w, in)
		return err
	})
	if err != nil {
		zw.Close()
		os.Remove(dest)
		return "", fmt.Errorf("failed to create backup: %w", err)
	}

	if err := zw.Close(); err != nil {
		os.Remove(dest)
		return "", fmt.Errorf("failed to finalize backup: %w", err)
	}
	return dest, nil
}

// BackupName reports whether a file name looks like a project backup.
func BackupName(name string) bool {
	return strings.HasPrefix(name, "project_backup_") && strings.HasSuffix(name, ".zip")
}
