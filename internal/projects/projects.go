// Package projects discovers and creates project folders under the configured
// project root.
package projects

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"

	"golang.org/x/text/unicode/norm"

	"runner/internal/domain"
)

// TemplateDirName is the agent rules directory copied into new projects.
const TemplateDirName = ".cursor"

var unsafeNameChars = regexp.MustCompile(`[^\p{L}\p{N}_\-. ]`)

// Info describes one discovered project folder.
type Info struct {
	Name         string    `json:"name"`
	Path         string    `json:"path"`
	LastModified time.Time `json:"last_modified"`
	FileCount    int       `json:"file_count"`
}

// Scan lists the immediate sub-directories of root modified within the last
// maxAgeDays days, most recently modified first. A missing root is created
// and yields an empty list.
func Scan(root string, maxAgeDays int, now time.Time) ([]Info, error) {
	entries, err := os.ReadDir(root)
	if errors.Is(err, fs.ErrNotExist) {
		if err := os.MkdirAll(root, 0o755); err != nil {
			return nil, fmt.Errorf("projects: create root: %w", err)
		}
		return []Info{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("projects: read root: %w", err)
	}

	cutoff := now.Add(-time.Duration(maxAgeDays) * 24 * time.Hour)
	projects := []Info{}
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		mtime := info.ModTime().UTC()
		if mtime.Before(cutoff) {
			continue
		}
		path := filepath.Join(root, e.Name())
		if abs, err := filepath.Abs(path); err == nil {
			path = abs
		}
		projects = append(projects, Info{
			Name:         e.Name(),
			Path:         path,
			LastModified: mtime,
			FileCount:    countFiles(path),
		})
	}

	sort.SliceStable(projects, func(i, j int) bool {
		return projects[i].LastModified.After(projects[j].LastModified)
	})
	return projects, nil
}

// countFiles counts the regular files directly inside dir.
func countFiles(dir string) int {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0
	}
	n := 0
	for _, e := range entries {
		if e.Type().IsRegular() {
			n++
		}
	}
	return n
}

// SanitizeName normalises a requested folder name. It returns "" when nothing
// usable remains.
func SanitizeName(name string) string {
	name = norm.NFC.String(strings.TrimSpace(name))
	name = unsafeNameChars.ReplaceAllString(name, "_")
	if name == "." || name == ".." || strings.Trim(name, "_") == "" {
		return ""
	}
	return name
}

// Create makes a new project folder under root and seeds it with the rules
// template found in templateDir, when present.
func Create(root, name, templateDir string) (Info, error) {
	safe := SanitizeName(name)
	if safe == "" {
		return Info{}, fmt.Errorf("%w: invalid project name", domain.ErrInvalidInput)
	}
	dir := filepath.Join(root, safe)
	if _, err := os.Stat(dir); err == nil {
		return Info{}, fmt.Errorf("%w: project %q already exists", domain.ErrConflict, safe)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return Info{}, fmt.Errorf("projects: create folder: %w", err)
	}

	if templateDir != "" {
		src := filepath.Join(templateDir, TemplateDirName)
		if info, err := os.Stat(src); err == nil && info.IsDir() {
			if err := copyTree(src, filepath.Join(dir, TemplateDirName)); err != nil {
				return Info{}, fmt.Errorf("projects: copy template: %w", err)
			}
		}
	}

	abs, err := filepath.Abs(dir)
	if err != nil {
		abs = dir
	}
	return Info{Name: safe, Path: abs, LastModified: time.Now().UTC(), FileCount: countFiles(abs)}, nil
}

// HasTemplate reports whether templateDir carries a rules template.
func HasTemplate(templateDir string) bool {
	if templateDir == "" {
		return false
	}
	info, err := os.Stat(filepath.Join(templateDir, TemplateDirName))
	return err == nil && info.IsDir()
}

func copyTree(src, dst string) error {
	return filepath.WalkDir(src, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		target := filepath.Join(dst, rel)
		if d.IsDir() {
			return os.MkdirAll(target, 0o755)
		}
		if !d.Type().IsRegular() {
			return nil
		}
		return copyFile(path, target)
	})
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		return err
	}
	return out.Close()
}
