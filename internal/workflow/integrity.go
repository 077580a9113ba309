package workflow

import (
	"io/fs"
	"path/filepath"
	"sort"
	"time"
)

// maxSnapshotFiles caps the read-only check on very large trees.
const maxSnapshotFiles = 20000

var skippedDirs = map[string]bool{
	".git":         true,
	"node_modules": true,
	".venv":        true,
	"__pycache__":  true,
	"build":        true,
	"dist":         true,
}

// snapshotMTimes records the modification time of every regular file under
// root, keyed by slash separated relative path.
func snapshotMTimes(root string) map[string]time.Time {
	snap := make(map[string]time.Time)
	_ = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() {
			if path != root && skippedDirs[d.Name()] {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}
		if len(snap) >= maxSnapshotFiles {
			return filepath.SkipAll
		}
		info, err := d.Info()
		if err != nil {
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return nil
		}
		snap[filepath.ToSlash(rel)] = info.ModTime()
		return nil
	})
	return snap
}

// detectModifications returns the sorted paths that were created, changed or
// removed since before was taken.
func detectModifications(root string, before map[string]time.Time) []string {
	after := snapshotMTimes(root)
	var changed []string
	for path, mtime := range after {
		if prev, ok := before[path]; !ok || !prev.Equal(mtime) {
			changed = append(changed, path)
		}
	}
	for path := range before {
		if _, ok := after[path]; !ok {
			changed = append(changed, path)
		}
	}
	sort.Strings(changed)
	return changed
}
