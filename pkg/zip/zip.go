package zip

import (
	"archive/zip"
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sort"
)

// Entry is one file placed at the archive root.
type Entry struct {
	Name string
	Data []byte
}

// Archive packs entries into an in-memory zip.
func Archive(entries []Entry) ([]byte, error) {
	buf := &bytes.Buffer{}
	zw := zip.NewWriter(buf)
	for _, entry := range entries {
		w, err := zw.Create(entry.Name)
		if err != nil {
			return nil, fmt.Errorf("zip: create %s: %w", entry.Name, err)
		}
		if _, err := w.Write(entry.Data); err != nil {
			return nil, fmt.Errorf("zip: write %s: %w", entry.Name, err)
		}
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("zip: close: %w", err)
	}
	return buf.Bytes(), nil
}

// ArchiveDir packs the regular files directly inside dir, sorted by name.
// Sub-directories and temp files left by interrupted writes are skipped.
func ArchiveDir(dir string) ([]byte, error) {
	items, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("zip: read %s: %w", dir, err)
	}
	var entries []Entry
	for _, item := range items {
		if !item.Type().IsRegular() || filepath.Ext(item.Name()) == ".tmp" {
			continue
		}
		data, err := os.ReadFile(filepath.Join(dir, item.Name()))
		if err != nil {
			return nil, fmt.Errorf("zip: read %s: %w", item.Name(), err)
		}
		entries = append(entries, Entry{Name: item.Name(), Data: data})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name < entries[j].Name })
	return Archive(entries)
}
