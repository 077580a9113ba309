package projects

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"runner/internal/domain"
)

func mkProject(t *testing.T, root, name string, age time.Duration, files int) {
	t.Helper()
	dir := filepath.Join(root, name)
	if err := os.MkdirAll(filepath.Join(dir, "sub"), 0o755); err != nil {
		t.Fatalf("MkdirAll: %v", err)
	}
	for i := 0; i < files; i++ {
		if err := os.WriteFile(filepath.Join(dir, string(rune('a'+i))+".txt"), []byte("x"), 0o644); err != nil {
			t.Fatalf("WriteFile: %v", err)
		}
	}
	mtime := time.Now().Add(-age)
	if err := os.Chtimes(dir, mtime, mtime); err != nil {
		t.Fatalf("Chtimes: %v", err)
	}
}

func TestScanFiltersByAgeAndSortsMostRecentFirst(t *testing.T) {
	root := t.TempDir()
	mkProject(t, root, "old", 30*24*time.Hour, 1)
	mkProject(t, root, "recent", 2*time.Hour, 3)
	mkProject(t, root, "newest", time.Minute, 0)
	if err := os.WriteFile(filepath.Join(root, "loose.txt"), []byte("x"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	got, err := Scan(root, 10, time.Now())
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("Scan returned %d projects: %+v", len(got), got)
	}
	if got[0].Name != "newest" || got[1].Name != "recent" {
		t.Fatalf("order = %s, %s", got[0].Name, got[1].Name)
	}
	if got[1].FileCount != 3 {
		t.Fatalf("recent file count = %d, want 3", got[1].FileCount)
	}
	if !filepath.IsAbs(got[0].Path) {
		t.Fatalf("path %q not absolute", got[0].Path)
	}
}

func TestScanCreatesMissingRoot(t *testing.T) {
	root := filepath.Join(t.TempDir(), "nested", "projects")
	got, err := Scan(root, 10, time.Now())
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("expected no projects, got %d", len(got))
	}
	if info, err := os.Stat(root); err != nil || !info.IsDir() {
		t.Fatalf("root not created: %v", err)
	}
}

func TestSanitizeName(t *testing.T) {
	tests := map[string]string{
		"my app":     "my app",
		"  spaced  ": "spaced",
		"a/b\\c":     "a_b_c",
		"café":       "café",
		"..":         "",
		"///":        "",
	}
	for in, want := range tests {
		if got := SanitizeName(in); got != want {
			t.Fatalf("SanitizeName(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestCreateCopiesTemplateAndRejectsDuplicates(t *testing.T) {
	root := t.TempDir()
	tmpl := t.TempDir()
	rules := filepath.Join(tmpl, TemplateDirName, "rules")
	if err := os.MkdirAll(rules, 0o755); err != nil {
		t.Fatalf("MkdirAll: %v", err)
	}
	if err := os.WriteFile(filepath.Join(rules, "style.mdc"), []byte("be terse"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	info, err := Create(root, "demo", tmpl)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	data, err := os.ReadFile(filepath.Join(info.Path, TemplateDirName, "rules", "style.mdc"))
	if err != nil || string(data) != "be terse" {
		t.Fatalf("template not copied: %q, %v", data, err)
	}

	if _, err := Create(root, "demo", tmpl); !errors.Is(err, domain.ErrConflict) {
		t.Fatalf("duplicate Create error = %v, want ErrConflict", err)
	}
	if _, err := Create(root, "  ", ""); !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("blank Create error = %v, want ErrInvalidInput", err)
	}
}
