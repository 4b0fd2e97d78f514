package dtlproc

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/klauspost/compress/zip"
)

func TestSanitizeArchiveLabel(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"already clean", "SiteA_Export", "SiteA_Export"},
		{"spaces to dash", "Site A Export", "Site-A-Export"},
		{"special characters", "a!@#b$%^c", "a-b-c"},
		{"collapsed runs", "a - - b", "a-b"},
		{"trimmed separators", "--label--", "label"},
		{"empty", "", DefaultArchiveLabel},
		{"only separators", "!!!", DefaultArchiveLabel},
		{"unicode stripped", "日本語", DefaultArchiveLabel},
		{"keeps digits and underscores", "run_2024-01", "run_2024-01"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := SanitizeArchiveLabel(tt.input); got != tt.want {
				t.Errorf("SanitizeArchiveLabel(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestBuildArchive(t *testing.T) {
	root := t.TempDir()
	touch(t, filepath.Join(root, "co2days", "a.csv"))
	touch(t, filepath.Join(root, "dooropen", "b.csv"))

	archiveBytes, err := BuildArchive(root, "Label-Converted20240101")
	if err != nil {
		t.Fatalf("BuildArchive() error = %v", err)
	}

	zr, err := zip.NewReader(bytes.NewReader(archiveBytes), int64(len(archiveBytes)))
	if err != nil {
		t.Fatalf("output is not a readable ZIP: %v", err)
	}

	want := map[string]bool{
		"Label-Converted20240101/co2days/a.csv":  false,
		"Label-Converted20240101/dooropen/b.csv": false,
	}
	for _, f := range zr.File {
		if _, ok := want[f.Name]; !ok {
			t.Errorf("unexpected archive entry %q", f.Name)
			continue
		}
		want[f.Name] = true

		rc, err := f.Open()
		if err != nil {
			t.Fatalf("opening entry %s: %v", f.Name, err)
		}
		content, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			t.Fatalf("reading entry %s: %v", f.Name, err)
		}
		if string(content) != "x" {
			t.Errorf("entry %s content = %q, want %q", f.Name, content, "x")
		}
	}
	for name, seen := range want {
		if !seen {
			t.Errorf("archive missing entry %q", name)
		}
	}
}

func TestBuildArchive_MissingRoot(t *testing.T) {
	if _, err := BuildArchive(filepath.Join(os.TempDir(), "definitely-not-here-xyz"), "name"); err == nil {
		t.Error("BuildArchive() with missing root = nil error, want error")
	}
}
