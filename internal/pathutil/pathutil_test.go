package pathutil

import (
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
)

func TestWithin(t *testing.T) {
	dir := t.TempDir()
	other := t.TempDir()
	if err := os.MkdirAll(filepath.Join(dir, "sub"), 0700); err != nil {
		t.Fatalf("failed to create subdir: %v", err)
	}

	tests := []struct {
		name        string
		dir         string
		file        string
		wantBase    string
		errContains string
	}{
		{name: "plain name", dir: dir, file: "compare.html", wantBase: "compare.html"},
		{name: "subdirectory", dir: dir, file: filepath.Join("sub", "run.html"), wantBase: "run.html"},
		{name: "missing nested dirs", dir: dir, file: filepath.Join("a", "b", "c.html"), wantBase: "c.html"},
		{name: "absolute inside", dir: dir, file: filepath.Join(dir, "abs.html"), wantBase: "abs.html"},
		{name: "directory not created yet", dir: filepath.Join(dir, "charts"), file: "x.html", wantBase: "x.html"},
		{name: "dot-dot escape", dir: dir, file: filepath.Join("..", "etc", "passwd"), errContains: "outside"},
		{name: "embedded dot-dot escape", dir: dir, file: filepath.Join("sub", "..", "..", "x.html"), errContains: "outside"},
		{name: "absolute outside", dir: dir, file: filepath.Join(other, "x.html"), errContains: "outside"},
		{name: "the directory itself", dir: dir, file: ".", errContains: "outside"},
		{name: "sibling prefix", dir: dir, file: dir + "bar.html", errContains: "outside"},
		{name: "null byte", dir: dir, file: "a\x00b.html", errContains: "null byte"},
		{name: "empty name", dir: dir, file: "", errContains: "empty"},
		{name: "no directory", dir: "", file: "x.html", errContains: "no directory"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Within(tt.dir, tt.file)
			if tt.errContains != "" {
				if err == nil || !strings.Contains(err.Error(), tt.errContains) {
					t.Errorf("Within() error = %v, want error containing %q", err, tt.errContains)
				}
				return
			}
			if err != nil {
				t.Fatalf("Within() error = %v", err)
			}
			if !filepath.IsAbs(got) || filepath.Base(got) != tt.wantBase {
				t.Errorf("Within() = %q, want absolute path ending in %q", got, tt.wantBase)
			}
		})
	}
}

func TestWithin_Symlinks(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("symlink test not supported on Windows")
	}

	dir := t.TempDir()
	outside := t.TempDir()
	if err := os.Symlink(outside, filepath.Join(dir, "escape")); err != nil {
		t.Fatalf("failed to create symlink: %v", err)
	}
	if err := os.MkdirAll(filepath.Join(dir, "real"), 0700); err != nil {
		t.Fatalf("failed to create subdir: %v", err)
	}
	if err := os.Symlink(filepath.Join(dir, "real"), filepath.Join(dir, "link")); err != nil {
		t.Fatalf("failed to create symlink: %v", err)
	}

	if _, err := Within(dir, filepath.Join("escape", "x.html")); err == nil {
		t.Error("Within() accepted a symlink pointing outside the directory")
	}
	if _, err := Within(dir, filepath.Join("link", "x.html")); err != nil {
		t.Errorf("Within() rejected a symlink staying inside the directory: %v", err)
	}
}

func TestRedact(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"", ""},
		{"/home/user/.vacuumsim/config.yaml", ".../.vacuumsim/config.yaml"},
		{"/a/b/c/d/e.html", ".../d/e.html"},
		{"/file.html", "file.html"},
		{"dir/file.html", ".../dir/file.html"},
		{"file.html", "file.html"},
		{"/home/user/.vacuumsim/", ".../user/.vacuumsim"},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := Redact(tt.input); got != tt.want {
				t.Errorf("Redact(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}
