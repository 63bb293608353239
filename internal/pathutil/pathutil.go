// Package pathutil confines caller-supplied file names to a directory.
package pathutil

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Redact reduces a path to .../<parent>/<base> for error messages, e.g.
// "/home/user/.vacuumsim/charts/run.html" becomes ".../charts/run.html".
func Redact(path string) string {
	if path == "" {
		return ""
	}
	cleaned := filepath.Clean(path)
	base := filepath.Base(cleaned)
	parent := filepath.Base(filepath.Dir(cleaned))
	if parent == "." || parent == string(filepath.Separator) {
		return base
	}
	return ".../" + parent + "/" + base
}

// Within resolves name against dir and returns the resulting absolute path.
// It fails unless the path, after cleaning and symlink resolution, names a
// file strictly inside dir. Neither dir nor the file needs to exist yet.
func Within(dir, name string) (string, error) {
	if name == "" {
		return "", fmt.Errorf("path validation failed: file name is empty")
	}
	if dir == "" {
		return "", fmt.Errorf("path validation failed: no directory configured")
	}
	if strings.ContainsRune(name, '\x00') {
		return "", fmt.Errorf("path validation failed: file name contains null byte")
	}

	target := name
	if !filepath.IsAbs(target) {
		target = filepath.Join(dir, target)
	}
	target, err := filepath.Abs(filepath.Clean(target))
	if err != nil {
		return "", fmt.Errorf("path validation failed: %w", err)
	}
	base, err := filepath.Abs(filepath.Clean(dir))
	if err != nil {
		return "", fmt.Errorf("path validation failed: %w", err)
	}

	resolvedBase, err := resolve(base)
	if err != nil {
		return "", err
	}
	resolvedParent, err := resolve(filepath.Dir(target))
	if err != nil {
		return "", err
	}
	resolved := filepath.Join(resolvedParent, filepath.Base(target))

	if !strings.HasPrefix(resolved, resolvedBase+string(os.PathSeparator)) {
		return "", fmt.Errorf("path validation failed: %q is outside %s", Redact(target), Redact(base))
	}
	return resolved, nil
}

// resolve evaluates symlinks on the deepest existing ancestor of p and
// re-appends the missing tail.
func resolve(p string) (string, error) {
	var tail []string
	for {
		resolved, err := filepath.EvalSymlinks(p)
		if err == nil {
			for i := len(tail) - 1; i >= 0; i-- {
				resolved = filepath.Join(resolved, tail[i])
			}
			return resolved, nil
		}
		parent := filepath.Dir(p)
		if parent == p {
			return "", fmt.Errorf("path validation failed: cannot resolve %s", Redact(p))
		}
		tail = append(tail, filepath.Base(p))
		p = parent
	}
}
