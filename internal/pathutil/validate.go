// Package pathutil confines caller-supplied paths to an output root.
package pathutil

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// RedactPath reduces a full path to .../<parent>/<basename> for error messages.
// For example, "/home/user/results/exp1/params.yaml" becomes ".../exp1/params.yaml".
func RedactPath(path string) string {
	if path == "" {
		return ""
	}
	cleaned := filepath.Clean(path)
	parent := filepath.Base(filepath.Dir(cleaned))
	if parent == "." || parent == string(filepath.Separator) {
		return filepath.Base(cleaned)
	}
	return ".../" + parent + "/" + filepath.Base(cleaned)
}

// ResolveWithin resolves path against root and returns the absolute result,
// or an error when it escapes root. Relative paths are taken relative to
// root. Symlinks on existing ancestors are followed before the check.
func ResolveWithin(root, path string) (string, error) {
	if root == "" {
		return "", fmt.Errorf("path validation failed: root is empty")
	}
	if path == "" {
		return "", fmt.Errorf("path validation failed: path is empty")
	}
	if strings.ContainsRune(path, '\x00') {
		return "", fmt.Errorf("path validation failed: path contains null byte")
	}

	rootAbs, err := filepath.Abs(filepath.Clean(root))
	if err != nil {
		return "", fmt.Errorf("path validation failed: cannot resolve root: %w", err)
	}
	target := path
	if !filepath.IsAbs(target) {
		target = filepath.Join(rootAbs, target)
	}
	target = filepath.Clean(target)

	resolvedRoot, err := resolveExisting(rootAbs)
	if err != nil {
		return "", fmt.Errorf("path validation failed: %w", err)
	}
	resolved, err := resolveExisting(target)
	if err != nil {
		return "", fmt.Errorf("path validation failed: %w", err)
	}
	if !isSubpath(resolved, resolvedRoot) {
		return "", fmt.Errorf("path validation failed: %q is outside the output root", RedactPath(target))
	}
	return target, nil
}

// resolveExisting follows symlinks on the deepest existing ancestor of path
// and re-appends the part that does not exist yet.
func resolveExisting(path string) (string, error) {
	resolved, err := filepath.EvalSymlinks(path)
	if err == nil {
		return resolved, nil
	}

	parent := filepath.Dir(path)
	if parent == path {
		return "", fmt.Errorf("cannot resolve path: %s", RedactPath(path))
	}
	resolvedParent, err := resolveExisting(parent)
	if err != nil {
		return "", err
	}
	return filepath.Join(resolvedParent, filepath.Base(path)), nil
}

// isSubpath reports whether path is base or lies under it.
func isSubpath(path, base string) bool {
	if path == base {
		return true
	}
	return strings.HasPrefix(path, base+string(os.PathSeparator))
}
