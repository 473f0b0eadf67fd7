// Package pathutil converts between absolute filesystem paths and the
// slash-separated, workspace-relative paths used in search results.
package pathutil

import (
	"path/filepath"
	"strings"
)

// ToRelative converts an absolute path to a slash-separated path relative to
// rootDir. It falls back to the original path if it is already relative, lies
// outside rootDir, or cannot be made relative.
//
// Examples:
//   - ToRelative("/ws/project/src/main.go", "/ws") → "project/src/main.go"
//   - ToRelative("/other/file.go", "/ws") → "/other/file.go" (outside root)
//   - ToRelative("src/main.go", "/ws") → "src/main.go" (already relative)
func ToRelative(absPath, rootDir string) string {
	if absPath == "" || rootDir == "" {
		return absPath
	}
	if !filepath.IsAbs(absPath) {
		return filepath.ToSlash(absPath)
	}

	absPath = filepath.Clean(absPath)
	rootDir = filepath.Clean(rootDir)

	relPath, err := filepath.Rel(rootDir, absPath)
	if err != nil || escapes(relPath) {
		return absPath
	}
	return filepath.ToSlash(relPath)
}

// IsWithin reports whether path is rootDir or lies below it. Both paths are
// cleaned first; symlinks are not resolved.
func IsWithin(path, rootDir string) bool {
	if path == "" || rootDir == "" {
		return false
	}
	relPath, err := filepath.Rel(filepath.Clean(rootDir), filepath.Clean(path))
	if err != nil {
		return false
	}
	return !escapes(relPath)
}

// FromSlashRelative joins a slash-separated relative path onto rootDir.
func FromSlashRelative(rootDir, rel string) string {
	return filepath.Join(rootDir, filepath.FromSlash(rel))
}

func escapes(relPath string) bool {
	return relPath == ".." || strings.HasPrefix(relPath, ".."+string(filepath.Separator)) || filepath.IsAbs(relPath)
}
