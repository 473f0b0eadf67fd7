package config

import (
	"bufio"
	"os"
	"path/filepath"
	"strings"
)

// LoadGitignore reads root/.gitignore and converts its patterns into
// doublestar exclusions over workspace-relative paths. A missing file yields
// no patterns. Negated patterns are not supported and are skipped.
func LoadGitignore(root string) ([]string, error) {
	file, err := os.Open(filepath.Join(root, ".gitignore"))
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	defer file.Close()

	var patterns []string
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		if p, ok := convertGitignoreLine(scanner.Text()); ok {
			patterns = append(patterns, p)
		}
	}
	return patterns, scanner.Err()
}

// convertGitignoreLine maps one .gitignore line to a doublestar pattern.
// Directory patterns ("build/") exclude the directory itself, which keeps the
// walker from entering it. Patterns containing a slash are anchored at the
// root, all others match at any depth.
func convertGitignoreLine(line string) (string, bool) {
	line = strings.TrimSpace(line)
	if line == "" || strings.HasPrefix(line, "#") || strings.HasPrefix(line, "!") {
		return "", false
	}

	line = strings.TrimSuffix(line, "/")
	anchored := strings.Contains(line, "/")
	line = strings.TrimPrefix(line, "/")
	if line == "" {
		return "", false
	}

	if anchored || strings.HasPrefix(line, "**/") {
		return line, true
	}
	return "**/" + line, true
}
