package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	kdl "github.com/sblinch/kdl-go"
	"github.com/sblinch/kdl-go/document"

	"github.com/standardbeagle/filesearch/internal/debug"
)

// LoadKDL overlays dir/.filesearch.kdl onto cfg. It reports whether the file
// exists; a missing file is not an error.
func LoadKDL(dir string, cfg *Config) (bool, error) {
	kdlPath := filepath.Join(dir, KDLFileName)

	content, err := os.ReadFile(kdlPath)
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return true, fmt.Errorf("failed to read %s: %w", kdlPath, err)
	}

	if err := applyKDL(string(content), dir, cfg); err != nil {
		return true, fmt.Errorf("%s: %w", kdlPath, err)
	}
	debug.LogConfig("loaded %s\n", kdlPath)
	return true, nil
}

// applyKDL walks the document and sets only the keys it contains.
func applyKDL(content, configDir string, cfg *Config) error {
	doc, err := kdl.Parse(strings.NewReader(content))
	if err != nil {
		return fmt.Errorf("failed to parse KDL config: %w", err)
	}

	for _, n := range doc.Nodes {
		switch nodeName(n) {
		case "workspace":
			for _, cn := range n.Children { // workspace { root "."; file_root "/file" }
				assignSimpleString(cn, "root", func(v string) { cfg.Workspace.Root = resolveRoot(v, configDir) })
				assignSimpleString(cn, "file_root", func(v string) { cfg.Workspace.FileRoot = v })
			}
		case "search":
			if err := applySearchSection(n, cfg); err != nil {
				return err
			}
		case "server":
			for _, cn := range n.Children {
				assignSimpleString(cn, "addr", func(v string) { cfg.Server.Addr = v })
			}
		case "exclude":
			cfg.Exclude = mergeExcludes(cfg.Exclude, collectStringArgs(n))
		default:
			debug.LogConfig("ignoring unknown config section %q\n", nodeName(n))
		}
	}
	return nil
}

func applySearchSection(n *document.Node, cfg *Config) error {
	for _, cn := range n.Children {
		switch nodeName(cn) {
		case "max_file_size":
			if v, ok := firstIntArg(cn); ok {
				cfg.Search.MaxFileSize = ByteSize(v)
			}
			if s, ok := firstStringArg(cn); ok {
				sz, err := ParseSize(s)
				if err != nil {
					return fmt.Errorf("search.max_file_size: %w", err)
				}
				cfg.Search.MaxFileSize = sz
			}
		case "workers":
			if v, ok := firstIntArg(cn); ok {
				cfg.Search.Workers = v
			}
		case "default_rows":
			if v, ok := firstIntArg(cn); ok {
				cfg.Search.DefaultRows = v
			}
		case "max_rows":
			if v, ok := firstIntArg(cn); ok {
				cfg.Search.MaxRows = v
			}
		case "timeout_ms":
			if v, ok := firstIntArg(cn); ok {
				cfg.Search.TimeoutMs = v
			}
		case "watch_debounce_ms":
			if v, ok := firstIntArg(cn); ok {
				cfg.Search.WatchDebounceMs = v
			}
		case "skip_binary":
			if b, ok := firstBoolArg(cn); ok {
				cfg.Search.SkipBinary = b
			}
		case "follow_symlinks":
			if b, ok := firstBoolArg(cn); ok {
				cfg.Search.FollowSymlinks = b
			}
		case "respect_gitignore":
			if b, ok := firstBoolArg(cn); ok {
				cfg.Search.RespectGitignore = b
			}
		}
	}
	return nil
}

func nodeName(n *document.Node) string {
	if n == nil || n.Name == nil {
		return ""
	}
	return n.Name.NodeNameString()
}

func firstIntArg(n *document.Node) (int, bool) {
	if len(n.Arguments) == 0 {
		return 0, false
	}
	switch v := n.Arguments[0].Value.(type) {
	case int64:
		return int(v), true
	case float64:
		return int(v), true
	default:
		return 0, false
	}
}

func firstStringArg(n *document.Node) (string, bool) {
	if len(n.Arguments) == 0 {
		return "", false
	}
	if s, ok := n.Arguments[0].Value.(string); ok {
		return s, true
	}
	return "", false
}

func firstBoolArg(n *document.Node) (bool, bool) {
	if len(n.Arguments) == 0 {
		return false, false
	}
	if b, ok := n.Arguments[0].Value.(bool); ok {
		return b, true
	}
	return false, false
}

// collectStringArgs accepts both the inline form (exclude "a" "b") and the
// block form (exclude { "a"; "b" }), where each string is a child node name.
func collectStringArgs(n *document.Node) []string {
	if n == nil {
		return nil
	}
	out := make([]string, 0, len(n.Arguments))
	for _, a := range n.Arguments {
		if s, ok := a.Value.(string); ok {
			out = append(out, s)
		}
	}

	for _, child := range n.Children {
		if s, ok := firstStringArg(child); ok {
			out = append(out, s)
		} else if child.Name != nil {
			if s, ok := child.Name.Value.(string); ok {
				out = append(out, s)
			}
		}
	}
	return out
}

func assignSimpleString(n *document.Node, target string, set func(string)) {
	if nodeName(n) == target {
		if s, ok := firstStringArg(n); ok {
			set(s)
		}
	}
}

// KDLTemplate is written by "config init".
func KDLTemplate() string {
	d := Default(".")
	return fmt.Sprintf(`// filesearch configuration
workspace {
    root "."
    file_root %q
}

search {
    max_file_size %q
    workers 0 // 0 = one per CPU, minus one
    default_rows %d
    max_rows %d
    skip_binary %t
    follow_symlinks %t
    respect_gitignore %t
    timeout_ms %d
    watch_debounce_ms %d
}

server {
    addr %q
}

exclude {
    "**/.git"
    "**/node_modules"
}
`, d.Workspace.FileRoot, d.Search.MaxFileSize.String(), d.Search.DefaultRows, d.Search.MaxRows,
		d.Search.SkipBinary, d.Search.FollowSymlinks, d.Search.RespectGitignore,
		d.Search.TimeoutMs, d.Search.WatchDebounceMs, d.Server.Addr)
}
