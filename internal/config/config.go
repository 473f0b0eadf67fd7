package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"slices"
	"strconv"
	"strings"
	"time"
)

const (
	// KDLFileName is the project and global configuration file.
	KDLFileName = ".filesearch.kdl"
	// TOMLFileName is read when a project has no KDL file.
	TOMLFileName = ".filesearch.toml"
)

type Config struct {
	Workspace Workspace `toml:"workspace"`
	Search    Search    `toml:"search"`
	Server    Server    `toml:"server"`
	// Exclude holds doublestar globs over workspace-relative paths.
	Exclude []string `toml:"exclude"`
}

type Workspace struct {
	Root     string `toml:"root"`
	FileRoot string `toml:"file_root"` // Location prefix, "/file" by default
}

type Search struct {
	MaxFileSize      ByteSize `toml:"max_file_size"`
	Workers          int      `toml:"workers"` // 0 = auto-detect (NumCPU-1)
	DefaultRows      int      `toml:"default_rows"`
	MaxRows          int      `toml:"max_rows"`
	SkipBinary       bool     `toml:"skip_binary"`
	FollowSymlinks   bool     `toml:"follow_symlinks"`
	RespectGitignore bool     `toml:"respect_gitignore"` // add the workspace .gitignore to Exclude
	TimeoutMs        int      `toml:"timeout_ms"`        // 0 = no per-request deadline
	WatchDebounceMs  int      `toml:"watch_debounce_ms"`
}

type Server struct {
	Addr string `toml:"addr"`
}

// Timeout returns the per-request deadline, zero when disabled.
func (s Search) Timeout() time.Duration {
	return time.Duration(s.TimeoutMs) * time.Millisecond
}

// WatchDebounce returns the quiet period before a watched search re-runs.
func (s Search) WatchDebounce() time.Duration {
	return time.Duration(s.WatchDebounceMs) * time.Millisecond
}

// Default returns the built-in configuration rooted at root.
func Default(root string) *Config {
	return &Config{
		Workspace: Workspace{
			Root:     root,
			FileRoot: "/file",
		},
		Search: Search{
			MaxFileSize:     10 * MB,
			Workers:         defaultWorkers(),
			DefaultRows:     100,
			MaxRows:         10000,
			SkipBinary:      true,
			WatchDebounceMs: 300,
		},
		Server: Server{
			Addr: "127.0.0.1:8080",
		},
		Exclude: []string{
			"**/.git",
			"**/.hg",
			"**/.svn",
		},
	}
}

func defaultWorkers() int {
	return max(1, runtime.NumCPU()-1)
}

// Load builds the effective configuration for projectDir: defaults, then the
// global ~/.filesearch.kdl, then the project's .filesearch.kdl or, when that
// is absent, .filesearch.toml. Later layers override earlier ones; exclusion
// lists are merged.
func Load(projectDir string) (*Config, error) {
	if projectDir == "" {
		projectDir = "."
	}
	absDir, err := filepath.Abs(projectDir)
	if err != nil {
		absDir = projectDir
	}

	cfg := Default(absDir)

	if homeDir, err := os.UserHomeDir(); err == nil && filepath.Clean(homeDir) != absDir {
		if _, err := LoadKDL(homeDir, cfg); err != nil {
			return nil, err
		}
		// the global file never picks the workspace
		cfg.Workspace.Root = absDir
	}

	found, err := LoadKDL(absDir, cfg)
	if err != nil {
		return nil, err
	}
	if !found {
		if _, err := LoadTOML(absDir, cfg); err != nil {
			return nil, err
		}
	}

	if cfg.Search.Workers == 0 {
		cfg.Search.Workers = defaultWorkers()
	}
	if cfg.Search.RespectGitignore {
		patterns, err := LoadGitignore(cfg.Workspace.Root)
		if err != nil {
			return nil, err
		}
		cfg.Exclude = mergeExcludes(cfg.Exclude, patterns)
	}
	return cfg, nil
}

// resolveRoot makes a configured root absolute relative to the directory
// holding the configuration file.
func resolveRoot(root, configDir string) string {
	if root == "" {
		return configDir
	}
	if strings.HasPrefix(root, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			root = filepath.Join(home, root[2:])
		}
	}
	if !filepath.IsAbs(root) {
		root = filepath.Join(configDir, root)
	}
	return filepath.Clean(root)
}

// mergeExcludes appends patterns not already present, preserving order.
func mergeExcludes(base, extra []string) []string {
	out := slices.Clone(base)
	for _, p := range extra {
		if !slices.Contains(out, p) {
			out = append(out, p)
		}
	}
	return out
}

// ByteSize is a size in bytes written as "10MB", "512KB" or a plain number.
type ByteSize int64

const (
	KB ByteSize = 1024
	MB          = 1024 * KB
	GB          = 1024 * MB
)

// ParseSize handles size strings like "10MB", "500KB", "1GB".
func ParseSize(s string) (ByteSize, error) {
	s = strings.ToUpper(strings.TrimSpace(s))

	multiplier := ByteSize(1)
	numStr := s
	switch {
	case strings.HasSuffix(s, "GB"):
		multiplier, numStr = GB, strings.TrimSuffix(s, "GB")
	case strings.HasSuffix(s, "MB"):
		multiplier, numStr = MB, strings.TrimSuffix(s, "MB")
	case strings.HasSuffix(s, "KB"):
		multiplier, numStr = KB, strings.TrimSuffix(s, "KB")
	case strings.HasSuffix(s, "B"):
		numStr = strings.TrimSuffix(s, "B")
	}

	num, err := strconv.ParseInt(strings.TrimSpace(numStr), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid size %q: %w", s, err)
	}
	return ByteSize(num) * multiplier, nil
}

func (b ByteSize) String() string {
	switch {
	case b != 0 && b%GB == 0:
		return strconv.FormatInt(int64(b/GB), 10) + "GB"
	case b != 0 && b%MB == 0:
		return strconv.FormatInt(int64(b/MB), 10) + "MB"
	case b != 0 && b%KB == 0:
		return strconv.FormatInt(int64(b/KB), 10) + "KB"
	default:
		return strconv.FormatInt(int64(b), 10) + "B"
	}
}

// MarshalText implements encoding.TextMarshaler.
func (b ByteSize) MarshalText() ([]byte, error) {
	return []byte(b.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (b *ByteSize) UnmarshalText(text []byte) error {
	v, err := ParseSize(string(text))
	if err != nil {
		return err
	}
	*b = v
	return nil
}
