package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"

	"github.com/standardbeagle/filesearch/internal/debug"
)

// LoadTOML overlays dir/.filesearch.toml onto cfg. Keys absent from the file
// keep their current values; exclude entries are merged.
func LoadTOML(dir string, cfg *Config) (bool, error) {
	tomlPath := filepath.Join(dir, TOMLFileName)

	content, err := os.ReadFile(tomlPath)
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return true, fmt.Errorf("failed to read %s: %w", tomlPath, err)
	}

	if err := applyTOML(content, dir, cfg); err != nil {
		return true, fmt.Errorf("%s: %w", tomlPath, err)
	}
	debug.LogConfig("loaded %s\n", tomlPath)
	return true, nil
}

func applyTOML(content []byte, configDir string, cfg *Config) error {
	excludes := cfg.Exclude
	root := cfg.Workspace.Root
	cfg.Exclude = nil
	cfg.Workspace.Root = ""

	dec := toml.NewDecoder(bytes.NewReader(content))
	dec.DisallowUnknownFields()
	err := dec.Decode(cfg)

	if cfg.Workspace.Root == "" {
		cfg.Workspace.Root = root
	} else {
		cfg.Workspace.Root = resolveRoot(cfg.Workspace.Root, configDir)
	}
	cfg.Exclude = mergeExcludes(excludes, cfg.Exclude)

	if err != nil {
		return fmt.Errorf("failed to parse TOML config: %w", err)
	}
	return nil
}

// TOML renders the configuration for "config show".
func (c *Config) TOML() ([]byte, error) {
	var buf bytes.Buffer
	enc := toml.NewEncoder(&buf)
	enc.SetIndentTables(true)
	if err := enc.Encode(c); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
