package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/standardbeagle/filesearch/internal/config"
	"github.com/standardbeagle/filesearch/internal/debug"
	"github.com/standardbeagle/filesearch/internal/search"
	"github.com/standardbeagle/filesearch/internal/version"
	"github.com/standardbeagle/filesearch/internal/workspace"

	"github.com/urfave/cli/v2"
)

var cleanupFuncs []func()

// loadConfigWithOverrides loads configuration for --root and applies CLI flag overrides
func loadConfigWithOverrides(c *cli.Context) (*config.Config, error) {
	projectDir := c.String("root")
	if projectDir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to determine working directory: %w", err)
		}
		projectDir = wd
	}
	absDir, err := filepath.Abs(projectDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve root path %q: %w", projectDir, err)
	}

	cfg, err := config.Load(absDir)
	if err != nil {
		return nil, fmt.Errorf("failed to load config from %s: %w", absDir, err)
	}

	// Apply CLI flag overrides
	if c.IsSet("workers") {
		cfg.Search.Workers = c.Int("workers")
	}
	if c.IsSet("max-file-size") {
		size, err := config.ParseSize(c.String("max-file-size"))
		if err != nil {
			return nil, fmt.Errorf("invalid --max-file-size: %w", err)
		}
		cfg.Search.MaxFileSize = size
	}
	if c.IsSet("timeout") {
		cfg.Search.TimeoutMs = int(c.Duration("timeout") / time.Millisecond)
	}
	if c.IsSet("follow-symlinks") {
		cfg.Search.FollowSymlinks = c.Bool("follow-symlinks")
	}
	if c.IsSet("include-binary") {
		cfg.Search.SkipBinary = !c.Bool("include-binary")
	}
	if excludeFlags := c.StringSlice("exclude"); len(excludeFlags) > 0 {
		cfg.Exclude = append(cfg.Exclude, excludeFlags...)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	debug.LogConfig("workspace %s, %d workers, max file size %s\n",
		cfg.Workspace.Root, cfg.Search.Workers, cfg.Search.MaxFileSize)
	return cfg, nil
}

// newEngine builds the search engine for cfg's workspace.
func newEngine(cfg *config.Config) (*search.Engine, error) {
	resolver, err := workspace.NewResolver(cfg.Workspace.Root, cfg.Workspace.FileRoot)
	if err != nil {
		return nil, err
	}
	return search.NewEngine(cfg, resolver), nil
}

func newApp(stdout, stderr io.Writer) *cli.App {
	return &cli.App{
		Name:                   "filesearch",
		Usage:                  "Search workspace files by content or name",
		Version:                version.Version,
		UseShortOptionHandling: true,
		Writer:                 stdout,
		ErrWriter:              stderr,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "root",
				Aliases: []string{"r"},
				Usage:   "Workspace directory; its .filesearch.kdl or .filesearch.toml is loaded (default: current directory)",
			},
			&cli.IntFlag{
				Name:    "workers",
				Aliases: []string{"w"},
				Usage:   "Files scanned in parallel (overrides config)",
			},
			&cli.StringFlag{
				Name:  "max-file-size",
				Usage: "Read at most this much of each file, e.g. 512KB (overrides config)",
			},
			&cli.DurationFlag{
				Name:  "timeout",
				Usage: "Per-search deadline, 0 for none (overrides config)",
			},
			&cli.BoolFlag{
				Name:  "follow-symlinks",
				Usage: "Search symlinked files",
			},
			&cli.BoolFlag{
				Name:  "include-binary",
				Usage: "Search files that look binary",
			},
			&cli.StringSliceFlag{
				Name:    "exclude",
				Aliases: []string{"x"},
				Usage:   "Skip paths matching glob patterns (e.g., --exclude '**/node_modules')",
			},
			&cli.BoolFlag{
				Name:    "debug",
				Usage:   "Write debug logs to stderr",
				EnvVars: []string{"FILESEARCH_DEBUG"},
			},
			&cli.BoolFlag{
				Name:  "debug-log",
				Usage: "Write debug logs to a file in the temp directory",
			},
		},
		Commands: []*cli.Command{
			searchCommandSpec(),
			{
				Name:  "serve",
				Usage: "Serve GET /filesearch over HTTP",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "addr",
						Aliases: []string{"a"},
						Usage:   "Listen address (overrides config server.addr)",
					},
				},
				Action: serveCommand,
			},
			{
				Name:   "mcp",
				Usage:  "Serve the file_search tool over MCP stdio",
				Action: mcpCommand,
			},
			configCommandSpec(),
		},
		Before: func(c *cli.Context) error {
			if c.Args().First() == "mcp" {
				// stdio carries the protocol
				debug.SetMCPMode(true)
				return nil
			}
			if c.Bool("debug-log") {
				debug.EnableDebug = "true"
				logPath, err := debug.InitDebugLogFile()
				if err != nil {
					return err
				}
				fmt.Fprintf(c.App.ErrWriter, "Debug log: %s\n", logPath)
				cleanupFuncs = append(cleanupFuncs, func() { _ = debug.CloseDebugLog() })
			} else if c.Bool("debug") {
				debug.EnableDebug = "true"
				debug.SetDebugOutput(c.App.ErrWriter)
			}
			return nil
		},
		After: func(c *cli.Context) error {
			for i := len(cleanupFuncs) - 1; i >= 0; i-- {
				cleanupFuncs[i]()
			}
			cleanupFuncs = nil
			return nil
		},
		Action: func(c *cli.Context) error {
			// Default to search if a query is provided
			if c.NArg() > 0 {
				return searchCommand(c)
			}
			return cli.ShowAppHelp(c)
		},
	}
}

func main() {
	if err := newApp(os.Stdout, os.Stderr).Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(exitCode(err))
	}
}
