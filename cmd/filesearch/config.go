package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/urfave/cli/v2"

	"github.com/standardbeagle/filesearch/internal/config"
)

func configCommandSpec() *cli.Command {
	return &cli.Command{
		Name:  "config",
		Usage: "Manage configuration",
		Subcommands: []*cli.Command{
			{
				Name:  "init",
				Usage: "Write a configuration file to the workspace root",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "format",
						Aliases: []string{"f"},
						Usage:   "Output format: kdl, toml",
						Value:   "kdl",
					},
					&cli.StringFlag{
						Name:    "output",
						Aliases: []string{"o"},
						Usage:   "Output file path (default: .filesearch.kdl or .filesearch.toml in --root)",
					},
					&cli.BoolFlag{
						Name:  "force",
						Usage: "Overwrite existing configuration file",
					},
				},
				Action: configInitCommand,
			},
			{
				Name:    "show",
				Aliases: []string{"s"},
				Usage:   "Print the effective configuration as TOML",
				Action:  configShowCommand,
			},
			{
				Name:    "validate",
				Aliases: []string{"v"},
				Usage:   "Validate configuration files",
				Action:  configValidateCommand,
			},
		},
	}
}

func configInitCommand(c *cli.Context) error {
	dir := c.String("root")
	if dir == "" {
		dir = "."
	}

	var name string
	var content []byte
	switch format := c.String("format"); format {
	case "kdl":
		name = config.KDLFileName
		content = []byte(config.KDLTemplate())
	case "toml":
		name = config.TOMLFileName
		abs, err := filepath.Abs(dir)
		if err != nil {
			return err
		}
		content, err = config.Default(abs).TOML()
		if err != nil {
			return fmt.Errorf("failed to generate config: %w", err)
		}
	default:
		return fmt.Errorf("unsupported format: %s", format)
	}

	output := c.String("output")
	if output == "" {
		output = filepath.Join(dir, name)
	}

	// Check if file exists
	if !c.Bool("force") {
		if _, err := os.Stat(output); err == nil {
			return fmt.Errorf("configuration file %s already exists (use --force to overwrite)", output)
		}
	}

	if err := os.WriteFile(output, content, 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	fmt.Fprintf(c.App.Writer, "Configuration file created: %s\n", output)
	fmt.Fprintf(c.App.Writer, "Edit the file to customize settings for your workspace.\n")
	return nil
}

func configShowCommand(c *cli.Context) error {
	cfg, err := loadConfigWithOverrides(c)
	if err != nil {
		return err
	}
	out, err := cfg.TOML()
	if err != nil {
		return fmt.Errorf("failed to render config: %w", err)
	}
	_, err = c.App.Writer.Write(out)
	return err
}

func configValidateCommand(c *cli.Context) error {
	if _, err := loadConfigWithOverrides(c); err != nil {
		return err
	}
	fmt.Fprintln(c.App.Writer, "Configuration is valid")
	return nil
}
