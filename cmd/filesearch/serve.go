package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/standardbeagle/filesearch/internal/debug"
	"github.com/standardbeagle/filesearch/internal/mcp"
	"github.com/standardbeagle/filesearch/internal/server"
)

// serveCommand runs the HTTP endpoint until interrupted
func serveCommand(c *cli.Context) error {
	cfg, err := loadConfigWithOverrides(c)
	if err != nil {
		return err
	}
	engine, err := newEngine(cfg)
	if err != nil {
		return err
	}

	addr := cfg.Server.Addr
	if c.IsSet("addr") {
		addr = c.String("addr")
	}

	srv := server.NewServer(cfg, engine)
	if err := srv.Start(addr); err != nil {
		return fmt.Errorf("failed to start server: %w", err)
	}

	fmt.Fprintf(c.App.Writer, "File search server listening on http://%s/filesearch\n", srv.Addr())
	fmt.Fprintf(c.App.Writer, "Root: %s\n", cfg.Workspace.Root)

	// Handle graceful shutdown
	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()
	fmt.Fprintln(c.App.Writer, "\nShutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown error: %w", err)
	}

	fmt.Fprintln(c.App.Writer, "Server shut down cleanly")
	return nil
}

// mcpCommand serves the file_search tool on stdio until the client disconnects
func mcpCommand(c *cli.Context) error {
	// Enable MCP mode to suppress all debug output
	debug.SetMCPMode(true)

	cfg, err := loadConfigWithOverrides(c)
	if err != nil {
		return debug.Fatal("failed to load config: %v\n", err)
	}
	engine, err := newEngine(cfg)
	if err != nil {
		return debug.Fatal("failed to open workspace: %v\n", err)
	}

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := mcp.NewServer(cfg, engine).Run(ctx); err != nil && ctx.Err() == nil {
		return debug.Fatal("MCP server error: %v\n", err)
	}
	return nil
}
